// Package kafka publishes automatic mapping decisions to a Kafka topic.
package kafka
