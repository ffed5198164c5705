// Package metrics implements driven.Metrics with Prometheus collectors and
// serves them over HTTP when a listen address is configured.
package metrics
