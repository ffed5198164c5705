// Package cli implements the ontomap command line with cobra. Commands call
// the driving ports; the composition root in internal/app supplies them
// through a Bootstrap function run before each command.
package cli
