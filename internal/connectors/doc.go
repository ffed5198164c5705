// Package connectors holds clients for the remote services ontomap reads
// from. Each connector implements a driven port so the core never sees
// transport details.
package connectors
