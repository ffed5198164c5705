// Package index implements the inverted index ports on bleve.
//
// One Handle owns the open bleve index and is shared by reference count.
// The Engine on top of it is the single writer (staged batch, atomic
// commit), the concurrent reader, and the calibration store. Each search
// runs against a fresh bleve snapshot, so a commit is visible to every
// search that starts after it and to none already running.
package index
