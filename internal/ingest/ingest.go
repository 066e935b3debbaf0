// Package ingest reads recovery inputs from the local filesystem: single
// files, directory trees and a watched inbox.
package ingest

// Upload is one file read from disk, ready for the pipeline.
type Upload struct {
	Path     string
	Ext      string
	MimeType string
	HashHex  string
	Data     []byte
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Hidden  uint32
	Failed  uint32
}
