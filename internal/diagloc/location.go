// Package diagloc implements the single-writer/multi-reader "last position"
// record described in spec §4.L: a process-wide (here, per-Compiler)
// location used only for diagnostic formatting. It never influences
// semantics.
package diagloc

import (
	"sync/atomic"
)

// Record is a seqlock-protected (file, line, column) triple. The parser
// updates it as it advances; readers (error formatters) retry on a torn
// read and fall back to "<unknown>".
type Record struct {
	version atomic.Uint64
	file    string
	line    int
	column  int
}

// New returns a zero-valued record.
func New() *Record { return &Record{} }

// Update bumps the version to odd, writes the new position, then bumps to
// even, per the seqlock write protocol.
func (r *Record) Update(file string, line, column int) {
	r.version.Add(1) // now odd: write in progress
	r.file = file
	r.line = line
	r.column = column
	r.version.Add(1) // now even: write complete
}

// Snapshot is the advisory position returned to a reader.
type Snapshot struct {
	File    string
	Line    int
	Column  int
	Unknown bool
}

// Read performs a seqlock read, retrying on a torn read up to a small
// bounded number of attempts before giving up and reporting Unknown.
func (r *Record) Read() Snapshot {
	const maxAttempts = 8
	for attempt := 0; attempt < maxAttempts; attempt++ {
		v1 := r.version.Load()
		if v1%2 != 0 {
			continue // writer in progress, retry
		}
		file, line, col := r.file, r.line, r.column
		v2 := r.version.Load()
		if v1 == v2 {
			return Snapshot{File: file, Line: line, Column: col}
		}
	}
	return Snapshot{Unknown: true}
}

// String renders the snapshot the way a diagnostic formatter would.
func (s Snapshot) String() string {
	if s.Unknown {
		return "<unknown>"
	}
	return s.File
}
