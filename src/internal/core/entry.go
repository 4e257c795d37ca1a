// FILE: logtrace/src/internal/core/entry.go
package core

import "time"

// LogEntry is a single raw log line flowing from a source into a pipeline.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Origin  string    `json:"origin"` // source identifier (file path, "stdin", remote addr)
	Raw     string    `json:"raw"`
	RawSize int64     `json:"-"`
}
