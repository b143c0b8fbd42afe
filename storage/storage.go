// Package storage reads and writes the JSON documents of a data directory.
//
// Every document is read whole; there is no persistence engine behind it.
// Access is serialized across processes with an advisory file lock
// (shared for reads, exclusive for writes) and writes are atomic
// (temporary file plus rename). A Cache can sit in front of a DataDir and
// a Watcher keeps that cache honest when files change on disk.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/arthur-debert/shopdata/types"
	"github.com/dustin/go-humanize"
)

var (
	// ErrNotFound is returned when the named file does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrInvalidName is returned for names that escape the data directory.
	ErrInvalidName = errors.New("invalid file name")
	// ErrNotArray is returned by LoadRecords when the document is not a
	// JSON array.
	ErrNotArray = errors.New("document is not an array")
)

// Source is the read side of a data directory. DataDir and Cache both
// implement it.
type Source interface {
	List(ctx context.Context) ([]FileInfo, error)
	ReadValue(ctx context.Context, name string) (interface{}, error)
	ReadRaw(ctx context.Context, name string) ([]byte, error)
	LoadRecords(ctx context.Context, name string) ([]types.Record, error)
}

// FileInfo describes one JSON document of the data directory.
type FileInfo struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	Modified    time.Time `json:"modified"`
	RecordCount int       `json:"recordCount"`
}

// HumanSize renders the size as "1.2 kB".
func (f FileInfo) HumanSize() string {
	return humanize.Bytes(uint64(f.Size))
}

// HumanModified renders the modification time relative to now, e.g.
// "3 minutes ago".
func (f FileInfo) HumanModified(now time.Time) string {
	return humanize.RelTime(f.Modified, now, "ago", "from now")
}
