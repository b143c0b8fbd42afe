// Package sampledata embeds the demo dataset: a small watch store with
// products, customers, orders, support tickets, promotions and shipping
// settings, stored in the raw shapes the catalog normalizes.
package sampledata

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
)

//go:embed data/*.json
var files embed.FS

// Writer is where Seed puts the dataset. *storage.DataDir implements it.
type Writer interface {
	Exists(name string) bool
	WriteRaw(ctx context.Context, name string, data []byte) error
}

// Names lists the embedded documents, sorted.
func Names() []string {
	entries, err := fs.ReadDir(files, "data")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// Read returns one embedded document.
func Read(name string) ([]byte, error) {
	data, err := files.ReadFile(path.Join("data", name))
	if err != nil {
		return nil, fmt.Errorf("no sample document %q: %w", name, err)
	}
	return data, nil
}

// Seed writes every embedded document. Existing files are left alone
// unless force is set; they are reported as skipped.
func Seed(ctx context.Context, w Writer, force bool) (written, skipped []string, err error) {
	for _, name := range Names() {
		if !force && w.Exists(name) {
			skipped = append(skipped, name)
			continue
		}
		data, err := Read(name)
		if err != nil {
			return written, skipped, err
		}
		if err := w.WriteRaw(ctx, name, data); err != nil {
			return written, skipped, fmt.Errorf("failed to write %s: %w", name, err)
		}
		written = append(written, name)
	}
	return written, skipped, nil
}
