package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/arthur-debert/shopdata/types"
)

const (
	// LockFileName is the lock file created inside the data directory.
	LockFileName = ".shopdata.lock"

	defaultLockTimeout = 3 * time.Second
	defaultLockRetry   = 100 * time.Millisecond
)

// DataDir is a directory of JSON documents.
type DataDir struct {
	root        string
	locks       FileLockFactory
	lockTimeout time.Duration
	lockRetry   time.Duration
	logger      *slog.Logger
}

// Option configures a DataDir.
type Option func(*DataDir)

// WithFileLockFactory replaces the flock based locks.
func WithFileLockFactory(factory FileLockFactory) Option {
	return func(d *DataDir) {
		d.locks = factory
	}
}

// WithLockTimeout bounds how long an operation waits for the lock.
func WithLockTimeout(timeout time.Duration) Option {
	return func(d *DataDir) {
		d.lockTimeout = timeout
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *DataDir) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDataDir opens the data directory at root. The directory does not
// need to exist until it is read from.
func NewDataDir(root string, opts ...Option) *DataDir {
	d := &DataDir{
		root:        root,
		locks:       FlockFactory{},
		lockTimeout: defaultLockTimeout,
		lockRetry:   defaultLockRetry,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Root returns the directory path.
func (d *DataDir) Root() string {
	return d.root
}

// Path resolves name inside the directory, rejecting names that would
// escape it.
func (d *DataDir) Path(name string) (string, error) {
	if name == "" || !filepath.IsLocal(filepath.FromSlash(name)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(d.root, filepath.FromSlash(name)), nil
}

// List describes every *.json document at the top of the directory,
// sorted by name. Files that cannot be parsed are skipped.
func (d *DataDir) List(ctx context.Context) ([]FileInfo, error) {
	var files []FileInfo
	err := d.withLock(ctx, false, func() error {
		entries, err := os.ReadDir(d.root)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrNotFound, d.root)
			}
			return fmt.Errorf("failed to read data directory: %w", err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			info, err := d.describe(entry)
			if err != nil {
				d.logger.Warn("skipping unreadable data file", "file", entry.Name(), "error", err)
				continue
			}
			files = append(files, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (d *DataDir) describe(entry fs.DirEntry) (FileInfo, error) {
	stat, err := entry.Info()
	if err != nil {
		return FileInfo{}, err
	}
	data, err := os.ReadFile(filepath.Join(d.root, entry.Name()))
	if err != nil {
		return FileInfo{}, err
	}
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return FileInfo{}, err
	}

	count := 0
	switch v := value.(type) {
	case []interface{}:
		count = len(v)
	case map[string]interface{}:
		count = len(v)
	}
	return FileInfo{
		Name:        entry.Name(),
		Size:        stat.Size(),
		Modified:    stat.ModTime(),
		RecordCount: count,
	}, nil
}

// ReadRaw returns the bytes of a file. Any file inside the directory can
// be read, not only JSON documents.
func (d *DataDir) ReadRaw(ctx context.Context, name string) ([]byte, error) {
	path, err := d.Path(name)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = d.withLock(ctx, false, func() error {
		data, err = os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrNotFound, name)
			}
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		return nil
	})
	return data, err
}

// ReadValue decodes a JSON document keeping object key order.
func (d *DataDir) ReadValue(ctx context.Context, name string) (interface{}, error) {
	data, err := d.ReadRaw(ctx, name)
	if err != nil {
		return nil, err
	}
	value, err := types.DecodeOrdered(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return value, nil
}

// LoadRecords decodes a document holding an array of objects. Elements
// that are not objects are skipped.
func (d *DataDir) LoadRecords(ctx context.Context, name string) ([]types.Record, error) {
	data, err := d.ReadRaw(ctx, name)
	if err != nil {
		return nil, err
	}
	return decodeRecords(name, data)
}

func decodeRecords(name string, data []byte) ([]types.Record, error) {
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	items, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotArray, name)
	}

	records := make([]types.Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			records = append(records, types.Record(m))
		}
	}
	return records, nil
}

// WriteJSON encodes value as indented JSON and replaces the file
// atomically under an exclusive lock.
func (d *DataDir) WriteJSON(ctx context.Context, name string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return d.WriteRaw(ctx, name, append(data, '\n'))
}

// WriteRaw replaces a file atomically under an exclusive lock.
func (d *DataDir) WriteRaw(ctx context.Context, name string, data []byte) error {
	path, err := d.Path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return d.withLock(ctx, true, func() error {
		tmpFile := path + ".tmp"
		if err := os.WriteFile(tmpFile, data, 0644); err != nil {
			return fmt.Errorf("failed to write temp file: %w", err)
		}
		if err := os.Rename(tmpFile, path); err != nil {
			_ = os.Remove(tmpFile)
			return fmt.Errorf("failed to rename file: %w", err)
		}
		d.logger.Debug("wrote data file", "file", name, "bytes", len(data))
		return nil
	})
}

// Exists reports whether name is present in the directory.
func (d *DataDir) Exists(name string) bool {
	path, err := d.Path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// withLock runs fn while holding the directory lock. A missing directory
// is not locked; reads then fail with ErrNotFound on their own.
func (d *DataDir) withLock(ctx context.Context, exclusive bool, fn func() error) error {
	if _, err := os.Stat(d.root); err != nil {
		return fn()
	}

	ctx, cancel := context.WithTimeout(ctx, d.lockTimeout)
	defer cancel()

	lock := d.locks.New(filepath.Join(d.root, LockFileName))
	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = lock.TryLockContext(ctx, d.lockRetry)
	} else {
		locked, err = lock.TryRLockContext(ctx, d.lockRetry)
	}
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("could not acquire file lock")
	}
	defer func() { _ = lock.Unlock() }()

	return fn()
}
