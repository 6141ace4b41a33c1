package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pojntfx/go-nbd/pkg/backend"
)

var (
	ErrStorage = errors.New("storage error")

	errUnsupportedScheme = errors.New("unsupported storage scheme")
	errInvalidIdentifier = errors.New("invalid identifier")
)

// File is a byte-addressable file handed out by a Storage. Writes at offset 0
// overwrite existing content in place.
type File interface {
	backend.Backend
	io.Closer
}

// Storage is the set of file primitives the throughput engine consumes. Names
// are slash-separated paths relative to the storage.
type Storage interface {
	// MkdirAll creates dir if it is absent; it succeeds if dir already exists.
	MkdirAll(ctx context.Context, dir string) error
	// Create creates name or truncates it to zero bytes.
	Create(ctx context.Context, name string) (File, error)
	Open(ctx context.Context, name string) (File, error)
	// Remove deletes name; removing a missing file is not an error.
	Remove(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
}

// Prober is implemented by storages that can tell upfront whether root is
// usable for a test needing roughly need bytes.
type Prober interface {
	Probe(ctx context.Context, root string, need int64) error
}

// CacheDropper is implemented by files whose cached pages can be evicted
// between reads.
type CacheDropper interface {
	DropCache() error
}

// OpError records a failed storage primitive.
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%v %v: %v", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func (e *OpError) Is(target error) bool {
	return target == ErrStorage
}

func wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}

	var opErr *OpError
	if errors.As(err, &opErr) {
		return err
	}

	return &OpError{Op: op, Path: path, Err: err}
}
