package storage

import (
	"context"
	"time"
)

// LatencyStorage simulates a round trip before every file read, write and
// sync of the wrapped storage.
type LatencyStorage struct {
	Storage

	rtt time.Duration
}

func NewLatencyStorage(storage Storage, rtt time.Duration) *LatencyStorage {
	return &LatencyStorage{
		Storage: storage,
		rtt:     rtt,
	}
}

func (s *LatencyStorage) Create(ctx context.Context, name string) (File, error) {
	f, err := s.Storage.Create(ctx, name)
	if err != nil {
		return nil, err
	}

	return &latencyFile{f, s.rtt}, nil
}

func (s *LatencyStorage) Open(ctx context.Context, name string) (File, error) {
	f, err := s.Storage.Open(ctx, name)
	if err != nil {
		return nil, err
	}

	return &latencyFile{f, s.rtt}, nil
}

func (s *LatencyStorage) Probe(ctx context.Context, root string, need int64) error {
	if p, ok := s.Storage.(Prober); ok {
		return p.Probe(ctx, root, need)
	}

	return nil
}

type latencyFile struct {
	File

	rtt time.Duration
}

func (f *latencyFile) ReadAt(p []byte, off int64) (int, error) {
	if f.rtt > 0 {
		time.Sleep(f.rtt)
	}

	return f.File.ReadAt(p, off)
}

func (f *latencyFile) WriteAt(p []byte, off int64) (int, error) {
	if f.rtt > 0 {
		time.Sleep(f.rtt)
	}

	return f.File.WriteAt(p, off)
}

func (f *latencyFile) Sync() error {
	if f.rtt > 0 {
		time.Sleep(f.rtt)
	}

	return f.File.Sync()
}

func (f *latencyFile) DropCache() error {
	if d, ok := f.File.(CacheDropper); ok {
		return d.DropCache()
	}

	return nil
}
