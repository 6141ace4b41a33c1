package speedtest

import (
	"context"
	"sync"
	"time"

	"github.com/pojntfx/storage-throughput/pkg/storage"
	testingclock "k8s.io/utils/clock/testing"
)

// hookStorage wraps a storage to advance a fake clock on every file
// operation, inject faults and count calls.
type hookStorage struct {
	storage.Storage

	clock *testingclock.FakeClock
	step  time.Duration

	writeErr func(p []byte) error
	readErr  func(p []byte) error
	probeErr error
	onRemove func(name string)

	lock    sync.Mutex
	writes  int
	reads   int
	syncs   int
	removes int
}

func (s *hookStorage) Create(ctx context.Context, name string) (storage.File, error) {
	f, err := s.Storage.Create(ctx, name)
	if err != nil {
		return nil, err
	}

	return &hookFile{f, s}, nil
}

func (s *hookStorage) Open(ctx context.Context, name string) (storage.File, error) {
	f, err := s.Storage.Open(ctx, name)
	if err != nil {
		return nil, err
	}

	return &hookFile{f, s}, nil
}

func (s *hookStorage) Remove(ctx context.Context, name string) error {
	s.lock.Lock()
	s.removes++
	s.lock.Unlock()

	err := s.Storage.Remove(ctx, name)

	if s.onRemove != nil {
		s.onRemove(name)
	}

	return err
}

func (s *hookStorage) Probe(ctx context.Context, root string, need int64) error {
	return s.probeErr
}

func (s *hookStorage) tick() {
	if s.clock != nil {
		s.clock.Step(s.step)
	}
}

type hookFile struct {
	storage.File

	s *hookStorage
}

func (f *hookFile) WriteAt(p []byte, off int64) (int, error) {
	f.s.lock.Lock()
	f.s.writes++
	f.s.lock.Unlock()

	f.s.tick()

	if f.s.writeErr != nil {
		if err := f.s.writeErr(p); err != nil {
			return 0, err
		}
	}

	return f.File.WriteAt(p, off)
}

func (f *hookFile) ReadAt(p []byte, off int64) (int, error) {
	f.s.lock.Lock()
	f.s.reads++
	f.s.lock.Unlock()

	f.s.tick()

	if f.s.readErr != nil {
		if err := f.s.readErr(p); err != nil {
			return 0, err
		}
	}

	return f.File.ReadAt(p, off)
}

func (f *hookFile) Sync() error {
	f.s.lock.Lock()
	f.s.syncs++
	f.s.lock.Unlock()

	return f.File.Sync()
}

// coarseClock only advances when it is read, so operations timed between two
// reads appear to take no time at all.
type coarseClock struct {
	lock sync.Mutex
	now  time.Time
}

func (c *coarseClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.now = c.now.Add(time.Millisecond)

	return c.now
}

func (c *coarseClock) Since(t time.Time) time.Duration {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.now.Sub(t)
}

type recordingObserver struct {
	lock sync.Mutex
	ops  []Operation
	on   func(n int)
}

func (o *recordingObserver) ObserveOperation(op Operation, size int, d time.Duration) {
	o.lock.Lock()
	o.ops = append(o.ops, op)
	n := len(o.ops)
	o.lock.Unlock()

	if o.on != nil {
		o.on(n)
	}
}

func (o *recordingObserver) count(op Operation) int {
	o.lock.Lock()
	defer o.lock.Unlock()

	n := 0
	for _, candidate := range o.ops {
		if candidate == op {
			n++
		}
	}

	return n
}
