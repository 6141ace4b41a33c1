package speedtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pojntfx/storage-throughput/pkg/storage"
	"k8s.io/utils/clock"
)

const DefaultMinDuration = 5 * time.Second

type Operation string

const (
	OperationWrite Operation = "write"
	OperationPrep  Operation = "prep"
	OperationRead  Operation = "read"
)

// Observer is notified of every timed storage operation.
type Observer interface {
	ObserveOperation(op Operation, size int, d time.Duration)
}

type MeterOptions struct {
	// MinDuration is the wall time after which a measurement may stop, once
	// at least two iterations completed.
	MinDuration time.Duration
	// Sync flushes every write to stable storage inside the timed region.
	Sync bool

	Clock    clock.PassiveClock
	Observer Observer
	Logger   *slog.Logger
}

// Measurement is the outcome of one timed write or read loop.
type Measurement struct {
	Iterations  int           `json:"iterations"`
	Elapsed     time.Duration `json:"elapsed"`
	BytesPerSec float64       `json:"bytesPerSec"`
	// Degenerate is set when no time elapsed across all iterations, which
	// makes BytesPerSec meaningless; it is reported as 0.
	Degenerate bool `json:"degenerate,omitempty"`
}

func newMeasurement(size, count int, elapsed time.Duration) Measurement {
	m := Measurement{
		Iterations: count,
		Elapsed:    elapsed,
	}

	if elapsed <= 0 {
		m.Degenerate = true

		return m
	}

	m.BytesPerSec = float64(size) * float64(count) / elapsed.Seconds()

	return m
}

// Meter runs write and read measurements against a single test file. A Meter
// is not safe for concurrent measurements of the same file.
type Meter struct {
	minDuration time.Duration
	sync        bool
	clock       clock.PassiveClock
	observer    Observer
	log         *slog.Logger
}

func NewMeter(options *MeterOptions) *Meter {
	if options == nil {
		options = &MeterOptions{
			MinDuration: DefaultMinDuration,
		}
	}

	m := &Meter{
		minDuration: options.MinDuration,
		sync:        options.Sync,
		clock:       options.Clock,
		observer:    options.Observer,
		log:         options.Logger,
	}

	if m.minDuration < 0 {
		m.minDuration = 0
	}

	if m.clock == nil {
		m.clock = clock.RealClock{}
	}

	if m.log == nil {
		m.log = slog.Default()
	}

	return m
}

// MeasureWrite creates name and overwrites it with payload repeatedly until
// MinDuration has passed and at least two writes completed, then deletes it.
// In prep mode exactly one write is done and the file is kept for a
// following MeasureRead.
func (m *Meter) MeasureWrite(ctx context.Context, store storage.Storage, name string, payload []byte, prep bool) (Measurement, error) {
	if len(payload) == 0 {
		return Measurement{}, fmt.Errorf("%w: empty payload", ErrInvalidArgument)
	}

	op := OperationWrite
	if prep {
		op = OperationPrep
	}

	f, err := store.Create(ctx, name)
	if err != nil {
		m.remove(ctx, store, name)

		return Measurement{}, err
	}

	var (
		count   int
		elapsed time.Duration
		start   = m.clock.Now()
	)
	for {
		if err := ctx.Err(); err != nil {
			return Measurement{}, m.abort(ctx, store, name, f, fmt.Errorf("%v canceled: %w", op, err))
		}

		before := m.clock.Now()

		if err := m.write(f, payload); err != nil {
			return Measurement{}, m.abort(ctx, store, name, f, &storage.OpError{Op: string(op), Path: name, Err: err})
		}

		d := m.clock.Since(before)
		elapsed += d
		count++

		if m.observer != nil {
			m.observer.ObserveOperation(op, len(payload), d)
		}

		if prep || (m.clock.Since(start) > m.minDuration && count > 1) {
			break
		}
	}

	if err := f.Close(); err != nil {
		m.remove(ctx, store, name)

		return Measurement{}, &storage.OpError{Op: "close", Path: name, Err: err}
	}

	if !prep {
		if err := store.Remove(ctx, name); err != nil {
			return Measurement{}, err
		}
	}

	measurement := newMeasurement(len(payload), count, elapsed)

	m.log.Debug("Measured", "op", op, "name", name, "size", len(payload), "iterations", count, "elapsed", elapsed, "bytesPerSec", measurement.BytesPerSec, "degenerate", measurement.Degenerate)

	return measurement, nil
}

// MeasureRead reads size bytes from the start of name repeatedly until
// MinDuration has passed and at least two reads completed, then deletes it.
// name must hold exactly size bytes, which a prep MeasureWrite guarantees.
func (m *Meter) MeasureRead(ctx context.Context, store storage.Storage, name string, size int) (Measurement, error) {
	if size <= 0 {
		m.remove(ctx, store, name)

		return Measurement{}, fmt.Errorf("%w: payload size %v", ErrInvalidArgument, size)
	}

	f, err := store.Open(ctx, name)
	if err != nil {
		m.remove(ctx, store, name)

		return Measurement{}, err
	}

	dropper, _ := f.(storage.CacheDropper)

	var (
		p       = make([]byte, size)
		count   int
		elapsed time.Duration
		start   = m.clock.Now()
	)
	for {
		if err := ctx.Err(); err != nil {
			return Measurement{}, m.abort(ctx, store, name, f, fmt.Errorf("%v canceled: %w", OperationRead, err))
		}

		if dropper != nil {
			if err := dropper.DropCache(); err != nil {
				return Measurement{}, m.abort(ctx, store, name, f, &storage.OpError{Op: "dropcache", Path: name, Err: err})
			}
		}

		before := m.clock.Now()

		n, err := f.ReadAt(p, 0)
		if err != nil && !(errors.Is(err, io.EOF) && n == size) {
			return Measurement{}, m.abort(ctx, store, name, f, &storage.OpError{Op: string(OperationRead), Path: name, Err: err})
		}

		if n != size {
			return Measurement{}, m.abort(ctx, store, name, f, &storage.OpError{Op: string(OperationRead), Path: name, Err: io.ErrUnexpectedEOF})
		}

		d := m.clock.Since(before)
		elapsed += d
		count++

		if m.observer != nil {
			m.observer.ObserveOperation(OperationRead, size, d)
		}

		if m.clock.Since(start) > m.minDuration && count > 1 {
			break
		}
	}

	if err := f.Close(); err != nil {
		m.remove(ctx, store, name)

		return Measurement{}, &storage.OpError{Op: "close", Path: name, Err: err}
	}

	if err := store.Remove(ctx, name); err != nil {
		return Measurement{}, err
	}

	measurement := newMeasurement(size, count, elapsed)

	m.log.Debug("Measured", "op", OperationRead, "name", name, "size", size, "iterations", count, "elapsed", elapsed, "bytesPerSec", measurement.BytesPerSec, "degenerate", measurement.Degenerate)

	return measurement, nil
}

func (m *Meter) write(f storage.File, payload []byte) error {
	n, err := f.WriteAt(payload, 0)
	if err != nil {
		return err
	}

	if n != len(payload) {
		return io.ErrShortWrite
	}

	if m.sync {
		return f.Sync()
	}

	return nil
}

func (m *Meter) abort(ctx context.Context, store storage.Storage, name string, f storage.File, err error) error {
	_ = f.Close()

	m.remove(ctx, store, name)

	return err
}

// remove deletes the test file on a best-effort basis, even if ctx is done.
func (m *Meter) remove(ctx context.Context, store storage.Storage, name string) {
	if err := store.Remove(context.WithoutCancel(ctx), name); err != nil {
		m.log.Warn("Could not remove test file", "name", name, "error", err)
	}
}
