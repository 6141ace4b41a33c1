package speedtest

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"slices"

	"github.com/pojntfx/storage-throughput/pkg/storage"
)

const TestFileName = "test.dat"

var DefaultSizes = []int{10_000, 100_000, 1_000_000}

// Plan measures one storage target for a list of payload sizes. Everything
// runs sequentially on the calling goroutine.
type Plan struct {
	Target  string
	Root    string
	Storage storage.Storage
	// Sizes defaults to DefaultSizes; they are measured in ascending order.
	Sizes  []int
	Meter  *Meter
	Logger *slog.Logger
}

// Run measures every payload size and calls onResult as soon as each one is
// done. Errors for a single size are recorded in its Result; the returned
// Run's Err is only set if the whole target became unavailable or ctx was
// canceled, in which case the remaining sizes are skipped.
func (p *Plan) Run(ctx context.Context, onResult func(Result)) Run {
	run := Run{
		Target: p.Target,
		Root:   p.Root,
	}

	log := p.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("target", p.Target, "root", p.Root)

	meter := p.Meter
	if meter == nil {
		meter = NewMeter(nil)
	}

	sizes := slices.Clone(p.Sizes)
	if len(sizes) == 0 {
		sizes = slices.Clone(DefaultSizes)
	}
	slices.Sort(sizes)

	if prober, ok := p.Storage.(storage.Prober); ok {
		if err := prober.Probe(ctx, p.Root, 2*int64(sizes[len(sizes)-1])); err != nil {
			run.Err = fmt.Errorf("%w: %w", ErrStorageUnavailable, err)

			log.Error("Storage is not accessible", "error", err)

			return run
		}
	}

	name := path.Join(p.Root, TestFileName)
	for _, size := range sizes {
		if err := ctx.Err(); err != nil {
			run.Err = err

			return run
		}

		if err := p.Storage.MkdirAll(ctx, p.Root); err != nil {
			run.Err = fmt.Errorf("%w: %w", ErrStorageUnavailable, err)

			log.Error("Could not create test folder", "error", err)

			return run
		}

		log.Info("Running test", "size", SizeLabel(size))

		result, err := p.measure(ctx, meter, name, size)
		if err != nil {
			run.Err = err

			log.Info("Test canceled", "size", SizeLabel(size))

			return run
		}

		if result.Failed() {
			log.Warn("Test failed", "size", SizeLabel(size), "error", result.Err)
		} else {
			log.Info("Test complete", "size", SizeLabel(size), "writeBytesPerSec", result.WriteBytesPerSec(), "readBytesPerSec", result.ReadBytesPerSec(), "unreliable", result.Unreliable())
		}

		run.Results = append(run.Results, result)

		if onResult != nil {
			onResult(result)
		}
	}

	return run
}

// measure returns an error only for cancellation; everything else ends up in
// the result.
func (p *Plan) measure(ctx context.Context, meter *Meter, name string, size int) (Result, error) {
	result := Result{Size: size}

	payload, err := Generate(size)
	if err != nil {
		result.Err = err

		return result, nil
	}

	write, err := meter.MeasureWrite(ctx, p.Storage, name, payload, false)
	if err != nil {
		if ctx.Err() != nil {
			return result, err
		}

		result.Err = err

		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	if _, err := meter.MeasureWrite(ctx, p.Storage, name, payload, true); err != nil {
		if ctx.Err() != nil {
			return result, err
		}

		result.Err = err

		return result, nil
	}

	read, err := meter.MeasureRead(ctx, p.Storage, name, size)
	if err != nil {
		if ctx.Err() != nil {
			return result, err
		}

		result.Err = err

		return result, nil
	}

	result.Write = write
	result.Read = read

	return result, nil
}

// RunTargets runs plans one after another. An unavailable target doesn't stop
// the following ones; cancellation does.
func RunTargets(ctx context.Context, plans []*Plan, onResult func(target string, result Result)) []Run {
	runs := []Run{}
	for _, plan := range plans {
		if ctx.Err() != nil {
			break
		}

		target := plan.Target

		runs = append(runs, plan.Run(ctx, func(result Result) {
			if onResult != nil {
				onResult(target, result)
			}
		}))
	}

	return runs
}
