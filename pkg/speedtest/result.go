package speedtest

import "fmt"

// Result is the write and read measurement for one payload size.
type Result struct {
	Size  int         `json:"size"`
	Write Measurement `json:"write"`
	Read  Measurement `json:"read"`
	// Err is set if generating the payload or any storage primitive failed;
	// speeds are zero then.
	Err error `json:"-"`
}

func (r Result) WriteBytesPerSec() float64 {
	return r.Write.BytesPerSec
}

func (r Result) ReadBytesPerSec() float64 {
	return r.Read.BytesPerSec
}

func (r Result) Failed() bool {
	return r.Err != nil
}

// Unreliable reports whether either speed came from degenerate timing.
func (r Result) Unreliable() bool {
	return r.Write.Degenerate || r.Read.Degenerate
}

func (r Result) Label() string {
	return SizeLabel(r.Size)
}

// SizeLabel formats a payload size the way the result table shows it, e.g.
// 10KB or 1MB. Sizes that aren't whole kilobytes or megabytes keep the finer
// unit so that distinct sizes never share a label.
func SizeLabel(size int) string {
	switch {
	case size >= 1_000_000 && size%1_000_000 == 0:
		return fmt.Sprintf("%vMB", size/1_000_000)
	case size >= 1_000 && size%1_000 == 0:
		return fmt.Sprintf("%vKB", size/1_000)
	default:
		return fmt.Sprintf("%vB", size)
	}
}

// Run holds the results of one plan, ordered by ascending payload size.
type Run struct {
	Target  string   `json:"target"`
	Root    string   `json:"root"`
	Results []Result `json:"results"`
	// Err is set if the run stopped early: its storage was unavailable or it
	// was canceled.
	Err error `json:"-"`
}
