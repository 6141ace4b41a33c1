package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/pojntfx/storage-throughput/pkg/speedtest"
)

const (
	failedCell     = "failed"
	unreliableMark = "*"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	noteStyle  = lipgloss.NewStyle().Faint(true)
)

// KBPerSec formats bytes/sec as KB/s with one decimal.
func KBPerSec(bytesPerSec float64) string {
	return fmt.Sprintf("%3.1f", bytesPerSec/1_000)
}

func speedCell(m speedtest.Measurement) string {
	if m.Degenerate {
		return KBPerSec(m.BytesPerSec) + unreliableMark
	}

	return KBPerSec(m.BytesPerSec)
}

// Table renders one table per run. capacities maps target names to their
// total size in bytes and may be nil.
func Table(runs []speedtest.Run, capacities map[string]uint64) string {
	var b strings.Builder

	unreliable := false
	for i, run := range runs {
		if i > 0 {
			b.WriteString("\n")
		}

		title := fmt.Sprintf("%v (%v)", run.Target, run.Root)
		if capacity, ok := capacities[run.Target]; ok && capacity > 0 {
			title += ", " + humanize.Bytes(capacity)
		}
		b.WriteString(titleStyle.Render(title) + "\n")

		if len(run.Results) > 0 {
			rows := [][]string{}
			for _, result := range run.Results {
				if result.Failed() {
					rows = append(rows, []string{result.Label(), failedCell, failedCell})

					continue
				}

				if result.Unreliable() {
					unreliable = true
				}

				rows = append(rows, []string{result.Label(), speedCell(result.Write), speedCell(result.Read)})
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("Size", "Write KB/s", "Read KB/s").
				Rows(rows...)

			b.WriteString(t.String() + "\n")
		}

		if run.Err != nil {
			b.WriteString(noteStyle.Render("Skipped: "+run.Err.Error()) + "\n")
		}
	}

	if unreliable {
		b.WriteString(noteStyle.Render(unreliableMark+" timer resolution too coarse, value is unreliable") + "\n")
	}

	return b.String()
}

type jsonResult struct {
	Size             int                   `json:"size"`
	Label            string                `json:"label"`
	WriteBytesPerSec float64               `json:"writeBytesPerSec"`
	ReadBytesPerSec  float64               `json:"readBytesPerSec"`
	Unreliable       bool                  `json:"unreliable,omitempty"`
	Write            speedtest.Measurement `json:"write"`
	Read             speedtest.Measurement `json:"read"`
	Error            string                `json:"error,omitempty"`
}

type jsonRun struct {
	Target   string       `json:"target"`
	Root     string       `json:"root"`
	Capacity uint64       `json:"capacity,omitempty"`
	Results  []jsonResult `json:"results"`
	Error    string       `json:"error,omitempty"`
}

// JSON writes runs as an indented JSON array with raw bytes/sec values.
func JSON(w io.Writer, runs []speedtest.Run, capacities map[string]uint64) error {
	out := []jsonRun{}
	for _, run := range runs {
		r := jsonRun{
			Target:   run.Target,
			Root:     run.Root,
			Capacity: capacities[run.Target],
			Results:  []jsonResult{},
		}

		if run.Err != nil {
			r.Error = run.Err.Error()
		}

		for _, result := range run.Results {
			jr := jsonResult{
				Size:             result.Size,
				Label:            result.Label(),
				WriteBytesPerSec: result.WriteBytesPerSec(),
				ReadBytesPerSec:  result.ReadBytesPerSec(),
				Unreliable:       result.Unreliable(),
				Write:            result.Write,
				Read:             result.Read,
			}

			if result.Err != nil {
				jr.Error = result.Err.Error()
			}

			r.Results = append(r.Results, jr)
		}

		out = append(out, r)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}
