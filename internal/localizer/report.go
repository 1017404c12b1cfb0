package localizer

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

// Outcome is the per-row result of a migration.
type Outcome int

const (
	OutcomeUpdated Outcome = iota
	OutcomeSkippedLocal
	OutcomeSkippedNotExternal
	OutcomeSkippedDownloadFailed
	OutcomeSkippedWriteFailed

	numOutcomes
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkippedLocal:
		return "skipped-already-local"
	case OutcomeSkippedNotExternal:
		return "skipped-not-external"
	case OutcomeSkippedDownloadFailed:
		return "skipped-download-failed"
	case OutcomeSkippedWriteFailed:
		return "skipped-write-failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// TableReport holds the outcome counts of one table.
type TableReport struct {
	Table  string
	Rows   int
	Counts [numOutcomes]int
	Bytes  int64
}

func (r *TableReport) add(o Outcome) {
	r.Counts[o]++
}

func (r TableReport) Count(o Outcome) int {
	return r.Counts[o]
}

func (r TableReport) Updated() int {
	return r.Counts[OutcomeUpdated]
}

func (r TableReport) Skipped() int {
	n := 0
	for o := OutcomeSkippedLocal; o < numOutcomes; o++ {
		n += r.Counts[o]
	}
	return n
}

// Summary aggregates a run.
type Summary struct {
	Tables    []TableReport
	Committed bool
}

func (s Summary) Total() TableReport {
	total := TableReport{Table: "total"}
	for _, t := range s.Tables {
		total.Rows += t.Rows
		total.Bytes += t.Bytes
		for o := range t.Counts {
			total.Counts[o] += t.Counts[o]
		}
	}
	return total
}

// WriteSummary prints the human-readable end-of-run report.
func WriteSummary(w io.Writer, s Summary, uploadRoot string) {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "Image localization summary")
	fmt.Fprintln(w, line)
	for _, t := range s.Tables {
		writeTableLine(w, t)
	}
	fmt.Fprintln(w, strings.Repeat("-", 60))
	writeTableLine(w, s.Total())
	fmt.Fprintln(w, line)

	total := s.Total()
	fmt.Fprintf(w, "Localized: %d images (%s)\n", total.Updated(), humanize.Bytes(uint64(total.Bytes)))
	fmt.Fprintf(w, "Skipped/failed: %d images\n", total.Skipped())
	if s.Committed {
		fmt.Fprintf(w, "Images saved under: %s\n", uploadRoot)
	} else {
		fmt.Fprintln(w, "Transaction rolled back; no rows were changed")
	}
	fmt.Fprintln(w, line)
}

func writeTableLine(w io.Writer, t TableReport) {
	fmt.Fprintf(w, "%-16s rows=%-5d updated=%-5d local=%-5d not-external=%-5d download-failed=%-5d write-failed=%d\n",
		t.Table,
		t.Rows,
		t.Count(OutcomeUpdated),
		t.Count(OutcomeSkippedLocal),
		t.Count(OutcomeSkippedNotExternal),
		t.Count(OutcomeSkippedDownloadFailed),
		t.Count(OutcomeSkippedWriteFailed))
}
