package app

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"

	"fic-go/internal/fic"
)

// WriteInitSummary prints the outcome of an init run.
func WriteInitSummary(w io.Writer, res *fic.InitResult) {
	fmt.Fprintf(w, "Baseline saved for %d files under %s\n", res.Files, res.Root)
	writeSkipped(w, res.Skipped)
}

// WriteCheckReport prints the classification of a check run. Sections are
// omitted when empty; paths are listed in lexical order.
func WriteCheckReport(w io.Writer, res *fic.CheckResult) {
	fmt.Fprintf(w, "File integrity check report for %s\n", res.Root)

	r := res.Report
	sections := []struct {
		title string
		paths []string
	}{
		{"Modified files", r.Modified},
		{"Deleted files", r.Deleted},
		{"New files", r.Added},
	}
	for _, sec := range sections {
		if len(sec.paths) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", sec.title)
		for _, p := range sec.paths {
			fmt.Fprintf(w, " - %s\n", p)
		}
	}

	if !r.HasChanges() {
		fmt.Fprintf(w, "\nNo changes detected (%d files).\n", r.Unchanged)
	} else {
		fmt.Fprintf(w, "\n%d modified, %d deleted, %d added, %d unchanged\n",
			len(r.Modified), len(r.Deleted), len(r.Added), r.Unchanged)
	}
	writeSkipped(w, res.Skipped)
}

func writeSkipped(w io.Writer, skipped []fic.Skipped) {
	if len(skipped) == 0 {
		return
	}
	fmt.Fprintf(w, "\nSkipped %d unreadable entries:\n", len(skipped))
	for _, s := range skipped {
		fmt.Fprintf(w, " - %s: %v\n", s.Path, s.Err)
	}
}

type skippedJSON struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

type checkReportJSON struct {
	RunID     string        `json:"run_id"`
	Root      string        `json:"root"`
	Modified  []string      `json:"modified"`
	Deleted   []string      `json:"deleted"`
	Added     []string      `json:"added"`
	Unchanged int           `json:"unchanged"`
	Skipped   []skippedJSON `json:"skipped"`
}

// WriteCheckReportJSON prints the check result as a JSON document.
func WriteCheckReportJSON(w io.Writer, res *fic.CheckResult) error {
	out := checkReportJSON{
		RunID:     res.RunID,
		Root:      res.Root,
		Modified:  res.Report.Modified,
		Deleted:   res.Report.Deleted,
		Added:     res.Report.Added,
		Unchanged: res.Report.Unchanged,
		Skipped:   make([]skippedJSON, 0, len(res.Skipped)),
	}
	for _, s := range res.Skipped {
		out.Skipped = append(out.Skipped, skippedJSON{Path: s.Path, Error: s.Err.Error()})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// WriteHistory prints one line per run, newest first.
func WriteHistory(w io.Writer, runs []*fic.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	for _, r := range runs {
		duration := "-"
		if r.FinishedAt.Valid {
			duration = r.FinishedAt.Time.Sub(r.StartedAt).Truncate(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%s  %-5s  %s  %-7s  %8s  files=%d skipped=%d modified=%d deleted=%d added=%d  %s\n",
			r.ID,
			r.Mode,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Status,
			duration,
			r.Files, r.Skipped, r.Modified, r.Deleted, r.Added,
			r.Root,
		)
	}
}
