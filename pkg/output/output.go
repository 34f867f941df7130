package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/nethoundsh/rmfile/pkg/fileinfo"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// NDJSON output: each line is a self-contained JSON object.
type JSONRemoveRecord struct {
	Action  string             `json:"action"`
	Path    string             `json:"path"`
	DryRun  bool               `json:"dry_run"`
	Removed bool               `json:"removed"`
	File    *fileinfo.JSONMeta `json:"file,omitempty"`
}

type JSONAddRecord struct {
	Action  string `json:"action"`
	Kind    string `json:"kind"`
	Pattern string `json:"pattern_file"`
	Value   string `json:"value"`
	DryRun  bool   `json:"dry_run"`
}

// Summary holds the counters reported at the end of a run.
type Summary struct {
	Path    string `json:"path"`
	Mode    string `json:"mode"`
	DryRun  bool   `json:"dry_run"`
	Scanned int    `json:"scanned"`
	Matched int    `json:"matched"`
	Removed int    `json:"removed"`
	Skipped int    `json:"skipped"`
	Freed   int64  `json:"freed_bytes"`
	Added   int    `json:"added"`
}

type JSONSummaryRecord struct {
	Summary Summary `json:"summary"`
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, a ...any) {
	if ew.err == nil {
		_, ew.err = fmt.Fprintf(ew.w, format, a...)
	}
}

func (ew *errWriter) println(a ...any) {
	if ew.err == nil {
		_, ew.err = fmt.Fprintln(ew.w, a...)
	}
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling JSON output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// PrintRemove reports one matched file. removed is false for dry runs and
// for removals that failed.
func PrintRemove(w io.Writer, format, path string, meta *fileinfo.Meta, dryRun, removed bool) error {
	if format == FormatJSON {
		return writeJSON(w, JSONRemoveRecord{
			Action:  "remove",
			Path:    path,
			DryRun:  dryRun,
			Removed: removed,
			File:    fileinfo.ToJSON(meta),
		})
	}

	ew := &errWriter{w: w}
	label := color.RedString("Remove:")
	if dryRun {
		label = color.YellowString("Remove (dry run):")
	}
	if meta != nil {
		ew.printf("%s %s %s\n", label, path, color.HiBlackString("(%s)", meta.SizeHuman))
	} else {
		ew.printf("%s %s\n", label, path)
	}
	return ew.err
}

// PrintAdded lists the rows add mode discovered for one pattern file.
func PrintAdded(w io.Writer, format, kind, patternFile string, rows []string, dryRun bool) error {
	if len(rows) == 0 {
		return nil
	}
	if format == FormatJSON {
		for _, row := range rows {
			rec := JSONAddRecord{Action: "add", Kind: kind, Pattern: patternFile, Value: row, DryRun: dryRun}
			if err := writeJSON(w, rec); err != nil {
				return err
			}
		}
		return nil
	}

	ew := &errWriter{w: w}
	ew.printf("--- Rows added to %s ---\n", color.GreenString(patternFile))
	for _, row := range rows {
		ew.printf("  %s\n", color.CyanString(row))
	}
	return ew.err
}

// PrintSummary emits the end-of-run counters.
func PrintSummary(w io.Writer, format string, s Summary) error {
	if format == FormatJSON {
		return writeJSON(w, JSONSummaryRecord{Summary: s})
	}

	ew := &errWriter{w: w}
	fileWord := "files"
	if s.Scanned == 1 {
		fileWord = "file"
	}
	if s.Mode == "add" {
		ew.printf("Scanned %d %s, %s new patterns, %s skipped%s\n",
			s.Scanned, fileWord, greenIfPositive(s.Added), yellowIfPositive(s.Skipped), dryRunSuffix(s.DryRun))
		return ew.err
	}
	if s.DryRun {
		ew.printf("Scanned %d %s, %d matched, %s would be freed, %s skipped%s\n",
			s.Scanned, fileWord, s.Matched, humanize.Bytes(uint64(s.Freed)), yellowIfPositive(s.Skipped), dryRunSuffix(true))
		return ew.err
	}
	ew.printf("Scanned %d %s, %d matched, %s removed (%s freed), %s skipped\n",
		s.Scanned, fileWord, s.Matched, redIfPositive(s.Removed), humanize.Bytes(uint64(s.Freed)), yellowIfPositive(s.Skipped))
	return ew.err
}

func dryRunSuffix(dryRun bool) string {
	if !dryRun {
		return ""
	}
	return color.YellowString(" [dry run]")
}

func redIfPositive(n int) string {
	if n > 0 {
		return color.RedString("%d", n)
	}
	return color.GreenString("%d", n)
}

func greenIfPositive(n int) string {
	if n > 0 {
		return color.GreenString("%d", n)
	}
	return fmt.Sprintf("%d", n)
}

func yellowIfPositive(n int) string {
	if n > 0 {
		return color.YellowString("%d", n)
	}
	return fmt.Sprintf("%d", n)
}
