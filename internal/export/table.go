package export

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sifterlab/sifter/pkg/storage"
)

// WriteSummary renders per-kind container counts and session information as
// a terminal table.
func WriteSummary(store storage.Store, w io.Writer, noColor bool) error {
	report, err := BuildReport(store)
	if err != nil {
		return err
	}

	writeSessionHeader(report.Session, w, noColor)

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Container Kind", "Count"})

	kinds, err := store.Kinds()
	if err != nil {
		return fmt.Errorf("list container kinds: %w", err)
	}

	total := 0

	for _, kind := range kinds {
		count, countErr := store.CountContainers(kind)
		if countErr != nil {
			return fmt.Errorf("count %s containers: %w", kind, countErr)
		}

		tbl.AppendRow(table.Row{string(kind), humanize.Comma(int64(count))})

		total += count
	}

	tbl.AppendFooter(table.Row{"Total", humanize.Comma(int64(total))})
	tbl.Render()

	if len(report.IntegrityErrors) > 0 {
		warn := sprintfColored(noColor, color.FgRed, "%d data integrity errors", len(report.IntegrityErrors))
		fmt.Fprintln(w, warn)
	}

	return nil
}

// writeSessionHeader prints the session lifecycle summary above the table.
func writeSessionHeader(info *SessionInfo, w io.Writer, noColor bool) {
	if info == nil {
		return
	}

	title := sprintfColored(noColor, color.FgCyan, "%s %s session %s",
		info.ProductName, info.ProductVersion, info.Identifier)
	fmt.Fprintln(w, title)

	if info.CompletionTime.IsZero() {
		fmt.Fprintf(w, "started %s, still running or closed without completion\n",
			info.StartTime.Format(time.RFC3339))

		return
	}

	status := sprintfColored(noColor, color.FgGreen, "completed")
	if info.Aborted {
		status = sprintfColored(noColor, color.FgRed, "aborted")
	}

	fmt.Fprintf(w, "%s in %s (started %s)\n",
		status,
		info.CompletionTime.Sub(info.StartTime).Round(time.Millisecond),
		info.StartTime.Format(time.RFC3339))
}

// sprintfColored formats with the given color unless color is disabled.
func sprintfColored(noColor bool, attr color.Attribute, format string, args ...any) string {
	if noColor {
		return fmt.Sprintf(format, args...)
	}

	return color.New(attr).Sprintf(format, args...)
}
