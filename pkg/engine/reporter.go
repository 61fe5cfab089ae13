package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Reporter renders a run summary and is the single place that turns cell
// results into a process-level outcome.
type Reporter struct {
	out    io.Writer
	asJSON bool
	logger zerolog.Logger
}

// NewReporter creates a reporter writing to out. When asJSON is set the
// summary is emitted as one JSON document instead of the text report.
func NewReporter(out io.Writer, asJSON bool, logger zerolog.Logger) *Reporter {
	return &Reporter{
		out:    out,
		asJSON: asJSON,
		logger: logger.With().Str("component", "reporter").Logger(),
	}
}

// Report renders the summary and returns the process exit code: zero iff
// no cell failed. Skips never affect the exit code.
func (r *Reporter) Report(summary *RunSummary) (int, error) {
	if r.asJSON {
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return summary.ExitCode(), fmt.Errorf("failed to encode summary: %w", err)
		}
		return summary.ExitCode(), nil
	}

	if err := r.renderText(summary); err != nil {
		return summary.ExitCode(), err
	}
	return summary.ExitCode(), nil
}

func (r *Reporter) renderText(summary *RunSummary) error {
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s run %s on environment %q\n", strings.ToUpper(string(summary.Action)), summary.RunID, summary.Environment)
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 72))

	for i := range summary.Results {
		res := &summary.Results[i]
		switch res.Status {
		case CellSucceeded:
			fmt.Fprintf(&b, "  ok      %-28s %s\n", cellLabel(res.Cell), res.Duration.Round(durationUnit))
		case CellFailed:
			fmt.Fprintf(&b, "  FAILED  %-28s stage=%s\n", cellLabel(res.Cell), res.Stage)
			if res.Err != nil {
				fmt.Fprintf(&b, "          %s\n", res.Err.Error())
			}
			if res.Output != "" {
				for _, line := range tailLines(res.Output, failureOutputLines) {
					fmt.Fprintf(&b, "          | %s\n", line)
				}
			}
		case CellSkipped:
			fmt.Fprintf(&b, "  skip    %-28s (%s)\n", cellLabel(res.Cell), res.SkipReason)
		}
	}

	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 72))
	fmt.Fprintf(&b, "  %d succeeded, %d failed, %d skipped (of %d) in %s\n\n",
		summary.Succeeded, summary.Failed, summary.Skipped, summary.Total(),
		summary.CompletedAt.Sub(summary.StartedAt).Round(durationUnit))

	if _, err := io.WriteString(r.out, b.String()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// failureOutputLines caps how much captured tool output the text report
// replays per failed cell.
const failureOutputLines = 20

// durationUnit keeps report timings readable.
const durationUnit = time.Millisecond

// cellLabel renders "cloud/module", or just the cloud when a whole cloud
// was skipped before its modules were enumerated.
func cellLabel(c Cell) string {
	if c.Module == "" {
		return c.Cloud
	}
	return c.String()
}

// tailLines returns the last n non-empty lines of s.
func tailLines(s string, n int) []string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
