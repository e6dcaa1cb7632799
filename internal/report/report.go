// Package report renders a reconciliation outcome for operators: a one-line
// summary, a plain log, terminal tables and the JSON wire form.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/JonMunkholm/metasync/internal/reconcile"
)

// Summary is the headline sentence shown after a pass.
func Summary(o *reconcile.Outcome) string {
	return fmt.Sprintf("Updated %d clips. %d filenames not found. %d assignments failed.",
		o.Stats.Updated, o.Stats.Missing, o.Stats.FailedAssignments)
}

// Lines renders the outcome as log lines: the summary, then missing clips
// and failed assignments when there are any.
func Lines(o *reconcile.Outcome) []string {
	lines := []string{Summary(o)}
	if len(o.MissingRows) > 0 {
		lines = append(lines, "Missing clips:")
		for _, m := range o.MissingRows {
			lines = append(lines, "  "+m.Filename)
		}
	}
	if len(o.Failures) > 0 {
		lines = append(lines, "Failed assignments:")
		for _, f := range o.Failures {
			lines = append(lines, fmt.Sprintf("  %s → %s: %s", f.Filename, f.MetadataKey, f.Error))
		}
	}
	return lines
}

// Response is the operator wire form of a pass result.
type Response struct {
	Success bool `json:"success"`
	*reconcile.Outcome
	Error string `json:"error,omitempty"`
}

// NewResponse wraps an outcome, or an error when the pass could not run.
func NewResponse(o *reconcile.Outcome, err error) Response {
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	return Response{Success: true, Outcome: o}
}

// JSON writes the wire form of o, indented.
func JSON(w io.Writer, o *reconcile.Outcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(NewResponse(o, nil))
}
