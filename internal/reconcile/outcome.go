package reconcile

// Failure and missing-row texts shown to operators.
const (
	BlankFilename = "(blank filename)"
	RejectedValue = "Resolve rejected value"
)

// Stats are the pass counters. TotalRows counts classified rows, so
// Matched+Missing equals TotalRows even for a pass cut short, and Updated
// never exceeds Matched.
type Stats struct {
	TotalRows         int `json:"totalRows"`
	Matched           int `json:"matched"`
	Updated           int `json:"updated"`
	Missing           int `json:"missing"`
	FailedAssignments int `json:"failedAssignments"`
}

// MissingRow is a row whose key matched no item.
type MissingRow struct {
	Filename string `json:"filename"`
}

// FieldFailure is one metadata write that did not take.
type FieldFailure struct {
	Filename    string `json:"filename"`
	MetadataKey string `json:"metadataKey"`
	Error       string `json:"error"`
}

// Outcome is the full result of a pass. Lists are in row order.
type Outcome struct {
	Stats       Stats          `json:"stats"`
	MissingRows []MissingRow   `json:"missingClips"`
	Failures    []FieldFailure `json:"failures"`
}

func newOutcome() *Outcome {
	return &Outcome{
		MissingRows: []MissingRow{},
		Failures:    []FieldFailure{},
	}
}
