package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Step   int    `json:"step"`
	Action string `json:"action"`
	State  string `json:"state"` // session state after the step
	Error  string `json:"error,omitempty"`
}

// CellSnapshot is one non-empty matrix cell.
type CellSnapshot struct {
	Text      string `json:"text"`
	StorageID string `json:"storage_id,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every step and expectation matched.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	State          string                  `json:"state"`
	Protected      bool                    `json:"protected"`
	DecodeFailures int                     `json:"decode_failures"`
	Cells          map[string]CellSnapshot `json:"cells"`
	UpsertBatches  int                     `json:"upsert_batches"`
	DeleteBatches  int                     `json:"delete_batches"`
	Upserted       []string                `json:"upserted"`
	Deleted        []string                `json:"deleted"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Cells:    make(map[string]CellSnapshot),
		Upserted: []string{},
		Deleted:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace records an executed step.
func (r *Result) AddTrace(step int, action, state string, err error) {
	ev := TraceEvent{Step: step, Action: action, State: state}
	if err != nil {
		ev.Error = err.Error()
	}
	r.Trace = append(r.Trace, ev)
}
