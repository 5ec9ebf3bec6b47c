package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/guildgrid/internal/engine"
	"github.com/roach88/guildgrid/internal/grid"
	"github.com/roach88/guildgrid/internal/testutil"
)

// Scenario is one sync scenario: a seeded store, a sequence of session
// steps and the expected end state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	Document DocumentSpec `yaml:"document"`

	// Echo makes the store deliver every successful write back to the
	// session before the write returns.
	Echo bool `yaml:"echo,omitempty"`

	// ReencryptOnProtect overrides the session default (true).
	ReencryptOnProtect *bool `yaml:"reencrypt_on_protect,omitempty"`

	// Seed is stored before the session starts. No events are published.
	Seed []SeedCell `yaml:"seed,omitempty"`

	Steps []Step `yaml:"steps"`

	Expect Expectation `yaml:"expect"`
}

// DocumentSpec describes the grid the session opens.
type DocumentSpec struct {
	ID        string `yaml:"id,omitempty"`
	GuildID   string `yaml:"guild_id,omitempty"`
	Slug      string `yaml:"slug,omitempty"`
	Protected bool   `yaml:"protected,omitempty"`
}

// SeedCell is a stored record present before the session starts.
type SeedCell struct {
	Row         int    `yaml:"row"`
	Column      int    `yaml:"column"`
	Value       string `yaml:"value"`
	StorageID   string `yaml:"storage_id,omitempty"`
	EncryptWith string `yaml:"encrypt_with,omitempty"`
}

// Step is one action against the session.
type Step struct {
	Initialize     bool          `yaml:"initialize,omitempty"`
	SupplyPassword *string       `yaml:"supply_password,omitempty"`
	SetPassword    *string       `yaml:"set_password,omitempty"`
	Edits          []engine.Edit `yaml:"edits,omitempty"`
	Remote         *RemoteEvent  `yaml:"remote,omitempty"`
	Fail           *Failure      `yaml:"fail,omitempty"`
	Dispose        bool          `yaml:"dispose,omitempty"`

	// ExpectError names the error class the step must return. Empty
	// means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`

	// ExpectState, if set, is the session state required after the step.
	ExpectState string `yaml:"expect_state,omitempty"`
}

// RemoteEvent is a change event delivered to the session's subscription.
// GridID and GuildID default to the scenario document's.
type RemoteEvent struct {
	Type        string `yaml:"type"`
	Row         int    `yaml:"row"`
	Column      int    `yaml:"column"`
	Value       string `yaml:"value,omitempty"`
	StorageID   string `yaml:"storage_id,omitempty"`
	GridID      string `yaml:"grid_id,omitempty"`
	GuildID     string `yaml:"guild_id,omitempty"`
	EncryptWith string `yaml:"encrypt_with,omitempty"`
}

// Failure makes a store operation fail from this step on. An empty
// message clears the failure.
type Failure struct {
	Op      string `yaml:"op"`
	Message string `yaml:"message,omitempty"`
}

// Expectation is checked once every step has run. Unset fields are not
// checked.
type Expectation struct {
	State string `yaml:"state,omitempty"`

	// Cells maps "R-n:C-n" addresses to their expected text. An empty
	// string asserts the cell is empty.
	Cells map[string]string `yaml:"cells,omitempty"`

	// StorageIDs maps addresses to their expected storage id.
	StorageIDs map[string]string `yaml:"storage_ids,omitempty"`

	NonEmpty       *int  `yaml:"non_empty,omitempty"`
	DecodeFailures *int  `yaml:"decode_failures,omitempty"`
	Protected      *bool `yaml:"protected,omitempty"`
	UpsertBatches  *int  `yaml:"upsert_batches,omitempty"`
	DeleteBatches  *int  `yaml:"delete_batches,omitempty"`

	// Upserted and Deleted list every address sent to the store, in
	// order across batches.
	Upserted []string `yaml:"upserted,omitempty"`
	Deleted  []string `yaml:"deleted,omitempty"`
}

// Error classes a step may expect.
const (
	ErrorAny          = "any"
	ErrorInvalidState = "invalid_state"
	ErrorDisposed     = "disposed"
	ErrorStore        = "store"
	ErrorAddress      = "address"
)

var (
	validStates = map[string]bool{
		engine.StateUninitialized.String():   true,
		engine.StateLoading.String():         true,
		engine.StatePendingPassword.String(): true,
		engine.StateReady.String():           true,
		engine.StateDisposed.String():        true,
	}
	validErrors = map[string]bool{
		ErrorAny: true, ErrorInvalidState: true, ErrorDisposed: true, ErrorStore: true, ErrorAddress: true,
	}
	validOps = map[string]testutil.Op{
		string(testutil.OpQuery):          testutil.OpQuery,
		string(testutil.OpUpsert):         testutil.OpUpsert,
		string(testutil.OpDelete):         testutil.OpDelete,
		string(testutil.OpUpdatePassword): testutil.OpUpdatePassword,
	}
	validEventTypes = map[string]bool{"insert": true, "update": true, "delete": true}
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	scenario.applyDefaults()
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func (s *Scenario) applyDefaults() {
	if s.Document.ID == "" {
		s.Document.ID = "grid-1"
	}
	if s.Document.GuildID == "" {
		s.Document.GuildID = "guild-1"
	}
	if s.Document.Slug == "" {
		s.Document.Slug = strings.ReplaceAll(s.Name, "_", "-")
	}
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, seed := range s.Seed {
		if _, err := grid.NewCoord(seed.Row, seed.Column); err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
		if seed.Value == "" {
			return fmt.Errorf("seed[%d]: value is required", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	return validateExpectation(&s.Expect)
}

func validateStep(index int, st *Step) error {
	actions := 0
	for _, set := range []bool{
		st.Initialize,
		st.SupplyPassword != nil,
		st.SetPassword != nil,
		len(st.Edits) > 0,
		st.Remote != nil,
		st.Fail != nil,
		st.Dispose,
	} {
		if set {
			actions++
		}
	}
	if actions != 1 {
		return fmt.Errorf("steps[%d]: exactly one action is required, got %d", index, actions)
	}

	if st.ExpectError != "" && !validErrors[st.ExpectError] {
		return fmt.Errorf("steps[%d]: unknown expect_error %q", index, st.ExpectError)
	}
	if st.ExpectState != "" && !validStates[st.ExpectState] {
		return fmt.Errorf("steps[%d]: unknown expect_state %q", index, st.ExpectState)
	}
	if st.Fail != nil {
		if _, ok := validOps[st.Fail.Op]; !ok {
			return fmt.Errorf("steps[%d].fail: unknown op %q", index, st.Fail.Op)
		}
	}
	if st.Remote != nil && !validEventTypes[st.Remote.Type] {
		return fmt.Errorf("steps[%d].remote: unknown type %q", index, st.Remote.Type)
	}
	return nil
}

func validateExpectation(e *Expectation) error {
	if e.State != "" && !validStates[e.State] {
		return fmt.Errorf("expect: unknown state %q", e.State)
	}
	for _, addrs := range [][]string{keys(e.Cells), keys(e.StorageIDs), e.Upserted, e.Deleted} {
		for _, addr := range addrs {
			if _, err := parseAddress(addr); err != nil {
				return fmt.Errorf("expect: %w", err)
			}
		}
	}
	return nil
}

// parseAddress parses "R-n:C-n".
func parseAddress(addr string) (grid.Coord, error) {
	rowID, colID, ok := strings.Cut(addr, ":")
	if !ok {
		return grid.Coord{}, fmt.Errorf("address %q: want R-n:C-n", addr)
	}
	return grid.ToCoordinate(rowID, colID)
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
