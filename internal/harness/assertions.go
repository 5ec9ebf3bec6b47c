package harness

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/guildgrid/internal/engine"
	"github.com/roach88/guildgrid/internal/grid"
)

// AssertionError is returned when an expectation fails.
// It includes the step trace to help debug the failure.
type AssertionError struct {
	Field    string       // Expectation that failed
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Expectation failed: %s\n", e.Field)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nSteps:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s -> %s", ev.Step, ev.Action, ev.State)
		if ev.Error != "" {
			fmt.Fprintf(&buf, " (error: %s)", ev.Error)
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// checkStepError compares a step's error with the class it expects.
// Returns "" on a match.
func checkStepError(want string, err error) string {
	if want == "" {
		if err != nil {
			return fmt.Sprintf("unexpected error: %v", err)
		}
		return ""
	}
	if err == nil {
		return fmt.Sprintf("expected %s error, got none", want)
	}

	var ok bool
	switch want {
	case ErrorAny:
		ok = true
	case ErrorInvalidState:
		ok = errors.Is(err, engine.ErrInvalidState)
	case ErrorDisposed:
		ok = errors.Is(err, engine.ErrDisposed)
	case ErrorStore:
		ok = engine.IsStoreError(err)
	case ErrorAddress:
		ok = grid.IsAddressError(err)
	}
	if !ok {
		return fmt.Sprintf("expected %s error, got: %v", want, err)
	}
	return ""
}

// checkExpectation compares the result's end state with e.
func checkExpectation(e Expectation, r *Result) []error {
	var errs []error
	fail := func(field, expected, actual string) {
		errs = append(errs, &AssertionError{Field: field, Expected: expected, Actual: actual, Trace: r.Trace})
	}

	if e.State != "" && e.State != r.State {
		fail("state", e.State, r.State)
	}

	for _, addr := range sortedKeys(e.Cells) {
		want := e.Cells[addr]
		if got := r.Cells[canonical(addr)].Text; got != want {
			fail("cells["+addr+"]", fmt.Sprintf("%q", want), fmt.Sprintf("%q", got))
		}
	}
	for _, addr := range sortedKeys(e.StorageIDs) {
		want := e.StorageIDs[addr]
		if got := r.Cells[canonical(addr)].StorageID; got != want {
			fail("storage_ids["+addr+"]", fmt.Sprintf("%q", want), fmt.Sprintf("%q", got))
		}
	}

	checkInt := func(field string, want *int, got int) {
		if want != nil && *want != got {
			fail(field, fmt.Sprint(*want), fmt.Sprint(got))
		}
	}
	checkInt("non_empty", e.NonEmpty, len(r.Cells))
	checkInt("decode_failures", e.DecodeFailures, r.DecodeFailures)
	checkInt("upsert_batches", e.UpsertBatches, r.UpsertBatches)
	checkInt("delete_batches", e.DeleteBatches, r.DeleteBatches)

	if e.Protected != nil && *e.Protected != r.Protected {
		fail("protected", fmt.Sprint(*e.Protected), fmt.Sprint(r.Protected))
	}

	checkList := func(field string, want, got []string) {
		if want == nil {
			return
		}
		canon := make([]string, len(want))
		for i, a := range want {
			canon[i] = canonical(a)
		}
		if !slices.Equal(canon, got) {
			fail(field, fmt.Sprint(canon), fmt.Sprint(got))
		}
	}
	checkList("upserted", e.Upserted, r.Upserted)
	checkList("deleted", e.Deleted, r.Deleted)

	return errs
}

// canonical rewrites an address already validated at load time into the
// form used by Result.
func canonical(addr string) string {
	c, err := parseAddress(addr)
	if err != nil {
		return addr
	}
	return c.String()
}

func sortedKeys(m map[string]string) []string {
	out := keys(m)
	sort.Strings(out)
	return out
}
