package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/revision"
	"github.com/roach88/catalog/internal/store"
	"github.com/roach88/catalog/internal/value"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Subject  string // Entity key or table the assertion is about
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s %s\n", e.Type, e.Subject)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// AssertionContext provides what assertions need to inspect final state.
type AssertionContext struct {
	Ctx      context.Context
	Store    *store.Store
	Engine   *revision.Engine
	Bindings map[string]string
}

func (a *AssertionContext) ref(s string) (string, error) {
	name, ok := strings.CutPrefix(s, "$")
	if !ok {
		return s, nil
	}
	bbid, ok := a.Bindings[name]
	if !ok {
		return "", fmt.Errorf("unbound reference %s", s)
	}
	return bbid, nil
}

// EvaluateAssertions runs all assertions and returns their failure messages.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertEntity:
			err = assertEntity(a, actx)
		case AssertResolves:
			err = assertResolves(a, actx)
		case AssertHistory:
			err = assertHistory(a, actx)
		case AssertTableCount:
			err = assertTableCount(a, actx)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// assertEntity fetches the entity, following redirects, and subset-matches
// its summary.
func assertEntity(a Assertion, actx *AssertionContext) error {
	bbid, err := actx.ref(a.BBID)
	if err != nil {
		return err
	}
	v, err := actx.Engine.Fetch(actx.Ctx, bbid)
	if err != nil {
		return &AssertionError{Type: a.Type, Subject: a.BBID, Expected: "entity exists", Actual: err.Error()}
	}
	return matchSummary(a, summarize(v), actx)
}

func assertResolves(a Assertion, actx *AssertionContext) error {
	bbid, err := actx.ref(a.BBID)
	if err != nil {
		return err
	}
	want, err := actx.ref(a.To)
	if err != nil {
		return err
	}
	got, err := actx.Engine.Resolve(actx.Ctx, bbid)
	if err != nil {
		got = err.Error()
	}
	if got != want {
		return &AssertionError{Type: a.Type, Subject: a.BBID, Expected: want, Actual: got}
	}
	return nil
}

// assertHistory subset-matches the history summary: count plus the newest
// revision's flags.
func assertHistory(a Assertion, actx *AssertionContext) error {
	bbid, err := actx.ref(a.BBID)
	if err != nil {
		return err
	}
	history, err := actx.Engine.History(actx.Ctx, bbid)
	if err != nil {
		return &AssertionError{Type: a.Type, Subject: a.BBID, Expected: "history", Actual: err.Error()}
	}
	return matchSummary(a, summarizeHistory(history), actx)
}

func assertTableCount(a Assertion, actx *AssertionContext) error {
	n, err := actx.Store.CountRows(actx.Ctx, a.Table)
	if err != nil {
		return err
	}
	if n != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Subject:  a.Table,
			Expected: fmt.Sprintf("%d rows", a.Count),
			Actual:   fmt.Sprintf("%d rows", n),
		}
	}
	return nil
}

func summarizeHistory(history []model.RevisionSummary) value.Object {
	s := value.Object{"count": value.Int(len(history))}
	if len(history) == 0 {
		return s
	}
	newest := history[0]
	s["revision"] = value.Int(newest.ID)
	s["merge"] = value.Bool(newest.IsMerge)
	s["deleted"] = value.Bool(newest.Deleted)
	s["parents"] = value.Int(len(newest.ParentIDs))
	return s
}

// matchSummary compares each expected field with the summary. Expected
// strings may be "$key" references.
func matchSummary(a Assertion, actual value.Object, actx *AssertionContext) error {
	expect, err := value.FromAny(a.Expect)
	if err != nil {
		return fmt.Errorf("%s %s: %w", a.Type, a.BBID, err)
	}
	fields := expect.(value.Object)
	for _, field := range fields.SortedKeys() {
		want := fields[field]
		if s, ok := want.(value.String); ok {
			ref, err := actx.ref(string(s))
			if err != nil {
				return err
			}
			want = value.String(ref)
		}

		got, ok := actual[field]
		if !ok {
			return &AssertionError{
				Type:     a.Type,
				Subject:  a.BBID,
				Expected: fmt.Sprintf("%s = %s", field, value.Key(want)),
				Actual:   fmt.Sprintf("%s not present", field),
			}
		}
		if value.Key(got) != value.Key(want) {
			return &AssertionError{
				Type:     a.Type,
				Subject:  a.BBID,
				Expected: fmt.Sprintf("%s = %s", field, value.Key(want)),
				Actual:   fmt.Sprintf("%s = %s", field, value.Key(got)),
			}
		}
	}
	return nil
}
