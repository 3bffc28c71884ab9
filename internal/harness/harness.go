package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/revision"
	"github.com/roach88/catalog/internal/store"
	"github.com/roach88/catalog/internal/testutil"
	"github.com/roach88/catalog/internal/value"
)

// defaultEditor is the editor a step runs as when it names none.
const defaultEditor = 1

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and bbid allocator.
type Harness struct {
	store    *store.Store
	engine   *revision.Engine
	logger   *slog.Logger
	bindings map[string]string
}

// Option configures how Run builds its engine.
type Option func(*options)

type options struct {
	logger *slog.Logger
	engine []revision.Option
}

// WithLogger routes engine logs to l. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEngineOptions passes extra options to the engine, e.g. hooks.
func WithEngineOptions(opts ...revision.Option) Option {
	return func(o *options) { o.engine = append(o.engine, opts...) }
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
// 1. Create fresh in-memory database and engine
// 2. Execute steps in order, binding submission keys to bbids
// 3. Stop at the first step whose outcome is not the expected one
// 4. Evaluate assertions and capture the final entity summaries
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := &options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(o)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	engineOpts := append([]revision.Option{
		revision.WithLogger(o.logger),
		revision.WithAllocator(testutil.NewSequentialAllocator()),
		revision.WithClock(testutil.NewDeterministicClock()),
	}, o.engine...)

	h := &Harness{
		store:    st,
		engine:   revision.New(st, engineOpts...),
		logger:   o.logger,
		bindings: make(map[string]string),
	}

	ctx := context.Background()
	result := NewResult()

	for i := range scenario.Steps {
		if ok := h.executeStep(ctx, i, &scenario.Steps[i], result); !ok {
			break
		}
	}

	if result.Pass {
		actx := &AssertionContext{Ctx: ctx, Store: st, Engine: h.engine, Bindings: h.bindings}
		for _, errMsg := range EvaluateAssertions(scenario.Assertions, actx) {
			result.AddError(errMsg)
		}
	}

	if err := h.captureEntities(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// executeStep runs one step and records it in the trace. It reports whether
// execution should continue.
func (h *Harness) executeStep(ctx context.Context, index int, step *Step, result *Result) bool {
	event := TraceEvent{Step: index, Op: step.Op()}

	h.logger.Debug("scenario step", "step", index, "op", event.Op)
	res, err := h.invoke(ctx, step)
	if err != nil {
		code, ok := revision.CodeOf(err)
		if !ok {
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", index, event.Op, err))
			return false
		}
		event.Error = string(code)
		result.AddTrace(event)
		return h.checkExpect(index, step.Expect, event, nil, err, result)
	}

	event.Revision = res.RevisionID
	event.Touched = res.Touched
	if step.Submit != nil {
		event.Keys = res.Keys
		maps.Copy(h.bindings, res.Keys)
	}
	result.AddTrace(event)
	return h.checkExpect(index, step.Expect, event, res, nil, result)
}

func (h *Harness) checkExpect(index int, expect *StepExpect, event TraceEvent, res *revision.Result, err error, result *Result) bool {
	prefix := fmt.Sprintf("steps[%d] %s", index, event.Op)

	want := ""
	if expect != nil {
		want = expect.Error
	}
	if event.Error != want {
		switch {
		case want == "":
			result.AddError(fmt.Sprintf("%s: unexpected error: %v", prefix, err))
		case event.Error == "":
			result.AddError(fmt.Sprintf("%s: expected error %s, got revision %d", prefix, want, event.Revision))
		default:
			result.AddError(fmt.Sprintf("%s: expected error %s, got %v", prefix, want, err))
		}
		return false
	}
	if res == nil || expect == nil {
		return true
	}

	ok := true
	if expect.Revision != 0 && expect.Revision != res.RevisionID {
		result.AddError(fmt.Sprintf("%s: expected revision %d, got %d", prefix, expect.Revision, res.RevisionID))
		ok = false
	}
	if len(expect.Touched) > 0 {
		touched, rerr := h.refs(expect.Touched)
		if rerr != nil {
			result.AddError(fmt.Sprintf("%s: %v", prefix, rerr))
			return false
		}
		if !slices.Equal(touched, res.Touched) {
			result.AddError(fmt.Sprintf("%s: expected touched %v, got %v", prefix, touched, res.Touched))
			ok = false
		}
	}
	return ok
}

func (h *Harness) invoke(ctx context.Context, step *Step) (*revision.Result, error) {
	switch {
	case step.Submit != nil:
		sub, err := h.submission(step.Submit)
		if err != nil {
			return nil, err
		}
		return h.engine.Submit(ctx, sub)

	case step.Merge != nil:
		target, err := h.ref(step.Merge.Target)
		if err != nil {
			return nil, err
		}
		sources, err := h.refs(step.Merge.Sources)
		if err != nil {
			return nil, err
		}
		return h.engine.Merge(ctx, revision.MergeRequest{
			EditorID: editor(step.Merge.Editor),
			Target:   target,
			Sources:  sources,
			Note:     step.Merge.Note,
		})

	case step.Delete != nil:
		bbid, err := h.ref(step.Delete.BBID)
		if err != nil {
			return nil, err
		}
		return h.engine.Delete(ctx, editor(step.Delete.Editor), bbid, step.Delete.Note)
	}
	return nil, fmt.Errorf("empty step")
}

// submission substitutes bound references into a copy of the step's entities.
func (h *Harness) submission(s *SubmitStep) (revision.Submission, error) {
	entities := make(map[string]revision.EntityInput, len(s.Entities))
	for key, in := range s.Entities {
		var err error
		if in.BBID, err = h.ref(in.BBID); err != nil {
			return revision.Submission{}, fmt.Errorf("%s: %w", key, err)
		}
		if in.Publishers, err = h.refs(in.Publishers); err != nil {
			return revision.Submission{}, fmt.Errorf("%s: %w", key, err)
		}
		if in.Relationships != nil {
			rels := make([]revision.RelationshipInput, len(in.Relationships))
			for i, r := range in.Relationships {
				if r.Source, err = h.ref(r.Source); err != nil {
					return revision.Submission{}, fmt.Errorf("%s: %w", key, err)
				}
				if r.Target, err = h.ref(r.Target); err != nil {
					return revision.Submission{}, fmt.Errorf("%s: %w", key, err)
				}
				rels[i] = r
			}
			in.Relationships = rels
		}
		if in.Attributes != nil {
			attrs := in.Attributes.Clone()
			for name, v := range attrs {
				s, ok := v.(value.String)
				if !ok {
					continue
				}
				ref, err := h.ref(string(s))
				if err != nil {
					return revision.Submission{}, fmt.Errorf("%s: attribute %s: %w", key, name, err)
				}
				attrs[name] = value.String(ref)
			}
			in.Attributes = attrs
		}
		entities[key] = in
	}
	return revision.Submission{EditorID: editor(s.Editor), Note: s.Note, Entities: entities}, nil
}

// ref substitutes a "$key" reference; other strings pass through.
func (h *Harness) ref(s string) (string, error) {
	name, ok := strings.CutPrefix(s, "$")
	if !ok {
		return s, nil
	}
	bbid, ok := h.bindings[name]
	if !ok {
		return "", fmt.Errorf("unbound reference %s", s)
	}
	return bbid, nil
}

func (h *Harness) refs(in []string) ([]string, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		ref, err := h.ref(s)
		if err != nil {
			return nil, err
		}
		out[i] = ref
	}
	return out, nil
}

// captureEntities fetches every bound entity for the golden snapshot.
func (h *Harness) captureEntities(ctx context.Context, result *Result) error {
	for key, bbid := range h.bindings {
		v, err := h.engine.Fetch(ctx, bbid)
		if errors.Is(err, revision.ErrRedirectLoop) {
			continue
		}
		if err != nil {
			return fmt.Errorf("fetch %s: %w", key, err)
		}
		result.Entities[key] = v
	}
	return nil
}

func editor(id int64) int64 {
	if id == 0 {
		return defaultEditor
	}
	return id
}

// summarize projects a view onto the fields scenarios assert on and golden
// files record. List-valued parts are reduced to their sizes.
func summarize(v *model.EntityView) value.Object {
	s := value.Object{
		"bbid":          value.String(v.BBID),
		"type":          value.String(string(v.Type)),
		"revision":      value.Int(v.RevisionID),
		"deleted":       value.Bool(v.Deleted),
		"name":          value.String(v.Name()),
		"aliases":       value.Int(len(v.Aliases)),
		"identifiers":   value.Int(len(v.Identifiers)),
		"relationships": value.Int(len(v.Relationships)),
	}
	if v.DefaultAlias != nil {
		s["sort_name"] = value.String(v.DefaultAlias.SortName)
	}
	if v.Type.HasLanguages() {
		s["languages"] = value.Int(len(v.Languages))
	}
	if v.Type.HasPublishers() {
		s["publishers"] = value.Int(len(v.Publishers))
	}
	if v.Annotation != nil {
		s["annotation"] = value.String(v.Annotation.Content)
	}
	if v.Disambiguation != nil {
		s["disambiguation"] = value.String(v.Disambiguation.Comment)
	}
	if len(v.Attributes) > 0 {
		s["attributes"] = v.Attributes
	}
	return s
}
