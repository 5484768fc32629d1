package host

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/termfx/ecmacore/internal/hostrecord"
)

// Inspector reads a session's recorded evaluations back out of
// internal/hostrecord for display — the `cmd/ecmacore inspect` read path.
// Grounded on internal/core/pipeline.go's generateDiff, upgraded from its
// hand-rolled line-loop to go-difflib's unified-diff implementation (the
// teacher already depends on the library it ad-hoc reimplements here).
type Inspector struct {
	store *hostrecord.Store
}

// NewInspector wraps store.
func NewInspector(store *hostrecord.Store) *Inspector { return &Inspector{store: store} }

// RunSummary is one line of `cmd/ecmacore inspect`'s session listing.
type RunSummary struct {
	ID         string
	Kind       string
	Specifier  string
	Success    bool
	DurationMS int64
}

// Runs lists every recorded evaluation for sessionID, most recent first.
func (ins *Inspector) Runs(sessionID string) ([]RunSummary, error) {
	runs, err := ins.store.ScriptRuns(sessionID)
	if err != nil {
		return nil, fmt.Errorf("host: failed to list runs for session %q: %w", sessionID, err)
	}
	out := make([]RunSummary, len(runs))
	for i, r := range runs {
		out[i] = RunSummary{ID: r.ID, Kind: r.Kind, Specifier: r.Specifier, Success: r.Success, DurationMS: r.DurationMS}
	}
	return out, nil
}

// Diff renders a unified diff between two recorded ScriptRun sources
// (e.g. two runs of the same module specifier at different times),
// empty if they're identical.
func (ins *Inspector) Diff(sessionID, fromRunID, toRunID string) (string, error) {
	runs, err := ins.store.ScriptRuns(sessionID)
	if err != nil {
		return "", fmt.Errorf("host: failed to list runs for session %q: %w", sessionID, err)
	}
	var from, to string
	var foundFrom, foundTo bool
	for _, r := range runs {
		if r.ID == fromRunID {
			from, foundFrom = r.Source, true
		}
		if r.ID == toRunID {
			to, foundTo = r.Source, true
		}
	}
	if !foundFrom || !foundTo {
		return "", fmt.Errorf("host: run not found in session %q (from=%v to=%v)", sessionID, foundFrom, foundTo)
	}
	if from == to {
		return "", nil
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(from),
		B:        difflib.SplitLines(to),
		FromFile: fromRunID,
		ToFile:   toRunID,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("host: failed to render diff: %w", err)
	}
	return strings.TrimRight(text, "\n"), nil
}
