package types

import (
	"context"
	"time"
)

// LLMClient defines the narrow interface for raw LLM completions. The
// concrete client (genai-backed) is injected; orchestration code never
// references a provider SDK directly.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Oracle is the semantic collaborator: it maps page snapshots to fill plans
// and judges submission outcomes. Implementations must fail soft on
// AnalyzeAndPlan (return a needs-human assessment, never an unusable nil).
type Oracle interface {
	// AnalyzeAndPlan maps a snapshot plus the business profile to a fill
	// plan. On provider error it returns a plan with PageType "error" and
	// NeedsHuman set, plus the error for logging.
	AnalyzeAndPlan(ctx context.Context, snapshot *PageSnapshot, profile BusinessProfile) (*FillPlan, error)

	// AssessResult judges the page state after a submit click.
	AssessResult(ctx context.Context, snapshot *PageSnapshot) (*ResultAssessment, error)

	// AssessRelevance is the tier-3 semantic fit check.
	AssessRelevance(ctx context.Context, dir Directory, snapshot *PageSnapshot, profile BusinessProfile, categoryOptions []string) (*RelevanceAnswer, error)
}

// PageDriver abstracts the browser page the executor and extractor operate
// on. The rod-backed implementation lives in internal/browser; tests use
// func-field fakes.
type PageDriver interface {
	// URL returns the page's current location.
	URL() string
	// Eval runs a JavaScript expression in the page and unmarshals the
	// result into out.
	Eval(js string, out interface{}) error
	// Exists reports whether the selector matches a visible element.
	Exists(selector string) (bool, error)
	// Click dispatches a click on the first element matching selector.
	Click(selector string) error
	// ClickByText clicks the interactive element whose visible text best
	// matches caption. Used as the fallback when a selector is gone.
	ClickByText(caption string) error
	// Type focuses the element, selects all, clears, types value, then
	// dispatches input/change/blur.
	Type(selector, value string) error
	// SetValue assigns the value directly and dispatches input/change.
	// Fallback for controls that reject synthetic keystrokes.
	SetValue(selector, value string) error
	// IsChecked reports a checkbox/radio current state.
	IsChecked(selector string) (bool, error)
	// SelectByValue picks the option with the given value attribute.
	SelectByValue(selector, value string) error
	// Options lists a select control's options.
	Options(selector string) ([]Option, error)
}

// LedgerStore is the durable append-only attempt record. The sqlite-backed
// implementation lives in internal/ledger.
type LedgerStore interface {
	Append(entry LedgerEntry) error
	IsDone(url string) (bool, error)
	CompletedSet() (map[string]bool, error)
	Stats() (LedgerStats, error)
	// Entries returns all entries in append order.
	Entries() ([]LedgerEntry, error)
	// EntriesBetween returns entries with start <= Timestamp < end.
	EntriesBetween(start, end time.Time) ([]LedgerEntry, error)
}
