// Package types provides shared type definitions used across carsub packages.
// This package exists to break import cycles between the planner, classifier,
// executor, and session packages. Types here are foundational data structures
// with no complex dependencies.
package types

import (
	"strings"
	"time"
)

// =============================================================================
// DIRECTORY & CAMPAIGN TYPES
// =============================================================================

// DirectoryTier classifies a directory for fast-path relevance decisions.
type DirectoryTier string

const (
	TierNiche   DirectoryTier = "niche"   // Pre-vetted industry directories
	TierGeneral DirectoryTier = "general" // General business directories
	TierLocal   DirectoryTier = "local"   // Local/citation directories
)

// Directory is a single submission target.
type Directory struct {
	Name         string        `json:"name" yaml:"name"`
	URL          string        `json:"url" yaml:"url"`
	DomainRating int           `json:"dr" yaml:"dr"`
	Tier         DirectoryTier `json:"tier,omitempty" yaml:"tier,omitempty"`
}

// Host returns a lowercase host-ish form of the URL for matching.
func (d Directory) Host() string {
	u := strings.ToLower(d.URL)
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	if i := strings.IndexByte(u, '/'); i >= 0 {
		u = u[:i]
	}
	return u
}

// BusinessProfile holds the data submitted to each directory.
type BusinessProfile struct {
	Name        string   `json:"name" yaml:"name"`
	Website     string   `json:"website" yaml:"website"`
	Email       string   `json:"email" yaml:"email"`
	Phone       string   `json:"phone" yaml:"phone"`
	Address     string   `json:"address" yaml:"address"`
	City        string   `json:"city" yaml:"city"`
	State       string   `json:"state" yaml:"state"`
	Zip         string   `json:"zip" yaml:"zip"`
	Description string   `json:"description" yaml:"description"`
	Categories  []string `json:"categories" yaml:"categories"`
}

// =============================================================================
// LEDGER TYPES
// =============================================================================

// EntryStatus is the terminal outcome recorded for a submission attempt.
type EntryStatus string

const (
	StatusSubmitted           EntryStatus = "submitted"
	StatusPendingVerification EntryStatus = "pending_verification"
	StatusFailed              EntryStatus = "failed"
	StatusSkipped             EntryStatus = "skipped"
)

// IsTerminalSuccess reports whether the status counts toward rate limits and
// permanently excludes the URL from future batches.
func (s EntryStatus) IsTerminalSuccess() bool {
	return s == StatusSubmitted || s == StatusPendingVerification
}

// LedgerEntry is one append-only record of a submission attempt.
// Entries are never mutated after append.
type LedgerEntry struct {
	URL       string      `json:"url"`
	Status    EntryStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Notes     string      `json:"notes,omitempty"`
}

// LedgerStats are aggregate counters recomputed from all entries.
type LedgerStats struct {
	Submitted int `json:"submitted"`
	Pending   int `json:"pending"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Total returns the number of recorded attempts.
func (s LedgerStats) Total() int {
	return s.Submitted + s.Pending + s.Failed + s.Skipped
}

// =============================================================================
// PAGE SNAPSHOT TYPES
// =============================================================================

// FormField is one visible, fillable control extracted from a page.
type FormField struct {
	Selector    string   `json:"selector"`
	Tag         string   `json:"tag"`
	Type        string   `json:"type,omitempty"`
	Name        string   `json:"name,omitempty"`
	ID          string   `json:"id,omitempty"`
	Label       string   `json:"label,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Options     []Option `json:"options,omitempty"`
}

// Option is one choice in a select control.
type Option struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// FormInfo is one form on the page with its visible fields.
type FormInfo struct {
	Selector string      `json:"selector"`
	Action   string      `json:"action,omitempty"`
	Method   string      `json:"method,omitempty"`
	Kind     FormKind    `json:"kind,omitempty"`
	Fields   []FormField `json:"fields"`
}

// FormKind labels what a form appears to be for. Registration and listing
// signals are independent; a form can carry both.
type FormKind string

const (
	FormKindListing      FormKind = "listing"
	FormKindRegistration FormKind = "registration"
	FormKindBoth         FormKind = "registration+listing"
	FormKindUnknown      FormKind = "unknown"
)

// ButtonInfo is one visible interactive element usable as a submit target.
type ButtonInfo struct {
	Selector string `json:"selector"`
	Text     string `json:"text"`
	Type     string `json:"type,omitempty"`
}

// CaptchaType identifies a known CAPTCHA provider signature.
type CaptchaType string

const (
	CaptchaNone       CaptchaType = ""
	CaptchaRecaptcha  CaptchaType = "recaptcha"
	CaptchaHcaptcha   CaptchaType = "hcaptcha"
	CaptchaTurnstile  CaptchaType = "turnstile"
	CaptchaFuncaptcha CaptchaType = "funcaptcha"
	CaptchaGeneric    CaptchaType = "generic"
)

// PageSnapshot is a structured, serializable view of a loaded page at one
// point in time. It is the contract between extraction, classification, and
// the oracle.
type PageSnapshot struct {
	URL             string       `json:"url"`
	Title           string       `json:"title"`
	Forms           []FormInfo   `json:"forms"`
	Buttons         []ButtonInfo `json:"buttons"`
	CaptchaDetected bool         `json:"captcha_detected"`
	CaptchaType     CaptchaType  `json:"captcha_type,omitempty"`
	RequiresLogin   bool         `json:"requires_login"`
	Alerts          []string     `json:"alerts,omitempty"`
	StepIndicators  []string     `json:"step_indicators,omitempty"`
	PageText        string       `json:"page_text,omitempty"`
}

// CategoryOptions collects the option texts of every select field, used by
// the classifier's industry-match bonus and forwarded to the oracle.
func (s *PageSnapshot) CategoryOptions() []string {
	var out []string
	for _, form := range s.Forms {
		for _, field := range form.Fields {
			for _, opt := range field.Options {
				if t := strings.TrimSpace(opt.Text); t != "" {
					out = append(out, t)
				}
			}
		}
	}
	return out
}

// VisibleFieldCount returns the number of fillable fields across all forms.
func (s *PageSnapshot) VisibleFieldCount() int {
	n := 0
	for _, form := range s.Forms {
		n += len(form.Fields)
	}
	return n
}

// =============================================================================
// ORACLE CONTRACT TYPES
// =============================================================================

// FillAction is the kind of interaction an instruction requests.
type FillAction string

const (
	ActionType    FillAction = "type"
	ActionSelect  FillAction = "select"
	ActionCheck   FillAction = "check"
	ActionUncheck FillAction = "uncheck"
	ActionClick   FillAction = "click"
)

// FillInstruction is one field-level step of a fill plan.
type FillInstruction struct {
	Selector  string     `json:"selector"`
	Action    FillAction `json:"action"`
	Value     string     `json:"value,omitempty"`
	FieldName string     `json:"field_name,omitempty"`
}

// ClickTarget names the element to click after filling, usually submit.
type ClickTarget struct {
	Selector    string `json:"selector"`
	Description string `json:"description,omitempty"`
}

// PageAssessment is the oracle's judgment of what a page is.
type PageAssessment struct {
	PageType   string  `json:"page_type"`
	Confidence float64 `json:"confidence"`
	NeedsHuman bool    `json:"needs_human"`
	ShouldSkip bool    `json:"should_skip"`
	SkipReason string  `json:"skip_reason,omitempty"`
}

// FillPlan is the oracle's ordered set of fill instructions for one page.
type FillPlan struct {
	Assessment     PageAssessment    `json:"assessment"`
	Fills          []FillInstruction `json:"fills"`
	ClickAfterFill *ClickTarget      `json:"click_after_fill,omitempty"`
	ExpectNext     string            `json:"expect_next,omitempty"`
	Notes          string            `json:"notes,omitempty"`
}

// ResultStatus classifies the page state after a submit click.
type ResultStatus string

const (
	ResultSuccess        ResultStatus = "success"
	ResultPending        ResultStatus = "pending_verification"
	ResultError          ResultStatus = "error"
	ResultNeedsMoreSteps ResultStatus = "needs_more_steps"
	ResultUnknown        ResultStatus = "unknown"
)

// ResultAssessment is the oracle's judgment of a post-submit page.
type ResultAssessment struct {
	Status      ResultStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	HasErrors   bool         `json:"has_errors"`
	ErrorFields []string     `json:"error_fields,omitempty"`
	NextAction  string       `json:"next_action,omitempty"`
}

// RelevanceAnswer is the oracle's semantic-fit verdict for a directory.
type RelevanceAnswer struct {
	Relevant      bool    `json:"relevant"`
	Score         float64 `json:"score"`
	Reason        string  `json:"reason,omitempty"`
	IndustryMatch string  `json:"industry_match,omitempty"`
}

// =============================================================================
// CLASSIFIER TYPES
// =============================================================================

// VerdictMethod records which tier produced a relevance verdict.
type VerdictMethod string

const (
	MethodQuickCheck     VerdictMethod = "quick_check"
	MethodDeepCheck      VerdictMethod = "deep_check"
	MethodOracle         VerdictMethod = "oracle"
	MethodOracleFallback VerdictMethod = "oracle_fallback"
)

// RelevanceVerdict is the classifier's final accept/reject decision.
type RelevanceVerdict struct {
	Pass       bool          `json:"pass"`
	Confidence float64       `json:"confidence"`
	Reason     string        `json:"reason"`
	Method     VerdictMethod `json:"method"`
}

// =============================================================================
// EXECUTION RESULT TYPES
// =============================================================================

// FieldOutcome is the per-field result of applying one instruction.
type FieldOutcome struct {
	Selector  string `json:"selector"`
	FieldName string `json:"field_name,omitempty"`
	Action    string `json:"action"`
	OK        bool   `json:"ok"`
	Skipped   bool   `json:"skipped,omitempty"`
	Error     string `json:"error,omitempty"`
}

// FillResult summarizes one pass of the executor over a fill plan.
type FillResult struct {
	Filled  int            `json:"filled"`
	Failed  int            `json:"failed"`
	Skipped int            `json:"skipped"`
	Details []FieldOutcome `json:"details"`
}

// RunSummary is the final tally for one orchestrator run.
type RunSummary struct {
	Submitted int `json:"submitted"`
	Pending   int `json:"pending"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Total     int `json:"total"`
}
