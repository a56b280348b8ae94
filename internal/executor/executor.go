// Package executor applies an oracle-produced fill plan to a live page,
// field by field, with independent fault isolation: one field's failure
// never aborts the rest. A randomized delay between fields keeps the typing
// cadence from being bot-recognizably uniform.
package executor

import (
	"math/rand"
	"strings"
	"time"

	"github.com/kstephens0331/carsub/internal/logging"
	"github.com/kstephens0331/carsub/internal/types"
)

const (
	minFieldDelay = 100 * time.Millisecond
	maxFieldDelay = 300 * time.Millisecond
)

// Executor drives one page through a fill plan. It exposes no mid-fill
// cancellation point: aborting between fields would leave a half-submitted
// form, so cancellation is honored only between directories.
type Executor struct {
	driver types.PageDriver
	sleep  func(time.Duration)
	rng    *rand.Rand
}

// New creates an executor bound to a page driver.
func New(driver types.PageDriver) *Executor {
	return &Executor{
		driver: driver,
		sleep:  time.Sleep,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetSleep overrides the inter-field delay. Test hook.
func (e *Executor) SetSleep(fn func(time.Duration)) { e.sleep = fn }

func (e *Executor) fieldDelay() {
	span := int(maxFieldDelay - minFieldDelay)
	e.sleep(minFieldDelay + time.Duration(e.rng.Intn(span)))
}

// Apply executes every fill instruction, recording a per-field outcome.
func (e *Executor) Apply(plan *types.FillPlan) types.FillResult {
	timer := logging.StartTimer(logging.CategoryExecutor, "Apply")
	defer timer.Stop()

	var result types.FillResult
	for i, fill := range plan.Fills {
		if i > 0 {
			e.fieldDelay()
		}
		outcome := e.applyOne(fill)
		result.Details = append(result.Details, outcome)
		switch {
		case outcome.Skipped:
			result.Skipped++
		case outcome.OK:
			result.Filled++
		default:
			result.Failed++
			logging.Executor("field %s (%s) failed: %s", fill.Selector, fill.FieldName, outcome.Error)
		}
	}
	logging.Executor("fill pass: %d filled, %d failed, %d skipped",
		result.Filled, result.Failed, result.Skipped)
	return result
}

func (e *Executor) applyOne(fill types.FillInstruction) types.FieldOutcome {
	outcome := types.FieldOutcome{
		Selector:  fill.Selector,
		FieldName: fill.FieldName,
		Action:    string(fill.Action),
	}
	if fill.Selector == "" {
		outcome.Skipped = true
		outcome.Error = "empty selector"
		return outcome
	}

	var err error
	switch fill.Action {
	case types.ActionType:
		err = e.typeValue(fill.Selector, fill.Value)
	case types.ActionSelect:
		err = e.selectValue(fill.Selector, fill.Value)
	case types.ActionCheck:
		err = e.setChecked(fill.Selector, true)
	case types.ActionUncheck:
		err = e.setChecked(fill.Selector, false)
	case types.ActionClick:
		err = e.driver.Click(fill.Selector)
	default:
		outcome.Skipped = true
		outcome.Error = "unknown action " + string(fill.Action)
		return outcome
	}

	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.OK = true
	return outcome
}

// typeValue types into the field the keyboard way; pages vary in which
// notifications they listen to, so the driver dispatches input, change, and
// blur. When synthetic keystrokes are rejected, direct value assignment plus
// input/change is the fallback.
func (e *Executor) typeValue(selector, value string) error {
	if err := e.driver.Type(selector, value); err != nil {
		logging.ExecutorDebug("type failed for %s, falling back to value set: %v", selector, err)
		return e.driver.SetValue(selector, value)
	}
	return nil
}

func (e *Executor) selectValue(selector, value string) error {
	opts, err := e.driver.Options(selector)
	if err != nil {
		return err
	}
	match := MatchOption(value, opts)
	if match == nil {
		return &OptionNotFoundError{Selector: selector, Value: value}
	}
	return e.driver.SelectByValue(selector, match.Value)
}

// setChecked is idempotent: it clicks only when the current state differs
// from the target.
func (e *Executor) setChecked(selector string, want bool) error {
	current, err := e.driver.IsChecked(selector)
	if err != nil {
		return err
	}
	if current == want {
		return nil
	}
	return e.driver.Click(selector)
}

// Submit clicks the post-fill target, falling back to a visible-text scan
// when the selector is stale.
func (e *Executor) Submit(target *types.ClickTarget) error {
	if target == nil {
		return nil
	}
	if target.Selector != "" {
		if err := e.driver.Click(target.Selector); err == nil {
			return nil
		} else if target.Description == "" {
			return err
		}
		logging.ExecutorDebug("submit selector %s stale, matching by text %q",
			target.Selector, target.Description)
	}
	return e.driver.ClickByText(target.Description)
}

// OptionNotFoundError reports a select value no cascade stage could match.
type OptionNotFoundError struct {
	Selector string
	Value    string
}

func (e *OptionNotFoundError) Error() string {
	return "no option matching " + e.Value + " in " + e.Selector
}

// MatchOption resolves a business value ("Texas") against wildly varying
// option encodings ("TX", "Texas", "TX - Texas") via an ordered cascade:
// exact value, exact visible text, value-contains (either direction),
// text-contains (either direction), then first-word prefix. First match
// wins; all comparisons are case-insensitive.
func MatchOption(target string, opts []types.Option) *types.Option {
	want := strings.ToLower(strings.TrimSpace(target))
	if want == "" {
		return nil
	}

	stages := []func(value, text string) bool{
		func(value, _ string) bool { return value == want },
		func(_, text string) bool { return text == want },
		func(value, _ string) bool {
			return value != "" && (strings.Contains(value, want) || strings.Contains(want, value))
		},
		func(_, text string) bool {
			return text != "" && (strings.Contains(text, want) || strings.Contains(want, text))
		},
		func(value, text string) bool {
			first, _, _ := strings.Cut(want, " ")
			return strings.HasPrefix(text, first) || strings.HasPrefix(value, first)
		},
	}

	for _, match := range stages {
		for i := range opts {
			value := strings.ToLower(strings.TrimSpace(opts[i].Value))
			text := strings.ToLower(strings.TrimSpace(opts[i].Text))
			if match(value, text) {
				return &opts[i]
			}
		}
	}
	return nil
}
