package executor

import (
	"errors"
	"testing"
	"time"

	"github.com/kstephens0331/carsub/internal/types"
)

// fakeDriver implements types.PageDriver via func fields; unset methods
// succeed and record nothing.
type fakeDriver struct {
	typeFn      func(selector, value string) error
	setValueFn  func(selector, value string) error
	clickFn     func(selector string) error
	clickTextFn func(caption string) error
	isCheckedFn func(selector string) (bool, error)
	optionsFn   func(selector string) ([]types.Option, error)
	selectFn    func(selector, value string) error

	clicks     []string
	typed      map[string]string
	setValues  map[string]string
	selected   map[string]string
	textClicks []string
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		typed:     make(map[string]string),
		setValues: make(map[string]string),
		selected:  make(map[string]string),
	}
}

func (f *fakeDriver) URL() string { return "https://fake.example" }

func (f *fakeDriver) Eval(js string, out interface{}) error { return nil }

func (f *fakeDriver) Exists(selector string) (bool, error) { return true, nil }

func (f *fakeDriver) Click(selector string) error {
	if f.clickFn != nil {
		return f.clickFn(selector)
	}
	f.clicks = append(f.clicks, selector)
	return nil
}

func (f *fakeDriver) ClickByText(caption string) error {
	if f.clickTextFn != nil {
		return f.clickTextFn(caption)
	}
	f.textClicks = append(f.textClicks, caption)
	return nil
}

func (f *fakeDriver) Type(selector, value string) error {
	if f.typeFn != nil {
		return f.typeFn(selector, value)
	}
	f.typed[selector] = value
	return nil
}

func (f *fakeDriver) SetValue(selector, value string) error {
	if f.setValueFn != nil {
		return f.setValueFn(selector, value)
	}
	f.setValues[selector] = value
	return nil
}

func (f *fakeDriver) IsChecked(selector string) (bool, error) {
	if f.isCheckedFn != nil {
		return f.isCheckedFn(selector)
	}
	return false, nil
}

func (f *fakeDriver) SelectByValue(selector, value string) error {
	if f.selectFn != nil {
		return f.selectFn(selector, value)
	}
	f.selected[selector] = value
	return nil
}

func (f *fakeDriver) Options(selector string) ([]types.Option, error) {
	if f.optionsFn != nil {
		return f.optionsFn(selector)
	}
	return nil, nil
}

func newTestExecutor(driver *fakeDriver) *Executor {
	e := New(driver)
	e.SetSleep(func(time.Duration) {})
	return e
}

func TestApply_FaultIsolation(t *testing.T) {
	driver := newFakeDriver()
	driver.typeFn = func(selector, value string) error {
		if selector == "#broken" {
			return errors.New("element detached")
		}
		driver.typed[selector] = value
		return nil
	}
	driver.setValueFn = func(selector, value string) error {
		return errors.New("also broken")
	}
	e := newTestExecutor(driver)

	result := e.Apply(&types.FillPlan{Fills: []types.FillInstruction{
		{Selector: "#name", Action: types.ActionType, Value: "A1 Auto"},
		{Selector: "#broken", Action: types.ActionType, Value: "x"},
		{Selector: "#phone", Action: types.ActionType, Value: "555-0100"},
	}})

	if result.Filled != 2 || result.Failed != 1 {
		t.Fatalf("result = %+v, want 2 filled, 1 failed", result)
	}
	if len(result.Details) != 3 {
		t.Fatalf("len(Details) = %d, want 3", len(result.Details))
	}
	if driver.typed["#phone"] != "555-0100" {
		t.Fatal("field after the failure was not filled")
	}
}

func TestApply_EmptySelectorSkipped(t *testing.T) {
	e := newTestExecutor(newFakeDriver())

	result := e.Apply(&types.FillPlan{Fills: []types.FillInstruction{
		{Selector: "", Action: types.ActionType, Value: "x"},
	}})
	if result.Skipped != 1 || result.Filled != 0 {
		t.Fatalf("result = %+v, want 1 skipped", result)
	}
}

func TestApply_UnknownActionSkipped(t *testing.T) {
	e := newTestExecutor(newFakeDriver())

	result := e.Apply(&types.FillPlan{Fills: []types.FillInstruction{
		{Selector: "#x", Action: "hover"},
	}})
	if result.Skipped != 1 {
		t.Fatalf("result = %+v, want 1 skipped", result)
	}
}

func TestTypeValue_FallsBackToSetValue(t *testing.T) {
	driver := newFakeDriver()
	driver.typeFn = func(selector, value string) error {
		return errors.New("synthetic keystrokes rejected")
	}
	e := newTestExecutor(driver)

	result := e.Apply(&types.FillPlan{Fills: []types.FillInstruction{
		{Selector: "#desc", Action: types.ActionType, Value: "Family-owned shop"},
	}})
	if result.Filled != 1 {
		t.Fatalf("result = %+v, want filled via fallback", result)
	}
	if driver.setValues["#desc"] != "Family-owned shop" {
		t.Fatalf("SetValue not used, setValues = %v", driver.setValues)
	}
}

func TestSelectValue_MatchesAndSelects(t *testing.T) {
	driver := newFakeDriver()
	driver.optionsFn = func(string) ([]types.Option, error) {
		return []types.Option{{Value: "AL", Text: "Alabama"}, {Value: "TX", Text: "Texas"}}, nil
	}
	e := newTestExecutor(driver)

	result := e.Apply(&types.FillPlan{Fills: []types.FillInstruction{
		{Selector: "#state", Action: types.ActionSelect, Value: "Texas"},
	}})
	if result.Filled != 1 {
		t.Fatalf("result = %+v, want 1 filled", result)
	}
	if driver.selected["#state"] != "TX" {
		t.Fatalf("selected = %v, want TX by visible text match", driver.selected)
	}
}

func TestSelectValue_NoMatch(t *testing.T) {
	driver := newFakeDriver()
	driver.optionsFn = func(string) ([]types.Option, error) {
		return []types.Option{{Value: "1", Text: "Plumbing"}}, nil
	}
	e := newTestExecutor(driver)

	result := e.Apply(&types.FillPlan{Fills: []types.FillInstruction{
		{Selector: "#cat", Action: types.ActionSelect, Value: "Scuba Diving"},
	}})
	if result.Failed != 1 {
		t.Fatalf("result = %+v, want 1 failed", result)
	}
}

func TestSetChecked_Idempotent(t *testing.T) {
	driver := newFakeDriver()
	driver.isCheckedFn = func(string) (bool, error) { return true, nil }
	e := newTestExecutor(driver)

	result := e.Apply(&types.FillPlan{Fills: []types.FillInstruction{
		{Selector: "#terms", Action: types.ActionCheck},
	}})
	if result.Filled != 1 {
		t.Fatalf("result = %+v, want ok without clicking", result)
	}
	if len(driver.clicks) != 0 {
		t.Fatalf("clicks = %v, want none for already-checked box", driver.clicks)
	}
}

func TestSetChecked_TogglesWhenNeeded(t *testing.T) {
	driver := newFakeDriver()
	driver.isCheckedFn = func(string) (bool, error) { return true, nil }
	e := newTestExecutor(driver)

	result := e.Apply(&types.FillPlan{Fills: []types.FillInstruction{
		{Selector: "#newsletter", Action: types.ActionUncheck},
	}})
	if result.Filled != 1 {
		t.Fatalf("result = %+v, want 1 filled", result)
	}
	if len(driver.clicks) != 1 || driver.clicks[0] != "#newsletter" {
		t.Fatalf("clicks = %v, want one toggle click", driver.clicks)
	}
}

func TestSubmit_SelectorThenTextFallback(t *testing.T) {
	driver := newFakeDriver()
	driver.clickFn = func(string) error { return errors.New("selector stale") }
	e := newTestExecutor(driver)

	err := e.Submit(&types.ClickTarget{Selector: "#go", Description: "Submit Listing"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(driver.textClicks) != 1 || driver.textClicks[0] != "Submit Listing" {
		t.Fatalf("textClicks = %v, want fallback by caption", driver.textClicks)
	}
}

func TestSubmit_NoFallbackWithoutDescription(t *testing.T) {
	driver := newFakeDriver()
	driver.clickFn = func(string) error { return errors.New("selector stale") }
	e := newTestExecutor(driver)

	if err := e.Submit(&types.ClickTarget{Selector: "#go"}); err == nil {
		t.Fatal("Submit() = nil error, want click error surfaced")
	}
}

func TestSubmit_NilTarget(t *testing.T) {
	e := newTestExecutor(newFakeDriver())
	if err := e.Submit(nil); err != nil {
		t.Fatalf("Submit(nil) error = %v, want nil", err)
	}
}

func TestMatchOption_Cascade(t *testing.T) {
	states := []types.Option{
		{Value: "AL", Text: "Alabama"},
		{Value: "TX", Text: "Texas"},
		{Value: "TN", Text: "Tennessee"},
	}
	decorated := []types.Option{
		{Value: "48", Text: "TX - Texas"},
		{Value: "47", Text: "TN - Tennessee"},
	}
	// No two-letter codes here: short values match aggressively at the
	// value-contains stage and would mask the prefix stage.
	longValues := []types.Option{
		{Value: "texas-state", Text: "Texas"},
		{Value: "tennessee-state", Text: "Tennessee"},
	}

	cases := []struct {
		name   string
		target string
		opts   []types.Option
		want   string // matched Value, "" for no match
	}{
		{"exact value", "tx", states, "TX"},
		{"exact text", "Texas", states, "TX"},
		{"value inside target", "TX (Texas)", states, "TX"},
		{"target inside text", "Texas", decorated, "48"},
		{"first word prefix", "Tenne Valley", longValues, "tennessee-state"},
		{"case insensitive", "tExAs", states, "TX"},
		{"no match", "Ontario", states, ""},
		{"empty target", "", states, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MatchOption(tc.target, tc.opts)
			if tc.want == "" {
				if got != nil {
					t.Fatalf("MatchOption(%q) = %+v, want nil", tc.target, got)
				}
				return
			}
			if got == nil || got.Value != tc.want {
				t.Fatalf("MatchOption(%q) = %+v, want value %q", tc.target, got, tc.want)
			}
		})
	}
}

func TestMatchOption_ExactBeatsContains(t *testing.T) {
	opts := []types.Option{
		{Value: "100", Text: "Auto Repair and Towing"},
		{Value: "101", Text: "Auto Repair"},
	}
	got := MatchOption("Auto Repair", opts)
	if got == nil || got.Value != "101" {
		t.Fatalf("MatchOption = %+v, want exact text match 101", got)
	}
}
