package oracle

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kstephens0331/carsub/internal/types"
)

// fakeLLM implements types.LLMClient via a canned response or error.
type fakeLLM struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return f.CompleteWithSystem(ctx, "", prompt)
}

func (f *fakeLLM) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.prompts = append(f.prompts, userPrompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestAnalyzeAndPlan(t *testing.T) {
	llm := &fakeLLM{response: `{
		"assessment": {"page_type": "listing_form", "confidence": 0.9},
		"fills": [
			{"selector": "#name", "action": "type", "value": "A1 Auto Repair", "field_name": "business_name"},
			{"selector": "#state", "action": "select", "value": "Texas"}
		],
		"click_after_fill": {"selector": "#submit", "description": "Submit Listing"},
		"expect_next": "confirmation"
	}`}
	c := New(llm)

	plan, err := c.AnalyzeAndPlan(context.Background(), &types.PageSnapshot{URL: "https://dir.example"}, types.BusinessProfile{Name: "A1 Auto Repair"})
	if err != nil {
		t.Fatalf("AnalyzeAndPlan() error = %v", err)
	}
	if len(plan.Fills) != 2 {
		t.Fatalf("len(Fills) = %d, want 2", len(plan.Fills))
	}
	if plan.Fills[0].Action != types.ActionType || plan.Fills[1].Action != types.ActionSelect {
		t.Fatalf("fill actions = %q, %q", plan.Fills[0].Action, plan.Fills[1].Action)
	}
	if plan.ClickAfterFill == nil || plan.ClickAfterFill.Selector != "#submit" {
		t.Fatalf("ClickAfterFill = %+v, want #submit", plan.ClickAfterFill)
	}
}

func TestAnalyzeAndPlan_FailSoftOnLLMError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("quota exhausted")}
	c := New(llm)

	plan, err := c.AnalyzeAndPlan(context.Background(), &types.PageSnapshot{}, types.BusinessProfile{})
	if err == nil {
		t.Fatal("AnalyzeAndPlan() = nil error, want propagated error for logging")
	}
	if plan == nil {
		t.Fatal("plan = nil, want a usable fail-soft plan")
	}
	if !plan.Assessment.NeedsHuman || plan.Assessment.PageType != "error" {
		t.Fatalf("assessment = %+v, want needs_human error page", plan.Assessment)
	}
}

func TestAnalyzeAndPlan_FailSoftOnGarbageResponse(t *testing.T) {
	llm := &fakeLLM{response: "I'm sorry, I can't help with that."}
	c := New(llm)

	plan, err := c.AnalyzeAndPlan(context.Background(), &types.PageSnapshot{}, types.BusinessProfile{})
	if err == nil {
		t.Fatal("AnalyzeAndPlan() = nil error, want decode error")
	}
	if plan == nil || !plan.Assessment.NeedsHuman {
		t.Fatalf("plan = %+v, want fail-soft needs_human", plan)
	}
}

func TestAnalyzeAndPlan_DropsEmptyClickTarget(t *testing.T) {
	llm := &fakeLLM{response: `{
		"assessment": {"page_type": "listing_form"},
		"fills": [{"selector": "#name", "action": "type", "value": "x"}],
		"click_after_fill": {"selector": "", "description": ""}
	}`}
	c := New(llm)

	plan, err := c.AnalyzeAndPlan(context.Background(), &types.PageSnapshot{}, types.BusinessProfile{})
	if err != nil {
		t.Fatalf("AnalyzeAndPlan() error = %v", err)
	}
	if plan.ClickAfterFill != nil {
		t.Fatalf("ClickAfterFill = %+v, want nil for empty target", plan.ClickAfterFill)
	}
}

func TestAssessResult_NormalizesUnknownStatus(t *testing.T) {
	llm := &fakeLLM{response: `{"status": "probably-fine", "message": "looks ok"}`}
	c := New(llm)

	got, err := c.AssessResult(context.Background(), &types.PageSnapshot{})
	if err != nil {
		t.Fatalf("AssessResult() error = %v", err)
	}
	if got.Status != types.ResultUnknown {
		t.Fatalf("Status = %q, want unknown", got.Status)
	}
	if got.Message != "looks ok" {
		t.Fatalf("Message = %q, want preserved", got.Message)
	}
}

func TestAssessResult_KeepsKnownStatus(t *testing.T) {
	llm := &fakeLLM{response: `{"status": "pending_verification", "message": "check your email"}`}
	c := New(llm)

	got, err := c.AssessResult(context.Background(), &types.PageSnapshot{})
	if err != nil {
		t.Fatalf("AssessResult() error = %v", err)
	}
	if got.Status != types.ResultPending {
		t.Fatalf("Status = %q, want pending_verification", got.Status)
	}
}

func TestAssessResult_LLMErrorPropagates(t *testing.T) {
	llm := &fakeLLM{err: errors.New("timeout")}
	c := New(llm)

	if _, err := c.AssessResult(context.Background(), &types.PageSnapshot{}); err == nil {
		t.Fatal("AssessResult() = nil error, want error")
	}
}

func TestAssessRelevance(t *testing.T) {
	llm := &fakeLLM{response: `{"relevant": true, "score": 0.85, "reason": "general local directory", "industry_match": "automotive"}`}
	c := New(llm)

	got, err := c.AssessRelevance(context.Background(),
		types.Directory{Name: "CityList", URL: "https://citylist.example", DomainRating: 40},
		&types.PageSnapshot{Title: "CityList - local businesses", PageText: "Add your business"},
		types.BusinessProfile{Name: "A1 Auto Repair"},
		[]string{"Auto Repair", "Plumbing"})
	if err != nil {
		t.Fatalf("AssessRelevance() error = %v", err)
	}
	if !got.Relevant || got.Score != 0.85 {
		t.Fatalf("answer = %+v, want relevant 0.85", got)
	}
	// The prompt must carry the category options for the semantic check.
	if !strings.Contains(llm.prompts[0], "Auto Repair") {
		t.Fatal("prompt does not include category options")
	}
}

func TestDecodeJSON(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"plain", `{"status": "success"}`, false},
		{"fenced", "```json\n{\"status\": \"success\"}\n```", false},
		{"bare fence", "```\n{\"status\": \"success\"}\n```", false},
		{"prose wrapped", `Here is the result: {"status": "success"} Hope that helps!`, false},
		{"no object", "no json here", true},
		{"empty", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out types.ResultAssessment
			err := decodeJSON(tc.raw, &out)
			if (err != nil) != tc.wantErr {
				t.Fatalf("decodeJSON(%q) error = %v, wantErr %v", tc.raw, err, tc.wantErr)
			}
			if !tc.wantErr && out.Status != types.ResultSuccess {
				t.Fatalf("Status = %q, want success", out.Status)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Fatalf("truncate short = %q", got)
	}
	if got := truncate("hello world", 5); got != "hello" {
		t.Fatalf("truncate long = %q", got)
	}
}

func TestCompactSnapshot_NilSafe(t *testing.T) {
	if got := compactSnapshot(nil); got == nil {
		t.Fatal("compactSnapshot(nil) = nil, want empty snapshot")
	}
	long := strings.Repeat("a", 7000)
	got := compactSnapshot(&types.PageSnapshot{PageText: long})
	if len(got.PageText) != 6000 {
		t.Fatalf("PageText len = %d, want 6000", len(got.PageText))
	}
}
