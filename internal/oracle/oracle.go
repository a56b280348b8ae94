// Package oracle implements the LLM collaborator behind the types.Oracle
// interface: mapping page snapshots to fill plans, judging post-submit
// outcomes, and the tier-3 relevance check. The raw LLM transport is a
// narrow types.LLMClient so orchestration stays testable without a live
// service.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kstephens0331/carsub/internal/logging"
	"github.com/kstephens0331/carsub/internal/types"
)

// Client implements types.Oracle over an injected LLM client.
type Client struct {
	llm types.LLMClient
}

// New creates an oracle over the given LLM client.
func New(llm types.LLMClient) *Client {
	return &Client{llm: llm}
}

const planSystemPrompt = `You are a form-filling planner for business directory submissions.
You receive a structured snapshot of a web page and a business profile.
Respond with ONLY a JSON object, no prose, matching this schema:
{
  "assessment": {"page_type": "listing_form|registration|search|error|other",
                 "confidence": 0.0, "needs_human": false,
                 "should_skip": false, "skip_reason": ""},
  "fills": [{"selector": "", "action": "type|select|check|uncheck|click",
             "value": "", "field_name": ""}],
  "click_after_fill": {"selector": "", "description": ""},
  "expect_next": "confirmation|more_steps|unknown",
  "notes": ""
}
Use only selectors present in the snapshot. Map profile data to fields by
label, name, and placeholder. Set should_skip when the page cannot accept a
listing submission. Omit click_after_fill (null) when nothing should be clicked.`

const resultSystemPrompt = `You judge the outcome of a directory form submission from a page snapshot
taken after the submit click. Respond with ONLY a JSON object:
{
  "status": "success|pending_verification|error|needs_more_steps|unknown",
  "message": "",
  "has_errors": false,
  "error_fields": [],
  "next_action": ""
}
"pending_verification" means the submission was accepted but awaits email or
moderator confirmation. "needs_more_steps" means another form page follows.`

const relevanceSystemPrompt = `You judge whether a web directory is a worthwhile submission target for a
local business. Respond with ONLY a JSON object:
{"relevant": true, "score": 0.0, "reason": "", "industry_match": ""}`

// AnalyzeAndPlan maps a snapshot to a fill plan. Fails soft: on any error it
// returns a usable plan with page type "error" and needs_human set, plus the
// error for logging.
func (c *Client) AnalyzeAndPlan(ctx context.Context, snapshot *types.PageSnapshot, profile types.BusinessProfile) (*types.FillPlan, error) {
	payload := map[string]interface{}{
		"snapshot": compactSnapshot(snapshot),
		"profile":  profile,
	}
	prompt, err := json.Marshal(payload)
	if err != nil {
		return failSoftPlan(err), err
	}

	raw, err := c.llm.CompleteWithSystem(ctx, planSystemPrompt, string(prompt))
	if err != nil {
		logging.Oracle("analyze call failed: %v", err)
		return failSoftPlan(err), err
	}

	var plan types.FillPlan
	if err := decodeJSON(raw, &plan); err != nil {
		logging.Oracle("analyze response unparseable: %v", err)
		return failSoftPlan(err), err
	}
	if plan.ClickAfterFill != nil && plan.ClickAfterFill.Selector == "" && plan.ClickAfterFill.Description == "" {
		plan.ClickAfterFill = nil
	}
	logging.OracleDebug("plan: type=%s fills=%d skip=%v human=%v",
		plan.Assessment.PageType, len(plan.Fills), plan.Assessment.ShouldSkip, plan.Assessment.NeedsHuman)
	return &plan, nil
}

func failSoftPlan(err error) *types.FillPlan {
	return &types.FillPlan{
		Assessment: types.PageAssessment{
			PageType:   "error",
			NeedsHuman: true,
			SkipReason: fmt.Sprintf("oracle error: %v", err),
		},
	}
}

// AssessResult judges the post-submit page state.
func (c *Client) AssessResult(ctx context.Context, snapshot *types.PageSnapshot) (*types.ResultAssessment, error) {
	prompt, err := json.Marshal(compactSnapshot(snapshot))
	if err != nil {
		return nil, err
	}

	raw, err := c.llm.CompleteWithSystem(ctx, resultSystemPrompt, string(prompt))
	if err != nil {
		return nil, fmt.Errorf("assess result: %w", err)
	}

	var assessment types.ResultAssessment
	if err := decodeJSON(raw, &assessment); err != nil {
		return nil, fmt.Errorf("assess result response: %w", err)
	}
	switch assessment.Status {
	case types.ResultSuccess, types.ResultPending, types.ResultError, types.ResultNeedsMoreSteps:
	default:
		assessment.Status = types.ResultUnknown
	}
	return &assessment, nil
}

// AssessRelevance is the tier-3 semantic fit check.
func (c *Client) AssessRelevance(ctx context.Context, dir types.Directory, snapshot *types.PageSnapshot, profile types.BusinessProfile, categoryOptions []string) (*types.RelevanceAnswer, error) {
	payload := map[string]interface{}{
		"directory":        dir,
		"profile":          profile,
		"category_options": categoryOptions,
	}
	if snapshot != nil {
		payload["page_title"] = snapshot.Title
		payload["page_text"] = truncate(snapshot.PageText, 4000)
	}
	prompt, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	raw, err := c.llm.CompleteWithSystem(ctx, relevanceSystemPrompt, string(prompt))
	if err != nil {
		return nil, fmt.Errorf("assess relevance: %w", err)
	}

	var answer types.RelevanceAnswer
	if err := decodeJSON(raw, &answer); err != nil {
		return nil, fmt.Errorf("assess relevance response: %w", err)
	}
	return &answer, nil
}

// compactSnapshot trims the snapshot for prompt budget: full structure, but
// page text truncated.
func compactSnapshot(snapshot *types.PageSnapshot) *types.PageSnapshot {
	if snapshot == nil {
		return &types.PageSnapshot{}
	}
	copied := *snapshot
	copied.PageText = truncate(copied.PageText, 6000)
	return &copied
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// decodeJSON tolerates chatty models: it strips code fences and decodes the
// first top-level JSON object in the response.
func decodeJSON(raw string, out interface{}) error {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	start := strings.IndexByte(cleaned, '{')
	end := strings.LastIndexByte(cleaned, '}')
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in response")
	}
	return json.Unmarshal([]byte(cleaned[start:end+1]), out)
}
