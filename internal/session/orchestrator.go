// Package session wires the scheduler, planner, classifier, extractor,
// executor, and oracle into the per-directory submission state machine and
// the serial run loop around it.
//
// Within one campaign everything is single-threaded cooperative: one
// directory, one page, one browser context at a time. The inter-submission
// delay is a deliberate blocking point, not overhead to eliminate.
// Cancellation is honored only between directories, never mid-fill.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kstephens0331/carsub/internal/campaign"
	"github.com/kstephens0331/carsub/internal/classify"
	"github.com/kstephens0331/carsub/internal/executor"
	"github.com/kstephens0331/carsub/internal/logging"
	"github.com/kstephens0331/carsub/internal/page"
	"github.com/kstephens0331/carsub/internal/schedule"
	"github.com/kstephens0331/carsub/internal/types"
)

// PageSession is a live page the orchestrator owns for one directory.
type PageSession interface {
	types.PageDriver
	Close() error
}

// PageOpener opens one live page per directory. The rod-backed manager in
// internal/browser satisfies this through a thin adapter.
type PageOpener interface {
	OpenPage(ctx context.Context, url string) (PageSession, error)
}

// Orchestrator runs the submission state machine for each directory of this
// week's batch.
type Orchestrator struct {
	classifier *classify.Classifier
	oracle     types.Oracle
	ledger     types.LedgerStore
	scheduler  *schedule.Scheduler
	planner    *campaign.Planner
	opener     PageOpener
	profile    types.BusinessProfile
	maxSteps   int

	sleep func(time.Duration) // test hook
}

// New creates an orchestrator. maxSteps bounds the multi-page form loop so a
// wizard that never converges still terminates.
func New(
	classifier *classify.Classifier,
	oracle types.Oracle,
	ledger types.LedgerStore,
	scheduler *schedule.Scheduler,
	planner *campaign.Planner,
	opener PageOpener,
	profile types.BusinessProfile,
	maxSteps int,
) *Orchestrator {
	if maxSteps <= 0 {
		maxSteps = 4
	}
	return &Orchestrator{
		classifier: classifier,
		oracle:     oracle,
		ledger:     ledger,
		scheduler:  scheduler,
		planner:    planner,
		opener:     opener,
		profile:    profile,
		maxSteps:   maxSteps,
		sleep:      time.Sleep,
	}
}

// SetSleep overrides the delay function. Test hook.
func (o *Orchestrator) SetSleep(fn func(time.Duration)) { o.sleep = fn }

// Run executes one scheduled session: preflight, batch selection, then
// serial per-directory sessions separated by randomized delays. A refused
// preflight is expected steady state, reported via Preflight, not an error.
func (o *Orchestrator) Run(ctx context.Context) (types.RunSummary, schedule.Preflight, error) {
	var summary types.RunSummary
	runID := uuid.NewString()[:8]

	preflight, err := o.scheduler.Check()
	if err != nil {
		return summary, preflight, fmt.Errorf("scheduler preflight: %w", err)
	}
	if !preflight.CanRun {
		logging.Session("run %s refused: %s", runID, preflight.Reason)
		return summary, preflight, nil
	}

	batch, err := o.planner.ThisWeeksBatch()
	if err != nil {
		return summary, preflight, fmt.Errorf("select batch: %w", err)
	}
	if batch.WeekDone() {
		logging.Session("week %d already completed ahead of schedule", batch.WeekNumber)
		return summary, preflight, nil
	}

	targets := batch.Remaining
	if len(targets) > preflight.Allowance {
		targets = targets[:preflight.Allowance]
	}
	logging.Session("run %s start: week %d (%s), attempting %d of %d remaining",
		runID, batch.WeekNumber, batch.Phase, len(targets), len(batch.Remaining))

	for i, dir := range targets {
		// Cancellation is only honored here, between directories.
		if err := ctx.Err(); err != nil {
			return summary, preflight, err
		}
		if i > 0 {
			delay := o.scheduler.Delay()
			logging.Session("waiting %s before next submission", delay.Round(time.Second))
			o.sleep(delay)
		}

		entry, err := o.RunDirectory(ctx, dir)
		if err != nil {
			// Ledger write failures abort the run: proceeding as if an
			// unrecorded submission succeeded risks duplicates on retry.
			return summary, preflight, err
		}
		summary.Total++
		switch entry.Status {
		case types.StatusSubmitted:
			summary.Submitted++
		case types.StatusPendingVerification:
			summary.Pending++
		case types.StatusFailed:
			summary.Failed++
		case types.StatusSkipped:
			summary.Skipped++
		}
	}

	logging.Session("run %s complete: %d submitted, %d pending, %d failed, %d skipped",
		runID, summary.Submitted, summary.Pending, summary.Failed, summary.Skipped)
	return summary, preflight, nil
}

// RunDirectory drives one directory through the state machine and appends
// exactly one ledger entry for its terminal state. The returned error is
// non-nil only for fatal conditions (ledger write failure).
func (o *Orchestrator) RunDirectory(ctx context.Context, dir types.Directory) (types.LedgerEntry, error) {
	logging.Session("[%s] %s", StatePending, dir.URL)

	done, err := o.ledger.IsDone(dir.URL)
	if err == nil && done {
		// Permanently done per the ledger; batches normally filter these,
		// but a direct invocation must not resubmit.
		return o.finish(dir, StateSkipped, types.StatusSkipped, "already submitted")
	}

	// Tier 1, no page load.
	needDeep := false
	if verdict := o.classifier.QuickCheck(dir); verdict != nil {
		if !verdict.Pass {
			logging.Session("[%s] %s: %s", StateQuickReject, dir.URL, verdict.Reason)
			return o.finish(dir, StateRejected, types.StatusSkipped, "rejected: "+verdict.Reason)
		}
		logging.Session("[%s] %s: %s", StateQuickPass, dir.URL, verdict.Reason)
	} else {
		logging.Session("[%s] %s", StateNeedsDeepCheck, dir.URL)
		needDeep = true
	}

	// LOAD_PAGE
	pg, err := o.opener.OpenPage(ctx, dir.URL)
	if err != nil {
		logging.Session("[%s] %s: %v", StateLoadPage, dir.URL, err)
		return o.finish(dir, StateFailed, types.StatusFailed, fmt.Sprintf("page load failed: %v", err))
	}
	defer pg.Close()

	snapshot, err := page.Extract(pg)
	if err != nil {
		return o.finish(dir, StateFailed, types.StatusFailed, fmt.Sprintf("extraction failed: %v", err))
	}

	// Tiers 2-3 when tier 1 was inconclusive.
	if needDeep {
		verdict := o.classifier.DeepCheck(dir, snapshot)
		if verdict == nil {
			verdict = o.classifier.OracleCheck(ctx, dir, snapshot, o.profile)
		}
		if !verdict.Pass {
			logging.Session("[%s] %s: %s", StateRejected, dir.URL, verdict.Reason)
			return o.finish(dir, StateRejected, types.StatusSkipped, "rejected: "+verdict.Reason)
		}
		logging.Session("[%s] %s: %s (%.2f, %s)", StateApproved, dir.URL, verdict.Reason, verdict.Confidence, verdict.Method)
	}

	// ANALYZE -> FILL -> SUBMIT_CLICK -> ASSESS_RESULT, looping back for
	// multi-page forms, bounded by maxSteps.
	for step := 1; step <= o.maxSteps; step++ {
		state, status, notes := o.analyzeAndSubmit(ctx, pg, snapshot, step)
		if state == StateNeedsMoreSteps {
			logging.Session("[%s] %s: step %d complete, form continues", StateNeedsMoreSteps, dir.URL, step)
			next, err := page.Extract(pg)
			if err != nil {
				return o.finish(dir, StateFailed, types.StatusFailed, fmt.Sprintf("extraction failed on step %d: %v", step+1, err))
			}
			snapshot = next
			continue
		}
		return o.finish(dir, state, status, notes)
	}
	return o.finish(dir, StateFailed, types.StatusFailed,
		fmt.Sprintf("form did not converge within %d steps", o.maxSteps))
}

// analyzeAndSubmit runs one ANALYZE..ASSESS_RESULT pass over the current
// snapshot. It returns StateNeedsMoreSteps to request another round.
func (o *Orchestrator) analyzeAndSubmit(ctx context.Context, pg PageSession, snapshot *types.PageSnapshot, step int) (State, types.EntryStatus, string) {
	logging.Session("[%s] %s step %d: %d fields, captcha=%v login=%v",
		StateAnalyze, snapshot.URL, step, snapshot.VisibleFieldCount(),
		snapshot.CaptchaDetected, snapshot.RequiresLogin)

	// A CAPTCHA or login wall wins over any plan contents.
	if snapshot.CaptchaDetected {
		return StateSkipNeedsHuman, types.StatusSkipped,
			fmt.Sprintf("needs human: captcha detected (%s)", snapshot.CaptchaType)
	}
	if snapshot.RequiresLogin {
		return StateSkipNeedsHuman, types.StatusSkipped, "needs human: login required"
	}

	plan, err := o.oracle.AnalyzeAndPlan(ctx, snapshot, o.profile)
	if err != nil {
		logging.Session("oracle analyze failed (fail-soft): %v", err)
	}
	if plan.Assessment.NeedsHuman {
		reason := plan.Assessment.SkipReason
		if reason == "" {
			reason = "oracle flagged page for human review"
		}
		return StateSkipNeedsHuman, types.StatusSkipped, "needs human: " + reason
	}
	if plan.Assessment.ShouldSkip {
		reason := plan.Assessment.SkipReason
		if reason == "" {
			reason = "oracle directed skip"
		}
		return StateSkipDirective, types.StatusSkipped, "skipped: " + reason
	}
	if len(plan.Fills) == 0 {
		return StateFailed, types.StatusFailed, "oracle produced no fill instructions"
	}

	// FILL - no cancellation point from here to the submit click.
	logging.Session("[%s] applying %d fills", StateFill, len(plan.Fills))
	exec := executor.New(pg)
	result := exec.Apply(plan)
	if result.Filled == 0 && result.Failed > 0 {
		return StateFailed, types.StatusFailed,
			fmt.Sprintf("fill failed: 0 of %d fields filled", len(plan.Fills))
	}

	// SUBMIT_CLICK
	if plan.ClickAfterFill != nil {
		logging.Session("[%s] clicking %s", StateSubmitClick, plan.ClickAfterFill.Selector)
		if err := exec.Submit(plan.ClickAfterFill); err != nil {
			return StateFailed, types.StatusFailed, fmt.Sprintf("submit click failed: %v", err)
		}
	}
	// Give the page a moment to transition before assessing.
	o.sleep(2 * time.Second)

	// ASSESS_RESULT
	after, err := page.Extract(pg)
	if err != nil {
		return StateFailed, types.StatusFailed, fmt.Sprintf("post-submit extraction failed: %v", err)
	}
	assessment, err := o.oracle.AssessResult(ctx, after)
	if err != nil || assessment == nil {
		logging.Session("[%s] assessment unavailable: %v", StateAssessResult, err)
		assessment = &types.ResultAssessment{Status: types.ResultUnknown, Message: "oracle assessment unavailable"}
	}
	logging.Session("[%s] status=%s message=%s", StateAssessResult, assessment.Status, assessment.Message)

	fillNote := fmt.Sprintf("%d filled, %d failed, %d skipped", result.Filled, result.Failed, result.Skipped)
	switch assessment.Status {
	case types.ResultSuccess:
		return StateSuccess, types.StatusSubmitted, fmt.Sprintf("submitted (%s)", fillNote)
	case types.ResultPending:
		return StatePendingVerification, types.StatusPendingVerification,
			fmt.Sprintf("pending verification: %s (%s)", assessment.Message, fillNote)
	case types.ResultNeedsMoreSteps:
		return StateNeedsMoreSteps, "", ""
	default:
		msg := assessment.Message
		if msg == "" {
			msg = "submission outcome unclear"
		}
		return StateFailed, types.StatusFailed, fmt.Sprintf("%s (%s)", msg, fillNote)
	}
}

// finish appends the single terminal ledger entry for this session. A write
// failure is fatal for the step and propagates.
func (o *Orchestrator) finish(dir types.Directory, state State, status types.EntryStatus, notes string) (types.LedgerEntry, error) {
	entry := types.LedgerEntry{
		URL:       dir.URL,
		Status:    status,
		Timestamp: time.Now(),
		Notes:     notes,
	}
	if err := o.ledger.Append(entry); err != nil {
		return entry, fmt.Errorf("record %s for %s: %w", status, dir.URL, err)
	}
	logging.Session("[%s] %s -> %s (%s)", state, dir.URL, status, notes)
	return entry, nil
}
