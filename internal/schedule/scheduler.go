// Package schedule enforces submission cadence: weekly and daily rate
// limits, the late-night submission window, and randomized inter-submission
// delays. All clock math happens in one fixed civil timezone resolved from
// the platform tzdata, so DST transitions follow the zone rules rather than
// hand-computed offsets.
package schedule

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/kstephens0331/carsub/internal/config"
	"github.com/kstephens0331/carsub/internal/logging"
	"github.com/kstephens0331/carsub/internal/types"
)

// Preflight is the scheduler's verdict on whether a run may start now.
type Preflight struct {
	CanRun    bool   `json:"can_run"`
	Reason    string `json:"reason,omitempty"`
	Allowance int    `json:"allowance"`
}

// DayTarget is one day of the weekly plan.
type DayTarget struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// Scheduler reads the ledger to derive usage counts. It never stores counts
// itself: the ledger's timestamps are the only source of truth.
type Scheduler struct {
	cfg   config.SchedulerConfig
	loc   *time.Location
	store types.LedgerStore
	now   func() time.Time
	rng   *rand.Rand
}

// New creates a scheduler bound to the given ledger and civil timezone.
func New(cfg config.SchedulerConfig, loc *time.Location, store types.LedgerStore) *Scheduler {
	return &Scheduler{
		cfg:   cfg,
		loc:   loc,
		store: store,
		now:   time.Now,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetClock overrides the time source. Test hook.
func (s *Scheduler) SetClock(now func() time.Time) { s.now = now }

// weekStart returns the most recent Sunday 00:00 in the scheduler's zone.
func (s *Scheduler) weekStart(now time.Time) time.Time {
	local := now.In(s.loc)
	daysBack := int(local.Weekday()) // Sunday == 0
	sunday := local.AddDate(0, 0, -daysBack)
	return time.Date(sunday.Year(), sunday.Month(), sunday.Day(), 0, 0, 0, 0, s.loc)
}

// dayStart returns today's midnight in the scheduler's zone.
func (s *Scheduler) dayStart(now time.Time) time.Time {
	local := now.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
}

func countTerminalSuccess(entries []types.LedgerEntry) int {
	n := 0
	for _, e := range entries {
		if e.Status.IsTerminalSuccess() {
			n++
		}
	}
	return n
}

// Usage returns (weeklyUsed, dailyUsed) derived from ledger timestamps
// within the campaign-local Sunday-aligned week and calendar day.
func (s *Scheduler) Usage() (int, int, error) {
	now := s.now()

	week := s.weekStart(now)
	weekEntries, err := s.store.EntriesBetween(week, week.AddDate(0, 0, 7))
	if err != nil {
		return 0, 0, fmt.Errorf("weekly usage: %w", err)
	}

	day := s.dayStart(now)
	dayEntries, err := s.store.EntriesBetween(day, day.AddDate(0, 0, 1))
	if err != nil {
		return 0, 0, fmt.Errorf("daily usage: %w", err)
	}

	return countTerminalSuccess(weekEntries), countTerminalSuccess(dayEntries), nil
}

// Allowance returns how many submissions may still start now:
// max(0, min(weekly remaining, daily remaining)).
func (s *Scheduler) Allowance() (int, error) {
	weeklyUsed, dailyUsed, err := s.Usage()
	if err != nil {
		return 0, err
	}
	weeklyLeft := s.cfg.WeeklyLimit - weeklyUsed
	dailyLeft := s.cfg.DailyLimit - dailyUsed
	allowance := min(weeklyLeft, dailyLeft)
	if allowance < 0 {
		allowance = 0
	}
	return allowance, nil
}

// InWindow reports whether t falls inside the submission window. The window
// may wrap midnight (21:00-02:00 means [21,24) union [0,2)).
func (s *Scheduler) InWindow(t time.Time) bool {
	hour := t.In(s.loc).Hour()
	start, end := s.cfg.WindowStart, s.cfg.WindowEnd
	if start == end {
		return true // degenerate config: always open
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// Delay returns a uniform random delay in [MinDelay, MaxDelay], inserted
// between consecutive submissions so the cadence is not bot-recognizably
// uniform.
func (s *Scheduler) Delay() time.Duration {
	minMs, maxMs := s.cfg.MinDelayMs, s.cfg.MaxDelayMs
	if maxMs <= minMs {
		return time.Duration(minMs) * time.Millisecond
	}
	ms := minMs + s.rng.Intn(maxMs-minMs+1)
	return time.Duration(ms) * time.Millisecond
}

// Check evaluates, in order: weekly limit, daily limit, submission window.
// The first failing check wins and determines the single surfaced reason.
// Weekly is checked first because it is the hardest constraint to override.
func (s *Scheduler) Check() (Preflight, error) {
	weeklyUsed, dailyUsed, err := s.Usage()
	if err != nil {
		return Preflight{}, err
	}

	if weeklyUsed >= s.cfg.WeeklyLimit {
		return Preflight{
			CanRun: false,
			Reason: fmt.Sprintf("weekly limit reached (%d/%d submissions this week)", weeklyUsed, s.cfg.WeeklyLimit),
		}, nil
	}
	if dailyUsed >= s.cfg.DailyLimit {
		return Preflight{
			CanRun: false,
			Reason: fmt.Sprintf("daily limit reached (%d/%d submissions today)", dailyUsed, s.cfg.DailyLimit),
		}, nil
	}
	now := s.now()
	if !s.InWindow(now) {
		return Preflight{
			CanRun: false,
			Reason: fmt.Sprintf("outside submission window (%02d:00-%02d:00 %s, now %s)",
				s.cfg.WindowStart, s.cfg.WindowEnd, s.loc, now.In(s.loc).Format("15:04")),
		}, nil
	}

	allowance := min(s.cfg.WeeklyLimit-weeklyUsed, s.cfg.DailyLimit-dailyUsed)
	logging.Scheduler("preflight ok: allowance %d (weekly %d/%d, daily %d/%d)",
		allowance, weeklyUsed, s.cfg.WeeklyLimit, dailyUsed, s.cfg.DailyLimit)
	return Preflight{CanRun: true, Allowance: allowance}, nil
}

// WeeklyPlan distributes the remaining weekly allowance across the remaining
// days of this week (today through Saturday). Floor division with the
// remainder assigned to the earliest days; every day is capped at the daily
// limit, overflow rolling to the next day with headroom.
func (s *Scheduler) WeeklyPlan() ([]DayTarget, error) {
	weeklyUsed, _, err := s.Usage()
	if err != nil {
		return nil, err
	}
	remaining := s.cfg.WeeklyLimit - weeklyUsed
	if remaining < 0 {
		remaining = 0
	}

	today := s.dayStart(s.now())
	weekEnd := s.weekStart(s.now()).AddDate(0, 0, 7)

	var days []time.Time
	for d := today; d.Before(weekEnd); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	if len(days) == 0 {
		return nil, nil
	}

	base := remaining / len(days)
	extra := remaining % len(days)
	targets := make([]DayTarget, len(days))
	for i, d := range days {
		n := base
		if i < extra {
			n++
		}
		targets[i] = DayTarget{Date: d, Count: n}
	}

	// Clamp to the daily limit, rolling overflow forward.
	overflow := 0
	for i := range targets {
		targets[i].Count += overflow
		overflow = 0
		if targets[i].Count > s.cfg.DailyLimit {
			overflow = targets[i].Count - s.cfg.DailyLimit
			targets[i].Count = s.cfg.DailyLimit
		}
	}
	if overflow > 0 {
		logging.SchedulerDebug("weekly plan cannot place %d submissions this week", overflow)
	}
	return targets, nil
}
