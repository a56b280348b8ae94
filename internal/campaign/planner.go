// Package campaign partitions the directory list into a 30-week rollout and
// selects each week's batch. Precedence encodes the strategy "build authority
// first, fill long tail last": pre-vetted niche directories, then high-DR,
// mid-DR, low-DR, and micro-DR buckets, each sorted by DR descending.
package campaign

import (
	"fmt"
	"sort"
	"time"

	"github.com/kstephens0331/carsub/internal/config"
	"github.com/kstephens0331/carsub/internal/logging"
	"github.com/kstephens0331/carsub/internal/types"
)

// Phase labels the strategic phase of a campaign week.
type Phase string

const (
	PhaseFoundation    Phase = "Foundation"
	PhaseAuthority     Phase = "Authority Building"
	PhaseCitation      Phase = "Citation Spread"
	PhaseDiversify     Phase = "Deep Diversification"
	PhaseRetriesAndNew Phase = "Retries & New"
)

// PhaseForWeek maps a 1-based week number to its phase.
func PhaseForWeek(week int) Phase {
	switch {
	case week <= 4:
		return PhaseFoundation
	case week <= 12:
		return PhaseAuthority
	case week <= 20:
		return PhaseCitation
	case week <= 28:
		return PhaseDiversify
	default:
		return PhaseRetriesAndNew
	}
}

// WeekBatch is one week's slice of the rollout.
type WeekBatch struct {
	WeekNumber  int               `json:"week_number"`
	Phase       Phase             `json:"phase"`
	Directories []types.Directory `json:"directories"`
}

// Plan is the full campaign schedule.
type Plan struct {
	Weeks []WeekBatch `json:"weeks"`
	// Unscheduled holds directories beyond the final week. They are
	// reported, never silently dropped.
	Unscheduled []types.Directory `json:"unscheduled,omitempty"`
}

// Store is the slice of the ledger the planner needs: the completed set for
// dedup and the write-once campaign start.
type Store interface {
	CompletedSet() (map[string]bool, error)
	CampaignStart() (time.Time, bool, error)
	SetCampaignStart(time.Time) error
}

// Planner owns week numbering and batch selection.
type Planner struct {
	cfg   config.CampaignConfig
	loc   *time.Location
	store Store
	dirs  []types.Directory
	now   func() time.Time
}

// New creates a planner over a static directory list.
func New(cfg config.CampaignConfig, loc *time.Location, store Store, dirs []types.Directory) *Planner {
	if cfg.PerWeekQuota <= 0 {
		cfg.PerWeekQuota = 15
	}
	if cfg.TotalWeeks <= 0 {
		cfg.TotalWeeks = 30
	}
	return &Planner{cfg: cfg, loc: loc, store: store, dirs: dirs, now: time.Now}
}

// SetClock overrides the time source. Test hook.
func (p *Planner) SetClock(now func() time.Time) { p.now = now }

// bucketize partitions directories into the five precedence buckets, each
// sorted DR-descending internally.
func bucketize(dirs []types.Directory) [][]types.Directory {
	var niche, high, mid, low, micro []types.Directory
	for _, d := range dirs {
		switch {
		case d.Tier == types.TierNiche:
			niche = append(niche, d)
		case d.DomainRating >= 70:
			high = append(high, d)
		case d.DomainRating >= 40:
			mid = append(mid, d)
		case d.DomainRating >= 20:
			low = append(low, d)
		default:
			micro = append(micro, d)
		}
	}
	buckets := [][]types.Directory{niche, high, mid, low, micro}
	for _, b := range buckets {
		sort.SliceStable(b, func(i, j int) bool {
			return b[i].DomainRating > b[j].DomainRating
		})
	}
	return buckets
}

// BuildFullPlan chunks the concatenated bucket sequence into per-week groups.
// The plan always has exactly TotalWeeks week-buckets regardless of list
// length; trailing buckets are empty when the list is short, and excess
// directories land in Unscheduled.
func (p *Planner) BuildFullPlan() Plan {
	var ordered []types.Directory
	for _, bucket := range bucketize(p.dirs) {
		ordered = append(ordered, bucket...)
	}

	plan := Plan{Weeks: make([]WeekBatch, p.cfg.TotalWeeks)}
	for i := range plan.Weeks {
		week := i + 1
		lo := i * p.cfg.PerWeekQuota
		hi := lo + p.cfg.PerWeekQuota
		var chunk []types.Directory
		if lo < len(ordered) {
			if hi > len(ordered) {
				hi = len(ordered)
			}
			chunk = ordered[lo:hi]
		}
		plan.Weeks[i] = WeekBatch{WeekNumber: week, Phase: PhaseForWeek(week), Directories: chunk}
	}

	if overflow := p.cfg.TotalWeeks * p.cfg.PerWeekQuota; overflow < len(ordered) {
		plan.Unscheduled = ordered[overflow:]
		logging.Campaign("%d directories beyond week %d are unscheduled", len(plan.Unscheduled), p.cfg.TotalWeeks)
	}
	return plan
}

// sundayOf snaps t to its week's Sunday 00:00 in the planner's zone.
func (p *Planner) sundayOf(t time.Time) time.Time {
	local := t.In(p.loc)
	sunday := local.AddDate(0, 0, -int(local.Weekday()))
	return time.Date(sunday.Year(), sunday.Month(), sunday.Day(), 0, 0, 0, 0, p.loc)
}

// EnsureStart returns the persisted campaign start, setting it on first run
// (snapped to that run's Sunday). Once persisted the start is immutable:
// recomputing it would corrupt week numbering for a resumed campaign.
func (p *Planner) EnsureStart() (time.Time, error) {
	start, ok, err := p.store.CampaignStart()
	if err != nil {
		return time.Time{}, err
	}
	if ok {
		return start.In(p.loc), nil
	}

	start = p.sundayOf(p.now())
	if err := p.store.SetCampaignStart(start); err != nil {
		return time.Time{}, fmt.Errorf("persist campaign start: %w", err)
	}
	logging.Campaign("campaign start set to %s", start.Format("2006-01-02"))

	// Re-read: a concurrent first run may have won the write-once insert.
	persisted, ok, err := p.store.CampaignStart()
	if err != nil {
		return time.Time{}, err
	}
	if ok {
		return persisted.In(p.loc), nil
	}
	return start, nil
}

// CurrentWeek returns the 1-based campaign week for now.
func (p *Planner) CurrentWeek() (int, error) {
	start, err := p.EnsureStart()
	if err != nil {
		return 0, err
	}
	// Civil-day difference: robust across DST shifts where a week is not
	// exactly 168 hours.
	now := p.now().In(p.loc)
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, p.loc)
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, p.loc)
	days := int(nowDay.Sub(startDay).Hours()/24 + 0.5)
	if days < 0 {
		days = 0
	}
	return days/7 + 1, nil
}

// BatchStatus describes this week's remaining work.
type BatchStatus struct {
	WeekNumber int               `json:"week_number"`
	Phase      Phase             `json:"phase"`
	Remaining  []types.Directory `json:"remaining"`
	// Completed counts this week's directories already done per the ledger.
	Completed int `json:"completed"`
}

// WeekDone reports whether the week's chunk is fully submitted. An empty
// remainder means the week completed ahead of schedule, not an error.
func (b BatchStatus) WeekDone() bool { return len(b.Remaining) == 0 }

// ThisWeeksBatch returns the current week's chunk minus URLs already in the
// ledger's completed set, supporting safe resume after interruption.
func (p *Planner) ThisWeeksBatch() (BatchStatus, error) {
	week, err := p.CurrentWeek()
	if err != nil {
		return BatchStatus{}, err
	}

	status := BatchStatus{WeekNumber: week, Phase: PhaseForWeek(week)}
	plan := p.BuildFullPlan()
	if week > len(plan.Weeks) {
		// Past the planned horizon; nothing scheduled.
		return status, nil
	}
	chunk := plan.Weeks[week-1].Directories

	done, err := p.store.CompletedSet()
	if err != nil {
		return BatchStatus{}, fmt.Errorf("load completed set: %w", err)
	}
	for _, d := range chunk {
		if done[d.URL] {
			status.Completed++
			continue
		}
		status.Remaining = append(status.Remaining, d)
	}
	logging.Campaign("week %d (%s): %d remaining, %d completed",
		week, status.Phase, len(status.Remaining), status.Completed)
	return status, nil
}
