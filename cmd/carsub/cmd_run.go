package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kstephens0331/carsub/internal/browser"
	"github.com/kstephens0331/carsub/internal/classify"
	"github.com/kstephens0331/carsub/internal/page"
	"github.com/kstephens0331/carsub/internal/schedule"
	"github.com/kstephens0331/carsub/internal/session"
)

var runDry bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one scheduled submission session",
	Long: `Runs the full session loop: scheduler preflight, this week's batch,
then one serialized submission attempt per directory with randomized delays
in between. Every attempt ends in a ledger entry.

With --dry-run, classifies this week's batch over static HTML fetches
without launching a browser or writing to the ledger.`,
	RunE: runSession,
}

func init() {
	runCmd.Flags().BoolVar(&runDry, "dry-run", false, "classify only; no browser, no ledger writes")
}

func runSession(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	orc, err := newOracle(ctx, e.cfg.Oracle)
	if err != nil {
		return fmt.Errorf("oracle init: %w", err)
	}
	classifier := classify.New(e.cfg.Classifier, orc)

	if runDry {
		return dryRun(ctx, e, classifier)
	}
	if orc == nil {
		return fmt.Errorf("no oracle API key configured (set CARSUB_API_KEY or oracle.api_key)")
	}

	loc, err := e.cfg.Location()
	if err != nil {
		return err
	}
	scheduler := schedule.New(e.cfg.Scheduler, loc, e.store)

	mgr := browser.NewManager(e.cfg.Browser)
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("browser start: %w", err)
	}
	defer mgr.Shutdown()

	orchestrator := session.New(classifier, orc, e.store, scheduler, e.planner,
		rodOpener{manager: mgr}, e.profile, e.cfg.MaxFormSteps)

	summary, preflight, err := orchestrator.Run(ctx)
	if err != nil {
		return err
	}
	if !preflight.CanRun {
		// Expected steady state, not an operational failure.
		fmt.Printf("Not running: %s\n", preflight.Reason)
		return nil
	}

	logger.Info("session complete",
		zap.Int("submitted", summary.Submitted),
		zap.Int("pending", summary.Pending),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped))
	fmt.Printf("Session summary: %d submitted, %d pending, %d failed, %d skipped (%d total)\n",
		summary.Submitted, summary.Pending, summary.Failed, summary.Skipped, summary.Total)
	return nil
}

// dryRun classifies this week's batch using static HTML fetches only.
func dryRun(ctx context.Context, e *env, classifier *classify.Classifier) error {
	batch, err := e.planner.ThisWeeksBatch()
	if err != nil {
		return err
	}
	fmt.Printf("Week %d (%s): %d directories to classify\n\n",
		batch.WeekNumber, batch.Phase, len(batch.Remaining))

	for _, dir := range batch.Remaining {
		if err := ctx.Err(); err != nil {
			return err
		}
		verdict := classifier.QuickCheck(dir)
		if verdict == nil {
			snap, err := page.StaticSnapshot(ctx, dir.URL)
			if err != nil {
				fmt.Printf("  ? %-40s fetch failed: %v\n", dir.Name, err)
				continue
			}
			verdict = classifier.DeepCheck(dir, snap)
			if verdict == nil {
				verdict = classifier.OracleCheck(ctx, dir, snap, e.profile)
			}
		}
		mark := "-"
		if verdict.Pass {
			mark = "+"
		}
		fmt.Printf("  %s %-40s %.2f %-15s %s\n", mark, dir.Name, verdict.Confidence, verdict.Method, verdict.Reason)
	}
	return nil
}
