package keeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	coreerrors "beanchain/core/errors"
	"beanchain/crypto"
	nativecommon "beanchain/native/common"
	"beanchain/native/season"
)

// Sunriser advances the season. *core.Node implements it.
type Sunriser interface {
	Sunrise(ctx context.Context, caller crypto.Address) (*season.Report, error)
}

// Keeper calls sunrise on a cron schedule and collects the incentive for its
// address. A tick that finds the season still current does nothing.
type Keeper struct {
	node     Sunriser
	caller   crypto.Address
	schedule string
	logger   *slog.Logger
}

func New(node Sunriser, caller crypto.Address, schedule string, logger *slog.Logger) (*Keeper, error) {
	if node == nil {
		return nil, fmt.Errorf("keeper: node required")
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("keeper: schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Keeper{node: node, caller: caller, schedule: schedule, logger: logger}, nil
}

// Run schedules ticks and blocks until ctx is done. Ticks never overlap.
func (k *Keeper) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(k.schedule, func() { k.Tick(ctx) }); err != nil {
		return fmt.Errorf("keeper: schedule: %w", err)
	}
	c.Start()
	k.logger.Info("keeper started", "schedule", k.schedule, "caller", k.caller.String())
	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

// Tick attempts one sunrise, catching up at most one season. It returns the
// report when the season advanced.
func (k *Keeper) Tick(ctx context.Context) *season.Report {
	report, err := k.node.Sunrise(ctx, k.caller)
	switch {
	case err == nil:
		k.logger.Info("sunrise",
			"season", report.Season,
			"case", report.Evaluation.CaseID,
			"minted", report.Minted.String(),
			"incentive", report.Incentive.String(),
		)
		return report
	case errors.Is(err, coreerrors.ErrSeasonNotElapsed):
		k.logger.Debug("season still current")
	case errors.Is(err, nativecommon.ErrModulePaused), errors.Is(err, coreerrors.ErrSeasonPaused):
		k.logger.Warn("sunrise paused")
	default:
		k.logger.Error("sunrise failed", "error", err)
	}
	return nil
}
