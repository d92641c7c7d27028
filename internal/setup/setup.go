package setup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/malbeclabs/resolver-setup/internal/metrics"
)

// StepError is the failure of a pipeline step. Steps before Index completed.
type StepError struct {
	Index int
	Name  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s) failed: %v", e.Index, e.Name, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Orchestrator provisions a resolver by running the setup pipeline once.
type Orchestrator struct {
	log *slog.Logger
	cfg Config
}

func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Orchestrator{
		log: cfg.Logger,
		cfg: cfg,
	}, nil
}

// Run executes every step in order. The first failure aborts the run and is returned as a
// *StepError together with the report of the steps that completed. Nothing is retried or rolled
// back.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	o.log.Info("Starting resolver setup",
		"network", o.cfg.Network,
		"chainID", o.cfg.ChainID,
		"resolver", o.cfg.Resolver,
		"worker", o.cfg.Worker,
		"stakeAmount", o.cfg.Stake.Amount,
		"lockDuration", o.cfg.Stake.LockDuration,
		"shareToken", o.cfg.ShareToken.Symbol,
		"skipCompleted", o.cfg.SkipCompleted,
	)

	st := newRunState()
	report := &Report{
		Network:  o.cfg.Network,
		ChainID:  o.cfg.ChainID,
		Resolver: o.cfg.Resolver,
		Worker:   o.cfg.Worker,
	}

	for i, s := range o.pipeline(st) {
		index := i + 1
		result, err := o.runStep(ctx, index, s)
		if err != nil {
			metrics.Steps.WithLabelValues(s.name, metrics.ResultError).Inc()
			o.fillDerived(report, st)
			return report, &StepError{Index: index, Name: s.name, Err: err}
		}
		report.Steps = append(report.Steps, result)
	}
	o.fillDerived(report, st)

	metrics.LastSuccessTimestamp.WithLabelValues(o.cfg.Network).Set(float64(o.cfg.Clock.Now().Unix()))
	o.log.Info("Resolver setup completed", "shareToken", report.ShareToken, "farm", report.Farm)
	return report, nil
}

func (o *Orchestrator) runStep(ctx context.Context, index int, s step) (StepResult, error) {
	result := StepResult{Index: index, Name: s.name}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	start := o.cfg.Clock.Now()

	if o.cfg.SkipCompleted && s.done != nil {
		done, err := s.done(ctx)
		if err != nil {
			return result, fmt.Errorf("failed to check step state: %w", err)
		}
		if done {
			result.Skipped = true
			metrics.Steps.WithLabelValues(s.name, metrics.ResultSkipped).Inc()
			o.log.Info("Step already applied, skipping", "index", index, "step", s.name)
			return result, nil
		}
	}

	if s.read != nil {
		if err := s.read(ctx); err != nil {
			return result, err
		}
	} else {
		o.log.Debug("--> submitting step", "index", index, "step", s.name)
		tx, err := s.send(ctx)
		if err != nil {
			return result, err
		}
		result.TxHash = tx.Hash

		if s.noWait {
			o.log.Info("Step submitted without waiting for confirmation", "index", index, "step", s.name, "tx", tx.Hash)
		} else {
			receipt, err := tx.Wait(ctx)
			if err != nil {
				return result, err
			}
			if receipt.BlockNumber != nil {
				result.BlockNumber = receipt.BlockNumber.Uint64()
			}
			result.GasUsed = receipt.GasUsed
			metrics.GasUsed.WithLabelValues(s.name).Add(float64(receipt.GasUsed))
			if s.confirmed != nil {
				if err := s.confirmed(receipt); err != nil {
					return result, err
				}
			}
		}
	}

	result.Duration = o.cfg.Clock.Since(start)
	metrics.StepDuration.WithLabelValues(s.name).Observe(result.Duration.Seconds())
	metrics.Steps.WithLabelValues(s.name, metrics.ResultSuccess).Inc()
	o.log.Info("Step completed",
		"index", index,
		"step", s.name,
		"tx", result.TxHash,
		"block", result.BlockNumber,
		"gasUsed", result.GasUsed,
		"duration", result.Duration,
	)
	return result, nil
}

func (o *Orchestrator) fillDerived(report *Report, st *runState) {
	if token, err := st.shareToken.Get(); err == nil {
		report.ShareToken = token
	}
	report.Farm = st.farm.Address
}
