package backtester

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/structurelab/internal/strategy"
	"github.com/atlas-desktop/structurelab/internal/workers"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

// defaultWorkerPoolSize is the runner's default fixed pool size (§5).
const defaultWorkerPoolSize = 4

// RunParallel runs every strategy against the shared candle table on a
// fixed-size worker pool (default 4, overridden by poolSize if > 0). Each
// task clones its strategy so the Sequence condition's mutable cursor is
// never shared across workers, builds its own driver instance, and runs
// independently; a failing task's error is collected without aborting the
// others (§5's isolated-failure policy).
func RunParallel(b *Backtester, strategies []*strategy.Strategy, candles types.Candles, symbol string, startBalance decimal.Decimal, poolSize int) ([]types.BacktestResult, []error) {
	if poolSize <= 0 {
		poolSize = defaultWorkerPoolSize
	}
	cfg := workers.DefaultPoolConfig("backtest-runner")
	cfg.NumWorkers = poolSize
	cfg.QueueSize = len(strategies) + 1
	pool := workers.NewPool(b.logger, cfg)
	pool.Start()
	defer pool.Stop()

	results := make([]types.BacktestResult, len(strategies))
	errs := make([]error, len(strategies))
	var wg sync.WaitGroup
	wg.Add(len(strategies))

	for i, s := range strategies {
		i, s := i, s
		clone := s.Clone()
		runner := NewBacktester(b.logger, b.CommissionPct, b.SlippagePct)
		if err := pool.SubmitFunc(func() error {
			defer wg.Done()
			r, err := runner.Run(clone, candles, symbol, startBalance)
			if err != nil {
				errs[i] = fmt.Errorf("strategy %q: %w", s.Name, err)
				return err
			}
			results[i] = r
			return nil
		}); err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("strategy %q: submitting to pool: %w", s.Name, err)
		}
	}

	wg.Wait()

	stats := pool.Stats()
	b.logger.Info("parallel run finished",
		zap.Int("strategies", len(strategies)),
		zap.Int64("tasks_completed", stats.TasksCompleted),
		zap.Int64("tasks_failed", stats.TasksFailed),
		zap.Duration("p99_latency", stats.P99Latency),
	)

	var out []types.BacktestResult
	var outErrs []error
	for i, r := range results {
		if errs[i] != nil {
			outErrs = append(outErrs, errs[i])
			continue
		}
		out = append(out, r)
	}
	return out, outErrs
}
