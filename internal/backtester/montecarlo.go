package backtester

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/structurelab/pkg/types"
)

// MonteCarloSimulator resamples a completed trade ledger's per-trade PnL
// sequence to estimate how sensitive a strategy's outcome is to trade order,
// supplementing §4.9's single deterministic run with a robustness check the
// base spec leaves out.
type MonteCarloSimulator struct {
	logger *zap.Logger
	config types.MonteCarloConfig
	rng    *rand.Rand
}

// NewMonteCarloSimulator returns a MonteCarloSimulator seeded from the wall
// clock; seeding is intentionally non-deterministic since this is a
// supplementary robustness estimate, not part of the backtest ledger itself.
func NewMonteCarloSimulator(logger *zap.Logger, config types.MonteCarloConfig) *MonteCarloSimulator {
	return &MonteCarloSimulator{
		logger: logger,
		config: config,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run reshuffles trades' PnL sequence config.Iterations times, tracking the
// cumulative-return and max-drawdown distribution, and the fraction of paths
// that breach config.RuinFrac (equity falling to 1-RuinFrac of starting
// balance).
func (mc *MonteCarloSimulator) Run(trades []types.BacktestTrade, startBalance decimal.Decimal) *types.MonteCarloResult {
	if len(trades) == 0 || startBalance.IsZero() {
		return &types.MonteCarloResult{Iterations: 0}
	}

	pnls := make([]float64, len(trades))
	for i, t := range trades {
		v, _ := t.PnL.Float64()
		pnls[i] = v
	}
	balance, _ := startBalance.Float64()

	iterations := mc.config.Iterations
	if iterations <= 0 {
		iterations = 1000
	}
	ruinFrac, _ := mc.config.RuinFrac.Float64()
	if ruinFrac <= 0 {
		ruinFrac = 0.5
	}

	returns := make([]float64, iterations)
	drawdowns := make([]float64, iterations)
	ruinCount := 0

	for i := 0; i < iterations; i++ {
		shuffled := mc.shufflePnLs(pnls)
		totalReturn, maxDD, ruined := mc.simulatePath(shuffled, balance, ruinFrac)
		returns[i] = totalReturn
		drawdowns[i] = maxDD
		if ruined {
			ruinCount++
		}
	}

	sort.Float64s(returns)
	sort.Float64s(drawdowns)

	result := &types.MonteCarloResult{
		Iterations:      iterations,
		MedianReturn:    decimal.NewFromFloat(percentile(returns, 50)),
		P5Return:        decimal.NewFromFloat(percentile(returns, 5)),
		P95Return:       decimal.NewFromFloat(percentile(returns, 95)),
		MaxDrawdownP95:  decimal.NewFromFloat(percentile(drawdowns, 95)),
		ProbabilityRuin: decimal.NewFromFloat(float64(ruinCount) / float64(iterations)),
	}

	mc.logger.Info("monte carlo simulation complete",
		zap.Int("iterations", iterations),
		zap.String("median_return_pct", result.MedianReturn.String()),
		zap.String("p5_return_pct", result.P5Return.String()),
		zap.String("probability_ruin", result.ProbabilityRuin.String()),
	)

	return result
}

func (mc *MonteCarloSimulator) shufflePnLs(pnls []float64) []float64 {
	shuffled := make([]float64, len(pnls))
	copy(shuffled, pnls)
	mc.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

// simulatePath walks one shuffled PnL sequence starting from balance,
// returning the total return percentage, the max drawdown percentage, and
// whether equity ever fell to balance*(1-ruinFrac).
func (mc *MonteCarloSimulator) simulatePath(pnls []float64, balance, ruinFrac float64) (totalReturnPct, maxDDPct float64, ruined bool) {
	equity := balance
	peak := equity
	ruinLevel := balance * (1 - ruinFrac)

	for _, pnl := range pnls {
		equity += pnl
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			dd := (peak - equity) / peak * 100
			if dd > maxDDPct {
				maxDDPct = dd
			}
		}
		if equity <= ruinLevel {
			ruined = true
		}
	}
	if balance != 0 {
		totalReturnPct = (equity - balance) / balance * 100
	}
	return totalReturnPct, maxDDPct, ruined
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper {
		return sorted[lower]
	}
	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
