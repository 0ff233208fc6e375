package backtester

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/structurelab/pkg/types"
)

// ViabilityChecker assesses whether a PerformanceMetrics set clears the
// thresholds that mark a strategy worth trading, scaled down to the metrics
// §4.9 actually computes (profit_factor, win_rate, expectancy, drawdown,
// trade count) rather than the Sharpe/Sortino/Calmar/VaR
// panel the source tracked.
type ViabilityChecker struct {
	thresholds types.ViabilityThresholds
}

// NewViabilityChecker returns a ViabilityChecker against thresholds.
func NewViabilityChecker(thresholds types.ViabilityThresholds) *ViabilityChecker {
	return &ViabilityChecker{thresholds: thresholds}
}

// Check assesses metrics and returns a graded report.
func (vc *ViabilityChecker) Check(metrics types.PerformanceMetrics) types.ViabilityReport {
	var issues []types.ViabilityIssue

	issues = append(issues, vc.checkTradeCount(metrics)...)
	issues = append(issues, vc.checkProfitFactor(metrics)...)
	issues = append(issues, vc.checkWinRate(metrics)...)
	issues = append(issues, vc.checkExpectancy(metrics)...)
	issues = append(issues, vc.checkDrawdown(metrics)...)

	score := vc.score(metrics)
	grade := scoreToGrade(score)
	critical := hasCriticalIssues(issues)

	return types.ViabilityReport{
		IsViable: !critical && score >= 60,
		Grade:    grade,
		Issues:   issues,
		Summary:  summarize(grade, critical),
	}
}

func (vc *ViabilityChecker) checkTradeCount(m types.PerformanceMetrics) []types.ViabilityIssue {
	if m.TotalTrades >= vc.thresholds.MinTrades {
		return nil
	}
	return []types.ViabilityIssue{{
		Metric:      "trade_count",
		Actual:      decimal.NewFromInt(int64(m.TotalTrades)),
		Required:    decimal.NewFromInt(int64(vc.thresholds.MinTrades)),
		Severity:    "warning",
		Description: "insufficient trades for statistical significance",
	}}
}

func (vc *ViabilityChecker) checkProfitFactor(m types.PerformanceMetrics) []types.ViabilityIssue {
	if m.ProfitFactorInf || m.ProfitFactor.GreaterThanOrEqual(vc.thresholds.MinProfitFactor) {
		return nil
	}
	severity := "warning"
	if m.ProfitFactor.LessThan(decimal.NewFromInt(1)) {
		severity = "critical"
	}
	return []types.ViabilityIssue{{
		Metric:      "profit_factor",
		Actual:      m.ProfitFactor,
		Required:    vc.thresholds.MinProfitFactor,
		Severity:    severity,
		Description: "profit factor is below threshold",
	}}
}

func (vc *ViabilityChecker) checkWinRate(m types.PerformanceMetrics) []types.ViabilityIssue {
	if m.WinRate.GreaterThanOrEqual(vc.thresholds.MinWinRate) {
		return nil
	}
	severity := "warning"
	if m.WinRate.LessThan(decimal.NewFromFloat(0.30)) {
		severity = "critical"
	}
	return []types.ViabilityIssue{{
		Metric:      "win_rate",
		Actual:      m.WinRate,
		Required:    vc.thresholds.MinWinRate,
		Severity:    severity,
		Description: "win rate is below threshold",
	}}
}

func (vc *ViabilityChecker) checkExpectancy(m types.PerformanceMetrics) []types.ViabilityIssue {
	if m.Expectancy.GreaterThan(vc.thresholds.MinExpectancy) {
		return nil
	}
	severity := "warning"
	if m.Expectancy.LessThan(decimal.Zero) {
		severity = "critical"
	}
	return []types.ViabilityIssue{{
		Metric:      "expectancy",
		Actual:      m.Expectancy,
		Required:    vc.thresholds.MinExpectancy,
		Severity:    severity,
		Description: "expected value per trade is too low or negative",
	}}
}

func (vc *ViabilityChecker) checkDrawdown(m types.PerformanceMetrics) []types.ViabilityIssue {
	if m.MaxDrawdownPercent.LessThanOrEqual(vc.thresholds.MaxDrawdownPct) {
		return nil
	}
	severity := "warning"
	if m.MaxDrawdownPercent.GreaterThan(decimal.NewFromInt(30)) {
		severity = "critical"
	}
	return []types.ViabilityIssue{{
		Metric:      "max_drawdown_pct",
		Actual:      m.MaxDrawdownPercent,
		Required:    vc.thresholds.MaxDrawdownPct,
		Severity:    severity,
		Description: "maximum drawdown exceeds the acceptable level",
	}}
}

// score blends win rate, profit factor, and drawdown into a 0-100 figure;
// each component is weighted toward what a trader would actually check
// first (profit factor and drawdown over raw win rate).
func (vc *ViabilityChecker) score(m types.PerformanceMetrics) int {
	score := 0

	winRate, _ := m.WinRate.Float64()
	score += clamp(int(winRate*30), 0, 30)

	if m.ProfitFactorInf {
		score += 40
	} else {
		pf, _ := m.ProfitFactor.Float64()
		if pf > 1 {
			score += clamp(int((pf-1)*40), 0, 40)
		}
	}

	dd, _ := m.MaxDrawdownPercent.Float64()
	score += clamp(30-int(dd), 0, 30)

	return clamp(score, 0, 100)
}

func scoreToGrade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

func hasCriticalIssues(issues []types.ViabilityIssue) bool {
	for _, i := range issues {
		if i.Severity == "critical" {
			return true
		}
	}
	return false
}

func summarize(grade string, critical bool) string {
	if critical {
		return "strategy is not viable for trading: critical issues found"
	}
	switch grade {
	case "A":
		return "excellent strategy with strong consistency and controlled drawdown"
	case "B":
		return "good strategy with acceptable metrics"
	case "C":
		return "adequate strategy; monitor closely and address warnings"
	case "D":
		return "marginally viable strategy; improvements recommended before trading"
	default:
		return "strategy needs substantial work before it can be considered for trading"
	}
}

func clamp(value, minVal, maxVal int) int {
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}
