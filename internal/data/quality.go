// Package data also validates historical candle tables before they are
// handed to a backtest: bad data produces misleading backtests, so gaps,
// price anomalies, and OHLC inconsistencies are caught at the edge rather
// than silently propagated into a strategy run.
package data

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/structurelab/pkg/types"
)

// QualityValidator checks a candle table's integrity ahead of a backtest.
type QualityValidator struct {
	logger *zap.Logger

	MaxIntradayMove   float64 // max (High-Low)/Low within one bar, e.g. 0.30
	MaxGapMove        float64 // max |Open-prevClose|/prevClose between bars
	MinVolume         float64 // volume below this is flagged as suspiciously thin
	MaxVolumeMultiple float64 // multiple of average volume treated as a spike
}

// DataIssue is one quality problem found at a specific bar.
type DataIssue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"` // "critical", "high", "medium", "low"
	BarIndex int    `json:"bar_index"`
	Message  string `json:"message"`
	Value    string `json:"value,omitempty"`
}

// QualityReport summarizes a Validate run.
type QualityReport struct {
	Symbol       string      `json:"symbol"`
	TotalBars    int         `json:"total_bars"`
	Issues       []DataIssue `json:"issues"`
	QualityScore int         `json:"quality_score"` // 0-100
	IsUsable     bool        `json:"is_usable"`

	MissingDataCount   int `json:"missing_data_count"`
	PriceAnomalyCount  int `json:"price_anomaly_count"`
	VolumeAnomalyCount int `json:"volume_anomaly_count"`
	OHLCErrorCount     int `json:"ohlc_error_count"`

	StartMs int64 `json:"start_ms"`
	EndMs   int64 `json:"end_ms"`

	Recommendations []string `json:"recommendations"`
}

// NewQualityValidator returns a validator with crypto-style defaults (24/7
// trading, a wide tolerance for intraday moves).
func NewQualityValidator(logger *zap.Logger) *QualityValidator {
	return &QualityValidator{
		logger:            logger,
		MaxIntradayMove:   0.30,
		MaxGapMove:        0.20,
		MinVolume:         100,
		MaxVolumeMultiple: 20.0,
	}
}

// Validate runs every check over candles and returns a graded report.
func (qv *QualityValidator) Validate(candles types.Candles, symbol string) *QualityReport {
	if len(candles) == 0 {
		return &QualityReport{
			Symbol:       symbol,
			Issues:       []DataIssue{{Type: "NO_DATA", Severity: "critical", Message: "no candles provided"}},
			QualityScore: 0,
			IsUsable:     false,
		}
	}

	var issues []DataIssue
	issues = append(issues, qv.checkMissingData(candles)...)
	issues = append(issues, qv.checkPriceAnomalies(candles)...)
	issues = append(issues, qv.checkVolumeAnomalies(candles)...)
	issues = append(issues, qv.checkOHLCConsistency(candles)...)
	issues = append(issues, qv.checkDuplicatesAndOrder(candles)...)

	score := qv.calculateQualityScore(len(candles), issues)

	return &QualityReport{
		Symbol:             symbol,
		TotalBars:          len(candles),
		Issues:             issues,
		QualityScore:       score,
		IsUsable:           score >= 70 && !hasCriticalIssues(issues),
		MissingDataCount:   countIssuesByType(issues, "GAP_DETECTED"),
		PriceAnomalyCount:  countIssuesByType(issues, "EXTREME_MOVE", "GAP_MOVE", "ZERO_PRICE", "NEGATIVE_PRICE"),
		VolumeAnomalyCount: countIssuesByType(issues, "ZERO_VOLUME", "LOW_VOLUME", "VOLUME_SPIKE"),
		OHLCErrorCount:     countIssuesByType(issues, "OHLC_INCONSISTENT"),
		StartMs:            candles[0].TimestampMs,
		EndMs:              candles[len(candles)-1].TimestampMs,
		Recommendations:    qv.generateRecommendations(issues, len(candles)),
	}
}

func (qv *QualityValidator) checkMissingData(candles types.Candles) []DataIssue {
	var issues []DataIssue
	if len(candles) < 2 {
		return issues
	}

	intervals := make([]int64, 0, 10)
	for i := 1; i < len(candles) && i <= 10; i++ {
		intervals = append(intervals, candles[i].TimestampMs-candles[i-1].TimestampMs)
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i] < intervals[j] })
	expected := intervals[len(intervals)/2]
	if expected <= 0 {
		return issues
	}

	for i := 1; i < len(candles); i++ {
		actual := candles[i].TimestampMs - candles[i-1].TimestampMs
		if actual > expected*3 {
			severity := "high"
			if actual > expected*10 {
				severity = "critical"
			}
			issues = append(issues, DataIssue{
				Type:     "GAP_DETECTED",
				Severity: severity,
				BarIndex: i - 1,
				Message:  fmt.Sprintf("gap of %dms, expected ~%dms", actual, expected),
				Value:    fmt.Sprintf("%d", actual),
			})
		}
	}
	return issues
}

func (qv *QualityValidator) checkPriceAnomalies(candles types.Candles) []DataIssue {
	var issues []DataIssue
	for i, c := range candles {
		if c.Open.IsZero() || c.High.IsZero() || c.Low.IsZero() || c.Close.IsZero() {
			issues = append(issues, DataIssue{Type: "ZERO_PRICE", Severity: "critical", BarIndex: i, Message: "zero price in OHLC"})
			continue
		}
		if c.Open.IsNegative() || c.High.IsNegative() || c.Low.IsNegative() || c.Close.IsNegative() {
			issues = append(issues, DataIssue{Type: "NEGATIVE_PRICE", Severity: "critical", BarIndex: i, Message: "negative price in OHLC"})
			continue
		}

		if !c.Low.IsZero() {
			move, _ := c.High.Sub(c.Low).Div(c.Low).Float64()
			if move > qv.MaxIntradayMove {
				issues = append(issues, DataIssue{
					Type: "EXTREME_MOVE", Severity: "high", BarIndex: i,
					Message: fmt.Sprintf("intraday move of %.2f%%", move*100),
					Value:   fmt.Sprintf("%.4f", move),
				})
			}
		}

		if i > 0 {
			prevClose := candles[i-1].Close
			if !prevClose.IsZero() {
				move, _ := c.Open.Sub(prevClose).Div(prevClose).Abs().Float64()
				if move > qv.MaxGapMove {
					issues = append(issues, DataIssue{
						Type: "GAP_MOVE", Severity: "medium", BarIndex: i,
						Message: fmt.Sprintf("open gapped %.2f%% from prior close", move*100),
						Value:   fmt.Sprintf("%.4f", move),
					})
				}
			}
		}
	}
	return issues
}

func (qv *QualityValidator) checkVolumeAnomalies(candles types.Candles) []DataIssue {
	var issues []DataIssue

	var total float64
	nonZero := 0
	for _, c := range candles {
		if c.Volume > 0 {
			total += c.Volume
			nonZero++
		}
	}
	avg := 0.0
	if nonZero > 0 {
		avg = total / float64(nonZero)
	}

	for i, c := range candles {
		switch {
		case c.Volume == 0:
			issues = append(issues, DataIssue{Type: "ZERO_VOLUME", Severity: "low", BarIndex: i, Message: "zero volume bar"})
		case c.Volume < qv.MinVolume:
			issues = append(issues, DataIssue{Type: "LOW_VOLUME", Severity: "low", BarIndex: i, Message: "volume below threshold", Value: fmt.Sprintf("%.2f", c.Volume)})
		case avg > 0 && c.Volume > avg*qv.MaxVolumeMultiple:
			issues = append(issues, DataIssue{
				Type: "VOLUME_SPIKE", Severity: "low", BarIndex: i,
				Message: fmt.Sprintf("volume %.1fx the average", c.Volume/avg),
				Value:   fmt.Sprintf("%.2f", c.Volume),
			})
		}
	}
	return issues
}

func (qv *QualityValidator) checkOHLCConsistency(candles types.Candles) []DataIssue {
	var issues []DataIssue
	for i, c := range candles {
		if c.High.LessThan(c.Open) || c.High.LessThan(c.Close) || c.High.LessThan(c.Low) {
			issues = append(issues, DataIssue{Type: "OHLC_INCONSISTENT", Severity: "critical", BarIndex: i, Message: "high is not the highest price"})
		}
		if c.Low.GreaterThan(c.Open) || c.Low.GreaterThan(c.Close) || c.Low.GreaterThan(c.High) {
			issues = append(issues, DataIssue{Type: "OHLC_INCONSISTENT", Severity: "critical", BarIndex: i, Message: "low is not the lowest price"})
		}
	}
	return issues
}

func (qv *QualityValidator) checkDuplicatesAndOrder(candles types.Candles) []DataIssue {
	var issues []DataIssue
	seen := make(map[int64]int, len(candles))
	for i, c := range candles {
		if first, ok := seen[c.TimestampMs]; ok {
			issues = append(issues, DataIssue{Type: "DUPLICATE_TIMESTAMP", Severity: "high", BarIndex: i, Message: fmt.Sprintf("duplicate of bar %d", first)})
		} else {
			seen[c.TimestampMs] = i
		}
		if i > 0 && c.TimestampMs < candles[i-1].TimestampMs {
			issues = append(issues, DataIssue{Type: "OUT_OF_ORDER", Severity: "critical", BarIndex: i, Message: "bar precedes the one before it"})
		}
	}
	return issues
}

// calculateQualityScore weighs issues by severity, normalized so a larger
// table tolerates proportionally more minor issues before its score drops.
func (qv *QualityValidator) calculateQualityScore(totalBars int, issues []DataIssue) int {
	penalty := 0.0
	for _, issue := range issues {
		switch issue.Severity {
		case "critical":
			penalty += 10.0
		case "high":
			penalty += 5.0
		case "medium":
			penalty += 2.0
		case "low":
			penalty += 0.5
		}
	}
	normalized := penalty / math.Max(1, float64(totalBars)/100) * 10
	score := 100.0 - math.Min(normalized, 100)
	return int(math.Max(0, math.Min(100, score)))
}

func hasCriticalIssues(issues []DataIssue) bool {
	for _, issue := range issues {
		if issue.Severity == "critical" {
			return true
		}
	}
	return false
}

func (qv *QualityValidator) generateRecommendations(issues []DataIssue, totalBars int) []string {
	counts := make(map[string]int)
	for _, issue := range issues {
		counts[issue.Type]++
	}

	var recs []string
	if counts["GAP_DETECTED"] > 0 {
		recs = append(recs, "fill or exclude the detected gaps before backtesting across them")
	}
	if counts["OHLC_INCONSISTENT"] > 0 {
		recs = append(recs, "OHLC inconsistencies found; verify the data source or run CleanCandles")
	}
	if counts["EXTREME_MOVE"] > totalBars/100 {
		recs = append(recs, "many extreme intraday moves; consider a different source or timeframe")
	}
	if counts["DUPLICATE_TIMESTAMP"] > 0 {
		recs = append(recs, "remove duplicate timestamps before use")
	}
	if counts["OUT_OF_ORDER"] > 0 {
		recs = append(recs, "sort candles by timestamp before use")
	}
	if len(recs) == 0 {
		recs = append(recs, "data quality is acceptable for backtesting")
	}
	return recs
}

func countIssuesByType(issues []DataIssue, types ...string) int {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	count := 0
	for _, issue := range issues {
		if set[issue.Type] {
			count++
		}
	}
	return count
}

// CleanCandles sorts, de-duplicates, and repairs a candle table: bars with
// non-positive prices are dropped, and High/Low are widened to encompass
// Open/Close where a feed reported them too tight.
func CleanCandles(candles types.Candles) types.Candles {
	if len(candles) == 0 {
		return candles
	}

	sorted := make(types.Candles, len(candles))
	copy(sorted, candles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TimestampMs < sorted[j].TimestampMs })

	cleaned := make(types.Candles, 0, len(sorted))
	seen := make(map[int64]bool, len(sorted))
	for _, c := range sorted {
		if seen[c.TimestampMs] {
			continue
		}
		seen[c.TimestampMs] = true

		if c.Open.LessThanOrEqual(decimal.Zero) || c.High.LessThanOrEqual(decimal.Zero) ||
			c.Low.LessThanOrEqual(decimal.Zero) || c.Close.LessThanOrEqual(decimal.Zero) {
			continue
		}

		c.High = decimal.Max(c.Open, decimal.Max(c.High, c.Close))
		c.Low = decimal.Min(c.Open, decimal.Min(c.Low, c.Close))
		cleaned = append(cleaned, c)
	}

	return cleaned
}
