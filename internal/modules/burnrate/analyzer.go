// Package burnrate turns a dated expense series into burn-rate statistics,
// a risk classification and a budget exhaustion projection.
package burnrate

import (
	"math"
	"sort"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/leosinemaxx/jatour-engine/internal/clock"
	"github.com/leosinemaxx/jatour-engine/internal/domain"
)

// Blend weights for the projected burn rate and the windows they apply to.
const (
	DailyWeight   = 0.5
	WeeklyWeight  = 0.3
	MonthlyWeight = 0.2

	WeeklyWindow  = 7
	MonthlyWindow = 30

	// Relative change beyond which a window is classified as trending.
	TrendThreshold = 0.10

	// Velocity magnitude beyond which the risk ratio is adjusted.
	VelocityAdjustmentThreshold = 0.2
	VelocityRiskAdjustment      = 0.2

	// Adjusted burn-rate ratio thresholds for risk classification.
	CriticalRatio = 1.5
	HighRatio     = 1.2
	MediumRatio   = 0.9

	// Far-future sentinel when the projected burn rate is zero.
	exhaustionHorizonDays = 365
)

// Input carries everything Analyze needs. Expenses come from the
// expense-tracking collaborator; budget figures from the budget record.
type Input struct {
	Expenses      []domain.ExpenseSample
	ElapsedDays   int
	TotalBudget   float64
	Spent         float64
	RemainingDays int
}

// Analyzer computes burn-rate reports. Pure and stateless apart from the
// injected clock; safe for concurrent use.
type Analyzer struct {
	clock clock.Clock
	log   zerolog.Logger
}

// NewAnalyzer creates a burn-rate analyzer.
func NewAnalyzer(clk clock.Clock, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		clock: clk,
		log:   log.With().Str("module", "burnrate").Logger(),
	}
}

// Analyze computes the full burn-rate report for one budget.
// Degenerate inputs (no expenses, zero budget) produce zeroed statistics
// rather than errors; only remainingDays drives the unconditional critical
// classification.
func (a *Analyzer) Analyze(in Input) *domain.BurnRateReport {
	daily := groupByDay(in.Expenses)

	dailyAvg := mean(daily)
	weeklyAvg := windowAverage(daily, WeeklyWindow)
	monthlyAvg := windowAverage(daily, MonthlyWindow)

	velocity := velocity(daily)
	trend := classifyTrend(daily)

	projected := DailyWeight*dailyAvg + WeeklyWeight*weeklyAvg + MonthlyWeight*monthlyAvg
	projected *= 1 + 0.1*velocity
	if projected < 0 {
		projected = 0
	}

	remaining := in.TotalBudget - in.Spent
	if remaining < 0 {
		remaining = 0
	}

	risk := classifyRisk(projected, remaining, in.RemainingDays, velocity)

	report := &domain.BurnRateReport{
		DailyAverage:        dailyAvg,
		WeeklyAverage:       weeklyAvg,
		MonthlyAverage:      monthlyAvg,
		Trend:               trend,
		Velocity:            velocity,
		ProjectedDailyBurn:  projected,
		RiskLevel:           risk,
		RemainingDays:       in.RemainingDays,
		RemainingBudget:     remaining,
		ProjectedExhaustion: a.projectExhaustion(remaining, projected),
	}
	report.Recommendations = recommendations(report, topCategory(in.Expenses))

	a.log.Debug().
		Str("risk", string(risk)).
		Float64("projected_daily_burn", projected).
		Float64("velocity", velocity).
		Msg("Burn-rate report computed")

	return report
}

// groupByDay sums expense amounts per calendar day and returns the daily
// totals in chronological order.
func groupByDay(expenses []domain.ExpenseSample) []float64 {
	if len(expenses) == 0 {
		return nil
	}

	totals := make(map[time.Time]float64, len(expenses))
	for _, e := range expenses {
		day := e.Date.Truncate(24 * time.Hour)
		totals[day] += e.Amount
	}

	days := make([]time.Time, 0, len(totals))
	for day := range totals {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	series := make([]float64, len(days))
	for i, day := range days {
		series[i] = totals[day]
	}
	return series
}

// windowAverage returns the mean of the last `window` entries. Short series
// fall back to the plain mean; full windows use the tail of the SMA series.
func windowAverage(series []float64, window int) float64 {
	if len(series) == 0 {
		return 0
	}
	if len(series) < window {
		return mean(series)
	}
	sma := talib.Sma(series, window)
	return sma[len(sma)-1]
}

func mean(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return stat.Mean(series, nil)
}

// velocity is the OLS slope of daily amount vs sequence index, normalized
// by the mean amount. Unitless acceleration indicator; 0 below 3 points.
func velocity(series []float64) float64 {
	if len(series) < 3 {
		return 0
	}

	xs := make([]float64, len(series))
	for i := range xs {
		xs[i] = float64(i)
	}

	_, slope := stat.LinearRegression(xs, series, nil, false)
	m := mean(series)
	if m == 0 || math.IsNaN(slope) {
		return 0
	}
	return slope / m
}

// classifyTrend compares the mean of the most recent 7 points to the mean of
// the preceding 7. Fewer than 14 points is always stable.
func classifyTrend(series []float64) domain.Trend {
	if len(series) < 2*WeeklyWindow {
		return domain.TrendStable
	}

	recent := mean(series[len(series)-WeeklyWindow:])
	previous := mean(series[len(series)-2*WeeklyWindow : len(series)-WeeklyWindow])
	if previous == 0 {
		return domain.TrendStable
	}

	change := (recent - previous) / previous
	switch {
	case change > TrendThreshold:
		return domain.TrendIncreasing
	case change < -TrendThreshold:
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}

// classifyRisk maps the burn-rate ratio to the four-level scale.
// remainingDays == 0 is unconditionally critical.
func classifyRisk(projected, remaining float64, remainingDays int, velocity float64) domain.RiskLevel {
	if remainingDays == 0 {
		return domain.RiskCritical
	}

	allowance := remaining / float64(remainingDays)
	if allowance <= 0 {
		if projected > 0 {
			return domain.RiskCritical
		}
		return domain.RiskLow
	}

	ratio := projected / allowance
	if velocity > VelocityAdjustmentThreshold {
		ratio += VelocityRiskAdjustment
	} else if velocity < -VelocityAdjustmentThreshold {
		ratio -= VelocityRiskAdjustment
	}

	switch {
	case ratio > CriticalRatio:
		return domain.RiskCritical
	case ratio > HighRatio:
		return domain.RiskHigh
	case ratio > MediumRatio:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// projectExhaustion estimates when the remaining budget runs out at the
// projected burn rate. Zero burn rate yields a far-future sentinel.
func (a *Analyzer) projectExhaustion(remaining, projected float64) time.Time {
	now := a.clock.Now()
	if projected <= 0 {
		return now.AddDate(0, 0, exhaustionHorizonDays)
	}

	days := remaining / projected
	if days > exhaustionHorizonDays {
		days = exhaustionHorizonDays
	}
	return now.Add(time.Duration(days * float64(24*time.Hour)))
}

// topCategory returns the category with the highest spend, or "" when no
// expenses carry a category.
func topCategory(expenses []domain.ExpenseSample) string {
	totals := make(map[string]float64)
	for _, e := range expenses {
		if e.Category != "" {
			totals[e.Category] += e.Amount
		}
	}

	top := ""
	best := 0.0
	// Deterministic tie-break: lexicographically smallest category wins.
	for category, total := range totals {
		if total > best || (total == best && top != "" && category < top) {
			top = category
			best = total
		}
	}
	return top
}
