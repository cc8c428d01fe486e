package burnrate

import (
	"fmt"

	"github.com/leosinemaxx/jatour-engine/internal/domain"
)

// recommendations builds the ordered advice list for a report. The list is
// fully deterministic: risk-level advice first, then velocity advice, then
// the top-category callout when risk warrants it.
func recommendations(report *domain.BurnRateReport, topCategory string) []string {
	recs := make([]string, 0, 4)

	switch report.RiskLevel {
	case domain.RiskCritical:
		recs = append(recs,
			"Budget exhaustion is imminent - pause non-essential spending today",
			"Switch remaining bookings to budget-tier options where possible")
	case domain.RiskHigh:
		recs = append(recs,
			"Spending is well above your daily allowance - cut back on dining and entertainment")
	case domain.RiskMedium:
		recs = append(recs,
			"Spending is slightly above plan - keep an eye on daily expenses")
	default:
		recs = append(recs,
			"Spending is on track - no changes needed")
	}

	if report.Velocity > VelocityAdjustmentThreshold {
		recs = append(recs,
			"Spending is accelerating - review your last few days of expenses")
	} else if report.Velocity < -VelocityAdjustmentThreshold {
		recs = append(recs,
			"Spending is slowing down - your projection should improve over the next days")
	}

	if topCategory != "" && report.RiskLevel != domain.RiskLow {
		recs = append(recs,
			fmt.Sprintf("Your largest spending category is %s - look for deals there first", topCategory))
	}

	return recs
}
