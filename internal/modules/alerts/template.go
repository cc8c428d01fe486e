package alerts

import (
	"fmt"
	"strconv"
	"strings"
)

// RenderTemplate substitutes the known placeholders from the evaluation
// context. Unresolved placeholders stay verbatim in the output - templates
// are user-editable and a typo must never crash an evaluation pass.
//
// Supported placeholders: {budgetName}, {remainingDays}, {amount}, {category}.
func RenderTemplate(template string, ctx EvalContext) string {
	replacements := make([]string, 0, 8)

	if ctx.BudgetName != "" {
		replacements = append(replacements, "{budgetName}", ctx.BudgetName)
	}
	if ctx.Report != nil {
		replacements = append(replacements, "{remainingDays}", strconv.Itoa(ctx.Report.RemainingDays))
	}
	if ctx.Expense != nil {
		replacements = append(replacements,
			"{amount}", formatAmount(ctx.Expense.Amount),
			"{category}", ctx.Expense.Category)
	}

	if len(replacements) == 0 {
		return template
	}
	return strings.NewReplacer(replacements...).Replace(template)
}

// formatAmount renders an IDR amount without decimals.
func formatAmount(amount float64) string {
	return fmt.Sprintf("Rp%.0f", amount)
}
