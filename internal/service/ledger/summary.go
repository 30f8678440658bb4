package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
	"github.com/mamadbah2/milktracker/internal/domain/models"
)

// amountPlaces is the precision of currency totals.
const amountPlaces = 2

// Summarize aggregates one month of entries. The boolean is false when no
// entry falls inside the month, which callers must report as "no data"
// rather than as a zero summary. Entries outside the month bounds are ignored.
func Summarize(month calendar.MonthKey, entries []models.MilkEntry, payment *models.Payment) (models.MonthlySummary, bool) {
	lower, upper, err := calendar.MonthBounds(month)
	if err != nil {
		return models.MonthlySummary{}, false
	}

	summary := models.MonthlySummary{
		Month:             month,
		TotalQuantity:     decimal.Zero,
		TotalAmount:       decimal.Zero,
		QuantityBreakdown: map[string]string{},
	}

	days := map[string]int{}
	for _, entry := range entries {
		if entry.Date.Before(lower) || !entry.Date.Before(upper) {
			continue
		}
		summary.EntryCount++
		summary.TotalQuantity = summary.TotalQuantity.Add(entry.Quantity)
		summary.TotalAmount = summary.TotalAmount.Add(entry.Amount())
		days[QuantityLabel(entry.Quantity)]++
	}

	if summary.EntryCount == 0 {
		return models.MonthlySummary{}, false
	}

	summary.TotalAmount = summary.TotalAmount.Round(amountPlaces)
	for label, count := range days {
		summary.QuantityBreakdown[label] = dayCount(count)
	}

	summary.Payment = models.PaymentStatus{Paid: payment != nil}
	if payment != nil {
		details := *payment
		summary.Payment.Details = &details
	}

	return summary, true
}

// QuantityLabel renders a quantity as "<q> L" with trailing zeros trimmed.
func QuantityLabel(quantity decimal.Decimal) string {
	return fmt.Sprintf("%s L", quantity.String())
}

func dayCount(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
