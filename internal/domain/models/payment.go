package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
)

// Payment reconciles one calendar month. Stores keep at most one per MonthKey.
type Payment struct {
	ID         string            `json:"id"`
	MonthKey   calendar.MonthKey `json:"month_year"`
	AmountPaid decimal.Decimal   `json:"amount_paid"`
	PaidOn     calendar.Date     `json:"paid_on"`
	Notes      string            `json:"notes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
