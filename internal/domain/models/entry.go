package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
)

// EntrySource tells manual entries apart from the ones created by the daily job.
type EntrySource string

const (
	SourceManual EntrySource = "manual"
	SourceAuto   EntrySource = "auto"
)

// MilkEntry captures one day's delivery. Stores keep at most one entry per Date.
type MilkEntry struct {
	ID       string          `json:"id"`
	Date     calendar.Date   `json:"date"`
	Quantity decimal.Decimal `json:"quantity"`
	Rate     decimal.Decimal `json:"rate"`
	// Total is set when the store persists the amount independently of
	// Quantity*Rate. It takes precedence during aggregation.
	Total     decimal.NullDecimal `json:"total"`
	Notes     string              `json:"notes,omitempty"`
	Source    EntrySource         `json:"source"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Amount returns the billed value of the entry.
func (e MilkEntry) Amount() decimal.Decimal {
	if e.Total.Valid {
		return e.Total.Decimal
	}
	return e.Quantity.Mul(e.Rate)
}
