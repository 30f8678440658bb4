package models

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
)

// MonthlySummary is derived from a month's entries and is never persisted.
type MonthlySummary struct {
	Month             calendar.MonthKey `json:"month"`
	TotalQuantity     decimal.Decimal   `json:"total_quantity"`
	TotalAmount       decimal.Decimal   `json:"total_amount"`
	EntryCount        int               `json:"entry_count"`
	QuantityBreakdown map[string]string `json:"quantity_breakdown"`
	Payment           PaymentStatus     `json:"payment"`
}

// PaymentStatus tells whether the month has been paid for.
type PaymentStatus struct {
	Paid    bool     `json:"paid"`
	Details *Payment `json:"details"`
}
