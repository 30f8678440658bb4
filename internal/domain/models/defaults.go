package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/milktracker/internal/domain/vacation"
)

// Defaults is the singleton configuration driving the daily auto-entry job.
type Defaults struct {
	AutoEntryEnabled bool
	DefaultQuantity  decimal.Decimal
	DefaultRate      decimal.Decimal
	Vacation         vacation.Window
	UpdatedAt        time.Time
}

// Window returns the vacation window, never nil.
func (d Defaults) Window() vacation.Window {
	if d.Vacation == nil {
		return vacation.NotSuspended{}
	}
	return d.Vacation
}
