package sqlite

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
	"github.com/mamadbah2/milktracker/internal/domain/models"
	"github.com/mamadbah2/milktracker/internal/domain/vacation"
)

// defaultsRowID is the primary key of the singleton configuration row.
const defaultsRowID = 1

// entryRow maps milk_entries. The unique index on date is what keeps
// concurrent daily jobs from writing the same day twice.
type entryRow struct {
	ID        uint                `gorm:"primaryKey"`
	Date      string              `gorm:"size:10;uniqueIndex:idx_milk_entries_date;not null"`
	Quantity  decimal.Decimal     `gorm:"type:decimal(10,3);not null"`
	Rate      decimal.Decimal     `gorm:"type:decimal(10,2);not null"`
	Total     decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	Notes     string              `gorm:"type:text"`
	Source    string              `gorm:"size:16;not null;default:manual"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (entryRow) TableName() string {
	return "milk_entries"
}

// defaultsRow maps milk_defaults; only id 1 is ever used.
type defaultsRow struct {
	ID               uint            `gorm:"primaryKey;autoIncrement:false"`
	AutoEntryEnabled bool            `gorm:"not null;default:false"`
	Quantity         decimal.Decimal `gorm:"type:decimal(10,3);not null"`
	Rate             decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	VacationFrom     *string         `gorm:"size:10"`
	VacationTo       *string         `gorm:"size:10"`
	UpdatedAt        time.Time
}

func (defaultsRow) TableName() string {
	return "milk_defaults"
}

// paymentRow maps payments with one row per month key.
type paymentRow struct {
	ID         uint            `gorm:"primaryKey"`
	MonthKey   string          `gorm:"size:7;uniqueIndex:idx_payments_month_key;not null"`
	AmountPaid decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaidOn     string          `gorm:"size:10"`
	Notes      string          `gorm:"type:text"`
	CreatedAt  time.Time
}

func (paymentRow) TableName() string {
	return "payments"
}

func (r entryRow) toModel() models.MilkEntry {
	return models.MilkEntry{
		ID:        strconv.FormatUint(uint64(r.ID), 10),
		Date:      calendar.Date(r.Date),
		Quantity:  r.Quantity,
		Rate:      r.Rate,
		Total:     r.Total,
		Notes:     r.Notes,
		Source:    models.EntrySource(r.Source),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func entryRowFromModel(e models.MilkEntry) entryRow {
	source := e.Source
	if source == "" {
		source = models.SourceManual
	}
	return entryRow{
		Date:     string(e.Date),
		Quantity: e.Quantity,
		Rate:     e.Rate,
		Total:    e.Total,
		Notes:    e.Notes,
		Source:   string(source),
	}
}

func (r defaultsRow) toModel() models.Defaults {
	var from, to *calendar.Date
	if r.VacationFrom != nil {
		d := calendar.Date(*r.VacationFrom)
		from = &d
	}
	if r.VacationTo != nil {
		d := calendar.Date(*r.VacationTo)
		to = &d
	}
	return models.Defaults{
		AutoEntryEnabled: r.AutoEntryEnabled,
		DefaultQuantity:  r.Quantity,
		DefaultRate:      r.Rate,
		Vacation:         vacation.FromStored(from, to),
		UpdatedAt:        r.UpdatedAt,
	}
}

func (r paymentRow) toModel() models.Payment {
	return models.Payment{
		ID:         strconv.FormatUint(uint64(r.ID), 10),
		MonthKey:   calendar.MonthKey(r.MonthKey),
		AmountPaid: r.AmountPaid,
		PaidOn:     calendar.Date(r.PaidOn),
		Notes:      r.Notes,
		CreatedAt:  r.CreatedAt,
	}
}

func windowColumns(w vacation.Window) (*string, *string) {
	from, to := w.Bounds()
	if from == nil || to == nil {
		return nil, nil
	}
	f, t := string(*from), string(*to)
	return &f, &t
}

func parseID(id string) (uint, bool) {
	v, err := strconv.ParseUint(id, 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}
