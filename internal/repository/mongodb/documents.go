package mongodb

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
	"github.com/mamadbah2/milktracker/internal/domain/models"
	"github.com/mamadbah2/milktracker/internal/domain/vacation"
)

// Decimal values are stored as strings so they round-trip without float drift.

type entryDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Date      string             `bson:"date"`
	Quantity  string             `bson:"quantity"`
	Rate      string             `bson:"rate"`
	Total     *string            `bson:"total,omitempty"`
	Notes     string             `bson:"notes,omitempty"`
	Source    string             `bson:"source"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

type defaultsDocument struct {
	ID               int       `bson:"_id"`
	AutoEntryEnabled bool      `bson:"auto_entry_enabled"`
	Quantity         string    `bson:"quantity"`
	Rate             string    `bson:"rate"`
	VacationFrom     *string   `bson:"vacation_from"`
	VacationTo       *string   `bson:"vacation_to"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

type paymentDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	MonthKey   string             `bson:"month_key"`
	AmountPaid string             `bson:"amount_paid"`
	PaidOn     string             `bson:"paid_on"`
	Notes      string             `bson:"notes,omitempty"`
	CreatedAt  time.Time          `bson:"created_at"`
}

func entryDocumentFromModel(e models.MilkEntry, now time.Time) entryDocument {
	source := e.Source
	if source == "" {
		source = models.SourceManual
	}
	doc := entryDocument{
		Date:      string(e.Date),
		Quantity:  e.Quantity.String(),
		Rate:      e.Rate.String(),
		Notes:     e.Notes,
		Source:    string(source),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if e.Total.Valid {
		total := e.Total.Decimal.String()
		doc.Total = &total
	}
	return doc
}

func (d entryDocument) toModel() (models.MilkEntry, error) {
	quantity, err := parseDecimal("quantity", d.Quantity)
	if err != nil {
		return models.MilkEntry{}, err
	}
	rate, err := parseDecimal("rate", d.Rate)
	if err != nil {
		return models.MilkEntry{}, err
	}
	entry := models.MilkEntry{
		ID:        d.ID.Hex(),
		Date:      calendar.Date(d.Date),
		Quantity:  quantity,
		Rate:      rate,
		Notes:     d.Notes,
		Source:    models.EntrySource(d.Source),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.Total != nil {
		total, err := parseDecimal("total", *d.Total)
		if err != nil {
			return models.MilkEntry{}, err
		}
		entry.Total = decimal.NewNullDecimal(total)
	}
	return entry, nil
}

func (d defaultsDocument) toModel() (models.Defaults, error) {
	quantity, err := parseDecimal("quantity", d.Quantity)
	if err != nil {
		return models.Defaults{}, err
	}
	rate, err := parseDecimal("rate", d.Rate)
	if err != nil {
		return models.Defaults{}, err
	}
	var from, to *calendar.Date
	if d.VacationFrom != nil {
		v := calendar.Date(*d.VacationFrom)
		from = &v
	}
	if d.VacationTo != nil {
		v := calendar.Date(*d.VacationTo)
		to = &v
	}
	return models.Defaults{
		AutoEntryEnabled: d.AutoEntryEnabled,
		DefaultQuantity:  quantity,
		DefaultRate:      rate,
		Vacation:         vacation.FromStored(from, to),
		UpdatedAt:        d.UpdatedAt,
	}, nil
}

func (d paymentDocument) toModel() (models.Payment, error) {
	amount, err := parseDecimal("amount_paid", d.AmountPaid)
	if err != nil {
		return models.Payment{}, err
	}
	return models.Payment{
		ID:         d.ID.Hex(),
		MonthKey:   calendar.MonthKey(d.MonthKey),
		AmountPaid: amount,
		PaidOn:     calendar.Date(d.PaidOn),
		Notes:      d.Notes,
		CreatedAt:  d.CreatedAt,
	}, nil
}

func windowFields(w vacation.Window) (*string, *string) {
	from, to := w.Bounds()
	if from == nil || to == nil {
		return nil, nil
	}
	f, t := string(*from), string(*to)
	return &f, &t
}

// parseDecimal refuses to turn an unreadable stored amount into zero.
func parseDecimal(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("corrupt %s %q: %w", field, value, err)
	}
	return d, nil
}
