// Package vacation models the date range during which automatic milk entries
// are not created.
package vacation

import (
	"errors"
	"fmt"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
)

// ErrInvalidRange is returned for a window with a single bound or with from after to.
var ErrInvalidRange = errors.New("invalid vacation range")

// Window is either Suspended or NotSuspended.
type Window interface {
	// Bounds returns the stored representation, nil pointers when not suspended.
	Bounds() (from, to *calendar.Date)
	window()
}

// Suspended is an inclusive range of days without automatic entries.
type Suspended struct {
	From calendar.Date
	To   calendar.Date
}

// NotSuspended means automatic entries run every day.
type NotSuspended struct{}

func (s Suspended) Bounds() (*calendar.Date, *calendar.Date) {
	from, to := s.From, s.To
	return &from, &to
}

func (NotSuspended) Bounds() (*calendar.Date, *calendar.Date) { return nil, nil }

func (Suspended) window()    {}
func (NotSuspended) window() {}

// Validate rejects partial windows and inverted ranges. Clearing both bounds is valid.
func Validate(from, to *calendar.Date) error {
	switch {
	case from == nil && to == nil:
		return nil
	case from == nil || to == nil:
		return fmt.Errorf("%w: from and to must be set or cleared together", ErrInvalidRange)
	case from.After(*to):
		return fmt.Errorf("%w: %s is after %s", ErrInvalidRange, *from, *to)
	}
	return nil
}

// New validates the bounds and builds the matching Window.
func New(from, to *calendar.Date) (Window, error) {
	if err := Validate(from, to); err != nil {
		return nil, err
	}
	if from == nil {
		return NotSuspended{}, nil
	}
	return Suspended{From: *from, To: *to}, nil
}

// FromStored reads bounds persisted by a store. Anything that would not pass
// Validate is treated as not suspended rather than as an open-ended range.
func FromStored(from, to *calendar.Date) Window {
	w, err := New(from, to)
	if err != nil {
		return NotSuspended{}
	}
	return w
}

// IsActive reports whether ref falls inside a suspended window, both ends inclusive.
func IsActive(w Window, ref calendar.Date) bool {
	s, ok := w.(Suspended)
	if !ok {
		return false
	}
	return !ref.Before(s.From) && !ref.After(s.To)
}
