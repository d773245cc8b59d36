package catalog

import (
	id "cobal/pkg/domain"
)

// Recurrence is how often an item may be redelivered to the same recipient.
type Recurrence string

const (
	// RecurrenceOneTime items carry no redelivery window; only quantity and
	// sex rules apply.
	RecurrenceOneTime Recurrence = "one-time"
	// RecurrenceEvery15Days items may be redelivered after 15 full days.
	RecurrenceEvery15Days Recurrence = "every-15-days"
	// RecurrenceEvery90Days items may be redelivered after 90 full days.
	RecurrenceEvery90Days Recurrence = "every-90-days"
)

func (r Recurrence) IsValid() bool {
	switch r {
	case RecurrenceOneTime, RecurrenceEvery15Days, RecurrenceEvery90Days:
		return true
	}
	return false
}

// WindowDays returns the minimum gap in days between deliveries of an item
// with this recurrence, or 0 when no window applies.
func (r Recurrence) WindowDays() int {
	switch r {
	case RecurrenceEvery15Days:
		return 15
	case RecurrenceEvery90Days:
		return 90
	default:
		return 0
	}
}

// SexRestriction limits an item to recipients of one sex.
type SexRestriction string

const (
	SexRestrictionNone   SexRestriction = ""
	SexRestrictionMale   SexRestriction = "male-only"
	SexRestrictionFemale SexRestriction = "female-only"
)

func (sr SexRestriction) IsValid() bool {
	switch sr {
	case SexRestrictionNone, SexRestrictionMale, SexRestrictionFemale:
		return true
	}
	return false
}

// Allows reports whether a recipient of the given sex may receive the item.
func (sr SexRestriction) Allows(sex id.Sex) bool {
	switch sr {
	case SexRestrictionMale:
		return sex == id.SexMale
	case SexRestrictionFemale:
		return sex == id.SexFemale
	default:
		return true
	}
}

// ItemDefinition is immutable reference data describing one deliverable item.
// Loaded once at startup and never mutated at runtime.
type ItemDefinition struct {
	ID             string         `yaml:"id"`
	Name           string         `yaml:"name"`
	Unit           string         `yaml:"unit"`
	MaxQuantity    int            `yaml:"max"`
	Recurrence     Recurrence     `yaml:"class"`
	SexRestriction SexRestriction `yaml:"sex,omitempty"`
}
