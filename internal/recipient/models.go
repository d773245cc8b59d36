package recipient

import (
	"time"

	id "cobal/pkg/domain"
)

// Recipient is a registered inmate who may receive deliveries.
type Recipient struct {
	ID         id.RecipientID
	Name       string
	BookNumber string // prontuario; unique within the facility
	CPF        string // optional, digits only once normalized
	Sex        id.Sex
	Wing       string
	Cell       string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// wings is the fixed layout of the facility. Cell "Seguro" in wing C is a
// regular cell; the special cells exist in every wing.
var wings = map[string][]string{
	"A": {"1", "2", "3", "4", "5", "6"},
	"B": {"1", "2", "3", "4", "5", "6", "7", "8"},
	"C": {"1", "2", "3", "Seguro"},
	"D": {"1", "2", "3"},
}

var specialCells = []string{"Trabalhadores", "Triagem", "Seguro"}

// ValidLocation reports whether the wing/cell pair exists in the facility.
func ValidLocation(wing, cell string) bool {
	cells, ok := wings[wing]
	if !ok {
		return false
	}
	for _, c := range cells {
		if c == cell {
			return true
		}
	}
	for _, c := range specialCells {
		if c == cell {
			return true
		}
	}
	return false
}

// Wings returns the wing identifiers in a stable order.
func Wings() []string {
	return []string{"A", "B", "C", "D"}
}
