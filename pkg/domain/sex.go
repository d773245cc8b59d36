package domain

import dErrors "cobal/pkg/domain-errors"

// Sex is the registered sex of a recipient, used to evaluate sex-restricted
// catalog items.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// ParseSex validates a sex value at the trust boundary.
func ParseSex(s string) (Sex, error) {
	switch Sex(s) {
	case SexMale, SexFemale:
		return Sex(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "sex must be male or female")
	}
}

func (s Sex) IsValid() bool {
	return s == SexMale || s == SexFemale
}
