// Package domain holds the typed identifiers and shared value types that
// cross module boundaries.
package domain

import (
	"fmt"

	"github.com/google/uuid"

	dErrors "cobal/pkg/domain-errors"
)

// RecipientID identifies a registered recipient.
type RecipientID uuid.UUID

// DeliveryID identifies one persisted delivery record.
type DeliveryID uuid.UUID

// OperatorID identifies the authenticated operator recording a delivery.
type OperatorID uuid.UUID

func NewRecipientID() RecipientID { return RecipientID(uuid.New()) }
func NewDeliveryID() DeliveryID   { return DeliveryID(uuid.New()) }

func (r RecipientID) String() string { return uuid.UUID(r).String() }
func (d DeliveryID) String() string  { return uuid.UUID(d).String() }
func (o OperatorID) String() string  { return uuid.UUID(o).String() }

func (r RecipientID) IsNil() bool { return uuid.UUID(r) == uuid.Nil }
func (d DeliveryID) IsNil() bool  { return uuid.UUID(d) == uuid.Nil }
func (o OperatorID) IsNil() bool  { return uuid.UUID(o) == uuid.Nil }

// The ids serialize as canonical UUID strings in JSON and log output.

func (r RecipientID) MarshalText() ([]byte, error) { return []byte(r.String()), nil }
func (d DeliveryID) MarshalText() ([]byte, error)  { return []byte(d.String()), nil }
func (o OperatorID) MarshalText() ([]byte, error)  { return []byte(o.String()), nil }

func (r *RecipientID) UnmarshalText(text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*r = RecipientID(u)
	return nil
}

func (d *DeliveryID) UnmarshalText(text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*d = DeliveryID(u)
	return nil
}

func (o *OperatorID) UnmarshalText(text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*o = OperatorID(u)
	return nil
}

// ParseRecipientID validates an externally supplied recipient id. All ids
// crossing the HTTP boundary come through one of the Parse functions.
func ParseRecipientID(raw string) (RecipientID, error) {
	u, err := parseUUID(raw, "recipient id")
	if err != nil {
		return RecipientID{}, err
	}
	return RecipientID(u), nil
}

// ParseDeliveryID validates an externally supplied delivery id.
func ParseDeliveryID(raw string) (DeliveryID, error) {
	u, err := parseUUID(raw, "delivery id")
	if err != nil {
		return DeliveryID{}, err
	}
	return DeliveryID(u), nil
}

// ParseOperatorID validates an operator id carried in a token claim.
func ParseOperatorID(raw string) (OperatorID, error) {
	u, err := parseUUID(raw, "operator id")
	if err != nil {
		return OperatorID{}, err
	}
	return OperatorID(u), nil
}

func parseUUID(raw, what string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" is required")
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s %q is not a valid UUID", what, raw))
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" must not be the nil UUID")
	}
	return u, nil
}
