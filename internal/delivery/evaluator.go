package delivery

import (
	"context"
	"fmt"
	"sort"

	"cobal/internal/catalog"
	"cobal/internal/recipient"
	dErrors "cobal/pkg/domain-errors"
	"cobal/pkg/requestcontext"
)

const hoursPerDay = 24

// Evaluator is the eligibility rule engine. It is a pure computation over
// the catalog, the recipient, the request, and committed history: the only
// I/O is the read-only history lookup, and the clock comes from the context.
// Calling Evaluate twice with unchanged inputs yields identical results.
type Evaluator struct {
	catalog *catalog.Catalog
	history HistoryAccessor
}

func NewEvaluator(cat *catalog.Catalog, history HistoryAccessor) *Evaluator {
	return &Evaluator{catalog: cat, history: history}
}

// Evaluate produces a per-item verdict and an overall accept/reject decision
// for a proposed delivery. All violations are accumulated rather than
// failing fast, so the operator sees every problem in one round trip.
//
// The returned error is reserved for history lookup failures; rule
// violations are data, not errors.
func (e *Evaluator) Evaluate(ctx context.Context, rcpt *recipient.Recipient, req Request) (*EvaluationResult, error) {
	result := &EvaluationResult{}

	itemIDs := make([]string, 0, len(req.Items))
	for itemID, qty := range req.Items {
		if qty == 0 {
			// Zero rows are how forms submit untouched fields; not a request.
			continue
		}
		itemIDs = append(itemIDs, itemID)
	}
	if len(itemIDs) == 0 {
		result.Violations = append(result.Violations, Violation{
			Code:    ViolationEmptyRequest,
			Message: "request contains no items",
		})
		return result, nil
	}
	sort.Strings(itemIDs)

	for _, itemID := range itemIDs {
		verdict, err := e.evaluateItem(ctx, rcpt, itemID, req.Items[itemID])
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, verdict)
		if verdict.Violation != nil {
			result.Violations = append(result.Violations, *verdict.Violation)
		}
	}
	return result, nil
}

// evaluateItem applies the rule chain for a single requested item. Rule
// order matters: each rule only fires when every earlier rule passed, so a
// single item reports its most fundamental problem first.
func (e *Evaluator) evaluateItem(ctx context.Context, rcpt *recipient.Recipient, itemID string, quantity int) (ItemVerdict, error) {
	verdict := ItemVerdict{ItemID: itemID, Quantity: quantity}

	item, err := e.catalog.Get(itemID)
	if err != nil {
		verdict.Violation = &Violation{
			ItemID:  itemID,
			Code:    ViolationUnknownItem,
			Message: fmt.Sprintf("item %q is not in the catalog", itemID),
		}
		return verdict, nil
	}

	if quantity < 0 {
		verdict.Violation = &Violation{
			ItemID:    itemID,
			Code:      ViolationInvalidQuantity,
			Requested: quantity,
			Message:   fmt.Sprintf("quantity for %q must be positive", itemID),
		}
		return verdict, nil
	}

	if quantity > item.MaxQuantity {
		verdict.Violation = &Violation{
			ItemID:    itemID,
			Code:      ViolationQuantityExceeded,
			Allowed:   item.MaxQuantity,
			Requested: quantity,
			Message:   fmt.Sprintf("%s: at most %d per delivery, requested %d", item.Name, item.MaxQuantity, quantity),
		}
		return verdict, nil
	}

	if !item.SexRestriction.Allows(rcpt.Sex) {
		verdict.Violation = &Violation{
			ItemID:  itemID,
			Code:    ViolationSexRestricted,
			Message: fmt.Sprintf("%s is restricted to %s recipients", item.Name, restrictionNoun(item.SexRestriction)),
		}
		return verdict, nil
	}

	if window := item.Recurrence.WindowDays(); window > 0 {
		last, ok, err := e.history.LastDeliveryOf(ctx, rcpt.ID, itemID)
		if err != nil {
			return ItemVerdict{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "delivery history lookup failed")
		}
		if ok {
			now := requestcontext.Now(ctx)
			// Whole days elapsed; a delivery exactly on the boundary day
			// (daysSince == window) is allowed.
			daysSince := int(now.Sub(last).Hours() / hoursPerDay)
			if daysSince < window {
				verdict.Violation = &Violation{
					ItemID:        itemID,
					Code:          ViolationTooSoon,
					DaysRemaining: window - daysSince,
					Message:       fmt.Sprintf("%s may only be delivered every %d days; %d remaining", item.Name, window, window-daysSince),
				}
				return verdict, nil
			}
		}
	}

	return verdict, nil
}

func restrictionNoun(sr catalog.SexRestriction) string {
	if sr == catalog.SexRestrictionFemale {
		return "female"
	}
	return "male"
}
