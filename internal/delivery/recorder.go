package delivery

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cobal/internal/audit"
	"cobal/internal/catalog"
	"cobal/internal/delivery/metrics"
	"cobal/internal/recipient"
	id "cobal/pkg/domain"
	dErrors "cobal/pkg/domain-errors"
	"cobal/pkg/requestcontext"
)

// Service orchestrates evaluation and persistence of deliveries.
type Service struct {
	catalog        *catalog.Catalog
	evaluator      *Evaluator
	store          Store
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(cat *catalog.Catalog, store Store, opts ...Option) (*Service, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if store == nil {
		return nil, fmt.Errorf("delivery store is required")
	}

	svc := &Service{
		catalog:   cat,
		evaluator: NewEvaluator(cat, store),
		store:     store,
		logger:    slog.Default(),
		tracer:    otel.Tracer("cobal/delivery"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Evaluate runs the rule engine without persisting anything.
func (s *Service) Evaluate(ctx context.Context, rcpt *recipient.Recipient, req Request) (*EvaluationResult, error) {
	result, err := s.evaluator.Evaluate(ctx, rcpt, req)
	if err != nil {
		return nil, err
	}
	s.observeEvaluation(result)
	return result, nil
}

// Submit evaluates the request and, when accepted, persists it as a new
// immutable record stamped with the request-scoped clock.
//
// A rejected request returns a nil record ID and the verdict; nothing is
// persisted. A storage failure returns an unavailable error and the whole
// Submit call may be retried: the store guarantees all-or-nothing inserts,
// and the insert-time recurrence guard makes a concurrent duplicate surface
// as a conflict instead of a double delivery.
func (s *Service) Submit(ctx context.Context, rcpt *recipient.Recipient, req Request) (id.DeliveryID, *EvaluationResult, error) {
	ctx, span := s.tracer.Start(ctx, "delivery.Submit",
		trace.WithAttributes(attribute.String("recipient_id", rcpt.ID.String())))
	defer span.End()

	result, err := s.evaluator.Evaluate(ctx, rcpt, req)
	if err != nil {
		return id.DeliveryID{}, nil, err
	}
	s.observeEvaluation(result)

	if !result.Accepted() {
		s.emitAudit(ctx, audit.Event{
			Action:      audit.ActionDeliveryRejected,
			RecipientID: rcpt.ID,
			Detail:      rejectionDetail(result),
		})
		return id.DeliveryID{}, result, nil
	}

	record := Record{
		ID:           id.NewDeliveryID(),
		RecipientID:  rcpt.ID,
		Timestamp:    requestcontext.Now(ctx),
		Items:        acceptedQuantities(result),
		Observations: req.Observations,
		RecordedBy:   requestcontext.OperatorID(ctx),
	}

	if err := s.store.Insert(ctx, record, s.recurrenceWindows(record.Items)); err != nil {
		if s.metrics != nil {
			s.metrics.PersistenceErrors.Inc()
		}
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return id.DeliveryID{}, nil, err
		}
		return id.DeliveryID{}, nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to persist delivery")
	}

	if s.metrics != nil {
		s.metrics.DeliveriesRecorded.Inc()
	}
	s.emitAudit(ctx, audit.Event{
		Action:      audit.ActionDeliveryRecorded,
		RecipientID: rcpt.ID,
		Detail:      map[string]string{"delivery_id": record.ID.String()},
	})

	return record.ID, result, nil
}

// ListByRecipient returns a recipient's delivery history, newest first.
func (s *Service) ListByRecipient(ctx context.Context, recipientID id.RecipientID) ([]Record, error) {
	records, err := s.store.ListByRecipient(ctx, recipientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list deliveries")
	}
	return records, nil
}

// Search returns deliveries matching the filter, newest first.
func (s *Service) Search(ctx context.Context, filter SearchFilter) ([]RecordWithRecipient, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	rows, err := s.store.Search(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search deliveries")
	}
	return rows, nil
}

// recurrenceWindows maps each recurrence-limited item in the delivery to its
// minimum gap, for the store's insert-time guard.
func (s *Service) recurrenceWindows(items Quantities) map[string]int {
	windows := make(map[string]int)
	for itemID := range items {
		item, err := s.catalog.Get(itemID)
		if err != nil {
			continue
		}
		if w := item.Recurrence.WindowDays(); w > 0 {
			windows[itemID] = w
		}
	}
	return windows
}

func (s *Service) observeEvaluation(result *EvaluationResult) {
	if s.metrics == nil {
		return
	}
	outcome := "accepted"
	if !result.Accepted() {
		outcome = "rejected"
	}
	s.metrics.Evaluations.WithLabelValues(outcome).Inc()
	for _, v := range result.Violations {
		s.metrics.Rejections.WithLabelValues(string(v.Code)).Inc()
	}
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", event.Action,
			"error", err,
		)
	}
}

func acceptedQuantities(result *EvaluationResult) Quantities {
	items := make(Quantities, len(result.Items))
	for _, verdict := range result.Items {
		items[verdict.ItemID] = verdict.Quantity
	}
	return items
}

func rejectionDetail(result *EvaluationResult) map[string]string {
	detail := make(map[string]string, len(result.Violations))
	for i, v := range result.Violations {
		detail[fmt.Sprintf("violation_%d", i)] = v.String()
	}
	return detail
}
