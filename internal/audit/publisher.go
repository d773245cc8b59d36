package audit

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	id "cobal/pkg/domain"
	"cobal/pkg/requestcontext"
)

// Publisher captures structured audit events. By default events are appended
// synchronously; WithAsyncBuffer switches to a buffered channel drained by a
// background goroutine, so request paths never block on the sink.
type Publisher struct {
	store Store

	inbox chan Event
	wg    sync.WaitGroup
	once  sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous publishing with the given buffer size.
// When the buffer is full, events are dropped rather than blocking the
// request path.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan Event, size)
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.inbox {
		// Sink errors are swallowed here; the sink logs its own failures.
		_ = p.store.Append(context.Background(), event)
	}
}

// Emit records an event. Missing IDs, timestamps, and client metadata are
// filled from the context.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.OperatorID.IsNil() {
		event.OperatorID = requestcontext.OperatorID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.UserAgent == "" {
		event.UserAgent = requestcontext.UserAgent(ctx)
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("audit buffer full")
	}
}

// List returns the audit trail for one recipient.
func (p *Publisher) List(ctx context.Context, recipientID id.RecipientID) ([]Event, error) {
	return p.store.ListByRecipient(ctx, recipientID)
}

// Close drains pending async events and stops the background goroutine.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
	})
}
