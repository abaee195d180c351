package events

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"shellhost/pkg/logging"
)

// Handler consumes lifecycle notifications.
type Handler interface {
	Handle(ctx context.Context, n Notification) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, n Notification) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Strategy selects how registered handlers are executed for one publish.
type Strategy int

const (
	// Parallel runs all handlers concurrently, waits for every one of them,
	// then reports the joined failures. Every handler is attempted even when
	// an earlier-registered one fails.
	Parallel Strategy = iota

	// Sequential runs handlers in registration order and stops at the first
	// failure. Exists for handlers with ordering dependencies on each other.
	Sequential
)

// Publisher fans lifecycle notifications out to registered handlers. Zero
// handlers is valid: publishing is then a no-op, not an error.
type Publisher struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewPublisher creates an empty publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Subscribe registers a handler. Registration order is the execution order
// under the Sequential strategy.
func (p *Publisher) Subscribe(h Handler) {
	if h == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, h)
}

// Publish delivers the notification to every registered handler using the
// given strategy. The returned error reflects handler failures, never the
// absence of handlers.
func (p *Publisher) Publish(ctx context.Context, n Notification, strategy Strategy) error {
	p.mu.RLock()
	handlers := make([]Handler, len(p.handlers))
	copy(handlers, p.handlers)
	p.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}

	logging.Debug("Events", "Publishing %s to %d handlers: %s", n.Reason, len(handlers), n.Message)

	if strategy == Sequential {
		for _, h := range handlers {
			if err := h.Handle(ctx, n); err != nil {
				return err
			}
		}
		return nil
	}

	// Fan out, fan in, then rethrow the joined failures.
	var g errgroup.Group
	errs := make([]error, len(handlers))
	for i, h := range handlers {
		g.Go(func() error {
			errs[i] = h.Handle(ctx, n)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
