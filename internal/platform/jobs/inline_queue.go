package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
)

const defaultInlineTimeout = 30 * time.Second

// InlineQueue hands notifications to handler on a background goroutine in this process.
type InlineQueue struct {
	handler Handler
	onError func(context.Context, domain.Notification, error)
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewInlineQueue constructs an InlineQueue. onError may be nil.
func NewInlineQueue(handler Handler, onError func(context.Context, domain.Notification, error)) (*InlineQueue, error) {
	if handler == nil {
		return nil, errors.New("inline queue: handler is required")
	}
	return &InlineQueue{handler: handler, onError: onError, timeout: defaultInlineTimeout}, nil
}

// Enqueue schedules delivery and returns immediately. The request context's values
// survive but its cancellation does not.
func (q *InlineQueue) Enqueue(ctx context.Context, n domain.Notification) error {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.timeout)
		defer cancel()
		if err := q.handler(runCtx, n); err != nil && q.onError != nil {
			q.onError(runCtx, n, err)
		}
	}()
	return nil
}

// Wait blocks until scheduled deliveries finish.
func (q *InlineQueue) Wait() {
	q.wg.Wait()
}
