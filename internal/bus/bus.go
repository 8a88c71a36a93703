// File: internal/bus/bus.go
package bus

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// DefaultBufferSize is the per-subscriber ring capacity used when the caller
// passes a non-positive size.
const DefaultBufferSize = 128

// ErrClosed is returned by Recv once the bus has shut down and the
// subscriber's buffer is drained.
var ErrClosed = fmt.Errorf("bus: closed")

// LaggedError reports that a slow subscriber missed messages. The subscriber
// stays attached; the next Recv returns the oldest message still buffered.
type LaggedError struct {
	Skipped uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("bus: subscriber lagged, skipped %d messages", e.Skipped)
}

// Bus is a lossy broadcast channel. Every subscriber owns a bounded ring
// buffer; when a publish finds a full ring the oldest entry is discarded and
// the subscriber's lag counter is incremented. Publish never blocks on slow
// consumers.
type Bus[T any] struct {
	logger *zap.Logger

	mu      sync.Mutex
	subs    map[uint64]*Subscription[T]
	nextID  uint64
	bufSize int
	closed  bool
}

// New creates a Bus whose subscribers each buffer up to bufferSize messages.
func New[T any](logger *zap.Logger, bufferSize int) *Bus[T] {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Bus[T]{
		logger:  logger.Named("bus"),
		subs:    make(map[uint64]*Subscription[T]),
		bufSize: bufferSize,
	}
}

// Publish broadcasts msg to every current subscriber and returns the number
// of subscribers the message was enqueued for. Publishing to a bus with no
// subscribers is a no-op, not an error.
func (b *Bus[T]) Publish(msg T) int {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return 0
	}
	targets := make([]*Subscription[T], 0, len(b.subs))
	for _, sub := range b.subs {
		targets = append(targets, sub)
	}
	b.mu.Unlock()

	for _, sub := range targets {
		sub.enqueue(msg)
	}
	return len(targets)
}

// Subscribe attaches a new subscriber. The caller must Close the subscription
// when done listening.
func (b *Bus[T]) Subscribe() *Subscription[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription[T]{
		bus:    b,
		cap:    b.bufSize,
		notify: make(chan struct{}, 1),
		closed: b.closed,
	}
	if !b.closed {
		sub.id = b.nextID
		b.nextID++
		b.subs[sub.id] = sub
	}
	return sub
}

// SubscriberCount reports the number of attached subscribers.
func (b *Bus[T]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close shuts the bus down. Attached subscribers may still drain whatever is
// buffered; after that, Recv returns ErrClosed.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[uint64]*Subscription[T])
	b.mu.Unlock()

	for _, sub := range subs {
		sub.markClosed()
	}
	b.logger.Debug("Bus closed.", zap.Int("subscribers", len(subs)))
}

// detach removes a subscription from the broadcast set.
func (b *Bus[T]) detach(id uint64) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

// Subscription is one subscriber's view of the bus.
type Subscription[T any] struct {
	bus *Bus[T]
	id  uint64
	cap int

	mu     sync.Mutex
	queue  []T
	lag    uint64
	closed bool

	// notify carries at most one pending wakeup for a blocked Recv.
	notify chan struct{}
}

func (s *Subscription[T]) enqueue(msg T) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.queue) >= s.cap {
		// Drop the oldest entry so the subscriber always converges on the
		// most recent messages.
		copy(s.queue, s.queue[1:])
		s.queue = s.queue[:len(s.queue)-1]
		s.lag++
	}
	s.queue = append(s.queue, msg)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription[T]) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Recv blocks until a message arrives, the context ends, or the bus closes.
// If the subscriber fell behind since the previous Recv, it returns a
// *LaggedError with the skipped count; the next call returns the oldest
// message still buffered.
func (s *Subscription[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	for {
		s.mu.Lock()
		if s.lag > 0 {
			skipped := s.lag
			s.lag = 0
			s.mu.Unlock()
			return zero, &LaggedError{Skipped: skipped}
		}
		if len(s.queue) > 0 {
			msg := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return msg, nil
		}
		if s.closed {
			s.mu.Unlock()
			return zero, ErrClosed
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// TryRecv is the non-blocking variant of Recv. ok is false when nothing is
// buffered and no lag is pending.
func (s *Subscription[T]) TryRecv() (msg T, ok bool, err error) {
	var zero T
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lag > 0 {
		skipped := s.lag
		s.lag = 0
		return zero, true, &LaggedError{Skipped: skipped}
	}
	if len(s.queue) > 0 {
		m := s.queue[0]
		s.queue = s.queue[1:]
		return m, true, nil
	}
	if s.closed {
		return zero, true, ErrClosed
	}
	return zero, false, nil
}

// Pending reports how many messages are buffered for this subscriber.
func (s *Subscription[T]) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Close detaches the subscription from the bus and discards its buffer.
func (s *Subscription[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.queue = nil
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.detach(s.id)
	}
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
