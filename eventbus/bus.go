// Package eventbus implements the per-session, single-producer/
// multi-subscriber event stream spec.md §4.5 describes: no historical
// replay, bounded per-subscriber queues, and backpressure handled by
// dropping the event and emitting a synthetic warning log rather than
// ever blocking the publisher on a slow subscriber.
//
// Grounded on agent/event.go's SimpleEventBus (buffered channel +
// atomic subscription counter), generalized here from one process-global
// bus into a map of per-session subscriber sets, since spec.md scopes the
// event stream to a single session rather than the whole process.
package eventbus

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// DefaultQueueSize is the recommended (non-normative) per-subscriber
// buffer capacity from spec.md §5.
const DefaultQueueSize = 256

type subscriber struct {
	id int64
	ch chan Event
}

// Bus is a per-session event fan-out. The zero value is not usable; call
// New or NewWithQueueSize.
type Bus struct {
	mu        sync.RWMutex
	subs      map[string]map[int64]*subscriber
	counter   atomic.Int64
	queueSize int
	logger    *zap.Logger
}

// New returns a Bus using DefaultQueueSize. A nil logger falls back to
// zap.NewNop(), matching the teacher's convention throughout agent/*.go.
func New(logger *zap.Logger) *Bus {
	return NewWithQueueSize(logger, DefaultQueueSize)
}

// NewWithQueueSize returns a Bus with a caller-chosen per-subscriber
// buffer capacity.
func NewWithQueueSize(logger *zap.Logger, queueSize int) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Bus{
		subs:      make(map[string]map[int64]*subscriber),
		queueSize: queueSize,
		logger:    logger.With(zap.String("component", "eventbus")),
	}
}

// Subscribe registers a new subscriber for sessionID. It never blocks and
// is safe to call concurrently with Publish and with other Subscribe/
// Unsubscribe calls. The returned channel receives events published from
// this point on — there is no replay of events published before
// Subscribe was called. The returned func unsubscribes; it is idempotent
// and safe to call more than once.
func (b *Bus) Subscribe(sessionID string) (<-chan Event, func()) {
	id := b.counter.Add(1)
	sub := &subscriber{id: id, ch: make(chan Event, b.queueSize)}

	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[int64]*subscriber)
	}
	b.subs[sessionID][id] = sub
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if m, ok := b.subs[sessionID]; ok {
				delete(m, id)
				if len(m) == 0 {
					delete(b.subs, sessionID)
				}
			}
		})
	}
	return sub.ch, unsubscribe
}

// Publish delivers event to every subscriber currently registered for
// event.SessionID. A subscriber whose buffered queue is full never
// blocks Publish: the event is dropped and a best-effort synthetic
// KindLog{level=warn} event is queued in its place. Publish itself never
// blocks regardless of how many or how slow the subscribers are.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	m := b.subs[event.SessionID]
	targets := make([]*subscriber, 0, len(m))
	for _, s := range m {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		select {
		case s.ch <- event:
		default:
			b.logger.Warn("subscriber queue full, dropping event",
				zap.String("session_id", event.SessionID),
				zap.String("kind", string(event.Kind)))
			warn := Event{
				Kind:      KindLog,
				SessionID: event.SessionID,
				Timestamp: event.Timestamp,
				Payload:   LogPayload{Level: LogLevelWarn, Message: "event dropped: subscriber queue full"},
			}
			select {
			case s.ch <- warn:
			default:
			}
		}
	}
}

// SubscriberCount reports how many subscribers are currently registered
// for sessionID. Test-only convenience for R3 (subscribe/unsubscribe
// churn doesn't alter surviving-subscriber content).
func (b *Bus) SubscriberCount(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[sessionID])
}

// Forget drops all subscriber bookkeeping for sessionID without notifying
// them. The session runtime calls this once a session reaches a terminal
// state so per-session maps don't accumulate forever; subscribers that
// are still reading simply see no further events on their channel.
func (b *Bus) Forget(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sessionID)
}
