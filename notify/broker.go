// Package notify fans "data updated" notifications out to in-process watchers.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Update announces that a batch changed on the ledger.
type Update struct {
	BatchID string    `json:"batchId"`
	EventID string    `json:"eventId"`
	At      time.Time `json:"at"`
}

// Subscription receives updates until its disposer is called.
type Subscription <-chan Update

// Notifier is the subscription surface watchers depend on.
type Notifier interface {
	Subscribe() (Subscription, func())
	Publish(u Update)
}

// Broker fans updates out to subscribers in process.
type Broker struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Update
	nextID uint64
	closed bool
	logger *zap.Logger
}

func NewBroker(logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		subs:   make(map[uint64]chan Update),
		logger: logger,
	}
}

// Subscribe registers a watcher. The returned disposer is idempotent and
// closes the channel.
func (b *Broker) Subscribe() (Subscription, func()) {
	ch := make(chan Update, 8)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *Broker) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish delivers u to every watcher without blocking; a watcher whose buffer
// is full misses the update.
func (b *Broker) Publish(u Update) {
	if u.At.IsZero() {
		u.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	dropped := 0
	for _, ch := range b.subs {
		select {
		case ch <- u:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		b.logger.Warn("update not delivered to all watchers",
			zap.String("batchId", u.BatchID), zap.Int("dropped", dropped), zap.Int("watchers", len(b.subs)))
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Shutdown closes every subscription; later subscriptions are closed at once.
func (b *Broker) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
