// Package live provides an observable value with latest-wins fan-out.
package live

import (
	"context"
	"sync"
)

// Observable is the read side of a Value.
type Observable[T any] interface {
	Subscribe(ctx context.Context) <-chan T
	Await(ctx context.Context) (T, error)
}

// Value holds the latest published T and delivers it to subscribers. Each
// subscriber channel buffers one value; a slow subscriber only ever sees the
// newest one.
type Value[T any] struct {
	mu   sync.Mutex
	val  T
	set  bool
	subs map[chan T]struct{}

	// hookMu orders activity callbacks with the transitions that cause them.
	hookMu   sync.Mutex
	onActive func()
	onIdle   func()
}

// New returns an empty Value.
func New[T any]() *Value[T] {
	return &Value[T]{subs: make(map[chan T]struct{})}
}

// NotifyActivity registers callbacks for the first subscriber arriving and
// the last one leaving. The callbacks must not subscribe to v. Call it
// before the first Subscribe.
func (v *Value[T]) NotifyActivity(active, idle func()) {
	v.hookMu.Lock()
	v.onActive, v.onIdle = active, idle
	v.hookMu.Unlock()
}

// Publish stores x and offers it to every subscriber.
func (v *Value[T]) Publish(x T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.val, v.set = x, true
	for ch := range v.subs {
		offerLatest(ch, x)
	}
}

// Reset forgets the stored value. Later subscribers wait for the next Publish.
func (v *Value[T]) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	var zero T
	v.val, v.set = zero, false
}

// Load returns the latest value and whether one was ever published.
func (v *Value[T]) Load() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.val, v.set
}

// Subscribe returns a channel that receives the current value, if any, and
// every later one. The channel is closed after ctx is done.
func (v *Value[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	v.hookMu.Lock()
	v.mu.Lock()
	v.subs[ch] = struct{}{}
	if v.set {
		ch <- v.val
	}
	n := len(v.subs)
	v.mu.Unlock()
	if n == 1 && v.onActive != nil {
		v.onActive()
	}
	v.hookMu.Unlock()

	go func() {
		<-ctx.Done()
		v.unsubscribe(ch)
	}()
	return ch
}

func (v *Value[T]) unsubscribe(ch chan T) {
	v.hookMu.Lock()
	defer v.hookMu.Unlock()

	v.mu.Lock()
	delete(v.subs, ch)
	close(ch)
	n := len(v.subs)
	v.mu.Unlock()

	if n == 0 && v.onIdle != nil {
		v.onIdle()
	}
}

// Subscribers returns the number of active subscriptions.
func (v *Value[T]) Subscribers() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subs)
}

// Await returns the current value, waiting for the first publish if needed.
func (v *Value[T]) Await(ctx context.Context) (T, error) {
	if x, ok := v.Load(); ok {
		return x, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	select {
	case x, ok := <-v.Subscribe(ctx):
		if ok {
			return x, nil
		}
	case <-ctx.Done():
	}
	var zero T
	return zero, ctx.Err()
}

// offerLatest puts x into ch, replacing a value the reader has not taken yet.
// Callers hold the lock that serializes senders on ch.
func offerLatest[T any](ch chan T, x T) {
	for {
		select {
		case ch <- x:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
