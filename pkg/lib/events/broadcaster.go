// Package events fans session events out to observers that only care about
// the latest value, such as the health server.
package events

import (
	"errors"
	"sync"
)

// ErrStopped is returned by Subscribe after Stop.
var ErrStopped = errors.New("broadcaster is stopped")

// Broadcaster delivers published values to every subscriber without ever
// blocking the publisher. A subscriber that falls behind loses its oldest
// pending value, so it always ends up holding the newest one.
type Broadcaster[T any] struct {
	messageReceiver chan T
	mu              sync.Mutex
	subscribers     map[chan T]struct{}
	stopped         bool
	done            chan struct{}
}

// RunNewBroadcaster starts the fan-out goroutine.
func RunNewBroadcaster[T any]() *Broadcaster[T] {
	broadcaster := &Broadcaster[T]{
		messageReceiver: make(chan T, 1),
		subscribers:     make(map[chan T]struct{}),
		done:            make(chan struct{}),
	}

	go broadcaster.start()

	return broadcaster
}

func (broadcaster *Broadcaster[T]) start() {
	defer close(broadcaster.done)

	for msg := range broadcaster.messageReceiver {
		// Sends never block, so holding the lock keeps Unsubscribe from
		// closing a channel mid-send.
		broadcaster.mu.Lock()
		for s := range broadcaster.subscribers {
			replaceLatest(s, msg)
		}
		broadcaster.mu.Unlock()
	}

	broadcaster.mu.Lock()
	for s := range broadcaster.subscribers {
		close(s)
	}
	broadcaster.subscribers = map[chan T]struct{}{}
	broadcaster.stopped = true
	broadcaster.mu.Unlock()
}

// replaceLatest sends msg, evicting the pending value if ch is full.
func replaceLatest[T any](ch chan T, msg T) {
	select {
	case ch <- msg:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- msg:
	default:
	}
}

// Stop closes every subscriber channel once pending values are delivered.
// Publishing after Stop panics.
func (broadcaster *Broadcaster[T]) Stop() {
	close(broadcaster.messageReceiver)
	<-broadcaster.done
}

// Subscribe returns a channel with room for one pending value.
func (broadcaster *Broadcaster[T]) Subscribe() (chan T, error) {
	ch := make(chan T, 1)
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	if broadcaster.stopped {
		return nil, ErrStopped
	}
	broadcaster.subscribers[ch] = struct{}{}
	return ch, nil
}

// Unsubscribe removes and closes ch.
func (broadcaster *Broadcaster[T]) Unsubscribe(ch chan T) {
	broadcaster.mu.Lock()
	_, ok := broadcaster.subscribers[ch]
	delete(broadcaster.subscribers, ch)
	broadcaster.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Publish hands msg to the fan-out goroutine without blocking. If the
// previous value has not been picked up yet it is replaced.
func (broadcaster *Broadcaster[T]) Publish(msg T) {
	select {
	case broadcaster.messageReceiver <- msg:
	default:
		select {
		case <-broadcaster.messageReceiver:
		default:
		}
		select {
		case broadcaster.messageReceiver <- msg:
		default:
		}
	}
}
