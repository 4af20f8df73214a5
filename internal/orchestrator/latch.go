package orchestrator

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// latchSet tracks one open channel per in-flight animation wait, keyed by
// "gameID:stepType". A client that redelivers the same animation_done while
// the wait is still open must not double-close the channel; signal()
// collapses concurrent/duplicate redeliveries onto a single close via
// singleflight (§4.7, §11).
type latchSet struct {
	mu      sync.Mutex
	open_   map[string]chan struct{}
	group   singleflight.Group
}

func newLatchSet() *latchSet {
	return &latchSet{open_: make(map[string]chan struct{})}
}

// open registers a wait for key, returning the channel that closes on
// signal(key). Safe to call even if no one ever signals — close() still
// removes the entry so it doesn't leak.
func (l *latchSet) open(key string) <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.open_[key]
	if !ok {
		ch = make(chan struct{})
		l.open_[key] = ch
	}
	return ch
}

// signal fires the latch for key, if one is open. Redelivered animation_done
// messages for the same key collapse onto the same close via singleflight,
// and the entry is removed as it fires, so a later redelivery finds nothing
// to close.
func (l *latchSet) signal(key string) {
	l.group.Do(key, func() (any, error) {
		l.mu.Lock()
		ch, ok := l.open_[key]
		if ok {
			delete(l.open_, key)
		}
		l.mu.Unlock()
		if ok {
			close(ch)
		}
		return nil, nil
	})
}

// close releases key's wait slot once it's done (fired or fallen back) so a
// later reuse of the same key (a later street, a later hand) gets a fresh
// channel and the singleflight call for the old key can run again.
func (l *latchSet) close(key string) {
	l.mu.Lock()
	delete(l.open_, key)
	l.mu.Unlock()
	l.group.Forget(key)
}
