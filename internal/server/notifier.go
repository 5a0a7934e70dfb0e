package server

import (
	"sync"
	"time"
)

// ReloadEvent describes one attempt to reload the grammar.
type ReloadEvent struct {
	Rules int       `json:"rules"`
	Error string    `json:"error,omitempty"`
	At    time.Time `json:"at"`
}

// Notifier fans reload events out to subscribed listeners.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan ReloadEvent]struct{}
}

// NewNotifier creates a notifier with no listeners.
func NewNotifier() *Notifier {
	return &Notifier{
		listeners: make(map[chan ReloadEvent]struct{}),
	}
}

// Subscribe returns a channel that receives reload events.
// The caller must call Unsubscribe when done.
func (n *Notifier) Subscribe() chan ReloadEvent {
	ch := make(chan ReloadEvent, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan ReloadEvent) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// Broadcast sends ev to every listener. A listener that has not consumed
// the previous event misses this one.
func (n *Notifier) Broadcast(ev ReloadEvent) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Len returns the number of listeners.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
