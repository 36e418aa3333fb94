package offline

import "sync"

// Watcher tracks connectivity and notifies subscribers on transitions. It
// replaces ambient online/offline event listeners with an explicit
// subscription that hands back its own unsubscribe function.
type Watcher struct {
	mu     sync.Mutex
	online bool
	subs   map[int]func(bool)
	nextID int
}

func NewWatcher(online bool) *Watcher {
	return &Watcher{online: online, subs: make(map[int]func(bool))}
}

func (w *Watcher) Online() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.online
}

// SetOnline records the new state and, on a change, notifies subscribers.
// Callbacks run outside the lock so a subscriber may unsubscribe itself.
func (w *Watcher) SetOnline(online bool) {
	w.mu.Lock()
	if w.online == online {
		w.mu.Unlock()
		return
	}
	w.online = online
	fns := make([]func(bool), 0, len(w.subs))
	for _, fn := range w.subs {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(online)
	}
}

// Subscribe registers fn for state transitions and returns its unsubscribe
// function. Unsubscribing twice is harmless.
func (w *Watcher) Subscribe(fn func(online bool)) (unsubscribe func()) {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}
