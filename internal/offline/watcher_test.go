package offline

import "testing"

func TestWatcherNotifiesOnTransitionOnly(t *testing.T) {
	w := NewWatcher(true)
	var events []bool
	unsub := w.Subscribe(func(online bool) { events = append(events, online) })
	defer unsub()

	w.SetOnline(true) // no transition
	w.SetOnline(false)
	w.SetOnline(false) // no transition
	w.SetOnline(true)

	if len(events) != 2 || events[0] != false || events[1] != true {
		t.Fatalf("expected [false true], got %v", events)
	}
	if !w.Online() {
		t.Fatal("watcher must report the latest state")
	}
}

func TestWatcherUnsubscribeStopsDelivery(t *testing.T) {
	w := NewWatcher(true)
	calls := 0
	unsub := w.Subscribe(func(bool) { calls++ })
	w.SetOnline(false)
	unsub()
	unsub() // double unsubscribe is harmless
	w.SetOnline(true)
	if calls != 1 {
		t.Fatalf("expected a single delivery, got %d", calls)
	}
}
