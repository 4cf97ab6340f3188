// Package netobserver is the contract for the cellular/connectivity
// collaborator the DSC consults: whether cellular data is currently
// available as a fallback, consulted before committing to a deferred Wi-Fi
// stop so the device is never left with neither link.
package netobserver

import "sync"

// CellularListener is notified whenever cellular availability changes.
type CellularListener func(available bool)

// Observer reports cellular data availability. Subscribe returns an
// unsubscribe func, mirroring imsobserver.Observer.
type Observer interface {
	CellularAvailable() bool
	Subscribe(l CellularListener) (unsubscribe func())
}

// Fake is an in-memory Observer used by DSC tests.
type Fake struct {
	mu        sync.Mutex
	available bool
	subs      map[int]CellularListener
	next      int
}

// NewFake returns a Fake reporting cellular as available.
func NewFake() *Fake {
	return &Fake{available: true, subs: make(map[int]CellularListener)}
}

// CellularAvailable implements Observer.
func (f *Fake) CellularAvailable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

// Subscribe implements Observer.
func (f *Fake) Subscribe(l CellularListener) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = l
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// SetAvailable drives a cellular-availability change, notifying every
// subscriber.
func (f *Fake) SetAvailable(available bool) {
	f.mu.Lock()
	f.available = available
	subs := make([]CellularListener, 0, len(f.subs))
	for _, l := range f.subs {
		subs = append(subs, l)
	}
	f.mu.Unlock()
	for _, l := range subs {
		l(available)
	}
}
