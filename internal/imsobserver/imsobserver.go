// Package imsobserver is the contract for the Telephony/IMS collaborator
// the Deferred-Stop Controller (DSC) consults before tearing down
// Wi-Fi: whether any subscription currently has IMS registered over Wi-Fi,
// and for how long the DSC should defer a stop to let that registration
// hand off to cellular.
package imsobserver

import "sync"

// Registration describes one subscription's IMS-over-Wi-Fi state.
type Registration struct {
	SubscriptionID string
	RegisteredOverWifi bool
	PreferredDeferMs   int // carrier-specific deferral hint, 0 means no deferral
}

// RegistrationListener is notified whenever a subscription's IMS
// registration state changes.
type RegistrationListener func(reg Registration)

// Observer is consulted by the DSC at the start of a deferred stop, and can
// also push unsolicited "IMS just registered/unregistered" notifications.
// Subscribe returns an unsubscribe func so a completed deferred stop can
// unregister its callback once the decision is made.
type Observer interface {
	CurrentRegistrations() []Registration
	Subscribe(l RegistrationListener) (unsubscribe func())
}

// Fake is an in-memory Observer used by DSC tests.
type Fake struct {
	mu   sync.Mutex
	regs map[string]Registration
	subs map[int]RegistrationListener
	next int
}

// NewFake returns an Observer with no registrations.
func NewFake() *Fake {
	return &Fake{regs: make(map[string]Registration), subs: make(map[int]RegistrationListener)}
}

// CurrentRegistrations implements Observer.
func (f *Fake) CurrentRegistrations() []Registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Registration, 0, len(f.regs))
	for _, r := range f.regs {
		out = append(out, r)
	}
	return out
}

// Subscribe implements Observer.
func (f *Fake) Subscribe(l RegistrationListener) func() {
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

func (f *Fake) listeners() []RegistrationListener {
	out := make([]RegistrationListener, 0, len(f.subs))
	for _, l := range f.subs {
		out = append(out, l)
	}
	return out
}

// SetRegistration drives a registration-state change for subscriptionID,
// notifying every subscriber as the real IMS stack would.
func (f *Fake) SetRegistration(reg Registration) {
	f.mu.Lock()
	f.regs[reg.SubscriptionID] = reg
	subs := f.listeners()
	f.mu.Unlock()
	for _, l := range subs {
		l(reg)
	}
}

// ClearRegistration removes a subscription's IMS-over-Wi-Fi registration,
// as if it had handed off to cellular or torn down.
func (f *Fake) ClearRegistration(subscriptionID string) {
	f.mu.Lock()
	reg, ok := f.regs[subscriptionID]
	delete(f.regs, subscriptionID)
	subs := f.listeners()
	f.mu.Unlock()
	if !ok {
		return
	}
	reg.RegisteredOverWifi = false
	for _, l := range subs {
		l(reg)
	}
}
