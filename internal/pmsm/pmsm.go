// Package pmsm implements the Per-Mode State Machine scaffolding shared by
// the Client-PMSM and SoftAp-PMSM: explicit state objects with
// parent-chain dispatch so an unhandled message bubbles up to an outer
// state (NOT_HANDLED semantics), a deferred-message queue that
// re-injects at the head of the next state's mailbox, and a ring-log of the
// last DefaultSize transitions, matching the run/handleCommand/handleMLMEMsg
// shape of swapping one state value for another on every transition,
// generalized from "one flat state with a big switch per message kind" to
// "states arranged in a parent chain, with bubbling."
package pmsm

import (
	"bg.wifiwarden/internal/ringlog"
	"bg.wifiwarden/internal/role"
)

// Message is one event delivered to a Machine: a Kind naming the event and
// an opaque Data payload the handling state knows how to interpret.
type Message struct {
	Kind string
	Data interface{}
}

// State is one node in a PMSM's hierarchical state tree.
type State interface {
	// Name identifies the state for logging, e.g. "Idle" or "Started/Connect".
	Name() string
	// Parent returns the enclosing state to bubble unhandled messages to,
	// or nil for a root state.
	Parent() State
	// Enter runs when the machine transitions into this state.
	Enter(m *Machine)
	// Exit runs when the machine transitions out of this state.
	Exit(m *Machine)
	// Handle processes msg. It returns the state to transition to (nil
	// means "stay put") and whether the message was handled at all; an
	// unhandled message bubbles to Parent().
	Handle(m *Machine, msg Message) (next State, handled bool)
}

// Machine is the serial event loop shared by every PMSM. PMSMs and
// the Warden all run on the same cooperative event-loop thread in
// production; Machine itself doesn't start a goroutine — Post just appends
// to the queue, and Pump must be driven by that shared loop.
type Machine struct {
	Name    string // e.g. "pmsm:3"
	Role    role.Role
	current State

	queue    []Message
	deferred []Message

	Log *ringlog.Ring
}

// NewMachine returns a Machine starting in initial, which must have no
// parent chain above it that the machine hasn't already been given (Idle is
// typically the root).
func NewMachine(name string, initial State, log *ringlog.Ring) *Machine {
	if log == nil {
		log = ringlog.New(ringlog.DefaultSize)
	}
	m := &Machine{Name: name, current: initial, Log: log}
	initial.Enter(m)
	return m
}

// Current returns the machine's current leaf state.
func (m *Machine) Current() State {
	return m.current
}

// Post appends msg to the end of the machine's mailbox.
func (m *Machine) Post(msg Message) {
	m.queue = append(m.queue, msg)
}

// Defer re-queues msg to run again after every message currently queued,
// the "deferred message re-injected at the head of the queue of the next
// state" behavior: it is not replayed until the *next* Pump call,
// so any state transition this dispatch causes takes effect first.
func (m *Machine) Defer(msg Message) {
	m.deferred = append(m.deferred, msg)
}

// Pump drains every message currently queued, dispatching each to the
// current state and bubbling unhandled ones up the parent chain. Deferred
// messages queued during this pass are appended for the next Pump call.
func (m *Machine) Pump() {
	for len(m.queue) > 0 {
		msg := m.queue[0]
		m.queue = m.queue[1:]
		m.dispatch(msg)
	}
	if len(m.deferred) > 0 {
		m.queue = append(m.queue, m.deferred...)
		m.deferred = nil
	}
}

func (m *Machine) dispatch(msg Message) {
	for s := m.current; s != nil; s = s.Parent() {
		next, handled := s.Handle(m, msg)
		if next != nil {
			m.transition(msg, next)
		}
		if handled {
			return
		}
	}
}

func (m *Machine) transition(cause Message, next State) {
	from := m.current.Name()
	m.current.Exit(m)
	m.current = next
	next.Enter(m)

	m.Log.Record(ringlog.Entry{
		Machine: m.Name,
		From:    from,
		Event:   cause.Kind,
		To:      next.Name(),
	})
}

// Lifecycle is how a PMSM reports its own transitions upward to the Warden,
// matching the ordering law: onStarted, then zero or more
// onRoleChanged, then exactly one of onStopped/onStartFailure.
type Lifecycle interface {
	OnStarted(r role.Role)
	OnStartFailure(reason string)
	OnRoleChanged(newRole role.Role)
	OnStopped()
}

// BaseState gives concrete state types a zero-cost Enter/Exit/Parent they
// can embed and override selectively, leaving most state-interface
// methods as thin defaults.
type BaseState struct {
	ParentState State
}

// Parent implements State.
func (b BaseState) Parent() State { return b.ParentState }

// Enter implements State as a no-op.
func (b BaseState) Enter(m *Machine) {}

// Exit implements State as a no-op.
func (b BaseState) Exit(m *Machine) {}
