// Package recovery is the contract for the self-recovery collaborator: the
// Warden reports its own health to it, and it can ask the Warden to reset
// itself to a known-good state when that health looks wrong for too long.
// Its state enum is adapted from bg/ap_common/mcp's daemon-state constants
// (OFFLINE, STARTING, INITING, ONLINE, STOPPING, INACTIVE, BROKEN), since
// both mcp and this component answer the same question — "is this piece of
// the system currently working?" — for a supervisor to act on.
//
// The Warden and the recovery component are mutually dependent: recovery
// needs to call back into the Warden to trigger a reset, and the Warden
// needs to report state transitions to recovery. This cycle is broken by
// late injection: the Recovery is constructed first, and warden.New calls
// its Attach method once with the new Warden.
package recovery

// State mirrors mcp's daemon-state enum, reused here for a single
// component's health rather than a whole daemon's.
type State int

// Warden health states, named exactly as mcp.States does.
const (
	Offline State = iota
	Starting
	Initing
	Online
	Stopping
	Inactive
	Broken
)

var stateNames = map[State]string{
	Offline:  "offline",
	Starting: "starting",
	Initing:  "initializing",
	Online:   "online",
	Stopping: "stopping",
	Inactive: "inactive",
	Broken:   "broken",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Resettable is implemented by the Warden: recovery calls ResetToSafeState
// when it decides the Warden has been unhealthy for too long.
type Resettable interface {
	ResetToSafeState(reason string)
}

// Recovery is the self-recovery component's contract: the Warden reports
// every state transition it makes, and recovery decides, from the
// resulting history, whether to force a reset.
type Recovery interface {
	ReportState(s State)
	Attach(target Resettable)
}

// Watcher is a minimal Recovery implementation: it resets its target
// whenever it observes Broken reported threshold times in a row, the same
// "give up and restart" policy mcp itself applies to a daemon that keeps
// reporting failure.
type Watcher struct {
	threshold   int
	brokenCount int
	target      Resettable
	history     []State
}

// NewWatcher returns a Watcher that resets its target after threshold
// consecutive Broken reports.
func NewWatcher(threshold int) *Watcher {
	if threshold <= 0 {
		threshold = 3
	}
	return &Watcher{threshold: threshold}
}

// Attach implements Recovery.
func (w *Watcher) Attach(target Resettable) {
	w.target = target
}

// ReportState implements Recovery.
func (w *Watcher) ReportState(s State) {
	w.history = append(w.history, s)
	if s == Broken {
		w.brokenCount++
	} else {
		w.brokenCount = 0
	}
	if w.brokenCount >= w.threshold && w.target != nil {
		w.brokenCount = 0
		w.target.ResetToSafeState("repeated broken state reports")
	}
}

// History returns every state reported so far, for tests asserting on the
// sequence of transitions a scenario produced.
func (w *Watcher) History() []State {
	out := make([]State, len(w.history))
	copy(out, w.history)
	return out
}
