// Package ringlog implements a bounded per-state-machine transition log: a
// stable ring of the last ~100 transitions per machine, useful for
// diagnostics after the fact. It is grounded on the circular byte buffer in
// the aputil package, generalized from raw bytes to typed transition
// records so it can be inspected programmatically as well as dumped as
// text.
package ringlog

import (
	"fmt"
	"sync"
	"time"
)

// DefaultSize is the number of transitions retained per machine.
const DefaultSize = 100

// Entry is one recorded state transition.
type Entry struct {
	When    time.Time
	Machine string // e.g. "warden", "pmsm:3"
	From    string
	Event   string
	To      string
	Detail  string
}

func (e Entry) String() string {
	s := fmt.Sprintf("%s [%s] %s -(%s)-> %s", e.When.Format("15:04:05.000"),
		e.Machine, e.From, e.Event, e.To)
	if e.Detail != "" {
		s += " " + e.Detail
	}
	return s
}

// Ring is a fixed-capacity FIFO of transition entries.
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	size    int
	cap     int
}

// New allocates a ring holding up to size entries.
func New(size int) *Ring {
	if size <= 0 {
		size = DefaultSize
	}
	return &Ring{entries: make([]Entry, size), cap: size}
}

// Record appends a transition, evicting the oldest entry once full.
func (r *Ring) Record(e Entry) {
	if e.When.IsZero() {
		e.When = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = e
	r.next = (r.next + 1) % r.cap
	if r.size < r.cap {
		r.size++
	}
}

// Dump returns the retained entries in chronological order.
func (r *Ring) Dump() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, 0, r.size)
	start := (r.next - r.size + r.cap) % r.cap
	for i := 0; i < r.size; i++ {
		out = append(out, r.entries[(start+i)%r.cap])
	}
	return out
}
