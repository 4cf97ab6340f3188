// Package graveyard implements the bounded record of recently-torn-down
// PMSMs: when a PMSM is destroyed, a snapshot of its last
// role and teardown reason is kept for a short while (diagnostics, bug
// reports) before being discarded. It is a fixed-capacity FIFO per family,
// the same eviction shape as ringlog.Ring, generalized from "one ring per
// state machine recording its transitions" to "one ring per family
// recording its dead machines."
package graveyard

import (
	"sync"
	"time"

	"bg.wifiwarden/internal/role"
)

// Capacity is the number of dead PMSMs retained per family before the
// oldest is evicted.
const Capacity = 3

// Entry is a snapshot of one PMSM at the moment it was destroyed.
type Entry struct {
	IfaceName   string
	LastRole    role.Role
	Reason      string
	DestroyedAt time.Time
}

// Graveyard holds, per family, the last Capacity destroyed PMSMs.
type Graveyard struct {
	mu   sync.Mutex
	byFamily map[role.Family][]Entry
}

// New returns an empty Graveyard.
func New() *Graveyard {
	return &Graveyard{byFamily: make(map[role.Family][]Entry)}
}

// Bury records e's destruction, evicting the oldest entry in e's family if
// the family ring is already at Capacity.
func (g *Graveyard) Bury(e Entry) {
	if e.DestroyedAt.IsZero() {
		e.DestroyedAt = time.Now()
	}
	family := role.FamilyOf(e.LastRole)

	g.mu.Lock()
	defer g.mu.Unlock()

	list := g.byFamily[family]
	list = append(list, e)
	if len(list) > Capacity {
		list = list[len(list)-Capacity:]
	}
	g.byFamily[family] = list
}

// Recent returns the retained entries for family, oldest first.
func (g *Graveyard) Recent(family role.Family) []Entry {
	g.mu.Lock()
	defer g.mu.Unlock()

	list := g.byFamily[family]
	out := make([]Entry, len(list))
	copy(out, list)
	return out
}
