package warden

import (
	"fmt"

	"bg.wifiwarden/internal/connectionengine"
	"bg.wifiwarden/internal/role"
)

// liveSet bookkeeping and the invariant checks below. Interface names are
// exclusive across every live PMSM: ownership only ever transfers via
// teardown-then-setup, never a handoff, so the Warden never needs to
// reassign a name itself — it only needs to notice a violation.

// clientByRole returns the live Client-PMSM in the given role, or nil. Only
// CLIENT_PRIMARY, CLIENT_SCAN_ONLY, and CLIENT_LOCAL_ONLY are meaningful
// arguments.
func (w *Warden) clientByRole(r role.Role) *clientMember {
	for _, c := range w.clients {
		if c.pmsm.Role() == r {
			return c
		}
	}
	return nil
}

// softApByRole returns the live SoftAp-PMSM in the given role, or nil.
func (w *Warden) softApByRole(r role.Role) *softApMember {
	for _, s := range w.softAps {
		if s.pmsm.Role() == r {
			return s
		}
	}
	return nil
}

func (w *Warden) liveCount() int {
	return len(w.clients) + len(w.softAps)
}

// reinstallScorer applies the cached scorer to the unique CLIENT_PRIMARY, if
// both exist. Called after every create/role-switch that could have changed
// who holds CLIENT_PRIMARY.
func (w *Warden) reinstallScorer() {
	if !w.hasScorer {
		return
	}
	if c := w.clientByRole(role.ClientPrimary); c != nil {
		c.pmsm.SetScorer(w.scorer)
	}
}

// SetScorer caches scorer for re-installation across restarts/role switches
// and, if a CLIENT_PRIMARY already exists, installs it immediately.
func (w *Warden) SetScorer(scorer connectionengine.Scorer) {
	w.loop.marshal(func() {
		w.hasScorer = true
		w.scorer = scorer
		w.reinstallScorer()
	})
}

// canRequestMoreClient reports whether the native layer currently has spare
// client-radio capacity.
func (w *Warden) canRequestMoreClient() bool {
	return w.clientAvailable
}

// canRequestMoreSoftAp reports the SoftAp-side equivalent.
func (w *Warden) canRequestMoreSoftAp() bool {
	return w.softApAvailable
}

// IsStaApConcurrencySupported reports whether the native layer can host a
// client and a SoftAp interface at once.
func (w *Warden) IsStaApConcurrencySupported() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.clientAvailable && w.softApAvailable
}

// CheckInvariants re-derives the live-set/state, role-exclusivity,
// interface-uniqueness, and emergency-overlay invariants from the Warden's
// current bookkeeping, returning the first violation found. It never
// mutates state; it exists so tests can assert "after every message, these
// still hold" without duplicating the bookkeeping logic per-scenario.
func (w *Warden) CheckInvariants() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// live-set/state: liveSet non-empty iff state == Enabled.
	nonEmpty := w.liveCount() > 0
	enabled := w.state == w.enabledS
	if nonEmpty != enabled {
		return fmt.Errorf("liveSet non-empty=%v but state=%s", nonEmpty, w.state.Name())
	}

	// role-exclusivity: at most one PMSM per exclusive role.
	seenRole := map[role.Role]int{}
	for _, c := range w.clients {
		seenRole[c.pmsm.Role()]++
	}
	for _, s := range w.softAps {
		seenRole[s.pmsm.Role()]++
	}
	for r, n := range seenRole {
		if n > 1 {
			return fmt.Errorf("role %s has %d live PMSMs", r, n)
		}
	}

	// interface-uniqueness: distinct live PMSMs own distinct interface names.
	seenIface := map[string]bool{}
	for _, c := range w.clients {
		name := c.pmsm.IfaceName()
		if name == "" {
			continue
		}
		if seenIface[name] {
			return fmt.Errorf("interface %s owned by more than one PMSM", name)
		}
		seenIface[name] = true
	}
	for _, s := range w.softAps {
		for _, name := range s.pmsm.IfaceNames() {
			if seenIface[name] {
				return fmt.Errorf("interface %s owned by more than one PMSM", name)
			}
			seenIface[name] = true
		}
	}

	// emergency-overlay: while active, no SoftAp PMSM is live; if carrier
	// policy requires it, no Client PMSM is live either.
	if w.emergencyActive {
		if len(w.softAps) > 0 {
			return fmt.Errorf("%d SoftAp PMSM(s) live during emergency overlay", len(w.softAps))
		}
		if w.carrierDisablesWifiInEmergency() && len(w.clients) > 0 {
			return fmt.Errorf("%d Client PMSM(s) live during emergency overlay under carrier policy", len(w.clients))
		}
	}

	return nil
}
