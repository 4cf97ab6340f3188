package warden

import (
	"bg.wifiwarden/internal/pmsm"
	"bg.wifiwarden/internal/role"
	"bg.wifiwarden/internal/softap"
)

// clientMember adapts one live Client-PMSM's pmsm.Lifecycle callbacks into
// Warden bookkeeping and the external broadcast.Sink, tracking just enough
// of the PMSM's own history (added, lastRole, lastIface) to still be able to
// report an accurate onRemoved after the PMSM has already torn its
// interface down.
type clientMember struct {
	w    *Warden
	id   int
	pmsm *pmsm.Client

	added     bool
	lastRole  role.Role
	lastIface string
}

func (m *clientMember) OnStarted(r role.Role) {
	m.added = true
	m.lastRole = r
	m.lastIface = m.pmsm.IfaceName()
	if m.w.modeSink != nil {
		m.w.modeSink.OnModeChanged(role.FamilyOf(r), role.Unset, r)
	}
	m.w.reinstallScorer()
}

func (m *clientMember) OnStartFailure(reason string) {
	m.w.loop.post(Message{Kind: MsgStaStartFailure, Data: m})
}

func (m *clientMember) OnRoleChanged(newRole role.Role) {
	prev := m.lastRole
	m.lastRole = newRole
	if m.w.modeSink != nil {
		m.w.modeSink.OnModeChanged(role.FamilyOf(newRole), prev, newRole)
	}
	m.w.reinstallScorer()
}

func (m *clientMember) OnStopped() {
	m.w.loop.post(Message{Kind: MsgStaStopped, Data: m})
}

// softApMember is the SoftAp-PMSM equivalent of clientMember. A SoftAp's
// role never changes in place, so OnRoleChanged is unreachable but
// still required to satisfy pmsm.SoftApLifecycle.
type softApMember struct {
	w    *Warden
	id   int
	role role.Role
	pmsm *pmsm.SoftAp

	added     bool
	lastIface string
}

func (m *softApMember) externalCallbacks() SoftApCallbacks {
	return m.w.apListeners[m.role]
}

func (m *softApMember) OnStarted(r role.Role) {
	m.added = true
	if ifaces := m.pmsm.IfaceNames(); len(ifaces) > 0 {
		m.lastIface = ifaces[0]
	}
	if m.w.modeSink != nil {
		m.w.modeSink.OnModeChanged(role.FamilyOf(r), role.Unset, r)
	}
	if cb := m.externalCallbacks(); cb != nil {
		cb.OnStateChanged("STARTED", "")
	}
}

func (m *softApMember) OnStartFailure(reason string) {
	if cb := m.externalCallbacks(); cb != nil {
		cb.OnStateChanged("START_FAILED", reason)
	}
	m.w.loop.post(Message{Kind: MsgApStartFailure, Data: m})
}

func (m *softApMember) OnRoleChanged(newRole role.Role) {}

func (m *softApMember) OnStopped() {
	if cb := m.externalCallbacks(); cb != nil {
		cb.OnStateChanged("STOPPED", "")
	}
	m.w.loop.post(Message{Kind: MsgApStopped, Data: m})
}

func (m *softApMember) OnBlockedClientConnecting(mac, reason string) {
	if cb := m.externalCallbacks(); cb != nil {
		cb.OnBlockedClientConnecting(mac, reason)
	}
}

func (m *softApMember) OnInfoChanged(info softap.Info) {
	if cb := m.externalCallbacks(); cb != nil {
		cb.OnInfoChanged(info)
	}
}

func (m *softApMember) OnConnectedClientsChanged(clients []string) {
	if cb := m.externalCallbacks(); cb != nil {
		cb.OnConnectedClientsChanged(clients)
	}
}
