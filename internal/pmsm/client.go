package pmsm

import (
	"bg.wifiwarden/internal/broadcast"
	"bg.wifiwarden/internal/connectionengine"
	"bg.wifiwarden/internal/deferredstop"
	"bg.wifiwarden/internal/nativeiface"
	"bg.wifiwarden/internal/recovery"
	"bg.wifiwarden/internal/ringlog"
	"bg.wifiwarden/internal/role"
)

// Message kinds the Client-PMSM understands.
const (
	MsgStart            = "START"
	MsgStop             = "STOP"
	MsgSwitchToConnect  = "SWITCH_TO_CONNECT"
	MsgSwitchToScanOnly = "SWITCH_TO_SCAN_ONLY"
	MsgIfaceDown        = "IFACE_DOWN"
	MsgIfaceDestroyed   = "IFACE_DESTROYED"
)

// Client is the Client-PMSM: Idle, Started{ScanOnly, Connect}.
// It owns exactly one native client interface and forwards per-connection
// operations to an external connection engine whenever it is Started.
type Client struct {
	ID         int
	WorkSource string
	Verbose    bool

	m         *Machine
	iface     string
	up        bool
	destroyed bool

	native    nativeiface.Layer
	engine    connectionengine.Engine
	dsc       *deferredstop.Controller
	lifecycle Lifecycle
	wifi      broadcast.WifiStateSink
	recov     recovery.Recovery

	lastBroadcast broadcast.WifiState

	// marshal runs fn on the single event-loop thread the Warden and every
	// PMSM share. NewClient defaults it to a direct call so a
	// Client can still be driven standalone in tests; SetMarshaler installs
	// the Warden's real marshaling hook once one owns this PMSM.
	marshal func(fn func())

	idleS     *clientIdleState
	startedS  *clientStartedState
	scanOnlyS *clientScanOnlyState
	connectS  *clientConnectState
}

// NewClient constructs a Client-PMSM in Idle, not yet owning an interface.
func NewClient(id int, workSource string, native nativeiface.Layer, engine connectionengine.Engine,
	dsc *deferredstop.Controller, lifecycle Lifecycle, wifi broadcast.WifiStateSink, recov recovery.Recovery,
	log *ringlog.Ring) *Client {

	c := &Client{
		ID: id, WorkSource: workSource,
		native: native, engine: engine, dsc: dsc,
		lifecycle: lifecycle, wifi: wifi, recov: recov,
		lastBroadcast: broadcast.StateDisabled,
		marshal:       func(fn func()) { fn() },
	}

	c.idleS = &clientIdleState{c: c}
	c.startedS = &clientStartedState{c: c}
	c.scanOnlyS = &clientScanOnlyState{BaseState: BaseState{ParentState: c.startedS}, c: c}
	c.connectS = &clientConnectState{BaseState: BaseState{ParentState: c.startedS}, c: c}

	c.m = NewMachine("client", c.idleS, log)
	return c
}

// Machine exposes the underlying event loop so a Warden can Post/Pump it as
// part of the shared main-thread loop.
func (c *Client) Machine() *Machine { return c.m }

// SetMarshaler installs fn as the hook every asynchronous native-layer or
// timer callback runs through before touching the machine, so a Warden can
// marshal them onto its own single event-loop thread.
func (c *Client) SetMarshaler(fn func(func())) { c.marshal = fn }

// Role reports the PMSM's current role (role.Unset before START succeeds).
func (c *Client) Role() role.Role { return c.m.Role }

// IfaceName reports the native interface name this PMSM owns, or "" before
// setup / after teardown.
func (c *Client) IfaceName() string { return c.iface }

// IsStarted reports whether this PMSM currently owns a live interface.
func (c *Client) IsStarted() bool {
	return c.m.Current() != c.idleS
}

// SetRole drives an in-place Primary<->ScanOnly flip: this never tears
// the PMSM down, it reconfigures the one
// interface it already owns.
func (c *Client) SetRole(newRole role.Role) {
	switch c.m.Current() {
	case c.scanOnlyS:
		if newRole == role.ClientPrimary || newRole == role.ClientLocalOnly {
			c.m.Post(Message{Kind: MsgSwitchToConnect, Data: newRole})
			c.m.Pump()
		}
	case c.connectS:
		if newRole == role.ClientScanOnly {
			c.m.Post(Message{Kind: MsgSwitchToScanOnly})
			c.m.Pump()
		}
	}
}

// Start posts START and pumps the machine to completion; the caller
// observes the outcome via Lifecycle.OnStarted/OnStartFailure.
func (c *Client) Start() {
	c.m.Post(Message{Kind: MsgStart})
	c.m.Pump()
}

// Stop posts STOP and pumps the machine. Teardown may be deferred by the
// DSC, in which case Lifecycle.OnStopped fires later, marshaled back onto
// the caller's event loop.
func (c *Client) Stop() {
	c.m.Post(Message{Kind: MsgStop})
	c.m.Pump()
}

// broadcastWifiState emits the sticky Wi-Fi state broadcast, but only while
// this PMSM's role is CLIENT_PRIMARY.
func (c *Client) broadcastWifiState(state broadcast.WifiState) {
	if c.m.Role != role.ClientPrimary || c.wifi == nil {
		return
	}
	prev := c.lastBroadcast
	c.lastBroadcast = state
	c.wifi.OnWifiStateChanged(prev, state)
}

// --- nativeiface.InterfaceCallback, invoked by the Native layer ---

// OnUp implements nativeiface.InterfaceCallback. It arrives from the native
// layer's own goroutine, so it is marshaled onto the event-loop thread
// before touching any machine state.
func (c *Client) OnUp(ifaceName string) {
	c.marshal(func() {
		if ifaceName != c.iface {
			return
		}
		c.up = true
		c.broadcastWifiState(broadcast.StateEnabled)
	})
}

// OnDown implements nativeiface.InterfaceCallback.
func (c *Client) OnDown(ifaceName string) {
	c.marshal(func() {
		if ifaceName != c.iface {
			return
		}
		c.m.Post(Message{Kind: MsgIfaceDown})
		c.m.Pump()
	})
}

// OnDestroyed implements nativeiface.InterfaceCallback.
func (c *Client) OnDestroyed(ifaceName string) {
	c.marshal(func() {
		if ifaceName != c.iface {
			return
		}
		c.m.Post(Message{Kind: MsgIfaceDestroyed})
		c.m.Pump()
	})
}

// --- connection-engine facade; no-ops while Idle ---

func (c *Client) Connect(networkID string) error {
	if !c.IsStarted() {
		return nil
	}
	return c.engine.Connect(networkID)
}

func (c *Client) Save(networkID string, config map[string]string) error {
	if !c.IsStarted() {
		return nil
	}
	return c.engine.Save(networkID, config)
}

func (c *Client) Disconnect(reason string) error {
	if !c.IsStarted() {
		return nil
	}
	return c.engine.Disconnect(reason)
}

func (c *Client) Reassociate() error {
	if !c.IsStarted() {
		return nil
	}
	return c.engine.Reassociate()
}

func (c *Client) Roam(toNetworkID string) error {
	if !c.IsStarted() {
		return nil
	}
	return c.engine.Roam(toNetworkID)
}

func (c *Client) SetScorer(s connectionengine.Scorer) {
	if !c.IsStarted() {
		return
	}
	c.engine.SetScorer(s)
}

func (c *Client) StartPasspoint(credentialID string) (string, error) {
	if !c.IsStarted() {
		return "", nil
	}
	return c.engine.StartPasspoint(credentialID)
}

func (c *Client) StartDpp(bootstrapURI string) (string, error) {
	if !c.IsStarted() {
		return "", nil
	}
	return c.engine.StartDpp(bootstrapURI)
}

func (c *Client) EnableTdls(peerMAC string, enable bool) error {
	if !c.IsStarted() {
		return nil
	}
	return c.engine.EnableTdls(peerMAC, enable)
}

func (c *Client) LinkProbe(peerMAC string) error {
	if !c.IsStarted() {
		return nil
	}
	return c.engine.LinkProbe(peerMAC)
}

// --- states ---

type clientIdleState struct {
	BaseState
	c *Client
}

func (s *clientIdleState) Name() string { return "Idle" }

func (s *clientIdleState) Handle(m *Machine, msg Message) (State, bool) {
	if msg.Kind != MsgStart {
		return nil, false
	}
	name, err := s.c.native.SetupInterfaceForClientInScanMode(s.c)
	if err != nil || name == "" {
		reason := "native setup returned no interface"
		if err != nil {
			reason = err.Error()
		}
		s.c.lifecycle.OnStartFailure(reason)
		return nil, true
	}

	s.c.iface = name
	s.c.up = true
	s.c.destroyed = false
	m.Role = role.ClientScanOnly
	s.c.lifecycle.OnStarted(role.ClientScanOnly)

	return s.c.scanOnlyS, true
}

// clientStartedState is the parent of ScanOnly and Connect: it owns STOP
// and the unexpected-interface-loss paths so both children inherit them via
// bubbling without repeating the logic.
type clientStartedState struct {
	BaseState
	c *Client
}

func (s *clientStartedState) Name() string { return "Started" }

func (s *clientStartedState) Handle(m *Machine, msg Message) (State, bool) {
	switch msg.Kind {
	case MsgStop:
		s.c.dsc.Stop(func() {
			s.c.marshal(func() {
				s.teardown()
				m.transition(msg, s.c.idleS)
				s.c.lifecycle.OnStopped()
			})
		})
		return nil, true

	case MsgIfaceDown, MsgIfaceDestroyed:
		if msg.Kind == MsgIfaceDestroyed {
			s.c.destroyed = true
		}
		s.c.up = false
		if s.c.recov != nil {
			s.c.recov.ReportState(recovery.Broken)
		}
		s.teardown()
		s.c.lifecycle.OnStopped()
		return s.c.idleS, true
	}
	return nil, false
}

func (s *clientStartedState) teardown() {
	if s.c.iface == "" {
		return
	}
	s.c.broadcastWifiState(broadcast.StateDisabled)
	s.c.native.TeardownInterface(s.c.iface)
	s.c.iface = ""
	s.c.up = false
	s.c.m.Role = role.Unset
}

type clientScanOnlyState struct {
	BaseState
	c *Client
}

func (s *clientScanOnlyState) Name() string { return "Started/ScanOnly" }

func (s *clientScanOnlyState) Handle(m *Machine, msg Message) (State, bool) {
	if msg.Kind != MsgSwitchToConnect {
		return nil, false
	}
	newRole, _ := msg.Data.(role.Role)
	m.Role = newRole
	if newRole == role.ClientPrimary {
		s.c.broadcastWifiState(broadcast.StateEnabling)
	}

	if !s.c.native.SwitchClientInterfaceToConnectivityMode(s.c.iface) {
		// Already reported onStarted for this PMSM; an in-place
		// reconfiguration failure is a mid-life failure, not a start
		// failure, so it escalates via onStopped rather than
		// violating the onStarted/onStartFailure exclusivity in L1.
		s.c.broadcastWifiState(broadcast.StateUnknown)
		s.c.broadcastWifiState(broadcast.StateDisabled)
		s.c.startedS.teardown()
		s.c.lifecycle.OnStopped()
		return s.c.idleS, true
	}

	if newRole == role.ClientPrimary {
		s.c.broadcastWifiState(broadcast.StateEnabled)
	}
	s.c.lifecycle.OnRoleChanged(newRole)
	return s.c.connectS, true
}

type clientConnectState struct {
	BaseState
	c *Client
}

func (s *clientConnectState) Name() string { return "Started/Connect" }

func (s *clientConnectState) Handle(m *Machine, msg Message) (State, bool) {
	if msg.Kind != MsgSwitchToScanOnly {
		return nil, false
	}
	wasPrimary := m.Role == role.ClientPrimary
	if wasPrimary {
		s.c.broadcastWifiState(broadcast.StateDisabling)
	}

	s.c.dsc.Stop(func() {
		s.c.marshal(func() {
			if !s.c.native.SwitchClientInterfaceToScanMode(s.c.iface) {
				s.c.startedS.teardown()
				s.c.lifecycle.OnStopped()
				m.transition(msg, s.c.idleS)
				return
			}
			if wasPrimary {
				s.c.broadcastWifiState(broadcast.StateDisabled)
			}
			m.Role = role.ClientScanOnly
			m.transition(msg, s.c.scanOnlyS)
			s.c.lifecycle.OnRoleChanged(role.ClientScanOnly)
		})
	})
	return nil, true
}
