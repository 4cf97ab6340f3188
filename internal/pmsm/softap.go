package pmsm

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"bg.wifiwarden/internal/acs"
	"bg.wifiwarden/internal/broadcast"
	"bg.wifiwarden/internal/deferredstop"
	"bg.wifiwarden/internal/metrics"
	"bg.wifiwarden/internal/nativeiface"
	"bg.wifiwarden/internal/ringlog"
	"bg.wifiwarden/internal/role"
	"bg.wifiwarden/internal/softap"
	"bg.wifiwarden/internal/wardenerr"
	"bg.wifiwarden/internal/wificaps"
)

// PendingDisconnectRecheck is how often the SoftAp-PMSM retries a
// force-disconnect that the native layer reported as failed.
const PendingDisconnectRecheck = time.Second

// Message kinds the SoftAp-PMSM understands.
const (
	MsgAPStart             = "AP_START"
	MsgAPStop              = "AP_STOP"
	MsgAPUpdateConfig      = "AP_UPDATE_CONFIG"
	MsgAPUpdateCapability  = "AP_UPDATE_CAPABILITY"
	MsgAPIfaceUp           = "AP_IFACE_UP"
	MsgAPDaemonFailure     = "AP_DAEMON_FAILURE"
	MsgAPIdleTimeout       = "AP_IDLE_TIMEOUT"
	MsgAPPendingDisconnect = "AP_PENDING_DISCONNECT_RETRY"
)

// SoftApLifecycle extends Lifecycle with the SoftAp-specific upward
// notifications: onBlockedClientConnecting plus the two
// hostapd-sourced signals (onInfoChanged, onConnectedClientsChanged) that
// external SoftAp observers are registered for alongside state changes.
type SoftApLifecycle interface {
	Lifecycle
	OnBlockedClientConnecting(mac, reason string)
	OnInfoChanged(info softap.Info)
	OnConnectedClientsChanged(clients []string)
}

// SoftAp is the SoftAp-PMSM: Idle, Started. Its role (tethered or
// local-only) is fixed at creation — unlike the Client-PMSM, SoftAp roles
// are never switched in place.
type SoftAp struct {
	ID   int
	role role.Role

	m       *Machine
	cfg     *softap.Config
	runtime *softap.Runtime

	ifaces      []string
	bridgeIface string

	native    nativeiface.Layer
	lifecycle SoftApLifecycle
	apSink    broadcast.ApStateSink
	log       *zap.SugaredLogger
	clock     deferredstop.Clock
	radioCaps *wificaps.Capabilities // nil means "skip ACS, use cfg.Channel"

	lastBroadcast    broadcast.WifiState
	idleTimer        deferredstop.Timer
	pendingTimer     deferredstop.Timer
	blockedThisEpoch bool

	// marshal runs fn on the single event-loop thread shared with the
	// Warden; defaults to a direct call so a SoftAp can be driven
	// standalone in tests. See Client.marshal for the same hook.
	marshal func(fn func())

	idleS    *softApIdleState
	startedS *softApStartedState
}

// NewSoftAp constructs a SoftAp-PMSM in Idle for the given fixed role
// (SoftApTethered or SoftApLocalOnly).
func NewSoftAp(id int, r role.Role, native nativeiface.Layer, lifecycle SoftApLifecycle,
	apSink broadcast.ApStateSink, log *zap.SugaredLogger, log2 *ringlog.Ring) *SoftAp {

	s := &SoftAp{
		ID: id, role: r,
		native: native, lifecycle: lifecycle, apSink: apSink, log: log,
		clock:         deferredstop.RealClock,
		lastBroadcast: broadcast.StateDisabled,
		runtime:       softap.NewRuntime(),
		marshal:       func(fn func()) { fn() },
	}
	s.idleS = &softApIdleState{s: s}
	s.startedS = &softApStartedState{s: s}
	s.m = NewMachine("softap", s.idleS, log2)
	return s
}

// SetRadioCapabilities supplies the parsed `iw phy info` capabilities used
// for automatic channel selection; without it, start uses cfg.Channel as-is.
func (s *SoftAp) SetRadioCapabilities(caps *wificaps.Capabilities) {
	s.radioCaps = caps
}

// Machine exposes the underlying event loop.
func (s *SoftAp) Machine() *Machine { return s.m }

// SetMarshaler installs fn as the hook every asynchronous hostapd-listener
// or timer callback runs through before touching the machine; see
// Client.SetMarshaler.
func (s *SoftAp) SetMarshaler(fn func(func())) { s.marshal = fn }

// Role reports the fixed role this PMSM was created with.
func (s *SoftAp) Role() role.Role { return s.role }

// IfaceNames reports every native interface currently owned by this PMSM
// (the bridge plus one per band), used to enforce interface-name exclusivity.
func (s *SoftAp) IfaceNames() []string {
	out := append([]string(nil), s.ifaces...)
	if s.bridgeIface != "" {
		out = append(out, s.bridgeIface)
	}
	return out
}

// IsStarted reports whether this PMSM currently owns at least one live
// interface.
func (s *SoftAp) IsStarted() bool {
	return s.m.Current() != s.idleS
}

// Start posts AP_START with cfg and pumps the machine to completion.
func (s *SoftAp) Start(cfg *softap.Config) {
	s.m.Post(Message{Kind: MsgAPStart, Data: cfg})
	s.m.Pump()
}

// Stop posts AP_STOP and pumps the machine.
func (s *SoftAp) Stop() {
	s.m.Post(Message{Kind: MsgAPStop})
	s.m.Pump()
}

// UpdateConfig posts AP_UPDATE_CONFIG and pumps the machine. Changes that
// require a restart are rejected by the Started state rather than
// applied here.
func (s *SoftAp) UpdateConfig(cfg *softap.Config) {
	s.m.Post(Message{Kind: MsgAPUpdateConfig, Data: cfg})
	s.m.Pump()
}

// SetCapabilities updates the radio-capability bits the client-admission
// policy consults (force-disconnect support, max-clients), without
// restarting the interface.
func (s *SoftAp) SetCapabilities(caps wificaps.SoftApCapabilities) {
	s.m.Post(Message{Kind: MsgAPUpdateCapability, Data: caps})
	s.m.Pump()
}

func (s *SoftAp) broadcastAPState(state broadcast.WifiState, reason string) {
	if s.apSink == nil {
		return
	}
	prev := s.lastBroadcast
	s.lastBroadcast = state
	iface := ""
	if len(s.ifaces) > 0 {
		iface = s.ifaces[0]
	}
	s.apSink.OnApStateChanged(prev, state, reason, iface, s.role.String())
}

// --- nativeiface.SoftApListener, invoked by the Native layer's hostapd driver ---

// OnFailure implements nativeiface.SoftApListener. It arrives from the
// hostapd driver's own goroutine, so it is marshaled onto the event-loop
// thread before touching any machine state.
func (s *SoftAp) OnFailure(ifaceName string) {
	s.marshal(func() {
		s.m.Post(Message{Kind: MsgAPDaemonFailure, Data: ifaceName})
		s.m.Pump()
	})
}

// OnInfoChanged implements nativeiface.SoftApListener.
func (s *SoftAp) OnInfoChanged(ifaceName string, info softap.Info) {
	s.marshal(func() {
		s.runtime.CurrentInfo = info
		s.lifecycle.OnInfoChanged(info)
	})
}

// OnConnectedClientsChanged implements nativeiface.SoftApListener, diffing
// against the current connected set and routing each newly seen MAC through
// the client-admission policy.
func (s *SoftAp) OnConnectedClientsChanged(ifaceName string, clients []string) {
	s.marshal(func() {
		seen := make(map[string]bool, len(clients))
		for _, mac := range clients {
			seen[mac] = true
			if !s.runtime.Connected[mac] {
				s.m.Post(Message{Kind: "AP_ASSOCIATION", Data: mac})
			}
		}
		for mac := range s.runtime.Connected {
			if !seen[mac] {
				s.m.Post(Message{Kind: "AP_DISASSOCIATION", Data: mac})
			}
		}
		s.m.Pump()
		s.lifecycle.OnConnectedClientsChanged(clients)
	})
}

// --- nativeiface.InterfaceCallback ---

// OnUp implements nativeiface.InterfaceCallback. Start already reports
// onStarted once hostapd accepts the configuration, so OnUp changes nothing.
func (s *SoftAp) OnUp(ifaceName string) {}

// OnDown and OnDestroyed implement nativeiface.InterfaceCallback. Losing an
// owned interface mid-life is handled the same way as a hostapd failure.
func (s *SoftAp) OnDown(ifaceName string)      { s.OnFailure(ifaceName) }
func (s *SoftAp) OnDestroyed(ifaceName string) { s.OnFailure(ifaceName) }

// --- start sequence ---

func (s *SoftAp) startSingleInterface(cfg *softap.Config, isTethered bool) error {
	name, err := s.native.SetupInterfaceForSoftApMode(s, "softap", false)
	if err != nil || name == "" {
		return wardenerr.Wrap(err, wardenerr.NativeSetupFailed, "setupInterfaceForSoftApMode")
	}
	s.ifaces = append(s.ifaces, name)

	if cfg.BSSID != "" {
		s.native.SetApMacAddress(name, cfg.BSSID)
	} else if !s.native.ResetApMacToFactoryMacAddress(name) {
		s.log.Warnf("softap %s: failed to reset factory mac address", name)
	}

	if cfg.CountryCode != "" && !s.native.SetCountryCodeHal(name, strings.ToUpper(cfg.CountryCode)) {
		s.log.Warnf("softap %s: failed to set country code %s", name, cfg.CountryCode)
	}

	if s.radioCaps != nil {
		if ch, ok := acs.SelectChannel(cfg.Band, s.radioCaps); ok {
			cfg.Channel = ch
		}
	}

	if err := verifyCapabilities(cfg); err != nil {
		return err
	}

	if !s.native.StartSoftAp(name, cfg, isTethered, s) {
		return wardenerr.New(wardenerr.StartFailureGeneric, "startSoftAp failed for %s", name)
	}
	return nil
}

func verifyCapabilities(cfg *softap.Config) error {
	if (cfg.Security == softap.SecurityWPA3SAE || cfg.Security == softap.SecurityWPA3OWE) &&
		!cfg.Capabilities.Has(wificaps.FeatureWPA3) {
		return wardenerr.New(wardenerr.UnsupportedConfiguration, "radio does not support WPA3")
	}
	if cfg.MaxClients > 0 && !cfg.Capabilities.Has(wificaps.FeatureMaxClients) {
		return wardenerr.New(wardenerr.UnsupportedConfiguration, "radio does not support max-clients enforcement")
	}
	return nil
}

// startDualBand brings up the OWE-transition / dual-band pair of
// interfaces plus a bridge: both must start for overall success.
func (s *SoftAp) startDualBand(cfg *softap.Config, isTethered bool) error {
	bridge, err := s.native.SetupInterfaceForBridgeMode(s)
	if err != nil || bridge == "" {
		return wardenerr.Wrap(err, wardenerr.NativeSetupFailed, "setupInterfaceForBridgeMode")
	}
	s.bridgeIface = bridge

	primary := *cfg
	primary.Band = wificaps.Band2GHz
	if err := s.startSingleInterface(&primary, isTethered); err != nil {
		return err
	}

	companion := *cfg
	companion.Band = wificaps.Band5GHz
	if cfg.Security == softap.SecurityWPA3OWE {
		companion.Security = softap.SecurityOpen
		companion.SSID = oweCompanionSSID(cfg.SSID)
		companion.BSSID = flipBSSIDLocalBit(primary.BSSID)
	}
	if err := s.startSingleInterface(&companion, isTethered); err != nil {
		return err
	}
	return nil
}

// --- states ---

type softApIdleState struct {
	BaseState
	s *SoftAp
}

func (st *softApIdleState) Name() string { return "Idle" }

func (st *softApIdleState) Handle(m *Machine, msg Message) (State, bool) {
	if msg.Kind != MsgAPStart {
		return nil, false
	}
	cfg, _ := msg.Data.(*softap.Config)

	if err := cfg.Validate(); err != nil {
		st.s.lifecycle.OnStartFailure(err.Error())
		return nil, true
	}

	st.s.cfg = cfg
	isTethered := st.s.role == role.SoftApTethered

	st.s.broadcastAPState(broadcast.StateEnabling, "")

	var err error
	if cfg.Band == softap.BandDual {
		err = st.s.startDualBand(cfg, isTethered)
	} else {
		err = st.s.startSingleInterface(cfg, isTethered)
	}
	if err != nil {
		st.s.lifecycle.OnStartFailure(err.Error())
		st.s.teardownInterfaces()
		return nil, true
	}

	st.s.lifecycle.OnStarted(st.s.role)
	st.s.broadcastAPState(broadcast.StateEnabled, "")
	st.s.scheduleIdleTimeout()
	return st.s.startedS, true
}

type softApStartedState struct {
	BaseState
	s *SoftAp
}

func (st *softApStartedState) Name() string { return "Started" }

func (st *softApStartedState) Handle(m *Machine, msg Message) (State, bool) {
	s := st.s
	switch msg.Kind {
	case MsgAPStop:
		s.teardown("stop requested")
		return s.idleS, true

	case MsgAPDaemonFailure:
		// Mid-life failure: escalates via onStopped, not
		// onStartFailure, since onStarted has already been reported.
		s.teardown("hostapd daemon failed")
		return s.idleS, true

	case MsgAPUpdateConfig:
		newCfg, _ := msg.Data.(*softap.Config)
		s.handleUpdateConfig(newCfg)
		return nil, true

	case "AP_ASSOCIATION":
		mac, _ := msg.Data.(string)
		s.handleAssociation(mac)
		return nil, true

	case "AP_DISASSOCIATION":
		mac, _ := msg.Data.(string)
		delete(s.runtime.Connected, mac)
		delete(s.runtime.PendingDisconnect, mac)
		s.scheduleIdleTimeout()
		return nil, true

	case MsgAPIdleTimeout:
		if len(s.runtime.Connected) == 0 {
			s.teardown("idle timeout")
			return s.idleS, true
		}
		return nil, true

	case MsgAPPendingDisconnect:
		s.retryPendingDisconnects()
		return nil, true

	case MsgAPUpdateCapability:
		caps, _ := msg.Data.(wificaps.SoftApCapabilities)
		s.cfg.Capabilities = caps
		return nil, true
	}
	return nil, false
}

func (s *SoftAp) handleAssociation(mac string) {
	if !s.cfg.Capabilities.Has(wificaps.FeatureClientForceDisconnect) {
		s.runtime.Connected[mac] = true
		s.cancelIdleTimeout()
		return
	}

	blocked := s.cfg.BlockedClients[mac]
	switch {
	case blocked:
		s.forceDisconnect(mac, nativeiface.ReasonBlockedByUser)

	case s.cfg.ClientControlByUser && !s.cfg.AllowedClients[mac]:
		s.lifecycle.OnBlockedClientConnecting(mac, nativeiface.ReasonBlockedByUser)
		s.forceDisconnect(mac, nativeiface.ReasonBlockedByUser)

	case len(s.runtime.Connected) >= s.cfg.EffectiveMaxClients() && s.cfg.EffectiveMaxClients() > 0:
		s.lifecycle.OnBlockedClientConnecting(mac, nativeiface.ReasonNoMoreStas)
		s.forceDisconnect(mac, nativeiface.ReasonNoMoreStas)
		if !s.blockedThisEpoch {
			metrics.SoftApClientsBlocked.WithLabelValues(metrics.ReasonNoMoreStas).Inc()
			s.blockedThisEpoch = true
		}

	default:
		s.runtime.Connected[mac] = true
		s.cancelIdleTimeout()
	}
}

func (s *SoftAp) forceDisconnect(mac, reason string) {
	for _, iface := range s.ifaces {
		if s.native.ForceClientDisconnect(iface, mac, reason) {
			return
		}
	}
	s.runtime.PendingDisconnect[mac] = reason
	s.schedulePendingDisconnectRetry()
}

func (s *SoftAp) retryPendingDisconnects() {
	for mac, reason := range s.runtime.PendingDisconnect {
		for _, iface := range s.ifaces {
			if s.native.ForceClientDisconnect(iface, mac, reason) {
				delete(s.runtime.PendingDisconnect, mac)
				break
			}
		}
	}
	if len(s.runtime.PendingDisconnect) > 0 {
		s.schedulePendingDisconnectRetry()
	}
}

func (s *SoftAp) schedulePendingDisconnectRetry() {
	if s.pendingTimer != nil {
		s.pendingTimer.Stop()
	}
	s.pendingTimer = s.clock.AfterFunc(PendingDisconnectRecheck, func() {
		s.marshal(func() {
			s.m.Post(Message{Kind: MsgAPPendingDisconnect})
			s.m.Pump()
		})
	})
}

func (s *SoftAp) handleUpdateConfig(newCfg *softap.Config) {
	if softap.NeedsRestart(s.cfg, newCfg) {
		s.log.Warnf("softap config update requires restart; ignoring")
		return
	}
	s.cfg.BlockedClients = newCfg.BlockedClients
	s.cfg.AllowedClients = newCfg.AllowedClients
	s.cfg.ClientControlByUser = newCfg.ClientControlByUser
	s.cfg.MaxClients = newCfg.MaxClients
	s.cfg.AutoShutdownEnabled = newCfg.AutoShutdownEnabled
	s.cfg.ShutdownTimeout = newCfg.ShutdownTimeout

	for mac := range s.runtime.Connected {
		if s.cfg.BlockedClients[mac] ||
			(s.cfg.ClientControlByUser && !s.cfg.AllowedClients[mac]) {
			delete(s.runtime.Connected, mac)
			s.forceDisconnect(mac, nativeiface.ReasonBlockedByUser)
		}
	}
	s.scheduleIdleTimeout()
}

func (s *SoftAp) scheduleIdleTimeout() {
	s.cancelIdleTimeout()
	if !s.cfg.AutoShutdownEnabled || len(s.runtime.Connected) > 0 {
		return
	}
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = softap.DefaultShutdownTimeout
	}
	s.idleTimer = s.clock.AfterFunc(timeout, func() {
		s.marshal(func() {
			s.m.Post(Message{Kind: MsgAPIdleTimeout})
			s.m.Pump()
		})
	})
}

func (s *SoftAp) cancelIdleTimeout() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

func (s *SoftAp) teardownInterfaces() {
	for _, iface := range s.ifaces {
		s.native.TeardownInterface(iface)
	}
	if s.bridgeIface != "" {
		s.native.TeardownInterface(s.bridgeIface)
	}
	s.ifaces = nil
	s.bridgeIface = ""
}

func (s *SoftAp) teardown(reason string) {
	s.cancelIdleTimeout()
	if s.pendingTimer != nil {
		s.pendingTimer.Stop()
	}
	for _, iface := range s.ifaces {
		s.native.ForceClientDisconnect(iface, "ff:ff:ff:ff:ff:ff", "teardown")
	}
	s.broadcastAPState(broadcast.StateDisabling, reason)
	s.teardownInterfaces()
	s.broadcastAPState(broadcast.StateDisabled, reason)
	s.lifecycle.OnStopped()
	s.runtime = softap.NewRuntime()
	s.blockedThisEpoch = false
}
