// Package warden implements the Mode Warden (MW) coordinator: the
// single top-level owner of every live PMSM, arbitrating Wi-Fi toggle,
// airplane mode, scan-always mode, SoftAp requests, recovery, and the
// emergency-call overlay into a bounded set of create/switch-role/stop
// decisions. Its state tree follows the same shape pmsm.Machine uses for a
// per-Client state object: Default/Disabled/Enabled replace a
// flat running/not-running distinction, with Default as the root state that
// owns airplane-mode and recovery fallbacks valid from either child.
package warden

import (
	"sync"
	"time"

	"github.com/tevino/abool"
	"go.uber.org/zap"

	"bg.wifiwarden/internal/broadcast"
	"bg.wifiwarden/internal/connectionengine"
	"bg.wifiwarden/internal/deferredstop"
	"bg.wifiwarden/internal/graveyard"
	"bg.wifiwarden/internal/metrics"
	"bg.wifiwarden/internal/nativeiface"
	"bg.wifiwarden/internal/pmsm"
	"bg.wifiwarden/internal/recovery"
	"bg.wifiwarden/internal/ringlog"
	"bg.wifiwarden/internal/role"
	"bg.wifiwarden/internal/settings"
	"bg.wifiwarden/internal/softap"
	"bg.wifiwarden/internal/wificaps"
)

// maxRecoveryDelay bounds how long Disabled waits before continuing a
// recovery-triggered restart, bounded at <=4s.
const maxRecoveryDelay = 4 * time.Second

// Warden is the Mode Warden. One Warden owns every live Client-PMSM and
// SoftAp-PMSM on a device and runs its own single-threaded event loop,
// exactly as a real coordinator requires.
type Warden struct {
	log *zap.SugaredLogger

	st          settings.Store
	native      nativeiface.Layer
	newEngine   func() connectionengine.Engine
	dsc         *deferredstop.Controller
	recov       recovery.Recovery
	grave       *graveyard.Graveyard
	bugReporter BugReporter
	radioCaps   *wificaps.Capabilities

	modeSink broadcast.Sink
	wifiSink broadcast.WifiStateSink
	apSink   broadcast.ApStateSink

	loop   *loop
	stop   chan struct{}
	closed *abool.AtomicBool

	mu sync.Mutex

	state     wState
	defaultS  *defaultState
	disabledS *disabledState
	enabledS  *enabledState

	emergencyActive         bool
	isInEmergencyCall       bool
	isInCallbackMode        bool
	shuttingDownForAirplane bool
	pendingAirplaneResume   *Message
	pendingRecoveryRestart  bool

	clients []*clientMember
	softAps []*softApMember
	nextID  int

	hasScorer bool
	scorer    connectionengine.Scorer

	apListeners map[role.Role]SoftApCallbacks

	clientAvailable bool
	softApAvailable bool
}

// New constructs a Warden and starts its event-loop goroutine. newEngine is
// called once per Client-PMSM created, so every Client gets its own
// connection-engine instance; bugReporter may be nil, in which case bug
// reports are silently discarded.
func New(log *zap.SugaredLogger, st settings.Store, native nativeiface.Layer,
	newEngine func() connectionengine.Engine, dsc *deferredstop.Controller,
	recov recovery.Recovery, grave *graveyard.Graveyard, bugReporter BugReporter,
	modeSink broadcast.Sink, wifiSink broadcast.WifiStateSink, apSink broadcast.ApStateSink) *Warden {

	if bugReporter == nil {
		bugReporter = NoopBugReporter{}
	}

	w := &Warden{
		log: log, st: st, native: native, newEngine: newEngine,
		dsc: dsc, recov: recov, grave: grave, bugReporter: bugReporter,
		modeSink: modeSink, wifiSink: wifiSink, apSink: apSink,
		apListeners: make(map[role.Role]SoftApCallbacks),
		stop:        make(chan struct{}),
		closed:      abool.NewBool(false),
		// Optimistic until the native layer reports otherwise: most
		// platforms have client/SoftAp capacity available at boot.
		clientAvailable: true,
		softApAvailable: true,
	}
	w.defaultS = &defaultState{}
	w.disabledS = &disabledState{parent: w.defaultS}
	w.enabledS = &enabledState{parent: w.defaultS}
	w.state = w.disabledS
	w.loop = newLoop(w.dispatchMessage)

	if recov != nil {
		recov.Attach(w)
	}
	if native != nil {
		native.RegisterClientInterfaceAvailabilityListener(func(avail bool) {
			w.loop.marshal(func() { w.clientAvailable = avail })
		})
		native.RegisterSoftApInterfaceAvailabilityListener(func(avail bool) {
			w.loop.marshal(func() { w.softApAvailable = avail })
		})
	}
	if st != nil {
		st.HandleChange("^"+settings.KeyWifiToggle+"$", func(key, val string) { w.WifiToggled() })
		st.HandleChange("^"+settings.KeyScanAlwaysMode+"$", func(key, val string) { w.ScanAlwaysModeChanged() })
		st.HandleChange("^"+settings.KeyAirplaneMode+"$", func(key, val string) { w.AirplaneToggled() })
	}

	go w.loop.run(w.stop)
	return w
}

// SetRadioCapabilities installs the parsed `iw phy info` capabilities every
// SoftAp-PMSM created from now on will use for automatic channel selection.
func (w *Warden) SetRadioCapabilities(caps *wificaps.Capabilities) {
	w.loop.marshal(func() { w.radioCaps = caps })
}

// Close stops the event-loop goroutine. Safe to call more than once or
// concurrently with itself; only the first call actually closes stop. Mostly
// meant for test teardown, since the reference daemon runs a Warden for its
// whole process lifetime and only calls this once, from the signal handler.
func (w *Warden) Close() {
	if w.closed.SetToIf(false, true) {
		close(w.stop)
	}
}

// --- public API: inbound events ---

// WifiToggled re-evaluates the scan-enable policy against the current value
// of settings.KeyWifiToggle.
func (w *Warden) WifiToggled() {
	w.loop.post(Message{Kind: MsgWifiToggled})
}

// ScanAlwaysModeChanged re-evaluates the scan-enable policy against the
// current value of settings.KeyScanAlwaysMode.
func (w *Warden) ScanAlwaysModeChanged() {
	w.loop.post(Message{Kind: MsgScanAlwaysChanged})
}

// AirplaneToggled re-evaluates against the current value of
// settings.KeyAirplaneMode.
func (w *Warden) AirplaneToggled() {
	w.loop.post(Message{Kind: MsgAirplaneToggled})
}

// StartSoftAp requests a SoftAp-PMSM of the given family (SoftApTethered or
// SoftApLocalOnly). A no-op if one is already running for that family.
func (w *Warden) StartSoftAp(r role.Role, cfg *softap.Config) {
	w.loop.post(Message{Kind: MsgAPStart, Data: SetApRequest{Role: r, Cfg: cfg}})
}

// StopSoftAp tears down the SoftAp-PMSM of the given family, if any.
func (w *Warden) StopSoftAp(r role.Role) {
	w.loop.post(Message{Kind: MsgAPStop, Data: StopApRequest{Role: r}})
}

// UpdateSoftApConfiguration applies cfg to the live SoftAp-PMSM of the given
// family without restarting it, unless softap.NeedsRestart says otherwise
// (in which case the update is rejected).
func (w *Warden) UpdateSoftApConfiguration(r role.Role, cfg *softap.Config) {
	w.loop.post(Message{Kind: MsgAPUpdateConfig, Data: SetApRequest{Role: r, Cfg: cfg}})
}

// UpdateSoftApCapability applies a fresh radio-capability snapshot to the
// live SoftAp-PMSM of the given family, affecting admission decisions made
// from now on (WPA3/max-clients support).
func (w *Warden) UpdateSoftApCapability(r role.Role, caps wificaps.SoftApCapabilities) {
	w.loop.post(Message{Kind: MsgAPUpdateCapability, Data: UpdateCapabilityRequest{Role: r, Caps: caps}})
}

// RequestLocalOnlyClientModeManager hands back the CLIENT_LOCAL_ONLY
// Client-PMSM, creating one if spare client-radio capacity allows, else
// falling back to whatever CLIENT_PRIMARY/CLIENT_SCAN_ONLY PMSM is already
// live, else nil. Blocks until the Warden's loop has processed the request.
func (w *Warden) RequestLocalOnlyClientModeManager() *pmsm.Client {
	reply := make(chan *pmsm.Client, 1)
	w.loop.post(Message{Kind: MsgRequestLocalOnly, Data: reply})
	return <-reply
}

// RemoveLocalOnlyClientModeManager tears down c if it is still the live
// CLIENT_LOCAL_ONLY PMSM.
func (w *Warden) RemoveLocalOnlyClientModeManager(c *pmsm.Client) {
	if c == nil {
		return
	}
	w.loop.post(Message{Kind: MsgRemoveLocalOnly, Data: c.ID})
}

// RecoveryDisableWifi unconditionally tears every live PMSM down without
// requesting a bug report or scheduling a restart.
func (w *Warden) RecoveryDisableWifi() {
	w.loop.post(Message{Kind: MsgRecoveryDisableWifi})
}

// RecoveryRestartWifi tears every live PMSM down and schedules a bounded
// restart once the live set has drained, requesting a bug report first
// unless reason is ReasonLastResortWatchdog.
func (w *Warden) RecoveryRestartWifi(reason RecoveryReason) {
	w.loop.post(Message{Kind: MsgRecoveryRestartWifi, Data: reason})
}

// ResetToSafeState implements recovery.Resettable: the self-recovery
// watchdog calls this after too many consecutive Broken reports.
func (w *Warden) ResetToSafeState(reason string) {
	w.RecoveryRestartWifi(RecoveryReason(reason))
}

// EmergencyCallStateChanged reports whether an emergency call is currently
// in progress.
func (w *Warden) EmergencyCallStateChanged(inCall bool) {
	w.loop.post(Message{Kind: MsgEmergencyCallStateChanged, Data: inCall})
}

// EmergencyCallbackModeChanged reports whether the device is in the
// carrier's post-emergency-call callback window.
func (w *Warden) EmergencyCallbackModeChanged(inCallbackMode bool) {
	w.loop.post(Message{Kind: MsgEmergencyCallbackModeChanged, Data: inCallbackMode})
}

// RegisterSoftApCallbacks installs the external observer for one SoftAp
// family's state/info/client/blocked-client notifications.
func (w *Warden) RegisterSoftApCallbacks(r role.Role, cb SoftApCallbacks) {
	w.loop.marshal(func() { w.apListeners[r] = cb })
}

// --- public API: queries, answered synchronously from the Warden's own
// bookkeeping under mu rather than round-tripping the loop, since external
// callers are never themselves on the event-loop thread ---

// GetPrimaryClientModeManager returns the live CLIENT_PRIMARY PMSM, or nil.
func (w *Warden) GetPrimaryClientModeManager() *pmsm.Client {
	w.mu.Lock()
	defer w.mu.Unlock()
	if c := w.clientByRole(role.ClientPrimary); c != nil {
		return c.pmsm
	}
	return nil
}

// GetScanOnlyClientModeManager returns the live CLIENT_SCAN_ONLY PMSM, or nil.
func (w *Warden) GetScanOnlyClientModeManager() *pmsm.Client {
	w.mu.Lock()
	defer w.mu.Unlock()
	if c := w.clientByRole(role.ClientScanOnly); c != nil {
		return c.pmsm
	}
	return nil
}

// GetTetheredSoftApManager returns the live SOFTAP_TETHERED PMSM, or nil.
func (w *Warden) GetTetheredSoftApManager() *pmsm.SoftAp {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s := w.softApByRole(role.SoftApTethered); s != nil {
		return s.pmsm
	}
	return nil
}

// GetLocalOnlySoftApManager returns the live SOFTAP_LOCAL_ONLY PMSM, or nil.
func (w *Warden) GetLocalOnlySoftApManager() *pmsm.SoftAp {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s := w.softApByRole(role.SoftApLocalOnly); s != nil {
		return s.pmsm
	}
	return nil
}

// --- dispatch ---

// dispatchMessage is the loop's single entry point: it bubbles msg up
// the current state's parent chain exactly like pmsm.Machine.dispatch, and
// holds mu for its whole body so external queries and CheckInvariants never
// observe a half-applied transition.
func (w *Warden) dispatchMessage(msg Message) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if msg.Kind == msgFunc {
		if fn, ok := msg.Data.(func()); ok {
			fn()
		}
		return
	}

	for s := w.state; s != nil; s = s.Parent() {
		next, handled := s.Handle(w, msg)
		if next != nil && next != w.state {
			if w.log != nil {
				w.log.Infow("warden state transition", "from", w.state.Name(), "to", next.Name(), "msg", msg.Kind)
			}
			switch next {
			case w.enabledS:
				metrics.WifiOnTransitions.Inc()
				w.reportRecoveryState(recovery.Online)
			case w.disabledS:
				metrics.WifiOffTransitions.Inc()
				w.reportRecoveryState(recovery.Inactive)
			}
			w.state = next
		}
		if handled {
			return
		}
	}
}

// --- policy helpers shared by every state ---

func (w *Warden) isAirplaneModeOn() bool {
	return w.st != nil && w.st.GetBool(settings.KeyAirplaneMode)
}

func (w *Warden) carrierDisablesWifiInEmergency() bool {
	return w.st != nil && w.st.GetBool(settings.KeyCarrierDisableWifiInEmergency)
}

// shouldEnableSta implements the scan-enable policy: the Wi-Fi
// toggle or scan-always mode can bring STA up, but airplane mode and an
// active carrier-mandated emergency overlay both veto it.
func (w *Warden) shouldEnableSta() bool {
	if w.isAirplaneModeOn() {
		return false
	}
	if w.emergencyActive && w.carrierDisablesWifiInEmergency() {
		return false
	}
	if w.st != nil && w.st.GetBool(settings.KeyWifiToggle) {
		return true
	}
	return w.st != nil && w.st.GetBool(settings.KeyScanAlwaysMode)
}

func (w *Warden) primaryOrScanOnlyClient() *clientMember {
	for _, c := range w.clients {
		if c.pmsm.Role() == role.ClientPrimary || c.pmsm.Role() == role.ClientScanOnly {
			return c
		}
	}
	return nil
}

// reevaluateSta implements the WIFI_TOGGLED/SCAN_ALWAYS_CHANGED/
// AIRPLANE_TOGGLED transition rule shared by Disabled and Enabled: bring the
// primary/scan-only Client-PMSM to the role the policy now wants, creating
// or stopping it as needed. CLIENT_LOCAL_ONLY PMSMs are never touched here.
func (w *Warden) reevaluateSta() {
	if w.shouldEnableSta() {
		wantRole := role.ClientScanOnly
		if w.st != nil && w.st.GetBool(settings.KeyWifiToggle) {
			wantRole = role.ClientPrimary
		}
		if c := w.primaryOrScanOnlyClient(); c != nil {
			if c.pmsm.Role() != wantRole {
				c.pmsm.SetRole(wantRole)
			}
			return
		}
		w.createClient(wantRole)
		return
	}
	if c := w.primaryOrScanOnlyClient(); c != nil {
		c.pmsm.Stop()
	}
}

func (w *Warden) stopAllClients() {
	for _, c := range append([]*clientMember(nil), w.clients...) {
		c.pmsm.Stop()
	}
}

func (w *Warden) stopAllSoftAps() {
	for _, s := range append([]*softApMember(nil), w.softAps...) {
		s.pmsm.Stop()
	}
}

func (w *Warden) shutdownWifi() {
	w.stopAllClients()
	w.stopAllSoftAps()
}

// stateFor reports the state the Warden should be in given its current live
// set, or nil if it's already there.
func (w *Warden) stateFor() wState {
	if w.liveCount() > 0 {
		if w.state != w.enabledS {
			return w.enabledS
		}
	} else if w.state != w.disabledS {
		return w.disabledS
	}
	return nil
}

func (w *Warden) createClient(wantRole role.Role) *clientMember {
	w.nextID++
	m := &clientMember{w: w, id: w.nextID}

	var engine connectionengine.Engine
	if w.newEngine != nil {
		engine = w.newEngine()
	}
	c := pmsm.NewClient(m.id, "warden", w.native, engine, w.dsc, m, w.wifiSink, w.recov, ringlog.New(ringlog.DefaultSize))
	c.SetMarshaler(w.loop.marshal)
	m.pmsm = c

	w.clients = append(w.clients, m)
	c.Start()
	if c.Role() == role.ClientScanOnly && wantRole != role.ClientScanOnly {
		c.SetRole(wantRole)
	}
	return m
}

func (w *Warden) createSoftAp(r role.Role, cfg *softap.Config) *softApMember {
	w.nextID++
	m := &softApMember{w: w, id: w.nextID, role: r}

	sa := pmsm.NewSoftAp(m.id, r, w.native, m, w.apSink, w.log, ringlog.New(ringlog.DefaultSize))
	sa.SetMarshaler(w.loop.marshal)
	if w.radioCaps != nil {
		sa.SetRadioCapabilities(w.radioCaps)
	}
	m.pmsm = sa

	w.softAps = append(w.softAps, m)
	sa.Start(cfg)
	return m
}

func (w *Warden) removeClient(m *clientMember, reason string) {
	for i, c := range w.clients {
		if c == m {
			w.clients = append(w.clients[:i], w.clients[i+1:]...)
			break
		}
	}
	if w.grave != nil {
		w.grave.Bury(graveyard.Entry{IfaceName: m.lastIface, LastRole: m.lastRole, Reason: reason})
	}
	if m.added && w.modeSink != nil {
		w.modeSink.OnModeChanged(role.FamilyOf(m.lastRole), m.lastRole, role.Unset)
	}
}

func (w *Warden) removeSoftAp(m *softApMember, reason string) {
	for i, s := range w.softAps {
		if s == m {
			w.softAps = append(w.softAps[:i], w.softAps[i+1:]...)
			break
		}
	}
	if w.grave != nil {
		w.grave.Bury(graveyard.Entry{IfaceName: m.lastIface, LastRole: m.role, Reason: reason})
	}
	if m.added && w.modeSink != nil {
		w.modeSink.OnModeChanged(role.FamilyOf(m.role), m.role, role.Unset)
	}
}

// handleTerminal reconciles the live set against a terminal PMSM event and,
// once the live set has fully drained, resumes whatever airplane-mode or
// recovery-restart request was waiting on that drain.
func (w *Warden) handleTerminal(msg Message) {
	switch msg.Kind {
	case MsgStaStopped:
		w.removeClient(msg.Data.(*clientMember), "stopped")
	case MsgStaStartFailure:
		w.removeClient(msg.Data.(*clientMember), "start failure")
		w.reportRecoveryState(recovery.Broken)
	case MsgApStopped:
		w.removeSoftAp(msg.Data.(*softApMember), "stopped")
	case MsgApStartFailure:
		w.removeSoftAp(msg.Data.(*softApMember), "start failure")
		w.reportRecoveryState(recovery.Broken)
	}

	if w.liveCount() != 0 {
		return
	}
	w.shuttingDownForAirplane = false
	if w.pendingAirplaneResume != nil {
		resume := *w.pendingAirplaneResume
		w.pendingAirplaneResume = nil
		w.loop.post(resume)
	}
	if w.pendingRecoveryRestart {
		w.pendingRecoveryRestart = false
		w.loop.post(Message{Kind: MsgDeferredRecoveryRestartWifi})
	}
}

// reportRecoveryState forwards a health observation to the self-recovery
// watcher, a no-op if none was wired.
func (w *Warden) reportRecoveryState(s recovery.State) {
	if w.recov != nil {
		w.recov.ReportState(s)
	}
}

func (w *Warden) scheduleRecoveryContinue() {
	time.AfterFunc(maxRecoveryDelay, func() {
		w.loop.post(Message{Kind: MsgRecoveryRestartWifiContinue})
	})
}

func (w *Warden) handleApStart(req SetApRequest) {
	if w.emergencyActive {
		return
	}
	if w.softApByRole(req.Role) != nil {
		return
	}
	if req.Cfg != nil && req.Cfg.Band == softap.BandDual {
		w.stopAllClients()
	}
	w.createSoftAp(req.Role, req.Cfg)
}

func (w *Warden) handleApStop(req StopApRequest) {
	if s := w.softApByRole(req.Role); s != nil {
		s.pmsm.Stop()
	}
}

func (w *Warden) handleApUpdateConfig(req SetApRequest) {
	if s := w.softApByRole(req.Role); s != nil {
		s.pmsm.UpdateConfig(req.Cfg)
	}
}

func (w *Warden) handleApUpdateCapability(req UpdateCapabilityRequest) {
	if s := w.softApByRole(req.Role); s != nil {
		s.pmsm.SetCapabilities(req.Caps)
	}
}

func (w *Warden) handleRequestLocalOnly(reply chan *pmsm.Client) {
	if c := w.clientByRole(role.ClientLocalOnly); c != nil {
		reply <- c.pmsm
		return
	}
	if !w.emergencyActive && w.canRequestMoreClient() {
		m := w.createClient(role.ClientLocalOnly)
		reply <- m.pmsm
		return
	}
	if c := w.primaryOrScanOnlyClient(); c != nil {
		reply <- c.pmsm
		return
	}
	reply <- nil
}

func (w *Warden) handleRemoveLocalOnly(id int) {
	for _, c := range w.clients {
		if c.id == id && c.pmsm.Role() == role.ClientLocalOnly {
			c.pmsm.Stop()
			return
		}
	}
}

// handleCommon processes message kinds whose handling doesn't depend on
// whether the Warden is currently Disabled or Enabled: AP start/stop/update/
// capability, local-only client requests, and terminal-PMSM reconciliation.
func (w *Warden) handleCommon(msg Message) bool {
	switch msg.Kind {
	case MsgAPStart:
		w.handleApStart(msg.Data.(SetApRequest))
	case MsgAPStop:
		w.handleApStop(msg.Data.(StopApRequest))
	case MsgAPUpdateConfig:
		w.handleApUpdateConfig(msg.Data.(SetApRequest))
	case MsgAPUpdateCapability:
		w.handleApUpdateCapability(msg.Data.(UpdateCapabilityRequest))
	case MsgRequestLocalOnly:
		w.handleRequestLocalOnly(msg.Data.(chan *pmsm.Client))
	case MsgRemoveLocalOnly:
		w.handleRemoveLocalOnly(msg.Data.(int))
	case MsgStaStopped, MsgStaStartFailure, MsgApStopped, MsgApStartFailure:
		w.handleTerminal(msg)
	default:
		return false
	}
	return true
}

// updateEmergencyOverlay recomputes emergencyActive from the two carrier
// signals and enforces the emergency-overlay invariant across the transition.
func (w *Warden) updateEmergencyOverlay() {
	active := w.isInEmergencyCall || w.isInCallbackMode
	if active == w.emergencyActive {
		return
	}
	w.emergencyActive = active
	if active {
		w.enterEmergency()
	} else {
		w.exitEmergency()
	}
}

func (w *Warden) enterEmergency() {
	if w.log != nil {
		w.log.Infow("emergency overlay engaged", "carrierDisablesWifi", w.carrierDisablesWifiInEmergency())
	}
	w.stopAllSoftAps()
	if w.carrierDisablesWifiInEmergency() {
		w.stopAllClients()
	}
}

func (w *Warden) exitEmergency() {
	if w.log != nil {
		w.log.Infow("emergency overlay cleared")
	}
	w.reevaluateSta()
}

// --- states ---

// wState is the Warden's own hierarchical state type. It deliberately does
// not reuse pmsm.State: a PMSM's states carry a Role, which has no clean
// analog for the Warden's Default/Disabled/Enabled split, and the Warden's
// dispatch lives on Warden itself rather than on a shared Machine.
type wState interface {
	Name() string
	Parent() wState
	Handle(w *Warden, msg Message) (next wState, handled bool)
}

// defaultState is the root: airplane-mode-on, recovery-disable, and the
// emergency-call signals are valid from either child and land here once
// Disabled/Enabled decline to handle them.
type defaultState struct{}

func (defaultState) Name() string   { return "Default" }
func (defaultState) Parent() wState { return nil }

func (defaultState) Handle(w *Warden, msg Message) (wState, bool) {
	switch msg.Kind {
	case MsgAirplaneToggled:
		if w.isAirplaneModeOn() {
			w.shuttingDownForAirplane = true
			w.shutdownWifi()
		}
		return w.stateFor(), true

	case MsgRecoveryDisableWifi:
		w.shutdownWifi()
		return w.stateFor(), true

	case MsgEmergencyCallStateChanged:
		on, _ := msg.Data.(bool)
		w.isInEmergencyCall = on
		w.updateEmergencyOverlay()
		return w.stateFor(), true

	case MsgEmergencyCallbackModeChanged:
		on, _ := msg.Data.(bool)
		w.isInCallbackMode = on
		w.updateEmergencyOverlay()
		return w.stateFor(), true
	}
	return nil, false
}

// disabledState is the Warden's state while the live set is empty.
type disabledState struct{ parent wState }

func (s *disabledState) Name() string   { return "Disabled" }
func (s *disabledState) Parent() wState { return s.parent }

func (s *disabledState) Handle(w *Warden, msg Message) (wState, bool) {
	switch msg.Kind {
	case MsgAirplaneToggled:
		w.reevaluateSta()
		return w.stateFor(), true

	case MsgWifiToggled, MsgScanAlwaysChanged:
		if !w.emergencyActive {
			w.reevaluateSta()
		}
		return w.stateFor(), true

	case MsgRecoveryRestartWifi, MsgDeferredRecoveryRestartWifi:
		w.scheduleRecoveryContinue()
		return nil, true

	case MsgRecoveryRestartWifiContinue:
		w.reevaluateSta()
		return w.stateFor(), true
	}
	if w.handleCommon(msg) {
		return w.stateFor(), true
	}
	return nil, false
}

// enabledState is the Warden's state while at least one PMSM is live.
type enabledState struct{ parent wState }

func (s *enabledState) Name() string   { return "Enabled" }
func (s *enabledState) Parent() wState { return s.parent }

func (s *enabledState) Handle(w *Warden, msg Message) (wState, bool) {
	switch msg.Kind {
	case MsgWifiToggled, MsgScanAlwaysChanged:
		if !w.emergencyActive {
			w.reevaluateSta()
		}
		return w.stateFor(), true

	case MsgAirplaneToggled:
		if w.isAirplaneModeOn() {
			// Let Default tear everything down; NOT_HANDLED bubbling.
			return nil, false
		}
		if w.shuttingDownForAirplane {
			m := msg
			w.pendingAirplaneResume = &m
			return nil, true
		}
		w.reevaluateSta()
		return w.stateFor(), true

	case MsgRecoveryRestartWifi:
		reason, _ := msg.Data.(RecoveryReason)
		if w.log != nil {
			w.log.Warnw("recovery restart requested", "reason", reason)
		}
		if reason != ReasonLastResortWatchdog {
			w.bugReporter.RequestBugReport(string(reason))
		}
		w.pendingRecoveryRestart = true
		w.shutdownWifi()
		return w.stateFor(), true

	case MsgDeferredRecoveryRestartWifi:
		// Defensive: only Disabled should normally see this.
		w.pendingRecoveryRestart = true
		w.shutdownWifi()
		return w.stateFor(), true
	}
	if w.handleCommon(msg) {
		return w.stateFor(), true
	}
	return nil, false
}
