package warden

import (
	"bg.wifiwarden/internal/role"
	"bg.wifiwarden/internal/softap"
	"bg.wifiwarden/internal/wificaps"
)

// Message kinds the Warden's state machine understands: inbound events from
// the public API plus internal terminal-PMSM events it reconciles against.
const (
	MsgWifiToggled       = "WIFI_TOGGLED"
	MsgAirplaneToggled   = "AIRPLANE_TOGGLED"
	MsgScanAlwaysChanged = "SCAN_ALWAYS_MODE_CHANGED"

	MsgAPStart           = "WARDEN_AP_START"
	MsgAPStop            = "WARDEN_AP_STOP"
	MsgAPUpdateConfig    = "WARDEN_AP_UPDATE_CONFIG"
	MsgAPUpdateCapability = "WARDEN_AP_UPDATE_CAPABILITY"

	MsgRequestLocalOnly = "REQUEST_LOCAL_ONLY"
	MsgRemoveLocalOnly  = "REMOVE_LOCAL_ONLY"

	MsgRecoveryDisableWifi         = "RECOVERY_DISABLE_WIFI"
	MsgRecoveryRestartWifi         = "RECOVERY_RESTART_WIFI"
	MsgDeferredRecoveryRestartWifi = "DEFERRED_RECOVERY_RESTART_WIFI"
	MsgRecoveryRestartWifiContinue = "RECOVERY_RESTART_WIFI_CONTINUE"

	MsgEmergencyCallbackModeChanged = "EMERGENCY_CALLBACK_MODE_CHANGED"
	MsgEmergencyCallStateChanged    = "EMERGENCY_CALL_STATE_CHANGED"

	// Terminal PMSM events the Warden reconciles its live set against.
	MsgStaStopped      = "STA_STOPPED"
	MsgStaStartFailure = "STA_START_FAILURE"
	MsgApStopped       = "AP_STOPPED"
	MsgApStartFailure  = "AP_START_FAILURE"

	// msgFunc wraps an arbitrary closure marshaled onto the event loop by
	// loop.marshal; it bypasses state dispatch entirely (see
	// dispatchMessage in warden.go).
	msgFunc = "_FUNC"
)

// SetApRequest carries a startSoftAp/updateSoftApConfiguration payload plus
// which SoftAp family (tethered vs. local-only) it targets.
type SetApRequest struct {
	Role role.Role // SoftApTethered or SoftApLocalOnly
	Cfg  *softap.Config
}

// StopApRequest names which SoftAp family to tear down.
type StopApRequest struct {
	Role role.Role
}

// UpdateCapabilityRequest carries a fresh radio-capability snapshot for one
// SoftAp family.
type UpdateCapabilityRequest struct {
	Role role.Role
	Caps wificaps.SoftApCapabilities
}

// RecoveryReason names why a recovery-triggered restart/disable was
// requested, distinguishing the "last-resort watchdog" case (which skips the
// bug-report request) from a plain daemon-died or unresponsive restart.
type RecoveryReason string

const (
	ReasonLastResortWatchdog RecoveryReason = "LAST_RESORT_WATCHDOG"
	ReasonDaemonDied         RecoveryReason = "DAEMON_DIED"
	ReasonUnresponsive       RecoveryReason = "UNRESPONSIVE"
)

// SoftApCallbacks is the set of external callbacks registered per SoftAp
// family (tethered, local-only).
type SoftApCallbacks interface {
	OnStateChanged(newState string, reason string)
	OnInfoChanged(info softap.Info)
	OnConnectedClientsChanged(clients []string)
	OnBlockedClientConnecting(mac, reason string)
}

// BugReporter is the diagnostics collaborator the recovery transition rule
// calls out to ("request bug-report unless reason is last-resort
// watchdog"), per SPEC_FULL.md's bug-report expansion. Diagnostics
// generally are out of scope, so the reference binary wires this to
// NoopBugReporter.
type BugReporter interface {
	RequestBugReport(reason string)
}

// NoopBugReporter discards every request; used when the host process has
// no diagnostics pipeline wired up.
type NoopBugReporter struct{}

// RequestBugReport implements BugReporter.
func (NoopBugReporter) RequestBugReport(reason string) {}
