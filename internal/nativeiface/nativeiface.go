// Package nativeiface is the contract for the Native Interface Layer: it
// creates/destroys kernel interfaces, drives hostapd/supplicant, and
// delivers asynchronous up/down/destroyed callbacks. The Warden and PMSMs
// only need something to call, so this package pins down the method set as
// a Go interface. Two implementations live in this repository:
// hostapd.Driver (the real control-socket driver, adapted from
// bg/ap.wifid/hostapd.go) and Fake (an in-memory double used by every test
// here).
package nativeiface

import "bg.wifiwarden/internal/softap"

// InterfaceCallback is delivered by the Native layer for every interface it
// manages, translating into PMSM state events.
type InterfaceCallback interface {
	OnUp(ifaceName string)
	OnDown(ifaceName string)
	OnDestroyed(ifaceName string)
}

// SoftApListener is the hostapd-side listener registered by startSoftAp.
type SoftApListener interface {
	OnFailure(ifaceName string)
	OnInfoChanged(ifaceName string, info softap.Info)
	OnConnectedClientsChanged(ifaceName string, clients []string)
}

// AvailabilityListener is told whether the native layer currently has spare
// radio capacity to hand out another interface of the kind (client or
// SoftAp) it was registered for; the Warden surfaces these as
// canRequestMoreClient/canRequestMoreSoftAp.
type AvailabilityListener func(available bool)

// Layer is the exact contract consumed from the Native Interface Layer.
type Layer interface {
	SetupInterfaceForClientInScanMode(cb InterfaceCallback) (ifaceName string, err error)
	SetupInterfaceForSoftApMode(cb InterfaceCallback, workSource string, isBridged bool) (ifaceName string, err error)
	SetupInterfaceForBridgeMode(cb InterfaceCallback) (ifaceName string, err error)

	SwitchClientInterfaceToScanMode(ifaceName string) bool
	SwitchClientInterfaceToConnectivityMode(ifaceName string) bool

	TeardownInterface(ifaceName string)

	StartSoftAp(ifaceName string, cfg *softap.Config, isTethered bool, listener SoftApListener) bool

	SetCountryCodeHal(ifaceName string, cc string) bool
	SetApMacAddress(ifaceName string, mac string) bool
	ResetApMacToFactoryMacAddress(ifaceName string) bool
	IsApSetMacAddressSupported(ifaceName string) bool

	IsInterfaceUp(ifaceName string) bool
	ForceClientDisconnect(ifaceName string, mac string, reason string) bool

	RegisterStatusListener(ready func(bool))
	RegisterClientInterfaceAvailabilityListener(l AvailabilityListener)
	RegisterSoftApInterfaceAvailabilityListener(l AvailabilityListener)
}

// Force-disconnect reasons, used both as the argument to
// ForceClientDisconnect and as a metrics label.
const (
	ReasonBlockedByUser = "BLOCKED_BY_USER"
	ReasonNoMoreStas    = "NO_MORE_STAS"
)
