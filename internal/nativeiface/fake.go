package nativeiface

import (
	"fmt"
	"sync"

	"bg.wifiwarden/internal/softap"
)

// Fake is an in-memory, deterministic Layer implementation used by every
// test in this repository, since no hostapd/wpa_supplicant binary runs in
// CI. It hands out interface names in order and lets tests directly drive
// the up/down/destroyed callbacks it would otherwise receive from the
// kernel and from hostapd.
type Fake struct {
	mu sync.Mutex

	NextClientIface string // if "" and FailClientSetup is false, auto-generates
	NextSoftApIface string

	FailClientSetup bool
	FailSoftApSetup bool
	FailSwitchScan  bool
	FailSwitchConn  bool
	FailStartSoftAp bool

	ifaces   map[string]InterfaceCallback
	up       map[string]bool
	apListen map[string]SoftApListener
	disconnectFails map[string]bool // mac -> force disconnect should fail once

	clientCount int
	softapCount int

	ClientAvailable bool
	SoftApAvailable bool
	clientAvailListeners []AvailabilityListener
	softapAvailListeners []AvailabilityListener
}

// NewFake returns a ready-to-use Fake with both availability flags true.
func NewFake() *Fake {
	return &Fake{
		ifaces:          make(map[string]InterfaceCallback),
		up:              make(map[string]bool),
		apListen:        make(map[string]SoftApListener),
		disconnectFails: make(map[string]bool),
		ClientAvailable: true,
		SoftApAvailable: true,
	}
}

func (f *Fake) nextName(prefix string, counter *int) string {
	*counter++
	return fmt.Sprintf("%s%d", prefix, *counter)
}

// SetupInterfaceForClientInScanMode implements Layer.
func (f *Fake) SetupInterfaceForClientInScanMode(cb InterfaceCallback) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailClientSetup {
		return "", fmt.Errorf("fake: client setup failed")
	}
	name := f.NextClientIface
	if name == "" {
		name = f.nextName("wlan", &f.clientCount)
	}
	f.ifaces[name] = cb
	return name, nil
}

// SetupInterfaceForSoftApMode implements Layer.
func (f *Fake) SetupInterfaceForSoftApMode(cb InterfaceCallback, workSource string, isBridged bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailSoftApSetup {
		return "", fmt.Errorf("fake: softap setup failed")
	}
	name := f.NextSoftApIface
	if name == "" {
		name = f.nextName("wlanap", &f.softapCount)
	}
	f.ifaces[name] = cb
	f.up[name] = true
	return name, nil
}

// SetupInterfaceForBridgeMode implements Layer.
func (f *Fake) SetupInterfaceForBridgeMode(cb InterfaceCallback) (string, error) {
	name := f.nextName("br", &f.softapCount)
	f.ifaces[name] = cb
	return name, nil
}

// SwitchClientInterfaceToScanMode implements Layer.
func (f *Fake) SwitchClientInterfaceToScanMode(ifaceName string) bool {
	return !f.FailSwitchScan
}

// SwitchClientInterfaceToConnectivityMode implements Layer.
func (f *Fake) SwitchClientInterfaceToConnectivityMode(ifaceName string) bool {
	return !f.FailSwitchConn
}

// TeardownInterface implements Layer.
func (f *Fake) TeardownInterface(ifaceName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ifaces, ifaceName)
	delete(f.up, ifaceName)
	delete(f.apListen, ifaceName)
}

// StartSoftAp implements Layer.
func (f *Fake) StartSoftAp(ifaceName string, cfg *softap.Config, isTethered bool, listener SoftApListener) bool {
	if f.FailStartSoftAp {
		return false
	}
	f.mu.Lock()
	f.apListen[ifaceName] = listener
	f.mu.Unlock()
	return true
}

// SetCountryCodeHal implements Layer.
func (f *Fake) SetCountryCodeHal(ifaceName, cc string) bool { return true }

// SetApMacAddress implements Layer.
func (f *Fake) SetApMacAddress(ifaceName, mac string) bool { return true }

// ResetApMacToFactoryMacAddress implements Layer.
func (f *Fake) ResetApMacToFactoryMacAddress(ifaceName string) bool { return true }

// IsApSetMacAddressSupported implements Layer.
func (f *Fake) IsApSetMacAddressSupported(ifaceName string) bool { return true }

// IsInterfaceUp implements Layer.
func (f *Fake) IsInterfaceUp(ifaceName string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.up[ifaceName]
}

// FailNextDisconnect makes the next ForceClientDisconnect for mac fail once,
// exercising the pending-disconnect retry path callers need to handle.
func (f *Fake) FailNextDisconnect(mac string) {
	f.mu.Lock()
	f.disconnectFails[mac] = true
	f.mu.Unlock()
}

// ForceClientDisconnect implements Layer.
func (f *Fake) ForceClientDisconnect(ifaceName, mac, reason string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.disconnectFails[mac] {
		delete(f.disconnectFails, mac)
		return false
	}
	return true
}

// RegisterStatusListener implements Layer.
func (f *Fake) RegisterStatusListener(ready func(bool)) {}

// RegisterClientInterfaceAvailabilityListener implements Layer.
func (f *Fake) RegisterClientInterfaceAvailabilityListener(l AvailabilityListener) {
	f.mu.Lock()
	f.clientAvailListeners = append(f.clientAvailListeners, l)
	f.mu.Unlock()
}

// RegisterSoftApInterfaceAvailabilityListener implements Layer.
func (f *Fake) RegisterSoftApInterfaceAvailabilityListener(l AvailabilityListener) {
	f.mu.Lock()
	f.softapAvailListeners = append(f.softapAvailListeners, l)
	f.mu.Unlock()
}

// SetClientAvailable drives every registered client-availability listener,
// letting tests exercise the Warden's canRequestMoreClient flag.
func (f *Fake) SetClientAvailable(available bool) {
	f.mu.Lock()
	f.ClientAvailable = available
	ls := append([]AvailabilityListener(nil), f.clientAvailListeners...)
	f.mu.Unlock()
	for _, l := range ls {
		l(available)
	}
}

// SetSoftApAvailable drives every registered softap-availability listener.
func (f *Fake) SetSoftApAvailable(available bool) {
	f.mu.Lock()
	f.SoftApAvailable = available
	ls := append([]AvailabilityListener(nil), f.softapAvailListeners...)
	f.mu.Unlock()
	for _, l := range ls {
		l(available)
	}
}

// Up delivers an OnUp callback for ifaceName, as the kernel would once the
// interface is configured.
func (f *Fake) Up(ifaceName string) {
	f.mu.Lock()
	cb := f.ifaces[ifaceName]
	f.up[ifaceName] = true
	f.mu.Unlock()
	if cb != nil {
		cb.OnUp(ifaceName)
	}
}

// Down delivers an OnDown callback for ifaceName.
func (f *Fake) Down(ifaceName string) {
	f.mu.Lock()
	cb := f.ifaces[ifaceName]
	f.up[ifaceName] = false
	f.mu.Unlock()
	if cb != nil {
		cb.OnDown(ifaceName)
	}
}

// Destroyed delivers an OnDestroyed callback for ifaceName.
func (f *Fake) Destroyed(ifaceName string) {
	f.mu.Lock()
	cb := f.ifaces[ifaceName]
	f.mu.Unlock()
	if cb != nil {
		cb.OnDestroyed(ifaceName)
	}
}

// DaemonFailure simulates hostapd dying on ifaceName, invoking the
// registered SoftApListener's OnFailure as hostapd would.
func (f *Fake) DaemonFailure(ifaceName string) {
	f.mu.Lock()
	l := f.apListen[ifaceName]
	f.mu.Unlock()
	if l != nil {
		l.OnFailure(ifaceName)
	}
}

// SoftApListener returns the listener registered for ifaceName by
// StartSoftAp, letting tests drive association/disconnection events
// directly.
func (f *Fake) SoftApListener(ifaceName string) SoftApListener {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.apListen[ifaceName]
}
