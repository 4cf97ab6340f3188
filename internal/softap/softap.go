// Package softap holds the SoftAp configuration and runtime data model,
// plus the config-change-needs-restart comparison used by the SoftAp-PMSM's
// update-without-restart path.
package softap

import (
	"strings"
	"time"

	"bg.wifiwarden/internal/wardenerr"
	"bg.wifiwarden/internal/wificaps"
)

// Band names for SoftAp configuration, matching wificaps band constants
// plus the DUAL (OWE transition) option.
const (
	Band2GHz = wificaps.Band2GHz
	Band5GHz = wificaps.Band5GHz
	Band6GHz = wificaps.Band6GHz
	BandDual = wificaps.BandDual
)

// Security enumerates the SoftAp security types.
type Security int

const (
	SecurityOpen Security = iota
	SecurityWPA2Personal
	SecurityWPA3SAE
	SecurityWPA3OWE // OWE transition mode, paired with an open SSID
)

// DefaultShutdownTimeout is used when a config does not set one and
// auto-shutdown is enabled.
const DefaultShutdownTimeout = 10 * time.Minute

// Config is the SoftAp configuration.
type Config struct {
	Band                string
	Security            Security
	SSID                string
	BSSID               string // optional; "" means unset
	CountryCode         string // required when Band is 5GHZ/6GHZ
	BlockedClients      map[string]bool
	AllowedClients      map[string]bool
	ClientControlByUser bool // enforce AllowedClients
	AutoShutdownEnabled bool
	ShutdownTimeout     time.Duration
	MaxClients          int // user-configured cap; 0 means "no user cap"
	HiddenSSID          bool
	Channel             int // fallback used when ACS is unsupported or fails
	Capabilities        wificaps.SoftApCapabilities
}

// EffectiveMaxClients is min(capability max, user max), treating a
// non-positive user max as "unset".
func (c *Config) EffectiveMaxClients() int {
	max := c.Capabilities.MaxClients
	if c.MaxClients > 0 && (max == 0 || c.MaxClients < max) {
		max = c.MaxClients
	}
	return max
}

// Validate enforces that an SSID is present, and that a 5GHz/6GHz band
// has a configured country code.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SSID) == "" {
		return wardenerr.New(wardenerr.ConfigInvalid, "softap config missing SSID")
	}
	if (c.Band == Band5GHz || c.Band == Band6GHz) && c.CountryCode == "" {
		return wardenerr.New(wardenerr.NoChannel,
			"band %s requires a configured country code", c.Band)
	}
	return nil
}

// NeedsRestart compares two configs the way checkConfigurationChangeNeedToRestart
// does: band, security, SSID, BSSID, hidden-SSID, and country code changes
// require a full stop/start; blocked/allowed clients, max-clients, and
// shutdown timeout can be applied live.
func NeedsRestart(oldCfg, newCfg *Config) bool {
	return oldCfg.Band != newCfg.Band ||
		oldCfg.Security != newCfg.Security ||
		oldCfg.SSID != newCfg.SSID ||
		oldCfg.BSSID != newCfg.BSSID ||
		oldCfg.HiddenSSID != newCfg.HiddenSSID ||
		oldCfg.CountryCode != newCfg.CountryCode
}

// Info is the current SoftApInfo runtime snapshot.
type Info struct {
	Frequency int
	Bandwidth int
	Standard  string
	BSSID     string
}

// Runtime is the SoftAp runtime state.
type Runtime struct {
	Connected         map[string]bool   // by MAC
	PendingDisconnect map[string]string // MAC -> reason
	CurrentInfo       Info
	StartedAt         time.Time
}

// NewRuntime returns a zeroed Runtime ready for a fresh start.
func NewRuntime() *Runtime {
	return &Runtime{
		Connected:         make(map[string]bool),
		PendingDisconnect: make(map[string]string),
	}
}
