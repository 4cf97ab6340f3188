// Package metrics exposes a handful of named counters
// (NumSoftApClientBlocked, Wi-Fi on/off transitions). Broader metrics and
// diagnostics are out of scope, but these few get a real Prometheus
// counter, following the ap.watchd / ap.logd style of package-level
// prometheus.NewCounter vars registered once at init.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// SoftApClientsBlocked counts force-disconnects issued because a
	// client was blocked by user policy or exceeded the effective max.
	SoftApClientsBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "softap_clients_blocked_total",
			Help: "Clients force-disconnected from a SoftAp PMSM, by reason.",
		},
		[]string{"reason"},
	)

	// WifiOnTransitions counts transitions of the live PMSM set from
	// empty to non-empty (the Warden's Disabled -> Enabled edge).
	WifiOnTransitions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wifi_on_total",
			Help: "Number of times the Mode Warden transitioned Disabled -> Enabled.",
		})

	// WifiOffTransitions counts the reverse edge.
	WifiOffTransitions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wifi_off_total",
			Help: "Number of times the Mode Warden transitioned Enabled -> Disabled.",
		})

	// DeferredStops records whether a client stop was deferred and, if so,
	// whether it ran to the timeout.
	DeferredStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deferred_stops_total",
			Help: "Client-PMSM stops processed by the deferred-stop controller.",
		},
		[]string{"deferred", "timed_out"},
	)
)

func init() {
	prometheus.MustRegister(SoftApClientsBlocked, WifiOnTransitions,
		WifiOffTransitions, DeferredStops)
}

// Reasons used with SoftApClientsBlocked.
const (
	ReasonBlockedByUser = "blocked_by_user"
	ReasonNoMoreStas    = "no_more_stas"
)
