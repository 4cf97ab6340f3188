/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Command wifiwardend is the reference Mode Warden daemon: it wires the
// settings store, the native interface layer, the deferred-stop controller,
// and the self-recovery watcher into a running Warden, then waits for a
// signal to exit. Modeled on ap.wifid's daemonInit/signalHandler/main split,
// trimmed to this repository's collaborators: no broker, mcp, or apcfg, since
// the Mode Warden owns no remote config tree of its own.
package main

import (
	"flag"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bg.wifiwarden/internal/broadcast"
	"bg.wifiwarden/internal/connectionengine"
	"bg.wifiwarden/internal/deferredstop"
	"bg.wifiwarden/internal/graveyard"
	"bg.wifiwarden/internal/hostapd"
	"bg.wifiwarden/internal/imsobserver"
	"bg.wifiwarden/internal/logging"
	"bg.wifiwarden/internal/netobserver"
	"bg.wifiwarden/internal/recovery"
	"bg.wifiwarden/internal/settings"
	"bg.wifiwarden/internal/wificaps"
	"bg.wifiwarden/internal/warden"
)

const pname = "wifiwardend"

var (
	diagAddr = flag.String("diag-addr", ":6061", "address to serve /debug/pprof and /metrics on")
	logLevel = flag.String("log-level", "info", "initial log level")

	hostapdCmd = flag.String("hostapd-cmd", "/sbin/hostapd", "path to hostapd")
	ifCmd      = flag.String("if-cmd", "/sbin/ip", "path to ip(8)")
	iwCmd      = flag.String("iw-cmd", "/sbin/iw", "path to iw(8)")

	recoveryThreshold = flag.Int("recovery-threshold", 3,
		"consecutive BROKEN reports before the Warden is force-reset")
	deferMs = flag.Int("extra-disconnect-defer-ms", 0,
		"milliseconds a deferred stop keeps waiting once cellular becomes available (0: continue at once)")
	radioPhy = flag.String("radio-phy", "phy0", "wireless phy to probe for radio capabilities")
)

// probeRadioCapabilities shells out to `iw phy <phy> info`, mirroring how
// the Driver itself invokes iw for country-code work. Errors
// just mean the daemon runs without automatic channel selection.
func probeRadioCapabilities(log *zap.SugaredLogger) *wificaps.Capabilities {
	out, err := exec.Command(*iwCmd, "phy", *radioPhy, "info").CombinedOutput()
	if err != nil {
		log.Warnf("iw phy %s info failed, radio capabilities unknown: %v", *radioPhy, err)
		return nil
	}
	return wificaps.ParseIwPhyInfo(string(out))
}

// daemonInit builds every collaborator the Warden needs and returns a
// running Warden. No real Telephony/IMS or cellular-availability observer
// is wired up, so production wiring falls back to the always-available
// Fakes already used by this repository's tests; a platform that needs real
// handoff signalling swaps those two lines.
func daemonInit(log *zap.SugaredLogger) *warden.Warden {
	st := settings.NewInMemory()

	native := hostapd.New(log, *hostapdCmd, *ifCmd, *iwCmd)

	ims := imsobserver.NewFake()
	net := netobserver.NewFake()
	dsc := deferredstop.New(log, ims, net, *deferMs)

	grave := graveyard.New()
	recov := recovery.NewWatcher(*recoveryThreshold)

	rec := broadcast.NewRecorder()

	w := warden.New(log, st, native,
		func() connectionengine.Engine { return connectionengine.NewFake() },
		dsc, recov, grave, warden.NoopBugReporter{},
		rec, rec, rec)

	if info := probeRadioCapabilities(log); info != nil {
		w.SetRadioCapabilities(info)
	}

	return w
}

func signalHandler(log *zap.SugaredLogger, wifiw *warden.Warden, done chan<- struct{}) {
	sig := make(chan os.Signal, 3)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for s := range sig {
		if s == syscall.SIGHUP {
			log.Infof("SIGHUP: re-reading nothing, the Warden has no config file")
			continue
		}
		log.Infof("received signal %v, shutting down", s)
		break
	}
	wifiw.Close()
	close(done)
}

func main() {
	flag.Parse()

	log := logging.New(pname)
	defer log.Sync()
	_ = logging.SetLevel(*logLevel)

	log.Infof("starting")

	wifiw := daemonInit(log)

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		signalHandler(log, wifiw, done)
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)
	go func() {
		if err := http.ListenAndServe(*diagAddr, mux); err != nil {
			log.Warnf("diagnostics listener exited: %v", err)
		}
	}()

	<-done
	wg.Wait()
	log.Infof("exiting")
}
