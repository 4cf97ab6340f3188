// Package deferredstop implements the Deferred-Stop Controller (DSC):
// before a Client-PMSM actually leaves Connect, the DSC gives any
// voice-over-Wi-Fi IMS session a chance to hand off to cellular first. It
// sits between the Warden's stop request and the PMSM's teardown, driven
// entirely by callbacks posted onto the caller's single event-loop thread
// — it starts no goroutine of its own beyond the one cancellable timer
// each pending stop needs.
package deferredstop

import (
	"time"

	"go.uber.org/zap"

	"bg.wifiwarden/internal/imsobserver"
	"bg.wifiwarden/internal/metrics"
	"bg.wifiwarden/internal/netobserver"
)

// Clock abstracts time.AfterFunc so tests can drive timers deterministically
// instead of racing a real 4-minute carrier deferral.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the subset of *time.Timer the DSC needs.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock is the production Clock, backed by time.AfterFunc.
var RealClock Clock = realClock{}

// Controller is the DSC. One Controller is shared by every Client-PMSM on a
// device, since it only needs IMS/cellular observers and a clock — no
// per-PMSM state outlives a single pending stop.
type Controller struct {
	log     *zap.SugaredLogger
	ims     imsobserver.Observer
	net     netobserver.Observer
	clock   Clock
	extraMs int // config_wifiDelayDisconnectOnImsLostMs
}

// New returns a Controller using the real wall-clock timer.
func New(log *zap.SugaredLogger, ims imsobserver.Observer, net netobserver.Observer, extraDisconnectDelayMs int) *Controller {
	return &Controller{log: log, ims: ims, net: net, clock: RealClock, extraMs: extraDisconnectDelayMs}
}

// WithClock overrides the timer source, for deterministic tests.
func (c *Controller) WithClock(clk Clock) *Controller {
	c.clock = clk
	return c
}

// Stop begins a deferred stop: it computes the defer delay and
// calls continueFn once the stop may proceed, either immediately (delay=0)
// or after the earliest of a non-Wi-Fi IMS registration, the last Wi-Fi IMS
// registration being lost, or the computed timer firing. continueFn is
// always invoked exactly once, on the caller's own thread (never from a
// goroutine started here, except via the Clock's timer callback, which
// callers must themselves marshal back onto the event loop).
func (c *Controller) Stop(continueFn func()) {
	delay, subID := c.computeDelay()
	if delay <= 0 {
		metrics.DeferredStops.WithLabelValues("false", "false").Inc()
		continueFn()
		return
	}

	start := time.Now()
	p := &pending{controller: c, subID: subID, continueFn: continueFn}

	p.timer = c.clock.AfterFunc(time.Duration(delay)*time.Millisecond, func() {
		p.finish(true, start)
	})

	p.unsubIMS = c.ims.Subscribe(imsListener(p))
	p.unsubNet = c.net.Subscribe(netListener(p))
}

// computeDelay picks the maximum WIFI_OFF_DEFERRING_TIME_MILLIS across every
// subscription whose IMS is currently registered over the Wi-Fi transport.
func (c *Controller) computeDelay() (delayMs int, subID string) {
	for _, reg := range c.ims.CurrentRegistrations() {
		if !reg.RegisteredOverWifi {
			continue
		}
		d := reg.PreferredDeferMs
		if d > delayMs {
			delayMs = d
			subID = reg.SubscriptionID
		}
	}
	return delayMs, subID
}

type pending struct {
	controller *Controller
	subID      string
	continueFn func()
	timer      Timer
	unsubIMS   func()
	unsubNet   func()
	done       bool
}

func imsListener(p *pending) imsobserver.RegistrationListener {
	return func(reg imsobserver.Registration) {
		if reg.SubscriptionID != p.subID {
			return
		}
		if !reg.RegisteredOverWifi {
			p.finish(false, time.Time{})
		}
	}
}

func netListener(p *pending) netobserver.CellularListener {
	return func(available bool) {
		if !available {
			return
		}
		if p.controller.extraMs > 0 {
			p.timer.Stop()
			p.timer = p.controller.clock.AfterFunc(
				time.Duration(p.controller.extraMs)*time.Millisecond,
				func() { p.finish(true, time.Time{}) })
			return
		}
		p.finish(false, time.Time{})
	}
}

func (p *pending) finish(timedOut bool, start time.Time) {
	if p.done {
		return
	}
	p.done = true
	if p.timer != nil {
		p.timer.Stop()
	}
	if p.unsubIMS != nil {
		p.unsubIMS()
	}
	if p.unsubNet != nil {
		p.unsubNet()
	}

	timedOutLabel := "false"
	if timedOut {
		timedOutLabel = "true"
	}
	metrics.DeferredStops.WithLabelValues("true", timedOutLabel).Inc()
	p.continueFn()
}
