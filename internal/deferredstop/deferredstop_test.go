/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package deferredstop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bg.wifiwarden/internal/imsobserver"
	"bg.wifiwarden/internal/netobserver"
)

// fakeTimer is a Timer that never fires on its own; tests fire it explicitly
// via fakeClock.Fire, so a deferred stop's timeout path can be exercised
// without racing a real wall-clock duration.
type fakeTimer struct {
	stopped bool
	fn      func()
}

func (t *fakeTimer) Stop() bool {
	wasRunning := !t.stopped
	t.stopped = true
	return wasRunning
}

// fakeClock records every AfterFunc call instead of scheduling a real timer.
type fakeClock struct {
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) fire(i int) {
	t := c.timers[i]
	if !t.stopped {
		t.fn()
	}
}

func TestStopContinuesImmediatelyWithNoWifiIms(t *testing.T) {
	assert := require.New(t)

	ims := imsobserver.NewFake()
	net := netobserver.NewFake()
	c := New(nil, ims, net, 0)

	called := 0
	c.Stop(func() { called++ })

	assert.Equal(1, called)
}

func TestStopDefersUntilImsLeavesWifi(t *testing.T) {
	assert := require.New(t)

	ims := imsobserver.NewFake()
	net := netobserver.NewFake()
	clk := &fakeClock{}
	c := New(nil, ims, net, 0).WithClock(clk)

	ims.SetRegistration(imsobserver.Registration{SubscriptionID: "1", RegisteredOverWifi: true, PreferredDeferMs: 5000})

	called := 0
	c.Stop(func() { called++ })
	assert.Equal(0, called, "a positive defer delay must not continue synchronously")

	ims.SetRegistration(imsobserver.Registration{SubscriptionID: "1", RegisteredOverWifi: false})
	assert.Equal(1, called)
}

func TestStopIgnoresUnrelatedSubscriptionChanges(t *testing.T) {
	assert := require.New(t)

	ims := imsobserver.NewFake()
	net := netobserver.NewFake()
	clk := &fakeClock{}
	c := New(nil, ims, net, 0).WithClock(clk)

	ims.SetRegistration(imsobserver.Registration{SubscriptionID: "1", RegisteredOverWifi: true, PreferredDeferMs: 5000})

	called := 0
	c.Stop(func() { called++ })

	ims.SetRegistration(imsobserver.Registration{SubscriptionID: "2", RegisteredOverWifi: false})
	assert.Equal(0, called, "a different subscription's registration change must not complete this pending stop")
}

func TestStopContinuesWhenTimerFires(t *testing.T) {
	assert := require.New(t)

	ims := imsobserver.NewFake()
	net := netobserver.NewFake()
	clk := &fakeClock{}
	c := New(nil, ims, net, 0).WithClock(clk)

	ims.SetRegistration(imsobserver.Registration{SubscriptionID: "1", RegisteredOverWifi: true, PreferredDeferMs: 1000})

	called := 0
	c.Stop(func() { called++ })
	assert.Equal(0, called)

	clk.fire(0)
	assert.Equal(1, called)
}

func TestStopExtendsByExtraDelayWhenCellularBecomesAvailable(t *testing.T) {
	assert := require.New(t)

	ims := imsobserver.NewFake()
	net := netobserver.NewFake()
	net.SetAvailable(false)
	clk := &fakeClock{}
	c := New(nil, ims, net, 2000).WithClock(clk)

	ims.SetRegistration(imsobserver.Registration{SubscriptionID: "1", RegisteredOverWifi: true, PreferredDeferMs: 5000})

	called := 0
	c.Stop(func() { called++ })
	assert.Len(clk.timers, 1, "the initial 5s defer timer")

	net.SetAvailable(true)
	assert.Equal(0, called, "cellular becoming available schedules the extra grace timer instead of continuing immediately")
	assert.Len(clk.timers, 2, "the extra-delay timer replacing the original one")

	clk.fire(1)
	assert.Equal(1, called)
}

func TestStopContinuesOnceOnlyAfterRaceBetweenTimerAndCallback(t *testing.T) {
	assert := require.New(t)

	ims := imsobserver.NewFake()
	net := netobserver.NewFake()
	clk := &fakeClock{}
	c := New(nil, ims, net, 0).WithClock(clk)

	ims.SetRegistration(imsobserver.Registration{SubscriptionID: "1", RegisteredOverWifi: true, PreferredDeferMs: 1000})

	called := 0
	c.Stop(func() { called++ })

	ims.SetRegistration(imsobserver.Registration{SubscriptionID: "1", RegisteredOverWifi: false})
	clk.fire(0)

	assert.Equal(1, called, "continueFn must fire exactly once even if the timer still fires after the IMS callback won")
}
