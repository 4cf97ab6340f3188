/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package pmsm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bg.wifiwarden/internal/broadcast"
	"bg.wifiwarden/internal/connectionengine"
	"bg.wifiwarden/internal/deferredstop"
	"bg.wifiwarden/internal/imsobserver"
	"bg.wifiwarden/internal/netobserver"
	"bg.wifiwarden/internal/nativeiface"
	"bg.wifiwarden/internal/recovery"
	"bg.wifiwarden/internal/role"
)

// lifecycleRecorder implements Lifecycle and remembers every call, for
// asserting the onStarted/onRoleChanged*/onStopped-or-onStartFailure
// ordering law (L1) a scenario produced.
type lifecycleRecorder struct {
	started       []role.Role
	startFailures []string
	roleChanges   []role.Role
	stopped       int
}

func (l *lifecycleRecorder) OnStarted(r role.Role)        { l.started = append(l.started, r) }
func (l *lifecycleRecorder) OnStartFailure(reason string) { l.startFailures = append(l.startFailures, reason) }
func (l *lifecycleRecorder) OnRoleChanged(r role.Role)     { l.roleChanges = append(l.roleChanges, r) }
func (l *lifecycleRecorder) OnStopped()                    { l.stopped++ }

type recoveryRecorder struct {
	states []recovery.State
}

func (r *recoveryRecorder) ReportState(s recovery.State)      { r.states = append(r.states, s) }
func (r *recoveryRecorder) Attach(target recovery.Resettable) {}

func newTestClient(native *nativeiface.Fake, recov recovery.Recovery) (*Client, *lifecycleRecorder, *broadcast.Recorder) {
	dsc := deferredstop.New(nil, imsobserver.NewFake(), netobserver.NewFake(), 0)
	lc := &lifecycleRecorder{}
	wifi := broadcast.NewRecorder()
	if recov == nil {
		recov = &recoveryRecorder{}
	}
	c := NewClient(1, "test", native, connectionengine.NewFake(), dsc, lc, wifi, recov, nil)
	return c, lc, wifi
}

func TestClientStartSuccess(t *testing.T) {
	assert := require.New(t)

	native := nativeiface.NewFake()
	c, lc, _ := newTestClient(native, nil)

	c.Start()

	assert.True(c.IsStarted())
	assert.Equal(role.ClientScanOnly, c.Role())
	assert.Equal([]role.Role{role.ClientScanOnly}, lc.started)
	assert.NotEmpty(c.IfaceName())
}

func TestClientStartFailure(t *testing.T) {
	assert := require.New(t)

	native := nativeiface.NewFake()
	native.FailClientSetup = true
	c, lc, _ := newTestClient(native, nil)

	c.Start()

	assert.False(c.IsStarted())
	assert.Len(lc.startFailures, 1)
	assert.Empty(lc.started)
}

func TestClientSetRoleToPrimaryBroadcastsWifiState(t *testing.T) {
	assert := require.New(t)

	native := nativeiface.NewFake()
	c, lc, wifi := newTestClient(native, nil)
	c.Start()

	c.SetRole(role.ClientPrimary)

	assert.Equal(role.ClientPrimary, c.Role())
	assert.Equal([]role.Role{role.ClientPrimary}, lc.roleChanges)

	trans := wifi.WifiTransitions()
	assert.Len(trans, 2)
	assert.Equal(broadcast.StateEnabling, trans[0].Current)
	assert.Equal(broadcast.StateEnabled, trans[1].Current)
}

func TestClientSetRoleToPrimaryFailureEscalatesViaStopped(t *testing.T) {
	assert := require.New(t)

	native := nativeiface.NewFake()
	native.FailSwitchConn = true
	c, lc, _ := newTestClient(native, nil)
	c.Start()

	c.SetRole(role.ClientPrimary)

	assert.False(c.IsStarted())
	assert.Equal(1, lc.stopped)
	assert.Empty(lc.startFailures, "mid-life failure must not replay onStartFailure (L1)")
}

func TestClientStopTearsDownSynchronously(t *testing.T) {
	assert := require.New(t)

	native := nativeiface.NewFake()
	c, lc, wifi := newTestClient(native, nil)
	c.Start()
	c.SetRole(role.ClientPrimary)

	c.Stop()

	assert.False(c.IsStarted())
	assert.Equal(1, lc.stopped)
	trans := wifi.WifiTransitions()
	assert.NotEmpty(trans)
	last := trans[len(trans)-1]
	assert.Equal(broadcast.StateDisabled, last.Current)
}

func TestClientIfaceDestroyedReportsBrokenAndStops(t *testing.T) {
	assert := require.New(t)

	native := nativeiface.NewFake()
	recov := &recoveryRecorder{}
	c, lc, _ := newTestClient(native, recov)
	c.Start()
	iface := c.IfaceName()

	native.Destroyed(iface)

	assert.False(c.IsStarted())
	assert.Equal(1, lc.stopped)
	assert.Equal([]recovery.State{recovery.Broken}, recov.states)
}

func TestClientScanOnlyNeverBroadcastsWifiState(t *testing.T) {
	assert := require.New(t)

	native := nativeiface.NewFake()
	c, _, wifi := newTestClient(native, nil)
	c.Start()

	assert.Empty(wifi.WifiTransitions(), "CLIENT_SCAN_ONLY must not emit the sticky wifi-state broadcast")
}

func TestClientSwitchBackToScanOnly(t *testing.T) {
	assert := require.New(t)

	native := nativeiface.NewFake()
	c, lc, wifi := newTestClient(native, nil)
	c.Start()
	c.SetRole(role.ClientPrimary)

	c.SetRole(role.ClientScanOnly)

	assert.Equal(role.ClientScanOnly, c.Role())
	assert.True(c.IsStarted())
	assert.Equal([]role.Role{role.ClientPrimary, role.ClientScanOnly}, lc.roleChanges)
	trans := wifi.WifiTransitions()
	assert.NotEmpty(trans)
	last := trans[len(trans)-1]
	assert.Equal(broadcast.StateDisabled, last.Current)
}
