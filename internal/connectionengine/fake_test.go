/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package connectionengine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingCallbacks struct {
	connected    []string
	disconnected []string
	failed       []string
	roamed       []string
}

func (r *recordingCallbacks) OnConnected(networkID string) {
	r.connected = append(r.connected, networkID)
}
func (r *recordingCallbacks) OnDisconnected(networkID string, reason string) {
	r.disconnected = append(r.disconnected, networkID+":"+reason)
}
func (r *recordingCallbacks) OnConnectFailed(networkID string, reason string) {
	r.failed = append(r.failed, networkID+":"+reason)
}
func (r *recordingCallbacks) OnRoamed(fromNetworkID, toNetworkID string) {
	r.roamed = append(r.roamed, fromNetworkID+"->"+toNetworkID)
}

func TestFakeConnectNotifiesOnConnected(t *testing.T) {
	assert := require.New(t)

	f := NewFake()
	cb := &recordingCallbacks{}
	f.RegisterCallbacks(cb)

	assert.NoError(f.Connect("net1"))
	assert.Equal("net1", f.Connected)
	assert.Equal([]string{"net1"}, cb.connected)
}

func TestFakeConnectFailureNotifiesConnectFailed(t *testing.T) {
	assert := require.New(t)

	f := NewFake()
	f.FailConnect = true
	cb := &recordingCallbacks{}
	f.RegisterCallbacks(cb)

	assert.Error(f.Connect("net1"))
	assert.Empty(f.Connected)
	assert.Len(cb.failed, 1)
}

func TestFakeDisconnectNotifiesPreviousNetwork(t *testing.T) {
	assert := require.New(t)

	f := NewFake()
	cb := &recordingCallbacks{}
	f.RegisterCallbacks(cb)
	require.NoError(t, f.Connect("net1"))

	assert.NoError(f.Disconnect("user requested"))
	assert.Empty(f.Connected)
	assert.Equal([]string{"net1:user requested"}, cb.disconnected)
}

func TestFakeRoamUpdatesConnectedAndNotifies(t *testing.T) {
	assert := require.New(t)

	f := NewFake()
	cb := &recordingCallbacks{}
	f.RegisterCallbacks(cb)
	require.NoError(t, f.Connect("net1"))

	assert.NoError(f.Roam("net2"))
	assert.Equal("net2", f.Connected)
	assert.Equal([]string{"net1->net2"}, cb.roamed)
}

func TestFakeSaveRecordsConfig(t *testing.T) {
	assert := require.New(t)

	f := NewFake()
	assert.NoError(f.Save("net1", map[string]string{"psk": "secret"}))
	assert.Equal("secret", f.Saved["net1"]["psk"])
}

func TestFakeStartPasspointAndDppRecordDistinctNetworks(t *testing.T) {
	assert := require.New(t)

	f := NewFake()
	passpointID, err := f.StartPasspoint("cred1")
	assert.NoError(err)

	dppID, err := f.StartDpp("DPP:uri...")
	assert.NoError(err)

	assert.NotEqual(passpointID, dppID)
	assert.Contains(f.Saved, passpointID)
	assert.Contains(f.Saved, dppID)
}

func TestFakeSetScorerRecordsScorer(t *testing.T) {
	assert := require.New(t)

	f := NewFake()
	assert.Nil(f.Scorer)

	f.SetScorer(func(ssid string, rssi int) int { return rssi })
	assert.NotNil(f.Scorer)
	assert.Equal(42, f.Scorer("any", 42))
}

func TestFakeEnableTdlsAndLinkProbeRecordPeer(t *testing.T) {
	assert := require.New(t)

	f := NewFake()
	assert.NoError(f.EnableTdls("aa:bb:cc:dd:ee:ff", true))
	assert.True(f.TdlsEnabled["aa:bb:cc:dd:ee:ff"])

	assert.NoError(f.LinkProbe("aa:bb:cc:dd:ee:ff"))
	assert.Equal("aa:bb:cc:dd:ee:ff", f.LastLinkProbe)
}
