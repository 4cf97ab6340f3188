/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package broadcast

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bg.wifiwarden/internal/role"
)

func TestRecorderRecordsInOrder(t *testing.T) {
	assert := require.New(t)

	r := NewRecorder()
	r.OnModeChanged(role.FamilyClient, role.Unset, role.ClientScanOnly)
	r.OnModeChanged(role.FamilyClient, role.ClientScanOnly, role.ClientPrimary)

	got := r.Transitions()
	assert.Equal([]Transition{
		{Family: role.FamilyClient, Previous: role.Unset, Current: role.ClientScanOnly},
		{Family: role.FamilyClient, Previous: role.ClientScanOnly, Current: role.ClientPrimary},
	}, got)

	last, ok := r.Last()
	assert.True(ok)
	assert.Equal(role.ClientPrimary, last.Current)
}

func TestRecorderLastOnEmpty(t *testing.T) {
	assert := require.New(t)

	r := NewRecorder()
	_, ok := r.Last()
	assert.False(ok)
}

func TestRecorderWifiAndApTransitions(t *testing.T) {
	assert := require.New(t)

	r := NewRecorder()
	r.OnWifiStateChanged(StateDisabled, StateEnabling)
	r.OnWifiStateChanged(StateEnabling, StateEnabled)
	r.OnApStateChanged(StateDisabled, StateEnabled, "", "wlanap0", "tethered")

	assert.Equal([]WifiTransition{
		{Previous: StateDisabled, Current: StateEnabling},
		{Previous: StateEnabling, Current: StateEnabled},
	}, r.WifiTransitions())

	apTrans := r.ApTransitions()
	assert.Len(apTrans, 1)
	assert.Equal("wlanap0", apTrans[0].IfaceName)
	assert.Equal("tethered", apTrans[0].Mode)
}
