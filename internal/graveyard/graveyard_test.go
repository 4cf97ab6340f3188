/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package graveyard

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"bg.wifiwarden/internal/role"
)

func TestBuryEvictsOldestPerFamily(t *testing.T) {
	assert := require.New(t)

	g := New()
	for i := 0; i < Capacity+2; i++ {
		g.Bury(Entry{IfaceName: fmt.Sprintf("wlan%d", i), LastRole: role.ClientScanOnly, Reason: "stopped"})
	}

	recent := g.Recent(role.FamilyClient)
	assert.Len(recent, Capacity)
	// Oldest two (wlan0, wlan1) evicted; wlan2..wlan4 remain, oldest first.
	assert.Equal("wlan2", recent[0].IfaceName)
	assert.Equal("wlan4", recent[Capacity-1].IfaceName)
}

func TestFamiliesAreIndependent(t *testing.T) {
	assert := require.New(t)

	g := New()
	g.Bury(Entry{IfaceName: "wlan0", LastRole: role.ClientPrimary, Reason: "stopped"})
	g.Bury(Entry{IfaceName: "wlanap0", LastRole: role.SoftApTethered, Reason: "stopped"})

	assert.Len(g.Recent(role.FamilyClient), 1)
	assert.Len(g.Recent(role.FamilySoftAp), 1)
	assert.Equal("wlan0", g.Recent(role.FamilyClient)[0].IfaceName)
	assert.Equal("wlanap0", g.Recent(role.FamilySoftAp)[0].IfaceName)
}

func TestRecentOnEmptyFamily(t *testing.T) {
	assert := require.New(t)

	g := New()
	assert.Empty(g.Recent(role.FamilySoftAp))
}
