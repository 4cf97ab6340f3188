/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package role

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFamilyOf(t *testing.T) {
	assert := require.New(t)

	assert.Equal(FamilyClient, FamilyOf(ClientPrimary))
	assert.Equal(FamilyClient, FamilyOf(ClientScanOnly))
	assert.Equal(FamilyClient, FamilyOf(ClientLocalOnly))
	assert.Equal(FamilySoftAp, FamilyOf(SoftApTethered))
	assert.Equal(FamilySoftAp, FamilyOf(SoftApLocalOnly))
	assert.Equal(FamilyClient, FamilyOf(Unset))
}

func TestIsConnectivity(t *testing.T) {
	assert := require.New(t)

	assert.True(ClientPrimary.IsConnectivity())
	assert.True(ClientLocalOnly.IsConnectivity())
	assert.False(ClientScanOnly.IsConnectivity())
	assert.False(SoftApTethered.IsConnectivity())
}

func TestRoleString(t *testing.T) {
	assert := require.New(t)

	assert.Equal("CLIENT_PRIMARY", ClientPrimary.String())
	assert.Equal("UNSET", Unset.String())
	assert.Equal("client", FamilyClient.String())
	assert.Equal("softap", FamilySoftAp.String())
}
