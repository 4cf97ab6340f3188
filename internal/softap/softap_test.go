/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package softap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bg.wifiwarden/internal/wardenerr"
	"bg.wifiwarden/internal/wificaps"
)

func TestEffectiveMaxClientsPrefersSmallerOfCapabilityAndUserCap(t *testing.T) {
	assert := require.New(t)

	c := &Config{MaxClients: 4, Capabilities: wificaps.SoftApCapabilities{MaxClients: 8}}
	assert.Equal(4, c.EffectiveMaxClients())

	c = &Config{MaxClients: 10, Capabilities: wificaps.SoftApCapabilities{MaxClients: 8}}
	assert.Equal(8, c.EffectiveMaxClients())
}

func TestEffectiveMaxClientsZeroUserCapMeansUnset(t *testing.T) {
	assert := require.New(t)

	c := &Config{MaxClients: 0, Capabilities: wificaps.SoftApCapabilities{MaxClients: 8}}
	assert.Equal(8, c.EffectiveMaxClients())

	c = &Config{MaxClients: 0}
	assert.Equal(0, c.EffectiveMaxClients())
}

func TestValidateRejectsEmptySSID(t *testing.T) {
	assert := require.New(t)

	c := &Config{SSID: "  ", Band: Band2GHz}
	err := c.Validate()
	assert.Error(err)
	assert.Equal(wardenerr.ConfigInvalid, wardenerr.KindOf(err))
}

func TestValidateRequiresCountryCodeOn5GHz(t *testing.T) {
	assert := require.New(t)

	c := &Config{SSID: "test", Band: Band5GHz}
	err := c.Validate()
	assert.Error(err)
	assert.Equal(wardenerr.NoChannel, wardenerr.KindOf(err))

	c.CountryCode = "US"
	assert.NoError(c.Validate())
}

func TestValidateAccepts2GHzWithoutCountryCode(t *testing.T) {
	assert := require.New(t)

	c := &Config{SSID: "test", Band: Band2GHz}
	assert.NoError(c.Validate())
}

func TestNeedsRestartOnBandOrSecurityOrSsidChange(t *testing.T) {
	assert := require.New(t)

	base := &Config{Band: Band2GHz, Security: SecurityWPA2Personal, SSID: "home"}

	changedBand := *base
	changedBand.Band = Band5GHz
	assert.True(NeedsRestart(base, &changedBand))

	changedSSID := *base
	changedSSID.SSID = "other"
	assert.True(NeedsRestart(base, &changedSSID))
}

func TestNeedsRestartFalseForLiveUpdatableFields(t *testing.T) {
	assert := require.New(t)

	base := &Config{Band: Band2GHz, Security: SecurityWPA2Personal, SSID: "home", MaxClients: 4}

	changed := *base
	changed.MaxClients = 8
	changed.BlockedClients = map[string]bool{"aa:bb:cc:dd:ee:ff": true}

	assert.False(NeedsRestart(base, &changed))
}
