/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package wificaps

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleIwPhyInfo = `
Wiphy phy0
	max # scan SSIDs: 10
	Supported interface modes:
		 * IBSS
		 * managed
		 * AP
		 * AP/VLAN
	valid interface combinations:
		 * #{ managed } <= 1, #{ AP } <= 2 = 2,
		   total <= 2, #channels <= 1
	Band 1:
		Capabilities: 0x1062
			HT20/40
		* 2412 MHz [1] (20.0 dBm)
		* 2437 MHz [6] (20.0 dBm)
		* 2462 MHz [11] (20.0 dBm)
	Band 2:
		VHT Capabilities (0x338001b2):
		* 5180 MHz [36] (23.0 dBm)
		* 5200 MHz [40] (23.0 dBm)
		* 5745 MHz [149] (disabled)
`

func TestParseIwPhyInfo(t *testing.T) {
	assert := require.New(t)

	caps := ParseIwPhyInfo(sampleIwPhyInfo)

	assert.True(caps.SupportVLANs)
	assert.Equal(2, caps.Interfaces)
	assert.True(caps.WifiBands[Band2GHz])
	assert.True(caps.WifiBands[Band5GHz])
	assert.True(caps.Channels[1])
	assert.True(caps.Channels[36])
	assert.False(caps.Channels[149], "channels marked disabled must be excluded")
	assert.True(caps.WifiModes["n"])
	assert.True(caps.WifiModes["ac"])
}

func TestDeriveSoftApCapabilities(t *testing.T) {
	assert := require.New(t)

	caps := ParseIwPhyInfo(sampleIwPhyInfo)
	softCaps := DeriveSoftApCapabilities(caps, 8)

	assert.True(softCaps.Has(FeatureClientForceDisconnect))
	assert.True(softCaps.Has(FeatureWPA3))
	assert.True(softCaps.Has(FeatureMACRandomization))
	assert.True(softCaps.Has(FeatureMaxClients))
	assert.Equal(8, softCaps.MaxClients)
}

func TestDeriveSoftApCapabilitiesNoMaxClientsOmitsFeature(t *testing.T) {
	assert := require.New(t)

	caps := &Capabilities{WifiModes: map[string]bool{}}
	softCaps := DeriveSoftApCapabilities(caps, 0)

	assert.False(softCaps.Has(FeatureMaxClients))
	assert.False(softCaps.Has(FeatureWPA3))
}

func TestCapabilitiesString(t *testing.T) {
	assert := require.New(t)

	caps := ParseIwPhyInfo(sampleIwPhyInfo)
	s := caps.String()

	assert.Contains(s, "vlans=true")
	assert.Contains(s, "interfaces=2")
}
