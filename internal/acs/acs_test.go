/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package acs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bg.wifiwarden/internal/wificaps"
)

func capsWithChannels(band string, channels ...int) *wificaps.Capabilities {
	c := &wificaps.Capabilities{
		WifiBands:       map[string]bool{band: true},
		Channels:        map[int]bool{},
		HTCapabilities:  map[int]bool{},
		VHTCapabilities: map[int]bool{},
	}
	for _, ch := range channels {
		c.Channels[ch] = true
	}
	return c
}

func TestSelectChannelUnsupportedBandFails(t *testing.T) {
	assert := require.New(t)

	c := capsWithChannels(wificaps.Band2GHz, 1, 6, 11)
	_, ok := SelectChannel(wificaps.Band5GHz, c)
	assert.False(ok)
}

func TestSelectChannelNilCapabilitiesFails(t *testing.T) {
	assert := require.New(t)

	_, ok := SelectChannel(wificaps.Band2GHz, nil)
	assert.False(ok)
}

func TestSelectChannel2GHzPrefersNonOverlapping(t *testing.T) {
	assert := require.New(t)

	c := capsWithChannels(wificaps.Band2GHz, 1, 6, 11)
	ch, ok := SelectChannel(wificaps.Band2GHz, c)

	assert.True(ok)
	assert.Contains([]int{1, 6, 11}, ch)
}

func TestSelectChannel2GHzFallsBackWhenNoNonOverlapSupported(t *testing.T) {
	assert := require.New(t)

	c := capsWithChannels(wificaps.Band2GHz, 3, 4, 5)
	ch, ok := SelectChannel(wificaps.Band2GHz, c)

	assert.True(ok)
	assert.Contains([]int{3, 4, 5}, ch)
}

func TestSelectChannel5GHzOnlyLegalChannels(t *testing.T) {
	assert := require.New(t)

	c := capsWithChannels(wificaps.Band5GHz, 36, 40, 44, 48)
	ch, ok := SelectChannel(wificaps.Band5GHz, c)

	assert.True(ok)
	assert.Contains([]int{36, 40, 44, 48}, ch)
}

func TestSelectChannelNoSupportedChannelsFails(t *testing.T) {
	assert := require.New(t)

	c := capsWithChannels(wificaps.Band2GHz, 999)
	_, ok := SelectChannel(wificaps.Band2GHz, c)
	assert.False(ok)
}
