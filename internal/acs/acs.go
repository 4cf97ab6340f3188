// Package acs implements automatic channel selection for the SoftAp-PMSM,
// adapted from ap.networkd/wifi.go's channel-selection logic
// (selectWifiChannel/randomChannel/score). That code chose which physical
// NIC to assign to which band; this package keeps the same two-tier
// fallback strategy (prefer non-overlapping channels, then any legal
// channel in the band) but applies it to choosing a channel for an
// already-assigned band, which is what the SoftAp-PMSM start sequence
// needs (step 5: "Compute channel via ACS if supported; otherwise use
// configured channel").
package acs

import (
	"math/rand"

	"bg.wifiwarden/internal/wificaps"
)

// legalChannels restricts ChannelLists to channels that are legal to
// transmit on in the regulatory domain. This keeps a single US-specific
// table; per-country tables are future work.
var legalChannels = map[string]map[int]bool{
	wificaps.Band2GHz: channelSet(wificaps.ChannelLists["loBand20MHz"]),
	wificaps.Band5GHz: channelSet(wificaps.ChannelLists["hiBand20MHz"]),
}

func channelSet(list []int) map[int]bool {
	m := make(map[int]bool, len(list))
	for _, c := range list {
		m[c] = true
	}
	return m
}

func isLegal(band string, channel int, supported map[int]bool) bool {
	return supported[channel] && legalChannels[band][channel]
}

// randomChannel picks, at random, one channel from list that is both
// supported by the radio and legal for band; it tries every candidate
// exactly once before giving up, to avoid retry storms on an unlucky seed.
func randomChannel(band string, supported map[int]bool, list []int) (int, bool) {
	if len(list) == 0 {
		return 0, false
	}
	start := rand.Intn(len(list))
	idx := start
	for {
		if isLegal(band, list[idx], supported) {
			return list[idx], true
		}
		idx++
		if idx == len(list) {
			idx = 0
		}
		if idx == start {
			return 0, false
		}
	}
}

// SelectChannel chooses a channel for band from the radio's supported
// channel set, using a non-overlapping-first fallback on 2.4GHz and a
// wide-channel-first fallback on 5GHz, the same tiering selectWifiChannel
// used for NIC-to-band assignment.
func SelectChannel(band string, cap *wificaps.Capabilities) (int, bool) {
	if cap == nil || !cap.WifiBands[band] {
		return 0, false
	}

	if band == wificaps.Band2GHz {
		if ch, ok := randomChannel(band, cap.Channels, wificaps.ChannelLists["loBandNoOverlap"]); ok {
			return ch, true
		}
		return randomChannel(band, cap.Channels, wificaps.ChannelLists["loBand20MHz"])
	}

	if cap.HTCapabilities[0] {
		if ch, ok := randomChannel(band, cap.Channels, wificaps.ChannelLists["hiBand40MHz"]); ok {
			return ch, true
		}
	}
	return randomChannel(band, cap.Channels, wificaps.ChannelLists["hiBand20MHz"])
}
