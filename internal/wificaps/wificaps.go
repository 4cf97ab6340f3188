// Package wificaps determines a wireless device's capabilities. It is
// adapted from ap_common/wificaps: the `iw phy <phy>
// info` text-parsing heuristics (VLAN support, interface count, supported
// channels/bands/modes, HT/VHT capability bits) are kept nearly verbatim,
// but the result is now also used to derive a SoftAp-specific capability
// bitset (WPA3, MAC randomization, client-force-disconnect, max simultaneous
// clients) instead of stopping at a human-readable device report.
package wificaps

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Band names used throughout this package and its callers.
const (
	Band2GHz = "2GHZ"
	Band5GHz = "5GHZ"
	Band6GHz = "6GHZ"
	BandDual = "DUAL"
)

// ChannelLists classifies 802.11 channels by band and width, used by the
// ACS fallback algorithm in package acs.
var ChannelLists = map[string][]int{
	"loBand20MHz":     {1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	"loBandNoOverlap": {1, 6, 11},
	"hiBand20MHz": {36, 40, 44, 48, 52, 56, 60, 64, 100, 104, 108, 112, 116,
		120, 124, 128, 132, 136, 140, 144, 149, 153, 157, 161, 165},
	"hiBand40MHz": {36, 40, 44, 48, 52, 56, 60, 64, 100, 104, 108, 112, 116,
		120, 124, 128, 132, 136, 140, 144, 149, 153, 157, 161},
	"hiBand80MHz": {36, 52, 100, 116, 132, 149},
}

// Capabilities is the parsed set of attributes of a wireless radio relevant
// to the Warden and SoftAp-PMSM.
type Capabilities struct {
	SupportVLANs    bool
	Interfaces      int // number of simultaneous AP interfaces supported
	Channels        map[int]bool
	WifiBands       map[string]bool
	WifiModes       map[string]bool // 802.11[a,b,g,n,ac] modes
	HTCapabilities  map[int]bool
	VHTCapabilities map[int]bool
}

// SoftApFeature is one bit of the SoftAp feature capability bitset.
type SoftApFeature int

const (
	FeatureWPA3 SoftApFeature = 1 << iota
	FeatureMACRandomization
	FeatureClientForceDisconnect
	FeatureMaxClients
)

// SoftApCapabilities is the capability bitset plus the one scalar limit
// (MaxClients) that the client-admission policy consults.
type SoftApCapabilities struct {
	Features  SoftApFeature
	MaxClients int
}

// Has reports whether feature is present in the bitset.
func (c SoftApCapabilities) Has(feature SoftApFeature) bool {
	return c.Features&feature != 0
}

// DeriveSoftApCapabilities computes the SoftAp feature bitset a radio
// supports from its parsed Capabilities, one heuristic per feature: AP/VLAN
// support implies client force-disconnect, 802.11ac support implies WPA3,
// more than one AP interface implies MAC randomization, and a positive
// maxClients sets FeatureMaxClients. This mirrors the conservative heuristics used
// elsewhere in this package to infer feature support from `iw` output
// rather than a vendor capability database.
func DeriveSoftApCapabilities(c *Capabilities, maxClients int) SoftApCapabilities {
	var f SoftApFeature
	if c.SupportVLANs {
		f |= FeatureClientForceDisconnect
	}
	if c.WifiModes["ac"] {
		f |= FeatureWPA3
	}
	if c.Interfaces > 1 {
		f |= FeatureMACRandomization
	}
	if maxClients > 0 {
		f |= FeatureMaxClients
	}
	return SoftApCapabilities{Features: f, MaxClients: maxClients}
}

type capBit struct {
	mask, match uint64
	name        string
}

// HT/VHT capability indices used by getCapabilityBits.
const (
	htCapHT2040 = iota
)

var (
	htCaps = map[int]capBit{
		htCapHT2040: {mask: 0x0002, match: 0x0002, name: "HT20/40"},
	}
	vhtCaps = map[int]capBit{}
)

func getVLANSupport(w *Capabilities, info string) {
	vlanRE := regexp.MustCompile(`AP/VLAN[^:]`)
	w.SupportVLANs = vlanRE.MatchString(info)
}

func getInterfaces(w *Capabilities, info string) {
	comboRE := regexp.MustCompile(`#{ [\w\-, ]+ } <= [0-9]+`)
	for _, line := range comboRE.FindAllString(info, -1) {
		if strings.Contains(line, "AP") {
			fields := strings.Fields(line)
			if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil && n > w.Interfaces {
				w.Interfaces = n
			}
		}
	}
}

func getChannels(w *Capabilities, info string) {
	w.WifiBands = make(map[string]bool)
	w.Channels = make(map[int]bool)

	chanRE := regexp.MustCompile(`\* (\d+) MHz \[(\d+)\] \((.*)\)`)
	for _, m := range chanRE.FindAllStringSubmatch(info, -1) {
		if strings.Contains(m[3], "disabled") || strings.Contains(m[3], "no IR") ||
			strings.Contains(m[3], "radar detection") {
			continue
		}
		channel, _ := strconv.Atoi(m[2])
		w.Channels[channel] = true

		freq, _ := strconv.Atoi(m[1])
		switch {
		case freq <= 2484:
			w.WifiBands[Band2GHz] = true
		case freq >= 5035 && freq < 5925:
			w.WifiBands[Band5GHz] = true
		case freq >= 5925:
			w.WifiBands[Band6GHz] = true
		}
	}
}

func getWifiModes(w *Capabilities, info string) {
	w.WifiModes = make(map[string]bool)

	if w.WifiBands[Band2GHz] {
		w.WifiModes["g"] = true
	}
	if w.WifiBands[Band5GHz] {
		w.WifiModes["a"] = true
	}
	if regexp.MustCompile(`(HT20|HT40)`).MatchString(info) {
		w.WifiModes["n"] = true
	}
	if strings.Contains(info, "VHT Capabilities") {
		w.WifiModes["ac"] = true
	}
}

func getCapabilityBits(w *Capabilities, info string) {
	w.HTCapabilities = make(map[int]bool)
	w.VHTCapabilities = make(map[int]bool)

	htRE := regexp.MustCompile(`\sCapabilities: 0x([[:xdigit:]]+)`)
	if m := htRE.FindStringSubmatch(info); len(m) == 2 {
		flags, _ := strconv.ParseUint(m[1], 16, 64)
		for i, c := range htCaps {
			if flags&c.mask == c.match {
				w.HTCapabilities[i] = true
			}
		}
	}

	vhtRE := regexp.MustCompile(`VHT Capabilities \(0x([[:xdigit:]]+)\)`)
	if m := vhtRE.FindStringSubmatch(info); len(m) == 2 {
		flags, _ := strconv.ParseUint(m[1], 16, 64)
		for i, c := range vhtCaps {
			if flags&c.mask == c.match {
				w.VHTCapabilities[i] = true
			}
		}
	}
}

// ParseIwPhyInfo parses the text produced by `iw phy <phy> info` into a
// Capabilities value.
func ParseIwPhyInfo(info string) *Capabilities {
	var w Capabilities
	getVLANSupport(&w, info)
	getInterfaces(&w, info)
	getChannels(&w, info)
	getWifiModes(&w, info)
	getCapabilityBits(&w, info)
	return &w
}

func buildChannelString(all []int, found map[int]bool) string {
	list := make([]string, 0, len(all))
	for _, c := range all {
		if found[c] {
			list = append(list, strconv.Itoa(c))
		}
	}
	return strings.Join(list, ",")
}

// String renders a human-readable summary, used by diagnostic commands.
func (w *Capabilities) String() string {
	modes := make([]string, 0, 4)
	for _, m := range []string{"a", "g", "n", "ac"} {
		if w.WifiModes[m] {
			modes = append(modes, m)
		}
	}
	sort.Strings(modes)

	return fmt.Sprintf("modes=%s interfaces=%d vlans=%v 2.4GHz=%s 5GHz=%s",
		strings.Join(modes, "/"), w.Interfaces, w.SupportVLANs,
		buildChannelString(ChannelLists["loBand20MHz"], w.Channels),
		buildChannelString(ChannelLists["hiBand20MHz"], w.Channels))
}
