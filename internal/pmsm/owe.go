package pmsm

import (
	"encoding/base32"
	"hash/fnv"
	"strconv"
	"strings"
)

// maxSSIDBytes is the 802.11 SSID length bound the OWE transition-mode
// companion SSID must fit inside.
const maxSSIDBytes = 32

// oweCompanionSSID derives the open-network SSID paired with a secure SSID
// in the OWE transition dual-band start sequence. Uses FNV-1a32 over the
// primary SSID, base32-encoded and truncated to fit the 32-byte bound,
// deterministic across platforms with no dependency on a particular
// runtime's hash implementation.
func oweCompanionSSID(primarySSID string) string {
	h := fnv.New32a()
	h.Write([]byte(primarySSID))
	sum := h.Sum32()

	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(
		[]byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)})

	suffix := "-owe-" + strings.ToLower(encoded)
	base := primarySSID
	if len(base)+len(suffix) > maxSSIDBytes {
		base = base[:maxSSIDBytes-len(suffix)]
	}
	return base + suffix
}

// flipBSSIDLocalBit flips the locally-administered-address bit of the
// primary interface's BSSID to derive the companion interface's BSSID, so
// the two radios don't collide.
func flipBSSIDLocalBit(mac string) string {
	parts := strings.Split(mac, ":")
	if len(parts) != 6 {
		return mac
	}
	first, err := strconv.ParseUint(parts[0], 16, 8)
	if err != nil {
		return mac
	}
	parts[0] = strconv.FormatUint((first^0x02)&0xff, 16)
	if len(parts[0]) == 1 {
		parts[0] = "0" + parts[0]
	}
	return strings.Join(parts, ":")
}
