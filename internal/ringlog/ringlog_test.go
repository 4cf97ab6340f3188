/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package ringlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDumpReturnsChronologicalOrder(t *testing.T) {
	assert := require.New(t)

	r := New(3)
	base := time.Unix(1000, 0)
	r.Record(Entry{When: base, From: "Idle", Event: "START", To: "ScanOnly"})
	r.Record(Entry{When: base.Add(time.Second), From: "ScanOnly", Event: "SWITCH_TO_CONNECT", To: "Connect"})

	dump := r.Dump()
	assert.Len(dump, 2)
	assert.Equal("Idle", dump[0].From)
	assert.Equal("Connect", dump[1].To)
}

func TestRecordEvictsOldestOnceFull(t *testing.T) {
	assert := require.New(t)

	r := New(2)
	r.Record(Entry{From: "a"})
	r.Record(Entry{From: "b"})
	r.Record(Entry{From: "c"})

	dump := r.Dump()
	assert.Len(dump, 2)
	assert.Equal("b", dump[0].From)
	assert.Equal("c", dump[1].From)
}

func TestNewDefaultsNonPositiveSize(t *testing.T) {
	assert := require.New(t)

	r := New(0)
	assert.Equal(DefaultSize, r.cap)
}

func TestRecordFillsInWhenZero(t *testing.T) {
	assert := require.New(t)

	r := New(1)
	r.Record(Entry{From: "a"})

	dump := r.Dump()
	assert.False(dump[0].When.IsZero())
}

func TestEntryStringIncludesDetail(t *testing.T) {
	assert := require.New(t)

	e := Entry{
		When: time.Unix(0, 0), Machine: "warden", From: "Disabled",
		Event: "WIFI_TOGGLED", To: "Enabled", Detail: "role=CLIENT_PRIMARY",
	}
	s := e.String()
	assert.Contains(s, "Disabled")
	assert.Contains(s, "Enabled")
	assert.Contains(s, "role=CLIENT_PRIMARY")
}
