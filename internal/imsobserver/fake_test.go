/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package imsobserver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFakeCurrentRegistrationsReflectsSetAndClear(t *testing.T) {
	assert := require.New(t)

	f := NewFake()
	assert.Empty(f.CurrentRegistrations())

	f.SetRegistration(Registration{SubscriptionID: "1", RegisteredOverWifi: true, PreferredDeferMs: 3000})
	assert.Len(f.CurrentRegistrations(), 1)

	f.ClearRegistration("1")
	assert.Empty(f.CurrentRegistrations())
}

func TestFakeSubscribeReceivesChanges(t *testing.T) {
	assert := require.New(t)

	f := NewFake()
	var seen []Registration
	f.Subscribe(func(reg Registration) { seen = append(seen, reg) })

	f.SetRegistration(Registration{SubscriptionID: "1", RegisteredOverWifi: true})
	assert.Len(seen, 1)
	assert.Equal("1", seen[0].SubscriptionID)
}

func TestFakeUnsubscribeStopsDelivery(t *testing.T) {
	assert := require.New(t)

	f := NewFake()
	calls := 0
	unsub := f.Subscribe(func(reg Registration) { calls++ })
	unsub()

	f.SetRegistration(Registration{SubscriptionID: "1", RegisteredOverWifi: true})
	assert.Equal(0, calls)
}

func TestFakeClearRegistrationOfUnknownSubscriptionIsNoop(t *testing.T) {
	assert := require.New(t)

	f := NewFake()
	calls := 0
	f.Subscribe(func(reg Registration) { calls++ })

	f.ClearRegistration("nonexistent")
	assert.Equal(0, calls)
}

func TestFakeClearRegistrationNotifiesWithWifiFalse(t *testing.T) {
	assert := require.New(t)

	f := NewFake()
	f.SetRegistration(Registration{SubscriptionID: "1", RegisteredOverWifi: true})

	var last Registration
	f.Subscribe(func(reg Registration) { last = reg })
	f.ClearRegistration("1")

	assert.Equal("1", last.SubscriptionID)
	assert.False(last.RegisteredOverWifi)
}
