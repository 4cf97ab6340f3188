/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package wardenerr

import (
	"testing"

	stderrors "errors"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesKindAndFormattedMessage(t *testing.T) {
	assert := require.New(t)

	err := New(ConfigInvalid, "missing SSID for role %s", "SOFTAP_TETHERED")

	assert.Equal(ConfigInvalid, KindOf(err))
	assert.Contains(err.Error(), "CONFIG_INVALID")
	assert.Contains(err.Error(), "missing SSID for role SOFTAP_TETHERED")
}

func TestWrapPreservesCauseAndKind(t *testing.T) {
	assert := require.New(t)

	cause := stderrors.New("native setup failed")
	err := Wrap(cause, NativeSetupFailed, "bringing up client interface")

	assert.Equal(NativeSetupFailed, KindOf(err))
	assert.True(Is(err, NativeSetupFailed))
	assert.Equal(cause, errors.Cause(err))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert := require.New(t)

	assert.NoError(Wrap(nil, DaemonDied, "anything"))
}

func TestKindOfUnwrappedErrorIsUnknown(t *testing.T) {
	assert := require.New(t)

	assert.Equal(Unknown, KindOf(stderrors.New("plain")))
	assert.False(Is(stderrors.New("plain"), NativeSetupFailed))
}

func TestKindStringValues(t *testing.T) {
	assert := require.New(t)

	assert.Equal("NATIVE_SETUP_FAILED", NativeSetupFailed.String())
	assert.Equal("UNKNOWN", Unknown.String())
}
