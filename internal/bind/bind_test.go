// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package bind

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_PassesThroughNonTailscaleValues(t *testing.T) {
	assert.Equal(t, "127.0.0.1", Resolve("127.0.0.1"))
	assert.Equal(t, "0.0.0.0", Resolve("0.0.0.0"))
}

func TestResolve_FallsBackWhenTailscaleUnavailable(t *testing.T) {
	// The test environment has no tailscale binary, so this exercises the
	// fallback path deterministically.
	assert.Equal(t, "127.0.0.1", Resolve("tailscale"))
}
