// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package bind resolves the configured HTTP bind address, including the
// special "tailscale" value.
package bind

import (
	"log"
	"os/exec"
	"strings"
)

// Resolve returns the address the HTTP server should bind to. The literal
// value "tailscale" is resolved by shelling out to `tailscale ip -4`;
// any other value (including the default "127.0.0.1") passes through
// unchanged. A failure to resolve the tailscale address falls back to
// 127.0.0.1 rather than failing startup.
func Resolve(configured string) string {
	if configured != "tailscale" {
		return configured
	}

	out, err := exec.Command("tailscale", "ip", "-4").Output()
	if err != nil {
		log.Printf("bind: tailscale ip -4 failed, falling back to 127.0.0.1: %v", err)
		return "127.0.0.1"
	}

	addr := strings.TrimSpace(string(out))
	if addr == "" {
		log.Printf("bind: tailscale ip -4 returned no address, falling back to 127.0.0.1")
		return "127.0.0.1"
	}
	return addr
}
