// Package permission gates mutating routes behind named capabilities.
package permission

import (
	"context"

	dErrors "assettrack/pkg/domain-errors"
	"assettrack/pkg/requestcontext"
)

// Capability names used by the HTTP layer.
const (
	CapAssetWrite  = "assets:write"
	CapAssetDelete = "assets:delete"
	CapAssetMove   = "assets:move"
)

// StaticGate grants a fixed capability set to every authenticated actor, and
// nothing to anonymous requests. Sufficient for single-team deployments; a
// directory-backed gate can replace it behind the same interface.
type StaticGate struct {
	granted map[string]bool
}

// NewStaticGate constructs a gate granting the given capabilities.
func NewStaticGate(capabilities ...string) *StaticGate {
	granted := make(map[string]bool, len(capabilities))
	for _, c := range capabilities {
		granted[c] = true
	}
	return &StaticGate{granted: granted}
}

// AllCapabilities lists every capability the service defines.
func AllCapabilities() []string {
	return []string{CapAssetWrite, CapAssetDelete, CapAssetMove}
}

// Check reports whether the acting user holds the capability.
func (g *StaticGate) Check(ctx context.Context, capability string) error {
	if requestcontext.Actor(ctx) == "" {
		return dErrors.New(dErrors.CodePermission, "no authenticated actor")
	}
	if !g.granted[capability] {
		return dErrors.Newf(dErrors.CodePermission, "capability %q not granted", capability)
	}
	return nil
}
