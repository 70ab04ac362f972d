// Package ratelimit provides fixed-window request counting keyed by
// (client address, endpoint class), with an in-process backend for single
// instances and a Redis backend for horizontally scaled deployments.
//
// Fixed windows reset at hard boundaries, so a client can burst up to twice
// the quota across a boundary. That imprecision is accepted; do not replace
// with a sliding window without revisiting the documented quotas.
package ratelimit

import (
	"time"

	"github.com/snapmeal/auth-service/internal/core/ports"
)

// Policy is the window length and quota for one endpoint class.
type Policy struct {
	Window time.Duration
	Quota  int
}

// Profile maps every endpoint class to its policy.
type Profile map[ports.EndpointClass]Policy

// StrictProfile is the production policy set.
func StrictProfile() Profile {
	return Profile{
		ports.ClassAuth:     {Window: 15 * time.Minute, Quota: 5},
		ports.ClassRegister: {Window: time.Hour, Quota: 3},
		ports.ClassGeneral:  {Window: 15 * time.Minute, Quota: 100},
	}
}

// RelaxedProfile loosens quotas and shortens windows for development and
// load testing. Selected once at startup by configuration, never per request.
func RelaxedProfile() Profile {
	return Profile{
		ports.ClassAuth:     {Window: time.Minute, Quota: 100},
		ports.ClassRegister: {Window: time.Minute, Quota: 50},
		ports.ClassGeneral:  {Window: time.Minute, Quota: 1000},
	}
}

// ProfileByName resolves a configured profile name, defaulting to strict.
func ProfileByName(name string) Profile {
	if name == "relaxed" {
		return RelaxedProfile()
	}
	return StrictProfile()
}
