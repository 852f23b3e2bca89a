// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"slices"
	"strings"
)

// # Authorities

const (
	// Default authority granted on registration
	RoleUser = "ROLE_USER"

	// Unrestricted access to user administration
	RoleAdmin = "ROLE_ADMIN"

	// Authority of callers without a valid token
	RoleAnonymous = "ROLE_ANONYMOUS"
)

// KnownAuthorities lists the authorities an administrator may assign.
var KnownAuthorities = []string{RoleAdmin, RoleUser}

// NormalizeAuthorities trims names, drops blanks and duplicates, and sorts the
// result. Authorities behave as a set, so two accounts with the same roles
// always carry identical slices.
func NormalizeAuthorities(authorities []string) []string {
	out := make([]string, 0, len(authorities))
	for _, a := range authorities {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// HasAuthority reports whether authorities contains target.
func HasAuthority(authorities []string, target string) bool {
	return slices.Contains(authorities, target)
}

// IsKnownAuthority reports whether name is one of [KnownAuthorities].
func IsKnownAuthority(name string) bool {
	return slices.Contains(KnownAuthorities, name)
}
