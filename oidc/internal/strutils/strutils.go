// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package strutils

import "strings"

// StrListContains looks for a string in a list of strings.
func StrListContains(haystack []string, needle string) bool {
	for _, item := range haystack {
		if item == needle {
			return true
		}
	}
	return false
}

// RemoveDuplicatesStable removes duplicate and empty elements from a slice
// while preserving the order of first appearance. Elements are compared after
// trimming whitespace and, optionally, case-insensitively; the first original
// element is kept.
func RemoveDuplicatesStable(items []string, caseInsensitive bool) []string {
	itemsMap := make(map[string]bool, len(items))
	deduplicated := make([]string, 0, len(items))

	for _, item := range items {
		key := strings.TrimSpace(item)
		if key == "" {
			continue
		}
		if caseInsensitive {
			key = strings.ToLower(key)
		}
		if itemsMap[key] {
			continue
		}
		itemsMap[key] = true
		deduplicated = append(deduplicated, item)
	}
	return deduplicated
}

// ScopeUnion merges space-delimited or individual scopes into a single
// space-delimited scope string, keeping the order of first appearance.
func ScopeUnion(scopes ...string) string {
	var all []string
	for _, s := range scopes {
		all = append(all, strings.Fields(s)...)
	}
	return strings.Join(RemoveDuplicatesStable(all, false), " ")
}
