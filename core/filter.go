package core

import (
	"strings"

	"github.com/msfs-tools/sdkfetch/contracts"
)

// Filter keeps the product lines named in filter, or all of them when filter is empty.
func Filter(original []contracts.ProductLine, filter []string) (filtered []contracts.ProductLine) {
	if len(filter) == 0 {
		return original
	}
	for _, line := range original {
		if contains(filter, line.Name) {
			filtered = append(filtered, line)
		}
	}
	return filtered
}

func contains(haystack []string, needle string) bool {
	for _, straw := range haystack {
		if strings.EqualFold(strings.TrimSpace(straw), needle) {
			return true
		}
	}
	return false
}
