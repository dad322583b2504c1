package util

import "strings"

// NormalizeTicker converts an index symbol to the market-data form, e.g. BRK.B -> BRK-B.
func NormalizeTicker(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ".", "-")
}
