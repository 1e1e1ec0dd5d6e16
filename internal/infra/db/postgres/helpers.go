package postgres

import "strings"

// stringOrDash keeps non-nullable text columns populated
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
