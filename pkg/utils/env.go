package utils

import (
	"os"
	"strings"
)

// ParseWithFallback returns the trimmed value of envName, or fallback when
// the variable is unset or blank.
func ParseWithFallback(envName string, fallback string) string {
	result, ok := os.LookupEnv(envName)
	if !ok || strings.TrimSpace(result) == "" {
		return fallback
	}

	return strings.TrimSpace(result)
}
