// Package env reads process-level overrides that sit outside the
// TABLEBOOK_-prefixed config, such as PORT and LOG_FORMAT set by the platform.
package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		if val = strings.TrimSpace(val); val != "" {
			return val
		}
	}
	return fallback
}
