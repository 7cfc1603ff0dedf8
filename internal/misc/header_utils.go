// Package misc provides miscellaneous helpers for the MusicAlarm CLI.
// It includes OAuth callback parsing, HTTP header manipulation and credential
// logging helpers that don't fit into more specific packages.
package misc

import (
	"net/http"
	"strings"
)

// EnsureHeader ensures that a header exists in the target header map by checking
// the source headers first, then existing target headers, and finally the default value.
// It only sets the header if the resolved value is not empty after trimming whitespace.
func EnsureHeader(target http.Header, source http.Header, key, defaultValue string) {
	if target == nil {
		return
	}
	if source != nil {
		if val := strings.TrimSpace(source.Get(key)); val != "" {
			target.Set(key, val)
			return
		}
	}
	if strings.TrimSpace(target.Get(key)) != "" {
		return
	}
	if val := strings.TrimSpace(defaultValue); val != "" {
		target.Set(key, val)
	}
}
