package misc

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// Separator used to visually group related log lines.
var credentialSeparator = strings.Repeat("-", 67)

// LogSavingCredentials emits a consistent log message when persisting auth material.
// Only the backend and key names are logged, never values.
func LogSavingCredentials(backend string, keys ...string) {
	if backend == "" {
		return
	}
	log.WithField("store", backend).Debugf("saving credentials: %s", strings.Join(keys, ", "))
}

// LogCredentialSeparator adds a visual separator to group auth/key processing logs.
func LogCredentialSeparator() {
	log.Debug(credentialSeparator)
}
