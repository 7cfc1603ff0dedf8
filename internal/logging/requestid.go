package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	log "github.com/sirupsen/logrus"
)

// requestIDKey is the context key for storing/retrieving request IDs.
type requestIDKey struct{}

// GenerateRequestID creates a new 8-character hex request ID.
func GenerateRequestID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(b)
}

// WithRequestID returns a new context with the request ID attached.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// EnsureRequestID returns ctx unchanged when it already carries a request ID,
// otherwise a derived context with a fresh one.
func EnsureRequestID(ctx context.Context) context.Context {
	if GetRequestID(ctx) != "" {
		return ctx
	}
	return WithRequestID(ctx, GenerateRequestID())
}

// GetRequestID retrieves the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithContext returns a log entry tagged with the request ID carried by ctx.
func WithContext(ctx context.Context) *log.Entry {
	if id := GetRequestID(ctx); id != "" {
		return log.WithField("request_id", id)
	}
	return log.NewEntry(log.StandardLogger())
}
