package store

import (
	"errors"
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewObjectStore_Validation(t *testing.T) {
	base := ObjectStoreConfig{Endpoint: "localhost:9000", Bucket: "secrets", AccessKey: "ak", SecretKey: "sk"}
	tests := []struct {
		name    string
		mutate  func(*ObjectStoreConfig)
		wantErr string
	}{
		{name: "endpoint", mutate: func(c *ObjectStoreConfig) { c.Endpoint = " " }, wantErr: "endpoint is required"},
		{name: "bucket", mutate: func(c *ObjectStoreConfig) { c.Bucket = "" }, wantErr: "bucket is required"},
		{name: "access key", mutate: func(c *ObjectStoreConfig) { c.AccessKey = "" }, wantErr: "access key is required"},
		{name: "secret key", mutate: func(c *ObjectStoreConfig) { c.SecretKey = "" }, wantErr: "secret key is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			_, err := NewObjectStore(cfg)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	s, err := NewObjectStore(base)
	require.NoError(t, err)
	assert.NotNil(t, s.client)
}

func TestObjectStore_PrefixedKey(t *testing.T) {
	s, err := NewObjectStore(ObjectStoreConfig{Endpoint: "localhost:9000", Bucket: "b", AccessKey: "a", SecretKey: "s", Prefix: "/musicalarm/secrets/"})
	require.NoError(t, err)
	assert.Equal(t, "musicalarm/secrets/spotify_access_token", s.prefixedKey("spotify_access_token"))

	s.cfg.Prefix = ""
	assert.Equal(t, "spotify_access_token", s.prefixedKey("/spotify_access_token"))
}

func TestIsObjectNotFound(t *testing.T) {
	assert.False(t, isObjectNotFound(nil))
	assert.True(t, isObjectNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, isObjectNotFound(minio.ErrorResponse{StatusCode: http.StatusNotFound}))
	assert.False(t, isObjectNotFound(minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}))
	assert.False(t, isObjectNotFound(errors.New("boom")))
}
