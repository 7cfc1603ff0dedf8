package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Ericcccccccccc/MusicAlarm/internal/config"
	"github.com/Ericcccccccccc/MusicAlarm/internal/util"
	sdkauth "github.com/Ericcccccccccc/MusicAlarm/sdk/auth"
	log "github.com/sirupsen/logrus"
)

// CredentialsFileName is the file used by the file backend inside auth-dir.
const CredentialsFileName = "credentials.json"

// New builds the SecureStore selected by cfg.CredentialStore. Every backend except
// memory is sealed with the configured encryption key. The returned closer releases
// any connection held by the backend.
func New(ctx context.Context, cfg *config.Config) (sdkauth.SecureStore, func() error, error) {
	noop := func() error { return nil }
	if cfg == nil {
		return nil, noop, fmt.Errorf("store: configuration is nil")
	}
	cs := cfg.CredentialStore

	var (
		backend sdkauth.SecureStore
		closer  = noop
	)
	switch cs.Type {
	case config.StoreTypeMemory:
		log.WithField("store", cs.Type).Warn("credentials are kept in memory and lost on exit")
		return sdkauth.NewMemorySecureStore(), noop, nil
	case config.StoreTypeFile, "":
		authDir, err := util.ResolveAuthDir(cfg.AuthDir)
		if err != nil {
			return nil, noop, fmt.Errorf("store: resolve auth dir: %w", err)
		}
		backend = sdkauth.NewFileSecureStore(filepath.Join(authDir, CredentialsFileName))
	case config.StoreTypeRedis:
		rs, err := NewRedisStore(ctx, RedisStoreConfig{
			Address:  cs.Redis.Address,
			Password: cs.Redis.Password,
			DB:       cs.Redis.DB,
			Prefix:   cs.Redis.Prefix,
		})
		if err != nil {
			return nil, noop, err
		}
		backend, closer = rs, rs.Close
	case config.StoreTypePostgres:
		ps, err := NewPostgresStore(ctx, PostgresStoreConfig{
			DSN:    cs.Postgres.DSN,
			Schema: cs.Postgres.Schema,
			Table:  cs.Postgres.Table,
		})
		if err != nil {
			return nil, noop, err
		}
		if err = ps.EnsureSchema(ctx); err != nil {
			_ = ps.Close()
			return nil, noop, err
		}
		backend, closer = ps, ps.Close
	case config.StoreTypeObject:
		obj, err := NewObjectStore(ObjectStoreConfig{
			Endpoint:  cs.Object.Endpoint,
			Bucket:    cs.Object.Bucket,
			AccessKey: cs.Object.AccessKey,
			SecretKey: cs.Object.SecretKey,
			Region:    cs.Object.Region,
			Prefix:    cs.Object.Prefix,
			UseSSL:    cs.Object.UseSSL,
			PathStyle: cs.Object.PathStyle,
		})
		if err != nil {
			return nil, noop, err
		}
		if err = obj.EnsureBucket(ctx); err != nil {
			return nil, noop, err
		}
		backend = obj
	default:
		return nil, noop, fmt.Errorf("store: unsupported credential store type %q", cs.Type)
	}

	sealed, err := NewSealedStore(backend, cs.EncryptionKey)
	if err != nil {
		_ = closer()
		return nil, noop, err
	}
	log.WithField("store", cs.Type).Debug("credential store ready")
	return sealed, closer, nil
}
