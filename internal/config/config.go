package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default Spotify endpoints and client registration.
const (
	DefaultClientID     = "4d3403d77aee43e181e173c926ecc4d3"
	DefaultRedirectURI  = "musicalarm://spotify-auth"
	DefaultAuthorizeURL = "https://accounts.spotify.com/authorize"
	DefaultTokenURL     = "https://accounts.spotify.com/api/token"
	DefaultAPIBaseURL   = "https://api.spotify.com/v1"

	DefaultRefreshThresholdSeconds = 300
	DefaultRequestTimeoutSeconds   = 30
	DefaultCallbackPort            = 8888
)

// Credential store backends.
const (
	StoreTypeFile     = "file"
	StoreTypeMemory   = "memory"
	StoreTypeRedis    = "redis"
	StoreTypePostgres = "postgres"
	StoreTypeObject   = "object"
)

// DefaultScopes lists the Spotify scopes requested at login.
var DefaultScopes = []string{
	"streaming",
	"user-read-email",
	"user-read-private",
	"user-library-read",
	"user-library-modify",
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"playlist-read-private",
	"playlist-read-collaborative",
}

// Config is the root configuration loaded from config.yaml.
type Config struct {
	SDKConfig `yaml:",inline"`

	// Debug enables debug level logging.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile writes logs to a rotating file instead of stdout.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// AuthDir is the directory holding the file credential store and logs.
	AuthDir string `yaml:"auth-dir" json:"auth-dir" validate:"required"`

	// AlarmFile is the path of the alarm book. Defaults to <auth-dir>/alarms.json.
	AlarmFile string `yaml:"alarm-file" json:"alarm-file"`

	Spotify SpotifyConfig `yaml:"spotify" json:"spotify"`

	CredentialStore CredentialStoreConfig `yaml:"credential-store" json:"credential-store"`
}

// SpotifyConfig captures the OAuth client registration and API endpoints.
type SpotifyConfig struct {
	ClientID     string   `yaml:"client-id" json:"client-id" validate:"required"`
	RedirectURI  string   `yaml:"redirect-uri" json:"redirect-uri" validate:"required,uri"`
	AuthorizeURL string   `yaml:"authorize-url" json:"authorize-url" validate:"required,url"`
	TokenURL     string   `yaml:"token-url" json:"token-url" validate:"required,url"`
	APIBaseURL   string   `yaml:"api-base-url" json:"api-base-url" validate:"required,url"`
	Scopes       []string `yaml:"scopes" json:"scopes"`

	// RefreshThresholdSeconds is the lead time before expiry at which an access token
	// stops being handed out and a refresh is performed instead.
	RefreshThresholdSeconds int `yaml:"refresh-threshold-seconds" json:"refresh-threshold-seconds" validate:"gte=0"`

	// RequestTimeoutSeconds bounds every token endpoint and Web API call.
	RequestTimeoutSeconds int `yaml:"request-timeout-seconds" json:"request-timeout-seconds" validate:"gt=0"`

	// CallbackPort is filled into a loopback http redirect URI that has no explicit port.
	CallbackPort int `yaml:"callback-port" json:"callback-port" validate:"gte=0,lte=65535"`
}

// CredentialStoreConfig selects and configures the secure credential backend.
type CredentialStoreConfig struct {
	Type string `yaml:"type" json:"type" validate:"oneof=file memory redis postgres object"`

	// EncryptionKey encrypts values at rest. Required for every backend except memory.
	EncryptionKey string `yaml:"encryption-key" json:"-"`

	Redis    RedisStoreConfig    `yaml:"redis" json:"redis"`
	Postgres PostgresStoreConfig `yaml:"postgres" json:"postgres"`
	Object   ObjectStoreConfig   `yaml:"object" json:"object"`
}

// RedisStoreConfig configures the Redis credential backend.
type RedisStoreConfig struct {
	Address  string `yaml:"address" json:"address"`
	Password string `yaml:"password" json:"-"`
	DB       int    `yaml:"db" json:"db" validate:"gte=0,lte=15"`
	Prefix   string `yaml:"prefix" json:"prefix"`
}

// PostgresStoreConfig configures the PostgreSQL credential backend.
type PostgresStoreConfig struct {
	DSN    string `yaml:"dsn" json:"-"`
	Schema string `yaml:"schema" json:"schema"`
	Table  string `yaml:"table" json:"table"`
}

// ObjectStoreConfig configures the S3 compatible credential backend.
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	AccessKey string `yaml:"access-key" json:"-"`
	SecretKey string `yaml:"secret-key" json:"-"`
	Region    string `yaml:"region" json:"region"`
	Prefix    string `yaml:"prefix" json:"prefix"`
	UseSSL    bool   `yaml:"use-ssl" json:"use-ssl"`
	PathStyle bool   `yaml:"path-style" json:"path-style"`
}

// LoadConfig reads the configuration file at configFile. The file must exist.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigOptional(configFile, false)
}

// LoadConfigOptional reads the configuration file at configFile. When optional is true
// a missing file yields the default configuration instead of an error.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(configFile)
	switch {
	case err == nil:
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.ApplyDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills every unset field with its default value.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.AuthDir) == "" {
		c.AuthDir = "~/.musicalarm"
	}
	s := &c.Spotify
	if s.ClientID == "" {
		s.ClientID = DefaultClientID
	}
	if s.RedirectURI == "" {
		s.RedirectURI = DefaultRedirectURI
	}
	if s.AuthorizeURL == "" {
		s.AuthorizeURL = DefaultAuthorizeURL
	}
	if s.TokenURL == "" {
		s.TokenURL = DefaultTokenURL
	}
	if s.APIBaseURL == "" {
		s.APIBaseURL = DefaultAPIBaseURL
	}
	s.APIBaseURL = strings.TrimRight(s.APIBaseURL, "/")
	if len(s.Scopes) == 0 {
		s.Scopes = append([]string(nil), DefaultScopes...)
	}
	if s.RefreshThresholdSeconds == 0 {
		s.RefreshThresholdSeconds = DefaultRefreshThresholdSeconds
	}
	if s.RequestTimeoutSeconds == 0 {
		s.RequestTimeoutSeconds = DefaultRequestTimeoutSeconds
	}
	if s.CallbackPort == 0 {
		s.CallbackPort = DefaultCallbackPort
	}
	s.RedirectURI = withLoopbackPort(s.RedirectURI, s.CallbackPort)
	if c.CredentialStore.Type == "" {
		c.CredentialStore.Type = StoreTypeFile
	}
	if c.CredentialStore.Redis.Address == "" {
		c.CredentialStore.Redis.Address = "localhost:6379"
	}
	if c.CredentialStore.Redis.Prefix == "" {
		c.CredentialStore.Redis.Prefix = "musicalarm:secret:"
	}
	if c.CredentialStore.Postgres.Table == "" {
		c.CredentialStore.Postgres.Table = "secure_store"
	}
	if c.CredentialStore.Object.Prefix == "" {
		c.CredentialStore.Object.Prefix = "secrets"
	}
}

// Validate checks struct constraints and cross-field requirements of the selected backend.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cs := c.CredentialStore
	if cs.Type != StoreTypeMemory && strings.TrimSpace(cs.EncryptionKey) == "" {
		return fmt.Errorf("invalid configuration: credential-store.encryption-key is required for %s backend", cs.Type)
	}
	switch cs.Type {
	case StoreTypePostgres:
		if strings.TrimSpace(cs.Postgres.DSN) == "" {
			return fmt.Errorf("invalid configuration: credential-store.postgres.dsn is required")
		}
	case StoreTypeObject:
		if cs.Object.Endpoint == "" || cs.Object.Bucket == "" {
			return fmt.Errorf("invalid configuration: credential-store.object endpoint and bucket are required")
		}
	}
	return nil
}

// applyEnvOverrides lets MUSICALARM_* environment variables override file values.
func (c *Config) applyEnvOverrides() {
	if v, ok := lookupEnv("MUSICALARM_CLIENT_ID"); ok {
		c.Spotify.ClientID = v
	}
	if v, ok := lookupEnv("MUSICALARM_REDIRECT_URI"); ok {
		c.Spotify.RedirectURI = v
	}
	if v, ok := lookupEnv("MUSICALARM_AUTH_DIR"); ok {
		c.AuthDir = v
	}
	if v, ok := lookupEnv("MUSICALARM_PROXY_URL"); ok {
		c.ProxyURL = v
	}
	if v, ok := lookupEnv("MUSICALARM_STORE_TYPE"); ok {
		c.CredentialStore.Type = v
	}
	if v, ok := lookupEnv("MUSICALARM_ENCRYPTION_KEY"); ok {
		c.CredentialStore.EncryptionKey = v
	}
	if v, ok := lookupEnv("MUSICALARM_POSTGRES_DSN"); ok {
		c.CredentialStore.Postgres.DSN = v
	}
	if v, ok := lookupEnv("MUSICALARM_REDIS_ADDRESS"); ok {
		c.CredentialStore.Redis.Address = v
	}
	if v, ok := lookupEnv("MUSICALARM_DEBUG"); ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			c.Debug = parsed
		}
	}
}

// withLoopbackPort adds port to an http://127.0.0.1 or http://localhost redirect
// that does not name one. Other redirects are returned unchanged.
func withLoopbackPort(redirectURI string, port int) string {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Scheme != "http" || u.Port() != "" || port <= 0 {
		return redirectURI
	}
	host := u.Hostname()
	if host != "127.0.0.1" && host != "localhost" {
		return redirectURI
	}
	u.Host = net.JoinHostPort(host, strconv.Itoa(port))
	return u.String()
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
