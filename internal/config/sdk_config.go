// Package config provides configuration management for the MusicAlarm CLI.
// It handles loading and parsing YAML configuration files, and provides structured
// access to application settings including the Spotify client registration,
// credential store backend, logging switches and proxy configuration.
package config

// SDKConfig holds the settings shared by every outbound HTTP client of the application.
type SDKConfig struct {
	// ProxyURL is the URL of an optional proxy server to use for outbound requests.
	// Supported schemes are socks5, http and https.
	ProxyURL string `yaml:"proxy-url" json:"proxy-url" validate:"omitempty,url"`

	// RequestLog enables debug logging of every Spotify Web API request.
	RequestLog bool `yaml:"request-log" json:"request-log"`
}
