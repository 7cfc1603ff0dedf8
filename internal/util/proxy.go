package util

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Ericcccccccccc/MusicAlarm/internal/config"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// SetProxy configures the provided HTTP client with proxy settings from the configuration.
// It supports SOCKS5, HTTP, and HTTPS proxies. An empty or unparsable proxy URL leaves
// the client untouched.
func SetProxy(cfg *config.SDKConfig, httpClient *http.Client) *http.Client {
	if cfg == nil || strings.TrimSpace(cfg.ProxyURL) == "" {
		return httpClient
	}
	var transport *http.Transport
	proxyURL, errParse := url.Parse(cfg.ProxyURL)
	if errParse != nil {
		log.Errorf("parse proxy url failed: %v", errParse)
		return httpClient
	}
	switch proxyURL.Scheme {
	case "socks5":
		var proxyAuth *proxy.Auth
		if proxyURL.User != nil {
			username := proxyURL.User.Username()
			password, _ := proxyURL.User.Password()
			proxyAuth = &proxy.Auth{User: username, Password: password}
		}
		dialer, errSOCKS5 := proxy.SOCKS5("tcp", proxyURL.Host, proxyAuth, proxy.Direct)
		if errSOCKS5 != nil {
			log.Errorf("create SOCKS5 dialer failed: %v", errSOCKS5)
			return httpClient
		}
		transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			},
		}
	case "http", "https":
		transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	default:
		log.Warnf("unsupported proxy scheme %q, ignoring proxy-url", proxyURL.Scheme)
	}
	if transport != nil {
		httpClient.Transport = transport
	}
	return httpClient
}

// NewHTTPClient returns a proxy aware client bounded by the configured request timeout.
func NewHTTPClient(cfg *config.Config) *http.Client {
	timeout := time.Duration(config.DefaultRequestTimeoutSeconds) * time.Second
	if cfg != nil && cfg.Spotify.RequestTimeoutSeconds > 0 {
		timeout = time.Duration(cfg.Spotify.RequestTimeoutSeconds) * time.Second
	}
	client := &http.Client{Timeout: timeout}
	if cfg == nil {
		return client
	}
	return SetProxy(&cfg.SDKConfig, client)
}
