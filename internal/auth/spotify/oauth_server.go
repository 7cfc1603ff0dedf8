package spotify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// OAuthServer handles the loopback HTTP server used when the redirect URI is an
// http://127.0.0.1 address. It captures the full callback URL and leaves the
// validation of that URL to the authorization flow.
type OAuthServer struct {
	// server is the underlying HTTP server instance
	server *http.Server
	// listener is bound before Start returns so the port is known
	listener net.Listener
	// port is the requested port; 0 selects an ephemeral one
	port int
	// callbackPath is the path registered in the redirect URI
	callbackPath string
	// resultChan carries the first callback URL received
	resultChan chan string
	// errorChan carries server failures
	errorChan chan error
	mu        sync.Mutex
	running   bool
}

// NewOAuthServer creates a new OAuth callback server listening on port for callbackPath.
func NewOAuthServer(port int, callbackPath string) *OAuthServer {
	if callbackPath == "" {
		callbackPath = "/callback"
	}
	if !strings.HasPrefix(callbackPath, "/") {
		callbackPath = "/" + callbackPath
	}
	return &OAuthServer{
		port:         port,
		callbackPath: callbackPath,
		resultChan:   make(chan string, 1),
		errorChan:    make(chan error, 1),
	}
}

// Start binds the loopback listener and begins serving in the background.
func (s *OAuthServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server is already running")
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		if isAddrInUse(err) {
			return NewAuthenticationError(ErrPortInUse, err)
		}
		return NewAuthenticationError(ErrServerStartFailed, err)
	}
	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc(s.callbackPath, s.handleCallback)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	s.running = true

	srv := s.server
	go func() {
		if errServe := srv.Serve(listener); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			select {
			case s.errorChan <- fmt.Errorf("server failed: %w", errServe):
			default:
			}
		}
	}()
	return nil
}

// Port returns the bound port. It is only meaningful after Start.
func (s *OAuthServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Stop gracefully stops the OAuth callback server.
func (s *OAuthServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.server == nil {
		return nil
	}

	log.Debug("Stopping OAuth callback server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := s.server.Shutdown(shutdownCtx)
	s.running = false
	s.server = nil
	s.listener = nil
	return err
}

// WaitForCallback blocks until a callback arrives, the server fails, or ctx is done.
// No timeout of its own is imposed.
func (s *OAuthServer) WaitForCallback(ctx context.Context) (string, error) {
	select {
	case callbackURL := <-s.resultChan:
		return callbackURL, nil
	case err := <-s.errorChan:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *OAuthServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	log.Debug("Received OAuth callback")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.sendResult(fmt.Sprintf("http://%s%s", r.Host, r.URL.RequestURI()))

	page := LoginSuccessHTML
	status := http.StatusOK
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		log.Warnf("OAuth error received: %s", errParam)
		page = LoginFailedHTML
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(page)); err != nil {
		log.Errorf("Failed to write callback page: %v", err)
	}
}

// sendResult forwards the callback without blocking the handler; only the first one counts.
func (s *OAuthServer) sendResult(callbackURL string) {
	select {
	case s.resultChan <- callbackURL:
		log.Debug("OAuth callback sent to channel")
	default:
		log.Warn("OAuth callback channel is full, result dropped")
	}
}

// IsRunning returns whether the server is currently running.
func (s *OAuthServer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func isAddrInUse(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "address already in use")
}
