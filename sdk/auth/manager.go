package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/Ericcccccccccc/MusicAlarm/internal/auth/spotify"
	"github.com/Ericcccccccccc/MusicAlarm/internal/logging"
	"github.com/Ericcccccccccc/MusicAlarm/internal/misc"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Manager owns the Spotify session. It is the only writer of the token store.
type Manager struct {
	exchanger TokenExchanger
	tokens    *TokenStore
	flow      *AuthorizationFlow

	group singleflight.Group

	// storeMu serializes token writes and clears against Logout. It is always
	// taken before mu, and mu is never held across store I/O.
	storeMu sync.Mutex

	// mu guards generation, loggedOut and clearPending.
	mu           sync.Mutex
	generation   uint64
	loggedOut    chan struct{}
	clearPending bool

	state *stateBroadcaster
}

// NewManager composes a session manager from its collaborators.
func NewManager(exchanger TokenExchanger, tokens *TokenStore, flow *AuthorizationFlow) *Manager {
	return &Manager{
		exchanger: exchanger,
		tokens:    tokens,
		flow:      flow,
		loggedOut: make(chan struct{}),
		state:     newStateBroadcaster(),
	}
}

// State returns the latest published authentication state.
func (m *Manager) State() AuthenticationState { return m.state.get() }

// Subscribe streams state changes until ctx is done. The current state is sent first.
func (m *Manager) Subscribe(ctx context.Context) <-chan AuthenticationState {
	return m.state.subscribe(ctx)
}

// GetValidAccessToken returns a usable access token without user interaction,
// refreshing it when needed. It fails with ErrNotAuthenticated when no refresh
// token is available.
func (m *Manager) GetValidAccessToken(ctx context.Context) (string, error) {
	if m.dropPendingCredentials(ctx) {
		return "", ErrNotAuthenticated
	}
	ts, err := m.tokens.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load stored tokens: %w", err)
	}
	if m.tokens.Valid(ts) {
		return ts.AccessToken, nil
	}
	if ts.RefreshToken == "" {
		m.markAuthenticated(m.currentGeneration(), false)
		return "", ErrNotAuthenticated
	}
	return m.refresh(ctx, "")
}

// ForceRefresh refreshes even when the stored token still looks valid, unless the
// stored token already differs from staleToken, in which case that one is returned.
func (m *Manager) ForceRefresh(ctx context.Context, staleToken string) (string, error) {
	if m.dropPendingCredentials(ctx) {
		return "", ErrNotAuthenticated
	}
	ts, err := m.tokens.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load stored tokens: %w", err)
	}
	if ts.AccessToken != staleToken && m.tokens.Valid(ts) {
		return ts.AccessToken, nil
	}
	if ts.RefreshToken == "" {
		m.markAuthenticated(m.currentGeneration(), false)
		return "", ErrNotAuthenticated
	}
	return m.refresh(ctx, staleToken)
}

// refresh joins or starts the single in-flight refresh for the current generation.
// The network call outlives a cancelled caller so a rotated refresh token is never lost.
func (m *Manager) refresh(ctx context.Context, staleToken string) (string, error) {
	gen := m.currentGeneration()
	key := "refresh:" + strconv.FormatUint(gen, 10)
	flightCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (any, error) {
		return m.doRefresh(flightCtx, gen, staleToken)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *Manager) doRefresh(ctx context.Context, gen uint64, staleToken string) (string, error) {
	entry := logging.WithContext(ctx).WithField("generation", gen)

	ts, err := m.tokens.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load stored tokens: %w", err)
	}
	if ts.AccessToken != staleToken && m.tokens.Valid(ts) {
		return ts.AccessToken, nil
	}
	if ts.RefreshToken == "" {
		return "", ErrNotAuthenticated
	}

	entry.Debug("refreshing spotify access token")
	fresh, err := m.exchanger.RefreshTokens(ctx, ts.RefreshToken)
	if err != nil {
		var rejected *spotify.TokenRefreshError
		if errors.As(err, &rejected) {
			entry.WithField("status", rejected.StatusCode).Warn("token refresh rejected, clearing stored credentials")
			m.storeMu.Lock()
			if m.currentGeneration() == gen {
				if errClear := m.tokens.Clear(ctx); errClear != nil {
					entry.WithError(errClear).Warn("clear credentials after rejected refresh failed")
					m.setClearPending(true)
				}
			}
			m.storeMu.Unlock()
			m.markAuthenticated(gen, false)
			return "", fmt.Errorf("%w: %w", ErrTokenRefreshFailed, err)
		}
		return "", fmt.Errorf("refresh access token: %w", err)
	}
	return m.persist(ctx, gen, *fresh)
}

// Authenticate returns a valid access token, running the interactive flow when the
// silent paths fail. Concurrent callers share a single attempt.
func (m *Manager) Authenticate(ctx context.Context) (string, error) {
	ch := m.group.DoChan("login", func() (any, error) {
		return m.authenticate(ctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", &AuthenticationFailedError{Stage: "authorization", Err: &AuthorizationError{Reason: ReasonUserCancelled}}
		}
		return "", &AuthenticationFailedError{Stage: "authorization", Err: ctx.Err()}
	}
}

func (m *Manager) authenticate(ctx context.Context) (string, error) {
	m.state.update(func(s *AuthenticationState) { s.IsAuthenticating = true })
	defer m.state.update(func(s *AuthenticationState) { s.IsAuthenticating = false })

	gen := m.currentGeneration()

	// Credentials a failed logout could not remove must not be reused.
	if m.dropPendingCredentials(ctx) {
		log.Info("stored credentials belong to a logged out session, starting interactive login")
		return m.loginOrFail(ctx, gen)
	}

	ts, err := m.tokens.Load(ctx)
	if err != nil {
		log.WithError(err).Warn("load stored tokens failed, starting interactive login")
	} else {
		if m.tokens.Valid(ts) {
			m.markAuthenticated(gen, true)
			return ts.AccessToken, nil
		}
		if ts.RefreshToken != "" {
			token, errRefresh := m.refresh(ctx, "")
			if errRefresh == nil {
				return token, nil
			}
			log.WithError(errRefresh).Info("silent refresh failed, starting interactive login")
		}
	}

	return m.loginOrFail(ctx, gen)
}

func (m *Manager) loginOrFail(ctx context.Context, gen uint64) (string, error) {
	token, err := m.login(ctx, gen)
	if err != nil {
		m.markAuthenticated(gen, false)
		return "", err
	}
	return token, nil
}

// errLoggedOut is returned when a logout ends the session a login was started for.
func errLoggedOut() error {
	return &AuthenticationFailedError{Stage: "authorization", Err: &AuthorizationError{Reason: ReasonUserCancelled, Detail: "logged out"}}
}

func (m *Manager) login(ctx context.Context, gen uint64) (string, error) {
	if m.flow == nil {
		return "", &AuthenticationFailedError{Stage: "setup", Err: errors.New("no user agent configured for interactive login")}
	}
	done := m.sessionDone(gen)
	if isClosed(done) {
		return "", errLoggedOut()
	}
	misc.LogCredentialSeparator()

	pkceCodes, err := spotify.GeneratePKCECodes()
	if err != nil {
		return "", &AuthenticationFailedError{Stage: "setup", Err: err}
	}
	state, err := misc.GenerateRandomState()
	if err != nil {
		return "", &AuthenticationFailedError{Stage: "setup", Err: err}
	}
	authURL, err := m.exchanger.GenerateAuthURL(state, pkceCodes)
	if err != nil {
		return "", &AuthenticationFailedError{Stage: "setup", Err: err}
	}

	flowCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-done:
			cancel()
		case <-flowCtx.Done():
		}
	}()

	result, err := m.flow.Start(flowCtx, authURL)
	if isClosed(done) {
		return "", errLoggedOut()
	}
	if err != nil {
		return "", &AuthenticationFailedError{Stage: "authorization", Err: err}
	}
	if result.State != state {
		return "", &AuthenticationFailedError{Stage: "authorization", Err: &AuthorizationError{Reason: ReasonRedirectInvalid, Detail: "state mismatch"}}
	}

	log.Debug("Spotify authorization code received; exchanging for tokens")
	tokens, err := m.exchanger.ExchangeCodeForTokens(ctx, result.Code, pkceCodes.CodeVerifier, m.exchanger.RedirectURI())
	if err != nil {
		return "", &AuthenticationFailedError{Stage: "exchange", Err: err}
	}
	token, err := m.persist(ctx, gen, *tokens)
	if err != nil {
		if isClosed(done) {
			return "", errLoggedOut()
		}
		return "", &AuthenticationFailedError{Stage: "persist", Err: err}
	}
	log.Info("Spotify authentication successful")
	return token, nil
}

// persist saves ts unless a logout happened after generation gen started.
// A Logout racing the save waits on storeMu and clears after it.
func (m *Manager) persist(ctx context.Context, gen uint64, ts spotify.TokenSet) (string, error) {
	m.storeMu.Lock()
	if m.currentGeneration() != gen {
		m.storeMu.Unlock()
		log.WithField("generation", gen).Info("discarding token response from a session that was logged out")
		return "", ErrNotAuthenticated
	}
	err := m.tokens.Save(ctx, ts)
	if err != nil {
		if errClear := m.tokens.Clear(ctx); errClear != nil {
			log.WithError(errClear).Warn("clear credentials after partial save failed")
			m.setClearPending(true)
		}
	} else {
		m.setClearPending(false)
	}
	m.storeMu.Unlock()

	if err != nil {
		m.markAuthenticated(gen, false)
		return "", err
	}
	m.markAuthenticated(gen, true)
	return ts.AccessToken, nil
}

// Logout cancels any interactive flow, invalidates in-flight token responses and
// clears stored credentials. Clearing is best-effort; Logout always succeeds.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.generation++
	close(m.loggedOut)
	m.loggedOut = make(chan struct{})
	m.mu.Unlock()

	if m.flow != nil {
		m.flow.Cancel()
	}

	m.storeMu.Lock()
	if err := m.tokens.Clear(ctx); err != nil {
		log.WithError(err).Warn("clear credentials during logout failed")
		m.setClearPending(true)
	} else {
		m.setClearPending(false)
	}
	m.storeMu.Unlock()

	m.state.update(func(s *AuthenticationState) {
		s.IsAuthenticated = false
		s.IsAuthenticating = false
	})
	log.Info("Logged out of Spotify")
}

// CheckStatus recomputes IsAuthenticated from the store without network calls.
func (m *Manager) CheckStatus(ctx context.Context) bool {
	gen := m.currentGeneration()
	authenticated := false
	if !m.dropPendingCredentials(ctx) {
		authenticated = m.tokens.IsAccessTokenValid(ctx) || m.tokens.HasUsableRefreshToken(ctx)
	}
	m.markAuthenticated(gen, authenticated)
	return authenticated
}

func (m *Manager) currentGeneration() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// markAuthenticated publishes value unless the session moved to a newer generation.
func (m *Manager) markAuthenticated(gen uint64, value bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		return
	}
	m.state.update(func(s *AuthenticationState) { s.IsAuthenticated = value })
}

// sessionDone returns a channel that is closed once generation gen is logged out.
func (m *Manager) sessionDone(gen uint64) <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		done := make(chan struct{})
		close(done)
		return done
	}
	return m.loggedOut
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func (m *Manager) setClearPending(value bool) {
	m.mu.Lock()
	m.clearPending = value
	m.mu.Unlock()
}

func (m *Manager) pendingClear() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearPending
}

// dropPendingCredentials retries a clear that failed earlier. It reports whether
// credentials from a terminated session may still be present.
func (m *Manager) dropPendingCredentials(ctx context.Context) bool {
	if !m.pendingClear() {
		return false
	}
	m.storeMu.Lock()
	defer m.storeMu.Unlock()
	if !m.pendingClear() {
		return false
	}
	if err := m.tokens.Clear(ctx); err != nil {
		log.WithError(err).Debug("retrying credential clear failed")
		return true
	}
	m.setClearPending(false)
	return true
}
