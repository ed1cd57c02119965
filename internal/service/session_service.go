package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/beanbrew/queueboard/internal/auth"
	"github.com/beanbrew/queueboard/internal/coffeeapi"
	"github.com/beanbrew/queueboard/internal/domain"
	"github.com/beanbrew/queueboard/internal/events"
	"github.com/beanbrew/queueboard/internal/repository"
	apperrors "github.com/beanbrew/queueboard/pkg/util"
)

const defaultSignupFailure = "Failed to create account"

// AuthAPI is the slice of the coffee API used to establish a session.
type AuthAPI interface {
	Login(ctx context.Context, req coffeeapi.LoginRequest) (*coffeeapi.LoginResponse, error)
	Signup(ctx context.Context, req coffeeapi.SignupRequest) error
}

// CredentialSource hands out the request context of the current session.
type CredentialSource interface {
	RequestContext() (auth.RequestContext, bool)
}

// SessionManager owns the authenticated identity and its credential. The
// in-memory session exists exactly when both halves are persisted.
type SessionManager struct {
	api        AuthAPI
	repo       repository.SessionRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger

	// opMu serialises login, signup, logout and restore.
	opMu sync.Mutex

	mu      sync.RWMutex
	state   domain.SessionState
	session *domain.Session
}

// NewSessionManager builds the manager in the Unauthenticated state.
func NewSessionManager(api AuthAPI, repo repository.SessionRepository, dispatcher events.Dispatcher, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		api:        api,
		repo:       repo,
		dispatcher: dispatcher,
		logger:     logger.Named("session"),
	}
}

// RestoreSession reads the persisted identity and credential without asking
// the server whether they are still valid. A later failing call may reveal
// that they are not.
func (m *SessionManager) RestoreSession(ctx context.Context) domain.SessionState {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	persisted, err := m.repo.Load(ctx)
	if err != nil {
		m.logger.Warn("session restore failed", zap.Error(err))
		m.setState(domain.SessionUnauthenticated, nil)
		return domain.SessionUnauthenticated
	}

	if !persisted.Complete() {
		if persisted.Identity != nil || persisted.Credential != "" {
			m.logger.Info("discarding partial persisted session")
			if err := m.repo.Clear(ctx); err != nil {
				m.logger.Warn("clear partial session failed", zap.Error(err))
			}
		}
		m.setState(domain.SessionUnauthenticated, nil)
		return domain.SessionUnauthenticated
	}

	session := &domain.Session{Identity: *persisted.Identity, Credential: persisted.Credential}
	m.setState(domain.SessionAuthenticated, session)
	m.logger.Info("session restored", zap.String("username", session.Identity.Username))
	m.publish(ctx, events.EventSessionStarted, events.SessionPayload{
		Username: session.Identity.Username,
		Role:     session.Identity.Role,
		Restored: true,
	})
	return domain.SessionAuthenticated
}

// Login verifies the pair with the server, then persists and installs the
// derived credential. Failed logins leave the manager Unauthenticated.
func (m *SessionManager) Login(ctx context.Context, username, password string) (domain.Session, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.login(ctx, username, password)
}

// Signup registers the account and then logs in with the same pair.
func (m *SessionManager) Signup(ctx context.Context, username, password, email string) (domain.Session, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	err := m.api.Signup(ctx, coffeeapi.SignupRequest{Username: username, Password: password, Email: email})
	if err != nil {
		m.logger.Info("signup rejected", zap.String("username", username), zap.Error(err))
		if se, ok := coffeeapi.AsStatusError(err); ok {
			msg := se.Message
			if msg == "" {
				msg = defaultSignupFailure
			}
			return domain.Session{}, apperrors.NewValidationError(msg, map[string]any{"status": se.StatusCode})
		}
		return domain.Session{}, apperrors.NewNetworkError("signup", err)
	}
	return m.login(ctx, username, password)
}

// Logout drops the session from storage and then from memory. When storage
// cannot be cleared the session stays in effect and the error is returned.
// Calling it without a session is a no-op apart from clearing storage again.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.repo.Clear(ctx); err != nil {
		m.logger.Error("clear session failed; still logged in", zap.Error(err))
		return apperrors.NewInternalError(fmt.Errorf("clear session: %w", err))
	}
	prev := m.setState(domain.SessionUnauthenticated, nil)
	if prev != nil {
		m.logger.Info("logged out", zap.String("username", prev.Identity.Username))
		m.publish(ctx, events.EventSessionEnded, events.SessionPayload{Username: prev.Identity.Username})
	}
	return nil
}

// State returns the lifecycle state.
func (m *SessionManager) State() domain.SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Current returns a copy of the active session.
func (m *SessionManager) Current() (domain.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != domain.SessionAuthenticated || m.session == nil {
		return domain.Session{}, false
	}
	return *m.session, true
}

// RequestContext returns the credential carrier for order calls. It reports
// false unless the manager is Authenticated.
func (m *SessionManager) RequestContext() (auth.RequestContext, bool) {
	session, ok := m.Current()
	if !ok {
		return auth.RequestContext{}, false
	}
	return auth.RequestContext{
		Username:   session.Identity.Username,
		Credential: session.Credential,
	}, true
}

func (m *SessionManager) login(ctx context.Context, username, password string) (domain.Session, error) {
	prev := m.setState(domain.SessionAuthenticating, nil)

	resp, err := m.api.Login(ctx, coffeeapi.LoginRequest{Username: username, Password: password})
	if err != nil {
		m.logger.Info("login failed", zap.String("username", username), zap.Error(err))
		m.dropPrevious(ctx, prev)
		return domain.Session{}, loginError(err)
	}

	identity := domain.Identity{Username: resp.Username, Role: resp.Role}
	if identity.Username == "" {
		identity.Username = username
	}
	if identity.Role == "" {
		identity.Role = domain.RoleUser
	}
	credential := auth.DeriveCredential(username, password)

	if err := m.repo.Save(ctx, identity, credential); err != nil {
		m.logger.Error("persist session failed", zap.Error(err))
		m.dropPrevious(ctx, prev)
		return domain.Session{}, apperrors.NewInternalError(fmt.Errorf("persist session: %w", err))
	}

	session := &domain.Session{Identity: identity, Credential: credential}
	if info, ok := auth.InspectToken(resp.Token); ok && info.ExpiresAt != nil {
		session.TokenExpiresAt = info.ExpiresAt
		m.logger.Debug("server token expiry", zap.Time("expires_at", *info.ExpiresAt))
	}

	m.setState(domain.SessionAuthenticated, session)
	m.logger.Info("logged in", zap.String("username", identity.Username), zap.String("role", string(identity.Role)))
	m.publish(ctx, events.EventSessionStarted, events.SessionPayload{Username: identity.Username, Role: identity.Role})
	return *session, nil
}

// dropPrevious clears a session that a failed re-login replaced.
func (m *SessionManager) dropPrevious(ctx context.Context, prev *domain.Session) {
	m.setState(domain.SessionUnauthenticated, nil)
	if prev == nil {
		return
	}
	if err := m.repo.Clear(ctx); err != nil {
		m.logger.Warn("clear previous session failed", zap.Error(err))
	}
	m.publish(ctx, events.EventSessionEnded, events.SessionPayload{Username: prev.Identity.Username})
}

// setState swaps state and session together and returns the previous session.
func (m *SessionManager) setState(state domain.SessionState, session *domain.Session) *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.session
	m.state = state
	m.session = session
	return prev
}

func (m *SessionManager) publish(ctx context.Context, eventType events.EventType, payload events.SessionPayload) {
	if m.dispatcher == nil {
		return
	}
	if err := m.dispatcher.Publish(ctx, events.New(eventType, payload)); err != nil {
		m.logger.Warn("session event handler failed", zap.String("event", string(eventType)), zap.Error(err))
	}
}

// loginError maps client rejections to AuthError and everything else to NetworkError.
func loginError(err error) error {
	se, ok := coffeeapi.AsStatusError(err)
	if !ok {
		return apperrors.NewNetworkError("login", err)
	}
	if se.StatusCode >= http.StatusBadRequest && se.StatusCode < http.StatusInternalServerError {
		return apperrors.NewAuthError(err)
	}
	return apperrors.NewNetworkError("login", err)
}
