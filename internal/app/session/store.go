/*
Package session owns the client's authenticated session: the token, the signed-in user,
and the presence connection that lives exactly as long as the session does.

A Store serializes Restore, Login, Logout and UpdateProfile. Every failing operation
reports exactly one error notification and returns the same failure as an error.
Durable writes complete before an operation returns. Notifications and navigation run
outside the operation lock, so sinks and navigators may call back into the Store.
*/
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hzpresence/internal/app/authapi"
	"hzpresence/internal/app/credential"
	"hzpresence/internal/app/notify"
	"hzpresence/internal/app/presence"
	"hzpresence/internal/app/tokenstore"
	"hzpresence/internal/app/user"
	"hzpresence/internal/pkg/errs"
	"hzpresence/internal/pkg/logx"
)

const (
	// DefaultNavigationDelay is the pause between a successful login and navigation to RouteHome.
	DefaultNavigationDelay = 500 * time.Millisecond

	msgLoginSuccessful  = "Login successful"
	msgLogoutSuccessful = "Logout successful"
	msgProfileUpdated   = "Profile updated successfully"
	msgLoginRejected    = "Authentication failed."
)

// AuthAPI is the authentication backend a Store talks to. *authapi.Client implements it.
type AuthAPI interface {
	CheckSession(ctx context.Context) (*user.User, error)
	Login(ctx context.Context, mode authapi.Mode, creds authapi.Credentials) (*authapi.LoginResult, error)
	UpdateProfile(ctx context.Context, patch user.Patch) (*user.User, error)
}

// Presence is the live connection a Store opens for its user. *presence.Channel implements it.
type Presence interface {
	Connect(u *user.User)
	Disconnect()
	Roster() []string
	State() presence.State
}

// Deps are the collaborators of a Store. Notifier and Navigator are optional.
type Deps struct {
	API        AuthAPI
	Presence   Presence
	Tokens     tokenstore.Store
	Credential *credential.Context
	Notifier   notify.Sink
	Navigator  Navigator
}

// Options tune a Store.
type Options struct {
	// NavigationDelay defaults to DefaultNavigationDelay. Negative means navigate immediately.
	NavigationDelay time.Duration

	// ClearOnRestoreFailure removes the stored token when the session check at Restore fails.
	ClearOnRestoreFailure bool

	// TokenKey defaults to tokenstore.TokenKey.
	TokenKey string
}

// Store is the session of one client. It is safe for concurrent use.
type Store struct {
	api      AuthAPI
	presence Presence
	tokens   tokenstore.Store
	cred     *credential.Context
	notifier notify.Sink
	nav      *navigation
	opts     Options

	// opMu serializes the mutating operations.
	opMu sync.Mutex

	// mu guards token and user.
	mu    sync.RWMutex
	token string
	user  *user.User

	logger zerolog.Logger
}

// New wires a Store. API, Presence, Tokens and Credential are required.
func New(d Deps, opts Options) (*Store, error) {
	switch {
	case d.API == nil:
		return nil, errors.New("session: nil auth API")
	case d.Presence == nil:
		return nil, errors.New("session: nil presence channel")
	case d.Tokens == nil:
		return nil, errors.New("session: nil token store")
	case d.Credential == nil:
		return nil, errors.New("session: nil credential context")
	}

	if d.Notifier == nil {
		d.Notifier = notify.NewLogSink()
	}
	if d.Navigator == nil {
		d.Navigator = LogNavigator{}
	}
	if opts.NavigationDelay == 0 {
		opts.NavigationDelay = DefaultNavigationDelay
	}
	if opts.TokenKey == "" {
		opts.TokenKey = tokenstore.TokenKey
	}

	s := &Store{
		api:      d.API,
		presence: d.Presence,
		tokens:   d.Tokens,
		cred:     d.Credential,
		notifier: d.Notifier,
		opts:     opts,
		logger:   logx.Component("session"),
	}
	s.nav = newNavigation(d.Navigator, opts.NavigationDelay, s.Authenticated)
	return s, nil
}

// Restore re-establishes the session persisted by an earlier Login.
// Without a stored token it does nothing.
func (s *Store) Restore(ctx context.Context) error {
	s.opMu.Lock()
	err := s.restore(ctx)
	s.opMu.Unlock()

	return s.report("", err)
}

func (s *Store) restore(ctx context.Context) error {
	token, ok, err := s.tokens.Get(ctx, s.opts.TokenKey)
	if err != nil {
		s.logger.Error().Err(err).Msg("Reading stored token failed.")
		return errs.Wrap(errs.ErrTokenStorage, err)
	}
	if !ok || token == "" {
		s.logger.Debug().Msg("No stored token. Nothing to restore.")
		return nil
	}

	s.setToken(token)
	s.cred.Set(token)

	u, err := s.api.CheckSession(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Bool("clear_token", s.opts.ClearOnRestoreFailure).Msg("Session check failed during restore.")
		if s.opts.ClearOnRestoreFailure {
			if rmErr := s.tokens.Remove(ctx, s.opts.TokenKey); rmErr != nil {
				s.logger.Error().Err(rmErr).Msg("Removing rejected token failed.")
			}
			s.clearFields()
			s.cred.Clear()
		}
		return err
	}

	s.setUser(u)
	s.logger.Info().Str("user_id", u.ID).Msg("Session restored.")
	s.presence.Connect(u)
	return nil
}

// Login authenticates with mode ("signup" or "login"). On success the token is persisted
// before anything else changes, presence is connected and navigation to RouteHome is scheduled.
func (s *Store) Login(ctx context.Context, mode authapi.Mode, creds authapi.Credentials) error {
	s.opMu.Lock()
	msg, err := s.login(ctx, mode, creds)
	s.opMu.Unlock()

	return s.report(msg, err)
}

func (s *Store) login(ctx context.Context, mode authapi.Mode, creds authapi.Credentials) (string, error) {
	if _, err := authapi.ParseMode(string(mode)); err != nil {
		return "", err
	}

	res, err := s.api.Login(ctx, mode, creds)
	if err != nil {
		s.logger.Warn().Err(err).Str("mode", string(mode)).Msg("Authentication call failed.")
		return "", err
	}
	if !res.Success {
		s.logger.Info().Str("mode", string(mode)).Str("reason", res.Message).Msg("Authentication rejected.")
		reason := res.Message
		if reason == "" {
			reason = msgLoginRejected
		}
		return "", errs.Rejected(reason, 0)
	}

	if err := s.tokens.Set(ctx, s.opts.TokenKey, res.Token); err != nil {
		s.logger.Error().Err(err).Msg("Persisting token failed. Session not started.")
		return "", errs.Wrap(errs.ErrTokenStorage, err)
	}

	s.mu.Lock()
	s.token = res.Token
	s.user = res.User
	s.mu.Unlock()
	s.cred.Set(res.Token)

	s.logger.Info().Str("user_id", res.User.ID).Str("mode", string(mode)).Msg("Signed in.")
	s.presence.Connect(res.User)

	s.nav.schedule()

	if res.Message == "" {
		return msgLoginSuccessful, nil
	}
	return res.Message, nil
}

// Logout ends the session. It cannot fail: storage and transport errors are logged.
func (s *Store) Logout(ctx context.Context) {
	s.opMu.Lock()
	s.logout(ctx)
	s.opMu.Unlock()

	s.notifier.Success(msgLogoutSuccessful)
}

func (s *Store) logout(ctx context.Context) {
	s.nav.cancel()

	if err := s.tokens.Remove(ctx, s.opts.TokenKey); err != nil {
		s.logger.Error().Err(err).Msg("Removing stored token failed during logout.")
	}

	userID := ""
	if u := s.User(); u != nil {
		userID = u.ID
	}

	s.clearFields()
	s.cred.Clear()
	s.presence.Disconnect()

	s.logger.Info().Str("user_id", userID).Msg("Signed out.")
}

// UpdateProfile sends patch and adopts the server's copy of the profile.
// Without a signed-in user it does nothing. On failure the previous profile is kept as is.
func (s *Store) UpdateProfile(ctx context.Context, patch user.Patch) error {
	s.opMu.Lock()
	msg, err := s.updateProfile(ctx, patch)
	s.opMu.Unlock()

	return s.report(msg, err)
}

func (s *Store) updateProfile(ctx context.Context, patch user.Patch) (string, error) {
	current := s.User()
	if current == nil {
		s.logger.Debug().Msg("UpdateProfile ignored: no active session.")
		return "", nil
	}

	u, err := s.api.UpdateProfile(ctx, patch)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", current.ID).Msg("Profile update failed.")
		return "", err
	}

	s.setUser(u)
	s.logger.Info().Str("user_id", u.ID).Msg("Profile updated.")
	return msgProfileUpdated, nil
}

// Token returns the session token, or "" when there is none.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the signed-in user, or nil. The returned value must not be modified.
func (s *Store) User() *user.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Authenticated reports whether both a token and a user are present.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil
}

// OnlineUserIDs returns a copy of the latest roster.
func (s *Store) OnlineUserIDs() []string {
	return s.presence.Roster()
}

// Presence returns the session's presence connection.
func (s *Store) Presence() Presence {
	return s.presence
}

func (s *Store) setToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *Store) setUser(u *user.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

func (s *Store) clearFields() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
}

// report emits the outcome of an operation: one error notification for err, otherwise a
// success notification for a non-empty msg. It must be called without opMu held.
func (s *Store) report(msg string, err error) error {
	if err != nil {
		customErr := errs.As(err)
		s.notifier.Error(customErr.Message)
		return customErr
	}
	if msg != "" {
		s.notifier.Success(msg)
	}
	return nil
}
