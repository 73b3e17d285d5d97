// Package service provides the authentication state machine: registration,
// password login, session lifecycle and TOTP two-factor enrollment.
// Persistence, hashing, TOTP and session storage are injected collaborators.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/authkeeper/internal/apperror"
	"github.com/atinyakov/authkeeper/internal/models"
	"github.com/atinyakov/authkeeper/internal/repository"
	"github.com/atinyakov/authkeeper/internal/security"
	"github.com/atinyakov/authkeeper/internal/session"
)

// Client-facing messages. Login failures share one message so the response
// never reveals whether the username exists.
const (
	msgCredentialsRequired = "username and password are required"
	msgUsernameTaken       = "username already taken"
	msgInvalidCredentials  = "invalid username or password"
	msgNotAuthenticated    = "unauthorized user"
	msgTokenRequired       = "2FA token is required"
	msgSetupRequired       = "2FA setup has not been started"
	msgInvalidToken        = "invalid 2FA token"
	msgPasswordTooLong     = "password must be at most 72 bytes"
)

// dummyPassword is hashed once per service so unknown usernames cost one
// password comparison, like a wrong password does.
const dummyPassword = "authkeeper-timing-equalizer"

// AuthRepository defines the persistence operations
// required by the authentication service.
type AuthRepository interface {
	// FindByUsername returns repository.ErrNotFound when no user matches.
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	// FindByID returns repository.ErrNotFound when no user matches.
	FindByID(ctx context.Context, id string) (*models.User, error)
	// Create returns repository.ErrConflict when the username is taken.
	Create(ctx context.Context, u *models.User) error
	// Save atomically persists every mutable field of u.
	Save(ctx context.Context, u *models.User) error
}

// SessionStore binds opaque session IDs to user IDs.
type SessionStore interface {
	Create(ctx context.Context, userID string) (*models.Session, error)
	// Get returns session.ErrNotFound for unknown or expired IDs.
	Get(ctx context.Context, id string) (*models.Session, error)
	// Destroy returns session.ErrNotFound for unknown or expired IDs.
	Destroy(ctx context.Context, id string) error
}

// PasswordHasher hashes and compares passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) (bool, error)
}

// OTPProvider generates TOTP secrets and validates codes against them.
type OTPProvider interface {
	Generate(accountName string) (*models.MFASetup, error)
	Validate(code, secret string) (bool, error)
}

// AuthService orchestrates the authentication state transitions.
type AuthService struct {
	users    AuthRepository
	sessions SessionStore
	hasher   PasswordHasher
	otp      OTPProvider
	log      *zap.Logger

	// dummyHash is compared against when the username is unknown.
	dummyHash string
}

// NewAuthService wires the service to its collaborators. A nil logger is
// replaced with a no-op one.
func NewAuthService(users AuthRepository, sessions SessionStore, hasher PasswordHasher, otp OTPProvider, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		log.Warn("cannot prepare dummy password hash", zap.Error(err))
	}
	return &AuthService{
		users:     users,
		sessions:  sessions,
		hasher:    hasher,
		otp:       otp,
		log:       log,
		dummyHash: dummyHash,
	}
}

// Register creates a user with MFA disabled. It does not log the user in.
func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, apperror.NewValidation(msgCredentialsRequired)
	}

	_, err := s.users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, apperror.NewConflict(msgUsernameTaken)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apperror.NewDependency(err)
	}

	hash, err := s.hasher.Hash(password)
	if errors.Is(err, security.ErrPasswordTooLong) {
		return nil, apperror.NewValidation(msgPasswordTooLong)
	}
	if err != nil {
		return nil, apperror.NewDependency(err)
	}

	now := time.Now().UTC()
	u := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperror.NewConflict(msgUsernameTaken)
		}
		return nil, apperror.NewDependency(err)
	}

	s.log.Info("user registered", zap.String("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// Login verifies the password and opens a new session. If priorSessionID
// names a live session it is destroyed first so a login always rotates the
// session identifier. Login does not require a TOTP code even when MFA is enabled.
// An unknown username still pays for one password comparison.
func (s *AuthService) Login(ctx context.Context, username, password, priorSessionID string) (*models.Session, models.UserView, error) {
	if username == "" || password == "" {
		return nil, models.UserView{}, apperror.NewValidation(msgCredentialsRequired)
	}

	u, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		_, _ = s.hasher.Compare(s.dummyHash, password)
		s.log.Info("login failed", zap.String("username", username), zap.String("reason", "user not found"))
		return nil, models.UserView{}, apperror.NewAuthentication(msgInvalidCredentials)
	}
	if err != nil {
		return nil, models.UserView{}, apperror.NewDependency(err)
	}

	ok, err := s.hasher.Compare(u.PasswordHash, password)
	if err != nil {
		return nil, models.UserView{}, apperror.NewDependency(err)
	}
	if !ok {
		s.log.Info("login failed", zap.String("username", username), zap.String("reason", "incorrect password"))
		return nil, models.UserView{}, apperror.NewAuthentication(msgInvalidCredentials)
	}

	if priorSessionID != "" {
		if err := s.sessions.Destroy(ctx, priorSessionID); err != nil && !errors.Is(err, session.ErrNotFound) {
			return nil, models.UserView{}, apperror.NewDependency(err)
		}
	}

	sess, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, models.UserView{}, apperror.NewDependency(err)
	}

	s.log.Info("user logged in", zap.String("user_id", u.ID), zap.Bool("mfa_enabled", u.MFAEnabled))
	return sess, u.View(), nil
}

// ResolveSession maps a session ID to the bound user ID. An empty, unknown
// or expired ID yields an authentication error.
func (s *AuthService) ResolveSession(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", apperror.NewAuthentication(msgNotAuthenticated)
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return "", apperror.NewAuthentication(msgNotAuthenticated)
	}
	if err != nil {
		return "", apperror.NewDependency(err)
	}
	return sess.UserID, nil
}

// Status returns the public view of the authenticated user.
func (s *AuthService) Status(ctx context.Context, userID string) (models.UserView, error) {
	if userID == "" {
		return models.UserView{}, apperror.NewAuthentication(msgNotAuthenticated)
	}
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.UserView{}, apperror.NewAuthentication(msgNotAuthenticated)
	}
	if err != nil {
		return models.UserView{}, apperror.NewDependency(err)
	}
	return u.View(), nil
}

// Logout destroys the session. Logging out twice fails the second time
// with the same authentication error as having no session at all.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return apperror.NewAuthentication(msgNotAuthenticated)
	}
	err := s.sessions.Destroy(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return apperror.NewAuthentication(msgNotAuthenticated)
	}
	if err != nil {
		return apperror.NewDependency(err)
	}
	return nil
}

// SetupMFA generates and stores a new TOTP secret, replacing any previous
// one. MFAEnabled is left as it was.
func (s *AuthService) SetupMFA(ctx context.Context, userID string) (*models.MFASetup, error) {
	u, err := s.authorizedUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	setup, err := s.otp.Generate(u.Username)
	if err != nil {
		return nil, apperror.NewDependency(err)
	}

	secret := setup.Secret
	u.MFASecret = &secret
	if err := s.users.Save(ctx, u); err != nil {
		return nil, apperror.NewDependency(err)
	}

	s.log.Info("2fa setup started", zap.String("user_id", u.ID))
	return setup, nil
}

// VerifyMFA checks code against the stored secret and enables MFA on success.
// A wrong code leaves the user unchanged.
func (s *AuthService) VerifyMFA(ctx context.Context, userID, code string) error {
	u, err := s.authorizedUser(ctx, userID)
	if err != nil {
		return err
	}
	if code == "" {
		return apperror.NewValidation(msgTokenRequired)
	}
	if u.MFASecret == nil {
		return apperror.NewValidation(msgSetupRequired)
	}

	ok, err := s.otp.Validate(code, *u.MFASecret)
	if err != nil {
		return apperror.NewDependency(err)
	}
	if !ok {
		s.log.Info("2fa verification failed", zap.String("user_id", u.ID))
		return apperror.NewValidation(msgInvalidToken)
	}

	u.MFAEnabled = true
	if err := s.users.Save(ctx, u); err != nil {
		return apperror.NewDependency(err)
	}

	s.log.Info("2fa enabled", zap.String("user_id", u.ID))
	return nil
}

// ResetMFA clears the secret and disables MFA in a single save.
func (s *AuthService) ResetMFA(ctx context.Context, userID string) error {
	u, err := s.authorizedUser(ctx, userID)
	if err != nil {
		return err
	}

	u.MFASecret = nil
	u.MFAEnabled = false
	if err := s.users.Save(ctx, u); err != nil {
		return apperror.NewDependency(err)
	}

	s.log.Info("2fa reset", zap.String("user_id", u.ID))
	return nil
}

// authorizedUser loads the user bound to the current session. MFA
// operations report a missing session as an authorization error.
func (s *AuthService) authorizedUser(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, apperror.NewAuthorization(msgNotAuthenticated)
	}
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NewAuthorization(msgNotAuthenticated)
	}
	if err != nil {
		return nil, apperror.NewDependency(err)
	}
	return u, nil
}
