package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"oncoai/internal/metrics"
	"oncoai/internal/models"
	"oncoai/internal/repositories"
	"oncoai/internal/security"

	log "github.com/sirupsen/logrus"
)

// Credential bounds. bcrypt ignores input past 72 bytes, so longer passwords are refused.
const (
	MinUsernameLen   = 3
	MaxUsernameLen   = 50
	MaxPasswordBytes = 72
)

// TokenTypeBearer is the token_type reported to clients.
const TokenTypeBearer = "bearer"

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Username string
	Password string
	FullName string
	Email    string
}

// AuthService handles registration, login, and per-request identity resolution.
type AuthService struct {
	store    *CredentialStore
	hasher   *security.PasswordHasher
	tokens   *security.TokenCodec
	tokenTTL time.Duration
	events   EventPublisher
	metrics  *metrics.Metrics
}

// AuthOption customizes an AuthService.
type AuthOption func(*AuthService)

// WithAuthEvents publishes user.registered events to p.
func WithAuthEvents(p EventPublisher) AuthOption {
	return func(s *AuthService) {
		s.events = p
	}
}

// WithAuthMetrics records authentication outcomes on m.
func WithAuthMetrics(m *metrics.Metrics) AuthOption {
	return func(s *AuthService) {
		s.metrics = m
	}
}

// NewAuthService creates a new AuthService issuing tokens valid for tokenTTL.
func NewAuthService(store *CredentialStore, hasher *security.PasswordHasher, tokens *security.TokenCodec, tokenTTL time.Duration, opts ...AuthOption) *AuthService {
	s := &AuthService{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		tokenTTL: tokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new account and returns its public projection. No token is issued.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.UserPublic, error) {
	if n := utf8.RuneCountInString(in.Username); n < MinUsernameLen || n > MaxUsernameLen {
		s.metrics.AuthAttempt("register", metrics.OutcomeInvalidInput)
		return nil, &ValidationError{Reason: fmt.Sprintf("username must be %d-%d characters", MinUsernameLen, MaxUsernameLen)}
	}
	if in.Password == "" || len(in.Password) > MaxPasswordBytes {
		s.metrics.AuthAttempt("register", metrics.OutcomeInvalidInput)
		return nil, &ValidationError{Reason: fmt.Sprintf("password must be 1-%d bytes", MaxPasswordBytes)}
	}

	if _, err := s.store.FindByUsername(ctx, in.Username); err == nil {
		s.metrics.AuthAttempt("register", metrics.OutcomeConflict)
		return nil, &ConflictError{Field: "username"}
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		s.metrics.AuthAttempt("register", metrics.OutcomeInfrastructure)
		return nil, infrastructure("lookup username", err)
	}

	if in.Email != "" {
		if _, err := s.store.FindByEmail(ctx, in.Email); err == nil {
			s.metrics.AuthAttempt("register", metrics.OutcomeConflict)
			return nil, &ConflictError{Field: "email"}
		} else if !errors.Is(err, repositories.ErrUserNotFound) {
			s.metrics.AuthAttempt("register", metrics.OutcomeInfrastructure)
			return nil, infrastructure("lookup email", err)
		}
	}

	user, err := s.store.Create(ctx, CreateUserParams{
		Username: in.Username,
		FullName: in.FullName,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		s.metrics.AuthAttempt("register", metrics.OutcomeInfrastructure)
		return nil, infrastructure("create user", err)
	}

	s.metrics.AuthAttempt("register", metrics.OutcomeSuccess)
	log.WithField("username", user.Username).Info("user registered")
	publishEvent(s.events, EventUserRegistered, map[string]any{
		"username": user.Username,
		"user_id":  user.ID,
	})

	public := user.Public()
	return &public, nil
}

// Login checks credentials and issues a bearer token. Unknown usernames and
// wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.TokenResponse, error) {
	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repositories.ErrUserNotFound) {
			s.metrics.AuthAttempt("login", metrics.OutcomeInfrastructure)
			return nil, infrastructure("lookup username", err)
		}
		s.hasher.VerifyNothing(password)
		s.metrics.AuthAttempt("login", metrics.OutcomeUnauthorized)
		return nil, ErrInvalidCredentials
	}

	if user.HashedPassword == nil {
		s.hasher.VerifyNothing(password)
		s.metrics.AuthAttempt("login", metrics.OutcomeUnauthorized)
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, *user.HashedPassword) {
		s.metrics.AuthAttempt("login", metrics.OutcomeUnauthorized)
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.Username, s.tokenTTL)
	if err != nil {
		s.metrics.AuthAttempt("login", metrics.OutcomeInfrastructure)
		return nil, infrastructure("issue token", err)
	}

	s.metrics.AuthAttempt("login", metrics.OutcomeSuccess)
	return &models.TokenResponse{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
		ExpiresAt:   expiresAt,
		User:        user.Public(),
	}, nil
}

// ResolveCaller maps a bearer token to an existing, active user. Every
// authentication failure is reported as ErrUnauthorized; store faults as
// ErrInfrastructure.
func (s *AuthService) ResolveCaller(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		s.metrics.AuthAttempt("resolve", metrics.OutcomeUnauthorized)
		return nil, fmt.Errorf("%w: no token presented", ErrUnauthorized)
	}

	subject, err := s.tokens.Verify(token)
	if err != nil {
		s.metrics.AuthAttempt("resolve", metrics.OutcomeUnauthorized)
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	user, err := s.store.FindByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			s.metrics.AuthAttempt("resolve", metrics.OutcomeUnauthorized)
			return nil, fmt.Errorf("%w: subject no longer exists", ErrUnauthorized)
		}
		s.metrics.AuthAttempt("resolve", metrics.OutcomeInfrastructure)
		return nil, infrastructure("lookup token subject", err)
	}

	if !user.IsActive {
		s.metrics.AuthAttempt("resolve", metrics.OutcomeUnauthorized)
		return nil, fmt.Errorf("%w: account inactive", ErrUnauthorized)
	}

	s.metrics.AuthAttempt("resolve", metrics.OutcomeSuccess)
	return user, nil
}
