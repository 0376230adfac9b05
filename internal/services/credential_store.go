package services

import (
	"context"
	"errors"
	"fmt"

	"oncoai/internal/models"
	"oncoai/internal/repositories"
	"oncoai/internal/security"
)

// CreateUserParams describes a user to persist. Password may be plaintext or
// an existing hash; see CredentialStore.Create.
type CreateUserParams struct {
	Username       string
	FullName       string
	Email          string
	Picture        string
	Password       string
	PasswordHashed bool
}

// CredentialStore is the persistence facade for user records. It owns the
// decision of whether a supplied password still needs hashing.
type CredentialStore struct {
	repo            repositories.UserRepository
	hasher          *security.PasswordHasher
	acceptPrehashed bool
}

// NewCredentialStore creates a CredentialStore. When acceptPrehashed is set,
// passwords that already look like a hash of this hasher are stored as-is.
func NewCredentialStore(repo repositories.UserRepository, hasher *security.PasswordHasher, acceptPrehashed bool) *CredentialStore {
	return &CredentialStore{
		repo:            repo,
		hasher:          hasher,
		acceptPrehashed: acceptPrehashed,
	}
}

// FindByUsername returns the user or an error matching repositories.ErrUserNotFound.
func (s *CredentialStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// FindByEmail returns the user holding email or an error matching repositories.ErrUserNotFound.
func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

// Create persists a new active user. The password is hashed unless the caller
// marks it as already hashed or, with acceptPrehashed, it carries this
// hasher's prefix. An empty password leaves the account without credentials.
func (s *CredentialStore) Create(ctx context.Context, p CreateUserParams) (*models.User, error) {
	user := &models.User{
		Username: p.Username,
		FullName: p.FullName,
		Email:    p.Email,
		Picture:  p.Picture,
		IsActive: true,
	}

	if p.Password != "" {
		stored := p.Password
		if !p.PasswordHashed && !(s.acceptPrehashed && s.hasher.IsHash(p.Password)) {
			hashed, err := s.hasher.Hash(p.Password)
			if err != nil {
				return nil, err
			}
			stored = hashed
		}
		user.HashedPassword = &stored
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetActive enables or disables an account. Disabling takes effect on the
// next request of any token issued for it.
func (s *CredentialStore) SetActive(ctx context.Context, username string, active bool) error {
	if err := s.repo.SetActive(ctx, username, active); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("failed to set active=%t for %s: %w", active, username, err)
	}
	return nil
}

// Ping reports whether the backing store is reachable.
func (s *CredentialStore) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
