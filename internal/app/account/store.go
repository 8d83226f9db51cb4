/*
Package account implements the credential store of the chat server.

The Store registers accounts, verifies passwords and resets them. Records live behind
the Repository interface: an in-memory map by default, Postgres when a database is
configured. Input validation (empty ids or passwords) is the caller's job.
*/
package account

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"lanchat/internal/pkg/logx"
)

// Store is the credential store. It is safe for concurrent use.
type Store struct {
	repo Repository

	// cost is the bcrypt work factor applied to new hashes. Passwords are SHA-256
	// digested first, so their length is not limited.
	cost int

	logger zerolog.Logger
}

// NewStore builds a Store over repo hashing with the given bcrypt cost.
func NewStore(repo Repository, cost int) *Store {
	return &Store{
		repo:   repo,
		cost:   cost,
		logger: logx.Component("account_store"),
	}
}

// Register creates accountID with password, or returns ErrAlreadyExists.
func (s *Store) Register(ctx context.Context, accountID, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}

	if err := s.repo.Create(ctx, accountID, hash); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return err
		}
		return fmt.Errorf("register %q: %w", accountID, err)
	}

	s.logger.Info().Str("account_id", accountID).Msg("Account registered.")
	return nil
}

// Verify reports whether password matches the stored credentials of accountID.
// An unknown account verifies as false without error.
func (s *Store) Verify(ctx context.Context, accountID, password string) (bool, error) {
	hash, err := s.repo.PasswordHash(ctx, accountID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("verify %q: %w", accountID, err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(hash), digest(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("verify %q: %w", accountID, err)
	}
}

// Exists reports whether accountID is registered.
func (s *Store) Exists(ctx context.Context, accountID string) (bool, error) {
	ok, err := s.repo.Exists(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("exists %q: %w", accountID, err)
	}
	return ok, nil
}

// ResetPassword overwrites the password of accountID, or returns ErrNotFound.
func (s *Store) ResetPassword(ctx context.Context, accountID, newPassword string) error {
	hash, err := s.hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePassword(ctx, accountID, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("reset password %q: %w", accountID, err)
	}

	s.logger.Info().Str("account_id", accountID).Msg("Password reset.")
	return nil
}

func (s *Store) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(digest(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// digest maps a password of any length to 64 hex bytes, inside bcrypt's 72 byte input limit.
func digest(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(hex.EncodeToString(sum[:]))
}
