//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=../../mocks/mock_account_repository.go -package=mocks
package account

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrAlreadyExists is returned when registering an account id that is taken.
	ErrAlreadyExists = errors.New("account already exists")

	// ErrNotFound is returned for operations on an unregistered account id.
	ErrNotFound = errors.New("account not found")
)

// Repository persists account records. Passwords arrive already hashed.
type Repository interface {
	// Create stores a new account, or returns ErrAlreadyExists.
	Create(ctx context.Context, accountID, passwordHash string) error

	// PasswordHash returns the stored hash, or ErrNotFound.
	PasswordHash(ctx context.Context, accountID string) (string, error)

	// UpdatePassword overwrites the stored hash, or returns ErrNotFound.
	UpdatePassword(ctx context.Context, accountID, passwordHash string) error

	// Exists reports whether accountID is registered.
	Exists(ctx context.Context, accountID string) (bool, error)
}

// MemoryRepository keeps accounts in a map for the lifetime of the process.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]string
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[string]string)}
}

func (r *MemoryRepository) Create(_ context.Context, accountID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[accountID]; ok {
		return ErrAlreadyExists
	}
	r.accounts[accountID] = passwordHash
	return nil
}

func (r *MemoryRepository) PasswordHash(_ context.Context, accountID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hash, ok := r.accounts[accountID]
	if !ok {
		return "", ErrNotFound
	}
	return hash, nil
}

func (r *MemoryRepository) UpdatePassword(_ context.Context, accountID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[accountID]; !ok {
		return ErrNotFound
	}
	r.accounts[accountID] = passwordHash
	return nil
}

func (r *MemoryRepository) Exists(_ context.Context, accountID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.accounts[accountID]
	return ok, nil
}
