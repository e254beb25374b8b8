package users

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mbd888/jobchain/internal/idgen"
)

// MemoryStore is a thread-safe in-memory implementation for dev and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User // id -> user
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*User)}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Create(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(user.Email))
	wallet := strings.ToLower(user.WalletAddress)
	for _, existing := range m.users {
		if existing.Email == email || existing.WalletAddress == wallet {
			return ErrUserExists
		}
	}

	if user.ID == "" {
		user.ID = idgen.WithPrefix("usr_")
	}
	user.Email = email
	user.WalletAddress = wallet
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *MemoryStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range m.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryStore) GetByWallet(ctx context.Context, address string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	address = strings.ToLower(address)
	for _, user := range m.users {
		if user.WalletAddress == address {
			cp := *user
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryStore) UpdateScore(ctx context.Context, userID string, role Role, score float64, reviewCount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}

	switch role {
	case RoleClient:
		user.ClientScore = score
		user.ClientReviews = reviewCount
	case RoleProvider:
		user.ProviderScore = score
		user.ProviderReviews = reviewCount
	}
	user.UpdatedAt = time.Now()
	return nil
}
