package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hirableedge/go-auth"
)

// MemoryUsers is an in-process UserStore. Email uniqueness is enforced
// under the write lock, records are copied in and out.
type MemoryUsers struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*auth.User
	byEmail map[string]uuid.UUID
	now     func() time.Time
}

var _ auth.UserStore = (*MemoryUsers)(nil)

// NewMemoryUsers returns an empty store
func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		byID:    map[uuid.UUID]*auth.User{},
		byEmail: map[string]uuid.UUID{},
		now:     time.Now,
	}
}

func (m *MemoryUsers) FindByIdentity(ctx context.Context, identity string) (*auth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[auth.NormalizeIdentity(identity)]
	if !ok {
		return nil, auth.ErrUserNotFound
	}

	user := m.byID[id]
	if user == nil || !user.DeletedAt.IsZero() {
		return nil, auth.ErrUserNotFound
	}

	return user.Clone(), nil
}

func (m *MemoryUsers) Insert(ctx context.Context, user *auth.User) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	email := auth.NormalizeIdentity(user.Email)
	if _, exists := m.byEmail[email]; exists {
		return uuid.Nil, auth.ErrIdentityAlreadyExists
	}

	record := user.Clone()
	record.Email = email
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if _, exists := m.byID[record.ID]; exists {
		return uuid.Nil, auth.ErrIdentityAlreadyExists
	}

	now := m.now().UTC()
	if record.Role == "" {
		record.Role = auth.RoleStudent
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}

	m.byID[record.ID] = record
	m.byEmail[email] = record.ID

	user.ID = record.ID
	return record.ID, nil
}

func (m *MemoryUsers) UpdateFields(ctx context.Context, id uuid.UUID, patch auth.UserPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if patch.IsEmpty() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.byID[id]
	if !ok || !user.DeletedAt.IsZero() {
		return auth.ErrUserNotFound
	}

	patch.Apply(user, m.now().UTC())
	return nil
}

// SoftDelete marks the record deleted, it is no longer found by identity
func (m *MemoryUsers) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.byID[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	user.DeletedAt = m.now().UTC()
	return nil
}

// Len returns the number of stored records, deleted ones included
func (m *MemoryUsers) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}
