// Package directory resolves account records from the user directory.
//
// Three sources are available: an in-memory map for tests and local runs, the users table
// in postgres, and the Keycloak admin API. All of them return errors.ErrUserNotFound for
// unknown ids.
package directory

import (
	"context"
	"sync"

	apperrors "github.com/abgdnv/supermarket/internal/errors"
	"github.com/abgdnv/supermarket/internal/model"
	"github.com/google/uuid"
)

// Directory looks up users by id.
type Directory interface {
	FindUser(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// Writer is implemented by the directories that can store users.
type Writer interface {
	Put(ctx context.Context, user model.User) error
}

// InMemory is a Directory backed by a map.
type InMemory struct {
	mu    sync.RWMutex
	users map[uuid.UUID]model.User
}

func NewInMemory(users ...model.User) *InMemory {
	d := &InMemory{users: make(map[uuid.UUID]model.User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *InMemory) FindUser(_ context.Context, id uuid.UUID) (*model.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return &u, nil
}

// Put adds or replaces a user.
func (d *InMemory) Put(_ context.Context, user model.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.ID] = user
	return nil
}
