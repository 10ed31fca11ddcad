package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/behnamfe76/gatekeeper/internal/domain"
)

type memoryUserRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]domain.User
	now    func() time.Time
}

// NewMemoryUserRepository returns a UserRepository kept in process memory.
// It enforces the same unique email index as the users table.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		byID: make(map[int64]domain.User),
		now:  time.Now,
	}
}

func (r *memoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.Email == user.Email {
			return errors.New("insert user: UNIQUE constraint failed: users.email")
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = r.now().UTC()
	r.byID[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.byID {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryUserRepository) List(_ context.Context) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*domain.User, 0, len(r.byID))
	for _, user := range r.byID {
		u := user
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *memoryUserRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *memoryUserRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}
