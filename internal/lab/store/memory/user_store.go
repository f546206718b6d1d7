package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/store"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

// UserStore keeps the roster as an ordered slice, newest first.
type UserStore struct {
	mu     sync.RWMutex
	users  []types.User
	nextID int
}

// NewUserStore seeds the roster in the given display order.  The ID counter
// starts after the highest numeric seed ID (minimum 1000).
func NewUserStore(seed []types.User) *UserStore {
	s := &UserStore{nextID: 1000}
	for _, u := range seed {
		s.users = append(s.users, u.Clone())
		if n, err := strconv.Atoi(u.ID); err == nil && n > s.nextID {
			s.nextID = n
		}
	}
	return s
}

func (s *UserStore) List(_ context.Context) ([]types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.User, len(s.users))
	for i, u := range s.users {
		out[i] = u.Clone()
	}
	return out, nil
}

func (s *UserStore) Get(_ context.Context, id string) (types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.users[i].Clone(), nil
	}
	return types.User{}, store.ErrUserNotFound
}

func (s *UserStore) FindByIDNumber(_ context.Context, idNumber string) (types.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.IDNumber == idNumber {
			return u.Clone(), true, nil
		}
	}
	return types.User{}, false, nil
}

func (s *UserStore) Insert(_ context.Context, u types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append([]types.User{u.Clone()}, s.users...)
	return nil
}

func (s *UserStore) Update(_ context.Context, u types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(u.ID)
	if i < 0 {
		return store.ErrUserNotFound
	}
	s.users[i] = u.Clone()
	return nil
}

func (s *UserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return store.ErrUserNotFound
	}
	s.users = append(s.users[:i:i], s.users[i+1:]...)
	return nil
}

func (s *UserStore) NextID(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return strconv.Itoa(s.nextID), nil
}

// indexOf must be called with mu held.
func (s *UserStore) indexOf(id string) int {
	for i, u := range s.users {
		if u.ID == id {
			return i
		}
	}
	return -1
}
