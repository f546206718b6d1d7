package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/store"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

var (
	ErrMissingFields = errors.New("Please fill in all fields")
	ErrEditClosed    = errors.New("edit session is closed")
)

// RosterService owns the roster rules: keyed merge on external ID, display
// ordering, filtering and whole-record edits.
type RosterService struct {
	users store.UserStore

	// mu serialises read-modify-write sequences against the store.
	mu sync.Mutex
}

func NewRosterService(users store.UserStore) *RosterService {
	return &RosterService{users: users}
}

// List returns the roster newest registration first.
func (s *RosterService) List(ctx context.Context) ([]types.User, error) {
	return s.users.List(ctx)
}

func (s *RosterService) Get(ctx context.Context, id string) (types.User, error) {
	return s.users.Get(ctx, id)
}

// Filter keeps entries whose name, external ID or role contains term,
// ignoring case.  An empty term keeps everything.
func (s *RosterService) Filter(ctx context.Context, term string) ([]types.User, error) {
	all, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	return FilterUsers(all, term), nil
}

// FilterUsers is the pure form of Filter.
func FilterUsers(users []types.User, term string) []types.User {
	if term == "" {
		return users
	}
	needle := strings.ToLower(term)
	out := make([]types.User, 0, len(users))
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.FullName), needle) ||
			strings.Contains(strings.ToLower(u.IDNumber), needle) ||
			strings.Contains(strings.ToLower(u.Role), needle) {
			out = append(out, u)
		}
	}
	return out
}

// Upsert merges a completed scan into the roster.  An existing external ID
// only gains the modality; anything else about the entry is left as is.
// A new external ID creates an Active entry registered on today.
func (s *RosterService) Upsert(ctx context.Context, m types.Modality, form types.RegistrationForm, today string) (types.User, bool, error) {
	form = form.Normalize()
	if form.FullName == "" || form.IDNumber == "" {
		return types.User{}, false, ErrMissingFields
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found, err := s.users.FindByIDNumber(ctx, form.IDNumber)
	if err != nil {
		return types.User{}, false, fmt.Errorf("find %s: %w", form.IDNumber, err)
	}
	if found {
		if existing.WithMethod(m) {
			if err := s.users.Update(ctx, existing); err != nil {
				return types.User{}, false, fmt.Errorf("update %s: %w", existing.ID, err)
			}
		}
		return existing, false, nil
	}

	id, err := s.users.NextID(ctx)
	if err != nil {
		return types.User{}, false, fmt.Errorf("next id: %w", err)
	}
	u := types.User{
		ID:           id,
		FullName:     form.FullName,
		IDNumber:     form.IDNumber,
		Role:         form.Role,
		AuthMethods:  []types.Modality{m},
		Status:       types.StatusActive,
		RegisteredAt: today,
	}
	if err := s.users.Insert(ctx, u); err != nil {
		return types.User{}, false, fmt.Errorf("insert %s: %w", id, err)
	}
	return u, true, nil
}

func (s *RosterService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users.Delete(ctx, id)
}

// BeginEdit snapshots the entry into an edit buffer.
func (s *RosterService) BeginEdit(ctx context.Context, id string) (*EditSession, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &EditSession{roster: s, buf: u.Clone(), open: true}, nil
}

// Replace overwrites the entry carrying u.ID with u.
func (s *RosterService) Replace(ctx context.Context, u types.User) (types.User, error) {
	sess, err := s.BeginEdit(ctx, u.ID)
	if err != nil {
		return types.User{}, err
	}
	if err := sess.Apply(u); err != nil {
		return types.User{}, err
	}
	return sess.Save(ctx)
}

func (s *RosterService) replace(ctx context.Context, u types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users.Update(ctx, u)
}
