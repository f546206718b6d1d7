package service

import (
	"context"
	"sync"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

// EditSession holds a private copy of one roster entry.  Changes stay in
// the buffer until Save; Cancel throws them away.  Either one closes the
// session, after which every call returns ErrEditClosed.
//
// No field is validated on save: an empty name or method set is stored as
// given.
type EditSession struct {
	roster *RosterService

	mu   sync.Mutex
	buf  types.User
	open bool
}

// Buffer returns a copy of the pending record.
func (e *EditSession) Buffer() (types.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.open {
		return types.User{}, ErrEditClosed
	}
	return e.buf.Clone(), nil
}

func (e *EditSession) SetFullName(v string) error {
	return e.mutate(func(u *types.User) { u.FullName = v })
}

func (e *EditSession) SetIDNumber(v string) error {
	return e.mutate(func(u *types.User) { u.IDNumber = v })
}

func (e *EditSession) SetRole(v string) error {
	return e.mutate(func(u *types.User) { u.Role = v })
}

func (e *EditSession) SetStatus(v types.Status) error {
	return e.mutate(func(u *types.User) { u.Status = v })
}

func (e *EditSession) ToggleMethod(m types.Modality) error {
	return e.mutate(func(u *types.User) { u.ToggleMethod(m) })
}

// Apply copies every editable field of u into the buffer.  The internal ID
// and registration date are kept.
func (e *EditSession) Apply(u types.User) error {
	return e.mutate(func(b *types.User) {
		b.FullName = u.FullName
		b.IDNumber = u.IDNumber
		b.Role = u.Role
		b.Status = u.Status
		b.AuthMethods = append([]types.Modality(nil), u.AuthMethods...)
	})
}

// Save replaces the stored entry with the buffer and closes the session.
// A failed save leaves the session open.
func (e *EditSession) Save(ctx context.Context) (types.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.open {
		return types.User{}, ErrEditClosed
	}
	if err := e.roster.replace(ctx, e.buf); err != nil {
		return types.User{}, err
	}
	e.open = false
	return e.buf.Clone(), nil
}

func (e *EditSession) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.open {
		return ErrEditClosed
	}
	e.open = false
	return nil
}

func (e *EditSession) mutate(fn func(*types.User)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.open {
		return ErrEditClosed
	}
	fn(&e.buf)
	return nil
}
