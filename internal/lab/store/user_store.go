package store

import (
	"context"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

// UserStore holds the roster.  List returns entries in display order:
// the most recently inserted entry first.
type UserStore interface {
	List(ctx context.Context) ([]types.User, error)
	Get(ctx context.Context, id string) (types.User, error)
	FindByIDNumber(ctx context.Context, idNumber string) (types.User, bool, error)
	Insert(ctx context.Context, u types.User) error
	Update(ctx context.Context, u types.User) error
	Delete(ctx context.Context, id string) error

	// NextID returns the next sequential display identifier.  IDs are never
	// reissued, even after deletes.
	NextID(ctx context.Context) (string, error)
}
