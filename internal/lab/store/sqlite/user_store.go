package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portunus/labconsole/internal/db"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/store"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

type UserStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewUserStore(db *sql.DB, writer *dbpkg.Worker) *UserStore {
	return &UserStore{db: db, writer: writer}
}

const userColumns = `user_id, full_name, id_number, role, auth_methods, status, registered_at`

func (s *UserStore) List(ctx context.Context) ([]types.User, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+userColumns+`
FROM users
ORDER BY position DESC;
`)
	if err != nil {
		return nil, fmt.Errorf("List users: %w", err)
	}
	defer rows.Close()

	out := []types.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("List users scan: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *UserStore) Get(ctx context.Context, id string) (types.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
SELECT `+userColumns+` FROM users WHERE user_id = ?;
`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.User{}, store.ErrUserNotFound
	}
	if err != nil {
		return types.User{}, fmt.Errorf("Get user: %w", err)
	}
	return u, nil
}

// FindByIDNumber returns the most recently listed match, mirroring a scan of
// the display list from the top.
func (s *UserStore) FindByIDNumber(ctx context.Context, idNumber string) (types.User, bool, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
SELECT `+userColumns+` FROM users
WHERE id_number = ?
ORDER BY position DESC
LIMIT 1;
`, idNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return types.User{}, false, nil
	}
	if err != nil {
		return types.User{}, false, fmt.Errorf("FindByIDNumber: %w", err)
	}
	return u, true, nil
}

func (s *UserStore) Insert(ctx context.Context, u types.User) error {
	nowMs := time.Now().UTC().UnixMilli()
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO users(
  user_id, position, full_name, id_number, role,
  auth_methods, status, registered_at, updated_at_ms
) VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM users), ?, ?, ?, ?, ?, ?, ?);
`, u.ID, u.FullName, u.IDNumber, u.Role,
			dbpkg.JoinMethods(u.AuthMethods), string(u.Status), u.RegisteredAt, nowMs); err != nil {
			return fmt.Errorf("Insert user: %w", err)
		}
		return nil
	})
}

func (s *UserStore) Update(ctx context.Context, u types.User) error {
	nowMs := time.Now().UTC().UnixMilli()
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE users
SET full_name     = ?,
    id_number     = ?,
    role          = ?,
    auth_methods  = ?,
    status        = ?,
    registered_at = ?,
    updated_at_ms = ?
WHERE user_id = ?;
`, u.FullName, u.IDNumber, u.Role, dbpkg.JoinMethods(u.AuthMethods),
			string(u.Status), u.RegisteredAt, nowMs, u.ID)
		if err != nil {
			return fmt.Errorf("Update user: %w", err)
		}
		return requireOneRow(res)
	})
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?;`, id)
		if err != nil {
			return fmt.Errorf("Delete user: %w", err)
		}
		return requireOneRow(res)
	})
}

func (s *UserStore) NextID(ctx context.Context) (string, error) {
	var next int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
UPDATE id_sequences SET value = value + 1 WHERE name = 'users';
`); err != nil {
			return fmt.Errorf("NextID bump: %w", err)
		}
		if err := tx.QueryRowContext(ctx, `
SELECT value FROM id_sequences WHERE name = 'users';
`).Scan(&next); err != nil {
			return fmt.Errorf("NextID read: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(next, 10), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(r rowScanner) (types.User, error) {
	var (
		u       types.User
		methods string
		status  string
	)
	if err := r.Scan(&u.ID, &u.FullName, &u.IDNumber, &u.Role, &methods, &status, &u.RegisteredAt); err != nil {
		return types.User{}, err
	}
	u.AuthMethods = dbpkg.SplitMethods(methods)
	u.Status = types.Status(status)
	return u, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrUserNotFound
	}
	return nil
}
