package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

// DemoRoster is the roster the lab console starts with in dev.
func DemoRoster() []types.User {
	return []types.User{
		{ID: "1001", FullName: "John Doe", IDNumber: "STU001", Role: "Lecturer",
			AuthMethods: []types.Modality{types.ModalityFace, types.ModalityRFID},
			Status:      types.StatusActive, RegisteredAt: "2024-01-15"},
		{ID: "1002", FullName: "Jane Smith", IDNumber: "STU002", Role: "Student",
			AuthMethods: []types.Modality{types.ModalityFingerprint, types.ModalityRFID},
			Status:      types.StatusActive, RegisteredAt: "2024-01-16"},
		{ID: "1003", FullName: "Robert Johnson", IDNumber: "FAC001", Role: "Staff",
			AuthMethods: []types.Modality{types.ModalityRFID},
			Status:      types.StatusActive, RegisteredAt: "2024-01-17"},
		{ID: "1004", FullName: "Emily Davis", IDNumber: "STU003", Role: "Student",
			AuthMethods: []types.Modality{types.ModalityFace},
			Status:      types.StatusActive, RegisteredAt: "2024-01-18"},
		{ID: "1005", FullName: "Michael Wilson", IDNumber: "FAC002", Role: "Lecturer",
			AuthMethods: []types.Modality{types.ModalityFace, types.ModalityFingerprint},
			Status:      types.StatusActive, RegisteredAt: "2024-01-19"},
	}
}

type SeedDevOptions struct {
	// Users replaces DemoRoster when non-empty.  Listed in display order.
	Users []types.User
}

// SeedDev fills an empty users table.  A roster that already has rows is
// left alone so restarts keep edits.
func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users;`).Scan(&n); err != nil {
		return fmt.Errorf("seed count users: %w", err)
	}
	if n > 0 {
		return nil
	}

	users := opt.Users
	if len(users) == 0 {
		users = DemoRoster()
	}

	now := time.Now().UTC().UnixMilli()
	maxID := 1000
	for i, u := range users {
		// First seed row gets the highest position so it lists first.
		pos := len(users) - i
		if _, err := db.ExecContext(ctx, `
INSERT INTO users(
  user_id, position, full_name, id_number, role,
  auth_methods, status, registered_at, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`, u.ID, pos, u.FullName, u.IDNumber, u.Role,
			JoinMethods(u.AuthMethods), string(u.Status), u.RegisteredAt, now); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
		if v, err := strconv.Atoi(u.ID); err == nil && v > maxID {
			maxID = v
		}
	}

	if _, err := db.ExecContext(ctx, `
UPDATE id_sequences SET value = MAX(value, ?) WHERE name = 'users';
`, maxID); err != nil {
		return fmt.Errorf("seed id sequence: %w", err)
	}

	return nil
}

// JoinMethods encodes a method set for the auth_methods column.
func JoinMethods(ms []types.Modality) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = string(m)
	}
	return strings.Join(parts, ",")
}

// SplitMethods is the inverse of JoinMethods.  Unknown tags are dropped.
func SplitMethods(s string) []types.Modality {
	out := []types.Modality{}
	for _, p := range strings.Split(s, ",") {
		if m, err := types.ParseModality(p); err == nil {
			out = append(out, m)
		}
	}
	return out
}
