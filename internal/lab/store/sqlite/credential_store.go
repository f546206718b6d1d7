package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portunus/labconsole/internal/db"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

// CredentialStore keeps akses/rfid_users in rfid_credentials and akses/rfid
// in rfid_access_log.  INSERT OR REPLACE gives the same overwrite-on-set
// behavior as the realtime store.
type CredentialStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewCredentialStore(db *sql.DB, writer *dbpkg.Worker) *CredentialStore {
	return &CredentialStore{db: db, writer: writer}
}

func (s *CredentialStore) PutCredential(ctx context.Context, c types.RFIDCredential) error {
	nowMs := time.Now().UTC().UnixMilli()
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT OR REPLACE INTO rfid_credentials(
  uid, full_name, id_number, role, registered_at, status, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?);
`, c.UID, c.FullName, c.IDNumber, c.Role, c.RegisteredAt, string(c.Status), nowMs); err != nil {
			return fmt.Errorf("PutCredential: %w", err)
		}
		return nil
	})
}

func (s *CredentialStore) GetCredential(ctx context.Context, uid string) (types.RFIDCredential, bool, error) {
	c, err := scanCredential(s.db.QueryRowContext(ctx, `
SELECT uid, full_name, id_number, role, registered_at, status
FROM rfid_credentials WHERE uid = ?;
`, uid))
	if errors.Is(err, sql.ErrNoRows) {
		return types.RFIDCredential{}, false, nil
	}
	if err != nil {
		return types.RFIDCredential{}, false, fmt.Errorf("GetCredential: %w", err)
	}
	return c, true, nil
}

func (s *CredentialStore) ListCredentials(ctx context.Context) ([]types.RFIDCredential, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT uid, full_name, id_number, role, registered_at, status
FROM rfid_credentials;
`)
	if err != nil {
		return nil, fmt.Errorf("ListCredentials: %w", err)
	}
	defer rows.Close()

	out := []types.RFIDCredential{}
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("ListCredentials scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *CredentialStore) PutAccessLog(ctx context.Context, e types.AccessLogEntry) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT OR REPLACE INTO rfid_access_log(
  ts, uid, waktu_readable, full_name, role, id_number
) VALUES (?, ?, ?, ?, ?, ?);
`, e.Timestamp, e.UID, e.WaktuReadable,
			nullIfEmpty(e.FullName), nullIfEmpty(e.Role), nullIfEmpty(e.IDNumber)); err != nil {
			return fmt.Errorf("PutAccessLog: %w", err)
		}
		return nil
	})
}

func (s *CredentialStore) ListAccessLogs(ctx context.Context) ([]types.AccessLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT ts, uid, waktu_readable, full_name, role, id_number
FROM rfid_access_log;
`)
	if err != nil {
		return nil, fmt.Errorf("ListAccessLogs: %w", err)
	}
	defer rows.Close()

	out := []types.AccessLogEntry{}
	for rows.Next() {
		var (
			e                        types.AccessLogEntry
			fullName, role, idNumber sql.NullString
		)
		if err := rows.Scan(&e.Timestamp, &e.UID, &e.WaktuReadable, &fullName, &role, &idNumber); err != nil {
			return nil, fmt.Errorf("ListAccessLogs scan: %w", err)
		}
		e.FullName = fullName.String
		e.Role = role.String
		e.IDNumber = idNumber.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// PruneAccessLogsOlderThan uses the ts primary key for a range delete.
func (s *CredentialStore) PruneAccessLogsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM rfid_access_log
WHERE ts < ?;
`, cutoff.Unix())
		if err != nil {
			return fmt.Errorf("PruneAccessLogsOlderThan: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}

func scanCredential(r rowScanner) (types.RFIDCredential, error) {
	var (
		c      types.RFIDCredential
		status string
	)
	if err := r.Scan(&c.UID, &c.FullName, &c.IDNumber, &c.Role, &c.RegisteredAt, &status); err != nil {
		return types.RFIDCredential{}, err
	}
	c.Status = types.Status(status)
	return c, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
