package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

// CredentialStore is the key-value namespace for RFID credentials and the
// access log.  Writes are plain sets: an existing credential with the same
// UID, or a log entry with the same timestamp, is overwritten.
type CredentialStore interface {
	PutCredential(ctx context.Context, c types.RFIDCredential) error
	// GetCredential returns found=false when nothing is stored at uid.
	GetCredential(ctx context.Context, uid string) (types.RFIDCredential, bool, error)
	ListCredentials(ctx context.Context) ([]types.RFIDCredential, error)

	PutAccessLog(ctx context.Context, e types.AccessLogEntry) error
	ListAccessLogs(ctx context.Context) ([]types.AccessLogEntry, error)

	// PruneAccessLogsOlderThan deletes log entries whose timestamp is before
	// cutoff and returns how many were removed.
	PruneAccessLogsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
