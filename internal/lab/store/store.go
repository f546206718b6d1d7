package store

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
)

// Logical paths shared by every credential backend.  Backends that are not
// path-addressed (SQLite) keep them only for diagnostics.
const (
	CredentialsPath = "akses/rfid_users"
	AccessLogPath   = "akses/rfid"
)
