// Package firebase keeps RFID credentials and the access log in a Firebase
// Realtime Database, the store the lab console was first built against.
package firebase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/store"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

// Database is the path-addressed get/set surface the store needs.  Get on
// an empty path leaves v untouched.
type Database interface {
	Get(ctx context.Context, path string, v any) error
	Set(ctx context.Context, path string, v any) error
	Delete(ctx context.Context, path string) error
}

type Config struct {
	DatabaseURL     string
	ProjectID       string
	CredentialsFile string // service account JSON; empty uses application default credentials
}

// rtdb adapts the Admin SDK client to Database.
type rtdb struct {
	client *db.Client
}

func (r rtdb) Get(ctx context.Context, path string, v any) error {
	return r.client.NewRef(path).Get(ctx, v)
}

func (r rtdb) Set(ctx context.Context, path string, v any) error {
	return r.client.NewRef(path).Set(ctx, v)
}

func (r rtdb) Delete(ctx context.Context, path string) error {
	return r.client.NewRef(path).Delete(ctx)
}

// Dial opens the Realtime Database named by cfg.DatabaseURL.  Setting
// FIREBASE_DATABASE_EMULATOR_HOST points the SDK at a local emulator.
func Dial(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("firebase: database URL is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := fb.NewApp(ctx, &fb.Config{
		DatabaseURL: cfg.DatabaseURL,
		ProjectID:   cfg.ProjectID,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase database: %w", err)
	}

	return New(rtdb{client: client}), nil
}

type Store struct {
	db Database
}

func New(d Database) *Store {
	return &Store{db: d}
}

func credentialPath(uid string) string { return store.CredentialsPath + "/" + uid }
func accessLogPath(ts int64) string {
	return store.AccessLogPath + "/" + strconv.FormatInt(ts, 10)
}

func (s *Store) PutCredential(ctx context.Context, c types.RFIDCredential) error {
	if err := s.db.Set(ctx, credentialPath(c.UID), c); err != nil {
		return fmt.Errorf("set %s: %w", credentialPath(c.UID), err)
	}
	return nil
}

func (s *Store) GetCredential(ctx context.Context, uid string) (types.RFIDCredential, bool, error) {
	var c *types.RFIDCredential
	if err := s.db.Get(ctx, credentialPath(uid), &c); err != nil {
		return types.RFIDCredential{}, false, fmt.Errorf("get %s: %w", credentialPath(uid), err)
	}
	if c == nil {
		return types.RFIDCredential{}, false, nil
	}
	return *c, true, nil
}

func (s *Store) ListCredentials(ctx context.Context) ([]types.RFIDCredential, error) {
	var m map[string]types.RFIDCredential
	if err := s.db.Get(ctx, store.CredentialsPath, &m); err != nil {
		return nil, fmt.Errorf("get %s: %w", store.CredentialsPath, err)
	}
	out := make([]types.RFIDCredential, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) PutAccessLog(ctx context.Context, e types.AccessLogEntry) error {
	if err := s.db.Set(ctx, accessLogPath(e.Timestamp), e); err != nil {
		return fmt.Errorf("set %s: %w", accessLogPath(e.Timestamp), err)
	}
	return nil
}

func (s *Store) ListAccessLogs(ctx context.Context) ([]types.AccessLogEntry, error) {
	logs, err := s.accessLogs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.AccessLogEntry, 0, len(logs))
	for _, e := range logs {
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) PruneAccessLogsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	logs, err := s.accessLogs(ctx)
	if err != nil {
		return 0, err
	}
	c := cutoff.Unix()
	var n int64
	for key, e := range logs {
		if e.Timestamp >= c {
			continue
		}
		if err := s.db.Delete(ctx, store.AccessLogPath+"/"+key); err != nil {
			return n, fmt.Errorf("delete %s/%s: %w", store.AccessLogPath, key, err)
		}
		n++
	}
	return n, nil
}

// accessLogs reads the whole log subtree.  Integer-like keys may come back
// as a JSON array from the realtime store, so both shapes are accepted.
func (s *Store) accessLogs(ctx context.Context) (map[string]types.AccessLogEntry, error) {
	var raw json.RawMessage
	if err := s.db.Get(ctx, store.AccessLogPath, &raw); err != nil {
		return nil, fmt.Errorf("get %s: %w", store.AccessLogPath, err)
	}
	return decodeLogTree(raw)
}

func decodeLogTree(raw json.RawMessage) (map[string]types.AccessLogEntry, error) {
	out := map[string]types.AccessLogEntry{}
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if raw[0] == '[' {
		var arr []*types.AccessLogEntry
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, fmt.Errorf("decode %s: %w", store.AccessLogPath, err)
		}
		for i, e := range arr {
			if e != nil {
				out[strconv.Itoa(i)] = *e
			}
		}
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", store.AccessLogPath, err)
	}
	return out, nil
}
