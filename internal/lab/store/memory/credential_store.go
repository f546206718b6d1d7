package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

// CredentialStore is an in-memory stand-in for the realtime store.  Map
// iteration order makes List results unordered, as they are upstream.
type CredentialStore struct {
	mu          sync.RWMutex
	credentials map[string]types.RFIDCredential
	logs        map[int64]types.AccessLogEntry
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		credentials: make(map[string]types.RFIDCredential),
		logs:        make(map[int64]types.AccessLogEntry),
	}
}

func (s *CredentialStore) PutCredential(_ context.Context, c types.RFIDCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[c.UID] = c
	return nil
}

func (s *CredentialStore) GetCredential(_ context.Context, uid string) (types.RFIDCredential, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[uid]
	return c, ok, nil
}

func (s *CredentialStore) ListCredentials(_ context.Context) ([]types.RFIDCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.RFIDCredential, 0, len(s.credentials))
	for _, c := range s.credentials {
		out = append(out, c)
	}
	return out, nil
}

func (s *CredentialStore) PutAccessLog(_ context.Context, e types.AccessLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[e.Timestamp] = e
	return nil
}

func (s *CredentialStore) ListAccessLogs(_ context.Context) ([]types.AccessLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.AccessLogEntry, 0, len(s.logs))
	for _, e := range s.logs {
		out = append(out, e)
	}
	return out, nil
}

func (s *CredentialStore) PruneAccessLogsOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cutoff.Unix()
	var n int64
	for ts := range s.logs {
		if ts < c {
			delete(s.logs, ts)
			n++
		}
	}
	return n, nil
}
