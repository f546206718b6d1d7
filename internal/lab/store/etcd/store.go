// Package etcd keeps RFID credentials and the access log as JSON values
// under path-shaped etcd keys.
package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/store"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

type Config struct {
	Endpoints   []string
	DialTimeout time.Duration
	Prefix      string
}

// Dial connects and checks the first endpoint's status.
func Dial(ctx context.Context, cfg Config) (*Store, *clientv3.Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, nil, fmt.Errorf("etcd: at least one endpoint is required")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to etcd: %w", err)
	}

	statusCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := client.Status(statusCtx, cfg.Endpoints[0]); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("etcd health check: %w", err)
	}

	return NewStore(client, cfg.Prefix), client, nil
}

type Store struct {
	kv     clientv3.KV
	prefix string
}

func NewStore(kv clientv3.KV, prefix string) *Store {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = "/labconsole"
	}
	return &Store{kv: kv, prefix: prefix}
}

func (s *Store) credentialsDir() string { return s.prefix + "/" + store.CredentialsPath + "/" }
func (s *Store) accessLogDir() string   { return s.prefix + "/" + store.AccessLogPath + "/" }

func (s *Store) PutCredential(ctx context.Context, c types.RFIDCredential) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	key := s.credentialsDir() + c.UID
	if _, err := s.kv.Put(ctx, key, string(data)); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *Store) GetCredential(ctx context.Context, uid string) (types.RFIDCredential, bool, error) {
	key := s.credentialsDir() + uid
	resp, err := s.kv.Get(ctx, key)
	if err != nil {
		return types.RFIDCredential{}, false, fmt.Errorf("get %s: %w", key, err)
	}
	if len(resp.Kvs) == 0 {
		return types.RFIDCredential{}, false, nil
	}
	var c types.RFIDCredential
	if err := json.Unmarshal(resp.Kvs[0].Value, &c); err != nil {
		return types.RFIDCredential{}, false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return c, true, nil
}

func (s *Store) ListCredentials(ctx context.Context) ([]types.RFIDCredential, error) {
	resp, err := s.kv.Get(ctx, s.credentialsDir(), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.credentialsDir(), err)
	}
	out := make([]types.RFIDCredential, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var c types.RFIDCredential
		if err := json.Unmarshal(kv.Value, &c); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", kv.Key, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) PutAccessLog(ctx context.Context, e types.AccessLogEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal access log: %w", err)
	}
	key := s.accessLogDir() + strconv.FormatInt(e.Timestamp, 10)
	if _, err := s.kv.Put(ctx, key, string(data)); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *Store) ListAccessLogs(ctx context.Context) ([]types.AccessLogEntry, error) {
	resp, err := s.kv.Get(ctx, s.accessLogDir(), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.accessLogDir(), err)
	}
	out := make([]types.AccessLogEntry, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var e types.AccessLogEntry
		if err := json.Unmarshal(kv.Value, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", kv.Key, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) PruneAccessLogsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	resp, err := s.kv.Get(ctx, s.accessLogDir(), clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", s.accessLogDir(), err)
	}

	c := cutoff.Unix()
	var n int64
	for _, kv := range resp.Kvs {
		key := string(kv.Key)
		ts, err := strconv.ParseInt(strings.TrimPrefix(key, s.accessLogDir()), 10, 64)
		if err != nil || ts >= c {
			continue
		}
		del, err := s.kv.Delete(ctx, key)
		if err != nil {
			return n, fmt.Errorf("delete %s: %w", key, err)
		}
		n += del.Deleted
	}
	return n, nil
}
