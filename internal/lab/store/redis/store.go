// Package redis keeps RFID credentials and the access log in two Redis
// hashes named after the realtime-store paths.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/store"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

type Store struct {
	client goredis.Cmdable
	prefix string
}

// NewStoreFromURL parses a redis:// URL and pings the server.
func NewStoreFromURL(ctx context.Context, redisURL, prefix string) (*Store, *goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect to redis %s: %w", opts.Addr, err)
	}

	return NewStore(client, prefix), client, nil
}

// NewStore wraps an existing client.  prefix namespaces the two hashes.
func NewStore(client goredis.Cmdable, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) credentialsKey() string { return s.prefix + store.CredentialsPath }
func (s *Store) accessLogKey() string   { return s.prefix + store.AccessLogPath }

func (s *Store) PutCredential(ctx context.Context, c types.RFIDCredential) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	if err := s.client.HSet(ctx, s.credentialsKey(), c.UID, data).Err(); err != nil {
		return fmt.Errorf("hset %s %s: %w", s.credentialsKey(), c.UID, err)
	}
	return nil
}

func (s *Store) GetCredential(ctx context.Context, uid string) (types.RFIDCredential, bool, error) {
	data, err := s.client.HGet(ctx, s.credentialsKey(), uid).Bytes()
	if errors.Is(err, goredis.Nil) {
		return types.RFIDCredential{}, false, nil
	}
	if err != nil {
		return types.RFIDCredential{}, false, fmt.Errorf("hget %s %s: %w", s.credentialsKey(), uid, err)
	}
	var c types.RFIDCredential
	if err := json.Unmarshal(data, &c); err != nil {
		return types.RFIDCredential{}, false, fmt.Errorf("unmarshal credential %s: %w", uid, err)
	}
	return c, true, nil
}

func (s *Store) ListCredentials(ctx context.Context) ([]types.RFIDCredential, error) {
	all, err := s.client.HGetAll(ctx, s.credentialsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", s.credentialsKey(), err)
	}
	out := make([]types.RFIDCredential, 0, len(all))
	for uid, raw := range all {
		var c types.RFIDCredential
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, fmt.Errorf("unmarshal credential %s: %w", uid, err)
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
	field := strconv.FormatInt(e.Timestamp, 10)
	if err := s.client.HSet(ctx, s.accessLogKey(), field, data).Err(); err != nil {
		return fmt.Errorf("hset %s %s: %w", s.accessLogKey(), field, err)
	}
	return nil
}

func (s *Store) ListAccessLogs(ctx context.Context) ([]types.AccessLogEntry, error) {
	all, err := s.client.HGetAll(ctx, s.accessLogKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", s.accessLogKey(), err)
	}
	out := make([]types.AccessLogEntry, 0, len(all))
	for field, raw := range all {
		var e types.AccessLogEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("unmarshal access log %s: %w", field, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) PruneAccessLogsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	fields, err := s.client.HKeys(ctx, s.accessLogKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("hkeys %s: %w", s.accessLogKey(), err)
	}

	c := cutoff.Unix()
	var stale []string
	for _, f := range fields {
		ts, err := strconv.ParseInt(f, 10, 64)
		if err != nil || ts >= c {
			continue
		}
		stale = append(stale, f)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	n, err := s.client.HDel(ctx, s.accessLogKey(), stale...).Result()
	if err != nil {
		return 0, fmt.Errorf("hdel %s: %w", s.accessLogKey(), err)
	}
	return n, nil
}
