package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database: a throwaway lab whose roster
// and access log vanish with the process.
const MemoryPath = ":memory:"

const defaultPath = "./data/labconsole.db"

type Config struct {
	Path string // file path or MemoryPath; defaults to ./data/labconsole.db
}

// pragmas apply to every connection.  The console process and the
// `labconsole rfid` subcommands may share one file: WAL lets `rfid logs`
// read while `serve` records taps, and busy_timeout makes a CLI tap wait
// for the server's write lock instead of failing with SQLITE_BUSY.
var pragmas = []string{
	"foreign_keys(1)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
}

// DSN builds the modernc.org/sqlite connection string for path.
func DSN(path string) string {
	q := make(url.Values)
	for _, p := range pragmas {
		if path == MemoryPath && strings.HasPrefix(p, "journal_mode") {
			continue // in-memory databases have no WAL
		}
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.Path == "" {
		cfg.Path = defaultPath
	}

	if cfg.Path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", DSN(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Path, err)
	}

	// One connection: roster and credential writes are serialized through
	// Worker, and an in-memory database exists only on its own connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Path, err)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
