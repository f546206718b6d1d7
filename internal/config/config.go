package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string // empty disables the gRPC health listener

	Env      string // "dev" | "prod"
	LogLevel string

	// DB
	DBPath string // e.g. "./data/labconsole.db"

	// Backends
	Store         string // credential store: memory | sqlite | firebase | redis | etcd
	RosterBackend string // memory | sqlite
	RosterSeed    string // optional YAML roster seed

	Firebase FirebaseConfig
	Redis    RedisConfig
	Etcd     EtcdConfig

	// Simulated scan
	ScanDelay time.Duration
	TimeZone  string // IANA name for waktu_readable; "Local" uses the host zone

	// Access log retention
	AccessLogRetentionDays int // 0 = keep forever
	PruneIntervalHours     int

	AllowedOrigins []string
}

type FirebaseConfig struct {
	DatabaseURL     string
	ProjectID       string
	CredentialsFile string
}

type RedisConfig struct {
	URL    string
	Prefix string
}

type EtcdConfig struct {
	Endpoints []string
	Prefix    string
}

var (
	validStores  = []string{"memory", "sqlite", "firebase", "redis", "etcd"}
	validRosters = []string{"memory", "sqlite"}
)

// ParseStore validates a credential store name given on the command line.
func ParseStore(s string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if !slices.Contains(validStores, v) {
		return "", fmt.Errorf("unknown credential store %q (want one of %s)", s, strings.Join(validStores, ", "))
	}
	return v, nil
}

// LoadDotEnv loads KEY=VALUE files into the environment without overriding
// variables already set.  Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

func FromEnv() Config {
	env := strings.ToLower(getenvDefault("LABCONSOLE_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	return Config{
		HTTPAddr: getenvDefault("LABCONSOLE_HTTP_ADDR", ":8080"),
		GRPCAddr: getenvOptional("LABCONSOLE_GRPC_ADDR", ":9090"),
		Env:      env,
		LogLevel: getenvDefault("LABCONSOLE_LOG_LEVEL", "info"),
		DBPath:   getenvDefault("LABCONSOLE_DB_PATH", "./data/labconsole.db"),

		Store:         getenvChoice("LABCONSOLE_STORE", "sqlite", validStores),
		RosterBackend: getenvChoice("LABCONSOLE_ROSTER_BACKEND", "memory", validRosters),
		RosterSeed:    strings.TrimSpace(os.Getenv("LABCONSOLE_ROSTER_SEED")),

		Firebase: FirebaseConfig{
			DatabaseURL:     strings.TrimSpace(os.Getenv("LABCONSOLE_FIREBASE_DATABASE_URL")),
			ProjectID:       strings.TrimSpace(os.Getenv("LABCONSOLE_FIREBASE_PROJECT_ID")),
			CredentialsFile: strings.TrimSpace(os.Getenv("LABCONSOLE_FIREBASE_CREDENTIALS")),
		},
		Redis: RedisConfig{
			URL:    getenvDefault("LABCONSOLE_REDIS_URL", "redis://localhost:6379/0"),
			Prefix: os.Getenv("LABCONSOLE_REDIS_PREFIX"),
		},
		Etcd: EtcdConfig{
			Endpoints: splitCSV(getenvDefault("LABCONSOLE_ETCD_ENDPOINTS", "localhost:2379")),
			Prefix:    getenvDefault("LABCONSOLE_ETCD_PREFIX", "/labconsole"),
		},

		ScanDelay: time.Duration(getenvInt("LABCONSOLE_SCAN_DELAY_MS", 3000)) * time.Millisecond,
		TimeZone:  getenvDefault("LABCONSOLE_TIMEZONE", "Local"),

		AccessLogRetentionDays: getenvInt("LABCONSOLE_ACCESS_LOG_RETENTION_DAYS", 0),
		PruneIntervalHours:     getenvInt("LABCONSOLE_PRUNE_INTERVAL_HOURS", 6),

		AllowedOrigins: splitCSV(getenvDefault("LABCONSOLE_ALLOWED_ORIGINS", "*")),
	}
}

// Location resolves TimeZone, falling back to the host zone.
func (c Config) Location() *time.Location {
	if c.TimeZone == "" || strings.EqualFold(c.TimeZone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// getenvOptional is getenvDefault, except "off" or "-" yields "".
func getenvOptional(key, def string) string {
	v := strings.TrimSpace(getenvDefault(key, def))
	if strings.EqualFold(v, "off") || v == "-" {
		return ""
	}
	return v
}

func getenvChoice(key, def string, valid []string) string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	for _, ok := range valid {
		if v == ok {
			return v
		}
	}
	return def
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
