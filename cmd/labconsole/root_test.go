package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/config"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env"), "--log-level", "error"}, args...))
	require.NoError(t, cmd.ExecuteContext(context.Background()), out.String())
	return out.String()
}

func TestRFIDGenerate(t *testing.T) {
	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(run(t, "rfid", "generate", "-o", "json")), &got))
	assert.Regexp(t, `^[0-9A-F]{8}$`, got["uid"])
}

func TestRFIDRegisterTapAndList_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "lab.db")
	common := []string{"--store", "sqlite", "--db", dbPath}

	var reg map[string]string
	out := run(t, append([]string{"rfid", "register", "--name", "A B", "--id-number", "STU010", "-o", "json"}, common...)...)
	require.NoError(t, json.Unmarshal([]byte(out), &reg))
	uid := reg["uid"]
	require.Regexp(t, `^[0-9A-F]{8}$`, uid)

	var creds []types.RFIDCredential
	require.NoError(t, json.Unmarshal([]byte(run(t, append([]string{"rfid", "users", "-o", "json"}, common...)...)), &creds))
	require.Len(t, creds, 1)
	assert.Equal(t, "STU010", creds[0].IDNumber)
	assert.Equal(t, types.StatusActive, creds[0].Status)

	var e types.AccessLogEntry
	require.NoError(t, json.Unmarshal([]byte(run(t, append([]string{"rfid", "tap", uid, "-o", "json"}, common...)...)), &e))
	assert.Equal(t, "A B", e.FullName)

	table := run(t, append([]string{"rfid", "logs"}, common...)...)
	assert.Contains(t, table, uid)
	assert.Contains(t, table, "A B")
}

func TestRFIDBadOutputFormat(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--env-file", filepath.Join(t.TempDir(), "none.env"), "rfid", "generate", "-o", "yaml"})
	assert.Error(t, cmd.Execute())
}

func TestOpenBackends_MemoryRosterWithSQLiteCredentials(t *testing.T) {
	cfg := config.Config{
		Env:           "dev",
		DBPath:        filepath.Join(t.TempDir(), "lab.db"),
		Store:         "sqlite",
		RosterBackend: "memory",
	}
	b, err := openBackends(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.close() })

	users, err := b.users.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 5)

	_, found, err := b.credentials.GetCredential(context.Background(), "00000000")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestOpenBackends_SQLiteRosterIsSeededOnce(t *testing.T) {
	cfg := config.Config{
		Env:           "dev",
		DBPath:        filepath.Join(t.TempDir(), "lab.db"),
		Store:         "memory",
		RosterBackend: "sqlite",
	}
	ctx := context.Background()

	b, err := openBackends(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, b.users.Delete(ctx, "1001"))
	require.NoError(t, b.close())

	b, err = openBackends(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.close() })
	users, err := b.users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 4)
}

func TestOpenBackends_UnknownStore(t *testing.T) {
	_, err := openBackends(context.Background(), config.Config{Store: "mongo", RosterBackend: "memory"}, zap.NewNop())
	assert.Error(t, err)
}

func TestStoreFlagRejectsEmptyAndUnknown(t *testing.T) {
	for _, v := range []string{"", "mongo"} {
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"--env-file", filepath.Join(t.TempDir(), "none.env"), "--store=" + v, "rfid", "users"})
		assert.ErrorContains(t, cmd.Execute(), "unknown credential store", v)
	}
}

func TestRFIDPrune_KeepsRecentTaps(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "lab.db")
	common := []string{"--store", "sqlite", "--db", dbPath}

	run(t, append([]string{"rfid", "tap", "0A1B2C3D"}, common...)...)

	var got map[string]int64
	require.NoError(t, json.Unmarshal([]byte(run(t, append([]string{"rfid", "prune", "--keep-days", "7", "-o", "json"}, common...)...)), &got))
	assert.Zero(t, got["deleted"])
	assert.Positive(t, got["cutoff"])

	assert.Contains(t, run(t, append([]string{"rfid", "logs"}, common...)...), "0A1B2C3D")
}

func TestRFIDPrune_RejectsNonPositiveKeepDays(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--env-file", filepath.Join(t.TempDir(), "none.env"), "--store", "memory", "rfid", "prune", "--keep-days", "0"})
	assert.ErrorContains(t, cmd.Execute(), "--keep-days")
}
