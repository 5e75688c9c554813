package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashureev/focusbooster/internal/config"
	"github.com/ashureev/focusbooster/internal/domain"
	"github.com/ashureev/focusbooster/internal/relay"
	"github.com/ashureev/focusbooster/internal/stats"
	"github.com/ashureev/focusbooster/internal/store"
)

func runCommand(t *testing.T, args ...string) (string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		statsJSON = false
		statsReset = false
		configFile = ""
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return stdout.String(), stderr.String()
}

func TestStatsCommandReadsTodaysRecord(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "focus.db")
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("CONFIG_FILE", "")

	db, err := store.NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	s := stats.New(db)
	s.Load(context.Background())
	for i := 0; i < 2; i++ {
		if _, err := s.RecordCompletedFocusSession(context.Background(), domain.FocusMinutes); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	out, _ := runCommand(t, "stats", "--json")

	var got domain.DailyStats
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON output %q: %v", out, err)
	}
	if got.SessionsToday != 2 || got.TotalMinutesToday != 50 {
		t.Fatalf("unexpected stats %+v", got)
	}
}

func TestStatsCommandEmptyDatabase(t *testing.T) {
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "focus.db"))
	t.Setenv("CONFIG_FILE", "")

	out, errOut := runCommand(t, "stats")
	if !strings.Contains(out, "Sessions: 0") {
		t.Fatalf("expected zero sessions, got %q", out)
	}
	if !strings.Contains(errOut, "No focus sessions completed today.") {
		t.Fatalf("expected hint on stderr, got %q", errOut)
	}
}

func TestRelayTarget(t *testing.T) {
	cfg := config.Default()
	cfg.Port = "9090"
	cfg.Relay.ClientKey = "client-secret"

	url, key := relayTarget(cfg)
	if url != "http://127.0.0.1:9090"+relay.FunctionPath {
		t.Errorf("unexpected local relay url %q", url)
	}
	if key != "client-secret" {
		t.Errorf("local relay should reuse the client key, got %q", key)
	}

	cfg.Relay.URL = "https://relay.example.com/focus-chat"
	cfg.Relay.APIKey = "remote"
	url, key = relayTarget(cfg)
	if url != cfg.Relay.URL || key != "remote" {
		t.Errorf("unexpected remote target %q %q", url, key)
	}
}

func TestStatsCommandReset(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "focus.db")
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("CONFIG_FILE", "")

	db, err := store.NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	s := stats.New(db)
	s.Load(context.Background())
	if _, err := s.RecordCompletedFocusSession(context.Background(), domain.FocusMinutes); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if out, _ := runCommand(t, "stats", "--reset"); !strings.Contains(out, "Daily stats cleared.") {
		t.Fatalf("unexpected output %q", out)
	}
	statsReset = false

	out, _ := runCommand(t, "stats")
	if !strings.Contains(out, "Sessions: 0") {
		t.Fatalf("expected cleared stats, got %q", out)
	}
}
