package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

func TestParseDate(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	cases := map[string]string{
		"":           "2024-03-15",
		"2024-01-02": "2024-01-02",
		"yesterday":  "2024-03-14",
		"today":      "2024-03-15",
	}
	for in, want := range cases {
		got, err := ParseDate(in, now)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s, got %s", in, want, got)
		}
	}
	if _, err := ParseDate("zzz", now); err == nil {
		t.Fatalf("expected error for unparseable input")
	}
}

func TestLoadConfigLayers(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("remote:\n  url: http://file.example\n  timeout: 5s\nperson: alex\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TRACKER_REMOTE_URL", "http://env.example")
	t.Setenv("TRACKER_DB", filepath.Join(dir, "tracker.db"))

	cfg, err := LoadConfig(viper.New(), cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Remote.URL != "http://env.example" {
		t.Fatalf("expected env to override file, got %q", cfg.Remote.URL)
	}
	if cfg.Remote.Timeout != 5*time.Second || cfg.Person != "alex" {
		t.Fatalf("expected file values, got %+v", cfg)
	}
	if cfg.DBPath != filepath.Join(dir, "tracker.db") || cfg.Log.Level != "warn" {
		t.Fatalf("unexpected db path or log level %+v", cfg)
	}

	if _, err := LoadConfig(viper.New(), filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestNewSessionReadsTokenSubject(t *testing.T) {
	t.Parallel()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-42"}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	s, err := NewSession(RemoteConfig{Token: token})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if s.UserID != "user-42" || !s.SignedIn() {
		t.Fatalf("unexpected session %+v", s)
	}

	s, err = NewSession(RemoteConfig{})
	if err != nil || s.SignedIn() {
		t.Fatalf("expected signed-out session, got %+v %v", s, err)
	}
	if _, err := NewSession(RemoteConfig{Token: "garbage"}); err == nil {
		t.Fatalf("expected malformed token error")
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	t.Parallel()
	if _, err := NewLogger(LogConfig{Level: "loud"}, nil); err == nil {
		t.Fatalf("expected invalid level error")
	}
	log, err := NewLogger(LogConfig{Level: "debug", File: filepath.Join(t.TempDir(), "logs", "tracker.log")}, os.Stderr)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	log.Debug("logger ready")
	_ = log.Sync()
}
