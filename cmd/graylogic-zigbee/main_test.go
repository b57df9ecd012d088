package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-zigbee/internal/profile"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func quietLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")
}

// ─── run ────────────────────────────────────────────────────────────

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil || !strings.Contains(err.Error(), "loading config") {
		t.Fatalf("run() error = %v, want config load failure", err)
	}
}

func TestRun_MissingDatabasePath(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", writeConfig(t, `
site:
  id: test-site
database:
  path: ""
`))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// A broken catalog must stop startup before any network connection.
func TestRun_InvalidCatalog(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(catalog, []byte("fingerprints:\n  - pattern: x\n    profile: no_such_profile\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GRAYLOGIC_CONFIG", writeConfig(t, `
site:
  id: test-site
database:
  path: "`+filepath.Join(dir, "test.db")+`"
engine:
  catalog_file: "`+catalog+`"
`))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil || !strings.Contains(err.Error(), "loading catalog") {
		t.Fatalf("run() error = %v, want catalog failure", err)
	}
}

// Requires an MQTT broker at 127.0.0.1:1883; otherwise run fails on
// connect and the test only logs it.
func TestRun_StartupAndShutdown(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GRAYLOGIC_CONFIG", writeConfig(t, `
site:
  id: test-site
database:
  path: "`+filepath.Join(dir, "test.db")+`"
mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
    client_id: "graylogic-zigbee-test"
api:
  enabled: false
logging:
  level: error
  format: text
`))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Logf("run() returned error: %v (may be due to missing MQTT broker)", err)
	}
}

// ─── Helpers ────────────────────────────────────────────────────────

func TestGetConfigPath(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("GRAYLOGIC_CONFIG", "/custom/path/config.yaml")
	if got := getConfigPath(); got != "/custom/path/config.yaml" {
		t.Errorf("getConfigPath() = %q, want env override", got)
	}
}

func TestBuildResolver(t *testing.T) {
	r, err := buildResolver(config.EngineConfig{}, quietLogger())
	if err != nil {
		t.Fatalf("buildResolver() error = %v", err)
	}
	if got := r.Resolve("TS0601", "_TZE204_newmeter", nil).Profile; got != profile.GenericTuya {
		t.Errorf("built-in only: profile = %s, want fallback", got)
	}

	catalog := filepath.Join(t.TempDir(), "catalog.yaml")
	overlay := `
fingerprints:
  - pattern: "_TZE204_newmeter"
    profile: dual_channel_meter
`
	if err := os.WriteFile(catalog, []byte(overlay), 0o600); err != nil {
		t.Fatal(err)
	}
	r, err = buildResolver(config.EngineConfig{CatalogFile: catalog}, quietLogger())
	if err != nil {
		t.Fatalf("buildResolver(overlay) error = %v", err)
	}
	if got := r.Resolve("TS0601", "_TZE204_newmeter", nil).Profile; got != profile.DualChannelMeter {
		t.Errorf("with overlay: profile = %s, want dual_channel_meter", got)
	}
}
