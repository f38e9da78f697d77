package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "protochain.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c != Default() {
		t.Fatalf("expected defaults, got %+v", c)
	}
	if len(c.RealmOptions()) != 1 {
		t.Fatalf("expected only the inspect depth option with the cache disabled")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvEnablePrototypeCache, "true")
	t.Setenv(EnvCacheEntries, "64")
	t.Setenv(EnvInspectDepth, "not-a-number")
	t.Setenv(EnvLogLevel, "debug")

	c := FromEnv()
	if !c.EnablePrototypeCache {
		t.Errorf("expected cache enabled from env")
	}
	if c.CacheEntries != 64 {
		t.Errorf("expected 64 cache entries, got %d", c.CacheEntries)
	}
	if c.InspectDepth != Default().InspectDepth {
		t.Errorf("expected unparsable depth to keep the default, got %d", c.InspectDepth)
	}
	lvl, err := c.Level()
	if err != nil || lvl != zapcore.DebugLevel {
		t.Errorf("expected debug level, got %v (err=%v)", lvl, err)
	}
	if len(c.RealmOptions()) != 2 {
		t.Errorf("expected a cache option when the cache is enabled")
	}
}

func TestLoadParsesYamlOverEnv(t *testing.T) {
	t.Setenv(EnvDetailedCacheStats, "true")
	t.Setenv(EnvInspectDepth, "5")

	path := filepath.Join(t.TempDir(), "protochain.yaml")
	configYAML := strings.TrimSpace(`
enable_prototype_cache: true
inspect_depth: 1
log_level: warn
`)
	if err := os.WriteFile(path, []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !c.EnablePrototypeCache || !c.DetailedCacheStats {
		t.Errorf("expected cache and detailed stats enabled, got %+v", c)
	}
	if c.InspectDepth != 1 {
		t.Errorf("expected the file to override the env depth, got %d", c.InspectDepth)
	}
	if c.LogLevel != "warn" {
		t.Errorf("expected warn, got %q", c.LogLevel)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"negative depth": "inspect_depth: -1",
		"bad level":      "log_level: loud",
		"bad yaml":       "inspect_depth: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".yaml")
			if err := os.WriteFile(path, []byte(body), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected an error for %q", body)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	// no default file: environment settings only
	if _, err := Load(""); err != nil {
		t.Fatalf("expected a missing default file to be ignored, got %v", err)
	}
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(""); err != nil {
		t.Fatalf("expected a missing file from %s to be ignored, got %v", EnvConfigFile, err)
	}

	// a path passed explicitly must exist
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for an explicit path that does not exist")
	}

	t.Setenv(EnvConfigFile, "")
	if err := os.WriteFile(DefaultFile, []byte("inspect_depth: 4"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.InspectDepth != 4 {
		t.Errorf("expected the default file to be read, got depth %d", c.InspectDepth)
	}
}
