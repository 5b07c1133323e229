package reuseconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeYAML(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
}

func TestNewManagerSeedsDefaults(t *testing.T) {
	m := NewManager(Dirs{})
	cfg := m.Get()
	if cfg.Agent.Epsilon != 0.1 || cfg.Agent.Gamma != 0.9 {
		t.Errorf("Get() = %+v, want the named defaults", cfg.Agent)
	}
}

func TestLoadLayersProjectUserLocalInOrder(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "project.yaml")
	user := filepath.Join(dir, "user.yaml")
	local := filepath.Join(dir, "local.yaml")

	writeYAML(t, project, "agent:\n  epsilon: 0.2\nstore:\n  package_name: com.project\n")
	writeYAML(t, user, "agent:\n  epsilon: 0.3\n")
	writeYAML(t, local, "store:\n  current_platform: tv\n")

	m := NewManager(Dirs{ProjectConfigPath: project, UserConfigPath: user, LocalConfigPath: local})
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg := m.Get()
	if cfg.Agent.Epsilon != 0.3 {
		t.Errorf("Epsilon = %f, want 0.3 (local/user should win over project)", cfg.Agent.Epsilon)
	}
	if cfg.Store.PackageName != "com.project" {
		t.Errorf("PackageName = %q, want com.project (untouched by later layers)", cfg.Store.PackageName)
	}
	if cfg.Store.CurrentPlatform != "tv" {
		t.Errorf("CurrentPlatform = %q, want tv", cfg.Store.CurrentPlatform)
	}
}

func TestLoadToleratesMissingFiles(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(Dirs{ProjectConfigPath: filepath.Join(dir, "absent.yaml")})
	if err := m.Load(); err != nil {
		t.Fatalf("Load() with a missing config file should not error: %v", err)
	}
	if m.Get().Agent.Epsilon != 0.1 {
		t.Error("Load() with no files present should retain defaults")
	}
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	t.Setenv("REUSE_EPSILON", "0.42")
	t.Setenv("REUSE_USE_GPU", "true")
	t.Setenv("REUSE_PERSISTENCE_INTERVAL_SECONDS", "30")

	m := NewManager(Dirs{})
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg := m.Get()
	if cfg.Agent.Epsilon != 0.42 {
		t.Errorf("Epsilon = %f, want 0.42 from env", cfg.Agent.Epsilon)
	}
	if !cfg.Embedding.UseGPU {
		t.Error("UseGPU = false, want true from env")
	}
	if cfg.Persistence.IntervalSeconds != 30 {
		t.Errorf("IntervalSeconds = %d, want 30", cfg.Persistence.IntervalSeconds)
	}
}

func TestLoadIgnoresMalformedEnvNumbers(t *testing.T) {
	t.Setenv("REUSE_EPSILON", "not-a-float")

	m := NewManager(Dirs{})
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get().Agent.Epsilon != 0.1 {
		t.Error("a malformed REUSE_EPSILON should leave the default untouched")
	}
}

func TestOnChangeFiresAfterLoad(t *testing.T) {
	m := NewManager(Dirs{})

	var got *Config
	m.OnChange(func(c *Config) { got = c })

	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil {
		t.Fatal("OnChange callback was not invoked")
	}
	if got != m.Get() {
		t.Error("OnChange callback did not receive the published Config")
	}
}

func TestPersistenceIntervalConvertsSecondsToDuration(t *testing.T) {
	c := &Config{Persistence: PersistenceConfig{IntervalSeconds: 90}}
	if got := c.PersistenceInterval(); got != 90*time.Second {
		t.Errorf("PersistenceInterval() = %v, want 90s", got)
	}
}
