package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Faultbox/midgard-city/internal/engine/model"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.URL != "http://localhost:8585/" {
		t.Errorf("expected server url http://localhost:8585/, got %s", cfg.Server.URL)
	}
	if cfg.Server.Transport != TransportPoll {
		t.Errorf("expected poll transport, got %s", cfg.Server.Transport)
	}
	if cfg.Server.PollInterval != time.Second {
		t.Errorf("expected poll interval 1s, got %v", cfg.Server.PollInterval)
	}
	if cfg.Server.Agents != 10 {
		t.Errorf("expected 10 agents, got %d", cfg.Server.Agents)
	}
	if cfg.Animation.Interpolation != time.Second {
		t.Errorf("expected interpolation 1s, got %v", cfg.Animation.Interpolation)
	}
	if cfg.Assets.Normals != "zero" {
		t.Errorf("expected normals policy zero, got %s", cfg.Assets.Normals)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level info, got %s", cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty url", func(c *Config) { c.Server.URL = "" }, "server.url"},
		{"bad transport", func(c *Config) { c.Server.Transport = "carrier-pigeon" }, "server.transport"},
		{"zero poll", func(c *Config) { c.Server.PollInterval = 0 }, "server.poll_interval"},
		{"negative interpolation", func(c *Config) { c.Animation.Interpolation = -time.Second }, "animation.interpolation"},
		{"zero frame", func(c *Config) { c.Viewer.FrameInterval = 0 }, "viewer.frame_interval"},
		{"zero concurrency", func(c *Config) { c.Assets.Concurrency = 0 }, "assets.concurrency"},
		{"bad normals", func(c *Config) { c.Assets.Normals = "guess" }, "assets.normals"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestNormalsPolicy(t *testing.T) {
	cfg := Default()
	cfg.Assets.Normals = "require"
	p, err := cfg.NormalsPolicy()
	if err != nil {
		t.Fatalf("NormalsPolicy: %v", err)
	}
	if p != model.NormalsRequired {
		t.Errorf("expected NormalsRequired, got %v", p)
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := Default()
	cfg.Server.URL = "http://sim.example:9000/"
	cfg.Server.Transport = TransportStream
	cfg.Animation.Interpolation = 250 * time.Millisecond
	cfg.Assets.Seed = 42

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if loaded.Server.URL != cfg.Server.URL {
		t.Errorf("url mismatch: expected %s, got %s", cfg.Server.URL, loaded.Server.URL)
	}
	if loaded.Server.Transport != TransportStream {
		t.Errorf("transport mismatch: got %s", loaded.Server.Transport)
	}
	if loaded.Animation.Interpolation != 250*time.Millisecond {
		t.Errorf("interpolation mismatch: got %v", loaded.Animation.Interpolation)
	}
	if loaded.Assets.Seed != 42 {
		t.Errorf("seed mismatch: got %d", loaded.Assets.Seed)
	}
}

func TestLoadFromFilePartial(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.yaml")

	yamlContent := `
server:
  transport: stream
logging:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Transport != TransportStream {
		t.Errorf("expected stream transport, got %s", cfg.Server.Transport)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Untouched keys keep defaults
	if cfg.Server.URL != "http://localhost:8585/" {
		t.Errorf("expected default url, got %s", cfg.Server.URL)
	}
	if cfg.Viewer.FrameInterval != 33*time.Millisecond {
		t.Errorf("expected default frame interval, got %v", cfg.Viewer.FrameInterval)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
server:
  agents: not a number
  invalid syntax here
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	os.Chdir(tmpDir)

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "cityview.yaml"), []byte("map:\n  path: city.txt\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find cityview.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "server flag",
			setup: func() { *flagServer = "http://custom:7000/" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Server.URL != "http://custom:7000/" {
					t.Errorf("expected custom server, got %s", cfg.Server.URL)
				}
			},
			teardown: func() { *flagServer = "" },
		},
		{
			name:  "transport flag",
			setup: func() { *flagTransport = TransportStream },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Server.Transport != TransportStream {
					t.Errorf("expected stream transport, got %s", cfg.Server.Transport)
				}
			},
			teardown: func() { *flagTransport = "" },
		},
		{
			name: "map and assets flags",
			setup: func() {
				*flagMap = "other.txt"
				*flagAssets = "http://cdn.example/obj"
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Map.Path != "other.txt" {
					t.Errorf("expected map other.txt, got %s", cfg.Map.Path)
				}
				if cfg.Assets.Root != "http://cdn.example/obj" {
					t.Errorf("expected asset root override, got %s", cfg.Assets.Root)
				}
			},
			teardown: func() {
				*flagMap = ""
				*flagAssets = ""
			},
		},
		{
			name:  "agents flag",
			setup: func() { *flagAgents = 25 },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Server.Agents != 25 {
					t.Errorf("expected 25 agents, got %d", cfg.Server.Agents)
				}
			},
			teardown: func() { *flagAgents = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  url: http://file-server:1/
  agents: 4
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagServer = "http://flag-server:2/"
	defer func() {
		*flagConfig = ""
		*flagServer = ""
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.URL != "http://flag-server:2/" {
		t.Errorf("expected url from flag, got %s", cfg.Server.URL)
	}
	if cfg.Server.Agents != 4 {
		t.Errorf("expected agents 4 from file, got %d", cfg.Server.Agents)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("server:\n  transport: smoke\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); err == nil {
		t.Error("expected Load to reject invalid transport")
	}
}
