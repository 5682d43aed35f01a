package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "powermand.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Moonraker.BaseURL != "http://127.0.0.1:7125" {
		t.Fatalf("base_url = %q", cfg.Moonraker.BaseURL)
	}
	if cfg.Outage.Group != "1.1" {
		t.Fatalf("group = %q", cfg.Outage.Group)
	}
	if cfg.Outage.CheckInterval != time.Minute {
		t.Fatalf("check_interval = %v", cfg.Outage.CheckInterval)
	}
	if cfg.Outage.WaitBefore != 5*time.Minute || cfg.Outage.WaitAfter != 10*time.Minute {
		t.Fatalf("wait_before = %v wait_after = %v", cfg.Outage.WaitBefore, cfg.Outage.WaitAfter)
	}
	if cfg.Temps.Extruder != 200 || cfg.Temps.Bed != 60 || cfg.Temps.Park != 40 {
		t.Fatalf("temps = %+v", cfg.Temps)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Outage.Group != "1.1" {
		t.Fatalf("group = %q, want default", cfg.Outage.Group)
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Temps.Extruder != 200 {
		t.Fatalf("extruder = %d, want default", cfg.Temps.Extruder)
	}
}

func TestLoadOverridesAndKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
[moonraker]
base_url = "http://printer.local:7125"

[outage]
group = "3.2"
check_interval = "30s"
wait_before = "2m"

[temps]
extruder = 245
bed = 80

[log]
level = "debug"
file = "/var/log/powermand.log"

[observe]
listen = "127.0.0.1:9925"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Moonraker.BaseURL != "http://printer.local:7125" {
		t.Fatalf("base_url = %q", cfg.Moonraker.BaseURL)
	}
	if cfg.Outage.Group != "3.2" {
		t.Fatalf("group = %q", cfg.Outage.Group)
	}
	if cfg.Outage.CheckInterval != 30*time.Second {
		t.Fatalf("check_interval = %v", cfg.Outage.CheckInterval)
	}
	if cfg.Outage.WaitBefore != 2*time.Minute {
		t.Fatalf("wait_before = %v", cfg.Outage.WaitBefore)
	}
	// Untouched keys keep their defaults.
	if cfg.Outage.WaitAfter != 10*time.Minute {
		t.Fatalf("wait_after = %v, want default", cfg.Outage.WaitAfter)
	}
	if cfg.Outage.APIURL == "" {
		t.Fatal("api_url default lost")
	}
	if cfg.Temps.Extruder != 245 || cfg.Temps.Bed != 80 {
		t.Fatalf("temps = %+v", cfg.Temps)
	}
	if cfg.Temps.Park != 40 {
		t.Fatalf("park = %d, want default", cfg.Temps.Park)
	}
	if cfg.Log.Level != "debug" || cfg.Log.File != "/var/log/powermand.log" {
		t.Fatalf("log = %+v", cfg.Log)
	}
	if cfg.Observe.Listen != "127.0.0.1:9925" {
		t.Fatalf("observe = %+v", cfg.Observe)
	}
}

func TestLoadRejectsInvalidTOML(t *testing.T) {
	path := writeConfig(t, "[moonraker\nbase_url = ")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed TOML")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base_url", func(c *Config) { c.Moonraker.BaseURL = "" }},
		{"empty api_url", func(c *Config) { c.Outage.APIURL = "" }},
		{"empty group", func(c *Config) { c.Outage.Group = "" }},
		{"zero check_interval", func(c *Config) { c.Outage.CheckInterval = 0 }},
		{"negative wait_before", func(c *Config) { c.Outage.WaitBefore = -time.Minute }},
		{"zero wait_after", func(c *Config) { c.Outage.WaitAfter = 0 }},
		{"extruder too hot", func(c *Config) { c.Temps.Extruder = 900 }},
		{"negative bed", func(c *Config) { c.Temps.Bed = -10 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
[outage]
group = ""
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for empty group")
	}
}
