// Package config loads the worker daemon's TOML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/YoYoZ/powerswitch-Klipper/internal/logger"
)

// Config is the full powermand.toml document. Every field has a default, so
// a missing file or an empty section still yields a runnable daemon.
type Config struct {
	Moonraker Moonraker     `toml:"moonraker" mapstructure:"moonraker"`
	Outage    Outage        `toml:"outage" mapstructure:"outage"`
	Temps     Temps         `toml:"temps" mapstructure:"temps"`
	Log       logger.Config `toml:"log" mapstructure:"log"`
	Observe   Observe       `toml:"observe" mapstructure:"observe"`
}

// Moonraker addresses the Klipper HTTP front end.
type Moonraker struct {
	BaseURL string `toml:"base_url" mapstructure:"base_url"`
	// ScriptTimeout bounds ordinary G-code scripts, HeatTimeout bounds
	// scripts that wait on heaters.
	ScriptTimeout time.Duration `toml:"script_timeout" mapstructure:"script_timeout"`
	HeatTimeout   time.Duration `toml:"heat_timeout" mapstructure:"heat_timeout"`
}

// Outage selects the planned-outage feed and the pause policy around it.
type Outage struct {
	APIURL        string        `toml:"api_url" mapstructure:"api_url"`
	Group         string        `toml:"group" mapstructure:"group"`
	CheckInterval time.Duration `toml:"check_interval" mapstructure:"check_interval"`
	// WaitBefore is how far ahead of an outage window the print pauses.
	WaitBefore time.Duration `toml:"wait_before" mapstructure:"wait_before"`
	// WaitAfter is how long after pausing the print resumes.
	WaitAfter time.Duration `toml:"wait_after" mapstructure:"wait_after"`
}

// Temps holds target temperatures in degrees Celsius.
// PLA: extruder 200, bed 60. PETG: 245/80. ABS: 240/100.
type Temps struct {
	Extruder int `toml:"extruder" mapstructure:"extruder"`
	Bed      int `toml:"bed" mapstructure:"bed"`
	// Park is the standby temperature held while paused.
	Park int `toml:"park" mapstructure:"park"`
}

// Observe configures the read-only HTTP endpoint. Empty listen disables it.
type Observe struct {
	Listen string `toml:"listen" mapstructure:"listen"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Moonraker: Moonraker{
			BaseURL:       "http://127.0.0.1:7125",
			ScriptTimeout: 15 * time.Second,
			HeatTimeout:   90 * time.Second,
		},
		Outage: Outage{
			APIURL:        "https://app.yasno.ua/api/blackout-service/public/shutdowns/regions/25/dsos/902/planned-outages",
			Group:         "1.1",
			CheckInterval: time.Minute,
			WaitBefore:    5 * time.Minute,
			WaitAfter:     10 * time.Minute,
		},
		Temps: Temps{
			Extruder: 200,
			Bed:      60,
			Park:     40,
		},
		Log: logger.Config{
			Level: "info",
		},
	}
}

// Load reads the TOML file at path over the defaults. A missing file is not
// an error: the defaults apply unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the daemon cannot safely run with.
func (c Config) Validate() error {
	if c.Moonraker.BaseURL == "" {
		return fmt.Errorf("moonraker.base_url must be set")
	}
	if c.Outage.APIURL == "" {
		return fmt.Errorf("outage.api_url must be set")
	}
	if c.Outage.Group == "" {
		return fmt.Errorf("outage.group must be set")
	}
	if c.Outage.CheckInterval <= 0 {
		return fmt.Errorf("outage.check_interval must be positive, got %v", c.Outage.CheckInterval)
	}
	if c.Outage.WaitBefore < 0 {
		return fmt.Errorf("outage.wait_before must not be negative, got %v", c.Outage.WaitBefore)
	}
	if c.Outage.WaitAfter <= 0 {
		return fmt.Errorf("outage.wait_after must be positive, got %v", c.Outage.WaitAfter)
	}
	for name, temp := range map[string]int{
		"temps.extruder": c.Temps.Extruder,
		"temps.bed":      c.Temps.Bed,
		"temps.park":     c.Temps.Park,
	} {
		if temp < 0 || temp > 500 {
			return fmt.Errorf("%s out of range: %d", name, temp)
		}
	}
	return nil
}
