// Package moonraker is a minimal client for the Moonraker HTTP API, covering
// the G-code scripts the power manager needs: pause, park, and resume.
package moonraker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds client configuration.
type Config struct {
	BaseURL string
	// ScriptTimeout bounds ordinary scripts. HeatTimeout bounds scripts
	// that wait on heaters, which can take most of a warmup cycle.
	ScriptTimeout time.Duration
	HeatTimeout   time.Duration
	Logger        *slog.Logger
}

// DefaultConfig returns the configuration for a printer on this host.
func DefaultConfig() Config {
	return Config{
		BaseURL:       "http://127.0.0.1:7125",
		ScriptTimeout: 15 * time.Second,
		HeatTimeout:   90 * time.Second,
	}
}

// Client talks to one Moonraker instance.
type Client struct {
	baseURL       string
	client        *http.Client
	logger        *slog.Logger
	scriptTimeout time.Duration
	heatTimeout   time.Duration
	heatSettle    time.Duration
}

// New creates a Moonraker client, filling unset fields from DefaultConfig.
func New(config Config) *Client {
	def := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.ScriptTimeout <= 0 {
		config.ScriptTimeout = def.ScriptTimeout
	}
	if config.HeatTimeout <= 0 {
		config.HeatTimeout = def.HeatTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL:       strings.TrimRight(config.BaseURL, "/"),
		client:        &http.Client{},
		logger:        config.Logger,
		scriptTimeout: config.ScriptTimeout,
		heatTimeout:   config.HeatTimeout,
		heatSettle:    2 * time.Second,
	}
}

// RunScript executes a G-code script via HTTP GET. The request deadline
// depends on the script: heater commands get the long heat timeout.
func (c *Client) RunScript(ctx context.Context, script string) error {
	u := c.baseURL + "/printer/gcode/script?script=" + url.QueryEscape(script)
	c.logger.Debug("moonraker script", "url", u)

	reqCtx, cancel := context.WithTimeout(ctx, c.timeoutFor(script))
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("moonraker request failed", "script", script, "error", err)
		return fmt.Errorf("run script %q: %w", script, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("moonraker script rejected", "script", script, "status", resp.StatusCode)
		return fmt.Errorf("run script %q: status %d", script, resp.StatusCode)
	}
	return nil
}

// timeoutFor picks the deadline for one script. RESUME waits for the
// extruder to reheat, and M104/M140 wait on heater acknowledgement.
func (c *Client) timeoutFor(script string) time.Duration {
	if strings.Contains(script, "RESUME") ||
		strings.Contains(script, "M104") ||
		strings.Contains(script, "M140") {
		return c.heatTimeout
	}
	return c.scriptTimeout
}

// Pause pauses the running print.
func (c *Client) Pause(ctx context.Context) error {
	c.logger.Warn("pausing print")
	return c.RunScript(ctx, "PAUSE")
}

// Park drops both heaters to the standby temperature so the printer idles
// safely through the outage without a cold restart.
func (c *Client) Park(ctx context.Context, standbyTemp int) error {
	c.logger.Warn("parking printer", "standby_temp", standbyTemp)
	script := fmt.Sprintf("M140 S%d\nM104 S%d", standbyTemp, standbyTemp)
	return c.RunScript(ctx, script)
}

// Resume switches the heaters back on, gives them a moment to report in,
// then resumes the print.
func (c *Client) Resume(ctx context.Context, extruderTemp, bedTemp int) error {
	c.logger.Info("heating for resume", "extruder", extruderTemp, "bed", bedTemp)
	heat := fmt.Sprintf("M104 S%d\nM140 S%d", extruderTemp, bedTemp)
	if err := c.RunScript(ctx, heat); err != nil {
		return fmt.Errorf("heaters on: %w", err)
	}

	select {
	case <-time.After(c.heatSettle):
	case <-ctx.Done():
		return ctx.Err()
	}

	c.logger.Info("resuming print")
	return c.RunScript(ctx, "RESUME")
}
