package outage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const defaultFetchTimeout = 10 * time.Second

// Config holds the settings for the outage feed client.
type Config struct {
	APIURL string
	Group  string
	// Timeout bounds one fetch. Zero means 10 seconds.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client fetches the planned-outage feed for one consumer group.
type Client struct {
	apiURL string
	group  string
	httpc  *http.Client
	logger *slog.Logger
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiURL: cfg.APIURL,
		group:  cfg.Group,
		httpc:  &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Group returns the consumer group this client is bound to.
func (c *Client) Group() string { return c.group }

type feedGroup struct {
	Today    feedDay `json:"today"`
	Tomorrow feedDay `json:"tomorrow"`
}

type feedDay struct {
	Slots []feedSlot `json:"slots"`
}

type feedSlot struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Type  string  `json:"type"`
}

// Fetch downloads and parses the schedule for the configured group.
func (c *Client) Fetch(ctx context.Context) (Schedule, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return Schedule{}, fmt.Errorf("build outage request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return Schedule{}, fmt.Errorf("fetch outage feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Schedule{}, fmt.Errorf("outage feed status %d", resp.StatusCode)
	}

	var payload map[string]feedGroup
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Schedule{}, fmt.Errorf("decode outage feed: %w", err)
	}
	g, ok := payload[c.group]
	if !ok {
		return Schedule{}, fmt.Errorf("group %q not found in outage feed", c.group)
	}

	sched := Schedule{
		Today:     parseSlots(g.Today.Slots),
		Tomorrow:  parseSlots(g.Tomorrow.Slots),
		FetchedAt: time.Now(),
	}
	c.logger.Info("outage schedule updated", "group", c.group)
	for _, w := range sched.Today {
		c.logger.Info("outage window", "day", "today", "window", w.Label())
	}
	for _, w := range sched.Tomorrow {
		c.logger.Info("outage window", "day", "tomorrow", "window", w.Label())
	}
	return sched, nil
}

// parseSlots keeps only confirmed outages and converts feed minutes to
// fractional hours.
func parseSlots(slots []feedSlot) []Window {
	var out []Window
	for _, s := range slots {
		if s.Type != "Definite" {
			continue
		}
		out = append(out, Window{Start: s.Start / 60, End: s.End / 60})
	}
	return out
}
