// Package powerman runs the worker daemon's control loop: it watches the
// published outage schedule and pauses, parks, and resumes the printer
// around outage windows.
package powerman

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/YoYoZ/powerswitch-Klipper/internal/metrics"
	"github.com/YoYoZ/powerswitch-Klipper/internal/outage"
)

// Printer is the slice of the Moonraker client the manager drives.
type Printer interface {
	Pause(ctx context.Context) error
	Park(ctx context.Context, standbyTemp int) error
	Resume(ctx context.Context, extruderTemp, bedTemp int) error
}

// ScheduleFetcher pulls the outage tables for one group.
type ScheduleFetcher interface {
	Fetch(ctx context.Context) (outage.Schedule, error)
	Group() string
}

// Temps are the working and standby temperatures, in degrees Celsius.
type Temps struct {
	Extruder int
	Bed      int
	Park     int
}

// Config assembles a Manager.
type Config struct {
	Outages       ScheduleFetcher
	Printer       Printer
	Temps         Temps
	CheckInterval time.Duration
	WaitBefore    time.Duration
	WaitAfter     time.Duration
	Logger        *slog.Logger
}

// Manager owns the pause/park/resume state machine. A pause survives until
// WaitAfter has elapsed since the pause began; a resume that fails (the
// printer may simply be unpowered mid-outage) is retried every tick until
// Moonraker answers again.
type Manager struct {
	outages    ScheduleFetcher
	printer    Printer
	temps      Temps
	interval   time.Duration
	waitBefore time.Duration
	waitAfter  time.Duration
	logger     *slog.Logger

	now         func() time.Time
	parkDelay   time.Duration
	stepDelay   time.Duration
	testWaitSec int

	mu       sync.Mutex
	schedule outage.Schedule
	paused   bool
	pausedAt time.Time
	window   outage.Window
}

// New creates a Manager, filling unset timings with the stock values.
func New(config Config) *Manager {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if config.WaitBefore < 0 {
		config.WaitBefore = 0
	}
	if config.WaitAfter <= 0 {
		config.WaitAfter = 10 * time.Minute
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Manager{
		outages:     config.Outages,
		printer:     config.Printer,
		temps:       config.Temps,
		interval:    config.CheckInterval,
		waitBefore:  config.WaitBefore,
		waitAfter:   config.WaitAfter,
		logger:      config.Logger,
		now:         time.Now,
		parkDelay:   time.Second,
		stepDelay:   time.Second,
		testWaitSec: 60,
	}
}

// Run executes the daemon loop until ctx is cancelled. The schedule is
// fetched at boot and after each midnight; while a fetch keeps failing it
// is retried every tick and the previous tables stay in effect.
func (m *Manager) Run(ctx context.Context) {
	m.logger.Info("power manager starting",
		"group", m.outages.Group(),
		"check_interval", m.interval,
		"wait_before", m.waitBefore,
		"wait_after", m.waitAfter,
		"extruder", m.temps.Extruder,
		"bed", m.temps.Bed,
		"park", m.temps.Park)

	var nextRefresh time.Time
	if err := m.refresh(ctx); err != nil {
		m.logger.Error("schedule fetch failed, will retry", "error", err)
		nextRefresh = m.now()
	} else {
		nextRefresh = nextMidnight(m.now())
	}
	m.tick(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("power manager stopped")
			return
		case <-ticker.C:
			now := m.now()
			if !now.Before(nextRefresh) {
				if err := m.refresh(ctx); err != nil {
					m.logger.Error("schedule fetch failed, will retry", "error", err)
				} else {
					nextRefresh = nextMidnight(now)
				}
			}
			m.tick(ctx)
		}
	}
}

// RunOnce fetches the schedule, evaluates it a single time, and writes a
// short summary to w. Used by the once mode for cron-style invocation.
func (m *Manager) RunOnce(ctx context.Context, w io.Writer) error {
	line := strings.Repeat("=", 40)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "PRINTER POWER MANAGER")
	fmt.Fprintln(w, line)

	if err := m.refresh(ctx); err != nil {
		return fmt.Errorf("fetch outage schedule: %w", err)
	}

	now := m.now()
	m.mu.Lock()
	windows := m.schedule.Current(now)
	m.mu.Unlock()
	fmt.Fprintf(w, "group %s: %d definite outage windows\n", m.outages.Group(), len(windows))
	for _, win := range windows {
		fmt.Fprintf(w, "  %s\n", win.Label())
	}

	m.tick(ctx)

	m.mu.Lock()
	paused := m.paused
	win := m.window
	m.mu.Unlock()
	switch {
	case paused:
		fmt.Fprintf(w, "print paused for window %s, resume %s after the pause\n", win.Label(), m.waitAfter)
	default:
		fmt.Fprintln(w, "no pause due right now")
	}
	fmt.Fprintln(w, "check complete")
	return nil
}

// TestPause drives one pause/park/resume cycle against the live printer,
// narrating each step to w. Used by the test_pause mode.
func (m *Manager) TestPause(ctx context.Context, w io.Writer) error {
	line := strings.Repeat("=", 40)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "PRINTER POWER MANAGER - TEST PAUSE/RESUME")
	fmt.Fprintln(w, line)

	fmt.Fprintln(w, "step 1: pause")
	if err := m.printer.Pause(ctx); err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	fmt.Fprintln(w, "paused")

	if err := sleepCtx(ctx, m.parkDelay); err != nil {
		return err
	}
	fmt.Fprintf(w, "parking at %d C\n", m.temps.Park)
	if err := m.printer.Park(ctx, m.temps.Park); err != nil {
		return fmt.Errorf("park: %w", err)
	}

	fmt.Fprintf(w, "step 2: waiting %d seconds\n", m.testWaitSec)
	for i := m.testWaitSec; i > 0; i-- {
		if i%10 == 0 || i <= 5 {
			fmt.Fprintf(w, "%d seconds left\n", i)
		}
		if err := sleepCtx(ctx, m.stepDelay); err != nil {
			return err
		}
	}

	fmt.Fprintln(w, "step 3: resume")
	if err := m.printer.Resume(ctx, m.temps.Extruder, m.temps.Bed); err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	fmt.Fprintln(w, "resumed, test complete")
	return nil
}

// ScheduleView is the document served by the observe /schedule route.
type ScheduleView struct {
	Group     string          `json:"group"`
	FetchedAt time.Time       `json:"fetched_at"`
	Today     []outage.Window `json:"today"`
	Tomorrow  []outage.Window `json:"tomorrow"`
	Paused    bool            `json:"paused"`
	PausedFor string          `json:"paused_for,omitempty"`
}

// ScheduleSnapshot returns the tables and pause state the manager holds.
func (m *Manager) ScheduleSnapshot() ScheduleView {
	m.mu.Lock()
	defer m.mu.Unlock()
	view := ScheduleView{
		Group:     m.outages.Group(),
		FetchedAt: m.schedule.FetchedAt,
		Today:     m.schedule.Today,
		Tomorrow:  m.schedule.Tomorrow,
		Paused:    m.paused,
	}
	if m.paused {
		view.PausedFor = m.window.Label()
	}
	return view
}

// refresh fetches the outage tables, keeping the previous ones on failure.
func (m *Manager) refresh(ctx context.Context) error {
	sched, err := m.outages.Fetch(ctx)
	if err != nil {
		metrics.IncScheduleFetchError()
		return err
	}
	m.mu.Lock()
	m.schedule = sched
	m.mu.Unlock()
	metrics.SetOutageWindows(len(sched.Current(m.now())))
	return nil
}

// tick runs one evaluation of the state machine.
func (m *Manager) tick(ctx context.Context) {
	now := m.now()
	m.mu.Lock()
	windows := m.schedule.Current(now)
	paused := m.paused
	pausedAt := m.pausedAt
	m.mu.Unlock()

	metrics.SetOutageWindows(len(windows))

	if !paused {
		check := outage.Evaluate(windows, now, m.waitBefore)
		if !check.Due {
			m.logger.Debug("no pause due", "windows", len(windows))
			return
		}
		m.pause(ctx, check)
		return
	}

	pausedFor := now.Sub(pausedAt)
	if pausedFor < m.waitAfter {
		m.logger.Debug("holding pause",
			"paused_for", pausedFor.Truncate(time.Second),
			"wait_after", m.waitAfter)
		return
	}
	m.resume(ctx)
}

func (m *Manager) pause(ctx context.Context, check outage.Check) {
	m.logger.Warn("outage window approaching",
		"window", check.Window.Label(),
		"in", check.Until.Truncate(time.Second))

	if err := m.printer.Pause(ctx); err != nil {
		metrics.IncScriptError()
		m.logger.Error("pause failed, retrying next tick", "error", err)
		return
	}
	metrics.IncPause()
	m.mu.Lock()
	m.paused = true
	m.pausedAt = m.now()
	m.window = check.Window
	m.mu.Unlock()
	metrics.SetPaused(true)

	// Let the pause take hold before touching the heaters.
	if err := sleepCtx(ctx, m.parkDelay); err != nil {
		return
	}
	if err := m.printer.Park(ctx, m.temps.Park); err != nil {
		metrics.IncScriptError()
		m.logger.Error("park failed, heaters stay at working temperature", "error", err)
		return
	}
	m.logger.Warn("print paused and parked", "resume_in", m.waitAfter)
}

func (m *Manager) resume(ctx context.Context) {
	m.logger.Info("resume delay elapsed, attempting resume")
	if err := m.printer.Resume(ctx, m.temps.Extruder, m.temps.Bed); err != nil {
		metrics.IncScriptError()
		m.logger.Warn("resume failed, will retry", "error", err)
		return
	}
	metrics.IncResume()
	m.mu.Lock()
	m.paused = false
	m.pausedAt = time.Time{}
	m.window = outage.Window{}
	m.mu.Unlock()
	metrics.SetPaused(false)
	m.logger.Info("print resumed")
}

// nextMidnight returns 00:00 of the following day in now's location.
func nextMidnight(now time.Time) time.Time {
	y, mo, d := now.AddDate(0, 0, 1).Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, now.Location())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
