package powerman

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/YoYoZ/powerswitch-Klipper/internal/outage"
)

type fakePrinter struct {
	mu        sync.Mutex
	calls     []string
	pauseErr  error
	parkErr   error
	resumeErr error
}

func (p *fakePrinter) record(call string) {
	p.mu.Lock()
	p.calls = append(p.calls, call)
	p.mu.Unlock()
}

func (p *fakePrinter) Pause(ctx context.Context) error {
	p.record("pause")
	return p.pauseErr
}

func (p *fakePrinter) Park(ctx context.Context, standbyTemp int) error {
	p.record(fmt.Sprintf("park:%d", standbyTemp))
	return p.parkErr
}

func (p *fakePrinter) Resume(ctx context.Context, extruderTemp, bedTemp int) error {
	p.record(fmt.Sprintf("resume:%d:%d", extruderTemp, bedTemp))
	return p.resumeErr
}

func (p *fakePrinter) log() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type fakeFetcher struct {
	mu      sync.Mutex
	sched   outage.Schedule
	err     error
	fetches int
}

func (f *fakeFetcher) Fetch(ctx context.Context) (outage.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return outage.Schedule{}, f.err
	}
	return f.sched, nil
}

func (f *fakeFetcher) Group() string { return "1.1" }

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 1, 15, hour, minute, 0, 0, time.Local)
}

func testManager(t *testing.T, f *fakeFetcher, p *fakePrinter) *Manager {
	t.Helper()
	m := New(Config{
		Outages:       f,
		Printer:       p,
		Temps:         Temps{Extruder: 200, Bed: 60, Park: 40},
		CheckInterval: 10 * time.Millisecond,
		WaitBefore:    5 * time.Minute,
		WaitAfter:     10 * time.Minute,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	m.parkDelay = time.Millisecond
	m.stepDelay = time.Millisecond
	return m
}

func TestTickPausesAndParksBeforeWindow(t *testing.T) {
	f := &fakeFetcher{sched: outage.Schedule{Today: []outage.Window{{Start: 16, End: 19}}}}
	p := &fakePrinter{}
	m := testManager(t, f, p)
	if err := m.refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	m.now = func() time.Time { return at(15, 55) }

	m.tick(context.Background())

	if got := p.log(); !slices.Equal(got, []string{"pause", "park:40"}) {
		t.Fatalf("calls = %v, want pause then park", got)
	}
	if !m.paused {
		t.Fatal("manager not marked paused")
	}
	if m.window.Label() != "16:00-19:00" {
		t.Fatalf("window = %s", m.window.Label())
	}
}

func TestTickIdleFarFromWindow(t *testing.T) {
	f := &fakeFetcher{sched: outage.Schedule{Today: []outage.Window{{Start: 16, End: 19}}}}
	p := &fakePrinter{}
	m := testManager(t, f, p)
	if err := m.refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	m.now = func() time.Time { return at(10, 0) }

	m.tick(context.Background())

	if got := p.log(); len(got) != 0 {
		t.Fatalf("calls = %v, want none", got)
	}
	if m.paused {
		t.Fatal("manager paused with no window near")
	}
}

func TestTickRetriesAfterPauseFailure(t *testing.T) {
	f := &fakeFetcher{sched: outage.Schedule{Today: []outage.Window{{Start: 16, End: 19}}}}
	p := &fakePrinter{pauseErr: errors.New("moonraker down")}
	m := testManager(t, f, p)
	if err := m.refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	m.now = func() time.Time { return at(15, 56) }

	m.tick(context.Background())
	if m.paused {
		t.Fatal("paused set despite pause failure")
	}
	if got := p.log(); !slices.Equal(got, []string{"pause"}) {
		t.Fatalf("calls = %v, want a single pause attempt", got)
	}

	p.pauseErr = nil
	m.tick(context.Background())
	if !m.paused {
		t.Fatal("second tick did not pause")
	}
}

func TestTickStaysPausedWhenParkFails(t *testing.T) {
	f := &fakeFetcher{sched: outage.Schedule{Today: []outage.Window{{Start: 16, End: 19}}}}
	p := &fakePrinter{parkErr: errors.New("heater fault")}
	m := testManager(t, f, p)
	if err := m.refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	m.now = func() time.Time { return at(15, 56) }

	m.tick(context.Background())

	if !m.paused {
		t.Fatal("park failure must not undo the pause")
	}
	if got := p.log(); !slices.Equal(got, []string{"pause", "park:40"}) {
		t.Fatalf("calls = %v", got)
	}
}

func TestTickResumesAfterWaitElapsed(t *testing.T) {
	f := &fakeFetcher{}
	p := &fakePrinter{}
	m := testManager(t, f, p)
	m.paused = true
	m.pausedAt = at(16, 0)
	m.window = outage.Window{Start: 16, End: 19}
	m.now = func() time.Time { return at(16, 11) }

	m.tick(context.Background())

	if got := p.log(); !slices.Equal(got, []string{"resume:200:60"}) {
		t.Fatalf("calls = %v, want a resume", got)
	}
	if m.paused {
		t.Fatal("still paused after successful resume")
	}
}

func TestTickHoldsPauseUntilWaitElapses(t *testing.T) {
	f := &fakeFetcher{}
	p := &fakePrinter{}
	m := testManager(t, f, p)
	m.paused = true
	m.pausedAt = at(16, 0)
	m.now = func() time.Time { return at(16, 5) }

	m.tick(context.Background())

	if got := p.log(); len(got) != 0 {
		t.Fatalf("calls = %v, want none before wait_after elapses", got)
	}
	if !m.paused {
		t.Fatal("pause dropped early")
	}
}

func TestTickRetriesFailedResume(t *testing.T) {
	f := &fakeFetcher{}
	p := &fakePrinter{resumeErr: errors.New("printer unpowered")}
	m := testManager(t, f, p)
	m.paused = true
	m.pausedAt = at(16, 0)
	m.now = func() time.Time { return at(16, 20) }

	m.tick(context.Background())
	if !m.paused {
		t.Fatal("failed resume must leave the pause in place")
	}

	p.resumeErr = nil
	m.tick(context.Background())
	if m.paused {
		t.Fatal("resume retry did not clear the pause")
	}
	want := []string{"resume:200:60", "resume:200:60"}
	if got := p.log(); !slices.Equal(got, want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
}

func TestRunOnceSummarizesSchedule(t *testing.T) {
	f := &fakeFetcher{sched: outage.Schedule{Today: []outage.Window{{Start: 16, End: 19}, {Start: 21, End: 22.5}}}}
	p := &fakePrinter{}
	m := testManager(t, f, p)
	m.now = func() time.Time { return at(10, 0) }

	var buf bytes.Buffer
	if err := m.RunOnce(context.Background(), &buf); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"PRINTER POWER MANAGER",
		"group 1.1: 2 definite outage windows",
		"16:00-19:00",
		"21:00-22:30",
		"no pause due right now",
		"check complete",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunOnceReportsPause(t *testing.T) {
	f := &fakeFetcher{sched: outage.Schedule{Today: []outage.Window{{Start: 16, End: 19}}}}
	p := &fakePrinter{}
	m := testManager(t, f, p)
	m.now = func() time.Time { return at(15, 56) }

	var buf bytes.Buffer
	if err := m.RunOnce(context.Background(), &buf); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !strings.Contains(buf.String(), "print paused for window 16:00-19:00") {
		t.Fatalf("output missing pause line:\n%s", buf.String())
	}
	if got := p.log(); !slices.Equal(got, []string{"pause", "park:40"}) {
		t.Fatalf("calls = %v", got)
	}
}

func TestRunOnceFetchFailure(t *testing.T) {
	f := &fakeFetcher{err: errors.New("feed unreachable")}
	m := testManager(t, f, &fakePrinter{})

	var buf bytes.Buffer
	err := m.RunOnce(context.Background(), &buf)
	if err == nil {
		t.Fatal("expected error when the schedule fetch fails")
	}
	if !strings.Contains(err.Error(), "fetch outage schedule") {
		t.Fatalf("error = %v", err)
	}
}

func TestTestPauseFullCycle(t *testing.T) {
	p := &fakePrinter{}
	m := testManager(t, &fakeFetcher{}, p)
	m.testWaitSec = 12

	var buf bytes.Buffer
	if err := m.TestPause(context.Background(), &buf); err != nil {
		t.Fatalf("TestPause: %v", err)
	}
	want := []string{"pause", "park:40", "resume:200:60"}
	if got := p.log(); !slices.Equal(got, want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	out := buf.String()
	for _, line := range []string{"10 seconds left", "5 seconds left", "1 seconds left", "resumed, test complete"} {
		if !strings.Contains(out, line) {
			t.Fatalf("output missing %q:\n%s", line, out)
		}
	}
	if strings.Contains(out, "7 seconds left") {
		t.Fatal("countdown printed a tick it should skip")
	}
}

func TestTestPauseAbortsWhenPauseFails(t *testing.T) {
	p := &fakePrinter{pauseErr: errors.New("no print active")}
	m := testManager(t, &fakeFetcher{}, p)
	m.testWaitSec = 3

	var buf bytes.Buffer
	if err := m.TestPause(context.Background(), &buf); err == nil {
		t.Fatal("expected pause failure to abort the test")
	}
	if got := p.log(); !slices.Equal(got, []string{"pause"}) {
		t.Fatalf("calls = %v, want the cycle cut short", got)
	}
}

func TestTestPauseAbortsWhenParkFails(t *testing.T) {
	p := &fakePrinter{parkErr: errors.New("heater fault")}
	m := testManager(t, &fakeFetcher{}, p)
	m.testWaitSec = 3

	var buf bytes.Buffer
	if err := m.TestPause(context.Background(), &buf); err == nil {
		t.Fatal("expected park failure to abort the test")
	}
	if got := p.log(); !slices.Equal(got, []string{"pause", "park:40"}) {
		t.Fatalf("calls = %v", got)
	}
}

func TestRunFetchesAtBoot(t *testing.T) {
	f := &fakeFetcher{}
	p := &fakePrinter{}
	m := testManager(t, f, p)
	m.now = func() time.Time { return at(12, 0) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for f.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
	if f.count() != 1 {
		t.Fatalf("fetches = %d, want exactly the boot fetch", f.count())
	}
	if got := p.log(); len(got) != 0 {
		t.Fatalf("calls = %v, want none with an empty schedule", got)
	}
}

func TestRunRetriesFailedFetch(t *testing.T) {
	f := &fakeFetcher{err: errors.New("feed unreachable")}
	m := testManager(t, f, &fakePrinter{})
	m.now = func() time.Time { return at(12, 0) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for f.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
	if f.count() < 3 {
		t.Fatalf("fetches = %d, want repeated retries while failing", f.count())
	}
}

func TestScheduleSnapshot(t *testing.T) {
	f := &fakeFetcher{}
	m := testManager(t, f, &fakePrinter{})
	fetchedAt := at(0, 5)
	m.schedule = outage.Schedule{
		Today:     []outage.Window{{Start: 16, End: 19}},
		Tomorrow:  []outage.Window{{Start: 2, End: 4}},
		FetchedAt: fetchedAt,
	}
	m.paused = true
	m.window = outage.Window{Start: 16, End: 19}

	view := m.ScheduleSnapshot()
	if view.Group != "1.1" {
		t.Fatalf("group = %q", view.Group)
	}
	if !view.FetchedAt.Equal(fetchedAt) {
		t.Fatalf("fetched_at = %v", view.FetchedAt)
	}
	if len(view.Today) != 1 || len(view.Tomorrow) != 1 {
		t.Fatalf("tables = %d/%d windows", len(view.Today), len(view.Tomorrow))
	}
	if !view.Paused || view.PausedFor != "16:00-19:00" {
		t.Fatalf("pause state = %v %q", view.Paused, view.PausedFor)
	}
}

func TestNextMidnight(t *testing.T) {
	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{at(13, 45), time.Date(2026, 1, 16, 0, 0, 0, 0, time.Local)},
		{at(23, 59), time.Date(2026, 1, 16, 0, 0, 0, 0, time.Local)},
		{time.Date(2026, 1, 31, 12, 0, 0, 0, time.Local), time.Date(2026, 2, 1, 0, 0, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		if got := nextMidnight(tt.now); !got.Equal(tt.want) {
			t.Errorf("nextMidnight(%v) = %v, want %v", tt.now, got, tt.want)
		}
	}
}

func TestNewDefaults(t *testing.T) {
	m := New(Config{Outages: &fakeFetcher{}, Printer: &fakePrinter{}})
	if m.interval != time.Minute {
		t.Fatalf("interval = %v", m.interval)
	}
	if m.waitAfter != 10*time.Minute {
		t.Fatalf("wait_after = %v", m.waitAfter)
	}
	if m.testWaitSec != 60 || m.parkDelay != time.Second {
		t.Fatalf("test timings = %d/%v", m.testWaitSec, m.parkDelay)
	}
}
