package powerswitch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func requireUnix(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like environment")
	}
}

func TestSupervisorFacadeStartStatusStop(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	s := New(Spec{
		Command:   "sleep 30",
		PIDFile:   filepath.Join(dir, "worker.pid"),
		LogFile:   filepath.Join(dir, "worker.log"),
		Settle:    200 * time.Millisecond,
		StopPoll:  50 * time.Millisecond,
		StopPolls: 4,
	})
	t.Cleanup(func() { _, _ = s.Stop(context.Background()) })

	pid, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if pid <= 0 {
		t.Fatalf("pid = %d", pid)
	}

	st, err := s.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.State != StateRunning || st.PID != pid {
		t.Fatalf("status = %+v", st)
	}

	res, err := s.Stop(context.Background())
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if res.Outcome != StopGraceful && res.Outcome != StopForced {
		t.Fatalf("stop outcome = %v", res.Outcome)
	}
}

func TestJournalFacadeRecordsEvents(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewJournalSink("sqlite://" + filepath.Join(dir, "journal.db"))
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	type closer interface{ Close() error }
	if cl, ok := sink.(closer); ok {
		defer func() { _ = cl.Close() }()
	}

	rec := NewJournalRecorder(sink)
	rec.Record(context.Background(), EventStarted, 1234, "facade test")

	if _, err := os.Stat(filepath.Join(dir, "journal.db")); err != nil {
		t.Fatalf("journal database missing: %v", err)
	}
}

func TestPowerManagerFacadeSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"2.1": {"today": {"slots": []}, "tomorrow": {"slots": []}}}`))
	}))
	defer server.Close()

	outages := NewOutageClient(OutageConfig{APIURL: server.URL, Group: "2.1"})
	m := NewPowerManager(PowerManagerConfig{
		Outages: outages,
		Temps:   PowerManagerTemps{Extruder: 200, Bed: 60, Park: 40},
	})

	view := m.ScheduleSnapshot()
	if view.Group != "2.1" {
		t.Fatalf("group = %q", view.Group)
	}
	if view.Paused {
		t.Fatal("fresh manager must not report paused")
	}
}

func TestOutageClientFacadeFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"1.1": {"today": {"slots": [{"start": 960, "end": 1140, "type": "Definite"}]}, "tomorrow": {"slots": []}}}`))
	}))
	defer server.Close()

	c := NewOutageClient(OutageConfig{APIURL: server.URL, Group: "1.1"})
	sched, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(sched.Today) != 1 || sched.Today[0].Label() != "16:00-19:00" {
		t.Fatalf("schedule = %+v", sched)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Outage.Group != "1.1" {
		t.Fatalf("group = %q", cfg.Outage.Group)
	}
	if cfg.Temps.Extruder != 200 {
		t.Fatalf("extruder = %d", cfg.Temps.Extruder)
	}
}

func TestRegisterMetricsDefaultIdempotent(t *testing.T) {
	if err := RegisterMetricsDefault(); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := RegisterMetricsDefault(); err != nil {
		t.Fatalf("second register: %v", err)
	}
}
