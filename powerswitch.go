package powerswitch

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/YoYoZ/powerswitch-Klipper/internal/config"
	"github.com/YoYoZ/powerswitch-Klipper/internal/journal"
	"github.com/YoYoZ/powerswitch-Klipper/internal/journal/factory"
	"github.com/YoYoZ/powerswitch-Klipper/internal/logger"
	"github.com/YoYoZ/powerswitch-Klipper/internal/metrics"
	"github.com/YoYoZ/powerswitch-Klipper/internal/outage"
	"github.com/YoYoZ/powerswitch-Klipper/internal/powerman"
	"github.com/YoYoZ/powerswitch-Klipper/internal/supervisor"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Spec = supervisor.Spec

type Status = supervisor.Status

type State = supervisor.State

const (
	StateNotRunning = supervisor.StateNotRunning
	StateRunning    = supervisor.StateRunning
	StateStale      = supervisor.StateStale
)

type StopResult = supervisor.StopResult

type StopOutcome = supervisor.StopOutcome

const (
	StopNotRunning     = supervisor.StopNotRunning
	StopReclaimedStale = supervisor.StopReclaimedStale
	StopGraceful       = supervisor.StopGraceful
	StopForced         = supervisor.StopForced
)

type StartFailedError = supervisor.StartFailedError

var ErrAlreadyRunning = supervisor.ErrAlreadyRunning

// Supervisor is a thin facade over internal/supervisor.Supervisor.
// It provides a stable public API for embedding.

type Supervisor struct{ inner *supervisor.Supervisor }

func New(spec Spec) *Supervisor { return &Supervisor{inner: supervisor.New(spec)} }

func (s *Supervisor) Spec() Spec { return s.inner.Spec() }

func (s *Supervisor) Status(ctx context.Context) (Status, error) {
	return s.inner.Status(ctx)
}

func (s *Supervisor) Start(ctx context.Context) (int, error) {
	return s.inner.Start(ctx)
}

func (s *Supervisor) Stop(ctx context.Context) (StopResult, error) {
	return s.inner.Stop(ctx)
}

func (s *Supervisor) Restart(ctx context.Context) (int, error) {
	return s.inner.Restart(ctx)
}

func (s *Supervisor) Diagnose(mode string) error { return s.inner.Diagnose(mode) }

func (s *Supervisor) SetJournal(rec *JournalRecorder) { s.inner.SetJournal(rec) }

// Journal facade

type JournalSink = journal.Sink

type JournalRecorder = journal.Recorder

type JournalEventType = journal.EventType

const (
	EventStarted        = journal.EventStarted
	EventStartFailed    = journal.EventStartFailed
	EventStopped        = journal.EventStopped
	EventKilled         = journal.EventKilled
	EventStaleReclaimed = journal.EventStaleReclaimed
)

// NewJournalSink builds a sink from a DSN such as "sqlite:///var/lib/ps.db",
// "postgres://...", "clickhouse://..." or "opensearch://...".
func NewJournalSink(dsn string) (JournalSink, error) { return factory.NewSinkFromDSN(dsn) }

func NewJournalRecorder(sink JournalSink) *JournalRecorder { return journal.NewRecorder(sink) }

// Power manager facade

type PowerManagerConfig = powerman.Config

type PowerManagerTemps = powerman.Temps

type ScheduleView = powerman.ScheduleView

type PowerManager struct{ inner *powerman.Manager }

func NewPowerManager(cfg PowerManagerConfig) *PowerManager {
	return &PowerManager{inner: powerman.New(cfg)}
}

func (m *PowerManager) Run(ctx context.Context) { m.inner.Run(ctx) }

func (m *PowerManager) RunOnce(ctx context.Context, w io.Writer) error {
	return m.inner.RunOnce(ctx, w)
}

func (m *PowerManager) TestPause(ctx context.Context, w io.Writer) error {
	return m.inner.TestPause(ctx, w)
}

func (m *PowerManager) ScheduleSnapshot() ScheduleView { return m.inner.ScheduleSnapshot() }

// Outage feed facade

type OutageConfig = outage.Config

type OutageClient = outage.Client

type OutageSchedule = outage.Schedule

type OutageWindow = outage.Window

func NewOutageClient(cfg OutageConfig) *OutageClient { return outage.New(cfg) }

// Config facade

type Config = config.Config

func LoadConfig(path string) (Config, error) { return config.Load(path) }

// Logging facade

type LoggerConfig = logger.Config

// SetupLogging installs the process-wide slog default the same way the
// shipped binaries do.
func SetupLogging(c LoggerConfig) { logger.Setup(c) }

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }

func RegisterMetricsDefault() error { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the
// default registry. It returns any immediate listen error; otherwise it runs
// the server in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
