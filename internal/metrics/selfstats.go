package metrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v4/process"
)

const defaultSampleInterval = 15 * time.Second

// SelfStats samples the daemon's own CPU and memory on a fixed interval so
// the observe endpoint can answer whether powermand itself is healthy.
type SelfStats struct {
	interval time.Duration
	proc     *process.Process
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	cpuPercent prometheus.Gauge
	rssBytes   prometheus.Gauge
}

// NewSelfStats creates a sampler bound to the current process.
func NewSelfStats(interval time.Duration) (*SelfStats, error) {
	if interval <= 0 {
		interval = defaultSampleInterval
	}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("open own process: %w", err)
	}
	return &SelfStats{
		interval: interval,
		proc:     p,
		stopCh:   make(chan struct{}),
		cpuPercent: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "powermand",
				Subsystem: "self",
				Name:      "cpu_percent",
				Help:      "CPU usage percentage of the daemon process.",
			},
		),
		rssBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "powermand",
				Subsystem: "self",
				Name:      "memory_rss_bytes",
				Help:      "Resident set size of the daemon process.",
			},
		),
	}, nil
}

// Register registers the sampler's gauges with the provided registerer.
func (s *SelfStats) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{s.cpuPercent, s.rssBytes} {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// Start begins periodic sampling until ctx is done or Stop is called.
func (s *SelfStats) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.sample()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.sample()
			}
		}
	}()
}

// Stop halts sampling and waits for the collection goroutine to exit.
func (s *SelfStats) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *SelfStats) sample() {
	if cpu, err := s.proc.CPUPercent(); err == nil {
		s.cpuPercent.Set(cpu)
	}
	if mi, err := s.proc.MemoryInfo(); err == nil && mi != nil {
		s.rssBytes.Set(float64(mi.RSS))
	}
}
