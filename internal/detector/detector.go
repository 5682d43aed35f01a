package detector

import (
	"fmt"
	"os"

	"github.com/YoYoZ/powerswitch-Klipper/internal/pidfile"
)

// Detector reports whether the supervised worker is alive.
type Detector interface {
	// Alive returns true if the process is detected as running.
	Alive() (bool, error)
	// Describe returns a human-readable description of the detector.
	Describe() string
}

// PIDDetector probes a fixed PID.
type PIDDetector struct {
	PID int
}

func (d PIDDetector) Alive() (bool, error) {
	if d.PID <= 0 {
		return false, fmt.Errorf("invalid pid: %d", d.PID)
	}
	return Alive(d.PID), nil
}

func (d PIDDetector) Describe() string { return fmt.Sprintf("pid:%d", d.PID) }

// PIDFileDetector reads a PID record and probes the process it names.
// A missing record means not running, not an error.
type PIDFileDetector struct {
	Path string
}

func (d PIDFileDetector) Alive() (bool, error) {
	pid, err := pidfile.Read(d.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return Alive(pid), nil
}

func (d PIDFileDetector) Describe() string { return "pidfile:" + d.Path }
