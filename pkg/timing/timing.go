// Package timing measures the wall-clock cost of the steps that make up a
// database operation, so commands can report where a query spent its time.
package timing

import (
	"fmt"
	"strings"
	"time"
)

// Phase contains the measured duration of one named step
type Phase struct {
	Name       string
	DurationMs int64
	Error      error
}

// Success returns true if the step completed without error
func (p *Phase) Success() bool {
	return p.Error == nil
}

// String returns a human-readable summary of the phase
func (p *Phase) String() string {
	status := "ok"
	if !p.Success() {
		status = fmt.Sprintf("failed: %v", p.Error)
	}

	return fmt.Sprintf("%s: %s (%.3fs)",
		p.Name,
		status,
		float64(p.DurationMs)/1000.0,
	)
}

// Stopwatch accumulates the named phases of a multi-step operation
type Stopwatch struct {
	phases []Phase
}

// Time runs fn and records its duration under the given name with
// millisecond precision. The error returned by fn is passed through.
func (sw *Stopwatch) Time(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	duration := time.Since(start)

	sw.phases = append(sw.phases, Phase{
		Name:       name,
		DurationMs: duration.Milliseconds(),
		Error:      err,
	})
	return err
}

// Phases returns the recorded phases in execution order
func (sw *Stopwatch) Phases() []Phase {
	return sw.phases
}

// TotalMs returns the summed duration of all recorded phases
func (sw *Stopwatch) TotalMs() int64 {
	var total int64
	for _, p := range sw.phases {
		total += p.DurationMs
	}
	return total
}

// String returns a one-line summary of all recorded phases
func (sw *Stopwatch) String() string {
	if len(sw.phases) == 0 {
		return "no phases recorded"
	}

	parts := make([]string, len(sw.phases))
	for i, p := range sw.phases {
		parts[i] = fmt.Sprintf("%s %.3fs", p.Name, float64(p.DurationMs)/1000.0)
	}

	return fmt.Sprintf("%s (total %.3fs)",
		strings.Join(parts, ", "),
		float64(sw.TotalMs())/1000.0,
	)
}
