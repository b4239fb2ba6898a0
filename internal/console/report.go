package console

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NodePath81/tlsping/internal/metrics"
)

const (
	FormatText = "text"
	FormatYAML = "yaml"
)

// Report is the final summary printed when a run stops.
type Report struct {
	RunID       string `yaml:"run_id"`
	Target      string `yaml:"target"`
	Protocol    string `yaml:"protocol"`
	StartedAt   string `yaml:"started_at"`
	Duration    string `yaml:"duration"`
	Attempts    uint64 `yaml:"attempts"`
	Successes   uint64 `yaml:"successes"`
	Failures    uint64 `yaml:"failures"`
	BytesSent   uint64 `yaml:"bytes_sent"`
	BytesRead   uint64 `yaml:"bytes_read"`
	Retransmits uint64 `yaml:"tcp_retransmits"`
	LastRTT     string `yaml:"last_rtt,omitempty"`
}

func NewReport(runID, target, protocol string, started time.Time, elapsed time.Duration, t metrics.Tally) Report {
	r := Report{
		RunID:       runID,
		Target:      target,
		Protocol:    protocol,
		StartedAt:   started.UTC().Format(time.RFC3339),
		Duration:    elapsed.Round(time.Millisecond).String(),
		Attempts:    t.Attempts(),
		Successes:   t.Successes,
		Failures:    t.Failures,
		BytesSent:   t.BytesSent,
		BytesRead:   t.BytesRead,
		Retransmits: t.Retransmits,
	}
	if t.LastRTT > 0 {
		r.LastRTT = t.LastRTT.String()
	}
	return r
}

func ValidFormat(format string) bool {
	return format == FormatText || format == FormatYAML
}

// Report prints the final summary in the requested format.
func (c *Console) Report(r Report, format string) error {
	if format == FormatYAML {
		enc := yaml.NewEncoder(c.out)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		return enc.Close()
	}
	c.writeTally(r.Successes, r.Failures)
	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "Stopped after %s (run %s).\n", r.Duration, r.RunID)
	return nil
}
