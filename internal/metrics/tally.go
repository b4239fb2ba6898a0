package metrics

import (
	"time"

	"github.com/NodePath81/tlsping/internal/probe"
)

// SummaryEvery is the number of attempts between cumulative summaries.
const SummaryEvery = 10

// Tally accumulates attempt outcomes for the lifetime of a run. Counters
// only grow.
type Tally struct {
	Successes uint64
	Failures  uint64
	BytesSent uint64
	BytesRead uint64
	// Retransmits sums TCP retransmits seen on completed connections.
	Retransmits uint64
	LastRTT     time.Duration
}

func (t *Tally) Attempts() uint64 {
	return t.Successes + t.Failures
}

// Record counts exactly one attempt, as a success or as a failure.
func (t *Tally) Record(res probe.Result) {
	if res.OK() {
		t.Successes++
	} else {
		t.Failures++
	}
	t.BytesSent += uint64(res.BytesSent)
	t.BytesRead += uint64(res.BytesRead)
	if res.TCP != nil {
		t.Retransmits += res.TCP.Retransmits
		t.LastRTT = res.TCP.RTT
	}
}

// SummaryDue reports whether a cumulative summary belongs before the next
// attempt.
func (t *Tally) SummaryDue() bool {
	n := t.Attempts()
	return n > 0 && n%SummaryEvery == 0
}
