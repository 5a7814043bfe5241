// Package observ times the engine's coarse phases so the CLI can report
// where a build or range pass spent its time.
package observ

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Span is one timed phase, opened by Timer.Begin and closed by Done. A
// span left open reports its live elapsed time instead.
type Span struct {
	Name  string
	Note  string
	start time.Time
	dur   time.Duration
	done  bool
}

// Done closes the span, recording its duration and an optional note.
// Closing twice keeps the first measurement.
func (sp *Span) Done(note string) {
	if sp.done {
		return
	}
	sp.dur = time.Since(sp.start)
	sp.Note = note
	sp.done = true
}

// Duration returns the span's elapsed time.
func (sp *Span) Duration() time.Duration {
	if !sp.done {
		return time.Since(sp.start)
	}
	return sp.dur
}

// Timer collects spans in the order they were begun.
type Timer struct {
	spans []*Span
}

// NewTimer creates an empty Timer.
func NewTimer() *Timer { return &Timer{} }

// Begin opens a named span.
func (t *Timer) Begin(name string) *Span {
	sp := &Span{Name: name, start: time.Now()}
	t.spans = append(t.spans, sp)
	return sp
}

// Summary renders every span and the total as an aligned block.
func (t *Timer) Summary() string {
	var b strings.Builder
	b.WriteString("timings:\n")
	var total time.Duration
	for _, sp := range t.spans {
		d := sp.Duration()
		total += d
		fmt.Fprintf(&b, "  %-12s %8.2f ms", sp.Name, millis(d))
		if sp.Note != "" {
			b.WriteString("  " + sp.Note)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  %-12s %8.2f ms\n", "total", millis(total))
	return b.String()
}

// Log emits one debug event per span.
func (t *Timer) Log(log zerolog.Logger) {
	for _, sp := range t.spans {
		log.Debug().Str("phase", sp.Name).Dur("took", sp.Duration()).Str("note", sp.Note).Msg("phase finished")
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
