// Package console renders probe progress for a human watching a terminal.
package console

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/NodePath81/tlsping/internal/metrics"
	"github.com/NodePath81/tlsping/internal/probe"
	"github.com/NodePath81/tlsping/internal/util"
)

const timestampLayout = "2006-01-02T15:04:05"

type Console struct {
	out   io.Writer
	gray  *color.Color
	green *color.Color
	red   *color.Color
	white *color.Color
}

// New returns a Console writing to out. Colors follow fatih/color's
// terminal detection unless noColor forces them off.
func New(out io.Writer, noColor bool) *Console {
	c := &Console{
		out:   out,
		gray:  color.New(color.FgHiBlack),
		green: color.New(color.FgGreen),
		red:   color.New(color.FgRed),
		white: color.New(color.FgWhite),
	}
	if noColor {
		for _, col := range []*color.Color{c.gray, c.green, c.red, c.white} {
			col.DisableColor()
		}
	}
	return c
}

func (c *Console) Banner(lines []string) {
	for _, line := range lines {
		fmt.Fprintln(c.out, line)
	}
}

// Tally prints the cumulative success and failure counts.
func (c *Console) Tally(t metrics.Tally) {
	c.writeTally(t.Successes, t.Failures)
	fmt.Fprintln(c.out, " Hit Ctrl+C to quit any time.")
}

func (c *Console) writeTally(successes, failures uint64) {
	c.green.Fprint(c.out, util.FormatCount(int64(successes)))
	fmt.Fprint(c.out, " successful connections, ")
	failColor := c.red
	if failures == 0 {
		failColor = c.white
	}
	failColor.Fprint(c.out, util.FormatCount(int64(failures)))
	fmt.Fprint(c.out, " failed connections.")
}

// AttemptStart is printed before any network activity, so a hanging
// attempt is visible while it hangs.
func (c *Console) AttemptStart(now time.Time) {
	c.gray.Fprintf(c.out, "%s Connect: ", now.UTC().Format(timestampLayout))
}

func (c *Console) Success(res probe.Result) {
	c.green.Fprintf(c.out, "Success! %sms, %s bytes read\n",
		util.FormatCount(res.Elapsed.Milliseconds()), util.FormatCount(res.BytesRead))
}

func (c *Console) Failure(res probe.Result) {
	c.red.Fprintf(c.out, "Failed! %sms; connected: %t; TLS: %t\n",
		util.FormatCount(res.Elapsed.Milliseconds()), res.Connected(), res.TLSEstablished())
	fmt.Fprintln(c.out, res.Err)
}

// Interrupted terminates an attempt line left open by AttemptStart.
func (c *Console) Interrupted() {
	fmt.Fprintln(c.out, "interrupted")
}
