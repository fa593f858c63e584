package grbl

import (
	"errors"
	"strings"
	"time"

	"github.com/banshee-data/tablecal/internal/monitoring"
	"github.com/banshee-data/tablecal/internal/serialport"
)

// AckOK is the reply GRBL sends once it has accepted a line.
const AckOK = "ok"

// Exchange is one request line and the reply it drew.
type Exchange struct {
	Seq      uint64
	Command  string
	Expected string
	Reply    string
	OK       bool
	Error    string
	SentAt   time.Time
	Elapsed  time.Duration
}

// Exchange writes line, reads exactly one reply line and reports whether it
// equals expected once surrounding whitespace is trimmed.
//
// Any other outcome (a different reply, an error code, a transport error or a
// read timeout) is logged, followed by the configured failure pause, and
// returned as a *CommandError. The line is never resent: a motion whose
// acknowledgment was lost may already be queued in the controller.
func (d *Driver) Exchange(line, expected string) error {
	sentAt := d.opts.Clock.Now()
	seq, err := d.send([]byte(line+"\n"), line)

	var reply string
	if err == nil {
		reply, err = d.readLine()
	}

	ex := Exchange{
		Seq:      seq,
		Command:  line,
		Expected: expected,
		Reply:    reply,
		OK:       err == nil && reply == expected,
		SentAt:   sentAt,
		Elapsed:  d.opts.Clock.Since(sentAt),
	}
	if err != nil {
		ex.Error = err.Error()
	}
	d.record(ex, err)

	if ex.OK {
		return nil
	}

	cerr := &CommandError{Seq: seq, Command: line, Expected: expected, Reply: reply, Err: err}
	if d.opts.FailurePause > 0 {
		d.logf("%v (%d bytes); pausing %s", cerr, len(reply), d.opts.FailurePause)
		d.opts.Clock.Sleep(d.opts.FailurePause)
	} else {
		d.logf("%v (%d bytes)", cerr, len(reply))
	}
	return cerr
}

// send writes raw bytes to the controller and counts them as one command.
// label is what command logging prints.
func (d *Driver) send(raw []byte, label string) (uint64, error) {
	d.seq++
	if d.opts.CommandLogging {
		d.logf("%5d: '%s'", d.seq, label)
	}

	n, err := d.port.Write(raw)
	if err != nil {
		return d.seq, err
	}
	if n != len(raw) {
		return d.seq, ErrWriteFailed
	}
	return d.seq, nil
}

// readLine blocks for one line from the controller and trims it. A partial
// line is returned alongside the error that cut it short.
func (d *Driver) readLine() (string, error) {
	s, err := d.r.ReadString('\n')
	return strings.TrimSpace(s), err
}

func (d *Driver) record(ex Exchange, err error) {
	switch {
	case ex.OK:
		monitoring.Exchanges.WithLabelValues(monitoring.OutcomeOK).Inc()
	case errors.Is(err, serialport.ErrReadTimeout):
		monitoring.Exchanges.WithLabelValues(monitoring.OutcomeTimeout).Inc()
	default:
		monitoring.Exchanges.WithLabelValues(monitoring.OutcomeError).Inc()
	}

	if d.opts.Journal == nil {
		return
	}
	if jerr := d.opts.Journal.RecordExchange(ex); jerr != nil {
		d.logf("failed to journal command %d: %v", ex.Seq, jerr)
	}
}
