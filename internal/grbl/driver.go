// Package grbl drives a GRBL 1.1 motion controller over an already-open
// serial link.
//
// A Driver owns the link, the believed tool position and the command counter.
// Every request is one line out and one line back: the position only changes
// after the controller acknowledges the line with "ok". The Driver is not safe
// for concurrent use; callers that share one must serialize their calls.
package grbl

import (
	"bufio"
	"io"
	"time"

	"github.com/banshee-data/tablecal/internal/monitoring"
	"github.com/banshee-data/tablecal/internal/timeutil"
)

const (
	// DefaultFailurePause gives an operator time to look at the machine
	// before a failed command is reported.
	DefaultFailurePause = 5 * time.Second

	DefaultMinFeed = 1.0
	DefaultMaxFeed = 1000.0
)

// Journal receives every protocol exchange, in order. The driver logs and
// otherwise ignores journal errors.
type Journal interface {
	RecordExchange(Exchange) error
}

// Options configures a Driver. Zero values select the defaults.
type Options struct {
	Envelope Envelope

	// Feed rate limits for linear moves, in mm/s. DefaultFeed is used when a
	// move is requested with a zero feed.
	MinFeed     float64
	MaxFeed     float64
	DefaultFeed float64

	// FailurePause is slept after an unacknowledged command. Zero selects
	// DefaultFailurePause; a negative value disables the pause.
	FailurePause time.Duration

	// CommandLogging logs every outgoing line with its sequence number.
	CommandLogging bool

	Sync        SyncPolicy
	Compensator Compensator
	Clock       timeutil.Clock
	Journal     Journal
	Logf        func(format string, v ...interface{})
}

// DefaultOptions returns the options of the reference machine.
func DefaultOptions() Options {
	return Options{
		Envelope:     DefaultEnvelope(),
		MinFeed:      DefaultMinFeed,
		MaxFeed:      DefaultMaxFeed,
		DefaultFeed:  DefaultMaxFeed,
		FailurePause: DefaultFailurePause,
		Sync:         DefaultSyncPolicy(),
		Compensator:  Jiggle{Step: DefaultStep, Iterations: 1},
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Envelope == (Envelope{}) {
		o.Envelope = def.Envelope
	}
	if o.MinFeed == 0 {
		o.MinFeed = def.MinFeed
	}
	if o.MaxFeed == 0 {
		o.MaxFeed = def.MaxFeed
	}
	if o.DefaultFeed == 0 {
		o.DefaultFeed = o.MaxFeed
	}
	if o.FailurePause == 0 {
		o.FailurePause = def.FailurePause
	}
	o.Sync = o.Sync.withDefaults()
	if o.Compensator == nil {
		o.Compensator = def.Compensator
	}
	if o.Clock == nil {
		o.Clock = timeutil.RealClock{}
	}
	if o.Logf == nil {
		o.Logf = monitoring.Prefixed("")
	}
	return o
}

// Driver is a session with one controller.
type Driver struct {
	port io.ReadWriter
	r    *bufio.Reader
	opts Options

	pos Position
	seq uint64
}

// New returns a Driver talking over port. The position starts at the origin,
// which is an assumption until the machine has been homed and zeroed.
func New(port io.ReadWriter, opts Options) *Driver {
	return &Driver{
		port: port,
		r:    bufio.NewReader(port),
		opts: opts.withDefaults(),
	}
}

// Position returns the last acknowledged tool position.
func (d *Driver) Position() Position { return d.pos }

// Commands returns how many lines (and reset bytes) have been written.
func (d *Driver) Commands() uint64 { return d.seq }

// Envelope returns the travel envelope the driver enforces.
func (d *Driver) Envelope() Envelope { return d.opts.Envelope }

func (d *Driver) logf(format string, v ...interface{}) {
	d.opts.Logf(format, v...)
}

func (d *Driver) publishPosition() {
	monitoring.Position.WithLabelValues("x").Set(d.pos.X)
	monitoring.Position.WithLabelValues("y").Set(d.pos.Y)
	monitoring.Position.WithLabelValues("z").Set(d.pos.Z)
}
