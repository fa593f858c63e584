// Package grblsim is an in-process stand-in for a GRBL 1.1 controller. It
// speaks the line protocol the grbl driver expects: startup lines after
// every reset, one reply per line, an alarm lock until homing, and machine
// position tracking for G0/G1 moves in G54 or G55.
package grblsim

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/256dpi/gcode"
)

const (
	Banner      = "Grbl 1.1f ['$' for help]"
	LockMessage = "[MSG:'$H'|'$X' to unlock]"
	StaleBanner = "Grbl 0.9j ['$' for help]"
)

// GRBL error codes the simulator produces.
const (
	ErrBadNumberFormat  = 2
	ErrInvalidStatement = 3
	ErrLocked           = 9
	ErrUnsupportedCode  = 20
	ErrUndefinedFeed    = 22
)

// Limits is the machine travel enforced as a soft limit, in machine
// coordinates. A zero Limits disables soft limits.
type Limits struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

func (l Limits) enabled() bool { return l != (Limits{}) }

func (l Limits) contains(p Position) bool {
	return p.X >= l.MinX && p.X <= l.MaxX &&
		p.Y >= l.MinY && p.Y <= l.MaxY &&
		p.Z >= l.MinZ && p.Z <= l.MaxZ
}

// Options configures a Sim.
type Options struct {
	// BadBanners is how many startups print StaleBanner before the real one.
	BadBanners int

	// Limits enables soft limits when non-zero.
	Limits Limits

	// ReadTimeout is how long Read waits for output before returning
	// (0, nil). Zero returns immediately.
	ReadTimeout time.Duration

	// Logf, when set, receives every line in and out.
	Logf func(format string, v ...interface{})
}

// Position is a point in millimetres.
type Position struct {
	X, Y, Z float64
}

// Sim is a simulated controller. It is safe for one reader and one writer
// running concurrently.
type Sim struct {
	opts Options

	mu      sync.Mutex
	out     bytes.Buffer
	partial []byte
	notify  chan struct{}
	closed  bool

	badBanners int
	locked     bool
	mpos       Position
	g55        Position
	useG55     bool
	feed       float64

	received int
	lines    []string
	resets   int
	script   map[int]*string
}

// New returns a simulator that has just powered up: the startup lines are
// already waiting to be read.
func New(opts Options) *Sim {
	s := &Sim{
		opts:       opts,
		notify:     make(chan struct{}, 1),
		badBanners: opts.BadBanners,
		script:     make(map[int]*string),
	}
	s.mu.Lock()
	s.startup()
	s.mu.Unlock()
	return s
}

// FailLine makes the n-th received line (counting from 1) answer reply
// instead of being executed.
func (s *Sim) FailLine(n int, reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script[n] = &reply
}

// SilenceLine makes the n-th received line go unanswered.
func (s *Sim) SilenceLine(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script[n] = nil
}

// Lines returns every complete line received so far.
func (s *Sim) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// Resets returns how many soft resets were received.
func (s *Sim) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

// MachinePosition returns the position in machine coordinates.
func (s *Sim) MachinePosition() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mpos
}

// WorkPosition returns the position in the active work frame.
func (s *Sim) WorkPosition() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workPosition()
}

// Locked reports whether the controller is in its alarm lock.
func (s *Sim) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// SetReadTimeout changes how long Read waits for output.
func (s *Sim) SetReadTimeout(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.ReadTimeout = timeout
	return nil
}

// Read returns pending output. With nothing pending it waits up to the read
// timeout and then returns (0, nil), like a serial port.
func (s *Sim) Read(p []byte) (int, error) {
	s.mu.Lock()
	timeout := s.opts.ReadTimeout
	s.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		s.mu.Lock()
		if s.out.Len() > 0 {
			n, _ := s.out.Read(p)
			s.mu.Unlock()
			return n, nil
		}
		if s.closed {
			s.mu.Unlock()
			return 0, io.EOF
		}
		s.mu.Unlock()

		if expired == nil {
			return 0, nil
		}
		select {
		case <-s.notify:
		case <-expired:
			return 0, nil
		}
	}
}

// Write feeds bytes to the controller. Realtime bytes act immediately;
// everything else is buffered until a newline completes the line.
func (s *Sim) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, io.ErrClosedPipe
	}
	for _, ch := range p {
		switch ch {
		case 0x18:
			s.softReset()
		case '?':
			s.statusReport()
		case '\r':
		case '\n':
			line := strings.TrimSpace(string(s.partial))
			s.partial = s.partial[:0]
			if line != "" {
				s.receive(line)
			}
		default:
			s.partial = append(s.partial, ch)
		}
	}
	return len(p), nil
}

// Close stops the simulator. Pending output can still be read.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.wake()
	return nil
}

func (s *Sim) logf(format string, v ...interface{}) {
	if s.opts.Logf != nil {
		s.opts.Logf(format, v...)
	}
}

func (s *Sim) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Sim) reply(line string) {
	s.logf("< %s", line)
	s.out.WriteString(line + "\r\n")
	s.wake()
}

func (s *Sim) startup() {
	banner := Banner
	if s.badBanners > 0 {
		banner = StaleBanner
		s.badBanners--
	}
	s.reply("")
	s.reply(banner)
	s.reply(LockMessage)
	s.locked = true
}

// softReset drops any half-received line and restarts. Machine position
// survives a reset; the feed rate does not.
func (s *Sim) softReset() {
	s.logf("> ^X")
	s.resets++
	s.partial = s.partial[:0]
	s.feed = 0
	s.startup()
}

func (s *Sim) statusReport() {
	state := "Idle"
	if s.locked {
		state = "Alarm"
	}
	s.reply(fmt.Sprintf("<%s|MPos:%.3f,%.3f,%.3f|FS:0,0>", state, s.mpos.X, s.mpos.Y, s.mpos.Z))
}

func (s *Sim) receive(line string) {
	s.logf("> %s", line)
	s.received++
	s.lines = append(s.lines, line)

	if scripted, ok := s.script[s.received]; ok {
		if scripted != nil {
			s.reply(*scripted)
		}
		return
	}
	s.reply(s.execute(line))
}

func errorReply(code int) string { return fmt.Sprintf("error:%d", code) }

func (s *Sim) execute(line string) string {
	if strings.HasPrefix(line, "$") {
		return s.system(line)
	}
	if s.locked {
		return errorReply(ErrLocked)
	}

	gc, err := gcode.ParseLine(line)
	if err != nil {
		return errorReply(ErrBadNumberFormat)
	}

	g, l, p := -1.0, -1.0, -1.0
	feed := s.feed
	words := make(map[string]float64)
	for _, code := range gc.Codes {
		switch code.Letter {
		case "G":
			g = code.Value
		case "L":
			l = code.Value
		case "P":
			p = code.Value
		case "F":
			feed = code.Value
		case "X", "Y", "Z":
			words[code.Letter] = code.Value
		case "":
		default:
			return errorReply(ErrUnsupportedCode)
		}
	}

	switch g {
	case 0, 1:
		if g == 1 && feed <= 0 {
			return errorReply(ErrUndefinedFeed)
		}
		return s.move(words, feed)
	case 10:
		if l != 20 || p != 2 {
			return errorReply(ErrUnsupportedCode)
		}
		// G10 L20 sets the offset so the current position reads as the given values.
		s.g55 = s.mpos
		for axis, v := range words {
			switch axis {
			case "X":
				s.g55.X = s.mpos.X - v
			case "Y":
				s.g55.Y = s.mpos.Y - v
			case "Z":
				s.g55.Z = s.mpos.Z - v
			}
		}
		return "ok"
	case 54:
		s.useG55 = false
		return "ok"
	case 55:
		s.useG55 = true
		return "ok"
	default:
		return errorReply(ErrUnsupportedCode)
	}
}

func (s *Sim) system(line string) string {
	switch line {
	case "$H":
		s.mpos = Position{}
		s.locked = false
		return "ok"
	case "$X":
		s.locked = false
		return "ok"
	default:
		return errorReply(ErrInvalidStatement)
	}
}

func (s *Sim) move(words map[string]float64, feed float64) string {
	offset := s.offset()
	target := s.mpos
	if v, ok := words["X"]; ok {
		target.X = v + offset.X
	}
	if v, ok := words["Y"]; ok {
		target.Y = v + offset.Y
	}
	if v, ok := words["Z"]; ok {
		target.Z = v + offset.Z
	}

	if s.opts.Limits.enabled() && !s.opts.Limits.contains(target) {
		s.locked = true
		return "ALARM:2"
	}
	s.mpos = target
	s.feed = feed
	return "ok"
}

func (s *Sim) offset() Position {
	if s.useG55 {
		return s.g55
	}
	return Position{}
}

func (s *Sim) workPosition() Position {
	o := s.offset()
	return Position{X: s.mpos.X - o.X, Y: s.mpos.Y - o.Y, Z: s.mpos.Z - o.Z}
}
