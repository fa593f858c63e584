package grbl

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfEnvelope marks a target rejected before any traffic was sent.
	ErrOutOfEnvelope = errors.New("target outside travel envelope")

	// ErrFeedRate marks a feed rate rejected before any traffic was sent.
	ErrFeedRate = errors.New("feed rate out of range")

	// ErrUnacknowledged marks a command whose reply was not the expected
	// acknowledgment. The machine position is unknown afterwards.
	ErrUnacknowledged = errors.New("command not acknowledged")

	// ErrHandshake marks a startup handshake that gave up.
	ErrHandshake = errors.New("controller handshake not achieved")

	// ErrWriteFailed is reported when the port accepted fewer bytes than sent.
	ErrWriteFailed = errors.New("failed to write to serial port")
)

// EnvelopeError describes a coordinate outside the travel envelope.
type EnvelopeError struct {
	Axis     Axis
	Value    float64
	Min, Max float64
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("%s %.3f outside [%.3f, %.3f]: %v", e.Axis, e.Value, e.Min, e.Max, ErrOutOfEnvelope)
}

func (e *EnvelopeError) Unwrap() error { return ErrOutOfEnvelope }

// FeedRateError describes a feed rate outside the configured limits.
type FeedRateError struct {
	Feed     float64
	Min, Max float64
}

func (e *FeedRateError) Error() string {
	return fmt.Sprintf("feed %.3f mm/s outside [%g, %g]: %v", e.Feed, e.Min, e.Max, ErrFeedRate)
}

func (e *FeedRateError) Unwrap() error { return ErrFeedRate }

// CommandError is returned when the controller did not acknowledge a line.
// Err carries the transport error, if the reply never arrived.
type CommandError struct {
	Seq      uint64
	Command  string
	Expected string
	Reply    string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %d %q: expected %q, got %q", e.Seq, e.Command, e.Expected, e.Reply)
	if desc := DescribeReply(e.Reply); desc != "" {
		msg += " (" + desc + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CommandError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUnacknowledged, e.Err}
	}
	return []error{ErrUnacknowledged}
}

// HandshakeError is returned by a bounded Synchronize that never saw the
// expected startup lines.
type HandshakeError struct {
	Attempts    int
	Banner      string
	LockMessage string
	Err         error
}

func (e *HandshakeError) Error() string {
	msg := fmt.Sprintf("%v after %d attempt(s): last banner %q, last message %q", ErrHandshake, e.Attempts, e.Banner, e.LockMessage)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *HandshakeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrHandshake, e.Err}
	}
	return []error{ErrHandshake}
}
