package grbl

import (
	"fmt"
	"time"

	"github.com/banshee-data/tablecal/internal/monitoring"
)

const (
	// DefaultBanner is the second line GRBL 1.1f prints after a reset.
	DefaultBanner = "Grbl 1.1f ['$' for help]"

	// DefaultLockMessage is printed after the banner when homing is enabled
	// and the machine has not been homed yet.
	DefaultLockMessage = "[MSG:'$H'|'$X' to unlock]"

	// SoftReset is the realtime byte that restarts GRBL (ctrl-x).
	SoftReset byte = 0x18
)

// SyncPolicy controls the startup handshake.
type SyncPolicy struct {
	Banner      string
	LockMessage string

	// MaxAttempts bounds the number of three-line reads. Zero retries
	// forever, which suits unattended power-on where the controller may
	// still be booting.
	MaxAttempts int

	// ResetWait is slept after each soft reset.
	ResetWait time.Duration

	// LineDelay is slept before each startup line is read.
	LineDelay time.Duration
}

// DefaultSyncPolicy returns an unbounded policy expecting GRBL 1.1f.
func DefaultSyncPolicy() SyncPolicy {
	return SyncPolicy{
		Banner:      DefaultBanner,
		LockMessage: DefaultLockMessage,
		ResetWait:   time.Second,
		LineDelay:   10 * time.Millisecond,
	}
}

func (p SyncPolicy) withDefaults() SyncPolicy {
	def := DefaultSyncPolicy()
	if p.Banner == "" {
		p.Banner = def.Banner
	}
	if p.LockMessage == "" {
		p.LockMessage = def.LockMessage
	}
	if p.ResetWait == 0 {
		p.ResetWait = def.ResetWait
	}
	if p.LineDelay == 0 {
		p.LineDelay = def.LineDelay
	}
	return p
}

// Synchronize reads the three lines GRBL prints after opening the port: a
// blank line, the firmware banner and the unlock message. Until both the
// banner and the message match the policy it sends a soft reset, waits and
// reads again. On success the controller is freshly reset and waiting to be
// homed; the driver position is still the unverified origin.
func (d *Driver) Synchronize() error {
	p := d.opts.Sync
	for attempt := 1; ; attempt++ {
		lines, err := d.readStartup()
		if err == nil && lines[1] == p.Banner && lines[2] == p.LockMessage {
			d.logf("controller ready after %d attempt(s): %s", attempt, lines[1])
			return nil
		}
		if err != nil {
			d.logf("startup read %d failed: %v", attempt, err)
		}

		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return &HandshakeError{
				Attempts:    attempt,
				Banner:      lines[1],
				LockMessage: lines[2],
				Err:         err,
			}
		}

		if _, err := d.send([]byte{SoftReset}, "^X"); err != nil {
			return fmt.Errorf("failed to send soft reset: %w", err)
		}
		monitoring.SoftResets.Inc()
		d.opts.Clock.Sleep(p.ResetWait)

		// Anything read ahead before the reset belongs to the old session.
		d.r.Reset(d.port)
	}
}

func (d *Driver) readStartup() ([3]string, error) {
	var lines [3]string
	for i := range lines {
		d.opts.Clock.Sleep(d.opts.Sync.LineDelay)
		line, err := d.readLine()
		lines[i] = line
		if err != nil {
			return lines, err
		}
		d.logf("%s", line)
	}
	return lines, nil
}
