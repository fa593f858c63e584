// Package config loads the machine description: serial link settings,
// travel envelope, feed limits and handshake policy.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/tablecal/internal/grbl"
	"github.com/banshee-data/tablecal/internal/serialport"
)

// Compensator names accepted by the compensator field.
const (
	CompensatorJiggle = "jiggle"
	CompensatorNone   = "none"
)

// MachineConfig describes one machine. Every field is optional; the Get*
// methods fall back to the defaults of a 420 x 370 mm GRBL 1.1f table.
type MachineConfig struct {
	// Serial link
	Port        *string `json:"port,omitempty" yaml:"port,omitempty"`
	BaudRate    *int    `json:"baud_rate,omitempty" yaml:"baud_rate,omitempty"`
	ReadTimeout *string `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty"` // duration string like "30s"

	// Travel envelope, in mm from the homed corner
	TravelX   *float64 `json:"travel_x,omitempty" yaml:"travel_x,omitempty"`
	TravelY   *float64 `json:"travel_y,omitempty" yaml:"travel_y,omitempty"`
	ZFloor    *float64 `json:"z_floor,omitempty" yaml:"z_floor,omitempty"` // lowest Z target; unset means unbounded
	Tolerance *float64 `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`

	// Feed rates, mm/s
	MinFeed     *float64 `json:"min_feed,omitempty" yaml:"min_feed,omitempty"`
	MaxFeed     *float64 `json:"max_feed,omitempty" yaml:"max_feed,omitempty"`
	DefaultFeed *float64 `json:"default_feed,omitempty" yaml:"default_feed,omitempty"`

	FailurePause   *string `json:"failure_pause,omitempty" yaml:"failure_pause,omitempty"`
	CommandLogging *bool   `json:"command_logging,omitempty" yaml:"command_logging,omitempty"`

	// Startup handshake
	Banner       *string `json:"banner,omitempty" yaml:"banner,omitempty"`
	LockMessage  *string `json:"lock_message,omitempty" yaml:"lock_message,omitempty"`
	SyncAttempts *int    `json:"sync_attempts,omitempty" yaml:"sync_attempts,omitempty"`
	ResetWait    *string `json:"reset_wait,omitempty" yaml:"reset_wait,omitempty"`
	LineDelay    *string `json:"line_delay,omitempty" yaml:"line_delay,omitempty"`

	// Buffer-flush compensation
	Compensator      *string  `json:"compensator,omitempty" yaml:"compensator,omitempty"`
	JiggleStep       *float64 `json:"jiggle_step,omitempty" yaml:"jiggle_step,omitempty"`
	JiggleIterations *int     `json:"jiggle_iterations,omitempty" yaml:"jiggle_iterations,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultMachineConfig returns a config with every field set to its default.
func DefaultMachineConfig() *MachineConfig {
	return &MachineConfig{
		Port:             ptrString("/dev/ttyUSB0"),
		BaudRate:         ptrInt(serialport.DefaultBaudRate),
		ReadTimeout:      ptrString("30s"),
		TravelX:          ptrFloat64(420),
		TravelY:          ptrFloat64(370),
		Tolerance:        ptrFloat64(grbl.DefaultStep),
		MinFeed:          ptrFloat64(grbl.DefaultMinFeed),
		MaxFeed:          ptrFloat64(grbl.DefaultMaxFeed),
		DefaultFeed:      ptrFloat64(grbl.DefaultMaxFeed),
		FailurePause:     ptrString("5s"),
		CommandLogging:   ptrBool(false),
		Banner:           ptrString(grbl.DefaultBanner),
		LockMessage:      ptrString(grbl.DefaultLockMessage),
		SyncAttempts:     ptrInt(0),
		ResetWait:        ptrString("1s"),
		LineDelay:        ptrString("10ms"),
		Compensator:      ptrString(CompensatorJiggle),
		JiggleStep:       ptrFloat64(grbl.DefaultStep),
		JiggleIterations: ptrInt(1),
	}
}

// LoadMachineConfig loads a MachineConfig from a .json, .yaml or .yml file.
// Fields omitted from the file keep their defaults through the Get* methods,
// so partial configs are safe.
func LoadMachineConfig(path string) (*MachineConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &MachineConfig{}
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *MachineConfig) Validate() error {
	durations := map[string]*string{
		"read_timeout":  c.ReadTimeout,
		"failure_pause": c.FailurePause,
		"reset_wait":    c.ResetWait,
		"line_delay":    c.LineDelay,
	}
	for name, v := range durations {
		if v == nil || *v == "" {
			continue
		}
		if _, err := time.ParseDuration(*v); err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
	}

	if c.TravelX != nil && *c.TravelX <= 0 {
		return fmt.Errorf("travel_x must be positive, got %f", *c.TravelX)
	}
	if c.TravelY != nil && *c.TravelY <= 0 {
		return fmt.Errorf("travel_y must be positive, got %f", *c.TravelY)
	}
	if c.ZFloor != nil && *c.ZFloor > 0 {
		return fmt.Errorf("z_floor must not be above home, got %f", *c.ZFloor)
	}
	if c.Tolerance != nil && *c.Tolerance < 0 {
		return fmt.Errorf("tolerance must be non-negative, got %f", *c.Tolerance)
	}

	lo, hi := c.GetMinFeed(), c.GetMaxFeed()
	if lo <= 0 || hi < lo {
		return fmt.Errorf("feed limits must satisfy 0 < min_feed <= max_feed, got [%g, %g]", lo, hi)
	}
	if f := c.GetDefaultFeed(); f < lo || f > hi {
		return fmt.Errorf("default_feed %g outside [%g, %g]", f, lo, hi)
	}

	if c.SyncAttempts != nil && *c.SyncAttempts < 0 {
		return fmt.Errorf("sync_attempts must be non-negative, got %d", *c.SyncAttempts)
	}
	if c.Compensator != nil {
		switch *c.Compensator {
		case CompensatorJiggle, CompensatorNone:
		default:
			return fmt.Errorf("unknown compensator %q", *c.Compensator)
		}
	}
	if c.JiggleStep != nil && *c.JiggleStep <= 0 {
		return fmt.Errorf("jiggle_step must be positive, got %f", *c.JiggleStep)
	}

	if _, err := c.PortOptions().Normalize(); err != nil {
		return err
	}
	return c.Envelope().Validate()
}

func durationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// GetPort returns the serial device path.
func (c *MachineConfig) GetPort() string {
	if c.Port == nil || *c.Port == "" {
		return "/dev/ttyUSB0"
	}
	return *c.Port
}

// GetBaudRate returns the baud rate or the default.
func (c *MachineConfig) GetBaudRate() int {
	if c.BaudRate == nil {
		return serialport.DefaultBaudRate
	}
	return *c.BaudRate
}

// GetReadTimeout returns how long a reply may take before it counts as lost.
func (c *MachineConfig) GetReadTimeout() time.Duration {
	return durationOr(c.ReadTimeout, serialport.DefaultReadTimeout)
}

func (c *MachineConfig) GetMinFeed() float64 { return floatOr(c.MinFeed, grbl.DefaultMinFeed) }
func (c *MachineConfig) GetMaxFeed() float64 { return floatOr(c.MaxFeed, grbl.DefaultMaxFeed) }

// GetDefaultFeed returns the feed used when a move asks for none. It
// defaults to the maximum feed.
func (c *MachineConfig) GetDefaultFeed() float64 { return floatOr(c.DefaultFeed, c.GetMaxFeed()) }

// GetFailurePause parses the failure pause. "0s" disables the pause.
func (c *MachineConfig) GetFailurePause() time.Duration {
	return durationOr(c.FailurePause, grbl.DefaultFailurePause)
}

// GetCommandLogging returns the command_logging value or the default.
func (c *MachineConfig) GetCommandLogging() bool {
	if c.CommandLogging == nil {
		return false
	}
	return *c.CommandLogging
}

// GetCompensator returns the configured compensator name.
func (c *MachineConfig) GetCompensator() string {
	if c.Compensator == nil || *c.Compensator == "" {
		return CompensatorJiggle
	}
	return *c.Compensator
}

// Envelope builds the travel envelope. Travel runs negative from home.
func (c *MachineConfig) Envelope() grbl.Envelope {
	env := grbl.DefaultEnvelope()
	env.X.Far = -floatOr(c.TravelX, -env.X.Far)
	env.Y.Far = -floatOr(c.TravelY, -env.Y.Far)
	env.Z.Far = floatOr(c.ZFloor, math.Inf(-1))
	env.Tolerance = floatOr(c.Tolerance, env.Tolerance)
	return env
}

// SyncPolicy builds the startup handshake policy.
func (c *MachineConfig) SyncPolicy() grbl.SyncPolicy {
	p := grbl.DefaultSyncPolicy()
	if c.Banner != nil && *c.Banner != "" {
		p.Banner = *c.Banner
	}
	if c.LockMessage != nil && *c.LockMessage != "" {
		p.LockMessage = *c.LockMessage
	}
	if c.SyncAttempts != nil {
		p.MaxAttempts = *c.SyncAttempts
	}
	p.ResetWait = durationOr(c.ResetWait, p.ResetWait)
	p.LineDelay = durationOr(c.LineDelay, p.LineDelay)
	return p
}

// DriverOptions builds grbl driver options. The caller supplies the clock,
// journal and logger.
func (c *MachineConfig) DriverOptions() grbl.Options {
	opts := grbl.DefaultOptions()
	opts.Envelope = c.Envelope()
	opts.MinFeed = c.GetMinFeed()
	opts.MaxFeed = c.GetMaxFeed()
	opts.DefaultFeed = c.GetDefaultFeed()
	opts.FailurePause = c.GetFailurePause()
	if opts.FailurePause == 0 {
		opts.FailurePause = -1
	}
	opts.CommandLogging = c.GetCommandLogging()
	opts.Sync = c.SyncPolicy()

	switch c.GetCompensator() {
	case CompensatorNone:
		opts.Compensator = grbl.NoCompensation{}
	default:
		j := grbl.Jiggle{Step: grbl.DefaultStep, Iterations: 1}
		if c.JiggleStep != nil {
			j.Step = *c.JiggleStep
		}
		if c.JiggleIterations != nil {
			j.Iterations = *c.JiggleIterations
		}
		opts.Compensator = j
	}
	return opts
}

// PortOptions builds the serial link settings, 8N1 at the configured baud.
func (c *MachineConfig) PortOptions() serialport.PortOptions {
	return serialport.PortOptions{
		BaudRate:    c.GetBaudRate(),
		DataBits:    8,
		StopBits:    1,
		Parity:      "N",
		ReadTimeout: c.GetReadTimeout(),
	}
}
