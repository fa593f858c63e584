package grbl

import "fmt"

// Compensator runs after a significant move to bring the controller's
// acknowledgments back in step with physical motion.
//
// GRBL buffers lines and may acknowledge them before the motion completes;
// near-duplicate moves have also been seen to be dropped. Compensators work
// around that empirically. None of them is guaranteed to drain the planner.
type Compensator interface {
	Compensate(d *Driver) error
}

// CompensatorFunc adapts a function to the Compensator interface.
type CompensatorFunc func(d *Driver) error

// Compensate implements Compensator.
func (f CompensatorFunc) Compensate(d *Driver) error { return f(d) }

// NoCompensation skips compensation, for controllers that do not need it.
type NoCompensation struct{}

// Compensate implements Compensator.
func (NoCompensation) Compensate(*Driver) error { return nil }

// Jiggle walks the tool around its current XY position by one step: diagonal
// out, X back, Y back, X forward, then exactly back to the start. Each step
// is a full, validated, acknowledged move.
type Jiggle struct {
	// Step is the offset in mm; zero selects DefaultStep.
	Step float64
	// Iterations repeats the pattern; values below one run it once.
	Iterations int
	// Feed is the feed rate of each step; zero selects the driver default.
	Feed float64
}

// Compensate implements Compensator.
func (j Jiggle) Compensate(d *Driver) error {
	step := j.Step
	if step == 0 {
		step = DefaultStep
	}
	iterations := max(j.Iterations, 1)

	start := d.Position()
	x, y := start.X, start.Y
	steps := []struct {
		name string
		run  func() (Position, error)
	}{
		{"diagonal out", func() (Position, error) { return d.MoveXY(x+step, y+step, j.Feed) }},
		{"x back", func() (Position, error) { return d.MoveX(x-step, j.Feed) }},
		{"y back", func() (Position, error) { return d.MoveY(y-step, j.Feed) }},
		{"x forward", func() (Position, error) { return d.MoveX(x+step, j.Feed) }},
		{"return", func() (Position, error) { return d.MoveXY(x, y, j.Feed) }},
	}

	for i := 0; i < iterations; i++ {
		for n, s := range steps {
			if _, err := s.run(); err != nil {
				return fmt.Errorf("jiggle step %d (%s): %w", n+1, s.name, err)
			}
		}
	}
	return nil
}

// Flush runs the configured compensator from the current position. A
// non-nil error means a step failed and the position can no longer be
// trusted.
func (d *Driver) Flush() error {
	return d.opts.Compensator.Compensate(d)
}
