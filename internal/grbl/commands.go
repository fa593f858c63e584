package grbl

import (
	"fmt"
	"strings"

	"github.com/banshee-data/tablecal/internal/monitoring"
)

// Protocol lines for the setup commands.
const (
	lineHome             = "$H"
	lineDefineWorkOrigin = "G10 L20 P2 X0 Y0 Z0"
	lineSelectWorkOrigin = "G55"
)

// Home runs the homing cycle. The driver position is left alone; callers
// establish the origin with explicit moves to zero afterwards.
func (d *Driver) Home() error {
	return d.Exchange(lineHome, AckOK)
}

// DefineWorkOrigin stores the current machine position as the origin of
// work coordinate system 2 in the controller's EEPROM.
func (d *Driver) DefineWorkOrigin() error {
	return d.Exchange(lineDefineWorkOrigin, AckOK)
}

// SelectWorkOrigin makes work coordinate system 2 (G55) the active frame.
func (d *Driver) SelectWorkOrigin() error {
	return d.Exchange(lineSelectWorkOrigin, AckOK)
}

// Move feeds a single axis to v. A zero feed selects the default feed rate.
func (d *Driver) Move(axis Axis, v, feed float64) (Position, error) {
	return d.linear(feed, target{axis, v})
}

// MoveX feeds the X axis to x.
func (d *Driver) MoveX(x, feed float64) (Position, error) { return d.Move(AxisX, x, feed) }

// MoveY feeds the Y axis to y.
func (d *Driver) MoveY(y, feed float64) (Position, error) { return d.Move(AxisY, y, feed) }

// MoveZ feeds the Z axis to z.
func (d *Driver) MoveZ(z, feed float64) (Position, error) { return d.Move(AxisZ, z, feed) }

// MoveXY feeds X and Y together in one line, so a single acknowledgment
// covers both axes.
func (d *Driver) MoveXY(x, y, feed float64) (Position, error) {
	return d.linear(feed, target{AxisX, x}, target{AxisY, y})
}

// Goto traverses a single axis to v at rapid speed.
func (d *Driver) Goto(axis Axis, v float64) (Position, error) {
	return d.motion("G00", nil, target{axis, v})
}

// GotoX traverses the X axis to x.
func (d *Driver) GotoX(x float64) (Position, error) { return d.Goto(AxisX, x) }

// GotoY traverses the Y axis to y.
func (d *Driver) GotoY(y float64) (Position, error) { return d.Goto(AxisY, y) }

// GotoZ traverses the Z axis to z.
func (d *Driver) GotoZ(z float64) (Position, error) { return d.Goto(AxisZ, z) }

// GotoXY traverses X and Y together in one line.
func (d *Driver) GotoXY(x, y float64) (Position, error) {
	return d.motion("G00", nil, target{AxisX, x}, target{AxisY, y})
}

type target struct {
	axis  Axis
	value float64
}

func (d *Driver) linear(feed float64, targets ...target) (Position, error) {
	f, err := d.feedRate(feed)
	if err != nil {
		monitoring.Rejections.WithLabelValues("feed").Inc()
		return d.pos, err
	}
	return d.motion("G01", &f, targets...)
}

func (d *Driver) feedRate(feed float64) (float64, error) {
	if feed == 0 {
		feed = d.opts.DefaultFeed
	}
	if !(feed >= d.opts.MinFeed && feed <= d.opts.MaxFeed) {
		return 0, &FeedRateError{Feed: feed, Min: d.opts.MinFeed, Max: d.opts.MaxFeed}
	}
	return feed, nil
}

// motion validates every target, sends one line and applies all targets to
// the position only once that line is acknowledged.
func (d *Driver) motion(code string, feed *float64, targets ...target) (Position, error) {
	coords := make([]Coordinate, 0, len(targets))
	for _, t := range targets {
		c, err := d.opts.Envelope.Check(t.axis, t.value)
		if err != nil {
			monitoring.Rejections.WithLabelValues("envelope").Inc()
			return d.pos, err
		}
		coords = append(coords, c)
	}

	if err := d.Exchange(motionLine(code, feed, coords), AckOK); err != nil {
		return d.pos, err
	}

	for _, c := range coords {
		d.pos.set(c)
	}
	d.publishPosition()
	return d.pos, nil
}

// motionLine renders e.g. "G01 X-100.000 Y-20.000 F500.000".
func motionLine(code string, feed *float64, coords []Coordinate) string {
	words := make([]string, 0, len(coords)+2)
	words = append(words, code)
	for _, c := range coords {
		words = append(words, c.word())
	}
	if feed != nil {
		words = append(words, fmt.Sprintf("F%.3f", *feed))
	}
	return strings.Join(words, " ")
}
