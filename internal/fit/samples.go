// Package fit turns probe measurements into geometry: a plane through
// surface heights, a line through points, and a circle through points on a
// hole's edge.
package fit

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Sample is one probe reading. Z is zero when the record had no height.
type Sample struct {
	X, Y, Z float64
	HasZ    bool
}

// ReadSamples reads comma-separated records of x,y or x,y,z. Blank lines
// are skipped; any other malformed record is an error naming its line.
func ReadSamples(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var samples []Sample
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read samples: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if len(record) < 2 || len(record) > 3 {
			return nil, fmt.Errorf("line %d: expected x,y or x,y,z, got %d fields", line, len(record))
		}
		var vals [3]float64
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d field %d: %w", line, i+1, err)
			}
			vals[i] = v
		}
		samples = append(samples, Sample{X: vals[0], Y: vals[1], Z: vals[2], HasZ: len(record) == 3})
	}
	return samples, nil
}

// Heights returns the samples that carry a Z value.
func Heights(samples []Sample) []Sample {
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if s.HasZ {
			out = append(out, s)
		}
	}
	return out
}

// Extent is the bounding box of a set of samples.
type Extent struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// Bounds returns the extent of samples; it is the zero Extent for none.
func Bounds(samples []Sample) Extent {
	if len(samples) == 0 {
		return Extent{}
	}
	e := Extent{
		MinX: samples[0].X, MaxX: samples[0].X,
		MinY: samples[0].Y, MaxY: samples[0].Y,
		MinZ: samples[0].Z, MaxZ: samples[0].Z,
	}
	for _, s := range samples[1:] {
		e.MinX, e.MaxX = min(e.MinX, s.X), max(e.MaxX, s.X)
		e.MinY, e.MaxY = min(e.MinY, s.Y), max(e.MaxY, s.Y)
		e.MinZ, e.MaxZ = min(e.MinZ, s.Z), max(e.MaxZ, s.Z)
	}
	return e
}
