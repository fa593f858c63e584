package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/tablecal/internal/config"
	"github.com/banshee-data/tablecal/internal/db"
	"github.com/banshee-data/tablecal/internal/fit"
	"github.com/banshee-data/tablecal/internal/grbl"
	"github.com/banshee-data/tablecal/internal/leveling"
	"github.com/banshee-data/tablecal/internal/monitoring"
	"github.com/banshee-data/tablecal/internal/timeutil"
)

func runExercise(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("exercise", flag.ExitOnError)
	var mf machineFlags
	mf.register(fs)
	pause := fs.Duration("pause", time.Second, "Pause between tour sections")
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mc, err := openMachine(ctx, &mf)
	if err != nil {
		return err
	}
	defer mc.Close()

	if err := mc.prepare(); err != nil {
		return err
	}
	return exerciseTour(mc.driver, timeutil.RealClock{}, *pause, out)
}

type tourMove struct {
	label string
	run   func() (grbl.Position, error)
}

type tourSection struct {
	name  string
	moves []tourMove
}

// tourDrop is how far the tour lowers Z below its home.
const tourDrop = 10.0

// tourSections visits the four corners and the X and Y extents, then lowers
// and raises Z, once with linear moves and once with rapids.
func tourSections(d *grbl.Driver) []tourSection {
	env := d.Envelope()
	xh, xf := env.X.Home, env.X.Far
	yh, yf := env.Y.Home, env.Y.Far
	zh := env.Z.Home

	corners := func(move func(x, y float64) (grbl.Position, error)) []tourMove {
		return []tourMove{
			{"back right", func() (grbl.Position, error) { return move(xh, yh) }},
			{"back left", func() (grbl.Position, error) { return move(xf, yh) }},
			{"front left", func() (grbl.Position, error) { return move(xf, yf) }},
			{"front right", func() (grbl.Position, error) { return move(xh, yf) }},
			{"back right", func() (grbl.Position, error) { return move(xh, yh) }},
		}
	}
	extents := func(move func(v float64) (grbl.Position, error), home, far float64, farLabel string) []tourMove {
		return []tourMove{
			{"back right", func() (grbl.Position, error) { return move(home) }},
			{farLabel, func() (grbl.Position, error) { return move(far) }},
			{"back right", func() (grbl.Position, error) { return move(home) }},
		}
	}

	return []tourSection{
		{"linear moves to the corners", corners(func(x, y float64) (grbl.Position, error) { return d.MoveXY(x, y, 0) })},
		{"rapid moves to the corners", corners(d.GotoXY)},
		{"linear moves to the X extents", extents(func(x float64) (grbl.Position, error) { return d.MoveX(x, 0) }, xh, xf, "back left")},
		{"rapid moves to the X extents", extents(d.GotoX, xh, xf, "back left")},
		{"linear moves to the Y extents", extents(func(y float64) (grbl.Position, error) { return d.MoveY(y, 0) }, yh, yf, "front right")},
		{"rapid moves to the Y extents", extents(d.GotoY, yh, yf, "front right")},
		{"linear moves along Z", extents(func(z float64) (grbl.Position, error) { return d.MoveZ(z, 0) }, zh, zh-tourDrop, "lowered")},
		{"rapid moves along Z", extents(d.GotoZ, zh, zh-tourDrop, "lowered")},
	}
}

// exerciseTour zeroes each axis at home, then runs every tour section with
// a flush after each move.
func exerciseTour(d *grbl.Driver, clock timeutil.Clock, pause time.Duration, out io.Writer) error {
	for _, axis := range []grbl.Axis{grbl.AxisX, grbl.AxisY, grbl.AxisZ} {
		if _, err := d.Move(axis, 0, 0); err != nil {
			return err
		}
	}

	for i, section := range tourSections(d) {
		if i > 0 && pause > 0 {
			clock.Sleep(pause)
		}
		fmt.Fprintf(out, "Issuing %s.\n", section.name)
		for _, m := range section.moves {
			pos, err := m.run()
			if err != nil {
				return fmt.Errorf("%s (%s): %w", section.name, m.label, err)
			}
			if err := d.Flush(); err != nil {
				return fmt.Errorf("%s (%s): %w", section.name, m.label, err)
			}
			fmt.Fprintf(out, "  %-12s %s\n", m.label, pos)
		}
	}
	fmt.Fprintf(out, "Tour complete after %d commands.\n", d.Commands())
	return nil
}

func readSamplesFile(path string) ([]fit.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open samples: %w", err)
	}
	defer f.Close()
	return fit.ReadSamples(f)
}

func loadConfigFile(path string) (*config.MachineConfig, error) {
	if path == "" {
		return config.DefaultMachineConfig(), nil
	}
	return config.LoadMachineConfig(path)
}

// levelReport fits a plane to the height samples and analyzes it against
// the table described by cfg.
func levelReport(cfg *config.MachineConfig, samples []fit.Sample) (leveling.Report, []fit.Sample, error) {
	heights := fit.Heights(samples)
	plane, err := fit.FitPlane(heights)
	if err != nil {
		return leveling.Report{}, nil, err
	}
	table := leveling.TableFromEnvelope(cfg.Envelope())
	return leveling.Analyze(table, plane, heights), heights, nil
}

func runLevel(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("level", flag.ExitOnError)
	samplesPath := fs.String("samples", "", "Probed x,y,z samples (required)")
	configPath := fs.String("config", "", "Machine configuration file")
	pngPath := fs.String("png", "", "Write a residual plot (.png, .svg or .pdf)")
	htmlPath := fs.String("html", "", "Write an interactive residual chart")
	dbPath := fs.String("db", "", "Store the fit in this database")
	fs.Parse(args)

	if *samplesPath == "" {
		return errors.New("-samples is required")
	}
	cfg, err := loadConfigFile(*configPath)
	if err != nil {
		return err
	}
	samples, err := readSamplesFile(*samplesPath)
	if err != nil {
		return err
	}
	report, heights, err := levelReport(cfg, samples)
	if err != nil {
		return err
	}
	if err := leveling.WriteText(out, report); err != nil {
		return err
	}

	if *pngPath != "" {
		if err := leveling.PlotSamples(*pngPath, report, heights); err != nil {
			return err
		}
		monitoring.Logf("wrote %s", *pngPath)
	}
	if *htmlPath != "" {
		if err := writeChartFile(*htmlPath, report, heights); err != nil {
			return err
		}
		monitoring.Logf("wrote %s", *htmlPath)
	}
	if *dbPath != "" {
		id, err := storeFit(*dbPath, func(database *db.DB) (string, error) {
			return database.RecordPlaneFit("", report.Measured)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Stored plane fit %s\n", id)
	}
	return nil
}

func writeChartFile(path string, r leveling.Report, samples []fit.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := leveling.RenderChart(f, r, samples); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func storeFit(path string, record func(*db.DB) (string, error)) (string, error) {
	database, err := db.NewDB(path)
	if err != nil {
		return "", err
	}
	defer database.Close()
	return record(database)
}

func runCircle(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("circle", flag.ExitOnError)
	samplesPath := fs.String("samples", "", "Probed x,y points on the circle (required)")
	dbPath := fs.String("db", "", "Store the fit in this database")
	fs.Parse(args)

	if *samplesPath == "" {
		return errors.New("-samples is required")
	}
	samples, err := readSamplesFile(*samplesPath)
	if err != nil {
		return err
	}
	c, err := fit.FitCircle(samples)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, c)

	if *dbPath != "" {
		id, err := storeFit(*dbPath, func(database *db.DB) (string, error) {
			return database.RecordCircleFit("", c)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Stored circle fit %s\n", id)
	}
	return nil
}

func runLine(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("line", flag.ExitOnError)
	samplesPath := fs.String("samples", "", "Probed x,y points along an edge (required)")
	fs.Parse(args)

	if *samplesPath == "" {
		return errors.New("-samples is required")
	}
	samples, err := readSamplesFile(*samplesPath)
	if err != nil {
		return err
	}
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i], ys[i] = s.X, s.Y
	}
	l, err := fit.FitLine(xs, ys)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, l)
	return nil
}

func runSurface(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("surface", flag.ExitOnError)
	var mf machineFlags
	mf.register(fs)
	samplesPath := fs.String("samples", "", "Fit the plane from these x,y,z samples instead of the latest stored fit")
	step := fs.Float64("step", 10, "Row and column spacing in mm")
	depth := fs.Float64("depth", 0, "Cut depth below the plane in mm")
	feed := fs.Float64("feed", 0, "Feed rate in mm/s (0 uses the configured default)")
	fs.Parse(args)

	var plane fit.Plane
	if *samplesPath != "" {
		samples, err := readSamplesFile(*samplesPath)
		if err != nil {
			return err
		}
		if plane, err = fit.FitPlane(fit.Heights(samples)); err != nil {
			return err
		}
	} else if mf.dbPath == "" {
		return errors.New("either -samples or -db with a stored plane fit is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mc, err := openMachine(ctx, &mf)
	if err != nil {
		return err
	}
	defer mc.Close()

	if *samplesPath == "" {
		if plane, err = mc.db.LatestPlane(); err != nil {
			return fmt.Errorf("failed to load the latest plane fit: %w", err)
		}
	}
	path, err := leveling.SurfacePath(plane, mc.driver.Envelope(), *step, *depth)
	if err != nil {
		return err
	}

	if err := mc.prepare(); err != nil {
		return err
	}
	if err := surface(ctx, mc.driver, path, *feed); err != nil {
		return err
	}
	fmt.Fprintf(out, "Surfaced %d waypoints following %s\n", len(path), plane)
	return nil
}

// surface raises the tool, rapids to the first waypoint and then follows
// the path with linear moves, flushing at the end of every row. It stops
// between moves when ctx is cancelled.
func surface(ctx context.Context, d *grbl.Driver, path []leveling.Waypoint, feed float64) error {
	if len(path) == 0 {
		return nil
	}
	safe := d.Envelope().Z.Home
	if _, err := d.GotoZ(safe); err != nil {
		return err
	}
	if _, err := d.GotoXY(path[0].X, path[0].Y); err != nil {
		return err
	}

	for i, wp := range path {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			if _, err := d.MoveXY(wp.X, wp.Y, feed); err != nil {
				return fmt.Errorf("waypoint %d: %w", i, err)
			}
		}
		if d.Position().Z != wp.Z {
			if _, err := d.MoveZ(wp.Z, feed); err != nil {
				return fmt.Errorf("waypoint %d: %w", i, err)
			}
		}
		if wp.RowEnd {
			if err := d.Flush(); err != nil {
				return fmt.Errorf("row ending at waypoint %d: %w", i, err)
			}
		}
	}

	_, err := d.GotoZ(safe)
	return err
}

// levelingHandler serves the residual chart, or the PNG plot when png is
// set, for a fixed report.
func levelingHandler(r leveling.Report, samples []fit.Sample, png bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var err error
		if png {
			w.Header().Set("Content-Type", "image/png")
			err = leveling.WritePNG(w, r, samples)
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			err = leveling.RenderChart(w, r, samples)
		}
		if err != nil {
			monitoring.Logf("failed to render leveling view: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
