package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/tablecal/internal/version"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0), flag.Args()[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// errUnknownCommand is returned by run for a command it does not know.
type errUnknownCommand string

func (e errUnknownCommand) Error() string { return fmt.Sprintf("unknown command: %s", string(e)) }

func run(command string, args []string, out io.Writer) error {
	switch command {
	case "exercise":
		return runExercise(args, out)
	case "level":
		return runLevel(args, out)
	case "circle":
		return runCircle(args, out)
	case "line":
		return runLine(args, out)
	case "surface":
		return runSurface(args, out)
	case "serve":
		return runServe(args)
	case "version":
		fmt.Fprintln(out, version.String("tablecal"))
		return nil
	case "help":
		printUsage()
		return nil
	default:
		printUsage()
		return errUnknownCommand(command)
	}
}

func printUsage() {
	fmt.Println(`tablecal - GRBL table driver and leveling toolkit

Usage: tablecal <command> [options]

Commands:
  exercise   Home the machine and tour the table corners and axis extents
  level      Fit a plane to probed heights and report mount adjustments
  circle     Fit a circle to probed X,Y points
  line       Fit a straight line to probed X,Y points
  surface    Run a surfacing pass that follows a fitted plane
  serve      Serve the debug pages for a journal database
  version    Show tablecal version
  help       Show this help message

Machine Flags (exercise, surface):
  -config <file>     Machine configuration (.json, .yaml or .yml)
  -port <path>       Serial port (overrides the config)
  -baud <rate>       Baud rate (overrides the config)
  -db <file>         Journal every exchange to this SQLite database
  -listen <addr>     Serve /debug/ pages while the command runs
  -dev               Drive a simulated controller instead of a serial port
  -log-commands      Log every line sent to the controller

Examples:
  # Check a new machine end to end against the simulator
  tablecal exercise -dev

  # Tour the table with a journal and live metrics
  tablecal exercise -port /dev/ttyUSB0 -db tablecal.db -listen :8080

  # Fit probed heights and render the residuals
  tablecal level -samples heights.csv -png heights.png -html heights.html

  # Surface 0.2 mm below the last stored plane fit
  tablecal surface -db tablecal.db -depth 0.2 -step 10`)
}
