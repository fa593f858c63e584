package serialport

import (
	"fmt"

	"go.bug.st/serial"
)

// Open opens the serial port at path, applies the read timeout and returns it
// wrapped so that a timed-out read surfaces as ErrReadTimeout.
func Open(path string, opts PortOptions) (SerialPorter, error) {
	norm, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	mode, err := norm.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := port.SetReadTimeout(norm.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", path, err)
	}

	return NewTimeoutReader(port), nil
}

// RealFactory opens hardware ports through go.bug.st/serial.
var RealFactory SerialPortFactory = SerialPortOpener(Open)
