package grbl

import (
	"fmt"
	"testing"
	"time"

	"github.com/banshee-data/tablecal/internal/serialport"
	"github.com/banshee-data/tablecal/internal/timeutil"
)

// newTestDriver returns a driver wired to a scripted port and a mock clock.
func newTestDriver(t *testing.T, opts Options) (*Driver, *serialport.TestableSerialPort, *timeutil.MockClock) {
	t.Helper()

	port := serialport.NewTestableSerialPort()
	clock := timeutil.NewMockClock(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	opts.Clock = clock
	if opts.Logf == nil {
		opts.Logf = t.Logf
	}
	return New(serialport.NewTimeoutReader(port), opts), port, clock
}

type recordingJournal struct {
	exchanges []Exchange
	err       error
}

func (j *recordingJournal) RecordExchange(ex Exchange) error {
	j.exchanges = append(j.exchanges, ex)
	return j.err
}

func sprintf(format string, v ...interface{}) string {
	return fmt.Sprintf(format, v...)
}
