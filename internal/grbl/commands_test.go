package grbl

import (
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/tablecal/internal/monitoring"
	"github.com/banshee-data/tablecal/internal/serialport"
	"github.com/banshee-data/tablecal/internal/timeutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveX_AcknowledgedUpdatesPosition(t *testing.T) {
	d, port, clock := newTestDriver(t, DefaultOptions())
	port.AddLines("ok")

	pos, err := d.MoveX(-100, 500)
	require.NoError(t, err)

	assert.Equal(t, []string{"G01 X-100.000 F500.000"}, port.WrittenLines())
	assert.Equal(t, -100.0, pos.X)
	assert.Equal(t, Position{X: -100}, d.Position())
	assert.Equal(t, uint64(1), d.Commands())
	assert.Empty(t, clock.Sleeps())
}

func TestMoveXY_SingleLineUpdatesBothAxes(t *testing.T) {
	d, port, _ := newTestDriver(t, DefaultOptions())
	port.AddLines("ok")

	pos, err := d.MoveXY(-420, -370, 250)
	require.NoError(t, err)

	assert.Equal(t, []string{"G01 X-420.000 Y-370.000 F250.000"}, port.WrittenLines())
	assert.Equal(t, Position{X: -420, Y: -370}, pos)
}

func TestErrorReplyLeavesPositionAndPauses(t *testing.T) {
	d, port, clock := newTestDriver(t, DefaultOptions())
	port.AddLines("ok", "error:9")

	before, err := d.GotoXY(-50, -60)
	require.NoError(t, err)

	pos, err := d.MoveXY(-100, -100, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnacknowledged))

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "error:9", cmdErr.Reply)
	assert.Equal(t, "G01 X-100.000 Y-100.000 F1000.000", cmdErr.Command)
	assert.Equal(t, uint64(2), cmdErr.Seq)
	assert.Contains(t, cmdErr.Error(), "G-code locked out")

	assert.Equal(t, before, pos)
	assert.Equal(t, before, d.Position())
	assert.Equal(t, []time.Duration{DefaultFailurePause}, clock.Sleeps())
}

func TestTimeoutIsUnacknowledged(t *testing.T) {
	d, port, clock := newTestDriver(t, DefaultOptions())

	pos, err := d.MoveZ(-5, 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnacknowledged))
	assert.True(t, errors.Is(err, serialport.ErrReadTimeout))
	assert.Equal(t, Position{}, pos)
	assert.Equal(t, []string{"G01 Z-5.000 F100.000"}, port.WrittenLines())
	assert.True(t, clock.SleptAtLeast(DefaultFailurePause))
}

func TestWriteFailureIsUnacknowledged(t *testing.T) {
	d, port, _ := newTestDriver(t, DefaultOptions())
	boom := errors.New("device unplugged")
	port.WriteError = boom

	err := d.Home()
	assert.True(t, errors.Is(err, ErrUnacknowledged))
	assert.True(t, errors.Is(err, boom))
}

func TestEnvelopeRejectionSendsNothing(t *testing.T) {
	d, port, clock := newTestDriver(t, DefaultOptions())

	_, err := d.MoveXY(-420.1, 0, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfEnvelope))
	assert.False(t, errors.Is(err, ErrUnacknowledged))

	_, err = d.GotoZ(1)
	assert.True(t, errors.Is(err, ErrOutOfEnvelope))

	assert.Empty(t, port.GetWrittenData())
	assert.Equal(t, uint64(0), d.Commands())
	assert.Empty(t, clock.Sleeps())
}

func TestFeedRate(t *testing.T) {
	d, port, _ := newTestDriver(t, DefaultOptions())
	port.AddLines("ok", "ok")

	_, err := d.MoveY(-10, 0)
	require.NoError(t, err)
	_, err = d.MoveY(-20, 1)
	require.NoError(t, err)

	for _, feed := range []float64{0.5, 1000.5, -3} {
		_, err = d.MoveY(-30, feed)
		assert.True(t, errors.Is(err, ErrFeedRate), "feed %v", feed)
	}

	want := []string{"G01 Y-10.000 F1000.000", "G01 Y-20.000 F1.000"}
	if diff := cmp.Diff(want, port.WrittenLines()); diff != "" {
		t.Errorf("written lines mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, -20.0, d.Position().Y)
}

func TestRapidAndSetupLines(t *testing.T) {
	d, port, _ := newTestDriver(t, DefaultOptions())
	port.AddLines("ok", "ok", "ok", "ok", "ok", "ok", "ok")

	require.NoError(t, d.Home())
	require.NoError(t, d.DefineWorkOrigin())
	require.NoError(t, d.SelectWorkOrigin())
	_, err := d.GotoX(-1.5)
	require.NoError(t, err)
	_, err = d.GotoY(-2.25)
	require.NoError(t, err)
	_, err = d.GotoZ(-10)
	require.NoError(t, err)
	pos, err := d.GotoXY(-420, -370)
	require.NoError(t, err)

	want := []string{
		"$H",
		"G10 L20 P2 X0 Y0 Z0",
		"G55",
		"G00 X-1.500",
		"G00 Y-2.250",
		"G00 Z-10.000",
		"G00 X-420.000 Y-370.000",
	}
	if diff := cmp.Diff(want, port.WrittenLines()); diff != "" {
		t.Errorf("written lines mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, Position{X: -420, Y: -370, Z: -10}, pos)
	assert.Equal(t, uint64(7), d.Commands())
}

func TestExchange_TrimsReply(t *testing.T) {
	d, port, _ := newTestDriver(t, DefaultOptions())
	port.AddReadData([]byte("  ok \r\n"))

	assert.NoError(t, d.Exchange("$H", AckOK))
}

func TestExchange_NoPauseWhenDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.FailurePause = -1
	d, port, clock := newTestDriver(t, opts)
	port.AddLines("error:20")

	assert.Error(t, d.Exchange("G99", AckOK))
	assert.Empty(t, clock.Sleeps())
}

func TestCommandLogging(t *testing.T) {
	var logged []string
	opts := DefaultOptions()
	opts.CommandLogging = true
	opts.Logf = func(format string, v ...interface{}) {
		logged = append(logged, strings.TrimSpace(sprintf(format, v...)))
	}
	d, port, _ := newTestDriver(t, opts)
	port.AddLines("ok")

	require.NoError(t, d.Home())
	assert.Contains(t, logged, "1: '$H'")
}

func TestJournalReceivesExchanges(t *testing.T) {
	journal := &recordingJournal{err: errors.New("disk full")}
	opts := DefaultOptions()
	opts.Journal = journal
	d, port, _ := newTestDriver(t, opts)
	port.AddLines("ok", "error:2")

	require.NoError(t, d.Home())
	require.Error(t, d.SelectWorkOrigin())

	require.Len(t, journal.exchanges, 2)
	assert.Equal(t, uint64(1), journal.exchanges[0].Seq)
	assert.True(t, journal.exchanges[0].OK)
	assert.Equal(t, "ok", journal.exchanges[0].Reply)
	assert.Equal(t, "G55", journal.exchanges[1].Command)
	assert.False(t, journal.exchanges[1].OK)
	assert.Equal(t, "error:2", journal.exchanges[1].Reply)
}

func TestDefaultLoggerFollowsSetLogger(t *testing.T) {
	t.Cleanup(func() { monitoring.SetLogger(log.Printf) })
	monitoring.SetLogger(nil)

	port := serialport.NewTestableSerialPort()
	opts := DefaultOptions()
	opts.CommandLogging = true
	opts.Clock = timeutil.NewMockClock(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	d := New(serialport.NewTimeoutReader(port), opts)

	// The logger is swapped after the driver was built.
	var logged []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logged = append(logged, strings.TrimSpace(sprintf(format, v...)))
	})
	port.AddLines("ok")

	require.NoError(t, d.Home())
	assert.Contains(t, logged, "1: '$H'")
}
