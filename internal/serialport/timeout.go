package serialport

// TimeoutReader adapts a port whose Read returns (0, nil) when its read
// timeout expires, which is how go.bug.st/serial reports it. Without the
// adaptation a bufio.Reader would spin on empty reads instead of giving up.
type TimeoutReader struct {
	SerialPorter
}

// NewTimeoutReader wraps port.
func NewTimeoutReader(port SerialPorter) *TimeoutReader {
	return &TimeoutReader{SerialPorter: port}
}

// Read implements io.Reader.
func (t *TimeoutReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := t.SerialPorter.Read(p)
	if n == 0 && err == nil {
		return 0, ErrReadTimeout
	}
	return n, err
}
