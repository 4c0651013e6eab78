package device

import (
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopulse/protocol"
)

// mockPort feeds canned reply bytes and records everything written. Flush is
// counted but keeps the canned bytes, like a TCP port with data in flight.
type mockPort struct {
	reads   bytes.Reader
	writes  bytes.Buffer
	flushes int
	closed  bool
}

func newMockPort(reply []byte) *mockPort {
	p := &mockPort{}
	p.reads.Reset(reply)
	return p
}

func (p *mockPort) Read(b []byte) (int, error)  { return p.reads.Read(b) }
func (p *mockPort) Write(b []byte) (int, error) { return p.writes.Write(b) }
func (p *mockPort) Flush() error                { p.flushes++; return nil }
func (p *mockPort) Close() error                { p.closed = true; return nil }

// timeoutPort fails its first reads with a deadline error, the way a
// TCP-backed port reports that its short per-read deadline elapsed.
type timeoutPort struct {
	mockPort
	timeouts int
}

func (p *timeoutPort) Read(b []byte) (int, error) {
	if p.timeouts > 0 {
		p.timeouts--
		return 0, &net.OpError{Op: "read", Net: "tcp", Err: os.ErrDeadlineExceeded}
	}
	return p.mockPort.Read(b)
}

func newTestDevice(reply []byte) (*Device, *mockPort) {
	port := newMockPort(reply)
	d := NewWithPort(port)
	d.Timeout = 50 * time.Millisecond
	return d, port
}

func TestSetWritesFrame(t *testing.T) {
	d, port := newTestDevice(nil)

	require.NoError(t, d.Set(protocol.ChannelSlow, 250, 0x01))

	assert.Equal(t, []byte{0xFF, 0x11, 0xFA, 0x00, 0x01}, port.writes.Bytes())
}

func TestStartAndStopFrames(t *testing.T) {
	d, port := newTestDevice(nil)

	require.NoError(t, d.Start(25))
	require.NoError(t, d.Stop(false))
	require.NoError(t, d.Stop(true))

	assert.Equal(t, []byte{
		0xFF, 0x20, 0x19, 0x00, 0x00,
		0xFF, 0x30, 0x00, 0x00, 0x00,
		0xFF, 0x30, 0x00, 0x00, 0x01,
	}, port.writes.Bytes())
}

func TestReadbackParsesReply(t *testing.T) {
	d, port := newTestDevice([]byte{0xFF, 0x40, 0xF4, 0x01, 0x02})

	period, flags, err := d.Readback(protocol.ChannelFast)
	require.NoError(t, err)
	assert.Equal(t, uint16(500), period)
	assert.Equal(t, uint8(0x02), flags)

	assert.Equal(t, []byte{0xFF, 0x40, 0x00, 0x00, 0x00}, port.writes.Bytes())
}

func TestReadbackSkipsFirmwareText(t *testing.T) {
	reply := append([]byte("CMD: SET slow OK (period=123)\r\n"), 0xFF, 0x41, 0x7B, 0x00, 0x00)
	d, _ := newTestDevice(reply)

	period, _, err := d.Readback(protocol.ChannelSlow)
	require.NoError(t, err)
	assert.Equal(t, uint16(123), period)

	assert.Contains(t, d.DrainText(), "SET slow OK")
	assert.Empty(t, d.DrainText(), "drain clears the buffer")
}

func TestReadbackSkipsStaleReply(t *testing.T) {
	d, _ := newTestDevice([]byte{
		0xFF, 0x41, 0x63, 0x00, 0x00, // stale slow reply
		0xFF, 0x40, 0x0A, 0x00, 0x00, // the fast reply we asked for
	})

	period, _, err := d.Readback(protocol.ChannelFast)
	require.NoError(t, err)
	assert.Equal(t, uint16(10), period)
}

func TestReadbackResyncsOnStrayPreamble(t *testing.T) {
	d, _ := newTestDevice([]byte{
		0xFF, 0x58, // 0xFF inside text, not a reply opcode
		0xFF, 0x40, 0x64, 0x00, 0x00,
	})

	period, _, err := d.Readback(protocol.ChannelFast)
	require.NoError(t, err)
	assert.Equal(t, uint16(100), period)
}

func TestReadbackRetriesPortTimeout(t *testing.T) {
	// The port's own read deadline is shorter than Device.Timeout; a few
	// empty reads must not abort the exchange.
	port := &timeoutPort{timeouts: 5}
	port.reads.Reset([]byte{0xFF, 0x40, 0xF4, 0x01, 0x00})
	d := NewWithPort(port)
	d.Timeout = 2 * time.Second

	period, _, err := d.Readback(protocol.ChannelFast)
	require.NoError(t, err)
	assert.Equal(t, uint16(500), period)
}

func TestTransientReadClassification(t *testing.T) {
	assert.True(t, isTransientRead(io.EOF), "tarm read timeout")
	assert.True(t, isTransientRead(&net.OpError{Op: "read", Net: "tcp", Err: os.ErrDeadlineExceeded}),
		"TCP read deadline")
	assert.False(t, isTransientRead(errors.New("device unplugged")),
		"a real failure must abort the exchange")
}

func TestReadbackFlushesPort(t *testing.T) {
	d, port := newTestDevice([]byte{0xFF, 0x40, 0x0A, 0x00, 0x00})

	_, _, err := d.Readback(protocol.ChannelFast)
	require.NoError(t, err)
	assert.Equal(t, 1, port.flushes, "stale input must be flushed before the request")

	require.NoError(t, d.Set(protocol.ChannelFast, 100, 0))
	assert.Equal(t, 1, port.flushes, "fire-and-forget commands do not flush")
}

func TestReadbackTimeout(t *testing.T) {
	d, _ := newTestDevice(nil)

	_, _, err := d.Readback(protocol.ChannelFast)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestSendRequiresConnection(t *testing.T) {
	d := New()

	assert.Error(t, d.Start(0))
}

func TestCloseClosesPort(t *testing.T) {
	d, port := newTestDevice(nil)

	require.NoError(t, d.Close())
	assert.True(t, port.closed)
	assert.Error(t, d.Start(0), "closed device must refuse commands")
}
