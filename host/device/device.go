// Package device is the host-side peer of the pulse generator firmware. It
// frames commands onto the serial link and demultiplexes the return stream,
// which interleaves binary READBACK replies with the firmware's debug text.
package device

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"

	"gopulse/host/serial"
	"gopulse/protocol"
)

// ErrTimeout is returned when the firmware does not answer a READBACK
// within the device timeout.
var ErrTimeout = errors.New("timed out waiting for reply")

// Device represents a connection to a pulse generator board
type Device struct {
	port serial.Port

	// Timeout bounds each READBACK exchange
	Timeout time.Duration

	// Text printed by the firmware between replies accumulates here
	text strings.Builder

	connected bool
}

// New creates a new Device instance (not yet connected)
func New() *Device {
	return &Device{
		Timeout: 2 * time.Second,
	}
}

// NewWithPort wraps an already-open port, used by tests and by callers that
// manage the port themselves
func NewWithPort(port serial.Port) *Device {
	d := New()
	d.port = port
	d.connected = true
	return d
}

// Connect opens the named device. Device strings of the form
// "tcp:host:port" connect to a pulsesim daemon instead of real hardware.
func (d *Device) Connect(device string) error {
	return d.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig connects with a custom serial config
func (d *Device) ConnectWithConfig(cfg *serial.Config) error {
	var (
		port serial.Port
		err  error
	)
	if serial.IsTCP(cfg.Device) {
		port, err = serial.OpenTCP(cfg)
	} else {
		port, err = serial.Open(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to open port: %w", err)
	}

	d.port = port
	d.connected = true

	// Give the board time to settle if it just reset on DTR
	time.Sleep(100 * time.Millisecond)

	return nil
}

// Close closes the connection
func (d *Device) Close() error {
	d.connected = false
	if d.port != nil {
		return d.port.Close()
	}
	return nil
}

// Set programs one channel's period. Fast channel values are in µs, slow
// channel values in ms; the firmware clamps out-of-range values silently.
func (d *Device) Set(ch protocol.Channel, value uint16, flags uint8) error {
	return d.send(protocol.EncodeCommand(protocol.OpSet, ch, value, flags))
}

// Start begins pulse generation. cycles is recorded by the firmware as the
// run target; zero means run until stopped.
func (d *Device) Start(cycles uint16) error {
	return d.send(protocol.EncodeCommand(protocol.OpStart, protocol.ChannelFast, cycles, 0))
}

// Stop halts pulse generation. A soft stop completes the current cycle; a
// hard stop kills the output immediately.
func (d *Device) Stop(hard bool) error {
	var flags uint8
	if hard {
		flags = protocol.StopFlagHard
	}
	return d.send(protocol.EncodeCommand(protocol.OpStop, protocol.ChannelFast, 0, flags))
}

// Readback queries one channel's stored period and flags. The reply carries
// the clamped value the firmware is actually using.
//
// The port is flushed before the request, so replies left over from an
// aborted exchange cannot be taken for this one. Unread firmware text in the
// OS buffer is dropped along with them.
func (d *Device) Readback(ch protocol.Channel) (uint16, uint8, error) {
	if !d.connected {
		return 0, 0, fmt.Errorf("not connected")
	}
	if err := d.port.Flush(); err != nil {
		return 0, 0, fmt.Errorf("flush failed: %w", err)
	}
	if err := d.send(protocol.EncodeCommand(protocol.OpReadback, ch, 0, 0)); err != nil {
		return 0, 0, err
	}
	return d.readReply(ch)
}

// DrainText returns the firmware's debug text captured so far and clears
// the buffer.
func (d *Device) DrainText() string {
	s := d.text.String()
	d.text.Reset()
	return s
}

func (d *Device) send(frame [protocol.FrameSize]byte) error {
	if !d.connected {
		return fmt.Errorf("not connected")
	}
	glog.V(2).Infof("TX: % X", frame[:])
	if _, err := d.port.Write(frame[:]); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// readReply scans the return stream for a reply to a READBACK on ch.
// Anything that is not a framed reply is firmware text and is buffered for
// DrainText. A reply for the other channel is stale and skipped.
func (d *Device) readReply(want protocol.Channel) (uint16, uint8, error) {
	deadline := time.Now().Add(d.Timeout)
	for {
		b, err := d.readByte(deadline)
		if err != nil {
			return 0, 0, err
		}
		if b != protocol.Preamble {
			d.text.WriteByte(b)
			continue
		}

		opcode, err := d.readByte(deadline)
		if err != nil {
			return 0, 0, err
		}
		ch, ok := protocol.IsReadbackReply(opcode)
		if !ok {
			// A stray 0xFF inside the text stream
			d.text.WriteByte(protocol.Preamble)
			d.text.WriteByte(opcode)
			continue
		}

		var rest [3]byte
		for i := range rest {
			rest[i], err = d.readByte(deadline)
			if err != nil {
				return 0, 0, err
			}
		}
		if ch != want {
			glog.V(2).Infof("RX: stale reply for %s channel, skipping", ch)
			continue
		}

		period := uint16(rest[0]) | uint16(rest[1])<<8
		glog.V(2).Infof("RX: %s period=%d flags=0x%02X", ch, period, rest[2])
		return period, rest[2], nil
	}
}

func (d *Device) readByte(deadline time.Time) (byte, error) {
	var buf [1]byte
	for {
		n, err := d.port.Read(buf[:])
		if n > 0 {
			return buf[0], nil
		}
		if err != nil && !isTransientRead(err) {
			return 0, err
		}
		if time.Now().After(deadline) {
			return 0, ErrTimeout
		}
	}
}

// isTransientRead reports whether err only means no data arrived within the
// port's own read timeout, which is shorter than Device.Timeout and must not
// abort the exchange. tarm/serial signals this as io.EOF, a net-backed port
// as a deadline error.
func isTransientRead(err error) bool {
	if err == io.EOF || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
