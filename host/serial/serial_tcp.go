package serial

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// TCPPort adapts a TCP connection to the Port interface so the host tools
// can talk to a pulsesim daemon instead of real hardware. Device strings of
// the form "tcp:host:port" select it.
type TCPPort struct {
	conn        net.Conn
	readTimeout time.Duration
}

// IsTCP reports whether the device string names a TCP endpoint.
func IsTCP(device string) bool {
	return strings.HasPrefix(device, "tcp:")
}

// OpenTCP dials a simulator endpoint given as "tcp:host:port".
func OpenTCP(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	addr := strings.TrimPrefix(cfg.Device, "tcp:")

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to simulator %s: %w", addr, err)
	}

	return &TCPPort{
		conn:        conn,
		readTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	}, nil
}

// Read reads from the connection, honoring the configured read timeout
func (p *TCPPort) Read(b []byte) (int, error) {
	if p.readTimeout > 0 {
		if err := p.conn.SetReadDeadline(time.Now().Add(p.readTimeout)); err != nil {
			return 0, err
		}
	}
	return p.conn.Read(b)
}

// Write writes to the connection
func (p *TCPPort) Write(b []byte) (int, error) {
	return p.conn.Write(b)
}

// Close closes the connection
func (p *TCPPort) Close() error {
	return p.conn.Close()
}

// Flush is a no-op: TCP has no local buffer to discard, stale bytes are
// skipped by the reader's preamble resync instead.
func (p *TCPPort) Flush() error {
	return nil
}
