// pulsesim runs the firmware core against a simulated board and serves its
// serial link over TCP. pulsectl connects to it with -p tcp:host:port, so
// the whole host stack can be exercised without hardware.
package main

import (
	"context"
	"flag"
	"io"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/golang/glog"

	"gopulse/protocol"
	"gopulse/sim"
)

var listenAddr = flag.String("listen", "localhost:7777", "TCP address to serve the simulated serial link on")

// replyMux forwards firmware output to whichever client is connected,
// dropping it when nobody is.
type replyMux struct {
	mu sync.Mutex
	w  io.Writer
}

func (m *replyMux) set(w io.Writer) {
	m.mu.Lock()
	m.w = w
	m.mu.Unlock()
}

func (m *replyMux) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.w == nil {
		return len(p), nil
	}
	return m.w.Write(p)
}

func main() {
	flag.Parse()

	mux := &replyMux{}
	dev := sim.New(mux)
	dev.SetDebugWriter(func(s string) {
		// The real firmware prints its diagnostics onto the same UART
		glog.V(1).Info(s)
		mux.Write([]byte(s + "\r\n"))
	})

	runner := sim.NewRunner(dev)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go runner.Run(ctx)

	ln, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		glog.Exitf("listen %s: %v", *listenAddr, err)
	}
	defer ln.Close()
	glog.Infof("simulated board on %s", *listenAddr)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	// One client at a time, like a serial port
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			glog.Warningf("accept: %v", err)
			continue
		}
		glog.Infof("client %s connected", conn.RemoteAddr())
		mux.set(conn)
		serve(conn, runner)
		mux.set(nil)
		conn.Close()
		glog.Infof("client %s disconnected", conn.RemoteAddr())
	}
}

// serve assembles 5-byte frames from the byte stream and posts them to the
// runner. Bytes outside a frame are discarded until the next preamble, the
// same resync the firmware UART handler performs.
func serve(conn net.Conn, runner *sim.Runner) {
	var (
		frame [protocol.FrameSize]byte
		fill  int
		buf   [64]byte
	)
	for {
		n, err := conn.Read(buf[:])
		if err != nil {
			return
		}
		for _, b := range buf[:n] {
			if fill == 0 && b != protocol.Preamble {
				continue
			}
			frame[fill] = b
			fill++
			if fill == protocol.FrameSize {
				runner.Post(frame[:])
				fill = 0
			}
		}
	}
}
