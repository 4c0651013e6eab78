package core

import (
	"sync/atomic"

	"gopulse/protocol"
)

// Mailbox passes one received frame from the receive interrupt context to the
// main loop. The receive side only copies bytes and sets the ready flag; it
// never touches sequencer or config state.
type Mailbox struct {
	ready uint32 // atomic
	buf   [protocol.FrameSize]byte
}

// Post stores a frame for the main loop. Interrupt context. Input with a
// wrong length or sentinel is silently discarded here, before it can reach
// the dispatcher. A frame arriving before the previous one was consumed
// overwrites it.
func (m *Mailbox) Post(buf []byte) {
	if len(buf) != protocol.FrameSize || buf[0] != protocol.Preamble {
		return
	}
	st := disableInterrupts()
	copy(m.buf[:], buf)
	atomic.StoreUint32(&m.ready, 1)
	restoreInterrupts(st)
}

// Take returns the pending frame, if any. Main-loop context only. The
// copy-and-clear runs with interrupts masked: a receive posting mid-copy
// must not tear the frame, and a frame posted between the copy and the flag
// clear must not be lost.
func (m *Mailbox) Take() ([protocol.FrameSize]byte, bool) {
	var out [protocol.FrameSize]byte
	if atomic.LoadUint32(&m.ready) == 0 {
		return out, false
	}
	st := disableInterrupts()
	copy(out[:], m.buf[:])
	atomic.StoreUint32(&m.ready, 0)
	restoreInterrupts(st)
	return out, true
}

// Controller is the cooperative main loop: poll the mailbox, decode once at
// the boundary, dispatch. Nothing here blocks.
type Controller struct {
	mail Mailbox
	disp *Dispatcher
}

// NewController returns a Controller feeding disp.
func NewController(disp *Dispatcher) *Controller {
	return &Controller{disp: disp}
}

// Mailbox exposes the command mailbox for the platform receive path.
func (c *Controller) Mailbox() *Mailbox {
	return &c.mail
}

// Poll dispatches at most one pending command and reports whether one ran.
// Call from the platform main loop.
func (c *Controller) Poll() bool {
	buf, ok := c.mail.Take()
	if !ok {
		return false
	}
	f, err := protocol.Decode(buf[:])
	if err != nil {
		// Post already filtered length and sentinel; unreachable in practice.
		return false
	}
	c.disp.Dispatch(f)
	return true
}
