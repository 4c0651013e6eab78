package sim

import (
	"context"
	"time"
)

// Runner drives a Device from wall-clock time on a single goroutine. Frames
// arriving from other goroutines are queued and posted between advances, so
// the device itself is never touched concurrently.
type Runner struct {
	dev    *Device
	frames chan [5]byte
}

// NewRunner wraps dev. The device must not be driven by anyone else while
// the runner is active.
func NewRunner(dev *Device) *Runner {
	return &Runner{
		dev:    dev,
		frames: make(chan [5]byte, 16),
	}
}

// Post queues a received frame for the run loop. Non-blocking; when the
// queue is full the frame is dropped, the same as a UART overrun.
func (r *Runner) Post(frame []byte) {
	if len(frame) != 5 {
		return
	}
	var buf [5]byte
	copy(buf[:], frame)
	select {
	case r.frames <- buf:
	default:
	}
}

// Run advances the device in real time until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case buf := <-r.frames:
			r.dev.Post(buf[:])
			r.dev.Poll()
		case now := <-tick.C:
			elapsed := now.Sub(last)
			last = now
			r.dev.Poll()
			r.dev.AdvanceUS(uint64(elapsed.Microseconds()))
		}
	}
}
