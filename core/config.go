package core

import "gopulse/protocol"

// Period limits in protocol units.
const (
	FastPeriodMinUS = 10
	FastPeriodMaxUS = 1000
	SlowPeriodMinMS = 1
	SlowPeriodMaxMS = 10000
)

// Slow-channel tick limits. The floor protects the timer against a period
// below its hardware minimum (0.5 ms), the ceiling caps a cycle at 10 s.
const (
	slowTicksMin = 5
	slowTicksMax = 100000
)

// ChannelConfig holds the last-applied period and flags for one channel.
// Period is in protocol units (µs for fast, ms for slow), not ticks: READBACK
// must report what the host set, post clamping.
type ChannelConfig struct {
	Period uint16
	Flags  uint8
}

// ConfigStore keeps one ChannelConfig per channel. Written by the period
// converter, read by the readback encoder; the sequencer never touches it.
type ConfigStore struct {
	cfg [2]ChannelConfig
}

// Get returns the stored record for ch.
func (s *ConfigStore) Get(ch protocol.Channel) ChannelConfig {
	return s.cfg[ch&1]
}

func (s *ConfigStore) put(ch protocol.Channel, c ChannelConfig) {
	s.cfg[ch&1] = c
}

// ClampFast limits a fast-channel period to [10, 1000] µs.
func ClampFast(us uint16) uint16 {
	if us < FastPeriodMinUS {
		return FastPeriodMinUS
	}
	if us > FastPeriodMaxUS {
		return FastPeriodMaxUS
	}
	return us
}

// FastTicks converts a fast-channel period to 10 µs ticks, rounding half up.
func FastTicks(us uint16) uint32 {
	t := (uint32(ClampFast(us)) + 5) / 10
	if t == 0 {
		t = 1
	}
	return t
}

// ClampSlow limits a slow-channel period to [1, 10000] ms.
func ClampSlow(ms uint16) uint16 {
	if ms < SlowPeriodMinMS {
		return SlowPeriodMinMS
	}
	if ms > SlowPeriodMaxMS {
		return SlowPeriodMaxMS
	}
	return ms
}

// SlowTicks converts a slow-channel period to 100 µs ticks, re-clamped to the
// timer's feasible range.
func SlowTicks(ms uint16) uint32 {
	t := uint32(ClampSlow(ms)) * 10
	if t < slowTicksMin {
		t = slowTicksMin
	}
	if t > slowTicksMax {
		t = slowTicksMax
	}
	return t
}

// Converter programs channel periods and records what was applied.
type Converter struct {
	fast  TimerDriver
	slow  TimerDriver
	store *ConfigStore
}

// NewConverter returns a Converter over the two channel timers.
func NewConverter(fast, slow TimerDriver, store *ConfigStore) *Converter {
	return &Converter{fast: fast, slow: slow, store: store}
}

// Apply stops the addressed timer, programs the new period and records the
// clamped value in protocol units. Out-of-range input is clamped silently;
// the stored value is observable through READBACK.
//
// Runs in main-loop context; the timer interrupt for this channel is masked
// for the duration so it never observes a half-programmed timer.
func (c *Converter) Apply(ch protocol.Channel, raw uint16, flags uint8) {
	st := disableInterrupts()
	defer restoreInterrupts(st)

	var tim TimerDriver
	var period uint16
	var ticks uint32
	if ch == protocol.ChannelSlow {
		tim = c.slow
		period = ClampSlow(raw)
		ticks = SlowTicks(raw)
	} else {
		tim = c.fast
		period = ClampFast(raw)
		ticks = FastTicks(raw)
	}

	tim.Stop()
	tim.ClearPending()
	tim.SetPeriod(ticks)
	tim.ResetCounter()

	c.store.put(ch, ChannelConfig{Period: period, Flags: flags})
}
