package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopulse/protocol"
)

func TestClampFast(t *testing.T) {
	testCases := []struct {
		in       uint16
		expected uint16
	}{
		{0, 10},
		{9, 10},
		{10, 10},
		{11, 11},
		{500, 500},
		{1000, 1000},
		{1001, 1000},
		{65535, 1000},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, ClampFast(tc.in), "ClampFast(%d)", tc.in)
	}
}

func TestFastTicks(t *testing.T) {
	testCases := []struct {
		us       uint16
		expected uint32
	}{
		{10, 1},   // minimum period = one tick
		{14, 1},   // rounds down below the half mark
		{15, 2},   // half rounds up
		{95, 10},  // (95+5)/10
		{500, 50},
		{994, 99},
		{995, 100},
		{1000, 100},
		{9, 1},    // clamped to 10 µs first
		{2000, 100},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, FastTicks(tc.us), "FastTicks(%d)", tc.us)
	}
}

func TestClampSlow(t *testing.T) {
	testCases := []struct {
		in       uint16
		expected uint16
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{10000, 10000},
		{10001, 10000},
		{65535, 10000},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, ClampSlow(tc.in), "ClampSlow(%d)", tc.in)
	}
}

func TestSlowTicks(t *testing.T) {
	testCases := []struct {
		ms       uint16
		expected uint32
	}{
		{0, 10},        // clamps to 1 ms
		{1, 10},
		{100, 1000},
		{10000, 100000},
		{65535, 100000}, // clamps to 10 s
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, SlowTicks(tc.ms), "SlowTicks(%d)", tc.ms)
	}
}

func TestApplyFastProgramsTimer(t *testing.T) {
	r := newTestRig()

	r.conv.Apply(protocol.ChannelFast, 500, 0x02)

	assert.Equal(t, []string{"stop", "clear_pending", "set_period", "reset_counter"}, r.fast.calls,
		"apply must stop and clear before reprogramming")
	assert.Equal(t, uint32(50), r.fast.period)
	assert.False(t, r.fast.running, "apply does not arm the timer")
	assert.Empty(t, r.slow.calls, "fast apply must not touch the slow timer")

	cfg := r.store.Get(protocol.ChannelFast)
	assert.Equal(t, uint16(500), cfg.Period)
	assert.Equal(t, uint8(0x02), cfg.Flags)
}

func TestApplySlowProgramsTimer(t *testing.T) {
	r := newTestRig()

	r.conv.Apply(protocol.ChannelSlow, 250, 0x00)

	require.Equal(t, uint32(2500), r.slow.period)
	assert.Empty(t, r.fast.calls)
	assert.Equal(t, uint16(250), r.store.Get(protocol.ChannelSlow).Period)
}

func TestApplyStoresClampedInputUnits(t *testing.T) {
	r := newTestRig()

	// Out-of-range input clamps silently; the stored value is the clamped
	// protocol-unit value, not the tick count.
	r.conv.Apply(protocol.ChannelFast, 9, 0x00)
	assert.Equal(t, uint16(10), r.store.Get(protocol.ChannelFast).Period)
	assert.Equal(t, uint32(1), r.fast.period)

	r.conv.Apply(protocol.ChannelFast, 5000, 0x00)
	assert.Equal(t, uint16(1000), r.store.Get(protocol.ChannelFast).Period)
	assert.Equal(t, uint32(100), r.fast.period)

	r.conv.Apply(protocol.ChannelSlow, 0, 0x00)
	assert.Equal(t, uint16(1), r.store.Get(protocol.ChannelSlow).Period)
	assert.Equal(t, uint32(10), r.slow.period)
}

func TestApplyOverwritesPreviousConfig(t *testing.T) {
	r := newTestRig()

	r.conv.Apply(protocol.ChannelFast, 500, 0x00)
	r.conv.Apply(protocol.ChannelFast, 9, 0x00)

	cfg := r.store.Get(protocol.ChannelFast)
	assert.Equal(t, uint16(10), cfg.Period, "readback must report 10, not 9")
}

func TestConfigStoreIsPerChannel(t *testing.T) {
	r := newTestRig()

	r.conv.Apply(protocol.ChannelFast, 100, 0x01)
	r.conv.Apply(protocol.ChannelSlow, 200, 0x02)

	assert.Equal(t, ChannelConfig{Period: 100, Flags: 0x01}, r.store.Get(protocol.ChannelFast))
	assert.Equal(t, ChannelConfig{Period: 200, Flags: 0x02}, r.store.Get(protocol.ChannelSlow))
}
