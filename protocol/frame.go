// Package protocol implements the 5-byte serial control protocol of the
// pulse bridge: [0] preamble, [1] opcode, [2] value LSB, [3] value MSB,
// [4] flags.
//
// Framing is sentinel-only. There is no checksum, so a corrupted byte inside
// a frame body is undetectable; known weakness, kept for compatibility with
// the deployed peer.
package protocol

import "errors"

const (
	// Preamble is the fixed sentinel opening every frame.
	Preamble = 0xFF
	// FrameSize is the fixed length of every command and reply frame.
	FrameSize = 5
)

// Raw opcode base nibbles. The low bit of the opcode byte selects the channel.
const (
	cmdSet      = 0x10
	cmdStart    = 0x20
	cmdStop     = 0x30
	cmdReadback = 0x40

	opMask     = 0xF0
	channelBit = 0x01
)

// StopFlagHard in a STOP frame requests an immediate stop regardless of
// waveform position. Without it, STOP takes effect at the next cycle boundary.
const StopFlagHard = 0x01

// Channel selects one of the two timer channels.
type Channel uint8

const (
	// ChannelFast is the pulse-shaping timer; SET values are microseconds.
	ChannelFast Channel = 0
	// ChannelSlow is the cycle timer; SET values are milliseconds.
	ChannelSlow Channel = 1
)

func (c Channel) String() string {
	if c == ChannelSlow {
		return "slow"
	}
	return "fast"
}

// Op is a decoded operation. Frames are decoded exactly once at the receive
// boundary; everything downstream switches on Op, never on raw nibbles.
type Op uint8

const (
	OpInvalid Op = iota
	OpSet
	OpStart
	OpStop
	OpReadback
)

func (o Op) String() string {
	switch o {
	case OpSet:
		return "SET"
	case OpStart:
		return "START"
	case OpStop:
		return "STOP"
	case OpReadback:
		return "READBACK"
	}
	return "INVALID"
}

// Frame is one decoded command or reply.
type Frame struct {
	Op      Op
	Channel Channel
	Value   uint16
	Flags   uint8

	// Raw keeps the original bytes for diagnostics.
	Raw [FrameSize]byte
}

var (
	ErrFrameSize = errors.New("protocol: frame must be 5 bytes")
	ErrPreamble  = errors.New("protocol: bad preamble")
)

// Decode parses a received frame. A length or preamble mismatch is a receiver
// error: the surrounding receive layer discards such input before dispatch.
// An unknown opcode nibble decodes to OpInvalid, not an error.
func Decode(buf []byte) (Frame, error) {
	if len(buf) != FrameSize {
		return Frame{}, ErrFrameSize
	}
	if buf[0] != Preamble {
		return Frame{}, ErrPreamble
	}
	f := Frame{
		Channel: Channel(buf[1] & channelBit),
		Value:   uint16(buf[2]) | uint16(buf[3])<<8,
		Flags:   buf[4],
	}
	copy(f.Raw[:], buf)
	switch buf[1] & opMask {
	case cmdSet:
		f.Op = OpSet
	case cmdStart:
		f.Op = OpStart
	case cmdStop:
		f.Op = OpStop
	case cmdReadback:
		f.Op = OpReadback
	default:
		f.Op = OpInvalid
	}
	return f, nil
}

// EncodeCommand builds a command frame addressed to ch. Encoding OpInvalid
// yields an opcode of 0x00|ch, which the firmware ignores.
func EncodeCommand(op Op, ch Channel, value uint16, flags uint8) [FrameSize]byte {
	var base byte
	switch op {
	case OpSet:
		base = cmdSet
	case OpStart:
		base = cmdStart
	case OpStop:
		base = cmdStop
	case OpReadback:
		base = cmdReadback
	}
	return [FrameSize]byte{
		Preamble,
		base | byte(ch&channelBit),
		byte(value),
		byte(value >> 8),
		flags,
	}
}

// EncodeReadback builds the reply frame for a READBACK of ch: opcode
// 0x40|channel bit, last-applied period in protocol units, last-applied flags.
func EncodeReadback(ch Channel, period uint16, flags uint8) [FrameSize]byte {
	return [FrameSize]byte{
		Preamble,
		cmdReadback | byte(ch&channelBit),
		byte(period),
		byte(period >> 8),
		flags,
	}
}

// IsReadbackReply reports whether opcode is a READBACK reply and, if so, for
// which channel.
func IsReadbackReply(opcode byte) (Channel, bool) {
	if opcode&opMask != cmdReadback {
		return 0, false
	}
	return Channel(opcode & channelBit), true
}
