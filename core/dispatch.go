package core

import "gopulse/protocol"

// Dispatcher routes decoded command frames to the period converter, the
// sequencer and the readback encoder. Frames reaching Dispatch are already
// length- and preamble-validated by the receive layer.
type Dispatcher struct {
	conv   *Converter
	seq    *Sequencer
	store  *ConfigStore
	serial SerialDriver
	debug  DebugWriter
}

// NewDispatcher wires the dispatcher to its collaborators.
func NewDispatcher(conv *Converter, seq *Sequencer, store *ConfigStore, serial SerialDriver) *Dispatcher {
	return &Dispatcher{
		conv:   conv,
		seq:    seq,
		store:  store,
		serial: serial,
		debug:  nopDebug,
	}
}

// SetDebugWriter routes dispatch diagnostics. Passing nil restores the no-op
// writer.
func (d *Dispatcher) SetDebugWriter(w DebugWriter) {
	if w == nil {
		w = nopDebug
	}
	d.debug = w
}

// Dispatch executes one command. Main-loop context only.
//
// SET programs the addressed channel; START arms the sequence and records the
// requested cycle target; STOP requests a soft stop, or a hard stop when the
// hard flag is set; READBACK replies with the stored channel config. An
// unrecognized operation changes no state.
func (d *Dispatcher) Dispatch(f protocol.Frame) {
	switch f.Op {
	case protocol.OpSet:
		d.conv.Apply(f.Channel, f.Value, f.Flags)
		d.debug("CMD: SET " + f.Channel.String() + " OK (period=" + utoa(uint32(f.Value)) + ")")

	case protocol.OpStart:
		// Value carries the requested cycle target; 0 = run until STOP.
		d.seq.Start(f.Value)
		d.debug("CMD: START OK (target=" + utoa(uint32(f.Value)) + ")")

	case protocol.OpStop:
		if f.Flags&protocol.StopFlagHard != 0 {
			d.seq.HardStop()
			d.debug("CMD: STOP (hard) done")
		} else {
			d.seq.RequestSoftStop()
			d.debug("CMD: STOP (soft) requested")
		}

	case protocol.OpReadback:
		d.sendReadback(f.Channel)
		d.debug("CMD: READBACK " + f.Channel.String() + " OK")

	default:
		d.debug("CMD: unknown opcode 0x" + hexByte(f.Raw[1]))
	}

	d.debug("RX: " + hexFrame(f.Raw[:]))
}

func (d *Dispatcher) sendReadback(ch protocol.Channel) {
	cfg := d.store.Get(ch)
	rep := protocol.EncodeReadback(ch, cfg.Period, cfg.Flags)
	d.serial.Transmit(rep[:])
}
