//go:build rp2040

package main

import (
	"machine"

	"gopulse/core"
	"gopulse/protocol"
)

// initUART brings up the control link at the protocol's fixed rate.
func initUART() *machine.UART {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
	return uart
}

// serialTX implements core.SerialDriver for readback replies.
type serialTX struct {
	uart *machine.UART
}

func (s serialTX) Transmit(buf []byte) {
	s.uart.Write(buf)
}

// Frame assembly state. Bytes outside a frame are discarded until the next
// preamble.
var (
	rxFrame [protocol.FrameSize]byte
	rxFill  int
)

// pollUART drains the UART receive buffer and posts complete frames to the
// command mailbox.
func pollUART(uart *machine.UART, mail *core.Mailbox) {
	for uart.Buffered() > 0 {
		b, err := uart.ReadByte()
		if err != nil {
			return
		}
		if rxFill == 0 && b != protocol.Preamble {
			continue
		}
		rxFrame[rxFill] = b
		rxFill++
		if rxFill == protocol.FrameSize {
			mail.Post(rxFrame[:])
			rxFill = 0
		}
	}
}
