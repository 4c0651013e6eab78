package core

// DebugWriter receives human-readable diagnostic lines from the core.
// Diagnostics are not part of the protocol contract; the default writer
// discards them. Targets route this to the UART text channel, tests to t.Log.
type DebugWriter func(string)

func nopDebug(string) {}

// hexDigits used by the frame trace.
const hexDigits = "0123456789ABCDEF"

// hexByte formats b as two uppercase hex digits.
func hexByte(b byte) string {
	return string([]byte{hexDigits[b>>4], hexDigits[b&0x0F]})
}

// hexFrame formats raw frame bytes as space-separated hex pairs.
func hexFrame(buf []byte) string {
	out := make([]byte, 0, len(buf)*3)
	for i, b := range buf {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, hexDigits[b>>4], hexDigits[b&0x0F])
	}
	return string(out)
}
