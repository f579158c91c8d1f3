package console

import "io"

// Telnet protocol bytes (RFC 854/857/858).
const (
	telnetIAC  = 0xFF
	telnetWill = 0xFB
	telnetDont = 0xFE
	telnetEcho = 0x01
	telnetSGA  = 0x03
)

// negotiateCharacterMode asks the client to send keystrokes immediately
// and leave echo to the server: WILL ECHO, WILL SUPPRESS-GO-AHEAD.
// Clients that do not speak telnet see three-byte sequences starting
// with 0xFF, which raw terminals ignore.
func negotiateCharacterMode(w io.Writer) {
	w.Write([]byte{
		telnetIAC, telnetWill, telnetEcho,
		telnetIAC, telnetWill, telnetSGA,
	})
}

// telnetFilter strips telnet command sequences from an input stream,
// keeping state across reads so a sequence split between two reads is
// still removed. IAC IAC unescapes to a literal 0xFF.
type telnetFilter struct {
	state int
}

const (
	tsData = iota
	tsIAC  // seen IAC, next byte is a command
	tsOpt  // seen IAC + option verb, next byte is the option
)

func (f *telnetFilter) filter(in []byte) []byte {
	out := in[:0]
	for _, b := range in {
		switch f.state {
		case tsData:
			if b == telnetIAC {
				f.state = tsIAC
			} else {
				out = append(out, b)
			}
		case tsIAC:
			switch {
			case b == telnetIAC:
				out = append(out, b)
				f.state = tsData
			case b >= telnetWill && b <= telnetDont:
				// WILL/WONT/DO/DONT carry one option byte.
				f.state = tsOpt
			default:
				f.state = tsData
			}
		case tsOpt:
			f.state = tsData
		}
	}
	return out
}
