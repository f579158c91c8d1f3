// Package serial opens a local serial device as a raw byte stream for
// the daemon's serial console. The port is configured 8N1 with echo and
// canonical processing off; all line handling is the interpreter's job.
//
// Only Linux is supported; Open returns an error elsewhere.
package serial

import (
	"fmt"
	"sort"
)

// SupportedBauds lists the accepted baud rates, ascending.
func SupportedBauds() []int {
	rates := make([]int, 0, len(baudRates))
	for rate := range baudRates {
		rates = append(rates, rate)
	}
	sort.Ints(rates)
	return rates
}

func unsupportedBaud(baud int) error {
	return fmt.Errorf("serial: unsupported baud rate %d (supported: %v)",
		baud, SupportedBauds())
}
