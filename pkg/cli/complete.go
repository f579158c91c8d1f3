package cli

import "strings"

// handleTab attempts completion of the first word in the live buffer.
// A single candidate completes inline with a trailing space; multiple
// candidates extend to their common prefix, or list the options when no
// further unambiguous progress is possible. Capacity checks leave the
// buffer untouched when the completion would not fit.
func (c *Interpreter) handleTab() {
	word := string(c.buf)

	// Only the command word completes; arguments do not.
	if strings.Contains(word, " ") {
		c.bell()
		return
	}
	if word == "" {
		return
	}

	matches := c.cmds.Candidates(word)
	if len(matches) == 0 {
		c.bell()
		return
	}

	if len(matches) == 1 {
		rest := matches[0][len(word):]
		if len(c.buf)+len(rest) < c.maxLineLen-2 {
			c.buf = append(c.buf, rest...)
			c.buf = append(c.buf, ' ')
			c.Print(rest + " ")
		} else {
			c.bell()
		}
		return
	}

	lcp := CommonPrefix(matches)
	if len(lcp) > len(word) {
		rest := lcp[len(word):]
		if len(c.buf)+len(rest) < c.maxLineLen-1 {
			c.buf = append(c.buf, rest...)
			c.Print(rest)
		} else {
			c.bell()
		}
		return
	}

	// No further unambiguous progress: list the options and reprint the
	// prompt with the unmodified buffer below them.
	c.Println("")
	for _, name := range matches {
		c.Print(name + "  ")
	}
	c.printPrompt()
	c.Print(string(c.buf))
}
