// Package cli implements a line-oriented command interpreter for raw
// character streams: a device-style console with echo, line editing, tab
// completion and prefix command matching.
//
// An Interpreter is bound to one output writer and one command table.
// Input arrives as raw bytes through FeedByte (or Feed), typically pushed
// by whatever loop owns the transport; completed lines can also be handed
// in directly with ProcessLine. The interpreter is single-owner: exactly
// one goroutine feeds it and it takes no locks.
package cli

import (
	"fmt"
	"io"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultMaxLineLen = 64
	DefaultMaxArgs    = 8
	DefaultPrompt     = "> "
)

// maxPromptLen bounds the prompt; longer prompts are truncated silently.
const maxPromptLen = 17

// Config configures a new Interpreter.
type Config struct {
	// Output receives everything the interpreter emits: echo, prompts,
	// error text and handler output. Required.
	Output io.Writer

	// Commands is the table lines are resolved against. A nil table
	// behaves as an empty one.
	Commands *Set

	Prompt     string // prompt text, DefaultPrompt when empty
	MaxLineLen int    // line buffer capacity in bytes, DefaultMaxLineLen when <= 0
	MaxArgs    int    // token cap per line including the command, DefaultMaxArgs when <= 0

	// Report, when set, is called once for every dispatched non-empty
	// line, before the handler (if any) runs. It executes on the feeding
	// goroutine and must be fast.
	Report func(ExecReport)
}

// Interpreter assembles bytes into lines, resolves them against a command
// table and dispatches handlers. All output goes to the bound writer using
// CRLF line endings; write errors are ignored, a broken transport surfaces
// in the owner's read loop.
type Interpreter struct {
	out    io.Writer
	cmds   *Set
	report func(ExecReport)

	prompt     string
	maxLineLen int
	maxArgs    int

	running  bool
	buf      []byte
	skipNext byte // armed CR/LF pair partner, 0 when unarmed
}

// New builds an Interpreter from cfg. Sizes are fixed at construction;
// only the prompt can change afterwards.
func New(cfg Config) (*Interpreter, error) {
	if cfg.Output == nil {
		return nil, fmt.Errorf("cli: output writer required")
	}
	c := &Interpreter{
		out:        cfg.Output,
		cmds:       cfg.Commands,
		report:     cfg.Report,
		prompt:     truncatePrompt(cfg.Prompt),
		maxLineLen: cfg.MaxLineLen,
		maxArgs:    cfg.MaxArgs,
	}
	if c.cmds == nil {
		c.cmds = NewSet()
	}
	if c.prompt == "" {
		c.prompt = DefaultPrompt
	}
	if c.maxLineLen <= 0 {
		c.maxLineLen = DefaultMaxLineLen
	}
	if c.maxArgs <= 0 {
		c.maxArgs = DefaultMaxArgs
	}
	c.buf = make([]byte, 0, c.maxLineLen)
	return c, nil
}

// Start marks the interpreter running and prints the initial prompt.
func (c *Interpreter) Start() {
	c.running = true
	c.skipNext = 0
	c.printPrompt()
}

// Stop suppresses all further input processing. Typically called from an
// exit command handler; Start resumes.
func (c *Interpreter) Stop() {
	c.running = false
}

// Running reports whether the interpreter is processing input.
func (c *Interpreter) Running() bool {
	return c.running
}

// Output returns the bound writer, for handlers that format their own
// output directly.
func (c *Interpreter) Output() io.Writer {
	return c.out
}

// Prompt returns the current prompt text.
func (c *Interpreter) Prompt() string {
	return c.prompt
}

// SetPrompt changes the prompt, truncating to the length limit.
func (c *Interpreter) SetPrompt(prompt string) {
	c.prompt = truncatePrompt(prompt)
}

// PrintHelp writes the command listing to the output. Meant to be called
// from a help command handler.
func (c *Interpreter) PrintHelp() {
	c.cmds.WriteHelp(c.out)
}

// Print writes s to the output.
func (c *Interpreter) Print(s string) {
	io.WriteString(c.out, s)
}

// Println writes s followed by CRLF.
func (c *Interpreter) Println(s string) {
	io.WriteString(c.out, s+"\r\n")
}

// Printf formats and writes to the output. No line ending is appended.
func (c *Interpreter) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// Feed consumes a batch of input bytes one at a time.
func (c *Interpreter) Feed(p []byte) {
	for _, b := range p {
		c.FeedByte(b)
	}
}

// FeedByte consumes one input byte. A no-op unless the interpreter is
// running.
func (c *Interpreter) FeedByte(b byte) {
	if !c.running {
		return
	}
	if b == '\r' || b == '\n' {
		if b == c.skipNext {
			// Second half of a CRLF or LFCR pair.
			c.skipNext = 0
			return
		}
		c.endLine(b)
		return
	}
	c.skipNext = 0
	switch {
	case b == '\t':
		c.handleTab()
	case b == 0x7F || b == '\b':
		c.backspace()
	case b == 0x03:
		c.cancel()
	case b >= 0x20 && b <= 0x7E:
		c.insert(b)
	}
	// Everything else is dropped without echo.
}

// endLine completes the current line on a terminator byte and arms the
// one-shot skip for the complementary terminator.
func (c *Interpreter) endLine(term byte) {
	if len(c.buf) > 0 {
		c.parseAndExecute(string(c.buf))
	}
	c.buf = c.buf[:0]
	if c.running {
		c.printPrompt()
	}
	if term == '\r' {
		c.skipNext = '\n'
	} else {
		c.skipNext = '\r'
	}
}

func (c *Interpreter) backspace() {
	if len(c.buf) == 0 {
		return
	}
	c.buf = c.buf[:len(c.buf)-1]
	c.Print("\b \b")
}

func (c *Interpreter) cancel() {
	c.buf = c.buf[:0]
	c.Println("^C")
	c.printPrompt()
}

func (c *Interpreter) insert(b byte) {
	if len(c.buf) < c.maxLineLen-1 {
		c.buf = append(c.buf, b)
		c.echo(b)
	} else {
		c.bell()
	}
}

// printPrompt writes the prompt preceded by a line break.
func (c *Interpreter) printPrompt() {
	io.WriteString(c.out, "\r\n"+c.prompt)
}

func (c *Interpreter) echo(b byte) {
	c.out.Write([]byte{b})
}

func (c *Interpreter) bell() {
	c.out.Write([]byte{'\a'})
}

func truncatePrompt(p string) string {
	if len(p) > maxPromptLen {
		return p[:maxPromptLen]
	}
	return p
}
