package cli

import (
	"fmt"
	"io"
	"strings"
)

// Handler runs a dispatched command. args[0] is the command token exactly
// as the user typed it, which may be an abbreviation of the command name;
// args[1:] are the user arguments.
type Handler func(c *Interpreter, args []string)

// Command is one entry in a command table.
type Command struct {
	Name    string // keyword, must not contain whitespace
	Help    string // one-line description for the help listing
	MaxArgs int    // maximum user-supplied arguments, not counting the name
	Run     Handler
}

// Set is an ordered command table. Resolution prefers an exact name match
// over a unique prefix match; completion candidates keep table order.
// Entries with an empty name are skipped during scans.
type Set struct {
	cmds []Command
}

// NewSet builds a Set from the given commands, in order.
func NewSet(cmds ...Command) *Set {
	return &Set{cmds: cmds}
}

// Add appends a command to the table.
func (s *Set) Add(cmd Command) {
	s.cmds = append(s.cmds, cmd)
}

// Len returns the number of entries, including empty-name placeholders.
func (s *Set) Len() int {
	return len(s.cmds)
}

// Commands returns a copy of the table for listings.
func (s *Set) Commands() []Command {
	out := make([]Command, len(s.cmds))
	copy(out, s.cmds)
	return out
}

// Resolve finds the command for a typed token. An exact name match wins
// outright; otherwise a unique prefix match is returned. Nil means no
// match or an ambiguous prefix; CountPrefix distinguishes the two.
func (s *Set) Resolve(prefix string) *Command {
	if prefix == "" {
		return nil
	}
	var exact, first *Command
	count := 0
	for i := range s.cmds {
		cmd := &s.cmds[i]
		if cmd.Name == "" {
			continue
		}
		if cmd.Name == prefix {
			exact = cmd
		}
		if strings.HasPrefix(cmd.Name, prefix) {
			if first == nil {
				first = cmd
			}
			count++
		}
	}
	if exact != nil {
		return exact
	}
	if count == 1 {
		return first
	}
	return nil
}

// CountPrefix returns how many command names start with prefix.
func (s *Set) CountPrefix(prefix string) int {
	n := 0
	for i := range s.cmds {
		if name := s.cmds[i].Name; name != "" && strings.HasPrefix(name, prefix) {
			n++
		}
	}
	return n
}

// Candidates returns the command names starting with prefix, in table
// order.
func (s *Set) Candidates(prefix string) []string {
	var names []string
	for i := range s.cmds {
		if name := s.cmds[i].Name; name != "" && strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names
}

// CommonPrefix returns the longest common prefix of all names.
func CommonPrefix(names []string) string {
	if len(names) == 0 {
		return ""
	}
	prefix := names[0]
	for _, name := range names[1:] {
		for !strings.HasPrefix(name, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return ""
			}
		}
	}
	return prefix
}

// helpNameWidth is the column the help text starts at in the listing.
const helpNameWidth = 15

// WriteHelp writes the command listing: one row per entry in table order,
// names padded to helpNameWidth columns with at least one space. The
// listing is built in full and written once.
func (s *Set) WriteHelp(w io.Writer) {
	var b strings.Builder
	b.WriteString("Available commands:\r\n")
	for i := range s.cmds {
		cmd := &s.cmds[i]
		if cmd.Name == "" {
			continue
		}
		pad := helpNameWidth - len(cmd.Name)
		if pad < 1 {
			pad = 1
		}
		b.WriteString("  ")
		b.WriteString(cmd.Name)
		b.WriteString(strings.Repeat(" ", pad))
		fmt.Fprintf(&b, "- %s (max args: %d)\r\n", cmd.Help, cmd.MaxArgs)
	}
	io.WriteString(w, b.String())
}
