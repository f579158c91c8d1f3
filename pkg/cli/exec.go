package cli

import "strings"

// Outcome classifies how a dispatched line ended.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeUnknown     Outcome = "unknown"
	OutcomeAmbiguous   Outcome = "ambiguous"
	OutcomeTooManyArgs Outcome = "too_many_args"
)

// ExecReport describes one dispatched line for the Report callback.
type ExecReport struct {
	Line     string  // the line as handed to the dispatcher, leading space trimmed
	Token    string  // command token as typed
	Command  string  // resolved command name, empty when resolution failed
	UserArgs int     // tokens after the command token
	Outcome  Outcome
}

// tokenDelims are the byte values that separate tokens.
const tokenDelims = " \t\r\n\a"

// leadingSpace is the set trimmed from the front of a line before
// tokenizing.
const leadingSpace = " \t\n\v\f\r"

// ProcessLine runs one complete line through the parse and dispatch
// pipeline, bypassing the byte accumulator. A no-op unless running; no
// prompt is printed.
func (c *Interpreter) ProcessLine(line string) {
	if !c.running {
		return
	}
	c.parseAndExecute(line)
}

// parseAndExecute tokenizes a completed line, resolves the command and
// either reports an error or invokes the handler. Errors and the
// pre-handler separator are preceded by a blank line.
func (c *Interpreter) parseAndExecute(line string) {
	line = strings.TrimLeft(line, leadingSpace)
	if line == "" {
		return
	}
	args := splitLine(line, c.maxArgs)
	if len(args) == 0 {
		return
	}
	token := args[0]
	userArgs := len(args) - 1

	cmd := c.cmds.Resolve(token)
	if cmd == nil {
		c.Println("")
		if c.cmds.CountPrefix(token) > 1 {
			c.Println("Error: Ambiguous command '" + token + "'.")
			c.reportExec(line, token, "", userArgs, OutcomeAmbiguous)
		} else {
			c.Println("Error: Unknown command '" + token + "'. Type 'help' for list.")
			c.reportExec(line, token, "", userArgs, OutcomeUnknown)
		}
		return
	}

	if userArgs > cmd.MaxArgs {
		c.Println("")
		c.Printf("Error: Too many arguments for '%s' (max: %d, got: %d).\r\n",
			cmd.Name, cmd.MaxArgs, userArgs)
		c.reportExec(line, token, cmd.Name, userArgs, OutcomeTooManyArgs)
		return
	}

	c.reportExec(line, token, cmd.Name, userArgs, OutcomeOK)
	if cmd.Run != nil {
		c.Println("")
		cmd.Run(c, args)
	}
}

// splitLine splits on runs of delimiter bytes into at most max tokens.
// Tokens past the cap are dropped without error; the per-command argument
// check happens later against the resolved command's own maximum.
func splitLine(line string, max int) []string {
	var args []string
	for len(args) < max {
		line = strings.TrimLeft(line, tokenDelims)
		if line == "" {
			break
		}
		i := strings.IndexAny(line, tokenDelims)
		if i < 0 {
			args = append(args, line)
			break
		}
		args = append(args, line[:i])
		line = line[i:]
	}
	return args
}

func (c *Interpreter) reportExec(line, token, name string, userArgs int, outcome Outcome) {
	if c.report == nil {
		return
	}
	c.report(ExecReport{
		Line:     line,
		Token:    token,
		Command:  name,
		UserArgs: userArgs,
		Outcome:  outcome,
	})
}
