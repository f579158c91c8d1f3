package daemon

import (
	"strings"
	"testing"

	"github.com/psaab/microcli/pkg/config"
	"github.com/psaab/microcli/pkg/logging"
)

// newTestDaemon wires just enough of a daemon to execute lines without
// any listeners.
func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	d := New(Options{})
	d.cfg = config.Default()
	d.audit = logging.NewAuditLog(64)
	d.commands = d.buildCommands()
	return d
}

func exec(t *testing.T, d *Daemon, line string) string {
	t.Helper()
	out, err := d.ExecuteLine(line)
	if err != nil {
		t.Fatalf("ExecuteLine(%q): %v", line, err)
	}
	return out
}

func TestExecuteLine_Version(t *testing.T) {
	d := newTestDaemon(t)
	out := exec(t, d, "version")
	if !strings.Contains(out, "microclid") {
		t.Errorf("version output = %q", out)
	}
}

func TestExecuteLine_Echo(t *testing.T) {
	d := newTestDaemon(t)
	out := exec(t, d, "echo hello world")
	if !strings.Contains(out, "hello world") {
		t.Errorf("echo output = %q", out)
	}
}

func TestExecuteLine_PrefixResolvesUniquely(t *testing.T) {
	d := newTestDaemon(t)
	// "st" uniquely prefixes "status".
	out := exec(t, d, "st")
	if !strings.Contains(out, "uptime:") {
		t.Errorf("status via prefix = %q", out)
	}
}

func TestExecuteLine_AmbiguousPrefix(t *testing.T) {
	d := newTestDaemon(t)
	// "s" prefixes both "status" and "sessions".
	out := exec(t, d, "s")
	if !strings.Contains(out, "Ambiguous command 's'") {
		t.Errorf("ambiguous output = %q", out)
	}
}

func TestExecuteLine_Unknown(t *testing.T) {
	d := newTestDaemon(t)
	out := exec(t, d, "frobnicate")
	if !strings.Contains(out, "Unknown command 'frobnicate'") {
		t.Errorf("unknown output = %q", out)
	}
}

func TestExecuteLine_ArityError(t *testing.T) {
	d := newTestDaemon(t)
	out := exec(t, d, "exit now")
	if !strings.Contains(out, "Too many arguments for 'exit' (max: 0, got: 1)") {
		t.Errorf("arity output = %q", out)
	}
}

func TestExecuteLine_Audited(t *testing.T) {
	d := newTestDaemon(t)
	exec(t, d, "echo one")
	exec(t, d, "nope")

	recs := d.audit.Latest(2)
	if len(recs) != 2 {
		t.Fatalf("audit records = %d, want 2", len(recs))
	}
	if recs[0].Session != "api" || recs[0].Outcome != "unknown" || recs[0].Command != "nope" {
		t.Errorf("latest record = %+v", recs[0])
	}
	if recs[1].Command != "echo" || recs[1].Outcome != "ok" || recs[1].UserArgs != 1 {
		t.Errorf("echo record = %+v", recs[1])
	}
}

func TestExecuteLine_History(t *testing.T) {
	d := newTestDaemon(t)
	exec(t, d, "echo one")
	exec(t, d, "bogus")

	out := exec(t, d, "history")
	if !strings.Contains(out, `"echo one"`) || !strings.Contains(out, `"bogus"`) {
		t.Errorf("history output = %q", out)
	}

	out = exec(t, d, "history 10 unknown")
	if strings.Contains(out, `"echo one"`) || !strings.Contains(out, `"bogus"`) {
		t.Errorf("filtered history output = %q", out)
	}

	out = exec(t, d, "history zero")
	if !strings.Contains(out, "count must be a positive number") {
		t.Errorf("bad count output = %q", out)
	}
}

func TestExecuteLine_Help(t *testing.T) {
	d := newTestDaemon(t)
	out := exec(t, d, "help")
	if !strings.Contains(out, "Available commands:") {
		t.Fatalf("help output = %q", out)
	}
	for _, name := range []string{"version", "echo", "sessions", "exit"} {
		if !strings.Contains(out, name) {
			t.Errorf("help missing %q", name)
		}
	}
}

func TestExecuteLine_SessionsWithoutConsole(t *testing.T) {
	d := newTestDaemon(t)
	out := exec(t, d, "sessions")
	if !strings.Contains(out, "No console server running.") {
		t.Errorf("sessions output = %q", out)
	}
	out = exec(t, d, "kick s1")
	if !strings.Contains(out, "No such session: s1") {
		t.Errorf("kick output = %q", out)
	}
}

func TestExecuteLine_Mem(t *testing.T) {
	d := newTestDaemon(t)
	out := exec(t, d, "mem")
	if !strings.Contains(out, "alloc:") || !strings.Contains(out, "goroutines:") {
		t.Errorf("mem output = %q", out)
	}
}
