package cli

import (
	"strings"
	"testing"
)

func resolverSet() *Set {
	return NewSet(
		Command{Name: "exit", Help: "End the session", MaxArgs: 0},
		Command{Name: "exitAll", Help: "End every session", MaxArgs: 0},
		Command{Name: "status", Help: "Show status", MaxArgs: 1},
		Command{Name: ""}, // placeholder, skipped during scans
		Command{Name: "stop", Help: "Stop a service", MaxArgs: 1},
	)
}

func TestResolve(t *testing.T) {
	set := resolverSet()

	tests := []struct {
		prefix string
		want   string // resolved name, "" for no unique resolution
	}{
		{"exit", "exit"}, // exact beats the exitAll prefix match
		{"exitAll", "exitAll"},
		{"exitA", "exitAll"}, // unique prefix
		{"exi", ""},          // ambiguous: exit, exitAll
		{"sta", "status"},
		{"st", ""}, // ambiguous: status, stop
		{"nope", ""},
		{"", ""},
		{"exitAllX", ""},
	}
	for _, tt := range tests {
		got := set.Resolve(tt.prefix)
		switch {
		case tt.want == "" && got != nil:
			t.Errorf("Resolve(%q) = %q, want nil", tt.prefix, got.Name)
		case tt.want != "" && got == nil:
			t.Errorf("Resolve(%q) = nil, want %q", tt.prefix, tt.want)
		case tt.want != "" && got.Name != tt.want:
			t.Errorf("Resolve(%q) = %q, want %q", tt.prefix, got.Name, tt.want)
		}
	}
}

func TestCountPrefix(t *testing.T) {
	set := resolverSet()

	tests := []struct {
		prefix string
		want   int
	}{
		{"exi", 2},
		{"exit", 2}, // exact match still counts both
		{"st", 2},
		{"sta", 1},
		{"zzz", 0},
	}
	for _, tt := range tests {
		if got := set.CountPrefix(tt.prefix); got != tt.want {
			t.Errorf("CountPrefix(%q) = %d, want %d", tt.prefix, got, tt.want)
		}
	}
}

func TestCandidates_KeepTableOrder(t *testing.T) {
	set := resolverSet()
	got := set.Candidates("ex")
	if len(got) != 2 || got[0] != "exit" || got[1] != "exitAll" {
		t.Errorf("Candidates(\"ex\") = %v, want [exit exitAll]", got)
	}
	if got := set.Candidates("zzz"); got != nil {
		t.Errorf("Candidates(\"zzz\") = %v, want nil", got)
	}
}

func TestCommonPrefix(t *testing.T) {
	tests := []struct {
		names []string
		want  string
	}{
		{nil, ""},
		{[]string{"exit"}, "exit"},
		{[]string{"exit", "exitAll"}, "exit"},
		{[]string{"exit", "extra"}, "ex"},
		{[]string{"abc", "xyz"}, ""},
		{[]string{"status", "stop", "start"}, "st"},
	}
	for _, tt := range tests {
		if got := CommonPrefix(tt.names); got != tt.want {
			t.Errorf("CommonPrefix(%v) = %q, want %q", tt.names, got, tt.want)
		}
	}
}

func TestWriteHelp(t *testing.T) {
	set := NewSet(
		Command{Name: "ping", Help: "Send a probe", MaxArgs: 1},
		Command{Name: ""},
		Command{Name: "averylongcommandname", Help: "Long one", MaxArgs: 0},
	)
	var b strings.Builder
	set.WriteHelp(&b)
	out := b.String()

	if !strings.HasPrefix(out, "Available commands:\r\n") {
		t.Errorf("help output = %q", out)
	}
	if !strings.Contains(out, "  ping           - Send a probe (max args: 1)\r\n") {
		t.Errorf("help output %q missing padded ping row", out)
	}
	// Names longer than the column still get one space of padding.
	if !strings.Contains(out, "  averylongcommandname - Long one (max args: 0)\r\n") {
		t.Errorf("help output %q missing long-name row", out)
	}
	if strings.Count(out, "\r\n") != 3 {
		t.Errorf("help output has %d rows, want 3 (placeholder skipped)", strings.Count(out, "\r\n"))
	}
}
