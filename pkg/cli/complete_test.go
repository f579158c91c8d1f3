package cli

import "testing"

func completionSet() *Set {
	return NewSet(
		Command{Name: "exit", Help: "End the session"},
		Command{Name: "exitAll", Help: "End every session"},
		Command{Name: "status", Help: "Show status"},
	)
}

func TestHandleTab_SingleCandidate(t *testing.T) {
	c, out := newTestInterp(t, Config{Commands: completionSet()})

	c.Feed([]byte("sta\t"))
	if got := out.String(); got != "status " {
		t.Errorf("output = %q, want %q", got, "status ")
	}
	if got := string(c.buf); got != "status " {
		t.Errorf("buffer = %q, want %q", got, "status ")
	}
}

func TestHandleTab_CommonPrefixExtension(t *testing.T) {
	c, out := newTestInterp(t, Config{Commands: completionSet()})

	c.Feed([]byte("e\t"))
	if got := out.String(); got != "exit" {
		t.Errorf("output = %q, want %q", got, "exit")
	}
	if got := string(c.buf); got != "exit" {
		t.Errorf("buffer = %q, want %q", got, "exit")
	}
}

func TestHandleTab_ListsCandidates(t *testing.T) {
	c, out := newTestInterp(t, Config{Commands: completionSet()})

	c.Feed([]byte("exit"))
	out.Reset()
	c.FeedByte('\t')
	want := "\r\nexit  exitAll  \r\n> exit"
	if got := out.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if got := string(c.buf); got != "exit" {
		t.Errorf("buffer = %q, want unchanged %q", got, "exit")
	}
}

func TestHandleTab_NoOps(t *testing.T) {
	tests := []struct {
		name  string
		typed string
		want  string // output for the tab byte alone
	}{
		{"empty buffer", "", ""},
		{"no match", "zzz", "\a"},
		{"past command word", "exit ", "\a"},
	}
	for _, tt := range tests {
		c, out := newTestInterp(t, Config{Commands: completionSet()})
		c.Feed([]byte(tt.typed))
		out.Reset()
		c.FeedByte('\t')
		if got := out.String(); got != tt.want {
			t.Errorf("%s: output = %q, want %q", tt.name, got, tt.want)
		}
		if got := string(c.buf); got != tt.typed {
			t.Errorf("%s: buffer = %q, want unchanged %q", tt.name, got, tt.typed)
		}
	}
}

func TestHandleTab_NoRoomRingsBell(t *testing.T) {
	c, out := newTestInterp(t, Config{
		Commands:   NewSet(Command{Name: "status"}),
		MaxLineLen: 7,
	})

	c.Feed([]byte("sta"))
	out.Reset()
	c.FeedByte('\t')
	if got := out.String(); got != "\a" {
		t.Errorf("output = %q, want bell", got)
	}
	if got := string(c.buf); got != "sta" {
		t.Errorf("buffer = %q, want unchanged %q", got, "sta")
	}
}
