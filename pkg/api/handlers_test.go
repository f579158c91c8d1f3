package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/psaab/microcli/pkg/cli"
	"github.com/psaab/microcli/pkg/console"
	"github.com/psaab/microcli/pkg/logging"
)

func testServer(t *testing.T) (*Server, *logging.AuditLog) {
	t.Helper()
	audit := logging.NewAuditLog(16)
	cmds := cli.NewSet(
		cli.Command{Name: "exit", Help: "End the session", MaxArgs: 0},
		cli.Command{Name: "extra", Help: "Extra things", MaxArgs: 2},
		cli.Command{Name: "status", Help: "Daemon status", MaxArgs: 0},
	)
	srv := NewServer(Config{
		Addr:     "127.0.0.1:0",
		Commands: cmds,
		Audit:    audit,
		ConsoleStats: func() console.Stats {
			return console.Stats{
				SessionsActive: 2,
				SessionsTotal:  7,
				BytesRead:      100,
				BytesWritten:   200,
				Lines:          map[string]uint64{"ok": 5, "unknown": 1},
			}
		},
		Sessions: func() []console.SessionInfo {
			return []console.SessionInfo{{ID: "s1", Remote: "10.0.0.1:4242"}}
		},
		Kick: func(id string) bool { return id == "s1" },
		Execute: func(line string) (string, error) {
			return "ran: " + line, nil
		},
		Version:   "test",
		StartTime: time.Now().Add(-time.Minute),
	})
	return srv, audit
}

// do runs one request against the server and decodes the envelope.
func do(t *testing.T, srv *Server, method, path, body string) (int, Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response for %s %s: %v", method, path, err)
	}
	return rec.Code, resp
}

// decodeData re-marshals the envelope's data field into out.
func decodeData(t *testing.T, resp Response, out any) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatal(err)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	code, resp := do(t, srv, "GET", "/health", "")
	if code != http.StatusOK || !resp.Success {
		t.Fatalf("health = %d %+v", code, resp)
	}
}

func TestStatus(t *testing.T) {
	srv, audit := testServer(t)
	audit.Add(logging.Record{Line: "help", Outcome: "ok"})

	code, resp := do(t, srv, "GET", "/api/v1/status", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var st StatusResponse
	decodeData(t, resp, &st)
	if st.Version != "test" || st.Commands != 3 {
		t.Errorf("status = %+v", st)
	}
	if st.SessionsActive != 2 || st.SessionsTotal != 7 || st.AuditSeq != 1 {
		t.Errorf("status counters = %+v", st)
	}
}

func TestCommands(t *testing.T) {
	srv, _ := testServer(t)
	_, resp := do(t, srv, "GET", "/api/v1/commands", "")

	var cmds []CommandInfo
	decodeData(t, resp, &cmds)
	if len(cmds) != 3 {
		t.Fatalf("commands = %d entries, want 3", len(cmds))
	}
	if cmds[0].Name != "exit" || cmds[1].MaxArgs != 2 {
		t.Errorf("commands = %+v", cmds)
	}
}

func TestComplete(t *testing.T) {
	srv, _ := testServer(t)

	_, resp := do(t, srv, "GET", "/api/v1/complete?word=ex", "")
	var comp CompleteResponse
	decodeData(t, resp, &comp)
	if len(comp.Candidates) != 2 || comp.LCP != "ex" {
		t.Errorf("complete ex = %+v", comp)
	}

	_, resp = do(t, srv, "GET", "/api/v1/complete?word=sta", "")
	decodeData(t, resp, &comp)
	if len(comp.Candidates) != 1 || comp.LCP != "status" {
		t.Errorf("complete sta = %+v", comp)
	}

	_, resp = do(t, srv, "GET", "/api/v1/complete?word=zzz", "")
	decodeData(t, resp, &comp)
	if len(comp.Candidates) != 0 || comp.LCP != "" {
		t.Errorf("complete zzz = %+v", comp)
	}
}

func TestExecute(t *testing.T) {
	srv, _ := testServer(t)

	code, resp := do(t, srv, "POST", "/api/v1/execute", `{"line":"status"}`)
	if code != http.StatusOK {
		t.Fatalf("execute = %d %+v", code, resp)
	}
	var exec ExecuteResponse
	decodeData(t, resp, &exec)
	if exec.Output != "ran: status" {
		t.Errorf("output = %q", exec.Output)
	}

	if code, _ := do(t, srv, "POST", "/api/v1/execute", `{}`); code != http.StatusBadRequest {
		t.Errorf("empty line = %d, want 400", code)
	}
	if code, _ := do(t, srv, "POST", "/api/v1/execute", `not json`); code != http.StatusBadRequest {
		t.Errorf("bad body = %d, want 400", code)
	}
}

func TestAudit(t *testing.T) {
	srv, audit := testServer(t)
	audit.Add(logging.Record{Session: "s1", Command: "help", Outcome: "ok", Line: "help"})
	audit.Add(logging.Record{Session: "s2", Command: "bogus", Outcome: "unknown", Line: "bogus"})

	_, resp := do(t, srv, "GET", "/api/v1/audit", "")
	var recs []logging.Record
	decodeData(t, resp, &recs)
	if len(recs) != 2 || recs[0].Command != "bogus" {
		t.Errorf("audit = %+v", recs)
	}

	_, resp = do(t, srv, "GET", "/api/v1/audit?outcome=unknown", "")
	decodeData(t, resp, &recs)
	if len(recs) != 1 || recs[0].Session != "s2" {
		t.Errorf("filtered audit = %+v", recs)
	}

	_, resp = do(t, srv, "GET", "/api/v1/audit?n=1", "")
	decodeData(t, resp, &recs)
	if len(recs) != 1 {
		t.Errorf("limited audit = %d records", len(recs))
	}

	if code, _ := do(t, srv, "GET", "/api/v1/audit?n=junk", ""); code != http.StatusBadRequest {
		t.Errorf("bad n = %d, want 400", code)
	}
}

func TestSessions(t *testing.T) {
	srv, _ := testServer(t)

	_, resp := do(t, srv, "GET", "/api/v1/sessions", "")
	var sessions []console.SessionInfo
	decodeData(t, resp, &sessions)
	if len(sessions) != 1 || sessions[0].ID != "s1" {
		t.Errorf("sessions = %+v", sessions)
	}

	if code, _ := do(t, srv, "DELETE", "/api/v1/sessions/s1", ""); code != http.StatusOK {
		t.Errorf("kick s1 = %d, want 200", code)
	}
	if code, _ := do(t, srv, "DELETE", "/api/v1/sessions/s9", ""); code != http.StatusNotFound {
		t.Errorf("kick s9 = %d, want 404", code)
	}
}

func TestMetrics(t *testing.T) {
	srv, audit := testServer(t)
	audit.Add(logging.Record{Line: "help", Outcome: "ok"})

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics = %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"microcli_sessions_active 2",
		"microcli_sessions_total 7",
		"microcli_bytes_read_total 100",
		`microcli_lines_total{outcome="ok"} 5`,
		"microcli_audit_records_total 1",
		"microcli_uptime_seconds",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
