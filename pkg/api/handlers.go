package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/psaab/microcli/pkg/cli"
	"github.com/psaab/microcli/pkg/logging"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Response{Success: false, Error: msg})
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, map[string]string{"status": "ok"})
}

func (s *Server) statusHandler(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Version: s.cfg.Version,
		Uptime:  time.Since(s.cfg.StartTime).Truncate(time.Second).String(),
	}
	if s.cfg.Commands != nil {
		resp.Commands = s.cfg.Commands.Len()
	}
	if s.cfg.ConsoleStats != nil {
		stats := s.cfg.ConsoleStats()
		resp.SessionsActive = stats.SessionsActive
		resp.SessionsTotal = stats.SessionsTotal
	}
	if s.cfg.Audit != nil {
		resp.AuditSeq = s.cfg.Audit.Seq()
	}
	writeOK(w, resp)
}

func (s *Server) commandsHandler(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.Commands == nil {
		writeError(w, http.StatusServiceUnavailable, "no command table")
		return
	}
	cmds := s.cfg.Commands.Commands()
	out := make([]CommandInfo, 0, len(cmds))
	for _, cmd := range cmds {
		if cmd.Name == "" {
			continue
		}
		out = append(out, CommandInfo{Name: cmd.Name, Help: cmd.Help, MaxArgs: cmd.MaxArgs})
	}
	writeOK(w, out)
}

func (s *Server) completeHandler(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Commands == nil {
		writeError(w, http.StatusServiceUnavailable, "no command table")
		return
	}
	word := r.URL.Query().Get("word")
	candidates := s.cfg.Commands.Candidates(word)
	writeOK(w, CompleteResponse{
		Candidates: candidates,
		LCP:        cli.CommonPrefix(candidates),
	})
}

func (s *Server) executeHandler(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Execute == nil {
		writeError(w, http.StatusServiceUnavailable, "execute not available")
		return
	}
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.Line == "" {
		writeError(w, http.StatusBadRequest, "line required")
		return
	}
	output, err := s.cfg.Execute(req.Line)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeOK(w, ExecuteResponse{Output: output})
}

func (s *Server) auditHandler(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Audit == nil {
		writeError(w, http.StatusServiceUnavailable, "no audit log")
		return
	}
	n := 50
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid n")
			return
		}
		n = parsed
	}
	filter := logging.Filter{
		Session: r.URL.Query().Get("session"),
		Command: r.URL.Query().Get("command"),
		Outcome: r.URL.Query().Get("outcome"),
	}

	var recs []logging.Record
	if filter.IsEmpty() {
		recs = s.cfg.Audit.Latest(n)
	} else {
		recs = s.cfg.Audit.LatestFiltered(n, filter)
	}
	if recs == nil {
		recs = []logging.Record{}
	}
	writeOK(w, recs)
}

func (s *Server) sessionsHandler(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.Sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "no console server")
		return
	}
	writeOK(w, s.cfg.Sessions())
}

func (s *Server) kickSessionHandler(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Kick == nil {
		writeError(w, http.StatusServiceUnavailable, "no console server")
		return
	}
	id := r.PathValue("id")
	if !s.cfg.Kick(id) {
		writeError(w, http.StatusNotFound, "no such session: "+id)
		return
	}
	writeOK(w, map[string]string{"closed": id})
}
