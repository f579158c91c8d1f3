// Package api implements the HTTP admin API and Prometheus metrics
// endpoint in front of the daemon.
package api

// Response is the standard JSON response envelope.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StatusResponse holds daemon status information.
type StatusResponse struct {
	Version        string `json:"version"`
	Uptime         string `json:"uptime"`
	Commands       int    `json:"commands"`
	SessionsActive int    `json:"sessions_active"`
	SessionsTotal  uint64 `json:"sessions_total"`
	AuditSeq       uint64 `json:"audit_seq"`
}

// CommandInfo describes one command table entry.
type CommandInfo struct {
	Name    string `json:"name"`
	Help    string `json:"help"`
	MaxArgs int    `json:"max_args"`
}

// CompleteResponse holds completion candidates for a word.
type CompleteResponse struct {
	Candidates []string `json:"candidates"`
	LCP        string   `json:"lcp"`
}

// ExecuteRequest is the body of POST /api/v1/execute.
type ExecuteRequest struct {
	Line string `json:"line"`
}

// ExecuteResponse holds the output of an executed line.
type ExecuteResponse struct {
	Output string `json:"output"`
}
