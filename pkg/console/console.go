// Package console serves interactive interpreter sessions over TCP.
// Every accepted connection gets its own cli.Interpreter bound to the
// raw socket, with a minimal telnet stage in front so common clients
// deliver keystrokes byte-at-a-time.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/psaab/microcli/pkg/cli"
	"github.com/psaab/microcli/pkg/logging"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultIdleTimeout = 5 * time.Minute
	DefaultMaxSessions = 32
	DefaultAcceptRate  = 5
	DefaultAcceptBurst = 10
)

// Config configures a console Server.
type Config struct {
	Addr     string   // TCP listen address, required
	Commands *cli.Set // command table shared by all sessions

	Prompt     string // per-session interpreter prompt
	MaxLineLen int
	MaxArgs    int
	Banner     string // written once on connect when non-empty

	IdleTimeout time.Duration // per-read deadline, DefaultIdleTimeout when zero
	MaxSessions int           // concurrent session cap, DefaultMaxSessions when zero
	AcceptRate  float64       // accepted connections per second, DefaultAcceptRate when zero
	AcceptBurst int           // accept burst, DefaultAcceptBurst when zero

	Audit *logging.AuditLog // executed lines land here; nil disables auditing
	Log   *slog.Logger      // nil means slog.Default
}

// Server accepts console connections and runs one interpreter per
// session.
type Server struct {
	cfg     Config
	log     *slog.Logger
	limiter *rate.Limiter

	nextID atomic.Uint64
	addr   atomic.Value // string, set once listening

	mu       sync.Mutex
	sessions map[string]*session

	sessionsTotal atomic.Uint64
	bytesRead     atomic.Uint64
	bytesWritten  atomic.Uint64
	linesOK       atomic.Uint64
	linesUnknown  atomic.Uint64
	linesAmbig    atomic.Uint64
	linesTooMany  atomic.Uint64
}

// New builds a Server from cfg.
func New(cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("console: listen address required")
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.AcceptRate <= 0 {
		cfg.AcceptRate = DefaultAcceptRate
	}
	if cfg.AcceptBurst <= 0 {
		cfg.AcceptBurst = DefaultAcceptBurst
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		log:      cfg.Log,
		limiter:  rate.NewLimiter(rate.Limit(cfg.AcceptRate), cfg.AcceptBurst),
		sessions: make(map[string]*session),
	}, nil
}

// Run listens on the configured address and serves sessions until ctx
// is cancelled, then closes the listener and all live sessions.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("console: listen %s: %w", s.cfg.Addr, err)
	}
	s.addr.Store(ln.Addr().String())
	s.log.Info("console server listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.closeAll()
				wg.Wait()
				s.log.Info("console server stopped")
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				s.closeAll()
				wg.Wait()
				return nil
			}
			return fmt.Errorf("console: accept: %w", err)
		}

		if !s.limiter.Allow() {
			s.log.Warn("console connection rejected by rate limit",
				"remote", conn.RemoteAddr().String())
			conn.Close()
			continue
		}
		if s.activeSessions() >= s.cfg.MaxSessions {
			s.log.Warn("console session limit reached",
				"remote", conn.RemoteAddr().String())
			conn.Write([]byte("console busy\r\n"))
			conn.Close()
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serve(conn)
		}()
	}
}

// Addr returns the bound listen address, empty until Run is listening.
// Useful when the configured address has port 0.
func (s *Server) Addr() string {
	if v := s.addr.Load(); v != nil {
		return v.(string)
	}
	return ""
}

// Stats is a point-in-time counter snapshot.
type Stats struct {
	SessionsTotal  uint64
	SessionsActive int
	BytesRead      uint64
	BytesWritten   uint64
	Lines          map[string]uint64 // by outcome
}

// Stats returns current counters.
func (s *Server) Stats() Stats {
	return Stats{
		SessionsTotal:  s.sessionsTotal.Load(),
		SessionsActive: s.activeSessions(),
		BytesRead:      s.bytesRead.Load(),
		BytesWritten:   s.bytesWritten.Load(),
		Lines: map[string]uint64{
			string(cli.OutcomeOK):          s.linesOK.Load(),
			string(cli.OutcomeUnknown):     s.linesUnknown.Load(),
			string(cli.OutcomeAmbiguous):   s.linesAmbig.Load(),
			string(cli.OutcomeTooManyArgs): s.linesTooMany.Load(),
		},
	}
}

// SessionInfo describes one live session.
type SessionInfo struct {
	ID     string    `json:"id"`
	Remote string    `json:"remote"`
	Start  time.Time `json:"start"`
	Lines  uint64    `json:"lines"`
}

// Sessions lists live sessions, oldest first.
func (s *Server) Sessions() []SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, SessionInfo{
			ID:     sess.id,
			Remote: sess.remote,
			Start:  sess.start,
			Lines:  sess.lines.Load(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Kick closes the session with the given id. Returns false when no such
// session exists.
func (s *Server) Kick(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	sess.conn.Close()
	return true
}

func (s *Server) activeSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) register(sess *session) {
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	s.sessionsTotal.Add(1)
}

func (s *Server) deregister(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
}

func (s *Server) closeAll() {
	s.mu.Lock()
	for _, sess := range s.sessions {
		sess.conn.Close()
	}
	s.mu.Unlock()
}

func (s *Server) countLine(outcome cli.Outcome) {
	switch outcome {
	case cli.OutcomeOK:
		s.linesOK.Add(1)
	case cli.OutcomeUnknown:
		s.linesUnknown.Add(1)
	case cli.OutcomeAmbiguous:
		s.linesAmbig.Add(1)
	case cli.OutcomeTooManyArgs:
		s.linesTooMany.Add(1)
	}
}
