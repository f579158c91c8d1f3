package console

import (
	"io"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/psaab/microcli/pkg/cli"
	"github.com/psaab/microcli/pkg/logging"
)

// session is one live console connection.
type session struct {
	id     string
	remote string
	start  time.Time
	lines  atomic.Uint64
	conn   net.Conn
}

// serve owns conn for its lifetime: telnet negotiation, banner, then the
// read/feed loop. Returns when the peer closes, the idle deadline
// expires, the listener shuts down, or a handler stops the interpreter.
func (s *Server) serve(conn net.Conn) {
	defer conn.Close()

	sess := &session{
		id:     "s" + strconv.FormatUint(s.nextID.Add(1), 10),
		remote: conn.RemoteAddr().String(),
		start:  time.Now(),
		conn:   conn,
	}
	s.register(sess)
	defer s.deregister(sess)

	s.log.Info("console session opened", "session", sess.id, "remote", sess.remote)

	out := &countWriter{w: conn, n: &s.bytesWritten}
	interp, err := cli.New(cli.Config{
		Output:     out,
		Commands:   s.cfg.Commands,
		Prompt:     s.cfg.Prompt,
		MaxLineLen: s.cfg.MaxLineLen,
		MaxArgs:    s.cfg.MaxArgs,
		Report: func(r cli.ExecReport) {
			sess.lines.Add(1)
			s.countLine(r.Outcome)
			if s.cfg.Audit == nil {
				return
			}
			command := r.Command
			if command == "" {
				command = r.Token
			}
			s.cfg.Audit.Add(logging.Record{
				Session:  sess.id,
				Remote:   sess.remote,
				Line:     r.Line,
				Command:  command,
				Outcome:  string(r.Outcome),
				UserArgs: r.UserArgs,
			})
		},
	})
	if err != nil {
		s.log.Error("console session setup failed", "session", sess.id, "err", err)
		return
	}

	negotiateCharacterMode(out)
	if s.cfg.Banner != "" {
		io.WriteString(out, s.cfg.Banner+"\r\n")
	}
	interp.Start()

	var filter telnetFilter
	buf := make([]byte, 512)
	for {
		conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		n, err := conn.Read(buf)
		if n > 0 {
			s.bytesRead.Add(uint64(n))
			interp.Feed(filter.filter(buf[:n]))
			if !interp.Running() {
				s.log.Info("console session exited", "session", sess.id,
					"lines", sess.lines.Load())
				return
			}
		}
		if err != nil {
			s.log.Info("console session closed", "session", sess.id,
				"lines", sess.lines.Load(), "reason", closeReason(err))
			return
		}
	}
}

func closeReason(err error) string {
	if err == io.EOF {
		return "peer closed"
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return "idle timeout"
	}
	return err.Error()
}

// countWriter counts bytes written through it. Write errors are passed
// up to the interpreter, which ignores them; a dead connection surfaces
// in the session read loop.
type countWriter struct {
	w io.Writer
	n *atomic.Uint64
}

func (cw *countWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n.Add(uint64(n))
	return n, err
}
