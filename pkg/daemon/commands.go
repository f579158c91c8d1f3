package daemon

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/vishvananda/netlink"

	"github.com/psaab/microcli/pkg/cli"
	"github.com/psaab/microcli/pkg/logging"
)

// buildCommands assembles the built-in command table. Handlers are
// closures over the daemon; each console session shares this one table.
func (d *Daemon) buildCommands() *cli.Set {
	return cli.NewSet(
		cli.Command{Name: "help", Help: "List available commands", MaxArgs: 0,
			Run: func(c *cli.Interpreter, _ []string) { c.PrintHelp() }},
		cli.Command{Name: "version", Help: "Show daemon version", MaxArgs: 0,
			Run: d.cmdVersion},
		cli.Command{Name: "echo", Help: "Write arguments back", MaxArgs: 7,
			Run: cmdEcho},
		cli.Command{Name: "uptime", Help: "Time since daemon start", MaxArgs: 0,
			Run: d.cmdUptime},
		cli.Command{Name: "status", Help: "Daemon status summary", MaxArgs: 0,
			Run: d.cmdStatus},
		cli.Command{Name: "history", Help: "Show recent commands [count] [outcome]", MaxArgs: 2,
			Run: d.cmdHistory},
		cli.Command{Name: "sessions", Help: "List console sessions", MaxArgs: 0,
			Run: d.cmdSessions},
		cli.Command{Name: "kick", Help: "Close a console session <id>", MaxArgs: 1,
			Run: d.cmdKick},
		cli.Command{Name: "prompt", Help: "Set this session's prompt <text>", MaxArgs: 1,
			Run: cmdPrompt},
		cli.Command{Name: "link", Help: "Show network interfaces [name]", MaxArgs: 1,
			Run: cmdLink},
		cli.Command{Name: "mem", Help: "Show runtime memory stats", MaxArgs: 0,
			Run: cmdMem},
		cli.Command{Name: "exit", Help: "End this session", MaxArgs: 0,
			Run: func(c *cli.Interpreter, _ []string) { c.Stop() }},
	)
}

func (d *Daemon) cmdVersion(c *cli.Interpreter, _ []string) {
	c.Printf("microclid %s (%s %s/%s)\r\n",
		Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func cmdEcho(c *cli.Interpreter, args []string) {
	c.Println(strings.Join(args[1:], " "))
}

func (d *Daemon) cmdUptime(c *cli.Interpreter, _ []string) {
	c.Println(time.Since(d.start).Truncate(time.Second).String())
}

func (d *Daemon) cmdStatus(c *cli.Interpreter, _ []string) {
	c.Printf("uptime:        %s\r\n", time.Since(d.start).Truncate(time.Second))
	if d.console != nil {
		stats := d.console.Stats()
		c.Printf("sessions:      %d active, %d total\r\n",
			stats.SessionsActive, stats.SessionsTotal)
		c.Printf("console bytes: %d in, %d out\r\n",
			stats.BytesRead, stats.BytesWritten)
	}
	c.Printf("audit records: %d (%d buffered)\r\n", d.audit.Seq(), d.audit.Len())
}

func (d *Daemon) cmdHistory(c *cli.Interpreter, args []string) {
	n := 10
	if len(args) > 1 {
		parsed, err := strconv.Atoi(args[1])
		if err != nil || parsed <= 0 {
			c.Println("Error: count must be a positive number.")
			return
		}
		n = parsed
	}
	var recs []logging.Record
	if len(args) > 2 {
		recs = d.audit.LatestFiltered(n, logging.Filter{Outcome: args[2]})
	} else {
		recs = d.audit.Latest(n)
	}
	if len(recs) == 0 {
		c.Println("No matching history.")
		return
	}
	for _, rec := range recs {
		c.Printf("%5d  %s  [%s] %-13s %q\r\n",
			rec.Seq, rec.Time.Format("15:04:05"), rec.Session, rec.Outcome, rec.Line)
	}
}

func (d *Daemon) cmdSessions(c *cli.Interpreter, _ []string) {
	if d.console == nil {
		c.Println("No console server running.")
		return
	}
	sessions := d.console.Sessions()
	if len(sessions) == 0 {
		c.Println("No active sessions.")
		return
	}
	for _, sess := range sessions {
		c.Printf("%-6s %-21s up %-10s %d lines\r\n",
			sess.ID, sess.Remote,
			time.Since(sess.Start).Truncate(time.Second), sess.Lines)
	}
}

func (d *Daemon) cmdKick(c *cli.Interpreter, args []string) {
	if len(args) < 2 {
		c.Println("Usage: kick <session-id>")
		return
	}
	if d.console == nil || !d.console.Kick(args[1]) {
		c.Println("No such session: " + args[1])
		return
	}
	c.Println("Closed session " + args[1])
}

// cmdPrompt changes the calling session's prompt. Tokens cannot carry
// whitespace, so a separating space is appended here.
func cmdPrompt(c *cli.Interpreter, args []string) {
	if len(args) < 2 {
		c.Println("Current prompt: '" + c.Prompt() + "'")
		return
	}
	c.SetPrompt(args[1] + " ")
}

func cmdLink(c *cli.Interpreter, args []string) {
	var links []netlink.Link
	if len(args) > 1 {
		link, err := netlink.LinkByName(args[1])
		if err != nil {
			c.Println("Error: " + err.Error())
			return
		}
		links = []netlink.Link{link}
	} else {
		var err error
		links, err = netlink.LinkList()
		if err != nil {
			c.Println("Error: " + err.Error())
			return
		}
	}
	for _, link := range links {
		attrs := link.Attrs()
		mac := attrs.HardwareAddr.String()
		if mac == "" {
			mac = "-"
		}
		c.Printf("%-12s %-8s %-5s mtu %-5d %s\r\n",
			attrs.Name, link.Type(), attrs.OperState, attrs.MTU, mac)
	}
}

func cmdMem(c *cli.Interpreter, _ []string) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	c.Printf("alloc:      %s\r\n", fmtBytes(m.Alloc))
	c.Printf("sys:        %s\r\n", fmtBytes(m.Sys))
	c.Printf("gc cycles:  %d\r\n", m.NumGC)
	c.Printf("goroutines: %d\r\n", runtime.NumGoroutine())
}

func fmtBytes(n uint64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
