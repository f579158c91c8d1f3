// Package daemon wires the interpreter, its transports, the audit log
// and the admin API into one runnable process.
package daemon

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/psaab/microcli/pkg/api"
	"github.com/psaab/microcli/pkg/cli"
	"github.com/psaab/microcli/pkg/config"
	"github.com/psaab/microcli/pkg/console"
	"github.com/psaab/microcli/pkg/logging"
	"github.com/psaab/microcli/pkg/serial"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Options configures the daemon.
type Options struct {
	// ConfigFile names an explicit config file that must exist. Empty
	// means the default path if present, built-in defaults otherwise.
	ConfigFile string
}

// Daemon is the microclid process.
type Daemon struct {
	opts     Options
	cfg      *config.Config
	audit    *logging.AuditLog
	commands *cli.Set
	console  *console.Server
	start    time.Time
}

// New creates a new Daemon.
func New(opts Options) *Daemon {
	return &Daemon{
		opts:  opts,
		start: time.Now(),
	}
}

// Run starts the daemon and blocks until a signal arrives, a server
// fails, or ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	slog.Info("starting microclid",
		"version", Version,
		"pid", os.Getpid())

	if err := d.loadConfig(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.audit = logging.NewAuditLog(d.cfg.Audit.Buffer)
	d.commands = d.buildCommands()

	var wg sync.WaitGroup
	errCh := make(chan error, 3)

	fw, err := d.startAuditBridge(ctx, &wg)
	if err != nil {
		return err
	}

	cons, err := console.New(console.Config{
		Addr:        d.cfg.Console.Addr,
		Commands:    d.commands,
		Prompt:      d.cfg.CLI.Prompt,
		MaxLineLen:  d.cfg.CLI.MaxLineLen,
		MaxArgs:     d.cfg.CLI.MaxArgs,
		Banner:      d.cfg.Console.Banner,
		IdleTimeout: d.cfg.Console.Idle(),
		MaxSessions: d.cfg.Console.MaxSessions,
		AcceptRate:  d.cfg.Console.AcceptRate,
		AcceptBurst: d.cfg.Console.AcceptBurst,
		Audit:       d.audit,
	})
	if err != nil {
		return err
	}
	d.console = cons
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := cons.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	if d.cfg.Serial.Device != "" {
		port, err := serial.Open(d.cfg.Serial.Device, d.cfg.Serial.Baud)
		if err != nil {
			slog.Warn("serial console disabled", "device", d.cfg.Serial.Device, "err", err)
		} else {
			slog.Info("serial console attached",
				"device", d.cfg.Serial.Device, "baud", d.cfg.Serial.Baud)
			wg.Add(1)
			go func() {
				defer wg.Done()
				d.runSerial(ctx, port)
			}()
		}
	}

	if d.cfg.API.Addr != "" {
		apiSrv := api.NewServer(api.Config{
			Addr:         d.cfg.API.Addr,
			Token:        d.cfg.API.Token,
			Commands:     d.commands,
			Audit:        d.audit,
			ConsoleStats: cons.Stats,
			Sessions:     cons.Sessions,
			Kick:         cons.Kick,
			Execute:      d.ExecuteLine,
			Version:      Version,
			StartTime:    d.start,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := apiSrv.Run(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case runErr = <-errCh:
		slog.Error("server failed, shutting down", "err", runErr)
	case <-ctx.Done():
		slog.Info("signal received, shutting down")
	}

	cancel()
	wg.Wait()
	if fw != nil {
		fw.Close()
	}

	slog.Info("shutdown complete")
	return runErr
}

// loadConfig resolves the effective configuration. An explicit file
// must load cleanly; the implicit default degrades with a warning.
func (d *Daemon) loadConfig() error {
	if d.opts.ConfigFile != "" {
		cfg, err := config.Load(d.opts.ConfigFile)
		if err != nil {
			return err
		}
		d.cfg = cfg
		slog.Info("configuration loaded", "file", d.opts.ConfigFile)
		return nil
	}

	cfg, err := config.LoadDefault()
	if err != nil {
		slog.Warn("config load failed, using built-in defaults", "err", err)
		cfg = config.Default()
	}
	d.cfg = cfg
	return nil
}

// startAuditBridge forwards new audit records to the configured file.
// Returns the writer so Run can close it after the bridge drains.
func (d *Daemon) startAuditBridge(ctx context.Context, wg *sync.WaitGroup) (*logging.FileWriter, error) {
	if d.cfg.Audit.File == "" {
		return nil, nil
	}
	fw, err := logging.NewFileWriter(logging.FileConfig{
		Path:     d.cfg.Audit.File,
		MaxSize:  int64(d.cfg.Audit.MaxSizeMB) * 1024 * 1024,
		MaxFiles: d.cfg.Audit.MaxFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("audit file: %w", err)
	}
	slog.Info("audit trail enabled", "file", d.cfg.Audit.File)

	sub := d.audit.Subscribe(256)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer sub.Close()
		for {
			select {
			case rec := <-sub.C:
				if err := fw.Write(rec); err != nil {
					slog.Warn("audit write failed", "err", err)
				}
			case <-ctx.Done():
				// Drain what is already buffered, then stop.
				for {
					select {
					case rec := <-sub.C:
						fw.Write(rec)
					default:
						return
					}
				}
			}
		}
	}()
	return fw, nil
}

// runSerial serves the local serial console: one interpreter for the
// life of the port. An exit command ends the current session and a
// fresh one starts immediately, as on a device console.
func (d *Daemon) runSerial(ctx context.Context, port *serial.Port) {
	go func() {
		<-ctx.Done()
		port.Close()
	}()

	interp, err := cli.New(cli.Config{
		Output:     port,
		Commands:   d.commands,
		Prompt:     d.cfg.CLI.Prompt,
		MaxLineLen: d.cfg.CLI.MaxLineLen,
		MaxArgs:    d.cfg.CLI.MaxArgs,
		Report:     d.reportFor("serial", ""),
	})
	if err != nil {
		slog.Error("serial console setup failed", "err", err)
		return
	}
	interp.Start()

	buf := make([]byte, 256)
	for {
		n, err := port.Read(buf)
		if n > 0 {
			interp.Feed(buf[:n])
			if !interp.Running() {
				interp.Start()
			}
		}
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("serial console read failed", "err", err)
			}
			return
		}
	}
}

// ExecuteLine runs one line through a throwaway interpreter and returns
// everything it wrote. Used by the API's execute endpoint; the line is
// audited under the "api" session.
func (d *Daemon) ExecuteLine(line string) (string, error) {
	var out bytes.Buffer
	interp, err := cli.New(cli.Config{
		Output:     &out,
		Commands:   d.commands,
		Prompt:     d.cfg.CLI.Prompt,
		MaxLineLen: d.cfg.CLI.MaxLineLen,
		MaxArgs:    d.cfg.CLI.MaxArgs,
		Report:     d.reportFor("api", ""),
	})
	if err != nil {
		return "", err
	}
	interp.Start()
	out.Reset() // discard the initial prompt
	interp.ProcessLine(line)
	return out.String(), nil
}

// reportFor builds the interpreter Report callback feeding the audit
// log for a fixed session id.
func (d *Daemon) reportFor(session, remote string) func(cli.ExecReport) {
	return func(r cli.ExecReport) {
		command := r.Command
		if command == "" {
			command = r.Token
		}
		d.audit.Add(logging.Record{
			Session:  session,
			Remote:   remote,
			Line:     r.Line,
			Command:  command,
			Outcome:  string(r.Outcome),
			UserArgs: r.UserArgs,
		})
	}
}
