// microcli is the remote client for microclid.
//
// By default it opens an interactive shell against the daemon's HTTP
// API with remote tab completion and history. -c runs a single line
// and exits; -attach bridges the local terminal to the raw TCP console.
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

func main() {
	addr := flag.String("addr", "http://127.0.0.1:8088", "microclid API base URL")
	consoleAddr := flag.String("console", "127.0.0.1:2323", "microclid console address (for -attach)")
	token := flag.String("token", "", "API bearer token")
	oneShot := flag.String("c", "", "execute one line and exit")
	attach := flag.Bool("attach", false, "attach the terminal to the raw TCP console")
	flag.Parse()

	if *attach {
		if err := runAttach(*consoleAddr); err != nil {
			fmt.Fprintf(os.Stderr, "microcli: %v\n", err)
			os.Exit(1)
		}
		return
	}

	client := &apiClient{base: strings.TrimRight(*addr, "/"), token: *token}

	if *oneShot != "" {
		out, err := client.execute(*oneShot)
		if err != nil {
			fmt.Fprintf(os.Stderr, "microcli: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(crlfToLF(out))
		return
	}

	if err := runShell(client); err != nil {
		fmt.Fprintf(os.Stderr, "microcli: %v\n", err)
		os.Exit(1)
	}
}

// runShell is the interactive readline loop against the API.
func runShell(client *apiClient) error {
	status, err := client.status()
	if err != nil {
		return fmt.Errorf("cannot reach microclid at %s: %w", client.base, err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "microcli> ",
		HistoryFile:     filepath.Join(os.TempDir(), "microcli_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    &remoteCompleter{client: client},
		Stdin:           os.Stdin,
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
		Listener:        readline.FuncListener(helpListener(client)),
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()
	helpOut = rl.Stdout()

	fmt.Printf("microcli — connected to microclid %s (uptime: %s)\n",
		status.Version, status.Uptime)
	fmt.Println("Type 'help' for commands, '?' for completion help")
	fmt.Println()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if err == io.EOF {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		out, err := client.execute(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "microcli: %v\n", err)
			continue
		}
		fmt.Print(crlfToLF(out))
	}
}

// helpOut receives '?' candidate listings once readline is up.
var helpOut io.Writer = os.Stdout

// helpListener prints completion candidates when '?' is typed at the
// end of the command word, without disturbing the edited line.
func helpListener(client *apiClient) func([]rune, int, rune) ([]rune, int, bool) {
	return func(line []rune, pos int, key rune) ([]rune, int, bool) {
		if key != '?' || pos < 1 {
			return line, pos, false
		}
		// Strip the '?' that readline already inserted.
		cleanLine := make([]rune, 0, len(line)-1)
		cleanLine = append(cleanLine, line[:pos-1]...)
		cleanLine = append(cleanLine, line[pos:]...)
		word := string(cleanLine[:pos-1])

		if strings.Contains(word, " ") {
			fmt.Fprintln(helpOut, "  (completion is for the command word only)")
			return cleanLine, pos - 1, true
		}
		comp, err := client.complete(word)
		if err != nil || len(comp.Candidates) == 0 {
			fmt.Fprintln(helpOut, "  (no matching commands)")
			return cleanLine, pos - 1, true
		}
		for _, name := range comp.Candidates {
			fmt.Fprintln(helpOut, "  "+name)
		}
		return cleanLine, pos - 1, true
	}
}

type remoteCompleter struct {
	client *apiClient
}

// Do completes the command word via the daemon's complete endpoint.
func (rc *remoteCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])
	if strings.Contains(text, " ") {
		return nil, 0
	}

	comp, err := rc.client.complete(text)
	if err != nil || len(comp.Candidates) == 0 {
		return nil, 0
	}

	if len(comp.Candidates) == 1 {
		suffix := comp.Candidates[0][len(text):]
		return [][]rune{[]rune(suffix + " ")}, len(text)
	}

	for _, name := range comp.Candidates {
		fmt.Fprintln(helpOut, "  "+name)
	}
	suffix := comp.LCP[len(text):]
	if suffix == "" {
		return nil, 0
	}
	return [][]rune{[]rune(suffix)}, len(text)
}

// detachKey ends an attached console session (Ctrl-]).
const detachKey = 0x1D

// runAttach bridges the local terminal to the raw TCP console, with
// the terminal in raw mode so line editing happens daemon-side.
func runAttach(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("connect console %s: %w", addr, err)
	}
	defer conn.Close()

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	fmt.Printf("Attached to %s; press Ctrl-] to detach.\r\n", addr)

	done := make(chan struct{})
	go func() {
		io.Copy(os.Stdout, conn)
		close(done)
	}()

	buf := make([]byte, 256)
	for {
		n, err := os.Stdin.Read(buf)
		for i := 0; i < n; i++ {
			if buf[i] == detachKey {
				conn.Write(buf[:i])
				fmt.Print("\r\nDetached.\r\n")
				return nil
			}
		}
		if n > 0 {
			if _, werr := conn.Write(buf[:n]); werr != nil {
				break
			}
		}
		if err != nil {
			return err
		}
		select {
		case <-done:
			fmt.Print("\r\nConsole closed by daemon.\r\n")
			return nil
		default:
		}
	}
	<-done
	fmt.Print("\r\nConsole closed by daemon.\r\n")
	return nil
}

func crlfToLF(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
