// Command atconsole is an interactive console for issuing raw AT commands
// against a live modem, for bring-up debugging and firmware-quirk
// diagnosis in the field — the kind of thing that otherwise requires a
// serial terminal and a data sheet open side by side.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.bug.st/serial"
	"golang.org/x/term"

	"i4.energy/across/smsgw/atengine"
)

func main() {
	port := flag.String("port", "/dev/ttyUSB0", "serial port device")
	baud := flag.Int("baud", 115200, "baud rate")
	cmdTimeout := flag.Duration("timeout", 5*time.Second, "per-command timeout")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	p, err := serial.Open(*port, &serial.Mode{BaudRate: *baud})
	if err != nil {
		fmt.Fprintf(os.Stderr, "atconsole: open %s: %v\n", *port, err)
		os.Exit(1)
	}
	defer p.Close()
	_ = p.SetReadTimeout(50 * time.Millisecond)

	engine, err := atengine.New(atengine.Config{
		Transport: p,
		Debug:     atengine.SlogDebug(logger),
		URCTable: []atengine.URCEntry{
			{Prefix: "", Handler: func(line string) { fmt.Printf("\r\n<URC> %s\r\n> ", line) }},
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "atconsole: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go engine.Run(ctx)
	defer engine.Close()

	fmt.Printf("atconsole connected to %s @ %d baud. Ctrl-C to exit.\n", *port, *baud)
	runREPL(ctx, engine, *cmdTimeout)
}

// runREPL reads commands from stdin in raw mode so URCs can be printed
// mid-line without corrupting the operator's in-progress input — the same
// raw-mode rationale IntuitionAmiga-IntuitionEngine's TerminalHost uses for
// its own stdin reader, applied here to a line-oriented protocol instead of
// a character-oriented one.
func runREPL(ctx context.Context, engine *atengine.Engine, timeout time.Duration) {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		// Not a real terminal (e.g. piped input) — fall back to line mode.
		runLineMode(ctx, engine, timeout)
		return
	}
	defer term.Restore(fd, oldState)

	var line strings.Builder
	buf := make([]byte, 1)
	fmt.Print("> ")

	for ctx.Err() == nil {
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			continue
		}
		b := buf[0]
		switch b {
		case '\r', '\n':
			fmt.Print("\r\n")
			cmd := strings.TrimSpace(line.String())
			line.Reset()
			if cmd != "" {
				runCommand(ctx, engine, cmd, timeout)
			}
			fmt.Print("> ")
		case 0x7F, 0x08: // DEL / backspace
			if line.Len() > 0 {
				s := line.String()
				line.Reset()
				line.WriteString(s[:len(s)-1])
				fmt.Print("\b \b")
			}
		case 0x03: // Ctrl-C
			return
		default:
			line.WriteByte(b)
			fmt.Printf("%c", b)
		}
	}
}

func runLineMode(ctx context.Context, engine *atengine.Engine, timeout time.Duration) {
	scanner := bufio.NewScanner(os.Stdin)
	for ctx.Err() == nil && scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		if cmd == "" {
			continue
		}
		runCommand(ctx, engine, cmd, timeout)
	}
}

func runCommand(ctx context.Context, engine *atengine.Engine, cmd string, timeout time.Duration) {
	resp, err := engine.Do(ctx, cmd, timeout)
	if err != nil {
		fmt.Printf("error: %v\r\n", err)
		return
	}
	fmt.Printf("%s\r\n", strings.ReplaceAll(strings.TrimSpace(resp.Text), "\n", "\r\n"))
}
