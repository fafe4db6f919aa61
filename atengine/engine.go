// Package atengine implements the dispatch-and-matching engine for
// conducting AT-command conversations with attached serial modems: the
// queue of pending work items, the per-item state machine, the incoming-
// byte demultiplexer that splits the stream between response-matching and
// URC-matching paths, the retry/timeout policy, and the mutual-exclusion
// discipline that guarantees at-most-one-command-in-flight while leaving
// URC reception live.
//
// The engine is transport-agnostic: it consumes an io.ReadWriter and knows
// nothing about UARTs, sockets, or USB CDC. Upper-layer modem protocols
// (SIM/SMS handling, PPP, and so on) are built on top of it — see the
// sibling modem package for a GSM modem that does exactly that.
//
// Two execution profiles share this one core: Poll for a cooperative main
// loop, and Run plus Do for a dedicated background goroutine that blocks
// callers until their command completes.
package atengine

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// StructuredCommand is a caller-provided, read-only command descriptor
// (§3 "Structured Command Descriptor").
type StructuredCommand struct {
	// Sender writes the command bytes, given the engine environment.
	Sender func(*Env)
	// Matcher is the success substring (e.g. "OK", "> ").
	Matcher string
	// Callback is invoked exactly once with the completed response.
	Callback func(CommandResponse)
	// Retry is the maximum number of attempts on ERROR or timeout (>= 1).
	Retry int
	// Timeout is the per-attempt budget.
	Timeout time.Duration
}

// URCEntry is a registered Unsolicited Result Code handler (§3 "URC Entry").
type URCEntry struct {
	Prefix  string
	Handler func(line string)
}

// CommandResponse is delivered to a work item's completion callback exactly
// once (invariant 6).
type CommandResponse struct {
	Result Result
	Text   string
	Err    error
}

// Config configures a new Engine. It mirrors §6's configuration record.
type Config struct {
	// Transport is the duplex byte stream to the modem. Read should behave
	// like a non-blocking read: it must return promptly (0 bytes, nil
	// error) when nothing is available, rather than blocking indefinitely,
	// so Poll/Run can interleave ingress with dispatch.
	Transport io.ReadWriter

	// Clock abstracts time for testability. Defaults to the real clock.
	Clock Clock

	// Debug is the variadic logging sink (§6). Defaults to an adapter over
	// slog.Default() at Debug level.
	Debug DebugFunc

	// URCTable lists the registered URC prefix/handler pairs, tested in
	// order (invariant 4: first match wins).
	URCTable []URCEntry

	// URCBufSize and RespBufSize are the fixed capacities U and R of the
	// URC and response accumulators (§3).
	URCBufSize  int
	RespBufSize int

	// PoolSize is the fixed work-item pool size W (§3, typical 10).
	PoolSize int

	// URCIdleTimeout is the stall guard for a partial URC line (§4.B),
	// unified across profiles per the distilled spec's Open Questions
	// (default 100ms, resolving the 100ms/2000ms divergence).
	URCIdleTimeout time.Duration

	// BeforeAT and AfterAT are optional lifecycle hooks invoked around
	// each outgoing command (§6).
	BeforeAT func()
	AfterAT  func()

	// OnError is invoked by Run when a Poll cycle returns a transport
	// error (e.g. the underlying connection was closed).
	OnError func(error)

	// IdlePollInterval is the delay Run sleeps after every Poll cycle, to
	// avoid busy-spinning a thread.
	IdlePollInterval time.Duration
}

func (c *Config) setDefaults() {
	if c.Clock == nil {
		c.Clock = realClock{}
	}
	if c.Debug == nil {
		c.Debug = SlogDebug(slog.Default())
	}
	if c.URCBufSize == 0 {
		c.URCBufSize = 256
	}
	if c.RespBufSize == 0 {
		c.RespBufSize = 512
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.URCIdleTimeout == 0 {
		c.URCIdleTimeout = 100 * time.Millisecond
	}
	if c.IdlePollInterval == 0 {
		c.IdlePollInterval = 10 * time.Millisecond
	}
}

func (c *Config) validate() error {
	if c.Transport == nil {
		return ErrNilTransport
	}
	return nil
}

// Engine is the singleton-per-transport aggregate described in §3.
type Engine struct {
	mu sync.Mutex

	transport io.ReadWriter
	clock     Clock
	debug     DebugFunc
	beforeAT  func()
	afterAT   func()
	onError   func(error)

	urcTable       []URCEntry
	urcBuf         []byte
	urcCnt         int
	urcTimer       time.Time
	urcIdleTimeout time.Duration

	respBuf   []byte
	respCnt   int
	respTimer time.Time

	pool    *itemPool
	current *WorkItem
	suspend bool
	closed  bool

	cmdLock *semaphore.Weighted

	idlePoll time.Duration
}

// New builds an Engine from cfg, pre-allocating the fixed work-item pool
// and accumulator buffers. Submissions reuse pooled WorkItems and the
// buffers are never reallocated.
func New(cfg Config) (*Engine, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		transport:      cfg.Transport,
		clock:          cfg.Clock,
		debug:          cfg.Debug,
		beforeAT:       cfg.BeforeAT,
		afterAT:        cfg.AfterAT,
		onError:        cfg.OnError,
		urcTable:       append([]URCEntry(nil), cfg.URCTable...),
		urcBuf:         make([]byte, cfg.URCBufSize),
		respBuf:        make([]byte, cfg.RespBufSize),
		urcIdleTimeout: cfg.URCIdleTimeout,
		pool:           newItemPool(cfg.PoolSize),
		cmdLock:        semaphore.NewWeighted(1),
		idlePoll:       cfg.IdlePollInterval,
	}
	return e, nil
}

// Close marks the engine closed; subsequent submit/Poll/Do calls return
// ErrClosed. Close does not close the underlying Transport — the caller
// owns that lifecycle, matching the teacher modem package's convention.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// ingress is component A: read a small chunk from the transport and feed
// it to the URC recognizer (B) then the response matcher (C), in that
// order (invariant 3). Must be called with e.mu held.
func (e *Engine) ingress() error {
	var buf [32]byte
	n, err := e.transport.Read(buf[:])
	if err != nil && err != io.EOF {
		return err
	}
	data := buf[:n]
	e.recognizeURC(data)
	e.appendResponse(data)
	return nil
}

// writeRaw writes b directly to the transport with no framing.
func (e *Engine) writeRaw(b []byte) {
	_, _ = e.transport.Write(b)
}

// sendLine writes line + CRLF and traces it as an outgoing command.
func (e *Engine) sendLine(line string) {
	if e.beforeAT != nil {
		e.beforeAT()
	}
	_, _ = e.transport.Write([]byte(line + "\r\n"))
	traceOutgoing(e.debug, line)
	if e.afterAT != nil {
		e.afterAT()
	}
}
