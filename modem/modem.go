package modem

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"i4.energy/across/smsgw/at"
	"i4.energy/across/smsgw/atengine"
)

// Modem drives the AT-command bring-up sequence and exposes GSM-specific
// operations (SMS, notifications) on top of an atengine.Engine. It owns
// the Transport's lifecycle; the engine itself is transport-agnostic.
type Modem struct {
	mu        sync.Mutex
	transport Transport
	config    Config
	engine    *atengine.Engine
	notify    *notifier
	closed    bool
}

// New dials config.Dialer, runs the modem bring-up sequence (echo mode,
// verbose errors, SIM status, SMS text mode) to completion, and returns a
// ready-to-use Modem. Bring-up runs its own short-lived dispatch loop; the
// caller must separately run Loop for the Modem's engine to service
// commands and URCs for the rest of the Modem's life.
func New(ctx context.Context, config Config) (*Modem, error) {
	config.setDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}

	transport, err := config.Dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}

	n := newNotifier(32)

	eng, err := atengine.New(atengine.Config{
		Transport: transport,
		URCTable: []atengine.URCEntry{
			{Prefix: at.UrcNewMsg, Handler: n.onSMS},
			{Prefix: at.UrcCallerID, Handler: n.onCallerID},
			{Prefix: at.UrcCall, Handler: n.onRing},
			{Prefix: at.UrcNetworkReg, Handler: n.onNetworkReg},
		},
	})
	if err != nil {
		transport.Close()
		return nil, err
	}

	m := &Modem{
		config:    config,
		transport: transport,
		engine:    eng,
		notify:    n,
	}

	initCtx := ctx
	if m.config.InitTimeout > 0 {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, m.config.InitTimeout)
		defer cancel()
	}

	if err := m.init(initCtx); err != nil {
		eng.Close()
		transport.Close()
		if err == ErrSIMPinRequired {
			return nil, err
		}
		return nil, fmt.Errorf("initialize modem: %w", err)
	}

	return m, nil
}

// Loop runs the Modem's engine dispatch loop until ctx is done. Exactly
// one goroutine should call Loop for a given Modem; SendSMS and other
// operations submit work for that goroutine's dispatcher to advance,
// mirroring the engine's own "one core, two shells" design.
func (m *Modem) Loop(ctx context.Context) error {
	m.engine.Run(ctx)
	return ctx.Err()
}

// Close releases the underlying transport and marks the engine closed.
// Subsequent calls on m return ErrNotInitialized.
func (m *Modem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.engine.Close()
	return m.transport.Close()
}

func (m *Modem) init(ctx context.Context) error {
	// bring-up runs before Loop is started, so drive the engine's own
	// cooperative poll loop just long enough to finish it.
	pollCtx, stopPoll := context.WithCancel(ctx)
	defer stopPoll()
	go func() {
		for {
			select {
			case <-pollCtx.Done():
				return
			default:
			}
			if err := m.engine.Poll(); err != nil {
				return
			}
			time.Sleep(2 * time.Millisecond)
		}
	}()

	// 1. Wake-up / sanity check
	if err := m.expectOK(ctx, "AT"); err != nil {
		return fmt.Errorf("modem not responding: %w", err)
	}

	// 2. Echo handling
	if m.config.EchoOn {
		_ = m.expectOK(ctx, "ATE1") // best effort
	} else {
		if err := m.expectOK(ctx, "ATE0"); err != nil {
			return fmt.Errorf("disable echo: %w", err)
		}
	}

	// 3. Enable verbose errors (recommended)
	_ = m.expectOK(ctx, "AT+CMEE=2") // ignore failure (not all modems support it)

	// 4. Check SIM status
	simStatus, err := m.query(ctx, "AT+CPIN?")
	if err != nil {
		return fmt.Errorf("query SIM status: %w", err)
	}

	switch {
	case strings.Contains(simStatus, at.SimReady):
		// OK

	case strings.Contains(simStatus, at.SimPin):
		if m.config.SimPIN == "" {
			return ErrSIMPinRequired
		}
		if err := m.expectOK(ctx, fmt.Sprintf(`AT+CPIN="%s"`, m.config.SimPIN)); err != nil {
			return fmt.Errorf("enter SIM PIN: %w", err)
		}
		if err := m.waitForSIMReady(ctx); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unsupported SIM state: %q", simStatus)
	}

	// 5. Select SMS text mode
	if err := m.expectOK(ctx, at.CmdSetTextMode); err != nil {
		return fmt.Errorf("set SMS text mode: %w", err)
	}

	return nil
}

func (m *Modem) waitForSIMReady(ctx context.Context) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("SIM not ready: %w", ctx.Err())
		case <-ticker.C:
			resp, err := m.query(ctx, "AT+CPIN?")
			if err != nil {
				continue
			}
			if strings.Contains(resp, at.SimReady) {
				return nil
			}
		}
	}
}

func (m *Modem) expectOK(ctx context.Context, cmd string) error {
	resp, err := m.exec(ctx, cmd)
	if err != nil {
		return err
	}
	if !strings.Contains(resp, at.OK) {
		return fmt.Errorf("unexpected response: %q", resp)
	}
	return nil
}

func (m *Modem) query(ctx context.Context, cmd string) (string, error) {
	return m.exec(ctx, cmd)
}

// exec submits cmd as a script work that sends the line and accumulates
// the response until the last received line classifies as final or
// prompt (§4.D.1, reusing at.Classify exactly as a plain bufio.Scanner
// loop would have). It returns the accumulated response text.
func (m *Modem) exec(ctx context.Context, cmd string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrNotInitialized
	}

	h, err := m.engine.SubmitWork(nil, execScript(cmd, m.config.ATTimeout), nil)
	if err != nil {
		return "", fmt.Errorf("write command %q: %w", cmd, err)
	}

	waitCtx := ctx
	if m.config.ATTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, m.config.ATTimeout+time.Second)
		defer cancel()
	}

	resp, err := h.Wait(waitCtx)
	if err != nil {
		return resp.Text, err
	}
	if strings.Contains(resp.Text, at.ERROR) {
		return resp.Text, fmt.Errorf("%s", lastLine(resp.Text))
	}
	return resp.Text, nil
}

func execScript(cmd string, timeout time.Duration) func(*atengine.Env) int {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return func(env *atengine.Env) int {
		switch env.State() {
		case 0:
			env.SendLine(cmd)
			env.RecvClr()
			env.ResetTimer()
			env.SetState(1)
			return 0

		case 1:
			switch at.Classify(lastLine(env.RecvBuf())) {
			case at.TypeFinal, at.TypePrompt:
				return 1
			}
			if env.IsTimeout(timeout) {
				return 1
			}
			return 0
		}
		return 1
	}
}

func lastLine(buf string) string {
	buf = strings.TrimRight(buf, "\r\n")
	if i := strings.LastIndex(buf, "\r\n"); i >= 0 {
		return strings.TrimSpace(buf[i+len("\r\n"):])
	}
	return strings.TrimSpace(buf)
}
