package modem

import (
	"context"
	"fmt"
	"strings"
	"time"

	"i4.energy/across/smsgw/at"
	"i4.energy/across/smsgw/atengine"
)

// SMS represents a text message stored on the modem.
type SMS struct {
	Index  int
	Status string // "REC UNREAD", "REC READ", "STO UNSENT", "STO SENT"
	Sender string
	Time   string
	Text   string
}

// SendSMS sends a text message to the specified recipient.
//
// The message is sent in text mode (not PDU mode). The recipient should be
// in international format (e.g., "+1234567890").
//
// This method blocks until the message is accepted by the network or an
// error occurs. Network delivery (to the final recipient) happens
// asynchronously. A goroutine must be running Loop for the Modem's engine
// to actually advance this submission.
func (m *Modem) SendSMS(ctx context.Context, recipient, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrNotInitialized
	}

	timeout := m.config.ATTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	h, err := m.engine.SubmitWork(nil, sendSMSScript(recipient, message, timeout), nil)
	if err != nil {
		return fmt.Errorf("submit SMS send: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 2*timeout)
	defer cancel()
	resp, err := h.Wait(waitCtx)
	if err != nil {
		return fmt.Errorf("SMS send failed: %w", err)
	}
	if strings.Contains(resp.Text, at.ERROR) {
		return fmt.Errorf("SMS send failed: %s", lastLine(resp.Text))
	}
	if !strings.Contains(resp.Text, at.OK) {
		return fmt.Errorf("unexpected SMS response: %q", resp.Text)
	}
	return nil
}

// sendSMSScript implements the two-phase SMS send protocol as a script
// work (§4.D.1): send AT+CMGS, wait for the "> " prompt, write the message
// body followed by Ctrl-Z — no CRLF, since the modem treats Ctrl-Z itself
// as the body terminator — then wait for the final result line.
func sendSMSScript(recipient, message string, timeout time.Duration) func(*atengine.Env) int {
	const (
		stateAwaitPrompt = 1
		stateAwaitResult = 2
	)
	return func(env *atengine.Env) int {
		switch env.State() {
		case 0:
			env.Printf(`AT+CMGS="%s"`, recipient)
			env.RecvClr()
			env.ResetTimer()
			env.SetState(stateAwaitPrompt)
			return 0

		case stateAwaitPrompt:
			if env.Find(at.Prompt) {
				env.RecvClr()
				env.ResetTimer()
				env.Write([]byte(message + at.CtrlZ))
				env.SetState(stateAwaitResult)
				return 0
			}
			if env.Find(at.ERROR) || env.IsTimeout(timeout) {
				return 1
			}
			return 0

		case stateAwaitResult:
			if at.Classify(lastLine(env.RecvBuf())) == at.TypeFinal {
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
