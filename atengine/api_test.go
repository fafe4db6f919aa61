package atengine

import (
	"context"
	"testing"
	"time"
)

func TestHandleWaitReturnsOnCompletion(t *testing.T) {
	tr := &fakeTransport{}
	clk := newFakeClock()
	e := newTestEngine(t, tr, clk)

	h, err := e.SubmitSingleLine("AT", nil)
	if err != nil {
		t.Fatalf("SubmitSingleLine: %v", err)
	}

	done := make(chan struct{})
	var resp CommandResponse
	var waitErr error
	go func() {
		resp, waitErr = h.Wait(context.Background())
		close(done)
	}()

	if err := e.Poll(); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	tr.feed("\r\nOK\r\n")
	if err := e.Poll(); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait never returned")
	}
	if waitErr != nil {
		t.Fatalf("Wait err = %v", waitErr)
	}
	if resp.Result != Ok {
		t.Fatalf("Result = %v, want Ok", resp.Result)
	}
}

func TestHandleWaitRespectsContext(t *testing.T) {
	tr := &fakeTransport{}
	clk := newFakeClock()
	e := newTestEngine(t, tr, clk)

	h, err := e.SubmitSingleLine("AT", nil)
	if err != nil {
		t.Fatalf("SubmitSingleLine: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = h.Wait(ctx)
	if err != context.DeadlineExceeded {
		t.Fatalf("Wait err = %v, want DeadlineExceeded", err)
	}
}

func TestSuspendResumeRoundTripIsNoop(t *testing.T) {
	tr := &fakeTransport{}
	clk := newFakeClock()
	e := newTestEngine(t, tr, clk)

	e.Suspend()
	e.Resume()

	e.mu.Lock()
	suspended := e.suspend
	e.mu.Unlock()
	if suspended {
		t.Fatal("suspend flag should be cleared after Resume")
	}
}

func TestAbortUnknownHandle(t *testing.T) {
	tr := &fakeTransport{}
	clk := newFakeClock()
	e := newTestEngine(t, tr, clk)

	var zero Handle
	if err := zero.Abort(); err != ErrUnknownItem {
		t.Fatalf("Abort on zero Handle = %v, want ErrUnknownItem", err)
	}

	other := newTestEngine(t, &fakeTransport{}, newFakeClock())
	h, err := other.SubmitSingleLine("AT", nil)
	if err != nil {
		t.Fatalf("SubmitSingleLine: %v", err)
	}
	if err := e.AbortItem(h); err != ErrUnknownItem {
		t.Fatalf("AbortItem across engines = %v, want ErrUnknownItem", err)
	}
}
