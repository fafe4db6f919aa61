package atengine

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

// fakeTransport is a non-blocking io.ReadWriter double: Read returns
// (0, nil) immediately when nothing is queued, matching the contract Config
// documents for a real serial transport.
type fakeTransport struct {
	mu  sync.Mutex
	in  []byte
	out bytes.Buffer
}

func (f *fakeTransport) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.in) == 0 {
		return 0, nil
	}
	n := copy(p, f.in)
	f.in = f.in[n:]
	return n, nil
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out.Write(p)
}

func (f *fakeTransport) feed(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.in = append(f.in, []byte(s)...)
}

func (f *fakeTransport) written() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out.String()
}

// fakeClock gives tests control over timeout expiry without real sleeps.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEngine(t *testing.T, tr *fakeTransport, clk *fakeClock) *Engine {
	t.Helper()
	e, err := New(Config{
		Transport: tr,
		Clock:     clk,
		Debug:     noopDebug,
		PoolSize:  4,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}
