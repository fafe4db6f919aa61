package modem_test

import (
	"sync"

	gomock "go.uber.org/mock/gomock"
	"i4.energy/across/smsgw/modem"
)

// responseQueue feeds canned response bytes to a MockTransport's Read
// expectation in FIFO order, returning (0, nil) when empty. atengine's
// ingress loop issues a non-blocking Read on every poll tick regardless
// of whether a response is actually pending, so Read calls can't be
// pinned to a fixed count the way Write calls can.
type responseQueue struct {
	mu   sync.Mutex
	data []byte
}

func (q *responseQueue) push(s string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.data = append(q.data, []byte(s)...)
}

func (q *responseQueue) read(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return 0, nil
	}
	n := copy(p, q.data)
	q.data = q.data[n:]
	return n, nil
}

// initMockCalls arms transport's single Read expectation (shared by every
// write that follows, in or out of the bring-up sequence) and the five
// bring-up commands in the order New's init sequence issues them,
// returning their Write expectations — so a caller can splice them into a
// larger gomock.InOrder chain alongside the Dial call that precedes them
// — plus the queue itself, so later Write expectations in the same test
// can push their own canned responses onto it.
func initMockCalls(transport *modem.MockTransport) ([]any, *responseQueue) {
	q := &responseQueue{}
	transport.EXPECT().Read(gomock.Any()).DoAndReturn(q.read).AnyTimes()

	step := func(wire, resp string, n int) *gomock.Call {
		return transport.EXPECT().Write([]byte(wire)).Return(n, nil).Do(func([]byte) {
			q.push(resp)
		})
	}

	calls := []any{
		step("AT\r\n", "\r\nOK\r\n", 4),
		step("ATE0\r\n", "\r\nOK\r\n", 6),
		step("AT+CMEE=2\r\n", "\r\nOK\r\n", 11),
		step("AT+CPIN?\r\n", "+CPIN: READY\r\nOK\r\n", 10),
		step("AT+CMGF=1\r\n", "\r\nOK\r\n", 11),
	}
	return calls, q
}
