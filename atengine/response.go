package atengine

import (
	"strings"
	"time"
)

// appendResponse is the buffering half of component C: accumulate bytes
// into the response buffer while a current item is outstanding, applying
// the overflow-reset policy (§4.C, §7). It does not classify — classify
// reads the buffer once a type-specific handler knows which matcher and
// timeout apply. Must be called with e.mu held.
func (e *Engine) appendResponse(data []byte) {
	if e.current == nil || len(data) == 0 {
		return
	}

	if e.respCnt+len(data) >= len(e.respBuf) {
		if e.debug != nil {
			e.debug("response buffer overflow, resetting")
		}
		e.respCnt = 0
	}

	n := copy(e.respBuf[e.respCnt:], data)
	e.respCnt += n
	traceIncoming(e.debug, e.response())
}

// response returns the current response buffer contents. Must be called
// with e.mu held.
func (e *Engine) response() string {
	return string(e.respBuf[:e.respCnt])
}

// clearResponse resets the response accumulator. Must be called with e.mu
// held.
func (e *Engine) clearResponse() {
	e.respCnt = 0
}

// classify implements component C's substring/timeout/suspend test: matcher
// is evaluated before "ERROR" (§4.C "Tie-breaks" — the success matcher is
// tested first, which only matters for matchers that are themselves
// substrings of "ERROR", a case the distilled spec notes has no real-world
// callers). Must be called with e.mu held.
func (e *Engine) classify(matcher string, timeout time.Duration) (Result, bool) {
	buf := e.response()
	switch {
	case strings.Contains(buf, matcher):
		return Ok, true
	case strings.Contains(buf, "ERROR"):
		return Error, true
	case e.clock.Now().Sub(e.respTimer) > timeout:
		return Timeout, true
	case e.suspend:
		return Abort, true
	default:
		return 0, false
	}
}
