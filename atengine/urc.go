package atengine

import "strings"

// recognizeURC is component B: assemble newline-delimited lines from the
// ingress and dispatch each to the first matching registered prefix
// handler. Must be called with e.mu held.
func (e *Engine) recognizeURC(data []byte) {
	if len(data) == 0 {
		if e.urcCnt > 0 && e.clock.Now().Sub(e.urcTimer) > e.urcIdleTimeout {
			// URC stall guard (§4.B, §7): a partial line that's gone idle
			// is dropped without dispatch.
			e.urcCnt = 0
		}
		return
	}

	for _, b := range data {
		e.urcTimer = e.clock.Now()

		if b == '\r' || b == '\n' {
			if e.urcCnt > 2 && e.urcCnt <= len(e.urcBuf) {
				e.commitURCLine(string(e.urcBuf[:e.urcCnt]))
			}
			e.urcCnt = 0
			continue
		}

		if e.urcCnt >= len(e.urcBuf) {
			// Overflow policy: drop the line (§4.B, §7). The count is parked
			// past capacity so the rest of the line is discarded up to its
			// terminator instead of being dispatched as a fragment.
			e.urcCnt = len(e.urcBuf) + 1
			continue
		}
		e.urcBuf[e.urcCnt] = b
		e.urcCnt++
	}
}

// commitURCLine dispatches a committed line to the first URC table entry
// whose prefix matches it (invariant 4), or forwards it to the debug sink
// verbatim if nothing matches and no command is currently outstanding —
// this lets unsolicited banner lines echo during boot without being
// mistaken for noise while a command is in flight.
func (e *Engine) commitURCLine(line string) {
	for _, entry := range e.urcTable {
		if strings.HasPrefix(line, entry.Prefix) {
			traceURC(e.debug, line)
			if entry.Handler != nil {
				entry.Handler(line)
			}
			return
		}
	}
	if e.current == nil {
		traceUnmatched(e.debug, line)
	}
}
