package atengine

import "time"

const backoffWindow = 500 * time.Millisecond

// dispatch is component D: advance the current item's state machine by one
// step, retiring it on completion or forced abort. Must be called with
// e.mu held.
func (e *Engine) dispatch() {
	if e.current == nil {
		if e.pool.readyLen() == 0 {
			return
		}
		item := e.pool.popReady()
		item.i, item.j, item.sub = 0, 0, 0
		e.clearResponse()
		e.respTimer = e.clock.Now()
		e.current = item
	}

	item := e.current
	finished := item.abort || e.runHandler(item)

	if finished {
		if item.abort && item.result == 0 && item.err == nil {
			item.result = Abort
		}
		e.completeCurrent(item)
	}
}

func (e *Engine) runHandler(item *WorkItem) bool {
	switch item.typ {
	case itemScriptWork:
		return e.scriptHandler(item)
	case itemStructuredCmd:
		return e.structuredCmdHandler(item)
	case itemSingleLine:
		return e.singleLineHandler(item)
	case itemMultiLine:
		return e.multiLineHandler(item)
	default:
		return true
	}
}

func (e *Engine) completeCurrent(item *WorkItem) {
	item.response = e.response()
	e.current = nil
	e.pool.retire(item)
	e.fireCompletion(item)
}

func (e *Engine) fireCompletion(item *WorkItem) {
	resp := CommandResponse{Result: item.result, Text: item.response, Err: item.err}
	if item.cb != nil {
		item.cb(resp)
	}
	if item.done != nil {
		close(item.done)
	}
}

// structuredCmdHandler is §4.D.2 (do_cmd_handler): a three-state
// sub-machine keyed on item.sub — Send (0), Await (1), Back-off (2).
func (e *Engine) structuredCmdHandler(item *WorkItem) bool {
	cmd := item.cmd
	switch item.sub {
	case 0:
		env := &Env{eng: e, item: item}
		cmd.Sender(env)
		e.clearResponse()
		e.respTimer = e.clock.Now()
		item.sub = 1
		return false

	case 1:
		res, done := e.classify(cmd.Matcher, cmd.Timeout)
		if !done {
			return false
		}
		switch res {
		case Ok:
			item.result = Ok
			return true
		case Error:
			item.i++
			if item.i >= cmd.Retry {
				item.result = Error
				return true
			}
			item.sub = 2
			item.backoffStart = e.clock.Now()
			return false
		case Timeout:
			item.i++
			if item.i >= cmd.Retry {
				item.result = Timeout
				return true
			}
			item.sub = 0
			return false
		default: // Abort
			item.result = Abort
			return true
		}

	case 2:
		if e.clock.Now().Sub(item.backoffStart) > backoffWindow {
			item.sub = 0
		}
		return false

	default:
		return true
	}
}

// singleLineHandler is §4.D.3: identical to structuredCmdHandler with
// matcher "OK", retry 3, and per-attempt timeout 3000+i*2000ms baked in.
func (e *Engine) singleLineHandler(item *WorkItem) bool {
	const matcher = "OK"
	const retry = 3
	timeout := time.Duration(3000+item.i*2000) * time.Millisecond

	switch item.sub {
	case 0:
		e.sendLine(item.lines[0])
		e.clearResponse()
		e.respTimer = e.clock.Now()
		item.sub = 1
		return false

	case 1:
		res, done := e.classify(matcher, timeout)
		if !done {
			return false
		}
		switch res {
		case Ok:
			item.result = Ok
			return true
		case Error:
			item.i++
			if item.i >= retry {
				item.result = Error
				return true
			}
			item.sub = 2
			item.backoffStart = e.clock.Now()
			return false
		case Timeout:
			item.i++
			if item.i >= retry {
				item.result = Timeout
				return true
			}
			item.sub = 0
			return false
		default: // Abort
			item.result = Abort
			return true
		}

	case 2:
		if e.clock.Now().Sub(item.backoffStart) > backoffWindow {
			item.sub = 0
		}
		return false

	default:
		return true
	}
}

// multiLineHandler is §4.D.4. On an "OK" the distilled spec's Open
// Questions flag the source's "e->i++ then e->i = 0" as a likely typo; here
// the index advances and the retry counter j resets, matching the spec's
// stated intent.
func (e *Engine) multiLineHandler(item *WorkItem) bool {
	switch item.sub {
	case 0:
		if item.lineIdx >= len(item.lines) {
			item.result = Ok
			return true
		}
		e.sendLine(item.lines[item.lineIdx])
		e.clearResponse()
		e.respTimer = e.clock.Now()
		item.sub = 1
		return false

	case 1:
		res, done := e.classify("OK", 3000*time.Millisecond)
		if !done {
			return false
		}
		switch res {
		case Ok:
			item.lineIdx++
			item.j = 0
			item.sub = 0
			return false
		case Error:
			item.j++
			if item.j >= 3 {
				item.result = Error
				return true
			}
			item.sub = 2
			item.backoffStart = e.clock.Now()
			return false
		case Timeout:
			item.result = Timeout
			return true
		default: // Abort
			item.result = Abort
			return true
		}

	case 2:
		if e.clock.Now().Sub(item.backoffStart) > backoffWindow {
			item.sub = 0
		}
		return false

	default:
		return true
	}
}
