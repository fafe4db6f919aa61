package atengine

import (
	"context"
	"time"
)

// Handle references a submitted work item. It is the caller's only way to
// wait for or abort a specific submission.
type Handle struct {
	eng  *Engine
	item *WorkItem
}

// Wait blocks until the item completes or ctx is done, whichever comes
// first. It may be called from any goroutine other than the one driving
// Poll or Run: that goroutine is what completes the item, so waiting on it
// there blocks until ctx is done. Wait never touches engine-private state
// without the engine's lock.
func (h Handle) Wait(ctx context.Context) (CommandResponse, error) {
	if h.item == nil {
		return CommandResponse{}, ErrUnknownItem
	}
	select {
	case <-h.item.done:
		h.eng.mu.Lock()
		defer h.eng.mu.Unlock()
		return CommandResponse{Result: h.item.result, Text: h.item.response, Err: h.item.err}, nil
	case <-ctx.Done():
		return CommandResponse{}, ctx.Err()
	}
}

// Abort force-completes this item (§4.E abort_item): the dispatcher retires
// it, as Abort, at the end of its current handler invocation.
func (h Handle) Abort() error {
	if h.eng == nil {
		return ErrUnknownItem
	}
	return h.eng.AbortItem(h)
}

// SubmitSingleLine allocates an idle item for a SingleLine command (§4.D.3)
// and pushes it onto the ready list. cb may be nil if the caller only
// intends to use the returned Handle's Wait.
func (e *Engine) SubmitSingleLine(cmd string, cb func(CommandResponse)) (Handle, error) {
	return e.submit(itemSingleLine, func(item *WorkItem) {
		item.lines = []string{cmd}
		item.cb = cb
	})
}

// SubmitMultiLine allocates an idle item for a MultiLine command sequence
// (§4.D.4).
func (e *Engine) SubmitMultiLine(cmds []string, cb func(CommandResponse)) (Handle, error) {
	return e.submit(itemMultiLine, func(item *WorkItem) {
		item.lines = append([]string(nil), cmds...)
		item.cb = cb
	})
}

// SubmitCommand allocates an idle item for a caller-described structured
// command (§4.D.2). params is an opaque value forwarded unchanged; cmd's
// own Callback fires on completion.
func (e *Engine) SubmitCommand(params any, cmd *StructuredCommand) (Handle, error) {
	return e.submit(itemStructuredCmd, func(item *WorkItem) {
		item.cmd = cmd
		item.param = params
		if cmd.Callback != nil {
			item.cb = cmd.Callback
		}
	})
}

// SubmitWork allocates an idle item for a caller-provided script routine
// (§4.D.1). fn must return non-zero to release the channel.
func (e *Engine) SubmitWork(params any, fn func(*Env) int, cb func(CommandResponse)) (Handle, error) {
	return e.submit(itemScriptWork, func(item *WorkItem) {
		item.scriptFn = fn
		item.param = params
		item.cb = cb
	})
}

func (e *Engine) submit(typ itemType, configure func(*WorkItem)) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return Handle{}, ErrClosed
	}
	item := e.pool.allocate()
	if item == nil {
		return Handle{}, ErrPoolExhausted
	}
	item.typ = typ
	configure(item)
	return Handle{eng: e, item: item}, nil
}

// Suspend requests abort of the current item. §4.C: it is observed at the
// next response-matcher tick, classifying the current item as Abort.
func (e *Engine) Suspend() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.suspend = true
}

// Resume clears a prior Suspend. With no intervening bytes, Suspend then
// Resume is a no-op on the idle list (§8 round-trip law).
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.suspend = false
}

// AbortItem force-completes h's item. The dispatcher retires it as Abort at
// the end of its current handler invocation (§4.D step 3).
func (e *Engine) AbortItem(h Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if h.item == nil || h.eng != e || h.item.state == stateIdle {
		return ErrUnknownItem
	}
	h.item.abort = true
	return nil
}

// Busy reports true iff a current item exists, the ready list is
// non-empty, or a URC line has been mid-accumulation within the last 2s
// (§4.E). Note the name's sense is the inverse of what a caller might
// expect from "idle": Busy can be true even when no command is
// outstanding, purely because a URC line is still arriving — this
// preserves the distilled spec's documented (if oddly named) behavior
// rather than renaming it into something it isn't.
func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil {
		return true
	}
	if e.pool.readyLen() > 0 {
		return true
	}
	return e.urcCnt > 0 && e.clock.Now().Sub(e.urcTimer) <= 2*time.Second
}
