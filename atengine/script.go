package atengine

import (
	"fmt"
	"strings"
	"time"
)

// Env is the capability-scoped interface a ScriptWork function receives —
// the Go replacement for the distilled spec's function-pointer callback
// table (§9 Design Note: "function-pointer callback tables → trait/
// interface"). It exposes the operations §4.D.1 lists
// (printf, find, recvbuf, recvlen, recvclr, reset_timer, is_timeout, abort),
// the caller's own parameter and the item's i/j/state scratch slots, plus
// SendLine and Write for unformatted and raw output — a script work cannot
// reach into the engine's private buffers or the other items in the pool.
type Env struct {
	eng  *Engine
	item *WorkItem
}

// Printf formats args and writes the result followed by CRLF to the
// transport, tracing it as an outgoing command.
func (e *Env) Printf(format string, args ...any) {
	e.eng.sendLine(fmt.Sprintf(format, args...))
}

// SendLine writes line followed by CRLF, without formatting.
func (e *Env) SendLine(line string) {
	e.eng.sendLine(line)
}

// Write sends raw bytes with no CRLF appended — used for SMS body + Ctrl-Z,
// where the trailing control character, not CRLF, terminates the write.
func (e *Env) Write(b []byte) {
	e.eng.writeRaw(b)
}

// Find reports whether substr currently appears in the response buffer.
//
// Env methods that touch engine state assume the caller is executing
// inside a script work handler, which dispatch already runs with e.mu
// held (§4.D) — they must not re-lock it themselves.
func (e *Env) Find(substr string) bool {
	return strings.Contains(e.eng.response(), substr)
}

// RecvBuf returns the current contents of the response accumulator.
func (e *Env) RecvBuf() string {
	return e.eng.response()
}

// RecvLen returns the current length of the response accumulator.
func (e *Env) RecvLen() int {
	return e.eng.respCnt
}

// RecvClr clears the response accumulator.
func (e *Env) RecvClr() {
	e.eng.clearResponse()
}

// ResetTimer re-arms the per-attempt timeout, as the dispatcher's Send
// states do for the built-in item types.
func (e *Env) ResetTimer() {
	e.eng.respTimer = e.eng.clock.Now()
}

// IsTimeout reports whether d has elapsed since the last ResetTimer call.
func (e *Env) IsTimeout(d time.Duration) bool {
	return e.eng.clock.Now().Sub(e.eng.respTimer) > d
}

// Abort marks this work item's abort flag; the dispatcher retires it at
// the end of the current handler invocation.
func (e *Env) Abort() {
	e.item.abort = true
}

// Param returns the opaque parameter the caller passed to SubmitWork.
func (e *Env) Param() any {
	return e.item.param
}

// I, J and State expose the reserved scratch slots (§4.D.1) so a script can
// maintain its own state machine across polls without any extra storage.
func (e *Env) I() int         { return e.item.i }
func (e *Env) SetI(n int)     { e.item.i = n }
func (e *Env) J() int         { return e.item.j }
func (e *Env) SetJ(n int)     { e.item.j = n }
func (e *Env) State() int     { return e.item.sub }
func (e *Env) SetState(n int) { e.item.sub = n }

func (e *Engine) scriptHandler(item *WorkItem) bool {
	env := &Env{eng: e, item: item}
	return item.scriptFn(env) != 0
}
