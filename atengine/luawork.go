package atengine

import (
	"time"

	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"
)

// SubmitLuaWork submits a Lua-scripted work routine (§4.F). script is
// compiled once and wrapped as an ordinary ScriptWork: nothing in §4.D.1
// requires the script-work function to be compiled Go code, only that it
// be callable once per poll and return an integer (0 = keep running,
// nonzero = finished). The chunk sees a global "at" table mirroring Env's
// method set (at.printf, at.find, at.recvbuf, at.recvlen, at.recvclr,
// at.reset_timer, at.is_timeout, at.abort, at.state/set_state,
// at.i/set_i, at.j/set_j) — the same reserved scratch slots a native
// script work would use to track its own progress across polls.
//
// This lets an operator patch a modem bring-up quirk in the field without
// a Go recompile — at the cost of losing compile-time checking on the
// script body, which is the caller's trade to make.
func (e *Engine) SubmitLuaWork(params any, script string, cb func(CommandResponse)) (Handle, error) {
	L := lua.NewState()
	fn, err := L.LoadString(script)
	if err != nil {
		L.Close()
		return Handle{}, errors.Wrap(err, "atengine: compile lua work")
	}

	bridge := &luaBridge{L: L, fn: fn}
	h, err := e.SubmitWork(params, bridge.run, func(r CommandResponse) {
		L.Close()
		if cb != nil {
			cb(r)
		}
	})
	if err != nil {
		L.Close()
	}
	return h, err
}

type luaBridge struct {
	L  *lua.LState
	fn *lua.LFunction
}

func (b *luaBridge) run(env *Env) int {
	b.installEnv(env)

	if err := b.L.CallByParam(lua.P{Fn: b.fn, NRet: 1, Protect: true}); err != nil {
		env.Abort()
		return 1
	}
	ret := b.L.Get(-1)
	b.L.Pop(1)
	if n, ok := ret.(lua.LNumber); ok {
		return int(n)
	}
	return 1
}

func (b *luaBridge) installEnv(env *Env) {
	L := b.L
	tbl := L.NewTable()
	reg := func(name string, fn lua.LGFunction) {
		L.SetField(tbl, name, L.NewFunction(fn))
	}

	reg("printf", func(L *lua.LState) int {
		format := L.CheckString(1)
		args := make([]any, 0, L.GetTop()-1)
		for i := 2; i <= L.GetTop(); i++ {
			args = append(args, L.Get(i).String())
		}
		env.Printf(format, args...)
		return 0
	})
	reg("find", func(L *lua.LState) int {
		L.Push(lua.LBool(env.Find(L.CheckString(1))))
		return 1
	})
	reg("recvbuf", func(L *lua.LState) int {
		L.Push(lua.LString(env.RecvBuf()))
		return 1
	})
	reg("recvlen", func(L *lua.LState) int {
		L.Push(lua.LNumber(env.RecvLen()))
		return 1
	})
	reg("recvclr", func(L *lua.LState) int {
		env.RecvClr()
		return 0
	})
	reg("reset_timer", func(L *lua.LState) int {
		env.ResetTimer()
		return 0
	})
	reg("is_timeout", func(L *lua.LState) int {
		ms := L.CheckNumber(1)
		L.Push(lua.LBool(env.IsTimeout(time.Duration(ms) * time.Millisecond)))
		return 1
	})
	reg("abort", func(L *lua.LState) int {
		env.Abort()
		return 0
	})
	reg("state", func(L *lua.LState) int {
		L.Push(lua.LNumber(env.State()))
		return 1
	})
	reg("set_state", func(L *lua.LState) int {
		env.SetState(int(L.CheckNumber(1)))
		return 0
	})
	reg("i", func(L *lua.LState) int {
		L.Push(lua.LNumber(env.I()))
		return 1
	})
	reg("set_i", func(L *lua.LState) int {
		env.SetI(int(L.CheckNumber(1)))
		return 0
	})
	reg("j", func(L *lua.LState) int {
		L.Push(lua.LNumber(env.J()))
		return 1
	})
	reg("set_j", func(L *lua.LState) int {
		env.SetJ(int(L.CheckNumber(1)))
		return 0
	})

	L.SetGlobal("at", tbl)
}
