package atengine

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Run is the blocking profile's thread_body (§4.E): it repeatedly polls
// until ctx is canceled. Exactly one goroutine should call Run for a given
// Engine at a time; Do (from other goroutines) submits work for that
// goroutine's dispatcher to advance.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := e.Poll(); err != nil {
			if errors.Is(err, ErrClosed) {
				return
			}
			e.mu.Lock()
			onError := e.onError
			e.mu.Unlock()
			if onError != nil {
				onError(err)
			}
		}
		e.clock.Sleep(e.idlePoll)
	}
}

// Do issues cmd synchronously, implementing §4.E's do_cmd_sync:
//
//  1. Acquire cmd_lock bounded by timeout; ErrLockTimeout on failure.
//  2. Wait until no URC line is mid-accumulation, so a host command can
//     never be interleaved into the middle of an unfinished URC line.
//  3. Submit cmd as an ordinary single-line item and block on its
//     completion channel up to timeout.
//
// Do shares the same submission and dispatch path Poll-driven callers use
// — there is no separate engine-private fast path — consistent with the
// "one core, two shells" design note: the Run goroutine's dispatcher is
// what actually advances the item; Do only arbitrates and waits.
func (e *Engine) Do(ctx context.Context, cmd string, timeout time.Duration) (CommandResponse, error) {
	lockCtx, cancelLock := context.WithTimeout(ctx, timeout)
	defer cancelLock()
	if err := e.cmdLock.Acquire(lockCtx, 1); err != nil {
		return CommandResponse{}, ErrLockTimeout
	}
	defer e.cmdLock.Release(1)

	for {
		e.mu.Lock()
		drained := e.urcCnt == 0
		closed := e.closed
		e.mu.Unlock()
		if closed {
			return CommandResponse{}, ErrClosed
		}
		if drained {
			break
		}
		select {
		case <-ctx.Done():
			return CommandResponse{}, ctx.Err()
		default:
			e.clock.Sleep(10 * time.Millisecond)
		}
	}

	h, err := e.SubmitSingleLine(cmd, nil)
	if err != nil {
		return CommandResponse{}, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return h.Wait(waitCtx)
}
