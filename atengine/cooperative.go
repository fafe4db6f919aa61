package atengine

// Poll is the cooperative profile's single public entry point: one ingress
// cycle followed by one dispatcher advance (§2, §4.A step by step). Poll
// holds the engine lock for the whole cycle, so concurrent calls run one
// after another. It must not be re-entered: a completion callback, URC
// handler or script work that calls Poll or a submit method while Poll is
// running it deadlocks on that lock.
func (e *Engine) Poll() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if err := e.ingress(); err != nil {
		return err
	}
	e.dispatch()
	return nil
}
