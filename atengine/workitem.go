package atengine

import (
	"container/list"
	"time"
)

type itemType int

const (
	itemScriptWork itemType = iota
	itemStructuredCmd
	itemSingleLine
	itemMultiLine
)

type itemState int

const (
	stateIdle itemState = iota
	stateReady
	stateCurrent
)

// WorkItem is a pooled, pre-allocated unit of conversation (§3 "Work Item").
// Submission never allocates a new WorkItem; it hands one out of the fixed
// pool and returns ErrPoolExhausted if none is free (§5 back-pressure).
type WorkItem struct {
	typ   itemType
	state itemState
	abort bool

	// i, j, sub are the dispatcher's reserved scratch slots (§4.D.1: "the
	// script is free to maintain its own state across polls in the same
	// i, j, state slots — they are reserved for it"). i counts structured/
	// single-line retry attempts, j counts multi-line retry attempts, sub
	// is the per-type sub-state machine's current state.
	i, j, sub int
	lineIdx   int

	backoffStart time.Time

	cmd      *StructuredCommand
	lines    []string
	scriptFn func(*Env) int

	param any
	cb    func(CommandResponse)

	result   Result
	response string
	err      error

	done chan struct{}
	elem *list.Element
}

func (it *WorkItem) reset() {
	it.abort = false
	it.i, it.j, it.sub, it.lineIdx = 0, 0, 0, 0
	it.backoffStart = time.Time{}
	it.cmd = nil
	it.lines = nil
	it.scriptFn = nil
	it.param = nil
	it.cb = nil
	it.result = 0
	it.response = ""
	it.err = nil
	it.done = make(chan struct{})
}

// itemPool holds the fixed-size pool of work items in two lists — idle and
// ready; the current item is held by the Engine. This is the "owned doubly-
// linked lists" alternative to intrusive list nodes the distilled spec's
// Design Notes call out as an acceptable idiomatic replacement.
type itemPool struct {
	idle  *list.List
	ready *list.List
}

func newItemPool(size int) *itemPool {
	p := &itemPool{idle: list.New(), ready: list.New()}
	for i := 0; i < size; i++ {
		p.idle.PushBack(&WorkItem{state: stateIdle})
	}
	return p
}

// allocate moves one item Idle→Ready (§3 Lifecycle), or returns nil if the
// idle list is empty.
func (p *itemPool) allocate() *WorkItem {
	e := p.idle.Front()
	if e == nil {
		return nil
	}
	p.idle.Remove(e)
	item := e.Value.(*WorkItem)
	item.reset()
	item.state = stateReady
	item.elem = p.ready.PushBack(item)
	return item
}

// popReady moves the head of Ready to Current (§4.D step 2), preserving
// FIFO submission order.
func (p *itemPool) popReady() *WorkItem {
	e := p.ready.Front()
	if e == nil {
		return nil
	}
	p.ready.Remove(e)
	item := e.Value.(*WorkItem)
	item.elem = nil
	item.state = stateCurrent
	return item
}

// retire moves an item Current→Idle (§3 Lifecycle, on completion or abort).
func (p *itemPool) retire(item *WorkItem) {
	item.state = stateIdle
	item.elem = p.idle.PushBack(item)
}

func (p *itemPool) readyLen() int { return p.ready.Len() }
