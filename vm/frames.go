package vm

import (
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Frame: a call-stack record
// ---------------------------------------------------------------------------

// noFrame is the id used when a frame has no parent and when no frame is
// current. Real ids start at 1.
const noFrame int64 = 0

// noReturn marks a frame without a return address.
const noReturn = -1

// Frame is a single call-frame record. Parent is an id back-reference into
// the arena, fixed at push time, never a live pointer; this makes cycles in
// the parent chain structurally unrepresentable.
type Frame struct {
	ID         int64
	Name       string
	Locals     map[string]Value
	ReturnAddr int // noReturn when absent
	Parent     int64
	Created    time.Time
}

// FrameDescriptor is one entry of a stack trace.
type FrameDescriptor struct {
	ID         int64
	Name       string
	LocalCount int
	ReturnAddr int
	Depth      int
	Created    time.Time
}

// ---------------------------------------------------------------------------
// FrameStack: arena-backed call-frame manager
// ---------------------------------------------------------------------------

// FrameStack owns all live call frames in an arena keyed by monotonic id and
// enforces the configured depth bound. Popped frames move to a closed-frame
// audit list until purged. The stack is exclusively owned by the worker
// goroutine during a run.
type FrameStack struct {
	arena    map[int64]*Frame
	order    []int64 // bottom-up stack positions
	current  int64
	nextID   int64
	maxDepth int
	closed   []*Frame
}

// NewFrameStack creates a frame stack bounded at maxDepth frames.
func NewFrameStack(maxDepth int) *FrameStack {
	return &FrameStack{
		arena:    make(map[int64]*Frame),
		current:  noFrame,
		nextID:   1,
		maxDepth: maxDepth,
	}
}

// Depth returns the number of live frames.
func (fs *FrameStack) Depth() int { return len(fs.order) }

// Current returns the current frame, or nil when the stack is empty.
func (fs *FrameStack) Current() *Frame {
	if fs.current == noFrame {
		return nil
	}
	return fs.arena[fs.current]
}

// PushFrame creates a frame and makes it current. Fails with StackOverflow
// when the stack already holds maxDepth frames. The new frame's parent is
// the previous current frame's id.
func (fs *FrameStack) PushFrame(name string, locals map[string]Value, returnAddr int) (*Frame, error) {
	if fs.maxDepth > 0 && len(fs.order) >= fs.maxDepth {
		return nil, newFault(FaultStackOverflow,
			fmt.Sprintf("frame stack limit %d reached pushing %q", fs.maxDepth, name)).
			WithContext("frame", name).
			WithContext("depth", len(fs.order))
	}
	if locals == nil {
		locals = make(map[string]Value)
	}
	f := &Frame{
		ID:         fs.nextID,
		Name:       name,
		Locals:     locals,
		ReturnAddr: returnAddr,
		Parent:     fs.current,
		Created:    time.Now(),
	}
	fs.nextID++
	fs.arena[f.ID] = f
	fs.order = append(fs.order, f.ID)
	fs.current = f.ID
	return f, nil
}

// PopFrame removes the current frame, restores its parent as current, and
// retains the popped frame on the closed-frame audit list. Fails with
// StackUnderflow on an empty stack.
func (fs *FrameStack) PopFrame() (*Frame, error) {
	if len(fs.order) == 0 {
		return nil, newFault(FaultStackUnderflow, "pop from empty frame stack")
	}
	top := len(fs.order) - 1
	id := fs.order[top]
	f := fs.arena[id]
	fs.order = fs.order[:top]
	delete(fs.arena, id)
	fs.current = f.Parent
	fs.closed = append(fs.closed, f)
	return f, nil
}

// ClosedFrames returns the audit list of popped frames, oldest first.
func (fs *FrameStack) ClosedFrames() []*Frame {
	out := make([]*Frame, len(fs.closed))
	copy(out, fs.closed)
	return out
}

// PurgeClosed drops the closed-frame audit list and returns how many frames
// were released.
func (fs *FrameStack) PurgeClosed() int {
	n := len(fs.closed)
	fs.closed = nil
	return n
}

// Reset discards all frames, closed frames included. Ids keep counting.
func (fs *FrameStack) Reset() {
	fs.arena = make(map[int64]*Frame)
	fs.order = fs.order[:0]
	fs.current = noFrame
	fs.closed = nil
}

// ---------------------------------------------------------------------------
// Introspection
// ---------------------------------------------------------------------------

// ValidationReport holds the findings of a structural integrity check.
type ValidationReport struct {
	Issues []string
}

// OK reports whether the check found no issues.
func (r ValidationReport) OK() bool { return len(r.Issues) == 0 }

// Validate runs a non-fatal integrity check over the frame stack: cycle
// detection in the parent chain via visited-id tracking, agreement between
// each frame's computed depth and its stack position, and orphan detection
// (live frames with no current frame). It is for introspection and tests
// only; execution never calls it implicitly.
func (fs *FrameStack) Validate() ValidationReport {
	var report ValidationReport

	if len(fs.order) > 0 && fs.current == noFrame {
		report.Issues = append(report.Issues,
			fmt.Sprintf("orphaned state: %d frames present but no current frame", len(fs.order)))
	}
	if fs.current != noFrame {
		if _, ok := fs.arena[fs.current]; !ok {
			report.Issues = append(report.Issues,
				fmt.Sprintf("current frame %d is not in the arena", fs.current))
		}
	}

	// Walk the parent chain from current, watching for revisits and
	// dangling parent ids.
	visited := make(map[int64]bool)
	for id := fs.current; id != noFrame; {
		if visited[id] {
			report.Issues = append(report.Issues,
				fmt.Sprintf("cycle in parent chain at frame %d", id))
			break
		}
		visited[id] = true
		f, ok := fs.arena[id]
		if !ok {
			report.Issues = append(report.Issues,
				fmt.Sprintf("parent chain references missing frame %d", id))
			break
		}
		id = f.Parent
	}

	// Each frame's chain depth must equal its stack position.
	for pos, id := range fs.order {
		f, ok := fs.arena[id]
		if !ok {
			report.Issues = append(report.Issues,
				fmt.Sprintf("stack position %d references missing frame %d", pos, id))
			continue
		}
		if depth, ok := fs.chainDepth(f); !ok {
			report.Issues = append(report.Issues,
				fmt.Sprintf("frame %d has a broken parent chain", id))
		} else if depth != pos {
			report.Issues = append(report.Issues,
				fmt.Sprintf("frame %d at position %d has chain depth %d", id, pos, depth))
		}
	}

	return report
}

// chainDepth counts ancestors of f that are still live in the arena.
func (fs *FrameStack) chainDepth(f *Frame) (int, bool) {
	depth := 0
	visited := map[int64]bool{f.ID: true}
	for id := f.Parent; id != noFrame; {
		if visited[id] {
			return 0, false
		}
		visited[id] = true
		parent, ok := fs.arena[id]
		if !ok {
			return 0, false
		}
		depth++
		id = parent.Parent
	}
	return depth, true
}

// StackTrace walks the current frame's ancestor chain top-down and returns
// one descriptor per frame.
func (fs *FrameStack) StackTrace() []FrameDescriptor {
	var trace []FrameDescriptor
	depth := len(fs.order) - 1
	seen := make(map[int64]bool)
	for id := fs.current; id != noFrame; depth-- {
		if seen[id] {
			break
		}
		seen[id] = true
		f, ok := fs.arena[id]
		if !ok {
			break
		}
		trace = append(trace, FrameDescriptor{
			ID:         f.ID,
			Name:       f.Name,
			LocalCount: len(f.Locals),
			ReturnAddr: f.ReturnAddr,
			Depth:      depth,
			Created:    f.Created,
		})
		id = f.Parent
	}
	return trace
}
