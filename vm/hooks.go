package vm

import (
	"sync"
)

// ---------------------------------------------------------------------------
// Event hooks
// ---------------------------------------------------------------------------

// Event names an extension point in the execution loop.
type Event string

const (
	EventBeforeInstruction Event = "before_instruction"
	EventAfterInstruction  Event = "after_instruction"
	EventError             Event = "on_error"
	EventStackPush         Event = "on_stack_push"
	EventStackPop          Event = "on_stack_pop"
	EventDatabaseQuery     Event = "on_database_query"
	EventMatrixOperation   Event = "on_matrix_operation"
)

// EventContext is passed to every callback. Fields are populated per event;
// Value carries the pushed/popped value or handler result where one exists.
type EventContext struct {
	Event       Event
	PC          int
	Instruction *Instruction
	Value       Value
	Err         error
}

// Callback observes an execution event. Callbacks run synchronously on the
// worker goroutine in registration order.
type Callback func(ctx *EventContext)

type registeredCallback struct {
	id int
	cb Callback
}

// HookSet manages callback registration per event. Add and Remove are safe
// from any goroutine; a panicking callback is isolated and logged without
// aborting the loop or the remaining callbacks.
type HookSet struct {
	mu     sync.RWMutex
	nextID int
	hooks  map[Event][]registeredCallback
}

// NewHookSet returns an empty hook set.
func NewHookSet() *HookSet {
	return &HookSet{hooks: make(map[Event][]registeredCallback)}
}

// Add registers a callback for the event and returns a handle for Remove.
func (h *HookSet) Add(event Event, cb Callback) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.hooks[event] = append(h.hooks[event], registeredCallback{id: h.nextID, cb: cb})
	return h.nextID
}

// Remove unregisters a callback by handle. Unknown handles are ignored.
func (h *HookSet) Remove(event Event, id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.hooks[event]
	for i, rc := range list {
		if rc.id == id {
			h.hooks[event] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Count returns the number of callbacks registered for the event.
func (h *HookSet) Count(event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.hooks[event])
}

// fire invokes the event's callbacks in registration order. The list is
// copied under the read lock so callbacks can add or remove hooks.
func (h *HookSet) fire(event Event, ctx *EventContext) {
	h.mu.RLock()
	list := make([]registeredCallback, len(h.hooks[event]))
	copy(list, h.hooks[event])
	h.mu.RUnlock()

	for _, rc := range list {
		h.invoke(event, rc, ctx)
	}
}

func (h *HookSet) invoke(event Event, rc registeredCallback, ctx *EventContext) {
	defer func() {
		if r := recover(); r != nil {
			log.Debugf("hook %d for %s panicked: %v", rc.id, event, r)
		}
	}()
	rc.cb(ctx)
}
