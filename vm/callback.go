package vm

import (
	"sync"

	"github.com/dialos/dialscript/value"
)

// capabilityGroups names every os.<group> object the VM installs; used to
// recognize a receiver object as a capability rather than a user class
// instance in execCallMethod/nativeGroupName.
var capabilityGroups = map[string]bool{
	"console":   true,
	"display":   true,
	"encoder":   true,
	"touch":     true,
	"system":    true,
	"file":      true,
	"dir":       true,
	"gpio":      true,
	"i2c":       true,
	"buzzer":    true,
	"timer":     true,
	"callbacks": true,
	"memory":    true,
}

func isCapabilityGroup(name string) bool { return capabilityGroups[name] }

type pendingCallback struct {
	fn   value.Value
	args []value.Value
}

// callbackState holds registered event callbacks (callbacks.registerCallback)
// and timer-fired invocations queued by the platform from outside execute
// (spec.md §5: "the platform must not invoke callbacks while an execute
// call is on the stack"; TimerSetTimeout/TimerSetInterval callbacks run on
// whatever goroutine the platform schedules them from, so enqueue must be
// safe for concurrent use, and draining happens synchronously at the top
// of the next Execute).
type callbackState struct {
	mu         sync.Mutex
	pending    []pendingCallback
	registered map[string]value.Value
}

func newCallbackState() *callbackState {
	return &callbackState{registered: make(map[string]value.Value)}
}

// enqueue is the closure body passed to TimerSetTimeout/TimerSetInterval;
// it never touches VM state directly, only the queue.
func (c *callbackState) enqueue(fn value.Value, args []value.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, pendingCallback{fn: fn, args: args})
}

func (c *callbackState) drain() []pendingCallback {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.pending
	c.pending = nil
	return out
}

func (c *callbackState) register(name string, fn value.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registered[name] = fn
}

func (c *callbackState) lookup(name string) (value.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn, ok := c.registered[name]
	return fn, ok
}

// roots returns every value a live callback might still invoke with, so
// VM.Roots can keep them reachable across a GC pass (spec.md §4.4
// Lifecycles: "every callback registered with the platform" is a root).
func (c *callbackState) roots() []value.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	var roots []value.Value
	for _, p := range c.pending {
		roots = append(roots, p.fn)
		roots = append(roots, p.args...)
	}
	for _, fn := range c.registered {
		roots = append(roots, fn)
	}
	return roots
}

// drainCallbacks invokes every timer callback the platform queued since
// the last Execute call, each run to completion before the next (spec.md
// §5 Ordering: callbacks are atomic with respect to the interpreter).
func (vm *VM) drainCallbacks() {
	for _, p := range vm.callbacks.drain() {
		if _, err := vm.invokeFunction(p.fn, p.args); err != nil {
			vm.logDebug("callback invocation failed: %v", err)
		}
	}
}
