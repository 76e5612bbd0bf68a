// Package vm implements the dialScript stack-based virtual machine: call
// frames, exception handlers, the mark-sweep-collected heap, the
// CALL_NATIVE/CALL_METHOD platform bridge, and the cooperative
// instruction-budget scheduler described in spec.md §4.6/§5. The
// interpreter loop is grounded on the teacher's own `vm.exec`
// (core.go/internals.go): a single `step` per budget tick, faults raised
// via panic and recovered at the top of that step (vm.halt/vmHaltError in
// the teacher), converted here into dialScript's own catchable-by-TRY
// fault model instead of the teacher's always-fatal halt.
package vm

import (
	"context"
	"fmt"

	"github.com/dialos/dialscript/bytecode"
	"github.com/dialos/dialscript/heap"
	"github.com/dialos/dialscript/platform"
	"github.com/dialos/dialscript/value"
)

// Result is the outcome of one Execute call (spec.md §4.6 Execute contract).
type Result int

const (
	// ResultOk means the instruction budget was exhausted with the VM
	// still running.
	ResultOk Result = iota
	// ResultYield means the program called system.sleep; the host should
	// not step again until the requested time has elapsed.
	ResultYield
	// ResultFinished means HALT was reached or a top-level RETURN popped
	// the last frame.
	ResultFinished
	// ResultError means a fatal, unhandled runtime error halted the VM.
	ResultError
	// ResultOutOfMemory means a heap allocation failed; the VM is still
	// otherwise valid and the host may run GC and call Execute again.
	ResultOutOfMemory
)

func (r Result) String() string {
	switch r {
	case ResultOk:
		return "Ok"
	case ResultYield:
		return "Yield"
	case ResultFinished:
		return "Finished"
	case ResultError:
		return "Error"
	case ResultOutOfMemory:
		return "OutOfMemory"
	default:
		return "Unknown"
	}
}

// CallFrame is one function/method/constructor activation (spec.md §3).
type CallFrame struct {
	ReturnPC     uint32
	StackBase    int
	Locals       []value.Value
	FunctionName string
}

func (f *CallFrame) local(idx uint8) value.Value {
	if int(idx) >= len(f.Locals) {
		return value.Null
	}
	return f.Locals[idx]
}

func (f *CallFrame) setLocal(idx uint8, v value.Value) {
	if int(idx) >= len(f.Locals) {
		grown := make([]value.Value, int(idx)+1)
		copy(grown, f.Locals)
		for i := len(f.Locals); i < len(grown); i++ {
			grown[i] = value.Null
		}
		f.Locals = grown
	}
	f.Locals[idx] = v
}

// exceptionHandler is one entry of the TRY handler stack (spec.md §3).
type exceptionHandler struct {
	catchPC      uint32
	snapshotSize int
}

// vmFault is panicked by opcode handlers on a catchable runtime error
// (StackUnderflow, DivisionByZero, TypeMismatch, and similar). It is
// always recovered inside step(); it must never escape the vm package.
type vmFault struct{ msg string }

// vmOOM is panicked when a heap allocation fails; unlike vmFault it is
// never converted into a catchable exception (spec.md §7: OutOfMemory is
// the one error kind a TRY cannot catch).
type vmOOM struct{}

// VM interprets one loaded bytecode.Module against one heap.ValuePool and
// one platform.Platform. A VM is single-threaded and owned by exactly one
// host task at a time (spec.md §5).
type VM struct {
	mod      *bytecode.Module
	heap     *heap.ValuePool
	platform platform.Platform

	pc       uint32
	stack    []value.Value
	frames   []*CallFrame
	globals  []value.Value
	handlers []exceptionHandler

	running bool
	err     error

	yieldRequested bool
	sleepingUntil  uint32

	osGlobalIndex int // -1 if the program never references "os"
	osValue       value.Value

	callbacks *callbackState

	logf func(format string, args ...interface{})
}

// New constructs a VM ready to run mod's top-level code against plat.
func New(mod *bytecode.Module, plat platform.Platform, opts ...Option) (*VM, error) {
	heapSize := int(mod.Metadata.HeapSize)
	vm := &VM{
		mod:           mod,
		platform:      plat,
		osGlobalIndex: -1,
	}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.heap == nil {
		if heapSize <= 0 {
			heapSize = 8192
		}
		vm.heap = heap.New(heapSize)
	}
	vm.callbacks = newCallbackState()
	vm.globals = make([]value.Value, mod.NumGlobals())
	for i := range vm.globals {
		vm.globals[i] = value.Null
	}
	if idx := findGlobal(mod, "os"); idx >= 0 {
		osVal, err := vm.newOSObject()
		if err != nil {
			return nil, err
		}
		vm.osGlobalIndex = idx
		vm.osValue = osVal
		vm.globals[idx] = osVal
	}
	vm.Reset()
	return vm, nil
}

func findGlobal(mod *bytecode.Module, name string) int {
	for i := 0; i < mod.NumGlobals(); i++ {
		if n, ok := mod.Global(uint16(i)); ok && n == name {
			return i
		}
	}
	return -1
}

// Reset re-initializes pc, the operand stack, the call stack, and the
// exception-handler stack, restoring globals to null except for
// platform-owned entries like "os" (spec.md §5 Cancellation/reset()).
func (vm *VM) Reset() {
	vm.pc = vm.mod.MainEntryPoint
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.handlers = vm.handlers[:0]
	vm.running = true
	vm.err = nil
	vm.yieldRequested = false
	for i := range vm.globals {
		vm.globals[i] = value.Null
	}
	if vm.osGlobalIndex >= 0 {
		vm.globals[vm.osGlobalIndex] = vm.osValue
	}
}

// Err returns the halting error after Execute returns ResultError.
func (vm *VM) Err() error { return vm.err }

// Global reads a top-level variable by name, for a host inspecting program
// state between Execute calls (e.g. asserting a callback-incremented
// counter, spec.md §8 scenario 6).
func (vm *VM) Global(name string) (value.Value, bool) {
	idx := findGlobal(vm.mod, name)
	if idx < 0 {
		return value.Null, false
	}
	return vm.globals[idx], true
}

// Heap exposes the VM's ValuePool, primarily so a host can call Collect
// between Execute calls or after ResultOutOfMemory (spec.md §4.7).
func (vm *VM) Heap() *heap.ValuePool { return vm.heap }

// Roots returns the current GC root set: the operand stack, every active
// frame's locals, the globals table, everything below each exception
// handler's stack snapshot, and every value retained by a registered
// callback (spec.md §4.7).
func (vm *VM) Roots() []value.Value {
	var roots []value.Value
	roots = append(roots, vm.stack...)
	for _, f := range vm.frames {
		roots = append(roots, f.Locals...)
	}
	roots = append(roots, vm.globals...)
	for _, h := range vm.handlers {
		n := h.snapshotSize
		if n > len(vm.stack) {
			n = len(vm.stack)
		}
		roots = append(roots, vm.stack[:n]...)
	}
	roots = append(roots, vm.callbacks.roots()...)
	return roots
}

// Execute interprets at most budget instructions (spec.md §4.6).
func (vm *VM) Execute(ctx context.Context, budget int) (Result, error) {
	vm.drainCallbacks()
	for i := 0; i < budget; i++ {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ResultOk, ctx.Err()
			default:
			}
		}
		if !vm.running {
			if vm.err != nil {
				return ResultError, vm.err
			}
			return ResultFinished, nil
		}
		switch vm.step() {
		case stepOOM:
			return ResultOutOfMemory, nil
		case stepYield:
			return ResultYield, nil
		case stepHalted:
			if vm.err != nil {
				return ResultError, vm.err
			}
			return ResultFinished, nil
		}
	}
	if !vm.running {
		if vm.err != nil {
			return ResultError, vm.err
		}
		return ResultFinished, nil
	}
	return ResultOk, nil
}

type stepOutcome int

const (
	stepOK stepOutcome = iota
	stepYield
	stepHalted
	stepOOM
)

// step executes exactly one instruction, recovering any vmFault/vmOOM
// panic raised along the way (spec.md §7: every runtime error kind except
// OutOfMemory is catchable by an active TRY handler).
func (vm *VM) step() (outcome stepOutcome) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch f := r.(type) {
		case vmOOM:
			outcome = stepOOM
		case vmFault:
			if sv, ok := vm.heap.AllocateString(f.msg); ok && vm.raise(value.StringRef(sv)) {
				outcome = stepOK
			} else {
				vm.fatal(fmt.Errorf("%s", f.msg))
				outcome = stepHalted
			}
		default:
			panic(r)
		}
	}()

	vm.dispatchOne()

	if vm.yieldRequested {
		vm.yieldRequested = false
		return stepYield
	}
	if !vm.running {
		return stepHalted
	}
	return stepOK
}

func (vm *VM) fatal(err error) {
	vm.running = false
	vm.err = err
}

// fault aborts the current instruction with a catchable runtime error.
func (vm *VM) fault(format string, args ...interface{}) {
	panic(vmFault{msg: fmt.Sprintf(format, args...)})
}

func (vm *VM) outOfMemory() { panic(vmOOM{}) }

// raise unwinds the exception-handler stack looking for a handler for v,
// mirroring THROW's own semantics (spec.md §4.6 Exceptions) so that
// internal runtime faults and explicit THROW share one code path.
func (vm *VM) raise(v value.Value) bool {
	for len(vm.handlers) > 0 {
		h := vm.handlers[len(vm.handlers)-1]
		vm.handlers = vm.handlers[:len(vm.handlers)-1]
		if h.snapshotSize <= len(vm.stack) {
			vm.stack = vm.stack[:h.snapshotSize]
		}
		vm.stack = append(vm.stack, v)
		vm.pc = h.catchPC
		return true
	}
	return false
}

func (vm *VM) logDebug(format string, args ...interface{}) {
	if vm.logf != nil {
		vm.logf(format, args...)
	}
}
