package vm

import "github.com/dialos/dialscript/value"

// doCall pushes a new call frame for the function at funcIdx, taking its
// argc locals off the top of the operand stack (spec.md §3: locals 0..N-1
// are bound from the arguments in push order, CALL_METHOD's receiver
// occupying local 0 as `this`).
func (vm *VM) doCall(funcIdx uint16, argc int) {
	if funcIdx == 0 || int(funcIdx) >= len(vm.mod.Functions) {
		vm.fault("Call to undefined function %d", funcIdx)
	}
	fn := vm.mod.Functions[funcIdx]
	args := vm.popArgs(argc)
	frame := &CallFrame{
		ReturnPC:     vm.pc,
		StackBase:    len(vm.stack),
		Locals:       args,
		FunctionName: fn.Name,
	}
	vm.frames = append(vm.frames, frame)
	vm.pc = fn.EntryPC
}

// execReturn pops the current frame's return value, discards anything the
// callee left on the stack above its frame base, and resumes at the
// caller's saved pc. A RETURN with no active frame finishes the program
// (spec.md's "top-level RETURN popped the last frame" case).
func (vm *VM) execReturn() {
	retVal := vm.pop()
	if len(vm.frames) == 0 {
		vm.running = false
		return
	}
	frame := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	if frame.StackBase <= len(vm.stack) {
		vm.stack = vm.stack[:frame.StackBase]
	}
	vm.pc = frame.ReturnPC
	vm.push(retVal)
}

// execCallMethod resolves CALL_METHOD against the receiver's runtime
// identity: a class instance dispatches to its qualified `Class::name`
// function, a platform capability value dispatches natively. This is the
// module's resolution of the unqualified-CALL method-dispatch ambiguity
// (spec.md §9 Open Question 1).
func (vm *VM) execCallMethod() {
	argc := int(vm.readU8())
	nameIdx := vm.readU16()
	name, ok := vm.mod.Constant(nameIdx)
	if !ok {
		vm.fault("Unknown method name constant %d", nameIdx)
	}
	args := vm.popArgs(argc)
	receiver := vm.pop()

	switch receiver.Kind() {
	case value.KindNative:
		vm.push(vm.dispatchNative(receiver.NativeName(), name, args))
	case value.KindObject:
		obj, ok := vm.heap.Object(receiver.Handle())
		if !ok {
			vm.fault("Type mismatch: stale object reference")
		}
		if isCapabilityGroup(obj.ClassName) {
			vm.push(vm.dispatchNative(obj.ClassName, name, args))
			return
		}
		funcName := obj.ClassName + "::" + name
		idx := vm.mod.FindFunction(funcName)
		if idx == 0 {
			vm.fault("Type mismatch: %s has no method %q", obj.ClassName, name)
		}
		all := make([]value.Value, 0, argc+1)
		all = append(all, receiver)
		all = append(all, args...)
		for _, v := range all {
			vm.push(v)
		}
		vm.doCall(idx, len(all))
	default:
		vm.fault("Type mismatch: cannot call method %q on a %s", name, receiver.Kind())
	}
}

// execCallNative resolves CALL_NATIVE (spec.md §4.5): the operand names
// the capability operation by constant-pool string rather than a
// function-table index, since native operations are never compiled into
// the function table (spec.md §9 design note on sub-object dispatch).
// Per spec.md §6, the receiver sits on top of the stack with its arguments
// below it, the reverse of CALL_METHOD's push order.
func (vm *VM) execCallNative() {
	nameIdx := vm.readU16()
	argc := int(vm.readU8())
	name, ok := vm.mod.Constant(nameIdx)
	if !ok {
		vm.fault("Unknown native name constant %d", nameIdx)
	}
	receiver := vm.pop()
	args := vm.popArgs(argc)
	vm.push(vm.dispatchNative(vm.nativeGroupName(receiver), name, args))
}

func (vm *VM) nativeGroupName(receiver value.Value) string {
	switch receiver.Kind() {
	case value.KindNative:
		return receiver.NativeName()
	case value.KindObject:
		if obj, ok := vm.heap.Object(receiver.Handle()); ok {
			return obj.ClassName
		}
	}
	return ""
}

// invokeFunction synthesizes a call frame for fn, runs the interpreter
// until that frame returns, and restores the outer pc/handler/stack depth
// (spec.md §4.6 callback execution: "shares the same heap, globals, and
// error channel" as the program that registered it). Used both by the
// invokeCallback native dispatch and by drainCallbacks. A callback also
// runs after the main program has finished; the VM is left finished
// again afterwards unless the callback itself halted it with an error.
func (vm *VM) invokeFunction(fn value.Value, args []value.Value) (value.Value, error) {
	if fn.Kind() != value.KindFunction {
		return value.Null, nil
	}
	wasRunning := vm.running
	if !wasRunning && vm.err != nil {
		return value.Null, vm.err
	}
	vm.running = true
	savedPC := vm.pc
	savedStack := len(vm.stack)
	savedHandlers := len(vm.handlers)
	savedFrames := len(vm.frames)

	for _, a := range args {
		vm.push(a)
	}
	vm.doCall(fn.FuncIndex(), len(args))

	result, err := vm.runUntilFrame(savedFrames)

	if err == nil && !wasRunning {
		vm.running = false
	}
	vm.pc = savedPC
	if len(vm.frames) > savedFrames {
		vm.frames = vm.frames[:savedFrames]
	}
	if len(vm.handlers) > savedHandlers {
		vm.handlers = vm.handlers[:savedHandlers]
	}
	if len(vm.stack) > savedStack {
		vm.stack = vm.stack[:savedStack]
	}
	return result, err
}

// callbackInstructionBudget bounds a single callback invocation so a
// misbehaving script (an infinite loop with no RETURN) can't hang the
// host's call into invokeFunction forever.
const callbackInstructionBudget = 1_000_000

func (vm *VM) runUntilFrame(targetFrames int) (value.Value, error) {
	for i := 0; i < callbackInstructionBudget; i++ {
		if !vm.running {
			return value.Null, vm.err
		}
		if len(vm.frames) <= targetFrames {
			if len(vm.stack) == 0 {
				return value.Null, nil
			}
			return vm.stack[len(vm.stack)-1], nil
		}
		switch vm.step() {
		case stepOOM:
			vm.fatal(errCallbackOutOfMemory)
			return value.Null, vm.err
		case stepHalted:
			return value.Null, vm.err
		}
	}
	vm.fatal(errCallbackBudgetExceeded)
	return value.Null, vm.err
}
