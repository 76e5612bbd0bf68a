package vm

import (
	"github.com/dialos/dialscript/bytecode"
	"github.com/dialos/dialscript/value"
)

// dispatchOne decodes and executes exactly one instruction at vm.pc. Every
// fault path panics (vmFault or vmOOM); step() is the only recoverer.
func (vm *VM) dispatchOne() {
	op := bytecode.Op(vm.readU8())
	switch op {
	case bytecode.OpNop:
		// no-op

	case bytecode.OpPop:
		vm.pop()
	case bytecode.OpDup:
		vm.push(vm.peek())
	case bytecode.OpSwap:
		a := vm.pop()
		b := vm.pop()
		vm.push(a)
		vm.push(b)

	case bytecode.OpPushNull:
		vm.push(value.Null)
	case bytecode.OpPushTrue:
		vm.push(value.Bool(true))
	case bytecode.OpPushFalse:
		vm.push(value.Bool(false))
	case bytecode.OpPushI8:
		vm.push(value.Int(int32(int8(vm.readU8()))))
	case bytecode.OpPushI16:
		vm.push(value.Int(int32(int16(vm.readU16()))))
	case bytecode.OpPushI32:
		vm.push(value.Int(vm.readI32()))
	case bytecode.OpPushF32:
		vm.push(value.Float(vm.readF32()))
	case bytecode.OpPushStr:
		idx := vm.readU16()
		s, ok := vm.mod.Constant(idx)
		if !ok {
			vm.fault("Unknown constant %d", idx)
		}
		h, ok := vm.heap.AllocateString(s)
		if !ok {
			vm.outOfMemory()
		}
		vm.push(value.StringRef(h))

	case bytecode.OpLoadLocal:
		idx := vm.readU8()
		f := vm.currentFrame()
		if f == nil {
			vm.fault("LOAD_LOCAL outside a function")
		}
		vm.push(f.local(idx))
	case bytecode.OpStoreLocal:
		idx := vm.readU8()
		v := vm.pop()
		f := vm.currentFrame()
		if f == nil {
			vm.fault("STORE_LOCAL outside a function")
		}
		f.setLocal(idx, v)
	case bytecode.OpLoadGlobal:
		idx := vm.readU16()
		if int(idx) >= len(vm.globals) {
			vm.fault("Unknown global %d", idx)
		}
		vm.push(vm.globals[idx])
	case bytecode.OpStoreGlobal:
		idx := vm.readU16()
		v := vm.pop()
		if int(idx) >= len(vm.globals) {
			vm.fault("Unknown global %d", idx)
		}
		vm.globals[idx] = v

	case bytecode.OpAdd:
		vm.execAdd()
	case bytecode.OpSub:
		vm.execArith(op)
	case bytecode.OpMul:
		vm.execArith(op)
	case bytecode.OpDiv:
		vm.execArith(op)
	case bytecode.OpMod:
		vm.execArith(op)
	case bytecode.OpNeg:
		vm.execNeg()
	case bytecode.OpStrConcat:
		vm.execStrConcat()

	case bytecode.OpEq:
		right := vm.pop()
		left := vm.pop()
		vm.push(value.Bool(left.Equals(right)))
	case bytecode.OpNe:
		right := vm.pop()
		left := vm.pop()
		vm.push(value.Bool(!left.Equals(right)))
	case bytecode.OpLt:
		vm.execCompare(op)
	case bytecode.OpLe:
		vm.execCompare(op)
	case bytecode.OpGt:
		vm.execCompare(op)
	case bytecode.OpGe:
		vm.execCompare(op)

	case bytecode.OpNot:
		v := vm.pop()
		vm.push(value.Bool(!v.IsTruthy()))
	case bytecode.OpAnd:
		right := vm.pop()
		left := vm.pop()
		vm.push(value.Bool(left.IsTruthy() && right.IsTruthy()))
	case bytecode.OpOr:
		right := vm.pop()
		left := vm.pop()
		vm.push(value.Bool(left.IsTruthy() || right.IsTruthy()))

	case bytecode.OpJump:
		offset := vm.readI32()
		vm.pc = uint32(int32(vm.pc) + offset)
	case bytecode.OpJumpIf:
		offset := vm.readI32()
		v := vm.pop()
		if v.IsTruthy() {
			vm.pc = uint32(int32(vm.pc) + offset)
		}
	case bytecode.OpJumpIfNot:
		offset := vm.readI32()
		v := vm.pop()
		if !v.IsTruthy() {
			vm.pc = uint32(int32(vm.pc) + offset)
		}

	case bytecode.OpCall:
		idx := vm.readU16()
		argc := int(vm.readU8())
		vm.doCall(idx, argc)
	case bytecode.OpCallNative:
		vm.execCallNative()
	case bytecode.OpReturn:
		vm.execReturn()
	case bytecode.OpLoadFunction:
		idx := vm.readU16()
		vm.push(value.Function(idx))
	case bytecode.OpCallIndirect:
		argc := int(vm.readU8())
		fn := vm.pop()
		if fn.Kind() != value.KindFunction {
			vm.fault("Type mismatch: cannot call a non-function value")
		}
		vm.doCall(fn.FuncIndex(), argc)
	case bytecode.OpCallMethod:
		vm.execCallMethod()

	case bytecode.OpGetField:
		vm.execGetField()
	case bytecode.OpSetField:
		vm.execSetField()
	case bytecode.OpGetIndex:
		vm.execGetIndex()
	case bytecode.OpSetIndex:
		vm.execSetIndex()

	case bytecode.OpNewObject:
		idx := vm.readU16()
		name, ok := vm.mod.Constant(idx)
		if !ok {
			vm.fault("Unknown class name constant %d", idx)
		}
		h, ok := vm.heap.AllocateObject(name)
		if !ok {
			vm.outOfMemory()
		}
		vm.push(value.ObjectRef(h))
	case bytecode.OpNewArray:
		n := vm.pop()
		if n.Kind() != value.KindInt {
			vm.fault("Type mismatch: array size must be an integer")
		}
		count := int(n.AsInt())
		if count < 0 {
			vm.fault("Type mismatch: negative array size")
		}
		h, ok := vm.heap.AllocateArray(count)
		if !ok {
			vm.outOfMemory()
		}
		vm.push(value.ArrayRef(h))

	case bytecode.OpTry:
		offset := vm.readI32()
		catchPC := uint32(int32(vm.pc) + offset)
		vm.handlers = append(vm.handlers, exceptionHandler{catchPC: catchPC, snapshotSize: len(vm.stack)})
	case bytecode.OpEndTry:
		if len(vm.handlers) > 0 {
			vm.handlers = vm.handlers[:len(vm.handlers)-1]
		}
	case bytecode.OpThrow:
		v := vm.pop()
		if !vm.raise(v) {
			vm.fatal(unhandledExceptionError(vm.displayString(v)))
		}

	case bytecode.OpPrint:
		v := vm.pop()
		vm.platform.ConsoleLog(vm.displayString(v))
	case bytecode.OpHalt:
		vm.running = false

	default:
		vm.fault("Unknown opcode 0x%02X", byte(op))
	}
}
