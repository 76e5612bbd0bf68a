package vm

import (
	"github.com/dialos/dialscript/bytecode"
	"github.com/dialos/dialscript/value"
)

func isNumeric(v value.Value) bool {
	return v.Kind() == value.KindInt || v.Kind() == value.KindFloat
}

func asFloat(v value.Value) float32 {
	if v.Kind() == value.KindFloat {
		return v.AsFloat()
	}
	return float32(v.AsInt())
}

// execAdd implements ADD's three-way overload: numeric addition (with
// float promotion), or string concatenation when either operand is a
// string (spec.md §4.6).
func (vm *VM) execAdd() {
	right := vm.pop()
	left := vm.pop()
	if left.Kind() == value.KindString || right.Kind() == value.KindString {
		vm.push(vm.concatValues(left, right))
		return
	}
	if !isNumeric(left) || !isNumeric(right) {
		vm.fault("Type mismatch: ADD requires numbers or strings")
	}
	if left.Kind() == value.KindFloat || right.Kind() == value.KindFloat {
		vm.push(value.Float(asFloat(left) + asFloat(right)))
		return
	}
	vm.push(value.Int(left.AsInt() + right.AsInt())) // wraps on overflow, matching int32 semantics
}

// execArith implements SUB/MUL/DIV/MOD, all numeric-only (spec.md §4.6).
func (vm *VM) execArith(op bytecode.Op) {
	right := vm.pop()
	left := vm.pop()
	if !isNumeric(left) || !isNumeric(right) {
		vm.fault("Type mismatch: arithmetic requires numbers")
	}
	isFloat := left.Kind() == value.KindFloat || right.Kind() == value.KindFloat

	switch op {
	case bytecode.OpSub:
		if isFloat {
			vm.push(value.Float(asFloat(left) - asFloat(right)))
		} else {
			vm.push(value.Int(left.AsInt() - right.AsInt()))
		}
	case bytecode.OpMul:
		if isFloat {
			vm.push(value.Float(asFloat(left) * asFloat(right)))
		} else {
			vm.push(value.Int(left.AsInt() * right.AsInt()))
		}
	case bytecode.OpDiv:
		if isFloat {
			rf := asFloat(right)
			if rf == 0 {
				vm.fault("Division by zero")
			}
			vm.push(value.Float(asFloat(left) / rf))
		} else {
			ri := right.AsInt()
			if ri == 0 {
				vm.fault("Division by zero")
			}
			vm.push(value.Int(left.AsInt() / ri)) // truncates toward zero
		}
	case bytecode.OpMod:
		if isFloat {
			vm.fault("Type mismatch: MOD requires integers")
		}
		ri := right.AsInt()
		if ri == 0 {
			vm.fault("Division by zero")
		}
		vm.push(value.Int(left.AsInt() % ri))
	}
}

func (vm *VM) execNeg() {
	v := vm.pop()
	switch v.Kind() {
	case value.KindInt:
		vm.push(value.Int(-v.AsInt()))
	case value.KindFloat:
		vm.push(value.Float(-v.AsFloat()))
	default:
		vm.fault("Type mismatch: NEG requires a number")
	}
}

func (vm *VM) execStrConcat() {
	right := vm.pop()
	left := vm.pop()
	vm.push(vm.concatValues(left, right))
}

func (vm *VM) concatValues(left, right value.Value) value.Value {
	s := vm.displayString(left) + vm.displayString(right)
	h, ok := vm.heap.AllocateString(s)
	if !ok {
		vm.outOfMemory()
	}
	return value.StringRef(h)
}

// execCompare implements LT/LE/GT/GE: numeric-only, promoting to float
// when either operand is a float (spec.md §4.6).
func (vm *VM) execCompare(op bytecode.Op) {
	right := vm.pop()
	left := vm.pop()
	if !isNumeric(left) || !isNumeric(right) {
		vm.fault("Type mismatch: comparison requires numbers")
	}
	var lf, rf float64
	if left.Kind() == value.KindFloat || right.Kind() == value.KindFloat {
		lf, rf = float64(asFloat(left)), float64(asFloat(right))
	} else {
		lf, rf = float64(left.AsInt()), float64(right.AsInt())
	}
	var result bool
	switch op {
	case bytecode.OpLt:
		result = lf < rf
	case bytecode.OpLe:
		result = lf <= rf
	case bytecode.OpGt:
		result = lf > rf
	case bytecode.OpGe:
		result = lf >= rf
	}
	vm.push(value.Bool(result))
}
