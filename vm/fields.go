package vm

import "github.com/dialos/dialscript/value"

// execGetField reads an object field, or null if the field was never set
// (spec.md §5: objects are open maps, unset fields read as null).
func (vm *VM) execGetField() {
	idx := vm.readU16()
	name, ok := vm.mod.Constant(idx)
	if !ok {
		vm.fault("Unknown field name constant %d", idx)
	}
	obj := vm.pop()
	if obj.Kind() != value.KindObject {
		vm.fault("Type mismatch: GET_FIELD on a non-object")
	}
	o, ok := vm.heap.Object(obj.Handle())
	if !ok {
		vm.fault("Type mismatch: stale object reference")
	}
	v, ok := o.Fields[name]
	if !ok {
		v = value.Null
	}
	vm.push(v)
}

func (vm *VM) execSetField() {
	idx := vm.readU16()
	name, ok := vm.mod.Constant(idx)
	if !ok {
		vm.fault("Unknown field name constant %d", idx)
	}
	val := vm.pop()
	obj := vm.pop()
	if obj.Kind() != value.KindObject {
		vm.fault("Type mismatch: SET_FIELD on a non-object")
	}
	if !vm.heap.SetField(obj.Handle(), name, val) {
		vm.outOfMemory()
	}
}

// execGetIndex reads an array element, or null for an out-of-range index
// (spec.md §5 edge case: array reads never fault).
func (vm *VM) execGetIndex() {
	idx := vm.pop()
	arr := vm.pop()
	if arr.Kind() != value.KindArray {
		vm.fault("Type mismatch: GET_INDEX on a non-array")
	}
	if idx.Kind() != value.KindInt {
		vm.fault("Type mismatch: array index must be an integer")
	}
	a, ok := vm.heap.Array(arr.Handle())
	if !ok {
		vm.fault("Type mismatch: stale array reference")
	}
	i := int(idx.AsInt())
	if i < 0 || i >= len(a.Elements) {
		vm.push(value.Null)
		return
	}
	vm.push(a.Elements[i])
}

// execSetIndex writes an array element; an out-of-range index is a silent
// no-op (spec.md §5 edge case: array writes never fault either).
func (vm *VM) execSetIndex() {
	val := vm.pop()
	idx := vm.pop()
	arr := vm.pop()
	if arr.Kind() != value.KindArray {
		vm.fault("Type mismatch: SET_INDEX on a non-array")
	}
	if idx.Kind() != value.KindInt {
		vm.fault("Type mismatch: array index must be an integer")
	}
	a, ok := vm.heap.Array(arr.Handle())
	if !ok {
		vm.fault("Type mismatch: stale array reference")
	}
	i := int(idx.AsInt())
	if i < 0 || i >= len(a.Elements) {
		return
	}
	a.Elements[i] = val
}
