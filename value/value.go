// Package value defines the tagged runtime value representation shared by
// the heap and vm packages (spec.md §5).
package value

import (
	"fmt"
	"math"
)

// Kind discriminates the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindObject
	KindArray
	KindFunction
	KindNative
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindFunction:
		return "function"
	case KindNative:
		return "native"
	default:
		return "unknown"
	}
}

// Value is a small tagged union. String, Object, and Array variants carry a
// heap handle rather than their content directly: the heap package is the
// only place that can resolve a handle back to its backing data (spec.md
// §5/§6). Handle 0 is reserved by the heap for the interned empty string,
// which lets IsTruthy decide string truthiness without needing a heap
// reference.
type Value struct {
	kind   Kind
	i      int32   // KindInt, KindBool (0/1), KindFunction (function table index)
	f      float32 // KindFloat
	handle uint32  // KindString, KindObject, KindArray
	native string  // KindNative: platform capability name
}

// Null is the singular null value.
var Null = Value{kind: KindNull}

func Bool(b bool) Value {
	var i int32
	if b {
		i = 1
	}
	return Value{kind: KindBool, i: i}
}

func Int(v int32) Value { return Value{kind: KindInt, i: v} }

func Float(v float32) Value { return Value{kind: KindFloat, f: v} }

// StringRef wraps a heap string handle. Use heap.ValuePool.AllocateString to
// obtain handles.
func StringRef(handle uint32) Value { return Value{kind: KindString, handle: handle} }

// ObjectRef wraps a heap object handle.
func ObjectRef(handle uint32) Value { return Value{kind: KindObject, handle: handle} }

// ArrayRef wraps a heap array handle.
func ArrayRef(handle uint32) Value { return Value{kind: KindArray, handle: handle} }

// Function wraps a bytecode module function-table index.
func Function(funcIdx uint16) Value { return Value{kind: KindFunction, i: int32(funcIdx)} }

// Native wraps a platform capability name referenced as a first-class value
// (e.g. passed to a callback-registering native call).
func Native(name string) Value { return Value{kind: KindNative, native: name} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool, AsInt, AsFloat, Handle, and FuncIndex panic if called against the
// wrong Kind; callers must check Kind first, matching how the vm package's
// opcode handlers are already required to type-check operands before use.
func (v Value) AsBool() bool      { v.mustKind(KindBool); return v.i != 0 }
func (v Value) AsInt() int32      { v.mustKind(KindInt); return v.i }
func (v Value) AsFloat() float32  { v.mustKind(KindFloat); return v.f }
func (v Value) Handle() uint32    { return v.handle }
func (v Value) FuncIndex() uint16 { v.mustKind(KindFunction); return uint16(v.i) }
func (v Value) NativeName() string {
	v.mustKind(KindNative)
	return v.native
}

func (v Value) mustKind(k Kind) {
	if v.kind != k {
		panic(fmt.Sprintf("value: expected %s, got %s", k, v.kind))
	}
}

// IsTruthy implements dialScript's truthiness rule: null and false are
// falsy, zero numbers are falsy, the empty string (handle 0) is falsy, and
// every object, array, function, and native reference is truthy (spec.md
// §5 Truthiness).
func (v Value) IsTruthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.i != 0
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString:
		return v.handle != 0
	default:
		return true
	}
}

// Equals compares two values by dialScript's equality rule: values of
// different kinds are never equal except that int and float compare by
// numeric value. String/Object/Array equality is handle equality, which is
// sound because the heap interns strings and never reuses a handle for
// distinct live content (spec.md §8 property: string interning).
func (v Value) Equals(o Value) bool {
	switch {
	case v.kind == KindInt && o.kind == KindInt:
		return v.i == o.i
	case v.kind == KindFloat && o.kind == KindFloat:
		return math.Abs(float64(v.f-o.f)) < 1e-6
	case v.kind == KindInt && o.kind == KindFloat:
		return math.Abs(float64(float32(v.i)-o.f)) < 1e-6
	case v.kind == KindFloat && o.kind == KindInt:
		return math.Abs(float64(v.f-float32(o.i))) < 1e-6
	case v.kind != o.kind:
		return false
	case v.kind == KindNull:
		return true
	case v.kind == KindBool:
		return v.i == o.i
	case v.kind == KindString, v.kind == KindObject, v.kind == KindArray:
		return v.handle == o.handle
	case v.kind == KindFunction:
		return v.i == o.i
	case v.kind == KindNative:
		return v.native == o.native
	default:
		return false
	}
}

// GoString renders a value for debug/print purposes that don't need heap
// content (numbers, null, bool); the vm package handles String/Object/Array
// printing itself since those require heap resolution.
func (v Value) GoString() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.i != 0)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindFunction:
		return fmt.Sprintf("<function %d>", v.i)
	case KindNative:
		return fmt.Sprintf("<native %s>", v.native)
	default:
		return fmt.Sprintf("<%s %d>", v.kind, v.handle)
	}
}
