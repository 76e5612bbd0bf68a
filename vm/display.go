package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dialos/dialscript/value"
)

// displayString renders v as PRINT/STR_CONCAT/THROW's error message need it
// (spec.md §4.6): numbers without a trailing decimal when they are whole
// floats' underlying bits permit, strings verbatim, arrays and objects
// recursively, functions and natives by a debug tag.
func (vm *VM) displayString(v value.Value) string {
	switch v.Kind() {
	case value.KindNull:
		return "null"
	case value.KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case value.KindInt:
		return strconv.FormatInt(int64(v.AsInt()), 10)
	case value.KindFloat:
		return strconv.FormatFloat(float64(v.AsFloat()), 'g', -1, 32)
	case value.KindString:
		s, ok := vm.heap.String(v.Handle())
		if !ok {
			return ""
		}
		return s
	case value.KindArray:
		a, ok := vm.heap.Array(v.Handle())
		if !ok {
			return "[]"
		}
		parts := make([]string, len(a.Elements))
		for i, e := range a.Elements {
			parts[i] = vm.displayString(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case value.KindObject:
		o, ok := vm.heap.Object(v.Handle())
		if !ok {
			return "<object>"
		}
		return fmt.Sprintf("[object %s]", o.ClassName)
	case value.KindFunction:
		return fmt.Sprintf("<function %d>", v.FuncIndex())
	case value.KindNative:
		return fmt.Sprintf("<native %s>", v.NativeName())
	default:
		return ""
	}
}
