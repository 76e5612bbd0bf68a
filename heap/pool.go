// Package heap implements dialScript's size-limited, string-interning,
// mark-and-sweep managed heap (spec.md §6). Handles are indices into the
// pool's internal tables, not pointers: callers (the vm package) store
// value.Value variants carrying these handles, and resolve them back to
// content only through ValuePool's accessor methods.
package heap

import "github.com/dialos/dialscript/value"

// ValuePool is dialScript's emulated heap: a byte-budgeted arena of
// interned strings, objects, and arrays, collected by an explicit
// mark-and-sweep pass rather than relying on the host Go runtime's GC
// (spec.md §6 invariants: the heap size limit must be enforceable and
// observable by the running script).
type ValuePool struct {
	limit int
	used  int

	strings     []string
	stringIndex map[string]uint32
	stringLive  []bool
	stringFree  []uint32

	objects    []*value.Object
	objectLive []bool
	objectFree []uint32

	arrays    []*value.Array
	arrayLive []bool
	arrayFree []uint32
}

// New returns a ValuePool budgeted to limit bytes, with handle 0
// permanently reserved for the interned empty string (value.Value's
// IsTruthy relies on this).
func New(limit int) *ValuePool {
	p := &ValuePool{
		limit:       limit,
		stringIndex: make(map[string]uint32),
	}
	p.strings = append(p.strings, "")
	p.stringLive = append(p.stringLive, true)
	p.stringIndex[""] = 0
	return p
}

// Used reports the pool's current byte accounting.
func (p *ValuePool) Used() int { return p.used }

// Limit reports the pool's byte budget.
func (p *ValuePool) Limit() int { return p.limit }

func stringCost(s string) int { return len(s) + 8 } // length prefix + header, approximated

const (
	objectBaseCost = 16
	fieldCost      = 24
	arrayBaseCost  = 16
	elemCost       = 8
)

// AllocateString interns s, returning its existing handle if s has already
// been allocated (spec.md §8: equal strings must share a handle) or a
// fresh one otherwise. It never triggers garbage collection itself; ok is
// false if there is insufficient budget for a genuinely new string.
func (p *ValuePool) AllocateString(s string) (handle uint32, ok bool) {
	if h, found := p.stringIndex[s]; found {
		return h, true
	}
	cost := stringCost(s)
	if p.used+cost > p.limit {
		return 0, false
	}
	p.used += cost
	if n := len(p.stringFree); n > 0 {
		h := p.stringFree[n-1]
		p.stringFree = p.stringFree[:n-1]
		p.strings[h] = s
		p.stringLive[h] = true
		p.stringIndex[s] = h
		return h, true
	}
	h := uint32(len(p.strings))
	p.strings = append(p.strings, s)
	p.stringLive = append(p.stringLive, true)
	p.stringIndex[s] = h
	return h, true
}

// String resolves a string handle to its content.
func (p *ValuePool) String(handle uint32) (string, bool) {
	if int(handle) >= len(p.strings) || !p.stringLive[handle] {
		return "", false
	}
	return p.strings[handle], true
}

// AllocateObject allocates a new, empty instance of className.
func (p *ValuePool) AllocateObject(className string) (handle uint32, ok bool) {
	cost := objectBaseCost
	if p.used+cost > p.limit {
		return 0, false
	}
	p.used += cost
	obj := value.NewObject(className)
	if n := len(p.objectFree); n > 0 {
		h := p.objectFree[n-1]
		p.objectFree = p.objectFree[:n-1]
		p.objects[h] = obj
		p.objectLive[h] = true
		return h, true
	}
	h := uint32(len(p.objects))
	p.objects = append(p.objects, obj)
	p.objectLive = append(p.objectLive, true)
	return h, true
}

// Object resolves an object handle.
func (p *ValuePool) Object(handle uint32) (*value.Object, bool) {
	if int(handle) >= len(p.objects) || !p.objectLive[handle] {
		return nil, false
	}
	return p.objects[handle], true
}

// SetField stores a field on an allocated object, charging additional
// budget the first time a given field name is set.
func (p *ValuePool) SetField(handle uint32, name string, v value.Value) bool {
	obj, ok := p.Object(handle)
	if !ok {
		return false
	}
	if _, exists := obj.Fields[name]; !exists {
		if p.used+fieldCost > p.limit {
			return false
		}
		p.used += fieldCost
	}
	obj.Fields[name] = v
	return true
}

// AllocateArray allocates a new array of n null elements.
func (p *ValuePool) AllocateArray(n int) (handle uint32, ok bool) {
	cost := arrayBaseCost + n*elemCost
	if p.used+cost > p.limit {
		return 0, false
	}
	p.used += cost
	arr := value.NewArray(n)
	if free := len(p.arrayFree); free > 0 {
		h := p.arrayFree[free-1]
		p.arrayFree = p.arrayFree[:free-1]
		p.arrays[h] = arr
		p.arrayLive[h] = true
		return h, true
	}
	h := uint32(len(p.arrays))
	p.arrays = append(p.arrays, arr)
	p.arrayLive = append(p.arrayLive, true)
	return h, true
}

// Array resolves an array handle.
func (p *ValuePool) Array(handle uint32) (*value.Array, bool) {
	if int(handle) >= len(p.arrays) || !p.arrayLive[handle] {
		return nil, false
	}
	return p.arrays[handle], true
}
