package heap

import "github.com/dialos/dialscript/value"

// Collect runs a mark-and-sweep pass rooted at roots (the VM's operand
// stack, every call frame's locals, the global table, any live exception
// handler stack snapshots, and registered platform callbacks — spec.md §6
// GC roots). Everything unreachable from roots is freed and its budget
// reclaimed; freed handles may be reused by later allocations.
func (p *ValuePool) Collect(roots []value.Value) {
	markedStrings := make([]bool, len(p.strings))
	markedObjects := make([]bool, len(p.objects))
	markedArrays := make([]bool, len(p.arrays))
	markedStrings[0] = true // the interned empty string is never collected

	var mark func(v value.Value)
	mark = func(v value.Value) {
		switch v.Kind() {
		case value.KindString:
			h := v.Handle()
			if int(h) < len(markedStrings) {
				markedStrings[h] = true
			}
		case value.KindObject:
			h := v.Handle()
			if int(h) >= len(markedObjects) || markedObjects[h] {
				return
			}
			markedObjects[h] = true
			if obj, ok := p.Object(h); ok {
				for _, fv := range obj.Fields {
					mark(fv)
				}
			}
		case value.KindArray:
			h := v.Handle()
			if int(h) >= len(markedArrays) || markedArrays[h] {
				return
			}
			markedArrays[h] = true
			if arr, ok := p.Array(h); ok {
				for _, ev := range arr.Elements {
					mark(ev)
				}
			}
		}
	}

	for _, r := range roots {
		mark(r)
	}

	for h := range p.strings {
		if h == 0 {
			continue
		}
		if p.stringLive[h] && !markedStrings[h] {
			p.used -= stringCost(p.strings[h])
			delete(p.stringIndex, p.strings[h])
			p.strings[h] = ""
			p.stringLive[h] = false
			p.stringFree = append(p.stringFree, uint32(h))
		}
	}

	for h := range p.objects {
		if p.objectLive[h] && !markedObjects[h] {
			p.used -= objectBaseCost + len(p.objects[h].Fields)*fieldCost
			p.objects[h] = nil
			p.objectLive[h] = false
			p.objectFree = append(p.objectFree, uint32(h))
		}
	}

	for h := range p.arrays {
		if p.arrayLive[h] && !markedArrays[h] {
			p.used -= arrayBaseCost + len(p.arrays[h].Elements)*elemCost
			p.arrays[h] = nil
			p.arrayLive[h] = false
			p.arrayFree = append(p.arrayFree, uint32(h))
		}
	}
}

// LiveCounts reports the number of live strings, objects, and arrays,
// primarily for tests and diagnostics.
func (p *ValuePool) LiveCounts() (strings, objects, arrays int) {
	for _, live := range p.stringLive {
		if live {
			strings++
		}
	}
	for _, live := range p.objectLive {
		if live {
			objects++
		}
	}
	for _, live := range p.arrayLive {
		if live {
			arrays++
		}
	}
	return strings, objects, arrays
}
