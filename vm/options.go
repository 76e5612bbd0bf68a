package vm

import "github.com/dialos/dialscript/heap"

// Option configures a VM at construction, following the teacher's
// functional-options convention (options.go's VMOption) simplified to a
// plain closure since this VM's options have no need for the teacher's
// flattening/composition machinery.
type Option func(*VM)

// WithHeap overrides the heap a VM allocates into, in place of one sized
// from the module's metadata.HeapSize (spec.md §6).
func WithHeap(h *heap.ValuePool) Option {
	return func(vm *VM) { vm.heap = h }
}

// WithLogf installs a debug logging hook, mirroring the teacher's
// withLogfn (options.go).
func WithLogf(logf func(format string, args ...interface{})) Option {
	return func(vm *VM) { vm.logf = logf }
}
