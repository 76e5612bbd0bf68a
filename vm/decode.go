package vm

import "math"

// readU8/readU16/readI32/readF32 decode the operand immediately
// following the opcode byte at vm.pc, advancing vm.pc past it (spec.md
// §4.5: operand encodings are little-endian, fixed-width per opcode).
// Reading past the end of the code faults with "Truncated instruction".
func (vm *VM) readU8() uint8 {
	if int(vm.pc) >= len(vm.mod.Code) {
		vm.fault("Truncated instruction")
	}
	b := vm.mod.Code[vm.pc]
	vm.pc++
	return b
}

func (vm *VM) readU16() uint16 {
	lo := vm.readU8()
	hi := vm.readU8()
	return uint16(lo) | uint16(hi)<<8
}

func (vm *VM) readI32() int32 {
	b0 := vm.readU8()
	b1 := vm.readU8()
	b2 := vm.readU8()
	b3 := vm.readU8()
	return int32(uint32(b0) | uint32(b1)<<8 | uint32(b2)<<16 | uint32(b3)<<24)
}

func (vm *VM) readF32() float32 {
	bits := uint32(vm.readI32())
	return math.Float32frombits(bits)
}
