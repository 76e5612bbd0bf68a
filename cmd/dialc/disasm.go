package main

import (
	"fmt"
	"strings"

	"github.com/dialos/dialscript/bytecode"
)

// disassemble renders mod as a readable listing, grounded on the teacher's
// own dumper.go (formatCode): walk the code stream one instruction at a
// time, printing its address, mnemonic, and decoded operand.
func disassemble(mod *bytecode.Module) string {
	var b strings.Builder

	fmt.Fprintf(&b, "; dialScript module %q v%d (heap %d bytes)\n", mod.Metadata.AppName, mod.Metadata.Version, mod.Metadata.HeapSize)
	fmt.Fprintf(&b, "; checksum=0x%04x hash=0x%08x mainEntry=%d\n", mod.Metadata.Checksum, mod.Metadata.HashCode, mod.MainEntryPoint)

	for i := 1; i < len(mod.Functions); i++ {
		fn := mod.Functions[i]
		fmt.Fprintf(&b, "; function[%d] %s @ %d (params=%d)\n", i, fn.Name, fn.EntryPC, fn.ParamCount)
	}

	code := mod.Code
	for pc := 0; pc < len(code); {
		op := bytecode.Op(code[pc])
		size := bytecode.OperandSize(op)
		if size < 0 {
			fmt.Fprintf(&b, "%6d  %02x            ; unknown opcode\n", pc, code[pc])
			pc++
			continue
		}
		operand := []byte(nil)
		if pc+1+size <= len(code) {
			operand = code[pc+1 : pc+1+size]
		}
		fmt.Fprintf(&b, "%6d  %-16s %s\n", pc, op.String(), formatOperand(mod, op, operand))
		pc += 1 + size
	}
	return b.String()
}

func formatOperand(mod *bytecode.Module, op bytecode.Op, operand []byte) string {
	if len(operand) == 0 {
		return ""
	}
	switch op {
	case bytecode.OpPushStr, bytecode.OpGetField, bytecode.OpSetField, bytecode.OpNewObject:
		idx := le16(operand)
		if s, ok := mod.Constant(idx); ok {
			return fmt.Sprintf("%d ; %q", idx, s)
		}
		return fmt.Sprint(idx)
	case bytecode.OpLoadGlobal, bytecode.OpStoreGlobal:
		idx := le16(operand)
		if s, ok := mod.Global(idx); ok {
			return fmt.Sprintf("%d ; %s", idx, s)
		}
		return fmt.Sprint(idx)
	case bytecode.OpCall:
		idx := le16(operand[:2])
		argc := operand[2]
		name := "?"
		if int(idx) < len(mod.Functions) {
			name = mod.Functions[idx].Name
		}
		return fmt.Sprintf("%d argc=%d ; %s", idx, argc, name)
	case bytecode.OpCallMethod:
		argc := operand[0]
		idx := le16(operand[1:3])
		name, _ := mod.Constant(idx)
		return fmt.Sprintf("argc=%d %d ; %s", argc, idx, name)
	case bytecode.OpCallNative:
		idx := le16(operand[:2])
		argc := operand[2]
		name, _ := mod.Constant(idx)
		return fmt.Sprintf("%d argc=%d ; %s", idx, argc, name)
	default:
		return fmt.Sprintf("%v", operand)
	}
}

func le16(b []byte) uint16 {
	if len(b) < 2 {
		return 0
	}
	return uint16(b[0]) | uint16(b[1])<<8
}
