// Package bytecode defines the dialScript bytecode module format: the
// opcode set (opcodes.go), the in-memory Module structure produced by the
// compiler, and the .dsb wire format (codec.go). spec.md §3/§4.4.
package bytecode

import "fmt"

// stringPool is an order-preserving, deduplicating table of strings,
// adapted from the teacher's symbols type (symbols.go): inserting an
// already-present string returns its existing index rather than growing
// the table, satisfying the constant/global-pool dedup law in spec.md §8.
type stringPool struct {
	values []string
	index  map[string]uint16
}

func (p *stringPool) add(s string) uint16 {
	if p.index == nil {
		p.index = make(map[string]uint16)
	}
	if i, ok := p.index[s]; ok {
		return i
	}
	i := uint16(len(p.values))
	p.values = append(p.values, s)
	p.index[s] = i
	return i
}

func (p *stringPool) get(i uint16) (string, bool) {
	if int(i) < len(p.values) {
		return p.values[i], true
	}
	return "", false
}

func (p *stringPool) len() int { return len(p.values) }

// Function describes one entry in the function table. Index 0 is reserved
// as "no function" by convention (spec.md §3).
type Function struct {
	Name       string
	EntryPC    uint32
	ParamCount uint8
}

// Metadata carries the module's self-describing header and integrity
// fields (spec.md §3).
type Metadata struct {
	Version    uint16
	HeapSize   uint32
	AppName    string
	AppVersion string
	Author     string
	Timestamp  uint32
	HashCode   uint32
	Checksum   uint16
}

// DefaultMetadata mirrors the original implementation's defaults
// (original_source/include/vm/bytecode.h Metadata()).
func DefaultMetadata() Metadata {
	return Metadata{
		Version:    1,
		HeapSize:   8192,
		AppName:    "untitled",
		AppVersion: "1.0.0",
	}
}

// Module is the compilation unit: constants, globals, functions, code
// bytes, optional debug-line table, and integrity-checked metadata.
type Module struct {
	Metadata Metadata

	constants stringPool
	globals   stringPool

	Functions []Function
	Code      []byte

	// DebugLines, when non-nil, has the same length as Code and maps each
	// code byte to a source line (0 = unknown).
	DebugLines []uint32

	MainEntryPoint uint32
}

// New returns an empty Module with function index 0 reserved as
// "no function" (spec.md §3).
func New() *Module {
	m := &Module{Metadata: DefaultMetadata()}
	m.Functions = append(m.Functions, Function{Name: ""})
	return m
}

// AddConstant interns s into the string constant pool, returning its
// index. Calling AddConstant twice with an equal s returns the same index
// (spec.md §8 property 1).
func (m *Module) AddConstant(s string) uint16 { return m.constants.add(s) }

// Constant returns the interned string at index i.
func (m *Module) Constant(i uint16) (string, bool) { return m.constants.get(i) }

// NumConstants returns the size of the constant pool.
func (m *Module) NumConstants() int { return m.constants.len() }

// Constants returns the constant pool in index order.
func (m *Module) Constants() []string {
	out := make([]string, len(m.constants.values))
	copy(out, m.constants.values)
	return out
}

// AddGlobal interns name into the global-name table, returning its index.
func (m *Module) AddGlobal(name string) uint16 { return m.globals.add(name) }

// Global returns the global name at index i.
func (m *Module) Global(i uint16) (string, bool) { return m.globals.get(i) }

// NumGlobals returns the size of the global table.
func (m *Module) NumGlobals() int { return m.globals.len() }

// Globals returns the global-name table in index order.
func (m *Module) Globals() []string {
	out := make([]string, len(m.globals.values))
	copy(out, m.globals.values)
	return out
}

// AddFunction appends a function table entry (without deduplication:
// multiple classes may legitimately declare methods of the same
// unqualified name, which is exactly the name-collision hazard spec.md §9
// Open Question 1 calls out; the compiler is responsible for qualifying
// names with ClassName:: where it chooses to).
func (m *Module) AddFunction(fn Function) uint16 {
	idx := uint16(len(m.Functions))
	m.Functions = append(m.Functions, fn)
	return idx
}

// FindFunction returns the index of the function named name, or 0 (the
// reserved "no function" slot) if not found.
func (m *Module) FindFunction(name string) uint16 {
	for i, fn := range m.Functions {
		if i != 0 && fn.Name == name {
			return uint16(i)
		}
	}
	return 0
}

// HasDebugInfo reports whether the module carries a debug-line table.
func (m *Module) HasDebugInfo() bool { return m.DebugLines != nil }

// Checksum computes the modular 16-bit sum of all code bytes, and, when
// present, of each individual debug-line byte (spec.md §3 Integrity).
func (m *Module) Checksum() uint16 {
	var sum uint16
	for _, b := range m.Code {
		sum += uint16(b)
	}
	if m.HasDebugInfo() {
		for _, line := range m.DebugLines {
			sum += uint16(line & 0xFF)
			sum += uint16((line >> 8) & 0xFF)
			sum += uint16((line >> 16) & 0xFF)
			sum += uint16((line >> 24) & 0xFF)
		}
	}
	return sum
}

// Hash computes the FNV-1a 32-bit digest of
// (version, heapSize, timestamp, checksum, appName, appVersion, author),
// in that order (spec.md §3 Integrity).
func (meta Metadata) Hash() uint32 {
	const offsetBasis uint32 = 0x811C9DC5
	const prime uint32 = 0x01000193

	hash := offsetBasis
	hash ^= uint32(meta.Version)
	hash *= prime
	hash ^= meta.HeapSize
	hash *= prime
	hash ^= meta.Timestamp
	hash *= prime
	hash ^= uint32(meta.Checksum)
	hash *= prime
	for _, s := range []string{meta.AppName, meta.AppVersion, meta.Author} {
		for i := 0; i < len(s); i++ {
			hash ^= uint32(s[i])
			hash *= prime
		}
	}
	return hash
}

// UpdateIntegrity recomputes Checksum then HashCode, in that order (the
// hash folds in the checksum, so it must be computed second). Module
// bytes are considered immutable once this has been called (spec.md §3
// Lifecycles).
func (m *Module) UpdateIntegrity() {
	m.Metadata.Checksum = m.Checksum()
	m.Metadata.HashCode = m.Metadata.Hash()
}

// VerifyIntegrity reports whether both the bytecode checksum and the
// metadata hash match the module's current content (spec.md §8 property
// 3).
func (m *Module) VerifyIntegrity() bool {
	return m.Metadata.Checksum == m.Checksum() && m.Metadata.HashCode == m.Metadata.Hash()
}

// Emit appends op and its raw operand bytes to the code stream, returning
// the byte offset at which op was written.
func (m *Module) Emit(op Op, operands ...byte) uint32 {
	at := uint32(len(m.Code))
	m.Code = append(m.Code, byte(op))
	m.Code = append(m.Code, operands...)
	return at
}

// EmitDebugLine appends count entries of line to DebugLines; callers pass
// the number of code bytes written since DebugLines last matched Code's
// length. Callers must keep DebugLines and Code the same length: the
// compiler calls this once per compiled statement, and again for any
// bytes it emits outside of a statement (a synthesized trailing
// RETURN, the module's final HALT) so that no code byte is ever left
// without a debug-line entry.
func (m *Module) EmitDebugLine(line uint32, count int) {
	if !m.HasDebugInfo() {
		return
	}
	for i := 0; i < count; i++ {
		m.DebugLines = append(m.DebugLines, line)
	}
}

// PatchJump overwrites the 4-byte little-endian relative offset operand at
// position (the byte right after the opcode) so that, when read at
// runtime from the byte immediately following the operand, it lands on
// targetPC (spec.md §4.3/§4.5: offsets are relative to the byte after the
// 4-byte operand).
func (m *Module) PatchJump(position uint32, targetPC uint32) error {
	if int(position)+4 > len(m.Code) {
		return fmt.Errorf("bytecode: patch position %d out of range", position)
	}
	offset := int32(targetPC) - int32(position+4)
	m.Code[position] = byte(offset)
	m.Code[position+1] = byte(offset >> 8)
	m.Code[position+2] = byte(offset >> 16)
	m.Code[position+3] = byte(offset >> 24)
	return nil
}
