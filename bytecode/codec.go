package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Magic is the 4-byte file signature of a .dsb module (spec.md §4.4).
var Magic = [4]byte{'D', 'S', 'B', 'C'}

const flagHasDebugInfo uint16 = 1 << 0

// Serialize encodes m into the .dsb wire format: magic, version, flags,
// metadata, constant pool, global table, function table, main entry
// point, code, and an optional debug-line section, in that exact order
// (spec.md §4.4). It does not call UpdateIntegrity; callers that want a
// verifiable module must do that first.
func (m *Module) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(Magic[:])

	buf.WriteByte(byte(m.Metadata.Version >> 8))
	buf.WriteByte(byte(m.Metadata.Version))

	flags := uint16(0)
	if m.HasDebugInfo() {
		flags |= flagHasDebugInfo
	}
	writeU16(&buf, flags)

	writeU32(&buf, m.Metadata.HeapSize)
	writeString(&buf, m.Metadata.AppName)
	writeString(&buf, m.Metadata.AppVersion)
	writeString(&buf, m.Metadata.Author)
	writeU32(&buf, m.Metadata.Timestamp)
	writeU32(&buf, m.Metadata.HashCode)
	writeU16(&buf, m.Metadata.Checksum)

	writeU32(&buf, uint32(len(m.constants.values)))
	for _, s := range m.constants.values {
		writeString(&buf, s)
	}

	writeU32(&buf, uint32(len(m.globals.values)))
	for _, s := range m.globals.values {
		writeString(&buf, s)
	}

	writeU32(&buf, uint32(len(m.Functions)))
	for _, fn := range m.Functions {
		writeString(&buf, fn.Name)
		writeU32(&buf, fn.EntryPC)
		buf.WriteByte(fn.ParamCount)
	}

	writeU32(&buf, m.MainEntryPoint)

	writeU32(&buf, uint32(len(m.Code)))
	buf.Write(m.Code)

	if m.HasDebugInfo() {
		writeU32(&buf, uint32(len(m.DebugLines)))
		for _, line := range m.DebugLines {
			writeU32(&buf, line)
		}
	}

	return buf.Bytes(), nil
}

// Deserialize decodes a .dsb module produced by Serialize. It does not
// itself verify integrity; call VerifyIntegrity on the result.
func Deserialize(data []byte) (*Module, error) {
	r := &reader{data: data}

	var magic [4]byte
	if !r.readBytes(magic[:]) || magic != Magic {
		return nil, fmt.Errorf("bytecode: bad magic")
	}

	hi, ok1 := r.readByte()
	lo, ok2 := r.readByte()
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("bytecode: truncated version")
	}
	version := uint16(hi)<<8 | uint16(lo)

	flags, ok := r.readU16()
	if !ok {
		return nil, fmt.Errorf("bytecode: truncated flags")
	}
	hasDebug := flags&flagHasDebugInfo != 0

	m := &Module{Metadata: Metadata{Version: version}}

	var err error
	if m.Metadata.HeapSize, err = r.mustU32(); err != nil {
		return nil, err
	}
	if m.Metadata.AppName, err = r.mustString(); err != nil {
		return nil, err
	}
	if m.Metadata.AppVersion, err = r.mustString(); err != nil {
		return nil, err
	}
	if m.Metadata.Author, err = r.mustString(); err != nil {
		return nil, err
	}
	if m.Metadata.Timestamp, err = r.mustU32(); err != nil {
		return nil, err
	}
	if m.Metadata.HashCode, err = r.mustU32(); err != nil {
		return nil, err
	}
	checksum, ok := r.readU16()
	if !ok {
		return nil, fmt.Errorf("bytecode: truncated checksum")
	}
	m.Metadata.Checksum = checksum

	numConstants, err := r.mustU32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < numConstants; i++ {
		s, err := r.mustString()
		if err != nil {
			return nil, err
		}
		m.constants.add(s)
	}

	numGlobals, err := r.mustU32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < numGlobals; i++ {
		s, err := r.mustString()
		if err != nil {
			return nil, err
		}
		m.globals.add(s)
	}

	numFuncs, err := r.mustU32()
	if err != nil {
		return nil, err
	}
	m.Functions = make([]Function, 0, numFuncs)
	for i := uint32(0); i < numFuncs; i++ {
		name, err := r.mustString()
		if err != nil {
			return nil, err
		}
		entryPC, err := r.mustU32()
		if err != nil {
			return nil, err
		}
		paramCount, ok := r.readByte()
		if !ok {
			return nil, fmt.Errorf("bytecode: truncated function table")
		}
		m.Functions = append(m.Functions, Function{Name: name, EntryPC: entryPC, ParamCount: paramCount})
	}

	if m.MainEntryPoint, err = r.mustU32(); err != nil {
		return nil, err
	}

	codeLen, err := r.mustU32()
	if err != nil {
		return nil, err
	}
	code := make([]byte, codeLen)
	if !r.readBytes(code) {
		return nil, fmt.Errorf("bytecode: truncated code section")
	}
	m.Code = code

	if hasDebug {
		numLines, err := r.mustU32()
		if err != nil {
			return nil, err
		}
		m.DebugLines = make([]uint32, numLines)
		for i := range m.DebugLines {
			if m.DebugLines[i], err = r.mustU32(); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeU16(buf, uint16(len(s)))
	buf.WriteString(s)
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) readByte() (byte, bool) {
	if r.pos >= len(r.data) {
		return 0, false
	}
	b := r.data[r.pos]
	r.pos++
	return b, true
}

func (r *reader) readBytes(dst []byte) bool {
	if r.pos+len(dst) > len(r.data) {
		return false
	}
	copy(dst, r.data[r.pos:r.pos+len(dst)])
	r.pos += len(dst)
	return true
}

func (r *reader) readU16() (uint16, bool) {
	if r.pos+2 > len(r.data) {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, true
}

func (r *reader) mustU32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("bytecode: truncated u32 at offset %d", r.pos)
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) mustString() (string, error) {
	n, ok := r.readU16()
	if !ok {
		return "", fmt.Errorf("bytecode: truncated string length at offset %d", r.pos)
	}
	if r.pos+int(n) > len(r.data) {
		return "", fmt.Errorf("bytecode: truncated string at offset %d", r.pos)
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}
