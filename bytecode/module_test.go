package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dialos/dialscript/bytecode"
)

func TestModule_AddConstantDedup(t *testing.T) {
	m := bytecode.New()
	a := m.AddConstant("hello")
	b := m.AddConstant("world")
	c := m.AddConstant("hello")
	require.Equal(t, a, c, "re-adding an equal constant must return the same index")
	require.NotEqual(t, a, b)
	require.Equal(t, 2, m.NumConstants())
}

func TestModule_AddGlobalDedup(t *testing.T) {
	m := bytecode.New()
	a := m.AddGlobal("counter")
	b := m.AddGlobal("counter")
	require.Equal(t, a, b)
	require.Equal(t, 1, m.NumGlobals())
}

func TestModule_FunctionZeroReserved(t *testing.T) {
	m := bytecode.New()
	require.Len(t, m.Functions, 1, "index 0 must be reserved")
	require.Equal(t, "", m.Functions[0].Name)

	idx := m.AddFunction(bytecode.Function{Name: "main", ParamCount: 0})
	require.Equal(t, uint16(1), idx)
	require.Equal(t, uint16(1), m.FindFunction("main"))
	require.Equal(t, uint16(0), m.FindFunction("missing"))
}

func TestModule_FunctionTableAllowsDuplicateNames(t *testing.T) {
	m := bytecode.New()
	m.AddFunction(bytecode.Function{Name: "Foo::bar"})
	m.AddFunction(bytecode.Function{Name: "Baz::bar"})
	require.Len(t, m.Functions, 3)
}

func TestModule_ChecksumOverCodeOnly(t *testing.T) {
	m := bytecode.New()
	m.Emit(bytecode.OpPushI8, 5)
	m.Emit(bytecode.OpHalt)
	want := uint16(byte(bytecode.OpPushI8)) + 5 + uint16(byte(bytecode.OpHalt))
	require.Equal(t, want, m.Checksum())
}

func TestModule_ChecksumIncludesDebugLines(t *testing.T) {
	m := bytecode.New()
	m.DebugLines = []uint32{}
	m.Emit(bytecode.OpHalt)
	m.EmitDebugLine(7, 1)
	require.Equal(t, uint16(byte(bytecode.OpHalt))+7, m.Checksum())
}

func TestModule_UpdateAndVerifyIntegrity(t *testing.T) {
	m := bytecode.New()
	m.Metadata.AppName = "demo"
	m.Emit(bytecode.OpPushI32, 1, 0, 0, 0)
	m.Emit(bytecode.OpHalt)

	require.False(t, m.VerifyIntegrity(), "fresh module has a zero hash/checksum that should not match")

	m.UpdateIntegrity()
	require.True(t, m.VerifyIntegrity())

	m.Code = append(m.Code, byte(bytecode.OpNop))
	require.False(t, m.VerifyIntegrity(), "mutating code after integrity was set must invalidate it")
}

func TestModule_HashChangesWithEveryField(t *testing.T) {
	base := bytecode.DefaultMetadata()
	baseHash := base.Hash()

	variants := []bytecode.Metadata{base, base, base, base, base, base}
	variants[0].Version++
	variants[1].HeapSize++
	variants[2].Timestamp++
	variants[3].Checksum++
	variants[4].AppName += "x"
	variants[5].Author += "x"

	for i, v := range variants {
		require.NotEqualf(t, baseHash, v.Hash(), "variant %d must change the hash", i)
	}
}

func TestModule_PatchJumpIsRelativeToOperandEnd(t *testing.T) {
	m := bytecode.New()
	at := m.Emit(bytecode.OpJump, 0, 0, 0, 0)
	target := m.Emit(bytecode.OpHalt)

	require.NoError(t, m.PatchJump(at+1, target))

	offset := int32(m.Code[at+1]) | int32(m.Code[at+2])<<8 | int32(m.Code[at+3])<<16 | int32(m.Code[at+4])<<24
	require.Equal(t, int32(target)-int32(at+1+4), offset)
}

func TestModule_PatchJumpOutOfRange(t *testing.T) {
	m := bytecode.New()
	require.Error(t, m.PatchJump(100, 0))
}
