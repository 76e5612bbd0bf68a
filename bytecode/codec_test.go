package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dialos/dialscript/bytecode"
)

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	m := bytecode.New()
	m.Metadata.AppName = "demo"
	m.Metadata.AppVersion = "2.1.0"
	m.Metadata.Author = "dial"
	m.Metadata.HeapSize = 4096
	m.Metadata.Timestamp = 1710000000

	m.AddConstant("hello")
	m.AddConstant("world")
	m.AddGlobal("counter")
	m.AddFunction(bytecode.Function{Name: "main", EntryPC: 0, ParamCount: 0})

	m.Emit(bytecode.OpPushStr, 0, 0)
	m.Emit(bytecode.OpPrint)
	m.Emit(bytecode.OpHalt)
	m.MainEntryPoint = 0
	m.UpdateIntegrity()

	data, err := m.Serialize()
	require.NoError(t, err)
	require.Equal(t, []byte("DSBC"), data[:4])

	got, err := bytecode.Deserialize(data)
	require.NoError(t, err)

	require.Equal(t, m.Metadata, got.Metadata)
	require.Equal(t, m.Constants(), got.Constants())
	require.Equal(t, m.Globals(), got.Globals())
	require.Equal(t, m.Functions, got.Functions)
	require.Equal(t, m.Code, got.Code)
	require.Equal(t, m.MainEntryPoint, got.MainEntryPoint)
	require.True(t, got.VerifyIntegrity())
}

func TestSerializeDeserializeWithDebugInfo(t *testing.T) {
	m := bytecode.New()
	m.DebugLines = []uint32{}
	at := m.Emit(bytecode.OpPushI8, 3)
	m.EmitDebugLine(1, len(m.Code)-int(at))
	at = m.Emit(bytecode.OpHalt)
	m.EmitDebugLine(2, len(m.Code)-int(at))
	m.UpdateIntegrity()

	data, err := m.Serialize()
	require.NoError(t, err)

	got, err := bytecode.Deserialize(data)
	require.NoError(t, err)
	require.True(t, got.HasDebugInfo())
	require.Equal(t, m.DebugLines, got.DebugLines)
	require.True(t, got.VerifyIntegrity())
}

func TestDeserializeRejectsBadMagic(t *testing.T) {
	_, err := bytecode.Deserialize([]byte("XXXX"))
	require.Error(t, err)
}

func TestDeserializeRejectsTruncated(t *testing.T) {
	m := bytecode.New()
	m.Emit(bytecode.OpHalt)
	m.UpdateIntegrity()
	data, err := m.Serialize()
	require.NoError(t, err)

	_, err = bytecode.Deserialize(data[:len(data)-4])
	require.Error(t, err)
}
