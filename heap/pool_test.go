package heap_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dialos/dialscript/heap"
	"github.com/dialos/dialscript/value"
)

func TestAllocateStringInterns(t *testing.T) {
	p := heap.New(4096)
	a, ok := p.AllocateString("hello")
	require.True(t, ok)
	b, ok := p.AllocateString("hello")
	require.True(t, ok)
	require.Equal(t, a, b)

	s, ok := p.String(a)
	require.True(t, ok)
	require.Equal(t, "hello", s)
}

func TestEmptyStringIsHandleZero(t *testing.T) {
	p := heap.New(4096)
	h, ok := p.AllocateString("")
	require.True(t, ok)
	require.Equal(t, uint32(0), h)
}

func TestAllocateStringOutOfMemory(t *testing.T) {
	p := heap.New(16)
	_, ok := p.AllocateString("this string is far too long for the budget")
	require.False(t, ok)
}

func TestObjectFieldsAndArrayElements(t *testing.T) {
	p := heap.New(4096)
	oh, ok := p.AllocateObject("Point")
	require.True(t, ok)
	require.True(t, p.SetField(oh, "x", value.Int(3)))
	require.True(t, p.SetField(oh, "y", value.Int(4)))

	obj, ok := p.Object(oh)
	require.True(t, ok)
	require.Equal(t, "Point", obj.ClassName)
	require.Equal(t, value.Int(3), obj.Fields["x"])

	ah, ok := p.AllocateArray(3)
	require.True(t, ok)
	arr, ok := p.Array(ah)
	require.True(t, ok)
	require.Len(t, arr.Elements, 3)
	arr.Elements[1] = value.Int(42)
	require.True(t, arr.Elements[1].Equals(value.Int(42)))
}

func TestCollectFreesUnreachable(t *testing.T) {
	p := heap.New(4096)
	kept, _ := p.AllocateString("kept")
	_, _ = p.AllocateString("garbage")

	strs, _, _ := p.LiveCounts()
	require.Equal(t, 3, strs) // "", kept, garbage

	p.Collect([]value.Value{value.StringRef(kept)})

	strs, _, _ = p.LiveCounts()
	require.Equal(t, 2, strs) // "", kept

	_, ok := p.String(kept)
	require.True(t, ok)
}

func TestCollectWalksObjectAndArrayGraph(t *testing.T) {
	p := heap.New(4096)
	strHandle, _ := p.AllocateString("nested")
	ah, _ := p.AllocateArray(1)
	arr, _ := p.Array(ah)
	arr.Elements[0] = value.StringRef(strHandle)

	oh, _ := p.AllocateObject("Holder")
	p.SetField(oh, "items", value.ArrayRef(ah))

	p.Collect([]value.Value{value.ObjectRef(oh)})

	_, ok := p.String(strHandle)
	require.True(t, ok, "string reachable only via object->array->string must survive")
	_, ok = p.Array(ah)
	require.True(t, ok)
}

func TestCollectReclaimsBudgetAndReusesHandles(t *testing.T) {
	p := heap.New(64)
	h1, ok := p.AllocateString("aaaaaaaaaaaaaaaaaaaa")
	require.True(t, ok)

	p.Collect(nil) // nothing rooted: h1 must be freed
	_, ok = p.String(h1)
	require.False(t, ok)

	h2, ok := p.AllocateString("bbbbbbbbbbbbbbbbbbbb")
	require.True(t, ok, "freed budget must be reusable")
	require.Equal(t, h1, h2, "freed handle slot should be recycled")
}

func TestCollectHandlesCycles(t *testing.T) {
	p := heap.New(4096)
	oh, _ := p.AllocateObject("Node")
	p.SetField(oh, "self", value.ObjectRef(oh))

	require.NotPanics(t, func() {
		p.Collect([]value.Value{value.ObjectRef(oh)})
	})
	_, ok := p.Object(oh)
	require.True(t, ok)
}
