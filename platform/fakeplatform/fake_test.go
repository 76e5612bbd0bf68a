package fakeplatform_test

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dialos/dialscript/platform/fakeplatform"
)

func TestConsoleAndDisplayRecording(t *testing.T) {
	f := fakeplatform.New()
	f.ConsoleLog("hello")
	f.ConsoleWarn("careful")
	f.DisplayClear()
	f.DisplayDrawText(1, 2, "hi")
	f.DisplayRefresh()

	require.Equal(t, []string{"hello"}, f.Logs)
	require.Equal(t, []string{"careful"}, f.Warns)
	require.Len(t, f.Draws, 3)
}

func TestEncoderState(t *testing.T) {
	f := fakeplatform.New()
	f.SetEncoder(true, -3)
	require.True(t, f.EncoderGetButton())
	require.Equal(t, int32(-3), f.EncoderGetDelta())
}

func TestSystemClockAdvancesOnSleep(t *testing.T) {
	f := fakeplatform.New()
	require.Equal(t, uint32(0), f.SystemGetTime())
	f.SystemSleep(50)
	require.Equal(t, uint32(50), f.SystemGetTime())
}

func TestFileRoundTrip(t *testing.T) {
	f := fakeplatform.New()
	h, err := f.FileOpen("note.txt", "w")
	require.NoError(t, err)
	n, err := f.FileWrite(h, []byte("abc"))
	require.NoError(t, err)
	require.Equal(t, 3, n)
	got, err := f.FileRead(h, 2)
	require.NoError(t, err)
	require.Equal(t, []byte("ab"), got)
	require.NoError(t, f.FileClose(h))
}

func TestGPIOReadWrite(t *testing.T) {
	f := fakeplatform.New()
	f.GPIOSetMode(4, true)
	f.GPIOWrite(4, true)
	require.True(t, f.GPIORead(4))
}

func TestTimeoutFiresOnceOnAdvance(t *testing.T) {
	f := fakeplatform.New()
	var calls int32
	f.TimerSetTimeout(100, func() { atomic.AddInt32(&calls, 1) })

	require.NoError(t, f.Advance(50))
	require.Equal(t, int32(0), atomic.LoadInt32(&calls))

	require.NoError(t, f.Advance(60))
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))

	require.NoError(t, f.Advance(1000))
	require.Equal(t, int32(1), atomic.LoadInt32(&calls), "a timeout must not refire")
}

func TestIntervalFiresRepeatedly(t *testing.T) {
	f := fakeplatform.New()
	var calls int32
	f.TimerSetInterval(10, func() { atomic.AddInt32(&calls, 1) })

	require.NoError(t, f.Advance(35))
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestTimerClearStopsFutureFires(t *testing.T) {
	f := fakeplatform.New()
	var calls int32
	id := f.TimerSetInterval(10, func() { atomic.AddInt32(&calls, 1) })

	require.NoError(t, f.Advance(10))
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))

	f.TimerClear(id)
	require.NoError(t, f.Advance(100))
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
