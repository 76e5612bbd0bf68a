// Package platform defines the host capability surface dialScript
// bytecode reaches through CALL_NATIVE (spec.md §7), grounded on the
// original implementation's PlatformInterface
// (original_source/src/vm/platform.h): a handful of methods every host
// must implement, and a much larger set of optional capabilities with
// default behavior supplied by NoOp.
package platform

import "errors"

// ErrUnsupported is returned by an optional capability a host has not
// implemented.
var ErrUnsupported = errors.New("platform: capability not supported")

// TimerID identifies a registered setTimeout/setInterval callback.
type TimerID uint32

// FileHandle identifies an open file.
type FileHandle uint32

// Required is the minimal surface every host platform must implement:
// console output, the display, the rotary encoder, and the system clock
// (original_source/src/vm/platform.h's pure-virtual methods).
type Required interface {
	ConsoleLog(msg string)

	DisplayClear()
	DisplayDrawText(x, y int32, text string)
	DisplayDrawRect(x, y, w, h int32, filled bool)
	DisplayRefresh()

	EncoderGetButton() bool
	EncoderGetDelta() int32

	SystemGetTime() uint32
	SystemSleep(ms uint32)
}

// Optional is every capability the original gives a default, no-op (or
// zero-value) body to: a dialScript host need not implement any of these
// to run a program that doesn't use them (spec.md §7: unknown or
// unimplemented capability calls return null, never an error).
type Optional interface {
	ConsoleWarn(msg string)
	ConsoleError(msg string)

	DisplayDrawCircle(x, y, r int32, filled bool)
	DisplayDrawLine(x0, y0, x1, y1 int32)
	DisplayDrawPixel(x, y int32)
	DisplaySetBrightness(n int32)
	DisplayGetWidth() int32
	DisplayGetHeight() int32

	EncoderGetPosition() int32
	EncoderReset()

	SystemGetRTC() (year, month, day, hour, minute, second int)
	SystemSetRTC(year, month, day, hour, minute, second int)

	TouchIsPressed() bool
	TouchGetX() int32
	TouchGetY() int32

	FileOpen(path, mode string) (FileHandle, error)
	FileRead(h FileHandle, n int) ([]byte, error)
	FileWrite(h FileHandle, data []byte) (int, error)
	FileClose(h FileHandle) error

	DirList(path string) ([]string, error)

	GPIOSetMode(pin int, output bool)
	GPIORead(pin int) bool
	GPIOWrite(pin int, high bool)

	I2CRead(addr byte, n int) ([]byte, error)
	I2CWrite(addr byte, data []byte) error

	BuzzerTone(freqHz, durationMs uint32)

	TimerSetTimeout(delayMs uint32, cb func()) TimerID
	TimerSetInterval(intervalMs uint32, cb func()) TimerID
	TimerClear(id TimerID)

	MemoryGetAvailable() uint32
	MemoryGetUsage() uint32
}

// Platform is the full capability surface a VM can dispatch CALL_NATIVE
// against.
type Platform interface {
	Required
	Optional
}

// NoOp implements Optional with inert defaults, so a concrete host only
// has to embed NoOp and supply Required plus whichever Optional methods
// it actually backs. Go embedding cannot dispatch back to an overriding
// outer method (unlike the original's virtual calls, e.g. console_warn
// defaulting to console_log), so these defaults are self-contained rather
// than delegating; a host wanting that behavior overrides the method
// itself.
type NoOp struct{}

func (NoOp) ConsoleWarn(string)  {}
func (NoOp) ConsoleError(string) {}

func (NoOp) DisplayDrawCircle(x, y, r int32, filled bool) {}
func (NoOp) DisplayDrawLine(x0, y0, x1, y1 int32)         {}
func (NoOp) DisplayDrawPixel(x, y int32)                  {}
func (NoOp) DisplaySetBrightness(n int32)                 {}
func (NoOp) DisplayGetWidth() int32                        { return 240 }
func (NoOp) DisplayGetHeight() int32                       { return 240 }

func (NoOp) EncoderGetPosition() int32 { return 0 }
func (NoOp) EncoderReset()             {}

func (NoOp) SystemGetRTC() (year, month, day, hour, minute, second int) { return }
func (NoOp) SystemSetRTC(year, month, day, hour, minute, second int)    {}

func (NoOp) TouchIsPressed() bool { return false }
func (NoOp) TouchGetX() int32     { return 0 }
func (NoOp) TouchGetY() int32     { return 0 }

func (NoOp) FileOpen(path, mode string) (FileHandle, error) { return 0, ErrUnsupported }
func (NoOp) FileRead(h FileHandle, n int) ([]byte, error)    { return nil, ErrUnsupported }
func (NoOp) FileWrite(h FileHandle, data []byte) (int, error) {
	return 0, ErrUnsupported
}
func (NoOp) FileClose(h FileHandle) error { return ErrUnsupported }

func (NoOp) DirList(path string) ([]string, error) { return nil, ErrUnsupported }

func (NoOp) GPIOSetMode(pin int, output bool) {}
func (NoOp) GPIORead(pin int) bool            { return false }
func (NoOp) GPIOWrite(pin int, high bool)     {}

func (NoOp) I2CRead(addr byte, n int) ([]byte, error)   { return nil, ErrUnsupported }
func (NoOp) I2CWrite(addr byte, data []byte) error      { return ErrUnsupported }

func (NoOp) BuzzerTone(freqHz, durationMs uint32) {}

func (NoOp) TimerSetTimeout(delayMs uint32, cb func()) TimerID  { return 0 }
func (NoOp) TimerSetInterval(intervalMs uint32, cb func()) TimerID { return 0 }
func (NoOp) TimerClear(id TimerID)                                 {}

func (NoOp) MemoryGetAvailable() uint32 { return 0 }
func (NoOp) MemoryGetUsage() uint32     { return 0 }
