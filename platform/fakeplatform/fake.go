// Package fakeplatform provides an in-memory platform.Platform double for
// tests: console output and display calls are recorded rather than drawn,
// GPIO/I2C/file state lives in maps, and timers are driven explicitly by
// calling Advance rather than by a wall clock.
package fakeplatform

import (
	"fmt"
	"sync"

	"github.com/dialos/dialscript/platform"
)

type drawCall struct {
	Op              string
	X, Y, W, H      int32
	Text            string
	Filled          bool
}

type timer struct {
	id       platform.TimerID
	interval bool
	periodMs uint32
	dueMs    uint32
	cb       func()
	cleared  bool
}

// Fake is a fully in-memory platform.Platform implementation.
type Fake struct {
	platform.NoOp

	mu sync.Mutex

	Logs []string
	Warns []string
	Errors []string

	Draws []drawCall

	button bool
	delta  int32

	clockMs uint32

	gpio map[int]bool
	gpioMode map[int]bool

	files map[platform.FileHandle][]byte
	nextFile platform.FileHandle

	timers   []*timer
	nextTimer platform.TimerID
}

// New returns a Fake with a zeroed clock.
func New() *Fake {
	return &Fake{
		gpio:     make(map[int]bool),
		gpioMode: make(map[int]bool),
		files:    make(map[platform.FileHandle][]byte),
	}
}

func (f *Fake) ConsoleLog(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Logs = append(f.Logs, msg)
}

func (f *Fake) ConsoleWarn(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Warns = append(f.Warns, msg)
}

func (f *Fake) ConsoleError(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors = append(f.Errors, msg)
}

func (f *Fake) DisplayClear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Draws = append(f.Draws, drawCall{Op: "clear"})
}

func (f *Fake) DisplayDrawText(x, y int32, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Draws = append(f.Draws, drawCall{Op: "text", X: x, Y: y, Text: text})
}

func (f *Fake) DisplayDrawRect(x, y, w, h int32, filled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Draws = append(f.Draws, drawCall{Op: "rect", X: x, Y: y, W: w, H: h, Filled: filled})
}

func (f *Fake) DisplayRefresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Draws = append(f.Draws, drawCall{Op: "refresh"})
}

// SetEncoder lets a test script the button/delta state the VM will
// observe on its next EncoderGetButton/EncoderGetDelta call.
func (f *Fake) SetEncoder(button bool, delta int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.button, f.delta = button, delta
}

func (f *Fake) EncoderGetButton() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.button
}

func (f *Fake) EncoderGetDelta() int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.delta
}

func (f *Fake) SystemGetTime() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clockMs
}

func (f *Fake) SystemSleep(ms uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clockMs += ms
}

func (f *Fake) GPIOSetMode(pin int, output bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gpioMode[pin] = output
}

func (f *Fake) GPIORead(pin int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gpio[pin]
}

func (f *Fake) GPIOWrite(pin int, high bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gpio[pin] = high
}

func (f *Fake) FileOpen(path, mode string) (platform.FileHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextFile++
	h := f.nextFile
	f.files[h] = nil
	return h, nil
}

func (f *Fake) FileWrite(h platform.FileHandle, data []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	buf, ok := f.files[h]
	if !ok {
		return 0, fmt.Errorf("fakeplatform: bad file handle %d", h)
	}
	f.files[h] = append(buf, data...)
	return len(data), nil
}

func (f *Fake) FileRead(h platform.FileHandle, n int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	buf, ok := f.files[h]
	if !ok {
		return nil, fmt.Errorf("fakeplatform: bad file handle %d", h)
	}
	if n > len(buf) {
		n = len(buf)
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out, nil
}

func (f *Fake) FileClose(h platform.FileHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, h)
	return nil
}

// TimerSetTimeout registers cb to fire once Advance moves the clock past
// delayMs from now.
func (f *Fake) TimerSetTimeout(delayMs uint32, cb func()) platform.TimerID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextTimer++
	t := &timer{id: f.nextTimer, dueMs: f.clockMs + delayMs, cb: cb}
	f.timers = append(f.timers, t)
	return t.id
}

// TimerSetInterval registers cb to fire every intervalMs once Advance
// crosses each successive due time.
func (f *Fake) TimerSetInterval(intervalMs uint32, cb func()) platform.TimerID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextTimer++
	t := &timer{id: f.nextTimer, interval: true, periodMs: intervalMs, dueMs: f.clockMs + intervalMs, cb: cb}
	f.timers = append(f.timers, t)
	return t.id
}

func (f *Fake) TimerClear(id platform.TimerID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.timers {
		if t.id == id {
			t.cleared = true
		}
	}
}

// Advance moves the fake clock forward by ms and runs every timer whose
// due time has passed (an interval timer once for each of its periods
// that elapsed), concurrently via errgroup, matching how a real
// device's interval callbacks can race against each other across ISRs.
// Callbacks must not touch VM state directly without their own
// synchronization; tests exercising timers typically queue an event and
// let the VM drain it on the next Execute call instead.
func (f *Fake) Advance(ms uint32) error {
	f.mu.Lock()
	f.clockMs += ms
	now := f.clockMs
	var due []*timer
	for _, t := range f.timers {
		for !t.cleared && t.dueMs <= now {
			due = append(due, t)
			if !t.interval {
				t.cleared = true
			} else if t.periodMs == 0 {
				break
			} else {
				t.dueMs += t.periodMs
			}
		}
	}
	f.mu.Unlock()

	return runConcurrently(due)
}
