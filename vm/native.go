package vm

import (
	"github.com/dialos/dialscript/platform"
	"github.com/dialos/dialscript/value"
)

// newOSObject builds the immutable `os` root object inserted into globals
// at VM construction (spec.md §9 design note): its fields are
// value.Native markers named after each capability group, so ordinary
// GET_FIELD handling resolves `os.console`, `os.display`, etc. without any
// special-casing, and only CALL_METHOD/CALL_NATIVE need to recognize a
// KindNative or capability-group Object receiver.
func (vm *VM) newOSObject() (value.Value, error) {
	h, ok := vm.heap.AllocateObject("os")
	if !ok {
		return value.Null, errOSObjectAllocation
	}
	for group := range capabilityGroups {
		if !vm.heap.SetField(h, group, value.Native(group)) {
			return value.Null, errOSObjectAllocation
		}
	}
	return value.ObjectRef(h), nil
}

// dispatchNative executes one capability operation (spec.md §6). Unknown
// groups or operations return null without faulting, matching "a
// mis-spelled call does not crash the VM".
func (vm *VM) dispatchNative(group, op string, args []value.Value) value.Value {
	switch group {
	case "console":
		return vm.dispatchConsole(op, args)
	case "display":
		return vm.dispatchDisplay(op, args)
	case "encoder":
		return vm.dispatchEncoder(op, args)
	case "touch":
		return vm.dispatchTouch(op, args)
	case "system":
		return vm.dispatchSystem(op, args)
	case "file", "dir":
		return vm.dispatchFile(op, args)
	case "gpio":
		return vm.dispatchGPIO(op, args)
	case "i2c":
		return vm.dispatchI2C(op, args)
	case "buzzer":
		return vm.dispatchBuzzer(op, args)
	case "timer":
		return vm.dispatchTimer(op, args)
	case "callbacks":
		return vm.dispatchCallbacks(op, args)
	case "memory":
		return vm.dispatchMemory(op, args)
	default:
		return value.Null
	}
}

func argAt(args []value.Value, i int) value.Value {
	if i < 0 || i >= len(args) {
		return value.Null
	}
	return args[i]
}

func intArg(args []value.Value, i int) int32 {
	v := argAt(args, i)
	switch v.Kind() {
	case value.KindInt:
		return v.AsInt()
	case value.KindFloat:
		return int32(v.AsFloat())
	default:
		return 0
	}
}

func boolArg(args []value.Value, i int) bool { return argAt(args, i).IsTruthy() }

func (vm *VM) stringArg(args []value.Value, i int) string {
	v := argAt(args, i)
	if v.Kind() == value.KindString {
		s, _ := vm.heap.String(v.Handle())
		return s
	}
	return vm.displayString(v)
}

func (vm *VM) newStringValue(s string) value.Value {
	h, ok := vm.heap.AllocateString(s)
	if !ok {
		vm.outOfMemory()
	}
	return value.StringRef(h)
}

func (vm *VM) dispatchConsole(op string, args []value.Value) value.Value {
	msg := vm.stringArg(args, 0)
	switch op {
	case "log", "print":
		vm.platform.ConsoleLog(msg)
	case "warn":
		vm.platform.ConsoleWarn(msg)
	case "error":
		vm.platform.ConsoleError(msg)
	}
	return value.Null
}

func (vm *VM) dispatchDisplay(op string, args []value.Value) value.Value {
	switch op {
	case "clear":
		vm.platform.DisplayClear()
	case "drawText":
		vm.platform.DisplayDrawText(intArg(args, 0), intArg(args, 1), vm.stringArg(args, 2))
	case "drawRect":
		vm.platform.DisplayDrawRect(intArg(args, 0), intArg(args, 1), intArg(args, 2), intArg(args, 3), boolArg(args, 4))
	case "drawCircle":
		vm.platform.DisplayDrawCircle(intArg(args, 0), intArg(args, 1), intArg(args, 2), boolArg(args, 3))
	case "drawLine":
		vm.platform.DisplayDrawLine(intArg(args, 0), intArg(args, 1), intArg(args, 2), intArg(args, 3))
	case "drawPixel":
		vm.platform.DisplayDrawPixel(intArg(args, 0), intArg(args, 1))
	case "setBrightness":
		vm.platform.DisplaySetBrightness(intArg(args, 0))
	case "getWidth":
		return value.Int(vm.platform.DisplayGetWidth())
	case "getHeight":
		return value.Int(vm.platform.DisplayGetHeight())
	case "refresh":
		vm.platform.DisplayRefresh()
	}
	return value.Null
}

func (vm *VM) dispatchEncoder(op string, args []value.Value) value.Value {
	switch op {
	case "getButton":
		return value.Bool(vm.platform.EncoderGetButton())
	case "getDelta":
		return value.Int(vm.platform.EncoderGetDelta())
	case "getPosition":
		return value.Int(vm.platform.EncoderGetPosition())
	case "reset":
		vm.platform.EncoderReset()
	}
	return value.Null
}

func (vm *VM) dispatchTouch(op string, args []value.Value) value.Value {
	switch op {
	case "getX":
		return value.Int(vm.platform.TouchGetX())
	case "getY":
		return value.Int(vm.platform.TouchGetY())
	case "isPressed":
		return value.Bool(vm.platform.TouchIsPressed())
	}
	return value.Null
}

func (vm *VM) dispatchSystem(op string, args []value.Value) value.Value {
	switch op {
	case "getTime":
		return value.Int(int32(vm.platform.SystemGetTime()))
	case "sleep":
		ms := intArg(args, 0)
		vm.sleepingUntil = vm.platform.SystemGetTime() + uint32(ms)
		vm.platform.SystemSleep(uint32(ms))
		vm.yieldRequested = true
	case "getRTC":
		y, mo, d, h, mi, s := vm.platform.SystemGetRTC()
		arrH, ok := vm.heap.AllocateArray(6)
		if !ok {
			vm.outOfMemory()
		}
		arr, _ := vm.heap.Array(arrH)
		arr.Elements[0] = value.Int(int32(y))
		arr.Elements[1] = value.Int(int32(mo))
		arr.Elements[2] = value.Int(int32(d))
		arr.Elements[3] = value.Int(int32(h))
		arr.Elements[4] = value.Int(int32(mi))
		arr.Elements[5] = value.Int(int32(s))
		return value.ArrayRef(arrH)
	case "setRTC":
		vm.platform.SystemSetRTC(int(intArg(args, 0)), int(intArg(args, 1)), int(intArg(args, 2)),
			int(intArg(args, 3)), int(intArg(args, 4)), int(intArg(args, 5)))
	}
	return value.Null
}

func (vm *VM) dispatchGPIO(op string, args []value.Value) value.Value {
	switch op {
	case "pinMode":
		vm.platform.GPIOSetMode(int(intArg(args, 0)), boolArg(args, 1))
	case "digitalWrite":
		vm.platform.GPIOWrite(int(intArg(args, 0)), boolArg(args, 1))
	case "digitalRead":
		return value.Bool(vm.platform.GPIORead(int(intArg(args, 0))))
	case "analogWrite":
		vm.platform.GPIOWrite(int(intArg(args, 0)), intArg(args, 1) != 0)
	case "analogRead":
		if vm.platform.GPIORead(int(intArg(args, 0))) {
			return value.Int(1)
		}
		return value.Int(0)
	}
	return value.Null
}

func (vm *VM) dispatchI2C(op string, args []value.Value) value.Value {
	switch op {
	case "write":
		addr := byte(intArg(args, 0))
		data := []byte(vm.stringArg(args, 1))
		if err := vm.platform.I2CWrite(addr, data); err != nil {
			return value.Bool(false)
		}
		return value.Bool(true)
	case "read":
		addr := byte(intArg(args, 0))
		n := int(intArg(args, 1))
		data, err := vm.platform.I2CRead(addr, n)
		if err != nil {
			return value.Null
		}
		return vm.newStringValue(string(data))
	case "scan":
		return value.Null
	}
	return value.Null
}

func (vm *VM) dispatchBuzzer(op string, args []value.Value) value.Value {
	switch op {
	case "beep":
		vm.platform.BuzzerTone(uint32(intArg(args, 0)), uint32(intArg(args, 1)))
	case "stop":
		vm.platform.BuzzerTone(0, 0)
	case "playMelody":
		vm.platform.BuzzerTone(uint32(intArg(args, 0)), uint32(intArg(args, 1)))
	}
	return value.Null
}

func (vm *VM) dispatchTimer(op string, args []value.Value) value.Value {
	switch op {
	case "setTimeout":
		var fn value.Value
		var ms int32
		if len(args) >= 2 && argAt(args, 0).Kind() == value.KindFunction {
			fn, ms = argAt(args, 0), intArg(args, 1)
		} else {
			ms = intArg(args, 0)
		}
		id := vm.platform.TimerSetTimeout(uint32(ms), func() {
			if fn.Kind() == value.KindFunction {
				vm.callbacks.enqueue(fn, nil)
			}
		})
		return value.Int(int32(id))
	case "setInterval":
		fn := argAt(args, 0)
		ms := intArg(args, 1)
		id := vm.platform.TimerSetInterval(uint32(ms), func() {
			vm.callbacks.enqueue(fn, nil)
		})
		return value.Int(int32(id))
	case "clearTimeout", "clearInterval":
		vm.platform.TimerClear(platform.TimerID(uint32(intArg(args, 0))))
	}
	return value.Null
}

func (vm *VM) dispatchCallbacks(op string, args []value.Value) value.Value {
	switch op {
	case "registerCallback":
		name := vm.stringArg(args, 0)
		fn := argAt(args, 1)
		vm.callbacks.register(name, fn)
	case "invokeCallback":
		name := vm.stringArg(args, 0)
		fn, ok := vm.callbacks.lookup(name)
		if !ok {
			return value.Bool(false)
		}
		var cbArgs []value.Value
		if arrArg := argAt(args, 1); arrArg.Kind() == value.KindArray {
			if a, ok := vm.heap.Array(arrArg.Handle()); ok {
				cbArgs = a.Elements
			}
		}
		if _, err := vm.invokeFunction(fn, cbArgs); err != nil {
			return value.Bool(false)
		}
		return value.Bool(true)
	}
	return value.Null
}

func (vm *VM) dispatchMemory(op string, args []value.Value) value.Value {
	switch op {
	case "getAvailable":
		return value.Int(int32(vm.platform.MemoryGetAvailable()))
	case "getUsage":
		return value.Int(int32(vm.platform.MemoryGetUsage()))
	}
	return value.Null
}

// dispatchFile covers both the `file` and `dir` groups (spec.md §6 lists
// them together; open/read/write/close are file-handle operations, the
// rest are path operations either group may receive).
func (vm *VM) dispatchFile(op string, args []value.Value) value.Value {
	switch op {
	case "open":
		h, err := vm.platform.FileOpen(vm.stringArg(args, 0), vm.stringArg(args, 1))
		if err != nil {
			return value.Int(-1)
		}
		return value.Int(int32(h))
	case "read":
		h := platform.FileHandle(uint32(intArg(args, 0)))
		n := int(intArg(args, 1))
		data, err := vm.platform.FileRead(h, n)
		if err != nil {
			return value.Null
		}
		return vm.newStringValue(string(data))
	case "write":
		h := platform.FileHandle(uint32(intArg(args, 0)))
		n, err := vm.platform.FileWrite(h, []byte(vm.stringArg(args, 1)))
		if err != nil {
			return value.Int(-1)
		}
		return value.Int(int32(n))
	case "close":
		h := platform.FileHandle(uint32(intArg(args, 0)))
		vm.platform.FileClose(h)
	case "list":
		entries, err := vm.platform.DirList(vm.stringArg(args, 0))
		if err != nil {
			return value.Null
		}
		arrH, ok := vm.heap.AllocateArray(len(entries))
		if !ok {
			vm.outOfMemory()
		}
		arr, _ := vm.heap.Array(arrH)
		for i, e := range entries {
			arr.Elements[i] = vm.newStringValue(e)
		}
		return value.ArrayRef(arrH)
	case "exists":
		h, err := vm.platform.FileOpen(vm.stringArg(args, 0), "r")
		if err != nil {
			return value.Bool(false)
		}
		vm.platform.FileClose(h)
		return value.Bool(true)
	case "size":
		h, err := vm.platform.FileOpen(vm.stringArg(args, 0), "r")
		if err != nil {
			return value.Int(-1)
		}
		defer vm.platform.FileClose(h)
		data, err := vm.platform.FileRead(h, 1<<30)
		if err != nil {
			return value.Int(-1)
		}
		return value.Int(int32(len(data)))
	case "create":
		h, err := vm.platform.FileOpen(vm.stringArg(args, 0), "w")
		if err != nil {
			return value.Bool(false)
		}
		vm.platform.FileClose(h)
		return value.Bool(true)
	case "delete":
		return value.Bool(false)
	}
	return value.Null
}
