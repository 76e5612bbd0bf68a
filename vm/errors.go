package vm

import (
	"errors"
	"fmt"
)

// errCallbackOutOfMemory/errCallbackBudgetExceeded surface from
// invokeFunction when a callback invocation (spec.md §4.6) itself runs out
// of heap or never returns; both halt the VM through fatal, unlike a
// top-level OutOfMemory (ResultOutOfMemory) or an exhausted Execute
// budget (ResultOk), which leave it running.
var (
	errCallbackOutOfMemory    = errors.New("vm: callback ran out of heap")
	errCallbackBudgetExceeded = errors.New("vm: callback exceeded its instruction budget")
	errOSObjectAllocation     = errors.New("vm: insufficient heap to construct the os capability object")
)

// unhandledExceptionError wraps a THROWn value's display string as the
// fatal error surfaced through Execute/Err when no TRY handler catches it
// (spec.md §7: an uncaught THROW halts the VM).
func unhandledExceptionError(displayed string) error {
	return fmt.Errorf("unhandled exception: %s", displayed)
}
