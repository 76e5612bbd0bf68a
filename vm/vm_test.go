package vm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dialos/dialscript/compiler"
	"github.com/dialos/dialscript/parser"
	"github.com/dialos/dialscript/platform/fakeplatform"
	"github.com/dialos/dialscript/vm"
)

func mustRun(t *testing.T, src string) (*vm.VM, *fakeplatform.Fake) {
	t.Helper()
	prog, perrs := parser.Parse(src)
	require.Empty(t, perrs, "parse errors: %v", perrs)
	mod, cerrs := compiler.Compile(prog)
	require.Empty(t, cerrs, "compile errors: %v", cerrs)

	plat := fakeplatform.New()
	v, err := vm.New(mod, plat)
	require.NoError(t, err)

	result, runErr := v.Execute(context.Background(), 100000)
	require.Equal(t, vm.ResultFinished, result, "execute error: %v", runErr)
	require.NoError(t, runErr)
	return v, plat
}

func TestArithmeticAndPrint(t *testing.T) {
	_, plat := mustRun(t, `var x: 40; assign x x + 2; print(x);`)
	require.Equal(t, []string{"42"}, plat.Logs)
}

func TestStringConcatenationViaTemplate(t *testing.T) {
	_, plat := mustRun(t, "var n: 3; print(`n=${n}`);")
	require.Equal(t, []string{"n=3"}, plat.Logs)
}

func TestFunctionCallAndReturn(t *testing.T) {
	_, plat := mustRun(t, `function add(a: int, b: int): int { return a + b; } print(add(2, 5));`)
	require.Equal(t, []string{"7"}, plat.Logs)
}

func TestExceptionUnwinding(t *testing.T) {
	_, plat := mustRun(t, `try { var a: 1 / 0; print("no"); } catch (e) { print("caught"); }`)
	require.Equal(t, []string{"caught"}, plat.Logs)
}

func TestFinallyOnlyRunsOnNormalCompletion(t *testing.T) {
	_, plat := mustRun(t, `try { print("body"); } finally { print("cleanup"); }`)
	require.Equal(t, []string{"body", "cleanup"}, plat.Logs)
}

func TestFinallyOnlyDoesNotSwallowThrow(t *testing.T) {
	// A try with only a finally clause (no catch) installs no handler: a
	// fault inside the body must propagate past it as an unhandled
	// exception, not get silently discarded by the catch-less handler
	// path (spec.md §7).
	prog, perrs := parser.Parse(`try { var a: 1 / 0; print("no"); } finally { print("unreached"); }`)
	require.Empty(t, perrs)
	mod, cerrs := compiler.Compile(prog)
	require.Empty(t, cerrs)

	plat := fakeplatform.New()
	v, err := vm.New(mod, plat)
	require.NoError(t, err)

	result, runErr := v.Execute(context.Background(), 1000)
	require.Equal(t, vm.ResultError, result)
	require.Error(t, runErr)
	require.Empty(t, plat.Logs, "neither the try body's nor the finally block's print should run")
}

func TestClassMethodDispatch(t *testing.T) {
	_, plat := mustRun(t, `
		class C {
			v: int;
			constructor(x: int) { assign this.v x; }
			get(): int { return this.v; }
		}
		print(C(9).get());
	`)
	require.Equal(t, []string{"9"}, plat.Logs)
}

func TestIntervalCallbackInvocation(t *testing.T) {
	prog, perrs := parser.Parse(`
		var counter: 0;
		function tick(): int { assign counter counter + 1; return 0; }
		os.timer.setInterval(tick, 10);
	`)
	require.Empty(t, perrs)
	mod, cerrs := compiler.Compile(prog)
	require.Empty(t, cerrs)

	plat := fakeplatform.New()
	v, err := vm.New(mod, plat)
	require.NoError(t, err)

	result, runErr := v.Execute(context.Background(), 100000)
	require.Equal(t, vm.ResultFinished, result, "execute error: %v", runErr)
	require.NoError(t, runErr)

	for i := 0; i < 3; i++ {
		require.NoError(t, plat.Advance(10))
	}

	result, runErr = v.Execute(context.Background(), 1000)
	require.NoError(t, runErr)
	require.Equal(t, vm.ResultFinished, result)

	counter, ok := v.Global("counter")
	require.True(t, ok)
	require.Equal(t, int32(3), counter.AsInt())
}

func TestEmptyProgramHaltsImmediately(t *testing.T) {
	prog, perrs := parser.Parse("")
	require.Empty(t, perrs)
	mod, cerrs := compiler.Compile(prog)
	require.Empty(t, cerrs)

	plat := fakeplatform.New()
	v, err := vm.New(mod, plat)
	require.NoError(t, err)

	result, runErr := v.Execute(context.Background(), 10)
	require.NoError(t, runErr)
	require.Equal(t, vm.ResultFinished, result)
}

func TestEmptyForLoopNeverEntersBody(t *testing.T) {
	_, plat := mustRun(t, `
		for (var i: 0; i < 0; assign i i + 1) { print("never"); }
		print("done");
	`)
	require.Equal(t, []string{"done"}, plat.Logs)
}

func TestDivisionByZeroOutsideTryIsFatal(t *testing.T) {
	prog, perrs := parser.Parse(`var a: 1 / 0;`)
	require.Empty(t, perrs)
	mod, cerrs := compiler.Compile(prog)
	require.Empty(t, cerrs)

	plat := fakeplatform.New()
	v, err := vm.New(mod, plat)
	require.NoError(t, err)

	result, runErr := v.Execute(context.Background(), 1000)
	require.Equal(t, vm.ResultError, result)
	require.Error(t, runErr)
	require.Error(t, v.Err())
}

func TestArrayOutOfRangeReadIsNullWriteIsNoop(t *testing.T) {
	_, plat := mustRun(t, `
		var a: [1, 2, 3];
		assign a[10] 99;
		print(a[10]);
		print(a[0]);
	`)
	require.Equal(t, []string{"null", "1"}, plat.Logs)
}

func TestEmptyTemplateLiteralIsEmptyString(t *testing.T) {
	_, plat := mustRun(t, "print(``);")
	require.Equal(t, []string{""}, plat.Logs)
}
