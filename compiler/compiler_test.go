package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dialos/dialscript/bytecode"
	"github.com/dialos/dialscript/compiler"
	"github.com/dialos/dialscript/parser"
)

func mustCompile(t *testing.T, src string, opts ...compiler.Option) *bytecode.Module {
	t.Helper()
	prog, perrs := parser.Parse(src)
	require.Empty(t, perrs, "parse errors: %v", perrs)
	mod, cerrs := compiler.Compile(prog, opts...)
	require.Empty(t, cerrs, "compile errors: %v", cerrs)
	return mod
}

func opSequence(mod *bytecode.Module) []bytecode.Op {
	var ops []bytecode.Op
	for i := 0; i < len(mod.Code); {
		op := bytecode.Op(mod.Code[i])
		ops = append(ops, op)
		i += 1 + bytecode.OperandSize(op)
	}
	return ops
}

func TestCompileEmptyProgramHalts(t *testing.T) {
	mod := mustCompile(t, "")
	require.NotEmpty(t, mod.Code)
	require.Equal(t, bytecode.OpHalt, bytecode.Op(mod.Code[len(mod.Code)-1]))
}

func TestCompileVarDeclBecomesGlobal(t *testing.T) {
	mod := mustCompile(t, "var x: 5;")
	require.Equal(t, 1, mod.NumGlobals())
	name, ok := mod.Global(0)
	require.True(t, ok)
	require.Equal(t, "x", name)
}

func TestCompileNumberEncodingPicksNarrowestWidth(t *testing.T) {
	mod := mustCompile(t, "var a: 5; var b: 200; var c: 90000; var d: 1.5;")
	ops := opSequence(mod)
	require.Contains(t, ops, bytecode.OpPushI8)
	require.Contains(t, ops, bytecode.OpPushI16)
	require.Contains(t, ops, bytecode.OpPushI32)
	require.Contains(t, ops, bytecode.OpPushF32)
}

func TestCompileFunctionCallResolvesDirectly(t *testing.T) {
	mod := mustCompile(t, `
		function add(a: int, b: int): int { return a + b; }
		var r: add(1, 2);
	`)
	require.Equal(t, uint16(1), mod.FindFunction("add"))
	require.Contains(t, opSequence(mod), bytecode.OpCall)
}

func TestCompileClassConstructorInvokedExplicitly(t *testing.T) {
	mod := mustCompile(t, `
		class Point {
			x: int;
			y: int;
			constructor(x: int, y: int) {
				assign x x;
				assign y y;
			}
		}
		var p: Point(1, 2);
	`)
	require.Equal(t, uint16(1), mod.FindFunction("Point::constructor"))

	var news, calls int
	for _, op := range opSequence(mod) {
		switch op {
		case bytecode.OpNewObject:
			news++
		case bytecode.OpCall:
			calls++
		}
	}
	require.Equal(t, 1, news)
	require.Equal(t, 1, calls)
}

func TestCompileTemplateLiteralFoldsStrConcat(t *testing.T) {
	mod := mustCompile(t, "var n: 3; var s: `n=${n}`;")
	var concatCount int
	for _, op := range opSequence(mod) {
		if op == bytecode.OpStrConcat {
			concatCount++
		}
	}
	require.Equal(t, 2, concatCount, "one concat for the \"n=\" text part and one for the ${n} part")
}

func TestCompileIntegrityVerifies(t *testing.T) {
	mod := mustCompile(t, "var x: 1;")
	require.True(t, mod.VerifyIntegrity())
}

func TestCompileDebugInfo(t *testing.T) {
	mod := mustCompile(t, "var x: 1;\nvar y: 2;", compiler.WithDebugInfo())
	require.True(t, mod.HasDebugInfo())
	require.Equal(t, len(mod.Code), len(mod.DebugLines))
}

func TestCompileDebugInfoCoversSynthesizedReturnAndHalt(t *testing.T) {
	// A function whose body falls off the end gets a synthesized
	// PUSH_NULL/RETURN (ensureReturn), and the module's trailing HALT is
	// emitted outside any compileStmt call; both must still get debug
	// entries so DebugLines stays exactly as long as Code.
	mod := mustCompile(t, `
		function f(): int {
			var x: 1;
		}
		print(f());
	`, compiler.WithDebugInfo())
	require.True(t, mod.HasDebugInfo())
	require.Equal(t, len(mod.Code), len(mod.DebugLines))
}

func TestCompileDivisionByZeroCompilesFine(t *testing.T) {
	// Division by zero is a runtime error, not a compile error (spec.md §8).
	mod := mustCompile(t, "var x: 1 / 0;")
	require.NotNil(t, mod)
}

func TestCompileEmptyForLoop(t *testing.T) {
	mod := mustCompile(t, `
		for (var i: 0; i < 0; assign i i + 1) {
		}
	`)
	require.NotNil(t, mod)
}

func TestCompileArrayLiteral(t *testing.T) {
	mod := mustCompile(t, "var a: [1, 2, 3];")
	ops := opSequence(mod)
	require.Contains(t, ops, bytecode.OpNewArray)
	require.Contains(t, ops, bytecode.OpSetIndex)
}

func TestCompileTernary(t *testing.T) {
	mod := mustCompile(t, "var x: 1 < 2 ? 3 : 4;")
	ops := opSequence(mod)
	require.Contains(t, ops, bytecode.OpJumpIfNot)
	require.Contains(t, ops, bytecode.OpJump)
}
