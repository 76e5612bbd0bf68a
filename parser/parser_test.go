package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dialos/dialscript/ast"
	"github.com/dialos/dialscript/parser"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, errs := parser.Parse(src)
	require.Empty(t, errs, "parse errors: %v", errs)
	return prog
}

func TestVarDecl(t *testing.T) {
	prog := mustParse(t, "var x: 5;")
	require.Len(t, prog.Stmts, 1)
	v, ok := prog.Stmts[0].(*ast.VarDecl)
	require.True(t, ok)
	require.Equal(t, "x", v.Name)
	num, ok := v.Init.(*ast.NumberLiteral)
	require.True(t, ok)
	require.Equal(t, "5", num.Value)
}

func TestAssignIsKeywordDrivenNotOperator(t *testing.T) {
	prog := mustParse(t, "assign x 1;")
	a, ok := prog.Stmts[0].(*ast.AssignStmt)
	require.True(t, ok)
	_, targetIsIdent := a.Target.(*ast.Identifier)
	require.True(t, targetIsIdent)
}

func TestEqualityUsesSingleEquals(t *testing.T) {
	prog := mustParse(t, "x = y;")
	es, ok := prog.Stmts[0].(*ast.ExprStmt)
	require.True(t, ok)
	bin, ok := es.X.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, ast.OpEq, bin.Op)
}

func TestTernaryIsLowestPrecedence(t *testing.T) {
	prog := mustParse(t, "a or b ? c : d;")
	es := prog.Stmts[0].(*ast.ExprStmt)
	tern, ok := es.X.(*ast.TernaryExpr)
	require.True(t, ok)
	_, condIsBinary := tern.Cond.(*ast.BinaryExpr)
	require.True(t, condIsBinary)
}

func TestPrecedenceClimbing(t *testing.T) {
	// `1 + 2 * 3` must parse as `1 + (2 * 3)`.
	prog := mustParse(t, "1 + 2 * 3;")
	es := prog.Stmts[0].(*ast.ExprStmt)
	add, ok := es.X.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, ast.OpAdd, add.Op)
	_, lhsIsNumber := add.Left.(*ast.NumberLiteral)
	require.True(t, lhsIsNumber)
	mul, ok := add.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, ast.OpMul, mul.Op)
}

func TestLeftAssociativity(t *testing.T) {
	// `1 - 2 - 3` must parse as `(1 - 2) - 3`.
	prog := mustParse(t, "1 - 2 - 3;")
	es := prog.Stmts[0].(*ast.ExprStmt)
	outer := es.X.(*ast.BinaryExpr)
	require.Equal(t, ast.OpSub, outer.Op)
	inner, ok := outer.Left.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, ast.OpSub, inner.Op)
	_, rhsIsNumber := outer.Right.(*ast.NumberLiteral)
	require.True(t, rhsIsNumber)
}

func TestConstructorCallDisambiguationByCase(t *testing.T) {
	prog := mustParse(t, "Point(1, 2); point(1, 2);")
	_, isCtor := prog.Stmts[0].(*ast.ExprStmt).X.(*ast.ConstructorCall)
	require.True(t, isCtor)
	_, isCall := prog.Stmts[1].(*ast.ExprStmt).X.(*ast.CallExpr)
	require.True(t, isCall)
}

func TestPrimitiveTypeKeywordCallIsConstructor(t *testing.T) {
	prog := mustParse(t, "int(x);")
	_, isCtor := prog.Stmts[0].(*ast.ExprStmt).X.(*ast.ConstructorCall)
	require.True(t, isCtor)
}

func TestForRequiresVarInitAndAssignStep(t *testing.T) {
	prog := mustParse(t, "for (var i: 0; i < 10; assign i i + 1) { }")
	f, ok := prog.Stmts[0].(*ast.ForStmt)
	require.True(t, ok)
	require.NotNil(t, f.Init)
	require.NotNil(t, f.Step)
}

func TestIfElseIfChain(t *testing.T) {
	prog := mustParse(t, "if (a) { } else if (b) { } else { }")
	top, ok := prog.Stmts[0].(*ast.IfStmt)
	require.True(t, ok)
	mid, ok := top.Alt.(*ast.IfStmt)
	require.True(t, ok)
	_, altIsBlock := mid.Alt.(*ast.BlockStmt)
	require.True(t, altIsBlock)
}

func TestTryCatchFinally(t *testing.T) {
	prog := mustParse(t, "try { } catch (e) { } finally { }")
	tr, ok := prog.Stmts[0].(*ast.TryStmt)
	require.True(t, ok)
	require.True(t, tr.HasCatch)
	require.Equal(t, "e", tr.CatchVar)
	require.NotNil(t, tr.Finally)
}

func TestClassFieldVsMethodLookahead(t *testing.T) {
	prog := mustParse(t, `class C {
		v: int;
		constructor(x: int) { assign this.v x; }
		get(): int { return this.v; }
	}`)
	cls, ok := prog.Stmts[0].(*ast.ClassDecl)
	require.True(t, ok)
	require.Len(t, cls.Fields, 1)
	require.Equal(t, "v", cls.Fields[0].Name)
	require.NotNil(t, cls.Constructor)
	require.Len(t, cls.Methods, 1)
	require.Equal(t, "get", cls.Methods[0].Name)
}

func TestFunctionDeclWithReturnType(t *testing.T) {
	prog := mustParse(t, "function add(a: int, b: int): int { return a + b; }")
	fn, ok := prog.Stmts[0].(*ast.FuncDecl)
	require.True(t, ok)
	require.Len(t, fn.Params, 2)
	require.NotNil(t, fn.ReturnType)
}

func TestTemplateLiteralExpression(t *testing.T) {
	prog := mustParse(t, "`n=${n}`;")
	es := prog.Stmts[0].(*ast.ExprStmt)
	tmpl, ok := es.X.(*ast.TemplateLiteral)
	require.True(t, ok)
	require.Len(t, tmpl.Parts, 2)
}

func TestMemberAndIndexPostfix(t *testing.T) {
	prog := mustParse(t, "a.b[0];")
	es := prog.Stmts[0].(*ast.ExprStmt)
	idx, ok := es.X.(*ast.IndexExpr)
	require.True(t, ok)
	_, memberIsBase := idx.Array.(*ast.MemberExpr)
	require.True(t, memberIsBase)
}

func TestErrorRecoveryContinuesPastMalformedStatement(t *testing.T) {
	// The malformed first statement is reported but does not stop the
	// next valid statement from parsing (spec.md §4.2).
	prog, errs := parser.Parse("var ; var x: 1;")
	require.NotEmpty(t, errs)
	require.Contains(t, errs[0], "Line 1:")
	found := false
	for _, s := range prog.Stmts {
		if v, ok := s.(*ast.VarDecl); ok && v.Name == "x" {
			found = true
		}
	}
	require.True(t, found, "parser should recover and still parse the following var decl")
}

func TestEmptyProgramParsesWithNoStatements(t *testing.T) {
	prog := mustParse(t, "")
	require.Empty(t, prog.Stmts)
}
