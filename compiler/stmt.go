package compiler

import (
	"github.com/dialos/dialscript/ast"
	"github.com/dialos/dialscript/bytecode"
)

func (c *Compiler) compileBlock(b *ast.BlockStmt) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		c.compileStmt(s)
	}
}

// compileStmt records s's line for the code bytes not already recorded by
// a nested statement, keeping DebugLines the same length as Code. Bytes an
// enclosing statement emits before a nested one (an if's condition) are
// recorded under the nested statement's line.
func (c *Compiler) compileStmt(s ast.Stmt) {
	c.compileStmtInner(s)
	if c.debug {
		c.mod.EmitDebugLine(uint32(s.Position().Line), len(c.mod.Code)-len(c.mod.DebugLines))
	}
}

func (c *Compiler) compileStmtInner(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.VarDecl:
		c.compileVarDecl(st)
	case *ast.AssignStmt:
		c.compileAssign(st)
	case *ast.BlockStmt:
		c.compileBlock(st)
	case *ast.IfStmt:
		c.compileIf(st)
	case *ast.WhileStmt:
		c.compileWhile(st)
	case *ast.ForStmt:
		c.compileFor(st)
	case *ast.TryStmt:
		c.compileTry(st)
	case *ast.ReturnStmt:
		c.compileReturn(st)
	case *ast.ExprStmt:
		c.compileExpr(st.X)
		c.mod.Emit(bytecode.OpPop)
	case *ast.FuncDecl, *ast.ClassDecl:
		// already handled by the function/class compile passes.
	default:
		c.fail(s.Position(), "compiler: unsupported statement %T", s)
	}
}

func (c *Compiler) compileVarDecl(v *ast.VarDecl) {
	if v.Init != nil {
		c.compileExpr(v.Init)
	} else {
		c.mod.Emit(bytecode.OpPushNull)
	}
	if c.scope != nil {
		idx := c.scope.declare(v.Name)
		c.mod.Emit(bytecode.OpStoreLocal, idx)
		return
	}
	gi := c.mod.AddGlobal(v.Name)
	c.mod.Emit(bytecode.OpStoreGlobal, u16bytes(gi)...)
}

func (c *Compiler) compileAssign(a *ast.AssignStmt) {
	switch target := a.Target.(type) {
	case *ast.Identifier:
		if c.scope != nil {
			if idx, ok := c.scope.lookup(target.Name); ok {
				c.compileExpr(a.Value)
				c.mod.Emit(bytecode.OpStoreLocal, idx)
				return
			}
			if fieldIdx, ok := c.fieldIndex(target.Name); ok {
				c.mod.Emit(bytecode.OpLoadLocal, 0)
				c.compileExpr(a.Value)
				c.mod.Emit(bytecode.OpSetField, u16bytes(fieldIdx)...)
				return
			}
		}
		gi := c.mod.AddGlobal(target.Name)
		c.compileExpr(a.Value)
		c.mod.Emit(bytecode.OpStoreGlobal, u16bytes(gi)...)
	case *ast.MemberExpr:
		c.compileExpr(target.Object)
		c.compileExpr(a.Value)
		fieldIdx := c.mod.AddConstant(target.Property)
		c.mod.Emit(bytecode.OpSetField, u16bytes(fieldIdx)...)
	case *ast.IndexExpr:
		c.compileExpr(target.Array)
		c.compileExpr(target.Index)
		c.compileExpr(a.Value)
		c.mod.Emit(bytecode.OpSetIndex)
	default:
		c.fail(a.Position(), "compiler: invalid assignment target %T", a.Target)
	}
}

func (c *Compiler) compileIf(ifs *ast.IfStmt) {
	c.compileExpr(ifs.Cond)
	elseJump := c.emitJumpPlaceholder(bytecode.OpJumpIfNot)
	c.compileBlock(ifs.Then)

	if ifs.Alt == nil {
		c.patchJumpHere(elseJump)
		return
	}

	endJump := c.emitJumpPlaceholder(bytecode.OpJump)
	c.patchJumpHere(elseJump)
	c.compileStmt(ifs.Alt)
	c.patchJumpHere(endJump)
}

func (c *Compiler) compileWhile(w *ast.WhileStmt) {
	loopStart := uint32(len(c.mod.Code))
	c.compileExpr(w.Cond)
	exitJump := c.emitJumpPlaceholder(bytecode.OpJumpIfNot)
	c.compileBlock(w.Body)
	c.emitJumpTo(bytecode.OpJump, loopStart)
	c.patchJumpHere(exitJump)
}

func (c *Compiler) compileFor(f *ast.ForStmt) {
	if f.Init != nil {
		c.compileVarDecl(f.Init)
	}
	loopStart := uint32(len(c.mod.Code))
	var exitJump int = -1
	if f.Cond != nil {
		c.compileExpr(f.Cond)
		exitJump = c.emitJumpPlaceholder(bytecode.OpJumpIfNot)
	}
	c.compileBlock(f.Body)
	if f.Step != nil {
		c.compileAssign(f.Step)
	}
	c.emitJumpTo(bytecode.OpJump, loopStart)
	if exitJump >= 0 {
		c.patchJumpHere(exitJump)
	}
}

// compileTry installs a TRY/END_TRY handler only when a catch clause is
// present. A finally-only try (parser/parser.go's Catch is optional) must
// not swallow a throw: the original only ever installs a handler when
// lowering a catch block (original_source/compiler/bytecode_compiler.cpp
// ~346-356), so with no catch a throw inside the body propagates past
// this try entirely, to an outer handler or an unhandled-exception halt
// (spec.md §7), and finally still runs via ordinary fall-through.
func (c *Compiler) compileTry(t *ast.TryStmt) {
	if !t.HasCatch {
		c.compileBlock(t.Body)
		if t.Finally != nil {
			c.compileBlock(t.Finally)
		}
		return
	}

	tryPos := c.emitJumpPlaceholder(bytecode.OpTry) // operand patched to catch target
	c.compileBlock(t.Body)
	c.mod.Emit(bytecode.OpEndTry)
	afterTry := c.emitJumpPlaceholder(bytecode.OpJump)

	catchStart := uint32(len(c.mod.Code))
	if c.scope != nil {
		idx := c.scope.declare(t.CatchVar)
		c.mod.Emit(bytecode.OpStoreLocal, idx)
	} else if t.CatchVar != "" {
		gi := c.mod.AddGlobal(t.CatchVar)
		c.mod.Emit(bytecode.OpStoreGlobal, u16bytes(gi)...)
	} else {
		c.mod.Emit(bytecode.OpPop)
	}
	c.compileBlock(t.Catch)
	c.patchJumpHere(afterTry)
	c.patchJumpTo(tryPos, catchStart)

	if t.Finally != nil {
		c.compileBlock(t.Finally)
	}
}

func (c *Compiler) compileReturn(r *ast.ReturnStmt) {
	if r.Value != nil {
		c.compileExpr(r.Value)
	} else {
		c.mod.Emit(bytecode.OpPushNull)
	}
	c.mod.Emit(bytecode.OpReturn)
}

// --- jump patching helpers ---

// emitJumpPlaceholder emits op with a zeroed 4-byte operand and returns the
// byte offset of that operand (for PatchJump).
func (c *Compiler) emitJumpPlaceholder(op bytecode.Op) int {
	at := c.mod.Emit(op, 0, 0, 0, 0)
	return int(at) + 1
}

func (c *Compiler) patchJumpHere(operandPos int) {
	if err := c.mod.PatchJump(uint32(operandPos), uint32(len(c.mod.Code))); err != nil {
		panic(err) // internal compiler invariant: positions always point at a real operand
	}
}

func (c *Compiler) patchJumpTo(operandPos int, target uint32) {
	if err := c.mod.PatchJump(uint32(operandPos), target); err != nil {
		panic(err)
	}
}

// emitJumpTo emits an unconditional (or conditional) jump whose target is
// already known, patching its operand immediately.
func (c *Compiler) emitJumpTo(op bytecode.Op, target uint32) {
	pos := c.emitJumpPlaceholder(op)
	c.patchJumpTo(pos, target)
}

func u16bytes(v uint16) []byte {
	return []byte{byte(v), byte(v >> 8)}
}
