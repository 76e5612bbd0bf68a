// Package compiler lowers a parsed dialScript ast.Program into a
// bytecode.Module: a two-pass compile (functions, then classes, then the
// top-level main body) followed by HALT and jump-label patching (spec.md
// §4).
package compiler

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dialos/dialscript/ast"
	"github.com/dialos/dialscript/bytecode"
)

// Compiler lowers one ast.Program into one bytecode.Module.
type Compiler struct {
	mod   *bytecode.Module
	debug bool

	scope        *localScope  // nil at top level (main)
	currentClass *ast.ClassDecl // non-nil while compiling a method/constructor body

	errors []error
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithDebugInfo enables per-statement source-line tracking in the
// resulting module (spec.md §4.4 debug section).
func WithDebugInfo() Option {
	return func(c *Compiler) { c.debug = true }
}

// Compile lowers prog into a fresh bytecode.Module, returning any
// compile-time errors accumulated along the way (type/reference errors
// are caught at runtime, not here — this compiler only rejects invalid
// assignment targets, malformed number literals, and statement,
// expression or operator node types it does not handle).
func Compile(prog *ast.Program, opts ...Option) (*bytecode.Module, []error) {
	c := &Compiler{mod: bytecode.New()}
	for _, opt := range opts {
		opt(c)
	}
	if c.debug {
		c.mod.DebugLines = []uint32{}
	}

	c.compileProgram(prog)
	before := len(c.mod.Code)
	c.mod.Emit(bytecode.OpHalt)
	c.emitDebugGap(before, 0)
	c.mod.UpdateIntegrity()
	return c.mod, c.errors
}

// emitDebugGap records line 0 ("unknown", matching the original's own
// gap-filling: original_source/include/vm/bytecode.h emit()) for every
// code byte written since before, keeping DebugLines exactly as long as
// Code (bytecode.Module's documented 1:1 invariant) even for bytes, like
// the trailing HALT or a synthesized RETURN, that don't belong to any
// single source statement.
func (c *Compiler) emitDebugGap(before int, line uint32) {
	if !c.debug {
		return
	}
	c.mod.EmitDebugLine(line, len(c.mod.Code)-before)
}

func (c *Compiler) fail(pos ast.Pos, format string, args ...interface{}) {
	c.errors = append(c.errors, fmt.Errorf("line %d:%d - %s", pos.Line, pos.Column, fmt.Sprintf(format, args...)))
}

// localScope maps a function or method body's parameter/var-declared
// names to small local-slot indices (spec.md §3: locals are addressed by
// a single byte, unlike globals).
type localScope struct {
	names map[string]uint8
	next  uint8
}

func newLocalScope(withThis bool) *localScope {
	s := &localScope{names: map[string]uint8{}}
	if withThis {
		s.names["this"] = 0
		s.next = 1
	}
	return s
}

func (s *localScope) declare(name string) uint8 {
	idx := s.next
	s.names[name] = idx
	s.next++
	return idx
}

func (s *localScope) lookup(name string) (uint8, bool) {
	idx, ok := s.names[name]
	return idx, ok
}

// compileProgram runs the compiler's three passes: function declarations,
// class declarations (constructor then methods), then every remaining
// top-level statement as the main entry point.
func (c *Compiler) compileProgram(prog *ast.Program) {
	var funcs []*ast.FuncDecl
	var classes []*ast.ClassDecl
	for _, stmt := range prog.Stmts {
		switch s := stmt.(type) {
		case *ast.FuncDecl:
			funcs = append(funcs, s)
		case *ast.ClassDecl:
			classes = append(classes, s)
		}
	}

	for _, fn := range funcs {
		c.compileFunction(fn)
	}
	for _, cls := range classes {
		c.compileClass(cls)
	}

	c.mod.MainEntryPoint = uint32(len(c.mod.Code))
	for _, stmt := range prog.Stmts {
		switch stmt.(type) {
		case *ast.FuncDecl, *ast.ClassDecl:
			continue
		default:
			c.compileStmt(stmt)
		}
	}
}

func (c *Compiler) compileFunction(fn *ast.FuncDecl) {
	idx := c.mod.FindFunction(fn.Name)
	if idx == 0 {
		idx = c.mod.AddFunction(bytecode.Function{Name: fn.Name, ParamCount: uint8(len(fn.Params))})
	}
	entry := uint32(len(c.mod.Code))
	c.mod.Functions[idx].EntryPC = entry
	c.mod.Functions[idx].ParamCount = uint8(len(fn.Params))

	c.scope = newLocalScope(false)
	for _, p := range fn.Params {
		c.scope.declare(p.Name)
	}
	c.compileBlock(fn.Body)
	c.ensureReturn()
	c.scope = nil
}

func (c *Compiler) compileClass(cls *ast.ClassDecl) {
	c.currentClass = cls

	if cls.Constructor != nil {
		name := cls.Name + "::constructor"
		idx := c.mod.AddFunction(bytecode.Function{Name: name, ParamCount: uint8(len(cls.Constructor.Params)) + 1})
		entry := uint32(len(c.mod.Code))
		c.mod.Functions[idx].EntryPC = entry

		c.scope = newLocalScope(true)
		for _, p := range cls.Constructor.Params {
			c.scope.declare(p.Name)
		}
		c.compileBlock(cls.Constructor.Body)
		c.ensureReturn()
		c.scope = nil
	}

	for _, m := range cls.Methods {
		name := cls.Name + "::" + m.Name
		idx := c.mod.AddFunction(bytecode.Function{Name: name, ParamCount: uint8(len(m.Params)) + 1})
		entry := uint32(len(c.mod.Code))
		c.mod.Functions[idx].EntryPC = entry

		c.scope = newLocalScope(true)
		for _, p := range m.Params {
			c.scope.declare(p.Name)
		}
		c.compileBlock(m.Body)
		c.ensureReturn()
		c.scope = nil
	}

	c.currentClass = nil
}

// ensureReturn emits a bare RETURN if the body fell off the end without
// one, so every function/method/constructor entry unconditionally
// returns.
func (c *Compiler) ensureReturn() {
	n := len(c.mod.Code)
	if n == 0 || bytecode.Op(c.mod.Code[n-1]) != bytecode.OpReturn {
		before := n
		c.mod.Emit(bytecode.OpPushNull)
		c.mod.Emit(bytecode.OpReturn)
		c.emitDebugGap(before, 0)
	}
}

func (c *Compiler) fieldIndex(name string) (uint16, bool) {
	if c.currentClass == nil {
		return 0, false
	}
	for _, f := range c.currentClass.Fields {
		if f.Name == name {
			return c.mod.AddConstant(name), true
		}
	}
	return 0, false
}

func putU16(buf []byte, v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return append(buf, b...)
}

func putU32(buf []byte, v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return append(buf, b...)
}

func f32Bytes(f float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
	return b
}
