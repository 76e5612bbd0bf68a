package compiler

import (
	"strconv"

	"github.com/dialos/dialscript/ast"
	"github.com/dialos/dialscript/bytecode"
)

func (c *Compiler) compileExpr(e ast.Expr) {
	switch x := e.(type) {
	case *ast.NumberLiteral:
		c.compileNumber(x)
	case *ast.StringLiteral:
		idx := c.mod.AddConstant(x.Value)
		c.mod.Emit(bytecode.OpPushStr, u16bytes(idx)...)
	case *ast.BoolLiteral:
		if x.Value {
			c.mod.Emit(bytecode.OpPushTrue)
		} else {
			c.mod.Emit(bytecode.OpPushFalse)
		}
	case *ast.NullLiteral:
		c.mod.Emit(bytecode.OpPushNull)
	case *ast.Identifier:
		c.compileIdentifierLoad(x.Name)
	case *ast.BinaryExpr:
		c.compileBinary(x)
	case *ast.UnaryExpr:
		c.compileUnary(x)
	case *ast.TernaryExpr:
		c.compileTernary(x)
	case *ast.CallExpr:
		c.compileCall(x)
	case *ast.MemberExpr:
		c.compileExpr(x.Object)
		idx := c.mod.AddConstant(x.Property)
		c.mod.Emit(bytecode.OpGetField, u16bytes(idx)...)
	case *ast.IndexExpr:
		c.compileExpr(x.Array)
		c.compileExpr(x.Index)
		c.mod.Emit(bytecode.OpGetIndex)
	case *ast.ArrayLiteral:
		c.compileArrayLiteral(x)
	case *ast.ConstructorCall:
		c.compileConstructorCall(x)
	case *ast.TemplateLiteral:
		c.compileTemplateLiteral(x)
	case *ast.ParenExpr:
		c.compileExpr(x.Inner)
	default:
		c.fail(e.Position(), "compiler: unsupported expression %T", e)
	}
}

func (c *Compiler) compileIdentifierLoad(name string) {
	if c.scope != nil {
		if idx, ok := c.scope.lookup(name); ok {
			c.mod.Emit(bytecode.OpLoadLocal, idx)
			return
		}
		if fieldIdx, ok := c.fieldIndex(name); ok {
			c.mod.Emit(bytecode.OpLoadLocal, 0)
			c.mod.Emit(bytecode.OpGetField, u16bytes(fieldIdx)...)
			return
		}
	}
	// A bare reference to a declared function's name, used uncalled (e.g.
	// passed to os.timer.setInterval), loads a first-class function value
	// rather than a global variable (spec.md §6 setInterval takes a
	// function-reference value).
	if idx := c.mod.FindFunction(name); idx != 0 {
		c.mod.Emit(bytecode.OpLoadFunction, u16bytes(idx)...)
		return
	}
	gi := c.mod.AddGlobal(name)
	c.mod.Emit(bytecode.OpLoadGlobal, u16bytes(gi)...)
}

// compileNumber emits the smallest literal opcode that exactly represents
// the parsed token (spec.md §8 property: number encoding picks the
// narrowest width). Hex literals are always emitted as a 32-bit integer,
// matching the original implementation's treatment of hex constants.
func (c *Compiler) compileNumber(n *ast.NumberLiteral) {
	if n.IsFloat {
		f, err := strconv.ParseFloat(n.Value, 32)
		if err != nil {
			c.fail(n.Position(), "compiler: invalid float literal %q", n.Value)
			return
		}
		c.mod.Emit(bytecode.OpPushF32, f32Bytes(float32(f))...)
		return
	}

	if n.IsHex {
		v, err := strconv.ParseUint(n.Value[2:], 16, 32)
		if err != nil {
			c.fail(n.Position(), "compiler: invalid hex literal %q", n.Value)
			return
		}
		c.mod.Emit(bytecode.OpPushI32, putU32(nil, uint32(v))...)
		return
	}

	v, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		c.fail(n.Position(), "compiler: invalid number literal %q", n.Value)
		return
	}
	switch {
	case v >= -128 && v <= 127:
		c.mod.Emit(bytecode.OpPushI8, byte(int8(v)))
	case v >= -32768 && v <= 32767:
		b := u16bytes(uint16(int16(v)))
		c.mod.Emit(bytecode.OpPushI16, b...)
	default:
		c.mod.Emit(bytecode.OpPushI32, putU32(nil, uint32(int32(v)))...)
	}
}

var binaryOps = map[ast.BinaryOp]bytecode.Op{
	ast.OpAdd: bytecode.OpAdd,
	ast.OpSub: bytecode.OpSub,
	ast.OpMul: bytecode.OpMul,
	ast.OpDiv: bytecode.OpDiv,
	ast.OpMod: bytecode.OpMod,
	ast.OpEq:  bytecode.OpEq,
	ast.OpNe:  bytecode.OpNe,
	ast.OpLt:  bytecode.OpLt,
	ast.OpGt:  bytecode.OpGt,
	ast.OpLe:  bytecode.OpLe,
	ast.OpGe:  bytecode.OpGe,
	ast.OpAnd: bytecode.OpAnd,
	ast.OpOr:  bytecode.OpOr,
}

func (c *Compiler) compileBinary(b *ast.BinaryExpr) {
	c.compileExpr(b.Left)
	c.compileExpr(b.Right)
	op, ok := binaryOps[b.Op]
	if !ok {
		c.fail(b.Position(), "compiler: unknown binary operator")
		return
	}
	c.mod.Emit(op)
}

func (c *Compiler) compileUnary(u *ast.UnaryExpr) {
	c.compileExpr(u.Operand)
	switch u.Op {
	case ast.OpNeg:
		c.mod.Emit(bytecode.OpNeg)
	case ast.OpNot:
		c.mod.Emit(bytecode.OpNot)
	case ast.OpPos:
		// unary + is a no-op (spec.md §4.3).
	}
}

func (c *Compiler) compileTernary(t *ast.TernaryExpr) {
	c.compileExpr(t.Cond)
	elseJump := c.emitJumpPlaceholder(bytecode.OpJumpIfNot)
	c.compileExpr(t.Then)
	endJump := c.emitJumpPlaceholder(bytecode.OpJump)
	c.patchJumpHere(elseJump)
	c.compileExpr(t.Else)
	c.patchJumpHere(endJump)
}

// compileCall lowers a call expression. A bare identifier naming a
// compile-time known function compiles to a direct CALL; a member-expr
// callee (obj.method(...)) pushes the receiver and resolves via
// CALL_METHOD, which the VM dispatches either to the receiver's class
// (ClassName::method, resolving spec.md §9 Open Question 1 by qualifying
// at runtime off the receiver's actual class rather than an unqualified
// global name) or, when the receiver is a platform capability value, to
// CALL_NATIVE's native-call surface (spec.md §6/§9 design note on the
// `os` root object). Anything else is an indirect call through a
// first-class function value.
func (c *Compiler) compileCall(call *ast.CallExpr) {
	switch callee := call.Callee.(type) {
	case *ast.Identifier:
		if callee.Name == "print" && !c.shadowsFunction(callee.Name) && c.mod.FindFunction(callee.Name) == 0 {
			c.compilePrintCall(call)
			return
		}
		if idx := c.mod.FindFunction(callee.Name); idx != 0 && !c.shadowsFunction(callee.Name) {
			for _, a := range call.Args {
				c.compileExpr(a)
			}
			c.mod.Emit(bytecode.OpCall, append(u16bytes(idx), byte(len(call.Args)))...)
			return
		}
		for _, a := range call.Args {
			c.compileExpr(a)
		}
		c.compileIdentifierLoad(callee.Name)
		c.mod.Emit(bytecode.OpCallIndirect, byte(len(call.Args)))
	case *ast.MemberExpr:
		c.compileExpr(callee.Object)
		for _, a := range call.Args {
			c.compileExpr(a)
		}
		nameIdx := c.mod.AddConstant(callee.Property)
		c.mod.Emit(bytecode.OpCallMethod, append([]byte{byte(len(call.Args))}, u16bytes(nameIdx)...)...)
	default:
		for _, a := range call.Args {
			c.compileExpr(a)
		}
		c.compileExpr(call.Callee)
		c.mod.Emit(bytecode.OpCallIndirect, byte(len(call.Args)))
	}
}

// compilePrintCall lowers the builtin `print(...)` to one PRINT opcode per
// argument (PRINT pops and consumes exactly one value). print is not a
// user-declared function, so it never occupies a function-table slot;
// since every call expression must leave exactly one value for its
// enclosing ExprStmt's trailing POP, the call itself evaluates to null.
func (c *Compiler) compilePrintCall(call *ast.CallExpr) {
	if len(call.Args) == 0 {
		empty := c.mod.AddConstant("")
		c.mod.Emit(bytecode.OpPushStr, u16bytes(empty)...)
		c.mod.Emit(bytecode.OpPrint)
	}
	for _, a := range call.Args {
		c.compileExpr(a)
		c.mod.Emit(bytecode.OpPrint)
	}
	c.mod.Emit(bytecode.OpPushNull)
}

func (c *Compiler) shadowsFunction(name string) bool {
	return c.scope != nil && func() bool { _, ok := c.scope.lookup(name); return ok }()
}

func (c *Compiler) compileArrayLiteral(arr *ast.ArrayLiteral) {
	c.compileNumberLiteralOrPush(len(arr.Elements))
	c.mod.Emit(bytecode.OpNewArray)
	for i, el := range arr.Elements {
		c.mod.Emit(bytecode.OpDup)
		c.compileNumberLiteralOrPush(i)
		c.compileExpr(el)
		c.mod.Emit(bytecode.OpSetIndex)
	}
}

func (c *Compiler) compileNumberLiteralOrPush(n int) {
	switch {
	case n >= 0 && n <= 127:
		c.mod.Emit(bytecode.OpPushI8, byte(n))
	case n <= 32767:
		c.mod.Emit(bytecode.OpPushI16, u16bytes(uint16(n))...)
	default:
		c.mod.Emit(bytecode.OpPushI32, putU32(nil, uint32(n))...)
	}
}

// compileConstructorCall lowers `TypeName(args...)`. When TypeName names a
// declared class with a constructor, this emits NEW_OBJECT followed by an
// explicit CALL to "TypeName::constructor", resolving the original
// implementation's unfinished constructor-invocation mechanism (spec.md
// §9 Open Question 2): the object is duplicated so one copy becomes the
// constructor's bound `this` (local 0) and the other remains as the
// expression's value once the constructor's own return value is
// discarded.
func (c *Compiler) compileConstructorCall(cc *ast.ConstructorCall) {
	classIdx := c.mod.AddConstant(cc.TypeName)
	c.mod.Emit(bytecode.OpNewObject, u16bytes(classIdx)...)

	ctorIdx := c.mod.FindFunction(cc.TypeName + "::constructor")
	if ctorIdx == 0 {
		return
	}
	c.mod.Emit(bytecode.OpDup)
	for _, a := range cc.Args {
		c.compileExpr(a)
	}
	argc := len(cc.Args) + 1
	c.mod.Emit(bytecode.OpCall, append(u16bytes(ctorIdx), byte(argc))...)
	c.mod.Emit(bytecode.OpPop)
}

// compileTemplateLiteral lowers a template literal into a left fold of
// STR_CONCAT over its parts, starting from the empty string; STR_CONCAT
// stringifies non-string operands at runtime, so the compiler does not
// need to know each hole's static type (spec.md §4.1).
func (c *Compiler) compileTemplateLiteral(t *ast.TemplateLiteral) {
	empty := c.mod.AddConstant("")
	c.mod.Emit(bytecode.OpPushStr, u16bytes(empty)...)
	for _, part := range t.Parts {
		if part.IsText {
			idx := c.mod.AddConstant(part.Text)
			c.mod.Emit(bytecode.OpPushStr, u16bytes(idx)...)
		} else {
			c.compileExpr(part.Expr)
		}
		c.mod.Emit(bytecode.OpStrConcat)
	}
}
