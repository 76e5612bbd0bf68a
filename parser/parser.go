// Package parser implements a recursive-descent parser with one-token
// look-ahead over the dialScript token stream, producing an *ast.Program.
// Errors accumulate rather than abort: a malformed statement is reported
// where the error occurs and parsing continues from the current token
// (an unexpected token in expression position is consumed). synchronize
// runs only after a malformed class member or a panic recovered while
// parsing a statement; an ordinary expect failure does not call it
// (spec.md §4.2).
package parser

import (
	"fmt"

	"github.com/dialos/dialscript/ast"
	"github.com/dialos/dialscript/lexer"
	"github.com/dialos/dialscript/token"
)

// Parser holds parse state over a token stream.
type Parser struct {
	lex  *lexer.Lexer
	cur  token.Token
	next token.Token

	errors []string
}

// New constructs a Parser over src.
func New(src string) *Parser {
	p := &Parser{lex: lexer.New(src)}
	p.cur = p.lex.Next()
	p.next = p.lex.Next()
	return p
}

// Errors returns the accumulated "Line L:C - msg" diagnostics.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) errorf(line, col int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	p.errors = append(p.errors, fmt.Sprintf("Line %d:%d - %s", line, col, msg))
}

func (p *Parser) advance() token.Token {
	t := p.cur
	p.cur = p.next
	p.next = p.lex.Next()
	return t
}

func (p *Parser) check(k token.Kind) bool { return p.cur.Kind == k }

func (p *Parser) accept(k token.Kind) (token.Token, bool) {
	if p.check(k) {
		return p.advance(), true
	}
	return token.Token{}, false
}

func (p *Parser) expect(k token.Kind) token.Token {
	if p.check(k) {
		return p.advance()
	}
	p.errorf(p.cur.Line, p.cur.Column, "expected %v but got %v %q", k, p.cur.Kind, p.cur.Lexeme)
	return p.cur
}

// Parse parses the whole token stream into a Program. Parsing never stops
// on an individual bad statement; the error is recorded and parsing
// continues from the current token.
func Parse(src string) (*ast.Program, []string) {
	p := New(src)
	prog := &ast.Program{}
	for !p.check(token.EOF) {
		stmt := p.parseTopLevelStatement()
		if stmt != nil {
			prog.Stmts = append(prog.Stmts, stmt)
		}
	}
	return prog, p.errors
}

// synchronize advances past the next ';' or to the next statement-starting
// keyword, so that one malformed statement does not cascade into spurious
// errors for the rest of the program.
func (p *Parser) synchronize() {
	for !p.check(token.EOF) {
		if p.cur.Kind == token.Semicolon {
			p.advance()
			return
		}
		switch p.cur.Kind {
		case token.KwVar, token.KwAssign, token.KwIf, token.KwWhile, token.KwFor,
			token.KwFunction, token.KwClass, token.KwTry, token.KwReturn:
			return
		}
		p.advance()
	}
}

func (p *Parser) parseTopLevelStatement() ast.Stmt {
	defer func() {
		if r := recover(); r != nil {
			p.synchronize()
		}
	}()
	return p.parseStatement()
}

func (p *Parser) parseStatement() ast.Stmt {
	switch p.cur.Kind {
	case token.KwVar:
		return p.parseVarDecl()
	case token.KwAssign:
		return p.parseAssign()
	case token.KwFunction:
		return p.parseFuncDecl()
	case token.KwClass:
		return p.parseClassDecl()
	case token.KwIf:
		return p.parseIf()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwFor:
		return p.parseFor()
	case token.KwTry:
		return p.parseTry()
	case token.KwReturn:
		return p.parseReturn()
	case token.LBrace:
		return p.parseBlock()
	default:
		return p.parseExprStatement()
	}
}

func (p *Parser) parseVarDecl() *ast.VarDecl {
	kw := p.advance() // var
	name := p.expect(token.Identifier)
	p.expect(token.Colon)
	value := p.parseExpr()
	p.expect(token.Semicolon)
	return &ast.VarDecl{Pos: posOf(kw), Name: name.Lexeme, Init: value}
}

func (p *Parser) parseAssign() *ast.AssignStmt {
	kw := p.advance() // assign
	target := p.parsePostfix(p.parsePrimary())
	value := p.parseExpr()
	p.expect(token.Semicolon)
	return &ast.AssignStmt{Pos: posOf(kw), Target: target, Value: value}
}

func (p *Parser) parseBlock() *ast.BlockStmt {
	lb := p.expect(token.LBrace)
	block := &ast.BlockStmt{Pos: posOf(lb)}
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.synchronize()
				}
			}()
			if s := p.parseStatement(); s != nil {
				block.Stmts = append(block.Stmts, s)
			}
		}()
	}
	p.expect(token.RBrace)
	return block
}

func (p *Parser) parseIf() *ast.IfStmt {
	kw := p.advance() // if
	p.expect(token.LParen)
	cond := p.parseExpr()
	p.expect(token.RParen)
	then := p.parseBlock()
	stmt := &ast.IfStmt{Pos: posOf(kw), Cond: cond, Then: then}
	if _, ok := p.accept(token.KwElse); ok {
		if p.check(token.KwIf) {
			stmt.Alt = p.parseIf()
		} else {
			stmt.Alt = p.parseBlock()
		}
	}
	return stmt
}

func (p *Parser) parseWhile() *ast.WhileStmt {
	kw := p.advance()
	p.expect(token.LParen)
	cond := p.parseExpr()
	p.expect(token.RParen)
	body := p.parseBlock()
	return &ast.WhileStmt{Pos: posOf(kw), Cond: cond, Body: body}
}

func (p *Parser) parseFor() *ast.ForStmt {
	kw := p.advance()
	p.expect(token.LParen)
	init := p.parseVarDecl()
	cond := p.parseExpr()
	p.expect(token.Semicolon)
	step := p.parseAssignNoSemi()
	p.expect(token.RParen)
	body := p.parseBlock()
	return &ast.ForStmt{Pos: posOf(kw), Init: init, Cond: cond, Step: step, Body: body}
}

// parseAssignNoSemi parses the `for` step clause, which has the same
// prefix-keyword shape as a statement-level assign but is not terminated
// by a semicolon (it is followed directly by the loop's closing paren).
func (p *Parser) parseAssignNoSemi() *ast.AssignStmt {
	kw := p.expect(token.KwAssign)
	target := p.parsePostfix(p.parsePrimary())
	value := p.parseExpr()
	return &ast.AssignStmt{Pos: posOf(kw), Target: target, Value: value}
}

func (p *Parser) parseTry() *ast.TryStmt {
	kw := p.advance()
	body := p.parseBlock()
	stmt := &ast.TryStmt{Pos: posOf(kw), Body: body}
	if _, ok := p.accept(token.KwCatch); ok {
		p.expect(token.LParen)
		errName := p.expect(token.Identifier)
		p.expect(token.RParen)
		stmt.HasCatch = true
		stmt.CatchVar = errName.Lexeme
		stmt.Catch = p.parseBlock()
	}
	if _, ok := p.accept(token.KwFinally); ok {
		stmt.Finally = p.parseBlock()
	}
	return stmt
}

func (p *Parser) parseReturn() *ast.ReturnStmt {
	kw := p.advance()
	stmt := &ast.ReturnStmt{Pos: posOf(kw)}
	if !p.check(token.Semicolon) {
		stmt.Value = p.parseExpr()
	}
	p.expect(token.Semicolon)
	return stmt
}

func (p *Parser) parseExprStatement() *ast.ExprStmt {
	line, col := p.cur.Line, p.cur.Column
	x := p.parseExpr()
	p.expect(token.Semicolon)
	return &ast.ExprStmt{Pos: ast.Pos{Line: line, Column: col}, X: x}
}

func (p *Parser) parseParams() []ast.Param {
	p.expect(token.LParen)
	var params []ast.Param
	for !p.check(token.RParen) && !p.check(token.EOF) {
		name := p.expect(token.Identifier)
		p.expect(token.Colon)
		typ := p.parseType()
		params = append(params, ast.Param{Name: name.Lexeme, Type: typ})
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RParen)
	return params
}

func (p *Parser) parseFuncDecl() *ast.FuncDecl {
	kw := p.advance() // function
	name := p.expect(token.Identifier)
	params := p.parseParams()
	decl := &ast.FuncDecl{Pos: posOf(kw), Name: name.Lexeme, Params: params}
	if _, ok := p.accept(token.Colon); ok {
		decl.ReturnType = p.parseType()
	}
	decl.Body = p.parseBlock()
	return decl
}

// parseClassDecl parses a class body, disambiguating field vs. method by
// one-token look-ahead: a bare identifier is a field iff the next token is
// ':', a method iff it is '(' (spec.md §4.2, Open Question 4 - nothing
// enforces unique field/method names, and this parser likewise does not).
func (p *Parser) parseClassDecl() *ast.ClassDecl {
	kw := p.advance() // class
	name := p.expect(token.Identifier)
	decl := &ast.ClassDecl{Pos: posOf(kw), Name: name.Lexeme}
	p.expect(token.LBrace)
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		if p.check(token.KwConstructor) {
			ckw := p.advance()
			params := p.parseParams()
			body := p.parseBlock()
			decl.Constructor = &ast.Constructor{Pos: posOf(ckw), Params: params, Body: body}
			continue
		}
		memberName := p.expect(token.Identifier)
		if p.check(token.Colon) {
			p.advance()
			typ := p.parseType()
			p.expect(token.Semicolon)
			decl.Fields = append(decl.Fields, ast.Field{Pos: posOf(memberName), Name: memberName.Lexeme, Type: typ})
		} else if p.check(token.LParen) {
			params := p.parseParams()
			method := ast.Method{Pos: posOf(memberName), Name: memberName.Lexeme, Params: params}
			if _, ok := p.accept(token.Colon); ok {
				method.ReturnType = p.parseType()
			}
			method.Body = p.parseBlock()
			decl.Methods = append(decl.Methods, method)
		} else {
			p.errorf(memberName.Line, memberName.Column, "expected ':' or '(' after %q in class body", memberName.Lexeme)
			p.synchronize()
		}
	}
	p.expect(token.RBrace)
	return decl
}

func (p *Parser) parseType() ast.Type {
	t := p.cur
	var base ast.Type
	if token.IsPrimitiveType(t.Kind) {
		p.advance()
		base = &ast.PrimitiveType{Pos: posOf(t), Kind: primitiveKindOf(t.Kind)}
	} else if p.check(token.Identifier) {
		p.advance()
		base = &ast.NamedType{Pos: posOf(t), Name: t.Lexeme}
	} else if p.check(token.LBracket) {
		p.advance()
		p.expect(token.RBracket)
		elem := p.parseType()
		base = &ast.ArrayType{Pos: posOf(t), Elem: elem}
	} else {
		p.errorf(t.Line, t.Column, "expected type but got %v %q", t.Kind, t.Lexeme)
		p.advance()
		base = &ast.PrimitiveType{Pos: posOf(t), Kind: ast.TAny}
	}
	if p.check(token.Question) {
		q := p.advance()
		return &ast.NullableType{Pos: posOf(q), Inner: base}
	}
	return base
}

func primitiveKindOf(k token.Kind) ast.PrimitiveKind {
	switch k {
	case token.KwInt:
		return ast.TInt
	case token.KwUint:
		return ast.TUint
	case token.KwByte:
		return ast.TByte
	case token.KwShort:
		return ast.TShort
	case token.KwFloat:
		return ast.TFloat
	case token.KwBool:
		return ast.TBool
	case token.KwString:
		return ast.TString
	case token.KwVoid:
		return ast.TVoid
	default:
		return ast.TAny
	}
}

func posOf(t token.Token) ast.Pos { return ast.Pos{Line: t.Line, Column: t.Column} }

// ---- Expressions ----
//
// Precedence, lowest to highest (spec.md §4.2):
//   ternary ?: > or > and > equality (= !=) > comparison (< > <= >=) >
//   additive (+ -) > multiplicative (* / %) > unary (- not +) >
//   postfix (call, member, index) > primary
// All binary operators are left-associative except the ternary.

func (p *Parser) parseExpr() ast.Expr { return p.parseTernary() }

func (p *Parser) parseTernary() ast.Expr {
	cond := p.parseLogicalOr()
	if q, ok := p.accept(token.Question); ok {
		then := p.parseExpr()
		p.expect(token.Colon)
		alt := p.parseExpr()
		return &ast.TernaryExpr{Pos: posOf(q), Cond: cond, Then: then, Else: alt}
	}
	return cond
}

func (p *Parser) parseLogicalOr() ast.Expr {
	left := p.parseLogicalAnd()
	for p.check(token.KwOr) {
		op := p.advance()
		right := p.parseLogicalAnd()
		left = &ast.BinaryExpr{Pos: posOf(op), Op: ast.OpOr, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseLogicalAnd() ast.Expr {
	left := p.parseEquality()
	for p.check(token.KwAnd) {
		op := p.advance()
		right := p.parseEquality()
		left = &ast.BinaryExpr{Pos: posOf(op), Op: ast.OpAnd, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseEquality() ast.Expr {
	left := p.parseComparison()
	for p.check(token.Eq) || p.check(token.Ne) {
		op := p.advance()
		right := p.parseComparison()
		kind := ast.OpEq
		if op.Kind == token.Ne {
			kind = ast.OpNe
		}
		left = &ast.BinaryExpr{Pos: posOf(op), Op: kind, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseComparison() ast.Expr {
	left := p.parseAdditive()
	for p.check(token.Lt) || p.check(token.Gt) || p.check(token.Le) || p.check(token.Ge) {
		op := p.advance()
		right := p.parseAdditive()
		var kind ast.BinaryOp
		switch op.Kind {
		case token.Lt:
			kind = ast.OpLt
		case token.Gt:
			kind = ast.OpGt
		case token.Le:
			kind = ast.OpLe
		case token.Ge:
			kind = ast.OpGe
		}
		left = &ast.BinaryExpr{Pos: posOf(op), Op: kind, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.check(token.Plus) || p.check(token.Minus) {
		op := p.advance()
		right := p.parseMultiplicative()
		kind := ast.OpAdd
		if op.Kind == token.Minus {
			kind = ast.OpSub
		}
		left = &ast.BinaryExpr{Pos: posOf(op), Op: kind, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for p.check(token.Star) || p.check(token.Slash) || p.check(token.Percent) {
		op := p.advance()
		right := p.parseUnary()
		var kind ast.BinaryOp
		switch op.Kind {
		case token.Star:
			kind = ast.OpMul
		case token.Slash:
			kind = ast.OpDiv
		case token.Percent:
			kind = ast.OpMod
		}
		left = &ast.BinaryExpr{Pos: posOf(op), Op: kind, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.cur.Kind {
	case token.Minus:
		op := p.advance()
		return &ast.UnaryExpr{Pos: posOf(op), Op: ast.OpNeg, Operand: p.parseUnary()}
	case token.KwNot:
		op := p.advance()
		return &ast.UnaryExpr{Pos: posOf(op), Op: ast.OpNot, Operand: p.parseUnary()}
	case token.Plus:
		op := p.advance()
		return &ast.UnaryExpr{Pos: posOf(op), Op: ast.OpPos, Operand: p.parseUnary()}
	default:
		return p.parsePostfix(p.parsePrimary())
	}
}

func (p *Parser) parsePostfix(expr ast.Expr) ast.Expr {
	for {
		switch p.cur.Kind {
		case token.LParen:
			lp := p.advance()
			args := p.parseArgs()
			expr = &ast.CallExpr{Pos: posOf(lp), Callee: expr, Args: args}
		case token.Dot:
			p.advance()
			name := p.expect(token.Identifier)
			expr = &ast.MemberExpr{Pos: posOf(name), Object: expr, Property: name.Lexeme}
		case token.LBracket:
			lb := p.advance()
			idx := p.parseExpr()
			p.expect(token.RBracket)
			expr = &ast.IndexExpr{Pos: posOf(lb), Array: expr, Index: idx}
		default:
			return expr
		}
	}
}

func (p *Parser) parseArgs() []ast.Expr {
	var args []ast.Expr
	for !p.check(token.RParen) && !p.check(token.EOF) {
		args = append(args, p.parseExpr())
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RParen)
	return args
}

// isConstructorName reports whether name should be parsed as a constructor
// call rather than a plain function call: it starts with an uppercase
// letter (spec.md §4.2).
func isConstructorName(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}

func (p *Parser) parsePrimary() ast.Expr {
	t := p.cur
	switch {
	case t.Kind == token.Number:
		p.advance()
		return &ast.NumberLiteral{Pos: posOf(t), Value: t.Lexeme, IsFloat: t.IsFloat, IsHex: t.IsHex}
	case t.Kind == token.String:
		p.advance()
		return &ast.StringLiteral{Pos: posOf(t), Value: t.Lexeme}
	case t.Kind == token.KwTrue:
		p.advance()
		return &ast.BoolLiteral{Pos: posOf(t), Value: true}
	case t.Kind == token.KwFalse:
		p.advance()
		return &ast.BoolLiteral{Pos: posOf(t), Value: false}
	case t.Kind == token.KwNull:
		p.advance()
		return &ast.NullLiteral{Pos: posOf(t)}
	case t.Kind == token.Backtick:
		return p.parseTemplateLiteral()
	case t.Kind == token.LParen:
		p.advance()
		inner := p.parseExpr()
		p.expect(token.RParen)
		return &ast.ParenExpr{Pos: posOf(t), Inner: inner}
	case t.Kind == token.LBracket:
		p.advance()
		var elems []ast.Expr
		for !p.check(token.RBracket) && !p.check(token.EOF) {
			elems = append(elems, p.parseExpr())
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RBracket)
		return &ast.ArrayLiteral{Pos: posOf(t), Elements: elems}
	case token.IsPrimitiveType(t.Kind):
		p.advance()
		if p.check(token.LParen) {
			p.advance()
			args := p.parseArgs()
			return &ast.ConstructorCall{Pos: posOf(t), TypeName: t.Lexeme, Args: args}
		}
		p.errorf(t.Line, t.Column, "unexpected type keyword %q in expression", t.Lexeme)
		return &ast.NullLiteral{Pos: posOf(t)}
	case t.Kind == token.Identifier:
		p.advance()
		if p.check(token.LParen) && isConstructorName(t.Lexeme) {
			p.advance()
			args := p.parseArgs()
			return &ast.ConstructorCall{Pos: posOf(t), TypeName: t.Lexeme, Args: args}
		}
		return &ast.Identifier{Pos: posOf(t), Name: t.Lexeme}
	default:
		p.errorf(t.Line, t.Column, "unexpected token %v %q in expression", t.Kind, t.Lexeme)
		p.advance()
		return &ast.NullLiteral{Pos: posOf(t)}
	}
}

func (p *Parser) parseTemplateLiteral() ast.Expr {
	bt := p.expect(token.Backtick)
	lit := &ast.TemplateLiteral{Pos: posOf(bt)}
	for {
		switch p.cur.Kind {
		case token.TemplateText:
			t := p.advance()
			lit.Parts = append(lit.Parts, ast.TemplatePart{IsText: true, Text: t.Lexeme})
		case token.TemplateExprStart:
			p.advance()
			expr := p.parseExpr()
			p.expect(token.RBrace)
			lit.Parts = append(lit.Parts, ast.TemplatePart{Expr: expr})
		case token.Backtick:
			p.advance()
			return lit
		default:
			p.errorf(p.cur.Line, p.cur.Column, "unexpected token %v in template literal", p.cur.Kind)
			p.advance()
			return lit
		}
	}
}
