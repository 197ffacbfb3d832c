// Package parser implements a recursive descent parser for rv32cc's source
// language, producing a pkg/ast tree ready for name resolution.
package parser

import (
	"fmt"

	"github.com/minic32/rv32cc/pkg/ast"
	"github.com/minic32/rv32cc/pkg/lexer"
	"github.com/minic32/rv32cc/pkg/token"
)

// Precedence levels for expression parsing (lowest to highest). The
// language has no comma or compound-assignment operators, so those
// teacher levels are simply absent here.
const (
	precLowest = iota
	precAssign
	precTernary
	precOr
	precAnd
	precEquality
	precRelational
	precAdditive
	precMulti
	precUnary
	precPostfix
)

var precedences = map[token.Type]int{
	token.Assign:   precAssign,
	token.Question: precTernary,
	token.OrOr:     precOr,
	token.AndAnd:   precAnd,
	token.Eq:       precEquality,
	token.Ne:       precEquality,
	token.Lt:       precRelational,
	token.Le:       precRelational,
	token.Gt:       precRelational,
	token.Ge:       precRelational,
	token.Plus:     precAdditive,
	token.Minus:    precAdditive,
	token.Star:     precMulti,
	token.Slash:    precMulti,
	token.Percent:  precMulti,
	token.LBracket: precPostfix,
	token.LParen:   precPostfix,
}

var binaryOps = map[token.Type]ast.BinaryOp{
	token.Plus:    ast.Add,
	token.Minus:   ast.Sub,
	token.Star:    ast.Mul,
	token.Slash:   ast.Div,
	token.Percent: ast.Mod,
	token.Lt:      ast.Lt,
	token.Le:      ast.Le,
	token.Gt:      ast.Gt,
	token.Ge:      ast.Ge,
	token.Eq:      ast.Eq,
	token.Ne:      ast.Ne,
	token.AndAnd:  ast.LogicAnd,
	token.OrOr:    ast.LogicOr,
}

// Parser parses source text into an *ast.Program.
type Parser struct {
	l *lexer.Lexer

	curToken  token.Token
	peekToken token.Token

	errors []string
}

// New creates a Parser reading from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.nextToken()
	p.nextToken()
	return p
}

// Errors returns the parse errors accumulated so far.
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) addError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	p.errors = append(p.errors, fmt.Sprintf("%d:%d: %s", p.curToken.Line, p.curToken.Column, msg))
}

func (p *Parser) curIs(t token.Type) bool  { return p.curToken.Type == t }
func (p *Parser) peekIs(t token.Type) bool { return p.peekToken.Type == t }

func (p *Parser) expect(t token.Type) bool {
	if p.curIs(t) {
		p.nextToken()
		return true
	}
	p.addError("expected %s, got %s %q", t, p.curToken.Type, p.curToken.Literal)
	return false
}

// syncToStmtEnd discards tokens until a statement boundary, for panic-mode
// recovery after a malformed statement.
func (p *Parser) syncToStmtEnd() {
	for !p.curIs(token.EOF) && !p.curIs(token.RBrace) {
		if p.curIs(token.Semicolon) {
			p.nextToken()
			return
		}
		p.nextToken()
	}
}

// ParseProgram parses a whole translation unit.
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.curIs(token.EOF) {
		if !p.curIs(token.KwInt) && !p.curIs(token.KwVoid) {
			p.addError("expected declaration, got %s %q", p.curToken.Type, p.curToken.Literal)
			p.nextToken()
			continue
		}
		retVoid := p.curIs(token.KwVoid)
		p.nextToken() // consume int/void

		if !p.curIs(token.IDENT) {
			p.addError("expected identifier, got %s %q", p.curToken.Type, p.curToken.Literal)
			p.nextToken()
			continue
		}
		name := p.curToken.Literal
		line := p.curToken.Line
		p.nextToken()

		if p.curIs(token.LParen) {
			fn := p.parseFuncRest(name, !retVoid, line)
			if fn != nil {
				prog.Functions = append(prog.Functions, fn)
			}
			continue
		}
		if retVoid {
			p.addError("void is not a valid variable type")
		}
		decl := p.parseVarDeclRest(name, line)
		if decl != nil {
			prog.Declarations = append(prog.Declarations, decl)
		}
	}
	return prog
}

// parseFuncRest parses a function's parameter list and, if present, body.
// curToken is the '(' on entry.
func (p *Parser) parseFuncRest(name string, returnsValue bool, line int) *ast.FuncDecl {
	fn := &ast.FuncDecl{Name: name, ReturnsValue: returnsValue, Line: line}
	if !p.expect(token.LParen) {
		return fn
	}
	if !p.curIs(token.RParen) {
		for {
			param := p.parseParam()
			if param != nil {
				fn.Params = append(fn.Params, param)
			}
			if !p.curIs(token.Comma) {
				break
			}
			p.nextToken()
		}
	}
	if !p.expect(token.RParen) {
		p.syncToStmtEnd()
		return fn
	}
	if p.curIs(token.Semicolon) {
		p.nextToken()
		return fn
	}
	fn.Body = p.parseBlock()
	return fn
}

func (p *Parser) parseParam() *ast.Param {
	line := p.curToken.Line
	if !p.expect(token.KwInt) {
		return nil
	}
	if !p.curIs(token.IDENT) {
		p.addError("expected parameter name, got %s %q", p.curToken.Type, p.curToken.Literal)
		return nil
	}
	name := p.curToken.Literal
	p.nextToken()

	var dims []int
	for p.curIs(token.LBracket) {
		p.nextToken()
		if p.curIs(token.RBracket) {
			dims = append(dims, -1)
		} else if p.curIs(token.INT) {
			dims = append(dims, parseIntLiteral(p.curToken.Literal))
			p.nextToken()
		} else {
			p.addError("expected array bound or ']'")
		}
		p.expect(token.RBracket)
	}
	return &ast.Param{Name: name, Dims: dims, Line: line}
}

// parseVarDeclRest parses the remainder of a scalar/array declaration (the
// "int NAME" prefix is already consumed). Handles both global and local
// declarations, which share the same grammar.
func (p *Parser) parseVarDeclRest(name string, line int) *ast.VarDecl {
	decl := &ast.VarDecl{Name: name, Line: line}
	for p.curIs(token.LBracket) {
		p.nextToken()
		if !p.curIs(token.INT) {
			p.addError("expected array bound, got %s %q", p.curToken.Type, p.curToken.Literal)
		} else {
			decl.Dims = append(decl.Dims, parseIntLiteral(p.curToken.Literal))
			p.nextToken()
		}
		p.expect(token.RBracket)
	}
	if p.curIs(token.Assign) {
		p.nextToken()
		if p.curIs(token.LBrace) {
			decl.InitList = p.parseInitList()
		} else {
			decl.Init = p.parseExpr(precAssign)
		}
	}
	p.expect(token.Semicolon)
	return decl
}

func (p *Parser) parseInitList() []ast.Expr {
	p.expect(token.LBrace)
	var list []ast.Expr
	if !p.curIs(token.RBrace) {
		for {
			list = append(list, p.parseExpr(precAssign))
			if !p.curIs(token.Comma) {
				break
			}
			p.nextToken()
		}
	}
	p.expect(token.RBrace)
	return list
}

// --- Statements ---

func (p *Parser) parseBlock() *ast.Block {
	block := &ast.Block{}
	p.expect(token.LBrace)
	for !p.curIs(token.RBrace) && !p.curIs(token.EOF) {
		block.Stmts = append(block.Stmts, p.parseStmt())
	}
	p.expect(token.RBrace)
	return block
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.curToken.Type {
	case token.KwInt:
		line := p.curToken.Line
		p.nextToken()
		if !p.curIs(token.IDENT) {
			p.addError("expected identifier, got %s %q", p.curToken.Type, p.curToken.Literal)
			p.syncToStmtEnd()
			return &ast.EmptyStmt{Line: line}
		}
		name := p.curToken.Literal
		p.nextToken()
		return p.parseVarDeclRest(name, line)
	case token.LBrace:
		return p.parseBlock()
	case token.KwIf:
		return p.parseIfStmt()
	case token.KwWhile:
		return p.parseWhileStmt()
	case token.KwDo:
		return p.parseDoWhileStmt()
	case token.KwFor:
		return p.parseForStmt()
	case token.KwBreak:
		line := p.curToken.Line
		p.nextToken()
		p.expect(token.Semicolon)
		return &ast.BreakStmt{Line: line}
	case token.KwContinue:
		line := p.curToken.Line
		p.nextToken()
		p.expect(token.Semicolon)
		return &ast.ContinueStmt{Line: line}
	case token.KwReturn:
		line := p.curToken.Line
		p.nextToken()
		var expr ast.Expr
		if !p.curIs(token.Semicolon) {
			expr = p.parseExpr(precLowest)
		}
		p.expect(token.Semicolon)
		return &ast.ReturnStmt{Expr: expr, Line: line}
	case token.Semicolon:
		line := p.curToken.Line
		p.nextToken()
		return &ast.EmptyStmt{Line: line}
	default:
		line := p.curToken.Line
		expr := p.parseExpr(precLowest)
		p.expect(token.Semicolon)
		return &ast.ExprStmt{X: expr, Line: line}
	}
}

func (p *Parser) parseIfStmt() ast.Stmt {
	line := p.curToken.Line
	p.nextToken()
	p.expect(token.LParen)
	cond := p.parseExpr(precLowest)
	p.expect(token.RParen)
	then := p.parseStmt()
	stmt := &ast.IfStmt{Cond: cond, Then: then, Line: line}
	if p.curIs(token.KwElse) {
		p.nextToken()
		stmt.Else = p.parseStmt()
	}
	return stmt
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	line := p.curToken.Line
	p.nextToken()
	p.expect(token.LParen)
	cond := p.parseExpr(precLowest)
	p.expect(token.RParen)
	body := p.parseStmt()
	return &ast.WhileStmt{Cond: cond, Body: body, Line: line}
}

func (p *Parser) parseDoWhileStmt() ast.Stmt {
	line := p.curToken.Line
	p.nextToken()
	body := p.parseStmt()
	p.expect(token.KwWhile)
	p.expect(token.LParen)
	cond := p.parseExpr(precLowest)
	p.expect(token.RParen)
	p.expect(token.Semicolon)
	return &ast.DoWhileStmt{Body: body, Cond: cond, Line: line}
}

func (p *Parser) parseForStmt() ast.Stmt {
	line := p.curToken.Line
	p.nextToken()
	p.expect(token.LParen)

	var init ast.Stmt
	if !p.curIs(token.Semicolon) {
		if p.curIs(token.KwInt) {
			declLine := p.curToken.Line
			p.nextToken()
			name := p.curToken.Literal
			p.expect(token.IDENT)
			init = p.parseForInitDecl(name, declLine)
		} else {
			exprLine := p.curToken.Line
			expr := p.parseExpr(precLowest)
			init = &ast.ExprStmt{X: expr, Line: exprLine}
			p.expect(token.Semicolon)
		}
	} else {
		p.nextToken()
	}

	var cond ast.Expr
	if !p.curIs(token.Semicolon) {
		cond = p.parseExpr(precLowest)
	}
	p.expect(token.Semicolon)

	var update ast.Stmt
	if !p.curIs(token.RParen) {
		exprLine := p.curToken.Line
		update = &ast.ExprStmt{X: p.parseExpr(precLowest), Line: exprLine}
	}
	p.expect(token.RParen)

	body := p.parseStmt()
	return &ast.ForStmt{Init: init, Cond: cond, Update: update, Body: body, Line: line}
}

// parseForInitDecl parses "NAME ... ;" for a for-loop's init declaration,
// without consuming the leading "int" (already consumed by the caller).
func (p *Parser) parseForInitDecl(name string, line int) ast.Stmt {
	return p.parseVarDeclRest(name, line)
}

// --- Expressions (precedence climbing) ---

func (p *Parser) parseExpr(minPrec int) ast.Expr {
	left := p.parseUnary()
	for {
		prec, ok := precedences[p.curToken.Type]
		if !ok || prec < minPrec {
			return left
		}
		switch p.curToken.Type {
		case token.Assign:
			p.nextToken()
			right := p.parseExpr(precAssign)
			left = &ast.AssignExpr{Lhs: left, Rhs: right, Line: p.curToken.Line}
		case token.Question:
			line := p.curToken.Line
			p.nextToken()
			then := p.parseExpr(precAssign)
			p.expect(token.Colon)
			els := p.parseExpr(precTernary)
			left = &ast.CondExpr{Cond: left, Then: then, Else: els, Line: line}
		case token.LBracket:
			p.nextToken()
			index := p.parseExpr(precLowest)
			p.expect(token.RBracket)
			left = &ast.IndexExpr{Base: left, Index: index, Line: p.curToken.Line}
		default:
			op, ok := binaryOps[p.curToken.Type]
			if !ok {
				return left
			}
			line := p.curToken.Line
			p.nextToken()
			right := p.parseExpr(prec + 1)
			left = &ast.BinaryExpr{Op: op, Lhs: left, Rhs: right, Line: line}
		}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.curToken.Type {
	case token.Minus:
		line := p.curToken.Line
		p.nextToken()
		return &ast.UnaryExpr{Op: ast.Neg, Operand: p.parseUnary(), Line: line}
	case token.Not:
		line := p.curToken.Line
		p.nextToken()
		return &ast.UnaryExpr{Op: ast.LogicNot, Operand: p.parseUnary(), Line: line}
	case token.Tilde:
		line := p.curToken.Line
		p.nextToken()
		return &ast.UnaryExpr{Op: ast.BitNot, Operand: p.parseUnary(), Line: line}
	case token.Plus:
		p.nextToken()
		return p.parseUnary()
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.curToken.Type {
	case token.INT:
		lit := &ast.IntLit{Value: parseIntLiteral(p.curToken.Literal), Line: p.curToken.Line}
		p.nextToken()
		return lit
	case token.IDENT:
		name := p.curToken.Literal
		line := p.curToken.Line
		p.nextToken()
		if p.curIs(token.LParen) {
			return p.parseCallRest(name, line)
		}
		return &ast.Ident{Name: name, Line: line}
	case token.LParen:
		p.nextToken()
		expr := p.parseExpr(precLowest)
		p.expect(token.RParen)
		return expr
	default:
		p.addError("unexpected token %s %q in expression", p.curToken.Type, p.curToken.Literal)
		tok := p.curToken
		p.nextToken()
		return &ast.IntLit{Value: 0, Line: tok.Line}
	}
}

func (p *Parser) parseCallRest(name string, line int) ast.Expr {
	p.expect(token.LParen)
	call := &ast.CallExpr{Name: name, Line: line}
	if !p.curIs(token.RParen) {
		for {
			call.Args = append(call.Args, p.parseExpr(precAssign))
			if !p.curIs(token.Comma) {
				break
			}
			p.nextToken()
		}
	}
	p.expect(token.RParen)
	return call
}

func parseIntLiteral(lit string) int {
	n := 0
	for i := 0; i < len(lit); i++ {
		n = n*10 + int(lit[i]-'0')
	}
	return n
}
