// Package parser builds a typed AST from a lexer.Token stream using
// recursive descent with precedence climbing for expressions. The
// first unexpected token is fatal: there is no error recovery.
package parser

import (
	"strings"

	"botlang/internal/ast"
	"botlang/internal/errors"
	"botlang/internal/lexer"
)

// precedence maps a binary operator token to its climbing level. Lower
// binds looser; 'or' is lowest, multiplicative highest among binaries.
var precedence = map[lexer.TokenType]int{
	lexer.TokenOr:      1,
	lexer.TokenAnd:     2,
	lexer.TokenEq:      3,
	lexer.TokenNe:      3,
	lexer.TokenLt:      4,
	lexer.TokenGt:      4,
	lexer.TokenLe:      4,
	lexer.TokenGe:      4,
	lexer.TokenPlus:    5,
	lexer.TokenMinus:   5,
	lexer.TokenStar:    6,
	lexer.TokenSlash:   6,
	lexer.TokenPercent: 6,
}

var binaryOps = map[lexer.TokenType]ast.BinaryOp{
	lexer.TokenOr:      ast.OpOr,
	lexer.TokenAnd:     ast.OpAnd,
	lexer.TokenEq:      ast.OpEq,
	lexer.TokenNe:      ast.OpNe,
	lexer.TokenLt:      ast.OpLt,
	lexer.TokenGt:      ast.OpGt,
	lexer.TokenLe:      ast.OpLe,
	lexer.TokenGe:      ast.OpGe,
	lexer.TokenPlus:    ast.OpAdd,
	lexer.TokenMinus:   ast.OpSub,
	lexer.TokenStar:    ast.OpMul,
	lexer.TokenSlash:   ast.OpDiv,
	lexer.TokenPercent: ast.OpMod,
}

// loopDepth tracks nesting so break/continue outside any loop is
// caught structurally, as spec'd for parse-time checks.
type Parser struct {
	tokens    []lexer.Token
	current   int
	loopDepth int
}

func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse runs the parser and recovers a panic raised by consume/fail
// into a returned *errors.BotError, matching the no-recovery-but-no-
// crash contract: the first syntax error is fatal to Parse, not to
// the host process.
func (p *Parser) Parse() (prog *ast.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			if be, ok := r.(*errors.BotError); ok {
				err = be
				return
			}
			panic(r)
		}
	}()
	prog = &ast.Program{}
	for !p.isAtEnd() {
		prog.Bots = append(prog.Bots, p.bot())
	}
	if len(prog.Bots) == 0 {
		p.fail(p.peek(), "expected at least one bot definition")
	}
	return prog, nil
}

func (p *Parser) bot() *ast.BotDef {
	tok := p.consume(lexer.TokenBot, "expect 'bot'")
	nameTok := p.consume(lexer.TokenString, "expect bot name string")
	p.consume(lexer.TokenLBrace, "expect '{' after bot name")

	b := &ast.BotDef{
		Name:           nameTok.Str,
		Line:           tok.Line,
		IntentByName:   map[string]*ast.IntentDef{},
		StateByName:    map[string]*ast.StateDef{},
		FunctionByName: map[string]*ast.FunctionDef{},
	}

	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		switch {
		case p.check(lexer.TokenIntent):
			intent := p.intentDef()
			if _, dup := b.IntentByName[intent.Name]; dup {
				p.failLine(intent.Line, "duplicate intent '%s'", intent.Name)
			}
			b.Intents = append(b.Intents, intent)
			b.IntentByName[intent.Name] = intent
		case p.check(lexer.TokenState):
			state := p.stateDef()
			if _, dup := b.StateByName[state.Name]; dup {
				p.failLine(state.Line, "duplicate state '%s'", state.Name)
			}
			b.States = append(b.States, state)
			b.StateByName[state.Name] = state
		case p.check(lexer.TokenVar):
			v := p.varDef()
			b.Variables = append(b.Variables, v)
		case p.check(lexer.TokenFunc):
			f := p.funcDef()
			if _, dup := b.FunctionByName[f.Name]; dup {
				p.failLine(f.Line, "duplicate function '%s'", f.Name)
			}
			b.Functions = append(b.Functions, f)
			b.FunctionByName[f.Name] = f
		default:
			p.fail(p.peek(), "expected intent/state/var/func declaration")
		}
	}
	p.consume(lexer.TokenRBrace, "expect '}' to close bot")

	initialCount := 0
	for _, s := range b.States {
		if s.IsInitial {
			initialCount++
		}
	}
	if initialCount != 1 {
		p.failLine(tok.Line, "bot '%s' must have exactly one initial state, found %d", b.Name, initialCount)
	}
	for _, s := range b.States {
		for _, t := range s.Transitions {
			if _, ok := b.IntentByName[t.IntentName]; !ok {
				panic(errors.Semantic(t.Line, "transition references unknown intent '%s'", t.IntentName))
			}
			if _, ok := b.StateByName[t.Target]; !ok {
				panic(errors.Semantic(t.Line, "transition references unknown state '%s'", t.Target))
			}
		}
	}
	return b
}

func (p *Parser) intentDef() *ast.IntentDef {
	tok := p.consume(lexer.TokenIntent, "expect 'intent'")
	name := p.consume(lexer.TokenIdent, "expect intent name").Lexeme
	p.consume(lexer.TokenLBrace, "expect '{' after intent name")

	def := &ast.IntentDef{Name: name, Line: tok.Line}
	seen := map[lexer.TokenType]bool{}
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		attrTok := p.peek()
		switch attrTok.Type {
		case lexer.TokenPatterns:
			p.advance()
			p.consume(lexer.TokenColon, "expect ':' after 'patterns'")
			def.Patterns = p.stringListLiteral()
		case lexer.TokenDescription:
			p.advance()
			p.consume(lexer.TokenColon, "expect ':' after 'description'")
			def.Description = p.consume(lexer.TokenString, "expect string after 'description:'").Str
			def.HasDesc = true
		case lexer.TokenExamples:
			p.advance()
			p.consume(lexer.TokenColon, "expect ':' after 'examples'")
			def.Examples = p.stringListLiteral()
		default:
			p.fail(attrTok, "unknown intent attribute")
		}
		if seen[attrTok.Type] {
			p.failLine(attrTok.Line, "duplicate intent attribute '%s'", attrTok.Lexeme)
		}
		seen[attrTok.Type] = true
	}
	p.consume(lexer.TokenRBrace, "expect '}' to close intent")
	return def
}

func (p *Parser) stringListLiteral() []string {
	p.consume(lexer.TokenLBracket, "expect '[' to start list literal")
	var items []string
	if !p.check(lexer.TokenRBracket) {
		items = append(items, p.consume(lexer.TokenString, "expect string in list").Str)
		for p.match(lexer.TokenComma) {
			items = append(items, p.consume(lexer.TokenString, "expect string in list").Str)
		}
	}
	p.consume(lexer.TokenRBracket, "expect ']' to close list literal")
	return items
}

func (p *Parser) stateDef() *ast.StateDef {
	tok := p.consume(lexer.TokenState, "expect 'state'")
	name := p.consume(lexer.TokenIdent, "expect state name").Lexeme

	def := &ast.StateDef{Name: name, Line: tok.Line}
	for p.check(lexer.TokenInitial) || p.check(lexer.TokenFinal) {
		if p.match(lexer.TokenInitial) {
			if def.IsInitial {
				p.failLine(tok.Line, "duplicate 'initial' modifier on state '%s'", name)
			}
			def.IsInitial = true
		} else {
			p.advance()
			if def.IsFinal {
				p.failLine(tok.Line, "duplicate 'final' modifier on state '%s'", name)
			}
			def.IsFinal = true
		}
	}

	p.consume(lexer.TokenLBrace, "expect '{' after state header")
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		switch {
		case p.check(lexer.TokenOnEnter):
			p.advance()
			if def.OnEnter != nil {
				p.failLine(tok.Line, "duplicate 'on_enter' in state '%s'", name)
			}
			def.OnEnter = p.block()
		case p.check(lexer.TokenOnExit):
			p.advance()
			if def.OnExit != nil {
				p.failLine(tok.Line, "duplicate 'on_exit' in state '%s'", name)
			}
			def.OnExit = p.block()
		case p.check(lexer.TokenOnMessage):
			p.advance()
			if def.OnMessage != nil {
				p.failLine(tok.Line, "duplicate 'on_message' in state '%s'", name)
			}
			def.OnMessage = p.block()
		case p.check(lexer.TokenWhen):
			def.Transitions = append(def.Transitions, p.transition())
		case p.check(lexer.TokenFallback):
			p.advance()
			if def.Fallback != nil {
				p.failLine(tok.Line, "duplicate 'fallback' in state '%s'", name)
			}
			def.Fallback = p.block()
		default:
			p.fail(p.peek(), "expected state item (on_enter/on_exit/on_message/when/fallback)")
		}
	}
	p.consume(lexer.TokenRBrace, "expect '}' to close state")
	return def
}

func (p *Parser) transition() *ast.Transition {
	tok := p.consume(lexer.TokenWhen, "expect 'when'")
	intentName := p.consume(lexer.TokenIdent, "expect intent name after 'when'").Lexeme
	p.consume(lexer.TokenArrow, "expect '->' after intent name")
	target := p.consume(lexer.TokenIdent, "expect target state name").Lexeme

	t := &ast.Transition{Line: tok.Line, IntentName: intentName, Target: target}
	if p.match(lexer.TokenIf) {
		t.Guard = p.expression()
	}
	return t
}

func (p *Parser) varDef() *ast.VariableDef {
	tok := p.consume(lexer.TokenVar, "expect 'var'")
	name := p.consume(lexer.TokenIdent, "expect variable name").Lexeme
	v := &ast.VariableDef{Name: name, Line: tok.Line}
	if p.match(lexer.TokenAssign) {
		v.Init = p.expression()
	}
	return v
}

func (p *Parser) funcDef() *ast.FunctionDef {
	tok := p.consume(lexer.TokenFunc, "expect 'func'")
	name := p.consume(lexer.TokenIdent, "expect function name").Lexeme
	p.consume(lexer.TokenLParen, "expect '(' after function name")

	var params []ast.Param
	if !p.check(lexer.TokenRParen) {
		params = append(params, p.param())
		for p.match(lexer.TokenComma) {
			params = append(params, p.param())
		}
	}
	p.consume(lexer.TokenRParen, "expect ')' after parameters")
	body := p.block()
	return &ast.FunctionDef{Name: name, Line: tok.Line, Params: params, Body: body}
}

func (p *Parser) param() ast.Param {
	name := p.consume(lexer.TokenIdent, "expect parameter name").Lexeme
	param := ast.Param{Name: name}
	if p.match(lexer.TokenAssign) {
		param.Default = p.expression()
	}
	return param
}

func (p *Parser) block() *ast.Block {
	p.consume(lexer.TokenLBrace, "expect '{' to start block")
	b := &ast.Block{}
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		b.Stmts = append(b.Stmts, p.statement())
	}
	p.consume(lexer.TokenRBrace, "expect '}' to close block")
	return b
}

func (p *Parser) statement() ast.Stmt {
	tok := p.peek()
	switch tok.Type {
	case lexer.TokenSay:
		p.advance()
		return &ast.SayStmt{Line: tok.Line, Expr: p.expression()}
	case lexer.TokenAsk:
		p.advance()
		prompt := p.expression()
		p.consume(lexer.TokenArrow, "expect '->' after ask expression")
		target := p.consume(lexer.TokenIdent, "expect target identifier after '->'").Lexeme
		return &ast.AskStmt{Line: tok.Line, Prompt: prompt, Target: target}
	case lexer.TokenSet:
		p.advance()
		name := p.consume(lexer.TokenIdent, "expect identifier after 'set'").Lexeme
		p.consume(lexer.TokenAssign, "expect '=' after set target")
		return &ast.SetStmt{Line: tok.Line, Name: name, Expr: p.expression()}
	case lexer.TokenGoto:
		p.advance()
		state := p.consume(lexer.TokenIdent, "expect state name after 'goto'").Lexeme
		return &ast.GotoStmt{Line: tok.Line, State: state}
	case lexer.TokenCall:
		p.advance()
		callee := p.consume(lexer.TokenIdent, "expect function name after 'call'").Lexeme
		call := p.finishCall(tok.Line, callee)
		return &ast.CallStmt{Line: tok.Line, Call: call}
	case lexer.TokenReturn:
		p.advance()
		var value ast.Expr
		if !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
			value = p.expression()
		}
		return &ast.ReturnStmt{Line: tok.Line, Value: value}
	case lexer.TokenIf:
		return p.ifStatement()
	case lexer.TokenWhile:
		p.advance()
		cond := p.expression()
		p.loopDepth++
		body := p.block()
		p.loopDepth--
		return &ast.WhileStmt{Line: tok.Line, Cond: cond, Body: body}
	case lexer.TokenFor:
		p.advance()
		v := p.consume(lexer.TokenIdent, "expect loop variable after 'for'").Lexeme
		p.consume(lexer.TokenIn, "expect 'in' after loop variable")
		iterable := p.expression()
		p.loopDepth++
		body := p.block()
		p.loopDepth--
		return &ast.ForStmt{Line: tok.Line, Var: v, Iterable: iterable, Body: body}
	case lexer.TokenBreak:
		p.advance()
		if p.loopDepth == 0 {
			p.failLine(tok.Line, "'break' outside of a loop")
		}
		return &ast.BreakStmt{Line: tok.Line}
	case lexer.TokenContinue:
		p.advance()
		if p.loopDepth == 0 {
			p.failLine(tok.Line, "'continue' outside of a loop")
		}
		return &ast.ContinueStmt{Line: tok.Line}
	default:
		return &ast.ExprStmt{Line: tok.Line, Expr: p.expression()}
	}
}

func (p *Parser) ifStatement() ast.Stmt {
	tok := p.consume(lexer.TokenIf, "expect 'if'")
	stmt := &ast.IfStmt{Line: tok.Line}
	cond := p.expression()
	body := p.block()
	stmt.Branches = append(stmt.Branches, ast.IfBranch{Cond: cond, Body: body})

	for p.match(lexer.TokenElif) {
		c := p.expression()
		b := p.block()
		stmt.Branches = append(stmt.Branches, ast.IfBranch{Cond: c, Body: b})
	}
	if p.match(lexer.TokenElse) {
		stmt.Else = p.block()
	}
	return stmt
}

// --- Expressions ---

func (p *Parser) expression() ast.Expr {
	return p.parseBinary(1)
}

func (p *Parser) parseBinary(minPrec int) ast.Expr {
	left := p.parseUnary()
	for {
		tok := p.peek()
		prec, ok := precedence[tok.Type]
		if !ok || prec < minPrec {
			break
		}
		p.advance()
		right := p.parseBinary(prec + 1)
		left = &ast.BinaryExpr{Line: tok.Line, Op: binaryOps[tok.Type], L: left, R: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	tok := p.peek()
	if tok.Type == lexer.TokenMinus {
		p.advance()
		return &ast.UnaryExpr{Line: tok.Line, Op: ast.OpNeg, Inner: p.parseUnary()}
	}
	if tok.Type == lexer.TokenNot {
		p.advance()
		return &ast.UnaryExpr{Line: tok.Line, Op: ast.OpNot, Inner: p.parseUnary()}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	expr := p.primary()
	for p.check(lexer.TokenLBracket) {
		open := p.advance()
		key := p.expression()
		p.consume(lexer.TokenRBracket, "expect ']' after index expression")
		expr = &ast.IndexExpr{Line: open.Line, Target: expr, Key: key}
	}
	return expr
}

func (p *Parser) primary() ast.Expr {
	tok := p.advance()
	switch tok.Type {
	case lexer.TokenString:
		return &ast.LiteralExpr{Line: tok.Line, Kind: ast.LitString, Str: tok.Str}
	case lexer.TokenInt:
		return &ast.LiteralExpr{Line: tok.Line, Kind: ast.LitInt, Int: tok.Int}
	case lexer.TokenFloat:
		return &ast.LiteralExpr{Line: tok.Line, Kind: ast.LitFloat, Flt: tok.Float}
	case lexer.TokenTrue:
		return &ast.LiteralExpr{Line: tok.Line, Kind: ast.LitBool, Bool: true}
	case lexer.TokenFalse:
		return &ast.LiteralExpr{Line: tok.Line, Kind: ast.LitBool, Bool: false}
	case lexer.TokenNull:
		return &ast.LiteralExpr{Line: tok.Line, Kind: ast.LitNull}
	case lexer.TokenLBracket:
		return p.listLiteral(tok.Line)
	case lexer.TokenLParen:
		expr := p.expression()
		p.consume(lexer.TokenRParen, "expect ')' after parenthesized expression")
		return expr
	case lexer.TokenIdent:
		if strings.HasPrefix(tok.Lexeme, "_") {
			if p.check(lexer.TokenLParen) {
				return p.finishCall(tok.Line, tok.Lexeme)
			}
			return &ast.SpecialVarExpr{Line: tok.Line, Name: tok.Lexeme}
		}
		if p.check(lexer.TokenLParen) {
			return p.finishCall(tok.Line, tok.Lexeme)
		}
		return &ast.IdentifierExpr{Line: tok.Line, Name: tok.Lexeme}
	default:
		p.fail(tok, "unexpected token in expression")
		return nil
	}
}

func (p *Parser) listLiteral(line int) ast.Expr {
	items := []ast.Expr{}
	if !p.check(lexer.TokenRBracket) {
		items = append(items, p.expression())
		for p.match(lexer.TokenComma) {
			items = append(items, p.expression())
		}
	}
	p.consume(lexer.TokenRBracket, "expect ']' to close list literal")
	return &ast.ListExpr{Line: line, Items: items}
}

func (p *Parser) finishCall(line int, name string) *ast.CallExpr {
	p.consume(lexer.TokenLParen, "expect '(' to start call arguments")
	var args []ast.Expr
	if !p.check(lexer.TokenRParen) {
		args = append(args, p.expression())
		for p.match(lexer.TokenComma) {
			args = append(args, p.expression())
		}
	}
	p.consume(lexer.TokenRParen, "expect ')' to close call arguments")
	return &ast.CallExpr{Line: line, Name: name, Args: args}
}

// --- Token cursor utilities ---

func (p *Parser) match(t lexer.TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) consume(t lexer.TokenType, msg string) lexer.Token {
	if p.check(t) {
		return p.advance()
	}
	p.fail(p.peek(), msg)
	return lexer.Token{}
}

func (p *Parser) check(t lexer.TokenType) bool {
	return !p.isAtEnd() && p.peek().Type == t
}

func (p *Parser) advance() lexer.Token {
	tok := p.tokens[p.current]
	if !p.isAtEnd() {
		p.current++
	}
	return tok
}

func (p *Parser) peek() lexer.Token {
	return p.tokens[p.current]
}

func (p *Parser) isAtEnd() bool {
	return p.tokens[p.current].Type == lexer.TokenEOF
}

func (p *Parser) fail(tok lexer.Token, format string, args ...interface{}) {
	p.failLine(tok.Line, format+" (got '%s')", append(args, tok.Lexeme)...)
}

func (p *Parser) failLine(line int, format string, args ...interface{}) {
	panic(errors.Parse(line, format, args...))
}
