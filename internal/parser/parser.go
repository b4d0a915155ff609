package parser

import (
	"fmt"
	"moss/internal/ast"
	"moss/internal/lexer"
	"moss/internal/token"
	"moss/internal/util"
	"strconv"
)

const (
	_           int = iota
	LOWEST          // statement level
	LOGICAL_OR      // or
	LOGICAL_AND     // and
	EQUALS          // == ~=
	COMPARISON      // < <= > >=
	BITWISE         // & | ~ << >>
	CONCAT          // .. (right-associative)
	SUM             // + -
	PRODUCT         // * / // %
	PREFIX          // not X, -X, #X, ~X
	POWER           // ^ (right-associative, binds tighter than unary)
	CALL            // f(x), t:m(x)
	INDEX           // t[k], t.k
)

var precedences = map[token.TokenType]int{
	token.OR:          LOGICAL_OR,
	token.AND:         LOGICAL_AND,
	token.EQ:          EQUALS,
	token.NOT_EQ:      EQUALS,
	token.LT:          COMPARISON,
	token.LT_EQ:       COMPARISON,
	token.GT:          COMPARISON,
	token.GT_EQ:       COMPARISON,
	token.AMPERSAND:   BITWISE,
	token.PIPE:        BITWISE,
	token.TILDE:       BITWISE,
	token.SHIFT_LEFT:  BITWISE,
	token.SHIFT_RIGHT: BITWISE,
	token.CONCAT:      CONCAT,
	token.PLUS:        SUM,
	token.MINUS:       SUM,
	token.ASTERISK:    PRODUCT,
	token.SLASH:       PRODUCT,
	token.DSLASH:      PRODUCT,
	token.PERCENT:     PRODUCT,
	token.CARET:       POWER,
	token.LPAREN:      CALL,
	token.COLON:       CALL,
	token.PERIOD:      INDEX,
	token.LBRACKET:    INDEX,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	l      *lexer.Lexer
	src    string // source code here
	errors []string

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

func New(l *lexer.Lexer, source string) *Parser {
	p := &Parser{
		l:      l,
		src:    source,
		errors: []string{},
	}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.NIL, p.parseNil)
	p.registerPrefix(token.TRUE, p.parseBoolean)
	p.registerPrefix(token.FALSE, p.parseBoolean)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.NUMBER, p.parseNumberLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.ELLIPSIS, p.parseVararg)
	p.registerPrefix(token.NOT, p.parsePrefixExpression)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.HASH, p.parsePrefixExpression)
	p.registerPrefix(token.TILDE, p.parsePrefixExpression)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.FUNCTION, p.parseFunctionLiteral)
	p.registerPrefix(token.LBRACE, p.parseTableLiteral)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	p.registerInfix(token.OR, p.parseInfixExpression)
	p.registerInfix(token.AND, p.parseInfixExpression)
	p.registerInfix(token.EQ, p.parseInfixExpression)
	p.registerInfix(token.NOT_EQ, p.parseInfixExpression)
	p.registerInfix(token.LT, p.parseInfixExpression)
	p.registerInfix(token.LT_EQ, p.parseInfixExpression)
	p.registerInfix(token.GT, p.parseInfixExpression)
	p.registerInfix(token.GT_EQ, p.parseInfixExpression)
	p.registerInfix(token.AMPERSAND, p.parseInfixExpression)
	p.registerInfix(token.PIPE, p.parseInfixExpression)
	p.registerInfix(token.TILDE, p.parseInfixExpression)
	p.registerInfix(token.SHIFT_LEFT, p.parseInfixExpression)
	p.registerInfix(token.SHIFT_RIGHT, p.parseInfixExpression)
	p.registerInfix(token.CONCAT, p.parseInfixExpression)
	p.registerInfix(token.PLUS, p.parseInfixExpression)
	p.registerInfix(token.MINUS, p.parseInfixExpression)
	p.registerInfix(token.ASTERISK, p.parseInfixExpression)
	p.registerInfix(token.SLASH, p.parseInfixExpression)
	p.registerInfix(token.DSLASH, p.parseInfixExpression)
	p.registerInfix(token.PERCENT, p.parseInfixExpression)
	p.registerInfix(token.CARET, p.parseInfixExpression)

	p.registerInfix(token.LPAREN, p.parseCallExpression)
	p.registerInfix(token.COLON, p.parseMethodCallExpression)
	p.registerInfix(token.PERIOD, p.parseDotExpression)
	p.registerInfix(token.LBRACKET, p.parseIndexExpression)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) addError(message string, args ...interface{}) {
	line, col := util.GetLineAndColumn(p.src, p.curToken.Position)
	m := fmt.Sprintf(message, args...)
	msg := fmt.Sprintf("[%3d:%2d] %s", line, col, m)
	p.errors = append(p.errors, msg)
}

func (p *Parser) peekError(t token.TokenType) {
	p.addError("expected next token to be %s, got %s instead", t, p.peekToken.Type)
}

func (p *Parser) noPrefixParseFnError(t token.TokenType) {
	p.addError("unexpected token %s", t)
}

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	} else {
		p.peekError(t)
		return false
	}
}

func (p *Parser) Errors() []string {
	return p.errors
}

// ParseProgram consumes the whole token stream. Parsing stops at the first
// error; there is no recovery.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	program.Statements = []ast.Statement{}

	for !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		if len(p.errors) > 0 {
			break
		}
		p.nextToken()
	}

	return program
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.SEMICOLON:
		return nil
	case token.LOCAL:
		return p.parseLocalStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.REPEAT:
		return p.parseRepeatStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.DO:
		return p.parseDoStatement()
	case token.FUNCTION:
		return p.parseFunctionStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.BREAK:
		return &ast.BreakStatement{Token: p.curToken}
	case token.GOTO:
		return p.parseGotoStatement()
	case token.LABEL:
		return p.parseLabelStatement()
	default:
		return p.parseExpressionOrAssignStatement()
	}
}

// parseBlockUntil parses statements until one of the terminator tokens is the
// current token. On return curToken is the terminator (or EOF); the caller
// decides what to do with it.
func (p *Parser) parseBlockUntil(terminators ...token.TokenType) *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken}
	block.Statements = []ast.Statement{}

	p.nextToken()

	for !p.curTokenIsOneOf(terminators) && !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		if len(p.errors) > 0 {
			return block
		}
		p.nextToken()
	}

	if p.curTokenIs(token.EOF) && !p.curTokenIsOneOf(terminators) {
		p.addError("unexpected end of input, expected %s", terminators[0])
	}

	return block
}

func (p *Parser) curTokenIsOneOf(types []token.TokenType) bool {
	for _, t := range types {
		if p.curToken.Type == t {
			return true
		}
	}
	return false
}

func (p *Parser) parseLocalStatement() ast.Statement {
	localToken := p.curToken

	if p.peekTokenIs(token.FUNCTION) {
		p.nextToken()
		return p.parseLocalFunctionStatement(localToken)
	}

	stmt := &ast.LocalStatement{Token: localToken}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Names = append(stmt.Names, &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal})

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		stmt.Names = append(stmt.Names, &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal})
	}

	if p.peekTokenIs(token.ASSIGN) {
		p.nextToken()
		p.nextToken()
		stmt.Values = p.parseExpressionList()
	}

	return stmt
}

func (p *Parser) parseLocalFunctionStatement(localToken token.Token) ast.Statement {
	stmt := &ast.LocalFunctionStatement{Token: localToken}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	fn := &ast.FunctionLiteral{Token: p.curToken}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	fn.Parameters, fn.IsVariadic = p.parseFunctionParameters()
	fn.Body = p.parseBlockUntil(token.END)
	stmt.Function = fn

	return stmt
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken}

	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)

	if !p.expectPeek(token.THEN) {
		return nil
	}

	stmt.Then = p.parseBlockUntil(token.ELSEIF, token.ELSE, token.END)

	switch p.curToken.Type {
	case token.ELSEIF:
		// an elseif arm nests as the else branch; it shares the closing `end`
		stmt.Else = p.parseIfStatement()
	case token.ELSE:
		stmt.Else = p.parseBlockUntil(token.END)
	}

	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{Token: p.curToken}

	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)

	if !p.expectPeek(token.DO) {
		return nil
	}

	stmt.Body = p.parseBlockUntil(token.END)

	return stmt
}

func (p *Parser) parseRepeatStatement() ast.Statement {
	stmt := &ast.RepeatStatement{Token: p.curToken}

	stmt.Body = p.parseBlockUntil(token.UNTIL)

	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)

	return stmt
}

func (p *Parser) parseDoStatement() ast.Statement {
	stmt := &ast.DoStatement{Token: p.curToken}
	stmt.Body = p.parseBlockUntil(token.END)
	return stmt
}

func (p *Parser) parseForStatement() ast.Statement {
	forToken := p.curToken

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	first := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	if p.peekTokenIs(token.ASSIGN) {
		return p.parseNumericForStatement(forToken, first)
	}
	return p.parseGenericForStatement(forToken, first)
}

func (p *Parser) parseNumericForStatement(forToken token.Token, loopVar *ast.Identifier) ast.Statement {
	stmt := &ast.NumericForStatement{Token: forToken, Var: loopVar}

	p.nextToken() // consume =
	p.nextToken()
	stmt.Start = p.parseExpression(LOWEST)

	if !p.expectPeek(token.COMMA) {
		return nil
	}
	p.nextToken()
	stmt.Stop = p.parseExpression(LOWEST)

	if p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		stmt.Step = p.parseExpression(LOWEST)
	}

	if !p.expectPeek(token.DO) {
		return nil
	}

	stmt.Body = p.parseBlockUntil(token.END)

	return stmt
}

func (p *Parser) parseGenericForStatement(forToken token.Token, first *ast.Identifier) ast.Statement {
	stmt := &ast.GenericForStatement{Token: forToken}
	stmt.Names = append(stmt.Names, first)

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		stmt.Names = append(stmt.Names, &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal})
	}

	if !p.expectPeek(token.IN) {
		return nil
	}

	p.nextToken()
	stmt.Exprs = p.parseExpressionList()

	if !p.expectPeek(token.DO) {
		return nil
	}

	stmt.Body = p.parseBlockUntil(token.END)

	return stmt
}

func (p *Parser) parseFunctionStatement() ast.Statement {
	stmt := &ast.FunctionStatement{Token: p.curToken}

	if !p.expectPeek(token.IDENT) {
		return nil
	}

	var name ast.Expression = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	for p.peekTokenIs(token.PERIOD) {
		p.nextToken()
		dotToken := p.curToken
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		name = &ast.IndexExpression{
			Token: dotToken,
			Left:  name,
			Index: &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal},
		}
	}

	if p.peekTokenIs(token.COLON) {
		p.nextToken()
		colonToken := p.curToken
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		name = &ast.IndexExpression{
			Token: colonToken,
			Left:  name,
			Index: &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal},
		}
		stmt.IsMethod = true
	}
	stmt.Name = name

	fn := &ast.FunctionLiteral{Token: stmt.Token}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	fn.Parameters, fn.IsVariadic = p.parseFunctionParameters()

	if stmt.IsMethod {
		self := &ast.Identifier{Token: stmt.Token, Value: "self"}
		fn.Parameters = append([]*ast.Identifier{self}, fn.Parameters...)
	}

	fn.Body = p.parseBlockUntil(token.END)
	stmt.Function = fn

	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.curToken}

	if p.peekTokenIs(token.END) || p.peekTokenIs(token.ELSE) || p.peekTokenIs(token.ELSEIF) ||
		p.peekTokenIs(token.UNTIL) || p.peekTokenIs(token.SEMICOLON) || p.peekTokenIs(token.EOF) {
		if p.peekTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
		return stmt
	}

	p.nextToken()
	stmt.Values = p.parseExpressionList()

	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}

	return stmt
}

func (p *Parser) parseGotoStatement() ast.Statement {
	stmt := &ast.GotoStatement{Token: p.curToken}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Label = p.curToken.Literal

	return stmt
}

func (p *Parser) parseLabelStatement() ast.Statement {
	stmt := &ast.LabelStatement{Token: p.curToken}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = p.curToken.Literal

	if !p.expectPeek(token.LABEL) {
		return nil
	}

	return stmt
}

// parseExpressionOrAssignStatement handles the statements that start with an
// expression: a bare call, or an assignment `lhs, lhs = explist`.
func (p *Parser) parseExpressionOrAssignStatement() ast.Statement {
	startToken := p.curToken

	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}

	if !p.peekTokenIs(token.ASSIGN) && !p.peekTokenIs(token.COMMA) {
		// only calls may stand alone; any other expression is discarded
		// silently at runtime, so reject it here
		switch expr.(type) {
		case *ast.CallExpression, *ast.MethodCallExpression:
			return &ast.ExpressionStatement{Token: startToken, Expression: expr}
		default:
			p.addError("unexpected expression, expected a call or assignment")
			return nil
		}
	}

	stmt := &ast.AssignStatement{Targets: []ast.Expression{expr}}

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		target := p.parseExpression(LOWEST)
		if target == nil {
			return nil
		}
		stmt.Targets = append(stmt.Targets, target)
	}

	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	stmt.Token = p.curToken

	for _, target := range stmt.Targets {
		switch target.(type) {
		case *ast.Identifier, *ast.IndexExpression:
		default:
			p.addError("cannot assign to %s", target.String())
			return nil
		}
	}

	p.nextToken()
	stmt.Values = p.parseExpressionList()

	return stmt
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken.Type)
		return nil
	}
	leftExp := prefix()

	for precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}

		p.nextToken()

		leftExp = infix(leftExp)
	}

	return leftExp
}

// parseExpressionList parses one or more comma-separated expressions starting
// at the current token. On return curToken is the last token of the list.
func (p *Parser) parseExpressionList() []ast.Expression {
	list := []ast.Expression{}

	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil
	}
	list = append(list, first)

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		next := p.parseExpression(LOWEST)
		if next == nil {
			return nil
		}
		list = append(list, next)
	}

	return list
}

func (p *Parser) peekPrecedence() int {
	if p, ok := precedences[p.peekToken.Type]; ok {
		return p
	}

	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if p, ok := precedences[p.curToken.Type]; ok {
		return p
	}

	return LOWEST
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	lit := &ast.NumberLiteral{Token: p.curToken}

	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.addError("could not parse %q as number", p.curToken.Literal)
		return nil
	}

	lit.Value = value
	return lit
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseNil() ast.Expression {
	return &ast.Nil{Token: p.curToken}
}

func (p *Parser) parseBoolean() ast.Expression {
	return &ast.Boolean{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseVararg() ast.Expression {
	return &ast.Vararg{Token: p.curToken}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.PrefixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
	}

	p.nextToken()

	expression.Right = p.parseExpression(PREFIX)

	return expression
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
		Left:     left,
	}

	precedence := p.curPrecedence()
	p.nextToken()

	if expression.Operator == ".." || expression.Operator == "^" {
		// right-associative
		expression.Right = p.parseExpression(precedence - 1)
	} else {
		expression.Right = p.parseExpression(precedence)
	}

	return expression
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()

	exp := p.parseExpression(LOWEST)

	if !p.expectPeek(token.RPAREN) {
		return nil
	}

	return exp
}

func (p *Parser) parseFunctionLiteral() ast.Expression {
	lit := &ast.FunctionLiteral{Token: p.curToken}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}

	lit.Parameters, lit.IsVariadic = p.parseFunctionParameters()

	lit.Body = p.parseBlockUntil(token.END)

	return lit
}

// parseFunctionParameters expects curToken to be '('. A `...` parameter must
// come last and marks the function variadic.
func (p *Parser) parseFunctionParameters() ([]*ast.Identifier, bool) {
	parameters := []*ast.Identifier{}
	isVariadic := false

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return parameters, false
	}

	p.nextToken()

	for {
		if p.curTokenIs(token.ELLIPSIS) {
			isVariadic = true
			if !p.peekTokenIs(token.RPAREN) {
				p.addError("'...' must be the last parameter")
				return parameters, true
			}
			break
		}

		if !p.curTokenIs(token.IDENT) {
			p.addError("expected parameter name, got %s", p.curToken.Type)
			return parameters, false
		}
		parameters = append(parameters, &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal})

		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		p.nextToken()
	}

	if !p.expectPeek(token.RPAREN) {
		return parameters, isVariadic
	}

	return parameters, isVariadic
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	exp := &ast.CallExpression{Token: p.curToken, Function: function}
	exp.Arguments = p.parseCallArguments()
	return exp
}

func (p *Parser) parseMethodCallExpression(receiver ast.Expression) ast.Expression {
	exp := &ast.MethodCallExpression{Token: p.curToken, Receiver: receiver}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	exp.Method = p.curToken.Literal

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	exp.Arguments = p.parseCallArguments()

	return exp
}

// parseCallArguments expects curToken to be '('.
func (p *Parser) parseCallArguments() []ast.Expression {
	args := []ast.Expression{}

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return args
	}

	p.nextToken()
	args = p.parseExpressionList()

	if !p.expectPeek(token.RPAREN) {
		return nil
	}

	return args
}

func (p *Parser) parseDotExpression(left ast.Expression) ast.Expression {
	dotToken := p.curToken

	if !p.expectPeek(token.IDENT) {
		return nil
	}

	return &ast.IndexExpression{
		Token: dotToken,
		Left:  left,
		Index: &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal},
	}
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	expr := &ast.IndexExpression{
		Token: p.curToken, // the '[' token
		Left:  left,
	}

	p.nextToken()
	expr.Index = p.parseExpression(LOWEST)

	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return expr
}

func (p *Parser) parseTableLiteral() ast.Expression {
	table := &ast.TableLiteral{Token: p.curToken}

	for !p.peekTokenIs(token.RBRACE) {
		p.nextToken()

		field := &ast.TableField{}

		switch {
		case p.curTokenIs(token.LBRACKET):
			p.nextToken()
			field.Key = p.parseExpression(LOWEST)
			if !p.expectPeek(token.RBRACKET) {
				return nil
			}
			if !p.expectPeek(token.ASSIGN) {
				return nil
			}
			p.nextToken()
			field.Value = p.parseExpression(LOWEST)
		case p.curTokenIs(token.IDENT) && p.peekTokenIs(token.ASSIGN):
			field.Key = &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
			p.nextToken()
			p.nextToken()
			field.Value = p.parseExpression(LOWEST)
		default:
			field.Value = p.parseExpression(LOWEST)
		}

		if field.Value == nil {
			return nil
		}
		table.Fields = append(table.Fields, field)

		// `,` and `;` both separate fields; a trailing separator is allowed
		if p.peekTokenIs(token.COMMA) || p.peekTokenIs(token.SEMICOLON) {
			p.nextToken()
		} else if !p.peekTokenIs(token.RBRACE) {
			p.peekError(token.RBRACE)
			return nil
		}
	}

	if !p.expectPeek(token.RBRACE) {
		return nil
	}

	return table
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}
