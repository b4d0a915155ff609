package ast

import (
	"bytes"
	"moss/internal/token"
	"strings"
)

// The base Node interface
type Node interface {
	TokenLiteral() string
	String() string
}

type Statement interface {
	Node
	statementNode()
	// Pos is the byte offset of the statement's leading token, feeding
	// file:line error positions.
	Pos() int
}

type Expression interface {
	Node
	expressionNode()
}

type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	} else {
		return ""
	}
}

func (p *Program) String() string {
	var out bytes.Buffer

	for _, s := range p.Statements {
		out.WriteString(s.String())
	}

	return out.String()
}

// LocalStatement declares one or more names in the enclosing scope,
// e.g. `local a, b = 1, f()`. Values may be shorter or longer than Names.
type LocalStatement struct {
	Token  token.Token // the token.LOCAL token
	Names  []*Identifier
	Values []Expression
}

func (ls *LocalStatement) statementNode()       {}
func (ls *LocalStatement) Pos() int { return ls.Token.Position }
func (ls *LocalStatement) TokenLiteral() string { return ls.Token.Literal }
func (ls *LocalStatement) String() string {
	var out bytes.Buffer

	out.WriteString("local ")
	names := []string{}
	for _, n := range ls.Names {
		names = append(names, n.String())
	}
	out.WriteString(strings.Join(names, ", "))

	if len(ls.Values) > 0 {
		out.WriteString(" = ")
		values := []string{}
		for _, v := range ls.Values {
			values = append(values, v.String())
		}
		out.WriteString(strings.Join(values, ", "))
	}

	out.WriteString(";")

	return out.String()
}

// AssignStatement assigns to one or more targets, each an Identifier or an
// IndexExpression, e.g. `a, t[k] = 1, 2`.
type AssignStatement struct {
	Token   token.Token // the token.ASSIGN token
	Targets []Expression
	Values  []Expression
}

func (as *AssignStatement) statementNode()       {}
func (as *AssignStatement) Pos() int { return as.Token.Position }
func (as *AssignStatement) TokenLiteral() string { return as.Token.Literal }
func (as *AssignStatement) String() string {
	var out bytes.Buffer

	targets := []string{}
	for _, t := range as.Targets {
		targets = append(targets, t.String())
	}
	out.WriteString(strings.Join(targets, ", "))
	out.WriteString(" = ")

	values := []string{}
	for _, v := range as.Values {
		values = append(values, v.String())
	}
	out.WriteString(strings.Join(values, ", "))
	out.WriteString(";")

	return out.String()
}

type ReturnStatement struct {
	Token  token.Token // the 'return' token
	Values []Expression
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) Pos() int { return rs.Token.Position }
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Literal }
func (rs *ReturnStatement) String() string {
	var out bytes.Buffer

	out.WriteString(rs.TokenLiteral())

	if len(rs.Values) > 0 {
		out.WriteString(" ")
		values := []string{}
		for _, v := range rs.Values {
			values = append(values, v.String())
		}
		out.WriteString(strings.Join(values, ", "))
	}

	out.WriteString(";")

	return out.String()
}

type BreakStatement struct {
	Token token.Token
}

func (bs *BreakStatement) statementNode()       {}
func (bs *BreakStatement) Pos() int { return bs.Token.Position }
func (bs *BreakStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BreakStatement) String() string       { return "break;" }

type GotoStatement struct {
	Token token.Token
	Label string
}

func (gs *GotoStatement) statementNode()       {}
func (gs *GotoStatement) Pos() int { return gs.Token.Position }
func (gs *GotoStatement) TokenLiteral() string { return gs.Token.Literal }
func (gs *GotoStatement) String() string       { return "goto " + gs.Label + ";" }

type LabelStatement struct {
	Token token.Token // the '::' token
	Name  string
}

func (ls *LabelStatement) statementNode()       {}
func (ls *LabelStatement) Pos() int { return ls.Token.Position }
func (ls *LabelStatement) TokenLiteral() string { return ls.Token.Literal }
func (ls *LabelStatement) String() string       { return "::" + ls.Name + "::" }

type ExpressionStatement struct {
	Token      token.Token // the first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) Pos() int { return es.Token.Position }
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Literal }
func (es *ExpressionStatement) String() string {
	if es.Expression != nil {
		return es.Expression.String()
	}
	return ""
}

type BlockStatement struct {
	Token      token.Token // the token opening the block
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) Pos() int { return bs.Token.Position }
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BlockStatement) String() string {
	var out bytes.Buffer

	for _, s := range bs.Statements {
		out.WriteString(s.String())
	}

	return out.String()
}

type DoStatement struct {
	Token token.Token // the 'do' token
	Body  *BlockStatement
}

func (ds *DoStatement) statementNode()       {}
func (ds *DoStatement) Pos() int { return ds.Token.Position }
func (ds *DoStatement) TokenLiteral() string { return ds.Token.Literal }
func (ds *DoStatement) String() string {
	return "do " + ds.Body.String() + " end"
}

type WhileStatement struct {
	Token     token.Token // the 'while' token
	Condition Expression
	Body      *BlockStatement
}

func (ws *WhileStatement) statementNode()       {}
func (ws *WhileStatement) Pos() int { return ws.Token.Position }
func (ws *WhileStatement) TokenLiteral() string { return ws.Token.Literal }
func (ws *WhileStatement) String() string {
	return "while " + ws.Condition.String() + " do " + ws.Body.String() + " end"
}

type RepeatStatement struct {
	Token     token.Token // the 'repeat' token
	Body      *BlockStatement
	Condition Expression
}

func (rs *RepeatStatement) statementNode()       {}
func (rs *RepeatStatement) Pos() int { return rs.Token.Position }
func (rs *RepeatStatement) TokenLiteral() string { return rs.Token.Literal }
func (rs *RepeatStatement) String() string {
	return "repeat " + rs.Body.String() + " until " + rs.Condition.String()
}

// IfStatement covers the whole if/elseif/else chain. An `elseif` arm is
// parsed as a nested IfStatement in Else.
type IfStatement struct {
	Token     token.Token // the 'if' or 'elseif' token
	Condition Expression
	Then      *BlockStatement
	Else      Statement // nil, *BlockStatement, or *IfStatement
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) Pos() int { return is.Token.Position }
func (is *IfStatement) TokenLiteral() string { return is.Token.Literal }
func (is *IfStatement) String() string {
	var out bytes.Buffer

	out.WriteString("if ")
	out.WriteString(is.Condition.String())
	out.WriteString(" then ")
	out.WriteString(is.Then.String())
	if is.Else != nil {
		out.WriteString(" else ")
		out.WriteString(is.Else.String())
	}
	out.WriteString(" end")

	return out.String()
}

// NumericForStatement is `for v = start, stop [, step] do ... end`.
type NumericForStatement struct {
	Token token.Token // the 'for' token
	Var   *Identifier
	Start Expression
	Stop  Expression
	Step  Expression // nil means 1
	Body  *BlockStatement
}

func (nf *NumericForStatement) statementNode()       {}
func (nf *NumericForStatement) Pos() int { return nf.Token.Position }
func (nf *NumericForStatement) TokenLiteral() string { return nf.Token.Literal }
func (nf *NumericForStatement) String() string {
	var out bytes.Buffer

	out.WriteString("for ")
	out.WriteString(nf.Var.String())
	out.WriteString(" = ")
	out.WriteString(nf.Start.String())
	out.WriteString(", ")
	out.WriteString(nf.Stop.String())
	if nf.Step != nil {
		out.WriteString(", ")
		out.WriteString(nf.Step.String())
	}
	out.WriteString(" do ")
	out.WriteString(nf.Body.String())
	out.WriteString(" end")

	return out.String()
}

// GenericForStatement is `for a, b in explist do ... end`.
type GenericForStatement struct {
	Token token.Token // the 'for' token
	Names []*Identifier
	Exprs []Expression
	Body  *BlockStatement
}

func (gf *GenericForStatement) statementNode()       {}
func (gf *GenericForStatement) Pos() int { return gf.Token.Position }
func (gf *GenericForStatement) TokenLiteral() string { return gf.Token.Literal }
func (gf *GenericForStatement) String() string {
	var out bytes.Buffer

	out.WriteString("for ")
	names := []string{}
	for _, n := range gf.Names {
		names = append(names, n.String())
	}
	out.WriteString(strings.Join(names, ", "))
	out.WriteString(" in ")
	exprs := []string{}
	for _, e := range gf.Exprs {
		exprs = append(exprs, e.String())
	}
	out.WriteString(strings.Join(exprs, ", "))
	out.WriteString(" do ")
	out.WriteString(gf.Body.String())
	out.WriteString(" end")

	return out.String()
}

// FunctionStatement is the declaration form `function a.b.c(...) end` or
// `function a.b:m(...) end`. Name is an Identifier or an IndexExpression
// chain. When IsMethod is set the parser has prepended `self` to the
// parameter list already.
type FunctionStatement struct {
	Token    token.Token // the 'function' token
	Name     Expression
	IsMethod bool
	Function *FunctionLiteral
}

func (fs *FunctionStatement) statementNode()       {}
func (fs *FunctionStatement) Pos() int { return fs.Token.Position }
func (fs *FunctionStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *FunctionStatement) String() string {
	var out bytes.Buffer

	out.WriteString("function ")
	out.WriteString(fs.Name.String())
	out.WriteString(fs.Function.paramString())
	out.WriteString(" ")
	out.WriteString(fs.Function.Body.String())
	out.WriteString(" end")

	return out.String()
}

// LocalFunctionStatement is `local function f(...) end`. The name is declared
// before the body is parsed so the function can refer to itself.
type LocalFunctionStatement struct {
	Token    token.Token // the 'local' token
	Name     *Identifier
	Function *FunctionLiteral
}

func (lf *LocalFunctionStatement) statementNode()       {}
func (lf *LocalFunctionStatement) Pos() int { return lf.Token.Position }
func (lf *LocalFunctionStatement) TokenLiteral() string { return lf.Token.Literal }
func (lf *LocalFunctionStatement) String() string {
	var out bytes.Buffer

	out.WriteString("local function ")
	out.WriteString(lf.Name.String())
	out.WriteString(lf.Function.paramString())
	out.WriteString(" ")
	out.WriteString(lf.Function.Body.String())
	out.WriteString(" end")

	return out.String()
}

// Expressions

type Identifier struct {
	Token token.Token // the token.IDENT token
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) String() string       { return i.Value }

type Boolean struct {
	Token token.Token
	Value bool
}

func (b *Boolean) expressionNode()      {}
func (b *Boolean) TokenLiteral() string { return b.Token.Literal }
func (b *Boolean) String() string       { return b.Token.Literal }

type Nil struct {
	Token token.Token
}

func (n *Nil) expressionNode()      {}
func (n *Nil) TokenLiteral() string { return n.Token.Literal }
func (n *Nil) String() string       { return n.Token.Literal }

type NumberLiteral struct {
	Token token.Token
	Value float64
}

func (n *NumberLiteral) expressionNode()      {}
func (n *NumberLiteral) TokenLiteral() string { return n.Token.Literal }
func (n *NumberLiteral) String() string       { return n.Token.Literal }

type StringLiteral struct {
	Token token.Token
	Value string
}

func (s *StringLiteral) expressionNode()      {}
func (s *StringLiteral) TokenLiteral() string { return s.Token.Literal }
func (s *StringLiteral) String() string       { return `"` + s.Value + `"` }

// Vararg is the `...` expression inside a variadic function.
type Vararg struct {
	Token token.Token
}

func (v *Vararg) expressionNode()      {}
func (v *Vararg) TokenLiteral() string { return v.Token.Literal }
func (v *Vararg) String() string       { return "..." }

type PrefixExpression struct {
	Token    token.Token // the prefix token, e.g. not
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()      {}
func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PrefixExpression) String() string {
	var out bytes.Buffer

	out.WriteString("(")
	out.WriteString(pe.Operator)
	if pe.Operator == "not" {
		out.WriteString(" ")
	}
	out.WriteString(pe.Right.String())
	out.WriteString(")")

	return out.String()
}

type InfixExpression struct {
	Token    token.Token // the operator token, e.g. +
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()      {}
func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *InfixExpression) String() string {
	var out bytes.Buffer

	out.WriteString("(")
	out.WriteString(ie.Left.String())
	out.WriteString(" " + ie.Operator + " ")
	out.WriteString(ie.Right.String())
	out.WriteString(")")

	return out.String()
}

type FunctionLiteral struct {
	Token      token.Token // the 'function' token
	Parameters []*Identifier
	IsVariadic bool
	Body       *BlockStatement
}

func (fl *FunctionLiteral) expressionNode()      {}
func (fl *FunctionLiteral) TokenLiteral() string { return fl.Token.Literal }
func (fl *FunctionLiteral) String() string {
	var out bytes.Buffer

	out.WriteString("function")
	out.WriteString(fl.paramString())
	out.WriteString(" ")
	out.WriteString(fl.Body.String())
	out.WriteString(" end")

	return out.String()
}

func (fl *FunctionLiteral) paramString() string {
	params := []string{}
	for _, p := range fl.Parameters {
		params = append(params, p.String())
	}
	if fl.IsVariadic {
		params = append(params, "...")
	}
	return "(" + strings.Join(params, ", ") + ")"
}

type CallExpression struct {
	Token     token.Token // the '(' token
	Function  Expression
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CallExpression) String() string {
	var out bytes.Buffer

	args := []string{}
	for _, a := range ce.Arguments {
		args = append(args, a.String())
	}

	out.WriteString(ce.Function.String())
	out.WriteString("(")
	out.WriteString(strings.Join(args, ", "))
	out.WriteString(")")

	return out.String()
}

// MethodCallExpression is `recv:name(args)`. The receiver is evaluated once
// and passed as the first argument.
type MethodCallExpression struct {
	Token     token.Token // the ':' token
	Receiver  Expression
	Method    string
	Arguments []Expression
}

func (mc *MethodCallExpression) expressionNode()      {}
func (mc *MethodCallExpression) TokenLiteral() string { return mc.Token.Literal }
func (mc *MethodCallExpression) String() string {
	var out bytes.Buffer

	args := []string{}
	for _, a := range mc.Arguments {
		args = append(args, a.String())
	}

	out.WriteString(mc.Receiver.String())
	out.WriteString(":")
	out.WriteString(mc.Method)
	out.WriteString("(")
	out.WriteString(strings.Join(args, ", "))
	out.WriteString(")")

	return out.String()
}

// IndexExpression covers both `t[k]` and `t.name`; the parser desugars the
// dot form into a StringLiteral index.
type IndexExpression struct {
	Token token.Token // the '[' or '.' token
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) expressionNode()      {}
func (ie *IndexExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IndexExpression) String() string {
	var out bytes.Buffer

	out.WriteString("(")
	out.WriteString(ie.Left.String())
	out.WriteString("[")
	out.WriteString(ie.Index.String())
	out.WriteString("])")

	return out.String()
}

// TableField is one entry in a table constructor. Key == nil marks a
// positional (array) entry.
type TableField struct {
	Key   Expression
	Value Expression
}

type TableLiteral struct {
	Token  token.Token // the '{' token
	Fields []*TableField
}

func (tl *TableLiteral) expressionNode()      {}
func (tl *TableLiteral) TokenLiteral() string { return tl.Token.Literal }
func (tl *TableLiteral) String() string {
	var out bytes.Buffer

	fields := []string{}
	for _, f := range tl.Fields {
		if f.Key != nil {
			fields = append(fields, "["+f.Key.String()+"] = "+f.Value.String())
		} else {
			fields = append(fields, f.Value.String())
		}
	}

	out.WriteString("{")
	out.WriteString(strings.Join(fields, ", "))
	out.WriteString("}")

	return out.String()
}
