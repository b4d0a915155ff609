package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"moss/internal/ast"
	"reflect"
	"strconv"
)

// WalkAST recursively traverses an AST and serializes it into a machine-centric map structure.
// This output is designed for stability, canonical representation, and tool-chain consumption.
func WalkAST(node ast.Node) interface{} {
	if node == nil || (reflect.ValueOf(node).Kind() == reflect.Ptr && reflect.ValueOf(node).IsNil()) {
		return nil
	}

	switch n := node.(type) {
	case *ast.Program:
		statements := make([]interface{}, len(n.Statements))
		for i, s := range n.Statements {
			statements[i] = WalkAST(s)
		}
		return map[string]interface{}{
			"type":       "Program",
			"statements": statements,
		}

	case *ast.LocalStatement:
		return map[string]interface{}{
			"type":   "LocalStatement",
			"token":  n.TokenLiteral(),
			"names":  walkExpressions(identifiersAsExpressions(n.Names)),
			"values": walkExpressions(n.Values),
		}

	case *ast.AssignStatement:
		return map[string]interface{}{
			"type":    "AssignStatement",
			"token":   n.TokenLiteral(),
			"targets": walkExpressions(n.Targets),
			"values":  walkExpressions(n.Values),
		}

	case *ast.ReturnStatement:
		return map[string]interface{}{
			"type":   "ReturnStatement",
			"token":  n.TokenLiteral(),
			"values": walkExpressions(n.Values),
		}

	case *ast.BreakStatement:
		return map[string]interface{}{
			"type":  "BreakStatement",
			"token": n.TokenLiteral(),
		}

	case *ast.GotoStatement:
		return map[string]interface{}{
			"type":  "GotoStatement",
			"token": n.TokenLiteral(),
			"label": n.Label,
		}

	case *ast.LabelStatement:
		return map[string]interface{}{
			"type":  "LabelStatement",
			"token": n.TokenLiteral(),
			"name":  n.Name,
		}

	case *ast.ExpressionStatement:
		return map[string]interface{}{
			"type":       "ExpressionStatement",
			"token":      safeTokenLiteral(n),
			"expression": WalkAST(n.Expression),
		}

	case *ast.BlockStatement:
		statements := make([]interface{}, len(n.Statements))
		for i, s := range n.Statements {
			statements[i] = WalkAST(s)
		}
		return map[string]interface{}{
			"type":       "BlockStatement",
			"token":      n.TokenLiteral(),
			"statements": statements,
		}

	case *ast.DoStatement:
		return map[string]interface{}{
			"type":  "DoStatement",
			"token": n.TokenLiteral(),
			"body":  WalkAST(n.Body),
		}

	case *ast.WhileStatement:
		return map[string]interface{}{
			"type":      "WhileStatement",
			"token":     n.TokenLiteral(),
			"condition": WalkAST(n.Condition),
			"body":      WalkAST(n.Body),
		}

	case *ast.RepeatStatement:
		return map[string]interface{}{
			"type":      "RepeatStatement",
			"token":     n.TokenLiteral(),
			"body":      WalkAST(n.Body),
			"condition": WalkAST(n.Condition),
		}

	case *ast.IfStatement:
		return map[string]interface{}{
			"type":      "IfStatement",
			"token":     n.TokenLiteral(),
			"condition": WalkAST(n.Condition),
			"then":      WalkAST(n.Then),
			"else":      WalkAST(n.Else),
		}

	case *ast.NumericForStatement:
		return map[string]interface{}{
			"type":  "NumericForStatement",
			"token": n.TokenLiteral(),
			"var":   WalkAST(n.Var),
			"start": WalkAST(n.Start),
			"stop":  WalkAST(n.Stop),
			"step":  WalkAST(n.Step),
			"body":  WalkAST(n.Body),
		}

	case *ast.GenericForStatement:
		return map[string]interface{}{
			"type":  "GenericForStatement",
			"token": n.TokenLiteral(),
			"names": walkExpressions(identifiersAsExpressions(n.Names)),
			"exprs": walkExpressions(n.Exprs),
			"body":  WalkAST(n.Body),
		}

	case *ast.FunctionStatement:
		return map[string]interface{}{
			"type":     "FunctionStatement",
			"token":    n.TokenLiteral(),
			"name":     WalkAST(n.Name),
			"isMethod": n.IsMethod,
			"function": WalkAST(n.Function),
		}

	case *ast.LocalFunctionStatement:
		return map[string]interface{}{
			"type":     "LocalFunctionStatement",
			"token":    n.TokenLiteral(),
			"name":     WalkAST(n.Name),
			"function": WalkAST(n.Function),
		}

	case *ast.Identifier:
		return map[string]interface{}{
			"type":  "Identifier",
			"token": safeTokenLiteral(n),
			"value": n.Value,
		}

	case *ast.Boolean:
		return map[string]interface{}{
			"type":  "Boolean",
			"token": n.TokenLiteral(),
			"value": n.Value,
		}

	case *ast.Nil:
		return map[string]interface{}{
			"type":  "Nil",
			"token": n.TokenLiteral(),
		}

	case *ast.NumberLiteral:
		return map[string]interface{}{
			"type":  "NumberLiteral",
			"token": safeTokenLiteral(n),
			"value": strconv.FormatFloat(n.Value, 'g', -1, 64),
		}

	case *ast.StringLiteral:
		return map[string]interface{}{
			"type":  "StringLiteral",
			"token": n.TokenLiteral(),
			"value": n.Value,
		}

	case *ast.Vararg:
		return map[string]interface{}{
			"type":  "Vararg",
			"token": n.TokenLiteral(),
		}

	case *ast.PrefixExpression:
		return map[string]interface{}{
			"type":     "PrefixExpression",
			"token":    n.TokenLiteral(),
			"operator": n.Operator,
			"right":    WalkAST(n.Right),
		}

	case *ast.InfixExpression:
		return map[string]interface{}{
			"type":     "InfixExpression",
			"token":    n.TokenLiteral(),
			"left":     WalkAST(n.Left),
			"operator": n.Operator,
			"right":    WalkAST(n.Right),
		}

	case *ast.FunctionLiteral:
		params := make([]interface{}, len(n.Parameters))
		for i, p := range n.Parameters {
			params[i] = WalkAST(p)
		}
		return map[string]interface{}{
			"type":       "FunctionLiteral",
			"token":      n.TokenLiteral(),
			"parameters": params,
			"isVariadic": n.IsVariadic,
			"body":       WalkAST(n.Body),
		}

	case *ast.CallExpression:
		return map[string]interface{}{
			"type":      "CallExpression",
			"token":     safeTokenLiteral(n),
			"function":  WalkAST(n.Function),
			"arguments": walkExpressions(n.Arguments),
		}

	case *ast.MethodCallExpression:
		return map[string]interface{}{
			"type":      "MethodCallExpression",
			"token":     safeTokenLiteral(n),
			"receiver":  WalkAST(n.Receiver),
			"method":    n.Method,
			"arguments": walkExpressions(n.Arguments),
		}

	case *ast.IndexExpression:
		return map[string]interface{}{
			"type":  "IndexExpression",
			"token": safeTokenLiteral(n),
			"left":  WalkAST(n.Left),
			"index": WalkAST(n.Index),
		}

	case *ast.TableLiteral:
		fields := make([]interface{}, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = map[string]interface{}{
				"key":   WalkAST(f.Key),
				"value": WalkAST(f.Value),
			}
		}
		return map[string]interface{}{
			"type":   "TableLiteral",
			"token":  n.TokenLiteral(),
			"fields": fields,
		}

	default:
		return map[string]interface{}{
			"type": "Unknown",
			"node": fmt.Sprintf("%T", n),
		}
	}
}

func walkExpressions(exprs []ast.Expression) []interface{} {
	result := make([]interface{}, len(exprs))
	for i, e := range exprs {
		result[i] = WalkAST(e)
	}
	return result
}

func identifiersAsExpressions(idents []*ast.Identifier) []ast.Expression {
	exprs := make([]ast.Expression, len(idents))
	for i, id := range idents {
		exprs[i] = id
	}
	return exprs
}

func safeTokenLiteral(node ast.Node) string {
	if node == nil || (reflect.ValueOf(node).Kind() == reflect.Ptr && reflect.ValueOf(node).IsNil()) {
		return ""
	}
	return node.TokenLiteral()
}

func RenderASTAsJSON(node ast.Node) (string, error) {
	astMap := WalkAST(node)
	buf := new(bytes.Buffer)
	encoder := json.NewEncoder(buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(astMap); err != nil {
		return "", fmt.Errorf("failed to encode JSON: %v", err)
	}
	return buf.String(), nil
}
