package evaluator

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"

	"moss/internal/ast"
	"moss/internal/object"
	"moss/internal/util"
)

const DefaultMaxCallDepth = 1000

// Evaluator walks the AST and carries the interpreter state: the global
// scope, the module loader, the current source position and the call depth.
type Evaluator struct {
	globals   *object.Environment
	loader    *ModuleLoader
	Out       io.Writer
	maxDepth  int
	stringLib *object.Table

	depth int
	file  string
	src   string
	pos   int
}

// New wires up an evaluator with its global scope, core builtins and
// standard library tables. loader may be nil when require() is not needed,
// e.g. in the REPL without search roots.
func New(loader *ModuleLoader) *Evaluator {
	e := &Evaluator{
		globals:  object.NewEnvironment(),
		loader:   loader,
		Out:      os.Stdout,
		maxDepth: DefaultMaxCallDepth,
	}

	for name, builtin := range builtins {
		e.globals.Define(name, builtin)
	}
	e.stringLib = stringLibrary()
	e.globals.Define("string", e.stringLib)
	e.globals.Define("math", mathLibrary())
	e.globals.Define("table", tableLibrary())
	e.globals.Define("os", osLibrary())
	e.globals.Define("io", ioLibrary())
	e.globals.Define("db", dbLibrary())
	e.globals.Define("coroutine", coroutineLibrary())

	return e
}

// SetMaxCallDepth overrides the recursion limit. Values below 1 are ignored.
func (e *Evaluator) SetMaxCallDepth(depth int) {
	if depth >= 1 {
		e.maxDepth = depth
	}
}

// RunProgram evaluates a whole script. file and src feed error positions.
func (e *Evaluator) RunProgram(program *ast.Program, file, src string) object.Object {
	e.file = file
	e.src = src
	return e.evalProgram(program, e.globals)
}

// Globals implements object.Context.
func (e *Evaluator) Globals() *object.Environment { return e.globals }

// Output implements object.Context.
func (e *Evaluator) Output() io.Writer { return e.Out }

// Location implements object.Context.
func (e *Evaluator) Location() string {
	if e.src == "" {
		return ""
	}
	line, _ := util.GetLineAndColumn(e.src, e.pos)
	return fmt.Sprintf("%s:%d", e.file, line)
}

// LoadModule implements object.Context.
func (e *Evaluator) LoadModule(name string) object.Object {
	if e.loader == nil {
		return e.newError("module loading is not available")
	}
	return e.loader.Load(name, e)
}

func (e *Evaluator) evalProgram(program *ast.Program, env *object.Environment) object.Object {
	var result object.Object = object.NIL

	statements := program.Statements
	i := 0
	for i < len(statements) {
		result = e.evalStatement(statements[i], env)

		switch sig := result.(type) {
		case *object.ReturnValue:
			return firstOf(sig.Values)
		case *object.Error:
			return sig
		case *object.Break:
			return e.newError("break outside a loop")
		case *object.Goto:
			if idx, ok := findLabel(statements, sig.Label); ok {
				i = idx
				continue
			}
			return e.newError("no visible label '%s' for goto", sig.Label)
		}
		i++
	}

	return first(result)
}

func (e *Evaluator) evalStatement(stmt ast.Statement, env *object.Environment) object.Object {
	e.pos = stmt.Pos()

	switch stmt := stmt.(type) {
	case *ast.LocalStatement:
		return e.evalLocalStatement(stmt, env)
	case *ast.AssignStatement:
		return e.evalAssignStatement(stmt, env)
	case *ast.ReturnStatement:
		return e.evalReturnStatement(stmt, env)
	case *ast.BreakStatement:
		return &object.Break{}
	case *ast.GotoStatement:
		return &object.Goto{Label: stmt.Label}
	case *ast.LabelStatement:
		return object.NIL
	case *ast.ExpressionStatement:
		return e.evalExpression(stmt.Expression, env)
	case *ast.DoStatement:
		return e.evalBlock(stmt.Body, object.NewEnclosedEnvironment(env))
	case *ast.IfStatement:
		return e.evalIfStatement(stmt, env)
	case *ast.WhileStatement:
		return e.evalWhileStatement(stmt, env)
	case *ast.RepeatStatement:
		return e.evalRepeatStatement(stmt, env)
	case *ast.NumericForStatement:
		return e.evalNumericForStatement(stmt, env)
	case *ast.GenericForStatement:
		return e.evalGenericForStatement(stmt, env)
	case *ast.FunctionStatement:
		return e.evalFunctionStatement(stmt, env)
	case *ast.LocalFunctionStatement:
		return e.evalLocalFunctionStatement(stmt, env)
	default:
		return e.newError("unhandled statement %T", stmt)
	}
}

// evalBlock runs a statement list and resolves goto jumps whose label lives
// in this same list. Any other signal propagates to the enclosing block.
func (e *Evaluator) evalBlock(block *ast.BlockStatement, env *object.Environment) object.Object {
	var result object.Object = object.NIL

	statements := block.Statements
	i := 0
	for i < len(statements) {
		result = e.evalStatement(statements[i], env)

		switch sig := result.(type) {
		case *object.ReturnValue, *object.Break, *object.Error:
			return result
		case *object.Goto:
			if idx, ok := findLabel(statements, sig.Label); ok {
				i = idx
				continue
			}
			return result
		}
		i++
	}

	return result
}

func findLabel(statements []ast.Statement, label string) (int, bool) {
	for i, stmt := range statements {
		if l, ok := stmt.(*ast.LabelStatement); ok && l.Name == label {
			return i, true
		}
	}
	return 0, false
}

func (e *Evaluator) evalLocalStatement(stmt *ast.LocalStatement, env *object.Environment) object.Object {
	values, err := e.evalExpressionList(stmt.Values, env)
	if err != nil {
		return err
	}

	for i, name := range stmt.Names {
		env.Define(name.Value, valueAt(values, i))
	}
	return object.NIL
}

func (e *Evaluator) evalAssignStatement(stmt *ast.AssignStatement, env *object.Environment) object.Object {
	values, err := e.evalExpressionList(stmt.Values, env)
	if err != nil {
		return err
	}

	for i, target := range stmt.Targets {
		value := valueAt(values, i)
		switch target := target.(type) {
		case *ast.Identifier:
			env.Assign(target.Value, value)
		case *ast.IndexExpression:
			left := first(e.evalExpression(target.Left, env))
			if isError(left) {
				return left
			}
			key := first(e.evalExpression(target.Index, env))
			if isError(key) {
				return key
			}
			if err := e.setIndex(left, key, value); err != nil {
				return err
			}
		default:
			return e.newError("cannot assign to %s", target.String())
		}
	}
	return object.NIL
}

func (e *Evaluator) evalReturnStatement(stmt *ast.ReturnStatement, env *object.Environment) object.Object {
	values, err := e.evalExpressionList(stmt.Values, env)
	if err != nil {
		return err
	}
	return &object.ReturnValue{Values: values}
}

func (e *Evaluator) evalIfStatement(stmt *ast.IfStatement, env *object.Environment) object.Object {
	condition := first(e.evalExpression(stmt.Condition, env))
	if isError(condition) {
		return condition
	}

	if object.IsTruthy(condition) {
		return e.evalBlock(stmt.Then, object.NewEnclosedEnvironment(env))
	}

	switch alt := stmt.Else.(type) {
	case *ast.IfStatement:
		return e.evalIfStatement(alt, env)
	case *ast.BlockStatement:
		return e.evalBlock(alt, object.NewEnclosedEnvironment(env))
	}
	return object.NIL
}

func (e *Evaluator) evalWhileStatement(stmt *ast.WhileStatement, env *object.Environment) object.Object {
	for {
		condition := first(e.evalExpression(stmt.Condition, env))
		if isError(condition) {
			return condition
		}
		if !object.IsTruthy(condition) {
			return object.NIL
		}

		result := e.evalBlock(stmt.Body, object.NewEnclosedEnvironment(env))
		switch result.(type) {
		case *object.Break:
			return object.NIL
		case *object.ReturnValue, *object.Error, *object.Goto:
			return result
		}
	}
}

func (e *Evaluator) evalRepeatStatement(stmt *ast.RepeatStatement, env *object.Environment) object.Object {
	for {
		// the until condition sees the body's locals
		loopEnv := object.NewEnclosedEnvironment(env)

		result := e.evalBlock(stmt.Body, loopEnv)
		switch result.(type) {
		case *object.Break:
			return object.NIL
		case *object.ReturnValue, *object.Error, *object.Goto:
			return result
		}

		condition := first(e.evalExpression(stmt.Condition, loopEnv))
		if isError(condition) {
			return condition
		}
		if object.IsTruthy(condition) {
			return object.NIL
		}
	}
}

func (e *Evaluator) evalNumericForStatement(stmt *ast.NumericForStatement, env *object.Environment) object.Object {
	start, err := e.evalLoopBound(stmt.Start, env, "initial")
	if err != nil {
		return err
	}
	stop, err := e.evalLoopBound(stmt.Stop, env, "limit")
	if err != nil {
		return err
	}

	step := 1.0
	if stmt.Step != nil {
		step, err = e.evalLoopBound(stmt.Step, env, "step")
		if err != nil {
			return err
		}
	}
	if step == 0 {
		return e.newError("'for' step is zero")
	}

	for i := start; (step > 0 && i <= stop) || (step < 0 && i >= stop); i += step {
		loopEnv := object.NewEnclosedEnvironment(env)
		loopEnv.Define(stmt.Var.Value, &object.Number{Value: i})

		result := e.evalBlock(stmt.Body, loopEnv)
		switch result.(type) {
		case *object.Break:
			return object.NIL
		case *object.ReturnValue, *object.Error, *object.Goto:
			return result
		}
	}
	return object.NIL
}

func (e *Evaluator) evalLoopBound(expr ast.Expression, env *object.Environment, what string) (float64, *object.Error) {
	value := first(e.evalExpression(expr, env))
	if err, ok := value.(*object.Error); ok {
		return 0, err
	}
	n, ok := object.ToNumber(value)
	if !ok {
		return 0, e.newError("'for' %s value must be a number", what)
	}
	return n, nil
}

// evalGenericForStatement drives the iterator protocol: the expression list
// is adjusted to (iterator, state, control) and the iterator is called until
// its first result is nil. A bare table iterates its entries directly.
func (e *Evaluator) evalGenericForStatement(stmt *ast.GenericForStatement, env *object.Environment) object.Object {
	values, err := e.evalExpressionList(stmt.Exprs, env)
	if err != nil {
		return err
	}

	iterator := valueAt(values, 0)
	if table, ok := iterator.(*object.Table); ok {
		return e.evalTableFor(stmt, table, env)
	}
	state := valueAt(values, 1)
	control := valueAt(values, 2)

	for {
		result := e.applyFunction(iterator, []object.Object{state, control})
		if isError(result) {
			return result
		}
		results := spread(result)

		if valueAt(results, 0) == object.NIL {
			return object.NIL
		}
		control = valueAt(results, 0)

		loopEnv := object.NewEnclosedEnvironment(env)
		for i, name := range stmt.Names {
			loopEnv.Define(name.Value, valueAt(results, i))
		}

		bodyResult := e.evalBlock(stmt.Body, loopEnv)
		switch bodyResult.(type) {
		case *object.Break:
			return object.NIL
		case *object.ReturnValue, *object.Error, *object.Goto:
			return bodyResult
		}
	}
}

// evalTableFor iterates a table used directly as the for iterable. The
// entries are snapshotted before the first body run, so the body can add or
// remove keys without disturbing the traversal.
func (e *Evaluator) evalTableFor(stmt *ast.GenericForStatement, table *object.Table, env *object.Environment) object.Object {
	entries := make([]object.TablePair, 0, len(table.Keys()))
	for _, mk := range table.Keys() {
		entries = append(entries, table.Pairs[mk])
	}

	for _, entry := range entries {
		loopEnv := object.NewEnclosedEnvironment(env)
		pair := []object.Object{entry.Key, entry.Value}
		for i, name := range stmt.Names {
			loopEnv.Define(name.Value, valueAt(pair, i))
		}

		bodyResult := e.evalBlock(stmt.Body, loopEnv)
		switch bodyResult.(type) {
		case *object.Break:
			return object.NIL
		case *object.ReturnValue, *object.Error, *object.Goto:
			return bodyResult
		}
	}
	return object.NIL
}

func (e *Evaluator) evalFunctionStatement(stmt *ast.FunctionStatement, env *object.Environment) object.Object {
	fn := stmt.Function
	closure := object.NewClosure(fn.Parameters, fn.IsVariadic, fn.Body, env)
	closure.Name = stmt.Name.String()

	switch name := stmt.Name.(type) {
	case *ast.Identifier:
		env.Assign(name.Value, closure)
	case *ast.IndexExpression:
		left := first(e.evalExpression(name.Left, env))
		if isError(left) {
			return left
		}
		key := first(e.evalExpression(name.Index, env))
		if isError(key) {
			return key
		}
		if err := e.setIndex(left, key, closure); err != nil {
			return err
		}
	}
	return object.NIL
}

func (e *Evaluator) evalLocalFunctionStatement(stmt *ast.LocalFunctionStatement, env *object.Environment) object.Object {
	// the name is bound before the body so the function can call itself
	env.Define(stmt.Name.Value, object.NIL)

	fn := stmt.Function
	closure := object.NewClosure(fn.Parameters, fn.IsVariadic, fn.Body, env)
	closure.Name = stmt.Name.Value

	env.Assign(stmt.Name.Value, closure)
	return object.NIL
}

func (e *Evaluator) evalExpression(expr ast.Expression, env *object.Environment) object.Object {
	switch expr := expr.(type) {
	case *ast.Nil:
		return object.NIL
	case *ast.Boolean:
		return nativeBoolToBooleanObject(expr.Value)
	case *ast.NumberLiteral:
		return &object.Number{Value: expr.Value}
	case *ast.StringLiteral:
		return &object.String{Value: expr.Value}
	case *ast.Identifier:
		return e.evalIdentifier(expr, env)
	case *ast.Vararg:
		return e.evalVararg(env)
	case *ast.PrefixExpression:
		return e.evalPrefixExpression(expr, env)
	case *ast.InfixExpression:
		if expr.Operator == "and" || expr.Operator == "or" {
			return e.evalLogicalExpression(expr, env)
		}
		left := first(e.evalExpression(expr.Left, env))
		if isError(left) {
			return left
		}
		right := first(e.evalExpression(expr.Right, env))
		if isError(right) {
			return right
		}
		return e.evalInfixExpression(expr.Operator, left, right)
	case *ast.FunctionLiteral:
		return object.NewClosure(expr.Parameters, expr.IsVariadic, expr.Body, env)
	case *ast.CallExpression:
		return e.evalCallExpression(expr, env)
	case *ast.MethodCallExpression:
		return e.evalMethodCallExpression(expr, env)
	case *ast.IndexExpression:
		left := first(e.evalExpression(expr.Left, env))
		if isError(left) {
			return left
		}
		key := first(e.evalExpression(expr.Index, env))
		if isError(key) {
			return key
		}
		return e.index(left, key)
	case *ast.TableLiteral:
		return e.evalTableLiteral(expr, env)
	default:
		return e.newError("unhandled expression %T", expr)
	}
}

func (e *Evaluator) evalIdentifier(ident *ast.Identifier, env *object.Environment) object.Object {
	if value, ok := env.Get(ident.Value); ok {
		return value
	}
	// an unknown name reads as nil, like any absent global
	return object.NIL
}

func (e *Evaluator) evalVararg(env *object.Environment) object.Object {
	if values, ok := env.Get("..."); ok {
		if v, ok := values.(*object.Values); ok {
			return &object.Values{Elements: v.Elements}
		}
	}
	return e.newError("cannot use '...' outside a variadic function")
}

func (e *Evaluator) evalLogicalExpression(expr *ast.InfixExpression, env *object.Environment) object.Object {
	left := first(e.evalExpression(expr.Left, env))
	if isError(left) {
		return left
	}

	if expr.Operator == "and" {
		if !object.IsTruthy(left) {
			return left
		}
	} else {
		if object.IsTruthy(left) {
			return left
		}
	}
	return first(e.evalExpression(expr.Right, env))
}

func (e *Evaluator) evalPrefixExpression(expr *ast.PrefixExpression, env *object.Environment) object.Object {
	right := first(e.evalExpression(expr.Right, env))
	if isError(right) {
		return right
	}

	switch expr.Operator {
	case "not":
		return nativeBoolToBooleanObject(!object.IsTruthy(right))
	case "-":
		if n, ok := object.ToNumber(right); ok {
			return &object.Number{Value: -n}
		}
		if h := e.metamethod(right, "__unm"); h != nil {
			return first(e.applyFunction(h, []object.Object{right, right}))
		}
		return e.newError("attempt to perform arithmetic on a %s value", right.Type())
	case "#":
		return e.length(right)
	case "~":
		n, err := e.toInteger(right)
		if err != nil {
			return err
		}
		return &object.Number{Value: float64(^n)}
	default:
		return e.newError("unknown operator: %s%s", expr.Operator, right.Type())
	}
}

func (e *Evaluator) length(value object.Object) object.Object {
	switch value := value.(type) {
	case *object.String:
		return &object.Number{Value: float64(len(value.Value))}
	case *object.Table:
		if h := e.metamethod(value, "__len"); h != nil {
			return first(e.applyFunction(h, []object.Object{value}))
		}
		return &object.Number{Value: float64(value.Len())}
	default:
		if h := e.metamethod(value, "__len"); h != nil {
			return first(e.applyFunction(h, []object.Object{value}))
		}
		return e.newError("attempt to get length of a %s value", value.Type())
	}
}

var arithMetamethods = map[string]string{
	"+":  "__add",
	"-":  "__sub",
	"*":  "__mul",
	"/":  "__div",
	"%":  "__mod",
	"^":  "__pow",
	"//": "__idiv",
}

func (e *Evaluator) evalInfixExpression(operator string, left, right object.Object) object.Object {
	switch operator {
	case "==":
		return nativeBoolToBooleanObject(e.valuesEqual(left, right))
	case "~=":
		return nativeBoolToBooleanObject(!e.valuesEqual(left, right))
	case "<", "<=", ">", ">=":
		return e.evalComparison(operator, left, right)
	case "..":
		return e.evalConcat(left, right)
	case "&", "|", "~", "<<", ">>":
		return e.evalBitwise(operator, left, right)
	case "+", "-", "*", "/", "%", "^", "//":
		return e.evalArithmetic(operator, left, right)
	default:
		return e.newError("unknown operator: %s %s %s", left.Type(), operator, right.Type())
	}
}

func (e *Evaluator) evalArithmetic(operator string, left, right object.Object) object.Object {
	l, lok := object.ToNumber(left)
	r, rok := object.ToNumber(right)

	if !lok || !rok {
		if h := e.binaryMetamethod(left, right, arithMetamethods[operator]); h != nil {
			return first(e.applyFunction(h, []object.Object{left, right}))
		}
		offender := left
		if lok {
			offender = right
		}
		return e.newError("attempt to perform arithmetic on a %s value", offender.Type())
	}

	switch operator {
	case "+":
		return &object.Number{Value: l + r}
	case "-":
		return &object.Number{Value: l - r}
	case "*":
		return &object.Number{Value: l * r}
	case "/":
		if r == 0 {
			return e.newError("division by zero")
		}
		return &object.Number{Value: l / r}
	case "//":
		if r == 0 {
			return e.newError("division by zero")
		}
		return &object.Number{Value: math.Floor(l / r)}
	case "%":
		if r == 0 {
			return e.newError("attempt to perform 'n%%0'")
		}
		// the result keeps the sign of the divisor
		return &object.Number{Value: l - math.Floor(l/r)*r}
	case "^":
		return &object.Number{Value: math.Pow(l, r)}
	default:
		return e.newError("unknown arithmetic operator: %s", operator)
	}
}

func (e *Evaluator) evalComparison(operator string, left, right object.Object) object.Object {
	if ln, ok := left.(*object.Number); ok {
		if rn, ok := right.(*object.Number); ok {
			return nativeBoolToBooleanObject(compareFloats(operator, ln.Value, rn.Value))
		}
	}
	if ls, ok := left.(*object.String); ok {
		if rs, ok := right.(*object.String); ok {
			return nativeBoolToBooleanObject(compareStrings(operator, ls.Value, rs.Value))
		}
	}

	// flip > and >= so metamethods only need __lt and __le
	name, flipped := "__lt", false
	switch operator {
	case "<=":
		name = "__le"
	case ">":
		flipped = true
	case ">=":
		name, flipped = "__le", true
	}
	a, b := left, right
	if flipped {
		a, b = right, left
	}
	if h := e.binaryMetamethod(a, b, name); h != nil {
		result := first(e.applyFunction(h, []object.Object{a, b}))
		if isError(result) {
			return result
		}
		return nativeBoolToBooleanObject(object.IsTruthy(result))
	}

	return e.newError("attempt to compare %s with %s", left.Type(), right.Type())
}

func compareFloats(operator string, l, r float64) bool {
	switch operator {
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	default:
		return l >= r
	}
}

func compareStrings(operator string, l, r string) bool {
	switch operator {
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	default:
		return l >= r
	}
}

func (e *Evaluator) evalConcat(left, right object.Object) object.Object {
	ls, lok := concatString(left)
	rs, rok := concatString(right)
	if lok && rok {
		return &object.String{Value: ls + rs}
	}

	if h := e.binaryMetamethod(left, right, "__concat"); h != nil {
		return first(e.applyFunction(h, []object.Object{left, right}))
	}

	offender := left
	if lok {
		offender = right
	}
	return e.newError("attempt to concatenate a %s value", offender.Type())
}

func concatString(obj object.Object) (string, bool) {
	switch obj := obj.(type) {
	case *object.String:
		return obj.Value, true
	case *object.Number:
		return obj.Inspect(), true
	default:
		return "", false
	}
}

func (e *Evaluator) evalBitwise(operator string, left, right object.Object) object.Object {
	l, err := e.toInteger(left)
	if err != nil {
		return err
	}
	r, err := e.toInteger(right)
	if err != nil {
		return err
	}

	switch operator {
	case "&":
		return &object.Number{Value: float64(l & r)}
	case "|":
		return &object.Number{Value: float64(l | r)}
	case "~":
		return &object.Number{Value: float64(l ^ r)}
	case "<<":
		return shiftLeft(l, r)
	default:
		return shiftLeft(l, -r)
	}
}

// shiftLeft implements both shift directions; shifts of 64 or more flush to
// zero instead of wrapping.
func shiftLeft(value, by int64) object.Object {
	if by <= -64 || by >= 64 {
		return &object.Number{Value: 0}
	}
	if by < 0 {
		return &object.Number{Value: float64(int64(uint64(value) >> uint64(-by)))}
	}
	return &object.Number{Value: float64(value << uint64(by))}
}

func (e *Evaluator) toInteger(obj object.Object) (int64, *object.Error) {
	n, ok := object.ToNumber(obj)
	if !ok {
		return 0, e.newError("attempt to perform bitwise operation on a %s value", obj.Type())
	}
	if n != math.Trunc(n) || math.IsInf(n, 0) || n < math.MinInt64 || n > math.MaxInt64 {
		return 0, e.newError("number has no integer representation")
	}
	return int64(n), nil
}

func (e *Evaluator) valuesEqual(left, right object.Object) bool {
	if object.Equals(left, right) {
		return true
	}
	// __eq fires only when both operands are tables or both are userdata
	if left.Type() != right.Type() {
		return false
	}
	if left.Type() != object.TABLE_OBJ && left.Type() != object.USERDATA_OBJ {
		return false
	}
	if h := e.binaryMetamethod(left, right, "__eq"); h != nil {
		result := first(e.applyFunction(h, []object.Object{left, right}))
		return object.IsTruthy(result)
	}
	return false
}

func (e *Evaluator) evalCallExpression(expr *ast.CallExpression, env *object.Environment) object.Object {
	fn := first(e.evalExpression(expr.Function, env))
	if isError(fn) {
		return fn
	}

	args, err := e.evalExpressionList(expr.Arguments, env)
	if err != nil {
		return err
	}

	return e.applyFunction(fn, args)
}

func (e *Evaluator) evalMethodCallExpression(expr *ast.MethodCallExpression, env *object.Environment) object.Object {
	receiver := first(e.evalExpression(expr.Receiver, env))
	if isError(receiver) {
		return receiver
	}

	method := e.index(receiver, &object.String{Value: expr.Method})
	if isError(method) {
		return method
	}

	args, err := e.evalExpressionList(expr.Arguments, env)
	if err != nil {
		return err
	}

	return e.applyFunction(method, append([]object.Object{receiver}, args...))
}

// ApplyFunction implements object.Context.
func (e *Evaluator) ApplyFunction(fn object.Object, args []object.Object) object.Object {
	return e.applyFunction(fn, args)
}

func (e *Evaluator) applyFunction(fn object.Object, args []object.Object) object.Object {
	if e.depth >= e.maxDepth {
		return e.newError("maximum call depth %d exceeded", e.maxDepth)
	}
	e.depth++
	defer func() { e.depth-- }()

	switch fn := fn.(type) {
	case *object.Closure:
		env := extendFunctionEnv(fn, args)
		result := e.evalBlock(fn.Body, env)
		switch sig := result.(type) {
		case *object.ReturnValue:
			return &object.Values{Elements: sig.Values}
		case *object.Error:
			return sig
		case *object.Break:
			return e.newError("break outside a loop")
		case *object.Goto:
			return e.newError("no visible label '%s' for goto", sig.Label)
		}
		return &object.Values{Elements: nil}

	case *object.Builtin:
		return fn.Fn(e, args...)

	default:
		if h := e.metamethod(fn, "__call"); h != nil {
			return e.applyFunction(h, append([]object.Object{fn}, args...))
		}
		return e.newError("attempt to call a %s value", fn.Type())
	}
}

func extendFunctionEnv(fn *object.Closure, args []object.Object) *object.Environment {
	env := object.NewEnclosedEnvironment(fn.Env)

	for i, param := range fn.Parameters {
		env.Define(param.Value, valueAt(args, i))
	}

	if fn.IsVariadic {
		var extra []object.Object
		if len(args) > len(fn.Parameters) {
			extra = append(extra, args[len(fn.Parameters):]...)
		}
		env.Define("...", &object.Values{Elements: extra})
	}

	return env
}

// index resolves value[key] honoring __index chains. An __index function is
// called with (value, key).
func (e *Evaluator) index(value, key object.Object) object.Object {
	switch value := value.(type) {
	case *object.Table:
		raw := value.Get(key)
		if raw != object.NIL {
			return raw
		}
		if h := e.metamethod(value, "__index"); h != nil {
			if target, ok := h.(*object.Table); ok {
				return e.index(target, key)
			}
			return first(e.applyFunction(h, []object.Object{value, key}))
		}
		return object.NIL

	case *object.String:
		// strings answer methods from the string library: ("x"):rep(2)
		return e.stringLib.Get(key)

	case *object.UserData:
		if h := e.metamethod(value, "__index"); h != nil {
			if target, ok := h.(*object.Table); ok {
				return e.index(target, key)
			}
			return first(e.applyFunction(h, []object.Object{value, key}))
		}
		return object.NIL

	default:
		return e.newError("attempt to index a %s value", value.Type())
	}
}

// setIndex resolves value[key] = v honoring __newindex.
func (e *Evaluator) setIndex(value, key, v object.Object) *object.Error {
	switch value := value.(type) {
	case *object.Table:
		if value.Get(key) == object.NIL {
			if h := e.metamethod(value, "__newindex"); h != nil {
				if target, ok := h.(*object.Table); ok {
					return e.setIndex(target, key, v)
				}
				result := e.applyFunction(h, []object.Object{value, key, v})
				if err, ok := result.(*object.Error); ok {
					return err
				}
				return nil
			}
		}
		if err := value.Set(key, v); err != nil {
			return e.newError("%s", err.Error())
		}
		return nil

	case *object.UserData:
		if h := e.metamethod(value, "__newindex"); h != nil {
			if target, ok := h.(*object.Table); ok {
				return e.setIndex(target, key, v)
			}
			result := e.applyFunction(h, []object.Object{value, key, v})
			if err, ok := result.(*object.Error); ok {
				return err
			}
			return nil
		}
		return e.newError("attempt to index a %s value", value.Type())

	default:
		return e.newError("attempt to index a %s value", value.Type())
	}
}

func (e *Evaluator) evalTableLiteral(expr *ast.TableLiteral, env *object.Environment) object.Object {
	table := object.NewTable()
	arrayIndex := 1

	for i, field := range expr.Fields {
		if field.Key != nil {
			key := first(e.evalExpression(field.Key, env))
			if isError(key) {
				return key
			}
			value := first(e.evalExpression(field.Value, env))
			if isError(value) {
				return value
			}
			if err := table.Set(key, value); err != nil {
				return e.newError("%s", err.Error())
			}
			continue
		}

		value := e.evalExpression(field.Value, env)
		if isError(value) {
			return value
		}

		// a trailing multi-value expression spreads into the array part
		if i == len(expr.Fields)-1 {
			for _, element := range spread(value) {
				if element == object.NIL {
					arrayIndex++
					continue
				}
				if err := table.Set(&object.Number{Value: float64(arrayIndex)}, element); err != nil {
					return e.newError("%s", err.Error())
				}
				arrayIndex++
			}
			continue
		}

		single := first(value)
		if single != object.NIL {
			if err := table.Set(&object.Number{Value: float64(arrayIndex)}, single); err != nil {
				return e.newError("%s", err.Error())
			}
		}
		arrayIndex++
	}

	return table
}

// evalExpressionList evaluates an expression list with the adjustment rule:
// every expression but the last contributes exactly one value, the last
// spreads all of its values.
func (e *Evaluator) evalExpressionList(exprs []ast.Expression, env *object.Environment) ([]object.Object, *object.Error) {
	var values []object.Object

	for i, expr := range exprs {
		result := e.evalExpression(expr, env)
		if err, ok := first(result).(*object.Error); ok {
			return nil, err
		}

		if i == len(exprs)-1 {
			values = append(values, spread(result)...)
		} else {
			values = append(values, first(result))
		}
	}

	return values, nil
}

func (e *Evaluator) metamethod(value object.Object, name string) object.Object {
	var meta *object.Table
	switch value := value.(type) {
	case *object.Table:
		meta = value.Meta
	case *object.UserData:
		meta = value.Meta
	}
	if meta == nil {
		return nil
	}
	h := meta.Get(&object.String{Value: name})
	if h == object.NIL {
		return nil
	}
	return h
}

func (e *Evaluator) binaryMetamethod(left, right object.Object, name string) object.Object {
	if h := e.metamethod(left, name); h != nil {
		return h
	}
	return e.metamethod(right, name)
}

// ToDisplayString renders a value for print() and tostring(), honoring a
// __tostring metamethod.
func (e *Evaluator) ToDisplayString(value object.Object) (string, *object.Error) {
	if h := e.metamethod(value, "__tostring"); h != nil {
		result := first(e.applyFunction(h, []object.Object{value}))
		if err, ok := result.(*object.Error); ok {
			return "", err
		}
		return result.Inspect(), nil
	}
	return value.Inspect(), nil
}

// NewError implements object.Context.
func (e *Evaluator) NewError(format string, args ...interface{}) *object.Error {
	return e.newError(format, args...)
}

func (e *Evaluator) newError(format string, args ...interface{}) *object.Error {
	message := fmt.Sprintf(format, args...)
	if location := e.Location(); location != "" {
		message = location + ": " + message
	}
	slog.Debug("runtime error raised", "message", message)
	return &object.Error{Payload: &object.String{Value: message}}
}

func isError(obj object.Object) bool {
	if obj != nil {
		return obj.Type() == object.ERROR_OBJ
	}
	return false
}

func nativeBoolToBooleanObject(input bool) *object.Boolean {
	if input {
		return object.TRUE
	}
	return object.FALSE
}

// first adjusts a result to exactly one value.
func first(obj object.Object) object.Object {
	if values, ok := obj.(*object.Values); ok {
		return firstOf(values.Elements)
	}
	if obj == nil {
		return object.NIL
	}
	return obj
}

func firstOf(values []object.Object) object.Object {
	if len(values) == 0 {
		return object.NIL
	}
	return values[0]
}

// spread expands a result to its full value list.
func spread(obj object.Object) []object.Object {
	switch obj := obj.(type) {
	case *object.Values:
		return obj.Elements
	case nil:
		return nil
	default:
		return []object.Object{obj}
	}
}

func valueAt(values []object.Object, i int) object.Object {
	if i < len(values) {
		return values[i]
	}
	return object.NIL
}

// formatValues joins a value list for display, used by print and the REPL.
func formatValues(e *Evaluator, values []object.Object) (string, *object.Error) {
	parts := make([]string, len(values))
	for i, v := range values {
		s, err := e.ToDisplayString(v)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, "\t"), nil
}
