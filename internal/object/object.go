package object

import (
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	"moss/internal/ast"
)

type ObjectType string

// The user-visible types report themselves with the lowercase names that
// type() returns. The remaining types are interpreter-internal signals and
// never escape into script values.
const (
	NIL_OBJ      = "nil"
	BOOLEAN_OBJ  = "boolean"
	NUMBER_OBJ   = "number"
	STRING_OBJ   = "string"
	TABLE_OBJ    = "table"
	FUNCTION_OBJ = "function"
	USERDATA_OBJ = "userdata"

	VALUES_OBJ       = "VALUES"
	RETURN_VALUE_OBJ = "RETURN_VALUE"
	BREAK_OBJ        = "BREAK"
	GOTO_OBJ         = "GOTO"
	ERROR_OBJ        = "ERROR"
)

type Object interface {
	Type() ObjectType
	Inspect() string
}

// MapKey is the hashable identity of an object when used as a table key.
// Reference types (tables, functions, userdata) hash by their ref id, so two
// structurally equal tables are still distinct keys.
type MapKey struct {
	Type  ObjectType
	Value uint64
}

type Hashable interface {
	MapKey() MapKey
}

// refCounter hands out identities for reference types. Ids start at 1 so the
// zero MapKey never collides with a live object.
var refCounter uint64

func nextRefID() uint64 {
	return atomic.AddUint64(&refCounter, 1)
}

type Nil struct{}

func (n *Nil) Type() ObjectType { return NIL_OBJ }
func (n *Nil) Inspect() string  { return "nil" }
func (n *Nil) MapKey() MapKey   { return MapKey{Type: n.Type(), Value: 0} }

type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }
func (b *Boolean) MapKey() MapKey {
	var value uint64
	if b.Value {
		value = 1
	}
	return MapKey{Type: b.Type(), Value: value}
}

type Number struct {
	Value float64
}

func (n *Number) Type() ObjectType { return NUMBER_OBJ }
func (n *Number) Inspect() string  { return FormatNumber(n.Value) }
func (n *Number) MapKey() MapKey {
	v := n.Value
	if v == 0 {
		v = 0 // collapse negative zero
	}
	return MapKey{Type: n.Type(), Value: math.Float64bits(v)}
}

// FormatNumber renders a number the way tostring() and print() show it:
// integral values without a decimal point, everything else with up to 14
// significant digits.
func FormatNumber(value float64) string {
	if math.IsInf(value, 1) {
		return "inf"
	}
	if math.IsInf(value, -1) {
		return "-inf"
	}
	if math.IsNaN(value) {
		return "nan"
	}
	return fmt.Sprintf("%.14g", value)
}

type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return s.Value }
func (s *String) MapKey() MapKey {
	h := fnv.New64a()
	h.Write([]byte(s.Value))
	return MapKey{Type: s.Type(), Value: h.Sum64()}
}

// TablePair keeps the original key object next to the value so iteration can
// hand the key back out.
type TablePair struct {
	Key   Object
	Value Object
}

// Table is the single structured data type: a hash part addressed by MapKey
// plus an insertion-order index that makes next() and pairs() deterministic.
type Table struct {
	id    uint64
	Pairs map[MapKey]TablePair
	order []MapKey
	Meta  *Table
}

func NewTable() *Table {
	return &Table{
		id:    nextRefID(),
		Pairs: make(map[MapKey]TablePair),
	}
}

func (t *Table) Type() ObjectType { return TABLE_OBJ }
func (t *Table) Inspect() string  { return fmt.Sprintf("table: 0x%08x", t.id) }
func (t *Table) MapKey() MapKey   { return MapKey{Type: t.Type(), Value: t.id} }

// Get performs a raw lookup, ignoring any metatable. A missing key yields NIL.
func (t *Table) Get(key Object) Object {
	hashable, ok := key.(Hashable)
	if !ok {
		return NIL
	}
	if pair, ok := t.Pairs[hashable.MapKey()]; ok {
		return pair.Value
	}
	return NIL
}

// Set performs a raw store, ignoring any metatable. Assigning nil removes the
// key. A nil or NaN key is rejected.
func (t *Table) Set(key Object, value Object) error {
	if key == nil || key.Type() == NIL_OBJ {
		return fmt.Errorf("table index is nil")
	}
	if num, ok := key.(*Number); ok && math.IsNaN(num.Value) {
		return fmt.Errorf("table index is NaN")
	}
	hashable, ok := key.(Hashable)
	if !ok {
		return fmt.Errorf("unusable table index: %s", key.Type())
	}

	mk := hashable.MapKey()
	_, exists := t.Pairs[mk]

	if value == nil || value.Type() == NIL_OBJ {
		if exists {
			delete(t.Pairs, mk)
			for i, k := range t.order {
				if k == mk {
					t.order = append(t.order[:i], t.order[i+1:]...)
					break
				}
			}
		}
		return nil
	}

	t.Pairs[mk] = TablePair{Key: key, Value: value}
	if !exists {
		t.order = append(t.order, mk)
	}
	return nil
}

// Len reports a border of the sequence part: the count of consecutive
// integer keys starting at 1.
func (t *Table) Len() int {
	n := 0
	for {
		mk := (&Number{Value: float64(n + 1)}).MapKey()
		if _, ok := t.Pairs[mk]; !ok {
			break
		}
		n++
	}
	return n
}

// Next steps the iteration order. A nil key starts it; after the final pair
// it reports false. A key that is absent from the table also reports false.
func (t *Table) Next(key Object) (Object, Object, bool) {
	if key == nil || key.Type() == NIL_OBJ {
		if len(t.order) == 0 {
			return nil, nil, false
		}
		pair := t.Pairs[t.order[0]]
		return pair.Key, pair.Value, true
	}

	hashable, ok := key.(Hashable)
	if !ok {
		return nil, nil, false
	}
	mk := hashable.MapKey()
	for i, k := range t.order {
		if k == mk {
			if i+1 >= len(t.order) {
				return nil, nil, false
			}
			pair := t.Pairs[t.order[i+1]]
			return pair.Key, pair.Value, true
		}
	}
	return nil, nil, false
}

// Keys returns the live insertion-order keys. Callers must not mutate it.
func (t *Table) Keys() []MapKey {
	return t.order
}

// Closure is a script function together with the environment it captured.
type Closure struct {
	id         uint64
	Parameters []*ast.Identifier
	IsVariadic bool
	Body       *ast.BlockStatement
	Env        *Environment
	Name       string // best-effort, for error messages
}

func NewClosure(params []*ast.Identifier, isVariadic bool, body *ast.BlockStatement, env *Environment) *Closure {
	return &Closure{
		id:         nextRefID(),
		Parameters: params,
		IsVariadic: isVariadic,
		Body:       body,
		Env:        env,
	}
}

func (c *Closure) Type() ObjectType { return FUNCTION_OBJ }
func (c *Closure) Inspect() string  { return fmt.Sprintf("function: 0x%08x", c.id) }
func (c *Closure) MapKey() MapKey   { return MapKey{Type: c.Type(), Value: c.id} }

type BuiltinFunction func(ctx Context, args ...Object) Object

// Builtin is a function implemented in Go. It shares the "function" type with
// closures so scripts cannot tell them apart.
type Builtin struct {
	id   uint64
	Name string
	Fn   BuiltinFunction
}

func NewBuiltin(name string, fn BuiltinFunction) *Builtin {
	return &Builtin{id: nextRefID(), Name: name, Fn: fn}
}

func (b *Builtin) Type() ObjectType { return FUNCTION_OBJ }
func (b *Builtin) Inspect() string  { return fmt.Sprintf("function: builtin %s", b.Name) }
func (b *Builtin) MapKey() MapKey   { return MapKey{Type: b.Type(), Value: b.id} }

// UserData wraps a native Go resource, like an open file or database handle,
// so scripts can hold and pass it around. Behavior comes from its metatable.
type UserData struct {
	id    uint64
	Kind  string
	Value interface{}
	Meta  *Table
}

func NewUserData(kind string, value interface{}) *UserData {
	return &UserData{id: nextRefID(), Kind: kind, Value: value}
}

func (u *UserData) Type() ObjectType { return USERDATA_OBJ }
func (u *UserData) Inspect() string  { return fmt.Sprintf("%s: 0x%08x", u.Kind, u.id) }
func (u *UserData) MapKey() MapKey   { return MapKey{Type: u.Type(), Value: u.id} }

// Values carries a multi-value expression result between evaluator steps.
// Adjustment to a single value always takes the first element.
type Values struct {
	Elements []Object
}

func (v *Values) Type() ObjectType { return VALUES_OBJ }
func (v *Values) Inspect() string {
	parts := make([]string, len(v.Elements))
	for i, e := range v.Elements {
		parts[i] = e.Inspect()
	}
	return strings.Join(parts, ", ")
}

type ReturnValue struct {
	Values []Object
}

func (rv *ReturnValue) Type() ObjectType { return RETURN_VALUE_OBJ }
func (rv *ReturnValue) Inspect() string {
	parts := make([]string, len(rv.Values))
	for i, e := range rv.Values {
		parts[i] = e.Inspect()
	}
	return strings.Join(parts, ", ")
}

type Break struct{}

func (b *Break) Type() ObjectType { return BREAK_OBJ }
func (b *Break) Inspect() string  { return "break" }

type Goto struct {
	Label string
}

func (g *Goto) Type() ObjectType { return GOTO_OBJ }
func (g *Goto) Inspect() string  { return "goto " + g.Label }

// Error is a raised runtime error in flight. Payload is the value passed to
// error(), usually a string already carrying position context.
type Error struct {
	Payload Object
}

func (e *Error) Type() ObjectType { return ERROR_OBJ }
func (e *Error) Inspect() string  { return "error: " + e.Payload.Inspect() }

// Message renders the payload the way the CLI and pcall report it.
func (e *Error) Message() string {
	return e.Payload.Inspect()
}

// Context is the surface the interpreter exposes to builtins and native
// libraries. It lets native code call back into script functions, raise
// errors, and reach the module loader without importing the evaluator.
type Context interface {
	// ApplyFunction calls a closure or builtin. A raised error comes back as
	// an *Error result instead of unwinding, so callers like pcall can
	// intercept it.
	ApplyFunction(fn Object, args []Object) Object

	// NewError builds a raised error with a formatted string payload.
	NewError(format string, args ...interface{}) *Error

	// LoadModule resolves, runs and caches a module by name.
	LoadModule(name string) Object

	// Globals is the root environment.
	Globals() *Environment

	// Location reports the current "file:line" position, or "" when no
	// source position is known.
	Location() string

	// Output is the destination print() writes to.
	Output() io.Writer
}

var (
	NIL   = &Nil{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

// IsTruthy follows the condition rule: only nil and false are falsy.
func IsTruthy(obj Object) bool {
	switch obj := obj.(type) {
	case *Nil:
		return false
	case *Boolean:
		return obj.Value
	default:
		return obj != nil
	}
}

// Equals implements primitive equality: value comparison for nil, booleans,
// numbers and strings, identity for everything else. Metamethods are layered
// on top by the evaluator.
func Equals(a, b Object) bool {
	if a.Type() != b.Type() {
		return false
	}

	switch a := a.(type) {
	case *Nil:
		return true
	case *Boolean:
		return a.Value == b.(*Boolean).Value
	case *Number:
		return a.Value == b.(*Number).Value
	case *String:
		return a.Value == b.(*String).Value
	case *Table:
		t, ok := b.(*Table)
		return ok && a.id == t.id
	case *Closure:
		c, ok := b.(*Closure)
		return ok && a.id == c.id
	case *Builtin:
		bi, ok := b.(*Builtin)
		return ok && a.id == bi.id
	case *UserData:
		u, ok := b.(*UserData)
		return ok && a.id == u.id
	default:
		return a == b
	}
}

// ToNumber applies the implicit string-to-number coercion used by the
// arithmetic operators and tonumber().
func ToNumber(obj Object) (float64, bool) {
	switch obj := obj.(type) {
	case *Number:
		return obj.Value, true
	case *Boolean:
		if obj.Value {
			return 1, true
		}
		return 0, true
	case *String:
		s := strings.TrimSpace(obj.Value)
		if s == "" {
			return 0, false
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v, true
		}
		// integer literals in other bases, e.g. "0x10"
		if v, err := strconv.ParseInt(s, 0, 64); err == nil {
			return float64(v), true
		}
		return 0, false
	default:
		return 0, false
	}
}
