package evaluator

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"moss/internal/object"
)

// builtinNext is shared between the builtins map and pairs(), which hands it
// out as the iterator function.
var builtinNext = funcNext()

var builtins = map[string]*object.Builtin{
	"print":        funcPrint(),
	"type":         funcType(),
	"tostring":     funcToString(),
	"tonumber":     funcToNumber(),
	"pairs":        funcPairs(),
	"ipairs":       funcIPairs(),
	"next":         builtinNext,
	"rawget":       funcRawGet(),
	"rawset":       funcRawSet(),
	"rawequal":     funcRawEqual(),
	"rawlen":       funcRawLen(),
	"setmetatable": funcSetMetatable(),
	"getmetatable": funcGetMetatable(),
	"pcall":        funcPcall(),
	"xpcall":       funcXpcall(),
	"error":        funcError(),
	"assert":       funcAssert(),
	"select":       funcSelect(),
	"unpack":       funcUnpack(),
	"require":      funcRequire(),
}

func funcPrint() *object.Builtin {
	return object.NewBuiltin("print", func(ctx object.Context, args ...object.Object) object.Object {
		e := ctx.(*Evaluator)
		line, err := formatValues(e, args)
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.Output(), line)
		return &object.Values{}
	})
}

func funcType() *object.Builtin {
	return object.NewBuiltin("type", func(ctx object.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return ctx.NewError("wrong number of arguments. got=%d, want=1", len(args))
		}
		return &object.String{Value: string(args[0].Type())}
	})
}

func funcToString() *object.Builtin {
	return object.NewBuiltin("tostring", func(ctx object.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return ctx.NewError("wrong number of arguments. got=%d, want=1", len(args))
		}
		e := ctx.(*Evaluator)
		s, err := e.ToDisplayString(args[0])
		if err != nil {
			return err
		}
		return &object.String{Value: s}
	})
}

func funcToNumber() *object.Builtin {
	return object.NewBuiltin("tonumber", func(ctx object.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return ctx.NewError("wrong number of arguments. got=%d, want=1 or 2", len(args))
		}

		if len(args) == 2 {
			str, ok := args[0].(*object.String)
			if !ok {
				return ctx.NewError("tonumber with a base expects a string, got %s", args[0].Type())
			}
			base, ok := args[1].(*object.Number)
			if !ok || base.Value != math.Trunc(base.Value) || base.Value < 2 || base.Value > 36 {
				return ctx.NewError("bad base for tonumber")
			}
			v, err := strconv.ParseInt(strings.TrimSpace(str.Value), int(base.Value), 64)
			if err != nil {
				return object.NIL
			}
			return &object.Number{Value: float64(v)}
		}

		if n, ok := object.ToNumber(args[0]); ok {
			return &object.Number{Value: n}
		}
		return object.NIL
	})
}

func funcPairs() *object.Builtin {
	return object.NewBuiltin("pairs", func(ctx object.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return ctx.NewError("wrong number of arguments. got=%d, want=1", len(args))
		}
		table, ok := args[0].(*object.Table)
		if !ok {
			return ctx.NewError("bad argument to 'pairs' (table expected, got %s)", args[0].Type())
		}
		return &object.Values{Elements: []object.Object{builtinNext, table, object.NIL}}
	})
}

func funcIPairs() *object.Builtin {
	return object.NewBuiltin("ipairs", func(ctx object.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return ctx.NewError("wrong number of arguments. got=%d, want=1", len(args))
		}
		table, ok := args[0].(*object.Table)
		if !ok {
			return ctx.NewError("bad argument to 'ipairs' (table expected, got %s)", args[0].Type())
		}

		iterator := object.NewBuiltin("ipairs iterator", func(ctx object.Context, args ...object.Object) object.Object {
			t := args[0].(*object.Table)
			i := args[1].(*object.Number).Value + 1
			value := t.Get(&object.Number{Value: i})
			if value == object.NIL {
				return &object.Values{Elements: []object.Object{object.NIL}}
			}
			return &object.Values{Elements: []object.Object{&object.Number{Value: i}, value}}
		})

		return &object.Values{Elements: []object.Object{iterator, table, &object.Number{Value: 0}}}
	})
}

func funcNext() *object.Builtin {
	return object.NewBuiltin("next", func(ctx object.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return ctx.NewError("wrong number of arguments. got=%d, want=1 or 2", len(args))
		}
		table, ok := args[0].(*object.Table)
		if !ok {
			return ctx.NewError("bad argument to 'next' (table expected, got %s)", args[0].Type())
		}

		var key object.Object = object.NIL
		if len(args) == 2 {
			key = args[1]
		}

		k, v, ok := table.Next(key)
		if !ok {
			return &object.Values{Elements: []object.Object{object.NIL}}
		}
		return &object.Values{Elements: []object.Object{k, v}}
	})
}

func funcRawGet() *object.Builtin {
	return object.NewBuiltin("rawget", func(ctx object.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return ctx.NewError("wrong number of arguments. got=%d, want=2", len(args))
		}
		table, ok := args[0].(*object.Table)
		if !ok {
			return ctx.NewError("bad argument to 'rawget' (table expected, got %s)", args[0].Type())
		}
		return table.Get(args[1])
	})
}

func funcRawSet() *object.Builtin {
	return object.NewBuiltin("rawset", func(ctx object.Context, args ...object.Object) object.Object {
		if len(args) != 3 {
			return ctx.NewError("wrong number of arguments. got=%d, want=3", len(args))
		}
		table, ok := args[0].(*object.Table)
		if !ok {
			return ctx.NewError("bad argument to 'rawset' (table expected, got %s)", args[0].Type())
		}
		if err := table.Set(args[1], args[2]); err != nil {
			return ctx.NewError("%s", err.Error())
		}
		return table
	})
}

func funcRawEqual() *object.Builtin {
	return object.NewBuiltin("rawequal", func(ctx object.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return ctx.NewError("wrong number of arguments. got=%d, want=2", len(args))
		}
		return nativeBoolToBooleanObject(object.Equals(args[0], args[1]))
	})
}

func funcRawLen() *object.Builtin {
	return object.NewBuiltin("rawlen", func(ctx object.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return ctx.NewError("wrong number of arguments. got=%d, want=1", len(args))
		}
		switch arg := args[0].(type) {
		case *object.Table:
			return &object.Number{Value: float64(arg.Len())}
		case *object.String:
			return &object.Number{Value: float64(len(arg.Value))}
		default:
			return ctx.NewError("table or string expected")
		}
	})
}

func funcSetMetatable() *object.Builtin {
	return object.NewBuiltin("setmetatable", func(ctx object.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return ctx.NewError("wrong number of arguments. got=%d, want=2", len(args))
		}
		table, ok := args[0].(*object.Table)
		if !ok {
			return ctx.NewError("bad argument to 'setmetatable' (table expected, got %s)", args[0].Type())
		}

		if table.Meta != nil && table.Meta.Get(&object.String{Value: "__metatable"}) != object.NIL {
			return ctx.NewError("cannot change a protected metatable")
		}

		switch meta := args[1].(type) {
		case *object.Table:
			table.Meta = meta
		case *object.Nil:
			table.Meta = nil
		default:
			return ctx.NewError("bad argument to 'setmetatable' (nil or table expected)")
		}
		return table
	})
}

func funcGetMetatable() *object.Builtin {
	return object.NewBuiltin("getmetatable", func(ctx object.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return ctx.NewError("wrong number of arguments. got=%d, want=1", len(args))
		}

		var meta *object.Table
		switch arg := args[0].(type) {
		case *object.Table:
			meta = arg.Meta
		case *object.UserData:
			meta = arg.Meta
		}
		if meta == nil {
			return object.NIL
		}
		if protected := meta.Get(&object.String{Value: "__metatable"}); protected != object.NIL {
			return protected
		}
		return meta
	})
}

func funcPcall() *object.Builtin {
	return object.NewBuiltin("pcall", func(ctx object.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return ctx.NewError("wrong number of arguments. got=%d, want at least 1", len(args))
		}

		result := ctx.ApplyFunction(args[0], args[1:])
		if err, ok := result.(*object.Error); ok {
			return &object.Values{Elements: []object.Object{object.FALSE, err.Payload}}
		}
		return &object.Values{Elements: append([]object.Object{object.TRUE}, spread(result)...)}
	})
}

func funcXpcall() *object.Builtin {
	return object.NewBuiltin("xpcall", func(ctx object.Context, args ...object.Object) object.Object {
		if len(args) < 2 {
			return ctx.NewError("wrong number of arguments. got=%d, want at least 2", len(args))
		}

		result := ctx.ApplyFunction(args[0], args[2:])
		if err, ok := result.(*object.Error); ok {
			handled := ctx.ApplyFunction(args[1], []object.Object{err.Payload})
			if herr, ok := handled.(*object.Error); ok {
				return &object.Values{Elements: []object.Object{object.FALSE, herr.Payload}}
			}
			return &object.Values{Elements: append([]object.Object{object.FALSE}, spread(handled)...)}
		}
		return &object.Values{Elements: append([]object.Object{object.TRUE}, spread(result)...)}
	})
}

func funcError() *object.Builtin {
	return object.NewBuiltin("error", func(ctx object.Context, args ...object.Object) object.Object {
		var payload object.Object = object.NIL
		if len(args) > 0 {
			payload = args[0]
		}

		level := 1.0
		if len(args) > 1 {
			if n, ok := args[1].(*object.Number); ok {
				level = n.Value
			}
		}

		// string payloads get position context unless level is 0
		if str, ok := payload.(*object.String); ok && level != 0 {
			if location := ctx.Location(); location != "" {
				payload = &object.String{Value: location + ": " + str.Value}
			}
		}
		return &object.Error{Payload: payload}
	})
}

func funcAssert() *object.Builtin {
	return object.NewBuiltin("assert", func(ctx object.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return ctx.NewError("wrong number of arguments. got=%d, want at least 1", len(args))
		}

		if object.IsTruthy(args[0]) {
			return &object.Values{Elements: args}
		}

		if len(args) > 1 {
			return &object.Error{Payload: args[1]}
		}
		return ctx.NewError("assertion failed!")
	})
}

func funcSelect() *object.Builtin {
	return object.NewBuiltin("select", func(ctx object.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return ctx.NewError("wrong number of arguments. got=%d, want at least 1", len(args))
		}

		if s, ok := args[0].(*object.String); ok && s.Value == "#" {
			return &object.Number{Value: float64(len(args) - 1)}
		}

		n, ok := args[0].(*object.Number)
		if !ok || n.Value != math.Trunc(n.Value) {
			return ctx.NewError("bad argument to 'select' (number expected)")
		}

		rest := args[1:]
		i := int(n.Value)
		switch {
		case i < 0:
			i = len(rest) + i
			if i < 0 {
				return ctx.NewError("bad argument to 'select' (index out of range)")
			}
		case i == 0:
			return ctx.NewError("bad argument to 'select' (index out of range)")
		default:
			i--
		}
		if i >= len(rest) {
			return &object.Values{}
		}
		return &object.Values{Elements: rest[i:]}
	})
}

func funcUnpack() *object.Builtin {
	return object.NewBuiltin("unpack", func(ctx object.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return ctx.NewError("wrong number of arguments. got=%d, want at least 1", len(args))
		}
		table, ok := args[0].(*object.Table)
		if !ok {
			return ctx.NewError("bad argument to 'unpack' (table expected, got %s)", args[0].Type())
		}

		from := 1
		to := table.Len()
		if len(args) > 1 {
			if n, ok := args[1].(*object.Number); ok {
				from = int(n.Value)
			}
		}
		if len(args) > 2 {
			if n, ok := args[2].(*object.Number); ok {
				to = int(n.Value)
			}
		}

		var elements []object.Object
		for i := from; i <= to; i++ {
			elements = append(elements, table.Get(&object.Number{Value: float64(i)}))
		}
		return &object.Values{Elements: elements}
	})
}

func funcRequire() *object.Builtin {
	return object.NewBuiltin("require", func(ctx object.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return ctx.NewError("wrong number of arguments. got=%d, want=1", len(args))
		}
		name, ok := args[0].(*object.String)
		if !ok {
			return ctx.NewError("bad argument to 'require' (string expected, got %s)", args[0].Type())
		}
		return ctx.LoadModule(name.Value)
	})
}
