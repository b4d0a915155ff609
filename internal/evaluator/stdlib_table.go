package evaluator

import (
	"sort"
	"strings"

	"moss/internal/object"
)

func tableLibrary() *object.Table {
	return makeLibrary(map[string]object.BuiltinFunction{
		"insert": tableInsert,
		"remove": tableRemove,
		"concat": tableConcat,
		"sort":   tableSort,
		"unpack": tableUnpack,
	})
}

func tableArg(ctx object.Context, fname string, args []object.Object, i int) (*object.Table, *object.Error) {
	if i >= len(args) {
		return nil, ctx.NewError("bad argument #%d to '%s' (table expected, got no value)", i+1, fname)
	}
	table, ok := args[i].(*object.Table)
	if !ok {
		return nil, ctx.NewError("bad argument #%d to '%s' (table expected, got %s)", i+1, fname, args[i].Type())
	}
	return table, nil
}

// tableInsert appends with two arguments, or shifts and inserts at a
// position with three.
func tableInsert(ctx object.Context, args ...object.Object) object.Object {
	table, err := tableArg(ctx, "insert", args, 0)
	if err != nil {
		return err
	}

	n := table.Len()
	switch len(args) {
	case 2:
		if serr := table.Set(&object.Number{Value: float64(n + 1)}, args[1]); serr != nil {
			return ctx.NewError("%s", serr.Error())
		}
	case 3:
		pos, nerr := numberArg(ctx, "insert", args, 1)
		if nerr != nil {
			return nerr
		}
		p := int(pos)
		if p < 1 || p > n+1 {
			return ctx.NewError("bad argument #2 to 'insert' (position out of bounds)")
		}
		for i := n; i >= p; i-- {
			v := table.Get(&object.Number{Value: float64(i)})
			_ = table.Set(&object.Number{Value: float64(i + 1)}, v)
		}
		if serr := table.Set(&object.Number{Value: float64(p)}, args[2]); serr != nil {
			return ctx.NewError("%s", serr.Error())
		}
	default:
		return ctx.NewError("wrong number of arguments to 'insert'")
	}
	return &object.Values{}
}

// tableRemove removes and returns the element at pos, defaulting to the last.
func tableRemove(ctx object.Context, args ...object.Object) object.Object {
	table, err := tableArg(ctx, "remove", args, 0)
	if err != nil {
		return err
	}

	n := table.Len()
	pos := float64(n)
	if len(args) > 1 {
		var nerr *object.Error
		pos, nerr = numberArg(ctx, "remove", args, 1)
		if nerr != nil {
			return nerr
		}
	}
	p := int(pos)
	if n == 0 {
		return object.NIL
	}
	if p < 1 || p > n {
		return ctx.NewError("bad argument #2 to 'remove' (position out of bounds)")
	}

	removed := table.Get(&object.Number{Value: float64(p)})
	for i := p; i < n; i++ {
		v := table.Get(&object.Number{Value: float64(i + 1)})
		_ = table.Set(&object.Number{Value: float64(i)}, v)
	}
	_ = table.Set(&object.Number{Value: float64(n)}, object.NIL)
	return removed
}

func tableConcat(ctx object.Context, args ...object.Object) object.Object {
	table, err := tableArg(ctx, "concat", args, 0)
	if err != nil {
		return err
	}

	sep := ""
	if len(args) > 1 && args[1] != object.NIL {
		var serr *object.Error
		sep, serr = stringArg(ctx, "concat", args, 1)
		if serr != nil {
			return serr
		}
	}
	from, err := optionalNumberArg(ctx, "concat", args, 2, 1)
	if err != nil {
		return err
	}
	to, err := optionalNumberArg(ctx, "concat", args, 3, float64(table.Len()))
	if err != nil {
		return err
	}

	var parts []string
	for i := int(from); i <= int(to); i++ {
		element := table.Get(&object.Number{Value: float64(i)})
		part, ok := concatString(element)
		if !ok {
			return ctx.NewError("invalid value (at index %d) in table for 'concat'", i)
		}
		parts = append(parts, part)
	}
	return &object.String{Value: strings.Join(parts, sep)}
}

// tableSort sorts the sequence part in place, by < or by a comparator.
func tableSort(ctx object.Context, args ...object.Object) object.Object {
	table, err := tableArg(ctx, "sort", args, 0)
	if err != nil {
		return err
	}

	n := table.Len()
	elements := make([]object.Object, n)
	for i := 0; i < n; i++ {
		elements[i] = table.Get(&object.Number{Value: float64(i + 1)})
	}

	var sortErr *object.Error
	less := func(a, b object.Object) bool {
		if sortErr != nil {
			return false
		}
		if len(args) > 1 {
			result := ctx.ApplyFunction(args[1], []object.Object{a, b})
			if e, ok := result.(*object.Error); ok {
				sortErr = e
				return false
			}
			return object.IsTruthy(first(result))
		}
		e := ctx.(*Evaluator)
		result := e.evalComparison("<", a, b)
		if e2, ok := result.(*object.Error); ok {
			sortErr = e2
			return false
		}
		return object.IsTruthy(result)
	}

	sort.SliceStable(elements, func(i, j int) bool { return less(elements[i], elements[j]) })
	if sortErr != nil {
		return sortErr
	}

	for i, element := range elements {
		_ = table.Set(&object.Number{Value: float64(i + 1)}, element)
	}
	return &object.Values{}
}

func tableUnpack(ctx object.Context, args ...object.Object) object.Object {
	return builtins["unpack"].Fn(ctx, args...)
}
