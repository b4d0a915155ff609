package evaluator

import (
	"fmt"
	"strconv"
	"strings"

	"moss/internal/object"
)

// stringLibrary builds the `string` table. The same table answers method
// calls on string values, so `s:upper()` and `string.upper(s)` are the same
// function.
func stringLibrary() *object.Table {
	return makeLibrary(map[string]object.BuiltinFunction{
		"len":     stringLen,
		"sub":     stringSub,
		"upper":   stringUpper,
		"lower":   stringLower,
		"rep":     stringRep,
		"reverse": stringReverse,
		"byte":    stringByte,
		"char":    stringChar,
		"format":  stringFormat,
		"find":    stringFind,
	})
}

// makeLibrary wraps native functions into a table keyed by name.
func makeLibrary(functions map[string]object.BuiltinFunction) *object.Table {
	table := object.NewTable()
	for name, fn := range functions {
		_ = table.Set(&object.String{Value: name}, object.NewBuiltin(name, fn))
	}
	return table
}

func stringArg(ctx object.Context, fname string, args []object.Object, i int) (string, *object.Error) {
	if i >= len(args) {
		return "", ctx.NewError("bad argument #%d to '%s' (string expected, got no value)", i+1, fname)
	}
	switch arg := args[i].(type) {
	case *object.String:
		return arg.Value, nil
	case *object.Number:
		return arg.Inspect(), nil
	default:
		return "", ctx.NewError("bad argument #%d to '%s' (string expected, got %s)", i+1, fname, arg.Type())
	}
}

func numberArg(ctx object.Context, fname string, args []object.Object, i int) (float64, *object.Error) {
	if i >= len(args) {
		return 0, ctx.NewError("bad argument #%d to '%s' (number expected, got no value)", i+1, fname)
	}
	n, ok := object.ToNumber(args[i])
	if !ok {
		return 0, ctx.NewError("bad argument #%d to '%s' (number expected, got %s)", i+1, fname, args[i].Type())
	}
	return n, nil
}

func optionalNumberArg(ctx object.Context, fname string, args []object.Object, i int, fallback float64) (float64, *object.Error) {
	if i >= len(args) || args[i] == object.NIL {
		return fallback, nil
	}
	return numberArg(ctx, fname, args, i)
}

func stringLen(ctx object.Context, args ...object.Object) object.Object {
	s, err := stringArg(ctx, "len", args, 0)
	if err != nil {
		return err
	}
	return &object.Number{Value: float64(len(s))}
}

// stringSub follows the 1-based, inclusive index convention. Negative
// indices count from the end of the string.
func stringSub(ctx object.Context, args ...object.Object) object.Object {
	s, err := stringArg(ctx, "sub", args, 0)
	if err != nil {
		return err
	}
	from, err := numberArg(ctx, "sub", args, 1)
	if err != nil {
		return err
	}
	to, err := optionalNumberArg(ctx, "sub", args, 2, -1)
	if err != nil {
		return err
	}

	i, j := int(from), int(to)
	n := len(s)

	if i < 0 {
		i = n + i + 1
	}
	if j < 0 {
		j = n + j + 1
	}
	if i < 1 {
		i = 1
	}
	if j > n {
		j = n
	}
	if i > j {
		return &object.String{Value: ""}
	}
	return &object.String{Value: s[i-1 : j]}
}

func stringUpper(ctx object.Context, args ...object.Object) object.Object {
	s, err := stringArg(ctx, "upper", args, 0)
	if err != nil {
		return err
	}
	return &object.String{Value: strings.ToUpper(s)}
}

func stringLower(ctx object.Context, args ...object.Object) object.Object {
	s, err := stringArg(ctx, "lower", args, 0)
	if err != nil {
		return err
	}
	return &object.String{Value: strings.ToLower(s)}
}

func stringRep(ctx object.Context, args ...object.Object) object.Object {
	s, err := stringArg(ctx, "rep", args, 0)
	if err != nil {
		return err
	}
	count, err := numberArg(ctx, "rep", args, 1)
	if err != nil {
		return err
	}
	sep := ""
	if len(args) > 2 && args[2] != object.NIL {
		sep, err = stringArg(ctx, "rep", args, 2)
		if err != nil {
			return err
		}
	}

	if count < 1 {
		return &object.String{Value: ""}
	}

	parts := make([]string, int(count))
	for i := range parts {
		parts[i] = s
	}
	return &object.String{Value: strings.Join(parts, sep)}
}

func stringReverse(ctx object.Context, args ...object.Object) object.Object {
	s, err := stringArg(ctx, "reverse", args, 0)
	if err != nil {
		return err
	}
	bytes := []byte(s)
	for i, j := 0, len(bytes)-1; i < j; i, j = i+1, j-1 {
		bytes[i], bytes[j] = bytes[j], bytes[i]
	}
	return &object.String{Value: string(bytes)}
}

func stringByte(ctx object.Context, args ...object.Object) object.Object {
	s, err := stringArg(ctx, "byte", args, 0)
	if err != nil {
		return err
	}
	from, err := optionalNumberArg(ctx, "byte", args, 1, 1)
	if err != nil {
		return err
	}
	to, err := optionalNumberArg(ctx, "byte", args, 2, from)
	if err != nil {
		return err
	}

	i, j := int(from), int(to)
	n := len(s)
	if i < 0 {
		i = n + i + 1
	}
	if j < 0 {
		j = n + j + 1
	}
	if i < 1 {
		i = 1
	}
	if j > n {
		j = n
	}

	var elements []object.Object
	for k := i; k <= j; k++ {
		elements = append(elements, &object.Number{Value: float64(s[k-1])})
	}
	return &object.Values{Elements: elements}
}

func stringChar(ctx object.Context, args ...object.Object) object.Object {
	bytes := make([]byte, len(args))
	for i := range args {
		n, err := numberArg(ctx, "char", args, i)
		if err != nil {
			return err
		}
		if n < 0 || n > 255 {
			return ctx.NewError("bad argument #%d to 'char' (value out of range)", i+1)
		}
		bytes[i] = byte(n)
	}
	return &object.String{Value: string(bytes)}
}

// stringFormat supports the common directives: %s %q %d %i %f %g %e %x %X %o
// %c and %%. Width and precision pass through to the Go formatter.
func stringFormat(ctx object.Context, args ...object.Object) object.Object {
	format, err := stringArg(ctx, "format", args, 0)
	if err != nil {
		return err
	}

	var out strings.Builder
	argIndex := 1
	i := 0
	for i < len(format) {
		c := format[i]
		if c != '%' {
			out.WriteByte(c)
			i++
			continue
		}

		// scan the directive: flags, width, precision, verb
		j := i + 1
		for j < len(format) && strings.ContainsRune("-+ #0123456789.", rune(format[j])) {
			j++
		}
		if j >= len(format) {
			return ctx.NewError("invalid format string to 'format'")
		}
		verb := format[j]
		spec := format[i : j+1]
		i = j + 1

		if verb == '%' {
			out.WriteByte('%')
			continue
		}
		if argIndex >= len(args) {
			return ctx.NewError("bad argument #%d to 'format' (no value)", argIndex+1)
		}
		arg := args[argIndex]
		argIndex++

		switch verb {
		case 'd', 'i', 'x', 'X', 'o', 'c':
			n, ok := object.ToNumber(arg)
			if !ok {
				return ctx.NewError("bad argument #%d to 'format' (number expected, got %s)", argIndex, arg.Type())
			}
			goSpec := spec
			if verb == 'i' {
				goSpec = spec[:len(spec)-1] + "d"
			}
			fmt.Fprintf(&out, goSpec, int64(n))
		case 'f', 'F', 'g', 'G', 'e', 'E':
			n, ok := object.ToNumber(arg)
			if !ok {
				return ctx.NewError("bad argument #%d to 'format' (number expected, got %s)", argIndex, arg.Type())
			}
			fmt.Fprintf(&out, spec, n)
		case 's':
			e := ctx.(*Evaluator)
			s, derr := e.ToDisplayString(arg)
			if derr != nil {
				return derr
			}
			fmt.Fprintf(&out, spec, s)
		case 'q':
			s, serr := stringArg(ctx, "format", args, argIndex-1)
			if serr != nil {
				return serr
			}
			out.WriteString(strconv.Quote(s))
		default:
			return ctx.NewError("invalid conversion '%%%c' to 'format'", verb)
		}
	}

	return &object.String{Value: out.String()}
}

// stringFind performs a plain substring search and reports the 1-based
// inclusive span, or nil when absent.
func stringFind(ctx object.Context, args ...object.Object) object.Object {
	s, err := stringArg(ctx, "find", args, 0)
	if err != nil {
		return err
	}
	needle, err := stringArg(ctx, "find", args, 1)
	if err != nil {
		return err
	}
	init, err := optionalNumberArg(ctx, "find", args, 2, 1)
	if err != nil {
		return err
	}

	start := int(init)
	if start < 0 {
		start = len(s) + start + 1
	}
	if start < 1 {
		start = 1
	}
	if start > len(s)+1 {
		return object.NIL
	}

	idx := strings.Index(s[start-1:], needle)
	if idx < 0 {
		return object.NIL
	}
	from := start + idx
	return &object.Values{Elements: []object.Object{
		&object.Number{Value: float64(from)},
		&object.Number{Value: float64(from + len(needle) - 1)},
	}}
}
