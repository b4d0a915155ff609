package evaluator

import (
	"math"
	"math/rand"

	"moss/internal/object"
)

func mathLibrary() *object.Table {
	table := makeLibrary(map[string]object.BuiltinFunction{
		"abs":        mathUnary("abs", math.Abs),
		"ceil":       mathUnary("ceil", math.Ceil),
		"floor":      mathUnary("floor", math.Floor),
		"sqrt":       mathUnary("sqrt", math.Sqrt),
		"exp":        mathUnary("exp", math.Exp),
		"sin":        mathUnary("sin", math.Sin),
		"cos":        mathUnary("cos", math.Cos),
		"tan":        mathUnary("tan", math.Tan),
		"log":        mathLog,
		"max":        mathMax,
		"min":        mathMin,
		"fmod":       mathFmod,
		"random":     mathRandom,
		"randomseed": mathRandomSeed,
	})
	_ = table.Set(&object.String{Value: "pi"}, &object.Number{Value: math.Pi})
	_ = table.Set(&object.String{Value: "huge"}, &object.Number{Value: math.Inf(1)})
	return table
}

func mathUnary(name string, fn func(float64) float64) object.BuiltinFunction {
	return func(ctx object.Context, args ...object.Object) object.Object {
		n, err := numberArg(ctx, name, args, 0)
		if err != nil {
			return err
		}
		return &object.Number{Value: fn(n)}
	}
}

// mathLog is the natural logarithm, or log base b with a second argument.
func mathLog(ctx object.Context, args ...object.Object) object.Object {
	n, err := numberArg(ctx, "log", args, 0)
	if err != nil {
		return err
	}
	if len(args) > 1 {
		base, err := numberArg(ctx, "log", args, 1)
		if err != nil {
			return err
		}
		return &object.Number{Value: math.Log(n) / math.Log(base)}
	}
	return &object.Number{Value: math.Log(n)}
}

func mathMax(ctx object.Context, args ...object.Object) object.Object {
	if len(args) == 0 {
		return ctx.NewError("bad argument #1 to 'max' (number expected, got no value)")
	}
	best, err := numberArg(ctx, "max", args, 0)
	if err != nil {
		return err
	}
	for i := 1; i < len(args); i++ {
		n, err := numberArg(ctx, "max", args, i)
		if err != nil {
			return err
		}
		if n > best {
			best = n
		}
	}
	return &object.Number{Value: best}
}

func mathMin(ctx object.Context, args ...object.Object) object.Object {
	if len(args) == 0 {
		return ctx.NewError("bad argument #1 to 'min' (number expected, got no value)")
	}
	best, err := numberArg(ctx, "min", args, 0)
	if err != nil {
		return err
	}
	for i := 1; i < len(args); i++ {
		n, err := numberArg(ctx, "min", args, i)
		if err != nil {
			return err
		}
		if n < best {
			best = n
		}
	}
	return &object.Number{Value: best}
}

// mathFmod truncates toward zero, unlike the % operator which floors.
func mathFmod(ctx object.Context, args ...object.Object) object.Object {
	a, err := numberArg(ctx, "fmod", args, 0)
	if err != nil {
		return err
	}
	b, err := numberArg(ctx, "fmod", args, 1)
	if err != nil {
		return err
	}
	if b == 0 {
		return ctx.NewError("bad argument #2 to 'fmod' (zero)")
	}
	return &object.Number{Value: math.Mod(a, b)}
}

func mathRandom(ctx object.Context, args ...object.Object) object.Object {
	switch len(args) {
	case 0:
		return &object.Number{Value: rand.Float64()}
	case 1:
		m, err := numberArg(ctx, "random", args, 0)
		if err != nil {
			return err
		}
		if m < 1 {
			return ctx.NewError("bad argument #1 to 'random' (interval is empty)")
		}
		return &object.Number{Value: float64(rand.Int63n(int64(m)) + 1)}
	default:
		lo, err := numberArg(ctx, "random", args, 0)
		if err != nil {
			return err
		}
		hi, err := numberArg(ctx, "random", args, 1)
		if err != nil {
			return err
		}
		if lo > hi {
			return ctx.NewError("bad argument #2 to 'random' (interval is empty)")
		}
		return &object.Number{Value: lo + float64(rand.Int63n(int64(hi-lo)+1))}
	}
}

func mathRandomSeed(ctx object.Context, args ...object.Object) object.Object {
	seed, err := numberArg(ctx, "randomseed", args, 0)
	if err != nil {
		return err
	}
	rand.Seed(int64(seed))
	return &object.Values{}
}
