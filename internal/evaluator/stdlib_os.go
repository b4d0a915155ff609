package evaluator

import (
	"os"
	"time"

	"moss/internal/object"
)

var processStart = time.Now()

func osLibrary() *object.Table {
	return makeLibrary(map[string]object.BuiltinFunction{
		"time":   osTime,
		"clock":  osClock,
		"date":   osDate,
		"getenv": osGetenv,
		"exit":   osExit,
	})
}

func osTime(ctx object.Context, args ...object.Object) object.Object {
	return &object.Number{Value: float64(time.Now().Unix())}
}

// osClock reports seconds since interpreter start.
func osClock(ctx object.Context, args ...object.Object) object.Object {
	return &object.Number{Value: time.Since(processStart).Seconds()}
}

// osDate formats the current time. The format string follows Go's reference
// layout when given, defaulting to RFC 3339.
func osDate(ctx object.Context, args ...object.Object) object.Object {
	layout := time.RFC3339
	if len(args) > 0 && args[0] != object.NIL {
		s, err := stringArg(ctx, "date", args, 0)
		if err != nil {
			return err
		}
		layout = s
	}

	at := time.Now()
	if len(args) > 1 {
		n, err := numberArg(ctx, "date", args, 1)
		if err != nil {
			return err
		}
		at = time.Unix(int64(n), 0)
	}
	return &object.String{Value: at.Format(layout)}
}

func osGetenv(ctx object.Context, args ...object.Object) object.Object {
	name, err := stringArg(ctx, "getenv", args, 0)
	if err != nil {
		return err
	}
	value, ok := os.LookupEnv(name)
	if !ok {
		return object.NIL
	}
	return &object.String{Value: value}
}

func osExit(ctx object.Context, args ...object.Object) object.Object {
	code := 0
	if len(args) > 0 {
		switch arg := args[0].(type) {
		case *object.Number:
			code = int(arg.Value)
		case *object.Boolean:
			if !arg.Value {
				code = 1
			}
		}
	}
	os.Exit(code)
	return object.NIL
}
