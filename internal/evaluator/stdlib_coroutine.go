package evaluator

import (
	"moss/internal/object"
)

// coroState models coroutine lifecycle without real suspension: a body runs
// to completion on its first resume. yield raises, so a coroutine is either
// suspended (never resumed) or dead.
type coroState struct {
	fn     object.Object
	status string
}

const (
	coroSuspended = "suspended"
	coroRunning   = "running"
	coroDead      = "dead"
)

func coroutineLibrary() *object.Table {
	return makeLibrary(map[string]object.BuiltinFunction{
		"create": coroutineCreate,
		"resume": coroutineResume,
		"status": coroutineStatus,
		"yield":  coroutineYield,
		"wrap":   coroutineWrap,
	})
}

func coroutineCreate(ctx object.Context, args ...object.Object) object.Object {
	if len(args) != 1 {
		return ctx.NewError("wrong number of arguments. got=%d, want=1", len(args))
	}
	if args[0].Type() != object.FUNCTION_OBJ {
		return ctx.NewError("bad argument to 'create' (function expected, got %s)", args[0].Type())
	}
	return object.NewUserData("coroutine", &coroState{fn: args[0], status: coroSuspended})
}

func coroutineArg(ctx object.Context, fname string, args []object.Object) (*coroState, *object.Error) {
	if len(args) < 1 {
		return nil, ctx.NewError("bad argument #1 to '%s' (coroutine expected, got no value)", fname)
	}
	ud, ok := args[0].(*object.UserData)
	if !ok || ud.Kind != "coroutine" {
		return nil, ctx.NewError("bad argument #1 to '%s' (coroutine expected, got %s)", fname, args[0].Type())
	}
	return ud.Value.(*coroState), nil
}

func coroutineResume(ctx object.Context, args ...object.Object) object.Object {
	state, err := coroutineArg(ctx, "resume", args)
	if err != nil {
		return err
	}

	switch state.status {
	case coroDead:
		return &object.Values{Elements: []object.Object{
			object.FALSE,
			&object.String{Value: "cannot resume dead coroutine"},
		}}
	case coroRunning:
		return &object.Values{Elements: []object.Object{
			object.FALSE,
			&object.String{Value: "cannot resume non-suspended coroutine"},
		}}
	}

	state.status = coroRunning
	result := ctx.ApplyFunction(state.fn, args[1:])
	state.status = coroDead

	if raised, ok := result.(*object.Error); ok {
		return &object.Values{Elements: []object.Object{object.FALSE, raised.Payload}}
	}
	return &object.Values{Elements: append([]object.Object{object.TRUE}, spread(result)...)}
}

func coroutineStatus(ctx object.Context, args ...object.Object) object.Object {
	state, err := coroutineArg(ctx, "status", args)
	if err != nil {
		return err
	}
	return &object.String{Value: state.status}
}

func coroutineYield(ctx object.Context, args ...object.Object) object.Object {
	return ctx.NewError("attempt to yield from outside a coroutine")
}

// coroutineWrap returns a function that resumes the coroutine and re-raises
// its error instead of returning a status flag.
func coroutineWrap(ctx object.Context, args ...object.Object) object.Object {
	created := coroutineCreate(ctx, args...)
	if isError(created) {
		return created
	}
	co := created.(*object.UserData)

	return object.NewBuiltin("wrapped coroutine", func(ctx object.Context, args ...object.Object) object.Object {
		result := coroutineResume(ctx, append([]object.Object{co}, args...)...)
		if isError(result) {
			return result
		}
		results := spread(result)
		if len(results) > 0 && results[0] == object.FALSE {
			return &object.Error{Payload: valueAt(results, 1)}
		}
		return &object.Values{Elements: results[1:]}
	})
}
