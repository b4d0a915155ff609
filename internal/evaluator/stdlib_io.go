package evaluator

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"moss/internal/object"
)

// fileHandle is the native state behind a file userdata.
type fileHandle struct {
	file   *os.File
	reader *bufio.Reader
	closed bool
}

func ioLibrary() *object.Table {
	table := makeLibrary(map[string]object.BuiltinFunction{
		"open":  ioOpen,
		"lines": ioLines,
		"write": ioWrite,
		"read":  ioRead,
	})
	return table
}

// fileMetatable gives file userdata its methods through __index.
var fileMeta = func() *object.Table {
	methods := makeLibrary(map[string]object.BuiltinFunction{
		"read":  fileRead,
		"write": fileWrite,
		"close": fileClose,
		"lines": fileLines,
	})
	meta := object.NewTable()
	_ = meta.Set(&object.String{Value: "__index"}, methods)
	return meta
}()

// ioOpen opens a file and returns its handle, or nil plus a message in the
// conventional two-value error shape.
func ioOpen(ctx object.Context, args ...object.Object) object.Object {
	path, err := stringArg(ctx, "open", args, 0)
	if err != nil {
		return err
	}
	mode := "r"
	if len(args) > 1 && args[1] != object.NIL {
		mode, err = stringArg(ctx, "open", args, 1)
		if err != nil {
			return err
		}
	}

	var flags int
	switch strings.TrimSuffix(mode, "b") {
	case "r":
		flags = os.O_RDONLY
	case "w":
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case "a":
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	case "r+":
		flags = os.O_RDWR
	case "w+":
		flags = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	case "a+":
		flags = os.O_RDWR | os.O_CREATE | os.O_APPEND
	default:
		return ctx.NewError("bad argument #2 to 'open' (invalid mode '%s')", mode)
	}

	f, openErr := os.OpenFile(path, flags, 0o644)
	if openErr != nil {
		return &object.Values{Elements: []object.Object{
			object.NIL,
			&object.String{Value: openErr.Error()},
		}}
	}

	handle := object.NewUserData("file", &fileHandle{file: f, reader: bufio.NewReader(f)})
	handle.Meta = fileMeta
	return handle
}

// ioLines opens a file and returns a line iterator that closes it at EOF.
func ioLines(ctx object.Context, args ...object.Object) object.Object {
	result := ioOpen(ctx, args...)
	handle, ok := first(result).(*object.UserData)
	if !ok {
		if values, ok := result.(*object.Values); ok && len(values.Elements) > 1 {
			return ctx.NewError("%s", values.Elements[1].Inspect())
		}
		return result
	}
	return lineIterator(handle, true)
}

func ioWrite(ctx object.Context, args ...object.Object) object.Object {
	for i := range args {
		part, ok := concatString(args[i])
		if !ok {
			return ctx.NewError("bad argument #%d to 'write' (string expected, got %s)", i+1, args[i].Type())
		}
		fmt.Fprint(ctx.Output(), part)
	}
	return &object.Values{}
}

func ioRead(ctx object.Context, args ...object.Object) object.Object {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return object.NIL
	}
	return &object.String{Value: strings.TrimRight(line, "\r\n")}
}

func fileHandleArg(ctx object.Context, fname string, args []object.Object) (*fileHandle, *object.Error) {
	if len(args) < 1 {
		return nil, ctx.NewError("bad argument #1 to '%s' (file expected, got no value)", fname)
	}
	ud, ok := args[0].(*object.UserData)
	if !ok || ud.Kind != "file" {
		return nil, ctx.NewError("bad argument #1 to '%s' (file expected, got %s)", fname, args[0].Type())
	}
	handle := ud.Value.(*fileHandle)
	if handle.closed {
		return nil, ctx.NewError("attempt to use a closed file")
	}
	return handle, nil
}

// fileRead understands the "l" (line, default), "a" (rest of file) and
// "n" (number) formats, with or without the leading star.
func fileRead(ctx object.Context, args ...object.Object) object.Object {
	handle, err := fileHandleArg(ctx, "read", args)
	if err != nil {
		return err
	}

	format := "l"
	if len(args) > 1 {
		if s, ok := args[1].(*object.String); ok {
			format = strings.TrimPrefix(s.Value, "*")
		}
		if n, ok := args[1].(*object.Number); ok {
			return readCount(handle, int(n.Value))
		}
	}

	switch format {
	case "l", "L":
		line, readErr := handle.reader.ReadString('\n')
		if readErr != nil && line == "" {
			return object.NIL
		}
		if format == "l" {
			line = strings.TrimRight(line, "\r\n")
		}
		return &object.String{Value: line}
	case "a":
		rest, _ := io.ReadAll(handle.reader)
		return &object.String{Value: string(rest)}
	case "n":
		var n float64
		if _, scanErr := fmt.Fscan(handle.reader, &n); scanErr != nil {
			return object.NIL
		}
		return &object.Number{Value: n}
	default:
		return ctx.NewError("bad argument #2 to 'read' (invalid format '%s')", format)
	}
}

func readCount(handle *fileHandle, count int) object.Object {
	if count <= 0 {
		return &object.String{Value: ""}
	}
	buf := make([]byte, count)
	n, _ := io.ReadFull(handle.reader, buf)
	if n == 0 {
		return object.NIL
	}
	return &object.String{Value: string(buf[:n])}
}

func fileWrite(ctx object.Context, args ...object.Object) object.Object {
	handle, err := fileHandleArg(ctx, "write", args)
	if err != nil {
		return err
	}

	for i := 1; i < len(args); i++ {
		part, ok := concatString(args[i])
		if !ok {
			return ctx.NewError("bad argument #%d to 'write' (string expected, got %s)", i, args[i].Type())
		}
		if _, writeErr := handle.file.WriteString(part); writeErr != nil {
			return &object.Values{Elements: []object.Object{
				object.NIL,
				&object.String{Value: writeErr.Error()},
			}}
		}
	}
	return args[0]
}

func fileClose(ctx object.Context, args ...object.Object) object.Object {
	handle, err := fileHandleArg(ctx, "close", args)
	if err != nil {
		return err
	}
	handle.closed = true
	if closeErr := handle.file.Close(); closeErr != nil {
		return &object.Values{Elements: []object.Object{
			object.NIL,
			&object.String{Value: closeErr.Error()},
		}}
	}
	return object.TRUE
}

func fileLines(ctx object.Context, args ...object.Object) object.Object {
	if len(args) < 1 {
		return ctx.NewError("bad argument #1 to 'lines' (file expected, got no value)")
	}
	ud, ok := args[0].(*object.UserData)
	if !ok || ud.Kind != "file" {
		return ctx.NewError("bad argument #1 to 'lines' (file expected, got %s)", args[0].Type())
	}
	return lineIterator(ud, false)
}

// lineIterator wraps a file handle into a generic-for iterator. closeAtEOF
// makes io.lines() release the descriptor once the file is exhausted.
func lineIterator(ud *object.UserData, closeAtEOF bool) *object.Builtin {
	return object.NewBuiltin("lines iterator", func(ctx object.Context, args ...object.Object) object.Object {
		handle := ud.Value.(*fileHandle)
		if handle.closed {
			return object.NIL
		}
		line, err := handle.reader.ReadString('\n')
		if err != nil && line == "" {
			if closeAtEOF {
				handle.closed = true
				_ = handle.file.Close()
			}
			return object.NIL
		}
		return &object.String{Value: strings.TrimRight(line, "\r\n")}
	})
}
