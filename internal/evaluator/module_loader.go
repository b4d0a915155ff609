package evaluator

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"moss/internal/ast"
	"moss/internal/lexer"
	"moss/internal/object"
	"moss/internal/parser"
)

// ModuleLoader resolves require() names against a list of search roots and
// caches each module's result so it runs once per interpreter. It is plain
// state handed to the evaluator, never a package global, so two interpreters
// in one process keep separate module worlds.
type ModuleLoader struct {
	roots   []string
	cache   map[string]object.Object
	loading map[string]*object.Table
}

func NewModuleLoader(roots []string) *ModuleLoader {
	return &ModuleLoader{
		roots:   roots,
		cache:   make(map[string]object.Object),
		loading: make(map[string]*object.Table),
	}
}

// Load runs the named module and returns its result. The result is, in
// order of preference: the module's explicit return value, its `exports`
// table, or nil. A require cycle resolves to the partially-built exports
// table of the module already in flight.
func (ml *ModuleLoader) Load(name string, e *Evaluator) object.Object {
	if name == "" {
		return e.newError("module name is empty")
	}

	if cached, ok := ml.cache[name]; ok {
		return cached
	}
	if exports, ok := ml.loading[name]; ok {
		slog.Debug("require cycle detected", "module", name)
		return exports
	}

	path, err := ml.resolve(name)
	if err != nil {
		return e.newError("%s", err.Error())
	}

	source, readErr := os.ReadFile(path)
	if readErr != nil {
		return e.newError("cannot read module '%s': %s", name, readErr)
	}
	src := string(source)

	l := lexer.New(src)
	p := parser.New(l, src)
	program := p.ParseProgram()
	if len(p.Errors()) > 0 {
		return e.newError("module '%s' has a syntax error: %s", name, p.Errors()[0])
	}

	slog.Debug("loading module", "module", name, "path", path)

	exports := object.NewTable()
	ml.loading[name] = exports
	defer delete(ml.loading, name)

	moduleEnv := object.NewEnclosedEnvironment(e.globals)
	moduleEnv.Define("exports", exports)

	// error positions inside the module point at its own file
	savedFile, savedSrc, savedPos := e.file, e.src, e.pos
	e.file, e.src, e.pos = path, src, 0
	result, runErr := e.runModuleProgram(program, moduleEnv)
	e.file, e.src, e.pos = savedFile, savedSrc, savedPos

	if runErr != nil {
		// a failed load is not cached, a later require retries it
		return runErr
	}

	if result == nil {
		result = object.NIL
		if exported, ok := moduleEnv.Get("exports"); ok && exported != object.NIL {
			// the pre-seeded table only counts once the module touched it;
			// untouched and never rebound means the module exports nothing
			if !(exported == object.Object(exports) && len(exports.Pairs) == 0) {
				result = exported
			}
		}
	}

	ml.cache[name] = result
	return result
}

// resolve maps a module name to a file path. Dots separate directories, so
// require("a.b") searches <root>/a/b.lua in every root in order.
func (ml *ModuleLoader) resolve(name string) (string, error) {
	if strings.Contains(name, "..") || filepath.IsAbs(name) {
		return "", &moduleNotFound{name: name}
	}

	relative := filepath.FromSlash(strings.ReplaceAll(name, ".", "/")) + ".lua"

	var tried []string
	for _, root := range ml.roots {
		path := filepath.Join(root, relative)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
		tried = append(tried, path)
	}
	return "", &moduleNotFound{name: name, tried: tried}
}

type moduleNotFound struct {
	name  string
	tried []string
}

func (m *moduleNotFound) Error() string {
	var sb strings.Builder
	sb.WriteString("module '" + m.name + "' not found")
	for _, path := range m.tried {
		sb.WriteString("\n\tno file '" + path + "'")
	}
	return sb.String()
}

// runModuleProgram is evalProgram with module result semantics: only an
// explicit top-level return produces a result.
func (e *Evaluator) runModuleProgram(program *ast.Program, env *object.Environment) (object.Object, *object.Error) {
	statements := program.Statements
	i := 0
	for i < len(statements) {
		result := e.evalStatement(statements[i], env)

		switch sig := result.(type) {
		case *object.ReturnValue:
			return firstOf(sig.Values), nil
		case *object.Error:
			return nil, sig
		case *object.Break:
			return nil, e.newError("break outside a loop")
		case *object.Goto:
			if idx, ok := findLabel(statements, sig.Label); ok {
				i = idx
				continue
			}
			return nil, e.newError("no visible label '%s' for goto", sig.Label)
		}
		i++
	}
	return nil, nil
}
