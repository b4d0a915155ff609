package object

// Binding is a shared variable cell. Closures capture the cell, not the
// value, so an inner function observes later assignments to an outer local.
type Binding struct {
	Value Object
}

// Environment is one lexical scope. Lookup walks the Outer chain; the chain
// root is the global scope. The interpreter is single-threaded, so no locking
// is needed here.
type Environment struct {
	Bindings map[string]*Binding
	Outer    *Environment
}

func NewEnvironment() *Environment {
	return &Environment{Bindings: make(map[string]*Binding)}
}

func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment()
	env.Outer = outer
	return env
}

// Define creates or shadows a binding in this scope. This is what `local`
// does; an existing cell in an outer scope stays untouched.
func (e *Environment) Define(name string, value Object) {
	e.Bindings[name] = &Binding{Value: value}
}

func (e *Environment) Get(name string) (Object, bool) {
	if binding, ok := e.resolve(name); ok {
		return binding.Value, true
	}
	return nil, false
}

// Assign updates the nearest visible binding. When no binding exists the name
// becomes a global, created at the root of the chain.
func (e *Environment) Assign(name string, value Object) {
	if binding, ok := e.resolve(name); ok {
		binding.Value = value
		return
	}
	e.Root().Define(name, value)
}

// Root walks to the global scope.
func (e *Environment) Root() *Environment {
	env := e
	for env.Outer != nil {
		env = env.Outer
	}
	return env
}

func (e *Environment) resolve(name string) (*Binding, bool) {
	for env := e; env != nil; env = env.Outer {
		if binding, ok := env.Bindings[name]; ok {
			return binding, true
		}
	}
	return nil, false
}
