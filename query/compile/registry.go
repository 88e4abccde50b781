package compile

// FuncRegistry maps expression-level function idioms to SQL function
// spellings. The registry is a value owned by an Emitter, constructed
// from the documented default set; tests and callers substitute their
// own instead of mutating global state.
type FuncRegistry struct {
	funcs map[string]FuncSpec
}

// FuncSpec describes one registered function translation.
type FuncSpec struct {
	SQLName string
	MinArgs int
	MaxArgs int
}

// NewFuncRegistry returns an empty registry.
func NewFuncRegistry() *FuncRegistry {
	return &FuncRegistry{funcs: make(map[string]FuncSpec)}
}

// DefaultFuncs returns the default idiom set:
//
//	Replace -> replace(X, Y, Z)
//	Lower   -> lower(X)
//	Upper   -> upper(X)
//	IndexOf -> instr(X, Y)
//	Substr  -> substr(X, Y[, Z])
func DefaultFuncs() *FuncRegistry {
	r := NewFuncRegistry()
	r.Register("Replace", "replace", 3, 3)
	r.Register("Lower", "lower", 1, 1)
	r.Register("Upper", "upper", 1, 1)
	r.Register("IndexOf", "instr", 2, 2)
	r.Register("Substr", "substr", 2, 3)
	return r
}

// Register adds or replaces a function translation. Argument counts
// include the receiver. Registration is not safe concurrently with
// emission; build the registry before compiling.
func (r *FuncRegistry) Register(name, sqlName string, minArgs, maxArgs int) *FuncRegistry {
	r.funcs[name] = FuncSpec{SQLName: sqlName, MinArgs: minArgs, MaxArgs: maxArgs}
	return r
}

// Lookup returns the translation for an idiom name.
func (r *FuncRegistry) Lookup(name string) (FuncSpec, bool) {
	spec, ok := r.funcs[name]
	return spec, ok
}
