package compiler

// binding records the compile-time stack depth a name was pushed at. depth
// is measured the same way the emitted Pick instructions are: the number
// of values on the operand stack immediately before the binding's value
// was pushed.
type binding struct {
	name  string
	depth int
}

// env is the compile-time Environment: a lexical scope chain realised as a
// flat shadow stack mirroring the runtime operand stack. Entering a Block
// records the current length; leaving it truncates back and the caller
// emits one Pop per discarded binding.
type env struct {
	bindings []binding
	depth    int
}

// bind records name as bound to the value just pushed (depth == env.depth
// before the push) and advances depth.
func (e *env) bind(name string) {
	e.bindings = append(e.bindings, binding{name: name, depth: e.depth})
	e.depth++
}

// mark returns a checkpoint usable with popTo to unwind a scope.
func (e *env) mark() int { return len(e.bindings) }

// popTo truncates bindings back to mark and returns how many bindings (and
// therefore Pop instructions) were discarded.
func (e *env) popTo(mark int) int {
	n := len(e.bindings) - mark
	e.bindings = e.bindings[:mark]
	e.depth -= n
	return n
}

// lookup resolves name to the Pick distance the spec describes: d is the
// number of pushes (inclusive of the binding's own push) between the
// binding and the current top of stack. d == 0 means undefined. Innermost
// (most recently pushed, i.e. last in bindings) wins on shadowing.
func (e *env) lookup(name string) int {
	for i := len(e.bindings) - 1; i >= 0; i-- {
		if e.bindings[i].name == name {
			return e.depth - e.bindings[i].depth
		}
	}
	return 0
}
