package values

import "botlang/internal/errors"

// Environment is a stack of frames, outer to inner. Frame 0 is the
// bot's one persistent global frame; every function call pushes and
// pops a frame above it. While/for/if bodies do not push a frame.
type Environment struct {
	frames []map[string]Value
}

func NewEnvironment() *Environment {
	return &Environment{frames: []map[string]Value{{}}}
}

// Global returns the persistent global frame directly.
func (e *Environment) Global() map[string]Value {
	return e.frames[0]
}

// Push starts a new local frame, used for a function call.
func (e *Environment) Push() {
	e.frames = append(e.frames, map[string]Value{})
}

// Pop discards the innermost frame.
func (e *Environment) Pop() {
	e.frames = e.frames[:len(e.frames)-1]
}

// Lookup walks frames from innermost to outermost, so the innermost
// frame shadows the global one; returns an "undefined variable"
// RuntimeError with line if name is bound nowhere.
func (e *Environment) Lookup(name string, line int) (Value, error) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if v, ok := e.frames[i][name]; ok {
			return v, nil
		}
	}
	return Null, errors.Runtime(line, "undefined variable '%s'", name)
}

// Define writes into the current (innermost) frame, unconditionally.
func (e *Environment) Define(name string, v Value) {
	e.frames[len(e.frames)-1][name] = v
}

// Assign walks frames from innermost to outermost; if the name is
// bound anywhere it is updated there, otherwise it is created in the
// global frame. This is spec's global-by-default assignment: 'set'
// outside a function targets globals, precisely because nothing but
// the global frame exists at that point.
func (e *Environment) Assign(name string, v Value) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if _, ok := e.frames[i][name]; ok {
			e.frames[i][name] = v
			return
		}
	}
	e.frames[0][name] = v
}
