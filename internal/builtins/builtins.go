// Package builtins holds the fixed, name-indexed function table the
// evaluator dispatches to when a call doesn't resolve to a
// script-defined function.
package builtins

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"botlang/internal/errors"
	"botlang/internal/values"
)

// Func is a builtin's implementation. line is the call site, for
// error reporting.
type Func func(args []values.Value, line int) (values.Value, error)

type Builtin struct {
	Name     string
	Arity    int // -1 means variadic
	Function Func
}

// Table is the fixed builtin registry, plus the two callbacks that
// give builtins access to engine state without importing the
// dialogue package: current_state() and the print side channel.
type Table struct {
	entries      map[string]*Builtin
	currentState func() string
	printSink    func(string)
}

func NewTable(currentState func() string, printSink func(string)) *Table {
	t := &Table{
		entries:      map[string]*Builtin{},
		currentState: currentState,
		printSink:    printSink,
	}
	t.register()
	return t
}

func (t *Table) Lookup(name string) (*Builtin, bool) {
	b, ok := t.entries[name]
	return b, ok
}

func (t *Table) add(name string, arity int, fn Func) {
	t.entries[name] = &Builtin{Name: name, Arity: arity, Function: fn}
}

func wantString(v values.Value, argN int, fname string, line int) (string, error) {
	if v.Kind != values.KindString {
		return "", errors.Runtime(line, "%s: argument %d must be a string, got %s", fname, argN, v.Kind)
	}
	return v.Str, nil
}

func wantList(v values.Value, argN int, fname string, line int) (*values.ListValue, error) {
	if v.Kind != values.KindList {
		return nil, errors.Runtime(line, "%s: argument %d must be a list, got %s", fname, argN, v.Kind)
	}
	return v.List, nil
}

func numeric(v values.Value) (float64, bool, bool) {
	switch v.Kind {
	case values.KindInt:
		return float64(v.Int), false, true
	case values.KindFloat:
		return v.Flt, true, true
	}
	return 0, false, false
}

func (t *Table) register() {
	// --- String ---
	t.add("length", 1, func(a []values.Value, line int) (values.Value, error) {
		switch a[0].Kind {
		case values.KindString:
			return values.Int(int64(len([]rune(a[0].Str)))), nil
		case values.KindList:
			return values.Int(int64(len(a[0].List.Items))), nil
		}
		return values.Null, errors.Runtime(line, "length: argument must be a string or list, got %s", a[0].Kind)
	})
	t.add("upper", 1, func(a []values.Value, line int) (values.Value, error) {
		s, err := wantString(a[0], 1, "upper", line)
		if err != nil {
			return values.Null, err
		}
		return values.Str(strings.ToUpper(s)), nil
	})
	t.add("lower", 1, func(a []values.Value, line int) (values.Value, error) {
		s, err := wantString(a[0], 1, "lower", line)
		if err != nil {
			return values.Null, err
		}
		return values.Str(strings.ToLower(s)), nil
	})
	t.add("trim", 1, func(a []values.Value, line int) (values.Value, error) {
		s, err := wantString(a[0], 1, "trim", line)
		if err != nil {
			return values.Null, err
		}
		return values.Str(strings.TrimSpace(s)), nil
	})
	t.add("contains", 2, func(a []values.Value, line int) (values.Value, error) {
		s, err := wantString(a[0], 1, "contains", line)
		if err != nil {
			return values.Null, err
		}
		sub, err := wantString(a[1], 2, "contains", line)
		if err != nil {
			return values.Null, err
		}
		return values.Bool(strings.Contains(s, sub)), nil
	})
	t.add("startswith", 2, func(a []values.Value, line int) (values.Value, error) {
		s, err := wantString(a[0], 1, "startswith", line)
		if err != nil {
			return values.Null, err
		}
		p, err := wantString(a[1], 2, "startswith", line)
		if err != nil {
			return values.Null, err
		}
		return values.Bool(strings.HasPrefix(s, p)), nil
	})
	t.add("endswith", 2, func(a []values.Value, line int) (values.Value, error) {
		s, err := wantString(a[0], 1, "endswith", line)
		if err != nil {
			return values.Null, err
		}
		p, err := wantString(a[1], 2, "endswith", line)
		if err != nil {
			return values.Null, err
		}
		return values.Bool(strings.HasSuffix(s, p)), nil
	})
	t.add("replace", 3, func(a []values.Value, line int) (values.Value, error) {
		s, err := wantString(a[0], 1, "replace", line)
		if err != nil {
			return values.Null, err
		}
		from, err := wantString(a[1], 2, "replace", line)
		if err != nil {
			return values.Null, err
		}
		to, err := wantString(a[2], 3, "replace", line)
		if err != nil {
			return values.Null, err
		}
		return values.Str(strings.ReplaceAll(s, from, to)), nil
	})
	t.add("split", 2, func(a []values.Value, line int) (values.Value, error) {
		s, err := wantString(a[0], 1, "split", line)
		if err != nil {
			return values.Null, err
		}
		sep, err := wantString(a[1], 2, "split", line)
		if err != nil {
			return values.Null, err
		}
		parts := strings.Split(s, sep)
		items := make([]values.Value, len(parts))
		for i, p := range parts {
			items[i] = values.Str(p)
		}
		return values.List(items), nil
	})
	t.add("join", 2, func(a []values.Value, line int) (values.Value, error) {
		list, err := wantList(a[0], 1, "join", line)
		if err != nil {
			return values.Null, err
		}
		sep, err := wantString(a[1], 2, "join", line)
		if err != nil {
			return values.Null, err
		}
		parts := make([]string, len(list.Items))
		for i, v := range list.Items {
			parts[i] = v.ToString()
		}
		return values.Str(strings.Join(parts, sep)), nil
	})

	// --- Conversion ---
	t.add("str", 1, func(a []values.Value, line int) (values.Value, error) {
		return values.Str(a[0].ToString()), nil
	})
	t.add("int", 1, func(a []values.Value, line int) (values.Value, error) {
		switch a[0].Kind {
		case values.KindInt:
			return a[0], nil
		case values.KindFloat:
			return values.Int(int64(a[0].Flt)), nil
		case values.KindBool:
			if a[0].Bool {
				return values.Int(1), nil
			}
			return values.Int(0), nil
		case values.KindString:
			i, err := strconv.ParseInt(strings.TrimSpace(a[0].Str), 10, 64)
			if err != nil {
				return values.Null, errors.Runtime(line, "int: cannot parse '%s' as an integer", a[0].Str)
			}
			return values.Int(i), nil
		}
		return values.Null, errors.Runtime(line, "int: cannot convert %s", a[0].Kind)
	})
	t.add("float", 1, func(a []values.Value, line int) (values.Value, error) {
		switch a[0].Kind {
		case values.KindFloat:
			return a[0], nil
		case values.KindInt:
			return values.Float(float64(a[0].Int)), nil
		case values.KindBool:
			if a[0].Bool {
				return values.Float(1), nil
			}
			return values.Float(0), nil
		case values.KindString:
			f, err := strconv.ParseFloat(strings.TrimSpace(a[0].Str), 64)
			if err != nil {
				return values.Null, errors.Runtime(line, "float: cannot parse '%s' as a float", a[0].Str)
			}
			return values.Float(f), nil
		}
		return values.Null, errors.Runtime(line, "float: cannot convert %s", a[0].Kind)
	})
	t.add("bool", 1, func(a []values.Value, line int) (values.Value, error) {
		return values.Bool(a[0].IsTruthy()), nil
	})

	// --- List ---
	t.add("first", 1, func(a []values.Value, line int) (values.Value, error) {
		list, err := wantList(a[0], 1, "first", line)
		if err != nil {
			return values.Null, err
		}
		if len(list.Items) == 0 {
			return values.Null, errors.Runtime(line, "first: list is empty")
		}
		return list.Items[0], nil
	})
	t.add("last", 1, func(a []values.Value, line int) (values.Value, error) {
		list, err := wantList(a[0], 1, "last", line)
		if err != nil {
			return values.Null, err
		}
		if len(list.Items) == 0 {
			return values.Null, errors.Runtime(line, "last: list is empty")
		}
		return list.Items[len(list.Items)-1], nil
	})
	t.add("append", 2, func(a []values.Value, line int) (values.Value, error) {
		list, err := wantList(a[0], 1, "append", line)
		if err != nil {
			return values.Null, err
		}
		list.Items = append(list.Items, a[1])
		return a[0], nil
	})
	t.add("pop", 1, func(a []values.Value, line int) (values.Value, error) {
		list, err := wantList(a[0], 1, "pop", line)
		if err != nil {
			return values.Null, err
		}
		if len(list.Items) == 0 {
			return values.Null, errors.Runtime(line, "pop: list is empty")
		}
		last := list.Items[len(list.Items)-1]
		list.Items = list.Items[:len(list.Items)-1]
		return last, nil
	})
	t.add("slice", 3, func(a []values.Value, line int) (values.Value, error) {
		list, err := wantList(a[0], 1, "slice", line)
		if err != nil {
			return values.Null, err
		}
		if a[1].Kind != values.KindInt || a[2].Kind != values.KindInt {
			return values.Null, errors.Runtime(line, "slice: start and end must be integers")
		}
		n := len(list.Items)
		start := clamp(int(a[1].Int), 0, n)
		end := clamp(int(a[2].Int), 0, n)
		if end < start {
			end = start
		}
		out := make([]values.Value, end-start)
		copy(out, list.Items[start:end])
		return values.List(out), nil
	})

	// --- Math ---
	t.add("abs", 1, func(a []values.Value, line int) (values.Value, error) {
		switch a[0].Kind {
		case values.KindInt:
			v := a[0].Int
			if v < 0 {
				v = -v
			}
			return values.Int(v), nil
		case values.KindFloat:
			return values.Float(math.Abs(a[0].Flt)), nil
		}
		return values.Null, errors.Runtime(line, "abs: argument must be a number, got %s", a[0].Kind)
	})
	t.add("min", 2, func(a []values.Value, line int) (values.Value, error) { return minmax(a[0], a[1], true, line) })
	t.add("max", 2, func(a []values.Value, line int) (values.Value, error) { return minmax(a[0], a[1], false, line) })
	t.add("round", 1, func(a []values.Value, line int) (values.Value, error) {
		f, isFloat, ok := numeric(a[0])
		if !ok {
			return values.Null, errors.Runtime(line, "round: argument must be a number, got %s", a[0].Kind)
		}
		if !isFloat {
			return a[0], nil
		}
		return values.Int(int64(math.Round(f))), nil
	})

	// --- Utility ---
	t.add("print", -1, func(a []values.Value, line int) (values.Value, error) {
		parts := make([]string, len(a))
		for i, v := range a {
			parts[i] = v.ToString()
		}
		if t.printSink != nil {
			t.printSink(strings.Join(parts, " "))
		}
		return values.Null, nil
	})
	t.add("format", -1, func(a []values.Value, line int) (values.Value, error) {
		if len(a) == 0 {
			return values.Null, errors.Runtime(line, "format: requires a template argument")
		}
		template, err := wantString(a[0], 1, "format", line)
		if err != nil {
			return values.Null, err
		}
		var sb strings.Builder
		argIdx := 1
		for i := 0; i < len(template); i++ {
			if template[i] == '{' && i+1 < len(template) && template[i+1] == '}' {
				if argIdx < len(a) {
					sb.WriteString(a[argIdx].ToString())
					argIdx++
				}
				i++
				continue
			}
			sb.WriteByte(template[i])
		}
		return values.Str(sb.String()), nil
	})
	t.add("match", 2, func(a []values.Value, line int) (values.Value, error) {
		pattern, err := wantString(a[0], 1, "match", line)
		if err != nil {
			return values.Null, err
		}
		s, err := wantString(a[1], 2, "match", line)
		if err != nil {
			return values.Null, err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return values.Null, errors.Runtime(line, "match: invalid pattern '%s': %v", pattern, err)
		}
		return values.Bool(re.MatchString(s)), nil
	})
	t.add("current_state", 0, func(a []values.Value, line int) (values.Value, error) {
		if t.currentState == nil {
			return values.Str(""), nil
		}
		return values.Str(t.currentState()), nil
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minmax(a, b values.Value, wantMin bool, line int) (values.Value, error) {
	af, aFloat, aok := numeric(a)
	bf, bFloat, bok := numeric(b)
	if !aok || !bok {
		return values.Null, errors.Runtime(line, "min/max: arguments must be numbers")
	}
	pick := af < bf
	if !wantMin {
		pick = af > bf
	}
	if pick {
		if aFloat {
			return values.Float(af), nil
		}
		return a, nil
	}
	if bFloat {
		return values.Float(bf), nil
	}
	return b, nil
}
