package builtins

import (
	"testing"

	"botlang/internal/values"
)

func call(t *testing.T, table *Table, name string, args ...values.Value) values.Value {
	t.Helper()
	b, ok := table.Lookup(name)
	if !ok {
		t.Fatalf("no builtin named %q", name)
	}
	v, err := b.Function(args, 1)
	if err != nil {
		t.Fatalf("%s(%v) returned an error: %v", name, args, err)
	}
	return v
}

func TestLookupUnknownBuiltin(t *testing.T) {
	table := NewTable(nil, nil)
	if _, ok := table.Lookup("nope"); ok {
		t.Error("expected no builtin named 'nope'")
	}
}

func TestStringBuiltins(t *testing.T) {
	table := NewTable(nil, nil)
	if got := call(t, table, "upper", values.Str("hi")).Str; got != "HI" {
		t.Errorf("upper = %q, want HI", got)
	}
	if got := call(t, table, "lower", values.Str("HI")).Str; got != "hi" {
		t.Errorf("lower = %q, want hi", got)
	}
	if got := call(t, table, "trim", values.Str("  hi  ")).Str; got != "hi" {
		t.Errorf("trim = %q, want hi", got)
	}
	if got := call(t, table, "contains", values.Str("hello"), values.Str("ell")).Bool; !got {
		t.Error("contains(hello, ell) = false, want true")
	}
	if got := call(t, table, "startswith", values.Str("hello"), values.Str("he")).Bool; !got {
		t.Error("startswith(hello, he) = false, want true")
	}
	if got := call(t, table, "endswith", values.Str("hello"), values.Str("lo")).Bool; !got {
		t.Error("endswith(hello, lo) = false, want true")
	}
	if got := call(t, table, "replace", values.Str("aaa"), values.Str("a"), values.Str("b")).Str; got != "bbb" {
		t.Errorf("replace = %q, want bbb", got)
	}
	if got := call(t, table, "length", values.Str("hi")).Int; got != 2 {
		t.Errorf("length(string) = %d, want 2", got)
	}
}

func TestLengthOnUnicodeString(t *testing.T) {
	table := NewTable(nil, nil)
	if got := call(t, table, "length", values.Str("你好")).Int; got != 2 {
		t.Errorf("length(你好) = %d, want 2 (rune count, not byte count)", got)
	}
}

func TestSplitAndJoin(t *testing.T) {
	table := NewTable(nil, nil)
	split := call(t, table, "split", values.Str("a,b,c"), values.Str(","))
	if len(split.List.Items) != 3 {
		t.Fatalf("split produced %d items, want 3", len(split.List.Items))
	}
	joined := call(t, table, "join", split, values.Str("-"))
	if joined.Str != "a-b-c" {
		t.Errorf("join = %q, want a-b-c", joined.Str)
	}
}

func TestConversionBuiltins(t *testing.T) {
	table := NewTable(nil, nil)
	if got := call(t, table, "str", values.Int(42)).Str; got != "42" {
		t.Errorf("str(42) = %q, want 42", got)
	}
	if got := call(t, table, "int", values.Str("42")).Int; got != 42 {
		t.Errorf("int('42') = %d, want 42", got)
	}
	if got := call(t, table, "float", values.Str("3.5")).Flt; got != 3.5 {
		t.Errorf("float('3.5') = %v, want 3.5", got)
	}
	if got := call(t, table, "bool", values.Int(0)).Bool; got {
		t.Error("bool(0) = true, want false")
	}
}

func TestIntConversionOnBadStringErrors(t *testing.T) {
	table := NewTable(nil, nil)
	b, _ := table.Lookup("int")
	_, err := b.Function([]values.Value{values.Str("not a number")}, 1)
	if err == nil {
		t.Fatal("expected an error parsing a non-numeric string")
	}
}

func TestListBuiltinsAndAppendMutatesInPlace(t *testing.T) {
	table := NewTable(nil, nil)
	list := values.List([]values.Value{values.Int(1), values.Int(2)})
	call(t, table, "append", list, values.Int(3))
	if len(list.List.Items) != 3 {
		t.Fatalf("append should mutate the shared list in place, got len %d", len(list.List.Items))
	}
	if got := call(t, table, "first", list).Int; got != 1 {
		t.Errorf("first = %d, want 1", got)
	}
	if got := call(t, table, "last", list).Int; got != 3 {
		t.Errorf("last = %d, want 3", got)
	}
	popped := call(t, table, "pop", list)
	if popped.Int != 3 {
		t.Errorf("pop returned %d, want 3", popped.Int)
	}
	if len(list.List.Items) != 2 {
		t.Errorf("pop should shrink the shared list, got len %d", len(list.List.Items))
	}
}

func TestSliceClampsOutOfRangeIndices(t *testing.T) {
	table := NewTable(nil, nil)
	list := values.List([]values.Value{values.Int(1), values.Int(2), values.Int(3)})
	out := call(t, table, "slice", list, values.Int(-5), values.Int(99))
	if len(out.List.Items) != 3 {
		t.Errorf("slice with out-of-range bounds should clamp to the list, got len %d", len(out.List.Items))
	}
}

func TestMathBuiltins(t *testing.T) {
	table := NewTable(nil, nil)
	if got := call(t, table, "abs", values.Int(-5)).Int; got != 5 {
		t.Errorf("abs(-5) = %d, want 5", got)
	}
	if got := call(t, table, "min", values.Int(3), values.Int(7)).Int; got != 3 {
		t.Errorf("min(3, 7) = %d, want 3", got)
	}
	if got := call(t, table, "max", values.Int(3), values.Int(7)).Int; got != 7 {
		t.Errorf("max(3, 7) = %d, want 7", got)
	}
	if got := call(t, table, "round", values.Float(2.6)).Int; got != 3 {
		t.Errorf("round(2.6) = %d, want 3", got)
	}
	if got := call(t, table, "round", values.Int(4)).Int; got != 4 {
		t.Errorf("round(4) should pass an int through unchanged, got %d", got)
	}
}

func TestPrintRoutesThroughSink(t *testing.T) {
	var captured string
	table := NewTable(nil, func(s string) { captured = s })
	call(t, table, "print", values.Str("hello"), values.Int(1))
	if captured != "hello 1" {
		t.Errorf("print sink got %q, want 'hello 1'", captured)
	}
}

func TestFormatSubstitutesPlaceholders(t *testing.T) {
	table := NewTable(nil, nil)
	out := call(t, table, "format", values.Str("hi {}, you are {}"), values.Str("bob"), values.Int(30))
	if out.Str != "hi bob, you are 30" {
		t.Errorf("format = %q, want 'hi bob, you are 30'", out.Str)
	}
}

func TestMatchBuiltin(t *testing.T) {
	table := NewTable(nil, nil)
	if got := call(t, table, "match", values.Str("^h.*o$"), values.Str("hello")).Bool; !got {
		t.Error("match should succeed for a matching pattern")
	}
	if got := call(t, table, "match", values.Str("^h.*o$"), values.Str("bye")).Bool; got {
		t.Error("match should fail for a non-matching pattern")
	}
}

func TestCurrentStateBuiltinCallsBackIntoEngine(t *testing.T) {
	table := NewTable(func() string { return "checkout" }, nil)
	if got := call(t, table, "current_state").Str; got != "checkout" {
		t.Errorf("current_state() = %q, want checkout", got)
	}
}
