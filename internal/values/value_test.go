package values

import "testing"

func TestIsTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Null, false},
		{Bool(false), false},
		{Bool(true), true},
		{Int(0), false},
		{Int(1), true},
		{Float(0), false},
		{Float(0.5), true},
		{Str(""), false},
		{Str("x"), true},
		{List(nil), false},
		{List([]Value{Int(1)}), true},
		{Map(nil), false},
		{Map(map[string]string{"a": "b"}), true},
	}
	for _, c := range cases {
		if got := c.v.IsTruthy(); got != c.want {
			t.Errorf("IsTruthy(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestToString(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Null, "null"},
		{Bool(true), "true"},
		{Int(42), "42"},
		{Float(3.0), "3.0"},
		{Float(3.14), "3.14"},
		{Str("hi"), "hi"},
		{List([]Value{Int(1), Str("a")}), "[1, a]"},
	}
	for _, c := range cases {
		if got := c.v.ToString(); got != c.want {
			t.Errorf("ToString(%v) = %q, want %q", c.v, got, c.want)
		}
	}
}

func TestEqualCoercesIntAndFloat(t *testing.T) {
	if !Equal(Int(3), Float(3.0)) {
		t.Error("Equal(3, 3.0) = false, want true")
	}
	if Equal(Int(3), Float(3.1)) {
		t.Error("Equal(3, 3.1) = true, want false")
	}
}

func TestEqualStringsAndBools(t *testing.T) {
	if !Equal(Str("a"), Str("a")) {
		t.Error("Equal(a, a) = false, want true")
	}
	if Equal(Str("a"), Str("b")) {
		t.Error("Equal(a, b) = true, want false")
	}
	if Equal(Bool(true), Int(1)) {
		t.Error("Equal(true, 1) should be false: bool and int are different kinds")
	}
}

func TestEqualLists(t *testing.T) {
	a := List([]Value{Int(1), Str("x")})
	b := List([]Value{Int(1), Str("x")})
	c := List([]Value{Int(1), Str("y")})
	if !Equal(a, b) {
		t.Error("expected equal lists to compare equal")
	}
	if Equal(a, c) {
		t.Error("expected differing lists to compare unequal")
	}
}

func TestListValueReferenceSemantics(t *testing.T) {
	v := List([]Value{Int(1)})
	alias := v
	alias.List.Items = append(alias.List.Items, Int(2))
	if len(v.List.Items) != 2 {
		t.Errorf("expected the original list to observe the append through the shared pointer, got len %d", len(v.List.Items))
	}
}
