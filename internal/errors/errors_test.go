package errors

import "testing"

func TestErrorMessageFormat(t *testing.T) {
	err := Runtime(12, "undefined variable '%s'", "foo")
	want := "RuntimeError: undefined variable 'foo' (line 12)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := Semantic(3, "bad reference")
	if !Is(err, SemanticError) {
		t.Error("Is(err, SemanticError) = false, want true")
	}
	if Is(err, RuntimeError) {
		t.Error("Is(err, RuntimeError) = true, want false")
	}
}

func TestIsRejectsNonBotError(t *testing.T) {
	var plain error = nil
	if Is(plain, RuntimeError) {
		t.Error("Is(nil, ...) = true, want false")
	}
}

func TestConstructorsSetExpectedKind(t *testing.T) {
	cases := []struct {
		err  *BotError
		want Kind
	}{
		{Lexical(1, "x"), LexicalError},
		{Parse(1, "x"), ParseError},
		{Semantic(1, "x"), SemanticError},
		{Runtime(1, "x"), RuntimeError},
		{External(1, "x"), ExternalError},
	}
	for _, c := range cases {
		if c.err.Kind != c.want {
			t.Errorf("got kind %s, want %s", c.err.Kind, c.want)
		}
	}
}
