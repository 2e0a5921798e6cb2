package ioh

import "testing"

func TestBufferOutputRecordsInOrder(t *testing.T) {
	b := NewBuffer()
	b.Output("first")
	b.Output("second")
	if len(b.Outputs) != 2 || b.Outputs[0] != "first" || b.Outputs[1] != "second" {
		t.Errorf("outputs = %v, want [first second]", b.Outputs)
	}
}

func TestBufferInputDrainsQueueInOrder(t *testing.T) {
	b := NewBuffer("alice", "bob")
	first, err := b.Input("name?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != "alice" {
		t.Errorf("first input = %q, want alice", first)
	}
	second, _ := b.Input("again?")
	if second != "bob" {
		t.Errorf("second input = %q, want bob", second)
	}
}

func TestBufferInputReturnsEmptyWhenExhausted(t *testing.T) {
	b := NewBuffer("only")
	b.Input("p")
	v, err := b.Input("p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "" {
		t.Errorf("exhausted input = %q, want empty string", v)
	}
}

func TestBufferInputRecordsPromptAsOutput(t *testing.T) {
	b := NewBuffer("x")
	b.Input("what is your name?")
	if len(b.Outputs) != 1 || b.Outputs[0] != "what is your name?" {
		t.Errorf("outputs = %v, want the prompt recorded", b.Outputs)
	}
}

func TestBufferDebugRecordsInOrder(t *testing.T) {
	b := NewBuffer()
	b.Debug("entering state S")
	if len(b.Debugs) != 1 || b.Debugs[0] != "entering state S" {
		t.Errorf("debugs = %v, want [entering state S]", b.Debugs)
	}
}
