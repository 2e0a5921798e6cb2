package dialogue

import (
	"testing"

	"botlang/internal/ioh"
	"botlang/internal/recognizer"
	"botlang/internal/values"
)

const snapshotBot = `
bot "snap" {
	intent Hi { patterns: ["hi"] }
	var n = 0
	state S initial {
		when Hi -> E
	}
	state E final { }
}
`

func TestSnapshotRoundTripPreservesStateAndGlobals(t *testing.T) {
	bot := buildBot(t, snapshotBot)
	buf := ioh.NewBuffer()
	s := NewSession(bot, recognizer.NewMock(), buf)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Env.Global()["n"] = values.Int(42)
	s.Env.Global()["tags"] = values.List([]values.Value{values.Str("a"), values.Str("b")})

	snap, err := s.ToSnapshot()
	if err != nil {
		t.Fatalf("ToSnapshot: %v", err)
	}
	if snap.State != "S" {
		t.Errorf("snapshot state = %q, want S", snap.State)
	}

	restored := NewSession(bot, recognizer.NewMock(), buf)
	if err := restored.RestoreSnapshot(snap); err != nil {
		t.Fatalf("RestoreSnapshot: %v", err)
	}
	if restored.CurrentStateName() != "S" {
		t.Errorf("restored state = %q, want S", restored.CurrentStateName())
	}
	n, ok := restored.Env.Global()["n"]
	if !ok || n.Int != 42 {
		t.Errorf("restored n = %v, want 42", n)
	}
	tags, ok := restored.Env.Global()["tags"]
	if !ok || len(tags.List.Items) != 2 || tags.List.Items[0].Str != "a" {
		t.Errorf("restored tags = %v, want [a b]", tags)
	}
}

func TestRestoreSnapshotRejectsWrongBot(t *testing.T) {
	bot := buildBot(t, snapshotBot)
	otherBot := buildBot(t, `bot "other" { state X initial final { } }`)
	buf := ioh.NewBuffer()
	s := NewSession(bot, recognizer.NewMock(), buf)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap, err := s.ToSnapshot()
	if err != nil {
		t.Fatalf("ToSnapshot: %v", err)
	}

	restored := NewSession(otherBot, recognizer.NewMock(), buf)
	if err := restored.RestoreSnapshot(snap); err == nil {
		t.Fatal("expected an error restoring a snapshot into a session for a different bot")
	}
}

func TestRestoreSnapshotRejectsUnknownState(t *testing.T) {
	bot := buildBot(t, snapshotBot)
	buf := ioh.NewBuffer()
	s := NewSession(bot, recognizer.NewMock(), buf)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap, err := s.ToSnapshot()
	if err != nil {
		t.Fatalf("ToSnapshot: %v", err)
	}
	snap.State = "NoSuchState"

	restored := NewSession(bot, recognizer.NewMock(), buf)
	if err := restored.RestoreSnapshot(snap); err == nil {
		t.Fatal("expected an error restoring a snapshot referencing an unknown state")
	}
}
