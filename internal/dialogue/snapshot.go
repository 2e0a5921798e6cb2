package dialogue

import (
	"encoding/json"
	"fmt"

	"botlang/internal/errors"
	"botlang/internal/store"
	"botlang/internal/values"
)

// wireValue is the JSON-safe mirror of values.Value used only for
// persistence; the runtime Value itself is never marshaled directly
// since KindList/KindMap hold pointers and raw Go maps.
type wireValue struct {
	Kind int               `json:"kind"`
	Bool bool              `json:"bool,omitempty"`
	Int  int64             `json:"int,omitempty"`
	Flt  float64           `json:"flt,omitempty"`
	Str  string            `json:"str,omitempty"`
	List []wireValue       `json:"list,omitempty"`
	Map  map[string]string `json:"map,omitempty"`
}

func toWire(v values.Value) wireValue {
	w := wireValue{Kind: int(v.Kind), Bool: v.Bool, Int: v.Int, Flt: v.Flt, Str: v.Str, Map: v.Map}
	if v.Kind == values.KindList {
		w.List = make([]wireValue, len(v.List.Items))
		for i, item := range v.List.Items {
			w.List[i] = toWire(item)
		}
	}
	return w
}

func fromWire(w wireValue) values.Value {
	v := values.Value{Kind: values.Kind(w.Kind), Bool: w.Bool, Int: w.Int, Flt: w.Flt, Str: w.Str, Map: w.Map}
	if v.Kind == values.KindList {
		items := make([]values.Value, len(w.List))
		for i, item := range w.List {
			items[i] = fromWire(item)
		}
		v.List = &values.ListValue{Items: items}
	}
	return v
}

// ToSnapshot serializes the current state name and global frame for
// persistence through a store.Store.
func (s *Session) ToSnapshot() (store.Snapshot, error) {
	wire := map[string]wireValue{}
	for name, v := range s.Env.Global() {
		wire[name] = toWire(v)
	}
	blob, err := json.Marshal(wire)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("dialogue: marshal globals: %w", err)
	}
	return store.Snapshot{
		SessionID:   s.ID,
		BotName:     s.Bot.Name,
		State:       s.CurrentStateName(),
		GlobalsJSON: string(blob),
	}, nil
}

// RestoreSnapshot puts a Session back into the state a prior
// ToSnapshot captured, without running on_enter again — resuming a
// session picks up where it left off, it doesn't re-enter the state.
func (s *Session) RestoreSnapshot(snap store.Snapshot) error {
	if snap.BotName != s.Bot.Name {
		return errors.Semantic(s.Bot.Line, "snapshot bot '%s' does not match session bot '%s'", snap.BotName, s.Bot.Name)
	}
	state, ok := s.Bot.StateByName[snap.State]
	if !ok {
		return errors.Semantic(s.Bot.Line, "snapshot references unknown state '%s'", snap.State)
	}

	var wire map[string]wireValue
	if err := json.Unmarshal([]byte(snap.GlobalsJSON), &wire); err != nil {
		return fmt.Errorf("dialogue: unmarshal globals: %w", err)
	}
	global := s.Env.Global()
	for k := range global {
		delete(global, k)
	}
	for name, w := range wire {
		global[name] = fromWire(w)
	}

	s.ID = snap.SessionID
	s.current = state
	s.ended = state.IsFinal
	return nil
}
