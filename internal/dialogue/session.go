// Package dialogue drives the finite state machine: it owns the
// current state, the Environment, and the IntentRecognizer, and
// implements start/enter/turn/exit exactly as the interpreter's
// contract with the state machine specifies.
package dialogue

import (
	"github.com/google/uuid"

	"botlang/internal/ast"
	"botlang/internal/errors"
	"botlang/internal/eval"
	"botlang/internal/ioh"
	"botlang/internal/recognize"
	"botlang/internal/values"
)

// maxStateEntriesPerTurn guards a turn against an on_enter that
// unconditionally goto's itself: exceeding it is a RuntimeError, not
// a crash.
const maxStateEntriesPerTurn = 64

// Session is one running dialogue: one bot, one Environment, one
// IntentRecognizer, one current state. Sessions share the immutable
// AST but never share an Environment or engine instance.
type Session struct {
	ID        string
	Bot       *ast.BotDef
	Env       *values.Environment
	Recognizer recognize.IntentRecognizer
	IO        ioh.IOHandler
	Eval      *eval.Evaluator

	current      *ast.StateDef
	ended        bool
	entriesInTurn int
}

func NewSession(bot *ast.BotDef, recognizer recognize.IntentRecognizer, io ioh.IOHandler) *Session {
	env := values.NewEnvironment()
	s := &Session{
		ID:         uuid.NewString(),
		Bot:        bot,
		Env:        env,
		Recognizer: recognizer,
		IO:         io,
	}
	s.Eval = eval.NewEvaluator(bot, env, io, s.CurrentStateName)
	return s
}

func (s *Session) CurrentStateName() string {
	if s.current == nil {
		return ""
	}
	return s.current.Name
}

func (s *Session) Ended() bool { return s.ended }

// Start initializes globals in declaration order, locates the unique
// initial state, and enters it.
func (s *Session) Start() error {
	for _, v := range s.Bot.Variables {
		val := values.Null
		if v.Init != nil {
			var err error
			val, err = s.Eval.EvalExpr(v.Init)
			if err != nil {
				return err
			}
		}
		s.Env.Global()[v.Name] = val
	}
	s.Env.Global()["_user_input"] = values.Str("")
	s.Env.Global()["_intent"] = values.Str("")
	s.Env.Global()["_confidence"] = values.Float(0)
	s.Env.Global()["_entities"] = values.Map(map[string]string{})

	var initial *ast.StateDef
	for _, st := range s.Bot.States {
		if st.IsInitial {
			initial = st
			break
		}
	}
	if initial == nil {
		return errors.Semantic(s.Bot.Line, "bot '%s' has no initial state", s.Bot.Name)
	}
	s.current = initial
	s.entriesInTurn = 1
	return s.enter(initial)
}

// enter runs on_enter and follows a chained goto as a loop, not
// recursion, so a long on_enter { goto X } chain does not grow the
// call stack.
func (s *Session) enter(state *ast.StateDef) error {
	for {
		s.current = state
		if state.OnEnter != nil {
			flow, err := s.Eval.ExecBlock(state.OnEnter)
			if err != nil {
				return err
			}
			if flow.Kind == eval.FlowGoto {
				next, err := s.nextStateOrCap(flow.State)
				if err != nil {
					return err
				}
				state = next
				continue
			}
		}
		if state.IsFinal {
			s.ended = true
		}
		return nil
	}
}

// exit runs on_exit; a Goto inside it supersedes the pending
// transition entirely, so the caller re-dispatches through enter
// rather than proceeding to the originally matched target.
func (s *Session) exit(state *ast.StateDef) (supersedingGoto string, didGoto bool, err error) {
	if state.OnExit == nil {
		return "", false, nil
	}
	flow, err := s.Eval.ExecBlock(state.OnExit)
	if err != nil {
		return "", false, err
	}
	if flow.Kind == eval.FlowGoto {
		return flow.State, true, nil
	}
	return "", false, nil
}

func (s *Session) nextStateOrCap(name string) (*ast.StateDef, error) {
	target, ok := s.Bot.StateByName[name]
	if !ok {
		return nil, errors.Runtime(s.current.Line, "goto references unknown state '%s'", name)
	}
	s.entriesInTurn++
	if s.entriesInTurn > maxStateEntriesPerTurn {
		return nil, errors.Runtime(s.current.Line, "state-entry cap exceeded (%d) in a single turn", maxStateEntriesPerTurn)
	}
	return target, nil
}

// context builds the read-only view the IntentRecognizer sees.
func (s *Session) context() recognize.Context {
	globals := map[string]string{}
	for k, v := range s.Env.Global() {
		globals[k] = v.ToString()
	}
	return recognize.Context{StateName: s.CurrentStateName(), Globals: globals}
}

func catalog(bot *ast.BotDef) []recognize.IntentCatalogEntry {
	out := make([]recognize.IntentCatalogEntry, len(bot.Intents))
	for i, it := range bot.Intents {
		out[i] = recognize.IntentCatalogEntry{
			Name:        it.Name,
			Patterns:    it.Patterns,
			Description: it.Description,
			Examples:    it.Examples,
		}
	}
	return out
}

// Turn processes one user utterance: classify, write special
// variables, dispatch on_message, find a matching transition (first
// match wins even over a later stricter guard), run fallback, or stay
// silent.
func (s *Session) Turn(text string) error {
	if s.ended {
		return errors.Runtime(s.current.Line, "session has already ended")
	}
	s.entriesInTurn = 0

	s.Env.Global()["_user_input"] = values.Str(text)
	result, err := s.Recognizer.Recognize(text, catalog(s.Bot), s.context())
	if err != nil {
		return errors.External(s.current.Line, "intent recognition failed: %v", err)
	}
	s.Env.Global()["_intent"] = values.Str(result.Intent)
	s.Env.Global()["_confidence"] = values.Float(result.Confidence)
	s.Env.Global()["_entities"] = values.Map(result.Entities)

	state := s.current

	if state.OnMessage != nil {
		flow, err := s.Eval.ExecBlock(state.OnMessage)
		if err != nil {
			return err
		}
		if flow.Kind == eval.FlowGoto {
			next, err := s.nextStateOrCap(flow.State)
			if err != nil {
				return err
			}
			return s.enter(next)
		}
	}

	var matched *ast.Transition
	for _, t := range state.Transitions {
		if t.IntentName != result.Intent {
			continue
		}
		if t.Guard != nil {
			guardVal, err := s.Eval.EvalExpr(t.Guard)
			if err != nil {
				return err
			}
			if !guardVal.IsTruthy() {
				continue
			}
		}
		matched = t
		break
	}

	if matched != nil {
		gotoTarget, didGoto, err := s.exit(state)
		if err != nil {
			return err
		}
		if didGoto {
			next, err := s.nextStateOrCap(gotoTarget)
			if err != nil {
				return err
			}
			return s.enter(next)
		}
		next, err := s.nextStateOrCap(matched.Target)
		if err != nil {
			return err
		}
		return s.enter(next)
	}

	if state.Fallback != nil {
		flow, err := s.Eval.ExecBlock(state.Fallback)
		if err != nil {
			return err
		}
		if flow.Kind == eval.FlowGoto {
			next, err := s.nextStateOrCap(flow.State)
			if err != nil {
				return err
			}
			return s.enter(next)
		}
	}
	return nil
}
