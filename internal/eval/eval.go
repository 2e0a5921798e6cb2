// Package eval walks the AST: it evaluates expressions against an
// Environment and a builtin table, and executes statement blocks,
// propagating Goto/Return/Break/Continue signals outward.
package eval

import (
	"math"

	"botlang/internal/ast"
	"botlang/internal/builtins"
	"botlang/internal/errors"
	"botlang/internal/ioh"
	"botlang/internal/values"
)

// FlowKind tags the non-local signal a statement or block can
// propagate. It is never implemented via panic/recover: exec_block
// returns it explicitly and every composite statement forwards it
// unchanged, per the control-flow model this language commits to.
type FlowKind int

const (
	FlowNormal FlowKind = iota
	FlowReturn
	FlowGoto
	FlowBreak
	FlowContinue
)

type Flow struct {
	Kind  FlowKind
	Value values.Value // for FlowReturn
	State string       // for FlowGoto
}

var normalFlow = Flow{Kind: FlowNormal}

// Evaluator holds everything needed to run one bot's functions and
// blocks against one Environment. CurrentStateFn lets the
// current_state() builtin read the Dialogue Engine's state without
// this package importing it.
type Evaluator struct {
	Bot           *ast.BotDef
	Env           *values.Environment
	IO            ioh.IOHandler
	Builtins      *builtins.Table
	CurrentStateFn func() string
}

func NewEvaluator(bot *ast.BotDef, env *values.Environment, io ioh.IOHandler, currentState func() string) *Evaluator {
	e := &Evaluator{Bot: bot, Env: env, IO: io, CurrentStateFn: currentState}
	e.Builtins = builtins.NewTable(currentState, func(s string) {
		if io != nil {
			io.Debug(s)
		}
	})
	return e
}

// EvalExpr evaluates one expression node to a Value.
func (e *Evaluator) EvalExpr(expr ast.Expr) (values.Value, error) {
	res, err := expr.Accept(e)
	if err != nil {
		return values.Null, err
	}
	return res.(values.Value), nil
}

// ExecBlock runs a block's statements in source order, stopping and
// returning the first non-Normal signal.
func (e *Evaluator) ExecBlock(block *ast.Block) (Flow, error) {
	if block == nil {
		return normalFlow, nil
	}
	for _, stmt := range block.Stmts {
		res, err := stmt.Accept(e)
		if err != nil {
			return normalFlow, err
		}
		flow := res.(Flow)
		if flow.Kind != FlowNormal {
			return flow, nil
		}
	}
	return normalFlow, nil
}

// --- ast.ExprVisitor ---

func (e *Evaluator) VisitLiteral(lit *ast.LiteralExpr) (interface{}, error) {
	switch lit.Kind {
	case ast.LitNull:
		return values.Null, nil
	case ast.LitBool:
		return values.Bool(lit.Bool), nil
	case ast.LitInt:
		return values.Int(lit.Int), nil
	case ast.LitFloat:
		return values.Float(lit.Flt), nil
	case ast.LitString:
		return values.Str(lit.Str), nil
	}
	return values.Null, nil
}

func (e *Evaluator) VisitIdentifier(id *ast.IdentifierExpr) (interface{}, error) {
	v, err := e.Env.Lookup(id.Name, id.Line)
	if err != nil {
		return values.Null, err
	}
	return v, nil
}

func (e *Evaluator) VisitSpecialVar(sv *ast.SpecialVarExpr) (interface{}, error) {
	if v, ok := e.Env.Global()[sv.Name]; ok {
		return v, nil
	}
	return values.Null, nil
}

func (e *Evaluator) VisitList(l *ast.ListExpr) (interface{}, error) {
	items := make([]values.Value, len(l.Items))
	for i, item := range l.Items {
		v, err := e.EvalExpr(item)
		if err != nil {
			return values.Null, err
		}
		items[i] = v
	}
	return values.List(items), nil
}

func (e *Evaluator) VisitIndex(idx *ast.IndexExpr) (interface{}, error) {
	target, err := e.EvalExpr(idx.Target)
	if err != nil {
		return values.Null, err
	}
	switch target.Kind {
	case values.KindList:
		key, err := e.EvalExpr(idx.Key)
		if err != nil {
			return values.Null, err
		}
		if key.Kind != values.KindInt {
			return values.Null, errors.Runtime(idx.Line, "list index must be an integer, got %s", key.Kind)
		}
		if key.Int < 0 || key.Int >= int64(len(target.List.Items)) {
			return values.Null, errors.Runtime(idx.Line, "list index %d out of range (length %d)", key.Int, len(target.List.Items))
		}
		return target.List.Items[key.Int], nil
	case values.KindMap:
		key, err := e.EvalExpr(idx.Key)
		if err != nil {
			return values.Null, err
		}
		if key.Kind != values.KindString {
			return values.Null, errors.Runtime(idx.Line, "map index must be a string, got %s", key.Kind)
		}
		if s, ok := target.Map[key.Str]; ok {
			return values.Str(s), nil
		}
		return values.Null, nil
	}
	return values.Null, errors.Runtime(idx.Line, "cannot index a value of kind %s", target.Kind)
}

func (e *Evaluator) VisitUnary(u *ast.UnaryExpr) (interface{}, error) {
	inner, err := e.EvalExpr(u.Inner)
	if err != nil {
		return values.Null, err
	}
	switch u.Op {
	case ast.OpNot:
		return values.Bool(!inner.IsTruthy()), nil
	case ast.OpNeg:
		switch inner.Kind {
		case values.KindInt:
			return values.Int(-inner.Int), nil
		case values.KindFloat:
			return values.Float(-inner.Flt), nil
		}
		return values.Null, errors.Runtime(u.Line, "unary '-' requires a number, got %s", inner.Kind)
	}
	return values.Null, nil
}

func (e *Evaluator) VisitBinary(b *ast.BinaryExpr) (interface{}, error) {
	left, err := e.EvalExpr(b.L)
	if err != nil {
		return values.Null, err
	}
	switch b.Op {
	case ast.OpOr:
		if left.IsTruthy() {
			return left, nil
		}
		right, err := e.EvalExpr(b.R)
		if err != nil {
			return values.Null, err
		}
		return right, nil
	case ast.OpAnd:
		if !left.IsTruthy() {
			return left, nil
		}
		right, err := e.EvalExpr(b.R)
		if err != nil {
			return values.Null, err
		}
		return right, nil
	}

	right, err := e.EvalExpr(b.R)
	if err != nil {
		return values.Null, err
	}
	return evalBinary(b.Op, left, right, b.Line)
}

func isNumber(v values.Value) bool {
	return v.Kind == values.KindInt || v.Kind == values.KindFloat
}

func evalBinary(op ast.BinaryOp, l, r values.Value, line int) (values.Value, error) {
	switch op {
	case ast.OpEq:
		return values.Bool(values.Equal(l, r)), nil
	case ast.OpNe:
		return values.Bool(!values.Equal(l, r)), nil
	case ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe:
		return compare(op, l, r, line)
	case ast.OpAdd:
		return add(l, r, line)
	case ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		return arith(op, l, r, line)
	}
	return values.Null, errors.Runtime(line, "unsupported operator")
}

func compare(op ast.BinaryOp, l, r values.Value, line int) (values.Value, error) {
	if isNumber(l) && isNumber(r) {
		lf, _, _ := asFloat(l)
		rf, _, _ := asFloat(r)
		return values.Bool(compareFloats(op, lf, rf)), nil
	}
	if l.Kind == values.KindString && r.Kind == values.KindString {
		return values.Bool(compareStrings(op, l.Str, r.Str)), nil
	}
	return values.Null, errors.Runtime(line, "cannot order %s and %s", l.Kind, r.Kind)
}

func compareFloats(op ast.BinaryOp, l, r float64) bool {
	switch op {
	case ast.OpLt:
		return l < r
	case ast.OpGt:
		return l > r
	case ast.OpLe:
		return l <= r
	case ast.OpGe:
		return l >= r
	}
	return false
}

func compareStrings(op ast.BinaryOp, l, r string) bool {
	switch op {
	case ast.OpLt:
		return l < r
	case ast.OpGt:
		return l > r
	case ast.OpLe:
		return l <= r
	case ast.OpGe:
		return l >= r
	}
	return false
}

func asFloat(v values.Value) (float64, bool, bool) {
	switch v.Kind {
	case values.KindInt:
		return float64(v.Int), false, true
	case values.KindFloat:
		return v.Flt, true, true
	}
	return 0, false, false
}

// add overloads '+': numeric addition when both sides are numbers,
// string concatenation when either side is a string (the other
// coerced the same way str() would), list concatenation unsupported.
func add(l, r values.Value, line int) (values.Value, error) {
	if isNumber(l) && isNumber(r) {
		return arith(ast.OpAdd, l, r, line)
	}
	if l.Kind == values.KindString || r.Kind == values.KindString {
		return values.Str(l.ToString() + r.ToString()), nil
	}
	return values.Null, errors.Runtime(line, "cannot add %s and %s", l.Kind, r.Kind)
}

func arith(op ast.BinaryOp, l, r values.Value, line int) (values.Value, error) {
	if !isNumber(l) || !isNumber(r) {
		return values.Null, errors.Runtime(line, "arithmetic requires numbers, got %s and %s", l.Kind, r.Kind)
	}
	lf, lFloat, _ := asFloat(l)
	rf, rFloat, _ := asFloat(r)
	floating := lFloat || rFloat

	switch op {
	case ast.OpAdd:
		if floating {
			return values.Float(lf + rf), nil
		}
		return values.Int(l.Int + r.Int), nil
	case ast.OpSub:
		if floating {
			return values.Float(lf - rf), nil
		}
		return values.Int(l.Int - r.Int), nil
	case ast.OpMul:
		if floating {
			return values.Float(lf * rf), nil
		}
		return values.Int(l.Int * r.Int), nil
	case ast.OpDiv:
		if rf == 0 {
			return values.Null, errors.Runtime(line, "division by zero")
		}
		if floating {
			return values.Float(lf / rf), nil
		}
		if l.Int%r.Int == 0 {
			return values.Int(l.Int / r.Int), nil
		}
		return values.Float(lf / rf), nil
	case ast.OpMod:
		if rf == 0 {
			return values.Null, errors.Runtime(line, "division by zero")
		}
		if floating {
			return values.Float(math.Mod(lf, rf)), nil
		}
		return values.Int(l.Int % r.Int), nil
	}
	return values.Null, errors.Runtime(line, "unsupported arithmetic operator")
}

func (e *Evaluator) VisitCall(c *ast.CallExpr) (interface{}, error) {
	v, err := e.call(c)
	if err != nil {
		return values.Null, err
	}
	return v, nil
}

func (e *Evaluator) call(c *ast.CallExpr) (values.Value, error) {
	args := make([]values.Value, len(c.Args))
	for i, a := range c.Args {
		v, err := e.EvalExpr(a)
		if err != nil {
			return values.Null, err
		}
		args[i] = v
	}

	if fn, ok := e.Bot.FunctionByName[c.Name]; ok {
		return e.callUserFunction(fn, args, c.Line)
	}
	if b, ok := e.Builtins.Lookup(c.Name); ok {
		if b.Arity >= 0 && len(args) != b.Arity {
			return values.Null, errors.Runtime(c.Line, "%s expects %d argument(s), got %d", c.Name, b.Arity, len(args))
		}
		return b.Function(args, c.Line)
	}
	return values.Null, errors.Runtime(c.Line, "undefined function '%s'", c.Name)
}

func (e *Evaluator) callUserFunction(fn *ast.FunctionDef, args []values.Value, line int) (values.Value, error) {
	if len(args) > len(fn.Params) {
		return values.Null, errors.Runtime(line, "%s: too many arguments (expected at most %d, got %d)", fn.Name, len(fn.Params), len(args))
	}
	e.Env.Push()
	defer e.Env.Pop()

	for i, param := range fn.Params {
		if i < len(args) {
			e.Env.Define(param.Name, args[i])
			continue
		}
		if param.Default == nil {
			return values.Null, errors.Runtime(line, "%s: missing required argument '%s'", fn.Name, param.Name)
		}
		v, err := e.EvalExpr(param.Default)
		if err != nil {
			return values.Null, err
		}
		e.Env.Define(param.Name, v)
	}

	flow, err := e.ExecBlock(fn.Body)
	if err != nil {
		return values.Null, err
	}
	if flow.Kind == FlowReturn {
		return flow.Value, nil
	}
	return values.Null, nil
}

// --- ast.StmtVisitor ---

func (e *Evaluator) VisitSay(s *ast.SayStmt) (interface{}, error) {
	v, err := e.EvalExpr(s.Expr)
	if err != nil {
		return normalFlow, err
	}
	e.IO.Output(v.ToString())
	return normalFlow, nil
}

func (e *Evaluator) VisitAsk(s *ast.AskStmt) (interface{}, error) {
	prompt, err := e.EvalExpr(s.Prompt)
	if err != nil {
		return normalFlow, err
	}
	line, err := e.IO.Input(prompt.ToString())
	if err != nil {
		return normalFlow, errors.External(s.Line, "input failed: %v", err)
	}
	e.Env.Assign(s.Target, values.Str(line))
	return normalFlow, nil
}

func (e *Evaluator) VisitSet(s *ast.SetStmt) (interface{}, error) {
	v, err := e.EvalExpr(s.Expr)
	if err != nil {
		return normalFlow, err
	}
	e.Env.Assign(s.Name, v)
	return normalFlow, nil
}

func (e *Evaluator) VisitGoto(s *ast.GotoStmt) (interface{}, error) {
	return Flow{Kind: FlowGoto, State: s.State}, nil
}

func (e *Evaluator) VisitCallStmt(s *ast.CallStmt) (interface{}, error) {
	_, err := e.call(s.Call)
	if err != nil {
		return normalFlow, err
	}
	return normalFlow, nil
}

func (e *Evaluator) VisitReturn(s *ast.ReturnStmt) (interface{}, error) {
	if s.Value == nil {
		return Flow{Kind: FlowReturn, Value: values.Null}, nil
	}
	v, err := e.EvalExpr(s.Value)
	if err != nil {
		return normalFlow, err
	}
	return Flow{Kind: FlowReturn, Value: v}, nil
}

func (e *Evaluator) VisitIf(s *ast.IfStmt) (interface{}, error) {
	for _, branch := range s.Branches {
		cond, err := e.EvalExpr(branch.Cond)
		if err != nil {
			return normalFlow, err
		}
		if cond.IsTruthy() {
			return e.ExecBlock(branch.Body)
		}
	}
	if s.Else != nil {
		return e.ExecBlock(s.Else)
	}
	return normalFlow, nil
}

func (e *Evaluator) VisitWhile(s *ast.WhileStmt) (interface{}, error) {
	for {
		cond, err := e.EvalExpr(s.Cond)
		if err != nil {
			return normalFlow, err
		}
		if !cond.IsTruthy() {
			break
		}
		flow, err := e.ExecBlock(s.Body)
		if err != nil {
			return normalFlow, err
		}
		switch flow.Kind {
		case FlowBreak:
			return normalFlow, nil
		case FlowContinue:
			continue
		case FlowReturn, FlowGoto:
			return flow, nil
		}
	}
	return normalFlow, nil
}

func (e *Evaluator) VisitFor(s *ast.ForStmt) (interface{}, error) {
	iter, err := e.EvalExpr(s.Iterable)
	if err != nil {
		return normalFlow, err
	}

	var elements []values.Value
	switch iter.Kind {
	case values.KindList:
		elements = iter.List.Items
	case values.KindString:
		for _, r := range iter.Str {
			elements = append(elements, values.Str(string(r)))
		}
	default:
		return normalFlow, errors.Runtime(s.Line, "for loop requires a list or string, got %s", iter.Kind)
	}

	for _, el := range elements {
		e.Env.Define(s.Var, el)
		flow, err := e.ExecBlock(s.Body)
		if err != nil {
			return normalFlow, err
		}
		switch flow.Kind {
		case FlowBreak:
			return normalFlow, nil
		case FlowContinue:
			continue
		case FlowReturn, FlowGoto:
			return flow, nil
		}
	}
	return normalFlow, nil
}

func (e *Evaluator) VisitBreak(s *ast.BreakStmt) (interface{}, error) {
	return Flow{Kind: FlowBreak}, nil
}

func (e *Evaluator) VisitContinue(s *ast.ContinueStmt) (interface{}, error) {
	return Flow{Kind: FlowContinue}, nil
}

func (e *Evaluator) VisitExprStmt(s *ast.ExprStmt) (interface{}, error) {
	_, err := e.EvalExpr(s.Expr)
	if err != nil {
		return normalFlow, err
	}
	return normalFlow, nil
}
