package elaborate

import (
	"fmt"
	"log/slog"

	"github.com/roach88/logicsim/internal/ir"
)

// DefaultMaxDepth bounds invocation nesting.
// Recursion is caught by the call-chain check long before this; the limit
// only stops runaway non-recursive hierarchies.
const DefaultMaxDepth = 64

// Option configures elaboration.
type Option func(*elaborator)

// WithMaxDepth sets the maximum invocation depth (root test = 0).
func WithMaxDepth(depth int) Option {
	return func(e *elaborator) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// WithLogger sets the logger used for expansion tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(e *elaborator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Elaborate flattens every test named testName, in declaration order.
func Elaborate(p *ir.Program, testName string, opts ...Option) ([]*Design, error) {
	tests := p.TestsNamed(testName)
	if len(tests) == 0 {
		return nil, &Error{
			Code:    ErrCodeUnknownTest,
			Message: fmt.Sprintf("no test named %q", testName),
		}
	}
	designs := make([]*Design, 0, len(tests))
	for _, t := range tests {
		d, err := ElaborateTest(p, t, opts...)
		if err != nil {
			return nil, err
		}
		designs = append(designs, d)
	}
	return designs, nil
}

// ElaborateTest flattens a single test unit.
// The result depends only on the program and the test: running it twice
// yields identical designs.
func ElaborateTest(p *ir.Program, test *ir.Unit, opts ...Option) (*Design, error) {
	e := &elaborator{
		prog:     p,
		maxDepth: DefaultMaxDepth,
		logger:   slog.Default(),
		seen:     make(map[SignalKey]bool),
		design: &Design{
			Test:  test.Name,
			Paths: NewPaths(test.Name),
		},
	}
	for _, opt := range opts {
		opt(e)
	}

	e.queue = append(e.queue, work{unit: test, path: Root})
	for len(e.queue) > 0 {
		w := e.queue[0]
		e.queue = e.queue[1:]
		if err := e.expand(w); err != nil {
			return nil, err
		}
	}

	e.logger.Debug("elaborated test",
		"test", test.Name.Text,
		"instances", e.design.Paths.Len(),
		"signals", len(e.design.Signals),
		"assigns", len(e.design.Assigns),
	)
	return e.design, nil
}

type work struct {
	unit *ir.Unit
	path PathID
}

type elaborator struct {
	prog     *ir.Program
	maxDepth int
	logger   *slog.Logger
	design   *Design
	seen     map[SignalKey]bool
	queue    []work
	synth    int
}

// expand walks one unit body under path. Statements before the first
// directive are structural; later ones belong to the latest block.
func (e *elaborator) expand(w work) error {
	timeline := -1
	for _, st := range w.unit.Body {
		switch s := st.(type) {
		case *ir.Directive:
			if timeline < 0 {
				e.design.Timelines = append(e.design.Timelines, Timeline{Path: w.path})
				timeline = len(e.design.Timelines) - 1
			}
			tl := &e.design.Timelines[timeline]
			tl.Blocks = append(tl.Blocks, Block{Kind: s.Kind, Time: s.Time, At: s.At})

		case *ir.Assign:
			if timeline < 0 {
				if err := e.structural(s, w.path); err != nil {
					return err
				}
				continue
			}
			stim, err := e.stimulus(s, w.path)
			if err != nil {
				return err
			}
			blocks := e.design.Timelines[timeline].Blocks
			blocks[len(blocks)-1].Stimulus = append(blocks[len(blocks)-1].Stimulus, stim...)

		case *ir.Assert:
			expr, err := e.localize(s.Expr, w.path)
			if err != nil {
				return err
			}
			a := Assert{Expr: expr, Expected: s.Expected, At: s.At, Source: s.Source, Path: w.path}
			if timeline < 0 {
				e.design.Invariants = append(e.design.Invariants, a)
				continue
			}
			blocks := e.design.Timelines[timeline].Blocks
			blocks[len(blocks)-1].Asserts = append(blocks[len(blocks)-1].Asserts, a)
		}
	}
	return nil
}

// structural elaborates a combinational assignment.
func (e *elaborator) structural(s *ir.Assign, path PathID) error {
	if name, args, ok := ir.Callee(s.Expr); ok {
		if unit, found := e.prog.Lookup(name.Text); found {
			return e.instantiate(unit, args, e.signals(s.Targets, path), s.At, path)
		}
	}
	if len(s.Targets) != 1 {
		return e.errorf(ErrCodeArityMismatch, s.At, path,
			"%s produces one value but is assigned to %d targets", s.Expr, len(s.Targets))
	}
	expr, err := e.localize(s.Expr, path)
	if err != nil {
		return err
	}
	e.addAssign(Assign{Target: e.signal(s.Targets[0], path), Expr: expr, At: s.At, Role: RoleLogic})
	return nil
}

// stimulus elaborates an assignment inside a timed block. A unit call is
// instantiated permanently and the stimulus samples its outputs.
func (e *elaborator) stimulus(s *ir.Assign, path PathID) ([]Assign, error) {
	if name, args, ok := ir.Callee(s.Expr); ok {
		if unit, found := e.prog.Lookup(name.Text); found {
			tmps := make([]Signal, len(s.Targets))
			for i := range s.Targets {
				tmps[i] = e.synthetic(name, s.At, path)
			}
			if err := e.instantiate(unit, args, tmps, s.At, path); err != nil {
				return nil, err
			}
			out := make([]Assign, len(s.Targets))
			for i, t := range s.Targets {
				out[i] = Assign{
					Target: e.signal(t, path),
					Expr:   &SignalRef{Signal: tmps[i], At: s.At},
					At:     s.At,
				}
			}
			return out, nil
		}
	}
	if len(s.Targets) != 1 {
		return nil, e.errorf(ErrCodeArityMismatch, s.At, path,
			"%s produces one value but is assigned to %d targets", s.Expr, len(s.Targets))
	}
	expr, err := e.localize(s.Expr, path)
	if err != nil {
		return nil, err
	}
	return []Assign{{Target: e.signal(s.Targets[0], path), Expr: expr, At: s.At}}, nil
}

// instantiate pushes a frame for unit, binds its inputs to args evaluated
// in the caller and its outputs to targets, and queues its body.
func (e *elaborator) instantiate(unit *ir.Unit, args []ir.Expr, targets []Signal, site ir.Span, path PathID) error {
	paths := e.design.Paths
	if paths.Calls(path, unit.Name.Text) {
		chain := append(paths.Chain(path), unit.Name.Text)
		return &Error{
			Code:    ErrCodeInvocationCycle,
			Message: fmt.Sprintf("%s %q invokes itself", unit.Kind, unit.Name.Text),
			Span:    site,
			Chain:   chain,
		}
	}
	if paths.Depth(path)+1 > e.maxDepth {
		return e.errorf(ErrCodeDepthExceeded, site, path,
			"invocation of %q exceeds maximum depth %d", unit.Name.Text, e.maxDepth)
	}
	if len(args) != len(unit.Inputs) {
		return e.errorf(ErrCodeArityMismatch, site, path,
			"%s %q takes %d inputs, got %d", unit.Kind, unit.Name.Text, len(unit.Inputs), len(args))
	}
	if len(targets) != len(unit.Outputs) {
		return e.errorf(ErrCodeArityMismatch, site, path,
			"%s %q has %d outputs, assigned to %d targets", unit.Kind, unit.Name.Text, len(unit.Outputs), len(targets))
	}

	child := paths.Push(path, unit.Name, site)
	e.logger.Debug("instantiate", "unit", unit.Name.Text, "scope", paths.Scope(child))

	for i, in := range unit.Inputs {
		expr, err := e.localize(args[i], path)
		if err != nil {
			return err
		}
		e.addAssign(Assign{Target: e.signal(in, child), Expr: expr, At: args[i].Pos(), Role: RolePortIn})
	}

	e.queue = append(e.queue, work{unit: unit, path: child})

	for j, out := range unit.Outputs {
		e.addAssign(Assign{
			Target: targets[j],
			Expr:   &SignalRef{Signal: e.signal(out, child), At: out.Span},
			At:     site,
			Role:   RolePortOut,
		})
	}
	return nil
}

// localize rewrites an expression under path. Nested unit calls are
// hoisted into synthetic signals; builtin names become gates.
func (e *elaborator) localize(expr ir.Expr, path PathID) (Expr, error) {
	switch x := expr.(type) {
	case ir.Ref:
		return &SignalRef{Signal: e.signal(x.Name, path), At: x.Name.Span}, nil

	case ir.Const:
		return &Literal{Value: x.Value, At: x.At}, nil

	case *ir.BinaryOp:
		if x.Op == ir.OpCustom {
			return e.call(x.Custom, []ir.Expr{x.A, x.B}, x.At, path)
		}
		return e.gate(x.Op, []ir.Expr{x.A, x.B}, x.At, path)

	case *ir.NaryOp:
		if x.Op == ir.OpCustom {
			return e.call(x.Custom, x.Params, x.At, path)
		}
		return e.gate(x.Op, x.Params, x.At, path)

	default:
		return nil, e.errorf(ErrCodeUnknownUnit, expr.Pos(), path, "unsupported expression %T", expr)
	}
}

func (e *elaborator) call(name ir.Name, args []ir.Expr, at ir.Span, path PathID) (Expr, error) {
	if unit, ok := e.prog.Lookup(name.Text); ok {
		if len(unit.Outputs) != 1 {
			return nil, e.errorf(ErrCodeArityMismatch, at, path,
				"%s %q has %d outputs and cannot be used inside an expression", unit.Kind, unit.Name.Text, len(unit.Outputs))
		}
		tmp := e.synthetic(name, at, path)
		if err := e.instantiate(unit, args, []Signal{tmp}, at, path); err != nil {
			return nil, err
		}
		return &SignalRef{Signal: tmp, At: at}, nil
	}
	if op, ok := ir.Builtin(name.Text); ok {
		return e.gate(op, args, at, path)
	}
	return nil, &Error{
		Code:    ErrCodeUnknownUnit,
		Message: fmt.Sprintf("%q is not a circuit, process or primitive gate", name.Text),
		Span:    name.Span,
		Chain:   e.design.Paths.Chain(path),
	}
}

func (e *elaborator) gate(op ir.Op, params []ir.Expr, at ir.Span, path PathID) (Expr, error) {
	if lo, hi := ir.Arity(op); len(params) < lo || (hi >= 0 && len(params) > hi) {
		return nil, e.errorf(ErrCodeArityMismatch, at, path,
			"%s cannot take %d operands", op, len(params))
	}
	args := make([]Expr, len(params))
	for i, p := range params {
		a, err := e.localize(p, path)
		if err != nil {
			return nil, err
		}
		args[i] = a
	}
	return &Gate{Op: op, Args: args, At: at}, nil
}

func (e *elaborator) signal(name ir.Name, path PathID) Signal {
	s := Signal{Name: name, Path: path}
	if !e.seen[s.Key()] {
		e.seen[s.Key()] = true
		e.design.Signals = append(e.design.Signals, s)
	}
	return s
}

func (e *elaborator) signals(names []ir.Name, path PathID) []Signal {
	out := make([]Signal, len(names))
	for i, n := range names {
		out[i] = e.signal(n, path)
	}
	return out
}

// synthetic allocates a signal for a hoisted call result. '$' cannot occur
// in source names, so these never collide with user signals.
func (e *elaborator) synthetic(callee ir.Name, at ir.Span, path PathID) Signal {
	name := ir.Name{Text: fmt.Sprintf("%s$%d", callee.Text, e.synth), Span: at}
	e.synth++
	return e.signal(name, path)
}

func (e *elaborator) addAssign(a Assign) {
	e.design.Assigns = append(e.design.Assigns, a)
}

func (e *elaborator) errorf(code ErrorCode, at ir.Span, path PathID, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Span:    at,
		Chain:   e.design.Paths.Chain(path),
	}
}
