package link

import (
	"fmt"

	"github.com/roach88/logicsim/internal/elaborate"
	"github.com/roach88/logicsim/internal/ir"
)

// Link resolves an elaborated design into a netlist.
//
// Every signal gets a dense ID. Each signal has at most one source: either
// one combinational driver, or any number of stimulus writes. A signal that
// is read must have a source. Timed blocks are normalized to absolute
// instants and merged across instances.
func Link(d *elaborate.Design) (*Netlist, error) {
	l := &linker{
		design: d,
		ids:    make(map[elaborate.SignalKey]SignalID, len(d.Signals)),
		net:    &Netlist{Test: d.Test.Text},
	}
	l.table()

	if err := l.drivers(); err != nil {
		return nil, err
	}
	if err := l.inputs(); err != nil {
		return nil, err
	}
	if err := l.reads(); err != nil {
		return nil, err
	}
	sched, err := l.schedule()
	if err != nil {
		return nil, err
	}
	l.net.Schedule = sched
	return l.net, nil
}

type linker struct {
	design *elaborate.Design
	ids    map[elaborate.SignalKey]SignalID
	net    *Netlist
	// driverAt records the first driver span per signal.
	driverAt map[SignalID]ir.Span
}

func (l *linker) table() {
	l.net.Signals = make([]SignalInfo, len(l.design.Signals))
	for i, s := range l.design.Signals {
		id := SignalID(i)
		l.ids[s.Key()] = id
		l.net.Signals[i] = SignalInfo{
			ID:    id,
			Name:  s.Name.Text,
			Scope: l.design.Scope(s),
			Span:  s.Name.Span,
		}
	}
}

func (l *linker) id(s elaborate.Signal) SignalID {
	if id, ok := l.ids[s.Key()]; ok {
		return id
	}
	// Signals introduced only by a read are still recorded by the
	// elaborator, so this path is reached only for hand-built designs.
	id := SignalID(len(l.net.Signals))
	l.ids[s.Key()] = id
	l.net.Signals = append(l.net.Signals, SignalInfo{
		ID:    id,
		Name:  s.Name.Text,
		Scope: l.design.Scope(s),
		Span:  s.Name.Span,
	})
	return id
}

// drivers checks the single-driver rule for combinational assignments.
func (l *linker) drivers() error {
	l.driverAt = make(map[SignalID]ir.Span, len(l.design.Assigns))
	l.net.Drivers = make([]Driver, 0, len(l.design.Assigns))
	for _, a := range l.design.Assigns {
		target := l.id(a.Target)
		if first, dup := l.driverAt[target]; dup {
			return l.conflict(target, a.At, first, "driven by two %ss", a.Role)
		}
		l.driverAt[target] = a.At
		l.net.Signals[target].Driven = true
		l.net.Drivers = append(l.net.Drivers, Driver{
			Target: target,
			Expr:   l.resolve(a.Expr),
			At:     a.At,
			Role:   a.Role,
		})
	}
	return nil
}

// inputs marks stimulus targets. A stimulated signal may not also have a
// combinational driver.
func (l *linker) inputs() error {
	for _, tl := range l.design.Timelines {
		for _, b := range tl.Blocks {
			for _, st := range b.Stimulus {
				target := l.id(st.Target)
				if first, driven := l.driverAt[target]; driven {
					return l.conflict(target, st.At, first, "written by stimulus and driven by an assignment")
				}
				l.net.Signals[target].Input = true
			}
		}
	}
	return nil
}

// reads rejects any read of a signal with no source.
func (l *linker) reads() error {
	var err error
	check := func(e elaborate.Expr) {
		if err != nil {
			return
		}
		elaborate.Walk(e, func(r *elaborate.SignalRef) {
			if err != nil {
				return
			}
			id := l.id(r.Signal)
			info := l.net.Signals[id]
			if info.Input || info.Driven {
				return
			}
			err = &Error{
				Code:    ErrCodeUndrivenSignal,
				Message: fmt.Sprintf("%s is read but never driven", info.QualifiedName()),
				Signal:  info.QualifiedName(),
				Span:    r.At,
			}
		})
	}

	for _, a := range l.design.Assigns {
		check(a.Expr)
	}
	for _, a := range l.design.Invariants {
		check(a.Expr)
	}
	for _, tl := range l.design.Timelines {
		for _, b := range tl.Blocks {
			for _, st := range b.Stimulus {
				check(st.Expr)
			}
			for _, a := range b.Asserts {
				check(a.Expr)
			}
		}
	}
	if err != nil {
		return err
	}

	l.net.Invariants = make([]Check, 0, len(l.design.Invariants))
	for _, a := range l.design.Invariants {
		l.net.Invariants = append(l.net.Invariants, l.check(a))
	}
	return nil
}

func (l *linker) conflict(target SignalID, at, first ir.Span, format string, args ...any) error {
	info := l.net.Signals[target]
	return &Error{
		Code:    ErrCodeMultipleDrivers,
		Message: fmt.Sprintf("%s is "+format+" (first at %s)", append([]any{info.QualifiedName()}, append(args, first)...)...),
		Signal:  info.QualifiedName(),
		Span:    at,
		Other:   first,
	}
}

func (l *linker) resolve(e elaborate.Expr) Expr {
	switch x := e.(type) {
	case *elaborate.SignalRef:
		return &Read{ID: l.id(x.Signal), At: x.At}
	case *elaborate.Literal:
		return &Lit{Value: ir.ValueOf(x.Value), At: x.At}
	case *elaborate.Gate:
		args := make([]Expr, len(x.Args))
		for i, a := range x.Args {
			args[i] = l.resolve(a)
		}
		return &Op{Op: x.Op, Args: args, At: x.At}
	default:
		panic(fmt.Sprintf("link: unexpected expression %T", e))
	}
}

func (l *linker) check(a elaborate.Assert) Check {
	return Check{
		Expr:     l.resolve(a.Expr),
		Expected: ir.ValueOf(a.Expected),
		At:       a.At,
		Source:   a.Source,
		Scope:    l.design.Paths.Scope(a.Path),
	}
}

func (l *linker) stimulus(as []elaborate.Assign) []Driver {
	out := make([]Driver, len(as))
	for i, a := range as {
		out[i] = Driver{
			Target: l.id(a.Target),
			Expr:   l.resolve(a.Expr),
			At:     a.At,
			Role:   a.Role,
		}
	}
	return out
}
