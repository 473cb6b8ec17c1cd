package compiler

import (
	"fmt"

	"github.com/roach88/logicsim/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrUnsupportedIRType   = "E100" // unsupported IR type for validation
	ErrDuplicateUnit       = "E101" // two units share a name
	ErrDirectiveInCircuit  = "E102" // time directive inside a circuit
	ErrDuplicatePort       = "E103" // port declared twice
	ErrNoTargets           = "E104" // assignment without targets
	ErrReservedName        = "E105" // unit named like a primitive gate
	ErrTestPorts           = "E106" // test declares ports
	ErrAssignToInput       = "E107" // unit body drives its own input port
	ErrPrimitiveMultiDrive = "E108" // primitive gate bound to several targets
	ErrDuplicateTarget     = "E109" // the same name appears twice in one assignment
)

// ValidationError represents a static program check failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled program for structural mistakes the schema
// cannot express. Returns all errors found (does not fail-fast).
//
// Reference errors (unknown units, arity, recursion) are left to
// elaboration, which reports them per test with the call chain.
func Validate(v any) []ValidationError {
	switch p := v.(type) {
	case *ir.Program:
		return validateProgram(p)
	case ir.Program:
		return validateProgram(&p)
	case *ir.Unit:
		return validateUnit(p)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

func validateProgram(p *ir.Program) []ValidationError {
	var errs []ValidationError

	// E101: circuits and processes share one namespace
	seen := make(map[string]*ir.Unit)
	for _, u := range append(append([]*ir.Unit{}, p.Circuits...), p.Processes...) {
		if prev, ok := seen[u.Name.Key()]; ok {
			errs = append(errs, ValidationError{
				Field:   unitField(u),
				Message: fmt.Sprintf("%s %q already declared as %s", u.Kind, u.Name.Text, prev.Kind),
				Code:    ErrDuplicateUnit,
				Line:    u.Name.Span.Line,
			})
			continue
		}
		seen[u.Name.Key()] = u
	}

	for _, u := range p.Units() {
		errs = append(errs, validateUnit(u)...)
	}
	return errs
}

var reservedNames = map[string]bool{
	"and": true, "or": true, "nand": true, "nor": true,
	"xor": true, "xnor": true, "not": true,
}

func validateUnit(u *ir.Unit) []ValidationError {
	var errs []ValidationError
	field := unitField(u)

	// E105: operator names always compile to primitive gates. buf and mux
	// are not reserved; a unit of that name replaces the primitive.
	if u.Kind != ir.KindTest && reservedNames[u.Name.Text] {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%q is a primitive gate and cannot name a %s", u.Name.Text, u.Kind),
			Code:    ErrReservedName,
			Line:    u.Name.Span.Line,
		})
	}

	// E106: tests are closed
	if u.Kind == ir.KindTest && (len(u.Inputs) > 0 || len(u.Outputs) > 0) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: "tests cannot declare inputs or outputs",
			Code:    ErrTestPorts,
			Line:    u.Name.Span.Line,
		})
	}

	// E103: duplicate ports
	inputs := make(map[string]bool)
	ports := make(map[string]bool)
	for _, n := range append(append([]ir.Name{}, u.Inputs...), u.Outputs...) {
		if ports[n.Key()] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("port %q declared more than once", n.Text),
				Code:    ErrDuplicatePort,
				Line:    n.Span.Line,
			})
		}
		ports[n.Key()] = true
	}
	for _, n := range u.Inputs {
		inputs[n.Key()] = true
	}

	for i, st := range u.Body {
		stField := fmt.Sprintf("%s.body[%d]", field, i)
		switch s := st.(type) {
		case *ir.Directive:
			// E102: circuits are combinational
			if u.Kind == ir.KindCircuit {
				errs = append(errs, ValidationError{
					Field:   stField,
					Message: fmt.Sprintf("circuit %q cannot contain time directive %q", u.Name.Text, s.Kind),
					Code:    ErrDirectiveInCircuit,
					Line:    s.At.Line,
				})
			}
		case *ir.Assign:
			errs = append(errs, validateAssign(s, stField, inputs)...)
		}
	}
	return errs
}

func validateAssign(s *ir.Assign, field string, inputs map[string]bool) []ValidationError {
	var errs []ValidationError

	// E104
	if len(s.Targets) == 0 {
		return append(errs, ValidationError{
			Field:   field,
			Message: "assignment has no targets",
			Code:    ErrNoTargets,
			Line:    s.At.Line,
		})
	}

	targets := make(map[string]bool)
	for _, t := range s.Targets {
		// E109
		if targets[t.Key()] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("target %q listed more than once", t.Text),
				Code:    ErrDuplicateTarget,
				Line:    t.Span.Line,
			})
		}
		targets[t.Key()] = true

		// E107
		if inputs[t.Key()] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("assignment drives input port %q", t.Text),
				Code:    ErrAssignToInput,
				Line:    t.Span.Line,
			})
		}
	}

	// E108: only unit invocations produce several outputs
	if _, _, custom := ir.Callee(s.Expr); !custom && len(s.Targets) > 1 {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s produces one value but has %d targets", s.Expr, len(s.Targets)),
			Code:    ErrPrimitiveMultiDrive,
			Line:    s.At.Line,
		})
	}
	return errs
}

func unitField(u *ir.Unit) string {
	return u.Kind.String() + "." + u.Name.Text
}
