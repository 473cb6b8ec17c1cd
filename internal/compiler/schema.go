package compiler

import (
	_ "embed"

	"cuelang.org/go/cue"
)

//go:embed schema.cue
var schemaSource []byte

// CheckSchema unifies v with the #Program definition and reports the first
// violation with its source position.
func CheckSchema(v cue.Value) error {
	schema := v.Context().CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return formatCUEError(err)
	}
	def := schema.LookupPath(cue.ParsePath("#Program"))
	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}
