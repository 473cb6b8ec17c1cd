package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"z": uint64(1),
		"a": "x<y",
		"m": []any{true, int64(-2), Bit(true), NewWord(4, 9)},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x<y","m":[true,-2,"1","4'd9"],"z":1}`, string(got))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	composed, err := MarshalCanonical("\u00e9")
	require.NoError(t, err)
	decomposed, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestMarshalCanonicalRejects(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)
	_, err = MarshalCanonical(1.5)
	assert.Error(t, err)
	_, err = MarshalCanonical(map[string]any{"k": struct{}{}})
	assert.Error(t, err)
}

func TestTraceDigestDeterminism(t *testing.T) {
	records := []map[string]any{
		{"instant": uint64(0), "signal": "main.a", "value": "1"},
		{"instant": uint64(5), "signal": "main.b", "value": "0"},
	}
	d1, err := TraceDigest(records)
	require.NoError(t, err)
	d2, err := TraceDigest(records)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64, "SHA-256 hex is 64 characters")

	swapped := []map[string]any{records[1], records[0]}
	d3, err := TraceDigest(swapped)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3, "order matters")
}

func TestProgramDigestIgnoresSpans(t *testing.T) {
	build := func(line int) *Program {
		at := Span{File: "p.cue", Line: line, Column: 1}
		return &Program{Tests: []*Unit{{
			Kind: KindTest,
			Name: Name{Text: "main", Span: at},
			Body: []Statement{
				&Assign{Targets: []Name{{Text: "a", Span: at}}, Expr: Const{Value: BitConst(true), At: at}, At: at},
				&Directive{Kind: After, Time: 5, At: at},
			},
		}}}
	}
	d1, err := ProgramDigest(build(1))
	require.NoError(t, err)
	d2, err := ProgramDigest(build(40))
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	p := build(1)
	p.Tests[0].Body = p.Tests[0].Body[:1]
	d3, err := ProgramDigest(p)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)
}

func TestDomainSeparation(t *testing.T) {
	data := []byte("[]")
	assert.NotEqual(t, hashWithDomain(DomainTrace, data), hashWithDomain(DomainProgram, data))
}
