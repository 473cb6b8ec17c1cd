package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logicsim/internal/ir"
)

func writeProgram(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLoadDir(t *testing.T) {
	dir := writeProgram(t, map[string]string{
		"adder.cue": "package adder\n" + fullAdderSource,
	})

	loaded, err := LoadDir(dir, ir.Nanosecond)
	require.NoError(t, err)
	require.NotNil(t, loaded.Program)
	assert.Len(t, loaded.Files, 1)
	assert.Len(t, loaded.Program.Tests, 1)
	assert.Empty(t, loaded.Warnings)
}

func TestLoadDirErrors(t *testing.T) {
	tests := []struct {
		name string
		dir  func(t *testing.T) string
		code string
	}{
		{
			name: "missing directory",
			dir:  func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing") },
			code: ErrCodeNotFound,
		},
		{
			name: "no cue files",
			dir:  func(t *testing.T) string { return writeProgram(t, map[string]string{"readme.txt": "hi"}) },
			code: ErrCodeNoFiles,
		},
		{
			name: "compile failure",
			dir: func(t *testing.T) string {
				return writeProgram(t, map[string]string{"p.cue": "package p\ntest: main: body: [{wait: 1}]\n"})
			},
			code: ErrCodeCompile,
		},
		{
			name: "validation failure",
			dir: func(t *testing.T) string {
				return writeProgram(t, map[string]string{"p.cue": `package p
circuit: c: {
	inputs: ["a"]
	outputs: ["o"]
	body: [{after: 5}, {assign: "o", expr: "a"}]
}
`})
			},
			code: ErrCodeInvalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDir(tt.dir(t), ir.Nanosecond)
			require.Error(t, err)
			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.code, le.Code)
		})
	}
}
