package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/logicsim/internal/ir"
)

// GoldenDir is where golden traces live, relative to the test's package.
const GoldenDir = "testdata/golden"

// Snapshot serializes a result's trace for golden comparison. All records
// go through canonical JSON, so equal traces give equal bytes.
func Snapshot(suiteName string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Records))
	for i, r := range result.Records {
		trace[i] = r
	}
	return ir.MarshalCanonical(map[string]any{
		"suite": suiteName,
		"trace": trace,
	})
}

// RunWithGolden executes a suite and compares the trace against
// testdata/golden/{suite.Name}.golden. Extra goldie options are applied
// after the defaults.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if suite execution fails.
// Test failure (via goldie) occurs if the trace doesn't match.
func RunWithGolden(t *testing.T, suite *Suite, opts ...goldie.Option) (*Result, error) {
	t.Helper()

	result, err := Run(suite)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, suite.Name, result, opts...); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the suite.
func AssertGolden(t *testing.T, name string, result *Result, opts ...goldie.Option) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t, append([]goldie.Option{
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	}, opts...)...)
	g.Assert(t, name, data)
	return nil
}

// ErrGoldenMissing is returned by CheckGolden when no golden file exists.
var ErrGoldenMissing = errors.New("golden file missing")

// GoldenMismatchError reports a trace that differs from its golden file.
type GoldenMismatchError struct {
	Path string
	// Line is the first differing line, 1-based.
	Line int
}

// Error implements the error interface.
func (e *GoldenMismatchError) Error() string {
	return fmt.Sprintf("trace differs from %s at line %d (rerun with --update to accept)", e.Path, e.Line)
}

// GoldenPath returns the golden file for a suite under dir.
func GoldenPath(dir, name string) string {
	return filepath.Join(dir, name+".golden")
}

// CheckGolden compares data with the golden file at path outside of go
// test. With update the file is (re)written instead.
func CheckGolden(path string, data []byte, update bool) error {
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create golden dir: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write golden file: %w", err)
		}
		return nil
	}

	want, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", path, ErrGoldenMissing)
	}
	if err != nil {
		return fmt.Errorf("read golden file: %w", err)
	}
	if bytes.Equal(want, data) {
		return nil
	}
	return &GoldenMismatchError{Path: path, Line: firstDiffLine(want, data)}
}

func firstDiffLine(a, b []byte) int {
	la := bytes.Split(a, []byte{'\n'})
	lb := bytes.Split(b, []byte{'\n'})
	for i := 0; i < len(la) && i < len(lb); i++ {
		if !bytes.Equal(la[i], lb[i]) {
			return i + 1
		}
	}
	if len(la) < len(lb) {
		return len(la) + 1
	}
	return len(lb) + 1
}
