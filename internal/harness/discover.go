package harness

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SuiteNotFoundError is returned when a referenced suite file doesn't exist.
type SuiteNotFoundError struct {
	SuitePath    string
	ResolvedPath string
}

// Error implements the error interface.
func (e *SuiteNotFoundError) Error() string {
	return fmt.Sprintf("suite file %q does not exist (resolved to: %s)", e.SuitePath, e.ResolvedPath)
}

// ResolveSuite resolves a suite path against baseDir and checks it exists.
func ResolveSuite(path, baseDir string) (string, error) {
	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(baseDir, resolved)
	}
	if _, err := os.Stat(resolved); os.IsNotExist(err) {
		return "", &SuiteNotFoundError{SuitePath: path, ResolvedPath: resolved}
	}
	return resolved, nil
}

// Discover returns the suite files (*.yaml, *.yml) under dir, sorted. A
// non-empty filter is a filepath.Match pattern applied to the file name
// without its extension. Golden directories are skipped.
func Discover(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
		}
	}

	var suites []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "golden" && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(d.Name(), ext)
			if ok, _ := filepath.Match(filter, name); !ok {
				return nil
			}
		}
		suites = append(suites, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover suites in %s: %w", dir, err)
	}
	sort.Strings(suites)
	return suites, nil
}
