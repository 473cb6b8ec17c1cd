package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/logicsim/internal/compiler"
	"github.com/roach88/logicsim/internal/config"
	"github.com/roach88/logicsim/internal/logging"
)

// Error code constants, unified across all CLI commands. Load codes are
// shared with the compiler; validation issues carry compiler codes E1xx.
const (
	ErrCodeGeneric     = compiler.ErrCodeGeneric
	ErrCodeScanError   = compiler.ErrCodeScanError
	ErrCodeNoFiles     = compiler.ErrCodeNoFiles
	ErrCodeLoadFailed  = compiler.ErrCodeLoadFailed
	ErrCodeNotFound    = compiler.ErrCodeNotFound
	ErrCodeBuildFailed = compiler.ErrCodeBuildFailed
	ErrCodeCompile     = compiler.ErrCodeCompile
	ErrCodeInvalid     = compiler.ErrCodeInvalid
	ErrCodeWriteFailed = "E009" // File write error
	ErrCodeConfig      = "E010" // Config file or flag error
	ErrCodeDatabase    = "E011" // Trace database error
)

// loadConfig resolves the configuration: defaults, then the --config
// file, then the environment.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// newLogger writes operational logs to the formatter's diagnostic
// writer. --verbose forces debug level.
func newLogger(opts *RootOptions, cfg *config.Config, f *OutputFormatter) *slog.Logger {
	level := cfg.Logging.Level
	if opts.Verbose && logging.ParseLevel(level) > slog.LevelDebug {
		level = "debug"
	}
	if opts.Format == "json" {
		return logging.NewJSONLogger(level, f.GetErrWriter())
	}
	return logging.NewLogger(level, f.GetErrWriter())
}

// loadProgram compiles the CUE program in dir with the configured time
// unit. Errors are *compiler.LoadError; the partial result is returned
// alongside validation failures.
func loadProgram(dir string, cfg *config.Config) (*compiler.Loaded, error) {
	unit, err := cfg.Unit()
	if err != nil {
		return nil, &compiler.LoadError{Code: ErrCodeConfig, Message: err.Error()}
	}
	return compiler.LoadDir(dir, unit)
}

// loadErrorParts extracts the code and message of a load failure.
func loadErrorParts(err error) (string, string) {
	var le *compiler.LoadError
	if errors.As(err, &le) {
		if le.Pos.IsValid() {
			return le.Code, fmt.Sprintf("%s:%d:%d: %s", le.Pos.Filename(), le.Pos.Line(), le.Pos.Column(), le.Message)
		}
		return le.Code, le.Message
	}
	return ErrCodeGeneric, err.Error()
}

// outputLoadError reports a program that could not be loaded. Load
// failures are command-level errors (exit code 2).
func outputLoadError(formatter *OutputFormatter, err error) error {
	code, message := loadErrorParts(err)
	_ = formatter.Error(code, message, nil)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}
