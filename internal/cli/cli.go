// Package cli builds the cobra commands behind the compliance-runner and
// mock-server binaries.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/mcp-compliance-runner/internal/config"
	"github.com/mcp-compliance-runner/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Exit codes
const (
	ExitOK          = 0
	ExitMustFailure = 1
	ExitSetup       = 2
)

// ExitError carries the process exit code for a failed command
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// setupError wraps harness setup failures
func setupError(format string, args ...interface{}) error {
	return &ExitError{Code: ExitSetup, Err: fmt.Errorf(format, args...)}
}

// ExitCode maps an error returned by a command onto a process exit code.
// Errors that are not an *ExitError come from flag parsing and count as
// setup errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitSetup
}

// loadConfig reads configuration with cmd's flags bound on top
func loadConfig(cmd *cobra.Command) (*config.Manager, error) {
	path, _ := cmd.Flags().GetString("config")
	manager, err := config.NewManager(config.WithConfigFile(path), config.WithFlags(cmd.Flags()))
	if err != nil {
		return nil, setupError("%v", err)
	}
	return manager, nil
}

// newLogger builds the logger for a command; verbose forces debug level
func newLogger(manager *config.Manager) (*logrus.Logger, error) {
	cfg := manager.GetConfig()
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, setupError("%v", err)
	}
	if cfg.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger, nil
}

// closeLogger releases a file log output once a command is done with it
func closeLogger(logger *logrus.Logger) {
	if err := logging.Close(logger); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close log output: %v\n", err)
	}
}
