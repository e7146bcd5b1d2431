package process

import (
	"context"
	stdErrors "errors"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/core-tools/hsu-mdnsadvertise/pkg/errors"
	"github.com/core-tools/hsu-mdnsadvertise/pkg/logging"
)

// ExecutionConfig describes one synchronous invocation of an external command.
type ExecutionConfig struct {
	ExecutablePath string            `yaml:"executable_path"`
	Args           []string          `yaml:"args,omitempty"`
	Environment    map[string]string `yaml:"environment,omitempty"`

	// Stdout receives the child's standard output; nil discards it.
	Stdout io.Writer `yaml:"-"`
	// Stderr receives the child's standard error; nil discards it.
	Stderr io.Writer `yaml:"-"`
}

// Runner runs a command to completion and reports its exit status.
type Runner interface {
	Run(ctx context.Context, execution ExecutionConfig) (int, error)
}

type stdRunner struct {
	logger  logging.Logger
	environ func() []string
}

func NewStdRunner(logger logging.Logger) Runner {
	return &stdRunner{
		logger:  logger,
		environ: os.Environ,
	}
}

// Run blocks until the command exits. A non-zero exit is returned as
// *errors.CommandError alongside the exit code; a missing executable is a
// not-found error with exit code 127 and one without execute permission is a
// permission error with exit code 126.
func (r *stdRunner) Run(ctx context.Context, execution ExecutionConfig) (int, error) {
	if ctx == nil {
		return errors.ExitFailure, errors.NewValidationError("context cannot be nil", nil)
	}

	if err := ValidateExecutionConfig(execution); err != nil {
		r.logger.Debugf("Execution configuration validation failed, executable: %s, error: %v", execution.ExecutablePath, err)
		return errors.ExitCode(err), err
	}

	env := MergeEnvironment(r.environ(), execution.Environment)

	cmd := exec.CommandContext(ctx, execution.ExecutablePath, execution.Args...)
	cmd.Env = env
	cmd.Stdin = nil
	cmd.Stdout = discardIfNil(execution.Stdout)
	cmd.Stderr = discardIfNil(execution.Stderr)

	r.logger.Debugf("Running command, executable: '%s', args: %v, environment overlay: %v",
		execution.ExecutablePath, execution.Args, execution.Environment)

	err := cmd.Run()
	if err == nil {
		r.logger.Debugf("Command succeeded, executable: '%s'", execution.ExecutablePath)
		return errors.ExitSuccess, nil
	}

	var exitErr *exec.ExitError
	if stdErrors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code <= 0 {
			// Terminated by a signal.
			code = errors.ExitFailure
		}
		r.logger.Debugf("Command failed, executable: '%s', args: %v, exit code: %d",
			execution.ExecutablePath, execution.Args, code)
		return code, errors.NewCommandError(execution.ExecutablePath, execution.Args, code)
	}

	if stdErrors.Is(err, exec.ErrNotFound) || stdErrors.Is(err, os.ErrNotExist) {
		return errors.ExitNotFound, errors.NewNotFoundError("executable not found", err).
			WithContext("executable_path", execution.ExecutablePath)
	}

	if stdErrors.Is(err, os.ErrPermission) {
		return errors.ExitNotExecutable, errors.NewPermissionError("executable not runnable", err).
			WithContext("executable_path", execution.ExecutablePath)
	}

	return errors.ExitFailure, errors.NewProcessError("failed to run command", err).
		WithContext("executable_path", execution.ExecutablePath)
}

func discardIfNil(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

// MergeEnvironment returns a copy of base with overlay applied; overlay keys
// replace existing entries. base is never modified.
func MergeEnvironment(base []string, overlay map[string]string) []string {
	env := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		key := kv
		if i := strings.IndexByte(kv, '='); i >= 0 {
			key = kv[:i]
		}
		if _, replaced := overlay[key]; replaced {
			continue
		}
		env = append(env, kv)
	}

	keys := make([]string, 0, len(overlay))
	for key := range overlay {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		env = append(env, key+"="+overlay[key])
	}

	return env
}
