package process

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/core-tools/hsu-mdnsadvertise/pkg/errors"
)

// ValidateExecutionConfig validates execution configuration
func ValidateExecutionConfig(config ExecutionConfig) error {
	if config.ExecutablePath == "" {
		return errors.NewValidationError("executable path is required", nil)
	}

	if err := ValidateExecutable(config.ExecutablePath); err != nil {
		return err
	}

	for key := range config.Environment {
		if err := ValidateEnvironmentKey(key); err != nil {
			return err
		}
	}

	return nil
}

// ValidateExecutable reports a not-found error for a path that cannot be run.
// Bare names are resolved through PATH.
func ValidateExecutable(path string) error {
	if !filepath.IsAbs(path) && !strings.ContainsRune(path, filepath.Separator) {
		if _, err := exec.LookPath(path); err != nil {
			return errors.NewNotFoundError("executable not found in PATH: "+path, err).
				WithContext("executable_path", path)
		}
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return errors.NewNotFoundError("executable not found: "+path, err).
			WithContext("executable_path", path)
	}
	if info.IsDir() {
		return errors.NewValidationError("executable path is a directory: "+path, nil)
	}

	return nil
}

// ValidateEnvironmentKey rejects names the kernel would misparse in envp.
func ValidateEnvironmentKey(key string) error {
	if key == "" {
		return errors.NewValidationError("environment variable name cannot be empty", nil)
	}
	if strings.ContainsAny(key, "=\x00") {
		return errors.NewValidationError("invalid environment variable name: "+key, nil)
	}
	return nil
}
