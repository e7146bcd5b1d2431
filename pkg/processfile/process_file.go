package processfile

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/core-tools/hsu-mdnsadvertise/pkg/errors"
	"github.com/core-tools/hsu-mdnsadvertise/pkg/logging"
)

// ServiceContext defines the context in which the service runs
type ServiceContext string

const (
	// SystemService is started by the host init framework
	SystemService ServiceContext = "system"

	// UserService is run by hand, e.g. during development
	UserService ServiceContext = "user"
)

// ProcessFileConfig selects where PID files are declared
type ProcessFileConfig struct {
	// Base directory for PID files. If empty, uses the context default
	BaseDirectory string

	ServiceContext ServiceContext
}

// ProcessFileManager resolves and reads the PID files the supervisor keeps.
// It never writes them: the init framework owns their lifecycle.
type ProcessFileManager struct {
	config ProcessFileConfig
	logger logging.Logger
}

func NewProcessFileManager(config ProcessFileConfig, logger logging.Logger) *ProcessFileManager {
	if config.ServiceContext == "" {
		config.ServiceContext = SystemService
	}

	return &ProcessFileManager{
		config: config,
		logger: logger,
	}
}

// GeneratePIDFilePath returns <base>/<name>.pid
func (m *ProcessFileManager) GeneratePIDFilePath(name string) string {
	return filepath.Join(m.getBaseDirectory(), name+".pid")
}

// ReadPIDFile parses the first line of a PID file.
func (m *ProcessFileManager) ReadPIDFile(path string) (int, error) {
	m.logger.Debugf("Reading PID file, path: %s", path)

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.NewNotFoundError("PID file does not exist", err).WithContext("pid_file", path)
		}
		return 0, errors.NewIOError("failed to read PID file", err).WithContext("pid_file", path)
	}

	line := strings.TrimSpace(string(content))
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}

	pid, err := ParsePID(line)
	if err != nil {
		m.logger.Debugf("Invalid PID file content, path: %s, content: %q", path, line)
		return 0, errors.NewValidationError("invalid PID file content", err).WithContext("pid_file", path)
	}

	return pid, nil
}

// ParsePID validates a PID value
func ParsePID(pidStr string) (int, error) {
	if pidStr == "" {
		return 0, errors.NewValidationError("PID cannot be empty", nil)
	}

	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, errors.NewValidationError("invalid PID format: "+pidStr, err)
	}

	if pid <= 0 {
		return 0, errors.NewValidationError("PID must be positive: "+pidStr, nil)
	}

	return pid, nil
}

func (m *ProcessFileManager) getBaseDirectory() string {
	if m.config.BaseDirectory != "" {
		return m.config.BaseDirectory
	}

	switch m.config.ServiceContext {
	case UserService:
		return m.getUserServiceDirectory()
	default:
		return m.getSystemServiceDirectory()
	}
}

func (m *ProcessFileManager) getSystemServiceDirectory() string {
	switch runtime.GOOS {
	case "windows":
		programData := os.Getenv("PROGRAMDATA")
		if programData == "" {
			programData = "C:\\ProgramData"
		}
		return programData
	default:
		// rc.subr keeps pidfiles in /var/run on the BSDs
		return "/var/run"
	}
}

func (m *ProcessFileManager) getUserServiceDirectory() string {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return runtimeDir
	}
	return os.TempDir()
}
