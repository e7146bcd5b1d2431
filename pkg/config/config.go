package config

import (
	"bytes"
	stdErrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/core-tools/hsu-mdnsadvertise/pkg/errors"
	"github.com/core-tools/hsu-mdnsadvertise/pkg/logging"
	"github.com/core-tools/hsu-mdnsadvertise/pkg/process"
	"github.com/core-tools/hsu-mdnsadvertise/pkg/processfile"

	"gopkg.in/yaml.v3"
)

const (
	DefaultServiceName    = "mdnsadvertise"
	DefaultClientPath     = "/usr/local/bin/midclt"
	DefaultLibraryPathKey = "LD_LIBRARY_PATH"
	DefaultLibraryPath    = "/usr/local/lib"
	DefaultStartMethod    = "mdnsadvertise.start"
	DefaultRestartMethod  = "mdnsadvertise.restart"
	DefaultVerifyTimeout  = 3 * time.Second
)

// Config represents the top-level configuration file structure
type Config struct {
	Service ServiceConfig     `yaml:"service"`
	Client  ClientConfig      `yaml:"client"`
	Verify  VerifyConfig      `yaml:"verify"`
	Logging logging.ZapConfig `yaml:"logging"`
}

// ServiceConfig holds what the rc script declares to the init framework
type ServiceConfig struct {
	Name    string `yaml:"name"`
	RCVar   string `yaml:"rcvar,omitempty"`
	PIDFile string `yaml:"pidfile,omitempty"`
}

// ClientConfig describes how the management client is invoked
type ClientConfig struct {
	ExecutablePath string            `yaml:"executable_path"`
	Environment    map[string]string `yaml:"environment,omitempty"`
	StartMethod    string            `yaml:"start_method,omitempty"`
	RestartMethod  string            `yaml:"restart_method,omitempty"`
}

// VerifyConfig drives the mDNS browse of the verify command
type VerifyConfig struct {
	ServiceTypes []string      `yaml:"service_types,omitempty"`
	Domain       string        `yaml:"domain,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	Hostname     string        `yaml:"hostname,omitempty"`
}

// DefaultConfig mirrors the stock rc.d script.
func DefaultConfig() *Config {
	config := &Config{}
	setConfigDefaults(config)
	return config
}

// LoadConfigFromFile loads configuration from a YAML file
func LoadConfigFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	return ParseConfig(data)
}

// ParseConfig decodes YAML and applies defaults. Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	// An empty document leaves everything at its default.
	if err := decoder.Decode(&config); err != nil && !stdErrors.Is(err, io.EOF) {
		return nil, errors.NewValidationError("failed to parse YAML configuration", err)
	}

	setConfigDefaults(&config)

	return &config, nil
}

// ValidateConfig validates the entire configuration structure
func ValidateConfig(config *Config) error {
	if config == nil {
		return errors.NewValidationError("configuration cannot be nil", nil)
	}

	if config.Service.Name == "" {
		return errors.NewValidationError("service name is required", nil)
	}
	if strings.ContainsAny(config.Service.Name, "/ \t") {
		return errors.NewValidationError("invalid service name: "+config.Service.Name, nil)
	}
	if !filepath.IsAbs(config.Service.PIDFile) {
		return errors.NewValidationError("pidfile must be an absolute path", nil).
			WithContext("pidfile", config.Service.PIDFile)
	}

	if config.Client.ExecutablePath == "" {
		return errors.NewValidationError("client executable path is required", nil)
	}
	if config.Client.StartMethod == "" || config.Client.RestartMethod == "" {
		return errors.NewValidationError("client start and restart methods are required", nil)
	}
	for key := range config.Client.Environment {
		if err := process.ValidateEnvironmentKey(key); err != nil {
			return errors.NewValidationError("invalid client environment", err)
		}
	}

	if config.Verify.Timeout < 0 {
		return errors.NewValidationError("verify timeout cannot be negative", nil)
	}
	for _, serviceType := range config.Verify.ServiceTypes {
		if !strings.HasPrefix(serviceType, "_") {
			return errors.NewValidationError("invalid mDNS service type: "+serviceType, nil)
		}
	}

	if _, err := logging.ParseLevel(config.Logging.Level); err != nil {
		return errors.NewValidationError("invalid logging level", err)
	}

	return nil
}

func setConfigDefaults(config *Config) {
	if config.Service.Name == "" {
		config.Service.Name = DefaultServiceName
	}
	if config.Service.RCVar == "" {
		config.Service.RCVar = config.Service.Name + "_enable"
	}
	if config.Service.PIDFile == "" {
		files := processfile.NewProcessFileManager(processfile.ProcessFileConfig{}, logging.NewNopLogger())
		config.Service.PIDFile = files.GeneratePIDFilePath(config.Service.Name)
	}

	if config.Client.ExecutablePath == "" {
		config.Client.ExecutablePath = DefaultClientPath
	}
	// An explicit empty map in YAML disables the overlay.
	if config.Client.Environment == nil {
		config.Client.Environment = map[string]string{DefaultLibraryPathKey: DefaultLibraryPath}
	}
	if config.Client.StartMethod == "" {
		config.Client.StartMethod = DefaultStartMethod
	}
	if config.Client.RestartMethod == "" {
		config.Client.RestartMethod = DefaultRestartMethod
	}

	if len(config.Verify.ServiceTypes) == 0 {
		config.Verify.ServiceTypes = []string{"_http._tcp", "_smb._tcp"}
	}
	if config.Verify.Domain == "" {
		config.Verify.Domain = "local"
	}
	if config.Verify.Timeout == 0 {
		config.Verify.Timeout = DefaultVerifyTimeout
	}

	defaults := logging.DefaultZapConfig()
	if config.Logging.Level == "" {
		config.Logging.Level = defaults.Level
	}
	if config.Logging.Format == "" {
		config.Logging.Format = defaults.Format
	}
	if config.Logging.Output == "" {
		config.Logging.Output = defaults.Output
	}
	if config.Logging.File == (logging.FileSinkConfig{}) {
		config.Logging.File = defaults.File
	}
}
