package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// AutomationConfig is the resolved configuration document for a test run
type AutomationConfig struct {
	// Settings of the API under test
	Application *ApplicationConfig `yaml:"application" json:"application"`

	// Retry budget and worker settings
	Execution *ExecutionConfig `yaml:"execution" json:"execution"`

	// Logging configuration
	Logging *LoggingConfig `yaml:"logging" json:"logging"`
}

// ApplicationConfig holds settings of the API under test
type ApplicationConfig struct {
	BaseAPI     string      `yaml:"baseApi" json:"baseApi"`
	Environment Environment `yaml:"environment" json:"environment"`
	HTTP        *HTTPConfig `yaml:"http" json:"http"`
}

// HTTPConfig holds client settings read by the HTTP wrapper
type HTTPConfig struct {
	TimeoutSeconds int  `yaml:"timeoutSeconds" json:"timeoutSeconds"`
	LogBodies      bool `yaml:"logBodies" json:"logBodies"`
}

// ExecutionConfig holds retry and parallelism settings
type ExecutionConfig struct {
	// Retry is the maximum number of additional attempts for a failed test or hook
	Retry            int         `yaml:"retry" json:"retry"`
	Threads          int         `yaml:"threads" json:"threads"`
	RetryHooks       bool        `yaml:"retryHooks" json:"retryHooks"`
	RetryDelayMillis int         `yaml:"retryDelayMillis" json:"retryDelayMillis"`
	RetryBackoff     BackoffKind `yaml:"retryBackoff" json:"retryBackoff"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level" json:"level"`
	Format LogFormat `yaml:"format" json:"format"`
	File   string    `yaml:"file" json:"file"`
}

// Environment names the deployment the suite targets
type Environment string

const (
	EnvironmentLocal   Environment = "LOCAL"
	EnvironmentDev     Environment = "DEV"
	EnvironmentStaging Environment = "STAGING"
	EnvironmentProd    Environment = "PROD"
)

// Environments lists the declared Environment constants
var Environments = []Environment{EnvironmentLocal, EnvironmentDev, EnvironmentStaging, EnvironmentProd}

// UnmarshalYAML matches the scalar case-insensitively against Environments
func (e *Environment) UnmarshalYAML(value *yaml.Node) error {
	return decodeEnum(value, e, Environments)
}

// BackoffKind selects the delay strategy between retry attempts
type BackoffKind string

const (
	BackoffConstant    BackoffKind = "CONSTANT"
	BackoffExponential BackoffKind = "EXPONENTIAL"
)

// BackoffKinds lists the declared BackoffKind constants
var BackoffKinds = []BackoffKind{BackoffConstant, BackoffExponential}

// UnmarshalYAML matches the scalar case-insensitively against BackoffKinds
func (b *BackoffKind) UnmarshalYAML(value *yaml.Node) error {
	return decodeEnum(value, b, BackoffKinds)
}

// LogLevel is the minimum level written by the logger
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogLevels lists the declared LogLevel constants
var LogLevels = []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}

// UnmarshalYAML matches the scalar case-insensitively against LogLevels
func (l *LogLevel) UnmarshalYAML(value *yaml.Node) error {
	return decodeEnum(value, l, LogLevels)
}

// LogFormat selects the log encoder
type LogFormat string

const (
	// LogFormatAuto picks console output on a terminal and JSON otherwise
	LogFormatAuto    LogFormat = "auto"
	LogFormatConsole LogFormat = "console"
	LogFormatJSON    LogFormat = "json"
)

// LogFormats lists the declared LogFormat constants
var LogFormats = []LogFormat{LogFormatAuto, LogFormatConsole, LogFormatJSON}

// UnmarshalYAML matches the scalar case-insensitively against LogFormats
func (f *LogFormat) UnmarshalYAML(value *yaml.Node) error {
	return decodeEnum(value, f, LogFormats)
}

// matchEnum returns the declared constant equal to raw ignoring case
func matchEnum[T ~string](raw string, values []T) (T, bool) {
	for _, v := range values {
		if strings.EqualFold(string(v), raw) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func decodeEnum[T ~string](value *yaml.Node, target *T, values []T) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	// An explicit empty scalar leaves the zero value in place
	if raw == "" {
		*target = ""
		return nil
	}
	v, ok := matchEnum(raw, values)
	if !ok {
		return fmt.Errorf("line %d: no enum constant for %q (allowed: %s)", value.Line, raw, joinEnum(values))
	}
	*target = v
	return nil
}

func joinEnum[T ~string](values []T) string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}

// Validate checks the resolved document for values no consumer can work with
func (c *AutomationConfig) Validate() error {
	var errs []error

	if c.Application != nil && c.Application.BaseAPI != "" {
		u, err := url.Parse(c.Application.BaseAPI)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("application.baseApi must be an absolute URL, got %q", c.Application.BaseAPI))
		}
	}
	if c.Application != nil && c.Application.HTTP != nil && c.Application.HTTP.TimeoutSeconds < 0 {
		errs = append(errs, errors.New("application.http.timeoutSeconds cannot be negative"))
	}

	if c.Execution != nil {
		if c.Execution.Retry < 0 {
			errs = append(errs, errors.New("execution.retry cannot be negative"))
		}
		if c.Execution.Threads < 0 {
			errs = append(errs, errors.New("execution.threads cannot be negative"))
		}
		if c.Execution.RetryDelayMillis < 0 {
			errs = append(errs, errors.New("execution.retryDelayMillis cannot be negative"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// MaxRetry returns the retry budget, zero when the execution section is unset
func (c *AutomationConfig) MaxRetry() int {
	if c == nil || c.Execution == nil {
		return 0
	}
	return c.Execution.Retry
}

// Save writes the document as YAML
func (c *AutomationConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
