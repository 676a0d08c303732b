package config

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	errs "automation/pkg/errors"
)

// ResourcePath is the location of the packaged configuration inside Resources
const ResourcePath = "resources/automation-application.yml"

// Resources holds the packaged configuration document
//
//go:embed resources/automation-application.yml
var Resources embed.FS

// ErrAlreadyInitialized is returned by Init once the process-wide
// configuration has been loaded
var ErrAlreadyInitialized = errors.New("configuration already initialized")

// Loader reads the packaged document, applies overrides and caches the result
type Loader struct {
	fsys   fs.FS
	path   string
	source Source
	logger *zerolog.Logger

	once sync.Once
	cfg  *AutomationConfig
	err  error
}

// Option configures a Loader
type Option func(*Loader)

// WithFS reads the document from fsys instead of the packaged resources
func WithFS(fsys fs.FS) Option {
	return func(l *Loader) {
		l.fsys = fsys
	}
}

// WithResource sets the document path inside the loader's filesystem
func WithResource(path string) Option {
	return func(l *Loader) {
		l.path = path
	}
}

// WithSource sets the override source
func WithSource(src Source) Option {
	return func(l *Loader) {
		l.source = src
	}
}

// WithLogger sets the logger used during loading
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loader) {
		l.logger = &logger
	}
}

// NewLoader creates a loader. Without options it reads the packaged resource
// and takes overrides from the process environment.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		fsys:   Resources,
		path:   ResourcePath,
		source: EnvSource{Prefix: DefaultEnvPrefix},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) zlog() *zerolog.Logger {
	if l.logger != nil {
		return l.logger
	}
	return &log.Logger
}

// Load reads, decodes and resolves a fresh document. It does not touch the
// cached value returned by Get.
func (l *Loader) Load() (*AutomationConfig, error) {
	logger := l.zlog()
	logger.Info().Str("resource", l.path).Msg("Loading configuration started")

	data, err := fs.ReadFile(l.fsys, l.path)
	if err != nil {
		logger.Error().Err(err).Str("resource", l.path).Msg("Configuration file not found")
		return nil, errs.Wrap(errs.ErrorTypeResourceMissing, err,
			fmt.Sprintf("configuration file not found: %s", l.path))
	}

	cfg, err := decode(data)
	if err != nil {
		logger.Error().Err(err).Msg("Unable to load configuration")
		return nil, errs.Wrap(errs.ErrorTypeDeserialization, err, "unable to load configuration")
	}

	resolver := NewResolver(l.source).WithLogger(*logger)
	if err := resolver.Resolve(cfg, ""); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeValidation, err, "configuration validation failed")
	}

	logger.Info().Int("retry", cfg.MaxRetry()).Msg("Loading configuration finished")
	return cfg, nil
}

// Get loads the document on first call and returns the cached result,
// including a cached failure, on every later call
func (l *Loader) Get() (*AutomationConfig, error) {
	l.once.Do(func() {
		l.cfg, l.err = l.Load()
	})
	return l.cfg, l.err
}

// decode parses a document, rejecting keys the schema does not declare
func decode(data []byte) (*AutomationConfig, error) {
	cfg := &AutomationConfig{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// Process-wide configuration

var (
	defaultMu     sync.Mutex
	defaultLoader = NewLoader()
	initialized   bool
)

// Init configures and loads the process-wide configuration. Call it once at
// startup, before anything reads Get, so the load point and its failure are
// explicit.
func Init(opts ...Option) (*AutomationConfig, error) {
	defaultMu.Lock()
	if initialized {
		defaultMu.Unlock()
		return nil, ErrAlreadyInitialized
	}
	defaultLoader = NewLoader(opts...)
	initialized = true
	loader := defaultLoader
	defaultMu.Unlock()

	return loader.Get()
}

// Get returns the process-wide configuration, loading it with the default
// loader when Init was never called
func Get() (*AutomationConfig, error) {
	defaultMu.Lock()
	initialized = true
	loader := defaultLoader
	defaultMu.Unlock()

	return loader.Get()
}

// MustGet is Get for callers that cannot run without configuration
func MustGet() *AutomationConfig {
	cfg, err := Get()
	if err != nil {
		panic(fmt.Sprintf("configuration unavailable: %v", err))
	}
	return cfg
}

// SourceOptions selects the override sources assembled by DefaultSource
type SourceOptions struct {
	// Properties are key=value definitions from the command line
	Properties []string
	// EnvFiles are .env files; missing files are skipped
	EnvFiles []string
	// EnvPrefix overrides DefaultEnvPrefix
	EnvPrefix string
	// Keyring enables keychain lookups
	Keyring        bool
	KeyringService string
	// VaultFile is an encrypted override file; empty disables it
	VaultFile string
	// VaultPassphrase unlocks VaultFile, defaulting to VaultPassphraseEnv
	VaultPassphrase string
}

// DefaultSource builds the override chain in precedence order: command-line
// properties, process environment, keychain, vault, .env files
func DefaultSource(opts SourceOptions) (Source, error) {
	props, err := ParseProperties(opts.Properties)
	if err != nil {
		return nil, err
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}

	chain := Chain{props, EnvSource{Prefix: prefix}}
	if opts.Keyring {
		chain = append(chain, KeyringSource{Service: opts.KeyringService})
	}
	if opts.VaultFile != "" {
		passphrase := opts.VaultPassphrase
		if passphrase == "" {
			passphrase = os.Getenv(VaultPassphraseEnv)
		}
		vault, err := OpenVault(opts.VaultFile, passphrase)
		if err != nil {
			return nil, err
		}
		chain = append(chain, vault)
	}

	dotenv, err := DotenvSource(opts.EnvFiles...)
	if err != nil {
		return nil, err
	}
	chain = append(chain, SourceFunc(func(key string) (string, bool) {
		if v, ok := dotenv.Lookup(key); ok {
			return v, true
		}
		return dotenv.Lookup(prefix + EnvName(key))
	}))

	return chain, nil
}
