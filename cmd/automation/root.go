package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"automation/pkg/config"
	errs "automation/pkg/errors"
	"automation/pkg/logger"
	"automation/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// skipConfig marks commands that must run without a resolved configuration
const skipConfig = "skip-config"

// initFunc installs the configuration; config.Init outside of tests
type initFunc func(opts ...config.Option) (*config.AutomationConfig, error)

// app carries the global flags and the state shared by subcommands
type app struct {
	defines   []string
	envFiles  []string
	resource  string
	noKeyring bool
	vault     string

	keyringService string
	initConfig     initFunc
	cfg            *config.AutomationConfig
}

func newApp() *app {
	return &app{
		keyringService: config.DefaultKeyringService,
		initConfig:     config.Init,
	}
}

// newRootCmd builds the command tree sharing state through a
func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "automation",
		Short: "Configuration and retry tooling for the API test suite",
		Long: `automation resolves the run configuration of the API test suite and
exercises its retry policy.

Configuration is the packaged document overlaid, in order of precedence, with:
  - -D key=value definitions
  - environment variables (exact key or AUTOMATION_<KEY>)
  - secrets stored in the system keychain
  - secrets stored in the --vault file
  - .env files`,
		Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.preRun,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringArrayVarP(&a.defines, "define", "D", nil, "override a configuration key (key=value, repeatable)")
	flags.StringArrayVar(&a.envFiles, "env-file", []string{".env"}, "read overrides from a .env file (repeatable)")
	flags.StringVar(&a.resource, "resource", "", "load the configuration document from this file instead of the packaged one")
	flags.BoolVar(&a.noKeyring, "no-keyring", false, "do not read overrides from the system keychain")
	flags.StringVar(&a.vault, "vault", "", "read overrides from this encrypted file (passphrase in "+config.VaultPassphraseEnv+")")

	rootCmd.SetVersionTemplate(`automation {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(
		newConfigCmd(a),
		newSecretCmd(a),
		newRetryCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// preRun resolves the configuration and sets up logging before any command
func (a *app) preRun(cmd *cobra.Command, _ []string) error {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfig] == "true" {
			return nil
		}
	}

	src, err := config.DefaultSource(config.SourceOptions{
		Properties:     a.defines,
		EnvFiles:       a.envFiles,
		Keyring:        !a.noKeyring,
		KeyringService: a.keyringService,
		VaultFile:      a.vault,
	})
	if err != nil {
		return err
	}

	opts := []config.Option{config.WithSource(src)}
	if a.resource != "" {
		abs, err := filepath.Abs(a.resource)
		if err != nil {
			return err
		}
		opts = append(opts,
			config.WithFS(os.DirFS(filepath.Dir(abs))),
			config.WithResource(filepath.Base(abs)),
		)
	}

	cfg, err := a.initConfig(opts...)
	if err != nil {
		return err
	}
	a.cfg = cfg

	return logger.Initialize(cfg.Logging)
}

// Execute runs the CLI and exits non-zero on failure
func Execute() {
	rootCmd := newRootCmd(newApp())
	if err := rootCmd.Execute(); err != nil {
		reportError(ui.NewPrinter(os.Stderr), err)
		os.Exit(1)
	}
}

// reportError prints err and, for a malformed override, every place the
// offending key can be set from
func reportError(p *ui.Printer, err error) {
	p.Error("Error", err)

	key := errs.KeyOf(err)
	if key == "" {
		return
	}
	p.Info("Override key", key)
	p.Info("Set by", "-D "+key+", "+key+", "+config.DefaultEnvPrefix+config.EnvName(key)+
		", the keychain, the --vault file or a .env file")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{skipConfig: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(cmd.Root().Version)
		},
	}
}
