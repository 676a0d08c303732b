package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"automation/pkg/config"
	"automation/pkg/ui"
)

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved configuration",
		Long: `Inspect the configuration as the test suite will see it, after every
override source has been applied.`,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			ui.NewPrinter(cmd.OutOrStdout()).Raw(string(data))
			return nil
		},
	}

	var output string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		Long: `Load the configuration, apply every override and validate the result.

Malformed overrides, unknown keys in the document and out of range values
are reported and the command exits non-zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := ui.NewPrinter(cmd.OutOrStdout())
			cfg := a.cfg

			p.Info("Base API", cfg.Application.BaseAPI)
			p.Info("Environment", string(cfg.Application.Environment))
			p.Info("Retry budget", strconv.Itoa(cfg.MaxRetry()))
			p.Info("Threads", strconv.Itoa(cfg.Execution.Threads))
			p.Info("Hook retries", strconv.FormatBool(cfg.Execution.RetryHooks))
			if cfg.Application.BaseAPI == "" {
				p.Warning("application.baseApi is empty")
			}

			if output != "" {
				if err := cfg.Save(output); err != nil {
					return err
				}
				p.Info("Saved to", output)
			}

			p.Success("Configuration is valid")
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&output, "output", "o", "", "also write the resolved configuration to this file")

	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "List every override key with its current value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var rows [][]string
			for _, k := range config.Describe(a.cfg, "") {
				rows = append(rows, []string{
					k.Key,
					k.Kind.String(),
					k.Value,
					config.DefaultEnvPrefix + config.EnvName(k.Key),
					strings.Join(k.Allowed, "|"),
				})
			}
			return ui.NewPrinter(cmd.OutOrStdout()).Table(
				[]string{"KEY", "KIND", "VALUE", "ENV", "ALLOWED"}, rows)
		},
	}

	configCmd.AddCommand(showCmd, validateCmd, keysCmd)
	return configCmd
}
