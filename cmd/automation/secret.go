package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"automation/pkg/config"
	"automation/pkg/ui"
)

func newSecretCmd(a *app) *cobra.Command {
	secretCmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage overrides stored in the system keychain or a vault",
		Long: `Store configuration overrides in the system keychain so that values such
as API tokens do not have to live in files or shell history.

With --vault the overrides go to an encrypted file instead, unlocked by the
passphrase in ` + config.VaultPassphraseEnv + `. Use it where no keychain is available.

Secret overrides rank below -D definitions and environment variables.`,
		Annotations: map[string]string{skipConfig: "true"},
	}

	var value string
	setCmd := &cobra.Command{
		Use:   "set <key>",
		Short: "Store an override",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := checkKey(key); err != nil {
				return err
			}

			if !cmd.Flags().Changed("value") {
				fmt.Fprintf(cmd.ErrOrStderr(), "Value for %s: ", key)
				v, err := readSecret(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read value: %w", err)
				}
				value = v
			}

			store, where, err := a.secretStore()
			if err != nil {
				return err
			}
			if err := store.StoreSecret(key, value); err != nil {
				return err
			}
			ui.NewPrinter(cmd.OutOrStdout()).Success("Stored " + key + " in " + where)
			return nil
		},
	}
	setCmd.Flags().StringVar(&value, "value", "", "value to store (prompted for when omitted)")

	deleteCmd := &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a stored override",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, where, err := a.secretStore()
			if err != nil {
				return err
			}
			if err := store.DeleteSecret(args[0]); err != nil {
				return err
			}
			ui.NewPrinter(cmd.OutOrStdout()).Success("Removed " + args[0] + " from " + where)
			return nil
		},
	}

	secretCmd.AddCommand(setCmd, deleteCmd)
	return secretCmd
}

type secretWriter interface {
	StoreSecret(key, value string) error
	DeleteSecret(key string) error
}

// secretStore returns the vault when --vault is set, the keychain otherwise
func (a *app) secretStore() (secretWriter, string, error) {
	if a.vault == "" {
		return config.KeyringSource{Service: a.keyringService}, "keychain", nil
	}
	v, err := config.OpenVault(a.vault, os.Getenv(config.VaultPassphraseEnv))
	if err != nil {
		return nil, "", err
	}
	return v, "vault", nil
}

// checkKey rejects keys that do not address a leaf of the configuration
func checkKey(key string) error {
	var known []string
	for _, k := range config.Describe(&config.AutomationConfig{}, "") {
		if k.Key == key {
			return nil
		}
		known = append(known, k.Key)
	}
	return fmt.Errorf("unknown configuration key %q (known keys: %s)", key, strings.Join(known, ", "))
}

// readSecret reads a value without echo when in is a terminal
func readSecret(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
