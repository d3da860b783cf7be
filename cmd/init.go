package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"repdata/internal/config"
	"repdata/internal/security"
	"repdata/internal/ui"
	apperrors "repdata/pkg/errors"
	"repdata/pkg/models"
)

func newInitCmd(root *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file interactively",
		Long: `Walk through the warehouse connections, table names, and pipeline settings
and write them to config.yaml. Passwords can be kept in the OS keyring instead
of the file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.configPath
			if path == "" {
				path = config.GetConfigFile()
			}
			if config.Exists(path) && !force {
				return apperrors.New(apperrors.ErrCodeConfigInvalid,
					fmt.Sprintf("Configuration already exists at %s", path)).
					WithSuggestions("Use --force to overwrite it", "Use --config to write somewhere else")
			}

			wizard := ui.NewConfigWizard(cmd.OutOrStdout())
			res, err := wizard.Run(config.Defaults())
			if err != nil {
				if errors.Is(err, ui.ErrWizardCancelled) {
					ui.NewPrinter(cmd.OutOrStdout()).Warning("Configuration cancelled, nothing written")
					return nil
				}
				return err
			}
			return saveWizardResult(cmd, path, res, security.NewCredentialStore())
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")
	return cmd
}

// credentialWriter stores passwords outside config.yaml.
type credentialWriter interface {
	Store(scope, user, password string) error
}

func saveWizardResult(cmd *cobra.Command, path string, res *ui.WizardResult, store credentialWriter) error {
	out := ui.NewPrinter(cmd.OutOrStdout())
	cfg := res.Config

	if res.UseKeyring {
		if err := moveToKeyring(cfg, store); err != nil {
			return err
		}
		out.Success("Passwords stored in the OS keyring")
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.Save(cfg, path); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeConfigPermission, "Failed to save configuration")
	}

	out.Success(fmt.Sprintf("Configuration saved to %s", path))
	out.Info("Run 'repdata check' to verify the connection, then 'repdata run'")
	return nil
}

// moveToKeyring stores the snowflake passwords and blanks them in cfg.
func moveToKeyring(cfg *models.Config, store credentialWriter) error {
	conns := []struct {
		scope string
		conn  *models.Connection
	}{
		{"source", &cfg.Source.Connection},
		{"destination", &cfg.Destination.Connection},
	}
	for _, c := range conns {
		if c.conn.Password == "" {
			continue
		}
		if err := store.Store(c.scope, c.conn.Username, c.conn.Password); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeEncryptionFailed,
				fmt.Sprintf("Failed to store %s password in keyring", c.scope)).
				WithSuggestions("Answer no to the keyring question and run 'repdata encrypt-config' instead")
		}
		c.conn.Password = ""
	}
	return nil
}
