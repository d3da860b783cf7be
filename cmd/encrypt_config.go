package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"repdata/internal/common"
	"repdata/internal/config"
	"repdata/internal/security"
	"repdata/internal/ui"
	apperrors "repdata/pkg/errors"
)

func newEncryptConfigCmd(root *rootOptions) *cobra.Command {
	var backup bool

	cmd := &cobra.Command{
		Use:   "encrypt-config",
		Short: "Encrypt passwords in the configuration file",
		Long: `Encrypt plaintext passwords in the configuration file using AES-256-GCM.

Encrypted values are written as ENC[...] and decrypted when the configuration
is loaded. The key is derived from ` + security.EncryptionKeyEnv + ` when set, and from a
machine-specific identifier otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := ui.NewPrinter(cmd.OutOrStdout())
			out.Quiet = root.quiet

			path := root.configPath
			if path == "" {
				path = config.GetConfigFile()
			}
			out.Info(fmt.Sprintf("Reading configuration from: %s", path))

			cleaned, err := common.CleanPath(path)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(cleaned)
			if err != nil {
				return apperrors.Wrap(err, apperrors.ErrCodeConfigNotFound, "Failed to read config file").
					WithSuggestions("Run 'repdata init' to create one")
			}

			cfg, err := config.Load(config.NewViper(), cleaned)
			if err != nil {
				return err
			}

			n, err := config.EncryptSecrets(cfg)
			if err != nil {
				return err
			}
			if n == 0 {
				out.Info("No plaintext passwords found")
				return nil
			}

			if backup {
				if err := common.WriteFileSecure(cleaned+".backup", data); err != nil {
					return fmt.Errorf("failed to write backup: %w", err)
				}
				out.Info(fmt.Sprintf("Backup written to %s.backup", cleaned))
			}
			if err := config.Save(cfg, cleaned); err != nil {
				return err
			}
			out.Success(fmt.Sprintf("Encrypted %d password(s)", n))
			return nil
		},
	}

	cmd.Flags().BoolVar(&backup, "backup", true, "Create backup of original config")
	return cmd
}
