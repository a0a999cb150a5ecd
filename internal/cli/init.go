package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/aurarings/internal/sqlite"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize auraring storage",
		Long:  "Create the configuration and data directories, then initialize the token store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Record an explicit data dir so later runs find the same store.
			if a.dataDir != "" && a.settings.GetString(cfgKeyDataDir) == "" {
				abs, err := filepath.Abs(a.dataDir)
				if err != nil {
					return sysError(err)
				}
				if err := saveConfigDataDir(filepath.Join(a.configDir, configFileExt), abs); err != nil {
					return sysError(fmt.Errorf("write config: %w", err))
				}
			}

			var dataDir string
			err := a.withBackend(func(b *sqlite.Backend) error {
				dataDir = b.DataDir()
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "auraring initialized in %s\n", dataDir)
			return nil
		},
	}
}
