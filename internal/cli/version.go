package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the auraring release version.
const Version = "0.3.0"

const modulePath = "github.com/mesh-intelligence/aurarings"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the auraring version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "auraring v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
