package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Manjussha/tokenbench/internal/config"
	"github.com/Manjussha/tokenbench/internal/platform"
	"github.com/Manjussha/tokenbench/internal/wizard"
)

func newSetupCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactively write tokenbench.toml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if path == "" {
				path = config.FilePath(platform.DefaultWorkDir())
			}
			wz := wizard.New()
			if in := cmd.InOrStdin(); in != os.Stdin {
				wz = wizard.NewWith(in, cmd.OutOrStdout())
			}
			_, err := wz.Run(path, a.Version)
			return err
		},
	}
}
