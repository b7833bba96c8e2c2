package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the tokenbench command tree around a.
func NewRootCommand(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "tokenbench",
		Short:         "Token counting workbench",
		Long:          "tokenbench counts, compares and prices the tokens in text files, from the command line or through its HTTP API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.Close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to tokenbench.toml")
	pf.StringVar(&a.backendURL, "backend", "", "tokenizer backend URL (overrides config)")
	pf.StringVarP(&a.encoding, "encoding", "e", "", "encoding: cl100k_base, p50k_base, r50k_base or gpt2")
	pf.BoolVar(&a.offline, "offline", false, "count locally without the backend")
	pf.BoolVar(&a.noSave, "no-save", false, "do not record history, projects or usage")

	root.AddCommand(
		newServeCommand(a),
		newSetupCommand(a),
		newCountCommand(a),
		newCompareCommand(a),
		newChunkCommand(a),
		newVisualizeCommand(a),
		newCostCommand(a),
		newWatchCommand(a),
		newExportCommand(a),
		newHistoryCommand(a),
		newProjectsCommand(a),
		newUsageCommand(a),
		newVersionCommand(a),
	)
	return root
}

func newVersionCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tokenbench %s\n", a.Version)
		},
	}
}
