package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Manjussha/tokenbench/internal/pricing"
	"github.com/Manjussha/tokenbench/internal/visualize"
	"github.com/Manjussha/tokenbench/internal/workspace"
)

func newCountCommand(a *App) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "count FILE...",
		Short: "Count the tokens in one or more files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.Workspace(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.load(w, args); err != nil {
				return err
			}
			report, err := w.Analyze(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, report)
			}
			printReport(out, report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

// printReport writes the per-file table, the total and the budget line.
func printReport(out io.Writer, r *workspace.Report) {
	fmt.Fprintln(out, paint(out, styleTitle, "Token count ("+r.Tokenizer+")"))
	fmt.Fprintf(out, "  %-32s %10s %10s %10s\n", "FILE", "TOKENS", "WORDS", "CHARS")
	for _, f := range r.Files {
		fmt.Fprintf(out, "  %-32s %10s %10s %10s\n",
			truncate(f.Name, 32),
			humanize.Comma(int64(f.TokenCount)),
			humanize.Comma(int64(f.Words)),
			humanize.Comma(int64(f.Chars)))
	}
	fmt.Fprintf(out, "  %-32s %10s\n", "TOTAL", paint(out, styleSuccess, humanize.Comma(int64(r.TotalTokens))))
	fmt.Fprintf(out, "\n  Estimated input cost: $%.4f  Budget: $%.2f %s\n",
		r.Cost, r.Budget.Budget, renderZone(out, r.Budget.Zone.String()))
	if r.Budget.Message != "" {
		fmt.Fprintln(out, "  "+paint(out, styleError, r.Budget.Message))
	}
}

func newCompareCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare FILE",
		Short: "Count one file under every supported encoding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.Workspace(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.load(w, args); err != nil {
				return err
			}
			cmp, err := w.Compare(cmd.Context(), "")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, paint(out, styleTitle, "Encodings for "+cmp.FileName))
			for _, enc := range workspace.ComparisonEncodings {
				v, ok := cmp.Results[enc]
				switch {
				case !ok:
					continue
				case v.Error != "":
					fmt.Fprintf(out, "  %-12s %s\n", enc, paint(out, styleError, v.Error))
				default:
					fmt.Fprintf(out, "  %-12s %10s\n", enc, humanize.Comma(int64(v.Count)))
				}
			}
			return nil
		},
	}
	return cmd
}

func newChunkCommand(a *App) *cobra.Command {
	var size, overlap int
	var countOnly bool
	cmd := &cobra.Command{
		Use:   "chunk FILE",
		Short: "Split a file into overlapping word windows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.Workspace(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.load(w, args); err != nil {
				return err
			}
			chunks, err := w.GenerateChunks(cmd.Context(), "", size, overlap)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if countOnly {
				fmt.Fprintln(out, len(chunks))
				return nil
			}
			for i, c := range chunks {
				fmt.Fprintln(out, paint(out, styleDim, fmt.Sprintf("── chunk %d/%d ──", i+1, len(chunks))))
				fmt.Fprintln(out, c)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 500, "words per chunk")
	cmd.Flags().IntVar(&overlap, "overlap", 50, "words shared by consecutive chunks")
	cmd.Flags().BoolVar(&countOnly, "count", false, "print only the number of chunks")
	return cmd
}

func newVisualizeCommand(a *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "visualize FILE",
		Short: "Show a file split into color-coded word and punctuation spans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.Workspace(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.load(w, args); err != nil {
				return err
			}
			view, err := w.Visualize(cmd.Context(), "", limit)
			if err != nil {
				return err
			}
			printView(cmd.OutOrStdout(), view)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", visualize.DefaultLimit, "maximum spans to show")
	return cmd
}

// printView writes spans separated by spaces, colored on a terminal and
// bracketed otherwise.
func printView(out io.Writer, v visualize.View) {
	tty := isTTY(out)
	parts := make([]string, len(v.Spans))
	for i, s := range v.Spans {
		if tty {
			parts[i] = styleSpan[s.Color].Render(s.Text)
		} else {
			parts[i] = "[" + s.Text + "]"
		}
	}
	fmt.Fprintln(out, strings.Join(parts, " "))
	if v.Hidden > 0 {
		fmt.Fprintln(out, paint(out, styleDim, fmt.Sprintf("… %s more spans", humanize.Comma(int64(v.Hidden)))))
	}
}

func newCostCommand(a *App) *cobra.Command {
	var tokens int
	var inputRate, outputRate float64
	cmd := &cobra.Command{
		Use:   "cost [FILE...]",
		Short: "Price files, or a token count, under every known model",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 && tokens <= 0 {
				return fmt.Errorf("pass files or --tokens")
			}
			if len(args) > 0 {
				w, err := a.Workspace(cmd.Context())
				if err != nil {
					return err
				}
				if err := a.load(w, args); err != nil {
					return err
				}
				report, err := w.Analyze(cmd.Context())
				if err != nil {
					return err
				}
				tokens = report.TotalTokens
			}
			fmt.Fprintln(out, paint(out, styleTitle, fmt.Sprintf("Cost of %s tokens", humanize.Comma(int64(tokens)))))
			printMatrix(out, pricing.Matrix(tokens, a.Models()))
			if cmd.Flags().Changed("input-rate") || cmd.Flags().Changed("output-rate") {
				est, err := pricing.EstimateRates(tokens, inputRate, outputRate)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\n  Custom rates: input $%.4f  output $%.4f\n", est.InputCost, est.OutputCost)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&tokens, "tokens", 0, "price this many tokens instead of counting files")
	cmd.Flags().Float64Var(&inputRate, "input-rate", 0, "custom input price per million tokens")
	cmd.Flags().Float64Var(&outputRate, "output-rate", 0, "custom output price per million tokens")
	return cmd
}

func printMatrix(out io.Writer, rows []pricing.ModelCost) {
	fmt.Fprintf(out, "  %-24s %10s %12s %12s\n", "MODEL", "CONTEXT", "$/1M INPUT", "ESTIMATED")
	for _, r := range rows {
		line := fmt.Sprintf("  %-24s %10s %12.2f %12.4f", truncate(r.Name, 24), r.Context, r.InputCost, r.Estimated)
		if r.Cheapest {
			line = paint(out, styleSuccess, line+"  cheapest")
		}
		fmt.Fprintln(out, line)
	}
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

