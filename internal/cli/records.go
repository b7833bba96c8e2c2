package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Manjussha/tokenbench/internal/db"
	"github.com/Manjussha/tokenbench/internal/export"
)

func newHistoryCommand(a *App) *cobra.Command {
	var limit int
	var clearAll bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent analyses, comparisons and batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if clearAll {
				if err := a.history.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(out, paint(out, styleSuccess, "History cleared."))
				return nil
			}
			entries, err := a.history.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, paint(out, styleDim, "No history yet."))
				return nil
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			fmt.Fprintf(out, "  %-8s %-12s %-8s %-12s %10s  %s\n", "ID", "WHEN", "TYPE", "ENCODING", "TOKENS", "FILES")
			for _, e := range entries {
				fmt.Fprintf(out, "  %-8s %-12s %-8s %-12s %10s  %s\n",
					shortID(e.ID),
					humanize.Time(e.Date),
					e.Type,
					e.Tokenizer,
					humanize.Comma(int64(e.TotalTokens)),
					truncate(strings.Join(e.FileNames, ", "), 40))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries to show")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete all history")
	return cmd
}

func newProjectsCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List projects and their runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			projects, err := a.projects.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Fprintln(out, paint(out, styleDim, "No projects yet. Create one with: tokenbench projects create NAME"))
				return nil
			}
			active, _ := a.projects.ActiveID(cmd.Context())
			for _, p := range projects {
				marker := " "
				if p.ID == active {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s  %s  (%d runs, created %s)\n",
					marker, shortID(p.ID), paint(out, styleTitle, p.Name), len(p.Runs), humanize.Time(p.CreatedAt))
				for _, r := range p.Runs {
					fmt.Fprintf(out, "      %s  %s tokens  %s\n",
						humanize.Time(r.CreatedAt), humanize.Comma(int64(r.TotalTokens)), truncate(r.Summary, 60))
				}
			}
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create NAME",
		Short: "Create a project; new runs are stored under it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			p, err := a.projects.Create(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s (%s)\n", paint(out, styleSuccess, "Created"), p.Name, shortID(p.ID))
			return nil
		},
	})
	return cmd
}

func newUsageCommand(a *App) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show tokens counted per day and encoding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			since, err := db.PeriodStart(period, time.Now())
			if err != nil {
				return err
			}
			if err := a.open(); err != nil {
				return err
			}
			if a.database == nil {
				return fmt.Errorf("usage is not recorded with --no-save")
			}
			rows, err := a.database.UsageSince(cmd.Context(), since)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, paint(out, styleTitle, fmt.Sprintf("Usage since %s", since)))
			fmt.Fprintf(out, "  %-10s %-12s %6s %12s %10s\n", "DATE", "ENCODING", "RUNS", "TOKENS", "COST")
			var tokens int
			var cost float64
			for _, u := range rows {
				fmt.Fprintf(out, "  %-10s %-12s %6d %12s %10.4f\n",
					u.Date, u.Encoding, u.Runs, humanize.Comma(int64(u.Tokens)), u.Cost)
				tokens += u.Tokens
				cost += u.Cost
			}
			fmt.Fprintf(out, "  %-30s %12s %10.4f\n", "TOTAL", humanize.Comma(int64(tokens)), cost)
			return nil
		},
	}
	cmd.Flags().StringVarP(&period, "period", "p", db.PeriodDaily, "daily, weekly or monthly")
	return cmd
}

func newExportCommand(a *App) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export FILE...",
		Short: "Count files and write a CSV, JSON or Markdown report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if export.FileName(format) == "" {
				return fmt.Errorf("format must be csv, json or md")
			}
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
			data, err := export.Render(format, report.CountResult, report.Tokenizer, a.Models())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if output != "" {
				if err := os.WriteFile(output, data, 0644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				fmt.Fprintf(out, "%s %s (%s)\n", paint(out, styleSuccess, "Wrote"), output, humanize.Bytes(uint64(len(data))))
				return nil
			}
			return writeReport(out, format, data)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatMarkdown, "csv, json or md")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

// writeReport prints data, rendering Markdown for a terminal.
func writeReport(out io.Writer, format string, data []byte) error {
	if format == export.FormatMarkdown && isTTY(out) {
		_, err := fmt.Fprintln(out, export.RenderTerminal(string(data), termWidth(out)))
		return err
	}
	_, err := out.Write(data)
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
