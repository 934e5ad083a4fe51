package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/a11y-auditor/internal/entity"
	"github.com/user/a11y-auditor/internal/usecase"
)

var compareDate string

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Rank the audited pages of a run date per viewport",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		date, err := parseDate(compareDate)
		if err != nil {
			return err
		}
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		uc := usecase.NewCompareUseCase(env.Reports, env.Sites.Matrix, env.Sites.Viewports, zap.L())
		comparisons, err := uc.Compare(ctx, date)
		if err != nil {
			return err
		}
		if len(comparisons) == 0 {
			fmt.Fprintf(os.Stdout, "No results for %s.\n", date)
			return nil
		}
		for _, c := range comparisons {
			renderComparison(os.Stdout, c)
		}
		return nil
	},
}

func init() {
	compareCmd.Flags().StringVar(&compareDate, "date", "", "run date YYYY-MM-DD (default today)")
	rootCmd.AddCommand(compareCmd)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func renderComparison(w io.Writer, c entity.ViewportComparison) {
	t := newTable(w)
	t.SetTitle(c.Viewport)
	t.AppendHeader(table.Row{"#", "Domain", "Page", "Passes", "Violations", "Pass diff", "Violation diff"})
	for i, e := range c.Entries {
		t.AppendRow(table.Row{
			i + 1,
			e.Domain,
			e.PageType,
			e.Passes,
			e.Violations,
			formatDiff(-e.PassDifference),
			formatDiff(e.ViolationDifference),
		})
	}
	t.Render()
}

// formatDiff prints a signed difference, blank for zero.
func formatDiff(d int) string {
	if d == 0 {
		return ""
	}
	return fmt.Sprintf("%+d", d)
}
