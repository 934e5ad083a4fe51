package main

import (
	"github.com/spf13/cobra"
)

var (
	reportDate string
	reportAll  bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the comparison page and score table of a run date",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		reports, err := newReportUseCase(env)
		if err != nil {
			return err
		}
		if reportAll {
			return reports.GenerateAll(ctx)
		}

		date, err := parseDate(reportDate)
		if err != nil {
			return err
		}
		return reports.Generate(ctx, date)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "", "run date YYYY-MM-DD (default today)")
	reportCmd.Flags().BoolVar(&reportAll, "all", false, "regenerate every stored run date")
	rootCmd.AddCommand(reportCmd)
}
