package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/a11y-auditor/internal/entity"
	"github.com/user/a11y-auditor/pkg/config"
)

var (
	runDate      string
	runDomains   []string
	runViewports []string
	runNoResume  bool
	runNoReport  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Audit every (domain, page type, viewport) unit of the site matrix",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		date, err := parseDate(runDate)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		matrix, err := filterMatrix(env.Sites.Matrix, runDomains)
		if err != nil {
			return err
		}
		viewports, err := filterViewports(env.Sites, runViewports)
		if err != nil {
			return err
		}

		auditor, err := newAuditUseCase(ctx, env, cfg.Audit.Resume && !runNoResume)
		if err != nil {
			return err
		}

		summary, err := auditor.Run(ctx, date, matrix, viewports)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s: %d persisted, %d skipped, %d failed of %d units in %s\n",
			date, summary.Persisted, summary.Skipped, summary.Failed, summary.Total(), summary.Duration.Round(time.Second))

		if runNoReport {
			return nil
		}
		reports, err := newReportUseCase(env)
		if err != nil {
			return err
		}
		return reports.Generate(ctx, date)
	},
}

func init() {
	runCmd.Flags().StringVar(&runDate, "date", "", "run date YYYY-MM-DD (default today)")
	runCmd.Flags().StringSliceVar(&runDomains, "domain", nil, "only audit these domains")
	runCmd.Flags().StringSliceVar(&runViewports, "viewport", nil, "only audit these viewports")
	runCmd.Flags().BoolVar(&runNoResume, "no-resume", false, "re-audit units that already have a result")
	runCmd.Flags().BoolVar(&runNoReport, "no-report", false, "skip report generation after the run")
	rootCmd.AddCommand(runCmd)
}

// filterMatrix keeps the entries of the given domains, in matrix order.
func filterMatrix(m *entity.SiteMatrix, domains []string) (*entity.SiteMatrix, error) {
	if len(domains) == 0 {
		return m, nil
	}
	want := make(map[string]bool, len(domains))
	for _, d := range domains {
		want[d] = true
	}

	var entries []entity.SiteMatrixEntry
	found := make(map[string]bool)
	for _, pageType := range m.PageTypes() {
		for _, domain := range m.Domains() {
			if !want[domain] {
				continue
			}
			if u, ok := m.URL(pageType, domain); ok {
				entries = append(entries, entity.SiteMatrixEntry{PageType: pageType, Domain: domain, URL: u})
				found[domain] = true
			}
		}
	}
	for _, d := range domains {
		if !found[d] {
			return nil, fmt.Errorf("domain %q is not in the site matrix", d)
		}
	}
	return entity.NewSiteMatrix(entries)
}

// filterViewports resolves viewport names against the sites file, keeping its order.
func filterViewports(sites *config.Sites, names []string) ([]*entity.ViewportProfile, error) {
	if len(names) == 0 {
		return sites.Viewports, nil
	}
	for _, n := range names {
		if _, ok := sites.Viewport(n); !ok {
			return nil, fmt.Errorf("viewport %q is not defined", n)
		}
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []*entity.ViewportProfile
	for _, vp := range sites.Viewports {
		if want[vp.Name] {
			out = append(out, vp)
		}
	}
	return out, nil
}
