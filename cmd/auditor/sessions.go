package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/a11y-auditor/internal/entity"
	"github.com/user/a11y-auditor/internal/usecase"
)

var (
	captureWait     time.Duration
	captureViewport string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Capture and inspect stored cookie and local storage state",
}

var sessionsCaptureCmd = &cobra.Command{
	Use:   "capture <url>",
	Short: "Open a visible browser, wait for manual consent, then store the session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		vp, ok := env.Sites.Viewport(captureViewport)
		if !ok {
			return fmt.Errorf("viewport %q is not defined", captureViewport)
		}
		wait := captureWait
		if wait == 0 {
			wait = cfg.Audit.CaptureWait
		}

		uc := usecase.NewSessionUseCase(newBrowser(false), env.Sessions, cfg.Audit.NavigationTimeout, zap.L())
		state, err := uc.Capture(ctx, args[0], vp, wait)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Saved %d cookies and %d local storage items.\n", len(state.Cookies), len(state.LocalStorage))
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <domain>",
	Short: "Print the state that would be restored for a domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		uc := usecase.NewSessionUseCase(nil, env.Sessions, cfg.Audit.NavigationTimeout, zap.L())
		renderSession(os.Stdout, uc.Show(ctx, args[0]))
		return nil
	},
}

func init() {
	sessionsCaptureCmd.Flags().DurationVar(&captureWait, "wait", 0, "time for manual interaction (default from config)")
	sessionsCaptureCmd.Flags().StringVar(&captureViewport, "viewport", "DESKTOP", "viewport profile to open")
	sessionsCmd.AddCommand(sessionsCaptureCmd, sessionsShowCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func renderSession(w io.Writer, state entity.SessionState) {
	if state.IsEmpty() {
		fmt.Fprintln(w, "No stored session.")
		return
	}

	if len(state.Cookies) > 0 {
		t := newTable(w)
		t.SetTitle("Cookies")
		t.AppendHeader(table.Row{"Name", "Domain", "Path", "Expires"})
		for _, c := range state.Cookies {
			expires := "session"
			if !c.IsSession() {
				expires = time.Unix(int64(c.Expires), 0).UTC().Format(time.RFC3339)
			}
			t.AppendRow(table.Row{c.Name, c.Domain, c.Path, expires})
		}
		t.Render()
	}

	if len(state.LocalStorage) > 0 {
		keys := make([]string, 0, len(state.LocalStorage))
		for k := range state.LocalStorage {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		t := newTable(w)
		t.SetTitle("Local storage")
		t.AppendHeader(table.Row{"Key", "Value"})
		for _, k := range keys {
			t.AppendRow(table.Row{k, truncate(state.LocalStorage[k], 60)})
		}
		t.Render()
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
