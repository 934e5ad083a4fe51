package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/a11y-auditor/internal/delivery/http/handler"
	"github.com/user/a11y-auditor/internal/delivery/http/router"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve generated reports and the score API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		reports, err := newReportUseCase(env)
		if err != nil {
			return err
		}
		h := handler.NewHandler(reports, env.Scores, env.Failures, zap.L())

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      router.New(h, cfg.Reports.Dir, zap.L()),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 70 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("Server shutdown incomplete", zap.Error(err))
			}
		}()

		zap.L().Info("Starting server", zap.Int("port", port), zap.String("reports_dir", cfg.Reports.Dir))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
