package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kangxh75/NextPM/internal/app"
	"github.com/kangxh75/NextPM/internal/watch"
)

func serveCmd(g *globals) *cobra.Command {
	var (
		addr       string
		buildFirst bool
		watchSpecs bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard and the published site",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if addr != "" {
				cfg.Addr = addr
			}

			users, err := usersService(cfg)
			if err != nil {
				return err
			}
			service := app.New(cfg, users, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			builder := newBuilder(cfg, true, logger)
			if buildFirst || watchSpecs {
				if _, err := builder.Build(ctx); err != nil {
					logger.Warn("initial build failed", zap.Error(err))
				}
			}
			if err := service.Reload(ctx); err != nil {
				logger.Warn("serving with incomplete data", zap.Error(err))
			}

			server := &http.Server{
				Addr:              cfg.Addr,
				Handler:           app.NewHTTPServer(service, cfg.CORSOrigin, cfg.OutDir, logger).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       15 * time.Second,
				WriteTimeout:      60 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			group, ctx := errgroup.WithContext(ctx)
			group.Go(func() error {
				logger.Info("NextPM dashboard listening", zap.String("addr", cfg.Addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			group.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})
			if watchSpecs {
				watcher := watch.New(watch.Config{
					Dir:      cfg.SpecsDir,
					Pattern:  cfg.SpecPattern,
					Debounce: cfg.WatchDebounce(),
				}, rebuild(builder, service.Reload), logger)
				group.Go(func() error { return watcher.Run(ctx) })
			}
			return group.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	cmd.Flags().BoolVar(&buildFirst, "build", false, "Publish the specs before serving")
	cmd.Flags().BoolVar(&watchSpecs, "watch", false, "Rebuild and reload when specs change")
	return cmd
}
