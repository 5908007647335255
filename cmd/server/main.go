package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/flychess-backend/internal/config"
	"github.com/DoyleJ11/flychess-backend/internal/engine"
	"github.com/DoyleJ11/flychess-backend/internal/httpapi"
	"github.com/DoyleJ11/flychess-backend/internal/hub"
	"github.com/DoyleJ11/flychess-backend/internal/lobby"
	"github.com/DoyleJ11/flychess-backend/internal/logging"
	"github.com/DoyleJ11/flychess-backend/internal/server"
	"github.com/DoyleJ11/flychess-backend/internal/session"
	"github.com/DoyleJ11/flychess-backend/internal/store"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "flychess",
		Short:         "Flying chess game server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd())
	return root
}

func serveCmd() *cobra.Command {
	var envFile string
	var port, players int
	var httpAddr, logLevel, databaseURL string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			if envFile != "" {
				files = append(files, envFile)
			}
			cfg, err := config.Load(files...)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Port = port
			}
			if flags.Changed("players") {
				cfg.Players = players
			}
			if flags.Changed("http-addr") {
				cfg.HTTPAddr = httpAddr
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("database-url") {
				cfg.DatabaseURL = databaseURL
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&envFile, "env-file", "", "dotenv file to load (default .env if present)")
	f.IntVar(&port, "port", 0, "TCP port for game connections")
	f.IntVar(&players, "players", 0, "number of players per game (1-4)")
	f.StringVar(&httpAddr, "http-addr", "", "admin HTTP address, empty disables it")
	f.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	f.StringVar(&databaseURL, "database-url", "", "postgres DSN for match results")
	return cmd
}

func run(ctx context.Context, cfg config.Config) (err error) {
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	rec, closeRec, err := openRecorder(cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeRec()) }()

	g, ctx := errgroup.WithContext(ctx)

	lb := lobby.NewLobby(ctx, engine.NewState(cfg.Players),
		lobby.WithLogger(log.Named("lobby")),
		lobby.WithRecorder(rec),
	)
	h := hub.NewHub(ctx, lb, cfg.Players, log.Named("hub"))

	srv, err := server.New(h, lb.Inbox(),
		server.WithLogger(log.Named("server")),
		server.WithSessionConfig(session.Config{
			OutboxSize:   cfg.OutboxSize,
			WriteTimeout: cfg.WriteTimeout,
			MaxFrameSize: cfg.MaxFrameSize,
		}),
	)
	if err != nil {
		return err
	}
	if err := srv.Listen(cfg.ListenAddr()); err != nil {
		return err
	}

	log.Info("flying chess server starting",
		zap.Int("players", cfg.Players),
		zap.String("game_addr", srv.Addr().String()),
		zap.String("http_addr", cfg.HTTPAddr),
	)

	g.Go(func() error { return srv.Serve(ctx) })
	g.Go(func() error {
		<-lb.Done()
		return nil
	})
	if cfg.HTTPAddr != "" {
		httpSrv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           httpapi.SetupRoutes(lb, rec, log.Named("http")),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return pkgerrors.Wrap(err, "admin http server failed")
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	log.Info("flying chess server stopped", zap.Error(err))
	return err
}

// openRecorder picks postgres when a DSN is configured and memory otherwise.
func openRecorder(cfg config.Config, log *zap.Logger) (store.Recorder, func() error, error) {
	if cfg.DatabaseURL == "" {
		return store.NewMemoryRecorder(), func() error { return nil }, nil
	}
	rec, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info("recording match results in postgres")
	return rec, rec.Close, nil
}
