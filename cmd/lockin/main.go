// Command lockin is the operator CLI: it serves the live gateway and
// browses saved conversation history.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/lockin-live/lockin/internal/dotenv"
	"github.com/lockin-live/lockin/pkg/core/providers/geminilive"
	"github.com/lockin-live/lockin/pkg/gateway/config"
	gatewayserver "github.com/lockin-live/lockin/pkg/gateway/server"
	"github.com/lockin-live/lockin/pkg/history"
)

const version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:           "lockin",
		Short:         "LockIn live assistant gateway and history tools",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newSessionsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "lockin: %v\n", err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the live gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dotenv.Load(); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, closeStore, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			gw := gatewayserver.New(cfg, store, geminilive.New(logger), logger)
			httpSrv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           gw.Handler(),
				ReadHeaderTimeout: cfg.ReadHeaderTimeout,
				ReadTimeout:       cfg.ReadTimeout,
			}

			logger.Info("starting gateway", "addr", cfg.Addr, "auth_mode", cfg.AuthMode, "model", cfg.Model)

			errCh := make(chan error, 1)
			go func() {
				if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
					return
				}
				errCh <- nil
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return <-errCh
		},
	}
}

func newSessionsCmd() *cobra.Command {
	sessions := &cobra.Command{
		Use:   "sessions",
		Short: "Browse saved conversation history",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved sessions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openHistoryStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			records, err := store.AllSessions(cmd.Context())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no saved sessions")
				return nil
			}
			for _, rec := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d turns\n",
					rec.SessionID, rec.Timestamp.Format(time.RFC3339), len(rec.Turns))
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <session_id>",
		Short: "Print the turns of one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openHistoryStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			rec, err := store.GetSession(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("session %q not found", args[0])
			}
			for i, turn := range rec.Turns {
				fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s\n  Q: %s\n  A: %s\n",
					i+1, turn.Timestamp.Format(time.RFC3339), turn.Transcription, turn.AIResponse)
			}
			return nil
		},
	}

	sessions.AddCommand(list, show)
	return sessions
}

// openHistoryStore opens the durable store named by LOCKIN_DATABASE_URL.
// History browsing needs the database; there is nothing to list in memory.
func openHistoryStore(ctx context.Context) (history.Store, func(), error) {
	if err := dotenv.Load(); err != nil {
		return nil, nil, err
	}
	dsn := strings.TrimSpace(os.Getenv("LOCKIN_DATABASE_URL"))
	if dsn == "" {
		return nil, nil, errors.New("LOCKIN_DATABASE_URL must be set to browse history")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open history database: %w", err)
	}
	return history.NewPostgresStore(pool), pool.Close, nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (history.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info("using in-memory history store")
		return history.NewMemoryStore(), func() {}, nil
	}
	if err := history.Migrate(ctx, cfg.DatabaseURL); err != nil {
		return nil, nil, fmt.Errorf("migrate history schema: %w", err)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open history database: %w", err)
	}
	logger.Info("using postgres history store")
	return history.NewPostgresStore(pool), pool.Close, nil
}
