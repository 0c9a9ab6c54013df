package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lazypower/rapport/internal/auth"
	"github.com/lazypower/rapport/internal/config"
	"github.com/lazypower/rapport/internal/engine"
	"github.com/lazypower/rapport/internal/logger"
	"github.com/lazypower/rapport/internal/server"
	"github.com/lazypower/rapport/internal/store"
	"github.com/lazypower/rapport/internal/store/supa"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	log := logger.New("rapport", cfg.Logging.Level, cfg.Logging.Format)

	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	eng := engine.New(st, log)
	eng.SetReplyLatency(cfg.Scoring.DefaultReplyLatencyMin)

	opts := server.Options{
		DevOwner:    cfg.Auth.DevOwner,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      log,
	}
	if cfg.Auth.JWTSecret != "" {
		v, err := auth.NewValidator(cfg.Auth.JWTSecret)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		opts.Validator = v
	}

	srv := server.New(st, eng, VersionString(), opts)
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		authMode := "single-user"
		if opts.Validator != nil {
			authMode = "jwt"
		}
		log.Info().
			Str("addr", addr).
			Str("store", st.Describe()).
			Str("auth", authMode).
			Msg("rapport serving")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-done:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}

// openStore opens the backend selected by cfg.Store.Driver.
func openStore(cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.Store.Driver {
	case "supabase":
		st, err := supa.New(cfg.Store.SupabaseURL, cfg.Store.SupabaseKey, supa.DefaultBreakerSettings(), log)
		if err != nil {
			return nil, fmt.Errorf("open supabase: %w", err)
		}
		return st, nil
	default:
		dbPath := cfg.Database.Path
		if dbPath == "" {
			var err error
			dbPath, err = store.DefaultDBPath()
			if err != nil {
				return nil, fmt.Errorf("resolve db path: %w", err)
			}
		}
		db, err := store.Open(dbPath)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return db, nil
	}
}
