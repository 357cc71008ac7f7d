package daemon

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/listforge/listforge/internal/api"
	"github.com/listforge/listforge/internal/app/export"
	"github.com/listforge/listforge/internal/app/ledger"
	"github.com/listforge/listforge/internal/app/pipeline"
	"github.com/listforge/listforge/internal/app/session"
	"github.com/listforge/listforge/internal/infra/gemini"
	"github.com/listforge/listforge/internal/infra/sqlite"
)

// Run assembles the service from cfg and serves until ctx is cancelled.
func Run(ctx context.Context, cfg Config, log *zap.Logger) error {
	db, err := sqlite.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	if cfg.Model.APIKey == "" {
		return errors.New("model api key is not set; use GEMINI_API_KEY or [model].api_key")
	}
	timeout, err := cfg.ModelTimeout()
	if err != nil {
		return err
	}
	gen, err := gemini.New(ctx, gemini.Config{
		APIKey:  cfg.Model.APIKey,
		Model:   cfg.Model.Name,
		Timeout: timeout,
		Retries: cfg.Model.Retries,
	}, log)
	if err != nil {
		return fmt.Errorf("model client: %w", err)
	}

	secret := cfg.Auth.Secret
	if secret == "" {
		// Ephemeral secret: tokens die with the process.
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("generate auth secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		log.Warn("auth secret not configured, generated an ephemeral one; issued tokens will not survive a restart")
	}
	tokenTTL, err := cfg.TokenTTL()
	if err != nil {
		return err
	}
	idleTTL, err := cfg.IdleTTL()
	if err != nil {
		return err
	}

	credits := ledger.New(db, log)
	sessions := session.NewManager(idleTTL, log)
	runner := pipeline.NewRunner(gen, credits, cfg.Costs, log)
	exporter := export.New(log)
	auth := api.NewAuth(db, secret, tokenTTL, log)

	server := api.NewServer(auth, credits, sessions, runner, exporter, log)
	if cfg.API.Metrics {
		server.EnableMetrics()
	}

	httpServer := &http.Server{
		Addr:              cfg.API.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go sessions.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", cfg.API.Addr()),
			zap.String("model", cfg.Model.Name),
			zap.String("store", cfg.Store.Path))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
