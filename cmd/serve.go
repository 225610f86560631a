package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/medicamp/internal/auth"
	"github.com/Shivanand-hulikatti/medicamp/internal/config"
	"github.com/Shivanand-hulikatti/medicamp/internal/handler"
	"github.com/Shivanand-hulikatti/medicamp/internal/notify"
	"github.com/Shivanand-hulikatti/medicamp/internal/payment"
	"github.com/Shivanand-hulikatti/medicamp/internal/service"
)

func newServeCmd() *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply the schema on startup")
	return cmd
}

func serve(ctx context.Context, skipMigrate bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── 1. Connect to the store ───────────────────────────────────────────
	be, err := openBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer be.close()
	if !skipMigrate {
		if err := be.migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// ── 2. Wire up layers ────────────────────────────────────────────────
	var verifier auth.Verifier
	switch cfg.AuthProvider {
	case config.AuthGoogle:
		verifier = auth.NewGoogleVerifier(cfg.GoogleClientID)
	default:
		verifier = auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	}
	resolver := auth.NewResolver(verifier, be.store.Organizers, cfg.UpstreamTimeout)

	var notifier notify.Notifier = notify.Log{}
	if cfg.TelegramBotToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken)
		if err != nil {
			log.Printf("[notify] telegram disabled: %v", err)
		} else {
			notifier = tg
		}
	}
	if cfg.MidtransServerKey == "" {
		log.Println("[payment] MIDTRANS_SERVER_KEY is empty, checkout will fail")
	}
	gateway := payment.NewMidtrans(cfg.MidtransServerKey, cfg.MidtransProduction)

	camps := service.NewCampService(be.store.Camps)
	svc := handler.Services{
		Camps:         camps,
		Registrations: service.NewRegistrationService(camps, be.store.Registrations),
		Payments:      service.NewPaymentService(camps, be.store, gateway, notifier, service.PolicyFromConfig(cfg)),
		Feedback:      service.NewFeedbackService(be.store.Registrations, be.store.Feedback),
		Organizers:    service.NewOrganizerService(be.store.Organizers),
		Participants:  service.NewParticipantService(be.store.Users),
	}

	if cfg.RecountCron != "" {
		job, err := service.StartRecountJob(cfg.RecountCron, camps)
		if err != nil {
			return fmt.Errorf("recount job: %w", err)
		}
		defer func() { <-job.Stop().Done() }()
	}

	// ── 3. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      handler.NewRouter(svc, resolver, cfg.CORSOrigin),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("✓ Server listening on http://localhost:%s (store=%s auth=%s)", cfg.Port, cfg.StoreDriver, cfg.AuthProvider)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	log.Println("shutting down server…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Println("server stopped")
	return nil
}
