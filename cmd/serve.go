package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/facescan/internal/config"
	"github.com/kozaktomas/facescan/internal/database/postgres"
	"github.com/kozaktomas/facescan/internal/extractor"
	"github.com/kozaktomas/facescan/internal/identity"
	"github.com/kozaktomas/facescan/internal/logger"
	"github.com/kozaktomas/facescan/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the facescan HTTP API.
Accounts, scan history and sessions are stored in PostgreSQL when
DATABASE_URL is set, otherwise in memory for the lifetime of the process.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies (overrides WEB_SESSION_SECRET)")
}

// applyServeFlags lets explicit flags win over environment configuration.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if secret := mustGetString(cmd, "session-secret"); secret != "" {
		cfg.Web.SessionSecret = secret
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyServeFlags(cmd, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx = logger.ContextWithLogger(ctx, a.log)

	deps := web.Deps{
		Scanner:       a.pipeline,
		Gallery:       a.gallery,
		GallerySource: cfg.Gallery.Source,
		ExtractorName: a.extractorName,
		Logger:        a.log,
	}
	if a.pool != nil {
		deps.Identity = postgres.NewAccountRepository(a.pool)
		sessions := postgres.NewSessionRepository(a.pool)
		go sessions.RunCleanup(ctx, time.Hour)
		deps.SessionRepo = sessions
		deps.Database = a.pool
		a.log.Info("account and session persistence enabled (PostgreSQL)")
	} else {
		deps.Identity = identity.NewMemoryStore()
		a.log.Warn("DATABASE_URL not set; accounts and scan history are kept in memory only")
	}

	if m, ok := a.extractor.(*extractor.ModelExtractor); ok {
		// Warm the model up front; failures only mean scans start degraded.
		if err := m.EnsureLoaded(ctx); err != nil {
			a.log.Warn("face model not ready, scans will use fallback descriptors", zap.Error(err))
		}
	}

	server := web.NewServer(cfg, deps)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.log.Error("error during shutdown", zap.Error(err))
		}
	}()

	fmt.Printf("Starting facescan on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
