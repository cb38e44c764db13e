package cmd

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/kozaktomas/suraksha/internal/config"
	"github.com/kozaktomas/suraksha/internal/psi"
	"github.com/kozaktomas/suraksha/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Suraksha API server.
Browsers create an authentication flow, push camera frames to it and follow
its progress over server-sent events. Authenticated sessions can query the
route-safety engine.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies (defaults to WEB_SESSION_SECRET)")
	serveCmd.Flags().Bool("no-psi", false, "Disable the route-safety endpoints")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil {
			port = p
		}
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if secret := mustGetString(cmd, "session-secret"); secret != "" {
		cfg.Web.SessionSecret = secret
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	oracle, err := newOracle(ctx, cfg)
	if err != nil {
		return err
	}

	zap.L().Info("connecting to PostgreSQL")
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackends()

	deps := web.Deps{
		Oracle:     oracle,
		Profiles:   b.profiles,
		Identities: b.identities,
		Sessions:   b.sessions,
	}
	if !mustGetBool(cmd, "no-psi") {
		client, err := psi.New(cfg.PSI.URL, cfg.PSI.Timeout)
		if err != nil {
			return err
		}
		deps.PSI = client
		zap.L().Info("route safety engine configured", zap.String("url", client.URL()))
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, port, host, deps)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("error during shutdown", zap.Error(err))
		}
		printUsage(oracle)
	}()

	return server.Start()
}
