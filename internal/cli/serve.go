package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"hostwatch/internal/config"
	"hostwatch/internal/engine"
	"hostwatch/internal/errors"
	"hostwatch/internal/logger"
	"hostwatch/internal/transport"
)

// sshKeyEnv names the environment variable holding the SSH private key
// material (the key itself, not a path).
const sshKeyEnv = "HOSTWATCH_SSH_KEY"

var (
	serveListenFlag  string
	serveKeyFileFlag string
)

// serveCmd runs the monitoring engine and the HTTP feed server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the monitoring engine and feed server",
	Long: `Start the poll loop and serve the status feed over HTTP.

The engine probes the fleet on a cadence that adapts to demand: with
feed observers connected it polls at the active interval, otherwise at
the slower idle interval.

Endpoints:
  GET /api/status         - current snapshot as JSON
  GET /api/status/stream  - server-sent events, one snapshot per cycle
  GET /metrics            - Prometheus self-monitoring metrics

Examples:
  hostwatch serve
  hostwatch serve --config /etc/hostwatch.yaml --listen 0.0.0.0:8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCommand()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListenFlag, "listen", "", "HTTP listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveKeyFileFlag, "key-file", "", "path to SSH private key (overrides "+sshKeyEnv+")")
	rootCmd.AddCommand(serveCmd)
}

func serveCommand() error {
	// A .env in the working directory may carry the key material.
	_ = godotenv.Load()

	path, err := config.Find(configFlag)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if serveListenFlag != "" {
		cfg.Listen = serveListenFlag
	}

	keyPEM, err := loadKeyMaterial()
	if err != nil {
		return err
	}

	log := logger.NewEnvLogger("hostwatch")
	eng, err := engine.New(cfg, keyPEM, log)
	if err != nil {
		return err
	}
	server := transport.NewServer(eng, cfg.Listen, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(ctx) })
	g.Go(func() error { return server.Run(ctx) })
	return g.Wait()
}

// loadKeyMaterial resolves the SSH private key: an explicit key file
// wins, then the environment variable. Empty means agent-only auth.
func loadKeyMaterial() (string, error) {
	if serveKeyFileFlag != "" {
		data, err := os.ReadFile(serveKeyFileFlag)
		if err != nil {
			return "", errors.WrapWithSuggestion(err, errors.ErrConfig,
				"Failed to read key file "+serveKeyFileFlag,
				"Check the path and permissions")
		}
		return string(data), nil
	}
	return os.Getenv(sshKeyEnv), nil
}
