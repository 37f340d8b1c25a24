package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edgarlens/edgarlens/internal/config"
	"github.com/edgarlens/edgarlens/internal/edgar"
	"github.com/edgarlens/edgarlens/internal/observability"
)

const upstreamCheckTimeout = 15 * time.Second

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long: `Run a self-health check: version info, logger and configuration. With
--upstream, also resolve one ticker against the SEC company index.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.CLILogger
		logger.Info("Running health check...")

		if versionInfo.Version == "" {
			logger.Warn("Version information missing")
		} else {
			logger.Debug("Version check passed", zap.String("version", versionInfo.Version))
		}

		cfg := config.GetConfig()
		if cfg == nil {
			cfg = config.Default()
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger.Info("Configuration valid",
			zap.String("base_url", cfg.Client.BaseURL),
			zap.Int("max_requests_per_second", cfg.Client.MaxRequestsPerSecond))

		upstream, err := cmd.Flags().GetBool("upstream")
		if err != nil {
			return err
		}
		if upstream {
			if err := checkUpstream(cmd.Context()); err != nil {
				return err
			}
		}

		logger.Info("All health checks passed")
		return nil
	},
}

func checkUpstream(ctx context.Context) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close() // nolint:errcheck // releases idle connections only

	ctx, cancel := context.WithTimeout(ctx, upstreamCheckTimeout)
	defer cancel()

	started := time.Now()
	companies, err := client.Universe(ctx)
	if err != nil {
		return err
	}
	observability.CLILogger.Info("Upstream reachable",
		zap.Int("companies", len(companies)),
		zap.Duration("elapsed", time.Since(started)),
		zap.String("client", client.String()))
	return nil
}

// upstreamChecker reports whether the company index can be fetched through
// client. Used by serve's readiness endpoint.
func upstreamChecker(client *edgar.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := client.Async().Universe(ctx)
		return err
	}
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().Bool("upstream", false, "also fetch the SEC company index")
}
