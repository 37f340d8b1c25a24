package cmd

import (
	"errors"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/edgarlens/edgarlens/internal/config"
	"github.com/edgarlens/edgarlens/internal/edgar"
	"github.com/edgarlens/edgarlens/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// cfgViper holds the file layer and bound flags of the last load so
	// serve can re-read it on SIGHUP.
	cfgViper *viper.Viper

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Rate-limited client for the SEC EDGAR data APIs",
	Long: `edgarlens fetches filing histories, XBRL facts and frames from the SEC
EDGAR APIs while staying under the published request quota.

Responses are cached in memory per invocation. Use serve to expose the same
operations over HTTP with a shared quota and cache.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Disable global telemetry early to prevent config loading from emitting
	// metrics to stdout. Server mode will initialize proper telemetry later.
	disabledConfig := &telemetry.Config{Enabled: false}
	if sys, err := telemetry.NewSystem(disabledConfig); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/edgarlens/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	flags.String("user-agent", "", "User-Agent sent upstream (the SEC asks for a contact address)")
	flags.Int("max-requests-per-second", 0, "client-side request quota (the published limit is 10)")
	flags.Bool("smoothing", false, "spread concurrent requests across the rate window")
	flags.Bool("no-cache", false, "disable the response cache")
	flags.Int("cache-size", 0, "maximum number of cached responses")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Initialize CLI logger early so we can use it in config loading
	observability.InitCLILogger(config.AppName, verbose)

	v, err := readConfigFile(cfgFile)
	if err != nil {
		code := foundry.ExitConfigInvalid
		if errors.Is(err, os.ErrNotExist) {
			code = foundry.ExitFileNotFound
		}
		ExitWithCode(observability.CLILogger, code, "Failed to read config file", err)
	}
	bindClientFlags(v)

	if _, err := config.Load(v, flagOverrides()); err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Invalid configuration", err)
	}
	cfgViper = v
}

// readConfigFile returns a viper instance holding the explicit config file,
// or the first user config file found. Missing user config is not an error.
func readConfigFile(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if strings.TrimSpace(path) == "" {
		for _, candidate := range config.UserConfigPaths() {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if strings.TrimSpace(path) == "" {
		observability.CLILogger.Debug("No config file found, using defaults and environment variables")
		return v, nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	observability.CLILogger.Debug("Using config file", zap.String("path", v.ConfigFileUsed()))
	return v, nil
}

func bindClientFlags(v *viper.Viper) {
	flags := rootCmd.PersistentFlags()
	_ = v.BindPFlag("client.user_agent", flags.Lookup("user-agent"))
	_ = v.BindPFlag("client.max_requests_per_second", flags.Lookup("max-requests-per-second"))
	_ = v.BindPFlag("client.smoothing", flags.Lookup("smoothing"))
	_ = v.BindPFlag("cache.size", flags.Lookup("cache-size"))
}

// flagOverrides covers flags that cannot be bound directly. Merged values
// sit below bound flags but above the config file and environment.
func flagOverrides() map[string]any {
	flags := rootCmd.PersistentFlags()
	if !flags.Changed("no-cache") {
		return nil
	}
	disabled, _ := flags.GetBool("no-cache")
	return map[string]any{"cache": map[string]any{"enabled": !disabled}}
}

// newClient builds an EDGAR client from the loaded configuration.
func newClient() (*edgar.Client, error) {
	cfg := config.GetConfig()
	if cfg == nil {
		var err error
		if cfg, err = config.Load(nil); err != nil {
			return nil, err
		}
	}
	return edgar.NewFromConfig(cfg, edgar.WithLogger(observability.Logger()))
}
