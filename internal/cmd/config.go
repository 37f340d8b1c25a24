package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/edgarlens/edgarlens/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration (defaults to show)",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration after defaults, the config file, EDGARLENS_*
environment variables and flags have been applied.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use and the locations searched",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		used := ""
		if cfgViper != nil {
			used = cfgViper.ConfigFileUsed()
		}
		if strings.TrimSpace(used) == "" {
			used = "(none)"
		}
		fmt.Fprintf(out, "in use: %s\n", used)
		fmt.Fprintf(out, "default: %s\n", config.DefaultConfigPath())
		for _, path := range config.UserConfigPaths() {
			fmt.Fprintf(out, "searched: %s\n", path)
		}
		return nil
	},
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()
	if cfg == nil {
		cfg = config.Default()
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
	return err
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}
