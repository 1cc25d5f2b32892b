package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/harun/cortex/internal/config"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var (
		force         bool
		oracleName    string
		providerFlags []string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write a configuration file with default settings. Providers can be added
with --provider id=command, e.g. --provider fs=mcp-server-filesystem.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader(cfgFile)
			configPath := loader.GetConfigPath()

			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
			}

			cfg := config.DefaultConfig()
			cfg.Oracle.Provider = oracleName
			for _, value := range providerFlags {
				p, err := parseProviderFlag(value)
				if err != nil {
					return err
				}
				cfg.Providers = append(cfg.Providers, p)
			}

			if errs := config.NewValidator().ValidateProviders(cfg.Providers); len(errs) > 0 {
				return fmt.Errorf("invalid configuration: %w", errs[0])
			}
			if err := config.NewValidator().ValidateOracleProvider(cfg.Oracle.Provider); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			if err := loader.Save(cfg); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration saved to: %s\n", configPath)
			fmt.Fprintf(out, "Set %s_ORACLE_API_KEY or edit the file, then start with: cortex run\n", config.EnvPrefix)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cmd.Flags().StringVar(&oracleName, "oracle", "anthropic", "oracle provider (anthropic, openai, scripted)")
	cmd.Flags().StringArrayVar(&providerFlags, "provider", nil, "tool provider as id=command [args...]")
	return cmd
}

// parseProviderFlag splits "id=command arg1 arg2"
func parseProviderFlag(value string) (config.ProviderConfig, error) {
	id, command, ok := strings.Cut(value, "=")
	id = strings.TrimSpace(id)
	fields := strings.Fields(command)
	if !ok || id == "" || len(fields) == 0 {
		return config.ProviderConfig{}, fmt.Errorf("invalid provider %q: want id=command [args...]", value)
	}
	return config.ProviderConfig{
		ID:      id,
		Command: fields[0],
		Args:    fields[1:],
	}, nil
}
