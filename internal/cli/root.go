package cli

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	cfgFile  string
	logLevel string
)

// NewRootCmd builds the command tree. Each call returns a fresh tree with
// flags reset to their defaults.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cortex",
		Short: "Cortex - a guarded tool-calling agent",
		Long: `Cortex answers queries by asking a language model for a plan, running the
planned tool calls against MCP providers, and validating every query, plan,
tool output and answer before it is trusted.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cortex/cortex.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)

	rootCmd.AddCommand(
		newRunCmd(),
		newToolsCmd(),
		newCheckCmd(),
		newRulesCmd(),
		newSessionsCmd(),
		newInitCmd(),
	)
	return rootCmd
}

// Execute runs the root command. This is called by main.main().
func Execute() error {
	return NewRootCmd().Execute()
}

// GetRootCmd returns a fresh root command for testing
func GetRootCmd() *cobra.Command {
	return NewRootCmd()
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}
