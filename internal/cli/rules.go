package cli

import (
	"fmt"
	"strings"

	"github.com/harun/cortex/pkg/heuristics"
	"github.com/spf13/cobra"
)

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the safety rules and the rule order of each pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			g, err := buildGate(cfg, nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Safety rules:")
			for _, r := range heuristics.SafetyRules() {
				fmt.Fprintf(out, "  - %s\n", r)
			}

			fmt.Fprintln(out, "\nPipelines:")
			for _, id := range g.Pipelines() {
				p, _ := g.Pipeline(id)
				fmt.Fprintf(out, "  %-12s %s\n", id, strings.Join(p.RuleIDs(), " -> "))
			}
			return nil
		},
	}
}
