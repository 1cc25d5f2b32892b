package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/harun/cortex/pkg/gate"
	"github.com/spf13/cobra"
)

var errCheckFailed = errors.New("validation failed")

func newCheckCmd() *cobra.Command {
	var (
		tools  []string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "check <pipeline> [text...]",
		Short: "Validate text through a pipeline",
		Long: `Run text through one validation pipeline: query, plan, callArgs,
toolOutput or finalAnswer. Text is read from the arguments, or from stdin
when none are given. Plans are checked against the tool names passed with
--tool; callArgs takes a JSON argument object.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := gate.ParsePipelineID(args[0])
			if err != nil {
				return err
			}

			text := strings.Join(args[1:], " ")
			if len(args) == 1 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				text = strings.TrimRight(string(data), "\n")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			known := make(map[string]bool, len(tools))
			for _, t := range tools {
				known[t] = true
			}
			g, err := buildGate(cfg, func(name string) bool { return known[name] })
			if err != nil {
				return err
			}

			res := g.Validate(text, id)
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else {
				printCheck(out, res)
			}

			if !res.OK {
				return errCheckFailed
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&tools, "tool", nil, "tool names known to the plan pipeline")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func printCheck(out io.Writer, res gate.Result) {
	switch {
	case res.OK:
		fmt.Fprintf(out, "ok: %s\n", res.Value)
	case res.Blocked:
		fmt.Fprintf(out, "blocked by %s: %s\n", res.RuleID(), res.Reason())
	default:
		fmt.Fprintf(out, "rejected by %s: %s\n", res.RuleID(), res.Reason())
	}
}
