package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newToolsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools offered by the configured providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			lg, err := setupLogging(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer lg.Close()

			d, err := openDispatcher(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to open providers: %w", err)
			}
			defer d.Close()

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"tools":     d.Catalog(),
					"providers": d.States(),
				})
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tSTATE\tERROR")
			states := d.States()
			for _, id := range d.ProviderIDs() {
				reason := ""
				if conn, ok := d.Connection(id); ok && conn.Err() != nil {
					reason = conn.Err().Error()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", id, states[id], reason)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "TOOL\tUSAGE\tDESCRIPTION")
			for _, e := range d.Catalog() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, e.UsageTemplate, e.Description)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return cmd
}
