package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/claimgraph/internal/app"
)

func (c *CLI) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [video url | path]",
		Short: "Serve the navigation API over HTTP",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			opts := app.ServeOptions{
				ConfigPath: configPath(cmd),
				Addr:       addr,
			}
			if len(args) == 1 {
				opts.Path = LocationPath(args[0])
			}
			return c.app.Serve(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringP("addr", "a", "", "Listen address (overrides server.addr)")
	return cmd
}
