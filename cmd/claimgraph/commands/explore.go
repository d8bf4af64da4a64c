package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/claimgraph/internal/app"
)

func (c *CLI) newExploreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explore <video url | path>",
		Short: "Browse claims, statements and sources in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Explore(cmd.Context(), app.ExploreOptions{
				ConfigPath: configPath(cmd),
				Path:       LocationPath(args[0]),
			})
		},
	}
}
