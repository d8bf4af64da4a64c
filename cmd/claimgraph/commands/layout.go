package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/claimgraph/internal/app"
	"go.trai.ch/claimgraph/internal/core/domain"
)

func (c *CLI) newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout [payload files...]",
		Short: "Lay out payload files and print the positioned graphs",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			levelName, _ := cmd.Flags().GetString("level")
			format, _ := cmd.Flags().GetString("output")

			level, err := domain.ParseLevel(levelName)
			if err != nil {
				return err
			}

			opts := app.LayoutOptions{
				ConfigPath: configPath(cmd),
				Files:      args,
				Level:      level,
				Format:     format,
			}
			if cmd.Flags().Changed("seed") {
				seed, _ := cmd.Flags().GetUint64("seed")
				opts.Seed = &seed
			}
			if cmd.Flags().Changed("iterations") {
				iterations, _ := cmd.Flags().GetInt("iterations")
				opts.Iterations = &iterations
			}

			return c.app.LayoutFiles(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringP("level", "l", "claims", "Payload level: claims, statements or provenance")
	cmd.Flags().StringP("output", "o", app.FormatJSON, "Output format: json or yaml")
	cmd.Flags().Uint64("seed", 0, "Override the tie-break seed")
	cmd.Flags().Int("iterations", 0, "Override the simulation iteration count")
	return cmd
}
