// Package commands implements the CLI commands for claimgraph.
package commands

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/claimgraph/internal/app"
	"go.trai.ch/claimgraph/internal/build"
)

// CLI represents the command line interface for claimgraph.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	LayoutFiles(ctx context.Context, opts app.LayoutOptions) error
	Explore(ctx context.Context, opts app.ExploreOptions) error
	Serve(ctx context.Context, opts app.ServeOptions) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "claimgraph",
		Short:         "Lay out and explore claim verification graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file or directory (default: $CLAIMGRAPH_CONFIG or ./claimgraph.yaml)")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newLayoutCmd())
	rootCmd.AddCommand(c.newExploreCmd())
	rootCmd.AddCommand(c.newServeCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}

// LocationPath turns a command argument into a location path. Arguments
// that are not already paths are taken as video URLs.
func LocationPath(arg string) string {
	if strings.HasPrefix(arg, "/") {
		return arg
	}
	return "/analyze/" + url.PathEscape(arg)
}
