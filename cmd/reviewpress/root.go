package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reviewpress/reviewpress"
)

type commandContext struct {
	configPath string
}

func (c *commandContext) config() (reviewpress.SiteConfig, error) {
	return reviewpress.LoadConfig(c.configPath)
}

// openApp loads the configuration and wires the application without serving.
// The caller must Close the returned app.
func (c *commandContext) openApp(ctx context.Context) (*reviewpress.App, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	app := reviewpress.New(cfg)
	if err := app.Setup(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "reviewpress",
		Short:         "Product review blog with AI-written posts",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "reviewpress.toml", "Configuration file path")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newGenerateCommand(ctx))
	rootCmd.AddCommand(newPostsCommand(ctx))
	rootCmd.AddCommand(newRunsCommand(ctx))
	rootCmd.AddCommand(newTokenCommand(ctx))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the reviewpress version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "reviewpress %s\n", version)
		},
	})
	return rootCmd
}
