package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/reviewpress/reviewpress/ingest"
)

func newGenerateCommand(cc *commandContext) *cobra.Command {
	var req ingest.Request
	cmd := &cobra.Command{
		Use:   "generate --image PATH [--image PATH...]",
		Short: "Write and store a post about one or more product images",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(req.Paths()) == 0 {
				return ingest.ErrNoImages
			}
			ctx := cmd.Context()
			app, err := cc.openApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			started := time.Now()
			post, genErr := app.Generator.Generate(ctx, req)
			run := ingest.Run{
				Source:     ingest.SourceCLI,
				ImagePaths: req.Paths(),
				PostID:     post.ID,
				Status:     ingest.RunOK,
				StartedAt:  started,
				Duration:   time.Since(started),
			}
			if genErr != nil {
				run.Status = ingest.RunError
				run.Error = genErr.Error()
			}
			if _, err := app.Runs.Record(ctx, run); err != nil {
				app.Echo.Logger.Warnf("record run: %v", err)
			}
			if genErr != nil {
				return genErr
			}
			if err := app.Posts.Invalidate(ctx); err != nil {
				app.Echo.Logger.Warnf("invalidate post cache: %v", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created post %d: %s\n", post.ID, post.Title)
			fmt.Fprintf(out, "  category: %s\n  tags:     %s\n  url:      %s\n", post.Category, post.Tags, app.Config.PostURL(post))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&req.ImagePaths, "image", "i", nil, "Repository path of a product image (repeatable)")
	cmd.Flags().StringVar(&req.ProductName, "product", "", "Product name (identified from the image when empty)")
	cmd.Flags().StringVar(&req.Category, "category", "", "Prompt category: golf, tech or general")
	return cmd
}
