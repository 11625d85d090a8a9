package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/reviewpress/reviewpress"
)

func newPostsCommand(cc *commandContext) *cobra.Command {
	var search, category string
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List published posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := cc.openApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			posts, err := app.Store.ListPublished(ctx)
			if err != nil {
				return err
			}
			posts = reviewpress.FilterPosts(posts, search, category)

			rows := make([][]string, 0, len(posts))
			for _, p := range posts {
				rows = append(rows, []string{
					strconv.FormatInt(p.ID, 10),
					p.CreatedAt.Local().Format("2006-01-02"),
					p.Category,
					truncate(p.Title, 48),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out, []string{"ID", "Date", "Category", "Title"}, rows, []columnAlignment{alignRight}))
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Case-insensitive title filter")
	cmd.Flags().StringVar(&category, "category", "", "distance, feel or design")
	return cmd
}
