package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newRunsCommand(cc *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent generation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := cc.openApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			runs, err := app.Runs.Recent(ctx, limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				post := "-"
				if r.PostID > 0 {
					post = strconv.FormatInt(r.PostID, 10)
				}
				status := r.Status
				if r.Error != "" {
					status += ": " + truncate(r.Error, 40)
				}
				rows = append(rows, []string{
					r.StartedAt.Local().Format("2006-01-02 15:04:05"),
					r.Source,
					truncate(strings.Join(r.ImagePaths, ", "), 40),
					post,
					r.Duration.Round(100 * time.Millisecond).String(),
					status,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out,
				[]string{"Started", "Source", "Images", "Post", "Took", "Status"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight}))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}
