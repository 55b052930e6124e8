package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/kiranshivaraju/termscope/internal/trends"
	"github.com/kiranshivaraju/termscope/pkg/models"
	"github.com/spf13/cobra"
)

func newTrendsCmd(a *app) *cobra.Command {
	var granularity, bin string
	cmd := &cobra.Command{
		Use:   "trends TERMS",
		Short: "Show term counts over time",
		Long: `Fetches one series per comma separated term in parallel and prints them
in term order. A term whose fetch fails is reported without hiding the others.`,
		Example: `  termscope trends cost,event --bin month`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agg := trends.NewAggregator(a.client,
				trends.WithConcurrency(a.cfg.Workflow.TrendConcurrency),
				trends.WithCallTimeout(a.cfg.API.Timeout),
				trends.WithLogger(a.logger),
			)
			defer agg.Close()

			q := trends.NewQuery(args[0], models.Granularity(granularity), models.Bin(bin))
			if _, err := agg.SetQuery(q); err != nil {
				return err
			}
			ds, err := agg.Wait(cmd.Context())
			if err != nil {
				return err
			}
			if len(ds.Query.Terms) == 0 {
				cmd.Println("No terms given")
				return nil
			}

			layout := ds.Query.Bin.Layout()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for i, term := range ds.Query.Terms {
				fmt.Fprintf(tw, "%s (%s)\n", term, trends.Color(i))
				if msg, failed := ds.Failures[term]; failed {
					fmt.Fprintf(tw, "\terror: %s\n", msg)
					continue
				}
				for _, p := range ds.Series[term] {
					fmt.Fprintf(tw, "\t%s\t%d\n", p.Time.Format(layout), p.Count)
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if len(ds.Failures) > 0 {
				return fmt.Errorf("%d of %d terms failed", len(ds.Failures), len(ds.Query.Terms))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&granularity, "granularity", "g", "", "document, paragraph or sentence (default document)")
	cmd.Flags().StringVarP(&bin, "bin", "b", "", "day, month or year (default day)")
	return cmd
}
