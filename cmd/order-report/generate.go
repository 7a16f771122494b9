package main

import (
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/order_report/datagen"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	var (
		email  string
		orders int
		build  bool
	)
	opts := defaultBuildOptions()
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write reproducible synthetic CSVs, then build the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := datagen.Generate(datagen.Options{Email: email, Orders: orders, Days: opts.Days})
			if err != nil {
				return err
			}
			if err := ds.WriteCSV(opts.DataDir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated %d sellers, %d orders, %d items into %s/\n",
				len(ds.Sellers), len(ds.Orders), len(ds.Items), opts.DataDir)
			if !build {
				return nil
			}

			report, err := runBuild(cmd.Context(), opts)
			if err != nil {
				return err
			}
			err = reportOutcome(report)
			if errors.Is(err, errIssuesFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "Report built with problems, see the Checks sheet")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Report built, all checks passed")
			}
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "seed for the generator (required)")
	cmd.Flags().IntVar(&orders, "orders", datagen.DefaultOrders, "number of orders to generate")
	cmd.Flags().BoolVar(&build, "build", true, "build the report after generating")
	addBuildFlags(cmd, &opts)
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
