package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newDiffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff A B [REPORT]",
		Short: "Compare two persisted databases",
		Long: "Compare two persisted databases. Paths may carry a mem:, redis: or pg: prefix.\n" +
			"Without REPORT the comparison is printed to standard output.",
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer d.close()

			r, _, b, err := a.startRuntime(d)
			if err != nil {
				return err
			}
			defer stopRuntime(d, r, b)

			report := ""
			if len(args) == 3 {
				report = args[2]
			} else {
				f, err := os.CreateTemp("", "ordo-diff-*.txt")
				if err != nil {
					return err
				}
				report = f.Name()
				_ = f.Close()
				defer os.Remove(report)
			}

			if err := r.DiffDbs(cmd.Context(), args[0], args[1], report); err != nil {
				return err
			}

			if len(args) == 2 {
				data, err := os.ReadFile(report)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), string(data))
			}
			return nil
		},
	}
}
