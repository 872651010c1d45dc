package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/ordo/internal/flow"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run SCRIPT",
		Short: "Run an HCL flow script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			script, err := flow.Load(args[0])
			if err != nil {
				return err
			}

			d, err := a.setup(ctx)
			if err != nil {
				return err
			}
			defer d.close()

			r, interp, b, err := a.startRuntime(d)
			if err != nil {
				return err
			}
			defer stopRuntime(d, r, b)

			if err := interp.Run(ctx, r, script); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "flow %s finished: %d step(s), %d warning(s), %d error(s)\n",
				args[0], len(script.Steps), d.logger.WarningCount(), d.logger.ErrorCount())
			return nil
		},
	}
}
