package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/aristath/papertrader/internal/domain"
)

func resetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset <strategy-id>",
		Short: "Discard a strategy's ledger and restart it from its seed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("%w: pass --yes to reset %s", domain.ErrResetNotConfirmed, args[0])
			}

			_, container, _, err := a.setup(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer container.Close()

			if _, ok := container.Coordinator.Find(args[0]); !ok {
				return fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, args[0])
			}

			l, err := container.LedgerService.Reset(cmd.Context(), args[0], true)
			if err != nil {
				return err
			}
			fmt.Printf("%s reset to %s KRW\n", args[0], humanize.Comma(l.Cash))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
