package main

import (
	"fmt"

	"github.com/spf13/cobra"

	logicv1 "github.com/duynhne/cms-service/internal/logic/v1"
)

func sessionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Maintain login sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Delete every expired session now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stores, err := a.openStores(cmd.Context())
			if err != nil {
				return err
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}

			n, err := logicv1.NewSessionSweeper(stores.Sessions, cfg.Session.SweepInterval, cfg.Session.SweepTimeout).
				SweepOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %d expired session(s)\n", n)
			return nil
		},
	})
	return cmd
}
