package main

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/medicamp/internal/config"
	"github.com/Shivanand-hulikatti/medicamp/internal/service"
)

func newRecountCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "recount",
		Short: "Recompute every camp's participant count from its registrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			cfg := config.Load()
			be, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer be.close()

			n, err := service.NewCampService(be.store.Camps).Recount(ctx)
			if err != nil {
				return err
			}
			log.Printf("[recount] %d camp(s) corrected", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "abort the recount after this long")
	return cmd
}
