package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/medicamp/internal/config"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables, collections and indexes for the configured store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg := config.Load()
			be, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer be.close()
			if err := be.migrate(ctx); err != nil {
				return err
			}
			log.Printf("[store] %s schema is up to date", cfg.StoreDriver)
			return nil
		},
	}
}
