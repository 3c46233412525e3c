package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"crocPlanner/internal/model"
	"crocPlanner/internal/storage"
	"crocPlanner/internal/storage/postgres"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded plans",
		Long:  "Reads plans from Postgres when --pg-dsn is set, otherwise from the --journal file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			kind, _ := cmd.Flags().GetString("kind")
			limit, _ := cmd.Flags().GetInt("limit")
			if limit <= 0 {
				return fmt.Errorf("limit must be positive")
			}

			var plans []model.PlanRecord
			switch {
			case cfg.PGDSN != "":
				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				store, err := postgres.NewStore(ctx, cfg.PGDSN)
				if err != nil {
					return fmt.Errorf("connect postgres: %w", err)
				}
				defer store.Close()
				if plans, err = store.RecentPlans(ctx, cfg.ChainID, kind, limit); err != nil {
					return err
				}
			case cfg.Journal != "":
				all, err := storage.NewJsonlStorage(cfg.Journal).ReadPlans()
				if err != nil {
					return err
				}
				plans = filterPlans(all, cfg.ChainID, kind, limit)
			default:
				return fmt.Errorf("history needs --journal or --pg-dsn")
			}
			if plans == nil {
				plans = []model.PlanRecord{}
			}
			return emit(cmd.OutOrStdout(), plans)
		},
	}
	cmd.Flags().String("kind", "", "only list plans of this kind")
	cmd.Flags().Int("limit", 20, "maximum plans to list")
	return cmd
}

// filterPlans returns the newest matching journal entries, newest first.
func filterPlans(all []model.PlanRecord, chainID uint64, kind string, limit int) []model.PlanRecord {
	var out []model.PlanRecord
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		r := all[i]
		if r.ChainID != chainID || (kind != "" && r.Kind != kind) {
			continue
		}
		out = append(out, r)
	}
	return out
}
