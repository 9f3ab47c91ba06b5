package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/vanshika/peerpay/internal/seed"
)

var (
	flagSeedUsers     int
	flagSeedTransfers int
	flagSeedWorkers   int
	flagSeedRandSeed  int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the graph with demo users and transfers",
	RunE:  runSeed,
}

func init() {
	defaults := seed.DefaultConfig()
	seedCmd.Flags().IntVar(&flagSeedUsers, "users", defaults.NumUsers, "Number of demo users to create")
	seedCmd.Flags().IntVar(&flagSeedTransfers, "transfers", defaults.NumTransfers, "Number of transfers to attempt")
	seedCmd.Flags().IntVar(&flagSeedWorkers, "workers", defaults.Workers, "Concurrent transfer workers")
	seedCmd.Flags().Int64Var(&flagSeedRandSeed, "seed", defaults.Seed, "Random seed for reproducible plans")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())

	seeder := seed.New(seed.Config{
		NumUsers:     flagSeedUsers,
		NumTransfers: flagSeedTransfers,
		Workers:      flagSeedWorkers,
		Seed:         flagSeedRandSeed,
	}, rt.users, rt.transfers, rt.logger)

	summary, err := seeder.Run(ctx)
	if err != nil {
		return err
	}

	rt.logger.Info("seeding complete",
		"usersCreated", summary.UsersCreated,
		"transfersCompleted", summary.TransfersCompleted,
		"transfersRejected", summary.TransfersRejected,
	)
	return nil
}
