package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/vanshika/peerpay/internal/config"
	"github.com/vanshika/peerpay/internal/graph"
	"github.com/vanshika/peerpay/internal/ledger"
	"github.com/vanshika/peerpay/internal/logging"
	"github.com/vanshika/peerpay/internal/repository"
)

var rootCmd = &cobra.Command{
	Use:   "peerpay",
	Short: "Peer-to-peer balance transfer ledger",
	Long:  "PeerPay maintains a graph-backed ledger of users and transfers, with risk scoring and a cooldown-gated bonus engine.",
	RunE:  runServer,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runtime bundles everything a command needs after wiring.
type runtime struct {
	cfg       config.Config
	logger    *slog.Logger
	graph     graph.Client
	repo      *repository.Repository
	users     *ledger.UserService
	transfers *ledger.TransferService
	bonus     *ledger.BonusService
	risk      *ledger.RiskService
	hooks     *ledger.HookRunner
}

func (rt *runtime) close(ctx context.Context) {
	if rt.hooks != nil {
		rt.hooks.Close()
	}
	if rt.graph != nil {
		if err := rt.graph.Close(ctx); err != nil {
			rt.logger.Warn("closing graph client failed", "error", err)
		}
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// buildRuntime loads configuration, connects to the graph and wires the
// service layer. The reserve account is ensured up front so bonus grants
// always have a funding counterparty.
func buildRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(cfg.Logging)

	if cfg.Graph.URI == "" {
		return nil, graph.ErrMissingURI
	}
	graphClient, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create graph client: %w", err)
	}

	repo := repository.New(graphClient)

	if err := repo.EnsureConstraints(ctx); err != nil {
		_ = graphClient.Close(ctx)
		return nil, fmt.Errorf("failed to ensure graph constraints: %w", err)
	}

	reserve, err := repo.EnsureReserve(ctx, uuid.NewString(), cfg.Ledger.ReserveAccountName, nowUTC())
	if err != nil {
		_ = graphClient.Close(ctx)
		return nil, fmt.Errorf("failed to ensure reserve account: %w", err)
	}

	hooks := ledger.NewHookRunner(logger, cfg.Ledger.RiskWorkers)
	risk := ledger.NewRiskService(repo, logger)
	transfers := ledger.NewTransferService(repo, risk, hooks, logger)
	bonus := ledger.NewBonusService(repo, reserve.ID, ledger.BonusPolicy{
		ClaimAmount:  cfg.Ledger.ClaimBonusAmount,
		SignupAmount: cfg.Ledger.SignupBonusAmount,
		Cooldown:     cfg.Ledger.BonusCooldown,
	}, logger)
	users := ledger.NewUserService(repo, bonus, nil, logger)

	return &runtime{
		cfg:       cfg,
		logger:    logger,
		graph:     graphClient,
		repo:      repo,
		users:     users,
		transfers: transfers,
		bonus:     bonus,
		risk:      risk,
		hooks:     hooks,
	}, nil
}
