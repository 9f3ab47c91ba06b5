package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/vanshika/peerpay/internal/domain"
	"github.com/vanshika/peerpay/internal/ledger"
)

// Config drives the demo data seeder.
type Config struct {
	NumUsers     int
	NumTransfers int
	MinBalance   float64
	MaxBalance   float64
	MaxAmount    float64
	Workers      int
	Seed         int64
}

// DefaultConfig returns baseline settings for a local environment.
func DefaultConfig() Config {
	return Config{
		NumUsers:     25,
		NumTransfers: 200,
		MinBalance:   200,
		MaxBalance:   5000,
		MaxAmount:    750,
		Workers:      4,
		Seed:         42,
	}
}

// Summary reports what the seeder accomplished.
type Summary struct {
	UsersCreated       int
	TransfersCompleted int
	TransfersRejected  int
}

// Seeder populates a local environment with demo users and a randomized
// transfer history. Transfers go through the real transfer path, so the
// resulting graph obeys the same balance rules as production traffic.
type Seeder struct {
	cfg       Config
	users     *ledger.UserService
	transfers *ledger.TransferService
	logger    *slog.Logger
	rand      *rand.Rand
}

// New returns a configured Seeder instance.
func New(cfg Config, users *ledger.UserService, transfers *ledger.TransferService, logger *slog.Logger) *Seeder {
	defaults := DefaultConfig()
	if cfg.NumUsers <= 0 {
		cfg.NumUsers = defaults.NumUsers
	}
	if cfg.NumTransfers < 0 {
		cfg.NumTransfers = defaults.NumTransfers
	}
	if cfg.MinBalance <= 0 {
		cfg.MinBalance = defaults.MinBalance
	}
	if cfg.MaxBalance <= cfg.MinBalance {
		cfg.MaxBalance = cfg.MinBalance + defaults.MaxBalance
	}
	if cfg.MaxAmount <= 0 {
		cfg.MaxAmount = defaults.MaxAmount
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Seeder{
		cfg:       cfg,
		users:     users,
		transfers: transfers,
		logger:    logger,
		rand:      rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Run creates the demo users and replays the randomized transfer plan.
// It respects context cancellation between phases and per transfer.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	userIDs := make([]string, 0, s.cfg.NumUsers)
	for i := 0; i < s.cfg.NumUsers; i++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		balance := s.cfg.MinBalance + s.rand.Float64()*(s.cfg.MaxBalance-s.cfg.MinBalance)
		user, err := s.users.Register(ctx, s.randomFullName(), balance)
		if err != nil {
			return summary, fmt.Errorf("seeding user %d: %w", i+1, err)
		}
		userIDs = append(userIDs, user.ID)
		summary.UsersCreated++
	}

	if len(userIDs) < 2 || s.cfg.NumTransfers == 0 {
		return summary, nil
	}

	// The plan is built single-threaded so results are reproducible for
	// a given seed; only the execution fans out.
	plan := make([]ledger.TransferInput, s.cfg.NumTransfers)
	for i := range plan {
		senderIdx := s.rand.Intn(len(userIDs))
		receiverIdx := s.rand.Intn(len(userIDs))
		if senderIdx == receiverIdx {
			receiverIdx = (receiverIdx + 1) % len(userIDs)
		}
		plan[i] = ledger.TransferInput{
			SenderID:    userIDs[senderIdx],
			ReceiverID:  userIDs[receiverIdx],
			Amount:      1 + s.rand.Float64()*(s.cfg.MaxAmount-1),
			Category:    s.randomCategory(),
			Description: s.randomNote(),
		}
	}

	completed, rejected := s.executePlan(ctx, plan)
	summary.TransfersCompleted = completed
	summary.TransfersRejected = rejected

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *Seeder) executePlan(ctx context.Context, plan []ledger.TransferInput) (completed, rejected int) {
	jobs := make(chan ledger.TransferInput)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for input := range jobs {
				_, err := s.transfers.Transfer(ctx, input)
				mu.Lock()
				switch {
				case err == nil:
					completed++
				case errors.Is(err, domain.ErrInsufficientFunds):
					// Expected with a random plan; the sender ran dry.
					rejected++
				default:
					rejected++
					s.logger.Warn("seed transfer failed", "error", err, "senderId", input.SenderID)
				}
				mu.Unlock()
			}
		}()
	}

	for _, input := range plan {
		if ctx.Err() != nil {
			break
		}
		jobs <- input
	}
	close(jobs)
	wg.Wait()
	return completed, rejected
}

func (s *Seeder) randomFullName() string {
	return fmt.Sprintf("%s %s", seedFirstNames[s.rand.Intn(len(seedFirstNames))],
		seedLastNames[s.rand.Intn(len(seedLastNames))])
}

func (s *Seeder) randomCategory() string {
	return seedCategories[s.rand.Intn(len(seedCategories))]
}

func (s *Seeder) randomNote() string {
	return seedNotes[s.rand.Intn(len(seedNotes))]
}

var (
	seedFirstNames = []string{"Jane", "John", "Alex", "Priya", "Liu", "Maria", "Omar", "Sofia", "Noah", "Emma", "Lucas", "Mia", "Ava", "Ethan", "Zara"}
	seedLastNames  = []string{"Doe", "Smith", "Chen", "Patel", "Garcia", "Khan", "Kim", "Ivanov", "Nguyen", "Silva", "Brown", "Lee"}
	seedCategories = []string{"Food", "Rent", "Travel", "Entertainment", "Utilities", "Other"}
	seedNotes      = []string{"Dinner split", "Rent share", "Concert tickets", "Road trip gas", "Thanks for lunch", "Utility bill"}
)
