package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/vanshika/peerpay/internal/domain"
)

// Risk scoring thresholds, applied to the trailing 30-day window of a
// user's sent transactions. The rules are additive; every applicable rule
// fires.
const (
	riskWindow = 30 * 24 * time.Hour

	riskVolumeHigh   = 50000.0
	riskVolumeMedium = 20000.0
	riskCountHigh    = 15
	riskCountMedium  = 8
	largeAmountFloor = 10000.0
	largeCountHigh   = 2
	highAverageFloor = 5000.0
	highRiskPoints   = 4
	mediumRiskPoints = 2
)

// RiskService derives the advisory risk classification from transaction
// history. It is deliberately fail-open: risk scoring must never block an
// otherwise successful transfer or profile read.
type RiskService struct {
	store  Store
	logger *slog.Logger
	nowFn  func() time.Time
}

// NewRiskService constructs a RiskService.
func NewRiskService(store Store, logger *slog.Logger) *RiskService {
	return &RiskService{
		store:  store,
		logger: logger,
		nowFn:  time.Now,
	}
}

// WithClock overrides the time provider (used in tests).
func (s *RiskService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// ClassifyHistory computes the risk classification for a feed. It is a
// pure function of its inputs: only sent transactions inside the 30-day
// window ending at now contribute, and a window with no qualifying
// transactions is always low.
func ClassifyHistory(items []domain.FeedItem, now time.Time) domain.RiskLevel {
	cutoff := now.Add(-riskWindow)

	var (
		totalAmount float64
		count       int
		largeCount  int
	)
	for _, item := range items {
		if item.Role != domain.RoleSent {
			continue
		}
		if item.Transaction.Date.Before(cutoff) {
			continue
		}
		count++
		totalAmount += item.Transaction.Amount
		if item.Transaction.Amount > largeAmountFloor {
			largeCount++
		}
	}

	if count == 0 {
		return domain.RiskLow
	}
	averageAmount := totalAmount / float64(count)

	points := 0
	if totalAmount > riskVolumeHigh {
		points += 2
	} else if totalAmount > riskVolumeMedium {
		points++
	}
	if count > riskCountHigh {
		points += 2
	} else if count > riskCountMedium {
		points++
	}
	if largeCount > largeCountHigh {
		points += 2
	} else if largeCount > 0 {
		points++
	}
	if averageAmount > highAverageFloor {
		points++
	}

	switch {
	case points >= highRiskPoints:
		return domain.RiskHigh
	case points >= mediumRiskPoints:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// Calculate fetches the user's history and classifies it. Any fetch
// failure defaults to low and is logged rather than propagated.
func (s *RiskService) Calculate(ctx context.Context, userID string) domain.RiskLevel {
	items, err := s.store.History(ctx, userID)
	if err != nil {
		s.logger.Warn("risk calculation defaulted to low", "userId", userID, "error", err)
		return domain.RiskLow
	}
	return ClassifyHistory(items, s.nowFn().UTC())
}

// RecomputeAndPersist recalculates the user's score and stores it. The
// persist step touches only the riskScore attribute.
func (s *RiskService) RecomputeAndPersist(ctx context.Context, userID string) (domain.RiskLevel, error) {
	level := s.Calculate(ctx, userID)
	if err := s.store.UpdateRiskScore(ctx, userID, level); err != nil {
		return level, err
	}
	return level, nil
}
