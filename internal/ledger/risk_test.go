package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanshika/peerpay/internal/domain"
)

func sentItem(amount float64, date time.Time) domain.FeedItem {
	return domain.FeedItem{
		Role:        domain.RoleSent,
		Transaction: domain.Transaction{Amount: amount, Date: date},
	}
}

func receivedItem(amount float64, date time.Time) domain.FeedItem {
	return domain.FeedItem{
		Role:        domain.RoleReceived,
		Transaction: domain.Transaction{Amount: amount, Date: date},
	}
}

func TestClassifyHistory(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-48 * time.Hour)

	t.Run("no activity is low", func(t *testing.T) {
		assert.Equal(t, domain.RiskLow, ClassifyHistory(nil, now))
	})

	t.Run("moderate volume with one large transfer is medium", func(t *testing.T) {
		// 9 sent transfers totaling 25000, one above the large floor:
		// volume +1, count +1, large +1.
		items := []domain.FeedItem{sentItem(11000, recent)}
		for i := 0; i < 8; i++ {
			items = append(items, sentItem(1750, recent))
		}
		assert.Equal(t, domain.RiskMedium, ClassifyHistory(items, now))
	})

	t.Run("heavy volume and count is high", func(t *testing.T) {
		var items []domain.FeedItem
		for i := 0; i < 16; i++ {
			items = append(items, sentItem(4000, recent))
		}
		assert.Equal(t, domain.RiskHigh, ClassifyHistory(items, now))
	})

	t.Run("transfers outside the window are ignored", func(t *testing.T) {
		old := now.Add(-31 * 24 * time.Hour)
		var items []domain.FeedItem
		for i := 0; i < 16; i++ {
			items = append(items, sentItem(4000, old))
		}
		assert.Equal(t, domain.RiskLow, ClassifyHistory(items, now))
	})

	t.Run("received transfers never contribute", func(t *testing.T) {
		var items []domain.FeedItem
		for i := 0; i < 16; i++ {
			items = append(items, receivedItem(12000, recent))
		}
		assert.Equal(t, domain.RiskLow, ClassifyHistory(items, now))
	})

	t.Run("small recent activity is low", func(t *testing.T) {
		items := []domain.FeedItem{sentItem(50, recent), sentItem(25, recent)}
		assert.Equal(t, domain.RiskLow, ClassifyHistory(items, now))
	})
}

func TestRiskService_CalculateFailsOpen(t *testing.T) {
	store := &fakeStore{
		historyFn: func(context.Context, string) ([]domain.FeedItem, error) {
			return nil, errors.New("graph unavailable")
		},
	}
	svc := NewRiskService(store, testLogger())

	assert.Equal(t, domain.RiskLow, svc.Calculate(context.Background(), "u1"))
}

func TestRiskService_RecomputeAndPersist(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour)

	var persisted domain.RiskLevel
	store := &fakeStore{
		historyFn: func(context.Context, string) ([]domain.FeedItem, error) {
			items := []domain.FeedItem{sentItem(11000, recent)}
			for i := 0; i < 8; i++ {
				items = append(items, sentItem(1750, recent))
			}
			return items, nil
		},
		updateRiskFn: func(_ context.Context, id string, score domain.RiskLevel) error {
			require.Equal(t, "u1", id)
			persisted = score
			return nil
		},
	}
	svc := NewRiskService(store, testLogger())
	svc.WithClock(func() time.Time { return now })

	level, err := svc.RecomputeAndPersist(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RiskMedium, level)
	assert.Equal(t, domain.RiskMedium, persisted)
}

func TestRiskService_RecomputePersistFailure(t *testing.T) {
	store := &fakeStore{
		updateRiskFn: func(context.Context, string, domain.RiskLevel) error {
			return errors.New("write failed")
		},
	}
	svc := NewRiskService(store, testLogger())

	_, err := svc.RecomputeAndPersist(context.Background(), "u1")
	assert.Error(t, err)
}
