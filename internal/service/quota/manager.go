package quota

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-announcer-go/internal/db/models"
	"github.com/ad-tracker/youtube-announcer-go/internal/db/repository"
)

// DefaultDailyLimit is the YouTube Data API v3 default daily quota.
const DefaultDailyLimit = 10000

// Manager handles YouTube API quota management
type Manager struct {
	repo             repository.QuotaRepository
	logger           *zap.Logger
	dailyLimit       int
	thresholdPercent int // Stop spending when this % of quota is used
}

// NewManager creates a new quota manager
func NewManager(repo repository.QuotaRepository, dailyLimit int, thresholdPercent int, logger *zap.Logger) *Manager {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	if thresholdPercent <= 0 || thresholdPercent > 100 {
		thresholdPercent = 90
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		repo:             repo,
		logger:           logger,
		dailyLimit:       dailyLimit,
		thresholdPercent: thresholdPercent,
	}
}

// CheckQuotaAvailable reports whether requiredQuota units can be spent
// without crossing the threshold.
func (m *Manager) CheckQuotaAvailable(ctx context.Context, requiredQuota int) (bool, *models.QuotaInfo, error) {
	info, err := m.GetQuotaInfo(ctx)
	if err != nil {
		return false, nil, err
	}

	threshold := m.threshold()

	if info.QuotaUsed >= threshold {
		m.logger.Warn("quota threshold reached",
			zap.Int("quota_used", info.QuotaUsed),
			zap.Int("daily_limit", m.dailyLimit),
			zap.Float64("percent", m.percent(info.QuotaUsed)),
		)
		return false, info, nil
	}

	if info.QuotaUsed+requiredQuota > threshold {
		m.logger.Warn("not enough quota for operation",
			zap.Int("required", requiredQuota),
			zap.Int("remaining", threshold-info.QuotaUsed),
			zap.Int("threshold", threshold),
		)
		return false, info, nil
	}

	return true, info, nil
}

// RecordQuotaUsage records API quota usage
func (m *Manager) RecordQuotaUsage(ctx context.Context, quotaCost int, operationType string) error {
	if quotaCost <= 0 {
		return nil
	}
	if err := m.repo.IncrementQuota(ctx, quotaCost, operationType); err != nil {
		return fmt.Errorf("failed to record quota usage: %w", err)
	}

	m.logger.Debug("quota used",
		zap.Int("cost", quotaCost),
		zap.String("operation", operationType),
	)

	return nil
}

// GetQuotaInfo returns today's usage with limit and remaining filled in.
func (m *Manager) GetQuotaInfo(ctx context.Context) (*models.QuotaInfo, error) {
	info, err := m.repo.GetTodaysQuota(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get quota info: %w", err)
	}

	info.QuotaLimit = m.dailyLimit
	info.QuotaRemaining = max(m.dailyLimit-info.QuotaUsed, 0)

	return info, nil
}

// GetQuotaUsagePercentage returns the percentage of daily quota used
func (m *Manager) GetQuotaUsagePercentage(ctx context.Context) (float64, error) {
	info, err := m.GetQuotaInfo(ctx)
	if err != nil {
		return 0, err
	}

	return m.percent(info.QuotaUsed), nil
}

// IsQuotaExhausted checks if quota threshold has been reached
func (m *Manager) IsQuotaExhausted(ctx context.Context) (bool, error) {
	info, err := m.GetQuotaInfo(ctx)
	if err != nil {
		return false, err
	}

	return info.QuotaUsed >= m.threshold(), nil
}

// GetRemainingQuota returns how much quota is remaining before threshold
func (m *Manager) GetRemainingQuota(ctx context.Context) (int, error) {
	info, err := m.GetQuotaInfo(ctx)
	if err != nil {
		return 0, err
	}

	return max(m.threshold()-info.QuotaUsed, 0), nil
}

func (m *Manager) threshold() int {
	return (m.dailyLimit * m.thresholdPercent) / 100
}

func (m *Manager) percent(used int) float64 {
	return float64(used) / float64(m.dailyLimit) * 100
}
