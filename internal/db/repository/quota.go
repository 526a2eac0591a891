package repository

import (
	"context"

	"github.com/ad-tracker/youtube-announcer-go/internal/db"
	"github.com/ad-tracker/youtube-announcer-go/internal/db/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// QuotaRepository defines operations for tracking YouTube API quota usage.
type QuotaRepository interface {
	// GetTodaysQuota retrieves today's quota usage. Limit and remaining
	// are left for the caller to fill in.
	GetTodaysQuota(ctx context.Context) (*models.QuotaInfo, error)

	// IncrementQuota adds cost to today's quota usage.
	IncrementQuota(ctx context.Context, quotaCost int, operationType string) error
}

type quotaRepository struct {
	pool *pgxpool.Pool
}

// NewQuotaRepository creates a new QuotaRepository
func NewQuotaRepository(pool *pgxpool.Pool) QuotaRepository {
	return &quotaRepository{pool: pool}
}

func (r *quotaRepository) GetTodaysQuota(ctx context.Context) (*models.QuotaInfo, error) {
	query := `
		SELECT COALESCE(SUM(quota_used), 0), COALESCE(SUM(operations_count), 0)
		FROM api_quota_usage
		WHERE date = CURRENT_DATE
	`

	info := &models.QuotaInfo{}
	if err := r.pool.QueryRow(ctx, query).Scan(&info.QuotaUsed, &info.OperationsCount); err != nil {
		return nil, db.WrapError(err, "get todays quota")
	}

	return info, nil
}

func (r *quotaRepository) IncrementQuota(ctx context.Context, quotaCost int, operationType string) error {
	if operationType == "" {
		operationType = "other"
	}

	query := `SELECT increment_quota_usage($1, $2)`
	if _, err := r.pool.Exec(ctx, query, quotaCost, operationType); err != nil {
		return db.WrapError(err, "increment quota")
	}

	return nil
}
