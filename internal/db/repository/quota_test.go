package repository

import (
	"context"
	"testing"

	"github.com/ad-tracker/youtube-announcer-go/internal/db/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaRepository(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	repo := NewQuotaRepository(td.Pool)
	ctx := context.Background()

	t.Run("empty day", func(t *testing.T) {
		td.TruncateTables(t)

		info, err := repo.GetTodaysQuota(ctx)
		require.NoError(t, err)
		assert.Zero(t, info.QuotaUsed)
		assert.Zero(t, info.OperationsCount)
	})

	t.Run("increments accumulate", func(t *testing.T) {
		td.TruncateTables(t)

		require.NoError(t, repo.IncrementQuota(ctx, 1, "channels_list"))
		require.NoError(t, repo.IncrementQuota(ctx, 100, "search_list"))
		require.NoError(t, repo.IncrementQuota(ctx, 1, ""))

		info, err := repo.GetTodaysQuota(ctx)
		require.NoError(t, err)
		assert.Equal(t, 102, info.QuotaUsed)
		assert.Equal(t, 3, info.OperationsCount)
	})
}
