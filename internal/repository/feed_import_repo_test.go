package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace_v1_202610/internal/model"
)

func TestFeedImportRepo_ListAndDeleteBefore(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewFeedImportRepository(db)
	ctx := context.Background()

	shopID := int64(7)
	now := time.Now()
	for _, age := range []time.Duration{0, time.Hour, 40 * 24 * time.Hour, 90 * 24 * time.Hour} {
		rec := &model.FeedImport{
			BatchID: uuid.NewString(),
			ShopID:  &shopID,
			UserID:  1,
			Source:  model.FeedSourceURL,
			Status:  model.FeedImportSuccess,
		}
		rec.CreatedAt = now.Add(-age)
		require.NoError(t, repo.Create(ctx, rec))
	}

	records, err := repo.ListByShop(ctx, shopID, 0)
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.True(t, !records[0].CreatedAt.Before(records[1].CreatedAt), "按时间倒序")

	deleted, err := repo.DeleteBefore(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	records, err = repo.ListByShop(ctx, shopID, 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
