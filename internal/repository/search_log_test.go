//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cloo-solutions/lexidx/internal/domain"
	"github.com/cloo-solutions/lexidx/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchLogRepository_RecentQueries(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSearchLogRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond).Add(-time.Hour)
	log := func(query string, offset time.Duration) {
		require.NoError(t, repo.Create(ctx, &domain.SearchLog{
			ID:          uuid.NewString(),
			Query:       query,
			QueryType:   "semantic:general",
			ResultCount: 3,
			ElapsedMS:   12,
			CreatedAt:   base.Add(offset),
		}))
	}

	log("termination notice period", 0)
	log("confidentiality obligations", time.Minute)
	log("termination notice period", 2*time.Minute)
	log("payment terms", 3*time.Minute)

	t.Run("deduplicates and orders newest first", func(t *testing.T) {
		queries, err := repo.RecentQueries(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"payment terms",
			"termination notice period",
			"confidentiality obligations",
		}, queries)
	})

	t.Run("limit caps the result", func(t *testing.T) {
		queries, err := repo.RecentQueries(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"payment terms", "termination notice period"}, queries)
	})

	t.Run("large history stays distinct", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			log(fmt.Sprintf("filler query %d", i), 10*time.Minute+time.Duration(i)*time.Second)
		}

		queries, err := repo.RecentQueries(ctx, 100)
		require.NoError(t, err)
		assert.Len(t, queries, 8)
	})
}
