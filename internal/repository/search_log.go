package repository

import (
	"context"

	"github.com/cloo-solutions/lexidx/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SearchLogRepository stores per-query analytics rows for evaluation and
// suggestion tuning.
type SearchLogRepository struct {
	pool *pgxpool.Pool
}

func NewSearchLogRepository(pool *pgxpool.Pool) *SearchLogRepository {
	return &SearchLogRepository{pool: pool}
}

func (r *SearchLogRepository) Create(ctx context.Context, entry *domain.SearchLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO search_logs (id, query, query_type, result_count, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.Query, entry.QueryType, entry.ResultCount, entry.ElapsedMS, entry.CreatedAt,
	)
	return err
}

// RecentQueries returns the most recent distinct queries, newest first.
func (r *SearchLogRepository) RecentQueries(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.pool.Query(ctx,
		`SELECT query FROM (
			 SELECT DISTINCT ON (query) query, created_at
			 FROM search_logs
			 ORDER BY query, created_at DESC
		 ) q
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var queries []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}
