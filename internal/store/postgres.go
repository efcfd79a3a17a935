package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/vox/backend/internal/contracts"
)

// Repository implements contracts.RecordStore on PostgreSQL.
// Row parsing is isolated here so the rest of the pipeline never
// touches column layout.
// ⭐ SSOT: 포스트 레코드 저장소는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new post record repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the tables if they do not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	ddl := `
		CREATE SCHEMA IF NOT EXISTS vox;

		CREATE TABLE IF NOT EXISTS vox.posts (
			post_id              TEXT PRIMARY KEY,
			persona_id           TEXT NOT NULL,
			topic_id             TEXT NOT NULL,
			assigned_stock_code  TEXT,
			assigned_stock_name  TEXT,
			state                TEXT NOT NULL,
			content_title        TEXT NOT NULL DEFAULT '',
			content_body         TEXT NOT NULL DEFAULT '',
			published_at         TIMESTAMPTZ,
			platform_post_id     TEXT NOT NULL DEFAULT '',
			retry_count          INT NOT NULL DEFAULT 0,
			last_error           TEXT NOT NULL DEFAULT '',
			collection_status_1h TEXT NOT NULL DEFAULT 'pending',
			collection_status_1d TEXT NOT NULL DEFAULT 'pending',
			collection_status_7d TEXT NOT NULL DEFAULT 'pending',
			collected_at_1h      TIMESTAMPTZ,
			collected_at_1d      TIMESTAMPTZ,
			collected_at_7d      TIMESTAMPTZ,
			created_at           TIMESTAMPTZ NOT NULL,
			updated_at           TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_posts_state ON vox.posts (state);
		CREATE INDEX IF NOT EXISTS idx_posts_topic ON vox.posts (topic_id);

		CREATE TABLE IF NOT EXISTS vox.engagement (
			post_id      TEXT NOT NULL,
			horizon      TEXT NOT NULL,
			likes        BIGINT NOT NULL DEFAULT 0,
			comments     BIGINT NOT NULL DEFAULT 0,
			shares       BIGINT NOT NULL DEFAULT 0,
			reactions    JSONB NOT NULL DEFAULT '{}',
			collected_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (post_id, horizon)
		);
	`

	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const postColumns = `
	post_id, persona_id, topic_id,
	assigned_stock_code, assigned_stock_name,
	state, content_title, content_body,
	published_at, platform_post_id,
	retry_count, last_error,
	collection_status_1h, collection_status_1d, collection_status_7d,
	collected_at_1h, collected_at_1d, collected_at_7d,
	created_at, updated_at
`

// ListByState returns records in any of the given lifecycle states
func (r *Repository) ListByState(ctx context.Context, states ...contracts.LifecycleState) ([]*contracts.PostRecord, error) {
	if len(states) == 0 {
		return nil, nil
	}

	stateStrs := make([]string, 0, len(states))
	for _, s := range states {
		stateStrs = append(stateStrs, string(s))
	}

	query := `
		SELECT ` + postColumns + `
		FROM vox.posts
		WHERE state = ANY($1)
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, stateStrs)
	if err != nil {
		return nil, fmt.Errorf("list by state: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListByTopic returns all records for a topic (dedup checkpoint)
func (r *Repository) ListByTopic(ctx context.Context, topicID string) ([]*contracts.PostRecord, error) {
	query := `
		SELECT ` + postColumns + `
		FROM vox.posts
		WHERE topic_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, topicID)
	if err != nil {
		return nil, fmt.Errorf("list by topic: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Get returns a single record by post ID
func (r *Repository) Get(ctx context.Context, postID string) (*contracts.PostRecord, error) {
	query := `
		SELECT ` + postColumns + `
		FROM vox.posts
		WHERE post_id = $1
	`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, postID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("post %s not found", postID)
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return rec, nil
}

// Create inserts a new record. An existing post ID is never overwritten;
// the insert is skipped and ErrDuplicateSkip returned.
func (r *Repository) Create(ctx context.Context, rec *contracts.PostRecord) error {
	query := `
		INSERT INTO vox.posts (` + postColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (post_id) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query, recordArgs(rec)...)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return contracts.ErrDuplicateSkip
	}
	return nil
}

// Update writes a record's state and payload fields atomically
func (r *Repository) Update(ctx context.Context, rec *contracts.PostRecord) error {
	rec.UpdatedAt = time.Now()

	query := `
		UPDATE vox.posts SET
			assigned_stock_code = $2,
			assigned_stock_name = $3,
			state = $4,
			content_title = $5,
			content_body = $6,
			published_at = $7,
			platform_post_id = $8,
			retry_count = $9,
			last_error = $10,
			collection_status_1h = $11,
			collection_status_1d = $12,
			collection_status_7d = $13,
			collected_at_1h = $14,
			collected_at_1d = $15,
			collected_at_7d = $16,
			updated_at = $17
		WHERE post_id = $1
	`

	var stockCode, stockName *string
	if rec.AssignedStock != nil {
		stockCode = &rec.AssignedStock.Code
		stockName = &rec.AssignedStock.Name
	}

	tag, err := r.pool.Exec(ctx, query,
		rec.PostID,
		stockCode, stockName,
		string(rec.State),
		rec.ContentTitle, rec.ContentBody,
		rec.PublishedAt, rec.PlatformPostID,
		rec.RetryCount, rec.LastError,
		string(rec.CollectionStatusFor(contracts.Horizon1h)),
		string(rec.CollectionStatusFor(contracts.Horizon1d)),
		string(rec.CollectionStatusFor(contracts.Horizon7d)),
		rec.CollectedAt[contracts.Horizon1h],
		rec.CollectedAt[contracts.Horizon1d],
		rec.CollectedAt[contracts.Horizon7d],
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update post: %s not found", rec.PostID)
	}
	return nil
}

// AppendMetrics appends one engagement sample. The (post, horizon)
// primary key makes re-appends after a crash no-ops.
func (r *Repository) AppendMetrics(ctx context.Context, m *contracts.EngagementMetrics) error {
	query := `
		INSERT INTO vox.engagement (post_id, horizon, likes, comments, shares, reactions, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (post_id, horizon) DO NOTHING
	`

	reactions := m.Reactions
	if reactions == nil {
		reactions = map[string]int64{}
	}

	_, err := r.pool.Exec(ctx, query,
		m.PostID, string(m.Horizon),
		m.Likes, m.Comments, m.Shares,
		reactions, m.CollectedAt,
	)
	if err != nil {
		return fmt.Errorf("append metrics: %w", err)
	}
	return nil
}

// MetricsByPost returns all engagement samples for a post in horizon order
func (r *Repository) MetricsByPost(ctx context.Context, postID string) ([]*contracts.EngagementMetrics, error) {
	query := `
		SELECT post_id, horizon, likes, comments, shares, reactions, collected_at
		FROM vox.engagement
		WHERE post_id = $1
		ORDER BY collected_at ASC
	`

	rows, err := r.pool.Query(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("metrics by post: %w", err)
	}
	defer rows.Close()

	var metrics []*contracts.EngagementMetrics
	for rows.Next() {
		var m contracts.EngagementMetrics
		var horizon string
		if err := rows.Scan(&m.PostID, &horizon, &m.Likes, &m.Comments, &m.Shares, &m.Reactions, &m.CollectedAt); err != nil {
			return nil, fmt.Errorf("scan metrics: %w", err)
		}
		m.Horizon = contracts.Horizon(horizon)
		metrics = append(metrics, &m)
	}
	return metrics, rows.Err()
}

// CountByState returns record counts grouped by lifecycle state
func (r *Repository) CountByState(ctx context.Context) (map[contracts.LifecycleState]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT state, COUNT(*) FROM vox.posts GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("count by state: %w", err)
	}
	defer rows.Close()

	counts := make(map[contracts.LifecycleState]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[contracts.LifecycleState(state)] = count
	}
	return counts, rows.Err()
}

// PurgeTerminal deletes done and error records whose last update is
// older than the retention window. Engagement rows cascade via post ID.
func (r *Repository) PurgeTerminal(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM vox.engagement
		WHERE post_id IN (
			SELECT post_id FROM vox.posts
			WHERE state IN ('done', 'error') AND updated_at < $1
		)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge engagement: %w", err)
	}
	purgedMetrics := tag.RowsAffected()

	tag, err = r.pool.Exec(ctx, `
		DELETE FROM vox.posts
		WHERE state IN ('done', 'error') AND updated_at < $1`, cutoff)
	if err != nil {
		return purgedMetrics, fmt.Errorf("purge posts: %w", err)
	}

	return tag.RowsAffected(), nil
}
