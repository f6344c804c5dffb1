package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"MaturityScanner/internal/domain"
	"MaturityScanner/internal/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository persists scoring artifacts and serves the ingested chunk
// pool from Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var (
	_ ports.ChunkRepository    = (*PostgresRepository)(nil)
	_ ports.ArtifactRepository = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// LoadChunks returns the ingested chunks for one org/year/theme. Rows are
// ordered by (document_id, chunk_offset) so every load yields the same slice.
func (r *PostgresRepository) LoadChunks(ctx context.Context, org string, year int, theme string) ([]domain.RankCandidate, error) {
	if r.db == nil {
		return nil, nil
	}

	query, args, err := psql.
		Select("document_id", "chunk_text", "lexical_score", "page", "chunk_offset", "published_at").
		From("report_chunks").
		Where(sq.Eq{"org": org, "year": year, "theme": theme}).
		OrderBy("document_id", "chunk_offset").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build chunk query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.RankCandidate
	for rows.Next() {
		var (
			chunk       domain.RankCandidate
			publishedAt sql.NullString
		)
		if err := rows.Scan(&chunk.DocumentID, &chunk.Text, &chunk.Lexical, &chunk.Page, &chunk.Offset, &publishedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if publishedAt.Valid {
			chunk.Metadata = map[string]string{"published_at": publishedAt.String}
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return chunks, nil
}

// AlreadyScored returns the subset of themes that already have a stored stage
// score for the org/year.
func (r *PostgresRepository) AlreadyScored(ctx context.Context, org string, year int, themes []string) (map[string]bool, error) {
	if r.db == nil || len(themes) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := psql.
		Select("theme").
		From("stage_scores").
		Where(sq.Eq{"org": org, "year": year}).
		Where("theme = ANY(?)", pq.StringArray(themes)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build scored query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scored: %w", err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var theme string
		if err := rows.Scan(&theme); err != nil {
			return nil, fmt.Errorf("scan theme: %w", err)
		}
		result[theme] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// SaveStageScore upserts the theme-level verdict for the org/year.
func (r *PostgresRepository) SaveStageScore(ctx context.Context, org string, year int, score domain.StageScore) error {
	if r.db == nil {
		return nil
	}

	query, args, err := psql.
		Insert("stage_scores").
		Columns("org", "year", "theme", "stage", "confidence", "evidence_ids", "snapshot_id", "audit").
		Values(org, year, score.Theme, score.Stage, score.Confidence, pq.StringArray(score.EvidenceIDs), score.SnapshotID, score.Audit).
		Suffix(`ON CONFLICT (org, year, theme) DO UPDATE
			SET stage = EXCLUDED.stage,
			    confidence = EXCLUDED.confidence,
			    evidence_ids = EXCLUDED.evidence_ids,
			    snapshot_id = EXCLUDED.snapshot_id,
			    audit = EXCLUDED.audit,
			    updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build score upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert stage score: %w", err)
	}
	return nil
}

// SaveParityReport upserts the retrieval parity audit record for the org/year.
func (r *PostgresRepository) SaveParityReport(ctx context.Context, org string, year int, report domain.ParityReport) error {
	if r.db == nil {
		return nil
	}

	query, args, err := psql.
		Insert("parity_reports").
		Columns("org", "year", "query", "verdict", "evidence_ids", "top_k_ids", "missing_ids").
		Values(org, year, report.Query, string(report.Verdict),
			pq.StringArray(report.EvidenceIDs), pq.StringArray(report.TopKIDs), pq.StringArray(report.MissingIDs)).
		Suffix(`ON CONFLICT (org, year, query) DO UPDATE
			SET verdict = EXCLUDED.verdict,
			    evidence_ids = EXCLUDED.evidence_ids,
			    top_k_ids = EXCLUDED.top_k_ids,
			    missing_ids = EXCLUDED.missing_ids,
			    updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build parity upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert parity report: %w", err)
	}
	return nil
}
