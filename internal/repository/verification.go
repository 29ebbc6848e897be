package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"factcheck_gateway/internal/model"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
)

// VerificationRepository хранит записи проверок. Записи только создаются и читаются.
type VerificationRepository interface {
	Create(ctx context.Context, record *model.VerificationRecord) error
	GetByID(ctx context.Context, id string) (*model.VerificationRecord, error)
	Search(ctx context.Context, query string, limit int) ([]*model.VerificationRecord, error)
}

type verificationRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewVerificationRepository(db DBTX, logger *zap.Logger) VerificationRepository {
	return &verificationRepository{
		db:     db,
		logger: logger,
	}
}

const recordColumns = `id, claim_text, verdict, explanation, COALESCE(source_url, ''), evidence_links, language, upstream_data, verified_at`

func (r *verificationRepository) Create(ctx context.Context, record *model.VerificationRecord) error {
	query := `
		INSERT INTO fact_checks (id, claim_text, verdict, explanation, source_url, evidence_links, language, upstream_data, verified_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)
	`

	evidence := record.EvidenceLinks
	if evidence == nil {
		evidence = []string{}
	}

	var upstream any
	if len(record.UpstreamData) > 0 {
		upstream = record.UpstreamData
	}

	_, err := r.db.Exec(ctx, query,
		record.ID,
		record.ClaimText,
		string(record.Verdict),
		record.Explanation,
		record.SourceURL,
		evidence,
		record.Language,
		upstream,
		record.VerifiedAt,
	)
	if err != nil {
		r.logger.Error("failed to create fact check", zap.Error(err), zap.String("id", record.ID))
		return fmt.Errorf("failed to create fact check: %w", err)
	}

	r.logger.Info("fact check record created", zap.String("id", record.ID), zap.String("verdict", string(record.Verdict)))
	return nil
}

func (r *verificationRepository) GetByID(ctx context.Context, id string) (*model.VerificationRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM fact_checks WHERE id = $1`

	record, err := scanRecord(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("failed to get fact check", zap.Error(err), zap.String("id", id))
		return nil, fmt.Errorf("failed to get fact check: %w", err)
	}

	return record, nil
}

func (r *verificationRepository) Search(ctx context.Context, query string, limit int) ([]*model.VerificationRecord, error) {
	sqlText, args, err := buildSearchQuery(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build search query: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlText, args...)
	if err != nil {
		r.logger.Error("failed to search fact checks", zap.Error(err))
		return nil, fmt.Errorf("failed to search fact checks: %w", err)
	}
	defer rows.Close()

	records := make([]*model.VerificationRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			r.logger.Error("failed to scan fact check", zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fact checks: %w", err)
	}

	return records, nil
}

// buildSearchQuery строит полнотекстовый поиск по claim_text с ранжированием
func buildSearchQuery(query string, limit int) (string, []any, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	return psql.
		Select(recordColumns).
		From("fact_checks").
		Where("to_tsvector('simple', claim_text) @@ plainto_tsquery('simple', ?)", query).
		OrderByClause("ts_rank(to_tsvector('simple', claim_text), plainto_tsquery('simple', ?)) DESC", query).
		OrderBy("verified_at DESC").
		Limit(uint64(limit)).
		ToSql()
}

func scanRecord(row pgx.Row) (*model.VerificationRecord, error) {
	var record model.VerificationRecord
	var verdict string
	var upstream []byte

	err := row.Scan(
		&record.ID,
		&record.ClaimText,
		&verdict,
		&record.Explanation,
		&record.SourceURL,
		&record.EvidenceLinks,
		&record.Language,
		&upstream,
		&record.VerifiedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Verdict = model.Verdict(verdict)
	if record.EvidenceLinks == nil {
		record.EvidenceLinks = []string{}
	}
	if len(upstream) > 0 {
		record.UpstreamData = json.RawMessage(upstream)
	}
	return &record, nil
}
