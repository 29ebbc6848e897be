package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"factcheck_gateway/internal/factcheck"
	"factcheck_gateway/internal/messaging"
	"factcheck_gateway/internal/model"
	"factcheck_gateway/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const CacheTTL = 86400 * time.Second

type VerificationService interface {
	Verify(ctx context.Context, claimText, languageCode, userID string) (*model.VerificationResult, error)
	GetFactCheck(ctx context.Context, id string) (*model.VerificationRecord, error)
	SearchFactChecks(ctx context.Context, query string, limit int) ([]*model.VerificationRecord, error)
}

type VerificationOptions struct {
	// DedupeInFlight объединяет одновременные промахи по одному отпечатку в один запрос
	DedupeInFlight bool
	Now            func() time.Time
}

type verificationService struct {
	searcher  factcheck.Searcher
	repo      repository.VerificationRepository
	cache     repository.VerificationCache
	publisher messaging.Publisher
	logger    *zap.Logger

	dedupe bool
	group  singleflight.Group
	now    func() time.Time
}

// NewVerificationService собирает верификатор. publisher может быть nil.
func NewVerificationService(
	searcher factcheck.Searcher,
	repo repository.VerificationRepository,
	cache repository.VerificationCache,
	publisher messaging.Publisher,
	logger *zap.Logger,
	opts VerificationOptions,
) VerificationService {
	now := opts.Now
	if now == nil {
		now = func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		}
	}
	return &verificationService{
		searcher:  searcher,
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		dedupe:    opts.DedupeInFlight,
		now:       now,
	}
}

func (s *verificationService) Verify(ctx context.Context, claimText, languageCode, userID string) (*model.VerificationResult, error) {
	if strings.TrimSpace(claimText) == "" {
		return nil, fmt.Errorf("claim text cannot be empty: %w", model.ErrInvalidInput)
	}
	if languageCode == "" {
		languageCode = factcheck.DefaultLanguage
	}

	fingerprint := NormalizeClaim(claimText)
	key := FactCheckKey(fingerprint)

	if cached, ok := s.cache.Get(ctx, key); ok {
		s.logger.Debug("fact check served from cache", zap.String("key", key), zap.String("fact_id", cached.FactID))
		return cached, nil
	}

	if !s.dedupe {
		return s.verifyMiss(ctx, fingerprint, key, languageCode, userID)
	}

	// общий запрос не зависит от отмены первого вызвавшего, каждый ждёт по своему ctx
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key+"|"+languageCode, func() (any, error) {
		return s.verifyMiss(flightCtx, fingerprint, key, languageCode, userID)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to verify claim: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug("joined in-flight verification", zap.String("key", key))
		}
		return res.Val.(*model.VerificationResult), nil
	}
}

// verifyMiss выполняет запрос к источнику, сохраняет запись и наполняет кэш.
func (s *verificationService) verifyMiss(ctx context.Context, fingerprint, key, languageCode, userID string) (*model.VerificationResult, error) {
	s.logger.Info("verifying claim",
		zap.String("claim", factcheck.Truncate(fingerprint, 50)),
		zap.String("language", languageCode),
		zap.String("user_id", userID))

	found, err := s.searcher.Search(ctx, factcheck.Truncate(fingerprint, factcheck.MaxQueryLength), languageCode)
	if err != nil {
		s.logger.Error("failed to search fact checks", zap.Error(err), zap.String("key", key))
		return nil, fmt.Errorf("failed to verify claim: %w", err)
	}

	record := &model.VerificationRecord{
		ID:            uuid.New().String(),
		ClaimText:     fingerprint,
		Verdict:       found.Verdict(),
		Explanation:   found.Explanation(),
		SourceURL:     found.SourceURL(),
		EvidenceLinks: found.EvidenceLinks(),
		Language:      languageCode,
		UpstreamData:  found.Raw,
		VerifiedAt:    s.now(),
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save verification: %w", err)
	}

	result := projectResult(record, found.Found)

	if err := s.cache.Set(ctx, key, result, CacheTTL); err != nil {
		s.logger.Warn("failed to cache verification", zap.Error(err), zap.String("key", key))
	}

	s.publish(ctx, record, found.Found)

	s.logger.Info("claim verified",
		zap.String("fact_id", record.ID),
		zap.String("verdict", string(record.Verdict)),
		zap.Bool("found", found.Found))
	return result, nil
}

func (s *verificationService) publish(ctx context.Context, record *model.VerificationRecord, found bool) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishFactCheckVerified(ctx, &messaging.VerifiedEvent{
		FactID:     record.ID,
		Verdict:    record.Verdict,
		Language:   record.Language,
		Found:      found,
		VerifiedAt: record.VerifiedAt,
	})
	if err != nil {
		s.logger.Warn("failed to publish verification event", zap.Error(err), zap.String("fact_id", record.ID))
	}
}

func projectResult(record *model.VerificationRecord, found bool) *model.VerificationResult {
	evidence := record.EvidenceLinks
	if evidence == nil {
		evidence = []string{}
	}
	return &model.VerificationResult{
		FactID:        record.ID,
		ClaimText:     record.ClaimText,
		Verdict:       record.Verdict,
		Explanation:   record.Explanation,
		SourceURL:     record.SourceURL,
		EvidenceLinks: evidence,
		VerifiedAt:    record.VerifiedAt,
		Found:         found,
	}
}

func (s *verificationService) GetFactCheck(ctx context.Context, id string) (*model.VerificationRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("fact check id cannot be empty: %w", model.ErrInvalidInput)
	}
	// идентификаторы записей всегда UUID, иное не может быть найдено
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("fact check %s: %w", id, model.ErrNotFound)
	}

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get fact check from repository", zap.Error(err), zap.String("id", id))
		return nil, fmt.Errorf("failed to get fact check: %w", err)
	}

	if record == nil {
		return nil, fmt.Errorf("fact check %s: %w", id, model.ErrNotFound)
	}

	return record, nil
}

func (s *verificationService) SearchFactChecks(ctx context.Context, query string, limit int) ([]*model.VerificationRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query cannot be empty: %w", model.ErrInvalidInput)
	}
	if limit < 0 {
		return nil, fmt.Errorf("limit must be non-negative, got %d: %w", limit, model.ErrInvalidInput)
	}

	return s.repo.Search(ctx, query, limit)
}
