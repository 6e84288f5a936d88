package service

import (
	"context"
	"strings"
	"time"

	"github.com/UniqBrio/UniqBrio-sub017/internal/ingest/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ingest.service"),
		genID: p.GenID,
	}
}

func (s *Service) IngestBatch(ctx context.Context, kind string, rows []domain.ExternalRow) (domain.BatchResult, error) {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return domain.BatchResult{}, domain.ErrInvalidKind
	}

	result := domain.BatchResult{
		Results: make([]domain.RowResult, 0, len(rows)),
		Total:   len(rows),
	}

	for i, row := range rows {
		result.Results = append(result.Results, s.ingestRow(ctx, kind, i, row))
	}

	for _, r := range result.Results {
		switch r.Status {
		case domain.RowStatusInserted:
			result.InsertedCount++
		case domain.RowStatusDuplicate:
			result.DuplicateCount++
		case domain.RowStatusInvalid:
			result.InvalidCount++
		case domain.RowStatusError:
			result.ErrorCount++
		}
	}

	s.log.Info("batch ingested",
		zap.String("kind", kind),
		zap.Int("total", result.Total),
		zap.Int("inserted", result.InsertedCount),
		zap.Int("duplicates", result.DuplicateCount),
		zap.Int("invalid", result.InvalidCount),
		zap.Int("errors", result.ErrorCount),
	)
	return result, nil
}

// ingestRow handles exactly one row so a storage failure is contained to
// that row's result.
func (s *Service) ingestRow(ctx context.Context, kind string, index int, row domain.ExternalRow) domain.RowResult {
	if reason := row.Validate(); reason != "" {
		return domain.RowResult{Index: index, Status: domain.RowStatusInvalid, Reason: reason}
	}

	stored := domain.LedgerRow{
		ID:          s.genID.Generate(),
		Kind:        kind,
		ContentHash: domain.Fingerprint(kind, row.Date, strings.TrimSpace(row.Category), row.Amount),
		Category:    strings.TrimSpace(row.Category),
		Amount:      row.Amount,
		RowDate:     row.Date.UTC().Truncate(24 * time.Hour),
		Note:        row.Note,
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"},
				{Name: "kind"},
				{Name: "content_hash"},
			},
			DoNothing: true,
		}).
		Create(&stored)
	if res.Error != nil {
		s.log.Warn("row insert failed",
			zap.String("kind", kind),
			zap.Int("index", index),
			zap.Error(res.Error),
		)
		return domain.RowResult{Index: index, Status: domain.RowStatusError, Reason: res.Error.Error()}
	}
	if res.RowsAffected == 0 {
		return domain.RowResult{Index: index, Status: domain.RowStatusDuplicate}
	}
	id := stored.ID
	return domain.RowResult{Index: index, Status: domain.RowStatusInserted, ID: &id}
}
