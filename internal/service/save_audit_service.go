package service

import (
	"context"
	"time"

	"github.com/straye-as/labelling-app/internal/domain"
	"github.com/straye-as/labelling-app/internal/mapper"
	"github.com/straye-as/labelling-app/internal/repository"
	"go.uber.org/zap"
)

// SaveAuditService records every results save when the audit database is
// enabled. A nil repository turns it into a no-op.
type SaveAuditService struct {
	repo   *repository.SaveEventRepository
	logger *zap.Logger
}

// NewSaveAuditService creates a new save audit service
func NewSaveAuditService(repo *repository.SaveEventRepository, logger *zap.Logger) *SaveAuditService {
	return &SaveAuditService{repo: repo, logger: logger}
}

// Enabled reports whether save events are stored
func (s *SaveAuditService) Enabled() bool {
	return s != nil && s.repo != nil
}

// Record stores one save event. Errors are logged; saving results never
// fails because of the audit trail.
func (s *SaveAuditService) Record(ctx context.Context, saved *SaveResult, rowCount, labelledCount int) {
	if !s.Enabled() || saved == nil {
		return
	}

	savedAt, ok := saved.File.SavedAt()
	if !ok {
		savedAt = time.Now().UTC()
	}

	event := &domain.SaveEvent{
		RunID:         saved.File.RunID,
		UserName:      saved.File.UserName,
		BlobName:      saved.File.Name,
		RowCount:      rowCount,
		LabelledCount: labelledCount,
		PrunedCount:   saved.Pruned,
		SavedAt:       savedAt,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		s.logger.Error("Failed to record save event",
			zap.String("run_id", event.RunID),
			zap.String("user_name", event.UserName),
			zap.Error(err),
		)
	}
}

// ListRecent returns the newest save events
func (s *SaveAuditService) ListRecent(ctx context.Context, filter *repository.SaveEventFilter, limit int) ([]domain.SaveEventDTO, error) {
	if !s.Enabled() {
		return []domain.SaveEventDTO{}, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	events, err := s.repo.ListRecent(ctx, filter, limit)
	if err != nil {
		return nil, err
	}

	dtos := make([]domain.SaveEventDTO, len(events))
	for i, e := range events {
		dtos[i] = mapper.ToSaveEventDTO(e)
	}
	return dtos, nil
}
