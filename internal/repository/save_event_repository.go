package repository

import (
	"context"
	"time"

	"github.com/straye-as/labelling-app/internal/domain"
	"gorm.io/gorm"
)

// SaveEventFilter narrows save event listings
type SaveEventFilter struct {
	RunID    string
	UserName string
	Since    *time.Time
}

// SaveEventRepository handles save audit trail data access
type SaveEventRepository struct {
	db *gorm.DB
}

// NewSaveEventRepository creates a new save event repository
func NewSaveEventRepository(db *gorm.DB) *SaveEventRepository {
	return &SaveEventRepository{db: db}
}

// Create inserts a new save event (append-only - no updates allowed)
func (r *SaveEventRepository) Create(ctx context.Context, event *domain.SaveEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListRecent returns the newest events first
func (r *SaveEventRepository) ListRecent(ctx context.Context, filter *SaveEventFilter, limit int) ([]domain.SaveEvent, error) {
	var events []domain.SaveEvent
	query := r.applyFilters(r.db.WithContext(ctx).Model(&domain.SaveEvent{}), filter)
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Order("saved_at DESC").Find(&events).Error
	return events, err
}

// ListByRun returns all events of a run, oldest first
func (r *SaveEventRepository) ListByRun(ctx context.Context, runID string) ([]domain.SaveEvent, error) {
	var events []domain.SaveEvent
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("saved_at ASC").
		Find(&events).Error
	return events, err
}

// CountByUser counts save events per user
func (r *SaveEventRepository) CountByUser(ctx context.Context, runID string) (map[string]int64, error) {
	type result struct {
		UserName string
		Count    int64
	}

	query := r.db.WithContext(ctx).Model(&domain.SaveEvent{}).
		Select("user_name, COUNT(*) as count")
	if runID != "" {
		query = query.Where("run_id = ?", runID)
	}

	var results []result
	if err := query.Group("user_name").Scan(&results).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(results))
	for _, r := range results {
		counts[r.UserName] = r.Count
	}
	return counts, nil
}

func (r *SaveEventRepository) applyFilters(query *gorm.DB, filter *SaveEventFilter) *gorm.DB {
	if filter == nil {
		return query
	}
	if filter.RunID != "" {
		query = query.Where("run_id = ?", filter.RunID)
	}
	if filter.UserName != "" {
		query = query.Where("user_name = ?", filter.UserName)
	}
	if filter.Since != nil {
		query = query.Where("saved_at >= ?", *filter.Since)
	}
	return query
}
