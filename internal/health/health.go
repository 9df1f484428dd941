// Package health checks the dependencies of the server for readiness checks.
package health

import (
	"context"
	"time"

	"github.com/straye-as/labelling-app/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultTimeout = 5 * time.Second

// Status values
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDisabled  = "disabled"
)

// Status is the result of one dependency check
type Status struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
	// Pool statistics, database only
	MaxOpen    int   `json:"max_open_connections,omitempty"`
	Open       int   `json:"open_connections,omitempty"`
	InUse      int   `json:"in_use,omitempty"`
	Idle       int   `json:"idle,omitempty"`
	WaitCount  int64 `json:"wait_count,omitempty"`
	WaitTimeMs int64 `json:"wait_time_ms,omitempty"`
}

// Healthy reports whether the check passed or the dependency is disabled
func (s *Status) Healthy() bool {
	return s.Status != StatusUnhealthy
}

// Checker checks blob storage and the optional audit database
type Checker struct {
	store  storage.Storage
	db     *gorm.DB
	logger *zap.Logger
}

// NewChecker creates a checker. db may be nil.
func NewChecker(store storage.Storage, db *gorm.DB, logger *zap.Logger) *Checker {
	return &Checker{store: store, db: db, logger: logger}
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultTimeout)
}

// Storage pings the blob container
func (c *Checker) Storage(ctx context.Context) *Status {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := c.store.Ping(ctx)
	status := &Status{Status: StatusHealthy, LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		c.logger.Warn("Storage health check failed", zap.Error(err))
		status.Status = StatusUnhealthy
		status.Error = err.Error()
	}
	return status
}

// Database pings the audit database and reports pool statistics
func (c *Checker) Database(ctx context.Context) *Status {
	if c.db == nil {
		return &Status{Status: StatusDisabled}
	}

	sqlDB, err := c.db.DB()
	if err != nil {
		return &Status{Status: StatusUnhealthy, Error: err.Error()}
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err = sqlDB.PingContext(ctx)
	stats := sqlDB.Stats()
	status := &Status{
		Status:     StatusHealthy,
		LatencyMs:  time.Since(start).Milliseconds(),
		MaxOpen:    stats.MaxOpenConnections,
		Open:       stats.OpenConnections,
		InUse:      stats.InUse,
		Idle:       stats.Idle,
		WaitCount:  stats.WaitCount,
		WaitTimeMs: stats.WaitDuration.Milliseconds(),
	}
	if err != nil {
		c.logger.Warn("Database health check failed", zap.Error(err))
		status.Status = StatusUnhealthy
		status.Error = err.Error()
	}
	return status
}

// Ready runs every check
func (c *Checker) Ready(ctx context.Context) (map[string]*Status, bool) {
	checks := map[string]*Status{
		"storage":  c.Storage(ctx),
		"database": c.Database(ctx),
	}
	ok := true
	for _, s := range checks {
		ok = ok && s.Healthy()
	}
	return checks, ok
}
