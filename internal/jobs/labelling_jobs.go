package jobs

import (
	"context"
	"time"

	"github.com/straye-as/labelling-app/internal/analysis"
	"go.uber.org/zap"
)

// Job names
const (
	AnalysisRefreshJobName = "analysis_refresh"
	SessionEvictionJobName = "session_eviction"
)

// DefaultAnalysisRefreshTimeout bounds a refresh when no timeout is configured
const DefaultAnalysisRefreshTimeout = 2 * time.Minute

// AnalysisRefresher re-reads every results file into the analysis cache
type AnalysisRefresher interface {
	Refresh(ctx context.Context) (*analysis.Results, error)
}

// SessionEvicter drops idle labelling sessions
type SessionEvicter interface {
	EvictIdle() int
	Len() int
}

// AnalysisRefreshJob keeps the analysis cache warm so the analysis view
// rarely waits on storage
type AnalysisRefreshJob struct {
	refresher AnalysisRefresher
	logger    *zap.Logger
	timeout   time.Duration
}

// NewAnalysisRefreshJob creates the job. timeout bounds one refresh; zero or
// less uses DefaultAnalysisRefreshTimeout.
func NewAnalysisRefreshJob(refresher AnalysisRefresher, logger *zap.Logger, timeout time.Duration) *AnalysisRefreshJob {
	if timeout <= 0 {
		timeout = DefaultAnalysisRefreshTimeout
	}
	return &AnalysisRefreshJob{refresher: refresher, logger: logger, timeout: timeout}
}

// Run refreshes the cache once
func (j *AnalysisRefreshJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	res, err := j.refresher.Refresh(ctx)
	if err != nil {
		j.logger.Error("analysis refresh failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("analysis refresh completed",
		zap.Int("runs", len(res.Runs)),
		zap.Int("files", res.Files),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("duration", time.Since(start)))
}

// SessionEvictionJob frees the memory of abandoned labelling sessions
type SessionEvictionJob struct {
	sessions SessionEvicter
	logger   *zap.Logger
}

// NewSessionEvictionJob creates the job
func NewSessionEvictionJob(sessions SessionEvicter, logger *zap.Logger) *SessionEvictionJob {
	return &SessionEvictionJob{sessions: sessions, logger: logger}
}

// Run evicts idle sessions once
func (j *SessionEvictionJob) Run() {
	if evicted := j.sessions.EvictIdle(); evicted > 0 {
		j.logger.Info("evicted idle labelling sessions",
			zap.Int("evicted", evicted),
			zap.Int("remaining", j.sessions.Len()))
	}
}

// RegisterAnalysisRefreshJob registers the refresh job. With warmUp set a
// first refresh runs in the background right away.
func RegisterAnalysisRefreshJob(scheduler *Scheduler, refresher AnalysisRefresher, logger *zap.Logger, cronExpr string, timeout time.Duration, warmUp bool) error {
	job := NewAnalysisRefreshJob(refresher, logger, timeout)
	if warmUp {
		go job.Run()
	}
	return scheduler.AddJob(AnalysisRefreshJobName, cronExpr, job.Run)
}

// RegisterSessionEvictionJob registers the session eviction job
func RegisterSessionEvictionJob(scheduler *Scheduler, sessions SessionEvicter, logger *zap.Logger, cronExpr string) error {
	return scheduler.AddJob(SessionEvictionJobName, cronExpr, NewSessionEvictionJob(sessions, logger).Run)
}
