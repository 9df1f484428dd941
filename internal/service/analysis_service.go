package service

import (
	"context"
	"sync"
	"time"

	"github.com/straye-as/labelling-app/internal/analysis"
	"github.com/straye-as/labelling-app/internal/config"
	"github.com/straye-as/labelling-app/internal/domain"
	"github.com/straye-as/labelling-app/internal/export"
	"github.com/straye-as/labelling-app/internal/mapper"
	"go.uber.org/zap"
)

// AnalysisService serves merged results for the data analysis view from a
// TTL cache
type AnalysisService struct {
	source analysis.Source
	cfg    *config.AnalysisConfig
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	cached   *analysis.Results
	cachedAt time.Time
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(source analysis.Source, cfg *config.AnalysisConfig, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{
		source: source,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Results returns the cached results, reading them again once the cache
// expired
func (s *AnalysisService) Results(ctx context.Context) (*analysis.Results, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.now().Sub(s.cachedAt) < s.cfg.CacheTTLDuration() {
		return s.cached, nil
	}
	return s.refreshLocked(ctx)
}

// Refresh re-reads every results file and replaces the cache
func (s *AnalysisService) Refresh(ctx context.Context) (*analysis.Results, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *AnalysisService) refreshLocked(ctx context.Context) (*analysis.Results, error) {
	start := s.now()
	res, err := analysis.ReadAll(ctx, s.source, analysis.Options{
		CheckLowVariance:     true,
		LowVarianceThreshold: s.cfg.LowVarianceThreshold,
	}, s.logger)
	if err != nil {
		s.logger.Error("Failed to read labelling results", zap.Error(err))
		return nil, err
	}

	s.cached = res
	s.cachedAt = s.now()
	s.logger.Info("Analysis cache refreshed",
		zap.Int("files", res.Files),
		zap.Int("runs", len(res.Runs)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("duration", s.cachedAt.Sub(start)),
	)
	return res, nil
}

// Invalidate drops the cache so the next read goes to storage
func (s *AnalysisService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// Report builds the data analysis report. Zero WorstN and HistogramBins take
// the configured defaults.
func (s *AnalysisService) Report(ctx context.Context, opts analysis.ReportOptions) (*analysis.Report, error) {
	res, err := s.Results(ctx)
	if err != nil {
		return nil, err
	}
	if opts.WorstN <= 0 {
		opts.WorstN = s.cfg.WorstN
	}
	if opts.HistogramBins <= 0 {
		opts.HistogramBins = s.cfg.HistogramBins
	}
	return analysis.BuildReport(res, opts), nil
}

// ExportXLSX renders the report as a workbook
func (s *AnalysisService) ExportXLSX(ctx context.Context, opts analysis.ReportOptions) ([]byte, error) {
	rep, err := s.Report(ctx, opts)
	if err != nil {
		return nil, err
	}
	return export.ReportXLSX(rep)
}

// Runs lists the runs with their result files, read from storage
func (s *AnalysisService) Runs(ctx context.Context) ([]domain.RunDTO, error) {
	files, err := s.source.List(ctx)
	if err != nil {
		return nil, err
	}
	return mapper.ToRunDTOs(files), nil
}
