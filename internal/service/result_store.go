package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/straye-as/labelling-app/internal/domain"
	"github.com/straye-as/labelling-app/internal/results"
	"github.com/straye-as/labelling-app/internal/storage"
	"go.uber.org/zap"
)

// EncodeFileName builds labelling_results/{timestamp}___{run}___{user}.json
func EncodeFileName(savedAt time.Time, runID, userName string) string {
	return domain.ResultsFolder + strings.Join([]string{
		savedAt.Format(domain.DatetimeLayout),
		runID,
		userName,
	}, domain.FileNameSeparator) + ".json"
}

// DecodeFileName splits a results file name into timestamp, run id and user.
// Names without the ___ separator are decoded with the legacy single
// underscore layout, where the last two parts are run id and user.
func DecodeFileName(name string) (domain.ResultFile, bool) {
	base := strings.TrimPrefix(name, domain.ResultsFolder)
	base = strings.TrimSuffix(base, ".json")

	if strings.Contains(base, domain.FileNameSeparator) {
		parts := strings.Split(base, domain.FileNameSeparator)
		if len(parts) < 3 {
			return domain.ResultFile{}, false
		}
		return domain.ResultFile{
			Name:      name,
			Timestamp: parts[0],
			RunID:     parts[1],
			UserName:  parts[2],
		}, true
	}

	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return domain.ResultFile{}, false
	}
	return domain.ResultFile{
		Name:      name,
		Timestamp: parts[0],
		RunID:     parts[len(parts)-2],
		UserName:  parts[len(parts)-1],
		Legacy:    true,
	}, true
}

// Latest returns the file with the newest leading timestamp. No file is
// returned when any timestamp fails to parse.
func Latest(files []domain.ResultFile) (domain.ResultFile, bool) {
	if len(files) == 0 {
		return domain.ResultFile{}, false
	}

	var (
		latest   domain.ResultFile
		latestAt time.Time
	)
	for i, f := range files {
		at, ok := f.SavedAt()
		if !ok {
			return domain.ResultFile{}, false
		}
		if i == 0 || at.After(latestAt) {
			latest, latestAt = f, at
		}
	}
	return latest, true
}

// SaveResult describes one persisted results file
type SaveResult struct {
	File   domain.ResultFile
	Pruned int
}

// ResultStore reads and writes per run and user results files
type ResultStore struct {
	store  storage.Storage
	logger *zap.Logger
}

// NewResultStore creates a result store on top of blob storage
func NewResultStore(store storage.Storage, logger *zap.Logger) *ResultStore {
	return &ResultStore{store: store, logger: logger}
}

// List returns every decodable results file, sorted by name
func (s *ResultStore) List(ctx context.Context) ([]domain.ResultFile, error) {
	names, err := storage.ListFiles(ctx, s.store, domain.ResultsFolder, ".json")
	if err != nil {
		return nil, err
	}

	files := make([]domain.ResultFile, 0, len(names))
	for _, name := range names {
		f, ok := DecodeFileName(name)
		if !ok {
			s.logger.Debug("Skipping undecodable results file", zap.String("file_name", name))
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

// FilesFor returns the results files of one user for one run. Legacy names
// match on their "_{run}_{user}.json" suffix.
func (s *ResultStore) FilesFor(ctx context.Context, userName, runID string) ([]domain.ResultFile, error) {
	files, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	legacySuffix := "_" + runID + "_" + userName + ".json"
	var matched []domain.ResultFile
	for _, f := range files {
		if f.Legacy {
			if strings.HasSuffix(f.Name, legacySuffix) {
				f.RunID, f.UserName = runID, userName
				matched = append(matched, f)
			}
			continue
		}
		if f.RunID == runID && f.UserName == userName {
			matched = append(matched, f)
		}
	}
	return matched, nil
}

// Read downloads and decodes one results file
func (s *ResultStore) Read(ctx context.Context, name string) (*results.Table, error) {
	data, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	tbl, err := results.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return tbl, nil
}

// Save writes tbl as the newest results file of (run, user) and removes the
// older versions. Failing to prune is logged, not returned.
func (s *ResultStore) Save(ctx context.Context, runID, userName string, tbl *results.Table, now time.Time) (*SaveResult, error) {
	if userName == "" {
		return nil, domain.ErrLoginRequired
	}
	if runID == "" {
		runID = domain.DefaultRunID
	}

	data, err := tbl.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}

	name := EncodeFileName(now, runID, userName)
	if err := s.store.Put(ctx, name, "application/json", data); err != nil {
		return nil, fmt.Errorf("failed to save results: %w", err)
	}

	file, _ := DecodeFileName(name)
	pruned, err := s.PruneOlder(ctx, file)
	if err != nil {
		s.logger.Error("Failed to delete old results files",
			zap.String("file_name", name),
			zap.Error(err),
		)
	}

	s.logger.Info("Results saved",
		zap.String("file_name", name),
		zap.String("run_id", runID),
		zap.String("user_name", userName),
		zap.Int("rows", tbl.Len()),
		zap.Int("pruned", pruned),
	)
	return &SaveResult{File: file, Pruned: pruned}, nil
}

// PruneOlder deletes the files of the same run and user whose timestamp is
// older than saved's
func (s *ResultStore) PruneOlder(ctx context.Context, saved domain.ResultFile) (int, error) {
	savedAt, ok := saved.SavedAt()
	if !ok {
		return 0, nil
	}

	files, err := s.FilesFor(ctx, saved.UserName, saved.RunID)
	if err != nil {
		return 0, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	deleted := 0
	for _, f := range files {
		at, ok := f.SavedAt()
		if !ok || !at.Before(savedAt) {
			continue
		}
		if err := s.store.Delete(ctx, f.Name); err != nil {
			return deleted, fmt.Errorf("failed to delete %s: %w", f.Name, err)
		}
		s.logger.Info("Deleted old results file", zap.String("file_name", f.Name))
		deleted++
	}
	return deleted, nil
}
