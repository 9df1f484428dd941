package storage

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/straye-as/labelling-app/internal/config"
	"go.uber.org/zap"
)

// ObjectInfo describes one stored blob
type ObjectInfo struct {
	Name         string
	Size         int64
	LastModified time.Time
}

// Storage is a flat blob namespace. Names use "/" as folder separator.
// Get returns an error wrapping domain.ErrNotFound for missing blobs and
// Delete is idempotent.
type Storage interface {
	Put(ctx context.Context, name, contentType string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Ping(ctx context.Context) error
}

// NewStorage creates a new storage instance based on configuration.
// For local mode, blobs are files below the base path.
// For azure mode, blobs live in one Azure Blob Storage container.
func NewStorage(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (Storage, error) {
	switch cfg.Mode {
	case "local":
		return NewLocalStorage(cfg.LocalBasePath)
	case "cloud", "azure":
		return NewAzureBlobStorage(ctx, AzureOptions{
			ConnectionString: cfg.ConnectionString,
			AccountURL:       cfg.AccountURL,
			Container:        cfg.Container,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported storage mode: %s", cfg.Mode)
	}
}

// ListFiles returns the names of blobs in folder ending with ext. With an
// empty folder only top-level blobs are returned. Names are sorted.
func ListFiles(ctx context.Context, s Storage, folder, ext string) ([]string, error) {
	prefix := folder
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	objects, err := s.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", folder, err)
	}

	names := make([]string, 0, len(objects))
	for _, obj := range objects {
		if folder == "" && strings.Contains(obj.Name, "/") {
			continue
		}
		if ext != "" && !strings.EqualFold(path.Ext(obj.Name), ext) {
			continue
		}
		names = append(names, obj.Name)
	}
	sort.Strings(names)
	return names, nil
}

// ContentTypeFor guesses the content type of a blob from its extension
func ContentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
