package health_test

import (
	"context"
	"errors"
	"testing"

	"github.com/straye-as/labelling-app/internal/health"
	"github.com/straye-as/labelling-app/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type brokenStorage struct {
	storage.Storage
}

func (brokenStorage) Ping(ctx context.Context) error {
	return errors.New("container unreachable")
}

func TestChecker_Ready(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	checks, ok := health.NewChecker(store, db, zap.NewNop()).Ready(context.Background())
	assert.True(t, ok)
	assert.Equal(t, health.StatusHealthy, checks["storage"].Status)
	assert.Equal(t, health.StatusHealthy, checks["database"].Status)
}

func TestChecker_DatabaseDisabled(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	checks, ok := health.NewChecker(store, nil, zap.NewNop()).Ready(context.Background())
	assert.True(t, ok)
	assert.Equal(t, health.StatusDisabled, checks["database"].Status)
}

func TestChecker_StorageDown(t *testing.T) {
	checks, ok := health.NewChecker(brokenStorage{}, nil, zap.NewNop()).Ready(context.Background())
	assert.False(t, ok)
	assert.Equal(t, health.StatusUnhealthy, checks["storage"].Status)
	assert.Equal(t, "container unreachable", checks["storage"].Error)
}
