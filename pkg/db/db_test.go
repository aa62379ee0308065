package db

import (
	"testing"

	"github.com/freightauditlabs/freightaudit/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type row struct {
	ID   int64 `gorm:"primaryKey"`
	Name string
}

func TestNew_SqliteAndUniqueViolation(t *testing.T) {
	cfg := config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: "file:pkgdb?mode=memory&cache=shared"},
	}
	db, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&row{}))

	require.NoError(t, db.Create(&row{ID: 1, Name: "a"}).Error)
	err = db.Create(&row{ID: 1, Name: "b"}).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	assert.False(t, IsUniqueViolation(nil))
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := config.Config{Database: config.DatabaseConfig{Driver: "oracle"}}
	_, err := New(cfg, zap.NewNop())
	assert.Error(t, err)
}
