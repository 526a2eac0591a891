package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ad-tracker/youtube-announcer-go/internal/config"
	"github.com/ad-tracker/youtube-announcer-go/internal/db/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()

	stores, err := Open(ctx, config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "announcer.db"),
	})
	require.NoError(t, err)
	defer stores.Close()

	require.NoError(t, stores.PingWithTimeout(ctx, time.Second))
	require.NoError(t, stores.Channels.Upsert(ctx, models.NewChannel("@humo", 1, "Humo")))

	channels, err := stores.Channels.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, channels, 1)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "mysql"})
	assert.ErrorContains(t, err, "mysql")
}

func TestPostgresConfig(t *testing.T) {
	pc := PostgresConfig(config.DatabaseConfig{
		Host:           "db",
		Port:           6543,
		User:           "bot",
		Password:       "secret",
		Name:           "announcer",
		MaxConnections: 20,
		MaxLifetime:    time.Minute,
	})

	assert.Equal(t, "db", pc.Host)
	assert.Equal(t, 6543, pc.Port)
	assert.Equal(t, int32(20), pc.MaxConns)
	assert.Equal(t, int32(2), pc.MinConns)
	assert.Equal(t, time.Minute, pc.MaxConnLifetime)
	assert.Equal(t, "disable", pc.SSLMode)
	assert.Equal(t, "postgres://bot:secret@db:6543/announcer?sslmode=disable", pc.URL())
}
