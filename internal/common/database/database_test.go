package database

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"childcare-registration/internal/common/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFiles(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	require.NoError(t, err)

	var ups, downs int
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Equal(t, ups, downs)
	assert.GreaterOrEqual(t, ups, 1)

	schema, err := fs.ReadFile(migrationFiles, "migrations/000001_init.up.sql")
	require.NoError(t, err)
	for _, table := range []string{
		"applications", "personal_details", "address_entries", "premises",
		"childcare_services", "training", "employment_entries",
		"household_members", "applicant_references", "suitability", "declarations",
	} {
		assert.Contains(t, string(schema), "CREATE TABLE IF NOT EXISTS "+table+" ")
	}
}

func TestNewRedis(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()))
}

func TestNewElasticsearch(t *testing.T) {
	client, err := NewElasticsearch(config.ElasticsearchConfig{
		URL:   "http://localhost:9200",
		Index: "childcare-applications",
	})
	require.NoError(t, err)
	assert.Equal(t, "childcare-applications", client.Index)
}
