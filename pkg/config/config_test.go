package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  url: postgres://localhost/vasdom
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", config.Server.Port)
	assert.Equal(t, "postgres://localhost/vasdom", config.Database.URL)
	assert.Equal(t, 200, config.Database.ListLimit)
	assert.Equal(t, "text-embedding-3-large", config.Embedding.Model)
	assert.Equal(t, "gpt-4o-mini", config.LLM.Model)
	assert.Equal(t, 1200, config.Ingest.ChunkTokens)
	assert.Equal(t, 200, config.Ingest.ChunkOverlap)
	assert.Equal(t, 50, config.Ingest.MaxFileMB)
	assert.Equal(t, 200, config.Ingest.MaxTotalMB)
	assert.Equal(t, 6*time.Hour, config.Ingest.StageTTL)
	assert.Equal(t, 30*time.Minute, config.Ingest.JanitorInterval)

	assert.Empty(t, config.Validate())
}

func TestLoadConfig_FileValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
database:
  url: postgres://localhost/vasdom
ingest:
  chunk_tokens: 800
  chunk_overlap: 100
  stage_ttl: 2h
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", config.Server.Port)
	assert.Equal(t, 800, config.Ingest.ChunkTokens)
	assert.Equal(t, 100, config.Ingest.ChunkOverlap)
	assert.Equal(t, 2*time.Hour, config.Ingest.StageTTL)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("DATABASE_URL", "postgres://env-host/vasdom")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("EMERGENT_LLM_KEY", "emg-test")
	t.Setenv("AI_MAX_FILE_MB", "10")
	t.Setenv("AI_MAX_TOTAL_MB", "40")

	path := writeConfig(t, `
server:
  port: "9090"
database:
  url: postgres://file-host/vasdom
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "3000", config.Server.Port)
	assert.Equal(t, "postgres://env-host/vasdom", config.Database.URL)
	assert.Equal(t, "sk-test", config.Embedding.APIKey)
	assert.Equal(t, "emg-test", config.LLM.APIKey)
	assert.Equal(t, 10, config.Ingest.MaxFileMB)
	assert.Equal(t, 40, config.Ingest.MaxTotalMB)
	assert.Equal(t, int64(10*1024*1024), config.MaxFileBytes())
	assert.Equal(t, int64(40*1024*1024), config.MaxTotalBytes())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_MissingDatabaseURL(t *testing.T) {
	config := &Config{}
	applyDefaults(config)

	errs := config.Validate()
	require.NotEmpty(t, errs)
	assert.Equal(t, "database.url", errs[0].Field)
}

func TestValidate_BadChunkParams(t *testing.T) {
	config := &Config{}
	applyDefaults(config)
	config.Database.URL = "postgres://localhost/vasdom"
	config.Ingest.ChunkTokens = 100
	config.Ingest.ChunkOverlap = 100

	errs := config.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "ingest.chunk_overlap", errs[0].Field)
}

func TestValidate_TotalBelowFileCeiling(t *testing.T) {
	config := &Config{}
	applyDefaults(config)
	config.Database.URL = "postgres://localhost/vasdom"
	config.Ingest.MaxFileMB = 100
	config.Ingest.MaxTotalMB = 50

	errs := config.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "ingest.max_total_mb", errs[0].Field)
}
