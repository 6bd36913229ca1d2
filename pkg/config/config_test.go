package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.ListingStore)
	assert.Equal(t, 1, cfg.DefaultPages)
	assert.False(t, cfg.SMTPEnabled())
	assert.Equal(t, time.Hour, cfg.RunLockTTL())
	assert.Equal(t, entity.DefaultCrawlConfig(), cfg.CrawlConfig())
}

func TestLoad_EnvFileAndEnvironment(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"WAIT_TIMEOUT_SECONDS=12\nLISTING_STORE=sqlite\nHEADLESS=false\nSMTP_HOST=smtp.example.com\nNOTIFY_TO=ops@example.com\n",
	), 0o644))
	t.Setenv("MAX_RETRIES", "5")

	cfg, err := config.Load(envFile)
	require.NoError(t, err)

	cc := cfg.CrawlConfig()
	assert.Equal(t, 12*time.Second, cc.WaitTimeout)
	assert.Equal(t, 5, cc.MaxRetries)
	assert.False(t, cc.Headless)
	assert.Equal(t, "sqlite", cfg.ListingStore)
	assert.True(t, cfg.SMTPEnabled())
	require.NoError(t, cc.Validate())
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	t.Setenv("LISTING_STORE", "mongo")

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "LISTING_STORE")
}
