package extension

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/docket"
	"github.com/xraph/docket/store/memory"
)

func TestMergeWithDefaults(t *testing.T) {
	cfg := mergeWithDefaults(Config{BlobRetries: 2})

	assert.Equal(t, 10*time.Second, cfg.OperationTimeout)
	assert.Equal(t, time.Hour, cfg.OverdueSweepInterval)
	assert.Equal(t, uint(2), cfg.BlobRetries)
}

func TestMergeConfigurationsPrefersFile(t *testing.T) {
	file := Config{
		OperationTimeout: 3 * time.Second,
		BlobDir:          "/var/docket",
	}
	programmatic := Config{
		OperationTimeout:    time.Minute,
		BlobDir:             "/tmp/other",
		BlobBaseURL:         "https://files.example.com",
		DisableMigrate:      true,
		DisableOverdueSweep: true,
		Firm:                FirmConfig{Name: "Vimes & Co"},
	}

	cfg := mergeConfigurations(file, programmatic)

	assert.Equal(t, 3*time.Second, cfg.OperationTimeout)
	assert.Equal(t, "/var/docket", cfg.BlobDir)
	assert.Equal(t, "https://files.example.com", cfg.BlobBaseURL)
	assert.True(t, cfg.DisableMigrate)
	assert.True(t, cfg.DisableOverdueSweep)
	assert.Equal(t, "Vimes & Co", cfg.Firm.Name)
	assert.Equal(t, time.Hour, cfg.OverdueSweepInterval)
	assert.Equal(t, uint(4), cfg.BlobRetries)
}

func TestBuildDocketOptsOpensBlobDir(t *testing.T) {
	e := New(
		WithBlobDir(t.TempDir(), "https://files.example.com"),
		WithDisableOverdueSweep(),
		WithDocketOption(docket.WithBlobRetries(1)),
	)
	e.config = mergeWithDefaults(e.config)

	opts, err := e.buildDocketOpts()
	require.NoError(t, err)
	assert.NotEmpty(t, opts)

	eng := docket.New(memory.New(), opts...)
	assert.NotNil(t, eng.Store())
}

func TestOptionsSetStore(t *testing.T) {
	s := memory.New()
	e := New(WithStore(s), WithOperationTimeout(time.Second), WithOverdueSweepInterval(time.Minute))

	assert.Same(t, s, e.store)
	assert.Equal(t, time.Second, e.config.OperationTimeout)
	assert.Equal(t, time.Minute, e.config.OverdueSweepInterval)
	assert.Nil(t, e.Engine())
}
