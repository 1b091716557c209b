// Package extension provides the Forge extension adapter for Docket.
//
// It implements the forge.Extension interface to integrate the Docket
// billing engine into a Forge application with DI registration and
// lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.docket" or "docket" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/docket"
	"github.com/xraph/docket/blob"
	blobfs "github.com/xraph/docket/blob/fs"
	"github.com/xraph/docket/render"
	"github.com/xraph/docket/store"
	"github.com/xraph/docket/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "docket"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Time and billing ledger with invoice generation"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Docket as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *docket.Engine
	store      store.Store
	blobs      blob.Store
	docketOpts []docket.Option
}

// New creates a new Docket Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Docket engine.
// This is nil until Register is called.
func (e *Extension) Engine() *docket.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the docket engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildDocketOpts()
	if err != nil {
		return err
	}
	e.engine = docket.New(e.store, opts...)

	return vessel.Provide(fapp.Container(), func() (*docket.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("docket: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("docket: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildDocketOpts constructs docket.Option values from the resolved config.
// Pass-through options are applied last so they win over config.
func (e *Extension) buildDocketOpts() ([]docket.Option, error) {
	cfg := e.config
	opts := make([]docket.Option, 0, len(e.docketOpts)+6)

	opts = append(opts,
		docket.WithOperationTimeout(cfg.OperationTimeout),
		docket.WithBlobRetries(cfg.BlobRetries),
		docket.WithRenderer(render.NewPDF(render.Firm{
			Name:    cfg.Firm.Name,
			Address: cfg.Firm.Address,
			Email:   cfg.Firm.Email,
			Phone:   cfg.Firm.Phone,
		})),
	)

	if cfg.DisableOverdueSweep {
		opts = append(opts, docket.WithOverdueSweepInterval(0))
	} else {
		opts = append(opts, docket.WithOverdueSweepInterval(cfg.OverdueSweepInterval))
	}

	if cfg.DisableMigrate {
		opts = append(opts, docket.WithoutMigrate())
	}

	blobs := e.blobs
	if blobs == nil && cfg.BlobDir != "" {
		fs, err := blobfs.New(cfg.BlobDir, cfg.BlobBaseURL)
		if err != nil {
			return nil, fmt.Errorf("docket: open blob dir: %w", err)
		}
		blobs = fs
	}
	if blobs != nil {
		opts = append(opts, docket.WithBlobStore(blobs))
	}

	opts = append(opts, e.docketOpts...)
	return opts, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("docket: configuration is required but not found in config files; " +
				"ensure 'extensions.docket' or 'docket' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("docket: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("operation_timeout", e.config.OperationTimeout),
		forge.F("overdue_sweep_interval", e.config.OverdueSweepInterval),
		forge.F("disable_overdue_sweep", e.config.DisableOverdueSweep),
		forge.F("blob_dir", e.config.BlobDir),
		forge.F("blob_retries", e.config.BlobRetries),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.docket", "docket"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("docket: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("docket: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = defaults.OperationTimeout
	}
	if cfg.OverdueSweepInterval == 0 {
		cfg.OverdueSweepInterval = defaults.OverdueSweepInterval
	}
	if cfg.BlobRetries == 0 {
		cfg.BlobRetries = defaults.BlobRetries
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.DisableOverdueSweep {
		yamlConfig.DisableOverdueSweep = true
	}

	if yamlConfig.OperationTimeout == 0 {
		yamlConfig.OperationTimeout = programmaticConfig.OperationTimeout
	}
	if yamlConfig.OverdueSweepInterval == 0 {
		yamlConfig.OverdueSweepInterval = programmaticConfig.OverdueSweepInterval
	}
	if yamlConfig.BlobRetries == 0 {
		yamlConfig.BlobRetries = programmaticConfig.BlobRetries
	}
	if yamlConfig.BlobDir == "" {
		yamlConfig.BlobDir = programmaticConfig.BlobDir
	}
	if yamlConfig.BlobBaseURL == "" {
		yamlConfig.BlobBaseURL = programmaticConfig.BlobBaseURL
	}
	if yamlConfig.Firm == (FirmConfig{}) {
		yamlConfig.Firm = programmaticConfig.Firm
	}

	return mergeWithDefaults(yamlConfig)
}
