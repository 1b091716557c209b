package extension

import "time"

// Config holds the Docket extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.docket" or "docket" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// OperationTimeout bounds every store and blob call (default: 10s).
	OperationTimeout time.Duration `json:"operation_timeout" mapstructure:"operation_timeout" yaml:"operation_timeout"`

	// OverdueSweepInterval is how often due invoices are moved to overdue
	// (default: 1h).
	OverdueSweepInterval time.Duration `json:"overdue_sweep_interval" mapstructure:"overdue_sweep_interval" yaml:"overdue_sweep_interval"`

	// DisableOverdueSweep turns the background overdue sweep off.
	DisableOverdueSweep bool `json:"disable_overdue_sweep" mapstructure:"disable_overdue_sweep" yaml:"disable_overdue_sweep"`

	// BlobDir is the directory exported PDFs are written to. When empty and
	// no blob store was set programmatically, exports are disabled.
	BlobDir string `json:"blob_dir" mapstructure:"blob_dir" yaml:"blob_dir"`

	// BlobBaseURL prefixes the key of every exported document.
	BlobBaseURL string `json:"blob_base_url" mapstructure:"blob_base_url" yaml:"blob_base_url"`

	// BlobRetries is how many upload attempts an export makes (default: 4).
	BlobRetries uint `json:"blob_retries" mapstructure:"blob_retries" yaml:"blob_retries"`

	// Firm is printed in the header of every rendered invoice.
	Firm FirmConfig `json:"firm" mapstructure:"firm" yaml:"firm"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// FirmConfig identifies the issuing firm on rendered invoices.
type FirmConfig struct {
	Name    string `json:"name" mapstructure:"name" yaml:"name"`
	Address string `json:"address" mapstructure:"address" yaml:"address"`
	Email   string `json:"email" mapstructure:"email" yaml:"email"`
	Phone   string `json:"phone" mapstructure:"phone" yaml:"phone"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		OperationTimeout:     10 * time.Second,
		OverdueSweepInterval: time.Hour,
		BlobRetries:          4,
	}
}
