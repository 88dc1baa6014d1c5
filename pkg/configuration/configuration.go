// Package configuration implements the daemon-wide YAML configuration file:
// dat storage path, bandwidth caps, GC scheduling, and DNS provider
// selection, merged with per-archive defaults via a layered
// global/per-archive override scheme.
package configuration

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/dhive/dhive/pkg/archive"
	"github.com/dhive/dhive/pkg/encoding"
)

// GCConfiguration controls the background garbage collector's schedule.
type GCConfiguration struct {
	InitialDelay time.Duration `yaml:"initialDelay,omitempty"`
	Interval     time.Duration `yaml:"interval,omitempty"`
}

// BandwidthConfiguration caps swarm replication throughput, consumed as
// golang.org/x/time/rate limits by pkg/swarm.
type BandwidthConfiguration struct {
	// UploadLimit and DownloadLimit are bytes per second; zero means
	// unlimited. Both accept human-friendly sizes ("1mb", "500kb") as well
	// as bare byte counts in the YAML document.
	UploadLimit   ByteSize `yaml:"uploadLimit,omitempty"`
	DownloadLimit ByteSize `yaml:"downloadLimit,omitempty"`
}

// Limiters builds the upload/download rate.Limiter pair pkg/swarm's
// ThrottleReader/ThrottleWriter expect, translating a zero limit (unlimited)
// into a nil limiter.
func (b BandwidthConfiguration) Limiters() (upload, download *rate.Limiter) {
	if b.UploadLimit > 0 {
		upload = rate.NewLimiter(rate.Limit(b.UploadLimit), int(b.UploadLimit))
	}
	if b.DownloadLimit > 0 {
		download = rate.NewLimiter(rate.Limit(b.DownloadLimit), int(b.DownloadLimit))
	}
	return
}

// DNSConfiguration selects and caches DoH name resolution providers.
type DNSConfiguration struct {
	Providers []string `yaml:"providers,omitempty"`
	CachePath string   `yaml:"cachePath,omitempty"`
}

// ArchiveDefaults are the daemon-wide defaults applied to a freshly created
// archive's UserSettings. Pointer fields distinguish "unset, inherit
// archive.DefaultUserSettings()" from an explicit false/empty value, a
// tri-state needed for boolean fields that have a meaningful zero value.
type ArchiveDefaults struct {
	Networked    *bool              `yaml:"networked,omitempty"`
	AutoDownload *bool              `yaml:"autoDownload,omitempty"`
	AutoUpload   *bool              `yaml:"autoUpload,omitempty"`
	Visibility   archive.Visibility `yaml:"visibility,omitempty"`
}

// YAMLConfiguration is the daemon's global configuration file format.
type YAMLConfiguration struct {
	DatPath   string                 `yaml:"datPath,omitempty"`
	GC        GCConfiguration        `yaml:"gc,omitempty"`
	Bandwidth BandwidthConfiguration `yaml:"bandwidth,omitempty"`
	DNS       DNSConfiguration       `yaml:"dns,omitempty"`
	Defaults  ArchiveDefaults        `yaml:"defaults,omitempty"`
}

// Load reads a YAML daemon configuration file from path. A missing file is
// passed through as an os.IsNotExist error so callers can fall back to an
// empty configuration.
func Load(path string) (*YAMLConfiguration, error) {
	result := &YAMLConfiguration{}
	if err := encoding.LoadAndUnmarshalYAML(path, result); err != nil {
		return nil, err
	}
	return result, nil
}

// NewArchiveSettings builds the UserSettings assigned to a newly created
// archive, layering cfg's Defaults on top of archive.DefaultUserSettings().
func (cfg *YAMLConfiguration) NewArchiveSettings() archive.UserSettings {
	settings := archive.DefaultUserSettings()
	if cfg == nil {
		return settings
	}
	if cfg.Defaults.Networked != nil {
		settings.Networked = *cfg.Defaults.Networked
	}
	if cfg.Defaults.AutoDownload != nil {
		settings.AutoDownload = *cfg.Defaults.AutoDownload
	}
	if cfg.Defaults.AutoUpload != nil {
		settings.AutoUpload = *cfg.Defaults.AutoUpload
	}
	if cfg.Defaults.Visibility != "" {
		settings.Visibility = cfg.Defaults.Visibility
	}
	return settings.Normalize()
}

// MergeConfigurations merges two daemon configurations of differing
// priorities: flag-parsed or per-invocation overrides (higher) take
// precedence over the loaded configuration file (lower) field by field,
// using a "non-zero/non-nil wins" layering rule.
func MergeConfigurations(lower, higher *YAMLConfiguration) *YAMLConfiguration {
	result := &YAMLConfiguration{}

	if higher.DatPath != "" {
		result.DatPath = higher.DatPath
	} else {
		result.DatPath = lower.DatPath
	}

	if higher.GC.InitialDelay != 0 {
		result.GC.InitialDelay = higher.GC.InitialDelay
	} else {
		result.GC.InitialDelay = lower.GC.InitialDelay
	}
	if higher.GC.Interval != 0 {
		result.GC.Interval = higher.GC.Interval
	} else {
		result.GC.Interval = lower.GC.Interval
	}

	if higher.Bandwidth.UploadLimit != 0 {
		result.Bandwidth.UploadLimit = higher.Bandwidth.UploadLimit
	} else {
		result.Bandwidth.UploadLimit = lower.Bandwidth.UploadLimit
	}
	if higher.Bandwidth.DownloadLimit != 0 {
		result.Bandwidth.DownloadLimit = higher.Bandwidth.DownloadLimit
	} else {
		result.Bandwidth.DownloadLimit = lower.Bandwidth.DownloadLimit
	}

	if len(higher.DNS.Providers) > 0 {
		result.DNS.Providers = higher.DNS.Providers
	} else {
		result.DNS.Providers = lower.DNS.Providers
	}
	if higher.DNS.CachePath != "" {
		result.DNS.CachePath = higher.DNS.CachePath
	} else {
		result.DNS.CachePath = lower.DNS.CachePath
	}

	if higher.Defaults.Networked != nil {
		result.Defaults.Networked = higher.Defaults.Networked
	} else {
		result.Defaults.Networked = lower.Defaults.Networked
	}
	if higher.Defaults.AutoDownload != nil {
		result.Defaults.AutoDownload = higher.Defaults.AutoDownload
	} else {
		result.Defaults.AutoDownload = lower.Defaults.AutoDownload
	}
	if higher.Defaults.AutoUpload != nil {
		result.Defaults.AutoUpload = higher.Defaults.AutoUpload
	} else {
		result.Defaults.AutoUpload = lower.Defaults.AutoUpload
	}
	if higher.Defaults.Visibility != "" {
		result.Defaults.Visibility = higher.Defaults.Visibility
	} else {
		result.Defaults.Visibility = lower.Defaults.Visibility
	}

	return result
}
