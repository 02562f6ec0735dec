package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/handiism/post-exporter/internal/model"
	"github.com/handiism/post-exporter/internal/render"
)

// Settings holds all configuration options.
type Settings struct {
	// Output settings
	Brand          string   `json:"brand" toml:"brand"`
	OutputDir      string   `json:"output_dir" toml:"output_dir"`
	DefaultFormats []string `json:"default_formats" toml:"default_formats"`
	Mode           string   `json:"mode" toml:"mode"` // archive, download-each, schedule
	AlsoSchedule   bool     `json:"also_schedule" toml:"also_schedule"`

	// Backend settings
	BackendURL     string  `json:"backend_url" toml:"backend_url"`
	BackendToken   string  `json:"backend_token" toml:"backend_token"`
	BackendTimeout float64 `json:"backend_timeout" toml:"backend_timeout"` // seconds, 0 = none
	RecorderDBPath string  `json:"recorder_db_path" toml:"recorder_db_path"`

	// Rendering settings
	ReferenceWidth int     `json:"reference_width" toml:"reference_width"`
	DownloadDelay  float64 `json:"download_delay" toml:"download_delay"` // seconds between individual saves
	RenderWorkers  int     `json:"render_workers" toml:"render_workers"` // slides rasterized concurrently
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	return &Settings{
		Brand:          "Exchange",
		OutputDir:      filepath.Join(homeDir, "Pictures", "PostExports"),
		DefaultFormats: []string{"instagram_feed", "instagram_portrait", "tiktok"},
		Mode:           "archive",
		AlsoSchedule:   false,

		BackendURL:     "",
		BackendTimeout: 30,
		RecorderDBPath: filepath.Join(homeDir, ".local", "share", "post-exporter", "exports.db"),

		ReferenceWidth: render.ReferenceWidth,
		DownloadDelay:  0.5,
		RenderWorkers:  1,
	}
}

// Load reads settings from a JSON or TOML file. Files ending in ".toml" are
// decoded as TOML; everything else as JSON. Missing files yield defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if isTOML(path) {
		if _, err := toml.Decode(string(data), settings); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	} else if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Save writes settings to a JSON or TOML file, chosen by extension.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(s); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks values that cannot be defaulted.
func (s *Settings) Validate() error {
	if _, err := model.ParseMode(s.Mode); err != nil {
		return err
	}
	if s.ReferenceWidth < 0 {
		return fmt.Errorf("reference_width must be positive, got %d", s.ReferenceWidth)
	}
	if s.DownloadDelay < 0 {
		return fmt.Errorf("download_delay must not be negative, got %v", s.DownloadDelay)
	}
	if s.RenderWorkers < 0 {
		return fmt.Errorf("render_workers must not be negative, got %d", s.RenderWorkers)
	}
	if s.BackendTimeout < 0 {
		return fmt.Errorf("backend_timeout must not be negative, got %v", s.BackendTimeout)
	}
	return nil
}

// ExportMode returns the parsed export mode, defaulting to archive.
func (s *Settings) ExportMode() model.Mode {
	m, _ := model.ParseMode(s.Mode)
	return m
}

// DownloadDelayDuration returns the pause between individual saves.
func (s *Settings) DownloadDelayDuration() time.Duration {
	return time.Duration(s.DownloadDelay * float64(time.Second))
}

// BackendTimeoutDuration returns the backend request timeout.
func (s *Settings) BackendTimeoutDuration() time.Duration {
	return time.Duration(s.BackendTimeout * float64(time.Second))
}

// ToRenderOptions converts settings to render.Options.
func (s *Settings) ToRenderOptions(images render.ImageSource) render.Options {
	return render.Options{
		Brand:          s.Brand,
		ReferenceWidth: s.ReferenceWidth,
		Images:         images,
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
