// Package config provides configuration management for the post-exporter.
//
// This package handles:
//   - Loading and saving settings from JSON or TOML files
//   - Default configuration values
//   - Conversion to render options and export timings
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Exports to ~/Pictures/PostExports as a ZIP archive
//	// Instagram feed, Instagram portrait and TikTok selected
//	// Records kept in a local SQLite database when no backend is set
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.toml")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// # Saving Settings
//
//	settings.OutputDir = "/srv/exports"
//	err := settings.Save("/path/to/config.json")
//
// # Configuration Options
//
// Settings includes options for:
//   - Brand name used in the badge and file names
//   - Output directory, default formats and export mode
//   - Backend URL, token and timeout
//   - Local recorder database path
//   - Rendering reference width and the delay between individual saves
package config
