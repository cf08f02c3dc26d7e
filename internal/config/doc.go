// Package config provides configuration structures and utilities for crawlcore.
// It defines the admission filter rules, duplicate detection thresholds,
// checkpoint settings and report preferences, and loads overrides from a
// YAML configuration file.
package config
