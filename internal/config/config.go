// Package config loads engine configuration from a yaml file with
// environment variable overrides.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Storage StorageConfig `koanf:"storage"`
	Trace   TraceConfig   `koanf:"trace"`
	Fold    FoldConfig    `koanf:"fold"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type TraceConfig struct {
	// EnforceStageOrder rejects appends whose stage precedes the highest
	// stage already logged. Off by default: out-of-order staging is
	// permitted and the canonical order is advisory.
	EnforceStageOrder bool `koanf:"enforce_stage_order"`
}

type FoldConfig struct {
	// ConfidenceThreshold is the key-insight cutoff; events above it are
	// always retained in a fold.
	ConfidenceThreshold float64 `koanf:"confidence_threshold"`

	// Window is the consecutive-event window scanned for multilingual
	// reasoning.
	Window int `koanf:"window"`
}

// Load reads config.yaml when present, then applies SEREN_-prefixed
// environment variables (SEREN_SERVER__PORT=9090 sets server.port), then
// fills defaults for anything unset.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = "config.yaml"
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// A missing file is fine; env vars and defaults cover everything.
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("SEREN_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "SEREN_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("storage.type") {
		k.Set("storage.type", "memory")
	}
	if !k.Exists("storage.sqlite.path") {
		k.Set("storage.sqlite.path", "./data/serentrace.db")
	}
	if !k.Exists("fold.confidence_threshold") {
		k.Set("fold.confidence_threshold", 0.8)
	}
	if !k.Exists("fold.window") {
		k.Set("fold.window", 3)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
