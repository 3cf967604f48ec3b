package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	json "github.com/goccy/go-json"

	"github.com/roelfdiedericks/gointake/internal/logging"
	"github.com/roelfdiedericks/gointake/internal/paths"
)

// Config represents the gointake configuration
type Config struct {
	Schema   SchemaConfig   `json:"schema" toml:"schema"`
	Draft    DraftConfig    `json:"draft" toml:"draft"`
	Autosave AutosaveConfig `json:"autosave" toml:"autosave"`
	Uploads  UploadConfig   `json:"uploads" toml:"uploads"`
	Logging  LoggingConfig  `json:"logging" toml:"logging"`

	path string // file the config was loaded from ("" = defaults only)
}

// SchemaConfig locates the intake schema. URL wins over Path when both are set.
type SchemaConfig struct {
	Path string `json:"path" toml:"path"`
	URL  string `json:"url" toml:"url"`
}

// DraftConfig selects the draft key-value backend.
type DraftConfig struct {
	Backend string `json:"backend" toml:"backend"` // "file", "sqlite" or "memory"
	Path    string `json:"path" toml:"path"`       // directory (file) or database file (sqlite)
	Key     string `json:"key" toml:"key"`
}

type AutosaveConfig struct {
	DelayMs int `json:"delayMs" toml:"delayMs"`
}

type UploadConfig struct {
	Dir       string   `json:"dir" toml:"dir"`
	MaxSizeMB int      `json:"maxSizeMB" toml:"maxSizeMB"`
	Accept    []string `json:"accept" toml:"accept"`
	TickMs    int      `json:"tickMs" toml:"tickMs"`
}

type LoggingConfig struct {
	Level string `json:"level" toml:"level"`
	File  string `json:"file" toml:"file"` // log file used while the TUI is active
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Schema: SchemaConfig{
			Path: "intake.schema.json",
		},
		Draft: DraftConfig{
			Backend: "file",
			Path:    "~/.gointake/drafts",
			Key:     "legal_intake_draft",
		},
		Autosave: AutosaveConfig{
			DelayMs: 2000,
		},
		Uploads: UploadConfig{
			Dir:       "~/.gointake/uploads",
			MaxSizeMB: 25,
			Accept:    []string{".pdf", ".doc", ".docx", ".png", ".jpg", ".jpeg"},
			TickMs:    200,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "~/.gointake/gointake.log",
		},
	}
}

// Load reads the config at path. An empty path resolves through
// paths.ConfigPath; when no file exists the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		found, err := paths.ConfigPath()
		if err != nil {
			return nil, err
		}
		path = found
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		cfg.path = path
		logging.L_debug("config: loaded", "path", path)
	} else {
		logging.L_debug("config: no config file, using defaults")
	}

	if err := mergo.Merge(cfg, Defaults()); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}

	if err := cfg.expand(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

// expand resolves ~ in every path-valued setting
func (c *Config) expand() error {
	for _, p := range []*string{&c.Schema.Path, &c.Draft.Path, &c.Uploads.Dir, &c.Logging.File} {
		expanded, err := paths.ExpandTilde(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

// Path returns the file the config was loaded from, or "".
func (c *Config) Path() string {
	return c.path
}

// Save writes the config as JSON to path (or the path it was loaded from,
// or the default location), keeping a .bak of the previous file.
func (c *Config) Save(path string) error {
	if path == "" {
		path = c.path
	}
	if path == "" {
		p, err := paths.DefaultConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return fmt.Errorf("saving TOML config is not supported: %s", path)
	}
	return writeWithBackup(path, c)
}
