// Package config loads the hotclick configuration file.
//
// A config file is YAML (.yaml, .yml) or TOML (.toml). Either way the
// decoded document is checked against an embedded CUE schema, which rejects
// unknown fields and fills in defaults, then decoded into Config.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/roach88/hotclick/internal/model"
)

//go:embed schema.cue
var schemaCUE string

// Format identifies a config file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("unsupported config extension %q (want .yaml, .yml or .toml)", filepath.Ext(path))
}

// Config is the decoded configuration file.
type Config struct {
	Master     Master `json:"master"`
	Store      string `json:"store"`
	Feed       Feed   `json:"feed"`
	LogLevel   string `json:"log_level"`
	LegacyJSON string `json:"legacy_json"`
}

// Master holds the raw master settings. They are applied through
// Engine.UpdateSettings, which coerces out-of-range values.
type Master struct {
	Rate      float64 `json:"rate"`
	Trigger   string  `json:"trigger"`
	Mode      string  `json:"mode"`
	Action    string  `json:"action"`
	Key       string  `json:"key"`
	X         *int    `json:"x,omitempty"`
	Y         *int    `json:"y,omitempty"`
	StopAfter int64   `json:"stop_after"`
}

// Feed configures the status feed server.
type Feed struct {
	Addr string `json:"addr"`
}

// SettingsInput converts the master section for Engine.UpdateSettings.
func (m Master) SettingsInput() model.SettingsInput {
	return model.SettingsInput{
		Rate:      m.Rate,
		Trigger:   m.Trigger,
		Mode:      m.Mode,
		Action:    m.Action,
		Key:       m.Key,
		X:         m.X,
		Y:         m.Y,
		StopAfter: m.StopAfter,
	}
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() slog.Level {
	return ParseLevel(c.LogLevel)
}

// ParseLevel maps a level name to a slog level. Unknown names give info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Error reports an invalid config document.
type Error struct {
	Path    string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *Error) Error() string {
	if e.Pos.IsValid() && e.Pos.Line() > 0 {
		return fmt.Sprintf("%s: schema.cue:%d:%d: %s", e.Path, e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg, err := Parse("<default>", nil, FormatYAML)
	if err != nil {
		panic(fmt.Sprintf("config: built-in defaults do not validate: %v", err))
	}
	return cfg
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, &Error{Path: path, Message: err.Error(), Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data, format)
}

// Parse decodes and validates data. source names the document in errors.
func Parse(source string, data []byte, format Format) (*Config, error) {
	doc, err := decode(data, format)
	if err != nil {
		return nil, &Error{Path: source, Message: err.Error(), Err: err}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(doc))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(source, err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, cueError(source, err)
	}
	return &cfg, nil
}

func decode(data []byte, format Format) (map[string]any, error) {
	doc := map[string]any{}
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config format %q", format)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// cueError keeps the first CUE error and its position.
func cueError(source string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Path: source, Message: err.Error(), Err: err}
	}

	first := errs[0]
	e := &Error{Path: source, Message: first.Error(), Err: err}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
