package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultListenPort is the supervisor listen port used when none is configured.
const DefaultListenPort = 8080

// Settings holds the global configuration record. Known fields are typed; the
// camelCase fields are copied verbatim into the rendered document when set.
// Everything else lands in Extra.
type Settings struct {
	ServerBinPath string            `yaml:"server_path" json:"server_path" toml:"server_path"`
	GGUFDir       string            `yaml:"gguf_dir" json:"gguf_dir" toml:"gguf_dir"`
	ListenPort    int               `yaml:"listen_port" json:"listen_port" toml:"listen_port"`
	Aliases       map[string]string `yaml:"aliases,omitempty" json:"aliases,omitempty" toml:"aliases,omitempty"`

	HealthCheckTimeout *int           `yaml:"healthCheckTimeout,omitempty" json:"healthCheckTimeout,omitempty" toml:"healthCheckTimeout,omitempty"`
	LogLevel           string         `yaml:"logLevel,omitempty" json:"logLevel,omitempty" toml:"logLevel,omitempty"`
	StartPort          *int           `yaml:"startPort,omitempty" json:"startPort,omitempty" toml:"startPort,omitempty"`
	Macros             map[string]any `yaml:"macros,omitempty" json:"macros,omitempty" toml:"macros,omitempty"`
	Groups             map[string]any `yaml:"groups,omitempty" json:"groups,omitempty" toml:"groups,omitempty"`

	Extra map[string]any `yaml:"-" json:"-" toml:"-"`
}

// knownSettingsKeys are the keys mapped onto typed Settings fields; every
// other top-level key is preserved in Extra across load/save cycles.
var knownSettingsKeys = map[string]bool{
	"server_path": true, "gguf_dir": true, "listen_port": true, "aliases": true,
	"healthCheckTimeout": true, "logLevel": true, "startPort": true,
	"macros": true, "groups": true,
}

// Defaults returns the compiled-in settings for the given paths.
func Defaults(p Paths) Settings {
	return Settings{
		GGUFDir:    p.GGUFDir,
		ListenPort: DefaultListenPort,
	}
}

// SettingsStore reads and writes the single global settings record.
type SettingsStore struct {
	paths Paths
}

func NewSettingsStore(p Paths) *SettingsStore { return &SettingsStore{paths: p} }

// file returns the settings file to use: the first existing of the supported
// extensions, or the canonical YAML path when none exists yet.
func (s *SettingsStore) file() string {
	base := strings.TrimSuffix(s.paths.ConfigFile, filepath.Ext(s.paths.ConfigFile))
	for _, ext := range []string{".yaml", ".yml", ".json", ".toml"} {
		if _, err := os.Stat(base + ext); err == nil {
			return base + ext
		}
	}
	return s.paths.ConfigFile
}

// Load returns the stored settings merged over the defaults. A missing file
// yields pure defaults without touching disk. A file that exists but cannot
// be parsed is a fatal configuration error, never silently replaced.
func (s *SettingsStore) Load() (Settings, error) {
	def := Defaults(s.paths)
	path := s.file()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return def, nil
		}
		return Settings{}, fmt.Errorf("read settings %s: %w", path, err)
	}
	var st Settings
	var raw map[string]any
	if err := decodeByExt(path, b, &st); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if err := decodeByExt(path, b, &raw); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", path, err)
	}
	for k := range knownSettingsKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		st.Extra = raw
	}
	// Defaults fill keys the stored record does not carry.
	if st.GGUFDir == "" {
		st.GGUFDir = def.GGUFDir
	}
	if st.ListenPort == 0 {
		st.ListenPort = def.ListenPort
	}
	return st, nil
}

// Save overwrites the settings record, creating the parent directory first.
func (s *SettingsStore) Save(st Settings) error {
	path := s.file()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	b, err := encodeByExt(path, settingsToMap(st))
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write settings %s: %w", path, err)
	}
	return nil
}

// settingsToMap flattens typed fields and Extra into one document so unknown
// keys survive a load/save round trip.
func settingsToMap(st Settings) map[string]any {
	m := map[string]any{}
	for k, v := range st.Extra {
		m[k] = v
	}
	m["server_path"] = st.ServerBinPath
	m["gguf_dir"] = st.GGUFDir
	m["listen_port"] = st.ListenPort
	if len(st.Aliases) > 0 {
		m["aliases"] = st.Aliases
	}
	if st.HealthCheckTimeout != nil {
		m["healthCheckTimeout"] = *st.HealthCheckTimeout
	}
	if st.LogLevel != "" {
		m["logLevel"] = st.LogLevel
	}
	if st.StartPort != nil {
		m["startPort"] = *st.StartPort
	}
	if len(st.Macros) > 0 {
		m["macros"] = st.Macros
	}
	if st.Groups != nil {
		m["groups"] = st.Groups
	}
	return m
}

// decodeByExt unmarshals b into v based on the file extension.
// Supports: .yaml/.yml, .json, .toml
func decodeByExt(path string, b []byte, v any) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, v)
	case ".json":
		return json.Unmarshal(b, v)
	case ".toml":
		return toml.Unmarshal(b, v)
	default:
		return fmt.Errorf("unsupported config extension: %s", ext)
	}
}

func encodeByExt(path string, v any) ([]byte, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Marshal(v)
	case ".json":
		return json.MarshalIndent(v, "", "  ")
	case ".toml":
		return toml.Marshal(v)
	default:
		return nil, fmt.Errorf("unsupported config extension: %s", ext)
	}
}
