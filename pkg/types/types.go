package types

// ModelRecord is one named model profile: a downloadable artifact bound to a
// set of serving-time arguments. One record per YAML file under the models dir.
type ModelRecord struct {
	// Repository the artifact is downloaded from.
	// example: Qwen/Qwen3-32B-GGUF
	SourceRepo string `yaml:"source_repo" json:"source_repo"`
	// Filename of the artifact inside the storage dir.
	// example: Qwen3-32B-Q4_K_M.gguf
	ArtifactFile string `yaml:"artifact_file" json:"artifact_file"`
	// Serving-time arguments; value "true" renders as a bare boolean flag.
	Args map[string]string `yaml:"args" json:"args"`
	// Optional upstream URL; its port is forwarded to the served binary.
	// example: http://127.0.0.1:9999
	Proxy string `yaml:"proxy,omitempty" json:"proxy,omitempty"`
	// Unrecognized top-level keys, carried through to the rendered document.
	Extra map[string]any `yaml:",inline" json:"-"`
}

// ModelEntry is one model's entry in the rendered supervisor document.
type ModelEntry struct {
	Cmd   string         `yaml:"cmd" json:"cmd"`
	Proxy string         `yaml:"proxy,omitempty" json:"proxy,omitempty"`
	Extra map[string]any `yaml:",inline" json:"-"`
}

// Document is the configuration document the external supervisor binary
// consumes. Regenerated whole on every render, never patched in place.
type Document struct {
	HealthCheckTimeout *int           `yaml:"healthCheckTimeout,omitempty"`
	LogLevel           string         `yaml:"logLevel,omitempty"`
	StartPort          *int           `yaml:"startPort,omitempty"`
	Macros             map[string]any `yaml:"macros,omitempty"`
	// Omitted entirely when no models are configured.
	Models map[string]ModelEntry `yaml:"models,omitempty"`
	// Always present, possibly empty.
	Groups map[string]any `yaml:"groups"`
}
