package config

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level      string `yaml:"level" toml:"level" json:"level,omitempty"`             // debug, info, warn, error
	DebugMode  bool   `yaml:"debug_mode" toml:"debug_mode" json:"debug_mode,omitempty"` // master toggle; false = no log files
	JSONFormat bool   `yaml:"json_format" toml:"json_format" json:"json_format,omitempty"`
}
