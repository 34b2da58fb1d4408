package config

// Config represents the complete hilfe configuration
type Config struct {
	BaseDir     string            `yaml:"-"` // Directory containing config file, for resolving relative paths
	Interpreter InterpreterConfig `yaml:"interpreter"`
	Output      OutputConfig      `yaml:"output"`
	Format      FormatConfig      `yaml:"format"`
	REPL        REPLConfig        `yaml:"repl"`
	Watch       WatchConfig       `yaml:"watch"`
}

// InterpreterConfig holds settings applied to every script run
type InterpreterConfig struct {
	Trace       bool `yaml:"trace"`        // Echo each statement to stderr before it runs
	StrictTypes bool `yaml:"strict_types"` // Check declared and captured types on every binding
}

// OutputConfig holds console settings
type OutputConfig struct {
	Verbosity string `yaml:"verbosity"` // quiet, normal, verbose
	Color     string `yaml:"color"`     // auto, always, never
}

// FormatConfig holds formatter settings
type FormatConfig struct {
	Extensions   StringOrSlice `yaml:"extensions"`    // File extensions visited when walking directories
	Disabled     []string      `yaml:"disabled"`      // Fixer names to skip
	FinalNewline bool          `yaml:"final_newline"` // Ensure files end with exactly one newline
}

// REPLConfig holds interactive prompt settings
type REPLConfig struct {
	History string `yaml:"history"` // History file; empty disables history
	Prompt  string `yaml:"prompt"`
}

// WatchConfig holds settings for `run -watch`
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms"` // Quiet period before a changed script is rerun
}

// StringOrSlice supports YAML fields that can be either a string or a slice of strings
type StringOrSlice []string

// UnmarshalYAML implements yaml.Unmarshaler to handle both string and []string
func (s *StringOrSlice) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*s = []string{single}
		return nil
	}

	var slice []string
	if err := unmarshal(&slice); err != nil {
		return err
	}
	*s = slice
	return nil
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Interpreter: InterpreterConfig{
			Trace:       false,
			StrictTypes: false,
		},
		Output: OutputConfig{
			Verbosity: "normal",
			Color:     "auto",
		},
		Format: FormatConfig{
			Extensions:   StringOrSlice{".hil"},
			FinalNewline: true,
		},
		REPL: REPLConfig{
			History: ".hilfe_history",
			Prompt:  "hilfe> ",
		},
		Watch: WatchConfig{
			DebounceMS: 100,
		},
	}
}
