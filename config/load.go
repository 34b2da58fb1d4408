package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sambeau/hilfe/pkg/hilfe/errors"
)

// FileName is the config file looked for in the working directory.
const FileName = ".hilfe.yaml"

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations and falls back to
// Defaults when no file exists.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, getenv)
	return cfg, err
}

// LoadWithPath reads configuration and returns both the config and the resolved path.
// The path is empty when no config file was found.
func LoadWithPath(configPath string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		cfg := Defaults()
		if wd, err := os.Getwd(); err == nil {
			cfg.BaseDir = wd
		}
		cfg.REPL.History = homeHistory()
		return cfg, "", nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
	}
	baseDir := filepath.Dir(absPath)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.BaseDir = baseDir

	// Resolve relative history path
	if cfg.REPL.History != "" && !filepath.IsAbs(cfg.REPL.History) {
		cfg.REPL.History = filepath.Join(baseDir, cfg.REPL.History)
	}

	if err := Validate(cfg); err != nil {
		return nil, "", err
	}

	return cfg, absPath, nil
}

// Validate checks enumerated settings. Every invalid value is reported as a
// CONFIG-0001 error; several are joined together.
func Validate(cfg *Config) error {
	var errs []error

	check := func(key, value string, valid ...string) {
		for _, v := range valid {
			if value == v {
				return
			}
		}
		errs = append(errs, errors.New("CONFIG-0001", map[string]any{
			"Key":   key,
			"Value": fmt.Sprintf("%q", value),
			"Valid": strings.Join(valid, ", "),
		}))
	}

	check("output.verbosity", cfg.Output.Verbosity, "quiet", "normal", "verbose")
	check("output.color", cfg.Output.Color, "auto", "always", "never")

	for i, ext := range cfg.Format.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			errs = append(errs, errors.New("CONFIG-0001", map[string]any{
				"Key":   fmt.Sprintf("format.extensions[%d]", i),
				"Value": fmt.Sprintf("%q", ext),
				"Valid": "an extension starting with '.'",
			}))
		}
	}

	if cfg.Watch.DebounceMS < 0 {
		errs = append(errs, errors.New("CONFIG-0001", map[string]any{
			"Key":   "watch.debounce_ms",
			"Value": cfg.Watch.DebounceMS,
			"Valid": "zero or a positive number of milliseconds",
		}))
	}

	return stderrors.Join(errs...)
}

// homeHistory is the history file used without a config file. History is
// disabled when there is no home directory.
func homeHistory() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".hilfe_history")
}

// resolveConfigPath finds the config file to use.
// Search order: explicit path > HILFE_CONFIG env > ./.hilfe.yaml > ~/.config/hilfe/config.yaml
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	if envPath := getenv("HILFE_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("HILFE_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}

	if _, err := os.Stat(FileName); err == nil {
		return FileName, nil
	}

	home, err := os.UserHomeDir()
	if err == nil {
		xdgPath := filepath.Join(home, ".config", "hilfe", "config.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", nil
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := string(parts[1])
		value := getenv(varName)

		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}

		return []byte(value)
	})
}
