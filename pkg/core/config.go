// pkg/core/config.go
package core

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultCompressionLevel is the deflate level used for generated IPAs
const DefaultCompressionLevel = 6

// Config holds zule configuration
type Config struct {
	CacheDir         string      `yaml:"cache_dir"`
	CacheRepo        string      `yaml:"cache_repo"`
	CacheBranch      string      `yaml:"cache_branch"`
	ScratchDir       string      `yaml:"scratch_dir"`
	CompressionLevel int         `yaml:"compression_level"`
	KeepScratch      bool        `yaml:"keep_scratch"`
	Debug            bool        `yaml:"debug"`
	Tools            ToolsConfig `yaml:"tools"`
}

// ToolsConfig points at the external binary-editing tools
type ToolsConfig struct {
	Ldid            string `yaml:"ldid"`
	InstallNameTool string `yaml:"install_name_tool"`
	InsertDylib     string `yaml:"insert_dylib"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		CacheDir:         getDefaultCacheDir(),
		CacheBranch:      "main",
		CompressionLevel: DefaultCompressionLevel,
		Tools: ToolsConfig{
			Ldid:            "ldid",
			InstallNameTool: "install_name_tool",
			InsertDylib:     "insert_dylib",
		},
	}
}

// LoadConfig loads configuration from file. Fields absent from the file keep
// their default values.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = defaultConfigPath()
		if err != nil {
			return DefaultConfig(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.CompressionLevel < 1 || cfg.CompressionLevel > 9 {
		return nil, fmt.Errorf("parsing config: compression_level %d out of range 1-9", cfg.CompressionLevel)
	}

	return cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = defaultConfigPath()
		if err != nil {
			return err
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "zule", "config.yaml"), nil
}

func getDefaultCacheDir() string {
	if path := os.Getenv("ZULE_CACHE_DIR"); path != "" {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".zxcvbn")
	}

	return filepath.Join(home, ".zxcvbn")
}
