// Package config provides configuration loading for the embeddable HTTP core.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment variables.
// If configFile is empty, it searches for corehttp.yaml/.yml in standard locations.
// The search requires an explicit YAML extension to avoid matching the binary itself,
// which Viper's built-in SetConfigName would match (same base name, no extension).
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file found in any standard location.
		// Set name/type without search paths so ReadInConfig returns
		// ConfigFileNotFoundError (handled gracefully by callers).
		viper.SetConfigName("corehttp")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: CORE_HTTP_SERVER_ADDR
	viper.SetEnvPrefix("CORE_HTTP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for a corehttp config file
// with an explicit YAML extension (.yaml or .yml). This prevents Viper from
// matching the binary "corehttpd" (no extension) in the current directory.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".corehttp"),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "corehttp"))
		}
	} else {
		paths = append(paths, "/etc/corehttp")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths searches the given directories for corehttp.yaml or .yml.
// Returns the full path of the first match, or empty string if none found.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "corehttp"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds all config keys for environment variable support.
// Example: CORE_HTTP_SERVER_ADDR overrides server.addr.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("server.addr")
	_ = viper.BindEnv("server.log_level")
	_ = viper.BindEnv("server.session_timeout")
	_ = viper.BindEnv("server.max_request_header_size")
	_ = viper.BindEnv("server.max_request_body_size")
	_ = viper.BindEnv("server.accept_per_core")
	_ = viper.BindEnv("server.reuse_port")

	_ = viper.BindEnv("jwt.secret")
	_ = viper.BindEnv("jwt.skew")
	_ = viper.BindEnv("jwt.issuer")

	_ = viper.BindEnv("static.root")
	_ = viper.BindEnv("static.url_prefix")
	_ = viper.BindEnv("static.auto_index")

	_ = viper.BindEnv("dev_mode")
}

// LoadConfig reads the configuration file, applies environment overrides,
// sets defaults, validates the result with cfg.Validate(), and returns the
// Config. CLI flag overrides applied by the caller afterwards are not
// validated by this function.
func LoadConfig() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars only.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was loaded.
// Returns an empty string if no config file was found (env vars only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
