package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v              *viper.Viper
	configFile     string
	envPrefix      string
	projectDir     string     // Resolved project root directory (set by Load)
	projectDirHint string     // Optional: override project root directory for path resolution
	resolvePaths   bool       // Whether to resolve relative paths to absolute on Load
	mu             sync.Mutex // Protects concurrent access to viper operations
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:            viper.New(),
		envPrefix:    "CADRE",
		resolvePaths: true,
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:            v,
		envPrefix:    "CADRE",
		resolvePaths: true,
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithProjectDir provides a project root directory hint for resolving relative paths.
// This is required for scenarios where the config file is not located under the project
// root (e.g. a global config shared by many projects).
func (l *Loader) WithProjectDir(path string) *Loader {
	l.projectDirHint = path
	return l
}

// WithResolvePaths controls whether relative paths are resolved to absolute paths on Load().
func (l *Loader) WithResolvePaths(resolve bool) *Loader {
	l.resolvePaths = resolve
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (CADRE_*)
// 3. Project config (.cadre/config.yaml - new location)
// 4. Legacy project config (.cadre.yaml - for backwards compatibility)
// 5. User config (~/.config/cadre/config.yaml)
// 6. Defaults
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		newConfigPath := filepath.Join(".cadre", "config.yaml")
		if _, err := os.Stat(newConfigPath); err == nil {
			l.v.SetConfigFile(newConfigPath)
		} else {
			l.v.SetConfigName(".cadre")
			l.v.SetConfigType("yaml")

			l.v.AddConfigPath(".")
			if home, err := os.UserHomeDir(); err == nil {
				l.v.AddConfigPath(filepath.Join(home, ".config", "cadre"))
			}
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// ignore
		} else if errors.Is(err, os.ErrNotExist) {
			// Explicit config file path does not exist: treat as "no config file".
		} else {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if configPath := l.v.ConfigFileUsed(); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			normalized, err := loadNormalizedConfigMap(configPath)
			if err != nil {
				return nil, fmt.Errorf("normalizing config: %w", err)
			}
			if len(normalized) > 0 {
				if err := l.v.MergeConfigMap(normalized); err != nil {
					return nil, fmt.Errorf("merging normalized config: %w", err)
				}
			}
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	projectDir := ""
	if configPath := l.v.ConfigFileUsed(); configPath != "" {
		absConfigPath, err := filepath.Abs(configPath)
		if err == nil {
			configDir := filepath.Dir(absConfigPath)
			// e.g., /project/.cadre/config.yaml -> /project/
			if filepath.Base(configDir) == ".cadre" {
				projectDir = filepath.Dir(configDir)
			} else {
				// Legacy .cadre.yaml in project root
				projectDir = configDir
			}
		}
	}
	if projectDir == "" {
		projectDir, _ = os.Getwd()
	}
	if strings.TrimSpace(l.projectDirHint) != "" {
		projectDir = l.projectDirHint
	}
	l.projectDir = projectDir
	if l.resolvePaths {
		l.resolveAbsolutePaths(&cfg, projectDir)
	}

	return &cfg, nil
}

// ProjectDir returns the resolved project root directory.
// This is the directory containing the .cadre/ config folder (or CWD as fallback).
// Available after Load() has been called.
func (l *Loader) ProjectDir() string {
	return l.projectDir
}

// resolveAbsolutePaths converts all relative paths in the config to absolute paths.
// Relative paths are resolved relative to baseDir (typically the config file's directory).
// This prevents issues when cadre is executed from different working directories.
func (l *Loader) resolveAbsolutePaths(cfg *Config, baseDir string) {
	if cfg.State.BaseDir != "" {
		cfg.State.BaseDir = resolvePathRelativeTo(cfg.State.BaseDir, baseDir)
	}
	if cfg.Git.WorktreeRoot != "" {
		cfg.Git.WorktreeRoot = resolvePathRelativeTo(cfg.Git.WorktreeRoot, baseDir)
	}
	if cfg.Log.File != "" {
		cfg.Log.File = resolvePathRelativeTo(cfg.Log.File, baseDir)
	}
}

// resolvePathRelativeTo converts a relative path to an absolute path using baseDir as the base.
// If the path is already absolute, it is returned unchanged.
func resolvePathRelativeTo(path, baseDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	// On Windows, filepath.IsAbs("/unix/path") returns false, but such paths
	// should still be treated as absolute.
	if len(path) > 0 && (path[0] == '/' || path[0] == '\\') {
		return path
	}
	return filepath.Join(baseDir, path)
}

func loadNormalizedConfigMap(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	normalizeLegacyConfigMap(raw)
	return raw, nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")
	l.v.SetDefault("log.file", "")

	l.v.SetDefault("fleet.max_parallel_issues", 3)
	l.v.SetDefault("fleet.max_parallel_agents", 1)
	l.v.SetDefault("fleet.max_retries_per_task", 2)
	l.v.SetDefault("fleet.agent_timeout", "20m")
	l.v.SetDefault("fleet.dry_run", false)

	l.v.SetDefault("agent.default", "claude")
	l.v.SetDefault("agent.claude.path", "claude")
	l.v.SetDefault("agent.claude.model", "")
	l.v.SetDefault("agent.copilot.path", "copilot")
	l.v.SetDefault("agent.copilot.model", "")

	l.v.SetDefault("budget.fleet_token_budget", 0)
	l.v.SetDefault("budget.per_issue_token_budget", 0)

	l.v.SetDefault("git.worktree_root", ".cadre/worktrees")
	l.v.SetDefault("git.base_branch", "")
	l.v.SetDefault("git.gpg_sign", false)

	l.v.SetDefault("github.provider", "github")
	l.v.SetDefault("github.remote", "origin")
	l.v.SetDefault("github.token", "")

	l.v.SetDefault("triage.min_severity", "medium")
	l.v.SetDefault("triage.max_issues_per_run", 5)
	l.v.SetDefault("triage.labels", []string{"triage"})

	l.v.SetDefault("state.base_dir", ".cadre/state")
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	if l.configFile != "" {
		return l.configFile
	}
	return l.v.ConfigFileUsed()
}

// Get returns a configuration value by key.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// Set sets a configuration value.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// IsSet checks if a key has been set.
func (l *Loader) IsSet(key string) bool {
	return l.v.IsSet(key)
}

// AllSettings returns all settings as a map.
func (l *Loader) AllSettings() map[string]interface{} {
	return l.v.AllSettings()
}
