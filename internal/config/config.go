package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tidwall/jsonc"
)

// ConfigFileEnv names an optional JSONC file overlaid on the environment.
const ConfigFileEnv = "NEXTPM_CONFIG"

type Config struct {
	Addr     string `json:"addr"`
	SpecsDir string `json:"specs_dir"`
	OutDir   string `json:"out_dir"`
	RepoDir  string `json:"repo_dir"`
	// IndexSource and TimelineSource override the documents the server
	// reads; empty means the build output in OutDir.
	IndexSource    string `json:"index_source"`
	TimelineSource string `json:"timeline_source"`
	GitHubRepo     string `json:"github_repo"`
	SpecPattern    string `json:"spec_pattern"`
	// Users: a users file wins over the inline JSON table.
	UsersFile       string `json:"users_file"`
	BasicAuthUsers  string `json:"basic_auth_users"`
	CORSOrigin      string `json:"cors_origin"`
	HostPage        string `json:"host_page"`
	LogLevel        string `json:"log_level"`
	WatchDebounceMS int    `json:"watch_debounce_ms"`
}

func Load() Config {
	return Config{
		Addr:            getenv("NEXTPM_ADDR", ":8002"),
		SpecsDir:        getenv("NEXTPM_SPECS_DIR", "project/specs"),
		OutDir:          getenv("NEXTPM_OUT_DIR", "site"),
		RepoDir:         getenv("NEXTPM_REPO_DIR", "."),
		IndexSource:     getenv("NEXTPM_INDEX_SOURCE", ""),
		TimelineSource:  getenv("NEXTPM_TIMELINE_SOURCE", ""),
		GitHubRepo:      getenv("NEXTPM_GITHUB_REPO", "kangxh75/NextPM"),
		SpecPattern:     getenv("NEXTPM_SPEC_PATTERN", "*.md"),
		UsersFile:       getenv("NEXTPM_USERS_FILE", ""),
		BasicAuthUsers:  getenv("BASIC_AUTH_USERS", ""),
		CORSOrigin:      getenv("NEXTPM_CORS_ORIGIN", "*"),
		HostPage:        getenv("NEXTPM_HOST_PAGE", ""),
		LogLevel:        getenv("NEXTPM_LOG_LEVEL", "info"),
		WatchDebounceMS: getenvInt("NEXTPM_WATCH_DEBOUNCE_MS", 500),
	}
}

// LoadWithFile is Load overlaid by the JSONC file at path. Keys absent
// from the file keep their environment value; an empty path is a no-op.
func LoadWithFile(path string) (Config, error) {
	cfg := Load()
	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// WatchDebounce is the watcher's quiet period.
func (c Config) WatchDebounce() time.Duration {
	if c.WatchDebounceMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.WatchDebounceMS) * time.Millisecond
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
