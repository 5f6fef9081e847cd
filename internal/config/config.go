// internal/config/config.go
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	custom_errors "github-activity-mirror/internal/errors"
)

const defaultReposFile = "config.properties"

// Config holds all configuration for the application.
type Config struct {
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	DBURL             string        `mapstructure:"DB_URL" validate:"required"`
	GithubToken       string        `mapstructure:"GITHUB_TOKEN" validate:"required"`
	GithubBaseURL     string        `mapstructure:"GITHUB_BASE_URL" validate:"omitempty,url"`
	ReposFile         string        `mapstructure:"REPOS_FILE"`
	ReposToSync       []string      `mapstructure:"REPOS_TO_SYNC" validate:"min=1"`
	SyncInterval      time.Duration `mapstructure:"SYNC_INTERVAL" validate:"gte=0"`
	RetentionDays     int           `mapstructure:"RETENTION_DAYS" validate:"gt=0"`
	FetchConcurrency  int           `mapstructure:"FETCH_CONCURRENCY" validate:"gt=0"`
	RequestsPerSecond float64       `mapstructure:"REQUESTS_PER_SECOND" validate:"gte=0"`
	HTTPAddr          string        `mapstructure:"HTTP_ADDR"`
	Retention         time.Duration `mapstructure:"-"`
}

var keys = []string{
	"LOG_LEVEL", "DB_URL", "GITHUB_TOKEN", "GITHUB_BASE_URL", "REPOS_FILE", "REPOS_TO_SYNC",
	"SYNC_INTERVAL", "RETENTION_DAYS", "FETCH_CONCURRENCY", "REQUESTS_PER_SECOND", "HTTP_ADDR",
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	return Load(viper.GetViper())
}

// Load reads the configuration from v, which may already carry bound command-line flags.
func Load(v *viper.Viper) (*Config, error) {
	if err := prepare(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	repos, err := loadRepositories(cfg.ReposFile)
	if err != nil {
		return nil, err
	}
	cfg.ReposToSync = mergeRepositories(repos, cfg.ReposToSync)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	cfg.Retention = time.Duration(cfg.RetentionDays) * 24 * time.Hour

	return &cfg, nil
}

// LoadDatabaseURL reads only DB_URL, for commands that never talk to GitHub.
func LoadDatabaseURL() (string, error) {
	v := viper.GetViper()
	if err := prepare(v); err != nil {
		return "", err
	}
	dbURL := v.GetString("DB_URL")
	if dbURL == "" {
		return "", &custom_errors.ErrMissingConfig{Field: "DB_URL"}
	}
	return dbURL, nil
}

func prepare(v *viper.Viper) error {
	// Set default values
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REPOS_FILE", defaultReposFile)
	v.SetDefault("SYNC_INTERVAL", "0s")
	v.SetDefault("RETENTION_DAYS", 30)
	v.SetDefault("FETCH_CONCURRENCY", 5)
	v.SetDefault("REQUESTS_PER_SECOND", 0)

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if file not found

	// Bind environment variables. Unmarshal only sees keys viper already knows about.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return err
		}
	}
	return nil
}

// loadRepositories reads the repository list file. The default file may be absent.
func loadRepositories(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && path == defaultReposFile {
			return nil, nil
		}
		return nil, fmt.Errorf("open repository list: %w", err)
	}
	defer f.Close()

	return ReadRepositoryList(f)
}

// ReadRepositoryList parses a properties-style repository list: one "owner/name" per
// line, optionally followed by "=value", which is ignored. Blank lines and lines starting
// with '#' or '!' are skipped.
func ReadRepositoryList(r io.Reader) ([]string, error) {
	var repos []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		name, _, _ := strings.Cut(line, "=")
		if name = strings.TrimSpace(name); name != "" {
			repos = append(repos, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read repository list: %w", err)
	}
	return repos, nil
}

func mergeRepositories(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var merged []string
	for _, list := range lists {
		for _, r := range list {
			r = strings.TrimSpace(r)
			if r == "" {
				continue
			}
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			merged = append(merged, r)
		}
	}
	return merged
}
