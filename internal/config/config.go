package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MemoryState selects an in-memory annotation store.
const MemoryState = ":memory:"

// DefaultSources are the boards the scrapers publish under.
var DefaultSources = []string{"Indeed", "LinkedIn", "Glassdoor", "Handshake", "BuiltIn", "Simplify"}

type Config struct {
	NodeID   string `yaml:"node_id"`
	HTTPPort int    `yaml:"http_port" validate:"min=1,max=65535"`

	DataDir    string `yaml:"data_dir" validate:"required"`
	StateDir   string `yaml:"state_dir"`
	CatalogURL string `yaml:"catalog_url" validate:"required"`

	DateLayout     string   `yaml:"date_layout" validate:"required"`
	DateTimeLayout string   `yaml:"datetime_layout" validate:"required"`
	Timezone       string   `yaml:"timezone" validate:"omitempty,timezone"`
	KnownSources   []string `yaml:"known_sources" validate:"dive,required"`

	AllowedOrigins []string `yaml:"allowed_origins" validate:"dive,required"`
}

func Default() *Config {
	return &Config{
		NodeID:         "node-default",
		HTTPPort:       8000,
		DataDir:        "data",
		StateDir:       "state",
		CatalogURL:     "../data/jobs_all.json",
		DateLayout:     "1/2/2006",
		DateTimeLayout: "1/2/2006, 3:04:05 PM",
		KnownSources:   append([]string(nil), DefaultSources...),
	}
}

// Load builds the configuration from defaults, the optional yaml file at path
// and the environment, in that order. A .env file in the working directory is
// read first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("yaml parse: %w", err)
		}
	}

	cfg.NodeID = getEnv("NODE_ID", cfg.NodeID)
	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.StateDir = getEnv("STATE_DIR", cfg.StateDir)
	cfg.CatalogURL = getEnv("CATALOG_URL", cfg.CatalogURL)
	cfg.Timezone = getEnv("TZ_NAME", cfg.Timezone)
	cfg.KnownSources = getEnvList("KNOWN_SOURCES", cfg.KnownSources)
	cfg.AllowedOrigins = getEnvList("ALLOWED_ORIGINS", cfg.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// InMemory reports whether annotations live only for the life of the process.
func (c *Config) InMemory() bool {
	return c.StateDir == "" || c.StateDir == MemoryState
}

// Location is the zone dates are shown in. It defaults to the server's local
// zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
