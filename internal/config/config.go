package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Listen string `yaml:"listen"`
}

type Storage struct {
	// Backend is one of memory, duckdb or sqlite.
	Backend      string `yaml:"backend"`
	DBPath       string `yaml:"db_path"`
	SnapshotPath string `yaml:"snapshot_path"`
	Restore      bool   `yaml:"restore"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Events struct {
	DBPath            string `yaml:"db_path"`
	Dir               string `yaml:"dir"`
	RetainInDB        bool   `yaml:"retain_in_db"`
	PopulateFromFiles bool   `yaml:"populate_from_files"`
}

type Config struct {
	HTTP    HTTP    `yaml:"http"`
	Storage Storage `yaml:"storage"`
	Log     Log     `yaml:"log"`
	Events  Events  `yaml:"events"`
}

const (
	BackendMemory = "memory"
	BackendDuckDB = "duckdb"
	BackendSQLite = "sqlite"
)

func Default() Config {
	return Config{
		HTTP:    HTTP{Listen: ":8080"},
		Storage: Storage{Backend: BackendMemory},
		Log:     Log{Level: "info", Format: "json"},
		Events:  Events{DBPath: ":memory:", RetainInDB: true},
	}
}

// Load builds the configuration from defaults, the YAML file at path (when
// path is not empty), a dotenv file and finally the process environment.
// envFiles defaults to ".env"; missing dotenv files are ignored.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		c.HTTP.Listen = ":" + port
	}
	setString(&c.HTTP.Listen, "RACKS_LISTEN")
	setString(&c.Storage.Backend, "RACKS_STORAGE")
	setString(&c.Storage.DBPath, "RACKS_DB_PATH")
	setString(&c.Storage.SnapshotPath, "RACKS_SNAPSHOT_PATH")
	setString(&c.Log.Level, "RACKS_LOG_LEVEL")
	setString(&c.Log.Format, "RACKS_LOG_FORMAT")
	setString(&c.Events.DBPath, "RACKS_EVENTS_DB")
	setString(&c.Events.Dir, "RACKS_EVENTS_DIR")

	if v := os.Getenv("RACKS_RESTORE"); v != "" {
		restore, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RACKS_RESTORE: %w", err)
		}
		c.Storage.Restore = restore
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

// Validate rejects unknown backends, log levels and log formats.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendDuckDB, BackendSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q (want memory, duckdb or sqlite)", c.Storage.Backend)
	}
	if c.Storage.Backend == BackendSQLite && c.Storage.DBPath == "" {
		return fmt.Errorf("storage backend sqlite needs db_path")
	}
	if c.Storage.Restore && c.Storage.SnapshotPath == "" {
		return fmt.Errorf("restore needs snapshot_path")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q (want json or console)", c.Log.Format)
	}
	if strings.TrimSpace(c.HTTP.Listen) == "" {
		return fmt.Errorf("http listen address is empty")
	}
	return nil
}
