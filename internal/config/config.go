package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultPort         = 8080
	defaultDriver       = DriverSQLite
	defaultDBPath       = "todo.db"
	defaultLogLevel     = "info"
	defaultLogFormat    = "text"
	defaultLogMaxSizeMB = 10
	defaultLogMaxFiles  = 5
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// EnvConfigPath names the variable consulted when no --config flag is given.
const EnvConfigPath = "TODO_CONFIG"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Server   Server   `toml:"server"`
	Database Database `toml:"database"`
	Logging  Logging  `toml:"logging"`
}

type Server struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr is the listen address handed to http.Server.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type Database struct {
	Driver string `toml:"driver"`
	// Path is the SQLite file. Ignored for postgres.
	Path string `toml:"path"`
	// DSN wins over the discrete postgres fields when set.
	DSN      string `toml:"dsn"`
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	Schema   string `toml:"schema"`
}

type Logging struct {
	Level     string `toml:"level"`
	Format    string `toml:"format"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

type LoadOptions struct {
	ConfigPath string
	// Env replaces the process environment when non-nil.
	Env map[string]string
}

func DefaultConfig() Config {
	return Config{
		Server: Server{
			Port: defaultPort,
		},
		Database: Database{
			Driver: defaultDriver,
			Path:   defaultDBPath,
		},
		Logging: Logging{
			Level:     defaultLogLevel,
			Format:    defaultLogFormat,
			MaxSizeMB: defaultLogMaxSizeMB,
			MaxFiles:  defaultLogMaxFiles,
		},
	}
}

// Load layers defaults, the optional TOML file and the environment, then
// validates the result.
func Load(opts LoadOptions) (Config, error) {
	cfg := DefaultConfig()
	env := envLookup(opts.Env)

	path := opts.ConfigPath
	if path == "" {
		path, _ = env(EnvConfigPath)
	}
	if err := loadFile(path, &cfg); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg, env); err != nil {
		return Config{}, err
	}
	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envLookup(env map[string]string) func(string) (string, bool) {
	if env == nil {
		return os.LookupEnv
	}
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func loadFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}
	// Decoding over cfg keeps defaults for keys the file leaves out.
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: parse TOML file %q: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

func applyEnv(cfg *Config, env func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"HOST", &cfg.Server.Host},
		{"DB_DRIVER", &cfg.Database.Driver},
		{"DB_PATH", &cfg.Database.Path},
		{"DATABASE_URL", &cfg.Database.DSN},
		{"BLUEPRINT_DB_HOST", &cfg.Database.Host},
		{"BLUEPRINT_DB_PORT", &cfg.Database.Port},
		{"BLUEPRINT_DB_USERNAME", &cfg.Database.Username},
		{"BLUEPRINT_DB_PASSWORD", &cfg.Database.Password},
		{"BLUEPRINT_DB_DATABASE", &cfg.Database.Name},
		{"BLUEPRINT_DB_SCHEMA", &cfg.Database.Schema},
		{"LOG_LEVEL", &cfg.Logging.Level},
		{"LOG_FORMAT", &cfg.Logging.Format},
		{"LOG_FILE", &cfg.Logging.File},
	}
	for _, s := range strs {
		if v, ok := env(s.key); ok && v != "" {
			*s.dst = v
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"PORT", &cfg.Server.Port},
		{"LOG_MAX_SIZE_MB", &cfg.Logging.MaxSizeMB},
		{"LOG_MAX_FILES", &cfg.Logging.MaxFiles},
	}
	for _, i := range ints {
		v, ok := env(i.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, i.key, v)
		}
		*i.dst = n
	}
	return nil
}

func validate(cfg Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, cfg.Server.Port)
	}

	switch cfg.Database.Driver {
	case DriverSQLite:
		if cfg.Database.Path == "" {
			return fmt.Errorf("%w: database path must not be empty for sqlite", ErrInvalidConfig)
		}
	case DriverPostgres:
		if cfg.Database.DSN == "" && cfg.Database.Host == "" {
			return fmt.Errorf("%w: postgres needs a dsn or a host", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalidConfig, cfg.Database.Driver)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, cfg.Logging.Format)
	}
	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxFiles < 0 {
		return fmt.Errorf("%w: log rotation limits must not be negative", ErrInvalidConfig)
	}
	return nil
}
