package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port  string `json:"port" yaml:"port" validate:"required,numeric"`
	Title string `json:"title" yaml:"title"`

	// RootURL — куда монтируется API страниц.
	RootURL   string `json:"rootUrl" yaml:"rootUrl" validate:"startswith=/"`
	PathStrip string `json:"pathStrip" yaml:"pathStrip" validate:"startswith=/"`
	// PathMode — как фронтенд передаёт путь страницы: append (/admin/users) или query (?path=/users).
	PathMode    string `json:"pathMode" yaml:"pathMode" validate:"oneof=append query"`
	PrebuiltURL string `json:"prebuiltUrl" yaml:"prebuiltUrl" validate:"omitempty,url"`

	DSLDir   string `json:"dslDir" yaml:"dslDir"`
	EnumsDir string `json:"enumsDir" yaml:"enumsDir"`

	DBDriver     string `json:"dbDriver" yaml:"dbDriver" validate:"oneof=sqlite mysql"`
	DBURL        string `json:"dbUrl" yaml:"dbUrl"`
	PGURL        string `json:"pgUrl" yaml:"pgUrl"`
	CreateTables bool   `json:"createTables" yaml:"createTables"`

	CacheModels bool `json:"cacheModels" yaml:"cacheModels"`
	CacheInfo   bool `json:"cacheInfo" yaml:"cacheInfo"`

	LogLevel  string `json:"logLevel" yaml:"logLevel" validate:"oneof=debug info warn error"`
	LogFormat string `json:"logFormat" yaml:"logFormat" validate:"oneof=text json"`
}

func Default() Config {
	return Config{
		Port:        "8080",
		Title:       "Admin",
		RootURL:     "/admin",
		PathStrip:   "/prebuilt",
		PathMode:    "append",
		PrebuiltURL: "https://cdn.jsdelivr.net/npm/@pydantic/fastui-prebuilt@0.0.26/dist/assets",
		DSLDir:      "dsl",
		EnumsDir:    "reference/enums",
		DBDriver:    "sqlite",
		DBURL:       "adminkit.db",
		CacheModels: true,
		CacheInfo:   true,
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// Load читает файл (YAML по расширению .yaml/.yml, иначе JSON) поверх значений
// по умолчанию и применяет ADMINKIT_* из окружения. Пустой path — только defaults и env.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(b, &cfg)
		default:
			err = json.Unmarshal(b, &cfg)
		}
		if err != nil {
			return cfg, fmt.Errorf("parsing config file: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func getenv(k, fallback string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getenvBool(k string, fallback bool) bool {
	if v, ok := os.LookupEnv(k); ok {
		switch strings.TrimSpace(strings.ToLower(v)) {
		case "1", "true", "yes":
			return true
		case "0", "false", "no":
			return false
		}
	}
	return fallback
}

func (c *Config) applyEnv() {
	c.Port = getenv("ADMINKIT_PORT", c.Port)
	c.Title = getenv("ADMINKIT_TITLE", c.Title)
	c.RootURL = getenv("ADMINKIT_ROOT_URL", c.RootURL)
	c.PathStrip = getenv("ADMINKIT_PATH_STRIP", c.PathStrip)
	c.PathMode = getenv("ADMINKIT_PATH_MODE", c.PathMode)
	c.PrebuiltURL = getenv("ADMINKIT_PREBUILT_URL", c.PrebuiltURL)
	c.DSLDir = getenv("ADMINKIT_DSL_DIR", c.DSLDir)
	c.EnumsDir = getenv("ADMINKIT_ENUMS_DIR", c.EnumsDir)
	c.DBDriver = getenv("ADMINKIT_DB_DRIVER", c.DBDriver)
	c.DBURL = getenv("ADMINKIT_DB_URL", c.DBURL)
	c.PGURL = getenv("ADMINKIT_PG_URL", c.PGURL)
	c.CreateTables = getenvBool("ADMINKIT_CREATE_TABLES", c.CreateTables)
	c.CacheModels = getenvBool("ADMINKIT_CACHE_MODELS", c.CacheModels)
	c.CacheInfo = getenvBool("ADMINKIT_CACHE_INFO", c.CacheInfo)
	c.LogLevel = getenv("ADMINKIT_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getenv("ADMINKIT_LOG_FORMAT", c.LogFormat)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Flags — переопределения из командной строки. Применяются только флаги,
// заданные явно, поэтому значения из файла и окружения не затираются.
type Flags struct {
	fs  *pflag.FlagSet
	val Config
}

func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	d := Default()
	fs.StringVar(&f.val.Port, "port", d.Port, "HTTP port")
	fs.StringVar(&f.val.Title, "title", d.Title, "Admin title")
	fs.StringVar(&f.val.RootURL, "root-url", d.RootURL, "Mount path of the page API")
	fs.StringVar(&f.val.PathMode, "path-mode", d.PathMode, "Frontend path mode (append/query)")
	fs.StringVar(&f.val.DSLDir, "dsl", d.DSLDir, "Path to DSL directory")
	fs.StringVar(&f.val.EnumsDir, "enums", d.EnumsDir, "Path to enums directory")
	fs.StringVar(&f.val.DBDriver, "db-driver", d.DBDriver, "gorm driver (sqlite/mysql)")
	fs.StringVar(&f.val.DBURL, "db", d.DBURL, "gorm DSN")
	fs.StringVar(&f.val.PGURL, "pg", d.PGURL, "Postgres URL for the pgx pool (empty = no pool)")
	fs.BoolVar(&f.val.CreateTables, "create-tables", d.CreateTables, "Create missing tables on start")
	fs.StringVar(&f.val.LogLevel, "log-level", d.LogLevel, "Log level (debug/info/warn/error)")
	fs.StringVar(&f.val.LogFormat, "log-format", d.LogFormat, "Log format (text/json)")
	return f
}

func (f *Flags) Apply(cfg *Config) {
	str := func(name string, dst *string, v string) {
		if f.fs.Changed(name) {
			*dst = strings.TrimSpace(v)
		}
	}
	str("port", &cfg.Port, f.val.Port)
	str("title", &cfg.Title, f.val.Title)
	str("root-url", &cfg.RootURL, f.val.RootURL)
	str("path-mode", &cfg.PathMode, f.val.PathMode)
	str("dsl", &cfg.DSLDir, f.val.DSLDir)
	str("enums", &cfg.EnumsDir, f.val.EnumsDir)
	str("db-driver", &cfg.DBDriver, f.val.DBDriver)
	str("db", &cfg.DBURL, f.val.DBURL)
	str("pg", &cfg.PGURL, f.val.PGURL)
	str("log-level", &cfg.LogLevel, f.val.LogLevel)
	str("log-format", &cfg.LogFormat, f.val.LogFormat)
	if f.fs.Changed("create-tables") {
		cfg.CreateTables = f.val.CreateTables
	}
}

// Logger строит slog.Logger по LogLevel и LogFormat.
func (c Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
