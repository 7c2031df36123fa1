package config

import (
	"strings"

	"github.com/rpattn/placement-timeline/internal/db"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. TIMELINE_FILES_COMPANIES.
const EnvPrefix = "TIMELINE"

// Files names the inputs and outputs of the two merge runs.
type Files struct {
	Companies string
	Timeline  string
	Merged    string
	Events    string
	Updated   string
}

// Output controls how merged datasets are serialised.
type Output struct {
	Indent            int
	EscapeASCIIUpdate bool
}

// Log configures the process logger.
type Log struct {
	Level  string
	Format string
}

// Database extends the connection settings with an enable switch; the store is optional.
type Database struct {
	db.Config
	Enabled bool
}

// Server configures serve mode.
type Server struct {
	Addr           string
	AllowedOrigins []string
}

// Config is the full tool configuration.
type Config struct {
	Files     Files
	Output    Output
	SortMode  string
	Log       Log
	Database  Database
	Server    Server
	ExportDir string
}

// Default returns the configuration used when no file or environment override is present.
func Default() Config {
	return Config{
		Files: Files{
			Companies: "linked_company_details.json",
			Timeline:  "linked_timeline.json",
			Merged:    "merged_company_data.json",
			Events:    "data/new_events.json",
			Updated:   "updated_merged_company_data.json",
		},
		Output:   Output{Indent: 4, EscapeASCIIUpdate: true},
		SortMode: "lexical",
		Log:      Log{Level: "info", Format: "text"},
		Database: Database{Config: db.DefaultConfig()},
		Server: Server{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		ExportDir: "exports",
	}
}

// Load reads config.yaml from configPath (when present) and applies TIMELINE_* environment
// overrides on top of Default.
func Load(configPath string, logger *logrus.Logger) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		if logger != nil {
			logger.Debug("No config.yaml found, using defaults and env vars")
		}
	} else if logger != nil {
		logger.WithField("file", v.ConfigFileUsed()).Debug("Loaded config.yaml")
	}

	if v.IsSet("files.companies") {
		cfg.Files.Companies = v.GetString("files.companies")
	}
	if v.IsSet("files.timeline") {
		cfg.Files.Timeline = v.GetString("files.timeline")
	}
	if v.IsSet("files.merged") {
		cfg.Files.Merged = v.GetString("files.merged")
	}
	if v.IsSet("files.events") {
		cfg.Files.Events = v.GetString("files.events")
	}
	if v.IsSet("files.updated") {
		cfg.Files.Updated = v.GetString("files.updated")
	}

	if v.IsSet("output.indent") {
		cfg.Output.Indent = v.GetInt("output.indent")
	}
	if v.IsSet("output.escape_ascii_update") {
		cfg.Output.EscapeASCIIUpdate = v.GetBool("output.escape_ascii_update")
	}
	if v.IsSet("sort.mode") {
		cfg.SortMode = v.GetString("sort.mode")
	}

	if v.IsSet("log.level") {
		cfg.Log.Level = v.GetString("log.level")
	}
	if v.IsSet("log.format") {
		cfg.Log.Format = v.GetString("log.format")
	}

	if v.IsSet("database.enabled") {
		cfg.Database.Enabled = v.GetBool("database.enabled")
	}
	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}

	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = splitList(v.GetStringSlice("server.allowed_origins"))
	}
	if v.IsSet("export.dir") {
		cfg.ExportDir = v.GetString("export.dir")
	}

	return cfg, nil
}

var keys = []string{
	"files.companies", "files.timeline", "files.merged", "files.events", "files.updated",
	"output.indent", "output.escape_ascii_update",
	"sort.mode",
	"log.level", "log.format",
	"database.enabled", "database.host", "database.port", "database.user",
	"database.password", "database.dbname", "database.sslmode",
	"server.addr", "server.allowed_origins",
	"export.dir",
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
