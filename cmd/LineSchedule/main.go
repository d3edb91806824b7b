package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BTreeMap/LineSchedule/internal/api"
	"github.com/BTreeMap/LineSchedule/internal/genai"
	"github.com/BTreeMap/LineSchedule/internal/lockfile"
	"github.com/BTreeMap/LineSchedule/internal/messaging"
	"github.com/BTreeMap/LineSchedule/internal/report"
	"github.com/BTreeMap/LineSchedule/internal/store"
	"github.com/BTreeMap/LineSchedule/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for LineSchedule state data
	DefaultStateDir = "/var/lib/lineschedule"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "schedule.db"
	// InMemoryDSN selects the in-memory store instead of a database
	InMemoryDSN = "memory"
)

func main() {
	// Debug until LOG_LEVEL is known
	initializeLogger(slog.LevelDebug)

	config := loadEnvironmentConfig()
	initializeLogger(parseLogLevel(config.LogLevel))

	flags := parseCommandLineFlags(config, os.Args[1:])

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	msgOpts := buildMessagingOptions(flags)
	apiOpts := buildAPIOptions(flags)

	slog.Info("Bootstrapping LineSchedule with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "genai", len(genaiOpts), "messaging", len(msgOpts), "api", len(apiOpts))
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr)
	if err := api.Run(storeOpts, genaiOpts, msgOpts, apiOpts); err != nil {
		var lockErr *lockfile.LockError
		if errors.As(err, &lockErr) {
			slog.Error("LineSchedule state directory is in use", "error", err)
		} else {
			slog.Error("LineSchedule failed to run", "error", err)
		}
		os.Exit(1)
	}
	slog.Info("LineSchedule exited successfully")
}

// Config holds environment configuration
type Config struct {
	ChannelAccessToken string
	ChannelSecret      string
	LineEndpoint       string
	DatabaseURL        string
	StateDir           string
	OpenAIKey          string
	OpenAIModel        string
	GenAIDebug         bool
	APIAddr            string
	QueryTrigger       string
	ReportTrigger      string
	ReportTimeout      time.Duration
	SnapshotEnabled    bool
	OutboxEnabled      bool
	LogLevel           string
}

// Flags holds command line flag values
type Flags struct {
	stateDir      *string
	dbDSN         *string
	channelSecret *string
	channelToken  *string
	lineEndpoint  *string
	openaiKey     *string
	openaiModel   *string
	genaiDebug    *bool
	apiAddr       *string
	queryTrigger  *string
	reportTrigger *string
	reportTimeout *time.Duration
	snapshot      *bool
	outbox        *bool
}

// initializeLogger sets up structured logging at the given level
func initializeLogger(level slog.Level) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// parseLogLevel maps LOG_LEVEL (debug, info, warn, error) to a slog level, defaulting to debug
func parseLogLevel(value string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return slog.LevelDebug
	}
	return level
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		ChannelAccessToken: os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"),
		ChannelSecret:      os.Getenv("LINE_CHANNEL_SECRET"),
		LineEndpoint:       os.Getenv("LINE_API_ENDPOINT"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		StateDir:           os.Getenv("LINESCHEDULE_STATE_DIR"),
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        os.Getenv("OPENAI_MODEL"),
		GenAIDebug:         util.ParseBoolEnv("GENAI_DEBUG", false),
		APIAddr:            os.Getenv("API_ADDR"),
		QueryTrigger:       os.Getenv("QUERY_TRIGGER"),
		ReportTrigger:      os.Getenv("REPORT_TRIGGER"),
		ReportTimeout:      util.ParseDurationEnv("REPORT_TIMEOUT", report.DefaultTimeout),
		SnapshotEnabled:    util.ParseBoolEnv("SNAPSHOT_ENABLED", false),
		OutboxEnabled:      util.ParseBoolEnv("OUTBOX_ENABLED", true),
		LogLevel:           os.Getenv("LOG_LEVEL"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No LINESCHEDULE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// Platforms that assign a port export PORT rather than a full address
	if config.APIAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			config.APIAddr = ":" + port
		}
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"LINE_CHANNEL_ACCESS_TOKEN_SET", config.ChannelAccessToken != "",
		"LINE_CHANNEL_SECRET_SET", config.ChannelSecret != "",
		"LINE_API_ENDPOINT", config.LineEndpoint,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"LINESCHEDULE_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENAI_MODEL", config.OpenAIModel,
		"API_ADDR", config.APIAddr,
		"REPORT_TIMEOUT", config.ReportTimeout,
		"SNAPSHOT_ENABLED", config.SnapshotEnabled,
		"OUTBOX_ENABLED", config.OutboxEnabled)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config, args []string) Flags {
	fs := flag.NewFlagSet("LineSchedule", flag.ExitOnError)
	flags := Flags{
		stateDir:      fs.String("state-dir", config.StateDir, "state directory for LineSchedule data (overrides $LINESCHEDULE_STATE_DIR)"),
		dbDSN:         fs.String("db-dsn", config.DatabaseURL, "database DSN, SQLite path or Postgres URL, \"memory\" for no database (overrides $DATABASE_URL)"),
		channelSecret: fs.String("channel-secret", config.ChannelSecret, "LINE channel secret (overrides $LINE_CHANNEL_SECRET)"),
		channelToken:  fs.String("channel-token", config.ChannelAccessToken, "LINE channel access token (overrides $LINE_CHANNEL_ACCESS_TOKEN)"),
		lineEndpoint:  fs.String("line-endpoint", config.LineEndpoint, "LINE Messaging API base URL (overrides $LINE_API_ENDPOINT)"),
		openaiKey:     fs.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel:   fs.String("openai-model", config.OpenAIModel, "OpenAI model for reports (overrides $OPENAI_MODEL)"),
		genaiDebug:    fs.Bool("genai-debug", config.GenAIDebug, "log OpenAI requests under <state-dir>/debug (overrides $GENAI_DEBUG)"),
		apiAddr:       fs.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR or $PORT)"),
		queryTrigger:  fs.String("query-trigger", config.QueryTrigger, "phrase that lists a day's entries (overrides $QUERY_TRIGGER)"),
		reportTrigger: fs.String("report-trigger", config.ReportTrigger, "phrase that generates a daily report (overrides $REPORT_TRIGGER)"),
		reportTimeout: fs.Duration("report-timeout", config.ReportTimeout, "deadline for report generation (overrides $REPORT_TIMEOUT)"),
		snapshot:      fs.Bool("snapshot", config.SnapshotEnabled, "write a JSON snapshot after each saved entry (overrides $SNAPSHOT_ENABLED)"),
		outbox:        fs.Bool("outbox", config.OutboxEnabled, "retry failed picker pushes (overrides $OUTBOX_ENABLED)"),
	}

	fs.Parse(args)

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"channelSecretSet", *flags.channelSecret != "",
		"channelTokenSet", *flags.channelToken != "",
		"openaiKeySet", *flags.openaiKey != "",
		"openaiModel", *flags.openaiModel,
		"apiAddr", *flags.apiAddr,
		"reportTimeout", *flags.reportTimeout,
		"snapshot", *flags.snapshot,
		"outbox", *flags.outbox)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if err := os.MkdirAll(*flags.stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", *flags.stateDir)
		return err
	}
	dsn := *flags.dbDSN
	if dsn == InMemoryDSN || store.DetectDSNType(dsn) == "postgres" {
		return nil
	}
	dbDir := filepath.Dir(strings.TrimPrefix(dsn, "file:"))
	slog.Debug("Creating directory for file-based database", "db_dir", dbDir)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		slog.Error("Failed to create database directory", "error", err, "db_dir", dbDir)
		return err
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	switch dsn := *flags.dbDSN; {
	case dsn == "" || dsn == InMemoryDSN:
		slog.Debug("No database DSN provided, will use in-memory store")
	case store.DetectDSNType(dsn) == "postgres":
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
		storeOpts = append(storeOpts, store.WithPostgresDSN(dsn))
	default:
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", dsn)
		storeOpts = append(storeOpts, store.WithSQLiteDSN(dsn))
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.openaiModel))
	}
	if *flags.genaiDebug {
		genaiOpts = append(genaiOpts, genai.WithDebugMode(*flags.stateDir))
	}
	return genaiOpts
}

// buildMessagingOptions constructs LINE messaging configuration options
func buildMessagingOptions(flags Flags) []messaging.Option {
	var msgOpts []messaging.Option
	if *flags.lineEndpoint != "" {
		msgOpts = append(msgOpts, messaging.WithEndpoint(*flags.lineEndpoint))
	}
	return msgOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	apiOpts := []api.Option{
		api.WithChannelSecret(*flags.channelSecret),
		api.WithChannelAccessToken(*flags.channelToken),
		api.WithStateDir(*flags.stateDir),
		api.WithTriggers(*flags.queryTrigger, *flags.reportTrigger),
		api.WithReportTimeout(*flags.reportTimeout),
		api.WithSnapshot(*flags.snapshot),
		api.WithOutbox(*flags.outbox),
	}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}
