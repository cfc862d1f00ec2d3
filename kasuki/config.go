//nolint:lll // struct tags can't be split
package kasuki

import (
	"github.com/bwmarrin/discordgo"
	"github.com/gin-contrib/cors"
	"log/slog"
	"net/http"
	"time"
)

const (
	EnvvarSetEnvPrefix     = "KASUKI_ENV_PREFIX"
	DefaultEnvPrefix       = "KASUKI"
	DefaultDatabaseType    = "sqlite"
	DefaultDatabase        = "kasuki.sqlite3"
	DefaultLogLevel        = slog.LevelInfo
	DefaultStartupTimeout  = 30 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultHTTPTimeout     = 30 * time.Second

	DefaultDatabaseSlowThreshold = 200 * time.Millisecond
	DefaultDatabaseLogLevel      = slog.LevelWarn
	DefaultDatabaseMaxConns      = 10

	DefaultDiscordLogLevel      = slog.LevelInfo
	DefaultDiscordgoLogLevel    = slog.LevelWarn
	DefaultDiscordGatewayIntent = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	DefaultDiscordCustomStatus  = "/anilist_user anime"

	DefaultAnilistEndpoint          = "https://graphql.anilist.co"
	DefaultAnilistRequestsPerMinute = 90
	DefaultAnilistLogLevel          = slog.LevelInfo

	DefaultVNDBEndpoint  = "https://api.vndb.org/kana"
	DefaultWaifuEndpoint = "https://api.waifu.pics"

	DefaultAIBaseURL           = "https://api.openai.com/v1"
	DefaultAIChatModel         = "gpt-4o-mini"
	DefaultAIImageModel        = "dall-e-3"
	DefaultAIImageSize         = "1024x1024"
	DefaultAITranscriptModel   = "whisper-1"
	DefaultAIRequestsPerMinute = 30
	DefaultAILogLevel          = slog.LevelInfo

	DefaultCacheSize = 1000
	DefaultCacheTTL  = time.Duration(0)

	DefaultActivitySchedule    = "@every 1m"
	DefaultRandomStatsPath     = "random_stats.json"
	DefaultRandomStatsSchedule = "@daily"
	DefaultSchedulerLogLevel   = slog.LevelInfo

	DefaultAPIEnabled        = false
	DefaultAPIListen         = "127.0.0.1:5000"
	DefaultAPILogLevel       = slog.LevelInfo
	DefaultReadTimeout       = 5 * time.Second
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultIdleTimeout       = 30 * time.Second

	DefaultAPICORSAllowCredentials = false
	DefaultCORSMaxAge              = 12 * time.Hour

	defaultListenNetwork = "tcp"
)

var (
	DefaultCORSAllowMethods = []string{
		http.MethodGet,
		http.MethodPut,
		http.MethodPost,
		http.MethodDelete,
		http.MethodOptions,
	}
	DefaultCORSAllowHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"Accept",
		"Authorization",
		xRequestIDHeader,
	}
	DefaultCORSExposeHeaders = []string{
		"Content-Type",
		"Content-Length",
		xRequestIDHeader,
	}
)

// Config is the top-level bot configuration, populated by viper from
// environment variables / an env file.
type Config struct {
	// Database connection string, or SQLite file path
	Database string `yaml:"database" mapstructure:"database" json:"database" log:"[redacted]" binding:"required"`

	// DatabaseType selects the storage backend: 'sqlite' or 'postgresql'
	// ('postgres' is accepted as an alias). Unrecognized values fall back
	// to sqlite, with a warning logged at startup.
	DatabaseType string `yaml:"database_type" mapstructure:"database_type" json:"database_type"`

	// DatabaseLogLevel sets the log level for database operations
	DatabaseLogLevel *slog.LevelVar `yaml:"database_log_level" mapstructure:"database_log_level" json:"database_log_level"`

	// DatabaseSlowThreshold is the duration threshold for identifying slow database queries
	DatabaseSlowThreshold time.Duration `yaml:"database_slow_threshold" mapstructure:"database_slow_threshold" json:"database_slow_threshold"`

	// DatabaseMaxConns caps the postgres connection pool. Ignored for sqlite,
	// which always uses a single connection.
	DatabaseMaxConns int32 `yaml:"database_max_conns" mapstructure:"database_max_conns" json:"database_max_conns" binding:"min=1"`

	// LogLevel is the base log level, for the default logger
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// LogFile, if set, additionally writes logs to this path, rotated
	// by size.
	LogFile string `yaml:"log_file" mapstructure:"log_file" json:"log_file"`

	// StartupTimeout limits how long opening/migrating the database and
	// connecting to discord may take.
	StartupTimeout time.Duration `yaml:"startup_timeout" mapstructure:"startup_timeout" json:"startup_timeout" binding:"min=1s"`

	// ShutdownTimeout is the time to allow for a graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" json:"shutdown_timeout"`

	// HTTPTimeout is applied to all outbound API requests
	HTTPTimeout time.Duration `yaml:"http_timeout" mapstructure:"http_timeout" json:"http_timeout"`

	Discord   *DiscordConfig   `yaml:"discord" mapstructure:"discord" json:"discord" binding:"required"`
	Anilist   *AnilistConfig   `yaml:"anilist" mapstructure:"anilist" json:"anilist" binding:"required"`
	VNDB      *VNDBConfig      `yaml:"vndb" mapstructure:"vndb" json:"vndb" binding:"required"`
	Waifu     *WaifuConfig     `yaml:"waifu" mapstructure:"waifu" json:"waifu" binding:"required"`
	AI        *AIConfig        `yaml:"ai" mapstructure:"ai" json:"ai" binding:"required"`
	Cache     *CacheConfig     `yaml:"cache" mapstructure:"cache" json:"cache" binding:"required"`
	Scheduler *SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler" json:"scheduler" binding:"required"`
	API       *APIConfig       `yaml:"api" mapstructure:"api" json:"api" binding:"required"`

	HTTPClient *http.Client `log:"[redacted]"`
}

func (c Config) LogValue() slog.Value {
	return structToSlogValue(c)
}

// DiscordConfig configures the discord bot itself.
type DiscordConfig struct {
	// Discord bot token (from the 'Bot' tab in the discord dev portal)
	Token string `yaml:"token" mapstructure:"token" json:"token" log:"[redacted]" binding:"required"`

	// Discord application ID (from the 'General Information' tab in the discord dev portal)
	ApplicationID string `yaml:"application_id" mapstructure:"application_id" json:"application_id" binding:"required"`

	// GuildID specifies the guild ID used when registering slash commands.
	// Leave empty for commands to be registered as global.
	GuildID string `yaml:"guild_id" mapstructure:"guild_id" json:"guild_id"`

	// PublicKey is used to verify interactions POSTed to the API's
	// webhook endpoint. Leave empty to only receive interactions
	// via the gateway.
	PublicKey string `yaml:"public_key" mapstructure:"public_key" json:"public_key" binding:"omitempty,hexadecimal,len=64"`

	// Base discord logging level
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// Log level for the `discordgo` library's logger
	DiscordGoLogLevel *slog.LevelVar `yaml:"discordgo_log_level" mapstructure:"discordgo_log_level" json:"discordgo_log_level"`

	// Discord gateway intents. See: https://discord.com/developers/docs/topics/gateway#gateway-intents
	GatewayIntents discordgo.Intent `yaml:"gateway_intents" mapstructure:"gateway_intents" json:"gateway_intents"`

	// CustomStatus is set on the bot user once connected
	CustomStatus string `yaml:"custom_status" mapstructure:"custom_status" json:"custom_status"`
}

// AnilistConfig configures the AniList GraphQL client
type AnilistConfig struct {
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint" json:"endpoint" binding:"required,url"`

	// RequestsPerMinute throttles outbound (uncached) GraphQL requests.
	// AniList currently allows 90/minute.
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute" json:"requests_per_minute" binding:"min=1"`

	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`
}

// VNDBConfig configures the VNDB (kana) REST client
type VNDBConfig struct {
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint" json:"endpoint" binding:"required,url"`
}

// WaifuConfig configures the waifu.pics client
type WaifuConfig struct {
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint" json:"endpoint" binding:"required,url"`
}

// AIConfig configures the OpenAI-compatible endpoint used by /ai
type AIConfig struct {
	// API token. If empty, /ai commands respond with an error.
	Token string `yaml:"token" mapstructure:"token" json:"token" log:"[redacted]"`

	// BaseURL of an OpenAI-compatible API. '/v1' is appended if the URL
	// doesn't already end with it.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" json:"base_url" binding:"required,url"`

	ChatModel       string `yaml:"chat_model" mapstructure:"chat_model" json:"chat_model" binding:"required"`
	ImageModel      string `yaml:"image_model" mapstructure:"image_model" json:"image_model" binding:"required"`
	ImageSize       string `yaml:"image_size" mapstructure:"image_size" json:"image_size" binding:"required"`
	TranscriptModel string `yaml:"transcript_model" mapstructure:"transcript_model" json:"transcript_model" binding:"required"`

	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute" json:"requests_per_minute" binding:"min=1"`

	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`
}

// CacheConfig configures the in-memory remote response cache
type CacheConfig struct {
	// Size is the maximum number of cached responses
	Size int `yaml:"size" mapstructure:"size" json:"size" binding:"min=1"`

	// TTL expires entries after this duration. 0 keeps entries until
	// they're evicted by capacity.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl" json:"ttl" binding:"min=0"`
}

// SchedulerConfig configures the background jobs
type SchedulerConfig struct {
	// ActivitySchedule is the cron spec for the airing activity sweep
	ActivitySchedule string `yaml:"activity_schedule" mapstructure:"activity_schedule" json:"activity_schedule" binding:"required"`

	// RandomStatsPath is where the random anime/manga page cursors persist
	RandomStatsPath string `yaml:"random_stats_path" mapstructure:"random_stats_path" json:"random_stats_path" binding:"required"`

	// RandomStatsSchedule is the cron spec for refreshing the page cursors
	RandomStatsSchedule string `yaml:"random_stats_schedule" mapstructure:"random_stats_schedule" json:"random_stats_schedule" binding:"required"`

	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`
}

// APIConfig configures the admin API server, which also receives
// webhook interactions when [DiscordConfig.PublicKey] is set.
type APIConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled" json:"enabled"`

	// The address and port on which the server should listen (e.g., "127.0.0.1:5000").
	Listen string `yaml:"listen" mapstructure:"listen" json:"listen" binding:"required_if=Enabled true"`

	// The network type for listening (e.g., "tcp", "tcp4", "tcp6", "unix").
	ListenNetwork string `yaml:"listen_network" mapstructure:"listen_network" json:"listen_network" binding:"required_if=Enabled true,omitempty,oneof=tcp tcp4 tcp6 unix"`

	// Secret is the bearer token required on /api routes
	Secret string `yaml:"secret" mapstructure:"secret" json:"secret" log:"[redacted]" binding:"required_if=Enabled true"`

	// The logging level for the API server.
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// Cross-origin configuration
	CORS CORSConfig `yaml:"cors" mapstructure:"cors" json:"cors"`

	ReadTimeout       time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" json:"read_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" mapstructure:"read_header_timeout" json:"read_header_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" json:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" json:"idle_timeout"`

	// Development enables gin debug mode
	Development bool `yaml:"development" mapstructure:"development" json:"development"`
}

// CORSConfig specifies cross-origin resource sharing settings
type CORSConfig struct {
	AllowOrigins     []string      `yaml:"allow_origins" mapstructure:"allow_origins" json:"allow_origins"`
	AllowMethods     []string      `yaml:"allow_methods" mapstructure:"allow_methods" json:"allow_methods"`
	AllowHeaders     []string      `yaml:"allow_headers" mapstructure:"allow_headers" json:"allow_headers"`
	ExposeHeaders    []string      `yaml:"expose_headers" mapstructure:"expose_headers" json:"expose_headers"`
	AllowCredentials bool          `yaml:"allow_credentials" mapstructure:"allow_credentials" json:"allow_credentials"`
	MaxAge           time.Duration `yaml:"max_age" mapstructure:"max_age" json:"max_age"`
}

func (c CORSConfig) GINConfig() cors.Config {
	cfg := cors.Config{
		AllowOrigins:     c.AllowOrigins,
		AllowMethods:     c.AllowMethods,
		AllowHeaders:     c.AllowHeaders,
		MaxAge:           c.MaxAge,
		ExposeHeaders:    c.ExposeHeaders,
		AllowCredentials: c.AllowCredentials,
	}
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowAllOrigins = true
	}
	return cfg
}

func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:     []string{},
		AllowMethods:     append([]string{}, DefaultCORSAllowMethods...),
		AllowHeaders:     append([]string{}, DefaultCORSAllowHeaders...),
		ExposeHeaders:    append([]string{}, DefaultCORSExposeHeaders...),
		MaxAge:           DefaultCORSMaxAge,
		AllowCredentials: DefaultAPICORSAllowCredentials,
	}
}

func newLevelVar(level slog.Level) *slog.LevelVar {
	v := &slog.LevelVar{}
	v.Set(level)
	return v
}

// DefaultConfig returns a Config with all default settings populated
func DefaultConfig() *Config {
	return &Config{
		DatabaseType:          DefaultDatabaseType,
		Database:              DefaultDatabase,
		DatabaseLogLevel:      newLevelVar(DefaultDatabaseLogLevel),
		DatabaseSlowThreshold: DefaultDatabaseSlowThreshold,
		DatabaseMaxConns:      DefaultDatabaseMaxConns,
		LogLevel:              newLevelVar(DefaultLogLevel),
		StartupTimeout:        DefaultStartupTimeout,
		ShutdownTimeout:       DefaultShutdownTimeout,
		HTTPTimeout:           DefaultHTTPTimeout,
		Discord: &DiscordConfig{
			LogLevel:          newLevelVar(DefaultDiscordLogLevel),
			DiscordGoLogLevel: newLevelVar(DefaultDiscordgoLogLevel),
			GatewayIntents:    DefaultDiscordGatewayIntent,
			CustomStatus:      DefaultDiscordCustomStatus,
		},
		Anilist: &AnilistConfig{
			Endpoint:          DefaultAnilistEndpoint,
			RequestsPerMinute: DefaultAnilistRequestsPerMinute,
			LogLevel:          newLevelVar(DefaultAnilistLogLevel),
		},
		VNDB:  &VNDBConfig{Endpoint: DefaultVNDBEndpoint},
		Waifu: &WaifuConfig{Endpoint: DefaultWaifuEndpoint},
		AI: &AIConfig{
			BaseURL:           DefaultAIBaseURL,
			ChatModel:         DefaultAIChatModel,
			ImageModel:        DefaultAIImageModel,
			ImageSize:         DefaultAIImageSize,
			TranscriptModel:   DefaultAITranscriptModel,
			RequestsPerMinute: DefaultAIRequestsPerMinute,
			LogLevel:          newLevelVar(DefaultAILogLevel),
		},
		Cache: &CacheConfig{
			Size: DefaultCacheSize,
			TTL:  DefaultCacheTTL,
		},
		Scheduler: &SchedulerConfig{
			ActivitySchedule:    DefaultActivitySchedule,
			RandomStatsPath:     DefaultRandomStatsPath,
			RandomStatsSchedule: DefaultRandomStatsSchedule,
			LogLevel:            newLevelVar(DefaultSchedulerLogLevel),
		},
		API: &APIConfig{
			Enabled:           DefaultAPIEnabled,
			Listen:            DefaultAPIListen,
			ListenNetwork:     defaultListenNetwork,
			LogLevel:          newLevelVar(DefaultAPILogLevel),
			CORS:              DefaultCORSConfig(),
			ReadTimeout:       DefaultReadTimeout,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			WriteTimeout:      DefaultWriteTimeout,
			IdleTimeout:       DefaultIdleTimeout,
		},
	}
}
