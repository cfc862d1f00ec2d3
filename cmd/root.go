package cmd

import (
	"context"
	"fmt"
	"github.com/ValgulNecron/kasuki-sub000/kasuki"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"
)

var (
	cfg        = kasuki.DefaultConfig()
	configFile string
)

// levelKeys are the config keys holding a *slog.LevelVar
var levelKeys = []string{
	"log_level",
	"database_log_level",
	"discord.log_level",
	"discord.discordgo_log_level",
	"anilist.log_level",
	"ai.log_level",
	"scheduler.log_level",
	"api.log_level",
}

// sliceKeys are the config keys holding a []string, given as
// space-separated values in the environment
var sliceKeys = []string{
	"api.cors.allow_headers",
	"api.cors.allow_origins",
	"api.cors.allow_methods",
	"api.cors.expose_headers",
}

var rootCmd = &cobra.Command{
	Use:   "kasuki [flags]",
	Short: "Discord bot for AniList, VNDB and more",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return unmarshalConfig(cfg)
	},
}

func unmarshalConfig(c *kasuki.Config) error {
	return viper.Unmarshal(
		c,
		viper.DecodeHook(
			mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(" "),
				LevelToStringHookFunc(),
			),
		),
	)
}

func getLogLevel(level string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
	return lvl, nil
}

// LevelToStringHookFunc decodes strings like "DEBUG" or "warn" into
// a *slog.LevelVar
func LevelToStringHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data any,
	) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		if t.Kind() != reflect.Ptr {
			return data, nil
		}

		typ := t.Elem()

		if typ != reflect.TypeOf(slog.LevelVar{}) {
			return data, nil
		}
		lvl, err := getLogLevel(data.(string))
		if err != nil {
			return nil, err
		}
		lvlVar := &slog.LevelVar{}
		lvlVar.Set(lvl)
		return lvlVar, nil
	}
}

func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	rootCmd.SetContext(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(
		signals,
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer func() {
		signal.Stop(signals)
		cancel()
	}()
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			//
		}
	}()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setDefaults() {
	viper.SetDefault("database", kasuki.DefaultDatabase)
	viper.SetDefault("database_type", kasuki.DefaultDatabaseType)
	viper.SetDefault("database_slow_threshold", kasuki.DefaultDatabaseSlowThreshold)
	viper.SetDefault("database_log_level", kasuki.DefaultDatabaseLogLevel.String())
	viper.SetDefault("database_max_conns", kasuki.DefaultDatabaseMaxConns)

	viper.SetDefault("log_level", kasuki.DefaultLogLevel.String())
	viper.SetDefault("log_file", "")
	viper.SetDefault("startup_timeout", kasuki.DefaultStartupTimeout)
	viper.SetDefault("shutdown_timeout", kasuki.DefaultShutdownTimeout)
	viper.SetDefault("http_timeout", kasuki.DefaultHTTPTimeout)

	// Discord config
	viper.SetDefault("discord.token", "")
	viper.SetDefault("discord.application_id", "")
	viper.SetDefault("discord.guild_id", "")
	viper.SetDefault("discord.public_key", "")
	viper.SetDefault("discord.log_level", kasuki.DefaultDiscordLogLevel.String())
	viper.SetDefault("discord.discordgo_log_level", kasuki.DefaultDiscordgoLogLevel.String())
	viper.SetDefault("discord.gateway_intents", int(kasuki.DefaultDiscordGatewayIntent))
	viper.SetDefault("discord.custom_status", kasuki.DefaultDiscordCustomStatus)

	// Remote APIs
	viper.SetDefault("anilist.endpoint", kasuki.DefaultAnilistEndpoint)
	viper.SetDefault("anilist.requests_per_minute", kasuki.DefaultAnilistRequestsPerMinute)
	viper.SetDefault("anilist.log_level", kasuki.DefaultAnilistLogLevel.String())
	viper.SetDefault("vndb.endpoint", kasuki.DefaultVNDBEndpoint)
	viper.SetDefault("waifu.endpoint", kasuki.DefaultWaifuEndpoint)

	viper.SetDefault("ai.token", "")
	viper.SetDefault("ai.base_url", kasuki.DefaultAIBaseURL)
	viper.SetDefault("ai.chat_model", kasuki.DefaultAIChatModel)
	viper.SetDefault("ai.image_model", kasuki.DefaultAIImageModel)
	viper.SetDefault("ai.image_size", kasuki.DefaultAIImageSize)
	viper.SetDefault("ai.transcript_model", kasuki.DefaultAITranscriptModel)
	viper.SetDefault("ai.requests_per_minute", kasuki.DefaultAIRequestsPerMinute)
	viper.SetDefault("ai.log_level", kasuki.DefaultAILogLevel.String())

	viper.SetDefault("cache.size", kasuki.DefaultCacheSize)
	viper.SetDefault("cache.ttl", kasuki.DefaultCacheTTL)

	viper.SetDefault("scheduler.activity_schedule", kasuki.DefaultActivitySchedule)
	viper.SetDefault("scheduler.random_stats_path", kasuki.DefaultRandomStatsPath)
	viper.SetDefault("scheduler.random_stats_schedule", kasuki.DefaultRandomStatsSchedule)
	viper.SetDefault("scheduler.log_level", kasuki.DefaultSchedulerLogLevel.String())

	// API config
	viper.SetDefault("api.enabled", kasuki.DefaultAPIEnabled)
	viper.SetDefault("api.listen", kasuki.DefaultAPIListen)
	viper.SetDefault("api.listen_network", "tcp")
	viper.SetDefault("api.secret", "")
	viper.SetDefault("api.log_level", kasuki.DefaultAPILogLevel.String())
	viper.SetDefault("api.development", false)
	viper.SetDefault("api.read_timeout", kasuki.DefaultReadTimeout)
	viper.SetDefault("api.read_header_timeout", kasuki.DefaultReadHeaderTimeout)
	viper.SetDefault("api.write_timeout", kasuki.DefaultWriteTimeout)
	viper.SetDefault("api.idle_timeout", kasuki.DefaultIdleTimeout)

	// API: CORS config
	viper.SetDefault("api.cors.allow_headers", kasuki.DefaultCORSAllowHeaders)
	viper.SetDefault("api.cors.allow_methods", kasuki.DefaultCORSAllowMethods)
	viper.SetDefault("api.cors.expose_headers", kasuki.DefaultCORSExposeHeaders)
	viper.SetDefault("api.cors.allow_origins", []string{})
	viper.SetDefault("api.cors.max_age", kasuki.DefaultCORSMaxAge)
	viper.SetDefault("api.cors.allow_credentials", kasuki.DefaultAPICORSAllowCredentials)
}

func initConfig() {
	if configFile == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found")
		}
	} else {
		log.Println("loading env from file", configFile)
		if err := godotenv.Load(configFile); err != nil {
			log.Printf("unable to load %s: %v", configFile, err)
		}
	}

	setDefaults()

	envPrefix := os.Getenv(kasuki.EnvvarSetEnvPrefix)
	if envPrefix == "" {
		envPrefix = kasuki.DefaultEnvPrefix
	}
	viper.SetEnvPrefix(envPrefix)

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	// Convert values to correct types
	for _, key := range sliceKeys {
		viper.Set(key, viper.GetStringSlice(key))
	}
	for _, key := range levelKeys {
		lvl, err := levelStringToLevelVar(viper.GetString(key))
		if err != nil {
			log.Fatalf("error parsing %s: %v", key, err)
		}
		viper.Set(key, lvl)
	}
}

func levelStringToLevelVar(lvl string) (*slog.LevelVar, error) {
	level := &slog.LevelVar{}
	err := level.UnmarshalText([]byte(lvl))
	return level, err
}

//goland:noinspection GoLinter,GoLinter
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&configFile,
		"config",
		"",
		"Env file to load configuration from",
	)
}
