package cmd

import (
	"fmt"
	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func assertLogLevel(t testing.TB, expected slog.Level, value any) {
	t.Helper()
	lvl, ok := value.(*slog.LevelVar)
	if !ok {
		t.Fatalf("expected *slog.LevelVar, got %T", value)
	}
	assert.Equal(t, expected, lvl.Level())
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	originalEnv := os.Environ()
	t.Cleanup(
		func() {
			os.Clearenv()
			for _, envVar := range originalEnv {
				parts := strings.SplitN(envVar, "=", 2)
				os.Setenv(parts[0], parts[1])
			}
		},
	)

	os.Clearenv()

	tmpdir := t.TempDir()
	envFile := filepath.Join(tmpdir, "test.env")

	envContent := `
# General/database config

KASUKI_DATABASE=/home/foo/kasuki.sqlite3
KASUKI_DATABASE_TYPE=sqlite
KASUKI_DATABASE_LOG_LEVEL=INFO
KASUKI_DATABASE_SLOW_THRESHOLD=250ms
KASUKI_DATABASE_MAX_CONNS=4
KASUKI_LOG_LEVEL=INFO
KASUKI_STARTUP_TIMEOUT=30s
KASUKI_SHUTDOWN_TIMEOUT=60s
KASUKI_HTTP_TIMEOUT=15s

# Discord bot config

KASUKI_DISCORD_TOKEN=your-discord-bot-token
KASUKI_DISCORD_APPLICATION_ID=your-discord-bot-app-id
KASUKI_DISCORD_GUILD_ID=
KASUKI_DISCORD_LOG_LEVEL=WARN
KASUKI_DISCORD_DISCORDGO_LOG_LEVEL=WARN
KASUKI_DISCORD_GATEWAY_INTENTS=3
KASUKI_DISCORD_CUSTOM_STATUS="/help"

# Remote APIs

KASUKI_ANILIST_ENDPOINT=http://127.0.0.1:8080/graphql
KASUKI_ANILIST_REQUESTS_PER_MINUTE=60
KASUKI_ANILIST_LOG_LEVEL=DEBUG
KASUKI_VNDB_ENDPOINT=http://127.0.0.1:8081/kana
KASUKI_WAIFU_ENDPOINT=http://127.0.0.1:8082

KASUKI_AI_TOKEN=your-ai-token
KASUKI_AI_BASE_URL=http://127.0.0.1:11434/v1
KASUKI_AI_CHAT_MODEL=llama3
KASUKI_AI_LOG_LEVEL=ERROR

# Cache and scheduler

KASUKI_CACHE_SIZE=250
KASUKI_CACHE_TTL=10m
KASUKI_SCHEDULER_ACTIVITY_SCHEDULE="@every 30s"
KASUKI_SCHEDULER_RANDOM_STATS_PATH=/var/lib/kasuki/random_stats.json
KASUKI_SCHEDULER_RANDOM_STATS_SCHEDULE="0 4 * * *"

# API server

KASUKI_API_ENABLED=true
KASUKI_API_LISTEN=127.0.0.1:5000
KASUKI_API_SECRET=your-api-secret
KASUKI_API_LOG_LEVEL=DEBUG
KASUKI_API_CORS_ALLOW_ORIGINS=https://127.0.0.1:5000 https://localhost:5000
KASUKI_API_CORS_ALLOW_METHODS=GET POST PUT DELETE
KASUKI_API_CORS_ALLOW_CREDENTIALS=true
KASUKI_API_CORS_MAX_AGE=6h
KASUKI_API_READ_TIMEOUT=5s
KASUKI_API_WRITE_TIMEOUT=10s
`

	err := os.WriteFile(envFile, []byte(envContent), 0644)
	require.NoError(t, err)

	rootCmd.SetArgs([]string{fmt.Sprintf("--config=%s", envFile), "version"})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, "/home/foo/kasuki.sqlite3", viper.GetString("database"))
	assert.Equal(t, "sqlite", viper.GetString("database_type"))
	assertLogLevel(t, slog.LevelInfo, viper.Get("database_log_level"))
	assert.Equal(t, 250*time.Millisecond, viper.GetDuration("database_slow_threshold"))
	assertLogLevel(t, slog.LevelInfo, viper.Get("log_level"))
	assertLogLevel(t, slog.LevelWarn, viper.Get("discord.log_level"))
	assertLogLevel(t, slog.LevelDebug, viper.Get("anilist.log_level"))
	assertLogLevel(t, slog.LevelError, viper.Get("ai.log_level"))
	assertLogLevel(t, slog.LevelDebug, viper.Get("api.log_level"))
	assert.Equal(
		t,
		[]string{"https://127.0.0.1:5000", "https://localhost:5000"},
		viper.GetStringSlice("api.cors.allow_origins"),
	)

	assert.Equal(t, "/home/foo/kasuki.sqlite3", cfg.Database)
	assert.Equal(t, "sqlite", cfg.DatabaseType)
	assert.Equal(t, 250*time.Millisecond, cfg.DatabaseSlowThreshold)
	assert.Equal(t, int32(4), cfg.DatabaseMaxConns)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel.Level())
	assert.Equal(t, 30*time.Second, cfg.StartupTimeout)
	assert.Equal(t, 60*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)

	assert.Equal(t, "your-discord-bot-token", cfg.Discord.Token)
	assert.Equal(t, "your-discord-bot-app-id", cfg.Discord.ApplicationID)
	assert.Equal(t, "", cfg.Discord.GuildID)
	assert.Equal(t, slog.LevelWarn, cfg.Discord.LogLevel.Level())
	assert.Equal(t, slog.LevelWarn, cfg.Discord.DiscordGoLogLevel.Level())
	assert.Equal(t, discordgo.Intent(3), cfg.Discord.GatewayIntents)
	assert.Equal(t, "/help", cfg.Discord.CustomStatus)

	assert.Equal(t, "http://127.0.0.1:8080/graphql", cfg.Anilist.Endpoint)
	assert.Equal(t, 60, cfg.Anilist.RequestsPerMinute)
	assert.Equal(t, slog.LevelDebug, cfg.Anilist.LogLevel.Level())
	assert.Equal(t, "http://127.0.0.1:8081/kana", cfg.VNDB.Endpoint)
	assert.Equal(t, "http://127.0.0.1:8082", cfg.Waifu.Endpoint)

	assert.Equal(t, "your-ai-token", cfg.AI.Token)
	assert.Equal(t, "http://127.0.0.1:11434/v1", cfg.AI.BaseURL)
	assert.Equal(t, "llama3", cfg.AI.ChatModel)
	assert.Equal(t, "dall-e-3", cfg.AI.ImageModel)
	assert.Equal(t, slog.LevelError, cfg.AI.LogLevel.Level())

	assert.Equal(t, 250, cfg.Cache.Size)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "@every 30s", cfg.Scheduler.ActivitySchedule)
	assert.Equal(t, "/var/lib/kasuki/random_stats.json", cfg.Scheduler.RandomStatsPath)
	assert.Equal(t, "0 4 * * *", cfg.Scheduler.RandomStatsSchedule)

	assert.True(t, cfg.API.Enabled)
	assert.Equal(t, "127.0.0.1:5000", cfg.API.Listen)
	assert.Equal(t, "tcp", cfg.API.ListenNetwork)
	assert.Equal(t, "your-api-secret", cfg.API.Secret)
	assert.Equal(t, slog.LevelDebug, cfg.API.LogLevel.Level())
	assert.Equal(
		t,
		[]string{"https://127.0.0.1:5000", "https://localhost:5000"},
		cfg.API.CORS.AllowOrigins,
	)
	assert.Equal(t, []string{"GET", "POST", "PUT", "DELETE"}, cfg.API.CORS.AllowMethods)
	assert.True(t, cfg.API.CORS.AllowCredentials)
	assert.Equal(t, 6*time.Hour, cfg.API.CORS.MaxAge)
	assert.Equal(t, 5*time.Second, cfg.API.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.API.WriteTimeout)
}

func TestLevelToStringHookFunc(t *testing.T) {
	var target struct {
		Level *slog.LevelVar `mapstructure:"level"`
	}
	v := viper.New()
	v.Set("level", "warn")
	require.NoError(
		t,
		v.Unmarshal(&target, viper.DecodeHook(LevelToStringHookFunc())),
	)
	assert.Equal(t, slog.LevelWarn, target.Level.Level())

	v.Set("level", "loud")
	assert.Error(t, v.Unmarshal(&target, viper.DecodeHook(LevelToStringHookFunc())))
}
