package kasuki

import (
	"context"
	"crypto/ed25519"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	apiPrefix                 = "/api"
	apiHealthCheck            = "/healthz"
	apiDiscordInteractions    = "/discord/interactions"
	apiPathStatus             = "/status"
	apiPathCache              = "/cache"
	apiPathGuildModules       = "/guilds/:id/modules"
	apiPathGuildLanguage      = "/guilds/:id/language"
	apiPathGuildActivities    = "/guilds/:id/activities"
	apiPathGuildImage         = "/guilds/:id/images/:type"
	apiPathRandomStatsRefresh = "/random_stats/refresh"
	apiPathRegisterCommands   = "/discord/register_commands"
)

const (
	xRequestIDHeader = "X-Request-ID"
	bearerPrefix     = "Bearer "
)

// API serves the bearer-authenticated admin endpoints under /api and,
// when [DiscordConfig.PublicKey] is set, receives interactions POSTed
// by discord.
type API struct {
	config     *APIConfig
	httpServer *http.Server
	listener   net.Listener
	engine     *gin.Engine
	logger     *slog.Logger
	handlers   *APIHandlers
}

func newAPI(b *Bot, config *APIConfig) (*API, error) {
	r := gin.New()
	api := &API{
		config: config,
		engine: r,
		logger: newLogger(b.logWriter, config.LogLevel, "api"),
	}
	handlers := &APIHandlers{b: b}
	api.handlers = handlers

	api.httpServer = &http.Server{
		Addr:              config.Listen,
		Handler:           r,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	corsConfig := config.CORS.GINConfig()
	if config.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
		r.Use(gin.Recovery())
	}
	r.Use(
		requestIDMiddleware(),
		ginLoggingMiddleware(api.logger),
		cors.New(corsConfig),
	)

	r.GET(apiHealthCheck, handlers.healthCheck)

	if b.config.Discord.PublicKey != "" {
		key, err := hex.DecodeString(b.config.Discord.PublicKey)
		if err == nil && len(key) != ed25519.PublicKeySize {
			err = fmt.Errorf("expected %d bytes, got %d", ed25519.PublicKeySize, len(key))
		}
		if err != nil {
			return api, fmt.Errorf("invalid discord public key: %w", err)
		}
		r.POST(
			apiDiscordInteractions,
			discordRequestAuthenticationMiddleware(key),
			webhookReceiveHandler(b),
		)
	}

	protected := r.Group(apiPrefix)
	protected.Use(bearerAuthMiddleware(config.Secret))

	protected.GET(apiPathStatus, handlers.status)
	protected.DELETE(apiPathCache, handlers.purgeCache)
	protected.GET(apiPathGuildModules, handlers.getGuildModules)
	protected.PUT(apiPathGuildModules, handlers.updateGuildModules)
	protected.GET(apiPathGuildLanguage, handlers.getGuildLanguage)
	protected.PUT(apiPathGuildLanguage, handlers.updateGuildLanguage)
	protected.GET(apiPathGuildActivities, handlers.getGuildActivities)
	protected.PUT(apiPathGuildImage, handlers.updateGuildImage)
	protected.POST(apiPathRandomStatsRefresh, handlers.refreshRandomStats)
	protected.POST(apiPathRegisterCommands, handlers.registerCommands)

	return api, nil
}

// Serve listens on the configured address and serves until the
// server is shut down
func (a *API) Serve(ctx context.Context) error {
	if a.listener == nil {
		listenCfg := &net.ListenConfig{}
		ln, err := listenCfg.Listen(ctx, a.config.ListenNetwork, a.config.Listen)
		if err != nil {
			return err
		}
		a.listener = ln
	}
	a.logger.InfoContext(ctx, "api listening", "addr", a.listener.Addr().String())
	return a.httpServer.Serve(a.listener)
}

// APIHandlers implements the /api endpoints
type APIHandlers struct {
	b *Bot
}

type httpReply struct {
	Message string `json:"message"`
}

// httpError represents an error message returned to the client
type httpError struct {
	Error string `json:"error"`
}

type healthCheckResponse struct {
	DiscordGatewayConnected bool `json:"discord_gateway_connected"`
}

type statusResponse struct {
	Version                 string      `json:"version"`
	StartedAt               time.Time   `json:"started_at"`
	Uptime                  string      `json:"uptime"`
	DiscordGatewayConnected bool        `json:"discord_gateway_connected"`
	Guilds                  int64       `json:"guilds"`
	Connects                int64       `json:"connects"`
	Disconnects             int64       `json:"disconnects"`
	Backend                 string      `json:"backend"`
	Cache                   CacheStats  `json:"cache"`
	RandomStats             RandomStats `json:"random_stats"`
}

// guildModulesPayload maps module names (ex: "ANILIST", "new_member") to
// their new state. Modules not named are unchanged.
type guildModulesPayload struct {
	Modules map[string]bool `json:"modules" binding:"required,min=1"`
}

type guildLanguagePayload struct {
	Lang string `json:"lang" binding:"required"`
}

// serverImagePayload sets a guild image, either by URL or as
// base64-encoded data
type serverImagePayload struct {
	URL    string `json:"url" binding:"required_without=Base64,omitempty,url"`
	Base64 string `json:"base64" binding:"required_without=URL,omitempty,base64"`
}

func (h *APIHandlers) healthCheck(c *gin.Context) {
	c.JSON(
		http.StatusOK,
		healthCheckResponse{DiscordGatewayConnected: h.b.discord.connected.Load()},
	)
}

func (h *APIHandlers) status(c *gin.Context) {
	b := h.b
	resp := statusResponse{
		Version:                 Version,
		StartedAt:               b.startedAt,
		Uptime:                  time.Since(b.startedAt).Round(time.Second).String(),
		DiscordGatewayConnected: b.discord.connected.Load(),
		Guilds:                  b.discord.guildCount.Load(),
		Connects:                b.discord.metricConnects.Load(),
		Disconnects:             b.discord.metricDisconnects.Load(),
		Cache:                   b.cache.Stats(),
		RandomStats:             b.randomStats.Get(),
	}
	if b.store != nil {
		resp.Backend = b.store.Backend().String()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *APIHandlers) purgeCache(c *gin.Context) {
	n := h.b.cache.Len()
	h.b.cache.Purge()
	ginContextLogger(c).InfoContext(c, "purged cache", "entries", n)
	c.JSON(http.StatusOK, httpReply{Message: fmt.Sprintf("purged %d entries", n)})
}

// guildIDParam returns the :id path parameter, aborting with a 400
// if it isn't a discord snowflake (or the kill switch ID)
func guildIDParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if id == "" || strings.TrimLeft(id, "0123456789") != "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, httpError{Error: "invalid guild id"})
		return "", false
	}
	return id, true
}

func (h *APIHandlers) getGuildModules(c *gin.Context) {
	guildID, ok := guildIDParam(c)
	if !ok {
		return
	}
	ma, err := h.b.moduleActivation(c, guildID)
	if err != nil {
		ginReplyError(c, err)
		return
	}
	c.JSON(http.StatusOK, ma)
}

func (h *APIHandlers) updateGuildModules(c *gin.Context) {
	guildID, ok := guildIDParam(c)
	if !ok {
		return
	}
	var payload guildModulesPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}

	ma, err := h.b.moduleActivation(c, guildID)
	if err != nil {
		ginReplyError(c, err)
		return
	}
	ma.GuildID = guildID
	for name, enabled := range payload.Modules {
		m, parseErr := ParseModule(name)
		if parseErr != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, httpError{Error: parseErr.Error()})
			return
		}
		ma.Set(m, enabled)
	}
	if err = h.b.store.SetModuleActivation(c, ma); err != nil {
		ginReplyError(c, err)
		return
	}
	ginContextLogger(c).InfoContext(c, "updated guild modules", "guild_id", guildID, "modules", payload.Modules)
	c.JSON(http.StatusOK, ma)
}

func (h *APIHandlers) getGuildLanguage(c *gin.Context) {
	guildID, ok := guildIDParam(c)
	if !ok {
		return
	}
	c.JSON(
		http.StatusOK,
		GuildLanguage{GuildID: guildID, Lang: h.b.guildLanguage(c, guildID)},
	)
}

func (h *APIHandlers) updateGuildLanguage(c *gin.Context) {
	guildID, ok := guildIDParam(c)
	if !ok {
		return
	}
	var payload guildLanguagePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}
	lang := normalizeLanguage(payload.Lang)
	if !h.b.localizer.Supported(lang) {
		c.AbortWithStatusJSON(
			http.StatusBadRequest,
			httpError{
				Error: fmt.Sprintf(
					"unsupported language %q (expected one of: %s)",
					payload.Lang,
					strings.Join(h.b.localizer.Languages(), ", "),
				),
			},
		)
		return
	}
	gl := GuildLanguage{GuildID: guildID, Lang: lang}
	if err := h.b.store.SetGuildLanguage(c, gl); err != nil {
		ginReplyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gl)
}

func (h *APIHandlers) getGuildActivities(c *gin.Context) {
	guildID, ok := guildIDParam(c)
	if !ok {
		return
	}
	activities, err := h.b.store.GetGuildActivities(c, guildID)
	if err != nil {
		ginReplyError(c, err)
		return
	}
	if activities == nil {
		activities = []ScheduledActivity{}
	}
	c.JSON(http.StatusOK, activities)
}

func (h *APIHandlers) updateGuildImage(c *gin.Context) {
	guildID, ok := guildIDParam(c)
	if !ok {
		return
	}
	imageType := c.Param("type")
	if imageType != serverImageNewMember {
		c.AbortWithStatusJSON(
			http.StatusBadRequest,
			httpError{Error: fmt.Sprintf("unknown image type %q", imageType)},
		)
		return
	}
	var payload serverImagePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}
	if payload.Base64 != "" {
		if _, err := base64.StdEncoding.DecodeString(payload.Base64); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, httpError{Error: "invalid base64 image"})
			return
		}
	}
	img := ServerImage{
		GuildID:     guildID,
		ImageType:   imageType,
		ImageURL:    payload.URL,
		ImageBase64: payload.Base64,
	}
	if err := h.b.store.SetServerImage(c, img); err != nil {
		ginReplyError(c, err)
		return
	}
	c.JSON(http.StatusOK, img)
}

func (h *APIHandlers) refreshRandomStats(c *gin.Context) {
	logger := ginContextLogger(c)
	stats, err := h.b.randomStats.refresh(c, h.b.anilist, logger)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, httpError{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *APIHandlers) registerCommands(c *gin.Context) {
	created, err := h.b.RegisterCommands(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, httpError{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, created)
}

// bearerAuthMiddleware rejects requests without an `Authorization: Bearer`
// header matching secret
func bearerAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), bearerPrefix)
		if !ok || secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			ginContextLogger(c).WarnContext(c, "unauthorized api request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpError{Error: "unauthorized"})
			return
		}
		c.Next()
	}
}

// requestIDMiddleware assigns a unique ID to each request, set on
// the gin context and the response headers under "X-Request-ID"
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(xRequestIDHeader, id)
		c.Header(xRequestIDHeader, id)
		c.Next()
	}
}

// ginContextLogger returns the slog.Logger from the given gin context,
// or, if it doesn't exist, creates a logger with request details included,
// and sets the logger in the context so the next call to ginContextLogger
// will return the new logger.
func ginContextLogger(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(string(loggerContextKey)); ok {
		if requestLogger, isLogger := v.(*slog.Logger); isLogger {
			return requestLogger
		}
	}
	return setGinContextLogger(c, slog.Default())
}

func setGinContextLogger(c *gin.Context, base *slog.Logger) *slog.Logger {
	requestID, _ := c.Get(xRequestIDHeader)
	path := c.Request.URL.Path
	if raw := c.Request.URL.RawQuery; raw != "" {
		path = path + "?" + raw
	}
	requestLogger := base.With(
		slog.Group(
			"request",
			"method", c.Request.Method,
			"path", path,
			"remote_addr", c.Request.RemoteAddr,
			"remote_ip", c.RemoteIP(),
			"user_agent", c.Request.UserAgent(),
		),
		slog.Any(xRequestIDHeader, requestID),
	)
	c.Set(string(loggerContextKey), requestLogger)
	return requestLogger
}

// ginLoggingMiddleware logs each request once it has been handled,
// along with its duration and response status
func ginLoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestLogger := setGinContextLogger(c, logger)
		c.Next()
		latency := time.Since(start)

		response := slog.Group(
			"response",
			"status_code", c.Writer.Status(),
			"body_size", c.Writer.Size(),
		)
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			requestLogger.Error(
				fmt.Sprintf("%s %s finished with errors", c.Request.Method, c.Request.URL.Path),
				"duration", latency,
				"errors", errs.Errors(),
				response,
			)
			return
		}
		requestLogger.Info(
			fmt.Sprintf("%s %s finished", c.Request.Method, c.Request.URL.Path),
			"duration", latency,
			response,
		)
	}
}

// ginReplyError records err on the context, and aborts with a 500
func ginReplyError(c *gin.Context, err error) {
	_ = c.Error(err)
	ginContextLogger(c).ErrorContext(c, "api request failed", tint.Err(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, httpError{Error: err.Error()})
}
