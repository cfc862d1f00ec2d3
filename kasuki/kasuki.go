package kasuki

import (
	"context"
	"errors"
	"fmt"
	"github.com/bwmarrin/discordgo"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/robfig/cron/v3"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

var (
	// When building, set these like:
	// -ldflags "-X github.com/ValgulNecron/kasuki-sub000/kasuki.Version=$$(date +'%Y%m%d')"

	Version   = "dev"
	CommitSHA = "unknown"
	BuildTime = "unknown"
)

// structValidator validates Config and API payloads, using the same
// `binding` tags gin uses
var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}

// Bot is the kasuki discord bot. It answers slash commands with data
// from AniList, VNDB, waifu.pics and an OpenAI-compatible API, keeps
// per-guild settings in a [Store], and runs background jobs posting
// episode airing notifications and refreshing the random media page
// cursors.
//
// Fields:
//   - config: The bot configuration.
//   - store: Persisted guild/user settings, opened once in Run.
//   - cache: Shared cache of AniList/VNDB responses.
//   - discord: The discord session and connection state.
//   - api: The admin API (and webhook interaction) server, if enabled.
//   - cron: Background job scheduler.
//   - randomStats: Page cursors for /anilist_user random.
//   - runtimeWG: Tracks in-flight interactions and delayed activities,
//     waited on during shutdown.
//   - activitiesInFlight: Activities currently being sent, keyed by
//     anime/guild, so overlapping sweeps don't notify twice.
//   - getInteractionHandlerFunc: Builds the handler for a received
//     interaction. Overridden in tests.
type Bot struct {
	config     *Config
	logHandler slog.Handler
	logWriter  io.Writer
	logger     *slog.Logger

	store       Store
	cache       *RemoteCache
	anilist     *AnilistClient
	vndb        *VNDBClient
	waifu       *WaifuClient
	ai          *AI
	localizer   *Localizer
	discord     *Discord
	api         *API
	cron        *cron.Cron
	httpClient  *http.Client
	randomStats *randomStatsHolder
	commands    map[string]command

	startedAt          time.Time
	runtimeWG          *sync.WaitGroup
	runMu              sync.Mutex
	activitiesInFlight sync.Map
	signalReady        chan struct{}

	getInteractionHandlerFunc func(ctx context.Context, i *discordgo.InteractionCreate) InteractionHandler
}

// New validates config, and builds the bot's loggers and API clients.
// Nothing is opened or connected until [Bot.Run].
func New(config *Config) (*Bot, error) {
	if config == nil {
		config = DefaultConfig()
	}
	var errs []error
	if err := structValidator.Struct(config); err != nil {
		errs = append(errs, fmt.Errorf("invalid config: %w", err))
	}

	if config.HTTPTimeout <= 0 {
		config.HTTPTimeout = DefaultHTTPTimeout
	}
	if config.HTTPClient == nil {
		config.HTTPClient = newHTTPClient(config.HTTPTimeout)
	}

	b := &Bot{
		config:      config,
		httpClient:  config.HTTPClient,
		localizer:   NewLocalizer(),
		commands:    newCommandTable(),
		runtimeWG:   &sync.WaitGroup{},
		signalReady: make(chan struct{}, 1),
	}

	b.logWriter = newLogWriter(config.LogFile)
	b.logHandler = tint.NewHandler(
		b.logWriter, &tint.Options{
			Level:     config.LogLevel,
			AddSource: true,
		},
	)
	b.logger = slog.New(b.logHandler)
	slog.SetDefault(b.logger)

	discordgo.Logger = discordgoLoggerFunc(
		context.Background(),
		tint.NewHandler(
			b.logWriter, &tint.Options{
				Level:     config.Discord.DiscordGoLogLevel,
				AddSource: true,
			},
		).WithAttrs([]slog.Attr{slog.String(loggerNameKey, "discordgo")}),
	)

	b.cache = NewRemoteCache(config.Cache.Size, config.Cache.TTL)
	b.anilist = NewAnilistClient(
		config.Anilist,
		b.httpClient,
		b.cache,
		newLogger(b.logWriter, config.Anilist.LogLevel, ""),
	)
	b.vndb = NewVNDBClient(config.VNDB, b.httpClient, b.cache, b.logger)
	b.waifu = NewWaifuClient(config.Waifu, b.httpClient, b.logger)
	b.ai = newAI(config.AI, b.httpClient, newLogger(b.logWriter, config.AI.LogLevel, ""))
	b.discord = newDiscord(
		config.Discord,
		newLogger(b.logWriter, config.Discord.LogLevel, "discord"),
	)
	b.randomStats = newRandomStatsHolder(config.Scheduler.RandomStatsPath, b.logger)

	if config.API.Enabled {
		api, err := newAPI(b, config.API)
		if err != nil {
			errs = append(errs, err)
		}
		b.api = api
	}

	return b, errors.Join(errs...)
}

// ValidateConfig validates the bot's configuration
func (b *Bot) ValidateConfig() error {
	return structValidator.Struct(b.config)
}

// RegisterCommands overwrites the bot's slash commands, globally or
// for [DiscordConfig.GuildID] if set
func (b *Bot) RegisterCommands(
	ctx context.Context,
	options ...discordgo.RequestOption,
) ([]*discordgo.ApplicationCommand, error) {
	if err := b.ensureSession(); err != nil {
		return nil, err
	}
	return b.discord.registerCommands(ctx, options...)
}

func (b *Bot) ensureSession() error {
	if b.discord.session != nil {
		return nil
	}
	session, err := b.discord.newSession(b.httpClient)
	if err != nil {
		return err
	}
	b.discord.session = session
	return nil
}

// initStore opens the configured store, unless one was already set,
// and migrates it
func (b *Bot) initStore(ctx context.Context) error {
	if b.store == nil {
		gormHandler := tint.NewHandler(
			b.logWriter, &tint.Options{
				Level:     b.config.DatabaseLogLevel,
				AddSource: true,
			},
		)
		store, err := OpenStore(
			ctx,
			b.config.DatabaseType,
			b.config.Database,
			StoreOptions{
				Logger:     b.logger.With(loggerNameKey, "store"),
				GORMLogger: newGORMLogger(gormHandler, b.config.DatabaseSlowThreshold),
				MaxConns:   b.config.DatabaseMaxConns,
			},
		)
		if err != nil {
			return err
		}
		b.store = store
	}
	return b.store.Migrate(ctx)
}

// Migrate opens the configured store, migrates it, and closes it
func (b *Bot) Migrate(ctx context.Context) error {
	if err := b.initStore(ctx); err != nil {
		return err
	}
	return b.store.Close()
}

// Run opens the store, starts the API server, connects to discord
// and starts the background jobs. It blocks until ctx is canceled, then
// shuts down gracefully within [Config.ShutdownTimeout].
func (b *Bot) Run(ctx context.Context) error {
	// prevents concurrent runs
	b.runMu.Lock()
	defer b.runMu.Unlock()

	b.startedAt = time.Now()
	logger := b.logger

	if err := b.ValidateConfig(); err != nil {
		logger.Error("invalid config", tint.Err(err))
		return err
	}

	ctx = WithLogger(ctx, logger)
	logger.LogAttrs(ctx, slog.LevelInfo, "starting", slog.Any("config", b.config))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(ctx, b.config.StartupTimeout)
	defer startCancel()

	if err := b.initStore(startCtx); err != nil {
		logger.ErrorContext(ctx, "error initializing store", tint.Err(err))
		return fmt.Errorf("error initializing store: %w", err)
	}

	if b.api != nil {
		b.startAPI(ctx)
	}

	if err := b.initDiscordSession(ctx); err != nil {
		logger.ErrorContext(ctx, "error creating discord session", tint.Err(err))
		return b.shutdown(ctx, err)
	}
	logger.InfoContext(ctx, "connecting to discord")
	if err := b.discord.session.Open(); err != nil {
		logger.ErrorContext(ctx, "error connecting to discord", tint.Err(err))
		return b.shutdown(ctx, fmt.Errorf("error connecting to discord: %w", err))
	}

	if err := b.startScheduler(ctx); err != nil {
		logger.ErrorContext(ctx, "error starting scheduler", tint.Err(err))
		return b.shutdown(ctx, err)
	}

	select {
	case b.signalReady <- struct{}{}:
	default:
	}
	logger.InfoContext(ctx, "ready")

	// block until something cancels the runtime context, generally
	// an interrupt
	<-ctx.Done()
	return b.shutdown(ctx, nil)
}

func (b *Bot) startAPI(ctx context.Context) {
	go func() {
		if err := b.api.Serve(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.ErrorContext(ctx, "error serving api HTTP", tint.Err(err))
		}
	}()
}

// initDiscordSession creates the discord session (if not already set),
// and adds the gateway event handlers
func (b *Bot) initDiscordSession(ctx context.Context) error {
	if err := b.ensureSession(); err != nil {
		return fmt.Errorf("error creating discord session: %w", err)
	}
	ctx = WithLogger(ctx, b.discord.logger)

	for _, remove := range b.discord.discordgoRemoveHandlerFuncs {
		remove()
	}

	session := b.discord.session
	b.discord.discordgoRemoveHandlerFuncs = []func(){
		session.AddHandler(b.discord.handlerConnect()),
		session.AddHandler(b.discord.handlerDisconnect()),
		session.AddHandler(b.discord.handlerReady()),
		session.AddHandler(b.discord.handlerGuildCreate()),
		session.AddHandler(
			func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
				handler := b.getInteractionHandlerFunc(ctx, i)
				b.runtimeWG.Add(1)
				go func() {
					defer b.runtimeWG.Done()
					b.handleInteraction(ctx, handler)
				}()
			},
		),
		session.AddHandler(
			func(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
				b.runtimeWG.Add(1)
				go func() {
					defer b.runtimeWG.Done()
					defer func() {
						if rc := recover(); rc != nil {
							handleRecover(ctx, rc)
						}
					}()
					if err := b.welcomeMember(ctx, m); err != nil {
						b.discord.logger.ErrorContext(
							ctx,
							"error welcoming member",
							tint.Err(err),
							"guild_id", m.GuildID,
						)
					}
				}()
			},
		),
	}

	if b.getInteractionHandlerFunc == nil {
		b.getInteractionHandlerFunc = b.newGatewayHandler
	}
	return nil
}

// cronLogger adapts slog to cron's logger interface
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{tint.Err(err)}, keysAndValues...)...)
}

// startScheduler starts the activity sweep and random stats jobs. The
// random stats are also refreshed once right away.
func (b *Bot) startScheduler(ctx context.Context) error {
	logger := newLogger(b.logWriter, b.config.Scheduler.LogLevel, "scheduler")
	cl := cronLogger{logger: logger}
	b.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	jobs := []struct {
		name     string
		schedule string
		run      func(ctx context.Context) error
	}{
		{
			name:     "activity_sweep",
			schedule: b.config.Scheduler.ActivitySchedule,
			run: func(jctx context.Context) error {
				return b.SweepActivities(jctx, time.Now())
			},
		},
		{
			name:     "random_stats",
			schedule: b.config.Scheduler.RandomStatsSchedule,
			run: func(jctx context.Context) error {
				_, err := b.randomStats.refresh(jctx, b.anilist, contextLoggerOr(jctx, logger))
				return err
			},
		},
	}
	for _, job := range jobs {
		job := job
		if _, err := b.cron.AddFunc(
			job.schedule,
			func() { b.runJob(ctx, logger, job.name, job.run) },
		); err != nil {
			return fmt.Errorf("invalid schedule %q for %s: %w", job.schedule, job.name, err)
		}
	}
	b.cron.Start()

	b.runtimeWG.Add(1)
	go func() {
		defer b.runtimeWG.Done()
		b.runJob(ctx, logger, "random_stats", jobs[1].run)
	}()
	return nil
}

// runJob runs a single scheduled job, with a run ID added to its logger
func (b *Bot) runJob(
	ctx context.Context,
	logger *slog.Logger,
	name string,
	run func(ctx context.Context) error,
) {
	if ctx.Err() != nil {
		return
	}
	logger = logger.With("job", name, "run_id", uuid.NewString())
	ctx = WithLogger(ctx, logger)
	start := time.Now()
	logger.DebugContext(ctx, "job started")
	if err := run(ctx); err != nil {
		logger.ErrorContext(ctx, "job failed", tint.Err(err), "duration", time.Since(start))
		return
	}
	logger.DebugContext(ctx, "job finished", "duration", time.Since(start))
}

// shutdown stops the scheduler, waits for in-flight work, then closes
// the discord session, the API server and the store. Anything still
// running after [Config.ShutdownTimeout] is abandoned.
func (b *Bot) shutdown(ctx context.Context, cause error) error {
	b.logger.WarnContext(ctx, "shutting down")
	shutdownStart := time.Now()
	closeCtx, closeCancel := context.WithTimeout(
		context.Background(),
		b.config.ShutdownTimeout,
	)
	defer closeCancel()

	var errs []error
	if cause != nil {
		errs = append(errs, cause)
	}

	if b.cron != nil {
		select {
		case <-b.cron.Stop().Done():
		case <-closeCtx.Done():
			b.logger.Warn("scheduled jobs did not stop in time")
		}
	}

	done := make(chan struct{})
	go func() {
		b.runtimeWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.logger.InfoContext(
			ctx,
			"finished handling in-flight requests",
			"runtime_stop_duration", time.Since(shutdownStart),
		)
	case <-closeCtx.Done():
		b.logger.Warn("in-flight requests did not finish in time")
		errs = append(errs, errors.New("in-flight requests did not finish in time"))
	}

	if b.discord.session != nil {
		for _, remove := range b.discord.discordgoRemoveHandlerFuncs {
			remove()
		}
		b.discord.discordgoRemoveHandlerFuncs = nil
		if err := b.discord.session.Close(); err != nil {
			b.logger.Error("error closing discord session", tint.Err(err))
		}
	}

	if b.api != nil {
		if err := b.api.httpServer.Shutdown(closeCtx); err != nil {
			b.logger.Error("error shutting down api", tint.Err(err))
			errs = append(errs, err)
		}
	}

	if b.store != nil {
		if err := b.store.Close(); err != nil {
			b.logger.Error("error closing store", tint.Err(err))
			errs = append(errs, err)
		}
	}

	b.logger.Info("shutdown complete", "duration", time.Since(shutdownStart))
	return errors.Join(errs...)
}
