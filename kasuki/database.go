package kasuki

import (
	"context"
	"errors"
	"fmt"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	dbTypeSQLite        = "sqlite"
	dbTypePostgres      = "postgres"
	dbTypePostgresAlias = "postgresql"
)

const (
	columnGuildID         = "guild_id"
	columnGuildLanguage   = "lang"
	columnDiscordUserID   = "discord_user_id"
	columnExternalUserID  = "external_user_id"
	columnAnimeID         = "anime_id"
	columnAiringTimestamp = "airing_timestamp"
	columnImageType       = "image_type"
	columnUpdatedAt       = "updated_at"

	columnModuleActivationAI        = "ai"
	columnModuleActivationAnilist   = "anilist"
	columnModuleActivationGame      = "game"
	columnModuleActivationNewMember = "new_member"
	columnModuleActivationAnime     = "anime"
	columnModuleActivationVN        = "vn"
)

var (
	sqliteMaxOpenConns    = 1
	sqliteMaxIdleConns    = 1
	sqliteMaxConnLifetime = 5 * time.Minute
	sqliteExecPragma      = []string{
		"pragma journal_mode=WAL;",
		"pragma synchronous = normal;",
		"pragma temp_store = memory;",
		"pragma foreign_keys = ON;",
	}
	dbOperationTimeout = 30 * time.Second
)

// ModelUnixTime is an embeddable model with Unix millisecond timestamps
// for creation and update.
type ModelUnixTime struct {
	CreatedAt int64 `gorm:"autoCreateTime:milli" json:"created_at,omitempty"`
	UpdatedAt int64 `gorm:"autoUpdateTime:milli" json:"updated_at,omitempty"`
}

// GuildLanguage is the language a guild's responses are localized to.
type GuildLanguage struct {
	GuildID string `gorm:"primaryKey;column:guild_id" json:"guild_id"`
	Lang    string `gorm:"column:lang;not null" json:"lang" binding:"required"`
	ModelUnixTime
}

func (GuildLanguage) TableName() string {
	return "guild_lang"
}

// ModuleActivation holds a guild's module flags. The row with
// GuildID [killSwitchGuildID] applies to every guild.
//
// The boolean columns deliberately carry no SQL default, since gorm
// skips zero-valued fields that have one on insert.
type ModuleActivation struct {
	GuildID   string `gorm:"primaryKey;column:guild_id" json:"guild_id"`
	AI        bool   `gorm:"column:ai" json:"ai"`
	Anilist   bool   `gorm:"column:anilist" json:"anilist"`
	Game      bool   `gorm:"column:game" json:"game"`
	NewMember bool   `gorm:"column:new_member" json:"new_member"`
	Anime     bool   `gorm:"column:anime" json:"anime"`
	VN        bool   `gorm:"column:vn" json:"vn"`
	ModelUnixTime
}

func (ModuleActivation) TableName() string {
	return "module_activation"
}

// RegisteredUser links a discord account to an AniList user ID.
type RegisteredUser struct {
	DiscordUserID  string `gorm:"primaryKey;column:discord_user_id" json:"discord_user_id"`
	ExternalUserID string `gorm:"column:external_user_id;not null" json:"external_user_id"`
	ModelUnixTime
}

func (RegisteredUser) TableName() string {
	return "registered_user"
}

// ScheduledActivity is a per-guild "episode aired" notification for an
// anime. When AiringTimestamp passes, the activity sweep posts to
// WebhookURL, then either advances the row to the next episode or
// deletes it.
type ScheduledActivity struct {
	AnimeID           string `gorm:"primaryKey;column:anime_id" json:"anime_id"`
	GuildID           string `gorm:"primaryKey;column:guild_id" json:"guild_id"`
	AiringTimestamp   int64  `gorm:"column:airing_timestamp;index" json:"airing_timestamp"`
	WebhookURL        string `gorm:"column:webhook_url" json:"-" log:"[redacted]"`
	Episode           string `gorm:"column:episode" json:"episode"`
	Name              string `gorm:"column:name" json:"name"`
	DelaySeconds      int64  `gorm:"column:delay_seconds" json:"delay_seconds"`
	AvatarImageBase64 string `gorm:"column:avatar_image_base64" json:"-"`
	ModelUnixTime
}

func (ScheduledActivity) TableName() string {
	return "activity_data"
}

func (a ScheduledActivity) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String(columnAnimeID, a.AnimeID),
		slog.String(columnGuildID, a.GuildID),
		slog.Int64(columnAiringTimestamp, a.AiringTimestamp),
		slog.String("episode", a.Episode),
		slog.String("name", a.Name),
		slog.Int64("delay_seconds", a.DelaySeconds),
	)
}

// UserApproximatedColor caches the average color computed from a
// user's avatar. It's recomputed when AvatarURL changes.
type UserApproximatedColor struct {
	DiscordUserID string `gorm:"primaryKey;column:discord_user_id" json:"discord_user_id"`
	ColorHex      string `gorm:"column:color_hex" json:"color_hex"`
	AvatarURL     string `gorm:"column:avatar_url" json:"avatar_url"`
	CachedImage   string `gorm:"column:cached_image" json:"-"`
	ModelUnixTime
}

func (UserApproximatedColor) TableName() string {
	return "user_color"
}

// ServerImage is a per-guild custom image, keyed by ImageType
// (ex: "new_member").
type ServerImage struct {
	GuildID     string `gorm:"primaryKey;column:guild_id" json:"guild_id"`
	ImageType   string `gorm:"primaryKey;column:image_type" json:"image_type"`
	ImageBase64 string `gorm:"column:image_base64" json:"-"`
	ImageURL    string `gorm:"column:image_url" json:"image_url"`
	ModelUnixTime
}

func (ServerImage) TableName() string {
	return "server_image"
}

// Store defines the persisted-configuration operations used by command
// handlers and background jobs. Each call makes exactly one backend round
// trip. Lookups return nil (and no error) when the row doesn't exist.
// Backend failures are returned as ErrKindDatabase errors.
type Store interface {
	GetGuildLanguage(ctx context.Context, guildID string) (*GuildLanguage, error)
	SetGuildLanguage(ctx context.Context, lang GuildLanguage) error

	GetModuleActivation(ctx context.Context, guildID string) (*ModuleActivation, error)
	SetModuleActivation(ctx context.Context, status ModuleActivation) error

	GetRegisteredUser(ctx context.Context, discordUserID string) (*RegisteredUser, error)
	SetRegisteredUser(ctx context.Context, user RegisteredUser) error

	// GetScheduledActivities returns every activity whose airing
	// timestamp is at or before now (unix seconds)
	GetScheduledActivities(ctx context.Context, now int64) ([]ScheduledActivity, error)
	GetGuildActivities(ctx context.Context, guildID string) ([]ScheduledActivity, error)
	GetScheduledActivity(ctx context.Context, animeID string, guildID string) (*ScheduledActivity, error)
	SetScheduledActivity(ctx context.Context, activity ScheduledActivity) error
	RemoveScheduledActivity(ctx context.Context, animeID string, guildID string) error

	GetUserApproximatedColor(ctx context.Context, discordUserID string) (*UserApproximatedColor, error)
	SetUserApproximatedColor(ctx context.Context, color UserApproximatedColor) error

	GetServerImage(ctx context.Context, guildID string, imageType string) (*ServerImage, error)
	SetServerImage(ctx context.Context, image ServerImage) error

	// Migrate creates/updates tables and seeds the kill switch row
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Backend() Backend
	Close() error
}

// Backend identifies a Store implementation
type Backend int

const (
	BackendSQLite Backend = iota
	BackendPostgres
)

func (b Backend) String() string {
	switch b {
	case BackendPostgres:
		return dbTypePostgresAlias
	default:
		return dbTypeSQLite
	}
}

// ParseBackend maps a configured database type to a Backend. Unrecognized
// values resolve to BackendSQLite with ok=false, so the caller can warn.
func ParseBackend(databaseType string) (backend Backend, ok bool) {
	switch strings.ToLower(strings.TrimSpace(databaseType)) {
	case dbTypeSQLite:
		return BackendSQLite, true
	case dbTypePostgres, dbTypePostgresAlias:
		return BackendPostgres, true
	default:
		return BackendSQLite, false
	}
}

// StoreOptions configures a Store's connection
type StoreOptions struct {
	// Logger receives store-level events. Defaults to slog.Default()
	Logger *slog.Logger

	// GORMLogger receives per-query logs. Defaults to gorm's silent logger.
	GORMLogger logger.Interface

	// MaxConns caps the postgres pool
	MaxConns int32
}

type storeOpener func(ctx context.Context, dsn string, opts StoreOptions) (Store, error)

var storeOpeners = map[Backend]storeOpener{
	BackendSQLite:   openSQLiteStore,
	BackendPostgres: openPostgresStore,
}

// OpenStore resolves databaseType to a backend and opens a long-lived
// connection (pool) to database. It's meant to be called once at startup.
func OpenStore(
	ctx context.Context,
	databaseType string,
	database string,
	opts StoreOptions,
) (Store, error) {
	return openStoreWith(ctx, storeOpeners, databaseType, database, opts)
}

func openStoreWith(
	ctx context.Context,
	openers map[Backend]storeOpener,
	databaseType string,
	database string,
	opts StoreOptions,
) (Store, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.GORMLogger == nil {
		opts.GORMLogger = logger.Discard
	}

	backend, ok := ParseBackend(databaseType)
	if !ok {
		opts.Logger.WarnContext(
			ctx,
			fmt.Sprintf(
				"unrecognized database type, falling back to %s",
				dbTypeSQLite,
			),
			"database_type", databaseType,
		)
	}
	open, found := openers[backend]
	if !found {
		return nil, fmt.Errorf("no store available for backend %s", backend)
	}
	opts.Logger.InfoContext(ctx, "opening store", "backend", backend.String())
	return open(ctx, database, opts)
}

func gormConfig(l logger.Interface) *gorm.Config {
	return &gorm.Config{
		Logger: l,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// gormStore implements every Store operation on top of a gorm connection.
// sqliteStore and postgresStore embed it, differing in how the connection
// is opened/closed and whether writes are serialized.
type gormStore struct {
	db              *gorm.DB
	logger          *slog.Logger
	writeMu         sync.Mutex
	serializeWrites bool
}

// sqliteStore is the SQLite Store. SQLite has a single writer, so
// writes are serialized in-process in addition to using one connection.
type sqliteStore struct {
	*gormStore
}

// postgresStore is the PostgreSQL Store, backed by a single pgx pool
// that lives as long as the store.
type postgresStore struct {
	*gormStore
	pool *pgxpool.Pool
}

func openSQLiteStore(ctx context.Context, database string, opts StoreOptions) (Store, error) {
	parentDir := filepath.Dir(database)
	if parentDir != "" {
		if err := os.MkdirAll(parentDir, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, newError(ErrKindFile, "store.open", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(database), gormConfig(opts.GORMLogger))
	if err != nil {
		return nil, newError(ErrKindDatabase, "store.open", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, newError(ErrKindDatabase, "store.open", err)
	}
	sqlDB.SetMaxOpenConns(sqliteMaxOpenConns)
	sqlDB.SetMaxIdleConns(sqliteMaxIdleConns)
	sqlDB.SetConnMaxLifetime(sqliteMaxConnLifetime)

	pragmaErrors := make([]error, 0, len(sqliteExecPragma))
	for _, p := range sqliteExecPragma {
		pragmaErrors = append(pragmaErrors, db.WithContext(ctx).Exec(p).Error)
	}
	if pragmaErr := errors.Join(pragmaErrors...); pragmaErr != nil {
		_ = sqlDB.Close()
		return nil, newError(ErrKindDatabase, "store.open", pragmaErr)
	}

	return &sqliteStore{
		gormStore: &gormStore{
			db:              db,
			logger:          opts.Logger.With(loggerNameKey, "store", "backend", dbTypeSQLite),
			serializeWrites: true,
		},
	}, nil
}

func openPostgresStore(ctx context.Context, dsn string, opts StoreOptions) (Store, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, newError(ErrKindDatabase, "store.open", fmt.Errorf("error parsing database config: %w", err))
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = opts.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, newError(ErrKindDatabase, "store.open", fmt.Errorf("error creating connection pool: %w", err))
	}

	db, err := gorm.Open(
		postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pool)}),
		gormConfig(opts.GORMLogger),
	)
	if err != nil {
		pool.Close()
		return nil, newError(ErrKindDatabase, "store.open", err)
	}

	return &postgresStore{
		gormStore: &gormStore{
			db:     db,
			logger: opts.Logger.With(loggerNameKey, "store", "backend", dbTypePostgresAlias),
		},
		pool: pool,
	}, nil
}

func (*sqliteStore) Backend() Backend {
	return BackendSQLite
}

func (s *sqliteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return newError(ErrKindDatabase, "store.Close", err)
	}
	return sqlDB.Close()
}

func (*postgresStore) Backend() Backend {
	return BackendPostgres
}

func (s *postgresStore) Close() error {
	var closeErr error
	if sqlDB, err := s.db.DB(); err == nil {
		closeErr = sqlDB.Close()
	}
	s.pool.Close()
	return closeErr
}

func (s *postgresStore) Ping(ctx context.Context) error {
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()
	if err := s.pool.Ping(ctx); err != nil {
		return newError(ErrKindDatabase, "store.Ping", err)
	}
	return nil
}

// withOperationTimeout applies dbOperationTimeout to ctx if it doesn't
// already have a deadline
func withOperationTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, dbOperationTimeout)
}

func (s *gormStore) lock() {
	if s.serializeWrites {
		s.writeMu.Lock()
	}
}

func (s *gormStore) unlock() {
	if s.serializeWrites {
		s.writeMu.Unlock()
	}
}

// first loads the row matching the given conditions into dst, returning
// found=false when there's no such row.
func (s *gormStore) first(ctx context.Context, dst any, query string, args ...any) (found bool, err error) {
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()

	err = s.db.WithContext(ctx).Where(query, args...).Take(dst).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// upsert inserts value, or updates updateColumns on the row matching
// conflictColumns
func (s *gormStore) upsert(
	ctx context.Context,
	value any,
	conflictColumns []string,
	updateColumns []string,
) error {
	s.lock()
	defer s.unlock()

	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()

	columns := make([]clause.Column, 0, len(conflictColumns))
	for _, c := range conflictColumns {
		columns = append(columns, clause.Column{Name: c})
	}
	return s.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   columns,
			DoUpdates: clause.AssignmentColumns(append(updateColumns, columnUpdatedAt)),
		},
	).Create(value).Error
}

func (s *gormStore) Ping(ctx context.Context) error {
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()
	sqlDB, err := s.db.DB()
	if err != nil {
		return newError(ErrKindDatabase, "store.Ping", err)
	}
	if err = sqlDB.PingContext(ctx); err != nil {
		return newError(ErrKindDatabase, "store.Ping", err)
	}
	return nil
}

func (s *gormStore) GetGuildLanguage(ctx context.Context, guildID string) (*GuildLanguage, error) {
	var lang GuildLanguage
	found, err := s.first(ctx, &lang, "guild_id = ?", guildID)
	if err != nil {
		return nil, newError(ErrKindDatabase, "store.GetGuildLanguage", err)
	}
	if !found {
		return nil, nil
	}
	return &lang, nil
}

func (s *gormStore) SetGuildLanguage(ctx context.Context, lang GuildLanguage) error {
	err := s.upsert(ctx, &lang, []string{columnGuildID}, []string{columnGuildLanguage})
	if err != nil {
		return newError(ErrKindDatabase, "store.SetGuildLanguage", err)
	}
	return nil
}

func (s *gormStore) GetModuleActivation(ctx context.Context, guildID string) (*ModuleActivation, error) {
	var status ModuleActivation
	found, err := s.first(ctx, &status, "guild_id = ?", guildID)
	if err != nil {
		return nil, newError(ErrKindDatabase, "store.GetModuleActivation", err)
	}
	if !found {
		return nil, nil
	}
	return &status, nil
}

func (s *gormStore) SetModuleActivation(ctx context.Context, status ModuleActivation) error {
	updateColumns := make([]string, 0, len(allModules))
	for _, m := range allModules {
		updateColumns = append(updateColumns, m.column())
	}
	err := s.upsert(ctx, &status, []string{columnGuildID}, updateColumns)
	if err != nil {
		return newError(ErrKindDatabase, "store.SetModuleActivation", err)
	}
	return nil
}

func (s *gormStore) GetRegisteredUser(ctx context.Context, discordUserID string) (*RegisteredUser, error) {
	var user RegisteredUser
	found, err := s.first(ctx, &user, "discord_user_id = ?", discordUserID)
	if err != nil {
		return nil, newError(ErrKindDatabase, "store.GetRegisteredUser", err)
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

func (s *gormStore) SetRegisteredUser(ctx context.Context, user RegisteredUser) error {
	err := s.upsert(ctx, &user, []string{columnDiscordUserID}, []string{columnExternalUserID})
	if err != nil {
		return newError(ErrKindDatabase, "store.SetRegisteredUser", err)
	}
	return nil
}

func (s *gormStore) GetScheduledActivities(ctx context.Context, now int64) ([]ScheduledActivity, error) {
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()

	var activities []ScheduledActivity
	err := s.db.WithContext(ctx).
		Where("airing_timestamp <= ?", now).
		Order(columnAiringTimestamp).
		Find(&activities).Error
	if err != nil {
		return nil, newError(ErrKindDatabase, "store.GetScheduledActivities", err)
	}
	return activities, nil
}

func (s *gormStore) GetGuildActivities(ctx context.Context, guildID string) ([]ScheduledActivity, error) {
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()

	var activities []ScheduledActivity
	err := s.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order(columnAiringTimestamp).
		Find(&activities).Error
	if err != nil {
		return nil, newError(ErrKindDatabase, "store.GetGuildActivities", err)
	}
	return activities, nil
}

func (s *gormStore) GetScheduledActivity(
	ctx context.Context,
	animeID string,
	guildID string,
) (*ScheduledActivity, error) {
	var activity ScheduledActivity
	found, err := s.first(ctx, &activity, "anime_id = ? AND guild_id = ?", animeID, guildID)
	if err != nil {
		return nil, newError(ErrKindDatabase, "store.GetScheduledActivity", err)
	}
	if !found {
		return nil, nil
	}
	return &activity, nil
}

func (s *gormStore) SetScheduledActivity(ctx context.Context, activity ScheduledActivity) error {
	err := s.upsert(
		ctx,
		&activity,
		[]string{columnAnimeID, columnGuildID},
		[]string{
			columnAiringTimestamp,
			"webhook_url",
			"episode",
			"name",
			"delay_seconds",
			"avatar_image_base64",
		},
	)
	if err != nil {
		return newError(ErrKindDatabase, "store.SetScheduledActivity", err)
	}
	return nil
}

func (s *gormStore) RemoveScheduledActivity(ctx context.Context, animeID string, guildID string) error {
	s.lock()
	defer s.unlock()

	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).
		Where("anime_id = ? AND guild_id = ?", animeID, guildID).
		Delete(&ScheduledActivity{}).Error
	if err != nil {
		return newError(ErrKindDatabase, "store.RemoveScheduledActivity", err)
	}
	return nil
}

func (s *gormStore) GetUserApproximatedColor(
	ctx context.Context,
	discordUserID string,
) (*UserApproximatedColor, error) {
	var color UserApproximatedColor
	found, err := s.first(ctx, &color, "discord_user_id = ?", discordUserID)
	if err != nil {
		return nil, newError(ErrKindDatabase, "store.GetUserApproximatedColor", err)
	}
	if !found {
		return nil, nil
	}
	return &color, nil
}

func (s *gormStore) SetUserApproximatedColor(ctx context.Context, color UserApproximatedColor) error {
	err := s.upsert(
		ctx,
		&color,
		[]string{columnDiscordUserID},
		[]string{"color_hex", "avatar_url", "cached_image"},
	)
	if err != nil {
		return newError(ErrKindDatabase, "store.SetUserApproximatedColor", err)
	}
	return nil
}

func (s *gormStore) GetServerImage(ctx context.Context, guildID string, imageType string) (*ServerImage, error) {
	var image ServerImage
	found, err := s.first(ctx, &image, "guild_id = ? AND image_type = ?", guildID, imageType)
	if err != nil {
		return nil, newError(ErrKindDatabase, "store.GetServerImage", err)
	}
	if !found {
		return nil, nil
	}
	return &image, nil
}

func (s *gormStore) SetServerImage(ctx context.Context, image ServerImage) error {
	err := s.upsert(
		ctx,
		&image,
		[]string{columnGuildID, columnImageType},
		[]string{"image_base64", "image_url"},
	)
	if err != nil {
		return newError(ErrKindDatabase, "store.SetServerImage", err)
	}
	return nil
}

// Migrate auto-migrates every model. Module flag columns that didn't exist
// before the migration are backfilled with their default for existing
// rows, since adding the column leaves them NULL (the kill switch row gets
// true). Finally, the kill switch row is created, with every module
// allowed, if it doesn't exist.
func (s *gormStore) Migrate(ctx context.Context) error {
	s.lock()
	defer s.unlock()

	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(
		func(tx *gorm.DB) error {
			mg := tx.Migrator()

			var added []Module
			if mg.HasTable(&ModuleActivation{}) {
				for _, m := range allModules {
					if !mg.HasColumn(&ModuleActivation{}, m.column()) {
						added = append(added, m)
					}
				}
			}

			if err := mg.AutoMigrate(
				&GuildLanguage{},
				&ModuleActivation{},
				&RegisteredUser{},
				&ScheduledActivity{},
				&UserApproximatedColor{},
				&ServerImage{},
			); err != nil {
				return fmt.Errorf("error migrating database: %w", err)
			}

			for _, m := range added {
				s.logger.InfoContext(
					ctx,
					"backfilling new module column",
					"module", m.String(),
					"default", m.defaultEnabled(),
				)
				if err := tx.Model(&ModuleActivation{}).
					Where(columnGuildID+" <> ?", killSwitchGuildID).
					Update(m.column(), m.defaultEnabled()).Error; err != nil {
					return fmt.Errorf("error backfilling %s: %w", m.column(), err)
				}
				if err := tx.Model(&ModuleActivation{}).
					Where(columnGuildID+" = ?", killSwitchGuildID).
					Update(m.column(), true).Error; err != nil {
					return fmt.Errorf("error backfilling %s: %w", m.column(), err)
				}
			}

			killSwitch := killSwitchActivation()
			return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&killSwitch).Error
		},
	)
	if err != nil {
		return newError(ErrKindDatabase, "store.Migrate", err)
	}
	return nil
}
