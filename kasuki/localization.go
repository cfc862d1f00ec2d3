package kasuki

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultLanguage is used for guilds without a GuildLanguage row, and
// for keys missing from a guild's language
const DefaultLanguage = "en"

const (
	msgErrorGeneric  = "error.generic"
	msgErrorMissing  = "error.missing"
	msgErrorRequest  = "error.request"
	msgErrorDatabase = "error.database"
	msgErrorTitle    = "error.title"

	msgModuleDisabled = "module.disabled"
	msgNoPermission   = "permission.denied"
	msgGuildOnly      = "guild.only"
	msgNSFWOnly       = "nsfw.only"

	msgLangSet        = "admin.lang.set"
	msgLangUnknown    = "admin.lang.unknown"
	msgModuleSet      = "admin.module.set"
	msgEnabled        = "state.enabled"
	msgDisabled       = "state.disabled"
	msgActivityAdded  = "activity.added"
	msgActivityUpdate = "activity.updated"
	msgActivityRemove = "activity.removed"
	msgActivityNone   = "activity.not_found"
	msgActivityEnded  = "activity.not_airing"
	msgActivityAired  = "activity.aired"
	msgActivityList   = "activity.list.title"
	msgActivityEmpty  = "activity.list.empty"
	msgActivityNext   = "activity.next"

	msgRegistered    = "anilist.registered"
	msgNotRegistered = "anilist.not_registered"
	msgLevelTitle    = "anilist.level.title"
	msgLevelDesc     = "anilist.level.description"
	msgCompareTitle  = "anilist.compare.title"
	msgCompareDesc   = "anilist.compare.description"
	msgCompareUser   = "anilist.compare.user"
	msgUserLevel     = "anilist.user.level"
	msgUserAnime     = "anilist.user.anime"
	msgUserManga     = "anilist.user.manga"
	msgRandomTitle   = "anilist.random.title"

	msgPing         = "bot.ping"
	msgInfoTitle    = "bot.info.title"
	msgInfoDesc     = "bot.info.description"
	msgAvatarTitle  = "avatar.title"
	msgWelcomeTitle = "welcome.title"
	msgWelcomeDesc  = "welcome.description"

	msgAIAnswerTitle = "ai.question.title"
	msgAIImageTitle  = "ai.image.title"
	msgAITranscript  = "ai.transcript.title"
	msgAITranslation = "ai.translation.title"
	msgAIDisabled    = "ai.disabled"
	msgAIAttachment  = "ai.attachment.invalid"

	msgVNStatsTitle = "vn.stats.title"

	msgFieldFormat      = "field.format"
	msgFieldStatus      = "field.status"
	msgFieldEpisodes    = "field.episodes"
	msgFieldChapters    = "field.chapters"
	msgFieldVolumes     = "field.volumes"
	msgFieldScore       = "field.score"
	msgFieldGenres      = "field.genres"
	msgFieldTags        = "field.tags"
	msgFieldStudios     = "field.studios"
	msgFieldStaff       = "field.staff"
	msgFieldStart       = "field.start_date"
	msgFieldEnd         = "field.end_date"
	msgFieldNextEpisode = "field.next_episode"
	msgFieldFavourites  = "field.favourites"
	msgFieldMedia       = "field.media"
	msgFieldCharacters  = "field.characters"
	msgFieldAge         = "field.age"
	msgFieldGender      = "field.gender"
	msgFieldBirthday    = "field.birthday"
	msgFieldOccupations = "field.occupations"
	msgFieldAnime       = "field.anime"
	msgFieldManga       = "field.manga"
	msgFieldReleased    = "field.released"
	msgFieldPlatforms   = "field.platforms"
	msgFieldLength      = "field.length"
	msgFieldDevelopers  = "field.developers"
	msgFieldLanguages   = "field.languages"
	msgFieldType        = "field.type"
	msgFieldVotes       = "field.votes"
	msgFieldColor       = "field.color"
)

var englishMessages = map[string]string{
	msgErrorGeneric:  "Something went wrong while handling this command.",
	msgErrorMissing:  "Nothing was found for this request.",
	msgErrorRequest:  "The request to the remote service failed. Please try again later.",
	msgErrorDatabase: "Unable to read or save the server settings. Please try again later.",
	msgErrorTitle:    "Error",

	msgModuleDisabled: "The %s module is disabled on this server.",
	msgNoPermission:   "You need the Manage Server permission to use this command.",
	msgGuildOnly:      "This command can only be used in a server.",
	msgNSFWOnly:       "NSFW images can only be posted in age-restricted channels.",

	msgLangSet:        "The server language is now `%s`.",
	msgLangUnknown:    "Unknown language `%s`. Available: %s",
	msgModuleSet:      "The %s module is now %s.",
	msgEnabled:        "enabled",
	msgDisabled:       "disabled",
	msgActivityAdded:  "Notifications enabled for **%s**. The next episode airs %s.",
	msgActivityUpdate: "Notifications for **%s** were updated. The next episode airs %s.",
	msgActivityRemove: "Notifications disabled for **%s**.",
	msgActivityNone:   "There are no notifications for this anime on this server.",
	msgActivityEnded:  "**%s** has no upcoming episode.",
	msgActivityAired:  "Episode %s of %s just aired!",
	msgActivityList:   "Airing notifications",
	msgActivityEmpty:  "There are no airing notifications on this server.",
	msgActivityNext:   "Episode %s airs %s",

	msgRegistered:    "Your discord account is now linked to the AniList user **%s**.",
	msgNotRegistered: "No username was given, and you haven't registered an AniList account.",
	msgLevelTitle:    "%s's level",
	msgLevelDesc:     "Level **%d**\n%s / %s xp to the next level",
	msgCompareTitle:  "%s and %s",
	msgCompareDesc:   "Affinity: **%.2f%%**",
	msgCompareUser:   "Level %d\n%s anime\n%s manga",
	msgUserLevel:     "Level **%d**",
	msgUserAnime:     "%s entries\n%s episodes\n%s days\n%.1f mean score",
	msgUserManga:     "%s entries\n%s chapters\n%s volumes\n%.1f mean score",
	msgRandomTitle:   "Random %s",

	msgPing:         "Pong! Gateway latency: %s",
	msgInfoTitle:    "Kasuki",
	msgInfoDesc:     "A bot for anime, manga and visual novels.\nServers: %s\nUptime: %s\nVersion: %s",
	msgAvatarTitle:  "%s's avatar",
	msgWelcomeTitle: "Welcome!",
	msgWelcomeDesc:  "Welcome to **%s**, %s!",

	msgAIAnswerTitle: "Answer",
	msgAIImageTitle:  "Generated image",
	msgAITranscript:  "Transcript",
	msgAITranslation: "Translation",
	msgAIDisabled:    "AI commands aren't configured on this bot.",
	msgAIAttachment:  "The attachment must be an audio or video file.",

	msgVNStatsTitle: "VNDB statistics",

	msgFieldFormat:      "Format",
	msgFieldStatus:      "Status",
	msgFieldEpisodes:    "Episodes",
	msgFieldChapters:    "Chapters",
	msgFieldVolumes:     "Volumes",
	msgFieldScore:       "Score",
	msgFieldGenres:      "Genres",
	msgFieldTags:        "Tags",
	msgFieldStudios:     "Studios",
	msgFieldStaff:       "Staff",
	msgFieldStart:       "Start date",
	msgFieldEnd:         "End date",
	msgFieldNextEpisode: "Next episode",
	msgFieldFavourites:  "Favourites",
	msgFieldMedia:       "Appears in",
	msgFieldCharacters:  "Characters",
	msgFieldAge:         "Age",
	msgFieldGender:      "Gender",
	msgFieldBirthday:    "Birthday",
	msgFieldOccupations: "Occupations",
	msgFieldAnime:       "Anime",
	msgFieldManga:       "Manga",
	msgFieldReleased:    "Released",
	msgFieldPlatforms:   "Platforms",
	msgFieldLength:      "Length",
	msgFieldDevelopers:  "Developers",
	msgFieldLanguages:   "Languages",
	msgFieldType:        "Type",
	msgFieldVotes:       "Votes",
	msgFieldColor:       "Average color",
}

var frenchMessages = map[string]string{
	msgErrorGeneric:  "Une erreur est survenue lors du traitement de cette commande.",
	msgErrorMissing:  "Aucun résultat pour cette requête.",
	msgErrorRequest:  "La requête vers le service distant a échoué. Réessayez plus tard.",
	msgErrorDatabase: "Impossible de lire ou d'enregistrer les paramètres du serveur.",
	msgErrorTitle:    "Erreur",

	msgModuleDisabled: "Le module %s est désactivé sur ce serveur.",
	msgNoPermission:   "Vous devez avoir la permission Gérer le serveur pour utiliser cette commande.",
	msgGuildOnly:      "Cette commande ne peut être utilisée que sur un serveur.",
	msgNSFWOnly:       "Les images NSFW ne peuvent être envoyées que dans les salons soumis à une limite d'âge.",

	msgLangSet:        "La langue du serveur est maintenant `%s`.",
	msgModuleSet:      "Le module %s est maintenant %s.",
	msgEnabled:        "activé",
	msgDisabled:       "désactivé",
	msgActivityAdded:  "Notifications activées pour **%s**. Le prochain épisode sort %s.",
	msgActivityRemove: "Notifications désactivées pour **%s**.",
	msgActivityAired:  "L'épisode %s de %s vient de sortir !",
	msgActivityEmpty:  "Aucune notification de diffusion sur ce serveur.",

	msgRegistered:  "Votre compte discord est maintenant lié à l'utilisateur AniList **%s**.",
	msgLevelTitle:  "Niveau de %s",
	msgCompareDesc: "Affinité : **%.2f%%**",
	msgCompareUser: "Niveau %d\n%s anime\n%s manga",
	msgUserLevel:   "Niveau **%d**",
	msgUserAnime:   "%s entrées\n%s épisodes\n%s jours\n%.1f de note moyenne",
	msgUserManga:   "%s entrées\n%s chapitres\n%s volumes\n%.1f de note moyenne",

	msgPing:         "Pong ! Latence de la passerelle : %s",
	msgWelcomeTitle: "Bienvenue !",
	msgWelcomeDesc:  "Bienvenue sur **%s**, %s !",
}

var germanMessages = map[string]string{
	msgErrorGeneric:  "Beim Ausführen dieses Befehls ist ein Fehler aufgetreten.",
	msgErrorMissing:  "Für diese Anfrage wurde nichts gefunden.",
	msgErrorRequest:  "Die Anfrage an den externen Dienst ist fehlgeschlagen. Bitte später erneut versuchen.",
	msgErrorDatabase: "Die Servereinstellungen konnten nicht gelesen oder gespeichert werden.",
	msgErrorTitle:    "Fehler",

	msgModuleDisabled: "Das Modul %s ist auf diesem Server deaktiviert.",
	msgNoPermission:   "Du benötigst die Berechtigung Server verwalten, um diesen Befehl zu nutzen.",
	msgGuildOnly:      "Dieser Befehl kann nur auf einem Server verwendet werden.",

	msgLangSet:        "Die Serversprache ist jetzt `%s`.",
	msgModuleSet:      "Das Modul %s ist jetzt %s.",
	msgEnabled:        "aktiviert",
	msgDisabled:       "deaktiviert",
	msgActivityAdded:  "Benachrichtigungen für **%s** aktiviert. Die nächste Folge erscheint %s.",
	msgActivityRemove: "Benachrichtigungen für **%s** deaktiviert.",
	msgActivityAired:  "Folge %s von %s wurde gerade ausgestrahlt!",

	msgRegistered:  "Dein Discord-Konto ist jetzt mit dem AniList-Nutzer **%s** verknüpft.",
	msgLevelTitle:  "Level von %s",
	msgCompareUser: "Level %d\n%s Anime\n%s Manga",
	msgUserLevel:   "Level **%d**",
	msgUserAnime:   "%s Einträge\n%s Folgen\n%s Tage\n%.1f Durchschnittswertung",
	msgUserManga:   "%s Einträge\n%s Kapitel\n%s Bände\n%.1f Durchschnittswertung",

	msgPing:         "Pong! Gateway-Latenz: %s",
	msgWelcomeTitle: "Willkommen!",
}

var japaneseMessages = map[string]string{
	msgErrorGeneric:  "コマンドの処理中にエラーが発生しました。",
	msgErrorMissing:  "見つかりませんでした。",
	msgErrorRequest:  "外部サービスへのリクエストに失敗しました。しばらくしてから再試行してください。",
	msgErrorDatabase: "サーバー設定の読み込みまたは保存に失敗しました。",
	msgErrorTitle:    "エラー",

	msgModuleDisabled: "このサーバーでは%sモジュールが無効になっています。",
	msgNoPermission:   "このコマンドを使うにはサーバー管理権限が必要です。",
	msgGuildOnly:      "このコマンドはサーバー内でのみ使用できます。",

	msgLangSet:       "サーバーの言語を`%s`に設定しました。",
	msgModuleSet:     "%sモジュールを%sにしました。",
	msgEnabled:       "有効",
	msgDisabled:      "無効",
	msgActivityAired: "%[2]sの第%[1]s話が放送されました！",

	msgLevelTitle:  "%sのレベル",
	msgCompareUser: "レベル %d\nアニメ %s本\nマンガ %s冊",
	msgUserLevel:   "レベル **%d**",
	msgUserAnime:   "%s作品\n%s話\n%s日\n平均スコア %.1f",
	msgUserManga:   "%s作品\n%s章\n%s巻\n平均スコア %.1f",

	msgPing:         "Pong！ゲートウェイのレイテンシ: %s",
	msgWelcomeTitle: "ようこそ！",
}

// Localizer holds response text per language
type Localizer struct {
	messages map[string]map[string]string
}

// NewLocalizer returns a Localizer with the built-in languages
func NewLocalizer() *Localizer {
	return &Localizer{
		messages: map[string]map[string]string{
			"en": englishMessages,
			"fr": frenchMessages,
			"de": germanMessages,
			"ja": japaneseMessages,
		},
	}
}

// Languages returns the supported language codes, sorted
func (l *Localizer) Languages() []string {
	langs := make([]string, 0, len(l.messages))
	for lang := range l.messages {
		langs = append(langs, lang)
	}
	slices.Sort(langs)
	return langs
}

// Supported reports whether lang has a message table
func (l *Localizer) Supported(lang string) bool {
	_, ok := l.messages[normalizeLanguage(lang)]
	return ok
}

func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	// discord locales look like 'en-US'
	lang, _, _ = strings.Cut(lang, "-")
	return lang
}

// Text returns the message for key in lang, falling back to
// DefaultLanguage. If neither has key, an ErrKindLanguage error is
// returned.
func (l *Localizer) Text(lang string, key string) (string, error) {
	if msgs, ok := l.messages[normalizeLanguage(lang)]; ok {
		if s, found := msgs[key]; found {
			return s, nil
		}
	}
	if s, ok := l.messages[DefaultLanguage][key]; ok {
		return s, nil
	}
	return "", newError(
		ErrKindLanguage,
		"Localizer.Text",
		fmt.Errorf("no message %q for language %q", key, lang),
	)
}

// T formats the message for key in lang with args. If there's no such
// message, the key itself is returned.
func (l *Localizer) T(lang string, key string, args ...any) string {
	s, err := l.Text(lang, key)
	if err != nil {
		return key
	}
	if len(args) == 0 {
		return s
	}
	return fmt.Sprintf(s, args...)
}
