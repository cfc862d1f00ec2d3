package kasuki

import (
	"github.com/bwmarrin/discordgo"
)

// Slash command names
const (
	commandAnilist      = "anilist_user"
	commandVN           = "vn"
	commandRandomImage  = "random_image"
	commandAI           = "ai"
	commandAdmin        = "admin"
	commandListActivity = "list_activity"
	commandBot          = "bot"
	commandAvatar       = "avatar"
)

// Full command paths, as returned by commandPath
const (
	pathAnilistAnime     = "anilist_user anime"
	pathAnilistManga     = "anilist_user manga"
	pathAnilistLN        = "anilist_user ln"
	pathAnilistCharacter = "anilist_user character"
	pathAnilistStaff     = "anilist_user staff"
	pathAnilistStudio    = "anilist_user studio"
	pathAnilistUser      = "anilist_user user"
	pathAnilistRegister  = "anilist_user register"
	pathAnilistCompare   = "anilist_user compare"
	pathAnilistLevel     = "anilist_user level"
	pathAnilistRandom    = "anilist_user random"

	pathVNGame      = "vn game"
	pathVNCharacter = "vn character"
	pathVNProducer  = "vn producer"
	pathVNUser      = "vn user"
	pathVNStats     = "vn stats"

	pathRandomImage = "random_image"

	pathAIQuestion    = "ai question"
	pathAIImage       = "ai image"
	pathAITranscript  = "ai transcript"
	pathAITranslation = "ai translation"

	pathAdminLang           = "admin general lang"
	pathAdminModule         = "admin general module"
	pathAdminAddActivity    = "admin anilist add_activity"
	pathAdminDeleteActivity = "admin anilist delete_activity"

	pathListActivity = "list_activity"
	pathBotPing      = "bot ping"
	pathBotInfo      = "bot info"
	pathAvatar       = "avatar"
)

// Option names
const (
	optionName      = "name"
	optionUsername  = "username"
	optionUsername2 = "username2"
	optionType      = "type"
	optionTitle     = "title"
	optionCategory  = "category"
	optionNSFW      = "nsfw"
	optionPrompt    = "prompt"
	optionN         = "n"
	optionFile      = "file"
	optionLang      = "lang"
	optionModule    = "module"
	optionState     = "state"
	optionAnime     = "anime"
	optionDelay     = "delay"
	optionUser      = "user"
)

// permissionManageGuild is required for /admin commands
const permissionManageGuild = int64(discordgo.PermissionManageServer)

func stringOption(name string, description string, required bool, autocomplete bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionString,
		Name:         name,
		Description:  description,
		Required:     required,
		Autocomplete: autocomplete,
	}
}

func subCommand(name string, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

func subCommandGroup(
	name string,
	description string,
	options ...*discordgo.ApplicationCommandOption,
) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

func choices(values ...string) []*discordgo.ApplicationCommandOptionChoice {
	c := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(values))
	for _, v := range values {
		c = append(c, &discordgo.ApplicationCommandOptionChoice{Name: v, Value: v})
	}
	return c
}

// appCommands returns every slash command the bot handles
func appCommands() []*discordgo.ApplicationCommand {
	noDM := false
	adminPerm := permissionManageGuild
	minDelay := float64(0)
	minImages := float64(1)

	moduleNames := make([]string, 0, len(allModules))
	for _, m := range allModules {
		moduleNames = append(moduleNames, m.String())
	}

	randomTypes := []*discordgo.ApplicationCommandOptionChoice{
		{Name: "anime", Value: MediaTypeAnime},
		{Name: "manga", Value: MediaTypeManga},
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        commandAnilist,
			Description: "Search AniList",
			Options: []*discordgo.ApplicationCommandOption{
				subCommand("anime", "Search for an anime", stringOption(optionName, "Anime name or ID", true, true)),
				subCommand("manga", "Search for a manga", stringOption(optionName, "Manga name or ID", true, true)),
				subCommand("ln", "Search for a light novel", stringOption(optionName, "Light novel name or ID", true, true)),
				subCommand("character", "Search for a character", stringOption(optionName, "Character name", true, true)),
				subCommand("staff", "Search for a staff member", stringOption(optionName, "Staff name", true, true)),
				subCommand("studio", "Search for a studio", stringOption(optionName, "Studio name", true, true)),
				subCommand("user", "Show an AniList profile", stringOption(optionUsername, "AniList username", false, false)),
				subCommand(
					"register",
					"Link your discord account to an AniList account",
					stringOption(optionUsername, "AniList username", true, false),
				),
				subCommand(
					"compare",
					"Compare two AniList users",
					stringOption(optionUsername, "AniList username", true, false),
					stringOption(optionUsername2, "AniList username (defaults to yours)", false, false),
				),
				subCommand("level", "Show an AniList user's level", stringOption(optionUsername, "AniList username", false, false)),
				subCommand(
					"random",
					"Show a random anime or manga",
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        optionType,
						Description: "Media type",
						Required:    true,
						Choices:     randomTypes,
					},
				),
			},
		},
		{
			Name:        commandVN,
			Description: "Search VNDB",
			Options: []*discordgo.ApplicationCommandOption{
				subCommand("game", "Search for a visual novel", stringOption(optionTitle, "Title or VNDB ID", true, false)),
				subCommand("character", "Search for a character", stringOption(optionName, "Character name or VNDB ID", true, false)),
				subCommand("producer", "Search for a producer", stringOption(optionName, "Producer name or VNDB ID", true, false)),
				subCommand("user", "Show a VNDB user", stringOption(optionUsername, "VNDB username", true, false)),
				subCommand("stats", "Show VNDB statistics"),
			},
		},
		{
			Name:        commandRandomImage,
			Description: "Post a random anime image",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         optionCategory,
					Description:  "Image category",
					Required:     true,
					Autocomplete: true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        optionNSFW,
					Description: "NSFW image (only in age-restricted channels)",
				},
			},
		},
		{
			Name:        commandAI,
			Description: "Ask an AI",
			Options: []*discordgo.ApplicationCommandOption{
				subCommand("question", "Ask a question", stringOption(optionPrompt, "Your question", true, false)),
				subCommand(
					"image",
					"Generate an image",
					stringOption(optionPrompt, "Image description", true, false),
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        optionN,
						Description: "Number of images",
						MinValue:    &minImages,
						MaxValue:    aiMaxImages,
					},
				),
				subCommand(
					"transcript",
					"Transcribe an audio or video file",
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionAttachment,
						Name:        optionFile,
						Description: "Audio or video file",
						Required:    true,
					},
					stringOption(optionLang, "Spoken language (ISO-639-1)", false, false),
				),
				subCommand(
					"translation",
					"Translate an audio or video file to english",
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionAttachment,
						Name:        optionFile,
						Description: "Audio or video file",
						Required:    true,
					},
				),
			},
		},
		{
			Name:                     commandAdmin,
			Description:              "Server settings",
			DefaultMemberPermissions: &adminPerm,
			DMPermission:             &noDM,
			Options: []*discordgo.ApplicationCommandOption{
				subCommandGroup(
					"general",
					"General settings",
					subCommand(
						"lang",
						"Set the server language",
						&discordgo.ApplicationCommandOption{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        optionLang,
							Description: "Language",
							Required:    true,
							Choices:     choices(NewLocalizer().Languages()...),
						},
					),
					subCommand(
						"module",
						"Enable or disable a module",
						&discordgo.ApplicationCommandOption{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        optionModule,
							Description: "Module",
							Required:    true,
							Choices:     choices(moduleNames...),
						},
						&discordgo.ApplicationCommandOption{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        optionState,
							Description: "Enabled",
							Required:    true,
						},
					),
				),
				subCommandGroup(
					"anilist",
					"AniList settings",
					subCommand(
						"add_activity",
						"Post in this channel when new episodes of an anime air",
						stringOption(optionAnime, "Anime name or ID", true, true),
						&discordgo.ApplicationCommandOption{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        optionDelay,
							Description: "Delay the notification by this many seconds",
							MinValue:    &minDelay,
						},
					),
					subCommand(
						"delete_activity",
						"Stop posting airing notifications for an anime",
						stringOption(optionAnime, "Anime name or ID", true, true),
					),
				),
			},
		},
		{
			Name:         commandListActivity,
			Description:  "List the airing notifications on this server",
			DMPermission: &noDM,
		},
		{
			Name:        commandBot,
			Description: "About the bot",
			Options: []*discordgo.ApplicationCommandOption{
				subCommand("ping", "Show the gateway latency"),
				subCommand("info", "Show bot information"),
			},
		},
		{
			Name:        commandAvatar,
			Description: "Show a user's avatar and its average color",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        optionUser,
					Description: "User (defaults to you)",
				},
			},
		},
	}
}
