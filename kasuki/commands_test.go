package kasuki

import (
	"context"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
	"time"
)

const (
	testGuildID   = "330000000000000002"
	testChannelID = "555000000000000000"
)

func newCommandTestBot(t *testing.T) (*Bot, *mockDiscordSession, *fakeAnilist) {
	t.Helper()
	fake := newFakeAnilist(t)
	cfg := newTestConfig(t)
	cfg.Anilist.Endpoint = fake.URL()
	bot, session := newTestBot(t, cfg)
	return bot, session, fake
}

// runTestCommand runs i through the bot, and returns the stub handler
// holding its responses
func runTestCommand(t *testing.T, bot *Bot, i *discordgo.InteractionCreate) *stubInteractionHandler {
	t.Helper()
	handler := newStubInteractionHandler(i)
	bot.handleInteraction(context.Background(), handler)
	return handler
}

func responseEmbed(t *testing.T, resp *discordgo.InteractionResponse) *discordgo.MessageEmbed {
	t.Helper()
	require.NotNil(t, resp.Data)
	require.Len(t, resp.Data.Embeds, 1)
	return resp.Data.Embeds[0]
}

func editEmbed(t *testing.T, edit *discordgo.WebhookEdit) *discordgo.MessageEmbed {
	t.Helper()
	require.NotNil(t, edit.Embeds)
	require.Len(t, *edit.Embeds, 1)
	return (*edit.Embeds)[0]
}

func boolOption(name string, value bool) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionBoolean,
		Value: value,
	}
}

func TestCommandPath(t *testing.T) {
	data := discordgo.ApplicationCommandInteractionData{
		Name: "admin",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{
				Name: "anilist",
				Type: discordgo.ApplicationCommandOptionSubCommandGroup,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					interactionSubCommand("add_activity", interactionStringOption(optionAnime, "frieren")),
				},
			},
		},
	}
	path, opts := commandPath(data)
	assert.Equal(t, pathAdminAddActivity, path)
	require.Len(t, opts, 1)
	assert.Equal(t, optionAnime, opts[0].Name)

	path, opts = commandPath(discordgo.ApplicationCommandInteractionData{Name: "avatar"})
	assert.Equal(t, pathAvatar, path)
	assert.Empty(t, opts)
}

func TestCommandTable_Paths(t *testing.T) {
	// every registered command leaf must have a handler
	table := newCommandTable()
	for _, cmd := range appCommands() {
		for _, path := range appCommandPaths(cmd) {
			entry, ok := table[path]
			if assert.True(t, ok, "no handler for %q", path) {
				assert.NotNil(t, entry.run, path)
			}
		}
	}
}

// appCommandPaths returns the paths of every leaf of cmd
func appCommandPaths(cmd *discordgo.ApplicationCommand) []string {
	var paths []string
	var walk func(prefix string, opts []*discordgo.ApplicationCommandOption)
	walk = func(prefix string, opts []*discordgo.ApplicationCommandOption) {
		leaf := true
		for _, opt := range opts {
			if opt.Type == discordgo.ApplicationCommandOptionSubCommand ||
				opt.Type == discordgo.ApplicationCommandOptionSubCommandGroup {
				leaf = false
				walk(prefix+" "+opt.Name, opt.Options)
			}
		}
		if leaf {
			paths = append(paths, prefix)
		}
	}
	walk(cmd.Name, cmd.Options)
	return paths
}

func TestHandleInteraction_Ping(t *testing.T) {
	bot, _, _ := newCommandTestBot(t)
	i := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{ID: "1", Type: discordgo.InteractionPing},
	}
	handler := runTestCommand(t, bot, i)
	resp := handler.nextResponse(t)
	assert.Equal(t, discordgo.InteractionResponsePong, resp.Type)
}

func TestHandleInteraction_IgnoresBots(t *testing.T) {
	bot, _, _ := newCommandTestBot(t)
	i := commandInteraction("", 0, "bot", interactionSubCommand("ping"))
	i.User.Bot = true
	handler := runTestCommand(t, bot, i)
	assert.Empty(t, handler.callRespond)
	assert.Empty(t, handler.callEdit)
}

func TestRunCommand_BotPing(t *testing.T) {
	bot, _, _ := newCommandTestBot(t)
	handler := runTestCommand(t, bot, commandInteraction("", 0, "bot", interactionSubCommand("ping")))

	resp := handler.nextResponse(t)
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, resp.Type)
	assert.Contains(t, responseEmbed(t, resp).Description, "42ms")
}

func TestRunCommand_GuildLanguage(t *testing.T) {
	ctx := context.Background()
	bot, _, _ := newCommandTestBot(t)
	require.NoError(t, bot.store.SetGuildLanguage(ctx, GuildLanguage{GuildID: testGuildID, Lang: "fr"}))

	handler := runTestCommand(t, bot, commandInteraction(testGuildID, 0, "bot", interactionSubCommand("ping")))
	assert.Contains(t, responseEmbed(t, handler.nextResponse(t)).Description, "Pong ! Latence")
}

func TestRunCommand_UnknownCommand(t *testing.T) {
	bot, _, _ := newCommandTestBot(t)
	handler := runTestCommand(t, bot, commandInteraction("", 0, "does_not_exist"))

	resp := handler.nextResponse(t)
	e := responseEmbed(t, resp)
	assert.Equal(t, colorError, e.Color)
	assert.Equal(t, englishMessages[msgErrorMissing], e.Description)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)
}

func TestRunCommand_GuildOnly(t *testing.T) {
	bot, _, _ := newCommandTestBot(t)
	handler := runTestCommand(
		t,
		bot,
		commandInteraction(
			"",
			0,
			"admin",
			&discordgo.ApplicationCommandInteractionDataOption{
				Name:    "general",
				Type:    discordgo.ApplicationCommandOptionSubCommandGroup,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{interactionSubCommand("lang", interactionStringOption(optionLang, "fr"))},
			},
		),
	)
	assert.Equal(t, englishMessages[msgGuildOnly], responseEmbed(t, handler.nextResponse(t)).Description)
}

func adminModuleInteraction(permissions int64, module string, state bool) *discordgo.InteractionCreate {
	return commandInteraction(
		testGuildID,
		permissions,
		"admin",
		&discordgo.ApplicationCommandInteractionDataOption{
			Name: "general",
			Type: discordgo.ApplicationCommandOptionSubCommandGroup,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				interactionSubCommand("module", interactionStringOption(optionModule, module), boolOption(optionState, state)),
			},
		},
	)
}

func TestRunCommand_AdminPermission(t *testing.T) {
	ctx := context.Background()
	bot, _, _ := newCommandTestBot(t)

	handler := runTestCommand(t, bot, adminModuleInteraction(discordgo.PermissionSendMessages, "ANIME", false))
	assert.Equal(t, englishMessages[msgNoPermission], responseEmbed(t, handler.nextResponse(t)).Description)

	ma, err := bot.store.GetModuleActivation(ctx, testGuildID)
	require.NoError(t, err)
	assert.Nil(t, ma, "nothing should be saved without permission")
}

func TestRunCommand_AdminModule(t *testing.T) {
	ctx := context.Background()
	bot, _, _ := newCommandTestBot(t)

	testCases := []struct {
		name        string
		permissions int64
	}{
		{name: "manage server", permissions: discordgo.PermissionManageServer},
		{name: "administrator", permissions: discordgo.PermissionAdministrator},
	}
	for _, tc := range testCases {
		t.Run(
			tc.name, func(t *testing.T) {
				handler := runTestCommand(t, bot, adminModuleInteraction(tc.permissions, "vn", false))
				resp := handler.nextResponse(t)
				assert.Equal(t, "The VN module is now disabled.", responseEmbed(t, resp).Description)
				assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)

				enabled, err := bot.ModuleEnabled(ctx, testGuildID, ModuleVN)
				require.NoError(t, err)
				assert.False(t, enabled)

				// other modules keep their defaults
				enabled, err = bot.ModuleEnabled(ctx, testGuildID, ModuleAnilist)
				require.NoError(t, err)
				assert.True(t, enabled)

				handler = runTestCommand(t, bot, adminModuleInteraction(tc.permissions, "vn", true))
				assert.Equal(t, "The VN module is now enabled.", responseEmbed(t, handler.nextResponse(t)).Description)
			},
		)
	}
}

func TestModuleEnabled(t *testing.T) {
	ctx := context.Background()
	bot, _, _ := newCommandTestBot(t)

	// new member is off by default
	enabled, err := bot.ModuleEnabled(ctx, testGuildID, ModuleNewMember)
	require.NoError(t, err)
	assert.False(t, enabled)

	// enabling it on the guild is enough, since the kill switch allows
	// every module
	guild := DefaultModuleActivation(testGuildID)
	guild.Set(ModuleNewMember, true)
	require.NoError(t, bot.store.SetModuleActivation(ctx, guild))

	enabled, err = bot.ModuleEnabled(ctx, testGuildID, ModuleNewMember)
	require.NoError(t, err)
	assert.True(t, enabled)

	killSwitch := killSwitchActivation()
	killSwitch.Set(ModuleAI, false)
	require.NoError(t, bot.store.SetModuleActivation(ctx, killSwitch))

	enabled, err = bot.ModuleEnabled(ctx, testGuildID, ModuleNewMember)
	require.NoError(t, err)
	assert.True(t, enabled)

	// disabled globally, enabled on the guild
	enabled, err = bot.ModuleEnabled(ctx, testGuildID, ModuleAI)
	require.NoError(t, err)
	assert.False(t, enabled)

	// outside of a guild, only the kill switch applies
	enabled, err = bot.ModuleEnabled(ctx, "", ModuleAI)
	require.NoError(t, err)
	assert.False(t, enabled)
	enabled, err = bot.ModuleEnabled(ctx, "", ModuleNewMember)
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestRunCommand_ModuleDisabled(t *testing.T) {
	ctx := context.Background()
	bot, _, fake := newCommandTestBot(t)

	ma := DefaultModuleActivation(testGuildID)
	ma.Set(ModuleAnilist, false)
	require.NoError(t, bot.store.SetModuleActivation(ctx, ma))

	i := commandInteraction(testGuildID, 0, "anilist_user", interactionSubCommand("anime", interactionStringOption(optionName, "Frieren")))
	handler := runTestCommand(t, bot, i)

	resp := handler.nextResponse(t)
	assert.Equal(t, "The ANILIST module is disabled on this server.", responseEmbed(t, resp).Description)
	assert.Empty(t, handler.callEdit, "disabled commands shouldn't be deferred")
	assert.Equal(t, int64(0), fake.requests.Load())
}

func TestRunCommand_Anime(t *testing.T) {
	bot, _, fake := newCommandTestBot(t)
	fake.setMedia(
		Media{
			ID:          154587,
			Type:        MediaTypeAnime,
			Title:       MediaTitle{Romaji: "Sousou no Frieren", English: "Frieren: Beyond Journey's End"},
			Description: "The adventure is over<br><br>but life goes on.",
			Format:      "TV",
			Status:      "FINISHED",
			Episodes:    28,
		},
	)

	i := commandInteraction(
		testGuildID,
		0,
		"anilist_user",
		interactionSubCommand("anime", interactionStringOption(optionName, "Sousou no Frieren")),
	)
	handler := runTestCommand(t, bot, i)

	deferred := handler.nextResponse(t)
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, deferred.Type)

	e := editEmbed(t, handler.lastEdit(t))
	assert.Equal(t, "Frieren: Beyond Journey's End", e.Title)
	assert.Equal(t, "The adventure is over\n\nbut life goes on.", e.Description)

	var fieldNames []string
	for _, f := range e.Fields {
		fieldNames = append(fieldNames, f.Name)
	}
	assert.Contains(t, fieldNames, englishMessages[msgFieldEpisodes])
	assert.NotContains(t, fieldNames, englishMessages[msgFieldChapters])
}

func TestRunCommand_AnimeNotFound(t *testing.T) {
	bot, _, _ := newCommandTestBot(t)
	i := commandInteraction("", 0, "anilist_user", interactionSubCommand("anime", interactionStringOption(optionName, "nothing")))
	handler := runTestCommand(t, bot, i)

	_ = handler.nextResponse(t)
	e := editEmbed(t, handler.lastEdit(t))
	assert.Equal(t, englishMessages[msgErrorMissing], e.Description)
	assert.Equal(t, colorError, e.Color)
}

func TestRunAutocomplete(t *testing.T) {
	bot, _, fake := newCommandTestBot(t)
	fake.setMedia(Media{ID: 154587, Type: MediaTypeAnime, Title: MediaTitle{Romaji: "Sousou no Frieren"}})

	option := interactionStringOption(optionName, "fri")
	option.Focused = true
	i := commandInteraction(testGuildID, 0, "anilist_user", interactionSubCommand("anime", option))
	i.Type = discordgo.InteractionApplicationCommandAutocomplete
	handler := runTestCommand(t, bot, i)

	resp := handler.nextResponse(t)
	assert.Equal(t, discordgo.InteractionApplicationCommandAutocompleteResult, resp.Type)
	require.Len(t, resp.Data.Choices, 1)
	assert.Equal(t, "Sousou no Frieren", resp.Data.Choices[0].Name)
	assert.Equal(t, "154587", resp.Data.Choices[0].Value)
}

func TestAutocompleteChoices(t *testing.T) {
	long := strings.Repeat("a", 150)
	choices := autocompleteChoices(
		[]AutocompleteChoice{
			{ID: 1, Name: "Cowboy Bebop"},
			{ID: 2, Name: ""},
			{ID: 3, Name: long},
		},
	)
	require.Len(t, choices, 2)
	assert.Equal(t, "1", choices[0].Value)
	assert.Len(t, choices[1].Name, discordMaxChoiceNameLength)
}

func TestRunCommand_Register(t *testing.T) {
	ctx := context.Background()
	bot, _, fake := newCommandTestBot(t)
	var user AnilistUser
	user.ID = 777
	user.Name = "frieren"
	fake.setUser(user)

	i := commandInteraction(testGuildID, 0, "anilist_user", interactionSubCommand("register", interactionStringOption(optionUsername, "frieren")))
	handler := runTestCommand(t, bot, i)

	deferred := handler.nextResponse(t)
	require.NotNil(t, deferred.Data)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, deferred.Data.Flags)
	assert.Contains(t, editEmbed(t, handler.lastEdit(t)).Description, "**frieren**")

	reg, err := bot.store.GetRegisteredUser(ctx, "424242424242424242")
	require.NoError(t, err)
	require.NotNil(t, reg)
	assert.Equal(t, "777", reg.ExternalUserID)
}

func TestRunCommand_LevelNotRegistered(t *testing.T) {
	bot, _, _ := newCommandTestBot(t)
	handler := runTestCommand(t, bot, commandInteraction(testGuildID, 0, "anilist_user", interactionSubCommand("level")))

	_ = handler.nextResponse(t)
	assert.Equal(t, englishMessages[msgNotRegistered], editEmbed(t, handler.lastEdit(t)).Description)
}

func TestRunCommand_Level(t *testing.T) {
	bot, _, fake := newCommandTestBot(t)
	var user AnilistUser
	user.ID = 5
	user.Name = "himmel"
	user.Statistics.Anime.MinutesWatched = 9
	fake.setUser(user)

	i := commandInteraction(testGuildID, 0, "anilist_user", interactionSubCommand("level", interactionStringOption(optionUsername, "himmel")))
	handler := runTestCommand(t, bot, i)
	_ = handler.nextResponse(t)

	e := editEmbed(t, handler.lastEdit(t))
	assert.Equal(t, "himmel's level", e.Title)
	assert.Equal(t, "Level **2**\n1 / 19 xp to the next level", e.Description)
}

func TestRunCommand_UserStatsLocalized(t *testing.T) {
	ctx := context.Background()
	bot, _, fake := newCommandTestBot(t)
	require.NoError(t, bot.store.SetGuildLanguage(ctx, GuildLanguage{GuildID: testGuildID, Lang: "fr"}))

	var himmel AnilistUser
	himmel.ID = 5
	himmel.Name = "himmel"
	himmel.Statistics.Anime.Count = 12
	himmel.Statistics.Anime.EpisodesWatched = 300
	himmel.Statistics.Manga.Count = 4
	himmel.Statistics.Manga.ChaptersRead = 80
	himmel.Statistics.Manga.VolumesRead = 9
	fake.setUser(himmel)
	var heiter AnilistUser
	heiter.ID = 6
	heiter.Name = "heiter"
	heiter.Statistics.Anime.Count = 7
	fake.setUser(heiter)

	t.Run("user", func(t *testing.T) {
		i := commandInteraction(testGuildID, 0, "anilist_user", interactionSubCommand("user", interactionStringOption(optionUsername, "himmel")))
		handler := runTestCommand(t, bot, i)
		_ = handler.nextResponse(t)

		e := editEmbed(t, handler.lastEdit(t))
		assert.True(t, strings.HasPrefix(e.Description, "Niveau **"), e.Description)
		require.Len(t, e.Fields, 2)
		assert.Contains(t, e.Fields[0].Value, "12 entrées\n300 épisodes")
		assert.Contains(t, e.Fields[0].Value, "de note moyenne")
		assert.Contains(t, e.Fields[1].Value, "4 entrées\n80 chapitres\n9 volumes")
		assert.NotContains(t, e.Fields[1].Value, "entries")
	})

	t.Run("compare", func(t *testing.T) {
		i := commandInteraction(testGuildID, 0, "anilist_user", interactionSubCommand("compare",
			interactionStringOption(optionUsername, "himmel"),
			interactionStringOption(optionUsername2, "heiter"),
		))
		handler := runTestCommand(t, bot, i)
		_ = handler.nextResponse(t)

		e := editEmbed(t, handler.lastEdit(t))
		require.Len(t, e.Fields, 2)
		assert.Equal(t, "himmel", e.Fields[0].Name)
		assert.True(t, strings.HasPrefix(e.Fields[0].Value, "Niveau "), e.Fields[0].Value)
		assert.Contains(t, e.Fields[0].Value, "12 anime\n4 manga")
		assert.Contains(t, e.Fields[1].Value, "7 anime\n0 manga")
	})
}

func TestRunCommand_AIImage(t *testing.T) {
	tests := []struct {
		name        string
		emptyImages bool
		wantError   bool
	}{
		{name: "image url"},
		{name: "no usable images", emptyImages: true, wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot, _, _ := newCommandTestBot(t)
			ai, mock := newTestAI(t, "sk-test")
			mock.emptyImages = tt.emptyImages
			bot.ai = ai

			i := commandInteraction(testGuildID, 0, "ai", interactionSubCommand("image", interactionStringOption(optionPrompt, "a mimic")))
			handler := runTestCommand(t, bot, i)
			_ = handler.nextResponse(t)
			require.Len(t, mock.imageRequests, 1)

			e := editEmbed(t, handler.lastEdit(t))
			if tt.wantError {
				assert.Equal(t, englishMessages[msgErrorTitle], e.Title)
				assert.Equal(t, englishMessages[msgErrorRequest], e.Description)
				return
			}
			assert.Equal(t, englishMessages[msgAIImageTitle], e.Title)
			require.NotNil(t, e.Image)
			assert.Equal(t, "https://example.com/image.png", e.Image.URL)
		})
	}
}

func TestFormatXP(t *testing.T) {
	tests := []struct {
		name string
		xp   float64
		want string
	}{
		{name: "zero", xp: 0, want: "0"},
		{name: "truncated", xp: 1234.9, want: "1,234"},
		{name: "past int64", xp: 1e22, want: "10,000,000,000,000,000,000,000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatXP(tt.xp))
		})
	}

	// level 85 needs more xp than an int64 holds
	got := formatXP(XPRequiredForLevel(85))
	assert.NotContains(t, got, "-")
	assert.True(t, strings.HasPrefix(got, "19,687,440,434,072,26"), got)
}

func TestRunCommand_AddActivity(t *testing.T) {
	ctx := context.Background()
	bot, session, fake := newCommandTestBot(t)
	airingAt := time.Now().Add(24 * time.Hour).Unix()
	fake.setMedia(
		Media{
			ID:                154587,
			Type:              MediaTypeAnime,
			Title:             MediaTitle{Romaji: "Sousou no Frieren"},
			NextAiringEpisode: &AiringSchedule{AiringAt: airingAt, Episode: 12},
		},
	)

	addActivity := func() *stubInteractionHandler {
		i := commandInteraction(
			testGuildID,
			discordgo.PermissionManageServer,
			"admin",
			&discordgo.ApplicationCommandInteractionDataOption{
				Name: "anilist",
				Type: discordgo.ApplicationCommandOptionSubCommandGroup,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					interactionSubCommand("add_activity", interactionStringOption(optionAnime, "Sousou no Frieren")),
				},
			},
		)
		i.ChannelID = testChannelID
		return runTestCommand(t, bot, i)
	}

	handler := addActivity()
	_ = handler.nextResponse(t)
	assert.Contains(t, editEmbed(t, handler.lastEdit(t)).Description, "Notifications enabled for **Sousou no Frieren**")

	activity, err := bot.store.GetScheduledActivity(ctx, "154587", testGuildID)
	require.NoError(t, err)
	require.NotNil(t, activity)
	assert.Equal(t, airingAt, activity.AiringTimestamp)
	assert.Equal(t, "12", activity.Episode)
	assert.Equal(t, discordWebhookURLPrefix+"wh-"+testChannelID+"/token-"+testChannelID, activity.WebhookURL)

	// adding it again replaces the webhook
	handler = addActivity()
	_ = handler.nextResponse(t)
	assert.Contains(t, editEmbed(t, handler.lastEdit(t)).Description, "were updated")
	assert.Equal(t, []string{"wh-" + testChannelID}, session.deletedWebhooks)

	handler = runTestCommand(t, bot, commandInteraction(testGuildID, 0, "list_activity"))
	listed := responseEmbed(t, handler.nextResponse(t))
	assert.Contains(t, listed.Description, "**Sousou no Frieren**: Episode 12 airs")
}

func TestRunCommand_RandomImageNSFWChannel(t *testing.T) {
	bot, session, _ := newCommandTestBot(t)
	session.channels[testChannelID] = &discordgo.Channel{ID: testChannelID, NSFW: false}

	i := commandInteraction(
		testGuildID,
		0,
		"random_image",
		interactionStringOption(optionCategory, "neko"),
		boolOption(optionNSFW, true),
	)
	i.ChannelID = testChannelID
	handler := runTestCommand(t, bot, i)

	_ = handler.nextResponse(t)
	assert.Equal(t, englishMessages[msgNSFWOnly], editEmbed(t, handler.lastEdit(t)).Description)
}

func TestWaifuCategoryAutocomplete(t *testing.T) {
	choices, err := waifuCategoryAutocomplete(context.Background(), nil, "NE")
	require.NoError(t, err)
	var names []string
	for _, c := range choices {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "neko")
	assert.NotContains(t, names, "waifu")
}

func TestWelcomeMember(t *testing.T) {
	ctx := context.Background()
	bot, session, _ := newCommandTestBot(t)
	session.guilds[testGuildID] = &discordgo.Guild{
		ID:              testGuildID,
		Name:            "Frieren Fans",
		SystemChannelID: testChannelID,
	}
	join := &discordgo.GuildMemberAdd{
		Member: &discordgo.Member{
			GuildID: testGuildID,
			User:    &discordgo.User{ID: "424242424242424242", Username: "fern"},
		},
	}

	// off until a guild admin enables it
	require.NoError(t, bot.welcomeMember(ctx, join))
	assert.Empty(t, session.sentMessages())

	handler := runTestCommand(t, bot, adminModuleInteraction(discordgo.PermissionManageServer, "new_member", true))
	handler.nextResponse(t)

	require.NoError(t, bot.welcomeMember(ctx, join))
	messages := session.sentMessages()
	require.Len(t, messages, 1)
	require.Len(t, messages[0].Embeds, 1)
	assert.Equal(t, "Welcome to **Frieren Fans**, <@424242424242424242>!", messages[0].Embeds[0].Description)

	// bots aren't welcomed
	join.User.Bot = true
	require.NoError(t, bot.welcomeMember(ctx, join))
	assert.Len(t, session.sentMessages(), 1)
}
