package kasuki

import (
	"context"
	"fmt"
	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"log/slog"
	"strconv"
	"time"
)

// discordMaxChoiceNameLength is the longest autocomplete choice name
// discord accepts
const discordMaxChoiceNameLength = 100

type commandFunc func(ctx context.Context, b *Bot, c *commandContext) error

type autocompleteFunc func(
	ctx context.Context,
	b *Bot,
	value string,
) ([]*discordgo.ApplicationCommandOptionChoice, error)

// command describes how a slash command path is run
type command struct {
	// modules must all be enabled (for the guild, and globally) for the
	// command to run
	modules []Module

	// deferred commands acknowledge the interaction before running, then
	// edit the response with the result
	deferred bool

	ephemeral bool
	guildOnly bool

	// admin commands require the Manage Server permission
	admin bool

	run          commandFunc
	autocomplete autocompleteFunc
}

// newCommandTable maps every command path to its handler
func newCommandTable() map[string]command {
	anilist := []Module{ModuleAnilist}
	return map[string]command{
		pathAnilistAnime: {
			modules:      anilist,
			deferred:     true,
			run:          mediaCommand(MediaTypeAnime, ""),
			autocomplete: mediaAutocomplete(MediaTypeAnime),
		},
		pathAnilistManga: {
			modules:      anilist,
			deferred:     true,
			run:          mediaCommand(MediaTypeManga, ""),
			autocomplete: mediaAutocomplete(MediaTypeManga),
		},
		pathAnilistLN: {
			modules:      anilist,
			deferred:     true,
			run:          mediaCommand(MediaTypeManga, mediaFormatNovel),
			autocomplete: mediaAutocomplete(MediaTypeManga),
		},
		pathAnilistCharacter: {
			modules:      anilist,
			deferred:     true,
			run:          characterCommand,
			autocomplete: characterAutocomplete,
		},
		pathAnilistStaff: {
			modules:      anilist,
			deferred:     true,
			run:          staffCommand,
			autocomplete: staffAutocomplete,
		},
		pathAnilistStudio: {
			modules:      anilist,
			deferred:     true,
			run:          studioCommand,
			autocomplete: studioAutocomplete,
		},
		pathAnilistUser:     {modules: anilist, deferred: true, run: anilistUserCommand},
		pathAnilistRegister: {modules: anilist, deferred: true, ephemeral: true, run: registerCommand},
		pathAnilistCompare:  {modules: anilist, deferred: true, run: compareCommand},
		pathAnilistLevel:    {modules: anilist, deferred: true, run: levelCommand},
		pathAnilistRandom:   {modules: anilist, deferred: true, run: randomMediaCommand},

		pathVNGame:      {modules: []Module{ModuleVN}, deferred: true, run: vnGameCommand},
		pathVNCharacter: {modules: []Module{ModuleVN}, deferred: true, run: vnCharacterCommand},
		pathVNProducer:  {modules: []Module{ModuleVN}, deferred: true, run: vnProducerCommand},
		pathVNUser:      {modules: []Module{ModuleVN}, deferred: true, run: vnUserCommand},
		pathVNStats:     {modules: []Module{ModuleVN}, deferred: true, run: vnStatsCommand},

		pathRandomImage: {
			modules:      []Module{ModuleAnime},
			deferred:     true,
			run:          randomImageCommand,
			autocomplete: waifuCategoryAutocomplete,
		},

		pathAIQuestion:    {modules: []Module{ModuleAI}, deferred: true, run: aiQuestionCommand},
		pathAIImage:       {modules: []Module{ModuleAI}, deferred: true, run: aiImageCommand},
		pathAITranscript:  {modules: []Module{ModuleAI}, deferred: true, run: aiTranscriptCommand},
		pathAITranslation: {modules: []Module{ModuleAI}, deferred: true, run: aiTranslationCommand},

		pathAdminLang: {
			guildOnly: true,
			admin:     true,
			ephemeral: true,
			run:       adminLangCommand,
		},
		pathAdminModule: {
			guildOnly: true,
			admin:     true,
			ephemeral: true,
			run:       adminModuleCommand,
		},
		pathAdminAddActivity: {
			modules:      anilist,
			guildOnly:    true,
			admin:        true,
			deferred:     true,
			ephemeral:    true,
			run:          addActivityCommand,
			autocomplete: mediaAutocomplete(MediaTypeAnime),
		},
		pathAdminDeleteActivity: {
			modules:      anilist,
			guildOnly:    true,
			admin:        true,
			deferred:     true,
			ephemeral:    true,
			run:          deleteActivityCommand,
			autocomplete: mediaAutocomplete(MediaTypeAnime),
		},

		pathListActivity: {modules: anilist, guildOnly: true, run: listActivityCommand},
		pathBotPing:      {run: pingCommand},
		pathBotInfo:      {run: infoCommand},
		pathAvatar:       {deferred: true, run: avatarCommand},
	}
}

// commandContext carries everything a command handler needs about the
// interaction it's answering
type commandContext struct {
	handler     InteractionHandler
	interaction *discordgo.InteractionCreate
	path        string
	options     map[string]*discordgo.ApplicationCommandInteractionDataOption
	user        *discordgo.User
	guildID     string
	lang        string
	localizer   *Localizer
	ephemeral   bool
	deferred    bool
}

// t returns the localized text for key, in the guild's language
func (c *commandContext) t(key string, args ...any) string {
	return c.localizer.T(c.lang, key, args...)
}

// str returns the named string option, or an empty string
func (c *commandContext) str(name string) string {
	if opt, ok := c.options[name]; ok && opt.Type == discordgo.ApplicationCommandOptionString {
		return opt.StringValue()
	}
	return ""
}

// integer returns the named integer option, and whether it was given
func (c *commandContext) integer(name string) (int64, bool) {
	if opt, ok := c.options[name]; ok && opt.Type == discordgo.ApplicationCommandOptionInteger {
		return opt.IntValue(), true
	}
	return 0, false
}

// boolean returns the named boolean option, or false
func (c *commandContext) boolean(name string) bool {
	if opt, ok := c.options[name]; ok && opt.Type == discordgo.ApplicationCommandOptionBoolean {
		return opt.BoolValue()
	}
	return false
}

// userOption returns the resolved user for the named option, or nil
func (c *commandContext) userOption(name string) *discordgo.User {
	opt, ok := c.options[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionUser {
		return nil
	}
	id, _ := opt.Value.(string)
	if resolved := c.interaction.ApplicationCommandData().Resolved; resolved != nil {
		if u, found := resolved.Users[id]; found {
			return u
		}
	}
	return &discordgo.User{ID: id}
}

// attachment returns the resolved attachment for the named option, or nil
func (c *commandContext) attachment(name string) *discordgo.MessageAttachment {
	opt, ok := c.options[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionAttachment {
		return nil
	}
	id, _ := opt.Value.(string)
	resolved := c.interaction.ApplicationCommandData().Resolved
	if resolved == nil {
		return nil
	}
	return resolved.Attachments[id]
}

// deferResponse acknowledges the interaction, showing a "thinking" state
// until the response is edited
func (c *commandContext) deferResponse(ctx context.Context) error {
	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}
	if c.ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := c.handler.Respond(ctx, resp); err != nil {
		return newError(ErrKindSending, "deferResponse", err)
	}
	c.deferred = true
	return nil
}

// reply sends the given embeds, editing the deferred response if the
// interaction was deferred
func (c *commandContext) reply(ctx context.Context, embeds ...*embed) error {
	return c.send(ctx, embeds, nil)
}

func (c *commandContext) send(
	ctx context.Context,
	embeds []*embed,
	files []*discordgo.File,
) error {
	messageEmbeds := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		messageEmbeds = append(messageEmbeds, e.build())
	}

	if c.deferred {
		empty := ""
		_, err := c.handler.Edit(
			ctx,
			&discordgo.WebhookEdit{
				Content: &empty,
				Embeds:  &messageEmbeds,
				Files:   files,
			},
		)
		if err != nil {
			return newError(ErrKindSending, "reply", err)
		}
		return nil
	}

	data := &discordgo.InteractionResponseData{Embeds: messageEmbeds, Files: files}
	if c.ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := c.handler.Respond(
		ctx,
		&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: data,
		},
	); err != nil {
		return newError(ErrKindSending, "reply", err)
	}
	return nil
}

// replyError sends an error embed with the given description. Errors are
// only visible to the user who ran the command, unless the response was
// already deferred publicly.
func (c *commandContext) replyError(ctx context.Context, description string) {
	c.ephemeral = true
	e := errorEmbed(c.t(msgErrorTitle), description)
	if err := c.reply(ctx, e); err != nil {
		contextLoggerOr(ctx, nil).ErrorContext(ctx, "error sending error response", tint.Err(err))
	}
}

// fail reports err to the user, with a message chosen by its kind
func (c *commandContext) fail(ctx context.Context, err error) {
	c.replyError(ctx, c.t(userMessageKey(err)))
}

// guildLanguage returns the configured language for guildID, or
// [DefaultLanguage] when none is set or the lookup fails
func (b *Bot) guildLanguage(ctx context.Context, guildID string) string {
	if guildID == "" {
		return DefaultLanguage
	}
	lang, err := b.store.GetGuildLanguage(ctx, guildID)
	if err != nil {
		contextLoggerOr(ctx, b.logger).WarnContext(
			ctx,
			"error getting guild language",
			tint.Err(err),
			"guild_id", guildID,
		)
		return DefaultLanguage
	}
	if lang == nil || !b.localizer.Supported(lang.Lang) {
		return DefaultLanguage
	}
	return normalizeLanguage(lang.Lang)
}

// moduleActivation returns the stored activation row for guildID, or
// the defaults if there isn't one
func (b *Bot) moduleActivation(ctx context.Context, guildID string) (ModuleActivation, error) {
	ma, err := b.store.GetModuleActivation(ctx, guildID)
	if err != nil {
		return ModuleActivation{}, err
	}
	if ma == nil && guildID == killSwitchGuildID {
		return killSwitchActivation(), nil
	}
	if ma == nil {
		return DefaultModuleActivation(guildID), nil
	}
	return *ma, nil
}

// ModuleEnabled reports whether m is enabled for guildID: it must be
// enabled both on the kill switch row and on the guild's own row. Outside
// of a guild (guildID == ""), only the kill switch applies.
func (b *Bot) ModuleEnabled(ctx context.Context, guildID string, m Module) (bool, error) {
	killSwitch, err := b.moduleActivation(ctx, killSwitchGuildID)
	if err != nil {
		return false, err
	}
	if !killSwitch.Enabled(m) {
		return false, nil
	}
	if guildID == "" || guildID == killSwitchGuildID {
		return true, nil
	}
	guild, err := b.moduleActivation(ctx, guildID)
	if err != nil {
		return false, err
	}
	return guild.Enabled(m), nil
}

// hasManageGuild reports whether the member may change server settings
func hasManageGuild(member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	return member.Permissions&(discordgo.PermissionManageServer|discordgo.PermissionAdministrator) != 0
}

// runCommand runs the slash command in the handler's interaction, and
// reports any error back to the user
func (b *Bot) runCommand(ctx context.Context, handler InteractionHandler, user *discordgo.User) {
	i := handler.GetInteraction()
	logger := contextLoggerOr(ctx, handler.Logger())

	path, opts := commandPath(i.ApplicationCommandData())
	c := &commandContext{
		handler:     handler,
		interaction: i,
		path:        path,
		options:     optionMap(opts),
		user:        user,
		guildID:     i.GuildID,
		localizer:   b.localizer,
	}
	c.lang = b.guildLanguage(ctx, i.GuildID)
	logger = logger.With(commandLogAttrs(c))
	ctx = WithLogger(ctx, logger)

	defer func() {
		if rc := recover(); rc != nil {
			handleRecover(ctx, rc)
			c.replyError(ctx, c.t(msgErrorGeneric))
		}
	}()

	cmd, ok := b.commands[path]
	if !ok {
		logger.WarnContext(ctx, "unknown command", "command", path)
		c.fail(ctx, missingf("runCommand", "unknown command %q", path))
		return
	}
	c.ephemeral = cmd.ephemeral

	if cmd.guildOnly && i.GuildID == "" {
		c.replyError(ctx, c.t(msgGuildOnly))
		return
	}
	if cmd.admin && !hasManageGuild(i.Member) {
		logger.WarnContext(ctx, "missing permission for admin command")
		c.replyError(ctx, c.t(msgNoPermission))
		return
	}
	for _, m := range cmd.modules {
		enabled, err := b.ModuleEnabled(ctx, i.GuildID, m)
		if err != nil {
			logger.ErrorContext(ctx, "error checking module activation", tint.Err(err))
			c.fail(ctx, err)
			return
		}
		if !enabled {
			logger.InfoContext(ctx, "module disabled", "module", m.String())
			c.replyError(ctx, c.t(msgModuleDisabled, m.String()))
			return
		}
	}

	if cmd.deferred {
		if err := c.deferResponse(ctx); err != nil {
			logger.ErrorContext(ctx, "error deferring response", tint.Err(err))
			return
		}
	}

	start := time.Now()
	if err := cmd.run(ctx, b, c); err != nil {
		logger.ErrorContext(
			ctx,
			"command failed",
			tint.Err(err),
			"command", path,
			"error_kind", errorKind(err).String(),
			"duration", time.Since(start),
		)
		c.fail(ctx, err)
		return
	}
	logger.InfoContext(ctx, "command finished", "command", path, "duration", time.Since(start))
}

// runAutocomplete answers an autocomplete interaction with choices for the
// focused option
func (b *Bot) runAutocomplete(ctx context.Context, handler InteractionHandler) {
	i := handler.GetInteraction()
	logger := contextLoggerOr(ctx, handler.Logger())

	path, opts := commandPath(i.ApplicationCommandData())
	var focused *discordgo.ApplicationCommandInteractionDataOption
	for _, opt := range opts {
		if opt.Focused {
			focused = opt
			break
		}
	}

	choices := []*discordgo.ApplicationCommandOptionChoice{}
	cmd, ok := b.commands[path]
	if ok && cmd.autocomplete != nil && focused != nil {
		value := fmt.Sprint(focused.Value)
		found, err := cmd.autocomplete(ctx, b, value)
		if err != nil {
			logger.WarnContext(ctx, "autocomplete failed", tint.Err(err), "value", value)
		} else if len(found) > 0 {
			choices = found
		}
	}
	if len(choices) > discordMaxAutocompleteChoices {
		choices = choices[:discordMaxAutocompleteChoices]
	}

	_ = handler.Respond(
		ctx,
		&discordgo.InteractionResponse{
			Type: discordgo.InteractionApplicationCommandAutocompleteResult,
			Data: &discordgo.InteractionResponseData{Choices: choices},
		},
	)
}

// autocompleteChoices converts search results to discord choices, with
// the result ID as the value
func autocompleteChoices(results []AutocompleteChoice) []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(results))
	for _, r := range results {
		if r.Name == "" {
			continue
		}
		choices = append(
			choices,
			&discordgo.ApplicationCommandOptionChoice{
				Name:  truncate(r.Name, discordMaxChoiceNameLength),
				Value: strconv.Itoa(r.ID),
			},
		)
	}
	return choices
}

// commandLogAttrs returns attributes identifying the command in logs
func commandLogAttrs(c *commandContext) slog.Attr {
	return slog.Group(
		"command",
		"path", c.path,
		"guild_id", c.guildID,
		"lang", c.lang,
	)
}
