package kasuki

import (
	"context"
	"encoding/base64"
	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"net/http"
	"strconv"
	"strings"
)

const (
	// discordMaxWebhookNameLength is the longest webhook name discord
	// accepts
	discordMaxWebhookNameLength = 80

	serverImageNewMember = "new_member"
)

func adminLangCommand(ctx context.Context, b *Bot, c *commandContext) error {
	lang := normalizeLanguage(c.str(optionLang))
	if !b.localizer.Supported(lang) {
		c.replyError(
			ctx,
			c.t(msgLangUnknown, lang, strings.Join(b.localizer.Languages(), ", ")),
		)
		return nil
	}
	if err := b.store.SetGuildLanguage(ctx, GuildLanguage{GuildID: c.guildID, Lang: lang}); err != nil {
		return err
	}
	c.lang = lang
	return c.reply(ctx, newEmbed().color(colorSuccess).description(c.t(msgLangSet, lang)))
}

func adminModuleCommand(ctx context.Context, b *Bot, c *commandContext) error {
	m, err := ParseModule(c.str(optionModule))
	if err != nil {
		return err
	}
	enabled := c.boolean(optionState)

	activation, err := b.moduleActivation(ctx, c.guildID)
	if err != nil {
		return err
	}
	activation.GuildID = c.guildID
	activation.Set(m, enabled)
	if err = b.store.SetModuleActivation(ctx, activation); err != nil {
		return err
	}

	state := c.t(msgDisabled)
	if enabled {
		state = c.t(msgEnabled)
	}
	return c.reply(
		ctx,
		newEmbed().color(colorSuccess).description(c.t(msgModuleSet, m.String(), state)),
	)
}

// activityAvatar downloads a cover image, and returns it as a data URI
// for a webhook avatar, along with the raw base64 data
func (b *Bot) activityAvatar(ctx context.Context, imageURL string) (dataURI string, b64 string) {
	if imageURL == "" {
		return "", ""
	}
	data, err := doRequest(ctx, b.httpClient, "activityAvatar", http.MethodGet, imageURL, nil, nil)
	if err != nil {
		contextLoggerOr(ctx, b.logger).WarnContext(
			ctx,
			"error downloading activity avatar",
			tint.Err(err),
			"url", imageURL,
		)
		return "", ""
	}
	b64 = base64.StdEncoding.EncodeToString(data)
	return "data:" + http.DetectContentType(data) + ";base64," + b64, b64
}

func addActivityCommand(ctx context.Context, b *Bot, c *commandContext) error {
	m, err := b.anilist.SearchMedia(ctx, c.str(optionAnime), MediaTypeAnime, "")
	if err != nil {
		return err
	}
	// the search result may be cached, so the airing schedule is
	// fetched again
	m, err = b.anilist.NextAiring(ctx, m.ID)
	if err != nil {
		return err
	}
	title := m.Title.Preferred()
	next := m.NextAiringEpisode
	if next == nil {
		c.replyError(ctx, c.t(msgActivityEnded, title))
		return nil
	}

	animeID := strconv.Itoa(m.ID)
	existing, err := b.store.GetScheduledActivity(ctx, animeID, c.guildID)
	if err != nil {
		return err
	}

	avatarURI, avatarB64 := b.activityAvatar(ctx, m.CoverURL())
	webhook, err := b.discord.session.WebhookCreate(
		c.interaction.ChannelID,
		truncate(title, discordMaxWebhookNameLength),
		avatarURI,
		discordgo.WithContext(ctx),
	)
	if err != nil {
		return newError(ErrKindSending, "addActivityCommand", err)
	}

	var delay int64
	if v, ok := c.integer(optionDelay); ok && v > 0 {
		delay = v
	}
	activity := ScheduledActivity{
		AnimeID:           animeID,
		GuildID:           c.guildID,
		AiringTimestamp:   next.AiringAt,
		WebhookURL:        webhookURL(webhook),
		Episode:           strconv.Itoa(next.Episode),
		Name:              title,
		DelaySeconds:      delay,
		AvatarImageBase64: avatarB64,
	}
	if err = b.store.SetScheduledActivity(ctx, activity); err != nil {
		return err
	}

	msgKey := msgActivityAdded
	if existing != nil {
		msgKey = msgActivityUpdate
		b.deleteActivityWebhook(ctx, *existing)
	}
	contextLoggerOr(ctx, b.logger).InfoContext(ctx, "scheduled activity", "activity", activity)
	e := newEmbed().
		color(colorSuccess).
		description(c.t(msgKey, title, discordTimestamp(next.AiringAt+delay))).
		thumbnail(m.CoverURL())
	return c.reply(ctx, e)
}

// deleteActivityWebhook deletes the webhook an activity posts with.
// Failures are only logged.
func (b *Bot) deleteActivityWebhook(ctx context.Context, activity ScheduledActivity) {
	id, token, err := parseWebhookURL(activity.WebhookURL)
	if err != nil {
		return
	}
	if _, err = b.discord.session.WebhookDeleteWithToken(id, token, discordgo.WithContext(ctx)); err != nil {
		contextLoggerOr(ctx, b.logger).WarnContext(
			ctx,
			"error deleting activity webhook",
			tint.Err(err),
			"activity", activity,
		)
	}
}

func deleteActivityCommand(ctx context.Context, b *Bot, c *commandContext) error {
	m, err := b.anilist.SearchMedia(ctx, c.str(optionAnime), MediaTypeAnime, "")
	if err != nil {
		return err
	}
	animeID := strconv.Itoa(m.ID)
	existing, err := b.store.GetScheduledActivity(ctx, animeID, c.guildID)
	if err != nil {
		return err
	}
	if existing == nil {
		c.replyError(ctx, c.t(msgActivityNone))
		return nil
	}
	if err = b.store.RemoveScheduledActivity(ctx, animeID, c.guildID); err != nil {
		return err
	}
	b.deleteActivityWebhook(ctx, *existing)
	return c.reply(
		ctx,
		newEmbed().color(colorSuccess).description(c.t(msgActivityRemove, m.Title.Preferred())),
	)
}

func listActivityCommand(ctx context.Context, b *Bot, c *commandContext) error {
	activities, err := b.store.GetGuildActivities(ctx, c.guildID)
	if err != nil {
		return err
	}
	e := newEmbed().title(c.t(msgActivityList))
	if len(activities) == 0 {
		return c.reply(ctx, e.description(c.t(msgActivityEmpty)))
	}
	lines := make([]string, 0, len(activities))
	for _, a := range activities {
		lines = append(
			lines,
			"**"+a.Name+"**: "+c.t(
				msgActivityNext,
				a.Episode,
				discordTimestamp(a.AiringTimestamp+a.DelaySeconds),
			),
		)
	}
	return c.reply(ctx, e.description(joinLimit(lines, "\n", embedDescriptionMaxLength)))
}
