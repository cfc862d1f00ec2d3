package kasuki

import (
	"bytes"
	"context"
	"encoding/base64"
	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/lmittmann/tint"
	"slices"
	"strings"
	"time"
)

func randomImageCommand(ctx context.Context, b *Bot, c *commandContext) error {
	nsfw := c.boolean(optionNSFW)
	if nsfw {
		ch, err := b.discord.session.Channel(c.interaction.ChannelID, discordgo.WithContext(ctx))
		if err != nil || ch == nil || !ch.NSFW {
			c.replyError(ctx, c.t(msgNSFWOnly))
			return nil
		}
	}
	category := c.str(optionCategory)
	imageURL, err := b.waifu.RandomImage(ctx, category, nsfw)
	if err != nil {
		return err
	}
	return c.reply(ctx, newEmbed().title(category).url(imageURL).image(imageURL))
}

func waifuCategoryAutocomplete(
	_ context.Context,
	_ *Bot,
	value string,
) ([]*discordgo.ApplicationCommandOptionChoice, error) {
	categories := slices.Clone(WaifuCategories(false))
	for _, c := range WaifuCategories(true) {
		if !slices.Contains(categories, c) {
			categories = append(categories, c)
		}
	}
	value = strings.ToLower(strings.TrimSpace(value))
	var matches []string
	for _, c := range categories {
		if strings.Contains(c, value) {
			matches = append(matches, c)
		}
	}
	return choices(matches...), nil
}

func pingCommand(ctx context.Context, b *Bot, c *commandContext) error {
	latency := b.discord.session.HeartbeatLatency().Round(time.Millisecond)
	return c.reply(ctx, newEmbed().description(c.t(msgPing, latency.String())))
}

func infoCommand(ctx context.Context, b *Bot, c *commandContext) error {
	uptime := time.Since(b.startedAt).Round(time.Second)
	e := newEmbed().
		title(c.t(msgInfoTitle)).
		description(
			c.t(
				msgInfoDesc,
				humanize.Comma(b.discord.guildCount.Load()),
				uptime.String(),
				Version,
			),
		).
		footer("started " + humanize.Time(b.startedAt))
	return c.reply(ctx, e)
}

func avatarCommand(ctx context.Context, b *Bot, c *commandContext) error {
	user := c.userOption(optionUser)
	if user == nil {
		user = c.user
	}
	e := newEmbed().
		title(c.t(msgAvatarTitle, user.Username)).
		image(user.AvatarURL("1024"))
	hex, err := b.UserColor(ctx, user)
	if err != nil {
		contextLoggerOr(ctx, b.logger).WarnContext(ctx, "error getting avatar color", tint.Err(err))
	} else {
		e.hexColor(hex).field(c.t(msgFieldColor), "`"+hex+"`", true)
	}
	return c.reply(ctx, e)
}

// welcomeMember posts a welcome embed to the guild's system channel when
// the NEW_MEMBER module is enabled. The guild's "new_member" image, if
// set, is attached.
func (b *Bot) welcomeMember(ctx context.Context, m *discordgo.GuildMemberAdd) error {
	if m.Member == nil || m.User == nil || m.User.Bot {
		return nil
	}
	enabled, err := b.ModuleEnabled(ctx, m.GuildID, ModuleNewMember)
	if err != nil || !enabled {
		return err
	}
	guild, err := b.discord.session.Guild(m.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return newError(ErrKindWebRequest, "welcomeMember", err)
	}
	if guild.SystemChannelID == "" {
		return nil
	}

	lang := b.guildLanguage(ctx, m.GuildID)
	e := newEmbed().
		title(b.localizer.T(lang, msgWelcomeTitle)).
		description(b.localizer.T(lang, msgWelcomeDesc, guild.Name, m.User.Mention())).
		thumbnail(m.User.AvatarURL("256"))
	msg := &discordgo.MessageSend{}

	img, err := b.store.GetServerImage(ctx, m.GuildID, serverImageNewMember)
	if err != nil {
		contextLoggerOr(ctx, b.logger).WarnContext(ctx, "error getting welcome image", tint.Err(err))
	}
	if img != nil {
		switch {
		case img.ImageURL != "":
			e.image(img.ImageURL)
		case img.ImageBase64 != "":
			data, decodeErr := base64.StdEncoding.DecodeString(img.ImageBase64)
			if decodeErr != nil {
				contextLoggerOr(ctx, b.logger).WarnContext(
					ctx,
					"invalid welcome image",
					tint.Err(decodeErr),
					"guild_id", m.GuildID,
				)
				break
			}
			msg.Files = []*discordgo.File{{Name: "welcome.png", Reader: bytes.NewReader(data)}}
			e.image("attachment://welcome.png")
		}
	}
	msg.Embeds = []*discordgo.MessageEmbed{e.build()}

	if _, err = b.discord.session.ChannelMessageSendComplex(
		guild.SystemChannelID,
		msg,
		discordgo.WithContext(ctx),
	); err != nil {
		return newError(ErrKindSending, "welcomeMember", err)
	}
	return nil
}
