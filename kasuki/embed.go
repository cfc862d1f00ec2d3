package kasuki

import (
	"github.com/bwmarrin/discordgo"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Discord embed limits.
// See: https://discord.com/developers/docs/resources/message#embed-object-embed-limits
const (
	embedTitleMaxLength       = 256
	embedDescriptionMaxLength = 4096
	embedMaxFields            = 25
	embedFieldNameMaxLength   = 256
	embedFieldValueMaxLength  = 1024
	embedFooterMaxLength      = 2048
)

const (
	colorDefault = 0x2B2D31
	colorError   = 0xED4245
	colorSuccess = 0x57F287
)

var (
	htmlTagPattern     = regexp.MustCompile(`(?s)<[^>]*>`)
	htmlBreakPattern   = regexp.MustCompile(`(?i)<br\s*/?>`)
	htmlItalicPattern  = regexp.MustCompile(`(?is)<i>(.*?)</i>`)
	htmlBoldPattern    = regexp.MustCompile(`(?is)<(?:b|strong)>(.*?)</(?:b|strong)>`)
	anilistSpoiler     = regexp.MustCompile(`(?s)~!(.*?)!~`)
	repeatedNewlines   = regexp.MustCompile(`\n{3,}`)
	anilistColorPrefix = "#"
)

// embed builds a [discordgo.MessageEmbed], applying discord's length
// limits as it goes
type embed struct {
	e *discordgo.MessageEmbed
}

func newEmbed() *embed {
	return &embed{
		e: &discordgo.MessageEmbed{
			Type:      discordgo.EmbedTypeRich,
			Color:     colorDefault,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
}

// errorEmbed returns an embed describing a failed command
func errorEmbed(title string, description string) *embed {
	return newEmbed().title(title).description(description).color(colorError)
}

func (b *embed) title(s string) *embed {
	b.e.Title = truncate(s, embedTitleMaxLength)
	return b
}

func (b *embed) url(s string) *embed {
	b.e.URL = s
	return b
}

func (b *embed) description(s string) *embed {
	b.e.Description = shortenString(s, embedDescriptionMaxLength)
	return b
}

func (b *embed) color(c int) *embed {
	b.e.Color = c
	return b
}

// hexColor sets the color from a "#rrggbb" string, ignoring invalid values
func (b *embed) hexColor(s string) *embed {
	if c, err := strconv.ParseInt(strings.TrimPrefix(s, anilistColorPrefix), 16, 32); err == nil {
		b.e.Color = int(c)
	}
	return b
}

// field adds a field, unless value is empty or the embed already has
// the maximum number of fields
func (b *embed) field(name string, value string, inline bool) *embed {
	if strings.TrimSpace(value) == "" || len(b.e.Fields) >= embedMaxFields {
		return b
	}
	b.e.Fields = append(
		b.e.Fields,
		&discordgo.MessageEmbedField{
			Name:   truncate(name, embedFieldNameMaxLength),
			Value:  shortenString(value, embedFieldValueMaxLength),
			Inline: inline,
		},
	)
	return b
}

func (b *embed) thumbnail(imageURL string) *embed {
	if imageURL != "" {
		b.e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: imageURL}
	}
	return b
}

func (b *embed) image(imageURL string) *embed {
	if imageURL != "" {
		b.e.Image = &discordgo.MessageEmbedImage{URL: imageURL}
	}
	return b
}

func (b *embed) footer(s string) *embed {
	if s != "" {
		b.e.Footer = &discordgo.MessageEmbedFooter{Text: truncate(s, embedFooterMaxLength)}
	}
	return b
}

func (b *embed) build() *discordgo.MessageEmbed {
	return b.e
}

// response returns an interaction response with the embed
func (b *embed) response(ephemeral bool) *discordgo.InteractionResponse {
	data := &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{b.e},
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}
}

// edit returns an edit replacing a deferred response's content with
// the embed
func (b *embed) edit() *discordgo.WebhookEdit {
	empty := ""
	return &discordgo.WebhookEdit{
		Content: &empty,
		Embeds:  &[]*discordgo.MessageEmbed{b.e},
	}
}

// webhookParams returns the parameters to execute a webhook with the embed
func (b *embed) webhookParams(username string, avatarURL string) *discordgo.WebhookParams {
	return &discordgo.WebhookParams{
		Username:  username,
		AvatarURL: avatarURL,
		Embeds:    []*discordgo.MessageEmbed{b.e},
	}
}

// cleanDescription converts an AniList/VNDB description to discord
// markdown: line breaks, italics and bold are kept, other tags are
// removed, and spoilers are hidden
func cleanDescription(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = htmlBreakPattern.ReplaceAllString(s, "\n")
	s = htmlItalicPattern.ReplaceAllString(s, "*$1*")
	s = htmlBoldPattern.ReplaceAllString(s, "**$1**")
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = anilistSpoiler.ReplaceAllString(s, "||$1||")
	s = vndbMarkup(s)
	s = html.UnescapeString(s)
	s = repeatedNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

var (
	vndbURLPattern     = regexp.MustCompile(`(?s)\[url=([^\]]+)\](.*?)\[/url\]`)
	vndbSpoilerPattern = regexp.MustCompile(`(?s)\[spoiler\](.*?)\[/spoiler\]`)
)

// vndbMarkup converts VNDB's bbcode-like formatting
func vndbMarkup(s string) string {
	s = vndbURLPattern.ReplaceAllString(s, "[$2]($1)")
	s = vndbSpoilerPattern.ReplaceAllString(s, "||$1||")
	return s
}

// joinLimit joins items with sep, stopping before the result would exceed
// limit characters
func joinLimit(items []string, sep string, limit int) string {
	var sb strings.Builder
	for _, item := range items {
		if item == "" {
			continue
		}
		add := item
		if sb.Len() > 0 {
			add = sep + item
		}
		if sb.Len()+len(add) > limit {
			break
		}
		sb.WriteString(add)
	}
	return sb.String()
}

// markdownLink returns a markdown link, or just the text if url is empty
func markdownLink(text string, url string) string {
	if url == "" {
		return text
	}
	return "[" + text + "](" + url + ")"
}

// discordTimestamp formats a unix timestamp for discord to display
// relative to the reader (ex: "in 3 hours")
func discordTimestamp(unix int64) string {
	return "<t:" + strconv.FormatInt(unix, 10) + ":R>"
}
