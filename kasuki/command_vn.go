package kasuki

import (
	"context"
	"fmt"
	"github.com/dustin/go-humanize"
	"strconv"
	"strings"
	"time"
)

// vndbMaxTagSpoiler is the highest tag spoiler level shown
const vndbMaxTagSpoiler = 0

func vnGameCommand(ctx context.Context, b *Bot, c *commandContext) error {
	vn, err := b.vndb.SearchVN(ctx, c.str(optionTitle))
	if err != nil {
		return err
	}

	developers := make([]string, 0, len(vn.Developers))
	for _, d := range vn.Developers {
		developers = append(developers, d.Name)
	}
	tags := make([]string, 0, embedMaxTags)
	for _, t := range vn.Tags {
		if t.Spoiler > vndbMaxTagSpoiler {
			continue
		}
		tags = append(tags, t.Name)
		if len(tags) == embedMaxTags {
			break
		}
	}

	e := newEmbed().
		title(vn.Title).
		url(vn.URL()).
		description(cleanDescription(vn.Description)).
		image(vn.Image.SafeURL()).
		field(c.t(msgFieldReleased), vn.Released, true).
		field(c.t(msgFieldLength), vnLength(vn.LengthMinutes), true)
	if vn.Rating > 0 {
		e.field(
			c.t(msgFieldScore),
			fmt.Sprintf("%.2f (%s %s)", vn.Rating, humanize.Comma(int64(vn.VoteCount)), c.t(msgFieldVotes)),
			true,
		)
	}
	e.field(c.t(msgFieldDevelopers), joinLimit(developers, ", ", embedFieldValueMaxLength), false).
		field(c.t(msgFieldPlatforms), joinLimit(vn.Platforms, ", ", embedFieldValueMaxLength), true).
		field(c.t(msgFieldLanguages), joinLimit(vn.Languages, ", ", embedFieldValueMaxLength), true).
		field(c.t(msgFieldTags), joinLimit(tags, ", ", embedFieldValueMaxLength), false).
		footer(vn.AltTitle)
	return c.reply(ctx, e)
}

// vnLength formats a length in minutes as hours and minutes
func vnLength(minutes int) string {
	if minutes <= 0 {
		return ""
	}
	d := time.Duration(minutes) * time.Minute
	h := int(d.Hours())
	m := minutes - h*60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}

func vnCharacterCommand(ctx context.Context, b *Bot, c *commandContext) error {
	ch, err := b.vndb.SearchCharacter(ctx, c.str(optionName))
	if err != nil {
		return err
	}

	vns := make([]string, 0, len(ch.VNs))
	for _, v := range ch.VNs {
		vns = append(vns, v.Title)
	}
	var birthday string
	if len(ch.Birthday) == 2 {
		birthday = fmt.Sprintf("%02d-%02d", ch.Birthday[0], ch.Birthday[1])
	}
	var sex string
	if len(ch.Sex) > 0 {
		sex = ch.Sex[0]
	}

	e := newEmbed().
		title(ch.Name).
		url(ch.URL()).
		description(cleanDescription(ch.Description)).
		thumbnail(ch.Image.SafeURL()).
		field(c.t(msgFieldGender), sex, true).
		field(c.t(msgFieldAge), positiveInt(ch.Age), true).
		field(c.t(msgFieldBirthday), birthday, true).
		field("Blood type", strings.ToUpper(ch.BloodType), true)
	if ch.Height > 0 {
		e.field("Height", strconv.Itoa(ch.Height)+"cm", true)
	}
	if ch.Weight > 0 {
		e.field("Weight", strconv.Itoa(ch.Weight)+"kg", true)
	}
	e.field(c.t(msgFieldMedia), joinLimit(vns, "\n", embedFieldValueMaxLength), false).
		footer(ch.Original)
	return c.reply(ctx, e)
}

func vnProducerCommand(ctx context.Context, b *Bot, c *commandContext) error {
	p, err := b.vndb.SearchProducer(ctx, c.str(optionName))
	if err != nil {
		return err
	}
	e := newEmbed().
		title(p.Name).
		url(p.URL()).
		description(cleanDescription(p.Description)).
		field(c.t(msgFieldType), vndbProducerType(p.Type), true).
		field(c.t(msgFieldLanguages), p.Lang, true).
		field("Aliases", joinLimit(p.Aliases, ", ", embedFieldValueMaxLength), false).
		footer(p.Original)
	return c.reply(ctx, e)
}

// vndbProducerType expands VNDB's producer type codes
func vndbProducerType(t string) string {
	switch t {
	case "co":
		return "Company"
	case "in":
		return "Individual"
	case "ng":
		return "Amateur group"
	default:
		return t
	}
}

func vnUserCommand(ctx context.Context, b *Bot, c *commandContext) error {
	u, err := b.vndb.User(ctx, c.str(optionUsername))
	if err != nil {
		return err
	}
	e := newEmbed().
		title(u.Username).
		url(u.URL()).
		field("Length votes", humanize.Comma(int64(u.LengthVotes)), true).
		field(c.t(msgFieldLength), vnLength(u.LengthVotesSum), true)
	return c.reply(ctx, e)
}

func vnStatsCommand(ctx context.Context, b *Bot, c *commandContext) error {
	stats, err := b.vndb.Stats(ctx)
	if err != nil {
		return err
	}
	e := newEmbed().
		title(c.t(msgVNStatsTitle)).
		url("https://vndb.org/").
		field("Visual novels", humanize.Comma(int64(stats.VN)), true).
		field("Releases", humanize.Comma(int64(stats.Releases)), true).
		field("Producers", humanize.Comma(int64(stats.Producers)), true).
		field(c.t(msgFieldCharacters), humanize.Comma(int64(stats.Chars)), true).
		field(c.t(msgFieldStaff), humanize.Comma(int64(stats.Staff)), true).
		field(c.t(msgFieldTags), humanize.Comma(int64(stats.Tags)), true).
		field("Traits", humanize.Comma(int64(stats.Traits)), true)
	return c.reply(ctx, e)
}
