package kasuki

import (
	"context"
	"fmt"
	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

const (
	embedMaxTags      = 10
	embedMaxListLinks = 15
	minutesPerDay     = 60 * 24
)

// anilistProfileColors maps AniList's named profile colors to hex
var anilistProfileColors = map[string]string{
	"blue":   "#3DB4F2",
	"purple": "#C063FF",
	"pink":   "#FC9DD6",
	"orange": "#EF881A",
	"red":    "#E13333",
	"green":  "#4CCA51",
	"gray":   "#677B94",
}

func mediaCommand(mediaType string, format string) commandFunc {
	return func(ctx context.Context, b *Bot, c *commandContext) error {
		m, err := b.anilist.SearchMedia(ctx, c.str(optionName), mediaType, format)
		if err != nil {
			return err
		}
		return c.reply(ctx, mediaEmbed(c, m))
	}
}

func mediaAutocomplete(mediaType string) autocompleteFunc {
	return func(
		ctx context.Context,
		b *Bot,
		value string,
	) ([]*discordgo.ApplicationCommandOptionChoice, error) {
		if strings.TrimSpace(value) == "" {
			return nil, nil
		}
		results, err := b.anilist.MediaAutocomplete(ctx, value, mediaType)
		if err != nil {
			return nil, err
		}
		return autocompleteChoices(results), nil
	}
}

func characterAutocomplete(
	ctx context.Context,
	b *Bot,
	value string,
) ([]*discordgo.ApplicationCommandOptionChoice, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	results, err := b.anilist.CharacterAutocomplete(ctx, value)
	if err != nil {
		return nil, err
	}
	return autocompleteChoices(results), nil
}

func staffAutocomplete(
	ctx context.Context,
	b *Bot,
	value string,
) ([]*discordgo.ApplicationCommandOptionChoice, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	results, err := b.anilist.StaffAutocomplete(ctx, value)
	if err != nil {
		return nil, err
	}
	return autocompleteChoices(results), nil
}

func studioAutocomplete(
	ctx context.Context,
	b *Bot,
	value string,
) ([]*discordgo.ApplicationCommandOptionChoice, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	results, err := b.anilist.StudioAutocomplete(ctx, value)
	if err != nil {
		return nil, err
	}
	return autocompleteChoices(results), nil
}

// mediaEmbed builds the embed shown for an anime/manga/light novel
func mediaEmbed(c *commandContext, m *Media) *embed {
	e := newEmbed().
		title(m.Title.Preferred()).
		url(m.SiteURL).
		description(cleanDescription(m.Description)).
		hexColor(m.CoverImage.Color).
		thumbnail(m.CoverURL()).
		image(m.BannerImage)

	e.field(c.t(msgFieldFormat), humanizeEnum(m.Format), true)
	e.field(c.t(msgFieldStatus), humanizeEnum(m.Status), true)
	if m.Type == MediaTypeAnime {
		e.field(c.t(msgFieldEpisodes), positiveInt(m.Episodes), true)
	} else {
		e.field(c.t(msgFieldChapters), positiveInt(m.Chapters), true)
		e.field(c.t(msgFieldVolumes), positiveInt(m.Volumes), true)
	}
	if m.AverageScore > 0 {
		e.field(c.t(msgFieldScore), fmt.Sprintf("%d%%", m.AverageScore), true)
	}
	e.field(c.t(msgFieldStart), m.StartDate.String(), true)
	e.field(c.t(msgFieldEnd), m.EndDate.String(), true)
	if m.Favourites > 0 {
		e.field(c.t(msgFieldFavourites), humanize.Comma(int64(m.Favourites)), true)
	}
	if next := m.NextAiringEpisode; next != nil {
		e.field(
			c.t(msgFieldNextEpisode),
			c.t(msgActivityNext, strconv.Itoa(next.Episode), discordTimestamp(next.AiringAt)),
			false,
		)
	}

	e.field(c.t(msgFieldGenres), joinLimit(m.Genres, ", ", embedFieldValueMaxLength), false)

	tags := make([]string, 0, embedMaxTags)
	for _, tag := range m.Tags {
		if tag.IsMediaSpoiler {
			continue
		}
		tags = append(tags, tag.Name)
		if len(tags) == embedMaxTags {
			break
		}
	}
	e.field(c.t(msgFieldTags), joinLimit(tags, ", ", embedFieldValueMaxLength), false)

	var studios []string
	for _, s := range m.Studios.Nodes {
		if s.IsAnimationStudio {
			studios = append(studios, markdownLink(s.Name, s.SiteURL))
		}
	}
	e.field(c.t(msgFieldStudios), joinLimit(studios, ", ", embedFieldValueMaxLength), false)

	var staff []string
	for _, edge := range m.Staff.Edges {
		staff = append(
			staff,
			markdownLink(edge.Node.Name.Full, edge.Node.SiteURL)+" ("+edge.Role+")",
		)
	}
	e.field(c.t(msgFieldStaff), joinLimit(staff, "\n", embedFieldValueMaxLength), false)

	if m.Title.Native != "" && m.Title.Native != m.Title.Preferred() {
		e.footer(m.Title.Native)
	}
	return e
}

// mediaLinks renders media references as markdown links, one per line
func mediaLinks(refs []MediaRef) string {
	links := make([]string, 0, min(len(refs), embedMaxListLinks))
	for _, ref := range refs {
		links = append(links, markdownLink(ref.Title.Preferred(), ref.SiteURL))
		if len(links) == embedMaxListLinks {
			break
		}
	}
	return joinLimit(links, "\n", embedFieldValueMaxLength)
}

func characterCommand(ctx context.Context, b *Bot, c *commandContext) error {
	ch, err := b.anilist.SearchCharacter(ctx, c.str(optionName))
	if err != nil {
		return err
	}
	e := newEmbed().
		title(ch.Name.Full).
		url(ch.SiteURL).
		description(cleanDescription(ch.Description)).
		thumbnail(ch.Image.Large).
		field(c.t(msgFieldGender), ch.Gender, true).
		field(c.t(msgFieldAge), ch.Age, true).
		field(c.t(msgFieldBirthday), ch.DateOfBirth.String(), true)
	if ch.Favourites > 0 {
		e.field(c.t(msgFieldFavourites), humanize.Comma(int64(ch.Favourites)), true)
	}
	e.field(c.t(msgFieldMedia), mediaLinks(ch.Media.Nodes), false).
		footer(ch.Name.Native)
	return c.reply(ctx, e)
}

func staffCommand(ctx context.Context, b *Bot, c *commandContext) error {
	s, err := b.anilist.SearchStaff(ctx, c.str(optionName))
	if err != nil {
		return err
	}
	e := newEmbed().
		title(s.Name.Full).
		url(s.SiteURL).
		description(cleanDescription(s.Description)).
		thumbnail(s.Image.Large).
		field(c.t(msgFieldOccupations), strings.Join(s.PrimaryOccupations, ", "), true).
		field(c.t(msgFieldGender), s.Gender, true).
		field(c.t(msgFieldAge), positiveInt(s.Age), true).
		field(c.t(msgFieldBirthday), s.DateOfBirth.String(), true)
	if s.Favourites > 0 {
		e.field(c.t(msgFieldFavourites), humanize.Comma(int64(s.Favourites)), true)
	}
	e.field(c.t(msgFieldMedia), mediaLinks(s.StaffMedia.Nodes), false)

	characters := make([]string, 0, len(s.Characters.Nodes))
	for _, ch := range s.Characters.Nodes {
		characters = append(characters, markdownLink(ch.Name.Full, ch.SiteURL))
	}
	e.field(c.t(msgFieldCharacters), joinLimit(characters, "\n", embedFieldValueMaxLength), false).
		footer(s.Name.Native)
	return c.reply(ctx, e)
}

func studioCommand(ctx context.Context, b *Bot, c *commandContext) error {
	s, err := b.anilist.SearchStudio(ctx, c.str(optionName))
	if err != nil {
		return err
	}
	e := newEmbed().
		title(s.Name).
		url(s.SiteURL).
		description(mediaLinks(s.Media.Nodes))
	if s.Favourites > 0 {
		e.field(c.t(msgFieldFavourites), humanize.Comma(int64(s.Favourites)), true)
	}
	return c.reply(ctx, e)
}

// lookupAnilistUser returns the AniList user named name, or, when name is
// empty, the user registered to discordUserID. A nil user with a nil error
// means nothing is registered.
func (b *Bot) lookupAnilistUser(
	ctx context.Context,
	discordUserID string,
	name string,
) (*AnilistUser, error) {
	if name = strings.TrimSpace(name); name != "" {
		return b.anilist.UserByName(ctx, name)
	}
	reg, err := b.store.GetRegisteredUser(ctx, discordUserID)
	if err != nil || reg == nil {
		return nil, err
	}
	id, err := strconv.Atoi(reg.ExternalUserID)
	if err != nil {
		return nil, newError(ErrKindDecode, "lookupAnilistUser", err)
	}
	return b.anilist.UserByID(ctx, id)
}

func anilistUserCommand(ctx context.Context, b *Bot, c *commandContext) error {
	u, err := b.lookupAnilistUser(ctx, c.user.ID, c.str(optionUsername))
	if err != nil {
		return err
	}
	if u == nil {
		c.replyError(ctx, c.t(msgNotRegistered))
		return nil
	}

	anime := u.Statistics.Anime
	manga := u.Statistics.Manga
	level, _, _ := GetLevel(UserXP(u.Stats()))

	e := newEmbed().
		title(u.Name).
		url(u.SiteURL).
		thumbnail(u.Avatar.Large).
		image(u.BannerImage).
		hexColor(profileColor(u.Options.ProfileColor)).
		description(c.t(msgUserLevel, level)).
		field(
			c.t(msgFieldAnime),
			c.t(
				msgUserAnime,
				humanize.Comma(int64(anime.Count)),
				humanize.Comma(int64(anime.EpisodesWatched)),
				humanize.CommafWithDigits(float64(anime.MinutesWatched)/minutesPerDay, 1),
				anime.MeanScore,
			),
			true,
		).
		field(
			c.t(msgFieldManga),
			c.t(
				msgUserManga,
				humanize.Comma(int64(manga.Count)),
				humanize.Comma(int64(manga.ChaptersRead)),
				humanize.Comma(int64(manga.VolumesRead)),
				manga.MeanScore,
			),
			true,
		)
	return c.reply(ctx, e)
}

// profileColor converts an AniList profile color (a name or a hex
// string) to hex
func profileColor(color string) string {
	if hex, ok := anilistProfileColors[strings.ToLower(color)]; ok {
		return hex
	}
	return color
}

func registerCommand(ctx context.Context, b *Bot, c *commandContext) error {
	u, err := b.anilist.UserByName(ctx, c.str(optionUsername))
	if err != nil {
		return err
	}
	if err = b.store.SetRegisteredUser(
		ctx,
		RegisteredUser{DiscordUserID: c.user.ID, ExternalUserID: strconv.Itoa(u.ID)},
	); err != nil {
		return err
	}
	e := newEmbed().
		color(colorSuccess).
		description(c.t(msgRegistered, u.Name)).
		thumbnail(u.Avatar.Large)
	return c.reply(ctx, e)
}

func compareCommand(ctx context.Context, b *Bot, c *commandContext) error {
	var first, second *AnilistUser
	g, gctx := errgroup.WithContext(ctx)
	g.Go(
		func() error {
			u, err := b.anilist.UserByName(gctx, c.str(optionUsername))
			first = u
			return err
		},
	)
	g.Go(
		func() error {
			u, err := b.lookupAnilistUser(gctx, c.user.ID, c.str(optionUsername2))
			second = u
			return err
		},
	)
	if err := g.Wait(); err != nil {
		return err
	}
	if second == nil {
		c.replyError(ctx, c.t(msgNotRegistered))
		return nil
	}

	firstStats := first.Stats()
	secondStats := second.Stats()
	firstLevel, _, _ := GetLevel(UserXP(firstStats))
	secondLevel, _, _ := GetLevel(UserXP(secondStats))

	e := newEmbed().
		title(c.t(msgCompareTitle, first.Name, second.Name)).
		description(c.t(msgCompareDesc, GetAffinity(firstStats, secondStats))).
		hexColor(profileColor(first.Options.ProfileColor)).
		thumbnail(first.Avatar.Large).
		field(
			first.Name,
			c.t(
				msgCompareUser,
				firstLevel,
				humanize.Comma(int64(firstStats.Anime.Count)),
				humanize.Comma(int64(firstStats.Manga.Count)),
			),
			true,
		).
		field(
			second.Name,
			c.t(
				msgCompareUser,
				secondLevel,
				humanize.Comma(int64(secondStats.Anime.Count)),
				humanize.Comma(int64(secondStats.Manga.Count)),
			),
			true,
		)
	return c.reply(ctx, e)
}

// formatXP formats an xp amount for display. Amounts too large for an
// int64 are formatted from the rounded float.
func formatXP(xp float64) string {
	if xp < math.MaxInt64 {
		return humanize.Comma(int64(xp))
	}
	return humanize.Commaf(math.Round(xp))
}

func levelCommand(ctx context.Context, b *Bot, c *commandContext) error {
	u, err := b.lookupAnilistUser(ctx, c.user.ID, c.str(optionUsername))
	if err != nil {
		return err
	}
	if u == nil {
		c.replyError(ctx, c.t(msgNotRegistered))
		return nil
	}
	level, progress, span := GetLevel(UserXP(u.Stats()))
	remaining := formatXP(span)
	if level >= maxLevel {
		remaining = "∞"
	}
	e := newEmbed().
		title(c.t(msgLevelTitle, u.Name)).
		url(u.SiteURL).
		thumbnail(u.Avatar.Large).
		hexColor(profileColor(u.Options.ProfileColor)).
		description(c.t(msgLevelDesc, level, formatXP(progress), remaining))
	return c.reply(ctx, e)
}

func randomMediaCommand(ctx context.Context, b *Bot, c *commandContext) error {
	mediaType := c.str(optionType)
	stats := b.randomStats.Get()
	last := stats.AnimeLastPage
	if mediaType == MediaTypeManga {
		last = stats.MangaLastPage
	} else {
		mediaType = MediaTypeAnime
	}
	page := rand.Intn(max(last, 1)) + 1

	m, err := b.anilist.RandomMedia(ctx, mediaType, page)
	if err != nil {
		return err
	}
	e := mediaEmbed(c, m)
	e.footer(c.t(msgRandomTitle, strings.ToLower(mediaType)))
	return c.reply(ctx, e)
}

// humanizeEnum formats an AniList enum value (ex: "NOT_YET_RELEASED") for
// display ("Not yet released")
func humanizeEnum(s string) string {
	if s == "" {
		return ""
	}
	if s == "TV" || s == "OVA" || s == "ONA" {
		return s
	}
	s = strings.ToLower(strings.ReplaceAll(s, "_", " "))
	return strings.ToUpper(s[:1]) + s[1:]
}

// positiveInt formats n, or returns an empty string when n isn't known
func positiveInt(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}
