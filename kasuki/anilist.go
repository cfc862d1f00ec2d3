package kasuki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	graphql "github.com/hasura/go-graphql-client"
	"github.com/lmittmann/tint"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	MediaTypeAnime = "ANIME"
	MediaTypeManga = "MANGA"

	mediaFormatNovel = "NOVEL"

	// discordMaxAutocompleteChoices is the maximum number of choices
	// discord accepts in an autocomplete response
	discordMaxAutocompleteChoices = 25
)

// AnilistClient queries the AniList GraphQL API. Requests go through a
// graphql client whose transport memoizes successful responses in a
// RemoteCache, keyed by the serialized request body.
type AnilistClient struct {
	endpoint string
	client   *http.Client
	gql      *graphql.Client
	cache    *RemoteCache
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewAnilistClient returns a client for the endpoint in config.
// If cache is nil, responses aren't cached.
func NewAnilistClient(
	config *AnilistConfig,
	httpClient *http.Client,
	cache *RemoteCache,
	logger *slog.Logger,
) *AnilistClient {
	if httpClient == nil {
		httpClient = newHTTPClient(DefaultHTTPTimeout)
	}
	if logger == nil {
		logger = slog.Default()
	}
	rpm := config.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultAnilistRequestsPerMinute
	}
	c := &AnilistClient{
		endpoint: config.Endpoint,
		client:   httpClient,
		cache:    cache,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		logger:   logger.With(loggerNameKey, "anilist"),
	}
	c.gql = graphql.NewClient(c.endpoint, &http.Client{Transport: anilistTransport{c: c}})
	return c
}

type anilistExchangeKey struct{}

// anilistExchange carries per-request state between exec and the
// transport: whether the response may come from the cache, and what
// the transport saw
type anilistExchange struct {
	op     string
	cached bool
	body   string
	err    error
}

func exchangeFrom(ctx context.Context) *anilistExchange {
	if ex, ok := ctx.Value(anilistExchangeKey{}).(*anilistExchange); ok {
		return ex
	}
	return &anilistExchange{op: "anilist.query", cached: true}
}

// anilistTransport sends graphql requests to AniList, serving repeats
// from the cache. Failed responses (non-2xx or with GraphQL errors)
// are never cached, and reach the graphql client as transport errors.
type anilistTransport struct {
	c *AnilistClient
}

func (t anilistTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	ex := exchangeFrom(ctx)
	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		ex.err = newError(ErrKindWebRequest, ex.op, err)
		return nil, ex.err
	}

	fetch := func(fctx context.Context) (string, error) {
		return t.c.post(fctx, ex.op, body)
	}
	var data string
	if ex.cached && t.c.cache != nil {
		data, err = t.c.cache.GetOrFetch(ctx, string(body), fetch)
	} else {
		data, err = fetch(ctx)
	}
	if err != nil {
		ex.err = err
		return nil, err
	}
	ex.body = data
	return &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"application/json"}},
		Body:          io.NopCloser(strings.NewReader(data)),
		ContentLength: int64(len(data)),
		Request:       req,
	}, nil
}

// post sends body to AniList. A 404 (HTTP or GraphQL status) is returned
// as ErrKindMissing, other GraphQL errors as ErrKindDecode.
func (c *AnilistClient) post(ctx context.Context, op string, body []byte) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", newError(ErrKindWebRequest, op, err)
	}
	start := time.Now()
	data, err := doRequest(ctx, c.client, op, http.MethodPost, c.endpoint, body, nil)
	logger := contextLoggerOr(ctx, c.logger)
	if err != nil {
		logger.WarnContext(
			ctx,
			"anilist request failed",
			tint.Err(err),
			"elapsed", time.Since(start),
		)
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return "", missingf(op, "not found")
		}
		return "", err
	}
	logger.DebugContext(ctx, "anilist request completed", "elapsed", time.Since(start))
	return string(data), anilistResponseError(op, data)
}

func anilistResponseError(op string, raw []byte) error {
	if !gjson.ValidBytes(raw) {
		return newError(ErrKindDecode, op, errors.New("invalid JSON response"))
	}
	gqlErr := gjson.GetBytes(raw, "errors.0")
	if !gqlErr.Exists() {
		return nil
	}
	if gqlErr.Get("status").Int() == http.StatusNotFound {
		return missingf(op, "%s", gqlErr.Get("message").String())
	}
	return newError(ErrKindDecode, op, errors.New(gqlErr.Get("message").String()))
}

// exec sends the given query and returns its `data` object, along with
// the full response body
func (c *AnilistClient) exec(
	ctx context.Context,
	op string,
	query string,
	variables map[string]any,
	cached bool,
) (json.RawMessage, string, error) {
	ex := &anilistExchange{op: op, cached: cached}
	data, err := c.gql.ExecRaw(context.WithValue(ctx, anilistExchangeKey{}, ex), query, variables)
	switch {
	case ex.err != nil:
		return nil, "", ex.err
	case err != nil && ctx.Err() != nil:
		return nil, "", newError(ErrKindWebRequest, op, err)
	case err != nil:
		return nil, "", newError(ErrKindDecode, op, err)
	}
	return data, ex.body, nil
}

// Raw sends the given query and returns the response body, from the
// cache if available.
func (c *AnilistClient) Raw(
	ctx context.Context,
	query string,
	variables map[string]any,
) (string, error) {
	_, body, err := c.exec(ctx, "anilist.Raw", query, variables, true)
	return body, err
}

// query sends the given query and decodes its `data` object into dst
func (c *AnilistClient) query(
	ctx context.Context,
	op string,
	query string,
	variables map[string]any,
	cached bool,
	dst any,
) error {
	data, _, err := c.exec(ctx, op, query, variables, cached)
	if err != nil {
		return err
	}
	return decodeJSON(op, data, dst)
}

type MediaTitle struct {
	Romaji        string `json:"romaji"`
	English       string `json:"english"`
	Native        string `json:"native"`
	UserPreferred string `json:"userPreferred"`
}

// Preferred returns the english title when there is one, falling back
// to the user-preferred and romaji titles
func (t MediaTitle) Preferred() string {
	for _, s := range []string{t.English, t.UserPreferred, t.Romaji, t.Native} {
		if s != "" {
			return s
		}
	}
	return ""
}

type FuzzyDate struct {
	Year  *int `json:"year"`
	Month *int `json:"month"`
	Day   *int `json:"day"`
}

// String formats the date as YYYY-MM-DD, omitting unknown trailing parts
func (d FuzzyDate) String() string {
	if d.Year == nil {
		return ""
	}
	s := strconv.Itoa(*d.Year)
	if d.Month == nil {
		return s
	}
	s = fmt.Sprintf("%s-%02d", s, *d.Month)
	if d.Day == nil {
		return s
	}
	return fmt.Sprintf("%s-%02d", s, *d.Day)
}

type AiringSchedule struct {
	AiringAt        int64 `json:"airingAt"`
	TimeUntilAiring int64 `json:"timeUntilAiring"`
	Episode         int   `json:"episode"`
}

type MediaTag struct {
	Name           string `json:"name"`
	IsMediaSpoiler bool   `json:"isMediaSpoiler"`
	Rank           int    `json:"rank"`
}

type Studio struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	SiteURL           string `json:"siteUrl"`
	IsAnimationStudio bool   `json:"isAnimationStudio"`
	Favourites        int    `json:"favourites"`
	Media             struct {
		Nodes []MediaRef `json:"nodes"`
	} `json:"media"`
}

// MediaRef is a reference to a media from another object
type MediaRef struct {
	ID      int        `json:"id"`
	Type    string     `json:"type"`
	SiteURL string     `json:"siteUrl"`
	Title   MediaTitle `json:"title"`
}

type CharacterName struct {
	Full          string   `json:"full"`
	Native        string   `json:"native"`
	UserPreferred string   `json:"userPreferred"`
	Alternative   []string `json:"alternative"`
}

type Media struct {
	ID          int        `json:"id"`
	IDMal       *int       `json:"idMal"`
	Type        string     `json:"type"`
	Format      string     `json:"format"`
	Status      string     `json:"status"`
	Title       MediaTitle `json:"title"`
	Description string     `json:"description"`
	StartDate   FuzzyDate  `json:"startDate"`
	EndDate     FuzzyDate  `json:"endDate"`
	Season      string     `json:"season"`
	SeasonYear  int        `json:"seasonYear"`
	Episodes    int        `json:"episodes"`
	Duration    int        `json:"duration"`
	Chapters    int        `json:"chapters"`
	Volumes     int        `json:"volumes"`
	Genres      []string   `json:"genres"`
	Synonyms    []string   `json:"synonyms"`

	AverageScore int  `json:"averageScore"`
	MeanScore    int  `json:"meanScore"`
	Popularity   int  `json:"popularity"`
	Favourites   int  `json:"favourites"`
	IsAdult      bool `json:"isAdult"`

	SiteURL    string `json:"siteUrl"`
	CoverImage struct {
		ExtraLarge string `json:"extraLarge"`
		Large      string `json:"large"`
		Color      string `json:"color"`
	} `json:"coverImage"`
	BannerImage string `json:"bannerImage"`

	Studios struct {
		Nodes []Studio `json:"nodes"`
	} `json:"studios"`
	Staff struct {
		Edges []struct {
			Role string `json:"role"`
			Node struct {
				ID      int           `json:"id"`
				Name    CharacterName `json:"name"`
				SiteURL string        `json:"siteUrl"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"staff"`
	Tags              []MediaTag      `json:"tags"`
	NextAiringEpisode *AiringSchedule `json:"nextAiringEpisode"`
}

// CoverURL returns the largest available cover image
func (m Media) CoverURL() string {
	if m.CoverImage.ExtraLarge != "" {
		return m.CoverImage.ExtraLarge
	}
	return m.CoverImage.Large
}

type Character struct {
	ID    int           `json:"id"`
	Name  CharacterName `json:"name"`
	Image struct {
		Large string `json:"large"`
	} `json:"image"`
	Description string    `json:"description"`
	Gender      string    `json:"gender"`
	Age         string    `json:"age"`
	BloodType   string    `json:"bloodType"`
	DateOfBirth FuzzyDate `json:"dateOfBirth"`
	Favourites  int       `json:"favourites"`
	SiteURL     string    `json:"siteUrl"`
	Media       struct {
		Nodes []MediaRef `json:"nodes"`
	} `json:"media"`
}

type Staff struct {
	ID    int           `json:"id"`
	Name  CharacterName `json:"name"`
	Image struct {
		Large string `json:"large"`
	} `json:"image"`
	Description        string    `json:"description"`
	PrimaryOccupations []string  `json:"primaryOccupations"`
	Gender             string    `json:"gender"`
	Age                int       `json:"age"`
	HomeTown           string    `json:"homeTown"`
	YearsActive        []int     `json:"yearsActive"`
	DateOfBirth        FuzzyDate `json:"dateOfBirth"`
	DateOfDeath        FuzzyDate `json:"dateOfDeath"`
	Favourites         int       `json:"favourites"`
	SiteURL            string    `json:"siteUrl"`
	StaffMedia         struct {
		Nodes []MediaRef `json:"nodes"`
	} `json:"staffMedia"`
	Characters struct {
		Nodes []struct {
			ID      int           `json:"id"`
			SiteURL string        `json:"siteUrl"`
			Name    CharacterName `json:"name"`
		} `json:"nodes"`
	} `json:"characters"`
}

type anilistStatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type anilistTagCount struct {
	Count int `json:"count"`
	Tag   struct {
		Name string `json:"name"`
	} `json:"tag"`
}

type anilistGenreCount struct {
	Count int    `json:"count"`
	Genre string `json:"genre"`
}

// AnilistMediaStatistics is a user's statistics for one media type, as
// AniList reports it
type AnilistMediaStatistics struct {
	Count             int                  `json:"count"`
	MeanScore         float64              `json:"meanScore"`
	StandardDeviation float64              `json:"standardDeviation"`
	MinutesWatched    int                  `json:"minutesWatched"`
	EpisodesWatched   int                  `json:"episodesWatched"`
	ChaptersRead      int                  `json:"chaptersRead"`
	VolumesRead       int                  `json:"volumesRead"`
	Statuses          []anilistStatusCount `json:"statuses"`
	Tags              []anilistTagCount    `json:"tags"`
	Genres            []anilistGenreCount  `json:"genres"`
}

func (s AnilistMediaStatistics) toMediaStatistics(consumed int, secondary int) MediaStatistics {
	ms := MediaStatistics{
		Count:             s.Count,
		Consumed:          consumed,
		Secondary:         secondary,
		StandardDeviation: s.StandardDeviation,
		MeanScore:         s.MeanScore,
	}
	for _, st := range s.Statuses {
		if idx, ok := statusIndex(st.Status); ok {
			ms.Statuses[idx] = st.Count
		}
	}
	for _, t := range s.Tags {
		ms.Tags = append(ms.Tags, t.Tag.Name)
	}
	for _, g := range s.Genres {
		ms.Genres = append(ms.Genres, g.Genre)
	}
	return ms
}

type AnilistUser struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	SiteURL string `json:"siteUrl"`
	Avatar  struct {
		Large string `json:"large"`
	} `json:"avatar"`
	BannerImage string `json:"bannerImage"`
	Options     struct {
		ProfileColor string `json:"profileColor"`
	} `json:"options"`
	Statistics struct {
		Anime AnilistMediaStatistics `json:"anime"`
		Manga AnilistMediaStatistics `json:"manga"`
	} `json:"statistics"`
}

// Stats converts the user's AniList statistics for leveling and affinity
func (u AnilistUser) Stats() UserStatistics {
	return UserStatistics{
		Anime: u.Statistics.Anime.toMediaStatistics(
			u.Statistics.Anime.MinutesWatched,
			u.Statistics.Anime.EpisodesWatched,
		),
		Manga: u.Statistics.Manga.toMediaStatistics(
			u.Statistics.Manga.ChaptersRead,
			u.Statistics.Manga.VolumesRead,
		),
	}
}

// AutocompleteChoice is a suggestion returned from an autocomplete search
type AutocompleteChoice struct {
	ID   int
	Name string
}

// SearchMedia returns the best match for search. format may be empty.
// A numeric search (as sent by autocomplete) is tried as an AniList ID
// of the same type and format first, then as a title.
func (c *AnilistClient) SearchMedia(
	ctx context.Context,
	search string,
	mediaType string,
	format string,
) (*Media, error) {
	vars := map[string]any{"type": mediaType}
	if format != "" {
		vars["format"] = format
	}
	if id, err := strconv.Atoi(search); err == nil {
		idVars := map[string]any{"id": id, "type": mediaType}
		if format != "" {
			idVars["format"] = format
		}
		m, err := c.mediaByID(ctx, "anilist.SearchMedia", idVars)
		if errorKind(err) != ErrKindMissing {
			return m, err
		}
	}
	vars["search"] = search
	var resp struct {
		Media *Media `json:"Media"`
	}
	if err := c.query(ctx, "anilist.SearchMedia", anilistQueryMediaSearch, vars, true, &resp); err != nil {
		return nil, err
	}
	if resp.Media == nil {
		return nil, missingf("anilist.SearchMedia", "no media found for %q", search)
	}
	return resp.Media, nil
}

// MediaByID returns the media with the given ID
func (c *AnilistClient) MediaByID(ctx context.Context, id int) (*Media, error) {
	return c.mediaByID(ctx, "anilist.MediaByID", map[string]any{"id": id})
}

func (c *AnilistClient) mediaByID(ctx context.Context, op string, vars map[string]any) (*Media, error) {
	var resp struct {
		Media *Media `json:"Media"`
	}
	if err := c.query(ctx, op, anilistQueryMediaByID, vars, true, &resp); err != nil {
		return nil, err
	}
	if resp.Media == nil {
		return nil, missingf(op, "no media with id %v", vars["id"])
	}
	return resp.Media, nil
}

// MediaAutocomplete returns up to 25 media matching search
func (c *AnilistClient) MediaAutocomplete(
	ctx context.Context,
	search string,
	mediaType string,
) ([]AutocompleteChoice, error) {
	var resp struct {
		Page struct {
			Media []struct {
				ID    int        `json:"id"`
				Title MediaTitle `json:"title"`
			} `json:"media"`
		} `json:"Page"`
	}
	if err := c.query(
		ctx,
		"anilist.MediaAutocomplete",
		anilistQueryMediaAutocomplete,
		map[string]any{
			"search":  search,
			"type":    mediaType,
			"perPage": discordMaxAutocompleteChoices,
		},
		true,
		&resp,
	); err != nil {
		return nil, err
	}
	choices := make([]AutocompleteChoice, 0, len(resp.Page.Media))
	for _, m := range resp.Page.Media {
		choices = append(choices, AutocompleteChoice{ID: m.ID, Name: m.Title.Preferred()})
	}
	return choices, nil
}

// SearchCharacter returns the best character match for search
func (c *AnilistClient) SearchCharacter(ctx context.Context, search string) (*Character, error) {
	var resp struct {
		Character *Character `json:"Character"`
	}
	if err := c.query(
		ctx,
		"anilist.SearchCharacter",
		anilistQueryCharacterSearch,
		map[string]any{"search": search},
		true,
		&resp,
	); err != nil {
		return nil, err
	}
	if resp.Character == nil {
		return nil, missingf("anilist.SearchCharacter", "no character found for %q", search)
	}
	return resp.Character, nil
}

// CharacterAutocomplete returns up to 25 characters matching search
func (c *AnilistClient) CharacterAutocomplete(
	ctx context.Context,
	search string,
) ([]AutocompleteChoice, error) {
	var resp struct {
		Page struct {
			Characters []struct {
				ID   int           `json:"id"`
				Name CharacterName `json:"name"`
			} `json:"characters"`
		} `json:"Page"`
	}
	if err := c.query(
		ctx,
		"anilist.CharacterAutocomplete",
		anilistQueryCharacterAutocomplete,
		map[string]any{"search": search, "perPage": discordMaxAutocompleteChoices},
		true,
		&resp,
	); err != nil {
		return nil, err
	}
	choices := make([]AutocompleteChoice, 0, len(resp.Page.Characters))
	for _, ch := range resp.Page.Characters {
		choices = append(choices, AutocompleteChoice{ID: ch.ID, Name: ch.Name.Full})
	}
	return choices, nil
}

// SearchStaff returns the best staff match for search
func (c *AnilistClient) SearchStaff(ctx context.Context, search string) (*Staff, error) {
	var resp struct {
		Staff *Staff `json:"Staff"`
	}
	if err := c.query(
		ctx,
		"anilist.SearchStaff",
		anilistQueryStaffSearch,
		map[string]any{"search": search},
		true,
		&resp,
	); err != nil {
		return nil, err
	}
	if resp.Staff == nil {
		return nil, missingf("anilist.SearchStaff", "no staff found for %q", search)
	}
	return resp.Staff, nil
}

// StaffAutocomplete returns up to 25 staff matching search
func (c *AnilistClient) StaffAutocomplete(
	ctx context.Context,
	search string,
) ([]AutocompleteChoice, error) {
	var resp struct {
		Page struct {
			Staff []struct {
				ID   int           `json:"id"`
				Name CharacterName `json:"name"`
			} `json:"staff"`
		} `json:"Page"`
	}
	if err := c.query(
		ctx,
		"anilist.StaffAutocomplete",
		anilistQueryStaffAutocomplete,
		map[string]any{"search": search, "perPage": discordMaxAutocompleteChoices},
		true,
		&resp,
	); err != nil {
		return nil, err
	}
	choices := make([]AutocompleteChoice, 0, len(resp.Page.Staff))
	for _, s := range resp.Page.Staff {
		choices = append(choices, AutocompleteChoice{ID: s.ID, Name: s.Name.Full})
	}
	return choices, nil
}

// SearchStudio returns the best studio match for search
func (c *AnilistClient) SearchStudio(ctx context.Context, search string) (*Studio, error) {
	var resp struct {
		Studio *Studio `json:"Studio"`
	}
	if err := c.query(
		ctx,
		"anilist.SearchStudio",
		anilistQueryStudioSearch,
		map[string]any{"search": search},
		true,
		&resp,
	); err != nil {
		return nil, err
	}
	if resp.Studio == nil {
		return nil, missingf("anilist.SearchStudio", "no studio found for %q", search)
	}
	return resp.Studio, nil
}

// StudioAutocomplete returns up to 25 studios matching search
func (c *AnilistClient) StudioAutocomplete(
	ctx context.Context,
	search string,
) ([]AutocompleteChoice, error) {
	var resp struct {
		Page struct {
			Studios []struct {
				ID   int    `json:"id"`
				Name string `json:"name"`
			} `json:"studios"`
		} `json:"Page"`
	}
	if err := c.query(
		ctx,
		"anilist.StudioAutocomplete",
		anilistQueryStudioAutocomplete,
		map[string]any{"search": search, "perPage": discordMaxAutocompleteChoices},
		true,
		&resp,
	); err != nil {
		return nil, err
	}
	choices := make([]AutocompleteChoice, 0, len(resp.Page.Studios))
	for _, s := range resp.Page.Studios {
		choices = append(choices, AutocompleteChoice{ID: s.ID, Name: s.Name})
	}
	return choices, nil
}

// UserByName returns the AniList user with the given name
func (c *AnilistClient) UserByName(ctx context.Context, name string) (*AnilistUser, error) {
	var resp struct {
		User *AnilistUser `json:"User"`
	}
	if err := c.query(
		ctx,
		"anilist.UserByName",
		anilistQueryUserByName,
		map[string]any{"name": name},
		true,
		&resp,
	); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, missingf("anilist.UserByName", "no user named %q", name)
	}
	return resp.User, nil
}

// UserByID returns the AniList user with the given ID
func (c *AnilistClient) UserByID(ctx context.Context, id int) (*AnilistUser, error) {
	var resp struct {
		User *AnilistUser `json:"User"`
	}
	if err := c.query(
		ctx,
		"anilist.UserByID",
		anilistQueryUserByID,
		map[string]any{"id": id},
		true,
		&resp,
	); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, missingf("anilist.UserByID", "no user with id %d", id)
	}
	return resp.User, nil
}

// UserStatistics returns leveling/affinity statistics for the named user
func (c *AnilistClient) UserStatistics(ctx context.Context, name string) (UserStatistics, error) {
	u, err := c.UserByName(ctx, name)
	if err != nil {
		return UserStatistics{}, err
	}
	return u.Stats(), nil
}

// NextAiring returns the anime with the given ID along with its next
// airing episode. Media.NextAiringEpisode is nil when AniList doesn't know
// of another episode. Results aren't cached.
func (c *AnilistClient) NextAiring(ctx context.Context, mediaID int) (*Media, error) {
	var resp struct {
		Media *Media `json:"Media"`
	}
	if err := c.query(
		ctx,
		"anilist.NextAiring",
		anilistQueryNextAiring,
		map[string]any{"id": mediaID},
		false,
		&resp,
	); err != nil {
		return nil, err
	}
	if resp.Media == nil {
		return nil, missingf("anilist.NextAiring", "no anime with id %d", mediaID)
	}
	return resp.Media, nil
}

// RandomMedia returns the media on the given page when listing every media
// of mediaType by ID, one per page.
func (c *AnilistClient) RandomMedia(ctx context.Context, mediaType string, page int) (*Media, error) {
	var resp struct {
		Page struct {
			Media []Media `json:"media"`
		} `json:"Page"`
	}
	if err := c.query(
		ctx,
		"anilist.RandomMedia",
		anilistQueryRandomMedia,
		map[string]any{"page": page, "type": mediaType},
		true,
		&resp,
	); err != nil {
		return nil, err
	}
	if len(resp.Page.Media) == 0 {
		return nil, missingf("anilist.RandomMedia", "no %s on page %d", strings.ToLower(mediaType), page)
	}
	return &resp.Page.Media[0], nil
}

// pageHasMedia reports whether the given page (of one media each) holds a
// media, and whether AniList reports another page after it
func (c *AnilistClient) pageHasMedia(
	ctx context.Context,
	mediaType string,
	page int,
) (hasMedia bool, hasNext bool, err error) {
	data, _, err := c.exec(
		ctx,
		"anilist.LastPage",
		anilistQueryPageCheck,
		map[string]any{"page": page, "type": mediaType},
		false,
	)
	if err != nil {
		return false, false, err
	}
	pageResult := gjson.GetBytes(data, "Page")
	if !pageResult.Exists() {
		return false, false, newError(ErrKindDecode, "anilist.LastPage", errors.New("response has no page"))
	}
	return pageResult.Get("media.#").Int() > 0, pageResult.Get("pageInfo.hasNextPage").Bool(), nil
}

// LastPage finds the last page holding a media of mediaType (one media
// per page), starting the search from the previously known last page.
// It steps forward with doubling strides until it passes the end, then
// bisects.
func (c *AnilistClient) LastPage(ctx context.Context, mediaType string, from int) (int, error) {
	if from < 1 {
		from = 1
	}
	logger := contextLoggerOr(ctx, c.logger)

	// lo is always a page known to hold media (0 meaning none found),
	// hi a page known to be past the end
	var lo, hi int
	ok, hasNext, err := c.pageHasMedia(ctx, mediaType, from)
	if err != nil {
		return 0, err
	}
	switch {
	case ok && !hasNext:
		return from, nil
	case ok:
		lo = from
		for step := 1; ; step *= 2 {
			page := lo + step
			ok, hasNext, err = c.pageHasMedia(ctx, mediaType, page)
			if err != nil {
				return 0, err
			}
			if !ok {
				hi = page
				break
			}
			lo = page
			if !hasNext {
				return lo, nil
			}
		}
	default:
		lo, hi = 0, from
	}

	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		ok, _, err = c.pageHasMedia(ctx, mediaType, mid)
		if err != nil {
			return 0, err
		}
		if ok {
			lo = mid
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return 0, missingf("anilist.LastPage", "no %s found", strings.ToLower(mediaType))
	}
	logger.DebugContext(ctx, "found last page", "media_type", mediaType, "page", lo)
	return lo, nil
}
