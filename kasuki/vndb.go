package kasuki

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/lmittmann/tint"
	"github.com/tidwall/gjson"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	vndbFieldsVN = "id,title,alttitle,olang,released,languages,platforms," +
		"image.url,image.sexual,length_minutes,rating,votecount,description," +
		"developers.name,tags.name,tags.rating,tags.spoiler"
	vndbFieldsCharacter = "id,name,original,aliases,description,image.url," +
		"image.sexual,blood_type,height,weight,age,birthday,sex,vns.title"
	vndbFieldsProducer = "id,name,original,aliases,lang,type,description"
	vndbFieldsUser     = "lengthvotes,lengthvotes_sum"

	// vndbMaxImageSexual is the maximum image.sexual rating shown in
	// embeds. Images rated above it are dropped.
	vndbMaxImageSexual = 1.0
)

// VNDBClient queries the VNDB (kana) REST API. Responses are memoized in a
// RemoteCache, keyed by method, path and body.
type VNDBClient struct {
	endpoint string
	client   *http.Client
	cache    *RemoteCache
	logger   *slog.Logger
}

type vndbQuery struct {
	Filters []any  `json:"filters"`
	Fields  string `json:"fields"`
	Results int    `json:"results,omitempty"`
}

func NewVNDBClient(
	config *VNDBConfig,
	httpClient *http.Client,
	cache *RemoteCache,
	logger *slog.Logger,
) *VNDBClient {
	if httpClient == nil {
		httpClient = newHTTPClient(DefaultHTTPTimeout)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VNDBClient{
		endpoint: strings.TrimRight(config.Endpoint, "/"),
		client:   httpClient,
		cache:    cache,
		logger:   logger.With(loggerNameKey, "vndb"),
	}
}

// Raw sends a request to the given API path (ex: "/vn") and returns the
// response body, from the cache if available.
func (c *VNDBClient) Raw(
	ctx context.Context,
	method string,
	path string,
	body []byte,
) (string, error) {
	key := method + " " + path + " " + string(body)
	fetch := func(fctx context.Context) (string, error) {
		start := time.Now()
		var reqBody any
		if body != nil {
			reqBody = body
		}
		data, err := doRequest(fctx, c.client, "vndb"+path, method, c.endpoint+path, reqBody, nil)
		logger := contextLoggerOr(ctx, c.logger)
		if err != nil {
			logger.WarnContext(ctx, "vndb request failed", tint.Err(err), "path", path)
			return "", err
		}
		logger.DebugContext(ctx, "vndb request completed", "path", path, "elapsed", time.Since(start))
		return string(data), nil
	}
	if c.cache == nil {
		return fetch(ctx)
	}
	return c.cache.GetOrFetch(ctx, key, fetch)
}

func (c *VNDBClient) search(
	ctx context.Context,
	op string,
	path string,
	filters []any,
	fields string,
	dst any,
) error {
	body, err := json.Marshal(vndbQuery{Filters: filters, Fields: fields, Results: 1})
	if err != nil {
		return newError(ErrKindDecode, op, err)
	}
	raw, err := c.Raw(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	results := gjson.Get(raw, "results")
	if !results.IsArray() {
		return newError(ErrKindDecode, op, errors.New("response has no results"))
	}
	if len(results.Array()) == 0 {
		return missingf(op, "no results")
	}
	return decodeJSON(op, []byte(results.Array()[0].Raw), dst)
}

// searchFilter returns a filter matching either the VNDB id (ex: "v17")
// or a search string
func searchFilter(query string, idPrefix byte) []any {
	q := strings.TrimSpace(query)
	if len(q) > 1 && q[0] == idPrefix && isDigits(q[1:]) {
		return []any{"id", "=", q}
	}
	return []any{"search", "=", q}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type VNDBImage struct {
	URL    string  `json:"url"`
	Sexual float64 `json:"sexual"`
}

// SafeURL returns the image URL, or an empty string if the image is
// rated as explicit
func (i *VNDBImage) SafeURL() string {
	if i == nil || i.Sexual > vndbMaxImageSexual {
		return ""
	}
	return i.URL
}

type VN struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	AltTitle      string     `json:"alttitle"`
	OriginalLang  string     `json:"olang"`
	Released      string     `json:"released"`
	Languages     []string   `json:"languages"`
	Platforms     []string   `json:"platforms"`
	Image         *VNDBImage `json:"image"`
	LengthMinutes int        `json:"length_minutes"`
	Rating        float64    `json:"rating"`
	VoteCount     int        `json:"votecount"`
	Description   string     `json:"description"`
	Developers    []struct {
		Name string `json:"name"`
	} `json:"developers"`
	Tags []struct {
		Name    string  `json:"name"`
		Rating  float64 `json:"rating"`
		Spoiler int     `json:"spoiler"`
	} `json:"tags"`
}

func (v VN) URL() string {
	return "https://vndb.org/" + v.ID
}

type VNCharacter struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Original    string     `json:"original"`
	Aliases     []string   `json:"aliases"`
	Description string     `json:"description"`
	Image       *VNDBImage `json:"image"`
	BloodType   string     `json:"blood_type"`
	Height      int        `json:"height"`
	Weight      int        `json:"weight"`
	Age         int        `json:"age"`
	Birthday    []int      `json:"birthday"`
	Sex         []string   `json:"sex"`
	VNs         []struct {
		Title string `json:"title"`
	} `json:"vns"`
}

func (c VNCharacter) URL() string {
	return "https://vndb.org/" + c.ID
}

type VNProducer struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Original    string   `json:"original"`
	Aliases     []string `json:"aliases"`
	Lang        string   `json:"lang"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
}

func (p VNProducer) URL() string {
	return "https://vndb.org/" + p.ID
}

type VNUser struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	LengthVotes    int    `json:"lengthvotes"`
	LengthVotesSum int    `json:"lengthvotes_sum"`
}

func (u VNUser) URL() string {
	return "https://vndb.org/" + u.ID
}

type VNStats struct {
	Chars     int `json:"chars"`
	Producers int `json:"producers"`
	Releases  int `json:"releases"`
	Staff     int `json:"staff"`
	Tags      int `json:"tags"`
	Traits    int `json:"traits"`
	VN        int `json:"vn"`
}

// SearchVN returns the best visual novel match for query, which may be
// a search string or a VNDB id
func (c *VNDBClient) SearchVN(ctx context.Context, query string) (*VN, error) {
	var vn VN
	if err := c.search(ctx, "vndb.SearchVN", "/vn", searchFilter(query, 'v'), vndbFieldsVN, &vn); err != nil {
		return nil, err
	}
	return &vn, nil
}

// SearchCharacter returns the best character match for query
func (c *VNDBClient) SearchCharacter(ctx context.Context, query string) (*VNCharacter, error) {
	var ch VNCharacter
	if err := c.search(
		ctx,
		"vndb.SearchCharacter",
		"/character",
		searchFilter(query, 'c'),
		vndbFieldsCharacter,
		&ch,
	); err != nil {
		return nil, err
	}
	return &ch, nil
}

// SearchProducer returns the best producer match for query
func (c *VNDBClient) SearchProducer(ctx context.Context, query string) (*VNProducer, error) {
	var p VNProducer
	if err := c.search(
		ctx,
		"vndb.SearchProducer",
		"/producer",
		searchFilter(query, 'p'),
		vndbFieldsProducer,
		&p,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// User returns the VNDB user with the given username or id
func (c *VNDBClient) User(ctx context.Context, username string) (*VNUser, error) {
	q := url.Values{}
	q.Set("q", username)
	q.Set("fields", vndbFieldsUser)
	raw, err := c.Raw(ctx, http.MethodGet, "/user?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	// the response is keyed by the query, with null for unknown users
	var result gjson.Result
	gjson.Parse(raw).ForEach(
		func(_, value gjson.Result) bool {
			result = value
			return false
		},
	)
	if !result.Exists() || result.Type == gjson.Null {
		return nil, missingf("vndb.User", "no user %q", username)
	}
	var u VNUser
	if err = decodeJSON("vndb.User", []byte(result.Raw), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Stats returns database-wide VNDB statistics
func (c *VNDBClient) Stats(ctx context.Context) (*VNStats, error) {
	raw, err := c.Raw(ctx, http.MethodGet, "/stats", nil)
	if err != nil {
		return nil, err
	}
	var stats VNStats
	if err = decodeJSON("vndb.Stats", []byte(raw), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
