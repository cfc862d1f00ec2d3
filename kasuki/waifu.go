package kasuki

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"
)

var (
	waifuSFWCategories = []string{
		"waifu", "neko", "shinobu", "megumin", "bully", "cuddle", "cry",
		"hug", "awoo", "kiss", "lick", "pat", "smug", "bonk", "yeet",
		"blush", "smile", "wave", "highfive", "handhold", "nom", "bite",
		"glomp", "slap", "kill", "kick", "happy", "wink", "poke", "dance",
		"cringe",
	}
	waifuNSFWCategories = []string{"waifu", "neko", "trap", "blowjob"}
)

// WaifuClient fetches random images from waifu.pics. Responses are random,
// so they aren't cached.
type WaifuClient struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func NewWaifuClient(config *WaifuConfig, httpClient *http.Client, logger *slog.Logger) *WaifuClient {
	if httpClient == nil {
		httpClient = newHTTPClient(DefaultHTTPTimeout)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WaifuClient{
		endpoint: strings.TrimRight(config.Endpoint, "/"),
		client:   httpClient,
		logger:   logger.With(loggerNameKey, "waifu"),
	}
}

// WaifuCategories returns the categories available for the given rating
func WaifuCategories(nsfw bool) []string {
	if nsfw {
		return waifuNSFWCategories
	}
	return waifuSFWCategories
}

// RandomImage returns the URL of a random image in category
func (c *WaifuClient) RandomImage(ctx context.Context, category string, nsfw bool) (string, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if !slices.Contains(WaifuCategories(nsfw), category) {
		return "", missingf("waifu.RandomImage", "unknown category %q", category)
	}
	rating := "sfw"
	if nsfw {
		rating = "nsfw"
	}
	data, err := doRequest(
		ctx,
		c.client,
		"waifu.RandomImage",
		http.MethodGet,
		c.endpoint+"/"+rating+"/"+category,
		nil,
		nil,
	)
	if err != nil {
		return "", err
	}
	var resp struct {
		URL string `json:"url"`
	}
	if err = decodeJSON("waifu.RandomImage", data, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", missingf("waifu.RandomImage", "response has no url")
	}
	return resp.URL, nil
}
