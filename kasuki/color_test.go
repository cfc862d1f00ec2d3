package kasuki

import (
	"bytes"
	"context"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func solidImage(c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestApproximateColor(t *testing.T) {
	assert.Equal(t, "#ff0000", approximateColor(solidImage(color.RGBA{R: 255, A: 255})))
	assert.Equal(t, "#000000", approximateColor(solidImage(color.RGBA{})), "transparent images are black")

	// half red, half blue
	img := solidImage(color.RGBA{R: 255, A: 255})
	for y := 2; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{B: 255, A: 255})
		}
	}
	assert.Equal(t, "#7f007f", approximateColor(img))

	// transparent pixels are skipped
	img = solidImage(color.RGBA{G: 255, A: 255})
	img.Set(0, 0, color.RGBA{})
	assert.Equal(t, "#00ff00", approximateColor(img))
}

func TestBot_UserColor(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidImage(color.RGBA{R: 255, G: 128, A: 255})))

	var requests atomic.Int64
	server := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				requests.Add(1)
				w.Header().Set("Content-Type", "image/png")
				_, _ = w.Write(buf.Bytes())
			},
		),
	)
	t.Cleanup(server.Close)

	bot, _ := newTestBot(t, nil)
	// route discord's CDN to the test server
	bot.httpClient = &http.Client{
		Transport: rewriteTransport{target: server.URL, base: http.DefaultTransport},
	}

	user := &discordgo.User{ID: "42", Avatar: "abc"}
	hex, err := bot.UserColor(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "#ff8000", hex)

	// cached until the avatar changes
	hex, err = bot.UserColor(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "#ff8000", hex)
	assert.Equal(t, int64(1), requests.Load())

	user.Avatar = "def"
	_, err = bot.UserColor(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(2), requests.Load())

	cached, err := bot.store.GetUserApproximatedColor(ctx, "42")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, user.AvatarURL(avatarColorSize), cached.AvatarURL)
	assert.NotEmpty(t, cached.CachedImage)
}

// rewriteTransport sends every request to target, keeping the path
type rewriteTransport struct {
	target string
	base   http.RoundTripper
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	u, err := r.URL.Parse(rt.target + req.URL.Path)
	if err != nil {
		return nil, err
	}
	r.URL = u
	r.Host = u.Host
	return rt.base.RoundTrip(r)
}
