package kasuki

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
)

// avatarColorSize is the avatar size downloaded to compute its color
const avatarColorSize = "128"

// approximateColor returns the average color of img as "#rrggbb".
// Fully transparent pixels are ignored.
func approximateColor(img image.Image) string {
	var r, g, b, n uint64
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			pr, pg, pb, pa := img.At(x, y).RGBA()
			if pa == 0 {
				continue
			}
			// RGBA returns alpha-premultiplied 16-bit values
			r += uint64(pr) * 0xffff / uint64(pa)
			g += uint64(pg) * 0xffff / uint64(pa)
			b += uint64(pb) * 0xffff / uint64(pa)
			n++
		}
	}
	if n == 0 {
		return "#000000"
	}
	return fmt.Sprintf("#%02x%02x%02x", (r/n)>>8, (g/n)>>8, (b/n)>>8)
}

// UserColor returns the average color of the user's avatar. The color is
// cached per user, and recomputed when the avatar changes.
func (b *Bot) UserColor(ctx context.Context, user *discordgo.User) (string, error) {
	const op = "UserColor"
	avatarURL := user.AvatarURL(avatarColorSize)
	logger := contextLoggerOr(ctx, b.logger)

	cached, err := b.store.GetUserApproximatedColor(ctx, user.ID)
	if err != nil {
		logger.WarnContext(ctx, "error getting cached user color", tint.Err(err))
	} else if cached != nil && cached.AvatarURL == avatarURL && cached.ColorHex != "" {
		return cached.ColorHex, nil
	}

	data, err := doRequest(ctx, b.httpClient, op, http.MethodGet, avatarURL, nil, nil)
	if err != nil {
		return "", err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", newError(ErrKindDecode, op, err)
	}
	hex := approximateColor(img)

	if err = b.store.SetUserApproximatedColor(
		ctx,
		UserApproximatedColor{
			DiscordUserID: user.ID,
			ColorHex:      hex,
			AvatarURL:     avatarURL,
			CachedImage:   base64.StdEncoding.EncodeToString(data),
		},
	); err != nil {
		logger.WarnContext(ctx, "error caching user color", tint.Err(err))
	}
	return hex, nil
}
