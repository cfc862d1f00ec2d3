package kasuki

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"github.com/bwmarrin/discordgo"
	"net/http"
	"strings"
)

// aiMaxAttachmentSize is the largest file accepted for transcription
// and translation
const aiMaxAttachmentSize = 25 * 1024 * 1024

func aiQuestionCommand(ctx context.Context, b *Bot, c *commandContext) error {
	if !b.ai.Enabled() {
		c.replyError(ctx, c.t(msgAIDisabled))
		return nil
	}
	prompt := c.str(optionPrompt)
	answer, err := b.ai.Question(ctx, prompt)
	if err != nil {
		return err
	}
	e := newEmbed().
		title(c.t(msgAIAnswerTitle)).
		description(answer).
		footer(prompt)
	return c.reply(ctx, e)
}

func aiImageCommand(ctx context.Context, b *Bot, c *commandContext) error {
	if !b.ai.Enabled() {
		c.replyError(ctx, c.t(msgAIDisabled))
		return nil
	}
	prompt := c.str(optionPrompt)
	n := 1
	if v, ok := c.integer(optionN); ok {
		n = int(v)
	}
	images, err := b.ai.Image(ctx, prompt, n)
	if err != nil {
		return err
	}

	embeds := make([]*embed, 0, len(images))
	var files []*discordgo.File
	for idx, img := range images {
		e := newEmbed().title(c.t(msgAIImageTitle)).footer(prompt)
		switch {
		case img.URL != "":
			e.image(img.URL)
		case img.B64JSON != "":
			data, decodeErr := base64.StdEncoding.DecodeString(img.B64JSON)
			if decodeErr != nil {
				return newError(ErrKindDecode, "aiImageCommand", decodeErr)
			}
			name := fmt.Sprintf("image_%d.png", idx+1)
			files = append(
				files,
				&discordgo.File{Name: name, ContentType: "image/png", Reader: bytes.NewReader(data)},
			)
			e.image("attachment://" + name)
		default:
			continue
		}
		if img.RevisedPrompt != "" {
			e.description(img.RevisedPrompt)
		}
		embeds = append(embeds, e)
	}
	if len(embeds) == 0 {
		contextLoggerOr(ctx, nil).WarnContext(ctx, "image response had no usable images", "count", len(images))
		c.replyError(ctx, c.t(msgErrorRequest))
		return nil
	}
	return c.send(ctx, embeds, files)
}

// downloadAttachment validates that the attachment is an audio/video file
// small enough to upload, and downloads it
func (b *Bot) downloadAttachment(
	ctx context.Context,
	a *discordgo.MessageAttachment,
) ([]byte, error) {
	const op = "downloadAttachment"
	if a == nil {
		return nil, missingf(op, "no attachment")
	}
	if !strings.HasPrefix(a.ContentType, "audio/") && !strings.HasPrefix(a.ContentType, "video/") {
		return nil, missingf(op, "unsupported content type %q", a.ContentType)
	}
	if a.Size > aiMaxAttachmentSize {
		return nil, missingf(op, "attachment is too large (%d bytes)", a.Size)
	}
	return doRequest(ctx, b.httpClient, op, http.MethodGet, a.URL, nil, nil)
}

func aiTranscriptCommand(ctx context.Context, b *Bot, c *commandContext) error {
	return aiAudioCommand(ctx, b, c, false)
}

func aiTranslationCommand(ctx context.Context, b *Bot, c *commandContext) error {
	return aiAudioCommand(ctx, b, c, true)
}

func aiAudioCommand(ctx context.Context, b *Bot, c *commandContext, translate bool) error {
	if !b.ai.Enabled() {
		c.replyError(ctx, c.t(msgAIDisabled))
		return nil
	}
	a := c.attachment(optionFile)
	data, err := b.downloadAttachment(ctx, a)
	if err != nil {
		if errorKind(err) == ErrKindMissing {
			c.replyError(ctx, c.t(msgAIAttachment))
			return nil
		}
		return err
	}

	var text, title string
	if translate {
		title = c.t(msgAITranslation)
		text, err = b.ai.Translation(ctx, a.Filename, bytes.NewReader(data))
	} else {
		title = c.t(msgAITranscript)
		text, err = b.ai.Transcript(ctx, a.Filename, bytes.NewReader(data), c.str(optionLang))
	}
	if err != nil {
		return err
	}
	e := newEmbed().
		title(title).
		description(text).
		footer(a.Filename)
	return c.reply(ctx, e)
}
