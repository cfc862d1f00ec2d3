package kasuki

import (
	"context"
	"errors"
	"github.com/lmittmann/tint"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	aiSystemPrompt = "You are a helpful assistant in a Discord server. " +
		"Keep answers concise, and format them with Discord markdown."

	// aiMaxImages caps how many images can be generated per request
	aiMaxImages = 4
)

var errAIDisabled = errors.New("no AI token configured")

// AIClient defines the subset of the go-openai client used by [AI], to
// enable testing/mocking
type AIClient interface {
	CreateChatCompletion(
		ctx context.Context,
		request openai.ChatCompletionRequest,
	) (response openai.ChatCompletionResponse, err error)

	CreateImage(
		ctx context.Context,
		request openai.ImageRequest,
	) (response openai.ImageResponse, err error)

	CreateTranscription(
		ctx context.Context,
		request openai.AudioRequest,
	) (response openai.AudioResponse, err error)

	CreateTranslation(
		ctx context.Context,
		request openai.AudioRequest,
	) (response openai.AudioResponse, err error)
}

// AI sends /ai requests to an OpenAI-compatible API
type AI struct {
	client         AIClient
	config         *AIConfig
	logger         *slog.Logger
	requestLimiter *rate.Limiter
}

// GeneratedImage is a single generated image, either as a URL or as
// base64-encoded data, depending on the endpoint
type GeneratedImage struct {
	URL           string
	B64JSON       string
	RevisedPrompt string
}

// NormalizeBaseURL returns baseURL with '/v1' appended, unless it already
// ends with 'v1' or 'v1/'. A trailing slash is removed.
func NormalizeBaseURL(baseURL string) string {
	u := strings.TrimSpace(baseURL)
	if strings.HasSuffix(u, "v1") || strings.HasSuffix(u, "v1/") {
		return strings.TrimSuffix(u, "/")
	}
	return strings.TrimSuffix(u, "/") + "/v1"
}

func newAI(config *AIConfig, httpClient *http.Client, logger *slog.Logger) *AI {
	if logger == nil {
		logger = slog.Default()
	}
	clientCfg := openai.DefaultConfig(config.Token)
	clientCfg.BaseURL = NormalizeBaseURL(config.BaseURL)
	if httpClient != nil {
		clientCfg.HTTPClient = httpClient
	}

	rpm := config.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultAIRequestsPerMinute
	}
	return &AI{
		client:         openai.NewClientWithConfig(clientCfg),
		config:         config,
		logger:         logger.With(loggerNameKey, "openai"),
		requestLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}
}

// Enabled reports whether an API token is configured
func (a *AI) Enabled() bool {
	return a != nil && a.config.Token != ""
}

func (a *AI) wait(ctx context.Context, op string) error {
	if !a.Enabled() {
		return missingf(op, "%s", errAIDisabled)
	}
	if err := a.requestLimiter.Wait(ctx); err != nil {
		return newError(ErrKindWebRequest, op, err)
	}
	return nil
}

// Question sends prompt as a chat completion and returns the answer
func (a *AI) Question(ctx context.Context, prompt string) (string, error) {
	const op = "ai.Question"
	if err := a.wait(ctx, op); err != nil {
		return "", err
	}
	logger := contextLoggerOr(ctx, a.logger)
	start := time.Now()
	resp, err := a.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: a.config.ChatModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: aiSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		},
	)
	if err != nil {
		logger.ErrorContext(ctx, "error creating chat completion", tint.Err(err))
		return "", newError(ErrKindWebRequest, op, err)
	}
	logger.InfoContext(
		ctx,
		"created chat completion",
		"elapsed", time.Since(start),
		"usage", resp.Usage,
	)
	if len(resp.Choices) == 0 {
		return "", newError(ErrKindDecode, op, errors.New("response has no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

// Image generates n images from prompt
func (a *AI) Image(ctx context.Context, prompt string, n int) ([]GeneratedImage, error) {
	const op = "ai.Image"
	if err := a.wait(ctx, op); err != nil {
		return nil, err
	}
	n = max(1, min(n, aiMaxImages))
	logger := contextLoggerOr(ctx, a.logger)
	resp, err := a.client.CreateImage(
		ctx,
		openai.ImageRequest{
			Prompt: prompt,
			Model:  a.config.ImageModel,
			N:      n,
			Size:   a.config.ImageSize,
		},
	)
	if err != nil {
		logger.ErrorContext(ctx, "error creating image", tint.Err(err))
		return nil, newError(ErrKindWebRequest, op, err)
	}
	images := make([]GeneratedImage, 0, len(resp.Data))
	for _, d := range resp.Data {
		images = append(
			images,
			GeneratedImage{URL: d.URL, B64JSON: d.B64JSON, RevisedPrompt: d.RevisedPrompt},
		)
	}
	if len(images) == 0 {
		return nil, newError(ErrKindDecode, op, errors.New("response has no images"))
	}
	logger.InfoContext(ctx, "created images", "count", len(images))
	return images, nil
}

// Transcript transcribes the given audio/video file. lang is an optional
// ISO-639-1 hint.
func (a *AI) Transcript(ctx context.Context, filename string, r io.Reader, lang string) (string, error) {
	const op = "ai.Transcript"
	if err := a.wait(ctx, op); err != nil {
		return "", err
	}
	resp, err := a.client.CreateTranscription(
		ctx,
		openai.AudioRequest{
			Model:    a.config.TranscriptModel,
			FilePath: filename,
			Reader:   r,
			Language: lang,
			Format:   openai.AudioResponseFormatJSON,
		},
	)
	if err != nil {
		contextLoggerOr(ctx, a.logger).ErrorContext(ctx, "error creating transcription", tint.Err(err))
		return "", newError(ErrKindWebRequest, op, err)
	}
	return resp.Text, nil
}

// Translation translates the given audio/video file to english text
func (a *AI) Translation(ctx context.Context, filename string, r io.Reader) (string, error) {
	const op = "ai.Translation"
	if err := a.wait(ctx, op); err != nil {
		return "", err
	}
	resp, err := a.client.CreateTranslation(
		ctx,
		openai.AudioRequest{
			Model:    a.config.TranscriptModel,
			FilePath: filename,
			Reader:   r,
			Format:   openai.AudioResponseFormatJSON,
		},
	)
	if err != nil {
		contextLoggerOr(ctx, a.logger).ErrorContext(ctx, "error creating translation", tint.Err(err))
		return "", newError(ErrKindWebRequest, op, err)
	}
	return resp.Text, nil
}
