package kasuki

import (
	"context"
	"errors"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"log/slog"
	"strings"
	"testing"
)

type mockAIClient struct {
	AIClient

	chatRequests  []openai.ChatCompletionRequest
	imageRequests []openai.ImageRequest
	emptyImages   bool
	err           error
}

func (m *mockAIClient) CreateChatCompletion(
	_ context.Context,
	req openai.ChatCompletionRequest,
) (openai.ChatCompletionResponse, error) {
	m.chatRequests = append(m.chatRequests, req)
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "42"}},
		},
	}, nil
}

func (m *mockAIClient) CreateImage(
	_ context.Context,
	req openai.ImageRequest,
) (openai.ImageResponse, error) {
	m.imageRequests = append(m.imageRequests, req)
	data := make([]openai.ImageResponseDataInner, req.N)
	for i := range data {
		if m.emptyImages {
			continue
		}
		data[i] = openai.ImageResponseDataInner{URL: "https://example.com/image.png"}
	}
	return openai.ImageResponse{Data: data}, nil
}

func (m *mockAIClient) CreateTranscription(
	_ context.Context,
	req openai.AudioRequest,
) (openai.AudioResponse, error) {
	return openai.AudioResponse{Text: "transcribed " + req.FilePath}, nil
}

func newTestAI(t testing.TB, token string) (*AI, *mockAIClient) {
	t.Helper()
	cfg := newTestConfig(t)
	cfg.AI.Token = token
	ai := newAI(cfg.AI, nil, slog.Default())
	mock := &mockAIClient{}
	ai.client = mock
	return ai, mock
}

func TestNormalizeBaseURL(t *testing.T) {
	testCases := map[string]string{
		"https://api.openai.com/v1":   "https://api.openai.com/v1",
		"https://api.openai.com/v1/":  "https://api.openai.com/v1",
		"http://localhost:11434":      "http://localhost:11434/v1",
		"http://localhost:11434/":     "http://localhost:11434/v1",
		" https://llm.example.com/ ":  "https://llm.example.com/v1",
		"https://llm.example.com/av1": "https://llm.example.com/av1",
	}
	for input, expected := range testCases {
		assert.Equal(t, expected, NormalizeBaseURL(input), "input %q", input)
	}
}

func TestAI_Disabled(t *testing.T) {
	ai, mock := newTestAI(t, "")
	assert.False(t, ai.Enabled())
	_, err := ai.Question(context.Background(), "hello?")
	assert.Equal(t, ErrKindMissing, errorKind(err))
	assert.Empty(t, mock.chatRequests)
}

func TestAI_Question(t *testing.T) {
	ai, mock := newTestAI(t, "sk-test")
	answer, err := ai.Question(context.Background(), "what is the answer?")
	require.NoError(t, err)
	assert.Equal(t, "42", answer)

	require.Len(t, mock.chatRequests, 1)
	req := mock.chatRequests[0]
	assert.Equal(t, DefaultAIChatModel, req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, "what is the answer?", req.Messages[1].Content)

	mock.err = errors.New("rate limited")
	_, err = ai.Question(context.Background(), "again?")
	assert.Equal(t, ErrKindWebRequest, errorKind(err))
}

func TestAI_Image(t *testing.T) {
	ai, mock := newTestAI(t, "sk-test")
	images, err := ai.Image(context.Background(), "a cat in a hat", 10)
	require.NoError(t, err)
	assert.Len(t, images, aiMaxImages)
	assert.Equal(t, DefaultAIImageSize, mock.imageRequests[0].Size)

	images, err = ai.Image(context.Background(), "a cat in a hat", 0)
	require.NoError(t, err)
	assert.Len(t, images, 1)
}

func TestAI_Transcript(t *testing.T) {
	ai, _ := newTestAI(t, "sk-test")
	text, err := ai.Transcript(context.Background(), "clip.mp3", strings.NewReader("audio"), "ja")
	require.NoError(t, err)
	assert.Equal(t, "transcribed clip.mp3", text)
}
