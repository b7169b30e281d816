package sentiment

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

const systemPrompt = "You rate the sentiment of social media posts. " +
	"Reply with a single number between -1 (very negative) and 1 (very positive) and nothing else."

// maxPromptRunes bounds the post text sent upstream
const maxPromptRunes = 2000

// OpenAIScorer rates post sentiment with a chat completion model
type OpenAIScorer struct {
	client  openai.Client
	model   openai.ChatModel
	timeout time.Duration
	log     *logger.Logger
}

// NewOpenAIScorer creates a scorer using the official SDK. Extra options are
// passed to the client (base URL, retries).
func NewOpenAIScorer(apiKey, model string, timeout time.Duration, log *logger.Logger, opts ...option.RequestOption) (*OpenAIScorer, error) {
	if apiKey == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "openai API key is required")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = logger.Get()
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)

	return &OpenAIScorer{
		client:  client,
		model:   openai.ChatModel(model),
		timeout: timeout,
		log:     log.With("component", "openai_sentiment", "model", model),
	}, nil
}

// ScoreText asks the model for a score and clamps it to [-1, 1]
func (s *OpenAIScorer) ScoreText(ctx context.Context, text string) (float64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	if r := []rune(text); len(r) > maxPromptRunes {
		text = string(r[:maxPromptRunes])
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(text),
		},
		Model:       s.model,
		Temperature: openai.Float(0),
	})
	if err != nil {
		return 0, errors.Wrap(err, "openai sentiment call failed")
	}
	if len(resp.Choices) == 0 {
		return 0, errors.Wrapf(errors.ErrInternal, "no completion choices returned")
	}

	score, err := parseScore(resp.Choices[0].Message.Content)
	if err != nil {
		return 0, err
	}

	s.log.Debugw("Scored post sentiment",
		"text_length", len(text),
		"score", score,
		"tokens_used", resp.Usage.TotalTokens,
	)
	return score, nil
}

func parseScore(content string) (float64, error) {
	raw := strings.TrimSpace(content)
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrInternal, "unparseable sentiment %q", raw)
	}
	if score < -1 {
		score = -1
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}
