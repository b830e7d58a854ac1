package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient calls a Chat Completions endpoint. Any OpenAI-compatible server
// works, including Ollama's /v1 API.
type OpenAIClient struct {
	client      *openai.Client
	temperature float64
	tokens      TokenCounter
}

// OpenAIOption customizes an OpenAIClient.
type OpenAIOption func(*OpenAIClient)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) OpenAIOption {
	return func(c *OpenAIClient) { c.temperature = t }
}

// WithTokenCounter sets the counter used when the server omits usage.
func WithTokenCounter(tc TokenCounter) OpenAIOption {
	return func(c *OpenAIClient) { c.tokens = tc }
}

const defaultChatTemperature = 0.2

// NewOpenAIClient builds a client against baseURL. An empty baseURL means
// api.openai.com.
func NewOpenAIClient(apiKey, baseURL string, opts ...OpenAIOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	// Retries are scheduled by the pipeline, under its own timeout.
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	cli := openai.NewClient(reqOpts...)
	c := &OpenAIClient{
		client:      &cli,
		temperature: defaultChatTemperature,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate sends req.Prompt as a single user message. Transport and API
// errors are returned as-is.
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (Completion, error) {
	if c == nil || c.client == nil {
		return Completion{}, fmt.Errorf("nil openai client")
	}
	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    buildMessages(req.Prompt),
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return Completion{}, err
	}
	elapsed := time.Since(start)
	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf("openai: no choices returned")
	}
	text := resp.Choices[0].Message.Content

	tel := Telemetry{
		Duration:       elapsed,
		PromptTokens:   int(resp.Usage.PromptTokens),
		ResponseTokens: int(resp.Usage.CompletionTokens),
		CreatedAt:      time.Unix(resp.Created, 0).UTC(),
	}
	if resp.Created == 0 {
		tel.CreatedAt = start.UTC()
	}
	if c.tokens != nil {
		if tel.PromptTokens == 0 {
			tel.PromptTokens = c.tokens.Count(req.Prompt)
		}
		if tel.ResponseTokens == 0 {
			tel.ResponseTokens = c.tokens.Count(text)
		}
	}
	return Completion{Text: text, Telemetry: tel}, nil
}

func buildMessages(user string) []openai.ChatCompletionMessageParamUnion {
	return []openai.ChatCompletionMessageParamUnion{
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfString: openai.String(user),
				},
			},
		},
	}
}
