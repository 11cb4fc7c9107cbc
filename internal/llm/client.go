package llm

import (
	"context"
	"time"

	"punchAgent/internal/sanitizer"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

type Client struct {
	client    *openai.Client
	model     string
	logger    Logger
	sanitizer *sanitizer.DataSanitizer
	limiter   *rate.Limiter
}

func NewClient(apiKey, model string, requestsPerMinute int, logger Logger, san *sanitizer.DataSanitizer) *Client {
	return NewClientWithConfig(openai.DefaultConfig(apiKey), model, requestsPerMinute, logger, san)
}

// NewClientWithConfig позволяет подменить BaseURL (прокси, тесты).
func NewClientWithConfig(cfg openai.ClientConfig, model string, requestsPerMinute int, logger Logger, san *sanitizer.DataSanitizer) *Client {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 20
	}
	if model == "" {
		model = openai.GPT4o
	}
	if san == nil {
		san = sanitizer.New()
	}

	return &Client{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		logger:    logger,
		sanitizer: san,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute),
	}
}

// createChatCompletion ждет свободный слот лимитера и выполняет запрос.
func (c *Client) createChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	return c.client.CreateChatCompletion(ctx, req)
}
