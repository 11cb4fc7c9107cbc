package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const pickSystemPrompt = "You match buttons of a timesheet web application to the action the user wants to perform. Answer only with JSON."

// PickButton просит модель выбрать кнопку для действия label.
// Ответ вне диапазона или index = -1 возвращает ErrNoChoice.
func (c *Client) PickButton(ctx context.Context, runID, label string, labels []string) (*ButtonChoice, error) {
	if len(labels) == 0 {
		return nil, ErrNoChoice
	}

	prompt := buildPickPrompt(label, c.sanitizer.Labels(labels))

	resp, err := c.createChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: pickSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
		MaxTokens:   200,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса к LLM: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from LLM")
	}

	content := resp.Choices[0].Message.Content
	if c.logger != nil {
		_ = c.logger.LogLLMRequest(ctx, runID, openai.ChatMessageRoleUser, prompt, content, c.model, resp.Usage.TotalTokens)
	}

	return parseChoice(content, len(labels))
}

func buildPickPrompt(label string, labels []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The user wants to press the %q button. Buttons on the page, in document order:\n", label)
	for i, l := range labels {
		fmt.Fprintf(&b, "%d: %q\n", i, l)
	}
	b.WriteString(`Pick the button that performs this action. If none does, use -1.
Respond in JSON format:
{"index": <number>, "reasoning": "short explanation"}`)
	return b.String()
}

func parseChoice(content string, count int) (*ButtonChoice, error) {
	var choice ButtonChoice
	if err := json.Unmarshal([]byte(content), &choice); err != nil {
		return nil, fmt.Errorf("неверный ответ LLM: %w", err)
	}
	if choice.Index < 0 || choice.Index >= count {
		return nil, fmt.Errorf("%w: index %d", ErrNoChoice, choice.Index)
	}
	return &choice, nil
}
