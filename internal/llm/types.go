// Package llm - запасной способ найти кнопку отметки через OpenAI,
// когда эвристики по тексту не сработали.
package llm

import (
	"context"
	"errors"
)

// ErrNoChoice - модель не выбрала ни одну из предложенных кнопок.
var ErrNoChoice = errors.New("LLM не выбрала кнопку")

// Logger сохраняет запросы к LLM (в истории запусков).
type Logger interface {
	LogLLMRequest(ctx context.Context, runID, role, promptText, responseText, model string, tokensUsed int) error
}

// ButtonPicker выбирает кнопку по списку текстов.
type ButtonPicker interface {
	PickButton(ctx context.Context, runID, label string, labels []string) (*ButtonChoice, error)
}

// ButtonChoice - ответ модели. Index указывает в переданный список labels.
type ButtonChoice struct {
	Index     int    `json:"index"`
	Reasoning string `json:"reasoning"`
}
