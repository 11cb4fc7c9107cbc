package page

import (
	"errors"
	"fmt"
	"strings"

	"punchAgent/internal/browser"
	"punchAgent/internal/punch"
)

var ErrButtonNotFound = errors.New("кнопка не найдена")

// Strategy - каким правилом найдена кнопка. Меньше - строже.
type Strategy int

const (
	StrategyExact Strategy = iota + 1
	StrategyPunchWord
	StrategyWord
	StrategyLLM
)

func (s Strategy) String() string {
	switch s {
	case StrategyExact:
		return "exact"
	case StrategyPunchWord:
		return "punch+word"
	case StrategyWord:
		return "word"
	case StrategyLLM:
		return "llm"
	default:
		return "unknown"
	}
}

type Match struct {
	Button   browser.Button
	Strategy Strategy
}

// ButtonNotFoundError перечисляет все тексты кнопок, которые были на странице.
type ButtonNotFoundError struct {
	Label    string
	Observed []string
}

func (e *ButtonNotFoundError) Error() string {
	quoted := make([]string, len(e.Observed))
	for i, label := range e.Observed {
		quoted[i] = fmt.Sprintf("%q", label)
	}
	return fmt.Sprintf("кнопка %q не найдена, кнопки на странице: [%s]", e.Label, strings.Join(quoted, ", "))
}

func (e *ButtonNotFoundError) Unwrap() error {
	return ErrButtonNotFound
}

// Locate применяет три правила по очереди:
//  1. точное совпадение текста с меткой;
//  2. текст содержит "Punch" и слово действия;
//  3. текст содержит слово действия без учета регистра.
//
// Побеждает первая кнопка в порядке документа для самого строгого правила.
func Locate(buttons []browser.Button, action punch.Action) (*Match, error) {
	label := action.Label()
	word := action.Word()

	rules := []struct {
		strategy Strategy
		match    func(text string) bool
	}{
		{StrategyExact, func(text string) bool {
			return text == label
		}},
		{StrategyPunchWord, func(text string) bool {
			return strings.Contains(text, "Punch") && strings.Contains(text, word)
		}},
		{StrategyWord, func(text string) bool {
			return strings.Contains(strings.ToLower(text), strings.ToLower(word))
		}},
	}

	for _, rule := range rules {
		for _, btn := range buttons {
			if rule.match(strings.TrimSpace(btn.Text)) {
				return &Match{Button: btn, Strategy: rule.strategy}, nil
			}
		}
	}

	observed := make([]string, len(buttons))
	for i, btn := range buttons {
		observed[i] = strings.TrimSpace(btn.Text)
	}
	return nil, &ButtonNotFoundError{Label: label, Observed: observed}
}
