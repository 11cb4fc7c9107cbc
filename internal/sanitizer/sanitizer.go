// Package sanitizer вычищает учетные данные из текста, который попадает в логи,
// историю запусков и запросы к LLM.
package sanitizer

import (
	"sort"
	"strings"
)

const filtered = "[FILTERED]"

type Rule interface {
	Sanitize(text string) string
}

type DataSanitizer struct {
	rules []Rule
}

// New собирает правила. secrets - точные значения (логин, пароль, ключ API),
// которые маскируются в любом месте текста.
func New(secrets ...string) *DataSanitizer {
	return &DataSanitizer{
		rules: []Rule{
			newSecretSanitizer(secrets),
			&PasswordSanitizer{},
			&TokenSanitizer{},
			&CookieSanitizer{},
			&EmailSanitizer{},
		},
	}
}

func (s *DataSanitizer) Sanitize(text string) string {
	if text == "" {
		return text
	}

	result := text
	for _, rule := range s.rules {
		result = rule.Sanitize(result)
	}
	return result
}

// Error возвращает очищенный текст ошибки, пустую строку для nil.
func (s *DataSanitizer) Error(err error) string {
	if err == nil {
		return ""
	}
	return s.Sanitize(err.Error())
}

// Labels очищает тексты кнопок перед отправкой в LLM.
func (s *DataSanitizer) Labels(labels []string) []string {
	out := make([]string, len(labels))
	for i, label := range labels {
		out[i] = s.Sanitize(label)
	}
	return out
}

// SecretSanitizer маскирует заранее известные значения.
type SecretSanitizer struct {
	secrets []string
}

func newSecretSanitizer(secrets []string) *SecretSanitizer {
	kept := make([]string, 0, len(secrets))
	for _, secret := range secrets {
		// Слишком короткие значения дают ложные срабатывания.
		if len(strings.TrimSpace(secret)) >= 3 {
			kept = append(kept, secret)
		}
	}
	// Длинные первыми, чтобы пароль, содержащий логин, маскировался целиком.
	sort.Slice(kept, func(i, j int) bool { return len(kept[i]) > len(kept[j]) })
	return &SecretSanitizer{secrets: kept}
}

func (s *SecretSanitizer) Sanitize(text string) string {
	for _, secret := range s.secrets {
		text = strings.ReplaceAll(text, secret, filtered)
	}
	return text
}
