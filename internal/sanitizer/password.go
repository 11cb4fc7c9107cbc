package sanitizer

import "regexp"

var passwordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(password|пароль|passwd|pwd)(\s*[:=]\s*)["']?[^"'\s]{3,}["']?`),
	regexp.MustCompile(`(?i)(<input[^>]*type=["']password["'][^>]*value=)["'][^"']+["']`),
}

type PasswordSanitizer struct{}

func (s *PasswordSanitizer) Sanitize(text string) string {
	for _, pattern := range passwordPatterns {
		text = pattern.ReplaceAllString(text, `${1}${2}`+filtered)
	}
	return text
}
