package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseSnapshot строит снимок страницы из HTML документа.
// Используется драйвером chromedp, который забирает OuterHTML целиком.
// Видимость определяется по атрибутам, без раскладки страницы.
func ParseSnapshot(url, html string) (*PageSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора HTML: %w", err)
	}

	body := collapseSpaces(doc.Find("body").Text())
	if r := []rune(body); len(r) > BodyTextLimit {
		body = string(r[:BodyTextLimit])
	}

	return &PageSnapshot{
		URL:      url,
		Title:    strings.TrimSpace(doc.Find("title").First().Text()),
		BodyText: body,
		Buttons:  buttons(doc),
	}, nil
}

// BodyText возвращает полный текст body.
func BodyText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("ошибка разбора HTML: %w", err)
	}
	return doc.Find("body").Text(), nil
}

func buttons(doc *goquery.Document) []Button {
	result := make([]Button, 0)
	// Содержимое <template> не входит в document.querySelectorAll, иначе индексы разъедутся.
	doc.Find("button").Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("template").Length() > 0 {
			return
		}
		class, _ := s.Attr("class")
		result = append(result, Button{
			Index:     len(result),
			Text:      strings.TrimSpace(s.Text()),
			ClassName: class,
			Visible:   !hidden(s),
		})
	})
	return result
}

func hidden(s *goquery.Selection) bool {
	for sel := s; sel.Length() > 0; sel = sel.Parent() {
		if _, ok := sel.Attr("hidden"); ok {
			return true
		}
		if v, _ := sel.Attr("aria-hidden"); v == "true" {
			return true
		}
		style, _ := sel.Attr("style")
		style = strings.ReplaceAll(strings.ToLower(style), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return true
		}
	}
	return false
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
