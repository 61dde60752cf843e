package gen

import "regexp"

// Модель иногда возвращает markdown несмотря на запрет в промпте.
// Вычищаем заголовки, жирный текст, курсив и зачёркивание.
var (
	reHeading = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reBold    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reItalic1 = regexp.MustCompile(`\*(.+?)\*`)
	reItalic2 = regexp.MustCompile(`_(.+?)_`)
	reStrike  = regexp.MustCompile(`~~(.+?)~~`)
)

// StripMarkdown убирает markdown-разметку из сгенерированного текста.
func StripMarkdown(s string) string {
	s = reHeading.ReplaceAllString(s, "")
	s = reBold.ReplaceAllString(s, "$1")
	s = reItalic1.ReplaceAllString(s, "$1")
	s = reItalic2.ReplaceAllString(s, "$1")
	s = reStrike.ReplaceAllString(s, "$1")
	return s
}
