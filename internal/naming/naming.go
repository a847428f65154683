package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const unknown = "Unknown"

// Normalize превращает отображаемое имя в безопасную основу имени файла
// вида "Фамилия.Имя" (Family.Given).
//
// "Doe, Jane" → "Doe.Jane": всё до первой запятой — фамилия.
// "Jane van Doe" → "Doe.Jane": первое слово — имя, последнее — фамилия.
// Одно слово возвращается очищенным целиком, пустое имя — "Unknown.Unknown".
func Normalize(display string) string {
	display = strings.TrimSpace(display)

	var given, family string
	if i := strings.Index(display, ","); i >= 0 {
		family = display[:i]
		given = display[i+1:]
	} else {
		tokens := strings.Fields(display)
		if len(tokens) < 2 {
			if s := clean(display); s != "" {
				return s
			}
			return unknown + "." + unknown
		}
		given = tokens[0]
		family = tokens[len(tokens)-1]
	}

	family = clean(family)
	given = clean(given)
	if family == "" {
		family = unknown
	}
	if given == "" {
		given = unknown
	}
	return family + "." + given
}

// clean folds diacritics (José → Jose) and keeps only ASCII letters and digits.
func clean(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
