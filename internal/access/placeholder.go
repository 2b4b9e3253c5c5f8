package access

import "golang.org/x/text/language"

var placeholderTags = []language.Tag{
	language.English,
	language.Swahili,
}

var placeholderMatcher = language.NewMatcher(placeholderTags)

var restrictedPlaceholders = map[language.Tag]string{
	language.English: RestrictedPlaceholder,
	language.Swahili: "Mawasiliano yanapatikana kwa washirika wa biashara",
}

// PlaceholderLanguage picks the placeholder language for an Accept-Language
// header. English is the fallback.
func PlaceholderLanguage(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, index, _ := placeholderMatcher.Match(tags...)
	return placeholderTags[index]
}

// Localize returns a copy of s whose placeholder texts are in lang.
func (s SafeRecord) Localize(lang language.Tag) SafeRecord {
	text, ok := restrictedPlaceholders[lang]
	if !ok || len(s.Redacted) == 0 {
		return s
	}
	redacted := make(map[string]string, len(s.Redacted))
	for field := range s.Redacted {
		redacted[field] = text
	}
	s.Redacted = redacted
	return s
}
