package search

import (
	"regexp"
	"strings"

	"cinematch/searchservice/internal/domain"
)

// fallbackQuery is substituted when facet removal empties the residual text.
const fallbackQuery = "movie"

var yearPattern = regexp.MustCompile(`\b(19[0-9]{2}|20[0-9]{2})\b`)

// Phrase patterns run against the lowercased query; the captured phrase ends
// at the next comma or period. Every pattern that matches contributes one
// phrase, so a single query can yield several.
var actorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`starring\s+([^,.]+)`),
	regexp.MustCompile(`with\s+([^,.]+)`),
	regexp.MustCompile(`featuring\s+([^,.]+)`),
	regexp.MustCompile(`actor\s*:\s*([^,.]+)`),
}

var companyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`by\s+([^,.]+)`),
	regexp.MustCompile(`production\s*:\s*([^,.]+)`),
	regexp.MustCompile(`studio\s*:\s*([^,.]+)`),
	regexp.MustCompile(`company\s*:\s*([^,.]+)`),
}

var stopWordPatterns = compileStopWords(
	"movies", "movie", "films", "film", "from", "in", "the", "about",
	"starring", "with", "featuring", "by", "production", "studio", "company",
)

var whitespacePattern = regexp.MustCompile(`\s+`)

func compileStopWords(words ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(words))
	for i, word := range words {
		patterns[i] = regexp.MustCompile(`\b` + word + `\b`)
	}
	return patterns
}

// ExtractFacets infers structured facets from a free-text query. It is pure
// and deterministic. Genre detection is a plain substring scan, so a genre
// name inside an unrelated word still matches; that looseness is part of the
// contract and must not be tightened.
func ExtractFacets(query string) domain.Facets {
	lower := strings.ToLower(query)

	var genres []string
	for _, genre := range domain.GenreVocabulary {
		if strings.Contains(lower, genre.Name) {
			genres = append(genres, genre.Name)
		}
	}

	year := yearPattern.FindString(query)

	actors := matchPhrases(lower, actorPatterns)
	companies := matchPhrases(lower, companyPatterns)

	residual := lower
	for _, genre := range genres {
		residual = strings.Replace(residual, genre, "", 1)
	}
	if year != "" {
		residual = strings.Replace(residual, year, "", 1)
	}
	for _, actor := range actors {
		residual = strings.Replace(residual, actor, "", 1)
	}
	for _, company := range companies {
		residual = strings.Replace(residual, company, "", 1)
	}
	for _, pattern := range stopWordPatterns {
		residual = pattern.ReplaceAllString(residual, "")
	}
	residual = strings.TrimSpace(whitespacePattern.ReplaceAllString(residual, " "))
	if residual == "" {
		residual = fallbackQuery
	}

	return domain.Facets{
		Genres:    genres,
		Year:      year,
		Actors:    actors,
		Companies: companies,
		Query:     residual,
	}
}

func matchPhrases(lower string, patterns []*regexp.Regexp) []string {
	var phrases []string
	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(lower); m != nil {
			phrases = append(phrases, strings.TrimSpace(m[1]))
		}
	}
	return phrases
}
