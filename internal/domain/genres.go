package domain

// Genre pairs a facet vocabulary name with its TMDB genre code.
type Genre struct {
	Name string
	Code int
}

// GenreVocabulary is the fixed genre vocabulary. Order matters: facet
// extraction scans it top to bottom and code-to-name mapping is a linear
// lookup, so it is a slice rather than a map. Never mutated after init.
var GenreVocabulary = []Genre{
	{Name: "action", Code: 28},
	{Name: "adventure", Code: 12},
	{Name: "animation", Code: 16},
	{Name: "comedy", Code: 35},
	{Name: "crime", Code: 80},
	{Name: "documentary", Code: 99},
	{Name: "drama", Code: 18},
	{Name: "family", Code: 10751},
	{Name: "fantasy", Code: 14},
	{Name: "history", Code: 36},
	{Name: "horror", Code: 27},
	{Name: "music", Code: 10402},
	{Name: "mystery", Code: 9648},
	{Name: "romance", Code: 10749},
	{Name: "sci-fi", Code: 878},
	{Name: "thriller", Code: 53},
	{Name: "war", Code: 10752},
	{Name: "western", Code: 37},
}

// GenreCode resolves a vocabulary name to its TMDB code.
func GenreCode(name string) (int, bool) {
	for _, genre := range GenreVocabulary {
		if genre.Name == name {
			return genre.Code, true
		}
	}
	return 0, false
}

// GenreNames maps TMDB genre codes back to vocabulary names, preserving the
// order of codes. Codes outside the vocabulary are dropped.
func GenreNames(codes []int) []string {
	var names []string
	for _, code := range codes {
		for _, genre := range GenreVocabulary {
			if genre.Code == code {
				names = append(names, genre.Name)
				break
			}
		}
	}
	return names
}
