package tmdb

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cinematch/searchservice/internal/domain"
)

const streamingLimit = 6

type watchOffer struct {
	ProviderName string `json:"provider_name"`
}

type regionOffers struct {
	Flatrate []watchOffer `json:"flatrate"`
	Rent     []watchOffer `json:"rent"`
	Buy      []watchOffer `json:"buy"`
}

type watchPayload struct {
	Results map[string]regionOffers `json:"results"`
}

// canonicalEntry pairs a canonical display name with the provider's landing
// page. Keys are lowercase substrings matched against upstream provider
// names.
type canonicalEntry struct {
	name string
	url  string
}

// Subscription services recognized in upstream flatrate offers. Matching is
// substring-based so "Netflix Standard with Ads" still maps to Netflix.
var subscriptionProviders = []struct {
	key   string
	entry canonicalEntry
}{
	{"netflix", canonicalEntry{"Netflix", "https://www.netflix.com"}},
	{"disney", canonicalEntry{"Disney+", "https://www.disneyplus.com"}},
	{"hbo", canonicalEntry{"Max", "https://www.max.com"}},
	{"hulu", canonicalEntry{"Hulu", "https://www.hulu.com"}},
	{"prime", canonicalEntry{"Amazon Prime", "https://www.primevideo.com"}},
	{"apple", canonicalEntry{"Apple TV+", "https://tv.apple.com"}},
	{"paramount", canonicalEntry{"Paramount+", "https://www.paramountplus.com"}},
	{"peacock", canonicalEntry{"Peacock", "https://www.peacocktv.com"}},
}

var rentProviders = []struct {
	key   string
	entry canonicalEntry
}{
	{"apple", canonicalEntry{"Apple TV", "https://tv.apple.com"}},
	{"amazon", canonicalEntry{"Amazon Prime", "https://www.primevideo.com"}},
	{"google", canonicalEntry{"Google Play", "https://play.google.com"}},
	{"vudu", canonicalEntry{"Vudu", "https://www.vudu.com"}},
}

var buyProviders = []struct {
	key   string
	entry canonicalEntry
}{
	{"apple", canonicalEntry{"Apple TV", "https://tv.apple.com"}},
	{"amazon", canonicalEntry{"Amazon Prime", "https://www.primevideo.com"}},
}

// StreamingProviders returns US-region availability for a movie, canonicalized
// to known services. Fail-soft: lookup errors collapse to an empty list.
func (c *Client) StreamingProviders(ctx context.Context, id int) []domain.StreamingProvider {
	var payload watchPayload
	if err := c.get(ctx, "watch_providers", providersTimeout, fmt.Sprintf("/movie/%d/watch/providers", id), nil, &payload); err != nil {
		c.logger.Warn("streaming providers lookup failed", slog.Int("movieID", id), slog.String("error", err.Error()))
		return []domain.StreamingProvider{}
	}
	offers, ok := payload.Results[c.region]
	if !ok {
		return []domain.StreamingProvider{}
	}
	return mapStreamingOffers(offers)
}

// mapStreamingOffers canonicalizes raw watch offers in priority order:
// subscription first, then rent, then buy, capped at streamingLimit entries.
// Buy offers that duplicate an already-listed rent provider are skipped.
func mapStreamingOffers(offers regionOffers) []domain.StreamingProvider {
	providers := make([]domain.StreamingProvider, 0, streamingLimit)

	for _, offer := range offers.Flatrate {
		if len(providers) >= streamingLimit {
			return providers
		}
		lower := strings.ToLower(offer.ProviderName)
		for _, candidate := range subscriptionProviders {
			if strings.Contains(lower, candidate.key) {
				providers = append(providers, domain.StreamingProvider{
					Name: candidate.entry.name,
					URL:  candidate.entry.url,
					Type: "stream",
				})
				break
			}
		}
	}

	for _, offer := range offers.Rent {
		if len(providers) >= streamingLimit {
			return providers
		}
		lower := strings.ToLower(offer.ProviderName)
		for _, candidate := range rentProviders {
			if strings.Contains(lower, candidate.key) {
				providers = append(providers, domain.StreamingProvider{
					Name: candidate.entry.name,
					URL:  candidate.entry.url,
					Type: "rent",
				})
				break
			}
		}
	}

	for _, offer := range offers.Buy {
		if len(providers) >= streamingLimit {
			return providers
		}
		lower := strings.ToLower(offer.ProviderName)
		for _, candidate := range buyProviders {
			if !strings.Contains(lower, candidate.key) {
				continue
			}
			if hasProvider(providers, candidate.entry.name) {
				break
			}
			providers = append(providers, domain.StreamingProvider{
				Name: candidate.entry.name,
				URL:  candidate.entry.url,
				Type: "buy",
			})
			break
		}
	}

	return providers
}

func hasProvider(providers []domain.StreamingProvider, name string) bool {
	for _, p := range providers {
		if p.Name == name {
			return true
		}
	}
	return false
}
