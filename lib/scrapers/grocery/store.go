package grocery

import (
	"net/url"
	"strings"
)

type Store struct {
	Id      string `json:"id"`
	Name    string `json:"name"`
	BaseUrl string `json:"base_url"`
}

// SearchURL builds the store's direct search results url for a term.
// There is no interactive crawling, every supported store exposes its
// search through a single query parameter.
func (s Store) SearchURL(term string) string {
	encoded := url.QueryEscape(strings.TrimSpace(term))
	base := strings.TrimSuffix(s.BaseUrl, "/")

	switch s.Id {
	case "target":
		return base + "/s?searchTerm=" + encoded
	case "amazon":
		return base + "/s?k=" + encoded
	case "walmart":
		return base + "/search?q=" + encoded
	case "kroger":
		return base + "/search?query=" + encoded
	default:
		return base + "/search?q=" + encoded
	}
}

// DefaultStores is the reference deployment's store list.
func DefaultStores() []Store {
	return []Store{
		{Id: "target", Name: "Target", BaseUrl: "https://www.target.com"},
		{Id: "amazon", Name: "Amazon", BaseUrl: "https://www.amazon.com"},
		{Id: "walmart", Name: "Walmart", BaseUrl: "https://www.walmart.com"},
		{Id: "kroger", Name: "Kroger", BaseUrl: "https://www.kroger.com"},
	}
}
