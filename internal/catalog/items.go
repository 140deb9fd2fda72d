package catalog

import (
	"encoding/json"
	"sort"
)

// Item is one catalog entry as delivered by the upstream feed.
type Item struct {
	ContentID   string
	ContentType string
	Title       string
	Description string
	Year        int
	Duration    int // seconds
	Languages   []string
	Genres      []string
	Actors      []string
	Directors   []string
	Producers   []string
	Keywords    []string
	Images      []string
	Locators    []string
	Trailers    []string
	StartDate   int64 // epoch millis
	UpdateDate  int64 // epoch millis
	Raw         json.RawMessage
}

type wireItem struct {
	ContentID   json.Number     `json:"contentId"`
	ContentType string          `json:"contentType"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Year        int             `json:"year"`
	Duration    int             `json:"duration"`
	Languages   []string        `json:"lang"`
	Genres      []string        `json:"genre"`
	Actors      []string        `json:"actors"`
	Directors   []string        `json:"director"`
	Producers   []string        `json:"producers"`
	Keywords    []string        `json:"keywords"`
	Images      json.RawMessage `json:"images"`
	Locators    []wireLocator   `json:"locators"`
	Trailers    []string        `json:"trailers"`
	StartDate   int64           `json:"startDate"`
	UpdateDate  int64           `json:"updateDate"`
}

type wireLocator struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// UnmarshalJSON decodes the upstream item shape, flattening the image
// map into "kind=url" strings and keeping the raw payload snapshot.
func (it *Item) UnmarshalJSON(data []byte) error {
	var wire wireItem
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	it.ContentID = wire.ContentID.String()
	it.ContentType = wire.ContentType
	it.Title = wire.Title
	it.Description = wire.Description
	it.Year = wire.Year
	it.Duration = wire.Duration
	it.Languages = wire.Languages
	it.Genres = wire.Genres
	it.Actors = wire.Actors
	it.Directors = wire.Directors
	it.Producers = wire.Producers
	it.Keywords = wire.Keywords
	it.Trailers = wire.Trailers
	it.StartDate = wire.StartDate
	it.UpdateDate = wire.UpdateDate
	it.Images = flattenImages(wire.Images)

	it.Locators = nil
	for _, loc := range wire.Locators {
		if loc.URL == "" {
			continue
		}
		entry := loc.URL
		if loc.Platform != "" {
			entry = loc.Platform + "=" + loc.URL
		}
		it.Locators = append(it.Locators, entry)
	}

	it.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// flattenImages accepts either the upstream kind-to-url map or a plain
// array of urls and returns deterministic "kind=url" strings.
func flattenImages(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var asMap map[string]string
	if err := json.Unmarshal(raw, &asMap); err == nil {
		kinds := make([]string, 0, len(asMap))
		for kind := range asMap {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		images := make([]string, 0, len(kinds))
		for _, kind := range kinds {
			images = append(images, kind+"="+asMap[kind])
		}
		return images
	}

	var asList []string
	if err := json.Unmarshal(raw, &asList); err == nil {
		return asList
	}
	return nil
}
