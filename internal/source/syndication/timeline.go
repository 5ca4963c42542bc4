package syndication

import (
	"encoding/json"
	"fmt"

	"tweetrelay/internal/relay"
)

// timelineDocument mirrors the syndication timeline payload. Only the
// fields the relay consumes are decoded; everything else is ignored.
type timelineDocument struct {
	Timeline struct {
		Entries []timelineEntry `json:"entries"`
	} `json:"timeline"`
}

type timelineEntry struct {
	Pinned bool    `json:"pinned"`
	Post   rawPost `json:"post"`
}

type rawPost struct {
	ID    string     `json:"id_str"`
	Text  string     `json:"full_text"`
	Media []rawMedia `json:"media"`
}

type rawMedia struct {
	FullURL    string `json:"full_url"`
	PreviewURL string `json:"preview_url"`
	URL        string `json:"url"`
	Type       string `json:"type"`
}

// decodeLatest parses a timeline document and returns the most recent
// non-pinned post, or nil when the account has no posts.
func decodeLatest(body []byte, account string) (*relay.Post, error) {
	var doc timelineDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode timeline: %w", err)
	}
	for _, entry := range doc.Timeline.Entries {
		if entry.Pinned || entry.Post.ID == "" {
			continue
		}
		media := make([]relay.Media, 0, len(entry.Post.Media))
		for _, m := range entry.Post.Media {
			media = append(media, relay.Media{
				FullURL:    m.FullURL,
				PreviewURL: m.PreviewURL,
				URL:        m.URL,
				Type:       m.Type,
			})
		}
		return &relay.Post{
			Account: account,
			ID:      entry.Post.ID,
			Text:    entry.Post.Text,
			Media:   media,
			Raw:     append([]byte(nil), body...),
		}, nil
	}
	return nil, nil
}
