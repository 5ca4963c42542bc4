package relay

import (
	"fmt"
	"strings"
)

var videoExtensions = []string{".mp4", ".mov", ".webm"}

// ResolveMediaURL picks the best URL for a media element: full resolution
// first, then preview, then the generic field. An empty result means the
// element carries no usable reference and is dropped by NormalizeMedia.
func ResolveMediaURL(m Media) string {
	switch {
	case m.FullURL != "":
		return m.FullURL
	case m.PreviewURL != "":
		return m.PreviewURL
	default:
		return m.URL
	}
}

// ClassifyMedia determines the media kind. An explicit source tag wins;
// otherwise the filename extension decides, defaulting to photo.
func ClassifyMedia(m Media, url string) MediaKind {
	if strings.EqualFold(m.Type, string(MediaVideo)) {
		return MediaVideo
	}
	lower := strings.ToLower(url)
	for _, ext := range videoExtensions {
		if strings.HasSuffix(lower, ext) {
			return MediaVideo
		}
	}
	return MediaPhoto
}

// NormalizeMedia resolves and classifies every media element, preserving
// source order. Elements with no resolvable URL are dropped, never errored.
func NormalizeMedia(media []Media) []MediaItem {
	items := make([]MediaItem, 0, len(media))
	for _, m := range media {
		url := ResolveMediaURL(m)
		if url == "" {
			continue
		}
		items = append(items, MediaItem{Kind: ClassifyMedia(m, url), URL: url})
	}
	return items
}

// BuildCaption renders the delivery caption: a header naming the account,
// followed by the post text when there is any.
func BuildCaption(account, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Sprintf("New post from %s", account)
	}
	return fmt.Sprintf("New post from %s:\n\n%s", account, text)
}

// Normalize converts a source post into deliverable content.
func Normalize(post Post) Content {
	return Content{
		Account: post.Account,
		PostID:  post.ID,
		Caption: BuildCaption(post.Account, post.Text),
		Media:   NormalizeMedia(post.Media),
	}
}
