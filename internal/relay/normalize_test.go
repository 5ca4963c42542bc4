package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveMediaURLPriority(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "full", ResolveMediaURL(Media{FullURL: "full", PreviewURL: "prev", URL: "generic"}))
	assert.Equal(t, "prev", ResolveMediaURL(Media{PreviewURL: "prev", URL: "generic"}))
	assert.Equal(t, "generic", ResolveMediaURL(Media{URL: "generic"}))
	assert.Equal(t, "", ResolveMediaURL(Media{}))
}

func TestClassifyMedia(t *testing.T) {
	t.Parallel()

	// Explicit tag wins even without a video extension.
	assert.Equal(t, MediaVideo, ClassifyMedia(Media{Type: "video"}, "https://x/clip"))
	assert.Equal(t, MediaVideo, ClassifyMedia(Media{Type: "VIDEO"}, "https://x/clip"))

	// Extension sniffing as fallback.
	assert.Equal(t, MediaVideo, ClassifyMedia(Media{}, "https://x/a.mp4"))
	assert.Equal(t, MediaVideo, ClassifyMedia(Media{}, "https://x/a.MOV"))
	assert.Equal(t, MediaVideo, ClassifyMedia(Media{}, "https://x/a.webm"))
	assert.Equal(t, MediaPhoto, ClassifyMedia(Media{}, "https://x/a.jpg"))
	assert.Equal(t, MediaPhoto, ClassifyMedia(Media{Type: "photo"}, "https://x/a.png"))
}

func TestNormalizeMediaPreservesOrder(t *testing.T) {
	t.Parallel()

	items := NormalizeMedia([]Media{
		{FullURL: "https://x/a.jpg"},
		{FullURL: "https://x/b.mp4"},
		{FullURL: "https://x/c.jpg"},
	})

	assert.Equal(t, []MediaItem{
		{Kind: MediaPhoto, URL: "https://x/a.jpg"},
		{Kind: MediaVideo, URL: "https://x/b.mp4"},
		{Kind: MediaPhoto, URL: "https://x/c.jpg"},
	}, items)
}

func TestNormalizeMediaDropsUnresolvable(t *testing.T) {
	t.Parallel()

	items := NormalizeMedia([]Media{
		{}, // no URL at all
		{PreviewURL: "https://x/b.jpg"},
		{},
	})
	assert.Equal(t, []MediaItem{{Kind: MediaPhoto, URL: "https://x/b.jpg"}}, items)

	// A post whose only attachments drop out yields an empty list, which the
	// watcher turns into a text-only delivery.
	assert.Empty(t, NormalizeMedia([]Media{{}, {}}))
}

func TestBuildCaption(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "New post from @foo:\n\nhello", BuildCaption("@foo", "hello"))
	assert.Equal(t, "New post from @foo", BuildCaption("@foo", ""))
	assert.Equal(t, "New post from @foo", BuildCaption("@foo", "  \n "))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	content := Normalize(Post{
		Account: "@foo",
		ID:      "99",
		Text:    "hi",
		Media: []Media{
			{FullURL: "https://x/a.jpg"},
			{URL: "https://x/b.mp4"},
		},
	})

	assert.Equal(t, "@foo", content.Account)
	assert.Equal(t, "99", content.PostID)
	assert.Equal(t, "New post from @foo:\n\nhi", content.Caption)
	assert.Len(t, content.Media, 2)
	assert.Equal(t, MediaVideo, content.Media[1].Kind)
}
