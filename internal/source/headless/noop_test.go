package headless

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopFetchAlwaysFails(t *testing.T) {
	t.Parallel()

	f := NewNoop()
	resp, err := f.Fetch(context.Background(), "https://example.com")
	assert.Error(t, err)
	assert.Zero(t, resp.StatusCode)
}
