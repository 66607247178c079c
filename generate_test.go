package seekly_test

import (
	"testing"

	seekly "github.com/seekly/seekly-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPrompt(t *testing.T) {
	rec, err := seekly.NewRecordFrom(map[string]any{
		"title":  "glaciers",
		"author": "smith",
		"details": map[string]any{
			"word_count": 812,
		},
	})
	require.NoError(t, err)
	t.Run("substitutes record fields", func(t *testing.T) {
		out, err := seekly.RenderPrompt("Summarize {{ .title }} by {{ .author }}", rec)
		require.NoError(t, err)
		assert.Equal(t, "Summarize glaciers by smith", out)
	})
	t.Run("supports sprig functions", func(t *testing.T) {
		out, err := seekly.RenderPrompt("{{ .title | upper }}", rec)
		require.NoError(t, err)
		assert.Equal(t, "GLACIERS", out)
	})
	t.Run("missing fields do not fail the render", func(t *testing.T) {
		out, err := seekly.RenderPrompt("Summarize {{ .missing }}", rec)
		require.NoError(t, err)
		assert.Contains(t, out, "Summarize")
	})
	t.Run("malformed template rejected", func(t *testing.T) {
		_, err := seekly.RenderPrompt("Summarize {{ .title", rec)
		require.Error(t, err)
	})
}
