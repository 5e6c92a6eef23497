package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatInteractiveElements(t *testing.T) {
	items := []any{
		map[string]any{"index": float64(0), "tag": "a", "text": "Sign in", "selector": `[data-sable-id="sable-element-0"]`},
		map[string]any{"index": float64(1), "tag": "input", "text": "[Placeholder: Search]", "selector": `[data-sable-id="sable-element-1"]`},
		"not an element",
	}

	formatted := formatInteractiveElements(items)

	assert.Equal(t, []string{
		"0:<a>Sign in</a>",
		"1:<input>[Placeholder: Search]</input>",
	}, formatted)
}

func TestFormatInteractiveElementsEmpty(t *testing.T) {
	assert.Empty(t, formatInteractiveElements(nil))
}

func TestTailLines(t *testing.T) {
	logs := []any{"a", "b", "c", "d"}

	assert.Equal(t, []any{"c", "d"}, tailLines(logs, 2))
	assert.Equal(t, logs, tailLines(logs, 0))
	assert.Equal(t, logs, tailLines(logs, 10))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héllo", truncateRunes("héllo", 10))
	assert.Equal(t, "hél", truncateRunes("héllo", 3))
	assert.Equal(t, strings.Repeat("界", 5), truncateRunes(strings.Repeat("界", 20), 5))
}

func TestElementByIndexOutOfRange(t *testing.T) {
	b := &PlaywrightBrowser{elementCount: 3}

	_, failure := b.elementByIndex(3)
	assert.NotNil(t, failure)
	assert.False(t, failure.Success)
	assert.Contains(t, failure.Message, "index 3")

	_, failure = b.elementByIndex(-1)
	assert.NotNil(t, failure)
}
