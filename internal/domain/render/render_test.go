package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_FencedBlockRoundTrip(t *testing.T) {
	t.Parallel()

	raw := "Here is code:\n```Go\nfmt.Println(\"hi\")\nreturn\n```\nDone."
	blocks, err := New().Render(raw, "monokai")
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	assert.Equal(t, KindText, blocks[0].Kind)
	assert.Equal(t, "Here is code:", blocks[0].RawContent)

	code := blocks[1]
	assert.Equal(t, KindCode, code.Kind)
	assert.Equal(t, "go", code.Language)
	assert.Equal(t, "fmt.Println(\"hi\")\nreturn", code.RawContent)
	assert.Contains(t, code.RenderedContent, "<pre")
	assert.Contains(t, code.RenderedContent, "Println")
	assert.False(t, code.Copied)

	// Re-fencing the block reproduces the original fence.
	refenced := "```" + code.Language + "\n" + code.RawContent + "\n```"
	assert.Contains(t, strings.ToLower(raw), strings.ToLower(refenced))

	assert.Equal(t, "Done.", blocks[2].RawContent)
}

func TestRender_FenceWithoutLanguageIsPlain(t *testing.T) {
	t.Parallel()

	blocks, err := New().Render("```\nls -la\n```", "github")
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, PlainLanguage, blocks[0].Language)
	assert.Equal(t, "ls -la", blocks[0].RawContent)
}

func TestRender_NonAlphabeticTagIsNotAFence(t *testing.T) {
	t.Parallel()

	// "c++" is not an alphabetic tag, so the whole input stays text.
	blocks, err := New().Render("```c++\nint x;\n```", "monokai")
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, KindText, blocks[0].Kind)
}

func TestRender_TextIsMarkdownAndRawHTMLOmitted(t *testing.T) {
	t.Parallel()

	blocks, err := New().Render("  **bold** <script>alert(1)</script>  ", "monokai")
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "**bold** <script>alert(1)</script>", blocks[0].RawContent)
	assert.Contains(t, blocks[0].RenderedContent, "<strong>bold</strong>")
	assert.NotContains(t, blocks[0].RenderedContent, "<script>")
}

func TestRender_UnknownThemeAndLanguageStillHighlight(t *testing.T) {
	t.Parallel()

	blocks, err := New().Render("```klingon\nqapla'\n```", "no-such-theme")
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "klingon", blocks[0].Language)
	assert.Contains(t, blocks[0].RenderedContent, "qapla")
}

func TestRender_EmptyInput(t *testing.T) {
	t.Parallel()

	blocks, err := New().Render("   \n", "monokai")
	require.NoError(t, err)
	assert.Empty(t, blocks)
	assert.NotNil(t, blocks)
}

func TestRender_MultipleFences(t *testing.T) {
	t.Parallel()

	raw := "```python\nprint(1)\n```\n```bash\necho 2\n```"
	blocks, err := New().Render(raw, "monokai")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "python", blocks[0].Language)
	assert.Equal(t, "bash", blocks[1].Language)
}
