// Package render splits a message into text and fenced-code blocks and renders each to HTML:
// code through chroma with the user's theme, text through goldmark (GFM, raw HTML omitted).
package render

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Kind is the block type.
type Kind string

const (
	KindText Kind = "text"
	KindCode Kind = "code"
)

// PlainLanguage is used for fences without a language tag.
const PlainLanguage = "plain"

// Block is one rendered segment of a message.
type Block struct {
	Kind            Kind   `json:"type_"`
	Language        string `json:"language,omitempty"`
	RawContent      string `json:"raw_content"`
	RenderedContent string `json:"rendered_content"`
	Copied          bool   `json:"copied"`
}

var fence = regexp.MustCompile("```([a-zA-Z]*\\n[\\s\\S]*?)```")

// Renderer is safe for concurrent use.
type Renderer struct {
	md        goldmark.Markdown
	formatter *chromahtml.Formatter
}

// New returns a Renderer with GFM text rendering and inline-styled code highlighting.
func New() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
		formatter: chromahtml.New(chromahtml.TabWidth(4)),
	}
}

// Render splits raw into blocks and renders each one. Blocks are always returned:
// a block that fails to render carries its escaped raw content, and the first failure is returned as err.
func (r *Renderer) Render(raw, theme string) ([]Block, error) {
	style := styles.Get(strings.ToLower(theme))

	var (
		blocks   []Block
		firstErr error
		last     int
	)
	keep := func(b Block, err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
		blocks = append(blocks, b)
	}

	for _, loc := range fence.FindAllStringSubmatchIndex(raw, -1) {
		if text := strings.TrimSpace(raw[last:loc[0]]); text != "" {
			keep(r.textBlock(text))
		}
		lang, code := splitFence(raw[loc[2]:loc[3]])
		keep(r.codeBlock(lang, code, style))
		last = loc[1]
	}
	if text := strings.TrimSpace(raw[last:]); text != "" {
		keep(r.textBlock(text))
	}

	if blocks == nil {
		blocks = []Block{}
	}
	return blocks, firstErr
}

// splitFence separates "lang\ncode\n" into its language tag and code.
func splitFence(inner string) (lang, code string) {
	first, rest, _ := strings.Cut(inner, "\n")
	lang = strings.ToLower(first)
	if lang == "" {
		lang = PlainLanguage
	}
	return lang, strings.TrimSuffix(rest, "\n")
}

func (r *Renderer) textBlock(text string) (Block, error) {
	b := Block{Kind: KindText, RawContent: text}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		b.RenderedContent = "<p>" + html.EscapeString(text) + "</p>"
		return b, fmt.Errorf("render text: %w", err)
	}
	b.RenderedContent = buf.String()
	return b, nil
}

func (r *Renderer) codeBlock(lang, code string, style *chroma.Style) (Block, error) {
	b := Block{Kind: KindCode, Language: lang, RawContent: code}

	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, code)
	if err == nil {
		var buf bytes.Buffer
		if err = r.formatter.Format(&buf, style, it); err == nil {
			b.RenderedContent = buf.String()
			return b, nil
		}
	}
	b.RenderedContent = "<pre><code>" + html.EscapeString(code) + "</code></pre>"
	return b, fmt.Errorf("highlight %s: %w", lang, err)
}
