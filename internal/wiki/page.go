package wiki

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/EO-DataHub/eodhp-groupmatrix/internal/directive"
	"github.com/EO-DataHub/eodhp-groupmatrix/internal/groupmatrix"
	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Messages collects warnings raised while a page renders.
type Messages struct {
	Log   *zerolog.Logger
	items []string
}

func (m *Messages) Warn(msg string) {
	if m.Log != nil {
		m.Log.Warn().Msg(msg)
	}
	m.items = append(m.items, msg)
}

// Items returns the collected warnings in the order they were raised.
func (m *Messages) Items() []string {
	return m.items
}

// WriteTo writes one error box per warning.
func (m *Messages) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	for _, msg := range m.items {
		b.WriteString(`<div class="error">`)
		b.WriteString(html.EscapeString(msg))
		b.WriteString("</div>\n")
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// Renderer renders page source made of Markdown text and groupmatrix
// directives.
type Renderer struct {
	Syntax   *groupmatrix.Syntax
	Markdown goldmark.Markdown
}

// NewRenderer creates a Renderer using GitHub flavoured Markdown for text.
func NewRenderer(syntax *groupmatrix.Syntax) *Renderer {
	return &Renderer{
		Syntax:   syntax,
		Markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Render writes the rendered page to w. Warnings are written before the page
// body so readers see them first.
func (r *Renderer) Render(ctx context.Context, w io.Writer, source string) error {
	source = strings.ReplaceAll(source, "\r\n", "\n")
	messages := &Messages{Log: zerolog.Ctx(ctx)}

	var body bytes.Buffer
	last := 0
	for _, loc := range directive.FindAll(source) {
		if err := r.text(&body, source[last:loc[0]]); err != nil {
			return err
		}

		m := r.Syntax.Handle(ctx, source[loc[0]:loc[1]], messages)
		if _, err := r.Syntax.Render(groupmatrix.ModeXHTML, &body, m); err != nil {
			return fmt.Errorf("failed to render groupmatrix: %w", err)
		}
		body.WriteString("\n")

		last = loc[1]
	}
	if err := r.text(&body, source[last:]); err != nil {
		return err
	}

	if _, err := messages.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write messages: %w", err)
	}
	if _, err := body.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write page: %w", err)
	}
	return nil
}

func (r *Renderer) text(w io.Writer, source string) error {
	if strings.TrimSpace(source) == "" {
		return nil
	}
	if err := r.Markdown.Convert([]byte(source), w); err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	return nil
}
