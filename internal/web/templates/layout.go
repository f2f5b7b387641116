// Package templates renders the HTML pages of the report browser.
//
// Components are plain templ.Component values built with templ.ComponentFunc
// so handlers can render full pages or HTMX partials the same way.
package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// htmlWriter writes markup to w. Each method has a fixed content type, so
// only raw writes unescaped text. The first error is kept and later writes
// are skipped.
type htmlWriter struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newHTMLWriter(ctx context.Context, w io.Writer) *htmlWriter {
	return &htmlWriter{ctx: ctx, w: w}
}

// raw writes trusted markup as is.
func (h *htmlWriter) raw(markup string) *htmlWriter {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, markup)
	}
	return h
}

// text writes s with HTML escaping.
func (h *htmlWriter) text(s string) *htmlWriter {
	return h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) num(n int) *htmlWriter {
	return h.raw(strconv.Itoa(n))
}

// url writes a sanitized URL for use inside a quoted attribute.
func (h *htmlWriter) url(u templ.SafeURL) *htmlWriter {
	return h.raw(templ.EscapeString(string(u)))
}

func (h *htmlWriter) component(c templ.Component) *htmlWriter {
	if h.err == nil {
		h.err = c.Render(h.ctx, h.w)
	}
	return h
}

func (h *htmlWriter) Err() error {
	return h.err
}

// Page wraps body in the site layout.
func Page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return newHTMLWriter(ctx, w).
			raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`).
			raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`).
			raw(`<title>`).text(title).raw(` | filterframes</title>`).
			raw(`<script src="https://unpkg.com/htmx.org@1.9.12"></script>`).
			raw(`</head><body><header><a href="/">filterframes</a></header><main>`).
			component(body).
			raw(`</main></body></html>`).
			Err()
	})
}

// ErrorAlert is the error fragment swapped in by HTMX requests.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTMLWriter(ctx, w)
		h.raw(`<div class="alert alert-error" role="alert"><strong>`).text(message).raw(`</strong>`)
		if action != "" {
			h.raw(`<p>`).text(action).raw(`</p>`)
		}
		return h.raw(`<small>Code: `).text(code).raw(`</small></div>`).Err()
	})
}
