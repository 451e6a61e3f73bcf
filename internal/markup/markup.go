// Package markup converts user-submitted CommonMark to HTML and strips
// anything unsafe. Messages are converted once, at post time, so updates can
// be served without re-rendering.
package markup

import (
	"bytes"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	initOnce sync.Once
	md       goldmark.Markdown
	policy   *bluemonday.Policy
)

func setup() {
	initOnce.Do(func() {
		md = goldmark.New(goldmark.WithExtensions(extension.Table))
		policy = bluemonday.UGCPolicy()
		policy.AllowTables()
	})
}

// Render converts a CommonMark message to sanitized HTML.
func Render(content string) string {
	setup()

	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		// goldmark only fails on writer errors, which bytes.Buffer never
		// produces, but fall back to treating the input as plain text.
		return policy.Sanitize(content)
	}

	return policy.Sanitize(buf.String())
}

// Sanitize strips unsafe HTML without interpreting CommonMark.
func Sanitize(html string) string {
	setup()
	return policy.Sanitize(html)
}
