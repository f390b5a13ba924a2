package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/ledongthuc/pdf"
)

// Local parses a small set of formats in-process, without the hosted service.
type Local struct{}

func NewLocal() *Local {
	return &Local{}
}

var localTypes = map[string]func([]byte) (string, error){
	"application/pdf":           pdfText,
	"text/html":                 htmlText,
	"text/plain":                plainText,
	"text/markdown":             plainText,
	"text/csv":                  plainText,
	"text/tab-separated-values": plainText,
}

// LocalSupported reports whether Local can handle mimeType.
func LocalSupported(mimeType string) bool {
	_, ok := localTypes[BaseMIMEType(mimeType)]
	return ok
}

func (l *Local) Parse(ctx context.Context, content []byte, fileName, mimeType string) (NormalizedText, error) {
	base := BaseMIMEType(mimeType)
	conv, ok := localTypes[base]
	if !ok {
		return "", fmt.Errorf("%s (%s): %w", fileName, base, ErrUnsupportedFormat)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := conv(content)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", fileName, err)
	}
	return NormalizedText(strings.TrimSpace(text)), nil
}

func pdfText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}
	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return strings.Join(pages, PageSeparator), nil
}

func htmlText(content []byte) (string, error) {
	return htmltomarkdown.ConvertString(string(content))
}

func plainText(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", fmt.Errorf("content is not valid UTF-8")
	}
	return string(content), nil
}
