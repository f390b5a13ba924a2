// Package parser turns raw document bytes into normalized markdown text.
package parser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// NormalizedText is the markdown rendition of a document.
type NormalizedText string

type Parser interface {
	Parse(ctx context.Context, content []byte, fileName, mimeType string) (NormalizedText, error)
}

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrTimeout           = errors.New("parse timeout exceeded")
)

// ServiceError is a transport failure or a non-2xx response from the parsing
// service. StatusCode is 0 for transport failures.
type ServiceError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// JobError reports a parse job that finished in a non-success state.
type JobError struct {
	JobID  string
	Status string
}

func (e *JobError) Error() string {
	return fmt.Sprintf("parse job %s finished with status %s", e.JobID, e.Status)
}

// IsTransient is true for transport failures, 429 and 5xx responses.
func IsTransient(err error) bool {
	var se *ServiceError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == 0 || se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
}

// BaseMIMEType strips parameters such as "; charset=utf-8".
func BaseMIMEType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// Supported reports whether the hosted parsing service accepts mimeType.
func Supported(mimeType string) bool {
	_, ok := supported[BaseMIMEType(mimeType)]
	return ok
}

var supported = func() map[string]struct{} {
	m := make(map[string]struct{}, len(SupportedMIMETypes))
	for _, t := range SupportedMIMETypes {
		m[t] = struct{}{}
	}
	return m
}()

var SupportedMIMETypes = []string{
	"application/pdf",
	"application/x-t602",
	"application/x-abiword",
	"image/cgm",
	"application/x-cwk",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-word.document.macroenabled.12",
	"application/vnd.ms-word.template.macroenabled.12",
	"application/x-hwp",
	"application/vnd.apple.keynote",
	"application/vnd.lotus-wordpro",
	"application/x-lotus-microsoft-work",
	"application/vnd.apple.pages",
	"application/vnd.powerbuilder6",
	"application/vnd.ms-powerpoint",
	"application/vnd.ms-powerpoint.presentation.macroenabled.12",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/vnd.ms-powerpoint.template.macroenabled.12",
	"application/vnd.openxmlformats-officedocument.presentationml.template",
	"application/rtf",
	"application/vnd.stardivision.draw",
	"application/vnd.stardivision.impress",
	"application/vnd.stardivision.writer",
	"application/vnd.stardivision.writer-global",
	"application/vnd.sun.xml.impress.template",
	"application/vnd.sun.xml.impress",
	"application/vnd.sun.xml.writer",
	"application/vnd.sun.xml.writer.template",
	"application/vnd.sun.xml.writer.global",
	"text/plain",
	"application/x-uof",
	"application/vnd.uoml+xml",
	"application/vnd.wordperfect",
	"application/vnd.ms-works",
	"application/xml",
	"application/epub+zip",
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/bmp",
	"image/svg+xml",
	"image/tiff",
	"image/webp",
	"text/html",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-excel",
	"application/vnd.ms-excel.sheet.macroenabled.12",
	"application/vnd.ms-excel.sheet.binary.macroenabled.12",
	"text/csv",
	"video/x-dv",
	"text/spreadsheet",
	"application/x-prn",
	"application/vnd.apple.numbers",
	"application/x-et",
	"application/vnd.oasis.opendocument.spreadsheet",
	"application/x-dbf",
	"application/vnd.lotus-1-2-3",
	"application/x-quattro-pro",
	"application/x-eth",
	"text/tab-separated-values",
}
