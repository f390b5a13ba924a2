// Package corpus finds the documents under a root path.
package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"

	"github.com/agenthands/docgraph/internal/logger"
)

type File struct {
	Path     string `json:"path"`
	MIMEType string `json:"mime_type"`
}

// Extensions the platform MIME table commonly lacks or gets wrong.
var extraTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".csv":      "text/csv",
	".tsv":      "text/tab-separated-values",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".pptx":     "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".epub":     "application/epub+zip",
	".rtf":      "application/rtf",
}

// DetectMIME guesses from the extension and falls back to sniffing content.
// Parameters such as charset are stripped.
func DetectMIME(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := extraTypes[ext]; ok {
		return t, nil
	}
	if t := mime.TypeByExtension(ext); t != "" {
		base, _, _ := strings.Cut(t, ";")
		return strings.TrimSpace(base), nil
	}
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect mime %s: %w", path, err)
	}
	base, _, _ := strings.Cut(m.String(), ";")
	return strings.TrimSpace(base), nil
}

type Scanner struct {
	// Include and Exclude are doublestar patterns matched against paths
	// relative to the scan root. An empty Include matches everything.
	Include []string
	Exclude []string
	// Supported filters files by MIME type; nil accepts everything.
	Supported func(mimeType string) bool
}

// Scan walks root recursively. Files whose type is not supported are
// returned in skipped rather than as an error. A root that is a regular file
// is scanned as a single-entry corpus. Returned paths are absolute, so one
// document has one path however root was spelled.
func (s *Scanner) Scan(ctx context.Context, root string) (files, skipped []File, err error) {
	for _, p := range append(append([]string{}, s.Include...), s.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, nil, fmt.Errorf("invalid glob %q", p)
		}
	}

	if root, err = filepath.Abs(root); err != nil {
		return nil, nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, err
	}
	if !info.IsDir() {
		f, ok, err := s.classify(root)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			return []File{f}, nil, nil
		}
		return nil, []File{f}, nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && s.excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !s.included(rel) || s.excluded(rel) {
			return nil
		}

		f, ok, err := s.classify(path)
		if err != nil {
			logger.Warn("skipping unreadable file", "path", path, "err", err)
			skipped = append(skipped, File{Path: path})
			return nil
		}
		if ok {
			files = append(files, f)
		} else {
			skipped = append(skipped, f)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, skipped, nil
}

func (s *Scanner) classify(path string) (File, bool, error) {
	mt, err := DetectMIME(path)
	if err != nil {
		return File{Path: path}, false, err
	}
	f := File{Path: path, MIMEType: mt}
	if s.Supported != nil && !s.Supported(mt) {
		logger.Info("skipping unsupported file", "path", path, "mime_type", mt)
		return f, false, nil
	}
	return f, true, nil
}

func (s *Scanner) included(rel string) bool {
	if len(s.Include) == 0 {
		return true
	}
	return matchAny(s.Include, rel)
}

func (s *Scanner) excluded(rel string) bool {
	return matchAny(s.Exclude, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
