package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func textOnly(mt string) bool {
	return mt == "text/plain" || mt == "text/markdown" || mt == "application/pdf"
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"invoices/a.txt":       "invoice a",
		"invoices/b.md":        "# invoice b",
		"contracts/c.pdf":      "%PDF-1.4",
		"archive/old.txt":      "old",
		"images/logo.png":      "\x89PNG\r\n\x1a\n",
		"invoices/noext":       "plain text content",
		"invoices/.draft.json": "{}",
	})

	s := &Scanner{Exclude: []string{"archive/**"}, Supported: textOnly}
	files, skipped, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		rel, _ := filepath.Rel(root, f.Path)
		paths = append(paths, filepath.ToSlash(rel))
	}
	assert.Equal(t, []string{"contracts/c.pdf", "invoices/a.txt", "invoices/b.md", "invoices/noext"}, paths)
	assert.Len(t, skipped, 2, "png and json are unsupported")
}

func TestScan_Include(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a/x.txt": "x",
		"b/y.txt": "y",
	})
	s := &Scanner{Include: []string{"b/**/*.txt"}}
	files, _, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(root, "b", "y.txt"), files[0].Path)
}

func TestScan_SingleFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"one.txt": "x"})
	files, skipped, err := (&Scanner{}).Scan(context.Background(), filepath.Join(root, "one.txt"))
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, files, 1)
	assert.Equal(t, "text/plain", files[0].MIMEType)
}

func TestScan_BadPattern(t *testing.T) {
	_, _, err := (&Scanner{Include: []string{"[a-"}}).Scan(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestDetectMIME(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.csv":  "a,b\n1,2\n",
		"a.md":   "# hi",
		"sniffy": "%PDF-1.4\n",
	})
	mt, err := DetectMIME(filepath.Join(root, "a.csv"))
	require.NoError(t, err)
	assert.Equal(t, "text/csv", mt)

	mt, _ = DetectMIME(filepath.Join(root, "a.md"))
	assert.Equal(t, "text/markdown", mt)

	mt, _ = DetectMIME(filepath.Join(root, "sniffy"))
	assert.Equal(t, "application/pdf", mt)
}
