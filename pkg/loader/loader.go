// Package loader reads source documents from disk or S3-compatible object
// storage and extracts their plain text.
package loader

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"cv-rag/pkg/apperror"
	"cv-rag/pkg/store"
)

// ObjectFetcher reads whole objects from a bucket.
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
}

type Loader struct {
	objects ObjectFetcher
	now     func() time.Time
}

// New creates a loader. objects may be nil when s3:// sources are not used.
func New(objects ObjectFetcher) *Loader {
	return &Loader{objects: objects, now: time.Now}
}

// Load reads a local path or an s3://bucket/key URI.
func (l *Loader) Load(ctx context.Context, source string) (store.Document, error) {
	var (
		data []byte
		err  error
	)
	if bucket, key, ok := parseS3(source); ok {
		if l.objects == nil {
			return store.Document{}, apperror.Configuration("loader", "object storage is not configured, cannot load %s", source)
		}
		data, err = l.objects.Fetch(ctx, bucket, key)
		if err != nil {
			return store.Document{}, fmt.Errorf("fetch %s: %w", source, err)
		}
	} else {
		data, err = os.ReadFile(source)
		if err != nil {
			return store.Document{}, apperror.Validation("loader", "cannot read %s: %v", source, err)
		}
	}
	return l.FromBytes(source, data)
}

// FromBytes extracts the text of data, choosing the format by the extension
// of name.
func (l *Loader) FromBytes(name string, data []byte) (store.Document, error) {
	text, err := Extract(name, data)
	if err != nil {
		return store.Document{}, err
	}
	if strings.TrimSpace(text) == "" {
		return store.Document{}, apperror.Validation("loader", "%s contains no text", name)
	}
	return store.Document{
		ID:       DocumentID(name),
		Text:     text,
		Source:   name,
		LoadedAt: l.now().UTC(),
	}, nil
}

// Extract dispatches on the file extension. Unknown extensions are read as
// plain text.
func Extract(name string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		text, err = extractPDF(data)
	case ".docx":
		text, err = extractDOCX(data)
	case ".md", ".markdown":
		text, err = extractMarkdown(data)
	default:
		text = string(data)
	}
	if err != nil {
		return "", apperror.Validation("loader", "cannot parse %s: %v", name, err)
	}
	return normalizeText(text), nil
}

var unsafeID = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// DocumentID derives a stable id from the source name, so re-ingesting the
// same file overwrites its chunks.
func DocumentID(source string) string {
	if _, key, ok := parseS3(source); ok {
		source = key
	}
	base := path.Base(filepath.ToSlash(source))
	base = strings.TrimSuffix(base, path.Ext(base))
	id := strings.Trim(unsafeID.ReplaceAllString(base, "-"), "-.")
	if id == "" {
		return "document"
	}
	return strings.ToLower(id)
}

func parseS3(source string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(source, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

func normalizeText(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
