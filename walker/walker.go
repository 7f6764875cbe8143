package walker

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"upload-index/models"

	"go.uber.org/zap"
)

// Suffix is the file name suffix that gets published
const Suffix = ".json"

const (
	openMarker  = "<pre>"
	closeMarker = "</pre>"
)

// Walker builds URL listings for files under a root directory
type Walker struct {
	source  Source
	log     *zap.Logger
	baseURL string
}

// Dependencies configuration for creating a walker
type Dependencies struct {
	Source Source
	Log    *zap.Logger
}

// Config holds configuration for the walker
type Config struct {
	BaseURL string
}

// NewWalker creates a new walker instance
func NewWalker(d *Dependencies, cfg Config) *Walker {
	logger := d.Log
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Walker{
		source:  d.Source,
		log:     logger,
		baseURL: cfg.BaseURL,
	}
}

// Walk collects the URL of every matching file under root
func (w *Walker) Walk(ctx context.Context, root string) ([]string, error) {
	paths, err := w.RelativePaths(ctx, root)
	if err != nil {
		return nil, err
	}

	var urls []string
	for _, p := range paths {
		urls = append(urls, w.baseURL+p)
	}

	return urls, nil
}

// RelativePaths collects the slash-separated path, relative to root, of every
// matching file under root
func (w *Walker) RelativePaths(ctx context.Context, root string) ([]string, error) {
	info, err := w.source.Stat(ctx, root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	w.log.Debug("walking upload root", zap.String("root", root), zap.String("base_url", w.baseURL))

	var paths []string
	if err := w.walkDir(ctx, root, "", &paths); err != nil {
		return nil, err
	}

	w.log.Info("walk completed", zap.String("root", root), zap.Int("files", len(paths)))
	return paths, nil
}

// PublicURL joins baseURL and relPath with every path segment escaped, the
// way the uploader publishes files. Listings stay unescaped.
func (w *Walker) PublicURL(relPath string) string {
	segments := strings.Split(relPath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return w.baseURL + strings.Join(segments, "/")
}

// walkDir lists dirPath and recurses depth first. prefix is the slash-joined
// relative path of dirPath, with a trailing slash unless empty.
func (w *Walker) walkDir(ctx context.Context, dirPath, prefix string, paths *[]string) error {
	entries, err := w.source.ListDir(ctx, dirPath)
	if err != nil {
		return err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	for _, entry := range entries {
		if entry.Name == "." || entry.Name == ".." {
			continue
		}

		// Directories win over the suffix check, so "weird.json/" is recursed into.
		if entry.IsDir {
			if err := w.walkDir(ctx, filepath.Join(dirPath, entry.Name), prefix+entry.Name+"/", paths); err != nil {
				return err
			}
			continue
		}

		if Matches(entry) {
			*paths = append(*paths, prefix+entry.Name)
			continue
		}

		w.log.Debug("skipping file", zap.String("path", prefix+entry.Name))
	}

	return nil
}

// Write walks root and renders the listing to out. Nothing is written if the walk fails.
func (w *Walker) Write(ctx context.Context, root string, out io.Writer) error {
	urls, err := w.Walk(ctx, root)
	if err != nil {
		return fmt.Errorf("failed to walk upload root: %w", err)
	}

	return Render(out, urls)
}

// Matches reports whether entry is a published file
func Matches(entry models.DirectoryEntry) bool {
	return !entry.IsDir && strings.HasSuffix(entry.Name, Suffix)
}

// Render writes urls one per line between the preformatted text markers
func Render(out io.Writer, urls []string) error {
	var b strings.Builder
	b.WriteString(openMarker)
	for _, u := range urls {
		b.WriteString(u)
		b.WriteByte('\n')
	}
	b.WriteString(closeMarker)

	if _, err := io.WriteString(out, b.String()); err != nil {
		return fmt.Errorf("failed to write listing: %w", err)
	}

	return nil
}
