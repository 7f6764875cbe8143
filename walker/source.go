package walker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"upload-index/models"

	"github.com/spf13/afero"
)

var (
	ErrDirectoryNotFound = errors.New("directory not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrNotDirectory      = errors.New("not a directory")
)

// Source lists the entries of a single directory
type Source interface {
	Stat(ctx context.Context, entryPath string) (models.DirectoryEntry, error)
	ListDir(ctx context.Context, dirPath string) ([]models.DirectoryEntry, error)
}

// FsSource lists directories of an afero filesystem
type FsSource struct {
	fs afero.Fs
}

// NewFsSource creates a source backed by fsys
func NewFsSource(fsys afero.Fs) *FsSource {
	return &FsSource{fs: fsys}
}

// NewOsSource creates a source backed by the operating system filesystem
func NewOsSource() *FsSource {
	return NewFsSource(afero.NewOsFs())
}

// Stat describes a single path
func (s *FsSource) Stat(ctx context.Context, entryPath string) (models.DirectoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return models.DirectoryEntry{}, err
	}

	info, err := s.fs.Stat(entryPath)
	if err != nil {
		return models.DirectoryEntry{}, classify(err)
	}

	return models.DirectoryEntry{Name: info.Name(), IsDir: info.IsDir()}, nil
}

// ListDir reads dirPath without following symlinks. Entries come back sorted by name.
func (s *FsSource) ListDir(ctx context.Context, dirPath string) ([]models.DirectoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infos, err := afero.ReadDir(s.fs, dirPath)
	if err != nil {
		return nil, classify(err)
	}

	entries := make([]models.DirectoryEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, models.DirectoryEntry{
			Name:  info.Name(),
			IsDir: info.IsDir(),
		})
	}

	return entries, nil
}

// classify maps filesystem errors onto the walker's error kinds. err already
// names the path.
func classify(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrDirectoryNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	default:
		return fmt.Errorf("failed to list directory: %w", err)
	}
}
