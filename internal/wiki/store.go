package wiki

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
)

// PageExt is the file extension of page sources.
const PageExt = ".txt"

var pageNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

var (
	ErrInvalidPageName = errors.New("invalid page name")
	ErrPageNotFound    = errors.New("page not found")
)

// Store reads page sources from a directory.
type Store struct {
	Dir string
}

// IsValidPageName reports whether name can be used to address a page.
func IsValidPageName(name string) bool {
	return pageNameRegex.MatchString(name)
}

// Load returns the source of the named page.
func (s Store) Load(name string) (string, error) {
	if !IsValidPageName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPageName, name)
	}

	data, err := os.ReadFile(filepath.Join(s.Dir, name+PageExt))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrPageNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read page %s: %w", name, err)
	}
	return string(data), nil
}
