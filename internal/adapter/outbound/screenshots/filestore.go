// Package screenshots writes captured problem images into the per-set
// directory layout under the screenshots root.
package screenshots

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedImage is returned for content that is not PNG or JPEG.
var ErrUnsupportedImage = errors.New("unsupported image type")

// maxDuplicates bounds the "-N" suffix search for a free file name.
const maxDuplicates = 1000

// Location names the directories and file an image is written to.
type Location struct {
	Folder  string
	Course  string
	Set     string
	Problem string
}

// FileStore saves images as <root>/<Folder>/<Course>/<Set>/<Problem>.<ext>.
type FileStore struct {
	root   string
	logger *slog.Logger
}

// NewFileStore creates a FileStore rooted at root.
func NewFileStore(root string, logger *slog.Logger) *FileStore {
	return &FileStore{root: root, logger: logger}
}

// Root returns the screenshots directory.
func (s *FileStore) Root() string {
	return s.root
}

// Save writes data and returns its path relative to the root, using forward
// slashes. Existing files are never overwritten; a "-2", "-3", ... suffix is
// added instead.
func (s *FileStore) Save(loc Location, data []byte) (string, error) {
	ext, err := imageExtension(data)
	if err != nil {
		return "", err
	}

	dirParts := []string{sanitize(loc.Folder), sanitize(loc.Course), sanitize(loc.Set)}
	dir := filepath.Join(append([]string{s.root}, dirParts...)...)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create screenshot directory: %w", err)
	}

	base := sanitize(loc.Problem)
	for n := 1; n <= maxDuplicates; n++ {
		name := base + ext
		if n > 1 {
			name = fmt.Sprintf("%s-%d%s", base, n, ext)
		}
		full := filepath.Join(dir, name)

		f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create screenshot file: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(full)
			return "", fmt.Errorf("write screenshot file: %w", err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(full)
			return "", fmt.Errorf("close screenshot file: %w", err)
		}

		rel := strings.Join(append(dirParts, name), "/")
		s.logger.Debug("screenshot written", "path", rel, "bytes", len(data))
		return rel, nil
	}
	return "", fmt.Errorf("no free file name for %q after %d attempts", base, maxDuplicates)
}

// Remove deletes a file previously returned by Save.
func (s *FileStore) Remove(rel string) error {
	return os.Remove(filepath.Join(s.root, filepath.FromSlash(rel)))
}

func imageExtension(data []byte) (string, error) {
	mtype := mimetype.Detect(data)
	switch {
	case mtype.Is("image/png"):
		return ".png", nil
	case mtype.Is("image/jpeg"):
		return ".jpg", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, mtype.String())
	}
}

// sanitize turns a display name into a single safe path segment:
// spaces become underscores, separators and reserved characters are dropped.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == ' ':
			b.WriteRune('_')
		case r < 0x20, strings.ContainsRune(`<>:"/\|?*`, r):
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), ". ")
	if out == "" {
		return "untitled"
	}
	return out
}
