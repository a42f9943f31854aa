// Package artifacts owns the on-disk layout of run evidence: the screenshot
// directory, timestamped file names and post-capture validation.
package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
)

// TimestampLayout renders as YYYYMMDD_HHMMSS.
const TimestampLayout = "20060102_150405"

const extension = ".png"

var (
	ErrMissing  = errors.New("artifact was not created")
	ErrEmpty    = errors.New("artifact is empty")
	ErrTooSmall = errors.New("artifact is smaller than required")
)

// EnsureDirectory creates path (and parents) if absent and returns the cleaned,
// home-expanded directory. Calling it again for an existing directory is a no-op.
func EnsureDirectory(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("artifact directory path is empty")
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand artifact directory %q: %w", path, err)
	}
	dir := filepath.Clean(expanded)

	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return "", fmt.Errorf("artifact path %q exists and is not a directory", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory %q: %w", dir, err)
	}
	return dir, nil
}

// GeneratePath returns <dir>/<prefix>_<YYYYMMDD_HHMMSS>.png for the given instant.
// Two calls within the same second collide; callers add a disambiguator.
func GeneratePath(dir, prefix string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", prefix, now.Format(TimestampLayout), extension))
}

// WithDisambiguator inserts _<tag> before the extension:
// streamer_20250101_120000.png -> streamer_20250101_120000_streamer2.png.
func WithDisambiguator(path, tag string) string {
	if tag == "" {
		return path
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return base + "_" + tag + extension
}

// Slug turns a free-form name into a file name fragment: anything outside
// [A-Za-z0-9_-] becomes an underscore.
func Slug(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, name)
}

// Verify checks that the artifact exists and is non-empty, and, when minBytes
// is positive, strictly larger than minBytes. It returns the file size.
func Verify(path string, minBytes int64) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrMissing, path)
		}
		return 0, fmt.Errorf("failed to stat artifact %s: %w", path, err)
	}
	size := info.Size()
	if size == 0 {
		return 0, fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	if minBytes > 0 && size <= minBytes {
		return size, fmt.Errorf("%w: %s is %d bytes, need more than %d", ErrTooSmall, path, size, minBytes)
	}
	return size, nil
}

// Directory is an ensured artifact root with its own clock.
type Directory struct {
	root string
	now  func() time.Time
}

// NewDirectory ensures path exists and returns a Directory rooted at it.
// A nil clock defaults to time.Now.
func NewDirectory(path string, now func() time.Time) (*Directory, error) {
	root, err := EnsureDirectory(path)
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &Directory{root: root, now: now}, nil
}

// Root returns the ensured directory.
func (d *Directory) Root() string { return d.root }

// Path generates a timestamped path under the root, applying each non-empty tag in order.
func (d *Directory) Path(prefix string, tags ...string) string {
	p := GeneratePath(d.root, prefix, d.now())
	for _, tag := range tags {
		p = WithDisambiguator(p, tag)
	}
	return p
}

// File returns root/name for non-image artifacts such as reports.
func (d *Directory) File(name string) string {
	return filepath.Join(d.root, name)
}
