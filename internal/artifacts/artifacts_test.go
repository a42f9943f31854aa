package artifacts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedClock = time.Date(2025, time.March, 7, 9, 4, 5, 0, time.UTC)

func TestEnsureDirectory(t *testing.T) {
	t.Run("creates nested directories", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "a", "b", "screenshots")

		dir, err := EnsureDirectory(target)
		require.NoError(t, err)
		assert.Equal(t, target, dir)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("is idempotent", func(t *testing.T) {
		parent := t.TempDir()
		target := filepath.Join(parent, "screenshots")

		first, err := EnsureDirectory(target)
		require.NoError(t, err)
		second, err := EnsureDirectory(target)
		require.NoError(t, err)
		assert.Equal(t, first, second)

		entries, err := os.ReadDir(parent)
		require.NoError(t, err)
		assert.Len(t, entries, 1, "a second call must not create another directory")
	})

	t.Run("rejects a regular file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "occupied")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

		_, err := EnsureDirectory(file)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("rejects empty path", func(t *testing.T) {
		_, err := EnsureDirectory("  ")
		require.Error(t, err)
	})

	t.Run("expands the home directory", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		homedir.DisableCache = true
		t.Cleanup(func() { homedir.DisableCache = false })

		dir, err := EnsureDirectory("~/probe-shots")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "probe-shots"), dir)
	})
}

func TestGeneratePath(t *testing.T) {
	dir := filepath.Join("var", "shots")

	p := GeneratePath(dir, "streamer", fixedClock)
	assert.Equal(t, filepath.Join(dir, "streamer_20250307_090405.png"), p)
	assert.Equal(t, p, GeneratePath(dir, "streamer", fixedClock), "same clock, same path")
	assert.Equal(t, dir, filepath.Dir(p))
	assert.True(t, strings.HasSuffix(p, ".png"))
}

func TestWithDisambiguator(t *testing.T) {
	base := filepath.Join("shots", "streamer_20250307_090405.png")

	assert.Equal(t, filepath.Join("shots", "streamer_20250307_090405_streamer2.png"), WithDisambiguator(base, "streamer2"))
	assert.Equal(t, base, WithDisambiguator(base, ""))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "search_and_capture_streamer0", Slug("search_and_capture/streamer0"))
	assert.Equal(t, "basic_flow", Slug("basic_flow"))
	assert.Equal(t, "a_b_c", Slug("a b.c"))
	assert.Equal(t, "_", Slug("é"))
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, size int) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, make([]byte, size), 0o644))
		return p
	}

	tests := []struct {
		name     string
		path     string
		minBytes int64
		wantSize int64
		wantErr  error
	}{
		{"missing", filepath.Join(dir, "nope.png"), 0, 0, ErrMissing},
		{"empty", write("empty.png", 0), 0, 0, ErrEmpty},
		{"non-empty without minimum", write("small.png", 12), 0, 12, nil},
		{"exactly the minimum is too small", write("edge.png", 100), 100, 100, ErrTooSmall},
		{"above the minimum", write("big.png", 10001), 10000, 10001, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			size, err := Verify(tc.path, tc.minBytes)
			assert.Equal(t, tc.wantSize, size)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDirectory(t *testing.T) {
	d, err := NewDirectory(filepath.Join(t.TempDir(), "screens"), func() time.Time { return fixedClock })
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(d.Root(), "streamer_20250307_090405.png"), d.Path("streamer"))
	assert.Equal(t, filepath.Join(d.Root(), "streamer_20250307_090405_streamer1.png"), d.Path("streamer", "streamer1"))
	assert.Equal(t, filepath.Join(d.Root(), "failure_20250307_090405_basic_flow.png"), d.Path("failure", "", "basic_flow"))
	assert.Equal(t, filepath.Join(d.Root(), "report.json"), d.File("report.json"))
}

func FuzzGeneratePath(f *testing.F) {
	f.Add([]byte("streamer"))
	f.Fuzz(func(t *testing.T, data []byte) {
		c := fuzz.NewConsumer(data)
		prefix, err := c.GetString()
		if err != nil {
			return
		}
		sec, err := c.GetUint32()
		if err != nil {
			return
		}
		if strings.ContainsRune(prefix, filepath.Separator) || strings.ContainsRune(prefix, 0) {
			return
		}
		now := time.Unix(int64(sec), 0).UTC()
		dir := filepath.Join("root", "shots")

		p := GeneratePath(dir, prefix, now)
		if !strings.HasSuffix(p, ".png") {
			t.Fatalf("path %q does not end in .png", p)
		}
		if filepath.Dir(p) != dir {
			t.Fatalf("path %q escaped %q", p, dir)
		}
		if p != GeneratePath(dir, prefix, now) {
			t.Fatalf("path generation is not deterministic for %q", prefix)
		}
	})
}
