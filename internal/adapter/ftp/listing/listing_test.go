package listing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func TestTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		mtime time.Time
		want  string
	}{
		{"recent", time.Date(2024, time.June, 1, 9, 5, 0, 0, time.UTC), "Jun  1 09:05"},
		{"two digit day", time.Date(2024, time.March, 14, 23, 59, 0, 0, time.UTC), "Mar 14 23:59"},
		{"old", time.Date(2023, time.March, 4, 10, 0, 0, 0, time.UTC), "Mar  4 2023"},
		{"future within window", time.Date(2024, time.July, 1, 8, 0, 0, 0, time.UTC), "Jul  1 08:00"},
		{"far future", time.Date(2026, time.January, 10, 8, 0, 0, 0, time.UTC), "Jan 10 2026"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Timestamp(tt.mtime, now))
		})
	}
}

func TestFormatFileAndDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/home/docs", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/home/report.txt", make([]byte, 1024), 0o644))

	mtime := time.Date(2024, time.June, 4, 10, 15, 0, 0, time.UTC)
	require.NoError(t, fs.Chtimes("/home/docs", mtime, mtime))
	require.NoError(t, fs.Chtimes("/home/report.txt", mtime, mtime))

	entries, err := ReadDir(fs, "/home")
	require.NoError(t, err)

	lines := Format(entries, now)
	assert.Equal(t, []string{
		"drwxr-xr-x 1 owner group 0 Jun  4 10:15 docs",
		"-rw-r--r-- 1 owner group 1024 Jun  4 10:15 report.txt",
	}, lines)
}

func TestFormatEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/empty", 0o755))

	entries, err := ReadDir(fs, "/empty")
	require.NoError(t, err)

	lines := Format(entries, now)
	assert.Empty(t, lines)
	assert.Empty(t, Encode(lines))
}

func TestReadDirMissing(t *testing.T) {
	_, err := ReadDir(afero.NewMemMapFs(), "/nope")
	assert.True(t, os.IsNotExist(err))
}

func TestReadDirSkipsDanglingEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone"), filepath.Join(dir, "dangling")))

	entries, err := ReadDir(afero.NewOsFs(), dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ok.txt", entries[0].Name())
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "a\r\nb\r\n", string(Encode([]string{"a", "b"})))
}

func TestLineKeepsSpacesInName(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/my file.txt", []byte("abc"), 0o644))
	fi, err := fs.Stat("/my file.txt")
	require.NoError(t, err)

	line := Line(fi, fi.ModTime())
	assert.Regexp(t, `^-rw-r--r-- 1 owner group 3 [A-Z][a-z]{2} [ 1-3][0-9] \d\d:\d\d my file\.txt$`, line)
}
