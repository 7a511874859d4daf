// Package listing renders directory entries in the Unix "ls -l" style most
// FTP clients know how to parse.
package listing

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// RecentWindow is how close to now an mtime must be to be shown with a clock
// time instead of a year.
const RecentWindow = 182 * 24 * time.Hour

const (
	dirMode  = "drwxr-xr-x"
	fileMode = "-rw-r--r--"
	owner    = "owner"
	group    = "group"
)

// Line renders one entry without a line terminator, e.g.
//
//	-rw-r--r-- 1 owner group 1024 Mar  4 10:15 report.txt
func Line(fi os.FileInfo, now time.Time) string {
	mode, size := fileMode, fi.Size()
	if fi.IsDir() {
		mode, size = dirMode, 0
	}

	var sb strings.Builder
	sb.WriteString(mode)
	sb.WriteString(" 1 ")
	sb.WriteString(owner)
	sb.WriteByte(' ')
	sb.WriteString(group)
	sb.WriteByte(' ')
	sb.WriteString(strconv.FormatInt(size, 10))
	sb.WriteByte(' ')
	sb.WriteString(Timestamp(fi.ModTime(), now))
	sb.WriteByte(' ')
	sb.WriteString(fi.Name())
	return sb.String()
}

// Timestamp formats mtime as "Mon DD HH:MM" when it is within RecentWindow of
// now, otherwise as "Mon DD YYYY". The day is space padded to two columns.
func Timestamp(mtime, now time.Time) string {
	d := now.Sub(mtime)
	if d < 0 {
		d = -d
	}
	if d < RecentWindow {
		return mtime.Format("Jan _2 15:04")
	}
	return mtime.Format("Jan _2 2006")
}

// Format renders every entry. The result has one element per entry and no
// line terminators; an empty directory yields an empty slice.
func Format(entries []os.FileInfo, now time.Time) []string {
	lines := make([]string, 0, len(entries))
	for _, fi := range entries {
		if fi == nil {
			continue
		}
		lines = append(lines, Line(fi, now))
	}
	return lines
}

// ReadDir lists dir on fs sorted by name. Entries that cannot be stat'ed are
// skipped instead of failing the whole listing. An error is returned only if
// dir itself cannot be opened or read.
func ReadDir(fs afero.Fs, dir string) ([]os.FileInfo, error) {
	f, err := fs.Open(dir)
	if err != nil {
		return nil, err
	}
	names, err := f.Readdirnames(-1)
	_ = f.Close()
	if err != nil {
		return nil, err
	}

	sort.Strings(names)
	out := make([]os.FileInfo, 0, len(names))
	for _, name := range names {
		fi, err := fs.Stat(dir + string(os.PathSeparator) + name)
		if err != nil {
			continue
		}
		out = append(out, fi)
	}
	return out, nil
}

// Encode joins lines with CRLF terminators, ready for the data connection.
func Encode(lines []string) []byte {
	n := 0
	for _, l := range lines {
		n += len(l) + 2
	}
	buf := make([]byte, 0, n)
	for _, l := range lines {
		buf = append(buf, l...)
		buf = append(buf, '\r', '\n')
	}
	return buf
}
