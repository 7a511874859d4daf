package vfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// ErrOutsideHome is returned when a path, after following symlinks, lands
// outside the session's home.
var ErrOutsideHome = errors.New("path escapes home directory")

const maxLinkHops = 40

// EvalSymlinks resolves every symlink in p through fs. A missing tail is
// appended unresolved, so paths about to be created resolve too. Filesystems
// without symlink support return p cleaned.
func EvalSymlinks(fs afero.Fs, p string) (string, error) {
	lst, ok := fs.(afero.Lstater)
	if !ok {
		return filepath.Clean(p), nil
	}
	lr, ok := fs.(afero.LinkReader)
	if !ok {
		return filepath.Clean(p), nil
	}

	p = filepath.Clean(p)
	vol := filepath.VolumeName(p)
	root := vol + string(filepath.Separator)
	resolved := root
	queue := splitPath(p[len(vol):])
	hops := 0

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		switch name {
		case "", ".":
			continue
		case "..":
			resolved = filepath.Dir(resolved)
			continue
		}

		next := filepath.Join(resolved, name)
		fi, lstatUsed, err := lst.LstatIfPossible(next)
		if errors.Is(err, os.ErrNotExist) {
			return filepath.Join(append([]string{next}, queue...)...), nil
		}
		if err != nil {
			return "", err
		}
		if !lstatUsed || fi.Mode()&os.ModeSymlink == 0 {
			resolved = next
			continue
		}

		if hops++; hops > maxLinkHops {
			return "", fmt.Errorf("%s: too many levels of symbolic links", p)
		}
		target, err := lr.ReadlinkIfPossible(next)
		if err != nil {
			return "", err
		}
		if filepath.IsAbs(target) {
			resolved = root
		}
		queue = append(splitPath(target), queue...)
	}
	return resolved, nil
}

func splitPath(p string) []string {
	return strings.Split(filepath.ToSlash(p), "/")
}

// Jail is an afero.Fs that refuses any path whose symlink-resolved form is
// not inside home. Paths are real paths, as produced by Resolve.
type Jail struct {
	base afero.Fs
	home string
}

// NewJail confines base to home.
func NewJail(base afero.Fs, home string) *Jail {
	return &Jail{base: base, home: filepath.Clean(home)}
}

// Check resolves name and home and reports ErrOutsideHome when name
// escapes. It does not require name to exist.
func (j *Jail) Check(name string) error {
	realHome, err := EvalSymlinks(j.base, j.home)
	if err != nil {
		return err
	}
	target, err := EvalSymlinks(j.base, name)
	if err != nil {
		return err
	}
	if !Within(realHome, target) {
		return &os.PathError{Op: "jail", Path: name, Err: ErrOutsideHome}
	}
	return nil
}

func (j *Jail) Create(name string) (afero.File, error) {
	if err := j.Check(name); err != nil {
		return nil, err
	}
	return j.base.Create(name)
}

func (j *Jail) Mkdir(name string, perm os.FileMode) error {
	if err := j.Check(name); err != nil {
		return err
	}
	return j.base.Mkdir(name, perm)
}

func (j *Jail) MkdirAll(path string, perm os.FileMode) error {
	if err := j.Check(path); err != nil {
		return err
	}
	return j.base.MkdirAll(path, perm)
}

func (j *Jail) Open(name string) (afero.File, error) {
	if err := j.Check(name); err != nil {
		return nil, err
	}
	return j.base.Open(name)
}

func (j *Jail) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if err := j.Check(name); err != nil {
		return nil, err
	}
	return j.base.OpenFile(name, flag, perm)
}

func (j *Jail) Remove(name string) error {
	if err := j.Check(name); err != nil {
		return err
	}
	return j.base.Remove(name)
}

func (j *Jail) RemoveAll(path string) error {
	if err := j.Check(path); err != nil {
		return err
	}
	return j.base.RemoveAll(path)
}

func (j *Jail) Rename(oldname, newname string) error {
	if err := j.Check(oldname); err != nil {
		return err
	}
	if err := j.Check(newname); err != nil {
		return err
	}
	return j.base.Rename(oldname, newname)
}

func (j *Jail) Stat(name string) (os.FileInfo, error) {
	if err := j.Check(name); err != nil {
		return nil, err
	}
	return j.base.Stat(name)
}

func (j *Jail) Name() string { return "jail" }

func (j *Jail) Chmod(name string, mode os.FileMode) error {
	if err := j.Check(name); err != nil {
		return err
	}
	return j.base.Chmod(name, mode)
}

func (j *Jail) Chown(name string, uid, gid int) error {
	if err := j.Check(name); err != nil {
		return err
	}
	return j.base.Chown(name, uid, gid)
}

func (j *Jail) Chtimes(name string, atime, mtime time.Time) error {
	if err := j.Check(name); err != nil {
		return err
	}
	return j.base.Chtimes(name, atime, mtime)
}

var _ afero.Fs = (*Jail)(nil)
