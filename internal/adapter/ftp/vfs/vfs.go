// Package vfs maps client visible FTP paths onto a user's home directory.
//
// Clients only ever see a virtual tree rooted at "/". Every path a command
// touches is produced by Resolve, which keeps the result inside the home
// directory no matter what the client sends.
package vfs

import (
	"path"
	"path/filepath"
	"strings"
)

// Root is the virtual root every session starts in.
const Root = "/"

// Clean normalizes a virtual path. requested is joined onto cwd when relative,
// ".." segments are collapsed and can never climb above Root.
func Clean(cwd, requested string) string {
	if requested == "" {
		return Root
	}
	if cwd == "" {
		cwd = Root
	}
	// Some clients send Windows separators.
	requested = strings.ReplaceAll(requested, "\\", "/")
	if !strings.HasPrefix(requested, "/") {
		requested = path.Join(cwd, requested)
	}
	return path.Clean("/" + requested)
}

// Resolve returns the real path for requested under home. The result is
// always home itself or a descendant of it; anything else clamps to home.
func Resolve(home, cwd, requested string) string {
	home = filepath.Clean(home)
	virt := Clean(cwd, requested)

	p := filepath.Join(home, filepath.FromSlash(virt))
	if !Within(home, p) {
		return home
	}
	return p
}

// Within reports whether p is home or lies below it.
func Within(home, p string) bool {
	home = filepath.Clean(home)
	p = filepath.Clean(p)
	if p == home {
		return true
	}
	prefix := home
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(p, prefix)
}

// Virtual maps a real path under home back to its slash rooted virtual form.
// Paths outside home map to Root.
func Virtual(home, realPath string) string {
	rel, err := filepath.Rel(filepath.Clean(home), filepath.Clean(realPath))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return Root
	}
	if rel == "." {
		return Root
	}
	return "/" + filepath.ToSlash(rel)
}
