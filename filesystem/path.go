package filesystem

import (
	"path"
	"strings"
)

const (
	// Separator delimits path segments
	Separator = "/"
	// RootName is the root directory's name and path sentinel
	RootName = "@"
	// RootContentID is the root directory's contentID
	RootContentID = "root"
)

// Clean normalizes a tree path. Paths are root-relative without a leading
// separator so "/docs", "@/docs" and "docs/" all clean to "docs".
// The root itself cleans to "".
func Clean(p string) string {
	p = strings.TrimSpace(p)
	if p == RootName {
		return ""
	}
	p = strings.TrimPrefix(p, RootName+Separator)
	p = strings.Trim(p, Separator)
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	if p == "." {
		return ""
	}
	return p
}

// Join returns the path of a node called name under parentPath
func Join(parentPath, name string) string {
	parentPath = Clean(parentPath)
	if parentPath == "" {
		return name
	}
	return parentPath + Separator + name
}

// Split returns the parent path and name of p.
// Split("docs/sub/readme.md") = ("docs/sub", "readme.md")
func Split(p string) (parentPath, name string) {
	p = Clean(p)
	i := strings.LastIndex(p, Separator)
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}

// Segments returns every ancestor prefix of p including p itself, shallowest
// first. Segments("a/b/c") = ["a", "a/b", "a/b/c"]. The root yields nothing.
func Segments(p string) []string {
	p = Clean(p)
	if p == "" {
		return nil
	}
	parts := strings.Split(p, Separator)
	segs := make([]string, len(parts))
	for i := range parts {
		segs[i] = strings.Join(parts[:i+1], Separator)
	}
	return segs
}

// ValidName reports whether name can be used as a single path segment
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." || name == RootName {
		return false
	}
	return !strings.Contains(name, Separator)
}

// isWithin reports whether p equals ancestor or lies below it
func isWithin(p, ancestor string) bool {
	return p == ancestor || strings.HasPrefix(p, ancestor+Separator)
}
