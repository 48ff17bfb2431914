package content

import (
	"strings"
)

const invalidLongPackageCharacters = "\\:*?\"<>|' ,.&!~\n\r\t@#"

// IsValidLongPackageName accepts names like /Game/Maps/Arena: rooted, at least two segments, no empty segment,
// and none of the reserved characters.
func IsValidLongPackageName(name string) bool {
	if len(name) < 2 || name[0] != '/' || strings.HasSuffix(name, "/") {
		return false
	}
	if strings.ContainsAny(name, invalidLongPackageCharacters) {
		return false
	}
	segments := strings.Split(name[1:], "/")
	if len(segments) < 2 {
		return false
	}
	for _, s := range segments {
		if s == "" {
			return false
		}
	}
	return true
}

// SplitLongPackageName splits /Game/Maps/Arena into /Game and Maps/Arena.
func SplitLongPackageName(name string) (root, rel string) {
	if !strings.HasPrefix(name, "/") {
		return "", name
	}
	i := strings.IndexByte(name[1:], '/')
	if i < 0 {
		return name, ""
	}
	return name[:i+1], name[i+2:]
}

// ShortName returns the last segment of a package name.
func ShortName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// ObjectPath joins a package and an object name: /Game/Maps/Arena.Arena.
func ObjectPath(pkg, object string) string {
	return pkg + "." + object
}

// SplitObjectPath splits /Game/Maps/Arena.Arena into the package and the object name. A bare package name maps
// to its short name.
func SplitObjectPath(path string) (pkg, object string) {
	if i := strings.LastIndexByte(path, '.'); i > strings.LastIndexByte(path, '/') {
		return path[:i], path[i+1:]
	}
	return path, ShortName(path)
}
