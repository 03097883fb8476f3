package contracts

import "strings"

// FileMap maps an installer file identifier to its slash separated package path.
type FileMap map[string]string

// Relative reports the part of path below prefix, matching whole segments only.
// A path equal to the prefix is not below it.
func Relative(path, prefix string) (string, bool) {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return path, path != ""
	}
	if !strings.HasPrefix(path, prefix+"/") {
		return "", false
	}
	relative := path[len(prefix)+1:]
	return relative, relative != ""
}
