package export

import (
	"path/filepath"
	"strings"
)

const compressedSuffix = "_comp"

// CompressedPath inserts the _comp suffix before the extension.
func CompressedPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + compressedSuffix + ext
}

// StripCompressed removes the _comp suffix from a file base name.
func StripCompressed(name string) string {
	return strings.Replace(name, compressedSuffix, "", 1)
}
