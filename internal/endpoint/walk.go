package endpoint

import (
	"os"
	"path/filepath"
)

// SkippedFile records a per-file I/O error encountered during discovery
// (spec §7: skipped, not fatal).
type SkippedFile struct {
	File   string
	Reason string
}

var recognizedExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
}

func isRecognizedExtension(ext string) bool {
	return recognizedExtensions[ext]
}

var ignoredDirs = map[string]bool{
	"node_modules": true, ".git": true, ".next": true, "dist": true,
	"build": true, "coverage": true, ".protoscan": true,
}

// walkSourceTree walks dir depth-first over recognized source files,
// calling visit(path) for every file where match(path) is true.
func walkSourceTree(dir string, match func(path string) bool, visit func(path string)) {
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if path != dir && ignoredDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !isRecognizedExtension(filepath.Ext(path)) {
			return nil
		}
		if match(path) {
			visit(path)
		}
		return nil
	})
}
