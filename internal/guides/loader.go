package guides

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Load walks dir recursively and builds one Guide per .txt/.md file found.
// Guide text is expected to be plain text already extracted from the source
// document format by an external converter. Files that cannot be read are
// logged and skipped; a missing directory yields zero guides, not an error.
func Load(dir string, maxChunkLen int, logger *log.Logger) ([]Guide, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[GUIDES] ", log.LstdFlags)
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Printf("guide directory does not exist: %s", dir)
		return nil, nil
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(d.Name())) {
		case ".txt", ".md":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var loaded []Guide
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Printf("cannot read guide %s: %v", filepath.Base(path), err)
			continue
		}
		name := filepath.Base(path)
		title := strings.TrimSpace(strings.TrimSuffix(name, filepath.Ext(name)))
		cleaned := strings.TrimSpace(strings.ReplaceAll(string(raw), "\r", ""))
		loaded = append(loaded, Guide{
			ID:           Slugify(title),
			Title:        title,
			DisplayTitle: PrettifyTitle(title),
			Path:         path,
			Chunks:       Chunk(cleaned, maxChunkLen),
		})
	}
	return loaded, nil
}
