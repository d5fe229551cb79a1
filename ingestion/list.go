package ingestion

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/skillmatch/core"
)

// Listing is the set of files found in a document directory.
type Listing struct {
	// Paths are the supported files, in name order.
	Paths []string

	// Skipped are regular files with unsupported extensions.
	Skipped []Skipped
}

// ListDocuments returns the regular files directly inside dir whose
// lower-cased extension satisfies supports. Hidden files and
// subdirectories are ignored. Files with other extensions are skipped and
// logged; legacy .doc files get a dedicated reason.
func ListDocuments(dir string, supports func(ext string) bool, logger *slog.Logger) (Listing, error) {
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return Listing{}, fmt.Errorf("%w: %s", core.ErrDirectoryNotFound, dir)
	}
	if err != nil {
		return Listing{}, err
	}
	if !info.IsDir() {
		return Listing{}, fmt.Errorf("%w: %s", core.ErrNotADirectory, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Listing{}, err
	}

	var listing Listing
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, name)
		ext := strings.ToLower(filepath.Ext(name))
		if supports(ext) {
			listing.Paths = append(listing.Paths, path)
			continue
		}

		reason := fmt.Sprintf("unsupported format %q", ext)
		if ext == ".doc" {
			reason = "legacy .doc files are not supported, convert to .docx"
		}
		logger.Warn("skipping unsupported file", "path", path, "reason", reason)
		listing.Skipped = append(listing.Skipped, Skipped{Path: path, Reason: reason})
	}
	return listing, nil
}
