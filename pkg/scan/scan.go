// Package scan lists the image files a stamping run should consider.
package scan

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type Options struct {
	// MaxDepth limits recursion. 0 lists only the root directory, -1 is unlimited.
	MaxDepth int

	// Extensions are matched case-insensitively.
	Extensions []string

	// Skip, when set, excludes files by their slash-separated relative path.
	Skip func(rel string) bool
}

func DefaultOptions() Options {
	return Options{
		MaxDepth:   0,
		Extensions: []string{".jpg", ".jpeg", ".png"},
	}
}

type Record struct {
	Path          string    `json:"path"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	ModTime       time.Time `json:"mod_time"`
}

func Scan(fsys fs.FS, root string, opts Options) ([]string, error) {
	records, err := ScanRecords(fsys, root, opts)
	if err != nil {
		return nil, err
	}

	matches := make([]string, 0, len(records))
	for _, r := range records {
		matches = append(matches, r.Path)
	}
	return matches, nil
}

// ScanRecords walks root and returns matching files sorted by path.
func ScanRecords(fsys fs.FS, root string, opts Options) ([]Record, error) {
	if opts.MaxDepth < -1 {
		return nil, fs.ErrInvalid
	}

	exts := normalizeExts(opts.Extensions)

	var matches []Record

	err := fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if opts.MaxDepth >= 0 && depth(rel) >= opts.MaxDepth {
				return fs.SkipDir
			}
			return nil
		}

		if !exts[strings.ToLower(filepath.Ext(rel))] {
			return nil
		}
		if opts.Skip != nil && opts.Skip(rel) {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}

		matches = append(matches, Record{
			Path:          rel,
			FileSizeBytes: info.Size(),
			ModTime:       info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Path < matches[j].Path
	})
	return matches, nil
}

func normalizeExts(exts []string) map[string]bool {
	m := make(map[string]bool, len(exts))
	for _, ext := range exts {
		e := strings.TrimSpace(strings.ToLower(ext))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		m[e] = true
	}
	return m
}

// depth counts the directories between root and rel.
func depth(rel string) int {
	return strings.Count(rel, "/")
}
