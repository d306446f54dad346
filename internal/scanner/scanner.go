package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/karrick/godirwalk"

	"github.com/On-Jun9/ShutterOrient/pkg/types"
)

type Scanner struct {
	includeExt map[string]bool
	excludes   []glob.Glob
}

func New(extensions []string) *Scanner {
	extMap := make(map[string]bool)
	for _, ext := range extensions {
		extMap[strings.TrimPrefix(strings.ToLower(ext), ".")] = true
	}
	return &Scanner{includeExt: extMap}
}

// Exclude skips files and directories whose slash-separated path relative to
// the scan root matches one of patterns. "*" stays within a path segment, "**" does not.
func (s *Scanner) Exclude(patterns ...string) error {
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		s.excludes = append(s.excludes, g)
	}
	return nil
}

func (s *Scanner) excluded(root, path string) bool {
	if len(s.excludes) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, g := range s.excludes {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Scan walks root in lexical order and returns every regular file with an included extension.
func (s *Scanner) Scan(root string) ([]types.FileEntry, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("error walking directory %s: %w", root, err)
	}

	var entries []types.FileEntry

	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if s.excluded(root, path) {
				if de.IsDir() {
					return godirwalk.SkipThis
				}
				return nil
			}
			if de.IsDir() {
				return nil
			}

			ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
			if !s.includeExt[ext] {
				return nil
			}

			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}

			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}

			entries = append(entries, types.FileEntry{
				Path:      abs,
				Name:      de.Name(),
				Size:      info.Size(),
				ModTime:   info.ModTime(),
				Extension: ext,
			})
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			// Unreadable subdirectories are skipped, not fatal.
			return godirwalk.SkipNode
		},
		Unsorted: false,
	})

	return entries, err
}
