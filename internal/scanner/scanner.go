package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// FileWalker is responsible for enumerating the artifact files under a root
type FileWalker struct {
	Extensions   map[string]struct{}
	Excludes     []string
	UseGitignore bool
}

func NewFileWalker(exts []string, excludes []string) *FileWalker {
	e := make(map[string]struct{})
	for _, ext := range exts {
		e[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &FileWalker{
		Extensions: e,
		Excludes:   excludes,
	}
}

// Walk traverses root once and returns every matching file in
// lexicographic path order. Processing order, and therefore edge order in
// the diagram, depends on this ordering being stable across runs.
func (fw *FileWalker) Walk(ctx context.Context, root string) ([]string, error) {
	matcher, err := fw.matcher(root)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if fw.ExcludesDir(d.Name()) || ignored(matcher, rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if fw.ExcludesFile(d.Name()) || ignored(matcher, rel, false) {
			return nil
		}

		if fw.Matches(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

// ExcludesDir reports whether a directory with this base name is skipped:
// hidden directories and names matching an exclude pattern.
func (fw *FileWalker) ExcludesDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	return fw.excluded(name)
}

// ExcludesFile reports whether a file base name matches an exclude pattern.
func (fw *FileWalker) ExcludesFile(name string) bool {
	return fw.excluded(name)
}

func (fw *FileWalker) excluded(name string) bool {
	for _, exclude := range fw.Excludes {
		if matched, _ := filepath.Match(exclude, name); matched {
			return true
		}
	}
	return false
}

// Includes reports whether path, a file below root, is one Walk would
// return. The file itself need not exist.
func (fw *FileWalker) Includes(root, path string) bool {
	if !fw.Matches(path) {
		return false
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	pathAbs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(rootAbs, pathAbs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	for _, dir := range parts[:len(parts)-1] {
		if fw.ExcludesDir(dir) {
			return false
		}
	}
	if fw.ExcludesFile(parts[len(parts)-1]) {
		return false
	}

	matcher, err := fw.matcher(root)
	if err != nil {
		return false
	}
	for i := 1; i < len(parts); i++ {
		if ignored(matcher, filepath.Join(parts[:i]...), true) {
			return false
		}
	}
	return !ignored(matcher, rel, false)
}

// Matches reports whether the file has one of the walker's extensions.
func (fw *FileWalker) Matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if len(ext) > 0 {
		ext = ext[1:] // remove dot
	}
	_, ok := fw.Extensions[ext]
	return ok
}

// matcher returns the root .gitignore matcher, nil when gitignore support
// is off or the file is absent.
func (fw *FileWalker) matcher(root string) (gitignore.Matcher, error) {
	if !fw.UseGitignore {
		return nil, nil
	}
	patterns, err := loadGitignore(root)
	if err != nil || len(patterns) == 0 {
		return nil, err
	}
	return gitignore.NewMatcher(patterns), nil
}

func ignored(matcher gitignore.Matcher, rel string, isDir bool) bool {
	if matcher == nil {
		return false
	}
	return matcher.Match(strings.Split(rel, string(filepath.Separator)), isDir)
}

// loadGitignore reads the .gitignore at root, if any.
func loadGitignore(root string) ([]gitignore.Pattern, error) {
	content, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns, nil
}
