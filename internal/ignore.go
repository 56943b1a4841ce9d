package internal

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

const IgnoreFilename = ".ucpignore"

// defaultIgnores are never imported as memories.
var defaultIgnores = []string{".git", ScopeDirName, IgnoreFilename}

// IgnoreMatcher decides which files under a root are skipped by import and
// watch. Patterns use gitignore syntax.
type IgnoreMatcher struct {
	patterns []gitignore.Pattern
	basePath string
}

func NewIgnoreMatcher(basePath string) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{
		basePath: basePath,
	}
	for _, p := range defaultIgnores {
		m.patterns = append(m.patterns, gitignore.ParsePattern(p, nil))
	}

	patterns, err := parseIgnoreFile(filepath.Join(basePath, IgnoreFilename))
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	m.patterns = append(m.patterns, patterns...)
	return m, nil
}

func (m *IgnoreMatcher) Match(path string) bool {
	return m.match(path, false)
}

func (m *IgnoreMatcher) MatchDir(path string) bool {
	return m.match(path, true)
}

func (m *IgnoreMatcher) match(path string, isDir bool) bool {
	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return false
		}
		path = abs
	}
	relPath, err := filepath.Rel(m.basePath, path)
	if err != nil || relPath == "." || strings.HasPrefix(relPath, "..") {
		return false
	}

	pathParts := strings.Split(relPath, string(filepath.Separator))

	// later patterns override earlier ones, as in .gitignore
	result := gitignore.NoMatch
	for _, p := range m.patterns {
		if r := p.Match(pathParts, isDir); r != gitignore.NoMatch {
			result = r
		}
	}
	return result == gitignore.Exclude
}

func parseIgnoreFile(path string) ([]gitignore.Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []gitignore.Pattern
	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return patterns, nil
}
