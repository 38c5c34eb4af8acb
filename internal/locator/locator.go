// Package locator resolves on-disk transcript paths under
// ~/.claude/projects/<hyphenated-cwd>/, mirroring the directory naming
// convention Claude Code itself uses for per-project session storage.
package locator

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

var nonAlnumRun = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// HyphenateDir collapses every run of non-alphanumeric characters in an
// absolute path into a single '-', e.g. "/home/user/proj" -> "-home-user-proj".
func HyphenateDir(absPath string) string {
	return nonAlnumRun.ReplaceAllString(absPath, "-")
}

// ProjectsRoot returns ~/.claude/projects.
func ProjectsRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".claude", "projects"), nil
}

// ProjectDir returns the project directory for a given working directory,
// ~/.claude/projects/<hyphenated-cwd>.
func ProjectDir(cwd string) (string, error) {
	abs, err := filepath.Abs(cwd)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cwd, err)
	}
	root, err := ProjectsRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, HyphenateDir(abs)), nil
}

// Resolve returns the transcript path for a session id under cwd's project
// directory. If sessionID is empty, it picks the most-recently-modified
// *.jsonl file in that directory. It returns an error, never a panic, when
// the project directory or the target file doesn't exist.
func Resolve(cwd, sessionID string) (string, error) {
	dir, err := ProjectDir(cwd)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("project directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project path %q is not a directory", dir)
	}

	if sessionID != "" {
		path := filepath.Join(dir, sessionID+".jsonl")
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("session transcript %q: %w", path, err)
		}
		return path, nil
	}

	return latestTranscript(dir)
}

func latestTranscript(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read project directory %q: %w", dir, err)
	}

	type candidate struct {
		path    string
		modTime int64
	}
	var candidates []candidate
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{
			path:    filepath.Join(dir, e.Name()),
			modTime: info.ModTime().UnixNano(),
		})
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("no transcript files found in %q", dir)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime > candidates[j].modTime
	})
	return candidates[0].path, nil
}

// HistoryDBPath returns the prune-history.db path for a working directory's
// project directory.
func HistoryDBPath(cwd string) (string, error) {
	dir, err := ProjectDir(cwd)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "prune-history.db"), nil
}
