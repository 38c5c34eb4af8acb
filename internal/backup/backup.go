// Package backup snapshots transcript files before they're overwritten,
// and restores them back, so a prune (or a restore) is never the last copy
// of a transcript.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const backupDirName = "prune-backup"

// Snapshot copies the transcript at sessionPath byte-for-byte into
// <projectDir>/prune-backup/<sessionId>.jsonl.<unix-ms>, creating the
// prune-backup directory if it doesn't exist. If a backup with that name
// already exists, the millisecond suffix is advanced until the name is free,
// so an existing backup is never overwritten. It returns the backup's path.
func Snapshot(projectDir, sessionID, sessionPath string) (string, error) {
	dir := filepath.Join(projectDir, backupDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory %q: %w", dir, err)
	}

	ms := time.Now().UnixMilli()
	dest := filepath.Join(dir, fmt.Sprintf("%s.jsonl.%d", sessionID, ms))
	for {
		if _, err := os.Lstat(dest); err != nil {
			break
		}
		ms++
		dest = filepath.Join(dir, fmt.Sprintf("%s.jsonl.%d", sessionID, ms))
	}
	if err := copyFile(sessionPath, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// Entry describes one available backup.
type Entry struct {
	Path      string
	Timestamp time.Time
}

// List returns the backups for a session, newest first.
func List(projectDir, sessionID string) ([]Entry, error) {
	dir := filepath.Join(projectDir, backupDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup directory %q: %w", dir, err)
	}

	prefix := sessionID + ".jsonl."
	var out []Entry
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		msStr := strings.TrimPrefix(e.Name(), prefix)
		ms, err := strconv.ParseInt(msStr, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Path:      filepath.Join(dir, e.Name()),
			Timestamp: time.UnixMilli(ms),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// Restore copies a chosen backup back over the live transcript at
// sessionPath. It first snapshots the file about to be overwritten, so the
// restore itself can be undone with another Restore call.
func Restore(projectDir, sessionID, sessionPath, backupPath string) (preRestoreSnapshot string, err error) {
	if _, err := os.Stat(sessionPath); err == nil {
		preRestoreSnapshot, err = Snapshot(projectDir, sessionID, sessionPath)
		if err != nil {
			return "", fmt.Errorf("snapshot before restore: %w", err)
		}
	}

	if err := copyFile(backupPath, sessionPath); err != nil {
		return preRestoreSnapshot, fmt.Errorf("restore %q over %q: %w", backupPath, sessionPath, err)
	}
	return preRestoreSnapshot, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %q: %w", src, err)
	}
	defer in.Close()

	tmp := dest + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %q: %w", tmp, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("copy %q to %q: %w", src, tmp, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %q: %w", tmp, err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %q to %q: %w", tmp, dest, err)
	}
	return nil
}
