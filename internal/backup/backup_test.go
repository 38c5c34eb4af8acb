package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSnapshot_CreatesBackupDirAndCopiesBytes(t *testing.T) {
	projectDir := t.TempDir()
	sessionPath := filepath.Join(t.TempDir(), "abc.jsonl")
	want := []byte(`{"type":"summary"}` + "\n")
	if err := os.WriteFile(sessionPath, want, 0o644); err != nil {
		t.Fatal(err)
	}

	path, err := Snapshot(projectDir, "abc", sessionPath)
	if err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(want) {
		t.Fatalf("backup contents = %q, want %q", got, want)
	}
	if filepath.Dir(path) != filepath.Join(projectDir, backupDirName) {
		t.Fatalf("backup not placed under prune-backup: %s", path)
	}
}

func TestList_NewestFirst(t *testing.T) {
	projectDir := t.TempDir()
	sessionPath := filepath.Join(t.TempDir(), "abc.jsonl")
	os.WriteFile(sessionPath, []byte(`{}`), 0o644)

	first, err := Snapshot(projectDir, "abc", sessionPath)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := Snapshot(projectDir, "abc", sessionPath)
	if err != nil {
		t.Fatal(err)
	}

	entries, err := List(projectDir, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 backups, got %d", len(entries))
	}
	if entries[0].Path != second || entries[1].Path != first {
		t.Fatalf("expected newest-first order, got %v", entries)
	}
}

func TestList_NoBackupDirectoryReturnsEmpty(t *testing.T) {
	entries, err := List(t.TempDir(), "abc")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestList_IgnoresOtherSessionsAndMalformedNames(t *testing.T) {
	projectDir := t.TempDir()
	dir := filepath.Join(projectDir, backupDirName)
	os.MkdirAll(dir, 0o755)
	os.WriteFile(filepath.Join(dir, "other.jsonl.123"), []byte(`{}`), 0o644)
	os.WriteFile(filepath.Join(dir, "abc.jsonl.notanumber"), []byte(`{}`), 0o644)
	os.WriteFile(filepath.Join(dir, "abc.jsonl.456"), []byte(`{}`), 0o644)

	entries, err := List(projectDir, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 matching entry, got %d: %v", len(entries), entries)
	}
}

func TestRestore_SnapshotsCurrentFileThenOverwrites(t *testing.T) {
	projectDir := t.TempDir()
	sessionPath := filepath.Join(t.TempDir(), "abc.jsonl")
	os.WriteFile(sessionPath, []byte(`{"type":"current"}`), 0o644)

	backupPath, err := Snapshot(projectDir, "abc", sessionPath)
	if err != nil {
		t.Fatal(err)
	}
	os.WriteFile(sessionPath, []byte(`{"type":"newer"}`), 0o644)

	preRestore, err := Restore(projectDir, "abc", sessionPath, backupPath)
	if err != nil {
		t.Fatal(err)
	}
	if preRestore == "" {
		t.Fatal("expected a pre-restore snapshot path")
	}

	preRestoreContents, err := os.ReadFile(preRestore)
	if err != nil {
		t.Fatal(err)
	}
	if string(preRestoreContents) != `{"type":"newer"}` {
		t.Fatalf("pre-restore snapshot should capture the overwritten file, got %q", preRestoreContents)
	}

	restored, err := os.ReadFile(sessionPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(restored) != `{"type":"current"}` {
		t.Fatalf("session file not restored, got %q", restored)
	}
}

func TestRestore_NoExistingFileSkipsPreRestoreSnapshot(t *testing.T) {
	projectDir := t.TempDir()
	sessionPath := filepath.Join(t.TempDir(), "abc.jsonl")
	backupPath := filepath.Join(t.TempDir(), "abc.jsonl.1")
	os.WriteFile(backupPath, []byte(`{"type":"backup"}`), 0o644)

	preRestore, err := Restore(projectDir, "abc", sessionPath, backupPath)
	if err != nil {
		t.Fatal(err)
	}
	if preRestore != "" {
		t.Fatalf("expected no pre-restore snapshot, got %q", preRestore)
	}
}
