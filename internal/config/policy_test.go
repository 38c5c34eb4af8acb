package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_CompilesAndMatchesBuiltInBehavior(t *testing.T) {
	cfg := Default()
	if cfg.DefaultKeepAssistants != 3 {
		t.Fatalf("expected default_keep_assistants=3, got %d", cfg.DefaultKeepAssistants)
	}

	opts := cfg.BoundaryOptions()
	if opts.MarkerToken != "===INTENT_BOUNDARY===" {
		t.Fatalf("unexpected marker token: %q", opts.MarkerToken)
	}
	if len(opts.CommitToolNames) != 1 || opts.CommitToolNames[0] != "bash" {
		t.Fatalf("expected [bash], got %v", opts.CommitToolNames)
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	os.WriteFile(path, []byte(`
version: "1"
default_keep_assistants: 5
marker_token: "===CUSTOM_BOUNDARY==="
commit_pattern: 'git commit -m ["'']([^"'']+)["'']'
commit_tools:
  - name: bash
    substrings: ["files changed"]
  - name: run_shell
    substrings: ["files changed", "insertions"]
`), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultKeepAssistants != 5 {
		t.Fatalf("expected 5, got %d", cfg.DefaultKeepAssistants)
	}
	if cfg.MarkerToken != "===CUSTOM_BOUNDARY===" {
		t.Fatalf("unexpected marker token: %q", cfg.MarkerToken)
	}

	opts := cfg.BoundaryOptions()
	if len(opts.CommitToolNames) != 2 {
		t.Fatalf("expected 2 commit tool names, got %v", opts.CommitToolNames)
	}
	wantSubs := map[string]bool{"files changed": true, "insertions": true}
	for _, s := range opts.CommitSubstrings {
		if !wantSubs[s] {
			t.Fatalf("unexpected substring %q", s)
		}
	}
}

func TestLoad_MissingFieldsFallBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	os.WriteFile(path, []byte(`version: "1"`), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultKeepAssistants != 3 {
		t.Fatalf("expected default fallback of 3, got %d", cfg.DefaultKeepAssistants)
	}
	if cfg.MarkerToken != "===INTENT_BOUNDARY===" {
		t.Fatalf("expected default marker token, got %q", cfg.MarkerToken)
	}
	if len(cfg.CommitTools) != 1 || cfg.CommitTools[0].Name != "bash" {
		t.Fatalf("expected default commit tools, got %v", cfg.CommitTools)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	os.WriteFile(path, []byte(`{{{invalid`), 0644)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_InvalidCommitPattern(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	os.WriteFile(path, []byte(`
version: "1"
commit_pattern: '[invalid'
`), 0644)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid regex")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestBoundaryOptions_DedupesToolNamesAndSubstrings(t *testing.T) {
	cfg := &Config{
		CommitPattern: `git commit -m ["']([^"']+)["']`,
		CommitTools: []CommitTool{
			{Name: "bash", Substrings: []string{"files changed"}},
			{Name: "bash", Substrings: []string{"files changed", "insertions"}},
		},
	}
	if err := cfg.Compile(); err != nil {
		t.Fatal(err)
	}

	opts := cfg.BoundaryOptions()
	if len(opts.CommitToolNames) != 1 {
		t.Fatalf("expected deduped tool names, got %v", opts.CommitToolNames)
	}
	if len(opts.CommitSubstrings) != 2 {
		t.Fatalf("expected deduped substrings, got %v", opts.CommitSubstrings)
	}
}
