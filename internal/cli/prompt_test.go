package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/transcriptprune/transcriptprune/internal/boundary"
)

func testBoundaries() []boundary.Boundary {
	return []boundary.Boundary{
		{LineNumber: 10, Kind: boundary.KindExplicitMarker, Description: "feat: x", RetentionPercentage: 40},
		{LineNumber: 3, Kind: boundary.KindDerivedCommit, Description: "fix: y", RetentionPercentage: 80},
	}
}

func TestPromptBoundaryChoice_ValidChoice(t *testing.T) {
	in := strings.NewReader("1\n")
	var out bytes.Buffer

	line, ok, err := PromptBoundaryChoice(in, &out, testBoundaries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || line != 10 {
		t.Fatalf("line = %d, ok = %v, want 10, true", line, ok)
	}
	if !strings.Contains(out.String(), "feat: x") {
		t.Fatalf("expected rendered boundary list, got: %s", out.String())
	}
}

func TestPromptBoundaryChoice_BlankCancels(t *testing.T) {
	in := strings.NewReader("\n")
	var out bytes.Buffer

	_, ok, err := PromptBoundaryChoice(in, &out, testBoundaries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected cancellation, got ok=true")
	}
}

func TestPromptBoundaryChoice_OutOfRange(t *testing.T) {
	in := strings.NewReader("99\n")
	var out bytes.Buffer

	if _, _, err := PromptBoundaryChoice(in, &out, testBoundaries()); err == nil {
		t.Fatal("expected error for out-of-range choice")
	}
}

func TestPromptBoundaryChoice_NoBoundaries(t *testing.T) {
	in := strings.NewReader("")
	var out bytes.Buffer

	_, ok, err := PromptBoundaryChoice(in, &out, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for empty boundary list")
	}
}
