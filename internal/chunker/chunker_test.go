// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package chunker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/kb-ingest/pkg/types"
)

func TestSplitGroupsParagraphsUnderBound(t *testing.T) {
	// Three paragraphs totaling ~900 characters fit in one chunk.
	p1 := strings.Repeat("a", 300)
	p2 := strings.Repeat("b", 300)
	p3 := strings.Repeat("c", 290)
	text := p1 + "\n\n" + p2 + "\n\n" + p3

	chunks := New(types.ChunkerConfig{MaxChars: 1000}).Split(text)

	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}
	if chunks[0].Index != 0 {
		t.Errorf("chunks[0].Index = %d, want 0", chunks[0].Index)
	}
	for _, p := range []string{p1, p2, p3} {
		if !strings.Contains(chunks[0].Text, p) {
			t.Error("chunk should contain all three paragraphs")
		}
	}
}

func TestSplitStartsNewChunkAtBound(t *testing.T) {
	p1 := strings.Repeat("a", 600)
	p2 := strings.Repeat("b", 600)
	text := p1 + "\n\n" + p2

	chunks := New(types.ChunkerConfig{MaxChars: 1000}).Split(text)

	if len(chunks) != 2 {
		t.Fatalf("len(chunks) = %d, want 2", len(chunks))
	}
	if chunks[0].Text != p1 {
		t.Errorf("chunks[0] = %q..., want first paragraph alone", chunks[0].Text[:10])
	}
	if chunks[1].Text != p2 {
		t.Errorf("chunks[1] = %q..., want second paragraph alone", chunks[1].Text[:10])
	}
	if chunks[0].Index != 0 || chunks[1].Index != 1 {
		t.Errorf("indices = %d, %d, want 0, 1", chunks[0].Index, chunks[1].Index)
	}
}

func TestSplitOversizedParagraphStaysWhole(t *testing.T) {
	// A single paragraph over the bound is emitted as its own chunk,
	// never split mid-paragraph.
	big := strings.Repeat("x", 3000)
	text := "small paragraph\n\n" + big + "\n\nanother small one"

	chunks := New(types.ChunkerConfig{MaxChars: 1000}).Split(text)

	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3", len(chunks))
	}
	if chunks[1].Text != big {
		t.Error("oversized paragraph should be a single intact chunk")
	}
}

func TestSplitEmptyInput(t *testing.T) {
	c := New(types.ChunkerConfig{})
	for _, text := range []string{"", "\n\n\n\n", "   \n\n  \t "} {
		if chunks := c.Split(text); len(chunks) != 0 {
			t.Errorf("Split(%q) = %d chunks, want 0", text, len(chunks))
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	text := strings.Repeat("paragraph one with some words\n\nparagraph two with more words\n\n", 40)
	c := New(types.ChunkerConfig{MaxChars: 500})

	first := c.Split(text)
	second := c.Split(text)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestFingerprintIsPureFunctionOfText(t *testing.T) {
	if SHA256Hex("hello world") != SHA256Hex("hello world") {
		t.Error("identical text must yield identical fingerprints")
	}
	if SHA256Hex("hello world") == SHA256Hex("hello world.") {
		t.Error("different text must yield different fingerprints")
	}
	if len(SHA256Hex("")) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex characters", len(SHA256Hex("")))
	}
}

func TestWithFingerprintReplacesDigest(t *testing.T) {
	c := New(types.ChunkerConfig{}).WithFingerprint(func(text string) string {
		return "fp:" + text[:1]
	})

	chunks := c.Split("alpha\n\nbeta")
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}
	if chunks[0].Fingerprint != "fp:a" {
		t.Errorf("Fingerprint = %q, want custom digest output", chunks[0].Fingerprint)
	}
}

func TestSplitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, []byte("first paragraph\n\nsecond paragraph"), 0o644); err != nil {
		t.Fatal(err)
	}

	chunks, err := New(types.ChunkerConfig{}).SplitFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}

	if _, err := New(types.ChunkerConfig{}).SplitFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for unreadable source")
	}
}
