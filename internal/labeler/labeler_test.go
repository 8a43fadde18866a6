package labeler

import (
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/qlabel/internal/document"
)

func TestLabel_InlineLabelConverted(t *testing.T) {
	in := document.SplitLines("```{r setup}\nlibrary(dplyr)\n```\n")
	l := New(Options{})

	out, res, err := l.Label("intro.qmd", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != "```{r}\n#| label: setup\n" {
		t.Errorf("expected header with setup label, got %q", out[0])
	}
	if out[1] != "library(dplyr)\n" || out[2] != "```\n" {
		t.Errorf("expected remaining lines untouched, got %q", out[1:])
	}
	if res.Preserved != 1 || res.Synthesized != 0 || !res.Changed {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestLabel_SynthesizedSequence(t *testing.T) {
	in := document.SplitLines("```{r}\nx <- 1\n```\n\ntext\n\n```{r}\ny <- 2\n```\n")
	l := New(Options{})

	out, res, err := l.Label("chapters/intro.qmd", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != "```{r}\n#| label: intro-1\n" {
		t.Errorf("first chunk: got %q", out[0])
	}
	if out[6] != "```{r}\n#| label: intro-2\n" {
		t.Errorf("second chunk: got %q", out[6])
	}
	if res.Synthesized != 2 {
		t.Errorf("expected 2 synthesized, got %d", res.Synthesized)
	}
}

func TestLabel_InlineLabelDoesNotConsumeSequence(t *testing.T) {
	in := document.SplitLines("```{r}\na\n```\n```{r named}\nb\n```\n```{r}\nc\n```\n")
	out, _, err := New(Options{}).Label("doc.qmd", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[int]string{
		0: "```{r}\n#| label: doc-1\n",
		3: "```{r}\n#| label: named\n",
		6: "```{r}\n#| label: doc-2\n",
	}
	for i, w := range want {
		if out[i] != w {
			t.Errorf("line %d: expected %q, got %q", i, w, out[i])
		}
	}
}

func TestLabel_ExistingAnnotationKept(t *testing.T) {
	in := document.SplitLines("```{r}\n#| label: custom\nplot(x)\n```\n```{r}\nsummary(x)\n```\n")
	out, res, err := New(Options{}).Label("ch1.qmd", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d lines, got %d", len(in), len(out))
	}
	if out[0] != "```{r}\n" {
		t.Errorf("expected bare marker, got %q", out[0])
	}
	if out[1] != "#| label: custom\n" {
		t.Errorf("expected label line untouched, got %q", out[1])
	}
	// The annotated chunk still consumed ch1-1.
	if out[4] != "```{r}\n#| label: ch1-2\n" {
		t.Errorf("expected second chunk labeled ch1-2, got %q", out[4])
	}
	if res.Annotated != 1 || res.Synthesized != 2 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestLabel_InlineLabelWithAnnotationBelow(t *testing.T) {
	in := document.SplitLines("```{r legacy}\n#| label: modern\n```\n")
	out, _, err := New(Options{}).Label("a.qmd", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != "```{r}\n" || out[1] != "#| label: modern\n" {
		t.Errorf("expected bare marker over existing label, got %q", out[:2])
	}
}

func TestLabel_WrongExtension(t *testing.T) {
	_, _, err := New(Options{}).Label("notes.txt", document.SplitLines("```{r}\nx\n```\n"))
	if !errors.Is(err, ErrInvalidInputKind) {
		t.Fatalf("expected ErrInvalidInputKind, got %v", err)
	}
	if !strings.Contains(err.Error(), "notes.txt") {
		t.Errorf("expected error to name the file, got %q", err)
	}
}

func TestLabel_NonHeaderLinesPassThrough(t *testing.T) {
	in := document.SplitLines("---\ntitle: Intro\n---\n\n# Heading\n\n```python\nprint(1)\n```\n\nInline `r 1+1`.\n")
	out, res, err := New(Options{}).Label("intro.qmd", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Chunks != 0 || res.Changed {
		t.Errorf("expected no chunks, got %+v", res)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("line %d changed: %q -> %q", i, in[i], out[i])
		}
	}
}

func TestLabel_DoesNotMutateInput(t *testing.T) {
	in := document.SplitLines("```{r}\nx\n```\n")
	orig := append([]string(nil), in...)
	if _, _, err := New(Options{}).Label("a.qmd", in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range orig {
		if in[i] != orig[i] {
			t.Errorf("input line %d mutated: %q", i, in[i])
		}
	}
}

func TestLabel_Idempotent(t *testing.T) {
	docs := []string{
		"```{r setup}\nlibrary(x)\n```\n\n```{r}\nplot(1)\n```\n",
		"```{r}\n#| label: fig-a\n```\n```{r b}\n```\n```{r}\n```\n",
	}
	l := New(Options{})
	for _, doc := range docs {
		once, _, err := l.Label("doc.qmd", document.SplitLines(doc))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		first := strings.Join(once, "")

		twice, res, err := l.Label("doc.qmd", document.SplitLines(first))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if second := strings.Join(twice, ""); second != first {
			t.Errorf("second pass changed output:\nfirst:  %q\nsecond: %q", first, second)
		}
		if res.Changed {
			t.Errorf("expected second pass to report no change")
		}
	}
}

func TestLabel_TrailingHeader(t *testing.T) {
	in := document.SplitLines("text\n```{r}")

	out, _, err := New(Options{}).Label("end.qmd", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[1] != "```{r}\n#| label: end-1\n" {
		t.Errorf("expected trailing header to receive a label, got %q", out[1])
	}

	_, _, err = New(Options{Strict: true}).Label("end.qmd", in)
	if !errors.Is(err, ErrMalformedChunk) {
		t.Fatalf("expected ErrMalformedChunk in strict mode, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected error to name line 2, got %q", err)
	}
}

func TestLabel_CRLFPreserved(t *testing.T) {
	in := document.SplitLines("```{r setup}\r\nx\r\n```\r\n")
	out, _, err := New(Options{}).Label("win.qmd", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != "```{r}\r\n#| label: setup\r\n" {
		t.Errorf("expected CRLF replacement, got %q", out[0])
	}
}

func TestLabel_DegenerateInlineLabel(t *testing.T) {
	out, res, err := New(Options{}).Label("a.qmd", document.SplitLines("```{r }\nx\n```\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != "```{r}\n#| label: \n" {
		t.Errorf("expected empty label preserved, got %q", out[0])
	}
	if res.Preserved != 1 || res.Synthesized != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestLabel_DuplicateInlineLabelsPassThrough(t *testing.T) {
	out, _, err := New(Options{}).Label("a.qmd", document.SplitLines("```{r same}\n```\n```{r same}\n```\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != out[2] || out[0] != "```{r}\n#| label: same\n" {
		t.Errorf("expected both chunks labeled same, got %q and %q", out[0], out[2])
	}
}

func TestStem(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"intro.qmd", "intro"},
		{"chapters/ch1.qmd", "ch1"},
		{"notes.txt", "notes"},
		{"no-ext", "no-ext"},
	}
	for _, tt := range tests {
		if got := Stem(tt.path); got != tt.want {
			t.Errorf("path=%q: expected %q, got %q", tt.path, tt.want, got)
		}
	}
}

func TestLabelLines_UsesNameHintVerbatim(t *testing.T) {
	out, _, err := New(Options{}).LabelLines(document.SplitLines("```{r}\nx\n"), "My Chapter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != "```{r}\n#| label: My Chapter-1\n" {
		t.Errorf("got %q", out[0])
	}
}
