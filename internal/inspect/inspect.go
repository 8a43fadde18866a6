package inspect

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/qlabel/internal/labeler"
)

// Style describes how a chunk declares its label.
type Style string

const (
	StyleAnnotated Style = "annotated" // #| label: on an option line
	StyleInline    Style = "inline"    // ```{r name}
	StyleNone      Style = "none"
)

// Chunk is one executable code block found in a document.
type Chunk struct {
	Line  int    `json:"line"` // 1-based line of the opening fence
	Info  string `json:"info"`
	Label string `json:"label,omitempty"`
	Style Style  `json:"style"`
}

// Report is the chunk inventory of a single document.
type Report struct {
	Path   string  `json:"path"`
	Title  string  `json:"title"`
	Chunks []Chunk `json:"chunks"`

	// Warnings are problems that did not stop the inventory, such as
	// front matter that failed to parse.
	Warnings []string `json:"warnings,omitempty"`
}

// Unlabeled returns the chunks that carry no label in either style.
func (r *Report) Unlabeled() []Chunk {
	var out []Chunk
	for _, c := range r.Chunks {
		if c.Style == StyleNone {
			out = append(out, c)
		}
	}
	return out
}

// Duplicates returns labels declared by more than one chunk, in order of
// first appearance.
func (r *Report) Duplicates() []string {
	seen := make(map[string]int)
	var order []string
	for _, c := range r.Chunks {
		if c.Style == StyleNone {
			continue
		}
		if seen[c.Label] == 0 {
			order = append(order, c.Label)
		}
		seen[c.Label]++
	}
	var dups []string
	for _, l := range order {
		if seen[l] > 1 {
			dups = append(dups, l)
		}
	}
	return dups
}

type frontMatter struct {
	Title string `yaml:"title"`
}

var inlineLabel = regexp.MustCompile(labeler.InlineLabelPattern)

// Inspect builds the chunk inventory for the document at path.
func Inspect(path string, src []byte) (*Report, error) {
	if !labeler.IsDocument(path) {
		return nil, fmt.Errorf("%s: %w", path, labeler.ErrInvalidInputKind)
	}

	report := &Report{Path: path}

	var meta frontMatter
	body, err := frontmatter.Parse(bytes.NewReader(src), &meta)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("parse frontmatter: %v", err))
		meta = frontMatter{}
		body = src
	}

	// Line numbers must refer to the original file, so the body is only
	// used when it is an exact suffix of the source.
	lineOffset := 0
	if bytes.HasSuffix(src, body) {
		lineOffset = bytes.Count(src[:len(src)-len(body)], []byte("\n"))
	} else {
		body = src
	}

	report.Title = meta.Title
	if report.Title == "" {
		report.Title = labeler.Stem(path)
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(body))
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok || fcb.Info == nil {
			return ast.WalkContinue, nil
		}
		info := string(fcb.Info.Segment.Value(body))
		if !strings.HasPrefix(info, "{r") {
			return ast.WalkContinue, nil
		}

		c := Chunk{
			Line:  lineOffset + bytes.Count(body[:fcb.Info.Segment.Start], []byte("\n")) + 1,
			Info:  info,
			Style: StyleNone,
		}
		if lbl, ok := annotatedLabel(fcb, body); ok {
			c.Label, c.Style = lbl, StyleAnnotated
		} else if m := inlineLabel.FindStringSubmatch("```" + info); m != nil {
			c.Label, c.Style = m[1], StyleInline
		}
		report.Chunks = append(report.Chunks, c)
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

// annotatedLabel scans the leading "#|" option lines of a chunk body.
func annotatedLabel(fcb *ast.FencedCodeBlock, src []byte) (string, bool) {
	lines := fcb.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimSpace(string(seg.Value(src)))
		if !strings.HasPrefix(line, "#|") {
			break
		}
		opt := strings.TrimSpace(strings.TrimPrefix(line, "#|"))
		if v, ok := strings.CutPrefix(opt, "label:"); ok {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}
