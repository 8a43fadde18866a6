package labeler

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DocumentExt is the only file extension the labeler accepts.
	DocumentExt = ".qmd"

	// ChunkOpenPattern detects the opening fence of an executable R chunk.
	ChunkOpenPattern = "```\\{r"

	// InlineLabelPattern captures a legacy inline label, e.g. ```{r setup}.
	InlineLabelPattern = "```\\{r (.*)\\}"

	// BareMarker is the opening fence written back in place of a header.
	BareMarker = "```{r}"

	// LabelPrefix starts a modern label annotation line.
	LabelPrefix = "#| label: "

	labelToken = "label"
)

var (
	ErrInvalidInputKind = errors.New("input file must be a quarto source file")
	ErrMalformedChunk   = errors.New("chunk header has no following line")
)

// Options controls labeler behavior.
type Options struct {
	// Strict makes a chunk header on the last line an error instead of
	// treating it as a chunk with no label line.
	Strict bool
}

// Result summarizes what a single pass did to one document.
type Result struct {
	Chunks      int  // Chunk headers seen.
	Preserved   int  // Headers carrying an inline label.
	Synthesized int  // Headers that consumed a sequence number.
	Annotated   int  // Headers already followed by a label line.
	Changed     bool // Whether any line differs from the input.
}

// Labeler rewrites chunk headers so every chunk carries a label annotation.
type Labeler struct {
	open   *regexp.Regexp
	inline *regexp.Regexp
	opts   Options
}

// New compiles the chunk patterns and returns a Labeler.
func New(opts Options) *Labeler {
	return &Labeler{
		open:   regexp.MustCompile(ChunkOpenPattern),
		inline: regexp.MustCompile(InlineLabelPattern),
		opts:   opts,
	}
}

// Stem returns the base name of path with its extension removed.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsDocument reports whether path has the document extension.
func IsDocument(path string) bool {
	return filepath.Ext(path) == DocumentExt
}

// Label checks that path names a document and labels its lines using the
// file stem as the label prefix.
func (l *Labeler) Label(path string, lines []string) ([]string, Result, error) {
	if !IsDocument(path) {
		return nil, Result{}, fmt.Errorf("%s: %w", path, ErrInvalidInputKind)
	}
	out, res, err := l.LabelLines(lines, Stem(path))
	if err != nil {
		return nil, Result{}, fmt.Errorf("%s: %w", path, err)
	}
	return out, res, nil
}

// LabelLines runs the labeling pass over lines. The input is not modified.
func (l *Labeler) LabelLines(lines []string, nameHint string) ([]string, Result, error) {
	out := make([]string, len(lines))
	copy(out, lines)

	var res Result
	seq := 0

	for i, line := range lines {
		if !l.open.MatchString(line) {
			continue
		}
		res.Chunks++

		var lbl string
		if m := l.inline.FindStringSubmatch(line); m != nil {
			lbl = m[1]
			res.Preserved++
		} else {
			seq++
			lbl = nameHint + "-" + strconv.Itoa(seq)
			res.Synthesized++
		}

		eol := lineEnding(line)
		hasNext := i+1 < len(lines)
		if !hasNext && l.opts.Strict {
			return nil, Result{}, fmt.Errorf("line %d: %w", i+1, ErrMalformedChunk)
		}

		if hasNext && strings.Contains(lines[i+1], labelToken) {
			out[i] = BareMarker + eol
			res.Annotated++
		} else {
			out[i] = BareMarker + eol + LabelPrefix + lbl + eol
		}

		if out[i] != line {
			res.Changed = true
		}
	}

	return out, res, nil
}

// lineEnding returns the terminator of line, defaulting to "\n" when the
// line has none so a rewritten header always ends its own line.
func lineEnding(line string) string {
	if strings.HasSuffix(line, "\r\n") {
		return "\r\n"
	}
	return "\n"
}
