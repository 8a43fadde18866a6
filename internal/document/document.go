package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is the line-addressed contents of one source file.
type Document struct {
	Path  string   // Source path on disk
	Lines []string // Lines with their original terminators
}

// Bytes joins the lines back into file contents.
func (d *Document) Bytes() []byte {
	return []byte(JoinLines(d.Lines))
}

// SplitLines splits text into lines, keeping each line's terminator.
// The final line has no terminator when the text does not end in one.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	var lines []string
	for text != "" {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			lines = append(lines, text)
			break
		}
		lines = append(lines, text[:i+1])
		text = text[i+1:]
	}
	return lines
}

// JoinLines concatenates lines that already carry their terminators.
func JoinLines(lines []string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
	}
	return b.String()
}

// Read loads the document at path.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &Document{Path: path, Lines: SplitLines(string(data))}, nil
}

// Write overwrites the file at d.Path with d.Lines. The file is written to a
// temporary sibling and renamed into place, keeping the original mode.
func Write(d *Document) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(d.Path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.Path), "."+filepath.Base(d.Path)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", d.Path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(d.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", d.Path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", d.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", d.Path, err)
	}
	if err := os.Rename(tmpName, d.Path); err != nil {
		return fmt.Errorf("replace %s: %w", d.Path, err)
	}
	return nil
}
