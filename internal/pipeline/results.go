package pipeline

import (
	"github.com/dgallion1/qlabel/internal/labeler"
)

// FileStatus is the outcome of processing one file.
type FileStatus string

const (
	StatusLabeled   FileStatus = "labeled"   // Rewritten on disk.
	StatusPending   FileStatus = "pending"   // Would change; not written (dry-run or check).
	StatusUnchanged FileStatus = "unchanged" // Already fully labeled.
	StatusFailed    FileStatus = "failed"
	StatusCanceled  FileStatus = "canceled"
)

// FileResult records what happened to one file.
type FileResult struct {
	Path   string         `json:"path"`
	Status FileStatus     `json:"status"`
	Stats  labeler.Result `json:"stats"`
	Err    error          `json:"-"`
}

// Summary aggregates the results of a run.
type Summary struct {
	Files []FileResult `json:"files"`
}

// Count returns the number of files with the given status.
func (s Summary) Count(status FileStatus) int {
	n := 0
	for _, f := range s.Files {
		if f.Status == status {
			n++
		}
	}
	return n
}

// Changed returns the paths that were rewritten or would be.
func (s Summary) Changed() []string {
	var paths []string
	for _, f := range s.Files {
		if f.Status == StatusLabeled || f.Status == StatusPending {
			paths = append(paths, f.Path)
		}
	}
	return paths
}
