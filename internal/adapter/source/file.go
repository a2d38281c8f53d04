package source

import (
	"context"
	"os"

	"github.com/climavida/heatzone-service/internal/domain"
)

// FileSource reads a zone table from a CSV file on local disk.
type FileSource struct {
	path string
}

// NewFileSource creates a source for the CSV file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name returns the file path.
func (s *FileSource) Name() string { return s.path }

// Fetch reads the whole file. The file is reopened on every call so a reload
// observes the current contents.
func (s *FileSource) Fetch(ctx context.Context) (domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return domain.Table{}, &domain.SourceUnavailableError{Source: s.path, Err: err}
	}
	f, err := os.Open(s.path)
	if err != nil {
		return domain.Table{}, &domain.SourceUnavailableError{Source: s.path, Err: err}
	}
	defer f.Close()

	tbl, err := readTable(f)
	if err != nil {
		return domain.Table{}, wrapReadError(s.path, err)
	}
	return tbl, nil
}

// wrapReadError keeps schema errors as they are and treats any other read
// failure as the source being unavailable.
func wrapReadError(name string, err error) error {
	if domain.IsLoadFailure(err) {
		return err
	}
	return &domain.SourceUnavailableError{Source: name, Err: err}
}
