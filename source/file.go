package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
)

// FileFetcher reads a local line list. A missing file is not an error: it is
// logged as a warning and contributes nothing.
type FileFetcher struct {
	name string
	path string
}

func NewFileFetcher(name, path string) *FileFetcher {
	return &FileFetcher{name: name, path: path}
}

func (f *FileFetcher) Name() string { return f.name }

func (f *FileFetcher) Fetch(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("File not found, skipping", "source", f.name, "path", f.path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open file %s: %w", f.path, err)
	}
	defer file.Close()

	tokens, err := ParseLines(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.path, err)
	}
	return tokens, nil
}
