package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	logpkg "github.com/haukened/phishscreen/internal/screen/common/log"
	"github.com/haukened/phishscreen/internal/screen/domain"
	"github.com/haukened/phishscreen/internal/screen/repos/membership"
)

// FileSource reads a corpus file. Files ending in .json are parsed as a JSON
// array, .hosts as a hosts-style domain feed, anything else as a plain list.
type FileSource struct {
	path   string
	logger logpkg.Logger
}

var _ membership.CorpusSource = (*FileSource)(nil)

// NewFileSource returns a CorpusSource for path.
func NewFileSource(path string, logger logpkg.Logger) *FileSource {
	return &FileSource{path: path, logger: logger}
}

// Name returns the file path.
func (s *FileSource) Name() string { return s.path }

// Entries reads and parses the file. Open and parse failures wrap
// domain.ErrCorpusRead.
func (s *FileSource) Entries(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCorpusRead, err)
	}
	defer f.Close()

	var entries []string
	switch {
	case IsJSON(s.path):
		entries, err = ParseJSONList(f, s.path, s.logger)
	case IsHosts(s.path):
		entries, err = ParseHostsList(f, s.path, s.logger)
	default:
		entries, err = ParsePlainList(f, s.path, s.logger)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCorpusRead, err)
	}
	return entries, nil
}

// IsJSON reports whether path selects the JSON parser.
func IsJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// IsHosts reports whether path selects the hosts-file parser.
func IsHosts(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".hosts")
}

// StaticSource serves a fixed, in-memory list of entries.
type StaticSource struct {
	name    string
	entries []string
}

var _ membership.CorpusSource = (*StaticSource)(nil)

// NewStaticSource returns a CorpusSource over entries.
func NewStaticSource(name string, entries ...string) *StaticSource {
	return &StaticSource{name: name, entries: entries}
}

func (s *StaticSource) Name() string { return s.name }

func (s *StaticSource) Entries(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]string(nil), s.entries...), nil
}
