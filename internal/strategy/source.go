package strategy

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

//go:embed default_strategies.yaml
var bundledDocument []byte

// BundledDocument returns the strategy document compiled into the binary.
func BundledDocument() []byte {
	return append([]byte(nil), bundledDocument...)
}

// Source reads and persists the strategy document.
type Source interface {
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
	// Location names the source in errors and logs.
	Location() string
}

// FileSource stores the document in a YAML or JSON file.
//
// When the file does not exist and Fallback is set, Load decodes Fallback
// instead; the file is created on the first Save.
type FileSource struct {
	Path     string
	Fallback []byte
}

// NewFileSource returns a FileSource that falls back to the bundled document.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path, Fallback: BundledDocument()}
}

// Location returns the file path.
func (s *FileSource) Location() string { return s.Path }

// Load reads and decodes the file.
func (s *FileSource) Load(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	data, err := os.ReadFile(s.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && s.Fallback != nil:
		return Decode(s.Fallback, FormatYAML)
	case err != nil:
		return Document{}, fmt.Errorf("reading strategy file: %w", err)
	}
	return Decode(data, FormatForPath(s.Path))
}

// Save writes the document atomically: a temp file in the same directory
// is written, synced and renamed over the target.
func (s *FileSource) Save(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(doc, FormatForPath(s.Path))
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating strategy directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // already failing
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck // already failing
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return fmt.Errorf("replacing strategy file: %w", err)
	}
	return nil
}

// MemorySource keeps the document in memory. Saves succeed and are
// visible to later Loads but do not survive a restart.
type MemorySource struct {
	mu   sync.Mutex
	name string
	data []byte
	doc  *Document
}

// NewBundledSource returns a MemorySource seeded with the bundled document.
func NewBundledSource() *MemorySource {
	return &MemorySource{name: "bundled default", data: BundledDocument()}
}

// NewMemorySource returns a MemorySource seeded with a YAML document.
func NewMemorySource(name string, yamlDoc []byte) *MemorySource {
	return &MemorySource{name: name, data: yamlDoc}
}

// Location returns the source name.
func (s *MemorySource) Location() string { return s.name }

// Load returns the last saved document, or decodes the seed.
func (s *MemorySource) Load(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc != nil {
		return s.doc.clone(), nil
	}
	return Decode(s.data, FormatYAML)
}

// Save replaces the in-memory document.
func (s *MemorySource) Save(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := doc.clone()
	s.doc = &saved
	return nil
}
