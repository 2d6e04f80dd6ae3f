package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cnc-frame-wizard/internal/fsutil"

	"github.com/rs/zerolog/log"
)

// SnapshotTimeFormat names files under profiles/saved/.
const SnapshotTimeFormat = "2006-01-02_15-04-05"

// Load reads a profile document from path. A missing, empty or unparseable
// file is replaced by a fresh default document, which is written back so the
// next load succeeds. Load never fails on bad content; the returned error only
// reports a failure to write that default.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		log.Info().Str("path", path).Msg("Profile document not found, creating default")
		return writeDefault(path)
	case err != nil:
		log.Warn().Err(err).Str("path", path).Msg("Failed to read profile document, using default")
		return writeDefault(path)
	case len(bytes.TrimSpace(data)) == 0:
		log.Warn().Str("path", path).Msg("Profile document is empty, creating default")
		return writeDefault(path)
	}

	doc, err := Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to parse profile document, creating default")
		return writeDefault(path)
	}

	return NewStore(doc), nil
}

// Read parses the profile document at path without repairing it. Unlike
// Load, a missing or malformed file is returned as an error and nothing is
// written.
func Read(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile document: %w", err)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return NewStore(doc), nil
}

// Decode parses a profile document.
func Decode(data []byte) (Document, error) {
	doc := NewDocument()
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode profile document: %w", err)
	}
	doc.normalize()
	return doc, nil
}

func writeDefault(path string) (*Store, error) {
	s := NewStore(NewDocument())
	return s, s.Save(path)
}

// Save writes the document to path as indented JSON. The file is written to a
// temporary sibling and renamed into place so readers never see a partial
// document.
func (s *Store) Save(path string) error {
	data, err := encode(s.doc)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data)
}

// SaveSnapshot writes the document to dir/<timestamp>.json and returns the path.
func (s *Store) SaveSnapshot(dir string, now time.Time) (string, error) {
	data, err := encode(s.doc)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, now.Format(SnapshotTimeFormat)+".json")
	if err := fsutil.WriteFileAtomic(path, data); err != nil {
		return "", err
	}

	log.Info().Str("path", path).Msg("Saved profile snapshot")
	return path, nil
}

func encode(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode profile document: %w", err)
	}
	return buf.Bytes(), nil
}
